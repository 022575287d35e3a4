package master

// Node describes one master-graph node for the static graph-structure
// API.
type Node struct {
	Name string `json:"name"`
}

// Edge describes one transition, optionally gated by a condition label
// ("iterate", "proceed", "create", "skip").
type Edge struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Condition string `json:"condition,omitempty"`
}

// Structure is the full node/edge description backing
// GET /api/graph/structure, built from the graphEdges table below.
// Graph.Run encodes the same flow in code and does not read this table.
type Structure struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

var graphEdges = []Edge{
	{From: "START", To: "conversation_manager"},
	{From: "conversation_manager", To: "strategic_planner"},
	{From: "strategic_planner", To: "tool_executor"},
	{From: "tool_executor", To: "decision_gate"},
	{From: "decision_gate", To: "strategic_planner", Condition: "iterate"},
	{From: "decision_gate", To: "response_synthesizer", Condition: "proceed"},
	{From: "response_synthesizer", To: "artifact_decision"},
	{From: "artifact_decision", To: "artifact_creator", Condition: "create"},
	{From: "artifact_creator", To: "END"},
	{From: "artifact_decision", To: "END", Condition: "skip"},
}

var graphNodeNames = []string{
	"conversation_manager",
	"strategic_planner",
	"tool_executor",
	"decision_gate",
	"response_synthesizer",
	"artifact_decision",
	"artifact_creator",
}

// DescribeStructure returns the static node/edge description.
func DescribeStructure() Structure {
	nodes := make([]Node, len(graphNodeNames))
	for i, name := range graphNodeNames {
		nodes[i] = Node{Name: name}
	}
	edges := make([]Edge, len(graphEdges))
	copy(edges, graphEdges)
	return Structure{Nodes: nodes, Edges: edges}
}
