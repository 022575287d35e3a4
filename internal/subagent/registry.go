package subagent

import (
	"context"
	"fmt"
	"time"

	"github.com/polanalyst/workbench/internal/domain"
	"github.com/polanalyst/workbench/internal/registry"
)

// Registry is the closed namespace of known sub-agents (§4.10). Unlike
// the teacher's plugin registry, nothing here is loaded from disk or a
// subprocess: every entry is a Factory registered at startup by
// cmd/polwatchd, which is itself the isolation boundary the original
// module-eviction language describes.
type Registry struct {
	*registry.BaseRegistry[Factory]
	names []string
}

// NewRegistry returns an empty sub-agent registry.
func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Factory]()}
}

// Register adds name to the closed namespace, remembering insertion
// order for Names().
func (r *Registry) Register(name string, factory Factory) error {
	if err := r.BaseRegistry.Register(name, factory); err != nil {
		return err
	}
	r.names = append(r.names, name)
	return nil
}

// ErrUnknownAgent is returned when the planner names a sub-agent that was
// never registered.
type ErrUnknownAgent struct{ Name string }

func (e *ErrUnknownAgent) Error() string {
	return fmt.Sprintf("subagent: unknown agent %q", e.Name)
}

// Caller runs registered sub-agents with a per-call timeout (§6.3
// SUBAGENT_TIMEOUT_S) and converts panics/timeouts into a failed
// domain.SubAgentResult instead of propagating them into the master
// graph, matching the node failure policy in §4.1.
type Caller struct {
	registry *Registry
	timeout  time.Duration
}

// NewCaller builds a Caller bound to registry with the given per-call
// timeout.
func NewCaller(reg *Registry, timeout time.Duration) *Caller {
	return &Caller{registry: reg, timeout: timeout}
}

// Call instantiates a fresh Agent from the named factory and runs it to
// completion, or until timeout/cancellation. Every sub-agent invocation
// gets its own Agent value, so two concurrent calls to the same name
// never share mutable state.
func (c *Caller) Call(ctx context.Context, name, query string, extras map[string]any) (result domain.SubAgentResult) {
	factory, ok := c.registry.Get(name)
	if !ok {
		return domain.SubAgentResult{Success: false, Error: (&ErrUnknownAgent{Name: name}).Error()}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan domain.SubAgentResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- domain.SubAgentResult{Success: false, Error: fmt.Sprintf("panic: %v", r)}
			}
		}()
		agent := factory()
		done <- agent.Run(callCtx, Input{Query: query, Extras: extras})
	}()

	select {
	case result = <-done:
		return result
	case <-callCtx.Done():
		return domain.SubAgentResult{Success: false, Error: "subagent timed out"}
	}
}

// Names lists the registered sub-agent names, used by the Strategic
// Planner to constrain which names an LLM-chosen plan may reference.
func (c *Caller) Names() []string {
	names := make([]string, len(c.registry.names))
	copy(names, c.registry.names)
	return names
}
