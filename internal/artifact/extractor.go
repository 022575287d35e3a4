package artifact

import (
	"encoding/json"
	"sort"

	"github.com/polanalyst/workbench/internal/domain"
)

// Extract resolves chart data from state.SubAgentResults when the
// Artifact Decision node omitted decision.Data (§4.8: "the decision node
// may omit data and rely on the creator's extractor"). Currently
// specialized for the sentiment_analysis_agent's per-country scores,
// which is the only sub-agent that emits chartable per-entity data.
func Extract(kind domain.ArtifactType, state *domain.AgentState) map[string]any {
	scores, ok := sentimentScores(state)
	if !ok {
		return map[string]any{}
	}
	return BuildChartData(kind, scores)
}

// BuildChartData shapes a flat slice of per-entity score maps (country,
// score, sentiment, credibility, source_type, ...) into the layout
// chart.Render expects for kind. Exported so a sub-agent rendering its
// own findings outside the master graph (§4.10) can reuse the same
// extraction the Artifact Creator applies to state.SubAgentResults,
// instead of handing chart.Render an un-shaped map.
func BuildChartData(kind domain.ArtifactType, scores []map[string]any) map[string]any {
	switch kind {
	case domain.ArtifactMapChart:
		return extractMap(scores)
	case domain.ArtifactBarChart, domain.ArtifactLineChart:
		return extractSeries(scores)
	case domain.ArtifactRadarChart:
		return extractRadar(scores)
	case domain.ArtifactTable:
		return extractTable(scores)
	default:
		return map[string]any{}
	}
}

// ToScoreMaps re-marshals a slice of concrete per-entity score structs
// (a sub-agent's own typed scores) into the generic map view BuildChartData
// consumes, without the artifact package depending on the sub-agent's
// unexported types.
func ToScoreMaps(scores any) ([]map[string]any, error) {
	b, err := json.Marshal(scores)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// sentimentScores pulls the sentiment_analysis_agent's per-country score
// list out of SubAgentResults, if present.
func sentimentScores(state *domain.AgentState) ([]map[string]any, bool) {
	result, ok := state.SubAgentResults["sentiment_analysis_agent"]
	if !ok || !result.Success {
		return nil, false
	}
	raw, ok := result.Data["scores"]
	if !ok {
		return nil, false
	}

	scores, err := ToScoreMaps(raw)
	if err != nil {
		return nil, false
	}
	return scores, len(scores) > 0
}

func extractMap(scores []map[string]any) map[string]any {
	countries := make([]string, 0, len(scores))
	values := make([]float64, 0, len(scores))
	for _, s := range scores {
		countries = append(countries, stringField(s, "country"))
		values = append(values, floatField(s, "score"))
	}
	return map[string]any{"countries": countries, "values": values, "legend_title": "Sentiment score"}
}

func extractSeries(scores []map[string]any) map[string]any {
	sorted := append([]map[string]any(nil), scores...)
	sort.Slice(sorted, func(i, j int) bool { return stringField(sorted[i], "country") < stringField(sorted[j], "country") })

	x := make([]string, 0, len(sorted))
	y := make([]float64, 0, len(sorted))
	for _, s := range sorted {
		x = append(x, stringField(s, "country"))
		y = append(y, floatField(s, "score"))
	}
	return map[string]any{"x": x, "y": y, "xlabel": "Country", "ylabel": "Sentiment score"}
}

func extractRadar(scores []map[string]any) map[string]any {
	axes := []string{"score", "credibility", "positive_pct", "negative_pct"}
	series := make([]map[string]any, 0, len(scores))
	for _, s := range scores {
		series = append(series, map[string]any{
			"name": stringField(s, "country"),
			"values": []float64{
				floatField(s, "score"), floatField(s, "credibility"),
				floatField(s, "positive_pct"), floatField(s, "negative_pct"),
			},
		})
	}
	return map[string]any{"axes": axes, "series": series}
}

func extractTable(scores []map[string]any) map[string]any {
	columns := []string{"country", "sentiment", "score", "credibility", "source_type"}
	rows := make([][]any, 0, len(scores))
	for _, s := range scores {
		rows = append(rows, []any{
			stringField(s, "country"), stringField(s, "sentiment"), floatField(s, "score"),
			floatField(s, "credibility"), stringField(s, "source_type"),
		})
	}
	return map[string]any{"columns": columns, "rows": rows}
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func floatField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
