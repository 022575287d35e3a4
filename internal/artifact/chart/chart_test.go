package chart

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polanalyst/workbench/internal/domain"
)

// roundTrip simulates how an LLM-supplied ArtifactDecision.Data arrives
// in practice: JSON bytes unmarshaled into map[string]any, where every
// array becomes []any and every number becomes float64.
func roundTrip(t *testing.T, data map[string]any) map[string]any {
	t.Helper()
	b, err := json.Marshal(data)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestRenderSeriesHTMLAcceptsNativeAndJSONRoundTrippedData(t *testing.T) {
	native := map[string]any{"x": []string{"USA", "FRA"}, "y": []float64{0.5, -0.2}}

	nativeRendered, err := Render(domain.ArtifactBarChart, "Sentiment", native)
	require.NoError(t, err)
	assert.Contains(t, string(nativeRendered.Formats["html"]), "USA")

	jsonRendered, err := Render(domain.ArtifactBarChart, "Sentiment", roundTrip(t, native))
	require.NoError(t, err)
	assert.Contains(t, string(jsonRendered.Formats["html"]), "USA")
	assert.Equal(t, string(nativeRendered.Formats["html"]), string(jsonRendered.Formats["html"]))
}

func TestRenderMapHTMLAcceptsJSONRoundTrippedData(t *testing.T) {
	data := map[string]any{"countries": []string{"USA", "GBR"}, "values": []float64{1, 2}}

	rendered, err := Render(domain.ArtifactMapChart, "Map", roundTrip(t, data))
	require.NoError(t, err)
	html := string(rendered.Formats["html"])
	assert.Contains(t, html, "USA")
	assert.Contains(t, html, "2.00")
}

func TestRenderRadarHTMLAcceptsJSONRoundTrippedData(t *testing.T) {
	data := map[string]any{
		"axes": []string{"score", "credibility"},
		"series": []map[string]any{
			{"name": "USA", "values": []float64{0.5, 0.8}},
		},
	}

	rendered, err := Render(domain.ArtifactRadarChart, "Radar", roundTrip(t, data))
	require.NoError(t, err)
	assert.Contains(t, string(rendered.Formats["html"]), "USA")
}

func TestRenderTableHTMLAndXLSXAcceptJSONRoundTrippedData(t *testing.T) {
	data := map[string]any{
		"columns": []string{"country", "score"},
		"rows":    [][]any{{"USA", 0.5}, {"FRA", -0.2}},
	}

	rendered, err := Render(domain.ArtifactTable, "Table", roundTrip(t, data))
	require.NoError(t, err)
	assert.Contains(t, string(rendered.Formats["html"]), "USA")
	assert.NotEmpty(t, rendered.Formats["xlsx"])
}

func TestCoerceHelpersReturnNilForWrongShape(t *testing.T) {
	assert.Nil(t, toStringSlice(42))
	assert.Nil(t, toFloat64Slice("not a slice"))
	assert.Nil(t, toRowSlice(nil))
	assert.Nil(t, toMapSlice(map[string]any{}))
}
