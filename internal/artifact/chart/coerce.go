package chart

// Render's data argument comes from two different paths: internal/
// artifact's own extractor, which always produces concretely-typed
// Go slices, and the Artifact Decision node's own LLM output, which
// reaches here as the result of encoding/json unmarshaling into
// map[string]any — every array becomes []any and every number becomes
// float64, regardless of the schema's declared item type. Without this
// coercion a directly-LLM-supplied artifact silently renders empty
// instead of failing loudly, since a failed type assertion just
// produces a zero value.

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toFloat64Slice(v any) []float64 {
	switch vv := v.(type) {
	case []float64:
		return vv
	case []any:
		out := make([]float64, 0, len(vv))
		for _, item := range vv {
			switch n := item.(type) {
			case float64:
				out = append(out, n)
			case int:
				out = append(out, float64(n))
			}
		}
		return out
	default:
		return nil
	}
}

func toRowSlice(v any) [][]any {
	switch vv := v.(type) {
	case [][]any:
		return vv
	case []any:
		out := make([][]any, 0, len(vv))
		for _, item := range vv {
			switch row := item.(type) {
			case []any:
				out = append(out, row)
			}
		}
		return out
	default:
		return nil
	}
}

func toMapSlice(v any) []map[string]any {
	switch vv := v.(type) {
	case []map[string]any:
		return vv
	case []any:
		out := make([]map[string]any, 0, len(vv))
		for _, item := range vv {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}
