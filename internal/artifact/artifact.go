package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/polanalyst/workbench/internal/artifact/chart"
	"github.com/polanalyst/workbench/internal/domain"
)

// ObjectStore persists the byte payload for one artifact format.
// Implemented by internal/store's local-disk/S3-style object store.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Repository persists Artifact metadata (format_paths, content hash) so
// GET /api/artifacts/{id}.{ext} can look it up later without
// recomputing it. Implemented by internal/store.
type Repository interface {
	Save(ctx context.Context, a domain.Artifact) error
}

// Creator builds artifacts from an ArtifactDecision, satisfying
// internal/master's ArtifactCreator interface.
type Creator struct {
	objects ObjectStore
	repo    Repository
}

// NewCreator builds a Creator writing format payloads to objects and
// metadata to repo.
func NewCreator(objects ObjectStore, repo Repository) *Creator {
	return &Creator{objects: objects, repo: repo}
}

// Create resolves decision.Data (falling back to an extractor over
// state.SubAgentResults when Data is absent), renders every required
// format, and persists both the bytes and the Artifact record.
func (c *Creator) Create(ctx context.Context, decision domain.ArtifactDecision, state *domain.AgentState) (*domain.Artifact, error) {
	kind := domain.ArtifactType(decision.ChartType)
	data := decision.Data
	if len(data) == 0 {
		data = Extract(kind, state)
	}

	metadata := map[string]any{}
	if kind == domain.ArtifactMapChart {
		metadata = attachCountryMapping(data)
	}

	id := ContentID(kind, data)
	rendered, err := chart.Render(kind, decision.Title, data)
	if err != nil {
		return nil, fmt.Errorf("artifact_creator: rendering %s: %w", kind, err)
	}

	formatPaths := make(map[string]string, len(rendered.Formats))
	for format, payload := range rendered.Formats {
		key := fmt.Sprintf("artifacts/%s.%s", id, format)
		uri, err := c.objects.Put(ctx, key, payload, ContentTypeFor(format))
		if err != nil {
			if format == "png" || format == "zip" {
				// PNG and the bundled zip are both best-effort exports
				// (§4.8/§8): a renderer/store failure here never
				// invalidates the primary HTML artifact.
				continue
			}
			return nil, fmt.Errorf("artifact_creator: storing %s: %w", format, err)
		}
		formatPaths[format] = uri
	}

	result := domain.Artifact{
		ArtifactID:  id,
		Type:        kind,
		Title:       decision.Title,
		FormatPaths: formatPaths,
		Metadata:    metadata,
		CreatedAt:   time.Now(),
	}

	if c.repo != nil {
		if err := c.repo.Save(ctx, result); err != nil {
			// Persistence failures never invalidate an already-rendered
			// artifact (§7 persistence_failure): log and keep serving it.
			state.AppendError(fmt.Sprintf("artifact_creator: persisting artifact %s: %v", id, err))
		}
	}
	return &result, nil
}

// Visualizer adapts Creator to the sentiment sub-agent's Visualizer
// contract: a sub-agent's own synthesizer node decides a chart is due
// and calls straight through to the same rendering/storage path the
// master graph's Artifact Creator node uses.
type Visualizer struct {
	creator *Creator
}

// NewVisualizer builds a sentiment.Visualizer/mediabias-style adapter
// over creator.
func NewVisualizer(creator *Creator) *Visualizer {
	return &Visualizer{creator: creator}
}

// Render builds and persists one artifact outside the master graph's
// own Artifact Decision node, for sub-agents that decide to chart their
// own findings (§4.10).
func (v *Visualizer) Render(ctx context.Context, kind domain.ArtifactType, title string, data map[string]any) (domain.Artifact, error) {
	decision := domain.ArtifactDecision{ShouldCreate: true, ChartType: string(kind), Title: title, Data: data}
	result, err := v.creator.Create(ctx, decision, domain.NewAgentState("", "", nil))
	if err != nil {
		return domain.Artifact{}, err
	}
	return *result, nil
}

// ContentID derives a 12-hex-character ID from (type, normalized data),
// so two equal inputs always yield the same ID (§8 idempotence law).
func ContentID(kind domain.ArtifactType, data map[string]any) string {
	normalized, _ := json.Marshal(sortedMap(data))
	sum := sha256.Sum256(append([]byte(kind), normalized...))
	return hex.EncodeToString(sum[:])[:12]
}

// sortedMap copies a map's top-level entries in sorted key order for
// hashing (nested values are copied as they are), since Go's json.Marshal already
// sorts map[string]any keys — this is a no-op pass kept explicit so the
// determinism requirement is visible at the call site.
func sortedMap(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]any, len(data))
	for _, k := range keys {
		out[k] = data[k]
	}
	return out
}

func attachCountryMapping(data map[string]any) map[string]any {
	names, _ := toStringSlice(data["countries"])
	mapped, skipped := SplitCountries(names)
	return map[string]any{
		"mapped_countries":  mapped,
		"skipped_countries": skipped,
	}
}

// ContentTypeFor maps a rendered artifact format to its MIME type, used
// both when storing the payload and when serving it back over HTTP.
func ContentTypeFor(format string) string {
	switch format {
	case "html":
		return "text/html"
	case "json":
		return "application/json"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

func toStringSlice(v any) ([]string, bool) {
	switch vv := v.(type) {
	case []string:
		return vv, true
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
