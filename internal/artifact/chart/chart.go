// Package chart renders chart data (bar, line, map, radar, table,
// mind_map) into the primary HTML output plus optional PNG/XLSX/JSON
// sidecars, per the Artifact Decision chart-type data schemas (§4.8).
package chart

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"image"
	"image/color"
	"image/png"

	"github.com/xuri/excelize/v2"

	"github.com/polanalyst/workbench/internal/domain"
)

// Rendered holds one artifact's payload per output format. "html" is
// always present; other keys are added only when that format applies.
type Rendered struct {
	Formats map[string][]byte
}

// Render dispatches to the type-specific renderer and always attempts a
// best-effort PNG placeholder alongside the primary HTML (§4.8: "PNG
// export is best-effort; may fail without breaking").
func Render(kind domain.ArtifactType, title string, data map[string]any) (Rendered, error) {
	var html []byte
	var err error

	switch kind {
	case domain.ArtifactBarChart, domain.ArtifactLineChart:
		html, err = renderSeriesHTML(kind, title, data)
	case domain.ArtifactMapChart:
		html, err = renderMapHTML(title, data)
	case domain.ArtifactRadarChart:
		html, err = renderRadarHTML(title, data)
	case domain.ArtifactTable:
		html, err = renderTableHTML(title, data)
	case domain.ArtifactMindMap:
		html, err = renderMindMapHTML(title, data)
	case domain.ArtifactJSONExport:
		html, err = renderJSONExportHTML(title, data)
	default:
		return Rendered{}, fmt.Errorf("chart: unsupported artifact type %q", kind)
	}
	if err != nil {
		return Rendered{}, err
	}

	formats := map[string][]byte{"html": html}

	if sidecar, err := json.MarshalIndent(data, "", "  "); err == nil {
		formats["json"] = sidecar
	}

	if png, err := renderPlaceholderPNG(title); err == nil {
		formats["png"] = png
	}

	if kind == domain.ArtifactTable {
		if xlsx, err := renderTableXLSX(data); err == nil {
			formats["xlsx"] = xlsx
		}
	}

	// zip is an optional bundle of every other format (§8 Artifact
	// definition); archive/zip is stdlib because no archiving library
	// appears anywhere in the retrieved pack.
	if bundle, err := bundleZIP(formats); err == nil {
		formats["zip"] = bundle
	}

	return Rendered{Formats: formats}, nil
}

func bundleZIP(formats map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for format, payload := range formats {
		w, err := zw.Create("artifact." + format)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(payload); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const pageTemplate = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title>
<script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
</head><body>
<h1>{{.Title}}</h1>
<canvas id="chart"></canvas>
<script>
const data = {{.DataJS}};
new Chart(document.getElementById('chart'), data);
</script>
</body></html>`

var tmpl = template.Must(template.New("page").Parse(pageTemplate))

func renderPage(title string, chartJS map[string]any) ([]byte, error) {
	js, err := json.Marshal(chartJS)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct {
		Title  string
		DataJS template.JS
	}{Title: title, DataJS: template.JS(js)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderSeriesHTML(kind domain.ArtifactType, title string, data map[string]any) ([]byte, error) {
	x := toStringSlice(data["x"])
	y := toFloat64Slice(data["y"])

	chartType := "bar"
	if kind == domain.ArtifactLineChart {
		chartType = "line"
	}

	return renderPage(title, map[string]any{
		"type": chartType,
		"data": map[string]any{
			"labels":   x,
			"datasets": []map[string]any{{"label": title, "data": y}},
		},
	})
}

func renderMapHTML(title string, data map[string]any) ([]byte, error) {
	countries := toStringSlice(data["countries"])
	values := toFloat64Slice(data["values"])

	rows := ""
	for i, c := range countries {
		v := 0.0
		if i < len(values) {
			v = values[i]
		}
		rows += fmt.Sprintf("<tr><td>%s</td><td>%.2f</td></tr>", template.HTMLEscapeString(c), v)
	}

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>%s</title></head><body><h1>%s</h1>", title, title))
	buf.WriteString("<table border=\"1\"><thead><tr><th>Country (ISO-3)</th><th>Value</th></tr></thead><tbody>")
	buf.WriteString(rows)
	buf.WriteString("</tbody></table></body></html>")
	return buf.Bytes(), nil
}

func renderRadarHTML(title string, data map[string]any) ([]byte, error) {
	axes := toStringSlice(data["axes"])
	series := toMapSlice(data["series"])

	datasets := make([]map[string]any, 0, len(series))
	for _, s := range series {
		datasets = append(datasets, map[string]any{
			"label": s["name"],
			"data":  s["values"],
		})
	}

	return renderPage(title, map[string]any{
		"type": "radar",
		"data": map[string]any{"labels": axes, "datasets": datasets},
	})
}

func renderTableHTML(title string, data map[string]any) ([]byte, error) {
	columns := toStringSlice(data["columns"])
	rows := toRowSlice(data["rows"])

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>%s</title></head><body><h1>%s</h1><table border=\"1\"><thead><tr>", title, title))
	for _, col := range columns {
		buf.WriteString(fmt.Sprintf("<th>%s</th>", template.HTMLEscapeString(col)))
	}
	buf.WriteString("</tr></thead><tbody>")
	for _, row := range rows {
		buf.WriteString("<tr>")
		for _, cell := range row {
			buf.WriteString(fmt.Sprintf("<td>%v</td>", cell))
		}
		buf.WriteString("</tr>")
	}
	buf.WriteString("</tbody></table></body></html>")
	return buf.Bytes(), nil
}

func renderMindMapHTML(title string, data map[string]any) ([]byte, error) {
	root, _ := data["root"].(string)

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>%s</title></head><body><h1>%s</h1>", title, title))
	buf.WriteString("<ul><li>" + template.HTMLEscapeString(root))
	writeMindMapChildren(&buf, data["children"])
	buf.WriteString("</li></ul></body></html>")
	return buf.Bytes(), nil
}

func writeMindMapChildren(buf *bytes.Buffer, children any) {
	list, ok := children.([]any)
	if !ok || len(list) == 0 {
		return
	}
	buf.WriteString("<ul>")
	for _, child := range list {
		node, ok := child.(map[string]any)
		if !ok {
			continue
		}
		name, _ := node["name"].(string)
		buf.WriteString("<li>" + template.HTMLEscapeString(name))
		writeMindMapChildren(buf, node["children"])
		buf.WriteString("</li>")
	}
	buf.WriteString("</ul>")
}

func renderJSONExportHTML(title string, data map[string]any) ([]byte, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>%s</title></head><body><h1>%s</h1><pre>%s</pre></body></html>",
		title, title, template.HTMLEscapeString(string(b)))), nil
}

// renderTableXLSX writes data's columns and rows to a single "Details"
// sheet. It writes no summary or bias sheet, whatever columns are present.
func renderTableXLSX(data map[string]any) ([]byte, error) {
	columns := toStringSlice(data["columns"])
	rows := toRowSlice(data["rows"])

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Details"
	f.SetSheetName(f.GetSheetName(0), sheet)

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col)
	}
	for r, row := range rows {
		for c, val := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheet, cell, val)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderPlaceholderPNG draws a flat-color placeholder image. No
// chart-rendering library was available to wire for pixel output, so
// this stands in for the best-effort PNG export the spec allows to fail
// without breaking the rest of the artifact.
func renderPlaceholderPNG(title string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 360))
	fill := color.RGBA{R: 245, G: 245, B: 250, A: 255}
	for y := 0; y < img.Bounds().Dy(); y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
