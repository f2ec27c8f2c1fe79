package render

import (
	"html/template"
	"io"
)

var reportTemplate *template.Template

func init() {
	mainTmpl := `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>{{ .Title }}</title>
	<style>
		table.chromosomes td { vertical-align: top; padding: 0 2px; }
		th.variety text, td.summary text { font-family: Verdana; font-size: 20px; text-anchor: end; }
		td.row-label { font-family: Verdana; font-size: 20px; }
	</style>
</head>
<body>
	<h1>{{ .Title }}</h1>
	{{template "legend" .}}
	<table class="chromosomes">
		<tr>
			<th></th>
			{{ range .Titles }}
			<th class="variety"><svg width="24" height="120"><text transform="rotate(270)" y="19">{{ . }}</text></svg></th>
			{{ end }}
		</tr>
		{{ range .Rows }}
		<tr>
			<td class="row-label"><strong>{{ .Label }}</strong></td>
			{{ range .Cells }}{{template "chromosome" .}}{{ end }}
		</tr>
		{{ end }}
		<tr>
			<td></td>
			{{ range .Summary }}
			<td class="summary"><svg width="24" height="70"><text transform="rotate(270)" y="19">{{ .Unknown }}({{ .Total }})</text></svg></td>
			{{ end }}
		</tr>
		{{ if .Distribution }}
		<tr>
			<td></td>
			{{ range .Distribution }}
			<td><svg width="20" height="92">{{ range .Bars }}<rect x="{{ .X }}" y="{{ .Y }}" width="{{ .Width }}" height="15" fill="darkblue"><title>{{ .Count }}</title></rect>{{ end }}</svg></td>
			{{ end }}
		</tr>
		{{ end }}
	</table>
	{{template "clusters" .}}
</body>
</html>`

	chromosomeTmpl := `
	{{define "chromosome"}}<td bgcolor="{{ .Background }}"><svg width="{{ .Width }}" height="{{ .Height }}">{{ range .Glyphs }}{{template "glyph" .}}{{ end }}</svg></td>{{end}}`

	glyphTmpl := `
	{{define "glyph"}}
		{{- if eq (shape .) "RECT" -}}
		<rect x="{{ .X }}" y="{{ .Y }}" width="{{ .Size }}" height="{{ .Size }}" fill="{{ .Fill }}" stroke="black" stroke-width="2"><title>{{ .Tooltip }}</title></rect>
		{{- else if eq (shape .) "CIRCLE" -}}
		<circle cx="{{ .CX }}" cy="{{ .CY }}" r="{{ .R }}" fill="{{ .Fill }}" stroke="black" stroke-width="2"><title>{{ .Tooltip }}</title></circle>
		{{- else -}}
		<polygon points="{{ .Points }}" fill="{{ .Fill }}" stroke="black" stroke-width="2"><title>{{ .Tooltip }}</title></polygon>
		{{- end -}}
	{{end}}`

	legendTmpl := `
	{{define "legend"}}
	<table class="legend">
		{{ range .Legend }}
		<tr><td><svg width="24" height="24">{{template "glyph" .Glyph}}</svg></td><td>{{ .Label }}</td></tr>
		{{ end }}
	</table>
	{{end}}`

	clustersTmpl := `
	{{define "clusters"}}
	<h2>Clusters</h2>
	{{ if .Clusters }}
	<table border="1">
		<tr><th>Cluster</th><th>Colour</th><th>Genes</th><th>Sequences</th></tr>
		{{ range .Clusters }}
		<tr>
			<td><a href="/cluster/{{ .Name }}">{{ .Name }}</a></td>
			<td><svg width="24" height="12"><rect width="24" height="12" fill="{{ .Color }}"></rect></svg></td>
			<td>{{ .Size }}</td>
			<td>[<a href="/sequence/by-cluster?cluster_id={{ .Name }}&is_prot=false">FNA</a>] [<a href="/sequence/by-cluster?cluster_id={{ .Name }}&is_prot=true">FAA</a>]</td>
		</tr>
		{{ end }}
	</table>
	{{ else }}
	<p>No clusters.</p>
	{{ end }}
	<p>{{ .Residual }} genes left outside every cluster.</p>
	{{end}}`

	funcMap := template.FuncMap{
		"shape": func(g Glyph) string { return string(g.Shape) },
	}

	reportTemplate = template.New("report").Funcs(funcMap)
	reportTemplate = template.Must(reportTemplate.Parse(mainTmpl))
	reportTemplate = template.Must(reportTemplate.Parse(chromosomeTmpl))
	reportTemplate = template.Must(reportTemplate.Parse(glyphTmpl))
	reportTemplate = template.Must(reportTemplate.Parse(legendTmpl))
	reportTemplate = template.Must(reportTemplate.Parse(clustersTmpl))
}

// RenderReport writes the chromosome page.
func RenderReport(w io.Writer, report *Report) error {
	return reportTemplate.Execute(w, report)
}
