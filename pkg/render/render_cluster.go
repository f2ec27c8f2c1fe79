// Render HTML for viewing a cluster

package render

import (
	"html/template"
	"io"

	"github.com/galvezuma/BrachyUMA21/logger"
	"github.com/galvezuma/BrachyUMA21/pkg/db"
	"go.uber.org/zap"
)

var cluster_page_template *template.Template

type ClusterPage struct {
	RunID      string
	Cluster    db.ClusterSummary
	Members    []db.Member
	IsResidual bool
}

// init initializes the templates used for rendering the cluster page.
func init() {
	mainTmpl := `
	<!DOCTYPE html>
	<html>
	<head>
		<meta charset="utf-8">
		<title>Cluster: {{ .Cluster.Name }}</title>
	</head>
	<body>
		<h1>Cluster: {{ .Cluster.Name }}</h1>
		{{template "cluster_summary" . }}
		{{template "copy_numbers" .Members}}
		{{template "cluster_info" .Members}}
		<h2>Resources</h2>
		<ul>
			<li>[<a href="/sequence/by-cluster?cluster_id={{ .Cluster.Name }}&is_prot=false" target="_blank">FNA</a>] All nucleotide sequences in FASTA format</li>
			<li>[<a href="/sequence/by-cluster?cluster_id={{ .Cluster.Name }}&is_prot=true" target="_blank">FAA</a>] All protein sequences in FASTA format</li>
		</ul>
		<p><a href="/">Back to the chromosomes</a></p>
	</body>
	</html>`

	clusterSummaryTempl := `
	  {{define "cluster_summary"}}
		<div>
			{{ if .IsResidual }}
			<p>Genes that did not end up in any cluster.</p>
			{{ else }}
			<p>Colour: <svg width="24" height="12"><rect width="24" height="12" fill="{{ .Cluster.Color }}"></rect></svg> {{ .Cluster.Color }}</p>
			<p>Chromosome: {{ if eq .Cluster.Chromosome -1 }}unknown{{ else }}{{ .Cluster.Chromosome }}{{ end }}</p>
			{{ end }}
			<p>Consists of {{ len .Members }} genes from {{ varietyCount .Members }} varieties.</p>
			<p>Run: {{ .RunID }}</p>
		</div>
	  {{end}}
	`

	clusterInfoTmpl := `
	{{define "cluster_info"}}
		<table border="1">
		<tr>
			<th>Variety</th>
			<th>Gene ID</th>
			<th>Chr</th>
			<th>Position</th>
			<th>Protein length</th>
			<th>Group</th>
			<th>Shape</th>
		</tr>
		{{ range . }}
			<tr>
				<td>{{ .Variety }}</td>
				<td title="{{ .Info }}">{{ .Gene }}</td>
				<td>{{ .Chr }}</td>
				<td>{{ .Position }}</td>
				<td>{{ .Length }}</td>
				<td>{{ .RefCode }}</td>
				<td>{{ .Shape }}</td>
			</tr>
		{{ end }}
		</table>
	{{end}}`

	copyNumbersTmpl := `
	{{define "copy_numbers"}}
		<h2>Copies per variety</h2>
		<table border="1">
		<tr>{{ range copyNumbers . }}<th>{{ .Variety }}</th>{{ end }}</tr>
		<tr>{{ range copyNumbers . }}<td bgcolor="{{ .Fill }}">{{ .Copies }}</td>{{ end }}</tr>
		</table>
	{{end}}`

	funcMap := template.FuncMap{
		"copyNumbers": CopyNumbers,
		"varietyCount": func(members []db.Member) int {
			seen := make(map[string]struct{})
			for _, m := range members {
				seen[m.Variety] = struct{}{}
			}
			return len(seen)
		},
	}

	cluster_page_template = template.New("cluster_page").Funcs(funcMap)
	cluster_page_template = template.Must(cluster_page_template.Parse(mainTmpl))
	cluster_page_template = template.Must(cluster_page_template.Parse(clusterSummaryTempl))
	cluster_page_template = template.Must(cluster_page_template.Parse(clusterInfoTmpl))
	cluster_page_template = template.Must(cluster_page_template.Parse(copyNumbersTmpl))
}

// Gene copy number colour scale, the last entry is used for 5 copies or more.
var copyNumberScale = []string{"#CCCCCC", "#FFFFB2", "#FECC5C", "#FD8D3C", "#F03B20", "#BD0026"}

type VarietyCopies struct {
	Variety string
	Copies  int
	Fill    string
}

// CopyNumbers counts the members of each variety, in order of first appearance.
func CopyNumbers(members []db.Member) []VarietyCopies {
	var ret []VarietyCopies
	index := make(map[string]int)
	for _, m := range members {
		i, ok := index[m.Variety]
		if !ok {
			i = len(ret)
			index[m.Variety] = i
			ret = append(ret, VarietyCopies{Variety: m.Variety})
		}
		ret[i].Copies++
	}
	for i := range ret {
		ret[i].Fill = copyNumberScale[min(ret[i].Copies, len(copyNumberScale)-1)]
	}
	return ret
}

// Function to render an HTML page with a table
func RenderClusterPage(w io.Writer, page *ClusterPage) error {
	logger.Info("Rendering cluster page on", zap.String("cluster-id", page.Cluster.Name))
	return cluster_page_template.Execute(w, page)
}
