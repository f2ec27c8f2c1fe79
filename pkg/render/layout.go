package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/galvezuma/BrachyUMA21/pkg/grouping"
	"github.com/galvezuma/BrachyUMA21/pkg/model"
)

const (
	GeneHeight = 20
	// one pixel per this many base pairs of the reference chromosome
	basesPerPixel = 100_000
	numBars       = 4
	barHeight     = 15
	barWidth      = 18
)

// Physical chromosome lengths of Bd21, used to size every column alike.
var ReferenceChromosomeLengths = [model.NumChromosomes]int{74834646, 59328898, 59892396, 48648102, 28648102}

// Info fields shown in the gene tooltip, by position in the annotation line.
var tooltipFields = []struct {
	index int
	label string
}{
	{0, "Gene"},
	{2, "Position"},
	{7, "PFAM"},
	{8, "PANTHER"},
	{9, "KOG"},
	{12, "GO"},
	{15, "Descr."},
	{18, "AT def."},
	{21, "OS def."},
	{22, "% similrty."},
}

// Glyph is one gene drawn in a chromosome cell.
type Glyph struct {
	Name    string
	Shape   model.Shape
	Fill    string
	Tooltip string
	X, Y    int
	Size    int
	CX, CY  int
	R       int
	Points  string
}

type ChromosomeCell struct {
	Background string
	Width      int
	Height     int
	Glyphs     []Glyph
}

type ChromosomeRow struct {
	Label string
	Cells []ChromosomeCell
}

type SummaryCell struct {
	Unknown int
	Total   int
}

type Bar struct {
	Count int
	X, Y  int
	Width int
}

type DistributionCell struct {
	Bars []Bar
}

type ClusterLink struct {
	Name  string
	Color string
	Size  int
}

type Report struct {
	Title        string
	Titles       []string
	Rows         []ChromosomeRow
	Summary      []SummaryCell
	Distribution []DistributionCell
	Clusters     []ClusterLink
	Residual     int
	Legend       []LegendEntry
}

type LegendEntry struct {
	Glyph Glyph
	Label string
}

var legend = []struct {
	shape model.Shape
	label string
}{
	{model.ShapeRect, "Annotated as PF00257"},
	{model.ShapeTriangle, "Only similar to dehydrins of other species"},
	{model.ShapeDiamond, "Manually found"},
	{model.ShapeCircle, "Belongs to an unknown chromosome"},
}

// BuildReport lays out the coloured chromosomes of every variety. titles
// label the columns; missing titles fall back to the variety name.
func BuildReport(title string, varieties []*model.Variety, titles []string, clusters *grouping.Clusters) *Report {
	r := &Report{Title: title}

	for i, v := range varieties {
		if i < len(titles) && titles[i] != "" {
			r.Titles = append(r.Titles, titles[i])
		} else {
			r.Titles = append(r.Titles, v.Name)
		}
	}

	for _, chr := range model.Chromosomes() {
		row := ChromosomeRow{Label: fmt.Sprintf("chr%d", chr)}
		for _, v := range varieties {
			row.Cells = append(row.Cells, chromosomeCell(v, chr))
		}
		r.Rows = append(r.Rows, row)
	}

	for _, v := range varieties {
		r.Summary = append(r.Summary, SummaryCell{Unknown: v.CountUnknown(), Total: len(v.Genes)})
	}
	r.Distribution = distribution(varieties)

	if clusters != nil {
		for _, c := range clusters.Clusters {
			r.Clusters = append(r.Clusters, ClusterLink{Name: c.Name, Color: string(c.Color), Size: len(c.Genes)})
		}
		r.Residual = len(clusters.Residual)
	}

	for _, l := range legend {
		r.Legend = append(r.Legend, LegendEntry{
			Glyph: glyph(&model.Gene{Shape: l.shape, Color: "#FFFFFF"}, 2),
			Label: l.label,
		})
	}
	return r
}

func chromosomeCell(v *model.Variety, chr int) ChromosomeCell {
	ref_len := ReferenceChromosomeLengths[chr-1]
	scale := 1.0
	if l := v.ChromosomeLength(chr); l > 0 {
		scale = float64(ref_len) / float64(l)
	}

	cell := ChromosomeCell{
		Background: v.Background,
		Width:      GeneHeight + 4,
		Height:     ref_len/basesPerPixel + GeneHeight + 30,
	}

	lastY := -1
	for _, g := range v.GenesOnChromosome(chr) {
		posY := int(scale*float64(g.Position)/basesPerPixel + 5)
		// genes never overlap, later ones are pushed down
		if posY < lastY {
			posY = lastY
		}
		lastY = posY + GeneHeight
		cell.Glyphs = append(cell.Glyphs, glyph(g, posY))
	}
	if lastY+GeneHeight > cell.Height {
		cell.Height = lastY + GeneHeight
	}
	return cell
}

func glyph(g *model.Gene, posY int) Glyph {
	half := GeneHeight / 2
	gl := Glyph{
		Name:    g.Name,
		Shape:   g.Shape,
		Fill:    string(g.DisplayColor()),
		Tooltip: tooltip(g),
		X:       2,
		Y:       posY,
		Size:    GeneHeight,
		CX:      2 + half,
		CY:      posY + half,
		R:       half,
	}
	switch g.Shape {
	case model.ShapeRect, model.ShapeCircle:
	case model.ShapeDiamond:
		gl.Points = fmt.Sprintf("12,%d %d,%d 12,%d %d,%d",
			posY, 12+half, posY+half, posY+GeneHeight, 12-half, posY+half)
	default:
		gl.Shape = model.ShapeTriangle
		gl.Points = fmt.Sprintf("12,%d %d,%d %d,%d",
			posY, 12+half, posY+GeneHeight, 12-half, posY+GeneHeight)
	}
	return gl
}

func tooltip(g *model.Gene) string {
	if g.Info == "" && g.Chr == "" {
		return ""
	}
	lines := []string{"Chr.: " + g.Chr}
	pieces := g.InfoFields()
	for _, f := range tooltipFields {
		if f.index < len(pieces) {
			lines = append(lines, f.label+": "+pieces[f.index])
		}
	}
	if g.RefCode != "" {
		lines = append(lines, "Group: "+g.RefCode)
	}
	return strings.Join(lines, "\n")
}

// distribution bins protein lengths in numBars bins between the shortest and
// longest reference protein, plus one bin below and one above.
func distribution(varieties []*model.Variety) []DistributionCell {
	if len(varieties) == 0 || len(varieties[0].Genes) == 0 {
		return nil
	}

	sizes := lengths(varieties[0])
	first := sizes[0]
	last := sizes[len(sizes)-1] + 1

	counts := make([][]int, len(varieties))
	scale := 1
	for i, v := range varieties {
		counts[i] = binLengths(lengths(v), first, last)
		for _, c := range counts[i] {
			scale = max(scale, c)
		}
	}

	cells := make([]DistributionCell, len(varieties))
	for i, bins := range counts {
		for j, n := range bins {
			w := n * barWidth / scale
			cells[i].Bars = append(cells[i].Bars, Bar{
				Count: n,
				X:     barWidth + 1 - w,
				Y:     76 - barHeight*j,
				Width: w,
			})
		}
	}
	return cells
}

func lengths(v *model.Variety) []int {
	ret := make([]int, 0, len(v.Genes))
	for _, g := range v.Genes {
		ret = append(ret, len(g.Protein))
	}
	sort.Ints(ret)
	return ret
}

// binLengths returns numBars+2 counts: below first, the numBars bins of
// [first, last), and at or above last.
func binLengths(sizes []int, first, last int) []int {
	bins := make([]int, numBars+2)
	for _, s := range sizes {
		switch {
		case s < first:
			bins[0]++
		case s >= last:
			bins[numBars+1]++
		default:
			for i := 0; i < numBars; i++ {
				start := first + i*(last-first)/numBars
				end := first + (i+1)*(last-first)/numBars
				if s >= start && s < end {
					bins[i+1]++
					break
				}
			}
		}
	}
	return bins
}
