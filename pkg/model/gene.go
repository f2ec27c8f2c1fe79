// Genes and varieties of the ecotype collection.

package model

import (
	"strings"
)

const (
	NumChromosomes    = 5
	UnknownChromosome = -1
)

// Chromosomes lists the chromosome numbers in processing order.
func Chromosomes() []int {
	return []int{1, 2, 3, 4, 5}
}

// Shape is how a gene is drawn.
type Shape string

const (
	ShapeRect     Shape = "RECT"     // annotated as PF00257, chromosome known
	ShapeTriangle Shape = "TRIANGLE" // only matched the keyword
	ShapeCircle   Shape = "CIRCLE"   // unknown location
	ShapeDiamond  Shape = "DIAMOND"  // manually curated
)

type Gene struct {
	Name       string
	Chr        string
	Position   int
	Info       string
	Color      Color
	Shape      Shape
	Protein    string
	Nucleotide string
	GFF3       string
	RefCode    string // reference gene whose group was adopted
}

func NewGene(name string, position int, chr, gff3 string) *Gene {
	return &Gene{
		Name:     name,
		Position: position,
		Chr:      chr,
		GFF3:     gff3,
	}
}

// ChromosomeNumber parses the first run of digits in label. Numbers outside
// 1..NumChromosomes, and labels without digits, are UnknownChromosome.
func ChromosomeNumber(label string) int {
	ret := 0
	seen := false
	for i := 0; i < len(label); i++ {
		c := label[i]
		if c >= '0' && c <= '9' {
			seen = true
			if ret <= 100 {
				ret = ret*10 + int(c-'0')
			}
		} else if seen {
			break
		}
	}
	if ret < 1 || ret > NumChromosomes {
		return UnknownChromosome
	}
	return ret
}

func (g *Gene) ChrNumber() int {
	return ChromosomeNumber(g.Chr)
}

func (g *Gene) HasSequence() bool {
	return g.Protein != ""
}

// DisplayColor is the fill used when drawing, DarkRed for ungrouped genes.
func (g *Gene) DisplayColor() Color {
	if g.Color == ColorUnset {
		return ColorBasic
	}
	return g.Color
}

func (g *Gene) AppendInfo(field string) {
	g.Info += "\t" + field
}

func (g *Gene) InfoFields() []string {
	return strings.Split(g.Info, "\t")
}

// Less orders genes by chromosome label, then start position.
func (g *Gene) Less(o *Gene) bool {
	if g.Chr != o.Chr {
		return g.Chr < o.Chr
	}
	return g.Position < o.Position
}

const fastaLineLength = 80

// Fasta renders the nucleotide sequence with the GFF3 entry in the header.
func (g *Gene) Fasta() string {
	var b strings.Builder
	b.WriteString(">")
	b.WriteString(g.Name)
	b.WriteString("\t")
	b.WriteString(g.GFF3)
	b.WriteString("\n")
	writeWrapped(&b, g.Nucleotide)
	return b.String()
}

func (g *Gene) ProteinFasta() string {
	var b strings.Builder
	b.WriteString(">")
	b.WriteString(g.Name)
	b.WriteString("\n")
	writeWrapped(&b, g.Protein)
	return b.String()
}

func writeWrapped(b *strings.Builder, seq string) {
	for len(seq) > 0 {
		n := min(fastaLineLength, len(seq))
		b.WriteString(seq[:n])
		b.WriteString("\n")
		seq = seq[n:]
	}
}
