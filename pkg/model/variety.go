package model

import (
	"fmt"
	"sort"
)

// Variety is one genome assembly (ecotype). Genes keep the order they were
// loaded in; that order is significant for the grouping.
type Variety struct {
	Name       string
	Genes      []*Gene
	ChrLength  [NumChromosomes]int
	Background string
}

func NewVariety(name string, capacity int, background string) *Variety {
	return &Variety{
		Name:       name,
		Genes:      make([]*Gene, 0, capacity),
		Background: background,
	}
}

// FilterGenes keeps the genes for which keep returns true, preserving order.
func (v *Variety) FilterGenes(keep func(*Gene) bool) {
	kept := v.Genes[:0]
	for _, g := range v.Genes {
		if keep(g) {
			kept = append(kept, g)
		}
	}
	for i := len(kept); i < len(v.Genes); i++ {
		v.Genes[i] = nil
	}
	v.Genes = kept
}

// RemoveGenesWithoutProtein drops genes with no protein and returns how many went.
func (v *Variety) RemoveGenesWithoutProtein() int {
	before := len(v.Genes)
	v.FilterGenes((*Gene).HasSequence)
	return before - len(v.Genes)
}

// MarkMissingSequences colours genes without protein as sequence-missing.
func (v *Variety) MarkMissingSequences() int {
	n := 0
	for _, g := range v.Genes {
		if !g.HasSequence() {
			g.Color = ColorSequenceMissing
			n++
		}
	}
	return n
}

// GenesOnChromosome returns the genes of chromosome chr ordered by position.
func (v *Variety) GenesOnChromosome(chr int) []*Gene {
	var ret []*Gene
	for _, g := range v.Genes {
		if g.ChrNumber() == chr {
			ret = append(ret, g)
		}
	}
	sort.SliceStable(ret, func(i, j int) bool { return ret[i].Less(ret[j]) })
	return ret
}

func (v *Variety) HasColorOnChromosome(c Color, chr int) bool {
	for _, g := range v.Genes {
		if g.ChrNumber() == chr && g.Color == c {
			return true
		}
	}
	return false
}

// ChromosomeLength returns the physical length of chromosome chr, 0 if unknown.
func (v *Variety) ChromosomeLength(chr int) int {
	if chr < 1 || chr > NumChromosomes {
		return 0
	}
	return v.ChrLength[chr-1]
}

func (v *Variety) SetChromosomeLength(chr, length int) error {
	if chr < 1 || chr > NumChromosomes {
		return fmt.Errorf("chromosome %d out of range 1..%d", chr, NumChromosomes)
	}
	if length < 0 {
		return fmt.Errorf("negative length %d for chromosome %d", length, chr)
	}
	v.ChrLength[chr-1] = length
	return nil
}

func (v *Variety) CountUnknown() int {
	n := 0
	for _, g := range v.Genes {
		if g.ChrNumber() == UnknownChromosome {
			n++
		}
	}
	return n
}

// Gene looks a gene up by name.
func (v *Variety) Gene(name string) *Gene {
	for _, g := range v.Genes {
		if g.Name == name {
			return g
		}
	}
	return nil
}
