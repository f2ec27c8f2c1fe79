package grouping

import (
	"context"

	"github.com/galvezuma/BrachyUMA21/logger"
	"github.com/galvezuma/BrachyUMA21/pkg/model"
	"go.uber.org/zap"
)

// ChromosomeReport summarises what refinement and reconciliation did on one
// chromosome.
type ChromosomeReport struct {
	Chromosome int
	Anchors    int // genes that opened a new group
	Grouped    int // genes that joined an anchor
	Reconciled int // unknown-location genes moved onto the chromosome
	// Genes counts the genes on the chromosome per variety name.
	Genes map[string]int
}

func (r ChromosomeReport) Total() int {
	n := 0
	for _, c := range r.Genes {
		n += c
	}
	return n
}

// RefineChromosome opens a group for every ungrouped gene of the reference on
// chromosome chr and pulls in the ungrouped genes of the other varieties on
// the same chromosome that score above the threshold.
func (gr *Grouper) RefineChromosome(ctx context.Context, chr int, varieties []*model.Variety) (ChromosomeReport, error) {
	report := ChromosomeReport{Chromosome: chr}
	if len(varieties) == 0 {
		return report, ErrNoVarieties
	}

	models := varieties[:1]
	if gr.cfg.AnchorAllVarieties {
		models = varieties
	}
	inUse := colorOnChromosome(varieties, chr)
	cursor := 0

	for _, vModel := range models {
		for _, anchor := range vModel.Genes {
			if anchor.ChrNumber() != chr || !anchor.Color.IsUnset() {
				continue
			}
			if !anchor.HasSequence() {
				anchor.Color = model.ColorSequenceMissing
				continue
			}
			if err := ctx.Err(); err != nil {
				return report, err
			}

			optimal, ok := gr.selfScore(anchor)
			if !ok {
				continue
			}
			color := gr.nextColor(&cursor, inUse)
			anchor.Color = color
			report.Anchors++

			var candidates []*model.Gene
			for _, v := range varieties {
				if v == vModel {
					continue
				}
				for _, g := range v.Genes {
					if g.ChrNumber() == chr && g.Color.IsUnset() && g.HasSequence() {
						candidates = append(candidates, g)
					}
				}
			}

			for _, m := range gr.scoreAll(anchor, candidates) {
				ratio, ok := gr.above(m.score, optimal)
				if !ok {
					continue
				}
				m.gene.Color = color
				m.gene.AppendInfo(formatRatio(ratio))
				report.Grouped++
			}
		}
	}

	report.Genes = make(map[string]int, len(varieties))
	for _, v := range varieties {
		report.Genes[v.Name] = len(v.GenesOnChromosome(chr))
	}
	logger.Debug("Chromosome refined",
		zap.Int("chromosome", chr),
		zap.Int("anchors", report.Anchors),
		zap.Int("grouped", report.Grouped))
	return report, nil
}
