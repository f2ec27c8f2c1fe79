package grouping

import (
	"context"
	"strconv"

	"github.com/galvezuma/BrachyUMA21/logger"
	"github.com/galvezuma/BrachyUMA21/pkg/model"
	"go.uber.org/zap"
)

// ReconcileUnknown attaches genes whose chromosome is unknown to the groups
// present on chromosome chr. For every group, the first gene carrying it is
// aligned against the unplaced, ungrouped genes of each variety that has no
// member of that group on chr yet. It returns how many genes were moved.
func (gr *Grouper) ReconcileUnknown(ctx context.Context, chr int, varieties []*model.Variety) (int, error) {
	used := make(map[model.Color]bool)
	label := strconv.Itoa(chr)
	reconciled := 0

	for _, vModel := range varieties {
		for _, anchor := range vModel.Genes {
			if anchor.ChrNumber() != chr || anchor.Color.IsUnset() || anchor.Color.IsMissing() || used[anchor.Color] {
				continue
			}
			used[anchor.Color] = true
			if err := ctx.Err(); err != nil {
				return reconciled, err
			}

			optimal, ok := gr.selfScore(anchor)
			if !ok {
				continue
			}
			logger.Debug("Reconciling group",
				zap.Int("chromosome", chr),
				zap.String("color", string(anchor.Color)),
				zap.Float64("self_score", optimal))

			var candidates []*model.Gene
			for _, v := range varieties {
				if v.HasColorOnChromosome(anchor.Color, chr) {
					continue
				}
				for _, g := range v.Genes {
					if g.ChrNumber() == model.UnknownChromosome && g.Color.IsUnset() && g.HasSequence() {
						candidates = append(candidates, g)
					}
				}
			}

			for _, m := range gr.scoreAll(anchor, candidates) {
				ratio, ok := gr.above(m.score, optimal)
				if !ok {
					continue
				}
				g := m.gene
				g.Color = anchor.Color
				g.Chr = label
				g.Position = 0
				g.Shape = model.ShapeCircle
				g.AppendInfo(formatRatio(ratio))
				reconciled++
				logger.Debug("Unknown location gene reconciled",
					zap.String("gene", g.Name),
					zap.String("anchor", anchor.Name))
			}
		}
	}
	return reconciled, nil
}
