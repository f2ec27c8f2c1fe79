package grouping

import (
	"context"

	"github.com/galvezuma/BrachyUMA21/logger"
	"github.com/galvezuma/BrachyUMA21/pkg/model"
	"go.uber.org/zap"
)

// GroupAgainstReference gives every sequenced gene of the first variety its
// own group and then moves every gene of the other varieties into the group
// of its best scoring reference gene.
func (gr *Grouper) GroupAgainstReference(ctx context.Context, varieties []*model.Variety) error {
	if len(varieties) == 0 {
		return ErrNoVarieties
	}
	ref := varieties[0]

	var anchors []*model.Gene
	for _, g := range ref.Genes {
		if !g.HasSequence() {
			g.Color = model.ColorSequenceMissing
			continue
		}
		g.Color = gr.cfg.Palette.At(len(anchors))
		g.RefCode = gr.referenceCode(len(anchors), g)
		anchors = append(anchors, g)
	}
	logger.Info("Reference groups assigned",
		zap.String("variety", ref.Name),
		zap.Int("groups", len(anchors)))

	for _, v := range varieties[1:] {
		for _, g := range v.Genes {
			if !g.HasSequence() {
				g.Color = model.ColorSequenceMissing
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			best, ok := gr.bestMatch(g, anchors)
			if !ok {
				logger.Warn("No reference gene could be scored", zap.String("variety", v.Name), zap.String("gene", g.Name))
				continue
			}
			g.Color = best.Color
			g.RefCode = best.RefCode
			if g.ChrNumber() == model.UnknownChromosome {
				placeLike(g, v, best, ref)
			}
		}
	}
	return nil
}

func (gr *Grouper) referenceCode(i int, g *model.Gene) string {
	if i < len(gr.cfg.ReferenceCodes) {
		return gr.cfg.ReferenceCodes[i]
	}
	return g.Name
}

// bestMatch returns the candidate with the strictly highest score; the first
// one submitted wins a tie.
func (gr *Grouper) bestMatch(g *model.Gene, candidates []*model.Gene) (*model.Gene, bool) {
	results := gr.scoreAll(g, candidates)
	if len(results) == 0 {
		return nil, false
	}
	best := results[0]
	for _, m := range results[1:] {
		if m.score > best.score {
			best = m
		}
	}
	return best.gene, true
}

// placeLike moves a gene of unknown location to the chromosome of its
// reference match, scaling the position by the chromosome lengths.
func placeLike(g *model.Gene, v *model.Variety, match *model.Gene, ref *model.Variety) {
	chr := match.ChrNumber()
	if chr == model.UnknownChromosome {
		return
	}
	refLen := ref.ChromosomeLength(chr)
	if refLen <= 0 {
		logger.Warn("Reference chromosome length unknown, position left at 0",
			zap.String("variety", ref.Name), zap.Int("chromosome", chr))
	}
	g.Chr = match.Chr
	g.Position = EstimatePosition(match.Position, refLen, v.ChromosomeLength(chr))
	g.Shape = model.ShapeCircle
	logger.Debug("Gene placed from reference",
		zap.String("gene", g.Name),
		zap.String("chr", g.Chr),
		zap.Int("position", g.Position))
}

// EstimatePosition scales a reference position to a chromosome of another
// length, rounding down. An unknown reference length yields 0.
func EstimatePosition(refPosition, refLength, length int) int {
	if refLength <= 0 {
		return 0
	}
	return int(int64(refPosition) * int64(length) / int64(refLength))
}
