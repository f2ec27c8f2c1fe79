package grouping

import (
	"errors"
	"strconv"

	"github.com/galvezuma/BrachyUMA21/logger"
	"github.com/galvezuma/BrachyUMA21/pkg/model"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

var ErrNoVarieties = errors.New("no varieties to group")

// Grouper runs the grouping steps with one configuration. Genes are only
// mutated by the goroutine calling its methods, never by the alignment
// workers, so a Grouper must not be used on the same varieties concurrently.
type Grouper struct {
	cfg Config
}

func New(cfg Config) (*Grouper, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Grouper{cfg: cfg}, nil
}

// match is the score of one query against one candidate gene.
type match struct {
	gene  *model.Gene
	score int
	err   error
}

// scoreAll aligns query against every candidate with at most cfg.Workers
// alignments in flight. Results come back in candidate order; failed
// alignments are logged and dropped.
func (gr *Grouper) scoreAll(query *model.Gene, candidates []*model.Gene) []match {
	if len(candidates) == 0 {
		return nil
	}

	seq := query.Protein
	aligner := gr.cfg.Aligner
	p := pool.NewWithResults[match]().WithMaxGoroutines(gr.cfg.Workers)

	for _, c := range candidates {
		target := c.Protein
		p.Go(func() match {
			m := match{gene: c}
			recovered := panics.Try(func() {
				m.score = aligner.Score(seq, target)
			})
			if recovered != nil {
				m.err = recovered.AsError()
			}
			return m
		})
	}

	results := p.Wait()
	ok := results[:0]
	for _, m := range results {
		if m.err != nil {
			logger.Warn("Alignment failed, candidate skipped",
				zap.String("query", query.Name),
				zap.String("candidate", m.gene.Name),
				zap.Error(m.err))
			continue
		}
		ok = append(ok, m)
	}
	return ok
}

// selfScore is the normalisation denominator for relative scores. Genes whose
// self alignment is not positive cannot anchor a group.
func (gr *Grouper) selfScore(g *model.Gene) (float64, bool) {
	var score int
	recovered := panics.Try(func() {
		score = gr.cfg.Aligner.Score(g.Protein, g.Protein)
	})
	if recovered != nil {
		logger.Warn("Self alignment failed", zap.String("gene", g.Name), zap.Error(recovered.AsError()))
		return 0, false
	}
	if score <= 0 {
		logger.Warn("Non positive self score, gene cannot anchor a group",
			zap.String("gene", g.Name), zap.Int("score", score))
		return 0, false
	}
	return float64(score), true
}

func (gr *Grouper) above(score int, optimal float64) (float64, bool) {
	ratio := float64(score) / optimal
	return ratio, ratio > gr.cfg.Threshold
}

// nextColor advances cursor to the first palette entry not in use.
func (gr *Grouper) nextColor(cursor *int, inUse func(model.Color) bool) model.Color {
	for {
		c := gr.cfg.Palette.At(*cursor)
		*cursor++
		if !inUse(c) {
			return c
		}
	}
}

func formatRatio(ratio float64) string {
	return strconv.FormatFloat(ratio, 'g', -1, 64)
}

func colorOnChromosome(varieties []*model.Variety, chr int) func(model.Color) bool {
	return func(c model.Color) bool {
		for _, v := range varieties {
			if v.HasColorOnChromosome(c, chr) {
				return true
			}
		}
		return false
	}
}
