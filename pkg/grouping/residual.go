package grouping

import (
	"context"
	"fmt"

	"github.com/galvezuma/BrachyUMA21/logger"
	"github.com/galvezuma/BrachyUMA21/pkg/model"
	"go.uber.org/zap"
)

// ResidualName is the export name of the genes left outside every cluster.
const ResidualName = "Resto"

type Cluster struct {
	Name       string
	Chromosome int
	Color      model.Color
	Genes      []*model.Gene
}

type Clusters struct {
	Clusters []*Cluster
	Residual []*model.Gene
}

// Cluster looks a cluster up by name.
func (cs *Clusters) Cluster(name string) *Cluster {
	for _, c := range cs.Clusters {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (cs *Clusters) emit(chr int, color model.Color, genes []*model.Gene, minSize int) {
	if len(genes) < minSize {
		cs.Residual = append(cs.Residual, genes...)
		return
	}
	cs.Clusters = append(cs.Clusters, &Cluster{
		Name:       fmt.Sprintf("Cluster_%03d", len(cs.Clusters)+1),
		Chromosome: chr,
		Color:      color,
		Genes:      genes,
	})
}

// ClusterResidual collects the final groups. Genes sharing a colour on a
// chromosome form a cluster first; the genes that are still ungrouped are
// then clustered among themselves by score against a seed gene. Groups
// smaller than the minimum size end up in the residual bucket.
func (gr *Grouper) ClusterResidual(ctx context.Context, varieties []*model.Variety) (*Clusters, error) {
	out := &Clusters{}
	taken := make(map[*model.Gene]bool)

	for _, chr := range model.Chromosomes() {
		for _, v := range varieties {
			for _, g := range v.Genes {
				if taken[g] || g.ChrNumber() != chr || g.Color.IsUnset() || g.Color.IsMissing() {
					continue
				}
				var members []*model.Gene
				for _, v2 := range varieties {
					for _, g2 := range v2.Genes {
						if !taken[g2] && g2.ChrNumber() == chr && g2.Color == g.Color {
							taken[g2] = true
							members = append(members, g2)
						}
					}
				}
				out.emit(chr, g.Color, members, gr.cfg.MinClusterSize)
			}
		}
	}
	logger.Debug("Chromosome clusters collected", zap.Int("clusters", len(out.Clusters)))

	carried := make(map[model.Color]bool)
	var pool []*model.Gene
	for _, v := range varieties {
		for _, g := range v.Genes {
			carried[g.Color] = true
			if taken[g] {
				continue
			}
			if !g.Color.IsUnset() || !g.HasSequence() {
				out.Residual = append(out.Residual, g)
				continue
			}
			pool = append(pool, g)
		}
	}

	cursor := 0
	for i, seed := range pool {
		if !seed.Color.IsUnset() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		color := gr.nextColor(&cursor, func(c model.Color) bool { return carried[c] })
		carried[color] = true
		seed.Color = color
		members := []*model.Gene{seed}

		if optimal, ok := gr.selfScore(seed); ok {
			var candidates []*model.Gene
			for _, g := range pool[i+1:] {
				if g.Color.IsUnset() {
					candidates = append(candidates, g)
				}
			}
			for _, m := range gr.scoreAll(seed, candidates) {
				if _, ok := gr.above(m.score, optimal); ok {
					m.gene.Color = color
					members = append(members, m.gene)
				}
			}
		}
		out.emit(seed.ChrNumber(), color, members, gr.cfg.MinClusterSize)
	}

	logger.Info("Residual clustering finished",
		zap.Int("clusters", len(out.Clusters)),
		zap.Int("residual", len(out.Residual)))
	return out, nil
}
