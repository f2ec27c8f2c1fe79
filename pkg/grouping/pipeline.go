package grouping

import (
	"context"

	"github.com/galvezuma/BrachyUMA21/logger"
	"github.com/galvezuma/BrachyUMA21/pkg/model"
	"go.uber.org/zap"
)

type Result struct {
	Reports  []ChromosomeReport
	Clusters *Clusters
}

// Run executes every grouping step over varieties, the first of which is the
// reference. The context is checked between alignment batches.
func (gr *Grouper) Run(ctx context.Context, varieties []*model.Variety) (*Result, error) {
	if len(varieties) == 0 {
		return nil, ErrNoVarieties
	}

	for _, v := range varieties {
		if n := v.MarkMissingSequences(); n > 0 {
			logger.Info("Genes without protein sequence", zap.String("variety", v.Name), zap.Int("genes", n))
		}
	}

	if gr.cfg.ReferenceModel {
		if err := gr.GroupAgainstReference(ctx, varieties); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	for _, chr := range model.Chromosomes() {
		report, err := gr.RefineChromosome(ctx, chr, varieties)
		if err != nil {
			return nil, err
		}
		if report.Reconciled, err = gr.ReconcileUnknown(ctx, chr, varieties); err != nil {
			return nil, err
		}
		for _, v := range varieties {
			report.Genes[v.Name] = len(v.GenesOnChromosome(chr))
		}
		logger.Info("Chromosome processed",
			zap.Int("chromosome", chr),
			zap.Int("anchors", report.Anchors),
			zap.Int("grouped", report.Grouped),
			zap.Int("reconciled", report.Reconciled),
			zap.Int("genes", report.Total()))
		res.Reports = append(res.Reports, report)
	}

	clusters, err := gr.ClusterResidual(ctx, varieties)
	if err != nil {
		return nil, err
	}
	res.Clusters = clusters
	return res, nil
}
