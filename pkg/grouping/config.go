// Package grouping assigns ortholog groups ("colours") to the genes of several
// varieties using pairwise alignment scores.
//
// The steps run in this order: reference-model grouping over the whole gene
// set, then per chromosome a refinement pass followed by the reconciliation
// of genes with unknown location, and finally a clustering of whatever is left.
package grouping

import (
	"fmt"

	"github.com/galvezuma/BrachyUMA21/pkg/align"
	"github.com/galvezuma/BrachyUMA21/pkg/model"
)

const (
	DefaultThreshold      = 0.95
	DefaultWorkers        = 8
	DefaultMinClusterSize = 3
)

type Config struct {
	// Palette hands out group identifiers in order.
	Palette model.Palette
	// Threshold is the relative score (score / self score) a candidate must
	// strictly exceed to join a group.
	Threshold float64
	// Workers bounds the alignments running at once in a batch.
	Workers int
	// Aligner scores query against target. Defaults to align.Default().
	Aligner align.Aligner
	// MinClusterSize is the smallest residual cluster that gets emitted.
	MinClusterSize int
	// ReferenceModel enables grouping every gene against the first variety.
	ReferenceModel bool
	// AnchorAllVarieties lets genes of non-reference varieties anchor new
	// groups during refinement once the reference is exhausted.
	AnchorAllVarieties bool
	// ReferenceCodes labels reference genes in storage order. Genes past
	// the end of the list are labelled with their own name.
	ReferenceCodes []string
}

func DefaultConfig() Config {
	return Config{
		Palette:        model.DefaultPalette(),
		Threshold:      DefaultThreshold,
		Workers:        DefaultWorkers,
		Aligner:        align.Default(),
		MinClusterSize: DefaultMinClusterSize,
		ReferenceModel: true,
	}
}

func (c Config) validate() error {
	if len(c.Palette) == 0 {
		return fmt.Errorf("palette is empty")
	}
	for _, col := range c.Palette {
		if col.IsUnset() || col.IsMissing() {
			return fmt.Errorf("palette contains reserved colour %q", col)
		}
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be in (0, 1], got %v", c.Threshold)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.MinClusterSize < 1 {
		return fmt.Errorf("minimum cluster size must be at least 1, got %d", c.MinClusterSize)
	}
	if c.Aligner == nil {
		return fmt.Errorf("no aligner configured")
	}
	return nil
}
