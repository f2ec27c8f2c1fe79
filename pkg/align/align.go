// Package align scores pairs of protein sequences with a global alignment
// and affine gap costs.
package align

import (
	"fmt"
	"math"
)

// Gap costs used when comparing dehydrins.
const (
	DefaultGapOpen   = -11
	DefaultGapExtend = -1
)

// negInf leaves room for adding penalties without wrapping around.
const negInf = math.MinInt32 / 2

// Aligner computes a similarity score for query against target.
// Implementations must be safe for concurrent use.
type Aligner interface {
	Score(query, target string) int
}

// Func adapts a plain function to the Aligner interface.
type Func func(query, target string) int

func (f Func) Score(query, target string) int {
	return f(query, target)
}

// NeedlemanWunsch is a Gotoh global aligner. A gap of length k costs
// GapOpen + (k-1)*GapExtend; both penalties are negative.
type NeedlemanWunsch struct {
	Matrix    *Matrix
	GapOpen   int
	GapExtend int
}

// Default returns the aligner used for the grouping: BLOSUM62, -11/-1.
func Default() *NeedlemanWunsch {
	return &NeedlemanWunsch{
		Matrix:    BLOSUM62,
		GapOpen:   DefaultGapOpen,
		GapExtend: DefaultGapExtend,
	}
}

// New validates the penalties and returns an aligner.
func New(matrix *Matrix, gapOpen, gapExtend int) (*NeedlemanWunsch, error) {
	if matrix == nil {
		return nil, fmt.Errorf("nil substitution matrix")
	}
	if gapOpen > 0 || gapExtend > 0 {
		return nil, fmt.Errorf("gap penalties must be <= 0, got open=%d extend=%d", gapOpen, gapExtend)
	}
	return &NeedlemanWunsch{Matrix: matrix, GapOpen: gapOpen, GapExtend: gapExtend}, nil
}

func (nw *NeedlemanWunsch) gapCost(length int) int {
	if length <= 0 {
		return 0
	}
	return nw.GapOpen + (length-1)*nw.GapExtend
}

// Score returns the optimal global alignment score of query against target.
// Only two rows are kept, so memory is linear in len(target).
func (nw *NeedlemanWunsch) Score(query, target string) int {
	m, n := len(query), len(target)
	switch {
	case m == 0 && n == 0:
		return 0
	case m == 0:
		return nw.gapCost(n)
	case n == 0:
		return nw.gapCost(m)
	}

	q := nw.Matrix.encode(query)
	t := nw.Matrix.encode(target)
	scores := nw.Matrix.Scores
	open, extend := nw.GapOpen, nw.GapExtend

	// h[j] holds H(i-1, j) until overwritten with H(i, j).
	// f[j] holds the best score ending with a gap in target at column j.
	h := make([]int, n+1)
	f := make([]int, n+1)
	for j := 1; j <= n; j++ {
		h[j] = nw.gapCost(j)
		f[j] = negInf
	}

	for i := 1; i <= m; i++ {
		row := scores[q[i-1]]
		diag := h[0]
		h[0] = nw.gapCost(i)
		e := negInf

		for j := 1; j <= n; j++ {
			f[j] = max(f[j]+extend, h[j]+open)
			e = max(e+extend, h[j-1]+open)

			best := diag + row[t[j-1]]
			diag = h[j]
			h[j] = max(best, e, f[j])
		}
	}

	return h[n]
}
