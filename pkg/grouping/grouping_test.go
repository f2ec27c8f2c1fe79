package grouping

import (
	"context"
	"hash/fnv"
	"testing"
	"time"

	"github.com/galvezuma/BrachyUMA21/logger"
	"github.com/galvezuma/BrachyUMA21/pkg/align"
	"github.com/galvezuma/BrachyUMA21/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// scores maps (query, target) protein pairs to a score. Self alignments
// default to 100 and everything else to 0.
type scores map[[2]string]int

func (s scores) set(a, b string, score int) scores {
	s[[2]string{a, b}] = score
	s[[2]string{b, a}] = score
	return s
}

func (s scores) aligner() align.Aligner {
	return align.Func(func(q, t string) int {
		if v, ok := s[[2]string{q, t}]; ok {
			return v
		}
		if q == t {
			return 100
		}
		return 0
	})
}

func gene(name, chr string, pos int, protein string) *model.Gene {
	g := model.NewGene(name, pos, chr, "")
	g.Info = name + "\t" + chr
	g.Protein = protein
	g.Shape = model.ShapeRect
	return g
}

func variety(name string, genes ...*model.Gene) *model.Variety {
	v := model.NewVariety(name, len(genes), "")
	v.Genes = append(v.Genes, genes...)
	for chr := 1; chr <= model.NumChromosomes; chr++ {
		_ = v.SetChromosomeLength(chr, 1000)
	}
	return v
}

func newGrouper(t *testing.T, s scores, mutate ...func(*Config)) *Grouper {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Aligner = s.aligner()
	for _, m := range mutate {
		m(&cfg)
	}
	gr, err := New(cfg)
	require.NoError(t, err)
	return gr
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"EmptyPalette", func(c *Config) { c.Palette = nil }},
		{"ReservedColour", func(c *Config) { c.Palette = model.Palette{model.ColorSequenceMissing} }},
		{"ZeroThreshold", func(c *Config) { c.Threshold = 0 }},
		{"ThresholdAboveOne", func(c *Config) { c.Threshold = 1.5 }},
		{"NoWorkers", func(c *Config) { c.Workers = 0 }},
		{"NoMinClusterSize", func(c *Config) { c.MinClusterSize = 0 }},
		{"NoAligner", func(c *Config) { c.Aligner = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.Error(t, err)
		})
	}

	_, err := New(DefaultConfig())
	assert.NoError(t, err)
}

func TestGroupAgainstReferencePicksBestMatch(t *testing.T) {
	a := gene("A", "Bd1", 10, "AAA")
	b := gene("B", "Bd1", 20, "BBB")
	c := gene("C", "Bd2", 30, "CCC")
	x := gene("X", "Bd1", 25, "XXX")

	s := scores{}.set("XXX", "AAA", 10).set("XXX", "BBB", 99).set("XXX", "CCC", 20)
	gr := newGrouper(t, s)

	err := gr.GroupAgainstReference(context.Background(), []*model.Variety{
		variety("Bd21", a, b, c),
		variety("Bd3-1", x),
	})
	require.NoError(t, err)

	assert.Equal(t, b.Color, x.Color)
	assert.Equal(t, "B", x.RefCode)
	assert.Equal(t, "Bd1", x.Chr)
	assert.Equal(t, 25, x.Position)
}

func TestReferenceColoursAreDistinct(t *testing.T) {
	ref := variety("Bd21",
		gene("R1", "Bd1", 1, "R1"),
		gene("R2", "Bd1", 2, ""),
		gene("R3", "Bd2", 3, "R3"),
		gene("R4", "Bd3", 4, "R4"),
	)
	gr := newGrouper(t, scores{}, func(c *Config) {
		c.ReferenceCodes = []string{"Bdhn10", "Bdhn3"}
	})
	require.NoError(t, gr.GroupAgainstReference(context.Background(), []*model.Variety{ref}))

	seen := map[model.Color]bool{}
	for _, g := range ref.Genes {
		if !g.HasSequence() {
			assert.Equal(t, model.ColorSequenceMissing, g.Color)
			continue
		}
		assert.False(t, g.Color.IsUnset())
		assert.False(t, seen[g.Color], "colour %s repeated", g.Color)
		seen[g.Color] = true
	}
	assert.Len(t, seen, 3)

	// empty genes consume neither a colour nor a code
	assert.Equal(t, model.DefaultPalette().At(1), ref.Gene("R3").Color)
	assert.Equal(t, "Bdhn3", ref.Gene("R3").RefCode)
	assert.Equal(t, "R4", ref.Gene("R4").RefCode)
}

func TestGroupAgainstReferenceIsIdempotent(t *testing.T) {
	build := func() []*model.Variety {
		return []*model.Variety{
			variety("Bd21", gene("A", "Bd1", 10, "AAA"), gene("B", "Bd2", 20, "BBB")),
			variety("Bd3-1", gene("X", "Bd1", 10, "XXX"), gene("Y", "scaffold", 5, "YYY")),
		}
	}
	s := scores{}.set("XXX", "BBB", 60).set("YYY", "AAA", 70)
	gr := newGrouper(t, s)

	varieties := build()
	require.NoError(t, gr.GroupAgainstReference(context.Background(), varieties))
	first := colours(varieties)

	require.NoError(t, gr.GroupAgainstReference(context.Background(), varieties))
	assert.Equal(t, first, colours(varieties))
}

func TestUnknownLocationIsEstimated(t *testing.T) {
	assert.Equal(t, 60, EstimatePosition(30, 100, 200))
	assert.Equal(t, 0, EstimatePosition(30, 0, 200))
	assert.Equal(t, 3, EstimatePosition(10, 3, 1))

	ref := variety("Bd21", gene("B", "Bd1", 30, "BBB"))
	other := variety("Bd3-1", gene("X", "contig_77", 5, "XXX"))
	require.NoError(t, ref.SetChromosomeLength(1, 100))
	require.NoError(t, other.SetChromosomeLength(1, 200))

	gr := newGrouper(t, scores{}.set("XXX", "BBB", 50))
	require.NoError(t, gr.GroupAgainstReference(context.Background(), []*model.Variety{ref, other}))

	x := other.Gene("X")
	assert.Equal(t, "Bd1", x.Chr)
	assert.Equal(t, 60, x.Position)
	assert.Equal(t, model.ShapeCircle, x.Shape)
	assert.Equal(t, ref.Gene("B").Color, x.Color)
}

func TestUnknownReferenceChromosomeIsNotAdopted(t *testing.T) {
	ref := variety("Bd21", gene("B", "scaffold", 30, "BBB"))
	other := variety("Bd3-1", gene("X", "contig_77", 5, "XXX"))

	gr := newGrouper(t, scores{}.set("XXX", "BBB", 50))
	require.NoError(t, gr.GroupAgainstReference(context.Background(), []*model.Variety{ref, other}))

	x := other.Gene("X")
	assert.Equal(t, "contig_77", x.Chr)
	assert.Equal(t, 5, x.Position)
	assert.Equal(t, ref.Gene("B").Color, x.Color)
}

func TestThresholdIsStrict(t *testing.T) {
	tests := []struct {
		name    string
		self    int
		score   int
		grouped bool
	}{
		{"Equal", 20, 19, false},
		{"JustAbove", 10000000, 9500001, true},
		{"Below", 100, 90, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			anchor := gene("R", "Bd1", 1, "RRR")
			cand := gene("P", "Bd1", 1, "PPP")
			s := scores{}.set("RRR", "PPP", tt.score)
			s[[2]string{"RRR", "RRR"}] = tt.self

			gr := newGrouper(t, s, func(c *Config) { c.ReferenceModel = false })
			report, err := gr.RefineChromosome(context.Background(), 1, []*model.Variety{
				variety("Bd21", anchor),
				variety("Bd3-1", cand),
			})
			require.NoError(t, err)

			assert.Equal(t, 1, report.Anchors)
			assert.Equal(t, tt.grouped, cand.Color == anchor.Color)
			if tt.grouped {
				assert.Equal(t, 1, report.Grouped)
				assert.Len(t, cand.InfoFields(), 3)
			} else {
				assert.True(t, cand.Color.IsUnset())
			}
		})
	}
}

func TestRefineChromosomeSkipsTakenColours(t *testing.T) {
	palette := model.DefaultPalette()
	taken := gene("T", "Bd1", 1, "TTT")
	taken.Color = palette.At(0)
	fresh := gene("F", "Bd1", 2, "FFF")
	elsewhere := gene("E", "Bd2", 1, "EEE")

	gr := newGrouper(t, scores{})
	report, err := gr.RefineChromosome(context.Background(), 1, []*model.Variety{
		variety("Bd21", taken, fresh, elsewhere),
	})
	require.NoError(t, err)

	assert.Equal(t, palette.At(1), fresh.Color)
	assert.True(t, elsewhere.Color.IsUnset())
	assert.Equal(t, 2, report.Genes["Bd21"])
}

func TestRefineChromosomeLogsSummary(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	defer logger.Replace(zap.New(core))()

	gr := newGrouper(t, scores{}.set("AAA", "XXX", 99))
	_, err := gr.RefineChromosome(context.Background(), 1, []*model.Variety{
		variety("Bd21", gene("A", "Bd1", 1, "AAA")),
		variety("Bd3-1", gene("X", "Bd1", 1, "XXX")),
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("Chromosome refined").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(1), fields["chromosome"])
	assert.Equal(t, int64(1), fields["anchors"])
	assert.Equal(t, int64(1), fields["grouped"])
}

func TestAnchorAllVarieties(t *testing.T) {
	build := func() []*model.Variety {
		return []*model.Variety{
			variety("Bd21", gene("R", "Bd1", 1, "RRR")),
			variety("Bd3-1", gene("P", "Bd1", 1, "PPP"), gene("Q", "Bd1", 2, "QQQ")),
			variety("Koz-1", gene("K", "Bd1", 1, "KKK")),
		}
	}
	s := scores{}.set("QQQ", "KKK", 99)

	referenceOnly := build()
	gr := newGrouper(t, s, func(c *Config) { c.ReferenceModel = false })
	_, err := gr.RefineChromosome(context.Background(), 1, referenceOnly)
	require.NoError(t, err)
	assert.True(t, referenceOnly[1].Gene("Q").Color.IsUnset())

	all := build()
	gr = newGrouper(t, s, func(c *Config) {
		c.ReferenceModel = false
		c.AnchorAllVarieties = true
	})
	report, err := gr.RefineChromosome(context.Background(), 1, all)
	require.NoError(t, err)

	q, k := all[1].Gene("Q"), all[2].Gene("K")
	assert.False(t, q.Color.IsUnset())
	assert.Equal(t, q.Color, k.Color)
	assert.NotEqual(t, all[0].Gene("R").Color, all[1].Gene("P").Color)
	assert.Equal(t, 3, report.Anchors)
}

func TestReconcileUnknown(t *testing.T) {
	color := model.DefaultPalette().At(0)
	other := model.DefaultPalette().At(1)

	a := gene("A", "Bd1", 100, "AAA")
	a.Color = color
	u := gene("U", "contig_77", 5, "UUU")
	v := gene("V", "scaffold", 6, "VVV")
	v.Color = other
	w := gene("W", "scaffold", 7, "WWW")
	b := gene("B", "Bd1", 90, "BBB")
	b.Color = color

	s := scores{}.set("AAA", "UUU", 97).set("AAA", "VVV", 99).set("AAA", "WWW", 99)
	gr := newGrouper(t, s)

	n, err := gr.ReconcileUnknown(context.Background(), 1, []*model.Variety{
		variety("Bd21", a),
		variety("Bd3-1", u, v),
		variety("Koz-1", b, w),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, color, u.Color)
	assert.Equal(t, "1", u.Chr)
	assert.Equal(t, 0, u.Position)
	assert.Equal(t, model.ShapeCircle, u.Shape)
	assert.Equal(t, "0.97", u.InfoFields()[2])

	// already grouped, and a variety that has the colour on chr1
	assert.Equal(t, other, v.Color)
	assert.True(t, w.Color.IsUnset())
	assert.Equal(t, "scaffold", w.Chr)
}

func TestClusterResidual(t *testing.T) {
	s := scores{}.
		set("SSS", "TT1", 98).
		set("SSS", "TT2", 96).
		set("SSS", "ZZZ", 40)
	gr := newGrouper(t, s)

	varieties := []*model.Variety{
		variety("Bd21", gene("S", "scaffold", 1, "SSS"), gene("T1", "scaffold", 2, "TT1")),
		variety("Bd3-1", gene("T2", "contig_77", 1, "TT2"), gene("Z", "contig_78", 1, "ZZZ")),
	}
	clusters, err := gr.ClusterResidual(context.Background(), varieties)
	require.NoError(t, err)

	require.Len(t, clusters.Clusters, 1)
	c := clusters.Clusters[0]
	assert.Equal(t, "Cluster_001", c.Name)
	assert.Equal(t, []string{"S", "T1", "T2"}, names(c.Genes))
	assert.Equal(t, model.UnknownChromosome, c.Chromosome)
	for _, g := range c.Genes {
		assert.Equal(t, c.Color, g.Color)
	}

	assert.Equal(t, []string{"Z"}, names(clusters.Residual))
	assert.NotEqual(t, c.Color, varieties[1].Gene("Z").Color)
	assert.Same(t, c, clusters.Cluster("Cluster_001"))
	assert.Nil(t, clusters.Cluster("Cluster_002"))
}

func TestClusterResidualByColour(t *testing.T) {
	palette := model.DefaultPalette()
	coloured := func(name, chr string, c model.Color) *model.Gene {
		g := gene(name, chr, 1, name)
		g.Color = c
		return g
	}

	varieties := []*model.Variety{
		variety("Bd21",
			coloured("A1", "Bd1", palette.At(0)),
			coloured("B1", "Bd2", palette.At(1)),
			coloured("M1", "Bd1", model.ColorSequenceMissing),
		),
		variety("Bd3-1",
			coloured("A2", "Bd1", palette.At(0)),
			coloured("B2", "Bd2", palette.At(1)),
			coloured("O1", "scaffold", palette.At(2)),
		),
		variety("Koz-1",
			coloured("A3", "1", palette.At(0)),
		),
	}

	gr := newGrouper(t, scores{})
	clusters, err := gr.ClusterResidual(context.Background(), varieties)
	require.NoError(t, err)

	require.Len(t, clusters.Clusters, 1)
	assert.Equal(t, []string{"A1", "A2", "A3"}, names(clusters.Clusters[0].Genes))
	assert.Equal(t, 1, clusters.Clusters[0].Chromosome)
	assert.ElementsMatch(t, []string{"B1", "B2", "M1", "O1"}, names(clusters.Residual))
	assert.Equal(t, model.ColorSequenceMissing, varieties[0].Gene("M1").Color)
	assert.Equal(t, palette.At(2), varieties[1].Gene("O1").Color)
}

func TestFailedAlignmentIsLoggedAndSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	defer logger.Replace(zap.New(core))()

	a := gene("A", "Bd1", 1, "AAA")
	b := gene("B", "Bd1", 2, "BBB")
	x := gene("X", "Bd1", 3, "XXX")

	s := scores{}.set("XXX", "AAA", 99).set("XXX", "BBB", 50)
	cfg := DefaultConfig()
	cfg.Aligner = align.Func(func(q, t string) int {
		if q == "XXX" && t == "AAA" {
			panic("alignment blew up")
		}
		return s.aligner().Score(q, t)
	})
	gr, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, gr.GroupAgainstReference(context.Background(), []*model.Variety{
		variety("Bd21", a, b),
		variety("Bd3-1", x),
	}))

	assert.Equal(t, b.Color, x.Color)
	assert.Equal(t, 1, logs.FilterMessage("Alignment failed, candidate skipped").Len())
}

func TestDeterministicAcrossWorkerCounts(t *testing.T) {
	build := func() []*model.Variety {
		return []*model.Variety{
			variety("Bd21",
				gene("A", "Bd1", 10, "AAA"),
				gene("B", "Bd1", 20, "BBB"),
				gene("C", "Bd2", 30, "CCC"),
			),
			variety("Bd3-1",
				gene("X", "Bd1", 10, "XXX"),
				gene("Y", "contig_77", 20, "YYY"),
				gene("E", "Bd2", 1, ""),
			),
			variety("Koz-1",
				gene("Z", "Bd2", 10, "ZZZ"),
				gene("W", "scaffold", 1, "WWW"),
				gene("V", "scaffold", 2, "VVV"),
			),
		}
	}
	// X ties between A and B, Y ties between B and C
	s := scores{}.
		set("XXX", "AAA", 50).set("XXX", "BBB", 50).
		set("YYY", "BBB", 70).set("YYY", "CCC", 70).
		set("ZZZ", "CCC", 80).
		set("WWW", "VVV", 99)

	// sleeping a hash-dependent amount shuffles completion order
	jittered := align.Func(func(q, t string) int {
		h := fnv.New32a()
		_, _ = h.Write([]byte(q + t))
		time.Sleep(time.Duration(h.Sum32()%3) * time.Millisecond)
		return s.aligner().Score(q, t)
	})

	run := func(workers int) map[string]model.Color {
		cfg := DefaultConfig()
		cfg.Aligner = jittered
		cfg.Workers = workers
		gr, err := New(cfg)
		require.NoError(t, err)

		varieties := build()
		_, err = gr.Run(context.Background(), varieties)
		require.NoError(t, err)
		return colours(varieties)
	}

	sequential := run(1)
	assert.Equal(t, sequential, run(8))
	assert.Equal(t, sequential["A"], sequential["X"])
	assert.Equal(t, sequential["B"], sequential["Y"])
	assert.Equal(t, model.ColorSequenceMissing, sequential["E"])
}

func TestRunWithDefaultAligner(t *testing.T) {
	const (
		dhnA = "MEHQGQHGHVTSRVDEYGNPVGTGAGHGQMGTAGMGTHGTTGGMGTHGTTGTGGGQFQPMREEHKTGGVLQRSGSSSSSSSEDDGMGGRRKKGIKEKIKEKLPGGNKGEQQHAMGGTGTGTGAHGAEDGRGD"
		dhnB = "MAEYGQEQRNTDEYGNPVRGGQDRGGTAGGMGQLPSGGHGEKKGLLEKIKEKLPGHHGHDQQSHGTGGAGYGTTGGLGEKKGIMDKIKEKLPGGHGQHGTGEMGAHGTAEKKGLMEKIKEKLPGGHH"
	)
	mutate := func(s string, i int) string {
		b := []byte(s)
		b[i] = 'W'
		return string(b)
	}

	ref := variety("Bd21", gene("BdDHN1", "Bd1", 100, dhnA), gene("BdDHN2", "Bd2", 400, dhnB))
	other := variety("Bd3-1",
		gene("X1", "Bd1", 110, mutate(dhnA, 5)),
		gene("X2", "scaffold_12", 3, mutate(dhnB, 10)),
		gene("X3", "Bd3", 7, ""),
	)
	third := variety("Koz-1", gene("K1", "Bd2", 390, mutate(dhnB, 20)))
	require.NoError(t, ref.SetChromosomeLength(2, 1000))
	require.NoError(t, other.SetChromosomeLength(2, 2000))

	gr, err := New(DefaultConfig())
	require.NoError(t, err)
	res, err := gr.Run(context.Background(), []*model.Variety{ref, other, third})
	require.NoError(t, err)

	assert.Equal(t, ref.Gene("BdDHN1").Color, other.Gene("X1").Color)
	assert.Equal(t, ref.Gene("BdDHN2").Color, other.Gene("X2").Color)
	assert.Equal(t, ref.Gene("BdDHN2").Color, third.Gene("K1").Color)
	assert.NotEqual(t, ref.Gene("BdDHN1").Color, ref.Gene("BdDHN2").Color)
	assert.Equal(t, model.ColorSequenceMissing, other.Gene("X3").Color)

	x2 := other.Gene("X2")
	assert.Equal(t, "Bd2", x2.Chr)
	assert.Equal(t, 800, x2.Position)

	require.Len(t, res.Reports, model.NumChromosomes)
	assert.Equal(t, 3, res.Reports[1].Total())
	require.Len(t, res.Clusters.Clusters, 1)
	assert.Equal(t, []string{"BdDHN2", "X2", "K1"}, names(res.Clusters.Clusters[0].Genes))
	assert.ElementsMatch(t, []string{"BdDHN1", "X1", "X3"}, names(res.Clusters.Residual))
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gr := newGrouper(t, scores{})
	_, err := gr.Run(ctx, []*model.Variety{
		variety("Bd21", gene("A", "Bd1", 1, "AAA")),
		variety("Bd3-1", gene("X", "Bd1", 1, "XXX")),
	})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = gr.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoVarieties)
}

func colours(varieties []*model.Variety) map[string]model.Color {
	ret := map[string]model.Color{}
	for _, v := range varieties {
		for _, g := range v.Genes {
			ret[g.Name] = g.Color
		}
	}
	return ret
}

func names(genes []*model.Gene) []string {
	ret := make([]string, len(genes))
	for i, g := range genes {
		ret[i] = g.Name
	}
	return ret
}
