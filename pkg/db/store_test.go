package db

import (
	"context"
	"testing"

	"github.com/galvezuma/BrachyUMA21/pkg/grouping"
	"github.com/galvezuma/BrachyUMA21/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupedSample() ([]*model.Variety, *grouping.Result) {
	a := &model.Gene{Name: "A", Chr: "Bd1", Position: 10, Protein: "MKV", Color: "#66FFFF", Shape: model.ShapeRect, RefCode: "Bdhn10", Info: "A\tBd1\t10"}
	b := &model.Gene{Name: "B", Chr: "Bd1", Position: 12, Protein: "MKVL", Color: "#66FFFF", Shape: model.ShapeRect, RefCode: "Bdhn10"}
	c := &model.Gene{Name: "C", Chr: "1", Position: 0, Protein: "MK", Color: "#66FFFF", Shape: model.ShapeCircle, RefCode: "Bdhn10"}
	r := &model.Gene{Name: "R", Chr: "scaffold", Position: 5, Color: model.ColorSequenceMissing}

	v1 := model.NewVariety("Bd21", 2, "rgb(1,2,3)")
	v1.Genes = append(v1.Genes, a, r)
	v2 := model.NewVariety("Bd3-1", 1, DefaultBackground)
	v2.Genes = append(v2.Genes, b)
	v3 := model.NewVariety("Koz-1", 1, DefaultBackground)
	v3.Genes = append(v3.Genes, c)

	res := &grouping.Result{Clusters: &grouping.Clusters{
		Clusters: []*grouping.Cluster{{Name: "Cluster_001", Chromosome: 1, Color: "#66FFFF", Genes: []*model.Gene{a, b, c}}},
		Residual: []*model.Gene{r},
	}}
	return []*model.Variety{v1, v2, v3}, res
}

func openMemoryStore(t *testing.T) *ResultStore {
	t.Helper()
	store, err := OpenResultStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestResultStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	_, err := store.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrNoRun)

	varieties, res := groupedSample()
	run_id, err := store.SaveRun(ctx, varieties, res, 0.95)
	require.NoError(t, err)
	require.NotEmpty(t, run_id)

	run, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run_id, run.ID)
	assert.Equal(t, 3, run.Varieties)
	assert.Equal(t, 1, run.Clusters)
	assert.InDelta(t, 0.95, run.Threshold, 1e-9)

	clusters, err := store.ListClusters(ctx, run_id)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, ClusterSummary{Name: "Cluster_001", Chromosome: 1, Color: "#66FFFF", Size: 3}, clusters[0])

	members, err := store.ClusterMembers(ctx, run_id, "Cluster_001")
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "Bd21", members[0].Variety)
	assert.Equal(t, "A", members[0].Gene)
	assert.Equal(t, "Bdhn10", members[0].RefCode)
	assert.Equal(t, 3, members[0].Length)
	assert.Equal(t, "A\tBd1\t10", members[0].Info)
	assert.Equal(t, "Koz-1", members[2].Variety)
	assert.Equal(t, "CIRCLE", members[2].Shape)

	residual, err := store.ClusterMembers(ctx, run_id, grouping.ResidualName)
	require.NoError(t, err)
	require.Len(t, residual, 1)
	assert.Equal(t, string(model.ColorSequenceMissing), residual[0].Color)

	_, err = store.ClusterMembers(ctx, run_id, "Cluster_999")
	assert.ErrorIs(t, err, ErrClusterNotFound)
}

func TestResultStoreLatestRun(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)
	varieties, res := groupedSample()

	first, err := store.SaveRun(ctx, varieties, res, 0.95)
	require.NoError(t, err)
	second, err := store.SaveRun(ctx, varieties, res, 0.9)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	run, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, run.ID)

	// runs are kept apart
	clusters, err := store.ListClusters(ctx, first)
	require.NoError(t, err)
	assert.Len(t, clusters, 1)
}

func TestSaveRunWithoutClusters(t *testing.T) {
	store := openMemoryStore(t)
	_, err := store.SaveRun(context.Background(), nil, &grouping.Result{}, 0.95)
	assert.Error(t, err)
}
