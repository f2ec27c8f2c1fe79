package db

import (
	"errors"
	"path"
	"strings"
	"testing"

	"github.com/galvezuma/BrachyUMA21/pkg/grouping"
)

func TestNewSequenceDBMissingFolder(t *testing.T) {
	_, err := NewSequenceDB(path.Join(t.TempDir(), "nope"))
	if !errors.Is(err, SequenceNotExists) {
		t.Errorf("expected SequenceNotExists, got %v", err)
	}
}

func TestWriteAndGetClusterSequence(t *testing.T) {
	sdb, err := CreateSequenceDB(path.Join(t.TempDir(), "clusters"))
	if err != nil {
		t.Fatal(err)
	}

	_, res := groupedSample()
	res.Clusters.Clusters[0].Genes[0].Nucleotide = strings.Repeat("ACGT", 30)
	res.Clusters.Clusters[0].Genes[0].GFF3 = "Bd1\tphytozome\tgene\t10\t130"
	if err := sdb.WriteClusters(res.Clusters); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		cluster   string
		is_prot   bool
		firstLine string
	}{
		{"Nucleotide", "Cluster_001", false, ">A\tBd1\tphytozome\tgene\t10\t130"},
		{"Protein", "Cluster_001", true, ">A"},
		{"Residual", grouping.ResidualName, true, ">R"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := sdb.GetClusterSequence(tt.cluster, tt.is_prot)
			if err != nil {
				t.Fatal(err)
			}
			lines := strings.Split(string(seq), "\n")
			if lines[0] != tt.firstLine {
				t.Errorf("first line %q, want %q", lines[0], tt.firstLine)
			}
		})
	}

	seq, _ := sdb.GetClusterSequence("Cluster_001", false)
	if got := strings.Count(string(seq), ">"); got != 3 {
		t.Errorf("got %d records, want 3", got)
	}
	if lines := strings.Split(string(seq), "\n"); len(lines[1]) != 80 || len(lines[2]) != 40 {
		t.Errorf("sequence not wrapped at 80: %q", lines[1:3])
	}
}

func TestGetClusterSequenceErrors(t *testing.T) {
	sdb, err := CreateSequenceDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := sdb.WriteClusters(&grouping.Clusters{}); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"Cluster_002", "../results.db", "Cluster_1"} {
		if _, err := sdb.GetClusterSequence(id, false); !errors.Is(err, ErrClusterNotFound) {
			t.Errorf("%q: expected ErrClusterNotFound, got %v", id, err)
		}
	}

	var nse *NoSequenceError
	if _, err := sdb.GetClusterSequence(grouping.ResidualName, true); !errors.As(err, &nse) {
		t.Errorf("empty residual should be a NoSequenceError, got %v", err)
	}
}
