package db

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"

	"github.com/galvezuma/BrachyUMA21/internal/util"
	"github.com/galvezuma/BrachyUMA21/pkg/grouping"
	"github.com/galvezuma/BrachyUMA21/pkg/model"
)

// Defining possible error
var (
	SequenceNotExists  = errors.New("sequence folder does not exist")
	ErrClusterNotFound = errors.New("cluster not found")
)

type NoSequenceError struct {
	Msg string // additional context for the error
}

func (e *NoSequenceError) Error() string {
	return fmt.Sprintf("Sequence error: %s", e.Msg)
}

var clusterName = regexp.MustCompile(`^Cluster_[0-9]{3,}$`)

// Folder holding one nucleotide (.fna) and one protein (.faa) FASTA file per
// cluster, plus the residual genes.
type SequenceDB struct {
	Dir string
}

func NewSequenceDB(dir string) (*SequenceDB, error) {
	if !util.DirExists(dir) {
		return nil, fmt.Errorf("%w: %s", SequenceNotExists, dir)
	}
	return &SequenceDB{Dir: dir}, nil
}

// CreateSequenceDB makes the folder if needed.
func CreateSequenceDB(dir string) (*SequenceDB, error) {
	if err := util.EnsureDir(dir); err != nil {
		return nil, err
	}
	return &SequenceDB{Dir: dir}, nil
}

func (seqdb *SequenceDB) clusterFile(cluster_id string, is_prot bool) string {
	ext := ".fna"
	if is_prot {
		ext = ".faa"
	}
	return path.Join(seqdb.Dir, cluster_id+ext)
}

// WriteClusters exports every cluster and the residual genes as FASTA.
func (seqdb *SequenceDB) WriteClusters(clusters *grouping.Clusters) error {
	for _, c := range clusters.Clusters {
		if err := seqdb.writeGroup(c.Name, c.Genes); err != nil {
			return err
		}
	}
	return seqdb.writeGroup(grouping.ResidualName, clusters.Residual)
}

func (seqdb *SequenceDB) writeGroup(cluster_id string, genes []*model.Gene) error {
	if err := writeFasta(seqdb.clusterFile(cluster_id, false), genes, (*model.Gene).Fasta); err != nil {
		return fmt.Errorf("export %s: %w", cluster_id, err)
	}
	if err := writeFasta(seqdb.clusterFile(cluster_id, true), genes, (*model.Gene).ProteinFasta); err != nil {
		return fmt.Errorf("export %s: %w", cluster_id, err)
	}
	return nil
}

func writeFasta(file string, genes []*model.Gene, format func(*model.Gene) string) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, g := range genes {
		if _, err := w.WriteString(format(g)); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// GetClusterSequence returns the FASTA export of a cluster.
func (seqdb *SequenceDB) GetClusterSequence(cluster_id string, is_prot bool) ([]byte, error) {
	if cluster_id != grouping.ResidualName && !clusterName.MatchString(cluster_id) {
		return nil, fmt.Errorf("%w: %q", ErrClusterNotFound, cluster_id)
	}

	output, err := os.ReadFile(seqdb.clusterFile(cluster_id, is_prot))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrClusterNotFound, cluster_id)
	}
	if err != nil {
		return nil, err
	}
	if len(output) == 0 {
		return nil, &NoSequenceError{Msg: "no genes in " + cluster_id}
	}
	return output, nil
}
