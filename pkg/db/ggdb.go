package db

import (
	"context"
	"path"

	"github.com/galvezuma/BrachyUMA21/internal/util"
)

const (
	StoreFile   = "results.db"
	SequenceDir = "clusters"
)

// OutputDB bundles the stores that live in an output folder.
type OutputDB struct {
	Dir   string
	Store *ResultStore
	SeqDB *SequenceDB
}

// OpenOutputDB opens (creating as needed) the result store and the cluster
// FASTA folder under dir.
func OpenOutputDB(ctx context.Context, dir string) (*OutputDB, error) {
	if err := util.EnsureDir(dir); err != nil {
		return nil, err
	}
	seqdb, err := CreateSequenceDB(path.Join(dir, SequenceDir))
	if err != nil {
		return nil, err
	}
	store, err := OpenResultStore(ctx, path.Join(dir, StoreFile))
	if err != nil {
		return nil, err
	}
	return &OutputDB{Dir: dir, Store: store, SeqDB: seqdb}, nil
}

func (o *OutputDB) Close() error {
	return o.Store.Close()
}
