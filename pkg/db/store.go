package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/galvezuma/BrachyUMA21/pkg/grouping"
	"github.com/galvezuma/BrachyUMA21/pkg/model"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

var ErrNoRun = errors.New("no grouping run stored")

// Fixed width so that created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Run struct {
	ID        string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Threshold float64   `json:"threshold"`
	Varieties int       `json:"varieties"`
	Clusters  int       `json:"clusters"`
}

type ClusterSummary struct {
	Name       string `json:"cluster_id"`
	Chromosome int    `json:"chromosome"`
	Color      string `json:"color"`
	Size       int    `json:"size"`
}

type Member struct {
	Variety  string `json:"variety"`
	Gene     string `json:"gene"`
	Chr      string `json:"chr"`
	Position int    `json:"position"`
	Color    string `json:"color"`
	Shape    string `json:"shape"`
	RefCode  string `json:"ref_code"`
	Info     string `json:"info"`
	Length   int    `json:"protein_length"`
}

// ResultStore keeps the outcome of grouping runs in SQLite.
type ResultStore struct {
	db *sql.DB
}

// OpenResultStore opens (or creates) the SQLite file at path and makes sure
// the schema exists. ":memory:" gives a private in-memory store.
func OpenResultStore(ctx context.Context, path string) (*ResultStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a second connection would see a different in-memory database
	db.SetMaxOpenConns(1)

	store := NewResultStore(db)
	if err := store.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init result store %s: %w", path, err)
	}
	return store, nil
}

func NewResultStore(db *sql.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	threshold  REAL NOT NULL,
	varieties  INTEGER NOT NULL,
	clusters   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS varieties (
	run_id     TEXT NOT NULL REFERENCES runs(run_id),
	position   INTEGER NOT NULL,
	name       TEXT NOT NULL,
	background TEXT NOT NULL,
	PRIMARY KEY (run_id, name)
);
CREATE TABLE IF NOT EXISTS genes (
	run_id         TEXT NOT NULL REFERENCES runs(run_id),
	variety        TEXT NOT NULL,
	gene_id        TEXT NOT NULL,
	chr            TEXT NOT NULL,
	position       INTEGER NOT NULL,
	color          TEXT NOT NULL,
	shape          TEXT NOT NULL,
	ref_code       TEXT NOT NULL,
	info           TEXT NOT NULL,
	protein_length INTEGER NOT NULL,
	PRIMARY KEY (run_id, variety, gene_id)
);
CREATE TABLE IF NOT EXISTS clusters (
	run_id     TEXT NOT NULL REFERENCES runs(run_id),
	cluster_id TEXT NOT NULL,
	chromosome INTEGER NOT NULL,
	color      TEXT NOT NULL,
	size       INTEGER NOT NULL,
	PRIMARY KEY (run_id, cluster_id)
);
CREATE TABLE IF NOT EXISTS cluster_members (
	run_id     TEXT NOT NULL,
	cluster_id TEXT NOT NULL,
	variety    TEXT NOT NULL,
	gene_id    TEXT NOT NULL,
	ordinal    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS cluster_members_idx ON cluster_members (run_id, cluster_id);
`

func (s *ResultStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveRun stores every gene and cluster of a finished run and returns the new
// run id. The residual genes are stored as members of grouping.ResidualName.
func (s *ResultStore) SaveRun(ctx context.Context, varieties []*model.Variety, res *grouping.Result, threshold float64) (string, error) {
	if res == nil || res.Clusters == nil {
		return "", fmt.Errorf("save run: no clusters to store")
	}
	run_id := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, created_at, threshold, varieties, clusters) VALUES (?, ?, ?, ?, ?)`,
		run_id, time.Now().UTC().Format(timeLayout), threshold, len(varieties), len(res.Clusters.Clusters),
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	owner := make(map[*model.Gene]string)

	variety_stm, err := tx.PrepareContext(ctx, `INSERT INTO varieties (run_id, position, name, background) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer variety_stm.Close()

	gene_stm, err := tx.PrepareContext(ctx, `
		INSERT INTO genes (run_id, variety, gene_id, chr, position, color, shape, ref_code, info, protein_length)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer gene_stm.Close()

	for pos, v := range varieties {
		if _, err := variety_stm.ExecContext(ctx, run_id, pos, v.Name, v.Background); err != nil {
			return "", fmt.Errorf("insert variety %s: %w", v.Name, err)
		}
		for _, g := range v.Genes {
			owner[g] = v.Name
			if _, err := gene_stm.ExecContext(ctx, run_id, v.Name, g.Name, g.Chr, g.Position,
				string(g.Color), string(g.Shape), g.RefCode, g.Info, len(g.Protein)); err != nil {
				return "", fmt.Errorf("insert gene %s/%s: %w", v.Name, g.Name, err)
			}
		}
	}

	cluster_stm, err := tx.PrepareContext(ctx, `INSERT INTO clusters (run_id, cluster_id, chromosome, color, size) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer cluster_stm.Close()

	member_stm, err := tx.PrepareContext(ctx, `INSERT INTO cluster_members (run_id, cluster_id, variety, gene_id, ordinal) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer member_stm.Close()

	addMembers := func(cluster_id string, genes []*model.Gene) error {
		for ordinal, g := range genes {
			if _, err := member_stm.ExecContext(ctx, run_id, cluster_id, owner[g], g.Name, ordinal); err != nil {
				return fmt.Errorf("insert member %s of %s: %w", g.Name, cluster_id, err)
			}
		}
		return nil
	}

	for _, c := range res.Clusters.Clusters {
		if _, err := cluster_stm.ExecContext(ctx, run_id, c.Name, c.Chromosome, string(c.Color), len(c.Genes)); err != nil {
			return "", fmt.Errorf("insert cluster %s: %w", c.Name, err)
		}
		if err := addMembers(c.Name, c.Genes); err != nil {
			return "", err
		}
	}
	if err := addMembers(grouping.ResidualName, res.Clusters.Residual); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return run_id, nil
}

// LatestRun returns the most recently stored run, or ErrNoRun.
func (s *ResultStore) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, created_at, threshold, varieties, clusters
		FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`)

	var r Run
	var created string
	if err := row.Scan(&r.ID, &created, &r.Threshold, &r.Varieties, &r.Clusters); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRun
		}
		return nil, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("run %s: bad timestamp: %w", r.ID, err)
	}
	r.CreatedAt = t
	return &r, nil
}

func (s *ResultStore) ListClusters(ctx context.Context, run_id string) ([]ClusterSummary, error) {
	stm, err := s.db.PrepareContext(ctx, `
		SELECT cluster_id, chromosome, color, size
		FROM clusters
		WHERE run_id = ?
		ORDER BY cluster_id`)
	if err != nil {
		return nil, err
	}
	defer stm.Close()

	rows, err := stm.QueryContext(ctx, run_id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clusters := make([]ClusterSummary, 0, 16)
	for rows.Next() {
		var c ClusterSummary
		if err := rows.Scan(&c.Name, &c.Chromosome, &c.Color, &c.Size); err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}
	return clusters, rows.Err()
}

// ClusterMembers returns the genes of a cluster (or of the residual group) in
// the order they were grouped. Unknown clusters give ErrClusterNotFound.
func (s *ResultStore) ClusterMembers(ctx context.Context, run_id, cluster_id string) ([]Member, error) {
	stm, err := s.db.PrepareContext(ctx, `
		SELECT g.variety, g.gene_id, g.chr, g.position, g.color, g.shape, g.ref_code, g.info, g.protein_length
		FROM cluster_members cm
		JOIN genes g ON g.run_id = cm.run_id AND g.variety = cm.variety AND g.gene_id = cm.gene_id
		WHERE cm.run_id = ? AND cm.cluster_id = ?
		ORDER BY cm.ordinal`)
	if err != nil {
		return nil, err
	}
	defer stm.Close()

	rows, err := stm.QueryContext(ctx, run_id, cluster_id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.Variety, &m.Gene, &m.Chr, &m.Position, &m.Color, &m.Shape, &m.RefCode, &m.Info, &m.Length); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrClusterNotFound, cluster_id)
	}
	return members, nil
}
