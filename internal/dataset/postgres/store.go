// Package postgres provides a Postgres-backed dataset store, for
// deployments that keep the decision dataset in a shared database instead
// of a local file.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pmercier/upc-harvester/internal/dataset"
	"github.com/pmercier/upc-harvester/internal/harvest"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for the dataset.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	Policy          dataset.DedupPolicy
}

// pool is the subset of pgxpool.Pool the store needs; pgxmock implements it
// for tests.
type pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Store persists the dataset in a Postgres table. Persist replaces the
// table contents in one transaction, the relational equivalent of the file
// store's replace-on-write.
type Store struct {
	pool   pool
	table  string
	policy dataset.DedupPolicy
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dataset.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewWithPool(p, cfg.Table, cfg.Policy)
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing).
func NewWithPool(p pool, table string, policy dataset.DedupPolicy) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "decisions"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if policy == "" {
		policy = dataset.KeepFirst
	}
	if !policy.Valid() {
		return nil, fmt.Errorf("unknown dedup policy %q", policy)
	}
	return &Store{pool: p, table: table, policy: policy}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Load reads the full dataset ordered by page index.
func (s *Store) Load(ctx context.Context) (harvest.Dataset, error) {
	query := fmt.Sprintf(`
SELECT
	decision_date,
	registry,
	full_details_url,
	court,
	action_type,
	parties,
	document_url,
	local_path,
	content_sha256,
	page_index
FROM %s
ORDER BY page_index, id`, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return harvest.Dataset{}, fmt.Errorf("query dataset: %w", err)
	}
	defer rows.Close()

	var records []harvest.Record
	for rows.Next() {
		var (
			r        harvest.Record
			registry string
		)
		if err := rows.Scan(
			&r.Date,
			&registry,
			&r.FullDetailsURL,
			&r.Court,
			&r.ActionType,
			&r.Parties,
			&r.DocumentURL,
			&r.LocalPath,
			&r.ContentSHA256,
			&r.PageIndex,
		); err != nil {
			return harvest.Dataset{}, fmt.Errorf("scan dataset row: %w", err)
		}
		if registry != "" {
			r.Registry = strings.Split(registry, "\n")
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return harvest.Dataset{}, fmt.Errorf("iterate dataset rows: %w", err)
	}
	return harvest.Dataset{Records: records}, nil
}

// Merge delegates to the package merge with the store's policy.
func (s *Store) Merge(old harvest.Dataset, records []harvest.Record) harvest.Dataset {
	return dataset.Merge(old, records, s.policy)
}

// Persist replaces the table contents with the dataset in one transaction.
func (s *Store) Persist(ctx context.Context, d harvest.Dataset) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin dataset tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s", s.table)); err != nil {
		return fmt.Errorf("clear dataset table: %w", err)
	}

	insert := fmt.Sprintf(`
INSERT INTO %s (
	decision_date,
	registry,
	full_details_url,
	court,
	action_type,
	parties,
	document_url,
	local_path,
	content_sha256,
	page_index
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, s.table)

	for _, r := range d.Records {
		if _, err := tx.Exec(ctx, insert,
			r.Date,
			r.RegistryText(),
			r.FullDetailsURL,
			r.Court,
			r.ActionType,
			r.Parties,
			r.DocumentURL,
			r.LocalPath,
			r.ContentSHA256,
			r.PageIndex,
		); err != nil {
			return fmt.Errorf("insert dataset row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit dataset tx: %w", err)
	}
	return nil
}
