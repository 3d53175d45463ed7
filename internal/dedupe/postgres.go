package dedupe

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool       *pgxpool.Pool
	tableIdent string
}

func NewPostgresStore(ctx context.Context, dsn string, table string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	if table == "" {
		table = defaultSQLiteTable
	}
	tableIdent, err := quoteIdentifier(table)
	if err != nil {
		return nil, err
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}
	config.MaxConns = 2
	// Poolers in transaction mode reject cached prepared statements.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	store := &PostgresStore{pool: pool, tableIdent: tableIdent}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		seen_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, tableIdent)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create postgres table: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) Load(ctx context.Context) (SeenSet, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT id FROM %s", s.tableIdent))
	if err != nil {
		return SeenSet{}, fmt.Errorf("query seen ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return SeenSet{}, fmt.Errorf("scan seen ids: %w", err)
	}
	return NewSeenSet(ids...), nil
}

// Save removes identifiers missing from seen and inserts the rest, keeping
// the original seen_at of rows that survive.
func (s *PostgresStore) Save(ctx context.Context, seen SeenSet) error {
	ids := seen.IDs()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE NOT (id = ANY($1::text[]))", s.tableIdent), ids); err != nil {
		return fmt.Errorf("delete stale ids: %w", err)
	}
	insert := fmt.Sprintf("INSERT INTO %s (id) SELECT unnest($1::text[]) ON CONFLICT (id) DO NOTHING", s.tableIdent)
	if _, err := tx.Exec(ctx, insert, ids); err != nil {
		return fmt.Errorf("insert seen ids: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}
