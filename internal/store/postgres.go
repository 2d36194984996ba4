package store

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-cli/internal/db"
	"github.com/sells-group/disclosure-cli/internal/model"
)

const postgresTable = "disclosures"

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// A single sequential writer needs few connections.
	maxConns, minConns := int32(4), int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS disclosures (
	id             BIGSERIAL PRIMARY KEY,
	date           TEXT NOT NULL DEFAULT '',
	time           TEXT NOT NULL DEFAULT '',
	company        TEXT NOT NULL DEFAULT '',
	subject        TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	summary        TEXT NOT NULL DEFAULT '',
	document_link  TEXT NOT NULL DEFAULT '',
	document_count INTEGER NOT NULL DEFAULT 0,
	unique_key     TEXT NOT NULL UNIQUE,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_disclosures_company ON disclosures(company);
`

// EnsureHeader creates the table when missing.
func (s *PostgresStore) EnsureHeader(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// ReadAllRows implements Store. Row indexes are id+1.
func (s *PostgresStore) ReadAllRows(ctx context.Context) ([]model.StoredRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, `+strings.Join(rowColumns, ", ")+` FROM disclosures ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: read rows")
	}
	defer rows.Close()

	var out []model.StoredRow
	for rows.Next() {
		var id int64
		var r model.Row
		if err := rows.Scan(append([]any{&id}, sqlDest(&r)...)...); err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		out = append(out, model.StoredRow{Index: int(id) + 1, Row: r})
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate rows")
}

// AppendRows implements Store.
func (s *PostgresStore) AppendRows(ctx context.Context, rows []model.Row) (int, error) {
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = sqlArgs(r)
	}
	n, err := db.BulkInsertNew(ctx, s.pool, db.InsertConfig{
		Table:        postgresTable,
		Columns:      rowColumns,
		ConflictKeys: []string{"unique_key"},
	}, values)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: append rows")
	}
	return int(n), nil
}

// UpdateCell implements Store.
func (s *PostgresStore) UpdateCell(ctx context.Context, rowIndex int, col model.Column, value string) error {
	name, arg, err := sqlCell(col, value)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE disclosures SET `+name+` = $1, updated_at = now() WHERE id = $2`,
		arg, int64(rowIndex-1),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update row %d", rowIndex)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: row not found: %d", rowIndex)
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
