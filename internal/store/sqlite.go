package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/disclosure-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, eris.New("sqlite: database path is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS disclosures (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	date           TEXT NOT NULL DEFAULT '',
	time           TEXT NOT NULL DEFAULT '',
	company        TEXT NOT NULL DEFAULT '',
	subject        TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	summary        TEXT NOT NULL DEFAULT '',
	document_link  TEXT NOT NULL DEFAULT '',
	document_count INTEGER NOT NULL DEFAULT 0,
	unique_key     TEXT NOT NULL UNIQUE,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_disclosures_company ON disclosures(company);
`

// EnsureHeader creates the table when missing.
func (s *SQLiteStore) EnsureHeader(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// ReadAllRows implements Store. Row indexes are id+1.
func (s *SQLiteStore) ReadAllRows(ctx context.Context) ([]model.StoredRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, `+strings.Join(rowColumns, ", ")+` FROM disclosures ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: read rows")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.StoredRow
	for rows.Next() {
		var id int
		var r model.Row
		if err := rows.Scan(append([]any{&id}, sqlDest(&r)...)...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}
		out = append(out, model.StoredRow{Index: id + 1, Row: r})
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate rows")
}

// AppendRows implements Store. Rows with a stored key are ignored by the
// UNIQUE constraint.
func (s *SQLiteStore) AppendRows(ctx context.Context, rows []model.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(rowColumns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT OR IGNORE INTO disclosures (%s) VALUES (%s)`, strings.Join(rowColumns, ", "), placeholders))
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	var written int
	for _, r := range rows {
		res, err := stmt.ExecContext(ctx, sqlArgs(r)...)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert %s", r.UniqueKey)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		written += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return written, nil
}

// UpdateCell implements Store.
func (s *SQLiteStore) UpdateCell(ctx context.Context, rowIndex int, col model.Column, value string) error {
	name, arg, err := sqlCell(col, value)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE disclosures SET `+name+` = ?, updated_at = ? WHERE id = ?`,
		arg, time.Now().UTC(), rowIndex-1,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update row %d", rowIndex)
	}
	return checkRowsAffected(res, rowIndex)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func checkRowsAffected(res sql.Result, rowIndex int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("row not found: %d", rowIndex)
	}
	return nil
}
