package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/disclosure-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_EnsureHeader(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS disclosures`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.EnsureHeader(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReadAllRows(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	r := sampleRows()[0]

	mock.ExpectQuery(`SELECT id, date, time, company, subject, description, summary, document_link, document_count, unique_key FROM disclosures ORDER BY id`).
		WillReturnRows(pgxmock.NewRows(append([]string{"id"}, rowColumns...)).
			AddRow(int64(7), r.Date, r.Time, r.Company, r.Subject, r.Description, r.Summary, r.DocumentLink, r.DocumentCount, r.UniqueKey))

	rows, err := s.ReadAllRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 8, rows[0].Index)
	assert.Equal(t, r, rows[0].Row)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReadAllRowsError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id`).WillReturnError(errors.New("connection refused"))

	_, err := s.ReadAllRows(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: read rows")
}

func TestPostgresStore_AppendRows(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_insert_disclosures"}, rowColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "disclosures" .* ON CONFLICT \("unique_key"\) DO NOTHING`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.AppendRows(context.Background(), sampleRows())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCell(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE disclosures SET summary = \$1, updated_at = now\(\) WHERE id = \$2`).
		WithArgs("better summary", int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.UpdateCell(context.Background(), 5, model.ColSummary, "better summary"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCellNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE disclosures SET summary`).
		WithArgs("x", int64(99)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateCell(context.Background(), 100, model.ColSummary, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row not found")
}

func TestNewPostgres_BadConnString(t *testing.T) {
	_, err := NewPostgres(context.Background(), "://not a url", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: parse config")
}
