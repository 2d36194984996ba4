package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/disclosure-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_Contract(t *testing.T) {
	exerciseStore(t, newTestSQLite(t))
}

func TestSQLiteStore_IndexIsIDPlusOne(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureHeader(ctx))
	_, err := s.AppendRows(ctx, sampleRows())
	require.NoError(t, err)

	rows, err := s.ReadAllRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Index)
	assert.Equal(t, 3, rows[1].Index)
}

func TestSQLiteStore_UpdateCellRejectsKey(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureHeader(ctx))

	err := s.UpdateCell(ctx, 2, model.ColUniqueKey, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "immutable")
}

func TestSQLiteStore_AppendEmpty(t *testing.T) {
	s := newTestSQLite(t)
	n, err := s.AppendRows(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewSQLite_RequiresPath(t *testing.T) {
	_, err := NewSQLite("")
	assert.Error(t, err)
}
