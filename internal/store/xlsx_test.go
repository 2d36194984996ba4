package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/disclosure-cli/internal/model"
)

func TestXLSXStore_Contract(t *testing.T) {
	s, err := NewXLSX(filepath.Join(t.TempDir(), "disclosures.xlsx"), "")
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestXLSXStore_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disclosures.xlsx")
	ctx := context.Background()

	s, err := NewXLSX(path, "Tracker")
	require.NoError(t, err)
	require.NoError(t, s.EnsureHeader(ctx))
	_, err = s.AppendRows(ctx, sampleRows()[:1])
	require.NoError(t, err)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet["Tracker"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "AI Summary", sheet.Rows[0].Cells[model.ColSummary].String())
	assert.Equal(t, "1", sheet.Rows[1].Cells[model.ColDocumentCount].String())

	reopened, err := NewXLSX(path, "Tracker")
	require.NoError(t, err)
	rows, err := reopened.ReadAllRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Index)
	assert.Equal(t, sampleRows()[0], rows[0].Row)
}

func TestXLSXStore_UpdateCellValidation(t *testing.T) {
	s, err := NewXLSX(filepath.Join(t.TempDir(), "d.xlsx"), "")
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.EnsureHeader(ctx))
	_, err = s.AppendRows(ctx, sampleRows())
	require.NoError(t, err)

	assert.Error(t, s.UpdateCell(ctx, 1, model.ColSummary, "header"))
	assert.Error(t, s.UpdateCell(ctx, 2, model.Column(12), "x"))
	assert.Error(t, s.UpdateCell(ctx, 2, model.ColDocumentCount, "many"))
	require.NoError(t, s.UpdateCell(ctx, 2, model.ColDocumentCount, "4"))

	rows, err := s.ReadAllRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, rows[0].DocumentCount)
}

func TestNewXLSX_RequiresPath(t *testing.T) {
	_, err := NewXLSX("", "")
	assert.Error(t, err)
}

func TestExportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")
	stored := []model.StoredRow{{Index: 2, Row: sampleRows()[0]}, {Index: 3, Row: sampleRows()[1]}}

	require.NoError(t, ExportXLSX(path, "", stored))
	// A second export replaces the file instead of appending.
	require.NoError(t, ExportXLSX(path, "", stored[:1]))

	s, err := NewXLSX(path, "")
	require.NoError(t, err)
	rows, err := s.ReadAllRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, sampleRows()[0], rows[0].Row)
}
