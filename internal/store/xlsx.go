package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/disclosure-cli/internal/model"
)

// DefaultSheetName is used when no worksheet name is configured.
const DefaultSheetName = "Disclosures"

// XLSXStore keeps the table in one worksheet of a local workbook. Every
// mutation is saved to disk before returning.
type XLSXStore struct {
	path string

	mu    sync.Mutex
	file  *xlsx.File
	sheet *xlsx.Sheet
}

// NewXLSX opens the workbook at path, creating it and the worksheet when
// missing.
func NewXLSX(path, sheetName string) (*XLSXStore, error) {
	if path == "" {
		return nil, eris.New("xlsx: path is required")
	}
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	var f *xlsx.File
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		f = xlsx.NewFile()
	case err != nil:
		return nil, eris.Wrapf(err, "xlsx: stat %s", path)
	default:
		if f, err = xlsx.OpenFile(path); err != nil {
			return nil, eris.Wrapf(err, "xlsx: open %s", path)
		}
	}

	sheet, ok := f.Sheet[sheetName]
	if !ok {
		if sheet, err = f.AddSheet(sheetName); err != nil {
			return nil, eris.Wrapf(err, "xlsx: add sheet %s", sheetName)
		}
	}
	return &XLSXStore{path: path, file: f, sheet: sheet}, nil
}

// EnsureHeader implements Store.
func (s *XLSXStore) EnsureHeader(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sheet.Rows) > 0 {
		return nil
	}
	row := s.sheet.AddRow()
	for _, title := range model.Header() {
		row.AddCell().SetString(title)
	}
	return s.save()
}

// ReadAllRows implements Store.
func (s *XLSXStore) ReadAllRows(_ context.Context) ([]model.StoredRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readRows(), nil
}

func (s *XLSXStore) readRows() []model.StoredRow {
	if len(s.sheet.Rows) < 2 {
		return nil
	}
	out := make([]model.StoredRow, 0, len(s.sheet.Rows)-1)
	for i, row := range s.sheet.Rows[1:] {
		cells := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = c.String()
		}
		out = append(out, model.StoredRow{Index: i + 2, Row: model.RowFromValues(cells)})
	}
	return out
}

// AppendRows implements Store.
func (s *XLSXStore) AppendRows(_ context.Context, rows []model.Row) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := dedupe(rows, model.KeysOf(s.readRows()))
	if len(fresh) == 0 {
		return 0, nil
	}
	for _, r := range fresh {
		row := s.sheet.AddRow()
		for col, v := range r.Values() {
			cell := row.AddCell()
			if model.Column(col) == model.ColDocumentCount {
				cell.SetInt(r.DocumentCount)
				continue
			}
			cell.SetString(v)
		}
	}
	if err := s.save(); err != nil {
		return 0, err
	}
	return len(fresh), nil
}

// UpdateCell implements Store.
func (s *XLSXStore) UpdateCell(_ context.Context, rowIndex int, col model.Column, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rowIndex < 2 || rowIndex > len(s.sheet.Rows) {
		return eris.Errorf("xlsx: row %d not found", rowIndex)
	}
	if col < model.ColDate || col > model.ColUniqueKey {
		return eris.Errorf("xlsx: unknown column %s", col)
	}
	row := s.sheet.Rows[rowIndex-1]
	for len(row.Cells) <= col.Index() {
		row.AddCell()
	}
	cell := row.Cells[col.Index()]
	if col == model.ColDocumentCount {
		n, err := strconv.Atoi(value)
		if err != nil {
			return eris.Wrapf(err, "xlsx: document count %q", value)
		}
		cell.SetInt(n)
	} else {
		cell.SetString(value)
	}
	return s.save()
}

// Close implements Store.
func (s *XLSXStore) Close() error { return nil }

func (s *XLSXStore) save() error {
	if err := s.file.Save(s.path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", s.path)
	}
	return nil
}

// ExportXLSX writes rows with a header to a new workbook at path.
func ExportXLSX(path, sheetName string, rows []model.StoredRow) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return eris.Wrapf(err, "xlsx: replace %s", path)
	}
	out, err := NewXLSX(path, sheetName)
	if err != nil {
		return err
	}
	if err := out.EnsureHeader(context.Background()); err != nil {
		return err
	}
	plain := make([]model.Row, len(rows))
	for i, r := range rows {
		plain[i] = r.Row
	}
	_, err = out.AppendRows(context.Background(), plain)
	return err
}
