package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/sells-group/disclosure-cli/internal/config"
	"github.com/sells-group/disclosure-cli/internal/model"
)

// SheetsStore keeps the table in one worksheet of a Google spreadsheet.
// Values are written RAW so formulas and numbers are stored as sent.
type SheetsStore struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	sheet         string
}

// NewSheets connects with service-account credentials from cfg. Extra client
// options are appended, which tests use to point at a local server.
func NewSheets(ctx context.Context, cfg config.SheetsConfig, opts ...option.ClientOption) (*SheetsStore, error) {
	if cfg.SpreadsheetID == "" {
		return nil, eris.New("sheets: spreadsheet id is required")
	}
	sheet := cfg.SheetName
	if sheet == "" {
		sheet = DefaultSheetName
	}

	var all []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		all = append(all, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		all = append(all, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	all = append(all, option.WithScopes(sheets.SpreadsheetsScope))
	all = append(all, opts...)

	svc, err := sheets.NewService(ctx, all...)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: create service")
	}
	return &SheetsStore{values: svc.Spreadsheets.Values, spreadsheetID: cfg.SpreadsheetID, sheet: sheet}, nil
}

// EnsureHeader writes the header into row 1 when it is empty.
func (s *SheetsStore) EnsureHeader(ctx context.Context) error {
	first := s.rangeOf("A1:" + columnLetter(model.ColUniqueKey) + "1")
	resp, err := s.values.Get(s.spreadsheetID, first).Context(ctx).Do()
	if err != nil {
		return eris.Wrap(err, "sheets: read header")
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	_, err = s.values.Update(s.spreadsheetID, first, &sheets.ValueRange{Values: [][]any{toAny(model.Header())}}).
		ValueInputOption("RAW").Context(ctx).Do()
	return eris.Wrap(err, "sheets: write header")
}

// ReadAllRows implements Store.
func (s *SheetsStore) ReadAllRows(ctx context.Context) ([]model.StoredRow, error) {
	resp, err := s.values.Get(s.spreadsheetID, s.rangeOf("A:"+columnLetter(model.ColUniqueKey))).Context(ctx).Do()
	if err != nil {
		return nil, eris.Wrap(err, "sheets: read rows")
	}
	if len(resp.Values) < 2 {
		return nil, nil
	}
	out := make([]model.StoredRow, 0, len(resp.Values)-1)
	for i, vals := range resp.Values[1:] {
		cells := make([]string, len(vals))
		for j, v := range vals {
			cells[j] = fmt.Sprint(v)
		}
		out = append(out, model.StoredRow{Index: i + 2, Row: model.RowFromValues(cells)})
	}
	return out, nil
}

// AppendRows implements Store. The key column is re-read first, so two
// concurrent writers can still race.
func (s *SheetsStore) AppendRows(ctx context.Context, rows []model.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	keyCol := columnLetter(model.ColUniqueKey)
	resp, err := s.values.Get(s.spreadsheetID, s.rangeOf(keyCol+":"+keyCol)).Context(ctx).Do()
	if err != nil {
		return 0, eris.Wrap(err, "sheets: read keys")
	}
	var keys []string
	for _, v := range resp.Values {
		if len(v) > 0 {
			keys = append(keys, fmt.Sprint(v[0]))
		}
	}

	fresh := dedupe(rows, model.NewKeySet(keys...))
	if len(fresh) == 0 {
		return 0, nil
	}
	values := make([][]any, len(fresh))
	for i, r := range fresh {
		vals := toAny(r.Values())
		vals[model.ColDocumentCount] = r.DocumentCount
		values[i] = vals
	}
	_, err = s.values.Append(s.spreadsheetID, s.rangeOf("A:"+keyCol), &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return 0, eris.Wrap(err, "sheets: append rows")
	}
	return len(fresh), nil
}

// UpdateCell implements Store.
func (s *SheetsStore) UpdateCell(ctx context.Context, rowIndex int, col model.Column, value string) error {
	if rowIndex < 2 {
		return eris.Errorf("sheets: row %d is not a data row", rowIndex)
	}
	if col < model.ColDate || col > model.ColUniqueKey {
		return eris.Errorf("sheets: unknown column %s", col)
	}
	cell := s.rangeOf(columnLetter(col) + strconv.Itoa(rowIndex))
	_, err := s.values.Update(s.spreadsheetID, cell, &sheets.ValueRange{Values: [][]any{{value}}}).
		ValueInputOption("RAW").Context(ctx).Do()
	return eris.Wrapf(err, "sheets: update %s", cell)
}

// Close implements Store.
func (s *SheetsStore) Close() error { return nil }

// rangeOf qualifies an A1 range with the quoted worksheet name.
func (s *SheetsStore) rangeOf(a1 string) string {
	return "'" + strings.ReplaceAll(s.sheet, "'", "''") + "'!" + a1
}

func columnLetter(c model.Column) string {
	return string(rune('A' + c.Index()))
}

func toAny(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
