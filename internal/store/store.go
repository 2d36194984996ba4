// Package store persists disclosure rows in a tabular backend: a Google
// Sheets worksheet, a local XLSX workbook, SQLite or Postgres.
package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-cli/internal/config"
	"github.com/sells-group/disclosure-cli/internal/model"
)

// Store is the persisted disclosure table. Row indexes are 1-based and count
// the header row, so the first data row is 2.
type Store interface {
	// EnsureHeader creates the header row or schema when missing.
	EnsureHeader(ctx context.Context) error
	// ReadAllRows returns every data row in storage order.
	ReadAllRows(ctx context.Context) ([]model.StoredRow, error)
	// AppendRows writes rows whose UniqueKey is not already stored and
	// returns how many were written.
	AppendRows(ctx context.Context, rows []model.Row) (int, error)
	// UpdateCell overwrites one cell of an existing row.
	UpdateCell(ctx context.Context, rowIndex int, col model.Column, value string) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverSheets   = "sheets"
	DriverXLSX     = "xlsx"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open creates the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case DriverSheets:
		return NewSheets(ctx, cfg.Sheets)
	case DriverXLSX:
		return NewXLSX(cfg.XLSXPath, cfg.Sheets.SheetName)
	case DriverSQLite:
		return NewSQLite(cfg.DatabaseURL)
	case DriverPostgres:
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// sqlColumns maps model columns to SQL column names.
var sqlColumns = map[model.Column]string{
	model.ColDate:          "date",
	model.ColTime:          "time",
	model.ColCompany:       "company",
	model.ColSubject:       "subject",
	model.ColDescription:   "description",
	model.ColSummary:       "summary",
	model.ColDocumentLink:  "document_link",
	model.ColDocumentCount: "document_count",
	model.ColUniqueKey:     "unique_key",
}

// rowColumns lists the SQL columns in model order.
var rowColumns = []string{
	"date", "time", "company", "subject", "description",
	"summary", "document_link", "document_count", "unique_key",
}

func sqlArgs(r model.Row) []any {
	return []any{
		r.Date, r.Time, r.Company, r.Subject, r.Description,
		r.Summary, r.DocumentLink, r.DocumentCount, r.UniqueKey,
	}
}

func sqlDest(r *model.Row) []any {
	return []any{
		&r.Date, &r.Time, &r.Company, &r.Subject, &r.Description,
		&r.Summary, &r.DocumentLink, &r.DocumentCount, &r.UniqueKey,
	}
}

// sqlCell resolves the column name and typed value for an UpdateCell call.
func sqlCell(col model.Column, value string) (string, any, error) {
	name, ok := sqlColumns[col]
	if !ok {
		return "", nil, eris.Errorf("store: unknown column %s", col)
	}
	if col == model.ColUniqueKey {
		return "", nil, eris.New("store: unique key is immutable")
	}
	if col == model.ColDocumentCount {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return "", nil, eris.Wrapf(err, "store: document count %q", value)
		}
		return name, n, nil
	}
	return name, value, nil
}

// dedupe drops rows whose key is already in existing or repeated in rows.
func dedupe(rows []model.Row, existing model.KeySet) []model.Row {
	seen := existing
	out := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		if seen.Has(r.UniqueKey) {
			continue
		}
		seen = seen.With(r.UniqueKey)
		out = append(out, r)
	}
	return out
}
