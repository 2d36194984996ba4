package model

import (
	"regexp"
	"strconv"
	"strings"
)

// Column indexes the fixed persisted row schema.
type Column int

// Persisted columns, in order.
const (
	ColDate Column = iota
	ColTime
	ColCompany
	ColSubject
	ColDescription
	ColSummary
	ColDocumentLink
	ColDocumentCount
	ColUniqueKey

	numColumns
)

var header = [numColumns]string{
	"Date",
	"Time",
	"Company",
	"Subject",
	"Description",
	"AI Summary",
	"Document Link",
	"Document Count",
	"Unique Key",
}

// Header returns the column titles in storage order.
func Header() []string {
	out := make([]string, numColumns)
	copy(out, header[:])
	return out
}

// String returns the column title.
func (c Column) String() string {
	if c < 0 || c >= numColumns {
		return "Column(" + strconv.Itoa(int(c)) + ")"
	}
	return header[c]
}

// Index returns the 0-based column position.
func (c Column) Index() int { return int(c) }

// MaxDescription caps the Description column.
const MaxDescription = 200

// Row is the persisted unit of output.
type Row struct {
	Date          string `json:"date"`
	Time          string `json:"time"`
	Company       string `json:"company"`
	Subject       string `json:"subject"`
	Description   string `json:"description"`
	Summary       string `json:"summary"`
	DocumentLink  string `json:"document_link"`
	DocumentCount int    `json:"document_count"`
	UniqueKey     string `json:"unique_key"`
}

// StoredRow is a Row plus its store-assigned position. Index is 1-based and
// counts the header, matching spreadsheet row numbers.
type StoredRow struct {
	Index int
	Row
}

// Values returns the row's cells in column order.
func (r Row) Values() []string {
	return []string{
		r.Date,
		r.Time,
		r.Company,
		r.Subject,
		r.Description,
		r.Summary,
		r.DocumentLink,
		strconv.Itoa(r.DocumentCount),
		r.UniqueKey,
	}
}

// RowFromValues rebuilds a Row from cells. Short rows leave trailing fields
// empty and an unparsable count reads as 0.
func RowFromValues(vals []string) Row {
	cell := func(c Column) string {
		if int(c) < len(vals) {
			return vals[c]
		}
		return ""
	}
	n, _ := strconv.Atoi(strings.TrimSpace(cell(ColDocumentCount)))
	return Row{
		Date:          cell(ColDate),
		Time:          cell(ColTime),
		Company:       cell(ColCompany),
		Subject:       cell(ColSubject),
		Description:   cell(ColDescription),
		Summary:       cell(ColSummary),
		DocumentLink:  cell(ColDocumentLink),
		DocumentCount: n,
		UniqueKey:     cell(ColUniqueKey),
	}
}

var hyperlinkRe = regexp.MustCompile(`HYPERLINK\("([^"]+)"`)

// Link extracts a fetchable URL from the Document Link cell, which holds
// either a plain URL or a =HYPERLINK("url", "label") formula.
func (r Row) Link() string {
	cell := strings.TrimSpace(r.DocumentLink)
	if m := hyperlinkRe.FindStringSubmatch(cell); m != nil {
		return m[1]
	}
	if strings.HasPrefix(cell, "http") {
		return cell
	}
	return ""
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// BuildRows expands one record into its persisted rows. A record with more
// than one document fans out to one row per document, each keyed
// base|PDF<n> and sharing the summary and document count.
func BuildRows(rec Record, summary string, links []string) []Row {
	base := Row{
		Date:          rec.Date(),
		Time:          rec.Time(),
		Company:       rec.Company,
		Subject:       rec.Category,
		Summary:       summary,
		DocumentCount: len(links),
	}
	key := rec.UniqueKey()

	if len(links) <= 1 {
		row := base
		row.Description = Truncate(rec.Remarks, MaxDescription)
		row.UniqueKey = key
		if len(links) == 1 {
			row.DocumentLink = links[0]
		}
		return []Row{row}
	}

	rows := make([]Row, 0, len(links))
	for i, link := range links {
		row := base
		row.Description = "PDF " + strconv.Itoa(i+1) + " of " + strconv.Itoa(len(links))
		row.DocumentLink = link
		row.UniqueKey = DocumentKey(key, i+1)
		rows = append(rows, row)
	}
	return rows
}
