package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/disclosure-cli/pkg/cse"
)

const (
	dateLayout = "02 Jan 2006"
	timeLayout = "03:04:05 PM"

	// KeySeparator joins the parts of a UniqueKey.
	KeySeparator = "|"
)

// Record is one announcement from the disclosure listing. Records are
// fetched fresh on every poll and never mutated.
type Record struct {
	ID            cse.ID    `json:"id"`
	Company       string    `json:"company"`
	Category      string    `json:"category"`
	AnnouncedDate string    `json:"announced_date,omitempty"` // source-supplied, may be empty
	CreatedAt     time.Time `json:"created_at"`               // zero when the source omits it
	Remarks       string    `json:"remarks,omitempty"`
}

// NewRecord converts a listing entry, rendering its creation timestamp in loc.
func NewRecord(a cse.Announcement, loc *time.Location) Record {
	if loc == nil {
		loc = time.UTC
	}
	r := Record{
		ID:            a.ID,
		Company:       a.Company,
		Category:      a.Category,
		AnnouncedDate: strings.TrimSpace(a.DateOfAnnouncement),
		Remarks:       a.Remarks,
	}
	if a.CreatedDate > 0 {
		r.CreatedAt = time.UnixMilli(int64(a.CreatedDate)).In(loc)
	}
	return r
}

// NewRecords converts a whole listing.
func NewRecords(items []cse.Announcement, loc *time.Location) []Record {
	out := make([]Record, 0, len(items))
	for _, a := range items {
		out = append(out, NewRecord(a, loc))
	}
	return out
}

// Date returns the announcement date, falling back to the creation date
// rendered as "02 JAN 2006".
func (r Record) Date() string {
	if r.AnnouncedDate != "" {
		return r.AnnouncedDate
	}
	if r.CreatedAt.IsZero() {
		return ""
	}
	return strings.ToUpper(r.CreatedAt.Format(dateLayout))
}

// Time returns the creation time as "03:04:05 PM", or "" when unknown.
func (r Record) Time() string {
	if r.CreatedAt.IsZero() {
		return ""
	}
	return r.CreatedAt.Format(timeLayout)
}

// UniqueKey is the natural deduplication key date|time|company. The source
// identifier is never part of it.
func (r Record) UniqueKey() string {
	return strings.Join([]string{r.Date(), r.Time(), r.Company}, KeySeparator)
}

// DocumentKey returns the fan-out key for the n-th (1-based) document.
func DocumentKey(base string, n int) string {
	return base + KeySeparator + "PDF" + strconv.Itoa(n)
}

// Matches reports whether r is the same company and category, ignoring
// surrounding whitespace.
func (r Record) Matches(company, category string) bool {
	return strings.TrimSpace(r.Company) == strings.TrimSpace(company) &&
		strings.TrimSpace(r.Category) == strings.TrimSpace(category)
}
