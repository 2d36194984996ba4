package cse

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ID is an announcement identifier. The API sends it as a number on some
// endpoints and as a string on others.
type ID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *ID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	*id = ID(string(b))
	return nil
}

// Number is a lenient float that decodes numbers, numeric strings and null.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*n = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil //nolint:nilerr // unparsable amounts are treated as absent
	}
	*n = Number(f)
	return nil
}

// Flag is a lenient boolean. The API mixes true/false with "Y"/"N" and 1/0.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(string(b)), `"`)) {
	case "true", "y", "yes", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

// Text is a lenient string for date and free-text fields. Numbers and
// booleans keep their literal form; null, objects and arrays decode as empty.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*t = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case b[0] == '{' || b[0] == '[':
		*t = ""
	default:
		*t = Text(b)
	}
	return nil
}

// Announcement is one entry of the approvedAnnouncement listing.
type Announcement struct {
	ID                 ID     `json:"announcementId"`
	Company            string `json:"company"`
	Category           string `json:"announcementCategory"`
	DateOfAnnouncement string `json:"dateOfAnnouncement"`
	CreatedDate        Number `json:"createdDate"` // epoch milliseconds
	Remarks            string `json:"remarks"`
}

type listResponse struct {
	Announcements []Announcement `json:"approvedAnnouncements"`
}

// AnnouncementDetail is the payload returned by getAnnouncementById and
// getGeneralAnnouncementById.
type AnnouncementDetail struct {
	Base      BaseAnnouncement
	Documents []Document
	// RawBase holds the undecoded reqBaseAnnouncement object.
	RawBase json.RawMessage
}

// UnmarshalJSON keeps the raw base object alongside the decoded fields so
// unknown announcement types still carry their payload.
func (d *AnnouncementDetail) UnmarshalJSON(b []byte) error {
	var wire struct {
		Base      json.RawMessage `json:"reqBaseAnnouncement"`
		Documents []Document      `json:"reqAnnouncementDocs"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	d.Documents = wire.Documents
	d.RawBase = wire.Base
	d.Base = BaseAnnouncement{}
	if len(wire.Base) > 0 && !bytes.Equal(wire.Base, []byte("null")) {
		if err := json.Unmarshal(wire.Base, &d.Base); err != nil {
			return err
		}
	}
	return nil
}

// Document references an enclosed file on the CDN.
type Document struct {
	FileURL string `json:"fileUrl"`
	BaseURL string `json:"baseUrl"`
}

// BaseAnnouncement is the flat union of every announcement type's fields.
// DType selects which of them are meaningful.
type BaseAnnouncement struct {
	DType       string `json:"dType"`
	CompanyName string `json:"companyName"`
	Description string `json:"description"`
	Remarks     string `json:"remarks"`

	// Cash dividend.
	FirstAndFinal        Flag   `json:"firstAndFinal"`
	FinalDividend        Flag   `json:"finalDividend"`
	TypeFirstInt         Flag   `json:"typeFirstInt"`
	TypeSecondInt        Flag   `json:"typeSecondInt"`
	TypeThirdInt         Flag   `json:"typeThirdInt"`
	TypeFourthInt        Flag   `json:"typeFourthInt"`
	VotingDivPerShare    Number `json:"votingDivPerShare"`
	NonVotingDivPerShare Number `json:"nonVotingDivPerShare"`
	FinancialYear        Text   `json:"financialYear"`
	XD                   Text   `json:"xd"`
	Payment              Text   `json:"payment"`
	AGM                  Text   `json:"agm"`
	ShrHolderApproval    Text   `json:"shrHolderApproval"`

	// Dealings by directors.
	NatureOfDir            string                `json:"natureOfDir"`
	RelInterestAccountName string                `json:"relInterestAccountName"`
	DirectorTransactions   []DirectorTransaction `json:"directorTransactions"`

	// Appointment of directors.
	DirList []AppointedDirector `json:"dirList"`

	// Rights issue.
	NumOfVotingShrsIssued    Number `json:"numOfVotingShrsIssued"`
	VotingShareConsideration Number `json:"votingShareConsideration"`
	XR                       Text   `json:"xr"`

	// General meetings.
	DateOfEGM     Text   `json:"dateOfEgm"`
	Venue         string `json:"venue"`
	Time          Text   `json:"time"`
	ResToBePassed string `json:"resToBePassed"`
	DateOfAGM     Text   `json:"dateOfAgm"`
}

// DirectorTransaction is one dealing line.
type DirectorTransaction struct {
	TransType       string `json:"transType"`
	Quantity        Number `json:"quantity"`
	Price           Number `json:"price"`
	TransactionDate Text   `json:"transactionDate"`
}

// AppointedDirector is one entry of an appointment announcement.
type AppointedDirector struct {
	NatureOfDir    string `json:"natureOfDir"`
	EffectiveDate  Text   `json:"effectiveDate"`
	NumberOfShares Number `json:"numberOfShares"`
}
