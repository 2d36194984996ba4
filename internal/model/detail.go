package model

import (
	"encoding/json"
	"strings"

	"github.com/sells-group/disclosure-cli/pkg/cse"
)

// Disclosure type tags as sent in reqBaseAnnouncement.dType.
const (
	TagCashDividend        = "CashDividendWithDates"
	TagDealingsByDirectors = "DealingsByDirectors"
	TagAppointDirectors    = "AppointmentOfDirectors"
	TagResignDirectors     = "ResignationOfDirectors"
	TagResignChairperson   = "ResignationOfChp"
	TagAppointChairperson  = "AppointOfChp"
	TagRightsIssue         = "RightsIssue"
	TagEGM                 = "ExtraOrdinaryGeneralMeetingInitial"
	TagAGM                 = "AgmInitial"
)

// Document references one enclosed file.
type Document struct {
	BaseURL string `json:"base_url"`
	FileURL string `json:"file_url"`
}

// URL returns the absolute document URL with spaces percent-encoded.
// Relative paths resolve against the CDN.
func (d Document) URL() string {
	base := d.BaseURL
	if base == "" {
		base = cse.DefaultCDNURL
	}
	return strings.ReplaceAll(base+d.FileURL, " ", "%20")
}

// Detail is the category-specific payload for one record.
type Detail struct {
	Company     string
	Description string
	Remarks     string
	Documents   []Document
	Payload     Payload
}

// Text returns the description and remarks joined by a space, trimmed.
func (d *Detail) Text() string {
	if d == nil {
		return ""
	}
	return strings.TrimSpace(d.Description + " " + d.Remarks)
}

// DocumentURLs returns the absolute URL of each document that has a path.
func (d *Detail) DocumentURLs() []string {
	if d == nil {
		return nil
	}
	var out []string
	for _, doc := range d.Documents {
		if doc.FileURL == "" {
			continue
		}
		out = append(out, doc.URL())
	}
	return out
}

// Payload is the closed set of typed disclosure payloads. Only types in this
// package implement it.
type Payload interface {
	// Tag returns the source dType.
	Tag() string
	payload()
}

// CashDividend is a CashDividendWithDates payload.
type CashDividend struct {
	FirstAndFinal     bool
	Final             bool
	FirstInterim      bool
	SecondInterim     bool
	ThirdInterim      bool
	FourthInterim     bool
	VotingPerShare    float64
	NonVotingPerShare float64
	FinancialYear     string
	XD                string
	Payment           string
	AGM               string
	ApprovalStatus    string
}

// DirectorDealings is a DealingsByDirectors payload.
type DirectorDealings struct {
	Nature       string
	RelatedParty string
	Transactions []Transaction
}

// Transaction is one dealing line.
type Transaction struct {
	Type     string
	Quantity float64
	Price    float64
	Date     string
}

// DirectorAppointment is an AppointmentOfDirectors payload.
type DirectorAppointment struct {
	Directors []Appointee
}

// Appointee is one appointed director.
type Appointee struct {
	Role          string
	EffectiveDate string
	Shares        float64
}

// Resignation covers director and chairperson resignations.
type Resignation struct {
	DType   string
	Remarks string
}

// Chairperson reports whether the resignation is of the chairperson.
func (r Resignation) Chairperson() bool {
	return strings.Contains(r.DType, "Chp")
}

// ChairpersonAppointment is an AppointOfChp payload.
type ChairpersonAppointment struct {
	Remarks string
}

// RightsIssue is a RightsIssue payload.
type RightsIssue struct {
	VotingShares  float64
	Consideration float64
	XR            string
	Remarks       string
}

// GeneralMeeting covers AGM and EGM notices.
type GeneralMeeting struct {
	Extraordinary bool
	Date          string
	Time          string
	Venue         string
	Resolutions   string
	Remarks       string
}

// UnknownPayload carries any type without a structured template.
type UnknownPayload struct {
	DType string
	Raw   json.RawMessage
}

func (CashDividend) Tag() string           { return TagCashDividend }
func (DirectorDealings) Tag() string       { return TagDealingsByDirectors }
func (DirectorAppointment) Tag() string    { return TagAppointDirectors }
func (r Resignation) Tag() string          { return r.DType }
func (ChairpersonAppointment) Tag() string { return TagAppointChairperson }
func (RightsIssue) Tag() string            { return TagRightsIssue }
func (u UnknownPayload) Tag() string       { return u.DType }

// Tag returns the EGM or AGM tag.
func (g GeneralMeeting) Tag() string {
	if g.Extraordinary {
		return TagEGM
	}
	return TagAGM
}

func (CashDividend) payload()           {}
func (DirectorDealings) payload()       {}
func (DirectorAppointment) payload()    {}
func (Resignation) payload()            {}
func (ChairpersonAppointment) payload() {}
func (RightsIssue) payload()            {}
func (GeneralMeeting) payload()         {}
func (UnknownPayload) payload()         {}

// NewDetail converts an API detail response into a Detail.
func NewDetail(d *cse.AnnouncementDetail) *Detail {
	if d == nil {
		return nil
	}
	b := d.Base
	out := &Detail{
		Company:     b.CompanyName,
		Description: b.Description,
		Remarks:     b.Remarks,
		Payload:     newPayload(b, d.RawBase),
	}
	for _, doc := range d.Documents {
		out.Documents = append(out.Documents, Document{BaseURL: doc.BaseURL, FileURL: doc.FileURL})
	}
	return out
}

func newPayload(b cse.BaseAnnouncement, raw json.RawMessage) Payload {
	switch b.DType {
	case TagCashDividend:
		return CashDividend{
			FirstAndFinal:     bool(b.FirstAndFinal),
			Final:             bool(b.FinalDividend),
			FirstInterim:      bool(b.TypeFirstInt),
			SecondInterim:     bool(b.TypeSecondInt),
			ThirdInterim:      bool(b.TypeThirdInt),
			FourthInterim:     bool(b.TypeFourthInt),
			VotingPerShare:    float64(b.VotingDivPerShare),
			NonVotingPerShare: float64(b.NonVotingDivPerShare),
			FinancialYear:     string(b.FinancialYear),
			XD:                string(b.XD),
			Payment:           string(b.Payment),
			AGM:               string(b.AGM),
			ApprovalStatus:    string(b.ShrHolderApproval),
		}
	case TagDealingsByDirectors:
		p := DirectorDealings{Nature: b.NatureOfDir, RelatedParty: b.RelInterestAccountName}
		for _, tx := range b.DirectorTransactions {
			p.Transactions = append(p.Transactions, Transaction{
				Type:     tx.TransType,
				Quantity: float64(tx.Quantity),
				Price:    float64(tx.Price),
				Date:     string(tx.TransactionDate),
			})
		}
		return p
	case TagAppointDirectors:
		var p DirectorAppointment
		for _, d := range b.DirList {
			p.Directors = append(p.Directors, Appointee{
				Role:          d.NatureOfDir,
				EffectiveDate: string(d.EffectiveDate),
				Shares:        float64(d.NumberOfShares),
			})
		}
		return p
	case TagResignDirectors, TagResignChairperson:
		return Resignation{DType: b.DType, Remarks: b.Remarks}
	case TagAppointChairperson:
		return ChairpersonAppointment{Remarks: b.Remarks}
	case TagRightsIssue:
		return RightsIssue{
			VotingShares:  float64(b.NumOfVotingShrsIssued),
			Consideration: float64(b.VotingShareConsideration),
			XR:            string(b.XR),
			Remarks:       b.Remarks,
		}
	case TagEGM:
		return GeneralMeeting{
			Extraordinary: true,
			Date:          string(b.DateOfEGM),
			Time:          string(b.Time),
			Venue:         b.Venue,
			Resolutions:   b.ResToBePassed,
		}
	case TagAGM:
		date := string(b.AGM)
		if date == "" {
			date = string(b.DateOfAGM)
		}
		return GeneralMeeting{Date: date, Remarks: b.Remarks}
	default:
		return UnknownPayload{DType: b.DType, Raw: raw}
	}
}
