// Package structured renders deterministic summaries from typed disclosure
// payloads.
package structured

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/disclosure-cli/internal/model"
)

var printer = message.NewPrinter(language.English)

// Build renders a summary for the detail's payload. It returns false when the
// payload has no template or lacks the data a template needs, in which case
// the caller moves on to the next strategy. Build is a pure function.
func Build(d *model.Detail) (string, bool) {
	if d == nil || d.Payload == nil {
		return "", false
	}
	company := d.Company

	switch p := d.Payload.(type) {
	case model.CashDividend:
		return dividend(p, company), true
	case model.DirectorDealings:
		return dealings(p, company)
	case model.DirectorAppointment:
		return appointment(p, company)
	case model.Resignation:
		return resignation(p, company), true
	case model.ChairpersonAppointment:
		return chairperson(p, company), true
	case model.RightsIssue:
		return rights(p, company), true
	case model.GeneralMeeting:
		if p.Extraordinary {
			return egm(p, company), true
		}
		return agm(p, company), true
	case model.UnknownPayload:
		return "", false
	default:
		return "", false
	}
}

func dividend(p model.CashDividend, company string) string {
	var label string
	switch {
	case p.FirstAndFinal:
		label = "first & final"
	case p.Final:
		label = "final"
	case p.FirstInterim:
		label = "first interim"
	case p.SecondInterim:
		label = "second interim"
	case p.ThirdInterim:
		label = "third interim"
	case p.FourthInterim:
		label = "fourth interim"
	}

	parts := []string{joinNonEmpty(company, "declared a", label, "cash dividend")}
	if p.VotingPerShare != 0 {
		parts = append(parts, "of Rs. "+num(p.VotingPerShare)+"/- per voting share")
	}
	if p.NonVotingPerShare > 0 {
		parts = append(parts, "and Rs. "+num(p.NonVotingPerShare)+"/- per non-voting share")
	}
	if p.FinancialYear != "" {
		parts = append(parts, "for FY "+p.FinancialYear)
	}
	if p.ApprovalStatus == "R" {
		parts = append(parts, "(subject to shareholder approval)")
	}
	summary := strings.Join(parts, " ") + "."

	var dates []string
	if p.AGM != "" {
		dates = append(dates, "AGM: "+p.AGM)
	}
	if p.XD != "" {
		dates = append(dates, "XD: "+p.XD)
	}
	if p.Payment != "" {
		dates = append(dates, "Payment: "+p.Payment)
	}
	if len(dates) > 0 {
		summary += " " + strings.Join(dates, ", ") + "."
	}
	return summary
}

var directorSuffixRe = regexp.MustCompile(`\s*Directors?\s*$`)

type dealingGroup struct {
	kind   string
	qty    float64
	value  float64
	prices []float64
	dates  []string
}

func dealings(p model.DirectorDealings, company string) (string, bool) {
	if referAttachment(p.Nature) || referAttachment(p.RelatedParty) {
		return "", false
	}

	nature := strings.TrimSpace(directorSuffixRe.ReplaceAllString(p.Nature, ""))
	if nature == "" {
		nature = "Director"
	}
	parts := []string{company + ": Dealings by " + nature + "."}

	var groups []*dealingGroup
	byKind := make(map[string]*dealingGroup)
	for _, tx := range p.Transactions {
		kind := tx.Type
		if kind == "" {
			kind = "Transaction"
		}
		g, ok := byKind[kind]
		if !ok {
			g = &dealingGroup{kind: kind}
			byKind[kind] = g
			groups = append(groups, g)
		}
		g.qty += tx.Quantity
		g.value += tx.Quantity * tx.Price
		if tx.Price != 0 && !slices.Contains(g.prices, tx.Price) {
			g.prices = append(g.prices, tx.Price)
		}
		if tx.Date != "" && !slices.Contains(g.dates, tx.Date) {
			g.dates = append(g.dates, tx.Date)
		}
	}

	for _, g := range groups {
		clause := g.kind + ": " + quantity(g.qty) + " shares"
		switch {
		case len(g.prices) == 1:
			clause += " at Rs. " + num(g.prices[0])
		case len(g.prices) > 1:
			var avg float64
			if g.qty != 0 {
				avg = g.value / g.qty
			}
			clause += " at avg Rs. " + printer.Sprintf("%.2f", avg)
		}
		switch len(g.dates) {
		case 0:
		case 1:
			clause += " on " + g.dates[0]
		default:
			clause += " on " + g.dates[0] + "-" + g.dates[len(g.dates)-1]
		}
		parts = append(parts, clause+".")
	}
	return strings.Join(parts, " "), true
}

func appointment(p model.DirectorAppointment, company string) (string, bool) {
	if len(p.Directors) == 0 {
		return "", false
	}
	parts := []string{company + ":"}
	for _, d := range p.Directors {
		role := strings.TrimSpace(d.Role)
		lower := strings.ToLower(role)
		switch {
		case role == "":
			role = "Director"
		case !strings.Contains(lower, "director") && !strings.Contains(lower, "chairperson"):
			role += " Director"
		}
		clause := "Appointed " + role
		if d.EffectiveDate != "" {
			clause += ", effective " + d.EffectiveDate
		}
		parts = append(parts, clause+".")
		if d.Shares != 0 {
			parts = append(parts, "Holds "+printer.Sprintf("%d", int64(d.Shares))+" shares.")
		}
	}
	return strings.Join(parts, " "), true
}

var (
	resignDateRe = regexp.MustCompile(`w\.?e\.?f\.?\s*(\d{1,2}[./]\d{1,2}[./]\d{4})`)
	chairDateRe  = regexp.MustCompile(`(?i)(?:w\.?e\.?f\.?|effective|from)\s*[:\s]*(\d{1,2}[./]\d{1,2}[./]\d{4}|\d{1,2}\s+\w+\s+\d{4})`)
)

func resignation(p model.Resignation, company string) string {
	role := "Director"
	if p.Chairperson() {
		role = "Chairperson"
	}
	return company + ": Resignation of " + role + effective(resignDateRe, p.Remarks) + "."
}

func chairperson(p model.ChairpersonAppointment, company string) string {
	return company + ": Appointment of Chairperson" + effective(chairDateRe, p.Remarks) + "."
}

func effective(re *regexp.Regexp, remarks string) string {
	m := re.FindStringSubmatch(remarks)
	if m == nil {
		return ""
	}
	return ", effective " + m[1]
}

func rights(p model.RightsIssue, company string) string {
	parts := []string{company + " — Rights Issue."}
	if p.VotingShares != 0 {
		parts = append(parts, printer.Sprintf("%d", int64(p.VotingShares))+" voting shares to be issued.")
	}
	if p.Consideration != 0 {
		parts = append(parts, "At Rs. "+num(p.Consideration)+"/- per share.")
	}
	if p.XR != "" {
		parts = append(parts, "XR date: "+p.XR+".")
	}
	if p.Remarks != "" {
		parts = append(parts, p.Remarks)
	}
	return strings.Join(parts, " ")
}

func egm(p model.GeneralMeeting, company string) string {
	parts := []string{company + " — EGM"}
	if p.Date != "" {
		parts = append(parts, "scheduled for "+p.Date)
	}
	if p.Time != "" {
		parts = append(parts, "at "+p.Time)
	}
	if p.Venue != "" {
		parts = append(parts, "at "+p.Venue)
	}
	summary := strings.TrimSpace(strings.Join(parts, " ")) + "."
	if res := strings.Join(strings.Fields(p.Resolutions), " "); res != "" {
		summary += " Resolutions: " + res + "."
	}
	return summary
}

func agm(p model.GeneralMeeting, company string) string {
	summary := company + " — AGM"
	if p.Date != "" {
		summary += " scheduled for " + p.Date
	}
	summary = strings.TrimSpace(summary) + "."
	if p.Remarks != "" {
		summary += " " + p.Remarks
	}
	return summary
}

func referAttachment(s string) bool {
	return strings.Contains(strings.ToLower(s), "refer attachment")
}

// num renders a price or amount with the shortest exact representation.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// quantity groups thousands and shows decimals only when non-integral.
func quantity(v float64) string {
	if v == math.Trunc(v) {
		return printer.Sprintf("%d", int64(v))
	}
	return printer.Sprintf("%.2f", v)
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
