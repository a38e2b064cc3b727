package reporting

import "time"

// TimeRange is half-open: From is included, To is not.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r TimeRange) valid() bool {
	return !r.From.IsZero() && !r.To.IsZero() && r.To.After(r.From)
}

// ConsultationSummary aggregates the consultations registered in a range.
type ConsultationSummary struct {
	Range TimeRange `json:"range"`

	Total     int            `json:"total"`
	ByStatus  map[string]int `json:"by_status"`
	BySubject map[string]int `json:"by_subject"`

	// Referred counts consultations with the social-work flag set.
	Referred int `json:"referred"`
	// Flagged counts consultations whose alert note is not empty.
	Flagged int `json:"flagged"`
}

// caseRow is one line of the social-work workbook.
type caseRow struct {
	ProcessNumber string
	EntryDate     time.Time
	Status        string
	Consultation  string
	Subject       string
	ClientID      string
	FirstName     string
	LastName      string
	Phone         string
	UserRequests  string
	Violence      string
	Disability    string
	DisabilityPct int
	Observations  string
}
