package intake

import (
	"time"

	"legal-clinic/internal/clinic"
	"legal-clinic/internal/socialwork"
)

// ConsultationFields are the caller-supplied classification fields of a
// new consultation. Date defaults to the time of intake.
type ConsultationFields struct {
	ClientType          string     `json:"client_type,omitempty"`
	Date                *time.Time `json:"date,omitempty"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	Subject             string     `json:"subject" validate:"required"`
	Lawyer              string     `json:"lawyer,omitempty"`
	Notes               string     `json:"notes,omitempty"`
	Office              string     `json:"office,omitempty"`
	Topic               string     `json:"topic,omitempty"`
	Service             string     `json:"service,omitempty"`
	ReferralSource      string     `json:"referral_source,omitempty"`
	Complexity          string     `json:"complexity,omitempty"`
	Status              string     `json:"status,omitempty"`
	CaseStatus          string     `json:"case_status,omitempty"`
	Type                string     `json:"type,omitempty"`
	SocialWorkRequired  bool       `json:"social_work_required"`
	SocialWorkMandatory bool       `json:"social_work_mandatory"`
}

// Attachment is the document recorded with a full intake. An empty Name
// stores the no-document marker.
type Attachment struct {
	Name         string `json:"name,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	URL          string `json:"url,omitempty" validate:"omitempty,url"`
	File         []byte `json:"file,omitempty"`
}

// IntakeRequest registers a consultation and, when the client is new,
// the client itself.
type IntakeRequest struct {
	Client       clinic.Client      `json:"client" validate:"-"`
	Consultation ConsultationFields `json:"consultation"`
	Attachment   Attachment         `json:"attachment"`
	SocialWork   socialwork.Details `json:"social_work"`
}

type IntakeResult struct {
	Consultation  clinic.Consultation    `json:"consultation"`
	Evidence      clinic.Evidence        `json:"evidence"`
	SocialWork    *clinic.SocialWorkCase `json:"social_work,omitempty"`
	ClientCreated bool                   `json:"client_created"`
}

// ConsultationInput registers a consultation for an existing client.
type ConsultationInput struct {
	ClientID string `json:"client_id" validate:"required"`
	ConsultationFields
	SocialWork socialwork.Details `json:"social_work"`
}

type ConsultationResult struct {
	Consultation clinic.Consultation    `json:"consultation"`
	SocialWork   *clinic.SocialWorkCase `json:"social_work,omitempty"`
}

// ConsultationPatch holds the fields to change. Nil fields are kept. The
// code, the recording user, the client and the alert note cannot change.
type ConsultationPatch struct {
	ClientType          *string    `json:"client_type"`
	Date                *time.Time `json:"date"`
	EndDate             *time.Time `json:"end_date"`
	Subject             *string    `json:"subject" validate:"omitempty,min=1"`
	Lawyer              *string    `json:"lawyer"`
	Notes               *string    `json:"notes"`
	Office              *string    `json:"office"`
	Topic               *string    `json:"topic"`
	Service             *string    `json:"service"`
	ReferralSource      *string    `json:"referral_source"`
	Complexity          *string    `json:"complexity"`
	Status              *string    `json:"status"`
	CaseStatus          *string    `json:"case_status"`
	Type                *string    `json:"type"`
	SocialWorkRequired  *bool      `json:"social_work_required"`
	SocialWorkMandatory *bool      `json:"social_work_mandatory"`
}

func set[T comparable](dst *T, src *T) bool {
	if src == nil || *dst == *src {
		return false
	}
	*dst = *src
	return true
}

func setTime(dst *time.Time, src *time.Time) bool {
	if src == nil || dst.Equal(*src) {
		return false
	}
	*dst = *src
	return true
}

func setOptionalTime(dst **time.Time, src *time.Time) bool {
	if src == nil {
		return false
	}
	if *dst != nil && (*dst).Equal(*src) {
		return false
	}
	v := *src
	*dst = &v
	return true
}

// Apply copies the non-nil fields onto c and reports whether any stored
// value changed.
func (p ConsultationPatch) Apply(c *clinic.Consultation) bool {
	changed := false
	changed = set(&c.ClientType, p.ClientType) || changed
	changed = setTime(&c.Date, p.Date) || changed
	changed = setOptionalTime(&c.EndDate, p.EndDate) || changed
	changed = set(&c.Subject, p.Subject) || changed
	changed = set(&c.Lawyer, p.Lawyer) || changed
	changed = set(&c.Notes, p.Notes) || changed
	changed = set(&c.Office, p.Office) || changed
	changed = set(&c.Topic, p.Topic) || changed
	changed = set(&c.Service, p.Service) || changed
	changed = set(&c.ReferralSource, p.ReferralSource) || changed
	changed = set(&c.Complexity, p.Complexity) || changed
	changed = set(&c.Status, p.Status) || changed
	changed = set(&c.CaseStatus, p.CaseStatus) || changed
	changed = set(&c.Type, p.Type) || changed
	changed = set(&c.SocialWorkRequired, p.SocialWorkRequired) || changed
	changed = set(&c.SocialWorkMandatory, p.SocialWorkMandatory) || changed
	return changed
}
