package clinic

import "time"

// Client is a person receiving legal aid, keyed by national identification.
// The socioeconomic fields feed the alert note computed at intake.
type Client struct {
	ID     string `json:"id" db:"id" validate:"required,max=20"`
	IDType string `json:"id_type,omitempty" db:"id_type"`

	FirstName string     `json:"first_name" db:"first_name" validate:"required"`
	LastName  string     `json:"last_name" db:"last_name" validate:"required"`
	Age       int        `json:"age,omitempty" db:"age" validate:"gte=0,lte=130"`
	Gender    string     `json:"gender,omitempty" db:"gender"`
	BirthDate *time.Time `json:"birth_date,omitempty" db:"birth_date"`

	Nationality string `json:"nationality,omitempty" db:"nationality"`
	Ethnicity   string `json:"ethnicity,omitempty" db:"ethnicity"`
	Province    string `json:"province,omitempty" db:"province"`
	City        string `json:"city,omitempty" db:"city"`
	Phone       string `json:"phone,omitempty" db:"phone"`
	Email       string `json:"email,omitempty" db:"email" validate:"omitempty,email"`
	Address     string `json:"address,omitempty" db:"address"`
	Sector      string `json:"sector,omitempty" db:"sector"`
	Zone        string `json:"zone,omitempty" db:"zone"`

	ReferenceName  string `json:"reference_name,omitempty" db:"reference_name"`
	ReferencePhone string `json:"reference_phone,omitempty" db:"reference_phone"`

	AcademicInstruction string `json:"academic_instruction,omitempty" db:"academic_instruction"`
	Profession          string `json:"profession,omitempty" db:"profession"`
	MaritalStatus       string `json:"marital_status,omitempty" db:"marital_status"`
	Dependents          int    `json:"dependents,omitempty" db:"dependents" validate:"gte=0"`
	IncomeLevel         string `json:"income_level,omitempty" db:"income_level"`
	FamilyIncome        string `json:"family_income,omitempty" db:"family_income"`
	HousingType         string `json:"housing_type,omitempty" db:"housing_type"`

	Disability           bool `json:"disability" db:"disability"`
	DisabilityPercentage int  `json:"disability_percentage,omitempty" db:"disability_percentage" validate:"gte=0,lte=100"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// InternalUser is a clinic staff member. Workflows only read these rows.
type InternalUser struct {
	ID        string `json:"id" db:"id"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	Email     string `json:"email" db:"email"`
	Role      string `json:"role" db:"role"`
	Active    bool   `json:"active" db:"active"`
}

func (u InternalUser) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Consultation is an initial consultation identified by its AT- code.
//
// AlertNote is computed once at creation and never recomputed.
// SocialWorkRequired is the referral flag; turning it on opens a social-work case.
type Consultation struct {
	Code       string `json:"code" db:"code"`
	InternalID string `json:"internal_id" db:"internal_id"`
	ClientID   string `json:"client_id" db:"client_id"`
	ClientType string `json:"client_type,omitempty" db:"client_type"`

	Date    time.Time  `json:"date" db:"date"`
	EndDate *time.Time `json:"end_date,omitempty" db:"end_date"`

	Subject        string `json:"subject" db:"subject"`
	Lawyer         string `json:"lawyer,omitempty" db:"lawyer"`
	Notes          string `json:"notes,omitempty" db:"notes"`
	Office         string `json:"office,omitempty" db:"office"`
	Topic          string `json:"topic,omitempty" db:"topic"`
	Service        string `json:"service,omitempty" db:"service"`
	ReferralSource string `json:"referral_source,omitempty" db:"referral_source"`
	Complexity     string `json:"complexity,omitempty" db:"complexity"`
	Status         string `json:"status,omitempty" db:"status"`
	CaseStatus     string `json:"case_status,omitempty" db:"case_status"`
	Type           string `json:"type,omitempty" db:"type"`

	SocialWorkRequired  bool `json:"social_work_required" db:"social_work_required"`
	SocialWorkMandatory bool `json:"social_work_mandatory" db:"social_work_mandatory"`

	AlertNote string `json:"alert_note,omitempty" db:"alert_note"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NoDocumentName marks an evidence row created without an attached file.
const NoDocumentName = "Sin Documento"

// Evidence is a document attached to a consultation.
type Evidence struct {
	ID               string    `json:"id" db:"id"`
	InternalID       string    `json:"internal_id" db:"internal_id"`
	ConsultationCode string    `json:"consultation_code" db:"consultation_code"`
	Name             string    `json:"name" db:"name"`
	DocumentType     string    `json:"document_type,omitempty" db:"document_type"`
	URL              string    `json:"url,omitempty" db:"url"`
	Date             time.Time `json:"date" db:"date"`
	File             []byte    `json:"-" db:"file"`
}

type SocialWorkStatus string

const (
	SocialWorkActive   SocialWorkStatus = "Activo"
	SocialWorkInactive SocialWorkStatus = "Inactivo"
)

func (s SocialWorkStatus) Valid() bool {
	return s == SocialWorkActive || s == SocialWorkInactive
}

// SocialWorkCase is the social-work follow-up of a consultation.
// At most one case exists per consultation.
type SocialWorkCase struct {
	ProcessNumber    string    `json:"process_number" db:"process_number"`
	ConsultationCode string    `json:"consultation_code" db:"consultation_code"`
	EntryDate        time.Time `json:"entry_date" db:"entry_date"`
	// EntryDay is the YYYYMMDD key the process number was counted against.
	EntryDay string `json:"entry_day" db:"entry_day"`

	Status             SocialWorkStatus `json:"status" db:"status"`
	StatusObservations string           `json:"status_observations,omitempty" db:"status_observations"`

	UserRequests         string `json:"user_requests,omitempty" db:"user_requests"`
	ReferralAreaRequests string `json:"referral_area_requests,omitempty" db:"referral_area_requests"`
	ViolenceEpisodes     string `json:"violence_episodes,omitempty" db:"violence_episodes"`
	Complaints           string `json:"complaints,omitempty" db:"complaints"`

	DisabilityType       string `json:"disability_type,omitempty" db:"disability_type"`
	DisabilityPercentage int    `json:"disability_percentage,omitempty" db:"disability_percentage"`
	HasDisabilityCard    bool   `json:"has_disability_card" db:"has_disability_card"`

	Observations string `json:"observations,omitempty" db:"observations"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Sector is a parameter row used to classify client addresses by zone.
type Sector struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name" validate:"required"`
	Zone string `json:"zone" db:"zone" validate:"required"`
}
