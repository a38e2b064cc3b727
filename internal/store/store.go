// Package store defines the persistence contracts used by the clinic
// workflows and provides Postgres and in-memory implementations.
//
// Lookups return (value, found, error): found=false with a nil error means
// the row does not exist, which is distinct from a storage failure.
package store

import (
	"context"
	"time"

	"legal-clinic/internal/audit"
	"legal-clinic/internal/clinic"
	"legal-clinic/internal/codes"
)

type StaffRepo interface {
	Get(ctx context.Context, id string) (clinic.InternalUser, bool, error)
}

type ClientRepo interface {
	Get(ctx context.Context, id string) (clinic.Client, bool, error)
	Insert(ctx context.Context, c clinic.Client) error
	Delete(ctx context.Context, id string) (bool, error)
}

type ConsultationFilter struct {
	ClientID string
	Status   string
	Type     string
	Subject  string
	// From/To bound Date as [From, To). Zero values leave the side open.
	From time.Time
	To   time.Time
}

type ConsultationRepo interface {
	Get(ctx context.Context, code string) (clinic.Consultation, bool, error)
	// MaxCode returns the numerically greatest code ever issued, counting
	// deleted consultations, or "" for an empty series.
	MaxCode(ctx context.Context) (string, error)
	Insert(ctx context.Context, c clinic.Consultation) error
	Update(ctx context.Context, c clinic.Consultation) (bool, error)
	Delete(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, f ConsultationFilter) ([]clinic.Consultation, error)
}

type EvidenceRepo interface {
	Insert(ctx context.Context, e clinic.Evidence) error
	ListByConsultation(ctx context.Context, code string) ([]clinic.Evidence, error)
}

type SocialWorkFilter struct {
	Status clinic.SocialWorkStatus
	// EnteredFrom/EnteredTo bound EntryDate as [From, To).
	EnteredFrom time.Time
	EnteredTo   time.Time
}

type SocialWorkRepo interface {
	Get(ctx context.Context, processNumber string) (clinic.SocialWorkCase, bool, error)
	GetByConsultation(ctx context.Context, code string) (clinic.SocialWorkCase, bool, error)
	// CountOnDay counts cases whose EntryDay equals dateKey (YYYYMMDD).
	CountOnDay(ctx context.Context, dateKey string) (int, error)
	Insert(ctx context.Context, c clinic.SocialWorkCase) error
	Update(ctx context.Context, c clinic.SocialWorkCase) (bool, error)
	List(ctx context.Context, f SocialWorkFilter) ([]clinic.SocialWorkCase, error)
}

type SectorRepo interface {
	List(ctx context.Context) ([]clinic.Sector, error)
	Get(ctx context.Context, id string) (clinic.Sector, bool, error)
	ZoneOf(ctx context.Context, name string) (string, bool, error)
	Insert(ctx context.Context, s clinic.Sector) error
	Update(ctx context.Context, s clinic.Sector) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Repos bundles the repositories of one unit of work.
type Repos struct {
	Staff         StaffRepo
	Clients       ClientRepo
	Consultations ConsultationRepo
	Evidence      EvidenceRepo
	SocialWork    SocialWorkRepo
	Sectors       SectorRepo
	Audit         audit.Repository
}

// UnitOfWork runs fn atomically: either every write made through the given
// Repos is kept, or none is.
//
// Direct returns repositories that write outside any unit of work. They are
// used for reads and for compensation after a rollback. Never call Direct
// from inside fn.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
	Direct() Repos
}

// consultationCodeAt renders the consultation code with sequence n, or ""
// when n is not positive.
func consultationCodeAt(n int64) string {
	if n <= 0 {
		return ""
	}
	return codes.Allocate(codes.Consultation, int(n-1))
}
