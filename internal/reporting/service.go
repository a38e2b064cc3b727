package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"legal-clinic/internal/clinic"
)

var ErrInvalidRequest = fmt.Errorf("%w: reporting: invalid range", clinic.ErrValidation)

// Repository abstracts data access for reporting.
//
// Implementations join nothing; the service fetches the consultation and
// client of each row itself.
type Repository interface {
	ListConsultations(ctx context.Context, from, to time.Time) ([]clinic.Consultation, error)
	ListSocialWork(ctx context.Context, from, to time.Time) ([]clinic.SocialWorkCase, error)

	Consultation(ctx context.Context, code string) (clinic.Consultation, bool, error)
	Client(ctx context.Context, id string) (clinic.Client, bool, error)
}

type Service struct {
	repo Repository
	loc  *time.Location
}

// NewService builds a reporting service. Dates in generated documents are
// rendered in loc, or UTC when loc is nil.
func NewService(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc}
}

func (s *Service) ConsultationSummary(ctx context.Context, r TimeRange) (ConsultationSummary, error) {
	if !r.valid() {
		return ConsultationSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return ConsultationSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListConsultations(ctx, r.From, r.To)
	if err != nil {
		return ConsultationSummary{}, err
	}

	out := ConsultationSummary{Range: r, ByStatus: map[string]int{}, BySubject: map[string]int{}}
	for _, c := range rows {
		out.Total++
		out.ByStatus[orUnset(c.Status)]++
		out.BySubject[orUnset(c.Subject)]++
		if c.SocialWorkRequired {
			out.Referred++
		}
		if c.AlertNote != "" {
			out.Flagged++
		}
	}
	return out, nil
}

// caseRows resolves the consultation and client of every case entered in r.
// A case whose consultation was deleted keeps its own columns only.
func (s *Service) caseRows(ctx context.Context, r TimeRange) ([]caseRow, error) {
	cases, err := s.repo.ListSocialWork(ctx, r.From, r.To)
	if err != nil {
		return nil, err
	}

	clients := map[string]clinic.Client{}
	out := make([]caseRow, 0, len(cases))
	for _, sw := range cases {
		row := caseRow{
			ProcessNumber: sw.ProcessNumber,
			EntryDate:     sw.EntryDate,
			Status:        string(sw.Status),
			Consultation:  sw.ConsultationCode,
			UserRequests:  sw.UserRequests,
			Violence:      sw.ViolenceEpisodes,
			Disability:    sw.DisabilityType,
			DisabilityPct: sw.DisabilityPercentage,
			Observations:  sw.Observations,
		}

		c, ok, err := s.repo.Consultation(ctx, sw.ConsultationCode)
		if err != nil {
			return nil, err
		}
		if ok {
			row.Subject = c.Subject
			cl, seen := clients[c.ClientID]
			if !seen {
				found := false
				if cl, found, err = s.repo.Client(ctx, c.ClientID); err != nil {
					return nil, err
				}
				if found {
					clients[c.ClientID] = cl
				}
			}
			row.ClientID = c.ClientID
			row.FirstName = cl.FirstName
			row.LastName = cl.LastName
			row.Phone = cl.Phone
		}
		out = append(out, row)
	}
	return out, nil
}

func orUnset(v string) string {
	if v == "" {
		return "unset"
	}
	return v
}
