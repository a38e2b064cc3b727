package socialwork

import (
	"context"
	"fmt"
	"time"

	"legal-clinic/internal/audit"
	"legal-clinic/internal/clinic"
	"legal-clinic/internal/codes"
	"legal-clinic/internal/store"
)

// Details are the optional descriptive fields of a new case.
type Details struct {
	UserRequests         string `json:"user_requests,omitempty"`
	ReferralAreaRequests string `json:"referral_area_requests,omitempty"`
	ViolenceEpisodes     string `json:"violence_episodes,omitempty"`
	Complaints           string `json:"complaints,omitempty"`
	DisabilityType       string `json:"disability_type,omitempty"`
	DisabilityPercentage int    `json:"disability_percentage,omitempty" validate:"gte=0,lte=100"`
	HasDisabilityCard    bool   `json:"has_disability_card"`
	Observations         string `json:"observations,omitempty"`
}

// Open links a social-work case to consultationCode inside the caller's
// unit of work and returns it with opened=true.
//
// When the consultation already has a case, that case is returned with
// opened=false and nothing is written. The process number is counted
// against the cases already entered on now's clinic-local day.
func Open(ctx context.Context, r store.Repos, au *audit.Service, actorID, consultationCode string, now time.Time, loc *time.Location, d Details) (clinic.SocialWorkCase, bool, error) {
	if _, ok, err := r.Consultations.Get(ctx, consultationCode); err != nil {
		return clinic.SocialWorkCase{}, false, err
	} else if !ok {
		return clinic.SocialWorkCase{}, false, clinic.NotFound(clinic.EntityConsultation, consultationCode)
	}

	if existing, ok, err := r.SocialWork.GetByConsultation(ctx, consultationCode); err != nil {
		return clinic.SocialWorkCase{}, false, err
	} else if ok {
		return existing, false, nil
	}

	dateKey := codes.DateKey(now, loc)
	count, err := r.SocialWork.CountOnDay(ctx, dateKey)
	if err != nil {
		return clinic.SocialWorkCase{}, false, err
	}
	series := codes.SocialWork(dateKey)
	number := codes.Allocate(series, count)
	if err := codes.Check(series, number); err != nil {
		return clinic.SocialWorkCase{}, false, fmt.Errorf("%w: %w", clinic.ErrAllocation, err)
	}

	c := clinic.SocialWorkCase{
		ProcessNumber:        number,
		ConsultationCode:     consultationCode,
		EntryDate:            now.UTC(),
		EntryDay:             dateKey,
		Status:               clinic.SocialWorkActive,
		UserRequests:         d.UserRequests,
		ReferralAreaRequests: d.ReferralAreaRequests,
		ViolenceEpisodes:     d.ViolenceEpisodes,
		Complaints:           d.Complaints,
		DisabilityType:       d.DisabilityType,
		DisabilityPercentage: d.DisabilityPercentage,
		HasDisabilityCard:    d.HasDisabilityCard,
		Observations:         d.Observations,
		CreatedAt:            now.UTC(),
		UpdatedAt:            now.UTC(),
	}
	if err := r.SocialWork.Insert(ctx, c); err != nil {
		return clinic.SocialWorkCase{}, false, err
	}
	desc := fmt.Sprintf("opened social-work case %s for consultation %s", number, consultationCode)
	if err := au.Bind(r.Audit).Record(ctx, actorID, audit.ActionInsert, clinic.EntitySocialWork, desc); err != nil {
		return clinic.SocialWorkCase{}, false, err
	}
	return c, true, nil
}
