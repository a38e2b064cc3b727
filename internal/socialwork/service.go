// Package socialwork manages the social-work cases that follow a
// consultation once it is referred.
package socialwork

import (
	"context"
	"fmt"
	"strings"
	"time"

	"legal-clinic/internal/audit"
	"legal-clinic/internal/clinic"
	"legal-clinic/internal/codes"
	"legal-clinic/internal/store"
	"legal-clinic/pkg/logger"
)

// Recorder receives workflow counters. A nil Recorder disables them.
type Recorder interface {
	SocialWorkOpened(trigger string)
}

type Options struct {
	Locker   store.SeriesLocker
	Metrics  Recorder
	Location *time.Location
}

type Service struct {
	uow     store.UnitOfWork
	audit   *audit.Service
	locker  store.SeriesLocker
	metrics Recorder
	loc     *time.Location
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(uow store.UnitOfWork, au *audit.Service, opts Options) *Service {
	s := &Service{uow: uow, audit: au, locker: opts.Locker, metrics: opts.Metrics, loc: opts.Location, clock: time.Now}
	if s.locker == nil {
		s.locker = store.NoLock{}
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	return s
}

// WithClock returns a copy of s reading the time from clock.
func (s *Service) WithClock(clock func() time.Time) *Service {
	out := *s
	out.clock = clock
	return &out
}

type CaseInput struct {
	ConsultationCode string `json:"consultation_code" validate:"required"`
	Details
}

// CasePatch lists the fields a caller may change. Nil fields are left alone.
type CasePatch struct {
	UserRequests         *string `json:"user_requests"`
	ReferralAreaRequests *string `json:"referral_area_requests"`
	ViolenceEpisodes     *string `json:"violence_episodes"`
	Complaints           *string `json:"complaints"`
	DisabilityType       *string `json:"disability_type"`
	DisabilityPercentage *int    `json:"disability_percentage" validate:"omitempty,gte=0,lte=100"`
	HasDisabilityCard    *bool   `json:"has_disability_card"`
	Observations         *string `json:"observations"`
}

func setIfChanged[T comparable](dst *T, src *T) bool {
	if src == nil || *dst == *src {
		return false
	}
	*dst = *src
	return true
}

// Apply copies the non-nil fields onto c and reports whether anything changed.
func (p CasePatch) Apply(c *clinic.SocialWorkCase) bool {
	changed := false
	changed = setIfChanged(&c.UserRequests, p.UserRequests) || changed
	changed = setIfChanged(&c.ReferralAreaRequests, p.ReferralAreaRequests) || changed
	changed = setIfChanged(&c.ViolenceEpisodes, p.ViolenceEpisodes) || changed
	changed = setIfChanged(&c.Complaints, p.Complaints) || changed
	changed = setIfChanged(&c.DisabilityType, p.DisabilityType) || changed
	changed = setIfChanged(&c.DisabilityPercentage, p.DisabilityPercentage) || changed
	changed = setIfChanged(&c.HasDisabilityCard, p.HasDisabilityCard) || changed
	changed = setIfChanged(&c.Observations, p.Observations) || changed
	return changed
}

func requireActor(ctx context.Context, r store.Repos, actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return clinic.Invalid("actor id is required")
	}
	_, ok, err := r.Staff.Get(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return clinic.NotFound(clinic.EntityInternalUser, actorID)
	}
	return nil
}

// Create opens a case for an existing consultation. If the consultation is
// already linked to a case, that case is returned unchanged.
func (s *Service) Create(ctx context.Context, actorID string, in CaseInput) (clinic.SocialWorkCase, error) {
	if err := clinic.Validate(in); err != nil {
		return clinic.SocialWorkCase{}, fmt.Errorf("create social-work case: %w", err)
	}

	now := s.clock()
	release, err := s.locker.LockSeries(ctx, codes.SocialWork(codes.DateKey(now, s.loc)).Key())
	if err != nil {
		return clinic.SocialWorkCase{}, fmt.Errorf("create social-work case: %w", err)
	}
	defer func() { _ = release(context.WithoutCancel(ctx)) }()

	var (
		out    clinic.SocialWorkCase
		opened bool
	)
	err = s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		if err := requireActor(ctx, r, actorID); err != nil {
			return err
		}
		c, created, err := Open(ctx, r, s.audit, actorID, in.ConsultationCode, now, s.loc, in.Details)
		if err != nil {
			return err
		}
		out, opened = c, created
		return nil
	})
	if err != nil {
		return clinic.SocialWorkCase{}, fmt.Errorf("create social-work case: %w", err)
	}

	log := logger.From(ctx)
	if !opened {
		log.Info("social-work case already linked", "consultation_code", in.ConsultationCode, "process_number", out.ProcessNumber)
		return out, nil
	}
	if s.metrics != nil {
		s.metrics.SocialWorkOpened("manual")
	}
	log.Info("social-work case opened", "consultation_code", in.ConsultationCode, "process_number", out.ProcessNumber, "actor_id", actorID)
	return out, nil
}

func (s *Service) Get(ctx context.Context, processNumber string) (clinic.SocialWorkCase, error) {
	c, ok, err := s.uow.Direct().SocialWork.Get(ctx, processNumber)
	if err != nil {
		return clinic.SocialWorkCase{}, err
	}
	if !ok {
		return clinic.SocialWorkCase{}, clinic.NotFound(clinic.EntitySocialWork, processNumber)
	}
	return c, nil
}

func (s *Service) GetByConsultation(ctx context.Context, code string) (clinic.SocialWorkCase, error) {
	c, ok, err := s.uow.Direct().SocialWork.GetByConsultation(ctx, code)
	if err != nil {
		return clinic.SocialWorkCase{}, err
	}
	if !ok {
		return clinic.SocialWorkCase{}, clinic.NotFound(clinic.EntitySocialWork, code)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, f store.SocialWorkFilter) ([]clinic.SocialWorkCase, error) {
	return s.uow.Direct().SocialWork.List(ctx, f)
}

// Update changes descriptive fields. A patch that changes nothing returns
// the stored case and writes no audit entry.
func (s *Service) Update(ctx context.Context, actorID, processNumber string, p CasePatch) (clinic.SocialWorkCase, error) {
	if err := clinic.Validate(p); err != nil {
		return clinic.SocialWorkCase{}, fmt.Errorf("update social-work case: %w", err)
	}
	var out clinic.SocialWorkCase
	err := s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		c, ok, err := r.SocialWork.Get(ctx, processNumber)
		if err != nil {
			return err
		}
		if !ok {
			return clinic.NotFound(clinic.EntitySocialWork, processNumber)
		}
		if !p.Apply(&c) {
			out = c
			return nil
		}
		c.UpdatedAt = s.clock().UTC()
		if _, err := r.SocialWork.Update(ctx, c); err != nil {
			return err
		}
		out = c
		return s.audit.Bind(r.Audit).Record(ctx, actorID, audit.ActionUpdate, clinic.EntitySocialWork,
			fmt.Sprintf("updated social-work case %s", processNumber))
	})
	if err != nil {
		return clinic.SocialWorkCase{}, fmt.Errorf("update social-work case: %w", err)
	}
	return out, nil
}

// UpdateStatus sets the status and its observations. It returns false when
// no case has processNumber.
func (s *Service) UpdateStatus(ctx context.Context, actorID, processNumber string, status clinic.SocialWorkStatus, observations string) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("update social-work status: %w", clinic.Invalid("status must be %q or %q", clinic.SocialWorkActive, clinic.SocialWorkInactive))
	}
	var updated bool
	err := s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		c, ok, err := r.SocialWork.Get(ctx, processNumber)
		if err != nil || !ok {
			return err
		}
		c.Status = status
		c.StatusObservations = observations
		c.UpdatedAt = s.clock().UTC()
		if updated, err = r.SocialWork.Update(ctx, c); err != nil || !updated {
			return err
		}
		return s.audit.Bind(r.Audit).Record(ctx, actorID, audit.ActionUpdate, clinic.EntitySocialWork,
			fmt.Sprintf("social-work case %s set to %s", processNumber, status))
	})
	if err != nil {
		return false, fmt.Errorf("update social-work status: %w", err)
	}
	return updated, nil
}

// Delete deactivates the case. The row is kept so its process number is
// never reused.
func (s *Service) Delete(ctx context.Context, actorID, processNumber string) (clinic.SocialWorkCase, error) {
	var out clinic.SocialWorkCase
	err := s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		c, ok, err := r.SocialWork.Get(ctx, processNumber)
		if err != nil {
			return err
		}
		if !ok {
			return clinic.NotFound(clinic.EntitySocialWork, processNumber)
		}
		c.Status = clinic.SocialWorkInactive
		c.UpdatedAt = s.clock().UTC()
		if _, err := r.SocialWork.Update(ctx, c); err != nil {
			return err
		}
		out = c
		return s.audit.Bind(r.Audit).Record(ctx, actorID, audit.ActionDelete, clinic.EntitySocialWork,
			fmt.Sprintf("deactivated social-work case %s", processNumber))
	})
	if err != nil {
		return clinic.SocialWorkCase{}, fmt.Errorf("delete social-work case: %w", err)
	}
	return out, nil
}
