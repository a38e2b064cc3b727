// Package intake implements the consultation intake workflow: registering
// a consultation (and possibly its client), attaching evidence, and opening
// the social-work case when the consultation is referred.
//
// Every workflow runs in one unit of work. A full intake that created the
// client and then failed removes that client again after the rollback.
package intake

import (
	"context"
	"fmt"
	"strings"
	"time"

	"legal-clinic/internal/alertnote"
	"legal-clinic/internal/audit"
	"legal-clinic/internal/clinic"
	"legal-clinic/internal/codes"
	"legal-clinic/internal/socialwork"
	"legal-clinic/internal/store"
	"legal-clinic/pkg/logger"

	"github.com/google/uuid"
)

const (
	variantFull        = "full"
	variantLightweight = "lightweight"

	triggerIntake = "intake"
	triggerUpdate = "update"
)

// Recorder receives workflow counters.
type Recorder interface {
	IntakeFinished(variant string, err error)
	SocialWorkOpened(trigger string)
	Compensated(err error)
}

type nopRecorder struct{}

func (nopRecorder) IntakeFinished(string, error) {}
func (nopRecorder) SocialWorkOpened(string)      {}
func (nopRecorder) Compensated(error)            {}

type Options struct {
	Locker   store.SeriesLocker
	Metrics  Recorder
	Location *time.Location
	HomeCity string
}

type Service struct {
	uow     store.UnitOfWork
	audit   *audit.Service
	locker  store.SeriesLocker
	metrics Recorder
	notes   alertnote.Builder
	loc     *time.Location
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(uow store.UnitOfWork, au *audit.Service, opts Options) *Service {
	s := &Service{
		uow:     uow,
		audit:   au,
		locker:  opts.Locker,
		metrics: opts.Metrics,
		notes:   alertnote.New(opts.HomeCity),
		loc:     opts.Location,
		clock:   time.Now,
	}
	if s.locker == nil {
		s.locker = store.NoLock{}
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
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

// CreateIntake runs the full intake. The client is created when no client
// with req.Client.ID exists yet.
func (s *Service) CreateIntake(ctx context.Context, actorID string, req IntakeRequest) (res IntakeResult, err error) {
	defer func() { s.metrics.IntakeFinished(variantFull, err) }()

	if err := requireID("actor id", actorID); err != nil {
		return IntakeResult{}, fmt.Errorf("create intake: %w", err)
	}
	if err := requireID("client id", req.Client.ID); err != nil {
		return IntakeResult{}, fmt.Errorf("create intake: %w", err)
	}
	for _, v := range []any{req.Consultation, req.Attachment, req.SocialWork} {
		if err := clinic.Validate(v); err != nil {
			return IntakeResult{}, fmt.Errorf("create intake: %w", err)
		}
	}

	now := s.clock()
	unlock, err := s.lockSeries(ctx, now, req.Consultation.SocialWorkRequired)
	if err != nil {
		return IntakeResult{}, fmt.Errorf("create intake: %w", err)
	}
	defer unlock()

	var clientCreated bool
	err = s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		clientCreated = false
		au := s.audit.Bind(r.Audit)

		if err := requireActor(ctx, r, actorID); err != nil {
			return err
		}

		if _, ok, err := r.Clients.Get(ctx, req.Client.ID); err != nil {
			return err
		} else if !ok {
			c := req.Client
			c.CreatedAt = now.UTC()
			if err := clinic.Validate(c); err != nil {
				return err
			}
			if err := r.Clients.Insert(ctx, c); err != nil {
				return err
			}
			clientCreated = true
			if err := au.Record(ctx, actorID, audit.ActionInsert, clinic.EntityClient,
				fmt.Sprintf("registered client %s", c.ID)); err != nil {
				return err
			}
		}

		cons, err := s.insertConsultation(ctx, r, au, actorID, req.Client.ID, req.Consultation, profileOf(req.Client), now)
		if err != nil {
			return err
		}

		ev := clinic.Evidence{
			ID:               uuid.NewString(),
			InternalID:       actorID,
			ConsultationCode: cons.Code,
			Name:             strings.TrimSpace(req.Attachment.Name),
			DocumentType:     req.Attachment.DocumentType,
			URL:              req.Attachment.URL,
			Date:             now.UTC(),
			File:             req.Attachment.File,
		}
		if ev.Name == "" {
			ev.Name = clinic.NoDocumentName
		}
		if err := r.Evidence.Insert(ctx, ev); err != nil {
			return err
		}
		if err := au.Record(ctx, actorID, audit.ActionInsert, clinic.EntityEvidence,
			fmt.Sprintf("attached %q to consultation %s", ev.Name, cons.Code)); err != nil {
			return err
		}

		sw, err := s.fanOut(ctx, r, actorID, cons, now, req.SocialWork)
		if err != nil {
			return err
		}

		res = IntakeResult{Consultation: cons, Evidence: ev, SocialWork: sw, ClientCreated: clientCreated}
		return nil
	})
	if err != nil {
		if clientCreated {
			s.compensate(ctx, actorID, req.Client.ID, err)
		}
		logger.From(ctx).Warn("intake failed", "client_id", req.Client.ID, "actor_id", actorID, "err", err)
		return IntakeResult{}, fmt.Errorf("create intake: %w", err)
	}

	s.opened(triggerIntake, res.SocialWork)
	logger.From(ctx).Info("intake registered",
		"code", res.Consultation.Code,
		"client_id", req.Client.ID,
		"client_created", res.ClientCreated,
		"referred", res.Consultation.SocialWorkRequired,
	)
	return res, nil
}

// CreateConsultation runs the lightweight intake for a client that already exists.
func (s *Service) CreateConsultation(ctx context.Context, actorID string, in ConsultationInput) (res ConsultationResult, err error) {
	defer func() { s.metrics.IntakeFinished(variantLightweight, err) }()

	if err := requireID("actor id", actorID); err != nil {
		return ConsultationResult{}, fmt.Errorf("create consultation: %w", err)
	}
	if err := clinic.Validate(in); err != nil {
		return ConsultationResult{}, fmt.Errorf("create consultation: %w", err)
	}

	now := s.clock()
	unlock, err := s.lockSeries(ctx, now, in.SocialWorkRequired)
	if err != nil {
		return ConsultationResult{}, fmt.Errorf("create consultation: %w", err)
	}
	defer unlock()

	err = s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		if err := requireActor(ctx, r, actorID); err != nil {
			return err
		}
		client, ok, err := r.Clients.Get(ctx, in.ClientID)
		if err != nil {
			return err
		}
		if !ok {
			return clinic.NotFound(clinic.EntityClient, in.ClientID)
		}

		cons, err := s.insertConsultation(ctx, r, s.audit.Bind(r.Audit), actorID, client.ID, in.ConsultationFields, profileOf(client), now)
		if err != nil {
			return err
		}
		sw, err := s.fanOut(ctx, r, actorID, cons, now, in.SocialWork)
		if err != nil {
			return err
		}
		res = ConsultationResult{Consultation: cons, SocialWork: sw}
		return nil
	})
	if err != nil {
		return ConsultationResult{}, fmt.Errorf("create consultation: %w", err)
	}

	s.opened(triggerIntake, res.SocialWork)
	logger.From(ctx).Info("consultation registered", "code", res.Consultation.Code, "client_id", in.ClientID)
	return res, nil
}

// UpdateConsultation applies p to the consultation with code.
//
// A patch that changes nothing returns the stored row and writes no audit
// entry. Turning the referral flag on opens the social-work case unless one
// already exists. The alert note is never recomputed.
func (s *Service) UpdateConsultation(ctx context.Context, actorID, code string, p ConsultationPatch) (clinic.Consultation, error) {
	if err := requireID("actor id", actorID); err != nil {
		return clinic.Consultation{}, fmt.Errorf("update consultation: %w", err)
	}
	if err := clinic.Validate(p); err != nil {
		return clinic.Consultation{}, fmt.Errorf("update consultation: %w", err)
	}

	now := s.clock()
	unlock, err := s.lockReferral(ctx, now, p.SocialWorkRequired != nil && *p.SocialWorkRequired)
	if err != nil {
		return clinic.Consultation{}, fmt.Errorf("update consultation: %w", err)
	}
	defer unlock()

	var (
		prior   clinic.Consultation
		changed bool
		sw      *clinic.SocialWorkCase
	)
	err = s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		cur, ok, err := r.Consultations.Get(ctx, code)
		if err != nil {
			return err
		}
		if !ok {
			return clinic.NotFound(clinic.EntityConsultation, code)
		}
		prior = cur

		next := cur
		if changed = p.Apply(&next); !changed {
			return nil
		}
		next.UpdatedAt = now.UTC()
		if ok, err := r.Consultations.Update(ctx, next); err != nil {
			return err
		} else if !ok {
			return clinic.NotFound(clinic.EntityConsultation, code)
		}
		if err := s.audit.Bind(r.Audit).Record(ctx, actorID, audit.ActionUpdate, clinic.EntityConsultation,
			fmt.Sprintf("updated consultation %s", code)); err != nil {
			return err
		}

		if next.SocialWorkRequired && !prior.SocialWorkRequired {
			sw, err = s.fanOut(ctx, r, actorID, next, now, socialwork.Details{})
			return err
		}
		return nil
	})
	if err != nil {
		return clinic.Consultation{}, fmt.Errorf("update consultation: %w", err)
	}
	if !changed {
		return prior, nil
	}

	s.opened(triggerUpdate, sw)
	logger.From(ctx).Info("consultation updated", "code", code, "actor_id", actorID, "case_opened", sw != nil)
	return s.Get(ctx, code)
}

// DeleteConsultation removes the consultation and returns it as it was.
// Its social-work case, if any, is kept.
func (s *Service) DeleteConsultation(ctx context.Context, actorID, code string) (clinic.Consultation, error) {
	if err := requireID("actor id", actorID); err != nil {
		return clinic.Consultation{}, fmt.Errorf("delete consultation: %w", err)
	}

	var out clinic.Consultation
	err := s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		cur, ok, err := r.Consultations.Get(ctx, code)
		if err != nil {
			return err
		}
		if !ok {
			return clinic.NotFound(clinic.EntityConsultation, code)
		}
		if _, err := r.Consultations.Delete(ctx, code); err != nil {
			return err
		}
		out = cur
		return s.audit.Bind(r.Audit).Record(ctx, actorID, audit.ActionDelete, clinic.EntityConsultation,
			fmt.Sprintf("deleted consultation %s", code))
	})
	if err != nil {
		return clinic.Consultation{}, fmt.Errorf("delete consultation: %w", err)
	}
	logger.From(ctx).Info("consultation deleted", "code", code, "actor_id", actorID)
	return out, nil
}

func (s *Service) Get(ctx context.Context, code string) (clinic.Consultation, error) {
	c, ok, err := s.uow.Direct().Consultations.Get(ctx, code)
	if err != nil {
		return clinic.Consultation{}, err
	}
	if !ok {
		return clinic.Consultation{}, clinic.NotFound(clinic.EntityConsultation, code)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, f store.ConsultationFilter) ([]clinic.Consultation, error) {
	return s.uow.Direct().Consultations.List(ctx, f)
}

// Evidence lists the documents attached to the consultation with code.
func (s *Service) Evidence(ctx context.Context, code string) ([]clinic.Evidence, error) {
	if _, err := s.Get(ctx, code); err != nil {
		return nil, err
	}
	return s.uow.Direct().Evidence.ListByConsultation(ctx, code)
}

func (s *Service) insertConsultation(ctx context.Context, r store.Repos, au *audit.Service, actorID, clientID string, f ConsultationFields, p alertnote.Profile, now time.Time) (clinic.Consultation, error) {
	maxCode, err := r.Consultations.MaxCode(ctx)
	if err != nil {
		return clinic.Consultation{}, err
	}
	code := codes.NextConsultationCode(maxCode)
	if err := codes.Check(codes.Consultation, code); err != nil {
		return clinic.Consultation{}, fmt.Errorf("%w: %w", clinic.ErrAllocation, err)
	}

	p.Subject = f.Subject
	date := now.UTC()
	if f.Date != nil {
		date = f.Date.UTC()
	}
	c := clinic.Consultation{
		Code:                code,
		InternalID:          actorID,
		ClientID:            clientID,
		ClientType:          f.ClientType,
		Date:                date,
		EndDate:             f.EndDate,
		Subject:             f.Subject,
		Lawyer:              f.Lawyer,
		Notes:               f.Notes,
		Office:              f.Office,
		Topic:               f.Topic,
		Service:             f.Service,
		ReferralSource:      f.ReferralSource,
		Complexity:          f.Complexity,
		Status:              f.Status,
		CaseStatus:          f.CaseStatus,
		Type:                f.Type,
		SocialWorkRequired:  f.SocialWorkRequired,
		SocialWorkMandatory: f.SocialWorkMandatory,
		AlertNote:           s.notes.Build(p),
		CreatedAt:           now.UTC(),
		UpdatedAt:           now.UTC(),
	}
	if err := r.Consultations.Insert(ctx, c); err != nil {
		return clinic.Consultation{}, err
	}
	if err := au.Record(ctx, actorID, audit.ActionInsert, clinic.EntityConsultation,
		fmt.Sprintf("registered consultation %s for client %s", code, clientID)); err != nil {
		return clinic.Consultation{}, err
	}
	return c, nil
}

// fanOut opens the social-work case for a referred consultation. It
// returns nil when the consultation is not referred or already has a case.
func (s *Service) fanOut(ctx context.Context, r store.Repos, actorID string, c clinic.Consultation, now time.Time, d socialwork.Details) (*clinic.SocialWorkCase, error) {
	if !c.SocialWorkRequired {
		return nil, nil
	}
	sw, opened, err := socialwork.Open(ctx, r, s.audit, actorID, c.Code, now, s.loc, d)
	if err != nil || !opened {
		return nil, err
	}
	return &sw, nil
}

func (s *Service) opened(trigger string, sw *clinic.SocialWorkCase) {
	if sw != nil {
		s.metrics.SocialWorkOpened(trigger)
	}
}

// compensate removes a client created by a failed intake. It runs after
// the rollback, outside any unit of work, and only logs its own failures.
// A client that meanwhile gained consultations is kept and no DELETE entry
// is written.
func (s *Service) compensate(ctx context.Context, actorID, clientID string, cause error) {
	ctx = context.WithoutCancel(ctx)
	log := logger.From(ctx).With("client_id", clientID, "cause", cause)
	r := s.uow.Direct()

	err := func() error {
		others, err := r.Consultations.List(ctx, store.ConsultationFilter{ClientID: clientID})
		if err != nil {
			return err
		}
		if len(others) > 0 {
			log.Warn("compensation skipped: client has consultations", "consultations", len(others))
			return nil
		}
		if _, err := r.Clients.Delete(ctx, clientID); err != nil {
			return err
		}
		return s.audit.Bind(r.Audit).Record(ctx, actorID, audit.ActionDelete, clinic.EntityClient,
			fmt.Sprintf("rolled back client %s after failed intake: %v", clientID, cause))
	}()
	s.metrics.Compensated(err)
	if err != nil {
		log.Error("intake compensation failed", "err", err)
		return
	}
	log.Info("intake compensated")
}

// lockSeries takes the consultation series lock and, for referred intakes,
// the social-work series lock of the day. The consultation lock is always
// taken first.
func (s *Service) lockSeries(ctx context.Context, now time.Time, referred bool) (func(), error) {
	releaseAT, err := s.locker.LockSeries(ctx, codes.Consultation.Key())
	if err != nil {
		return nil, err
	}
	releaseTS, err := s.lockReferral(ctx, now, referred)
	if err != nil {
		_ = releaseAT(context.WithoutCancel(ctx))
		return nil, err
	}
	return func() {
		releaseTS()
		_ = releaseAT(context.WithoutCancel(ctx))
	}, nil
}

func (s *Service) lockReferral(ctx context.Context, now time.Time, referred bool) (func(), error) {
	if !referred {
		return func() {}, nil
	}
	release, err := s.locker.LockSeries(ctx, codes.SocialWork(codes.DateKey(now, s.loc)).Key())
	if err != nil {
		return nil, err
	}
	return func() { _ = release(context.WithoutCancel(ctx)) }, nil
}

func requireID(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return clinic.Invalid("%s is required", name)
	}
	return nil
}

func requireActor(ctx context.Context, r store.Repos, actorID string) error {
	_, ok, err := r.Staff.Get(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return clinic.NotFound(clinic.EntityInternalUser, actorID)
	}
	return nil
}

func profileOf(c clinic.Client) alertnote.Profile {
	return alertnote.Profile{
		AcademicInstruction: c.AcademicInstruction,
		Profession:          c.Profession,
		IncomeLevel:         c.IncomeLevel,
		FamilyIncome:        c.FamilyIncome,
		City:                c.City,
	}
}
