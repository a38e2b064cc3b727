package socialwork

import (
	"context"
	"errors"
	"testing"
	"time"

	"legal-clinic/internal/audit"
	"legal-clinic/internal/clinic"
	"legal-clinic/internal/store"
)

type countingRecorder struct{ opened map[string]int }

func (r *countingRecorder) SocialWorkOpened(trigger string) { r.opened[trigger]++ }

func newFixture(t *testing.T, consultations ...string) (*store.MemoryStore, *Service, *time.Time, *countingRecorder) {
	t.Helper()
	ms := store.NewMemoryStore()
	ms.AddStaff(clinic.InternalUser{ID: "u1", FirstName: "Lucia", Role: "social_worker", Active: true})

	ctx := context.Background()
	r := ms.Direct()
	if err := r.Clients.Insert(ctx, clinic.Client{ID: "1710000000", FirstName: "Ana", LastName: "Paz"}); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	for _, code := range consultations {
		if err := r.Consultations.Insert(ctx, clinic.Consultation{Code: code, ClientID: "1710000000", InternalID: "u1"}); err != nil {
			t.Fatalf("seed consultation: %v", err)
		}
	}

	now := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)
	rec := &countingRecorder{opened: map[string]int{}}
	svc := NewService(ms, audit.NewService(nil), Options{Metrics: rec}).WithClock(func() time.Time { return now })
	return ms, svc, &now, rec
}

func TestCreate_FailsForUnknownConsultation(t *testing.T) {
	ms, svc, _, _ := newFixture(t)
	_, err := svc.Create(context.Background(), "u1", CaseInput{ConsultationCode: "AT-000404"})
	if !errors.Is(err, clinic.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if n := len(ms.AuditEntries()); n != 0 {
		t.Fatalf("expected no audit entries, got %d", n)
	}
}

func TestCreate_RequiresConsultationCode(t *testing.T) {
	_, svc, _, _ := newFixture(t)
	if _, err := svc.Create(context.Background(), "u1", CaseInput{}); !errors.Is(err, clinic.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreate_OpensActiveCaseAndAudits(t *testing.T) {
	ms, svc, _, rec := newFixture(t, "AT-000001")
	c, err := svc.Create(context.Background(), "u1", CaseInput{ConsultationCode: "AT-000001", Details: Details{UserRequests: "orientación"}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if c.ProcessNumber != "TS20240105-00001" {
		t.Fatalf("unexpected process number %s", c.ProcessNumber)
	}
	if c.Status != clinic.SocialWorkActive || c.UserRequests != "orientación" {
		t.Fatalf("unexpected case: %+v", c)
	}
	es := ms.AuditEntries()
	if len(es) != 1 || es[0].Action != audit.ActionInsert || es[0].Entity != clinic.EntitySocialWork {
		t.Fatalf("unexpected audit entries: %+v", es)
	}
	if rec.opened["manual"] != 1 {
		t.Fatalf("expected manual open counted")
	}
}

func TestCreate_ExistingCaseIsNoOp(t *testing.T) {
	ms, svc, _, rec := newFixture(t, "AT-000001")
	first, err := svc.Create(context.Background(), "u1", CaseInput{ConsultationCode: "AT-000001"})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := svc.Create(context.Background(), "u1", CaseInput{ConsultationCode: "AT-000001"})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second.ProcessNumber != first.ProcessNumber {
		t.Fatalf("expected same case, got %s and %s", first.ProcessNumber, second.ProcessNumber)
	}
	if n := len(ms.AuditEntries()); n != 1 {
		t.Fatalf("expected 1 audit entry, got %d", n)
	}
	if rec.opened["manual"] != 1 {
		t.Fatalf("expected one counted open, got %d", rec.opened["manual"])
	}
}

func TestCreate_ProcessNumbersAreDayScoped(t *testing.T) {
	_, svc, now, _ := newFixture(t, "AT-000001", "AT-000002", "AT-000003")
	ctx := context.Background()

	a, _ := svc.Create(ctx, "u1", CaseInput{ConsultationCode: "AT-000001"})
	b, _ := svc.Create(ctx, "u1", CaseInput{ConsultationCode: "AT-000002"})
	*now = now.Add(24 * time.Hour)
	c, _ := svc.Create(ctx, "u1", CaseInput{ConsultationCode: "AT-000003"})

	if a.ProcessNumber != "TS20240105-00001" || b.ProcessNumber != "TS20240105-00002" {
		t.Fatalf("unexpected same-day numbers %s %s", a.ProcessNumber, b.ProcessNumber)
	}
	if c.ProcessNumber != "TS20240106-00001" {
		t.Fatalf("expected next day to restart, got %s", c.ProcessNumber)
	}
}

func TestCreate_UsesClinicLocalDay(t *testing.T) {
	ms := store.NewMemoryStore()
	ms.AddStaff(clinic.InternalUser{ID: "u1"})
	r := ms.Direct()
	_ = r.Clients.Insert(context.Background(), clinic.Client{ID: "c"})
	_ = r.Consultations.Insert(context.Background(), clinic.Consultation{Code: "AT-000001", ClientID: "c"})

	loc := time.FixedZone("ECT", -5*60*60)
	late := time.Date(2024, 1, 6, 2, 0, 0, 0, time.UTC)
	svc := NewService(ms, audit.NewService(nil), Options{Location: loc}).WithClock(func() time.Time { return late })

	c, err := svc.Create(context.Background(), "u1", CaseInput{ConsultationCode: "AT-000001"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if c.EntryDay != "20240105" || c.ProcessNumber != "TS20240105-00001" {
		t.Fatalf("expected local day, got %s %s", c.EntryDay, c.ProcessNumber)
	}
}

func TestUpdateStatus(t *testing.T) {
	ms, svc, _, _ := newFixture(t, "AT-000001")
	ctx := context.Background()
	c, _ := svc.Create(ctx, "u1", CaseInput{ConsultationCode: "AT-000001"})

	ok, err := svc.UpdateStatus(ctx, "u1", c.ProcessNumber, clinic.SocialWorkInactive, "caso cerrado")
	if err != nil || !ok {
		t.Fatalf("expected update, got %v %v", ok, err)
	}
	got, _ := svc.Get(ctx, c.ProcessNumber)
	if got.Status != clinic.SocialWorkInactive || got.StatusObservations != "caso cerrado" {
		t.Fatalf("unexpected case: %+v", got)
	}

	ok, err = svc.UpdateStatus(ctx, "u1", "TS20240105-00099", clinic.SocialWorkActive, "")
	if err != nil || ok {
		t.Fatalf("expected false for missing case, got %v %v", ok, err)
	}
	if _, err := svc.UpdateStatus(ctx, "u1", c.ProcessNumber, "Cerrado", ""); !errors.Is(err, clinic.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if n := len(ms.AuditEntries()); n != 2 {
		t.Fatalf("expected insert+update audit entries, got %d", n)
	}
}

func TestUpdate_NoChangeWritesNoAudit(t *testing.T) {
	ms, svc, _, _ := newFixture(t, "AT-000001")
	ctx := context.Background()
	c, _ := svc.Create(ctx, "u1", CaseInput{ConsultationCode: "AT-000001", Details: Details{Complaints: "ninguna"}})

	same := "ninguna"
	if _, err := svc.Update(ctx, "u1", c.ProcessNumber, CasePatch{Complaints: &same}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if n := len(ms.AuditEntries()); n != 1 {
		t.Fatalf("expected only the insert entry, got %d", n)
	}

	obs := "seguimiento semanal"
	got, err := svc.Update(ctx, "u1", c.ProcessNumber, CasePatch{Observations: &obs})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Observations != obs {
		t.Fatalf("expected observations updated")
	}
	if n := len(ms.AuditEntries()); n != 2 {
		t.Fatalf("expected update audit entry, got %d", n)
	}
}

func TestDelete_IsLogical(t *testing.T) {
	_, svc, _, _ := newFixture(t, "AT-000001")
	ctx := context.Background()
	c, _ := svc.Create(ctx, "u1", CaseInput{ConsultationCode: "AT-000001"})

	if _, err := svc.Delete(ctx, "u1", c.ProcessNumber); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got, err := svc.Get(ctx, c.ProcessNumber)
	if err != nil {
		t.Fatalf("expected row to remain: %v", err)
	}
	if got.Status != clinic.SocialWorkInactive {
		t.Fatalf("expected inactive, got %s", got.Status)
	}
	if _, err := svc.Delete(ctx, "u1", "TS20240105-00099"); !errors.Is(err, clinic.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
