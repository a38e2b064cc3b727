package intake

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"legal-clinic/internal/audit"
	"legal-clinic/internal/clinic"
	"legal-clinic/internal/store"
)

type countingRecorder struct {
	mu          sync.Mutex
	finished    map[string]int
	failed      map[string]int
	opened      map[string]int
	compensated int
}

func newRecorder() *countingRecorder {
	return &countingRecorder{finished: map[string]int{}, failed: map[string]int{}, opened: map[string]int{}}
}

func (r *countingRecorder) IntakeFinished(variant string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failed[variant]++
		return
	}
	r.finished[variant]++
}

func (r *countingRecorder) SocialWorkOpened(trigger string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened[trigger]++
}

func (r *countingRecorder) Compensated(error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compensated++
}

// failingCases makes every social-work insert inside a unit of work fail.
type failingCases struct {
	*store.MemoryStore
}

type brokenSocialWork struct {
	store.SocialWorkRepo
}

func (brokenSocialWork) Insert(context.Context, clinic.SocialWorkCase) error {
	return errors.New("disk full")
}

func (f failingCases) Do(ctx context.Context, fn func(ctx context.Context, r store.Repos) error) error {
	return f.MemoryStore.Do(ctx, func(ctx context.Context, r store.Repos) error {
		r.SocialWork = brokenSocialWork{r.SocialWork}
		return fn(ctx, r)
	})
}

// contestedClient fails like failingCases, then registers the same client
// with a consultation of its own before the failure is reported.
type contestedClient struct {
	*store.MemoryStore
}

func (c contestedClient) Do(ctx context.Context, fn func(ctx context.Context, r store.Repos) error) error {
	err := failingCases{c.MemoryStore}.Do(ctx, fn)
	if err == nil {
		return nil
	}
	r := c.Direct()
	if cl := client("1710000000"); r.Clients.Insert(ctx, cl) == nil {
		_ = r.Consultations.Insert(ctx, clinic.Consultation{Code: "AT-000050", InternalID: "u1", ClientID: cl.ID})
	}
	return err
}

func seedStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	ms := store.NewMemoryStore()
	ms.AddStaff(clinic.InternalUser{ID: "u1", FirstName: "Mateo", Role: "lawyer", Active: true})
	return ms
}

func newSvc(uow store.UnitOfWork, rec Recorder, now *time.Time) *Service {
	return NewService(uow, audit.NewService(nil), Options{Metrics: rec, HomeCity: "Quito"}).
		WithClock(func() time.Time { return *now })
}

func client(id string) clinic.Client {
	return clinic.Client{ID: id, FirstName: "Ana", LastName: "Paz", City: "Quito"}
}

func fullIntake(clientID string, referred bool) IntakeRequest {
	return IntakeRequest{
		Client:       client(clientID),
		Consultation: ConsultationFields{Subject: "Familia", SocialWorkRequired: referred},
	}
}

func TestCreateIntake_NewClientReferred(t *testing.T) {
	ms := seedStore(t)
	now := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)
	rec := newRecorder()
	svc := newSvc(ms, rec, &now)
	ctx := context.Background()

	res, err := svc.CreateIntake(ctx, "u1", fullIntake("1710000000", true))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.ClientCreated {
		t.Fatalf("expected client to be created")
	}
	if res.Consultation.Code != "AT-000001" || res.Consultation.InternalID != "u1" {
		t.Fatalf("unexpected consultation: %+v", res.Consultation)
	}
	if res.SocialWork == nil || res.SocialWork.ProcessNumber != "TS20240105-00001" {
		t.Fatalf("expected social-work case, got %+v", res.SocialWork)
	}
	if res.SocialWork.Status != clinic.SocialWorkActive {
		t.Fatalf("expected active case, got %s", res.SocialWork.Status)
	}
	if res.Evidence.Name != clinic.NoDocumentName {
		t.Fatalf("expected no-document marker, got %q", res.Evidence.Name)
	}

	ev, err := svc.Evidence(ctx, res.Consultation.Code)
	if err != nil || len(ev) != 1 {
		t.Fatalf("expected one evidence row, got %d %v", len(ev), err)
	}

	entities := map[string]int{}
	for _, e := range ms.AuditEntries() {
		if e.Action != audit.ActionInsert || e.ActorID != "u1" {
			t.Fatalf("unexpected audit entry: %+v", e)
		}
		entities[e.Entity]++
	}
	for _, want := range []string{clinic.EntityClient, clinic.EntityConsultation, clinic.EntityEvidence, clinic.EntitySocialWork} {
		if entities[want] != 1 {
			t.Fatalf("expected one insert audit for %s, got %v", want, entities)
		}
	}
	if rec.finished[variantFull] != 1 || rec.opened[triggerIntake] != 1 {
		t.Fatalf("unexpected counters: %+v", rec)
	}
}

func TestCreateIntake_ExistingClientIsReused(t *testing.T) {
	ms := seedStore(t)
	now := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)
	svc := newSvc(ms, nil, &now)
	ctx := context.Background()
	if err := ms.Direct().Clients.Insert(ctx, client("1710000000")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := fullIntake("1710000000", false)
	req.Attachment = Attachment{Name: "  cedula.pdf ", URL: "https://files.example.com/cedula.pdf"}
	res, err := svc.CreateIntake(ctx, "u1", req)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.ClientCreated || res.SocialWork != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Evidence.Name != "cedula.pdf" {
		t.Fatalf("expected trimmed name, got %q", res.Evidence.Name)
	}
}

func TestCreateIntake_CodesAreSequential(t *testing.T) {
	ms := seedStore(t)
	now := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)
	svc := newSvc(ms, nil, &now)
	ctx := context.Background()

	for i, want := range []string{"AT-000001", "AT-000002", "AT-000003"} {
		res, err := svc.CreateIntake(ctx, "u1", fullIntake("171000000"+string(rune('0'+i)), false))
		if err != nil {
			t.Fatalf("intake %d: %v", i, err)
		}
		if res.Consultation.Code != want {
			t.Fatalf("expected %s, got %s", want, res.Consultation.Code)
		}
	}
}

func TestCreateConsultation_ConcurrentCodesAreUnique(t *testing.T) {
	ms := seedStore(t)
	now := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)
	svc := newSvc(ms, nil, &now)
	ctx := context.Background()
	if err := ms.Direct().Clients.Insert(ctx, client("1710000000")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	const n = 20
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = map[string]bool{}
		cases = map[string]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(referred bool) {
			defer wg.Done()
			res, err := svc.CreateConsultation(ctx, "u1", ConsultationInput{
				ClientID:           "1710000000",
				ConsultationFields: ConsultationFields{Subject: "Laboral", SocialWorkRequired: referred},
			})
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			codes[res.Consultation.Code] = true
			if res.SocialWork != nil {
				cases[res.SocialWork.ProcessNumber] = true
			}
		}(i%2 == 0)
	}
	wg.Wait()

	if len(codes) != n {
		t.Fatalf("expected %d distinct codes, got %d", n, len(codes))
	}
	if len(cases) != n/2 {
		t.Fatalf("expected %d distinct process numbers, got %d", n/2, len(cases))
	}
}

func TestCreateConsultation_ProcessNumbersRestartEachDay(t *testing.T) {
	ms := seedStore(t)
	now := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)
	svc := newSvc(ms, nil, &now)
	ctx := context.Background()
	_ = ms.Direct().Clients.Insert(ctx, client("1710000000"))

	in := ConsultationInput{ClientID: "1710000000", ConsultationFields: ConsultationFields{Subject: "Familia", SocialWorkRequired: true}}
	a, _ := svc.CreateConsultation(ctx, "u1", in)
	b, _ := svc.CreateConsultation(ctx, "u1", in)
	now = now.Add(24 * time.Hour)
	c, err := svc.CreateConsultation(ctx, "u1", in)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	got := []string{a.SocialWork.ProcessNumber, b.SocialWork.ProcessNumber, c.SocialWork.ProcessNumber}
	want := []string{"TS20240105-00001", "TS20240105-00002", "TS20240106-00001"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if c.Consultation.Code != "AT-000003" {
		t.Fatalf("consultation series must not restart, got %s", c.Consultation.Code)
	}
}

func TestCreateConsultation_MissingClient(t *testing.T) {
	ms := seedStore(t)
	now := time.Now()
	rec := newRecorder()
	svc := newSvc(ms, rec, &now)

	_, err := svc.CreateConsultation(context.Background(), "u1", ConsultationInput{
		ClientID:           "0999999999",
		ConsultationFields: ConsultationFields{Subject: "Familia"},
	})
	var nf *clinic.NotFoundError
	if !errors.As(err, &nf) || nf.Entity != clinic.EntityClient {
		t.Fatalf("expected client not found, got %v", err)
	}
	if rec.failed[variantLightweight] != 1 {
		t.Fatalf("expected failure counted")
	}
}

func TestCreateIntake_UnknownActorPersistsNothing(t *testing.T) {
	ms := seedStore(t)
	now := time.Now()
	svc := newSvc(ms, nil, &now)
	ctx := context.Background()

	_, err := svc.CreateIntake(ctx, "ghost", fullIntake("1710000000", true))
	var nf *clinic.NotFoundError
	if !errors.As(err, &nf) || nf.Entity != clinic.EntityInternalUser {
		t.Fatalf("expected internal user not found, got %v", err)
	}
	if _, ok, _ := ms.Direct().Clients.Get(ctx, "1710000000"); ok {
		t.Fatalf("client must not be persisted")
	}
	if n := len(ms.AuditEntries()); n != 0 {
		t.Fatalf("expected no audit entries, got %d", n)
	}
}

func TestCreateIntake_RejectsInvalidInput(t *testing.T) {
	ms := seedStore(t)
	now := time.Now()
	svc := newSvc(ms, nil, &now)
	ctx := context.Background()

	cases := map[string]IntakeRequest{
		"missing subject":  {Client: client("1710000000")},
		"missing client":   {Consultation: ConsultationFields{Subject: "Familia"}},
		"bad url":          {Client: client("1710000000"), Consultation: ConsultationFields{Subject: "Familia"}, Attachment: Attachment{URL: "not a url"}},
		"missing lastname": {Client: clinic.Client{ID: "1710000000", FirstName: "Ana"}, Consultation: ConsultationFields{Subject: "Familia"}},
	}
	for name, req := range cases {
		if _, err := svc.CreateIntake(ctx, "u1", req); !errors.Is(err, clinic.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	if _, err := svc.CreateIntake(ctx, "", fullIntake("1710000000", false)); !errors.Is(err, clinic.ErrValidation) {
		t.Fatalf("expected validation error for empty actor, got %v", err)
	}
}

func TestCreateIntake_CompensatesCreatedClient(t *testing.T) {
	ms := seedStore(t)
	now := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)
	rec := newRecorder()
	svc := newSvc(failingCases{ms}, rec, &now)
	ctx := context.Background()

	_, err := svc.CreateIntake(ctx, "u1", fullIntake("1710000000", true))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected social-work failure, got %v", err)
	}

	r := ms.Direct()
	if _, ok, _ := r.Clients.Get(ctx, "1710000000"); ok {
		t.Fatalf("client must be removed")
	}
	if _, ok, _ := r.Consultations.Get(ctx, "AT-000001"); ok {
		t.Fatalf("consultation must not be persisted")
	}
	if _, ok, _ := r.SocialWork.GetByConsultation(ctx, "AT-000001"); ok {
		t.Fatalf("case must not be persisted")
	}

	es := ms.AuditEntries()
	if len(es) != 1 || es[0].Action != audit.ActionDelete || es[0].Entity != clinic.EntityClient {
		t.Fatalf("expected a single client delete entry, got %+v", es)
	}
	if rec.compensated != 1 || rec.failed[variantFull] != 1 {
		t.Fatalf("unexpected counters: %+v", rec)
	}
}

func TestCreateIntake_ExistingClientNotCompensated(t *testing.T) {
	ms := seedStore(t)
	now := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)
	rec := newRecorder()
	svc := newSvc(failingCases{ms}, rec, &now)
	ctx := context.Background()
	_ = ms.Direct().Clients.Insert(ctx, client("1710000000"))

	if _, err := svc.CreateIntake(ctx, "u1", fullIntake("1710000000", true)); err == nil {
		t.Fatalf("expected failure")
	}
	if _, ok, _ := ms.Direct().Clients.Get(ctx, "1710000000"); !ok {
		t.Fatalf("pre-existing client must survive")
	}
	if rec.compensated != 0 || len(ms.AuditEntries()) != 0 {
		t.Fatalf("expected no compensation")
	}
}

func TestCreateIntake_ClientWithConsultationsNotCompensated(t *testing.T) {
	ms := seedStore(t)
	now := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)
	rec := newRecorder()
	svc := newSvc(contestedClient{ms}, rec, &now)
	ctx := context.Background()

	if _, err := svc.CreateIntake(ctx, "u1", fullIntake("1710000000", true)); err == nil {
		t.Fatalf("expected failure")
	}
	if _, ok, _ := ms.Direct().Clients.Get(ctx, "1710000000"); !ok {
		t.Fatalf("client with consultations must be kept")
	}
	if n := len(ms.AuditEntries()); n != 0 {
		t.Fatalf("expected no DELETE Client entry when nothing was removed, got %d entries", n)
	}
	if rec.compensated != 1 {
		t.Fatalf("expected compensation attempt to be counted, got %d", rec.compensated)
	}
}

func TestAlertNote_SetAtCreationOnly(t *testing.T) {
	ms := seedStore(t)
	now := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)
	svc := newSvc(ms, nil, &now)
	ctx := context.Background()

	req := fullIntake("1710000000", false)
	req.Client.AcademicInstruction = "Superior"
	req.Client.City = "Guayaquil"
	req.Consultation.Subject = "Tierras"
	res, err := svc.CreateIntake(ctx, "u1", req)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	note := res.Consultation.AlertNote
	for _, part := range []string{"Superior", "Tierras", "Reside fuera de Quito", "Guayaquil"} {
		if !strings.Contains(note, part) {
			t.Fatalf("expected %q in note %q", part, note)
		}
	}

	subject := "Familia"
	got, err := svc.UpdateConsultation(ctx, "u1", res.Consultation.Code, ConsultationPatch{Subject: &subject})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Subject != "Familia" || got.AlertNote != note {
		t.Fatalf("expected note unchanged after update, got %q", got.AlertNote)
	}

	plain, err := svc.CreateIntake(ctx, "u1", fullIntake("1710000001", false))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if plain.Consultation.AlertNote != "" {
		t.Fatalf("expected empty note, got %q", plain.Consultation.AlertNote)
	}
}

func TestUpdateConsultation_NoChangeWritesNoAudit(t *testing.T) {
	ms := seedStore(t)
	now := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)
	svc := newSvc(ms, nil, &now)
	ctx := context.Background()
	res, _ := svc.CreateIntake(ctx, "u1", fullIntake("1710000000", false))
	before := len(ms.AuditEntries())

	same := "Familia"
	got, err := svc.UpdateConsultation(ctx, "u1", res.Consultation.Code, ConsultationPatch{Subject: &same})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Code != res.Consultation.Code {
		t.Fatalf("expected stored row back")
	}
	if n := len(ms.AuditEntries()); n != before {
		t.Fatalf("expected %d audit entries, got %d", before, n)
	}

	if _, err := svc.UpdateConsultation(ctx, "u1", "AT-000404", ConsultationPatch{Subject: &same}); !errors.Is(err, clinic.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateConsultation_ReferralOpensCaseOnce(t *testing.T) {
	ms := seedStore(t)
	now := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)
	rec := newRecorder()
	svc := newSvc(ms, rec, &now)
	ctx := context.Background()
	res, _ := svc.CreateIntake(ctx, "u1", fullIntake("1710000000", false))

	on, off := true, false
	if _, err := svc.UpdateConsultation(ctx, "u1", res.Consultation.Code, ConsultationPatch{SocialWorkRequired: &on}); err != nil {
		t.Fatalf("first referral: %v", err)
	}
	if _, err := svc.UpdateConsultation(ctx, "u1", res.Consultation.Code, ConsultationPatch{SocialWorkRequired: &off}); err != nil {
		t.Fatalf("clear referral: %v", err)
	}
	if _, err := svc.UpdateConsultation(ctx, "u1", res.Consultation.Code, ConsultationPatch{SocialWorkRequired: &on}); err != nil {
		t.Fatalf("second referral: %v", err)
	}

	list, _ := ms.Direct().SocialWork.List(ctx, store.SocialWorkFilter{})
	if len(list) != 1 {
		t.Fatalf("expected exactly one case, got %d", len(list))
	}
	if list[0].ConsultationCode != res.Consultation.Code {
		t.Fatalf("case linked to wrong consultation: %+v", list[0])
	}
	if rec.opened[triggerUpdate] != 1 || rec.opened[triggerIntake] != 0 {
		t.Fatalf("expected one open counted as update, got %v", rec.opened)
	}
}

func TestDeleteConsultation_KeepsCase(t *testing.T) {
	ms := seedStore(t)
	now := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)
	svc := newSvc(ms, nil, &now)
	ctx := context.Background()
	res, _ := svc.CreateIntake(ctx, "u1", fullIntake("1710000000", true))

	gone, err := svc.DeleteConsultation(ctx, "u1", res.Consultation.Code)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if gone.Code != res.Consultation.Code {
		t.Fatalf("expected deleted snapshot, got %+v", gone)
	}
	if _, err := svc.Get(ctx, res.Consultation.Code); !errors.Is(err, clinic.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if _, ok, _ := ms.Direct().SocialWork.Get(ctx, res.SocialWork.ProcessNumber); !ok {
		t.Fatalf("social-work case must be kept")
	}

	es := ms.AuditEntries()
	last := es[len(es)-1]
	if last.Action != audit.ActionDelete || last.Entity != clinic.EntityConsultation {
		t.Fatalf("unexpected last audit entry: %+v", last)
	}
	if _, err := svc.DeleteConsultation(ctx, "u1", res.Consultation.Code); !errors.Is(err, clinic.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestDeleteConsultation_CodeIsNotReissued(t *testing.T) {
	ms := seedStore(t)
	now := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)
	svc := newSvc(ms, nil, &now)
	ctx := context.Background()

	first, err := svc.CreateIntake(ctx, "u1", fullIntake("1710000000", true))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := svc.DeleteConsultation(ctx, "u1", first.Consultation.Code); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	second, err := svc.CreateIntake(ctx, "u1", fullIntake("1710000000", true))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if second.Consultation.Code != "AT-000002" {
		t.Fatalf("expected AT-000002 after deleting AT-000001, got %s", second.Consultation.Code)
	}
	if second.SocialWork == nil {
		t.Fatalf("expected a new case for the new consultation")
	}
	if second.SocialWork.ConsultationCode != "AT-000002" || second.SocialWork.ProcessNumber != "TS20240105-00002" {
		t.Fatalf("unexpected case: %+v", second.SocialWork)
	}
	if kept, ok, _ := ms.Direct().SocialWork.GetByConsultation(ctx, "AT-000001"); !ok || kept.ProcessNumber != first.SocialWork.ProcessNumber {
		t.Fatalf("expected the old case to stay linked to AT-000001")
	}
}

func TestList_FiltersByClient(t *testing.T) {
	ms := seedStore(t)
	now := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)
	svc := newSvc(ms, nil, &now)
	ctx := context.Background()
	_, _ = svc.CreateIntake(ctx, "u1", fullIntake("1710000000", false))
	_, _ = svc.CreateIntake(ctx, "u1", fullIntake("1710000001", false))
	_, _ = svc.CreateIntake(ctx, "u1", fullIntake("1710000000", false))

	list, err := svc.List(ctx, store.ConsultationFilter{ClientID: "1710000000"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(list) != 2 || list[0].Code != "AT-000001" || list[1].Code != "AT-000003" {
		t.Fatalf("unexpected list: %+v", list)
	}
}
