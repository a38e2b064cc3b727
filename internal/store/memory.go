package store

import (
	"context"
	"sort"
	"sync"

	"legal-clinic/internal/audit"
	"legal-clinic/internal/clinic"
	"legal-clinic/internal/codes"
)

// MemoryStore keeps all clinic data in process memory.
//
// Units of work are serialized by one mutex. Each Do runs against a copy of
// the state, which replaces the live state only when fn succeeds.
type MemoryStore struct {
	mu  sync.Mutex
	cur *memState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cur: newMemState()}
}

type memState struct {
	staff         map[string]clinic.InternalUser
	clients       map[string]clinic.Client
	consultations map[string]clinic.Consultation
	evidence      map[string][]clinic.Evidence
	cases         map[string]clinic.SocialWorkCase
	sectors       map[string]clinic.Sector
	audit         *audit.MemoryRepo
	// highWater is the greatest sequence of a deleted consultation code.
	highWater int
}

func newMemState() *memState {
	return &memState{
		staff:         map[string]clinic.InternalUser{},
		clients:       map[string]clinic.Client{},
		consultations: map[string]clinic.Consultation{},
		evidence:      map[string][]clinic.Evidence{},
		cases:         map[string]clinic.SocialWorkCase{},
		sectors:       map[string]clinic.Sector{},
		audit:         audit.NewMemoryRepo(),
	}
}

func (s *memState) clone() *memState {
	out := newMemState()
	for k, v := range s.staff {
		out.staff[k] = v
	}
	for k, v := range s.clients {
		out.clients[k] = v
	}
	for k, v := range s.consultations {
		out.consultations[k] = v
	}
	for k, v := range s.evidence {
		out.evidence[k] = append([]clinic.Evidence(nil), v...)
	}
	for k, v := range s.cases {
		out.cases[k] = v
	}
	for k, v := range s.sectors {
		out.sectors[k] = v
	}
	for _, e := range s.audit.Entries() {
		_ = out.audit.Append(context.Background(), e)
	}
	out.highWater = s.highWater
	return out
}

func (m *MemoryStore) Do(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.cur.clone()
	if err := fn(ctx, memRepos(nopLocker{}, func() *memState { return work })); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.cur = work
	return nil
}

func (m *MemoryStore) Direct() Repos {
	return memRepos(&m.mu, func() *memState { return m.cur })
}

// AddStaff registers an internal user. Staff rows are provisioned outside
// the workflows.
func (m *MemoryStore) AddStaff(u clinic.InternalUser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur.staff[u.ID] = u
}

// AuditEntries returns every committed audit entry in append order.
func (m *MemoryStore) AuditEntries() []audit.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur.audit.Entries()
}

type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}

type memBase struct {
	lock  sync.Locker
	state func() *memState
}

func (b memBase) with(fn func(s *memState)) {
	b.lock.Lock()
	defer b.lock.Unlock()
	fn(b.state())
}

func memRepos(lock sync.Locker, state func() *memState) Repos {
	b := memBase{lock: lock, state: state}
	return Repos{
		Staff:         memStaff{b},
		Clients:       memClients{b},
		Consultations: memConsultations{b},
		Evidence:      memEvidence{b},
		SocialWork:    memSocialWork{b},
		Sectors:       memSectors{b},
		Audit:         memAudit{b},
	}
}

type memStaff struct{ memBase }

func (r memStaff) Get(ctx context.Context, id string) (u clinic.InternalUser, ok bool, err error) {
	r.with(func(s *memState) { u, ok = s.staff[id] })
	return u, ok, nil
}

type memClients struct{ memBase }

func (r memClients) Get(ctx context.Context, id string) (c clinic.Client, ok bool, err error) {
	r.with(func(s *memState) { c, ok = s.clients[id] })
	return c, ok, nil
}

func (r memClients) Insert(ctx context.Context, c clinic.Client) (err error) {
	r.with(func(s *memState) {
		if _, exists := s.clients[c.ID]; exists {
			err = alreadyExists(clinic.EntityClient, c.ID)
			return
		}
		s.clients[c.ID] = c
	})
	return err
}

func (r memClients) Delete(ctx context.Context, id string) (ok bool, err error) {
	r.with(func(s *memState) {
		if _, ok = s.clients[id]; ok {
			delete(s.clients, id)
		}
	})
	return ok, nil
}

type memConsultations struct{ memBase }

func (r memConsultations) Get(ctx context.Context, code string) (c clinic.Consultation, ok bool, err error) {
	r.with(func(s *memState) { c, ok = s.consultations[code] })
	return c, ok, nil
}

func (r memConsultations) MaxCode(ctx context.Context) (maxCode string, err error) {
	r.with(func(s *memState) {
		best := -1
		for code := range s.consultations {
			if n := codes.SequenceOf(codes.ConsultationPrefix, code); n > best {
				best, maxCode = n, code
			}
		}
		if s.highWater > best {
			maxCode = consultationCodeAt(int64(s.highWater))
		}
	})
	return maxCode, nil
}

func (r memConsultations) Insert(ctx context.Context, c clinic.Consultation) (err error) {
	r.with(func(s *memState) {
		if _, exists := s.consultations[c.Code]; exists {
			err = alreadyExists(clinic.EntityConsultation, c.Code)
			return
		}
		if _, ok := s.clients[c.ClientID]; !ok {
			err = missingReference(clinic.EntityClient, c.ClientID)
			return
		}
		s.consultations[c.Code] = c
	})
	return err
}

func (r memConsultations) Update(ctx context.Context, c clinic.Consultation) (ok bool, err error) {
	r.with(func(s *memState) {
		if _, ok = s.consultations[c.Code]; ok {
			s.consultations[c.Code] = c
		}
	})
	return ok, nil
}

func (r memConsultations) Delete(ctx context.Context, code string) (ok bool, err error) {
	r.with(func(s *memState) {
		if _, ok = s.consultations[code]; ok {
			delete(s.consultations, code)
			delete(s.evidence, code)
			if n := codes.SequenceOf(codes.ConsultationPrefix, code); n > s.highWater {
				s.highWater = n
			}
		}
	})
	return ok, nil
}

func (r memConsultations) List(ctx context.Context, f ConsultationFilter) (out []clinic.Consultation, err error) {
	r.with(func(s *memState) {
		for _, c := range s.consultations {
			if f.ClientID != "" && c.ClientID != f.ClientID {
				continue
			}
			if f.Status != "" && c.Status != f.Status {
				continue
			}
			if f.Type != "" && c.Type != f.Type {
				continue
			}
			if f.Subject != "" && c.Subject != f.Subject {
				continue
			}
			if !f.From.IsZero() && c.Date.Before(f.From) {
				continue
			}
			if !f.To.IsZero() && !c.Date.Before(f.To) {
				continue
			}
			out = append(out, c)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		return codes.SequenceOf(codes.ConsultationPrefix, out[i].Code) < codes.SequenceOf(codes.ConsultationPrefix, out[j].Code)
	})
	return out, nil
}

type memEvidence struct{ memBase }

func (r memEvidence) Insert(ctx context.Context, e clinic.Evidence) (err error) {
	r.with(func(s *memState) {
		if _, ok := s.consultations[e.ConsultationCode]; !ok {
			err = missingReference(clinic.EntityConsultation, e.ConsultationCode)
			return
		}
		s.evidence[e.ConsultationCode] = append(s.evidence[e.ConsultationCode], e)
	})
	return err
}

func (r memEvidence) ListByConsultation(ctx context.Context, code string) (out []clinic.Evidence, err error) {
	r.with(func(s *memState) { out = append(out, s.evidence[code]...) })
	return out, nil
}

type memSocialWork struct{ memBase }

func (r memSocialWork) Get(ctx context.Context, number string) (c clinic.SocialWorkCase, ok bool, err error) {
	r.with(func(s *memState) { c, ok = s.cases[number] })
	return c, ok, nil
}

func (r memSocialWork) GetByConsultation(ctx context.Context, code string) (c clinic.SocialWorkCase, ok bool, err error) {
	r.with(func(s *memState) {
		for _, v := range s.cases {
			if v.ConsultationCode == code {
				c, ok = v, true
				return
			}
		}
	})
	return c, ok, nil
}

func (r memSocialWork) CountOnDay(ctx context.Context, dateKey string) (n int, err error) {
	r.with(func(s *memState) {
		for _, v := range s.cases {
			if v.EntryDay == dateKey {
				n++
			}
		}
	})
	return n, nil
}

func (r memSocialWork) Insert(ctx context.Context, c clinic.SocialWorkCase) (err error) {
	r.with(func(s *memState) {
		if _, exists := s.cases[c.ProcessNumber]; exists {
			err = alreadyExists(clinic.EntitySocialWork, c.ProcessNumber)
			return
		}
		for _, v := range s.cases {
			if v.ConsultationCode == c.ConsultationCode {
				err = alreadyExists(clinic.EntitySocialWork, c.ConsultationCode)
				return
			}
		}
		s.cases[c.ProcessNumber] = c
	})
	return err
}

func (r memSocialWork) Update(ctx context.Context, c clinic.SocialWorkCase) (ok bool, err error) {
	r.with(func(s *memState) {
		if _, ok = s.cases[c.ProcessNumber]; ok {
			s.cases[c.ProcessNumber] = c
		}
	})
	return ok, nil
}

func (r memSocialWork) List(ctx context.Context, f SocialWorkFilter) (out []clinic.SocialWorkCase, err error) {
	r.with(func(s *memState) {
		for _, v := range s.cases {
			if f.Status != "" && v.Status != f.Status {
				continue
			}
			if !f.EnteredFrom.IsZero() && v.EntryDate.Before(f.EnteredFrom) {
				continue
			}
			if !f.EnteredTo.IsZero() && !v.EntryDate.Before(f.EnteredTo) {
				continue
			}
			out = append(out, v)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ProcessNumber < out[j].ProcessNumber })
	return out, nil
}

type memSectors struct{ memBase }

func (r memSectors) List(ctx context.Context) (out []clinic.Sector, err error) {
	r.with(func(s *memState) {
		for _, v := range s.sectors {
			out = append(out, v)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memSectors) Get(ctx context.Context, id string) (v clinic.Sector, ok bool, err error) {
	r.with(func(s *memState) { v, ok = s.sectors[id] })
	return v, ok, nil
}

func (r memSectors) ZoneOf(ctx context.Context, name string) (zone string, ok bool, err error) {
	r.with(func(s *memState) {
		for _, v := range s.sectors {
			if v.Name == name {
				zone, ok = v.Zone, true
				return
			}
		}
	})
	return zone, ok, nil
}

func (r memSectors) Insert(ctx context.Context, v clinic.Sector) (err error) {
	r.with(func(s *memState) {
		if _, exists := s.sectors[v.ID]; exists {
			err = alreadyExists(clinic.EntitySector, v.ID)
			return
		}
		s.sectors[v.ID] = v
	})
	return err
}

func (r memSectors) Update(ctx context.Context, v clinic.Sector) (ok bool, err error) {
	r.with(func(s *memState) {
		if _, ok = s.sectors[v.ID]; ok {
			s.sectors[v.ID] = v
		}
	})
	return ok, nil
}

func (r memSectors) Delete(ctx context.Context, id string) (ok bool, err error) {
	r.with(func(s *memState) {
		if _, ok = s.sectors[id]; ok {
			delete(s.sectors, id)
		}
	})
	return ok, nil
}

type memAudit struct{ memBase }

func (r memAudit) Append(ctx context.Context, e audit.Entry) (err error) {
	r.with(func(s *memState) { err = s.audit.Append(ctx, e) })
	return err
}
