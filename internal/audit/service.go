package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit entries.
// It is append-only; there is no Update or Delete.
type Repository interface {
	Append(ctx context.Context, e Entry) error
}

// Service stamps and appends audit entries.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// WithClock returns a copy of s using clock for CreatedAt.
func (s *Service) WithClock(clock func() time.Time) *Service {
	out := *s
	out.clock = clock
	return &out
}

// Bind returns a copy of s writing to repo. Workflows bind the service to
// the transaction-scoped repository so entries commit with the mutation.
func (s *Service) Bind(repo Repository) *Service {
	out := *s
	out.repo = repo
	return &out
}

var ErrInvalidEntry = errors.New("audit: invalid entry")

func (s *Service) Append(ctx context.Context, e Entry) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.ActorID == "" || e.Entity == "" || !e.Action.Valid() {
		return ErrInvalidEntry
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Record appends one entry for actorID.
func (s *Service) Record(ctx context.Context, actorID string, action Action, entity, description string) error {
	return s.Append(ctx, Entry{
		ActorID:     actorID,
		Action:      action,
		Entity:      entity,
		Description: description,
	})
}
