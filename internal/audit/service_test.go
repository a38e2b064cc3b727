package audit

import (
	"context"
	"testing"
	"time"
)

func TestService_AppendRequiresActorEntityAndAction(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Entry{Entity: "Client", Action: ActionInsert}); err == nil {
		t.Fatalf("expected error without actor")
	}
	if err := svc.Append(context.Background(), Entry{ActorID: "u", Action: ActionInsert}); err == nil {
		t.Fatalf("expected error without entity")
	}
	if err := svc.Append(context.Background(), Entry{ActorID: "u", Entity: "Client", Action: "UPSERT"}); err == nil {
		t.Fatalf("expected error for unknown action")
	}
	if repo.Len() != 0 {
		t.Fatalf("expected nothing appended")
	}
}

func TestService_RecordStampsIDAndTime(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	svc := NewService(repo).WithClock(func() time.Time { return now })

	if err := svc.Record(context.Background(), "u1", ActionDelete, "Client", "rollback"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	es := repo.Entries()
	if len(es) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(es))
	}
	if es[0].ID == "" {
		t.Fatalf("expected generated id")
	}
	if !es[0].CreatedAt.Equal(now) {
		t.Fatalf("expected clock time, got %v", es[0].CreatedAt)
	}
	if es[0].Action != ActionDelete || es[0].ActorID != "u1" {
		t.Fatalf("unexpected entry: %+v", es[0])
	}
}

func TestService_BindRedirectsWrites(t *testing.T) {
	base := NewMemoryRepo()
	scoped := NewMemoryRepo()
	svc := NewService(base)

	if err := svc.Bind(scoped).Record(context.Background(), "u", ActionInsert, "Sector", "x"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if base.Len() != 0 || scoped.Len() != 1 {
		t.Fatalf("expected write to bound repo only, base=%d scoped=%d", base.Len(), scoped.Len())
	}
}
