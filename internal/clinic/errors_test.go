package clinic

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundError_MatchesSentinelThroughWrapping(t *testing.T) {
	err := fmt.Errorf("create intake: %w", NotFound(EntityClient, "1710000000"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound match")
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError")
	}
	if nf.Entity != EntityClient || nf.Key != "1710000000" {
		t.Fatalf("unexpected fields: %+v", nf)
	}
	if errors.Is(err, ErrValidation) {
		t.Fatalf("not-found must not match validation")
	}
}

func TestInvalid_WrapsValidation(t *testing.T) {
	err := Invalid("missing %s", "internal_id")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation")
	}
	if err.Error() != "validation failed: missing internal_id" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestSocialWorkStatus_Valid(t *testing.T) {
	if !SocialWorkActive.Valid() || !SocialWorkInactive.Valid() {
		t.Fatalf("expected known statuses to be valid")
	}
	if SocialWorkStatus("Active").Valid() {
		t.Fatalf("expected unknown status to be invalid")
	}
}
