package clinic

import (
	"errors"
	"fmt"
)

// Entity names used in audit entries and not-found errors.
const (
	EntityClient       = "Client"
	EntityInternalUser = "InternalUser"
	EntityConsultation = "Consultation"
	EntityEvidence     = "Evidence"
	EntitySocialWork   = "SocialWorkCase"
	EntitySector       = "Sector"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrAllocation    = errors.New("code allocation failed")
	ErrTransaction   = errors.New("transaction failed")
)

// NotFoundError names the missing entity and the key that was looked up.
// errors.Is(err, ErrNotFound) holds for it.
type NotFoundError struct {
	Entity string
	Key    string
}

func NotFound(entity, key string) error {
	return &NotFoundError{Entity: entity, Key: key}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Invalid wraps a validation message so callers can match ErrValidation.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
