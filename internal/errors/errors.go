// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when the provider credentials are incomplete.
	ErrInvalidConfig = errors.New("invalid send config")

	// ErrInvalidTemplate is returned when the subject or body is empty.
	ErrInvalidTemplate = errors.New("invalid template")

	// ErrInvalidRate is returned when any rate field is not strictly positive.
	ErrInvalidRate = errors.New("invalid rate config")

	// ErrEmptyRecipients is returned when a campaign is started without recipients.
	ErrEmptyRecipients = errors.New("recipient list is empty")

	ErrContactNotFound = errors.New("contact not found")

	// ErrRunDraining is returned when a campaign is started again while sends
	// of its cancelled run are still in flight.
	ErrRunDraining = errors.New("previous run still has sends in flight")
)

// ValidationError describes a rejected input field. It unwraps to one of the
// sentinel errors above so callers can classify it with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
	Kind   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Kind, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// NewValidation builds a ValidationError of the given kind.
func NewValidation(kind error, field, reason string) error {
	return &ValidationError{Field: field, Reason: reason, Kind: kind}
}

// IsValidation reports whether err was produced by input validation.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v) || errors.Is(err, ErrEmptyRecipients)
}

// CampaignNotFoundError is returned when no campaign handle exists for an ID.
type CampaignNotFoundError struct {
	CampaignID string
}

func (e *CampaignNotFoundError) Error() string {
	return fmt.Sprintf("campaign with ID %s not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id string) error {
	return &CampaignNotFoundError{CampaignID: id}
}

// IsNotFound reports whether err means the requested resource does not exist.
func IsNotFound(err error) bool {
	var nf *CampaignNotFoundError
	return errors.As(err, &nf) || errors.Is(err, ErrContactNotFound)
}

// IsConflict reports whether err means the resource is busy with a previous run.
func IsConflict(err error) bool {
	return errors.Is(err, ErrRunDraining)
}
