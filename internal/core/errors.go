package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by the store, import and extraction layers.
var (
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrDecode             = errors.New("could not decode file")
	ErrNoFile             = errors.New("no file provided")
	ErrEmptyFile          = errors.New("empty file")
	ErrFileTooLarge       = errors.New("file too large")
	ErrStructuralDrift    = errors.New("file changed: mapped columns not found")
	ErrMissingCredentials = errors.New("missing connection credentials: url, username and password are required")
	ErrDriverUnavailable  = errors.New("no connection driver available")
	ErrIntegrityConflict  = errors.New("integrity conflict: value already exists")
	ErrCustodianInUse     = errors.New("custodian is referenced by assets")
	ErrNotFound           = errors.New("record not found")
	ErrTooManyRuns        = errors.New("too many concurrent extraction runs, please try again later")
	ErrUnknownFlow        = errors.New("unknown import flow")
	ErrForbidden          = errors.New("operation not allowed")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationError reports missing or invalid input fields.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s (%s)", e.Message, strings.Join(e.Fields, ", "))
}

// NewValidationError builds a ValidationError for the given fields.
func NewValidationError(msg string, fields ...string) *ValidationError {
	return &ValidationError{Fields: fields, Message: msg}
}

// OwnershipError is raised when reconciliation would overwrite an asset
// owned by another provenance.
type OwnershipError struct {
	Asset      string
	Provenance string
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("asset '%s' was created manually or imported and will not be overwritten", e.Asset)
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
