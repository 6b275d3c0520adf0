package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"unsupported format", fmt.Errorf("decode report.pdf: %w", ErrUnsupportedFormat), "FILE001"},
		{"decode failure", fmt.Errorf("%w: invalid utf-8", ErrDecode), "FILE002"},
		{"no file", ErrNoFile, "FILE004"},
		{"empty file", ErrEmptyFile, "FILE005"},
		{"validation", NewValidationError("missing fields", "name"), "VAL001"},
		{"ownership type", &OwnershipError{Asset: "SALES"}, "OWN001"},
		{"ownership row string", errors.New("asset 'SALES' was created manually or imported and will not be overwritten"), "OWN001"},
		{"drift", ErrStructuralDrift, "DRIFT001"},
		{"credentials", ErrMissingCredentials, "CONN001"},
		{"driver unavailable", fmt.Errorf("connect: %w", ErrDriverUnavailable), "CONN002"},
		{"integrity sentinel", ErrIntegrityConflict, "DB002"},
		{"integrity from text", errors.New("ERROR: duplicate key value violates unique constraint"), "DB002"},
		{"connection refused", errors.New("dial tcp: connection refused"), "DB004"},
		{"custodian in use", ErrCustodianInUse, "REF001"},
		{"not found", fmt.Errorf("get job 9: %w", ErrNotFound), "NF001"},
		{"too many runs", ErrTooManyRuns, "UPL002"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"unknown", errors.New("something odd"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestMapError_UserErrorPassthrough(t *testing.T) {
	ue := &UserError{Technical: errors.New("x"), User: UserMessage{Message: "custom", Code: "VAL001"}}
	wrapped := fmt.Errorf("handler: %w", ue)

	if got := MapError(wrapped); got.Message != "custom" {
		t.Errorf("MapError() message = %q, want %q", got.Message, "custom")
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrCustodianInUse)
	if !strings.Contains(got, "(Code: REF001)") {
		t.Errorf("FormatUserError() = %q, want code REF001", got)
	}
	if FormatUserError(nil) != "" {
		t.Error("FormatUserError(nil) should be empty")
	}
}

func TestIsUserFacing(t *testing.T) {
	if !IsUserFacing(ErrNotFound) {
		t.Error("IsUserFacing(ErrNotFound) = false, want true")
	}
	if IsUserFacing(errors.New("boom")) {
		t.Error("IsUserFacing(boom) = true, want false")
	}
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true, want false")
	}
}

func TestNewUserError(t *testing.T) {
	if NewUserError(nil) != nil {
		t.Error("NewUserError(nil) should be nil")
	}
	ue := NewUserError(ErrEmptyFile)
	if !errors.Is(ue, ErrEmptyFile) {
		t.Error("UserError should unwrap to the technical error")
	}
	if ue.User.Code != "FILE005" {
		t.Errorf("User.Code = %q, want FILE005", ue.User.Code)
	}
}
