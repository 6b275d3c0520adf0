package core

// error_messages.go maps technical errors to user-facing messages with
// support codes.
//
// Codes by category:
//
//	FILE001 unsupported format     FILE002 unreadable file
//	FILE003 file too large         FILE004 no file selected
//	FILE005 empty file
//	VAL001  validation failed      OWN001  ownership violation
//	DRIFT001 file changed          CONN001 missing credentials
//	CONN002 no driver available    DB002   duplicate value
//	DB004   database unreachable   REF001  custodian in use
//	NF001   not found              UPL002  too many runs
//	RATE001 rate limited           AUTH001 bad login
//	ERR000  fallback
//
// Sentinels are matched with errors.Is/As first. Errors that arrive as plain
// text (driver messages, per-row strings) fall back to case-insensitive
// substring patterns; the first match wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgUnsupported = UserMessage{"File format is not supported", "Upload a .csv, .txt, .xlsx, .xlsm or .xls file", "FILE001"}
	msgDecode      = UserMessage{"Could not read the file", "Check the delimiter and save the file as UTF-8", "FILE002"}
	msgTooLarge    = UserMessage{"File is too large", "Split the file or raise the upload limit", "FILE003"}
	msgNoFile      = UserMessage{"No file was selected", "Please select a file to upload", "FILE004"}
	msgEmptyFile   = UserMessage{"The uploaded file has no data rows", "Upload a file with a header and at least one row", "FILE005"}
	msgValidation  = UserMessage{"Some required fields are missing or invalid", "Fill in every required field", "VAL001"}
	msgOwnership   = UserMessage{"Asset was created manually or imported and will not be overwritten", "Rename or remove the asset before extracting again", "OWN001"}
	msgDrift       = UserMessage{"The file changed since the columns were mapped", "Upload the file again and redo the mapping", "DRIFT001"}
	msgCredentials = UserMessage{"Connection URL, username and password are required", "Complete the connection settings", "CONN001"}
	msgDriver      = UserMessage{"No database driver could open the connection", "Install the JDBC driver or check the connection settings", "CONN002"}
	msgIntegrity   = UserMessage{"This value must be unique but already exists", "Choose a different value", "DB002"}
	msgDBDown      = UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}
	msgInUse       = UserMessage{"Custodian is linked to assets and cannot be removed", "Reassign the assets first", "REF001"}
	msgNotFound    = UserMessage{"Record not found", "Refresh the page and try again", "NF001"}
	msgBusy        = UserMessage{"System is busy processing other extractions", "Please wait a moment and try again", "UPL002"}
	msgRate        = UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}
	msgUnknownFlow = UserMessage{"Unknown import flow", "Pick one of the listed import flows", "NF001"}
	msgForbidden   = UserMessage{"Operation not allowed", "This account cannot be changed this way", "VAL001"}
	msgLogin       = UserMessage{"Invalid credentials", "Check your username and password", "AUTH001"}
)

// sentinelMessages is consulted with errors.Is in order.
var sentinelMessages = []struct {
	target error
	msg    UserMessage
}{
	{ErrUnsupportedFormat, msgUnsupported},
	{ErrDecode, msgDecode},
	{ErrFileTooLarge, msgTooLarge},
	{ErrNoFile, msgNoFile},
	{ErrEmptyFile, msgEmptyFile},
	{ErrStructuralDrift, msgDrift},
	{ErrMissingCredentials, msgCredentials},
	{ErrDriverUnavailable, msgDriver},
	{ErrIntegrityConflict, msgIntegrity},
	{ErrCustodianInUse, msgInUse},
	{ErrNotFound, msgNotFound},
	{ErrTooManyRuns, msgBusy},
	{ErrUnknownFlow, msgUnknownFlow},
	{ErrForbidden, msgForbidden},
	{ErrInvalidCredentials, msgLogin},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors that lost their sentinel, e.g. row strings and
// raw driver output. More specific patterns come first.
var errorPatterns = []errorPattern{
	{"will not be overwritten", msgOwnership},
	{"mapped columns not found", msgDrift},
	{"duplicate key", msgIntegrity},
	{"violates unique", msgIntegrity},
	{"unique constraint", msgIntegrity},
	{"connection refused", msgDBDown},
	{"missing required fields", msgValidation},
	{"rate limit", msgRate},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ue *UserError
	if errors.As(err, &ue) {
		return ue.User
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.target) {
			return s.msg
		}
	}

	var oe *OwnershipError
	if errors.As(err, &oe) {
		return msgOwnership
	}
	if IsValidation(err) {
		return msgValidation
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
