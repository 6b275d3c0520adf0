package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/custodia/internal/logging"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionImport          AuditAction = "import"
	ActionQuickImport     AuditAction = "quick_import"
	ActionJobRun          AuditAction = "job_run"
	ActionJobRestart      AuditAction = "job_restart"
	ActionCustodianDelete AuditAction = "custodian_delete"
	ActionAssetDelete     AuditAction = "asset_delete"
	ActionUserCreate      AuditAction = "user_create"
	ActionUserReset       AuditAction = "user_password_reset"
	ActionUserDelete      AuditAction = "user_delete"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID           int64         `json:"id"`
	Action       AuditAction   `json:"action"`
	Severity     AuditSeverity `json:"severity"`
	Actor        string        `json:"actor,omitempty"`
	Subject      string        `json:"subject"`
	Detail       string        `json:"detail,omitempty"`
	RowsAffected int           `json:"rows_affected"`
	IPAddress    string        `json:"ip_address,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// AuditLogParams contains parameters for creating an audit log entry.
type AuditLogParams struct {
	Action       AuditAction
	Subject      string
	Detail       string
	RowsAffected int
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionImport, ActionQuickImport, ActionCustodianDelete, ActionAssetDelete, ActionUserDelete:
		return SeverityHigh
	case ActionJobRun, ActionJobRestart:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// LogAudit records an audit entry. Failures are logged, not returned.
func LogAudit(ctx context.Context, store AuditStore, params AuditLogParams) {
	entry := AuditEntry{
		Action:       params.Action,
		Severity:     determineSeverity(params.Action),
		Actor:        ActorFromContext(ctx),
		Subject:      params.Subject,
		Detail:       params.Detail,
		RowsAffected: params.RowsAffected,
		IPAddress:    GetIPAddressFromContext(ctx),
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.InsertAudit(ctx, entry); err != nil {
		logging.FromContext(ctx).Warn("audit insert failed",
			"action", params.Action,
			"subject", params.Subject,
			"error", err,
		)
	}
}
