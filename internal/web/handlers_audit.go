package web

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/custodia/internal/core"
	"github.com/JonMunkholm/custodia/internal/logging"
)

const (
	auditPageSize  = 100
	auditExportCap = 10000
)

// filterAudit keeps entries matching the action and severity query filters.
func filterAudit(r *http.Request, entries []core.AuditEntry) []core.AuditEntry {
	action := r.URL.Query().Get("action")
	severity := r.URL.Query().Get("severity")
	if action == "" && severity == "" {
		return entries
	}
	out := entries[:0:0]
	for _, e := range entries {
		if action != "" && string(e.Action) != action {
			continue
		}
		if severity != "" && string(e.Severity) != severity {
			continue
		}
		out = append(out, e)
	}
	return out
}

// handleAuditLog returns the newest audit entries, newest first.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", auditPageSize)
	entries, err := s.deps.Service.ListAudit(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entries = filterAudit(r, entries)
	if entries == nil {
		entries = []core.AuditEntry{}
	}
	writeJSON(w, entries)
}

// handleAuditLogExport writes the audit log as a CSV attachment.
func (s *Server) handleAuditLogExport(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Service.ListAudit(r.Context(), auditExportCap)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entries = filterAudit(r, entries)

	filename := fmt.Sprintf("audit_log_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"ID", "Timestamp", "Action", "Severity", "Actor",
		"Subject", "Detail", "Rows Affected", "IP Address",
	})
	for _, e := range entries {
		if err := cw.Write([]string{
			strconv.FormatInt(e.ID, 10),
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			string(e.Action),
			string(e.Severity),
			e.Actor,
			e.Subject,
			e.Detail,
			strconv.Itoa(e.RowsAffected),
			e.IPAddress,
		}); err != nil {
			break
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logging.FromContext(r.Context()).Error("audit export", "error", err)
	}
}
