package database

// convert.go maps between core records and the pgtype-based row models.
//
// Optional text and id columns travel as pgtype values with Valid=false for
// NULL, so empty strings and nil pointers never reach the table as ''/0.

import (
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/custodia/internal/core"
)

// ToPgText converts an optional string to pgtype.Text.
// Returns invalid for nil or whitespace-only input.
func ToPgText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{Valid: false}
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: v, Valid: true}
}

// ToPgInt8 converts an optional id to pgtype.Int8.
func ToPgInt8(id *int64) pgtype.Int8 {
	if id == nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: *id, Valid: true}
}

// FromPgText returns nil for NULL.
func FromPgText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

// FromPgInt8 returns nil for NULL.
func FromPgInt8(n pgtype.Int8) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// FromPgTime returns the zero time for NULL.
func FromPgTime(ts pgtype.Timestamptz) time.Time {
	if !ts.Valid {
		return time.Time{}
	}
	return ts.Time.UTC()
}

func assetFromRow(r Asset) core.Asset {
	return core.Asset{
		ID:          r.ID,
		Name:        r.Name,
		Environment: FromPgText(r.Environment),
		Description: FromPgText(r.Description),
		PrimaryID:   FromPgInt8(r.PrimaryID),
		Backup1ID:   FromPgInt8(r.Backup1ID),
		Backup2ID:   FromPgInt8(r.Backup2ID),
		Provenance:  r.Provenance,
		SourceJobID: FromPgInt8(r.SourceJobID),
		CreatedAt:   FromPgTime(r.CreatedAt),
	}
}

func insertAssetParams(a core.Asset) InsertAssetParams {
	provenance := a.Provenance
	if provenance == "" {
		provenance = core.ProvenanceManual
	}
	return InsertAssetParams{
		Name:        a.Name,
		Environment: ToPgText(a.Environment),
		Description: ToPgText(a.Description),
		PrimaryID:   ToPgInt8(a.PrimaryID),
		Backup1ID:   ToPgInt8(a.Backup1ID),
		Backup2ID:   ToPgInt8(a.Backup2ID),
		Provenance:  provenance,
		SourceJobID: ToPgInt8(a.SourceJobID),
	}
}

func custodianFromRow(r Custodian) core.Custodian {
	return core.Custodian{
		ID:        r.ID,
		Name:      r.Name,
		OrgUnit:   r.OrgUnit,
		SubUnit:   r.SubUnit,
		Email:     r.Email,
		CreatedAt: FromPgTime(r.CreatedAt),
	}
}

func userFromRow(r User) core.User {
	return core.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		CreatedAt:    FromPgTime(r.CreatedAt),
	}
}

func auditFromRow(r AuditLog) core.AuditEntry {
	return core.AuditEntry{
		ID:           r.ID,
		Action:       core.AuditAction(r.Action),
		Severity:     core.AuditSeverity(r.Severity),
		Actor:        r.Actor,
		Subject:      r.Subject,
		Detail:       r.Detail,
		RowsAffected: int(r.RowsAffected),
		IPAddress:    r.IpAddress,
		CreatedAt:    FromPgTime(r.CreatedAt),
	}
}
