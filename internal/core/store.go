package core

import "context"

// CustodianStore persists custodians.
type CustodianStore interface {
	ListCustodians(ctx context.Context) ([]Custodian, error)
	GetCustodian(ctx context.Context, id int64) (Custodian, error)
	// FindCustodianByName matches the trimmed name case-insensitively.
	FindCustodianByName(ctx context.Context, name string) (Custodian, error)
	FindCustodianByEmail(ctx context.Context, email string) (Custodian, error)
	CreateCustodian(ctx context.Context, c Custodian) (Custodian, error)
	// CreateCustodians inserts all records in one transaction.
	CreateCustodians(ctx context.Context, cs []Custodian) (int, error)
	UpdateCustodian(ctx context.Context, c Custodian) (Custodian, error)
	DeleteCustodian(ctx context.Context, id int64) error
	// CountCustodianReferences counts assets naming id as primary or backup.
	CountCustodianReferences(ctx context.Context, id int64) (int, error)
}

// AssetStore persists assets.
type AssetStore interface {
	ListAssets(ctx context.Context) ([]Asset, error)
	GetAsset(ctx context.Context, id int64) (Asset, error)
	// FindAssetByName matches the name exactly.
	FindAssetByName(ctx context.Context, name string) (Asset, error)
	CreateAsset(ctx context.Context, a Asset) (Asset, error)
	// CreateAssets inserts all records in one transaction.
	CreateAssets(ctx context.Context, as []Asset) (int, error)
	UpdateAsset(ctx context.Context, a Asset) (Asset, error)
	DeleteAsset(ctx context.Context, id int64) error
	DeleteAssetsByProvenance(ctx context.Context, provenance string) (int64, error)
}

// JobStore persists extraction jobs.
type JobStore interface {
	CreateJob(ctx context.Context, j ExtractionJob) (ExtractionJob, error)
	GetJob(ctx context.Context, id int64) (ExtractionJob, error)
	// ListJobs returns jobs newest first.
	ListJobs(ctx context.Context) ([]ExtractionJob, error)
	UpdateJob(ctx context.Context, id int64, u JobUpdate) error
	// AppendJobLog adds a line to the job log; reset replaces the log.
	AppendJobLog(ctx context.Context, id int64, line string, reset bool) error
}

// UserStore persists application logins.
type UserStore interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	// CreateUser returns ErrIntegrityConflict for a duplicate username.
	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
	DeleteUser(ctx context.Context, id int64) error
}

// AuditStore records administrative actions.
type AuditStore interface {
	InsertAudit(ctx context.Context, e AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]AuditEntry, error)
}

// Store is the full persistence surface. Lookups that miss return ErrNotFound.
type Store interface {
	CustodianStore
	AssetStore
	JobStore
	UserStore
	AuditStore
}
