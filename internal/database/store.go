// Package database is the PostgreSQL implementation of core.Store.
//
// The query layer (Queries, models, *.sql.go) follows sqlc's generated shape;
// Store adapts it to the core interfaces and translates pgx errors into core
// sentinels.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/custodia/internal/config"
	"github.com/JonMunkholm/custodia/internal/core"
)

// PostgreSQL SQLSTATE codes mapped to core sentinels.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Pool is the subset of *pgxpool.Pool the store needs.
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements core.Store on PostgreSQL.
type Store struct {
	pool Pool
	q    *Queries
}

var _ core.Store = (*Store)(nil)

// NewStore wraps a connection pool.
func NewStore(pool Pool) *Store {
	return &Store{pool: pool, q: New(pool)}
}

// Open parses the URL, applies pool sizing and verifies connectivity.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// mapErr translates driver errors into core sentinels.
func mapErr(what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation, foreignKeyViolation:
			return fmt.Errorf("%s: %w", what, core.ErrIntegrityConflict)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

func requireRow(what string, n int64, err error) error {
	if err != nil {
		return mapErr(what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}

// inTx runs fn in a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(s.q.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Custodians
// ---------------------------------------------------------------------------

func (s *Store) ListCustodians(ctx context.Context) ([]core.Custodian, error) {
	rows, err := s.q.ListCustodians(ctx)
	if err != nil {
		return nil, mapErr("list custodians", err)
	}
	out := make([]core.Custodian, len(rows))
	for i, r := range rows {
		out[i] = custodianFromRow(r)
	}
	return out, nil
}

func (s *Store) GetCustodian(ctx context.Context, id int64) (core.Custodian, error) {
	r, err := s.q.GetCustodian(ctx, id)
	if err != nil {
		return core.Custodian{}, mapErr(fmt.Sprintf("custodian %d", id), err)
	}
	return custodianFromRow(r), nil
}

func (s *Store) FindCustodianByName(ctx context.Context, name string) (core.Custodian, error) {
	r, err := s.q.FindCustodianByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return core.Custodian{}, mapErr(fmt.Sprintf("custodian %q", name), err)
	}
	return custodianFromRow(r), nil
}

func (s *Store) FindCustodianByEmail(ctx context.Context, email string) (core.Custodian, error) {
	r, err := s.q.FindCustodianByEmail(ctx, email)
	if err != nil {
		return core.Custodian{}, mapErr(fmt.Sprintf("custodian <%s>", email), err)
	}
	return custodianFromRow(r), nil
}

func (s *Store) CreateCustodian(ctx context.Context, c core.Custodian) (core.Custodian, error) {
	r, err := s.q.InsertCustodian(ctx, InsertCustodianParams{
		Name: c.Name, OrgUnit: c.OrgUnit, SubUnit: c.SubUnit, Email: c.Email,
	})
	if err != nil {
		return core.Custodian{}, mapErr("insert custodian", err)
	}
	return custodianFromRow(r), nil
}

func (s *Store) CreateCustodians(ctx context.Context, cs []core.Custodian) (int, error) {
	err := s.inTx(ctx, func(q *Queries) error {
		for _, c := range cs {
			if _, err := q.InsertCustodian(ctx, InsertCustodianParams{
				Name: c.Name, OrgUnit: c.OrgUnit, SubUnit: c.SubUnit, Email: c.Email,
			}); err != nil {
				return mapErr(fmt.Sprintf("insert custodian %q", c.Name), err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(cs), nil
}

func (s *Store) UpdateCustodian(ctx context.Context, c core.Custodian) (core.Custodian, error) {
	r, err := s.q.UpdateCustodian(ctx, UpdateCustodianParams{
		ID: c.ID, Name: c.Name, OrgUnit: c.OrgUnit, SubUnit: c.SubUnit, Email: c.Email,
	})
	if err != nil {
		return core.Custodian{}, mapErr(fmt.Sprintf("custodian %d", c.ID), err)
	}
	return custodianFromRow(r), nil
}

// DeleteCustodian removes a custodian. An asset referencing it, even one
// linked after the service's reference check, yields ErrCustodianInUse.
func (s *Store) DeleteCustodian(ctx context.Context, id int64) error {
	n, err := s.q.DeleteCustodian(ctx, id)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("custodian %d: %w", id, core.ErrCustodianInUse)
	}
	return requireRow(fmt.Sprintf("custodian %d", id), n, err)
}

func (s *Store) CountCustodianReferences(ctx context.Context, id int64) (int, error) {
	n, err := s.q.CountCustodianReferences(ctx, id)
	if err != nil {
		return 0, mapErr("count custodian references", err)
	}
	return int(n), nil
}

// ---------------------------------------------------------------------------
// Assets
// ---------------------------------------------------------------------------

func (s *Store) ListAssets(ctx context.Context) ([]core.Asset, error) {
	rows, err := s.q.ListAssets(ctx)
	if err != nil {
		return nil, mapErr("list assets", err)
	}
	out := make([]core.Asset, len(rows))
	for i, r := range rows {
		out[i] = assetFromRow(r)
	}
	return out, nil
}

func (s *Store) GetAsset(ctx context.Context, id int64) (core.Asset, error) {
	r, err := s.q.GetAsset(ctx, id)
	if err != nil {
		return core.Asset{}, mapErr(fmt.Sprintf("asset %d", id), err)
	}
	return assetFromRow(r), nil
}

func (s *Store) FindAssetByName(ctx context.Context, name string) (core.Asset, error) {
	r, err := s.q.FindAssetByName(ctx, name)
	if err != nil {
		return core.Asset{}, mapErr(fmt.Sprintf("asset %q", name), err)
	}
	return assetFromRow(r), nil
}

func (s *Store) CreateAsset(ctx context.Context, a core.Asset) (core.Asset, error) {
	r, err := s.q.InsertAsset(ctx, insertAssetParams(a))
	if err != nil {
		return core.Asset{}, mapErr("insert asset", err)
	}
	return assetFromRow(r), nil
}

func (s *Store) CreateAssets(ctx context.Context, as []core.Asset) (int, error) {
	err := s.inTx(ctx, func(q *Queries) error {
		for _, a := range as {
			if _, err := q.InsertAsset(ctx, insertAssetParams(a)); err != nil {
				return mapErr(fmt.Sprintf("insert asset %q", a.Name), err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(as), nil
}

func (s *Store) UpdateAsset(ctx context.Context, a core.Asset) (core.Asset, error) {
	p := insertAssetParams(a)
	r, err := s.q.UpdateAsset(ctx, UpdateAssetParams{
		ID:          a.ID,
		Name:        p.Name,
		Environment: p.Environment,
		Description: p.Description,
		PrimaryID:   p.PrimaryID,
		Backup1ID:   p.Backup1ID,
		Backup2ID:   p.Backup2ID,
		Provenance:  p.Provenance,
		SourceJobID: p.SourceJobID,
	})
	if err != nil {
		return core.Asset{}, mapErr(fmt.Sprintf("asset %d", a.ID), err)
	}
	return assetFromRow(r), nil
}

func (s *Store) DeleteAsset(ctx context.Context, id int64) error {
	n, err := s.q.DeleteAsset(ctx, id)
	return requireRow(fmt.Sprintf("asset %d", id), n, err)
}

func (s *Store) DeleteAssetsByProvenance(ctx context.Context, provenance string) (int64, error) {
	n, err := s.q.DeleteAssetsByProvenance(ctx, provenance)
	if err != nil {
		return 0, mapErr("delete assets by provenance", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Jobs
// ---------------------------------------------------------------------------

func jobFromRow(r ExtractionJob) (core.ExtractionJob, error) {
	j := core.ExtractionJob{
		ID:             r.ID,
		Connector:      r.Connector,
		ExtractionType: r.ExtractionType,
		Mode:           core.ParseRunMode(r.Mode),
		Status:         core.JobStatus(r.Status),
		Progress:       int(r.Progress),
		Log:            r.Log,
		Error:          r.Error,
		CreatedAt:      FromPgTime(r.CreatedAt),
		UpdatedAt:      FromPgTime(r.UpdatedAt),
	}
	if len(r.Config) > 0 {
		if err := json.Unmarshal(r.Config, &j.Config); err != nil {
			return core.ExtractionJob{}, fmt.Errorf("decode job %d config: %w", r.ID, err)
		}
	}
	return j, nil
}

func (s *Store) CreateJob(ctx context.Context, j core.ExtractionJob) (core.ExtractionJob, error) {
	cfg, err := json.Marshal(j.Config)
	if err != nil {
		return core.ExtractionJob{}, fmt.Errorf("encode job config: %w", err)
	}
	status := j.Status
	if status == "" {
		status = core.JobPending
	}
	r, err := s.q.InsertJob(ctx, InsertJobParams{
		Connector:      j.Connector,
		ExtractionType: j.ExtractionType,
		Mode:           string(j.Mode),
		Config:         cfg,
		Status:         string(status),
	})
	if err != nil {
		return core.ExtractionJob{}, mapErr("insert job", err)
	}
	return jobFromRow(r)
}

func (s *Store) GetJob(ctx context.Context, id int64) (core.ExtractionJob, error) {
	r, err := s.q.GetJob(ctx, id)
	if err != nil {
		return core.ExtractionJob{}, mapErr(fmt.Sprintf("job %d", id), err)
	}
	return jobFromRow(r)
}

func (s *Store) ListJobs(ctx context.Context) ([]core.ExtractionJob, error) {
	rows, err := s.q.ListJobs(ctx)
	if err != nil {
		return nil, mapErr("list jobs", err)
	}
	out := make([]core.ExtractionJob, 0, len(rows))
	for _, r := range rows {
		j, err := jobFromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

func (s *Store) UpdateJob(ctx context.Context, id int64, u core.JobUpdate) error {
	p := UpdateJobParams{ID: id}
	if u.Status != nil {
		p.Status = pgtype.Text{String: string(*u.Status), Valid: true}
	}
	if u.Progress != nil {
		p.Progress = pgtype.Int4{Int32: int32(*u.Progress), Valid: true}
	}
	if u.Error != nil {
		p.Error = pgtype.Text{String: *u.Error, Valid: true}
	}
	n, err := s.q.UpdateJob(ctx, p)
	return requireRow(fmt.Sprintf("job %d", id), n, err)
}

func (s *Store) AppendJobLog(ctx context.Context, id int64, line string, reset bool) error {
	n, err := s.q.AppendJobLog(ctx, AppendJobLogParams{ID: id, Line: line, Reset: reset})
	return requireRow(fmt.Sprintf("job %d", id), n, err)
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (s *Store) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := s.q.ListUsers(ctx)
	if err != nil {
		return nil, mapErr("list users", err)
	}
	out := make([]core.User, len(rows))
	for i, r := range rows {
		out[i] = userFromRow(r)
	}
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (core.User, error) {
	r, err := s.q.GetUser(ctx, id)
	if err != nil {
		return core.User{}, mapErr(fmt.Sprintf("user %d", id), err)
	}
	return userFromRow(r), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	r, err := s.q.GetUserByUsername(ctx, username)
	if err != nil {
		return core.User{}, mapErr(fmt.Sprintf("user %q", username), err)
	}
	return userFromRow(r), nil
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (core.User, error) {
	r, err := s.q.InsertUser(ctx, InsertUserParams{Username: username, PasswordHash: passwordHash})
	if err != nil {
		return core.User{}, mapErr(fmt.Sprintf("user %q", username), err)
	}
	return userFromRow(r), nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	n, err := s.q.UpdateUserPassword(ctx, UpdateUserPasswordParams{ID: id, PasswordHash: passwordHash})
	return requireRow(fmt.Sprintf("user %d", id), n, err)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	n, err := s.q.DeleteUser(ctx, id)
	return requireRow(fmt.Sprintf("user %d", id), n, err)
}

// ---------------------------------------------------------------------------
// Audit
// ---------------------------------------------------------------------------

func (s *Store) InsertAudit(ctx context.Context, e core.AuditEntry) error {
	err := s.q.InsertAuditLog(ctx, InsertAuditLogParams{
		Action:       string(e.Action),
		Severity:     string(e.Severity),
		Actor:        e.Actor,
		Subject:      e.Subject,
		Detail:       e.Detail,
		RowsAffected: int32(e.RowsAffected),
		IpAddress:    e.IPAddress,
	})
	return mapErr("insert audit entry", err)
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]core.AuditEntry, error) {
	rows, err := s.q.ListAuditLog(ctx, int32(limit))
	if err != nil {
		return nil, mapErr("list audit log", err)
	}
	out := make([]core.AuditEntry, len(rows))
	for i, r := range rows {
		out[i] = auditFromRow(r)
	}
	return out, nil
}
