// Package memstore provides an in-memory implementation of core.Store.
// It backs STORE_BACKEND=memory and the test suites.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/custodia/internal/core"
)

// Store is a process-local core.Store guarded by a single mutex.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time
	seq int64

	custodians map[int64]core.Custodian
	assets     map[int64]core.Asset
	jobs       map[int64]core.ExtractionJob
	users      map[int64]core.User
	audit      []core.AuditEntry
}

var _ core.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		now:        func() time.Time { return time.Now().UTC() },
		custodians: map[int64]core.Custodian{},
		assets:     map[int64]core.Asset{},
		jobs:       map[int64]core.ExtractionJob{},
		users:      map[int64]core.User{},
	}
}

// SetClock replaces the time source. Used by tests that order by timestamp.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, core.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Custodians
// ---------------------------------------------------------------------------

func (s *Store) ListCustodians(_ context.Context) ([]core.Custodian, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Custodian, 0, len(s.custodians))
	for _, c := range s.custodians {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if li != lj {
			return li < lj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetCustodian(_ context.Context, id int64) (core.Custodian, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.custodians[id]
	if !ok {
		return core.Custodian{}, notFound("custodian", id)
	}
	return c, nil
}

func (s *Store) firstCustodian(match func(core.Custodian) bool) (core.Custodian, bool) {
	var best core.Custodian
	found := false
	for _, c := range s.custodians {
		if match(c) && (!found || c.ID < best.ID) {
			best, found = c, true
		}
	}
	return best, found
}

func (s *Store) FindCustodianByName(_ context.Context, name string) (core.Custodian, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name = strings.TrimSpace(name)
	c, ok := s.firstCustodian(func(c core.Custodian) bool { return strings.EqualFold(c.Name, name) })
	if !ok {
		return core.Custodian{}, fmt.Errorf("custodian %q: %w", name, core.ErrNotFound)
	}
	return c, nil
}

func (s *Store) FindCustodianByEmail(_ context.Context, email string) (core.Custodian, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.firstCustodian(func(c core.Custodian) bool { return c.Email == email })
	if !ok {
		return core.Custodian{}, fmt.Errorf("custodian <%s>: %w", email, core.ErrNotFound)
	}
	return c, nil
}

func (s *Store) CreateCustodian(_ context.Context, c core.Custodian) (core.Custodian, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.nextID()
	c.CreatedAt = s.now()
	s.custodians[c.ID] = c
	return c, nil
}

func (s *Store) CreateCustodians(ctx context.Context, cs []core.Custodian) (int, error) {
	for _, c := range cs {
		if _, err := s.CreateCustodian(ctx, c); err != nil {
			return 0, err
		}
	}
	return len(cs), nil
}

func (s *Store) UpdateCustodian(_ context.Context, c core.Custodian) (core.Custodian, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.custodians[c.ID]
	if !ok {
		return core.Custodian{}, notFound("custodian", c.ID)
	}
	c.CreatedAt = existing.CreatedAt
	s.custodians[c.ID] = c
	return c, nil
}

func (s *Store) DeleteCustodian(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.custodians[id]; !ok {
		return notFound("custodian", id)
	}
	delete(s.custodians, id)
	return nil
}

func (s *Store) CountCustodianReferences(_ context.Context, id int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := 0
	for _, a := range s.assets {
		if eq(a.PrimaryID, id) || eq(a.Backup1ID, id) || eq(a.Backup2ID, id) {
			refs++
		}
	}
	return refs, nil
}

func eq(p *int64, id int64) bool {
	return p != nil && *p == id
}

// ---------------------------------------------------------------------------
// Assets
// ---------------------------------------------------------------------------

func (s *Store) ListAssets(_ context.Context) ([]core.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) GetAsset(_ context.Context, id int64) (core.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets[id]
	if !ok {
		return core.Asset{}, notFound("asset", id)
	}
	return a, nil
}

func (s *Store) FindAssetByName(_ context.Context, name string) (core.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best core.Asset
	found := false
	for _, a := range s.assets {
		if a.Name == name && (!found || a.ID < best.ID) {
			best, found = a, true
		}
	}
	if !found {
		return core.Asset{}, fmt.Errorf("asset %q: %w", name, core.ErrNotFound)
	}
	return best, nil
}

func (s *Store) CreateAsset(_ context.Context, a core.Asset) (core.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.Provenance == "" {
		a.Provenance = core.ProvenanceManual
	}
	a.ID = s.nextID()
	a.CreatedAt = s.now()
	s.assets[a.ID] = a
	return a, nil
}

func (s *Store) CreateAssets(ctx context.Context, as []core.Asset) (int, error) {
	for _, a := range as {
		if _, err := s.CreateAsset(ctx, a); err != nil {
			return 0, err
		}
	}
	return len(as), nil
}

func (s *Store) UpdateAsset(_ context.Context, a core.Asset) (core.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.assets[a.ID]
	if !ok {
		return core.Asset{}, notFound("asset", a.ID)
	}
	a.CreatedAt = existing.CreatedAt
	s.assets[a.ID] = a
	return a, nil
}

func (s *Store) DeleteAsset(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[id]; !ok {
		return notFound("asset", id)
	}
	delete(s.assets, id)
	return nil
}

func (s *Store) DeleteAssetsByProvenance(_ context.Context, provenance string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, a := range s.assets {
		if a.Provenance == provenance {
			delete(s.assets, id)
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Jobs
// ---------------------------------------------------------------------------

func (s *Store) CreateJob(_ context.Context, j core.ExtractionJob) (core.ExtractionJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j.ID = s.nextID()
	j.CreatedAt = s.now()
	j.UpdatedAt = j.CreatedAt
	if j.Status == "" {
		j.Status = core.JobPending
	}
	s.jobs[j.ID] = j
	return j, nil
}

func (s *Store) GetJob(_ context.Context, id int64) (core.ExtractionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return core.ExtractionJob{}, notFound("job", id)
	}
	return j, nil
}

func (s *Store) ListJobs(_ context.Context) ([]core.ExtractionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.ExtractionJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateJob(_ context.Context, id int64, u core.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return notFound("job", id)
	}
	if u.Status != nil {
		j.Status = *u.Status
	}
	if u.Progress != nil {
		j.Progress = *u.Progress
	}
	if u.Error != nil {
		j.Error = *u.Error
	}
	j.UpdatedAt = s.now()
	s.jobs[id] = j
	return nil
}

func (s *Store) AppendJobLog(_ context.Context, id int64, line string, reset bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return notFound("job", id)
	}
	if reset || j.Log == "" {
		j.Log = line
	} else {
		j.Log += "\n" + line
	}
	j.UpdatedAt = s.now()
	s.jobs[id] = j
	return nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return core.User{}, notFound("user", id)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
}

func (s *Store) CreateUser(_ context.Context, username, passwordHash string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			return core.User{}, fmt.Errorf("user %q: %w", username, core.ErrIntegrityConflict)
		}
	}
	u := core.User{ID: s.nextID(), Username: username, PasswordHash: passwordHash, CreatedAt: s.now()}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return notFound("user", id)
	}
	u.PasswordHash = passwordHash
	s.users[id] = u
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return notFound("user", id)
	}
	delete(s.users, id)
	return nil
}

// ---------------------------------------------------------------------------
// Audit
// ---------------------------------------------------------------------------

func (s *Store) InsertAudit(_ context.Context, e core.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.nextID()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	s.audit = append(s.audit, e)
	return nil
}

func (s *Store) ListAudit(_ context.Context, limit int) ([]core.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.AuditEntry, 0, min(limit, len(s.audit)))
	for i := len(s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.audit[i])
	}
	return out, nil
}
