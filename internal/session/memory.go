// Package session stores per-user import wizard state.
//
// Two backends implement core.SessionStore: Memory keeps state in process
// with TTL expiry and LRU eviction, Redis shares state between replicas.
package session

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/custodia/internal/core"
)

// MemoryOptions tunes the in-process store.
type MemoryOptions struct {
	TTL        time.Duration // idle lifetime of a token (default: 2h)
	MaxEntries int           // tokens kept before LRU eviction (default: 1000)
}

// Memory is an in-process core.SessionStore.
type Memory struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	tokens  map[string]*tokenRef     // session id -> token
	buckets map[string]*list.Element // token -> *bucket in lru
	lru     *list.List
}

type tokenRef struct {
	token string
	seen  time.Time
}

type bucket struct {
	token    string
	lastUsed time.Time
	refs     int // callers between acquire and release; guarded by Memory.mu

	mu    sync.Mutex
	flows map[string]core.FlowState
}
// NewMemory creates an empty in-process store.
func NewMemory(opts MemoryOptions) *Memory {
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Hour
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 1000
	}
	return &Memory{
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		now:        time.Now,
		tokens:     make(map[string]*tokenRef),
		buckets:    make(map[string]*list.Element),
		lru:        list.New(),
	}
}

// SetClock replaces the time source. Tests only.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GetOrCreateToken implements core.SessionStore.
func (m *Memory) GetOrCreateToken(_ context.Context, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if ref, ok := m.tokens[sessionID]; ok && now.Sub(ref.seen) < m.ttl {
		ref.seen = now
		return ref.token, nil
	}

	ref := &tokenRef{token: newToken(), seen: now}
	m.tokens[sessionID] = ref
	return ref.token, nil
}

// acquire returns the bucket for token, creating it when create is set, and
// pins it until release is called. Pinned buckets are never evicted or
// expired, so a caller holding b.mu always owns the live bucket for token.
func (m *Memory) acquire(token string, create bool) (*bucket, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if el, ok := m.buckets[token]; ok {
		b := el.Value.(*bucket)
		if b.refs > 0 || now.Sub(b.lastUsed) < m.ttl {
			b.lastUsed = now
			b.refs++
			m.lru.MoveToFront(el)
			return b, m.releaser(b)
		}
		m.lru.Remove(el)
		delete(m.buckets, token)
	}
	if !create {
		return nil, func() {}
	}

	b := &bucket{token: token, lastUsed: now, refs: 1, flows: make(map[string]core.FlowState)}
	m.buckets[token] = m.lru.PushFront(b)
	m.evict()
	return b, m.releaser(b)
}

func (m *Memory) releaser(b *bucket) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			b.refs--
			m.mu.Unlock()
		})
	}
}

// evict drops unpinned buckets from the cold end until the cap holds.
// While every surplus bucket is pinned the store stays over the cap.
// Caller holds m.mu.
func (m *Memory) evict() {
	for el := m.lru.Back(); el != nil && m.lru.Len() > m.maxEntries; {
		prev := el.Prev()
		if b := el.Value.(*bucket); b.refs == 0 {
			m.lru.Remove(el)
			delete(m.buckets, b.token)
		}
		el = prev
	}
}

// Load implements core.SessionStore.
func (m *Memory) Load(_ context.Context, token, flow string) (core.FlowState, error) {
	b, release := m.acquire(token, false)
	defer release()
	if b == nil {
		return core.FlowState{}, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flows[flow].Clone(), nil
}

// Update implements core.SessionStore.
func (m *Memory) Update(_ context.Context, token, flow string, fn func(*core.FlowState) error) error {
	b, release := m.acquire(token, true)
	defer release()
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.flows[flow].Clone()
	if err := fn(&state); err != nil {
		return err
	}
	b.flows[flow] = state.Clone()
	return nil
}

// Clear implements core.SessionStore.
func (m *Memory) Clear(_ context.Context, token, flow string) error {
	b, release := m.acquire(token, false)
	defer release()
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if flow == "" {
		b.flows = make(map[string]core.FlowState)
		return nil
	}
	delete(b.flows, flow)
	return nil
}

// Sweep drops expired tokens and session bindings, returning how many
// buckets were removed.
func (m *Memory) Sweep(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for el := m.lru.Back(); el != nil; {
		prev := el.Prev()
		b := el.Value.(*bucket)
		if b.refs == 0 && now.Sub(b.lastUsed) >= m.ttl {
			m.lru.Remove(el)
			delete(m.buckets, b.token)
			removed++
		}
		el = prev
	}
	for sid, ref := range m.tokens {
		if now.Sub(ref.seen) >= m.ttl {
			delete(m.tokens, sid)
		}
	}
	return removed, nil
}

// Len returns the number of live token buckets.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}
