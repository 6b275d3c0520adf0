package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/custodia/internal/core"
)

// sessionHeader lets API-key clients keep wizard state across requests.
const sessionHeader = "X-Session-ID"

type loginEntry struct {
	username string
	expires  time.Time
}

// loginSessions tracks signed-in browsers by cookie value.
type loginSessions struct {
	mu      sync.Mutex
	entries map[string]loginEntry
	cookie  string
	ttl     time.Duration
	now     func() time.Time
}

func newLoginSessions(cookie string, ttl time.Duration) *loginSessions {
	if cookie == "" {
		cookie = "custodia_session"
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &loginSessions{
		entries: make(map[string]loginEntry),
		cookie:  cookie,
		ttl:     ttl,
		now:     time.Now,
	}
}

// create starts a session for username and returns its id.
func (l *loginSessions) create(username string) string {
	id := uuid.NewString()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked()
	l.entries[id] = loginEntry{username: username, expires: l.now().Add(l.ttl)}
	return id
}

// lookup resolves the request cookie to a username, sliding its expiry.
func (l *loginSessions) lookup(r *http.Request) (string, bool) {
	c, err := r.Cookie(l.cookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[c.Value]
	if !ok {
		return "", false
	}
	if l.now().After(e.expires) {
		delete(l.entries, c.Value)
		return "", false
	}
	e.expires = l.now().Add(l.ttl)
	l.entries[c.Value] = e
	return e.username, true
}

func (l *loginSessions) remove(id string) {
	l.mu.Lock()
	delete(l.entries, id)
	l.mu.Unlock()
}

func (l *loginSessions) sweepLocked() {
	now := l.now()
	for id, e := range l.entries {
		if now.After(e.expires) {
			delete(l.entries, id)
		}
	}
}

func (l *loginSessions) setCookie(w http.ResponseWriter, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     l.cookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(l.ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (l *loginSessions) clearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     l.cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// wizardToken returns the import/extraction state token for the caller.
// Browsers are keyed by their login cookie; API-key clients by the
// X-Session-ID header, falling back to one shared slot per actor.
func (s *Server) wizardToken(r *http.Request) (string, error) {
	var sid string
	if c, err := r.Cookie(s.logins.cookie); err == nil && c.Value != "" {
		sid = c.Value
	} else if h := r.Header.Get(sessionHeader); h != "" {
		sid = "hdr:" + h
	} else {
		sid = "actor:" + core.ActorFromContext(r.Context())
	}
	return s.deps.Sessions.GetOrCreateToken(r.Context(), sid)
}
