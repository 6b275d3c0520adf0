package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/custodia/internal/config"
	"github.com/JonMunkholm/custodia/internal/core"
)

func echoActor() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(core.ActorFromContext(r.Context())))
	})
}

func TestRequireAuth(t *testing.T) {
	sec := &config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}}
	lookup := func(r *http.Request) (string, bool) {
		c, err := r.Cookie("sid")
		if err != nil || c.Value != "good" {
			return "", false
		}
		return "ana", true
	}
	h := RequireAuth(sec, lookup)(echoActor())

	tests := []struct {
		name     string
		path     string
		apiKey   string
		cookie   string
		wantCode int
		wantBody string
	}{
		{"valid key", "/api/jobs", "k2", "", http.StatusOK, APIKeyActor},
		{"invalid key", "/api/jobs", "nope", "good", http.StatusForbidden, ""},
		{"session", "/api/jobs", "", "good", http.StatusOK, "ana"},
		{"api without auth", "/api/jobs", "", "", http.StatusUnauthorized, ""},
		{"page without auth", "/import/assets", "", "", http.StatusSeeOther, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.apiKey != "" {
				req.Header.Set("X-API-Key", tt.apiKey)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "sid", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRequireAuth_KeysIgnoredWhenDisabled(t *testing.T) {
	sec := &config.SecurityConfig{APIKeys: []string{"k1"}}
	h := RequireAuth(sec, func(*http.Request) (string, bool) { return "", false })(echoActor())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("X-API-Key", "k1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTrustedRealIP(t *testing.T) {
	h := TrustedRealIP([]string{"10.0.0.0/8", "127.0.0.1", "bogus"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.RemoteAddr))
	}))

	tests := []struct {
		name   string
		remote string
		header string
		value  string
		want   string
	}{
		{"trusted real ip", "10.1.2.3:5000", "X-Real-IP", "203.0.113.9", "203.0.113.9"},
		{"trusted forwarded", "127.0.0.1:5000", "X-Forwarded-For", "198.51.100.7, 10.1.1.1", "198.51.100.7"},
		{"untrusted proxy", "192.0.2.1:5000", "X-Real-IP", "203.0.113.9", "192.0.2.1"},
		{"invalid header", "10.1.2.3:5000", "X-Real-IP", "not-an-ip", "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			req.Header.Set(tt.header, tt.value)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestRequestMetadata(t *testing.T) {
	h := RequestMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(core.GetIPAddressFromContext(r.Context()) + "|" + core.GetUserAgentFromContext(r.Context())))
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:1234"
	req.Header.Set("User-Agent", "curl/8")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "192.0.2.10|curl/8", rec.Body.String())
}

func TestLoggerCapturesActor(t *testing.T) {
	sec := &config.SecurityConfig{}
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = core.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})
	h := Logger(RequireAuth(sec, func(*http.Request) (string, bool) { return "bea", true })(inner))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "bea", seen)
}
