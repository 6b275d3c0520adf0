package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/custodia/internal/core"
	"github.com/JonMunkholm/custodia/internal/logging"
	"github.com/JonMunkholm/custodia/internal/web/templates"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeJSON(w, map[string]any{"fields": []string{"username", "password"}})
		return
	}
	s.renderLogin(w, r, http.StatusOK, "", "")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	jsonReq := strings.Contains(r.Header.Get("Content-Type"), "application/json")
	if jsonReq {
		if err := decodeJSON(w, r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			s.fail(w, r, core.NewValidationError("malformed form", "body"))
			return
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	}

	user, err := s.deps.Service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if !jsonReq && errors.Is(err, core.ErrInvalidCredentials) {
			logging.FromContext(r.Context()).Warn("login failed", "username", req.Username)
			s.renderLogin(w, r, http.StatusUnauthorized, req.Username, core.MapError(err).Message)
			return
		}
		s.fail(w, r, err)
		return
	}

	id := s.logins.create(user.Username)
	s.logins.setCookie(w, id, s.cfg.Session.CookieSecure)
	logging.FromContext(r.Context()).Info("login", "username", user.Username)

	if jsonReq {
		writeJSON(w, map[string]string{"username": user.Username})
		return
	}
	http.Redirect(w, r, "/import", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(s.logins.cookie); err == nil {
		if s.deps.Sessions != nil {
			if token, err := s.deps.Sessions.GetOrCreateToken(r.Context(), c.Value); err == nil {
				_ = s.deps.Sessions.Clear(r.Context(), token, "")
			}
		}
		s.logins.remove(c.Value)
	}
	s.logins.clearCookie(w, s.cfg.Session.CookieSecure)

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, username, errMsg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.LoginForm(username, errMsg).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render login", "error", err)
	}
}
