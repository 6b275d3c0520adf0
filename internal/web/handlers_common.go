package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/custodia/internal/core"
	"github.com/JonMunkholm/custodia/internal/web/templates"
)

// maxJSONBody bounds API request bodies.
const maxJSONBody = 1 << 20

// parseID reads a positive integer URL parameter.
func parseID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError(fmt.Sprintf("invalid %s %q", name, raw), name)
	}
	return id, nil
}

// decodeJSON reads a JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return core.NewValidationError("malformed request body: "+err.Error(), "body")
	}
	return nil
}

// formValues flattens parsed form values, keeping the first of each key.
func formValues(r *http.Request) map[string]string {
	out := make(map[string]string)
	for k, vs := range r.Form {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	if r.MultipartForm != nil {
		for k, vs := range r.MultipartForm.Value {
			if _, ok := out[k]; !ok && len(vs) > 0 {
				out[k] = vs[0]
			}
		}
	}
	return out
}

// respondNotice renders a flash fragment for HTMX or JSON otherwise.
// The wizard's next step travels in the X-Wizard-Step header for HTMX.
func respondNotice(w http.ResponseWriter, r *http.Request, next core.Step, notice *core.Notice, body any) {
	if !isHTMX(r) {
		writeJSON(w, body)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Wizard-Step", string(next))
	if notice == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	_ = templates.Notice(notice.Level, notice.Message).Render(r.Context(), w)
}

// parseIntParam reads a positive integer query parameter with a fallback.
func parseIntParam(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
