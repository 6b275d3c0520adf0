package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/custodia/internal/core"
)

func TestObserveImport(t *testing.T) {
	m := New()

	m.ObserveImport("assets", core.ImportResult{Total: 3, Imported: 2})
	m.ObserveImport("assets", core.ImportResult{Total: 1, Imported: 1})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ImportBatches.WithLabelValues("assets")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ImportRows.WithLabelValues("assets", "imported")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImportRows.WithLabelValues("assets", "rejected")))
}

func TestObserveRun(t *testing.T) {
	m := New()

	m.ObserveRun("teradata", core.JobCompleted, &core.RunResult{Total: 5, Imported: 4}, time.Second)
	m.ObserveRun("teradata", core.JobError, nil, 2*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("teradata", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("teradata", "error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.JobBases.WithLabelValues("teradata", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobBases.WithLabelValues("teradata", "rejected")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.JobDuration))
}

func TestObserveAttempt(t *testing.T) {
	m := New()

	m.ObserveAttempt("native", errors.New("no driver"))
	m.ObserveAttempt("bridge", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectAttempts.WithLabelValues("native", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectAttempts.WithLabelValues("bridge", "success")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/jobs/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/jobs/{id}", "404")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), "custodia_http_requests_total"))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
