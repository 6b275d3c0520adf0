package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/custodia/internal/connector"
	"github.com/JonMunkholm/custodia/internal/core"
	"github.com/JonMunkholm/custodia/internal/extraction"
)

// jobResponse is a job with its password masked, plus the run outcome when
// the request executed it.
type jobResponse struct {
	Job    core.ExtractionJob `json:"job"`
	Result *core.RunResult    `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

func maskJob(job core.ExtractionJob) core.ExtractionJob {
	job.Config = job.Config.Masked()
	return job
}

// handleExtractStep drives the config → types → execute extraction wizard.
func (s *Server) handleExtractStep(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "connector")
	in := extraction.WizardInput{
		Submit: r.Method == http.MethodPost,
		JobID:  extraction.ParseJobID(r.URL.Query().Get("job_id")),
	}
	if in.Submit {
		if err := r.ParseForm(); err != nil {
			s.fail(w, r, core.NewValidationError("malformed form", "body"))
			return
		}
		in.Form = formValues(r)
	}

	token, err := s.wizardToken(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.deps.ExtractWizard.Handle(r.Context(), token, name, core.Step(r.URL.Query().Get("step")), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondNotice(w, r, out.Next, out.Notice, out)
}

func (s *Server) handleListConnectors(w http.ResponseWriter, _ *http.Request) {
	names := s.deps.Engine.Connectors()
	sort.Strings(names)
	writeJSON(w, map[string][]string{"connectors": names})
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "connector")
	tester, ok := s.deps.Testers[name]
	if !ok {
		s.fail(w, r, fmt.Errorf("connector %q: %w", name, core.ErrNotFound))
		return
	}

	var cfg core.JobConfig
	if err := decodeJSON(w, r, &cfg); err != nil {
		s.fail(w, r, err)
		return
	}
	if cfg.URL == "" {
		cfg.URL = connector.BuildJDBCURL(cfg.Host, cfg.Database, cfg.ConnType, cfg.Extra)
	}
	writeJSON(w, tester.Test(r.Context(), cfg))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.deps.Engine.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]core.ExtractionJob, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, maskJob(j))
	}
	writeJSON(w, out)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	job, err := s.deps.Engine.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, maskJob(*job))
}

// handleLaunchJob creates a job and runs it in the same request.
func (s *Server) handleLaunchJob(w http.ResponseWriter, r *http.Request) {
	var req extraction.LaunchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Config.URL == "" {
		req.Config.URL = connector.BuildJDBCURL(req.Config.Host, req.Config.Database, req.Config.ConnType, req.Config.Extra)
	}
	job, err := s.deps.Engine.Launch(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondRun(w, r, http.StatusCreated, job.ID, s.deps.Engine.Run)
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondRun(w, r, http.StatusOK, id, s.deps.Engine.Run)
}

func (s *Server) handleRestartJob(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondRun(w, r, http.StatusOK, id, s.deps.Engine.Restart)
}

// respondRun executes run and reports the settled job. A failed run is not
// an HTTP error: the job carries status "error" and the message. Missing
// jobs and a saturated limiter are.
func (s *Server) respondRun(w http.ResponseWriter, r *http.Request, status int, id int64,
	run func(context.Context, int64) (*core.RunResult, error)) {
	res, runErr := run(r.Context(), id)
	if runErr != nil && (errors.Is(runErr, core.ErrNotFound) || errors.Is(runErr, core.ErrTooManyRuns)) {
		s.fail(w, r, runErr)
		return
	}
	job, err := s.deps.Engine.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := jobResponse{Job: maskJob(*job), Result: res}
	if runErr != nil {
		out.Error = core.MapError(runErr).Message
		if job.Error != "" {
			out.Error = job.Error
		}
	}
	writeJSONStatus(w, status, out)
}

// handleJobLogs serves the job log as a text attachment.
func (s *Server) handleJobLogs(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	filename, content, err := s.deps.Engine.LogExport(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write([]byte(content))
}
