// Package extraction runs metadata extraction jobs and reconciles their
// output into the asset store.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/custodia/internal/connector"
	"github.com/JonMunkholm/custodia/internal/core"
	"github.com/JonMunkholm/custodia/internal/logging"
)

// DefaultCustodian owns assets created by extraction jobs. It is matched by
// email.
var DefaultCustodian = core.Custodian{
	Name:    "Gestor Padrão (Metadados)",
	OrgUnit: "Extrações",
	SubUnit: "Automático",
	Email:   "gestor.meta@exemplo.gov",
}

// EnsureDefaultCustodian returns the id of DefaultCustodian, creating it when
// missing.
func EnsureDefaultCustodian(ctx context.Context, store core.CustodianStore) (int64, error) {
	c, err := store.FindCustodianByEmail(ctx, DefaultCustodian.Email)
	if err == nil {
		return c.ID, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return 0, fmt.Errorf("find default custodian: %w", err)
	}
	c, err = store.CreateCustodian(ctx, DefaultCustodian)
	if err != nil {
		return 0, fmt.Errorf("create default custodian: %w", err)
	}
	return c.ID, nil
}

// MetadataFetcher retrieves the database listing from a source system.
type MetadataFetcher interface {
	Fetch(ctx context.Context, cfg core.JobConfig) (*connector.FetchResult, error)
}

// RunObserver is notified when a run settles.
type RunObserver func(connector string, status core.JobStatus, res *core.RunResult, elapsed time.Duration)

// Options configures an Engine.
type Options struct {
	Runner   Runner            // default: SyncRunner
	Limiter  *core.RunLimiter  // default: one run at a time
	Timeout  time.Duration     // bounds fetch and reconcile (default: 2m)
	Observer RunObserver
}

// LaunchRequest describes a new job.
type LaunchRequest struct {
	Connector      string         `json:"connector"`
	ExtractionType string         `json:"extraction_type"`
	Mode           core.RunMode   `json:"mode"`
	Config         core.JobConfig `json:"config"`
}

// Engine creates, runs and restarts extraction jobs.
type Engine struct {
	store      core.Store
	fetchers   map[string]MetadataFetcher
	reconciler *Reconciler
	runner     Runner
	limiter    *core.RunLimiter
	locks      *core.KeyedMutex
	timeout    time.Duration
	observer   RunObserver
}

// NewEngine creates an Engine. fetchers is keyed by connector name.
func NewEngine(store core.Store, fetchers map[string]MetadataFetcher, opts Options) *Engine {
	if opts.Runner == nil {
		opts.Runner = SyncRunner{}
	}
	if opts.Limiter == nil {
		opts.Limiter = core.NewRunLimiter(1, 30*time.Second)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &Engine{
		store:      store,
		fetchers:   fetchers,
		reconciler: NewReconciler(store),
		runner:     opts.Runner,
		limiter:    opts.Limiter,
		locks:      core.NewKeyedMutex(),
		timeout:    opts.Timeout,
		observer:   opts.Observer,
	}
}

// Connectors lists the connector names the engine can run.
func (e *Engine) Connectors() []string {
	out := make([]string, 0, len(e.fetchers))
	for name := range e.fetchers {
		out = append(out, name)
	}
	return out
}

// Launch creates a pending job.
func (e *Engine) Launch(ctx context.Context, req LaunchRequest) (*core.ExtractionJob, error) {
	if _, ok := e.fetchers[req.Connector]; !ok {
		return nil, core.NewValidationError(fmt.Sprintf("unsupported connector %q", req.Connector), "connector")
	}
	if req.ExtractionType == "" {
		req.ExtractionType = "metadata"
	}

	job, err := e.store.CreateJob(ctx, core.ExtractionJob{
		Connector:      req.Connector,
		ExtractionType: req.ExtractionType,
		Mode:           core.ParseRunMode(string(req.Mode)),
		Config:         req.Config,
		Status:         core.JobPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	logging.WithJob(ctx, job.ID, job.Connector, string(job.Mode)).Info("extraction job created")
	return &job, nil
}

// Get returns one job.
func (e *Engine) Get(ctx context.Context, id int64) (*core.ExtractionJob, error) {
	job, err := e.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// List returns all jobs, newest first.
func (e *Engine) List(ctx context.Context) ([]core.ExtractionJob, error) {
	return e.store.ListJobs(ctx)
}

// LogExport returns the download name and content of a job's log.
func (e *Engine) LogExport(ctx context.Context, id int64) (string, string, error) {
	job, err := e.store.GetJob(ctx, id)
	if err != nil {
		return "", "", err
	}
	content := job.Log
	if strings.TrimSpace(content) == "" {
		content = "No logs available."
	}
	return fmt.Sprintf("job_%d_logs.txt", id), content, nil
}

// Run executes job id through the runner.
func (e *Engine) Run(ctx context.Context, id int64) (*core.RunResult, error) {
	future := e.runner.Submit(ctx, func(ctx context.Context) (*core.RunResult, error) {
		return e.execute(ctx, id, false)
	})
	return future.Wait(ctx)
}

// Restart resets job id to pending and runs it again with its stored config.
func (e *Engine) Restart(ctx context.Context, id int64) (*core.RunResult, error) {
	future := e.runner.Submit(ctx, func(ctx context.Context) (*core.RunResult, error) {
		return e.execute(ctx, id, true)
	})
	return future.Wait(ctx)
}

func (e *Engine) execute(ctx context.Context, id int64, restart bool) (*core.RunResult, error) {
	unlock := e.locks.Lock(strconv.FormatInt(id, 10))
	defer unlock()

	job, err := e.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	if restart {
		pending, zero, empty := core.JobPending, 0, ""
		if err := e.store.UpdateJob(ctx, id, core.JobUpdate{Status: &pending, Progress: &zero, Error: &empty}); err != nil {
			return nil, fmt.Errorf("reset job: %w", err)
		}
		core.LogAudit(ctx, e.store, core.AuditLogParams{Action: core.ActionJobRestart, Subject: jobSubject(job)})
	}

	if err := e.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer e.limiter.Release()

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	logger := logging.WithJob(ctx, job.ID, job.Connector, string(job.Mode))
	start := time.Now()

	res, status, err := e.run(runCtx, logger, job)
	if err != nil {
		e.fail(ctx, logger, job.ID, err)
		status = core.JobError
	}

	if e.observer != nil {
		e.observer(job.Connector, status, res, time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	core.LogAudit(ctx, e.store, core.AuditLogParams{
		Action:       core.ActionJobRun,
		Subject:      jobSubject(job),
		Detail:       strings.Join(res.Errors, "\n"),
		RowsAffected: res.Imported,
	})
	return res, nil
}

func jobSubject(job core.ExtractionJob) string {
	return fmt.Sprintf("%s job %d", job.Connector, job.ID)
}

// run performs the extraction phases. A panic is converted into an error.
func (e *Engine) run(ctx context.Context, logger *slog.Logger, job core.ExtractionJob) (res *core.RunResult, status core.JobStatus, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("extraction panicked", "panic", r)
			res, err = nil, fmt.Errorf("unexpected failure: %v", r)
		}
	}()

	if err := e.store.AppendJobLog(ctx, job.ID, "Starting metadata extraction...", true); err != nil {
		return nil, "", err
	}
	running, ten, empty := core.JobRunning, 10, ""
	if err := e.store.UpdateJob(ctx, job.ID, core.JobUpdate{Status: &running, Progress: &ten, Error: &empty}); err != nil {
		return nil, "", err
	}
	logger.Info("extraction started")

	fetcher, ok := e.fetchers[job.Connector]
	if !ok {
		return nil, "", fmt.Errorf("unsupported connector %q", job.Connector)
	}
	fetched, err := fetcher.Fetch(ctx, job.Config)
	if err != nil {
		return nil, "", err
	}
	if fetched.Note != "" {
		if err := e.store.AppendJobLog(ctx, job.ID, fetched.Note, false); err != nil {
			return nil, "", err
		}
	}

	if err := e.store.AppendJobLog(ctx, job.ID, "Processing extracted bases...", false); err != nil {
		return nil, "", err
	}
	forty := 40
	if err := e.store.UpdateJob(ctx, job.ID, core.JobUpdate{Progress: &forty}); err != nil {
		return nil, "", err
	}

	custodianID, err := EnsureDefaultCustodian(ctx, e.store)
	if err != nil {
		return nil, "", err
	}

	rec, err := e.reconciler.Reconcile(ctx, fetched.Rows, ReconcileOptions{
		Connector:   job.Connector,
		Mode:        job.Mode,
		JobID:       job.ID,
		CustodianID: custodianID,
	})
	if err != nil {
		return nil, "", err
	}

	total := len(fetched.Rows)
	progress := 0
	if total > 0 {
		progress = 100
	}
	status = core.JobCompleted
	if total > 0 && len(rec.Errors) == 0 {
		status = core.JobSuccess
	}
	errText := strings.Join(rec.Errors, "\n")
	if err := e.store.UpdateJob(ctx, job.ID, core.JobUpdate{Status: &status, Progress: &progress, Error: &errText}); err != nil {
		return nil, "", err
	}

	lines := []string{fmt.Sprintf("Rows received: %d. Bases applied: %d.", total, rec.Imported)}
	if len(rec.Errors) > 0 {
		lines = append(lines, "Warnings during execution:")
		for _, msg := range rec.Errors {
			lines = append(lines, "- "+msg)
		}
	}
	for _, line := range lines {
		if err := e.store.AppendJobLog(ctx, job.ID, line, false); err != nil {
			return nil, "", err
		}
	}

	logger.Info("extraction finished",
		"status", status,
		"rows", total,
		"imported", rec.Imported,
		"deleted", rec.Deleted,
		"errors", len(rec.Errors),
		"simulated", fetched.Simulated,
	)

	return &core.RunResult{
		JobID:     job.ID,
		Total:     total,
		Imported:  rec.Imported,
		Errors:    rec.Errors,
		Note:      fetched.Note,
		Driver:    fetched.Driver,
		Simulated: fetched.Simulated,
	}, status, nil
}

// fail records a fatal run error on a context detached from the run deadline.
func (e *Engine) fail(ctx context.Context, logger *slog.Logger, id int64, cause error) {
	logger.Error("extraction failed", "error", cause)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	status, msg := core.JobError, cause.Error()
	if err := e.store.UpdateJob(ctx, id, core.JobUpdate{Status: &status, Error: &msg}); err != nil {
		logger.Error("failed to record job error", "error", err)
	}
	if err := e.store.AppendJobLog(ctx, id, "Extraction failed: "+msg, false); err != nil {
		logger.Error("failed to append job log", "error", err)
	}
}
