package extraction

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/custodia/internal/connector"
	"github.com/JonMunkholm/custodia/internal/core"
	"github.com/JonMunkholm/custodia/internal/memstore"
)

const connectorX = "connectorX"

type fakeFetcher struct {
	mu    sync.Mutex
	res   *connector.FetchResult
	err   error
	panic bool
	calls int
	seen  []core.JobConfig
}

func (f *fakeFetcher) Fetch(_ context.Context, cfg core.JobConfig) (*connector.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.seen = append(f.seen, cfg)
	if f.panic {
		panic("driver exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func rows(names ...string) *connector.FetchResult {
	res := &connector.FetchResult{Driver: "native"}
	for _, n := range names {
		res.Rows = append(res.Rows, connector.MetadataRow{DatabaseName: n, CommentString: n + " comment"})
	}
	return res
}

func newTestEngine(t *testing.T, f *fakeFetcher) (*Engine, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return NewEngine(store, map[string]MetadataFetcher{connectorX: f}, Options{}), store
}

func launch(t *testing.T, e *Engine, mode core.RunMode) *core.ExtractionJob {
	t.Helper()
	job, err := e.Launch(context.Background(), LaunchRequest{
		Connector: connectorX,
		Mode:      mode,
		Config:    core.JobConfig{URL: "jdbc:teradata://h", Username: "u", Password: "p", Database: "sales"},
	})
	require.NoError(t, err)
	return job
}

func TestEngine_LaunchCreatesPendingJob(t *testing.T) {
	e, _ := newTestEngine(t, &fakeFetcher{})

	job := launch(t, e, "")
	assert.Equal(t, core.JobPending, job.Status)
	assert.Equal(t, core.ModeIncremental, job.Mode)
	assert.Equal(t, "metadata", job.ExtractionType)
	assert.Equal(t, "p", job.Config.Password)

	_, err := e.Launch(context.Background(), LaunchRequest{Connector: "oracle"})
	assert.True(t, core.IsValidation(err))
}

func TestEngine_RunSuccess(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{res: rows("sales", "hr")}
	e, store := newTestEngine(t, f)
	job := launch(t, e, core.ModeIncremental)

	res, err := e.Run(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, res.JobID)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Imported)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "native", res.Driver)

	got, err := e.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobSuccess, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Empty(t, got.Error)
	assert.Equal(t,
		"Starting metadata extraction...\nProcessing extracted bases...\nRows received: 2. Bases applied: 2.",
		got.Log)

	custodian, err := store.FindCustodianByEmail(ctx, DefaultCustodian.Email)
	require.NoError(t, err)
	assert.Equal(t, DefaultCustodian.Name, custodian.Name)

	asset, err := store.FindAssetByName(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, connectorX, asset.Provenance)
	assert.Equal(t, "sales comment", core.Deref(asset.Description))
	require.NotNil(t, asset.PrimaryID)
	assert.Equal(t, custodian.ID, *asset.PrimaryID)
	require.NotNil(t, asset.SourceJobID)
	assert.Equal(t, job.ID, *asset.SourceJobID)
	assert.Nil(t, asset.Backup1ID)
}

func TestEngine_RunWithWarnings(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{res: rows("sales", "  ")}
	e, store := newTestEngine(t, f)

	_, err := store.CreateAsset(ctx, core.Asset{Name: "sales", Provenance: core.ProvenanceManual})
	require.NoError(t, err)

	job := launch(t, e, core.ModeIncremental)
	res, err := e.Run(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, []string{
		"asset 'sales' was created manually or imported and will not be overwritten",
		"row skipped: missing database name",
	}, res.Errors)

	got, _ := e.Get(ctx, job.ID)
	assert.Equal(t, core.JobCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, strings.Join(res.Errors, "\n"), got.Error)
	assert.True(t, strings.HasSuffix(got.Log,
		"Warnings during execution:\n- asset 'sales' was created manually or imported and will not be overwritten\n- row skipped: missing database name"))

	manual, err := store.FindAssetByName(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, core.ProvenanceManual, manual.Provenance)
	assert.Nil(t, manual.Description)
}

func TestEngine_FullModeWithNoRows(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t, &fakeFetcher{res: rows()})

	_, err := store.CreateAsset(ctx, core.Asset{Name: "old", Provenance: connectorX})
	require.NoError(t, err)
	_, err = store.CreateAsset(ctx, core.Asset{Name: "kept", Provenance: core.ProvenanceManual})
	require.NoError(t, err)

	job := launch(t, e, core.ModeFull)
	res, err := e.Run(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.Equal(t, 0, res.Imported)

	got, _ := e.Get(ctx, job.ID)
	assert.Equal(t, core.JobCompleted, got.Status)
	assert.Equal(t, 0, got.Progress)

	_, err = store.FindAssetByName(ctx, "old")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = store.FindAssetByName(ctx, "kept")
	assert.NoError(t, err)
}

func TestEngine_SimulatedNoteIsLogged(t *testing.T) {
	ctx := context.Background()
	res := rows("sales")
	res.Note = "simulated extraction (JDBC driver unavailable: boom)"
	res.Simulated = true
	e, _ := newTestEngine(t, &fakeFetcher{res: res})
	job := launch(t, e, core.ModeIncremental)

	out, err := e.Run(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, out.Simulated)
	assert.Equal(t, res.Note, out.Note)

	got, _ := e.Get(ctx, job.ID)
	lines := strings.Split(got.Log, "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, res.Note, lines[1])
}

func TestEngine_FatalErrorMarksJob(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")
	e, _ := newTestEngine(t, &fakeFetcher{err: boom})
	job := launch(t, e, core.ModeIncremental)

	_, err := e.Run(ctx, job.ID)
	assert.ErrorIs(t, err, boom)

	got, _ := e.Get(ctx, job.ID)
	assert.Equal(t, core.JobError, got.Status)
	assert.Equal(t, "connection refused", got.Error)
	assert.True(t, strings.HasSuffix(got.Log, "Extraction failed: connection refused"))
}

func TestEngine_PanicIsRecovered(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t, &fakeFetcher{panic: true})
	job := launch(t, e, core.ModeIncremental)

	_, err := e.Run(ctx, job.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver exploded")

	got, _ := e.Get(ctx, job.ID)
	assert.Equal(t, core.JobError, got.Status)
}

func TestEngine_RestartReplacesLog(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{err: errors.New("first failure")}
	e, _ := newTestEngine(t, f)
	job := launch(t, e, core.ModeIncremental)

	_, err := e.Run(ctx, job.ID)
	require.Error(t, err)

	f.mu.Lock()
	f.err = nil
	f.res = rows("sales")
	f.mu.Unlock()

	res, err := e.Restart(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, res.JobID)

	got, _ := e.Get(ctx, job.ID)
	assert.Equal(t, core.JobSuccess, got.Status)
	assert.Empty(t, got.Error)
	assert.NotContains(t, got.Log, "first failure")
	assert.True(t, strings.HasPrefix(got.Log, "Starting metadata extraction..."))

	require.Len(t, f.seen, 2)
	assert.Equal(t, f.seen[0], f.seen[1], "restart reuses the stored config")
}

func TestEngine_IncrementalIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t, &fakeFetcher{res: rows("sales", "hr")})

	for i := 0; i < 2; i++ {
		job := launch(t, e, core.ModeIncremental)
		_, err := e.Run(ctx, job.ID)
		require.NoError(t, err)
	}

	assets, err := store.ListAssets(ctx)
	require.NoError(t, err)
	assert.Len(t, assets, 2)
}

func TestEngine_LimiterRejectsWhenBusy(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	limiter := core.NewRunLimiter(1, 10*time.Millisecond)
	e := NewEngine(store, map[string]MetadataFetcher{connectorX: &fakeFetcher{res: rows("a")}}, Options{Limiter: limiter})
	job := launch(t, e, core.ModeIncremental)

	require.True(t, limiter.TryAcquire())
	defer limiter.Release()

	_, err := e.Run(ctx, job.ID)
	assert.ErrorIs(t, err, core.ErrTooManyRuns)

	got, _ := e.Get(ctx, job.ID)
	assert.Equal(t, core.JobPending, got.Status)
}

func TestEngine_ObserverAndAudit(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	var statuses []core.JobStatus
	e := NewEngine(store, map[string]MetadataFetcher{connectorX: &fakeFetcher{res: rows("a")}}, Options{
		Observer: func(_ string, status core.JobStatus, _ *core.RunResult, _ time.Duration) {
			statuses = append(statuses, status)
		},
	})
	job := launch(t, e, core.ModeIncremental)

	_, err := e.Run(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, []core.JobStatus{core.JobSuccess}, statuses)

	audit, err := store.ListAudit(ctx, 1)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, core.ActionJobRun, audit[0].Action)
}

func TestEngine_ListAndLogExport(t *testing.T) {
	ctx := context.Background()
	e, store := newTestEngine(t, &fakeFetcher{res: rows("a")})
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	now := base
	store.SetClock(func() time.Time { return now })

	first := launch(t, e, core.ModeIncremental)
	now = base.Add(time.Minute)
	second := launch(t, e, core.ModeIncremental)

	jobs, err := e.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, second.ID, jobs[0].ID)
	assert.Equal(t, first.ID, jobs[1].ID)

	name, content, err := e.LogExport(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "job_"+itoa(first.ID)+"_logs.txt", name)
	assert.Equal(t, "No logs available.", content)

	_, err = e.Run(ctx, first.ID)
	require.NoError(t, err)
	_, content, err = e.LogExport(ctx, first.ID)
	require.NoError(t, err)
	assert.Contains(t, content, "Rows received: 1. Bases applied: 1.")

	_, _, err = e.LogExport(ctx, 9999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSyncRunner(t *testing.T) {
	calls := 0
	fut := SyncRunner{}.Submit(context.Background(), func(context.Context) (*core.RunResult, error) {
		calls++
		return &core.RunResult{Total: 3}, nil
	})
	assert.Equal(t, 1, calls, "task runs during Submit")

	res, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
}
