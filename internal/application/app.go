// Package application builds the object graph shared by the HTTP server and
// the admin CLI: store, session backend, connector, engine and wizards.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/custodia/internal/admin"
	"github.com/JonMunkholm/custodia/internal/config"
	"github.com/JonMunkholm/custodia/internal/connector"
	"github.com/JonMunkholm/custodia/internal/core"
	_ "github.com/JonMunkholm/custodia/internal/core/flows" // Register import flows
	"github.com/JonMunkholm/custodia/internal/database"
	"github.com/JonMunkholm/custodia/internal/extraction"
	"github.com/JonMunkholm/custodia/internal/memstore"
	"github.com/JonMunkholm/custodia/internal/metrics"
	"github.com/JonMunkholm/custodia/internal/session"
	"github.com/JonMunkholm/custodia/internal/web"
)

// App holds the wired components. Close releases pools and clients.
type App struct {
	Config        *config.Config
	Store         core.Store
	Sessions      core.SessionStore
	Service       *core.Service
	Wizard        *core.Wizard
	Resolver      *connector.Resolver
	Limiter       *core.RunLimiter
	Engine        *extraction.Engine
	ExtractWizard *extraction.Wizard
	Metrics       *metrics.Metrics

	sweeper session.Sweeper
	closers []func()
}

// New opens the configured backends and wires the domain services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Metrics: metrics.New()}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openSessions(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.Service = core.NewService(a.Store, core.ServiceOptions{AdminUsername: cfg.Admin.Username})
	a.Wizard = core.NewWizard(a.Sessions, a.Store, core.WizardOptions{
		DefaultDelimiter: cfg.Upload.DefaultDelimiter,
		Observer:         a.Metrics.ObserveImport,
	})

	a.Resolver = connector.NewDefaultResolver(cfg.Connector, a.Metrics.ObserveAttempt)
	a.Limiter = core.NewRunLimiter(cfg.Extraction.MaxConcurrent, cfg.Extraction.MaxWait)
	a.Engine = extraction.NewEngine(a.Store,
		map[string]extraction.MetadataFetcher{
			connector.Teradata: connector.NewFetcher(a.Resolver, cfg.Connector.SimulateOnFailure),
		},
		extraction.Options{
			Limiter:  a.Limiter,
			Timeout:  cfg.Connector.Timeout,
			Observer: a.Metrics.ObserveRun,
		})
	a.ExtractWizard = extraction.NewWizard(a.Sessions, a.Engine, a.testers())

	slog.Info("application ready",
		"store", cfg.Store.Backend,
		"sessions", cfg.Session.Backend,
		"flows", len(core.Flows()),
		"connectors", a.Engine.Connectors(),
	)
	return a, nil
}

func (a *App) testers() map[string]extraction.ConnectionTester {
	return map[string]extraction.ConnectionTester{connector.Teradata: a.Resolver}
}

func (a *App) openStore(ctx context.Context) error {
	switch strings.ToLower(a.Config.Store.Backend) {
	case config.BackendMemory:
		slog.Warn("using in-memory store; data is lost on restart")
		a.Store = memstore.New()
		return nil
	case config.BackendPostgres:
		pool, err := database.Open(ctx, a.Config.Database)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)
		if a.Config.Database.MigrateOnStart {
			if err := database.Migrate(ctx, pool); err != nil {
				return err
			}
			slog.Info("database schema applied")
		}
		a.Store = database.NewStore(pool)
		return nil
	default:
		return fmt.Errorf("unknown store backend %q", a.Config.Store.Backend)
	}
}

func (a *App) openSessions(ctx context.Context) error {
	switch strings.ToLower(a.Config.Session.Backend) {
	case config.BackendRedis:
		r, err := session.OpenRedis(ctx, a.Config.Session.RedisURL, a.Config.Session.TTL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = r.Close() })
		a.Sessions = r
		a.sweeper = r
	default:
		m := session.NewMemory(session.MemoryOptions{
			TTL:        a.Config.Session.TTL,
			MaxEntries: a.Config.Session.MaxEntries,
		})
		a.Sessions = m
		a.sweeper = m
	}
	return nil
}

// Seed creates the administrator login and the default custodian.
func (a *App) Seed(ctx context.Context) error {
	s := &admin.Seeder{Store: a.Store, Admin: a.Config.Admin}
	return s.Seed(ctx)
}

// RunJanitor sweeps expired wizard sessions until ctx is cancelled.
func (a *App) RunJanitor(ctx context.Context) {
	session.RunJanitor(ctx, a.sweeper, a.Config.Session.SweepInterval)
}

// WebDeps returns the collaborators the HTTP layer needs.
func (a *App) WebDeps() web.Deps {
	return web.Deps{
		Service:       a.Service,
		Wizard:        a.Wizard,
		Sessions:      a.Sessions,
		Engine:        a.Engine,
		ExtractWizard: a.ExtractWizard,
		Testers:       a.testers(),
		Metrics:       a.Metrics,
	}
}

// Close releases backends in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
