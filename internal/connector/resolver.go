package connector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/JonMunkholm/custodia/internal/config"
	"github.com/JonMunkholm/custodia/internal/core"
)

// Attempt is one failed strategy try.
type Attempt struct {
	Strategy string `json:"strategy"`
	Err      error  `json:"-"`
}

// DriverError is returned when no strategy produced a connection.
type DriverError struct {
	Attempts []Attempt
}

func (e *DriverError) Error() string {
	if len(e.Attempts) == 0 {
		return "Teradata driver is not available"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Err.Error()
	}
	return strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match core.ErrDriverUnavailable.
func (e *DriverError) Unwrap() error { return core.ErrDriverUnavailable }

// AttemptObserver is notified after every strategy try; err is nil on success.
type AttemptObserver func(strategy string, err error)

// Resolver walks its strategies in order.
type Resolver struct {
	strategies []ConnectionStrategy
	driverDir  string
	observer   AttemptObserver
}

// NewResolver creates a resolver over the given strategies. driverDir is
// used for the missing-driver hint.
func NewResolver(driverDir string, observer AttemptObserver, strategies ...ConnectionStrategy) *Resolver {
	return &Resolver{strategies: strategies, driverDir: driverDir, observer: observer}
}

// NewDefaultResolver wires the native and bridge strategies from config.
func NewDefaultResolver(cfg config.ConnectorConfig, observer AttemptObserver) *Resolver {
	return NewResolver(cfg.DriverDir, observer,
		NewNativeStrategy(NativeOptions{
			Driver:          cfg.NativeDriver,
			BreakerFailures: cfg.BreakerFailures,
			BreakerTimeout:  cfg.BreakerTimeout,
		}),
		NewBridgeStrategy(BridgeOptions{
			DriverDir: cfg.DriverDir,
			Command:   cfg.BridgeCommand,
		}),
	)
}

// Connect returns the first working connection and the name of the strategy
// that produced it.
func (r *Resolver) Connect(ctx context.Context, cfg core.JobConfig) (Conn, string, error) {
	if cfg.URL == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, "", core.ErrMissingCredentials
	}

	derr := &DriverError{}
	for _, s := range r.strategies {
		conn, err := s.Connect(ctx, cfg)
		r.observe(s.Name(), err)
		if err == nil {
			slog.Debug("connector strategy succeeded", "strategy", s.Name())
			return conn, s.Name(), nil
		}
		slog.Debug("connector strategy failed", "strategy", s.Name(), "error", err)

		var many problems
		if errors.As(err, &many) {
			for _, p := range many {
				derr.Attempts = append(derr.Attempts, Attempt{Strategy: s.Name(), Err: p})
			}
			continue
		}
		derr.Attempts = append(derr.Attempts, Attempt{Strategy: s.Name(), Err: err})
	}

	if len(FindJars(r.driverDir)) == 0 {
		return nil, "", errors.WithHint(derr, r.installHint())
	}
	return nil, "", derr
}

func (r *Resolver) observe(strategy string, err error) {
	if r.observer != nil {
		r.observer(strategy, err)
	}
}

func (r *Resolver) installHint() string {
	return fmt.Sprintf("Copy the JDBC driver to %s and restart the application.", r.driverDir)
}

// TestResult is the outcome of a connection test.
type TestResult struct {
	OK               bool     `json:"ok"`
	Driver           string   `json:"driver,omitempty"`
	Message          string   `json:"message"`
	MissingArtifacts []string `json:"missing_artifacts,omitempty"`
}

// Test opens and immediately closes a connection.
func (r *Resolver) Test(ctx context.Context, cfg core.JobConfig) TestResult {
	conn, driver, err := r.Connect(ctx, cfg)
	if err == nil {
		_ = conn.Close()
		return TestResult{OK: true, Driver: driver, Message: "Connection succeeded."}
	}

	res := TestResult{Message: fmt.Sprintf("Could not connect: %s.", err.Error())}
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		res.Message += " " + strings.Join(hints, " ")
	}

	var derr *DriverError
	if errors.As(err, &derr) {
		if len(FindJars(r.driverDir)) == 0 {
			res.MissingArtifacts = append(res.MissingArtifacts, "JDBC driver (*.jar) in "+r.driverDir)
		}
		for _, a := range derr.Attempts {
			if strings.Contains(a.Err.Error(), "bridge command") {
				res.MissingArtifacts = append(res.MissingArtifacts, "bridge executable")
			}
		}
	}
	return res
}
