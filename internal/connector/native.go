package connector

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sony/gobreaker"

	"github.com/JonMunkholm/custodia/internal/core"
)

// StrategyNative names the database/sql strategy.
const StrategyNative = "native"

// DSNFunc turns a job config into a driver data source name.
type DSNFunc func(cfg core.JobConfig) (string, error)

// NativeOptions configures the native strategy.
type NativeOptions struct {
	Driver          string        // registered database/sql driver name
	DSN             DSNFunc       // default: TeradataDSN
	BreakerFailures int           // consecutive failures that open the breaker
	BreakerTimeout  time.Duration // how long the breaker stays open
}

// NativeStrategy connects through a registered database/sql driver. Opening
// is guarded by a circuit breaker so an unreachable host fails fast.
type NativeStrategy struct {
	driver  string
	dsn     DSNFunc
	breaker *gobreaker.CircuitBreaker
	drivers func() []string
}

// NewNativeStrategy creates the native strategy.
func NewNativeStrategy(opts NativeOptions) *NativeStrategy {
	if opts.DSN == nil {
		opts.DSN = TeradataDSN
	}
	if opts.BreakerFailures <= 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = time.Minute
	}
	failures := uint32(opts.BreakerFailures)

	return &NativeStrategy{
		driver:  opts.Driver,
		dsn:     opts.DSN,
		drivers: sql.Drivers,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "connector-native-" + opts.Driver,
			Timeout: opts.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Info("circuit breaker state changed",
					"name", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// Name implements ConnectionStrategy.
func (s *NativeStrategy) Name() string { return StrategyNative }

// Connect implements ConnectionStrategy.
func (s *NativeStrategy) Connect(ctx context.Context, cfg core.JobConfig) (Conn, error) {
	if s.driver == "" || !slices.Contains(s.drivers(), s.driver) {
		return nil, errors.Newf("native driver %q not registered", s.driver)
	}

	dsn, err := s.dsn(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "native driver failed")
	}

	res, err := s.breaker.Execute(func() (interface{}, error) {
		db, err := sql.Open(s.driver, dsn)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "native driver failed")
	}
	return &sqlConn{db: res.(*sql.DB)}, nil
}

// BreakerState reports the circuit breaker state.
func (s *NativeStrategy) BreakerState() gobreaker.State {
	return s.breaker.State()
}

// TeradataDSN builds the JSON connection string used by the teradatasql
// driver. Host, database and logon mechanism come from the JDBC URL when it
// carries them, otherwise from the config fields.
func TeradataDSN(cfg core.JobConfig) (string, error) {
	host, params, ok := parseJDBCURL(cfg.URL)
	if !ok {
		host = cfg.Host
	}
	if host == "" {
		return "", errors.Newf("cannot derive a host from %q", cfg.URL)
	}

	dsn := map[string]string{
		"host":     host,
		"user":     cfg.Username,
		"password": cfg.Password,
	}
	if db := firstNonEmpty(params["DATABASE"], cfg.Database); db != "" {
		dsn["database"] = db
	}
	if mech := firstNonEmpty(params["LOGMECH"], cfg.ConnType); mech != "" {
		dsn["logmech"] = mech
	}

	b, err := json.Marshal(dsn)
	if err != nil {
		return "", errors.Wrap(err, "encode dsn")
	}
	return string(b), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// sqlConn adapts *sql.DB to Conn.
type sqlConn struct {
	db *sql.DB
}

func (c *sqlConn) Query(ctx context.Context, query string) ([][]string, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "read columns")
	}

	var out [][]string
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		record := make([]string, len(cols))
		for i, v := range values {
			record[i] = v.String
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}
	return out, nil
}

func (c *sqlConn) Close() error {
	return c.db.Close()
}
