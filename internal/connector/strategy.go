// Package connector opens connections to external metadata sources.
//
// A Resolver tries each ConnectionStrategy in order and returns the first
// connection that works. When every strategy fails the caller receives a
// *DriverError listing each attempt.
//
// # JDBC bridge contract
//
// The bridge strategy shells out to an operator-supplied executable
// (CONNECTOR_BRIDGE_COMMAND, default "jdbc-bridge") once per statement:
//
//	jdbc-bridge --driver com.teradata.jdbc.TeraDriver \
//	    --classpath <jar>[:<jar>...] --url <jdbc url> --user <name> \
//	    --format csv (--ping | --query)
//
// The password arrives in the JDBC_PASSWORD environment variable, never on
// the command line. The classpath lists every *.jar in TERADATA_JDBC_DIR,
// joined with the OS path list separator. With --ping the bridge opens and closes a connection and
// exits 0 on success. With --query it reads one SQL statement from stdin and
// writes the result set to stdout as RFC 4180 CSV, header record first; a
// UTF-8 BOM is tolerated. Any non-zero exit is a failure and the trimmed
// stderr becomes the error message.
package connector

import (
	"context"
	"strings"

	"github.com/JonMunkholm/custodia/internal/core"
)

// Conn is an open metadata connection.
type Conn interface {
	// Query runs a statement and returns every row as strings. NULL becomes "".
	Query(ctx context.Context, query string) ([][]string, error)
	Close() error
}

// ConnectionStrategy is one way of reaching the source database.
type ConnectionStrategy interface {
	Name() string
	Connect(ctx context.Context, cfg core.JobConfig) (Conn, error)
}

// problems is returned by a strategy that failed for several independent
// reasons. The resolver records each one as its own attempt.
type problems []error

func (p problems) Error() string {
	parts := make([]string, len(p))
	for i, err := range p {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}

func (p problems) Unwrap() []error { return p }
