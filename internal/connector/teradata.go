package connector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/JonMunkholm/custodia/internal/core"
)

// Teradata is the connector name used as asset provenance.
const Teradata = "teradata"

// metadataQuery lists user databases and their comments.
const metadataQuery = `select d.DatabaseName, d.CommentString FROM DBC.DatabasesV AS d where DBKind = 'D'`

// MetadataRow is one database reported by the source.
type MetadataRow struct {
	DatabaseName  string `json:"database_name"`
	CommentString string `json:"comment_string"`
}

// FetchResult is the outcome of one metadata fetch.
type FetchResult struct {
	Rows      []MetadataRow
	Note      string // set when the rows are simulated
	Driver    string
	Simulated bool
}

// Fetcher pulls database metadata through a Resolver.
type Fetcher struct {
	resolver *Resolver
	simulate bool
}

// NewFetcher creates a Fetcher. With simulate set, connection or query
// failures yield sample rows instead of an error.
func NewFetcher(resolver *Resolver, simulate bool) *Fetcher {
	return &Fetcher{resolver: resolver, simulate: simulate}
}

// Fetch runs the metadata query.
func (f *Fetcher) Fetch(ctx context.Context, cfg core.JobConfig) (*FetchResult, error) {
	res, err := f.fetch(ctx, cfg)
	if err == nil {
		return res, nil
	}
	if !f.simulate {
		return nil, err
	}

	slog.Warn("metadata fetch failed, using simulated rows", "error", err)
	return simulated(cfg.Database, err), nil
}

func (f *Fetcher) fetch(ctx context.Context, cfg core.JobConfig) (*FetchResult, error) {
	conn, driver, err := f.resolver.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	records, err := conn.Query(ctx, metadataQuery)
	if err != nil {
		return nil, errors.Wrap(err, "metadata query failed")
	}

	rows := make([]MetadataRow, 0, len(records))
	for _, rec := range records {
		var row MetadataRow
		if len(rec) > 0 {
			row.DatabaseName = rec[0]
		}
		if len(rec) > 1 {
			row.CommentString = rec[1]
		}
		rows = append(rows, row)
	}
	return &FetchResult{Rows: rows, Driver: driver}, nil
}

func simulated(database string, cause error) *FetchResult {
	if strings.TrimSpace(database) == "" {
		database = "database"
	}
	note := "simulated extraction (JDBC driver unavailable)"
	if cause != nil && cause.Error() != "" {
		note = fmt.Sprintf("simulated extraction (JDBC driver unavailable: %s)", cause.Error())
	}
	return &FetchResult{
		Rows: []MetadataRow{
			{DatabaseName: database, CommentString: "Base importada via simulação."},
			{DatabaseName: database + "_ANALYTICS", CommentString: "Exemplo de metadado."},
		},
		Note:      note,
		Simulated: true,
	}
}
