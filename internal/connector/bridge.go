package connector

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/JonMunkholm/custodia/internal/core"
)

// StrategyBridge names the JDBC bridge strategy.
const StrategyBridge = "bridge"

// teradataDriverClass is the JDBC driver the bridge loads.
const teradataDriverClass = "com.teradata.jdbc.TeraDriver"

// passwordEnv carries the password to the bridge process.
const passwordEnv = "JDBC_PASSWORD"

// RunFunc executes the bridge with args, extra environment and stdin,
// returning its stdout.
type RunFunc func(ctx context.Context, path string, args, env []string, stdin []byte) ([]byte, error)

// BridgeOptions configures the bridge strategy.
type BridgeOptions struct {
	DriverDir string // searched for *.jar files
	Command   string // bridge executable looked up on PATH

	LookPath func(string) (string, error) // default: exec.LookPath
	Run      RunFunc                      // default: runCommand
}

// BridgeStrategy reaches the database through an external JDBC bridge
// process. It needs the vendor jar files and the bridge executable.
type BridgeStrategy struct {
	dir      string
	command  string
	lookPath func(string) (string, error)
	run      RunFunc
}

// NewBridgeStrategy creates the bridge strategy.
func NewBridgeStrategy(opts BridgeOptions) *BridgeStrategy {
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	if opts.Run == nil {
		opts.Run = runCommand
	}
	return &BridgeStrategy{
		dir:      opts.DriverDir,
		command:  opts.Command,
		lookPath: opts.LookPath,
		run:      opts.Run,
	}
}

// Name implements ConnectionStrategy.
func (s *BridgeStrategy) Name() string { return StrategyBridge }

// FindJars lists the regular *.jar files in dir, sorted by name.
func FindJars(dir string) []string {
	matches, err := filepath.Glob(filepath.Join(dir, "*.jar"))
	if err != nil {
		return nil
	}
	var jars []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			jars = append(jars, m)
		}
	}
	sort.Strings(jars)
	return jars
}

// Connect implements ConnectionStrategy. It only starts the bridge when both
// the jar files and the executable are present.
func (s *BridgeStrategy) Connect(ctx context.Context, cfg core.JobConfig) (Conn, error) {
	var missing problems

	jars := FindJars(s.dir)
	if len(jars) == 0 {
		missing = append(missing, errors.Newf("JDBC driver not found in %s", s.dir))
	}
	path, err := s.lookPath(s.command)
	if err != nil {
		missing = append(missing, errors.Newf("JDBC dependencies missing (bridge command %q not found)", s.command))
	}
	if len(missing) > 0 {
		return nil, missing
	}

	c := &bridgeConn{path: path, jars: jars, cfg: cfg, run: s.run}
	if _, err := c.invoke(ctx, nil, "--ping"); err != nil {
		return nil, errors.Wrap(err, "bridge connection failed")
	}
	return c, nil
}

// bridgeConn runs one bridge process per statement.
type bridgeConn struct {
	path string
	jars []string
	cfg  core.JobConfig
	run  RunFunc
}

func (c *bridgeConn) invoke(ctx context.Context, stdin []byte, mode ...string) ([]byte, error) {
	args := []string{
		"--driver", teradataDriverClass,
		"--classpath", strings.Join(c.jars, string(os.PathListSeparator)),
		"--url", c.cfg.URL,
		"--user", c.cfg.Username,
		"--format", "csv",
	}
	args = append(args, mode...)
	env := []string{passwordEnv + "=" + c.cfg.Password}
	return c.run(ctx, c.path, args, env, stdin)
}

// Query sends the statement on stdin and parses CSV from stdout. The first
// record is the column header and is dropped.
func (c *bridgeConn) Query(ctx context.Context, query string) ([][]string, error) {
	out, err := c.invoke(ctx, []byte(query), "--query")
	if err != nil {
		return nil, errors.Wrap(err, "bridge query failed")
	}

	r := csv.NewReader(core.NewBOMSkippingReader(bytes.NewReader(out)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	header := true
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "parse bridge output")
		}
		if header {
			header = false
			continue
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func (c *bridgeConn) Close() error { return nil }

// runCommand is the default RunFunc.
func runCommand(ctx context.Context, path string, args, env []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = append(os.Environ(), env...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, errors.Newf("%s: %s", filepath.Base(path), msg)
		}
		return nil, errors.Wrapf(err, "%s", filepath.Base(path))
	}
	return out, nil
}
