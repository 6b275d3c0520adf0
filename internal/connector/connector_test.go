package connector

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/custodia/internal/core"
)

var testCfg = core.JobConfig{
	URL:      "jdbc:teradata://td.example/DATABASE=sales,LOGMECH=TD2",
	Username: "dbc",
	Password: "secret",
	Database: "sales",
}

type fakeConn struct {
	rows   [][]string
	err    error
	closed bool
}

func (c *fakeConn) Query(context.Context, string) ([][]string, error) { return c.rows, c.err }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeStrategy struct {
	name  string
	conn  Conn
	err   error
	calls int
}

func (s *fakeStrategy) Name() string { return s.name }
func (s *fakeStrategy) Connect(context.Context, core.JobConfig) (Conn, error) {
	s.calls++
	return s.conn, s.err
}

func writeJar(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "terajdbc4.jar"), []byte("jar"), 0o644))
	return dir
}

func TestBuildJDBCURL(t *testing.T) {
	tests := []struct {
		name                            string
		host, database, connType, extra string
		want                            string
	}{
		{"no host", "", "sales", "TD2", "", ""},
		{"host only", "td.example", "", "", "", "jdbc:teradata://td.example"},
		{"full", "td.example", "sales", "TD2", "", "jdbc:teradata://td.example/DATABASE=sales,LOGMECH=TD2"},
		{"extra trimmed", "td.example", "", "LDAP", " ,CHARSET=UTF8,TMODE=ANSI, ", "jdbc:teradata://td.example/LOGMECH=LDAP,CHARSET=UTF8,TMODE=ANSI"},
		{"extra only commas", "td.example", "", "", ",,", "jdbc:teradata://td.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildJDBCURL(tt.host, tt.database, tt.connType, tt.extra))
		})
	}
}

func TestTeradataDSN(t *testing.T) {
	dsn, err := TeradataDSN(testCfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"host":"td.example","user":"dbc","password":"secret","database":"sales","logmech":"TD2"}`, dsn)

	dsn, err = TeradataDSN(core.JobConfig{URL: "not-a-jdbc-url", Host: "h", Username: "u", Password: "p", ConnType: "LDAP"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"host":"h","user":"u","password":"p","logmech":"LDAP"}`, dsn)

	_, err = TeradataDSN(core.JobConfig{URL: "odbc://x"})
	assert.Error(t, err)
}

func TestNativeStrategy_UnregisteredDriver(t *testing.T) {
	s := NewNativeStrategy(NativeOptions{Driver: "teradatasql-missing"})
	_, err := s.Connect(context.Background(), testCfg)
	require.Error(t, err)
	assert.Equal(t, `native driver "teradatasql-missing" not registered`, err.Error())
}

func TestNativeStrategy_Query(t *testing.T) {
	dsn := "native-" + t.Name()
	db, mock, err := sqlmock.NewWithDSN(dsn)
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(metadataQuery)).WillReturnRows(
		sqlmock.NewRows([]string{"DatabaseName", "CommentString"}).
			AddRow("sales", "Sales data").
			AddRow("hr", nil),
	)

	s := NewNativeStrategy(NativeOptions{
		Driver: "sqlmock",
		DSN:    func(core.JobConfig) (string, error) { return dsn, nil },
	})
	conn, err := s.Connect(context.Background(), testCfg)
	require.NoError(t, err)

	rows, err := conn.Query(context.Background(), metadataQuery)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"sales", "Sales data"}, {"hr", ""}}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNativeStrategy_BreakerOpens(t *testing.T) {
	s := NewNativeStrategy(NativeOptions{
		Driver:          "sqlmock",
		DSN:             func(core.JobConfig) (string, error) { return "unregistered-" + t.Name(), nil },
		BreakerFailures: 2,
	})

	for i := 0; i < 2; i++ {
		_, err := s.Connect(context.Background(), testCfg)
		require.Error(t, err)
		assert.False(t, errors.Is(err, gobreaker.ErrOpenState))
	}
	assert.Equal(t, gobreaker.StateOpen, s.BreakerState())

	_, err := s.Connect(context.Background(), testCfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.True(t, strings.HasPrefix(err.Error(), "native driver failed"))
}

func TestBridgeStrategy_MissingPrerequisites(t *testing.T) {
	dir := t.TempDir()
	s := NewBridgeStrategy(BridgeOptions{
		DriverDir: dir,
		Command:   "jdbc-bridge",
		LookPath:  func(string) (string, error) { return "", os.ErrNotExist },
		Run: func(context.Context, string, []string, []string, []byte) ([]byte, error) {
			t.Fatal("bridge must not run without prerequisites")
			return nil, nil
		},
	})

	_, err := s.Connect(context.Background(), testCfg)
	require.Error(t, err)
	assert.Equal(t,
		"JDBC driver not found in "+dir+`; JDBC dependencies missing (bridge command "jdbc-bridge" not found)`,
		err.Error())
}

func TestBridgeStrategy_Query(t *testing.T) {
	dir := writeJar(t)

	var gotArgs, gotEnv []string
	var gotStdin []byte
	s := NewBridgeStrategy(BridgeOptions{
		DriverDir: dir,
		Command:   "jdbc-bridge",
		LookPath:  func(cmd string) (string, error) { return "/usr/bin/" + cmd, nil },
		Run: func(_ context.Context, path string, args, env []string, stdin []byte) ([]byte, error) {
			assert.Equal(t, "/usr/bin/jdbc-bridge", path)
			gotArgs, gotEnv, gotStdin = args, env, stdin
			if args[len(args)-1] == "--ping" {
				return nil, nil
			}
			return []byte("\xEF\xBB\xBFDatabaseName,CommentString\nsales,Sales data\nhr,\n"), nil
		},
	})

	conn, err := s.Connect(context.Background(), testCfg)
	require.NoError(t, err)
	assert.Contains(t, gotArgs, "--ping")

	rows, err := conn.Query(context.Background(), metadataQuery)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"sales", "Sales data"}, {"hr", ""}}, rows)

	assert.Equal(t, []byte(metadataQuery), gotStdin)
	assert.Equal(t, []string{"JDBC_PASSWORD=secret"}, gotEnv)
	assert.NotContains(t, strings.Join(gotArgs, " "), "secret")
	assert.Contains(t, gotArgs, filepath.Join(dir, "terajdbc4.jar"))
	assert.Contains(t, gotArgs, testCfg.URL)
}

func TestBridgeStrategy_CommandLine(t *testing.T) {
	dir := writeJar(t)

	var calls [][]string
	s := NewBridgeStrategy(BridgeOptions{
		DriverDir: dir,
		Command:   "jdbc-bridge",
		LookPath:  func(cmd string) (string, error) { return "/usr/bin/" + cmd, nil },
		Run: func(_ context.Context, _ string, args, _ []string, _ []byte) ([]byte, error) {
			calls = append(calls, args)
			return []byte("DatabaseName,CommentString\n"), nil
		},
	})

	conn, err := s.Connect(context.Background(), testCfg)
	require.NoError(t, err)
	_, err = conn.Query(context.Background(), metadataQuery)
	require.NoError(t, err)

	base := []string{
		"--driver", "com.teradata.jdbc.TeraDriver",
		"--classpath", filepath.Join(dir, "terajdbc4.jar"),
		"--url", testCfg.URL,
		"--user", testCfg.Username,
		"--format", "csv",
	}
	require.Len(t, calls, 2)
	assert.Equal(t, append(append([]string{}, base...), "--ping"), calls[0])
	assert.Equal(t, append(append([]string{}, base...), "--query"), calls[1])
}

func TestBridgeStrategy_ConnectFailure(t *testing.T) {
	s := NewBridgeStrategy(BridgeOptions{
		DriverDir: writeJar(t),
		Command:   "jdbc-bridge",
		LookPath:  func(cmd string) (string, error) { return cmd, nil },
		Run: func(context.Context, string, []string, []string, []byte) ([]byte, error) {
			return nil, errors.New("logon failed")
		},
	})
	_, err := s.Connect(context.Background(), testCfg)
	require.Error(t, err)
	assert.Equal(t, "bridge connection failed: logon failed", err.Error())
}

func TestResolver_MissingCredentials(t *testing.T) {
	s := &fakeStrategy{name: "native"}
	r := NewResolver(t.TempDir(), nil, s)

	_, _, err := r.Connect(context.Background(), core.JobConfig{URL: "jdbc:teradata://h", Username: "u"})
	assert.ErrorIs(t, err, core.ErrMissingCredentials)
	assert.Zero(t, s.calls)
}

func TestResolver_FirstSuccessWins(t *testing.T) {
	conn := &fakeConn{}
	first := &fakeStrategy{name: "native", err: errors.New("native driver failed: timeout")}
	second := &fakeStrategy{name: "bridge", conn: conn}
	third := &fakeStrategy{name: "never"}

	var observed []string
	r := NewResolver(t.TempDir(), func(strategy string, err error) {
		observed = append(observed, strategy)
	}, first, second, third)

	got, driver, err := r.Connect(context.Background(), testCfg)
	require.NoError(t, err)
	assert.Same(t, conn, got)
	assert.Equal(t, "bridge", driver)
	assert.Zero(t, third.calls)
	assert.Equal(t, []string{"native", "bridge"}, observed)
}

func TestResolver_AllFail(t *testing.T) {
	dir := t.TempDir()
	native := &fakeStrategy{name: "native", err: errors.New(`native driver "teradatasql" not registered`)}
	bridge := NewBridgeStrategy(BridgeOptions{
		DriverDir: dir,
		Command:   "jdbc-bridge",
		LookPath:  func(string) (string, error) { return "", os.ErrNotExist },
	})
	r := NewResolver(dir, nil, native, bridge)

	_, _, err := r.Connect(context.Background(), testCfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDriverUnavailable))

	var derr *DriverError
	require.True(t, errors.As(err, &derr))
	require.Len(t, derr.Attempts, 3)
	assert.Equal(t, "native", derr.Attempts[0].Strategy)
	assert.Equal(t, "bridge", derr.Attempts[1].Strategy)
	assert.Equal(t, "bridge", derr.Attempts[2].Strategy)
	assert.Equal(t,
		`native driver "teradatasql" not registered; JDBC driver not found in `+dir+
			`; JDBC dependencies missing (bridge command "jdbc-bridge" not found)`,
		err.Error())

	assert.Equal(t, []string{"Copy the JDBC driver to " + dir + " and restart the application."},
		errors.GetAllHints(err))
}

func TestResolver_Test(t *testing.T) {
	t.Run("success closes connection", func(t *testing.T) {
		conn := &fakeConn{}
		r := NewResolver(t.TempDir(), nil, &fakeStrategy{name: "native", conn: conn})
		res := r.Test(context.Background(), testCfg)
		assert.True(t, res.OK)
		assert.Equal(t, "native", res.Driver)
		assert.Equal(t, "Connection succeeded.", res.Message)
		assert.True(t, conn.closed)
	})

	t.Run("failure without jars", func(t *testing.T) {
		dir := t.TempDir()
		r := NewResolver(dir, nil, &fakeStrategy{name: "native", err: errors.New("boom")})
		res := r.Test(context.Background(), testCfg)
		assert.False(t, res.OK)
		assert.Equal(t, "Could not connect: boom. Copy the JDBC driver to "+dir+" and restart the application.", res.Message)
		assert.Equal(t, []string{"JDBC driver (*.jar) in " + dir}, res.MissingArtifacts)
	})

	t.Run("failure with jars has no hint", func(t *testing.T) {
		dir := writeJar(t)
		r := NewResolver(dir, nil, &fakeStrategy{name: "native", err: errors.New("boom")})
		res := r.Test(context.Background(), testCfg)
		assert.Equal(t, "Could not connect: boom.", res.Message)
		assert.Empty(t, res.MissingArtifacts)
	})
}

func TestFetcher(t *testing.T) {
	t.Run("rows from connection", func(t *testing.T) {
		conn := &fakeConn{rows: [][]string{{"sales", "Sales"}, {"hr"}}}
		f := NewFetcher(NewResolver(t.TempDir(), nil, &fakeStrategy{name: "native", conn: conn}), true)

		res, err := f.Fetch(context.Background(), testCfg)
		require.NoError(t, err)
		assert.False(t, res.Simulated)
		assert.Empty(t, res.Note)
		assert.Equal(t, "native", res.Driver)
		assert.Equal(t, []MetadataRow{{"sales", "Sales"}, {"hr", ""}}, res.Rows)
		assert.True(t, conn.closed)
	})

	t.Run("simulated on failure", func(t *testing.T) {
		f := NewFetcher(NewResolver(t.TempDir(), nil, &fakeStrategy{name: "native", err: errors.New("boom")}), true)

		res, err := f.Fetch(context.Background(), testCfg)
		require.NoError(t, err)
		assert.True(t, res.Simulated)
		assert.Equal(t, "simulated extraction (JDBC driver unavailable: boom)", res.Note)
		assert.Equal(t, []MetadataRow{
			{"sales", "Base importada via simulação."},
			{"sales_ANALYTICS", "Exemplo de metadado."},
		}, res.Rows)
	})

	t.Run("simulated default database name", func(t *testing.T) {
		f := NewFetcher(NewResolver(t.TempDir(), nil), true)
		res, err := f.Fetch(context.Background(), core.JobConfig{})
		require.NoError(t, err)
		assert.Equal(t, "database", res.Rows[0].DatabaseName)
		assert.Equal(t, "database_ANALYTICS", res.Rows[1].DatabaseName)
	})

	t.Run("strict mode propagates", func(t *testing.T) {
		f := NewFetcher(NewResolver(t.TempDir(), nil, &fakeStrategy{name: "native", err: errors.New("boom")}), false)
		_, err := f.Fetch(context.Background(), testCfg)
		assert.True(t, errors.Is(err, core.ErrDriverUnavailable))
	})
}
