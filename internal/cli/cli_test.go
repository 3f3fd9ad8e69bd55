package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joacominatel/vizql/internal/app"
	"github.com/joacominatel/vizql/internal/commands"
	"github.com/joacominatel/vizql/internal/config"
	"github.com/joacominatel/vizql/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseColumnSpecs(t *testing.T) {
	cols, err := parseColumnSpecs([]string{"id:SERIAL PRIMARY KEY", " name : VARCHAR(20) ", "notes", "price:NUMERIC(10,2)"})
	require.NoError(t, err)
	assert.Equal(t, []database.Column{
		{Name: "id", Type: "SERIAL PRIMARY KEY"},
		{Name: "name", Type: "VARCHAR(20)"},
		{Name: "notes", Type: ""},
		{Name: "price", Type: "NUMERIC(10,2)"},
	}, cols)

	_, err = parseColumnSpecs([]string{":INT"})
	var cfgErr *app.ErrConfig
	assert.ErrorAs(t, err, &cfgErr)
}

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"config", &app.ErrConfig{Cause: errors.New("x")}, ExitConfigError},
		{"connection", &app.ErrConnection{Cause: errors.New("x")}, ExitConnError},
		{"execution", &app.ErrExecution{Op: "create table", Cause: errors.New("x")}, ExitExecError},
		{"not initialized", app.ErrNotInitialized, ExitError},
		{"other", errors.New("x"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeForError(tt.err))
		})
	}
}

func TestNeedsPool(t *testing.T) {
	assert.False(t, needsPool(commands.ConnectDBPool))
	assert.False(t, needsPool(commands.ConnectDB))
	assert.False(t, needsPool(commands.ColumnTypes))
	assert.True(t, needsPool(commands.ListTables))
	assert.True(t, needsPool(commands.CreateTable))
}

func TestRenderTables(t *testing.T) {
	var buf bytes.Buffer
	renderTables(&buf, nil)
	assert.Equal(t, "(no tables)\n", buf.String())

	buf.Reset()
	renderTables(&buf, []string{"orders", "users"})
	out := buf.String()
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "users")
	assert.Contains(t, out, "TABLE")
}

func TestRenderColumns(t *testing.T) {
	var buf bytes.Buffer
	renderColumns(&buf, []database.Column{})
	assert.Equal(t, "(no columns)\n", buf.String())

	buf.Reset()
	renderColumns(&buf, []database.Column{
		{Name: "id", Type: "integer", IsPrimary: true, OrdinalPos: 1, Default: "nextval('t_id_seq'::regclass)"},
		{Name: "age", Type: "integer", IsNullable: true, OrdinalPos: 2},
	})
	out := buf.String()
	assert.Contains(t, out, "id")
	assert.Contains(t, out, "age")
	assert.Contains(t, out, "nextval")
	assert.Less(t, strings.Index(out, " id "), strings.Index(out, " age "))
}

func TestInvoke_ColumnTypesWithoutConnection(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	out, err := run(t, "invoke", "column_types", "--config", cfgPath)
	require.NoError(t, err)

	var types []string
	require.NoError(t, json.Unmarshal([]byte(out), &types))
	assert.Equal(t, database.ColumnTypes, types)
}

func TestTables_NoConnectionConfigured(t *testing.T) {
	keyring.MockInit()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	_, err := run(t, "tables", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCodeForError(err))
	assert.Contains(t, err.Error(), "no connection given")
}

func TestTables_UnknownProfile(t *testing.T) {
	keyring.MockInit()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	_, err := run(t, "tables", "--config", cfgPath, "--profile", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCodeForError(err))
}

func TestProfiles_AddListRemove(t *testing.T) {
	keyring.MockInit()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	out, err := run(t, "profiles", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "(no saved profiles)")

	out, err = run(t, "profiles", "add", "--config", cfgPath, "--name", "local", "--database", "app", "--user", "me", "--port", "6000", "--default")
	require.NoError(t, err)
	assert.Contains(t, out, "saved profile local")

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	require.Len(t, cfg.Connections, 1)
	assert.Equal(t, uint16(6000), cfg.Connections[0].Port)
	assert.Equal(t, "local", cfg.Preferences.DefaultConnection)

	out, err = run(t, "profiles", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "name: local")
	assert.Contains(t, out, "database: app")

	_, err = run(t, "profiles", "add", "--config", cfgPath, "--name", "local", "--database", "other")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCodeForError(err))
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, "profiles", "add", "--config", cfgPath, "--name", "local", "--database", "app", "--port", "6001", "--force")
	require.NoError(t, err)
	cfg, err = config.Load(cfgPath)
	require.NoError(t, err)
	require.Len(t, cfg.Connections, 1)
	assert.Equal(t, uint16(6001), cfg.Connections[0].Port)

	_, err = run(t, "profiles", "add", "--config", cfgPath, "--database", "app", "--port", "big")
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, ExitCodeForError(err))

	_, err = run(t, "profiles", "rm", "local", "--config", cfgPath)
	require.NoError(t, err)

	cfg, err = config.Load(cfgPath)
	require.NoError(t, err)
	assert.Empty(t, cfg.Connections)
	assert.Empty(t, cfg.Preferences.DefaultConnection)

	_, err = run(t, "profiles", "rm", "local", "--config", cfgPath)
	assert.Equal(t, ExitConfigError, ExitCodeForError(err))
}

func TestResolveConnection(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, config.SavePassword("local", "from-keyring"))

	cfg := &config.Config{Connections: []config.Connection{{Name: "local", Host: "db", Port: 5432, Database: "app", Username: "me"}}}

	conn, err := (&rootOptions{profile: "local"}).resolveConnection(cfg)
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", conn.Password)

	conn, err = (&rootOptions{}).resolveConnection(cfg)
	require.NoError(t, err)
	assert.Equal(t, "local", conn.Name)

	conn, err = (&rootOptions{dsn: "postgres://u:given@h:5433/other"}).resolveConnection(cfg)
	require.NoError(t, err)
	assert.Equal(t, "given", conn.Password)
	assert.Equal(t, uint16(5433), conn.Port)

	kv := "host=/var/run/postgresql user=me dbname=other application_name=cli"
	conn, err = (&rootOptions{dsn: kv}).resolveConnection(cfg)
	require.NoError(t, err)
	assert.Equal(t, kv, conn.DSN(), "the connection string reaches the driver as given")
	assert.Equal(t, "/var/run/postgresql", conn.Host)

	_, err = (&rootOptions{dsn: "http://nope"}).resolveConnection(cfg)
	var cfgErr *app.ErrConfig
	assert.ErrorAs(t, err, &cfgErr)
}
