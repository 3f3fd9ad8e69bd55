package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Empty(t, cfg.Connections)
	assert.Equal(t, DefaultSchema, cfg.Schema())
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, int32(5), cfg.Database.MaxConns)
	assert.Equal(t, DefaultBridgeAddr, cfg.Bridge.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
connections:
  - name: local
    driver: postgres
    host: localhost
    port: 5433
    database: app
    username: me
preferences:
  default_connection: local
  schema: sales
database:
  connect_timeout: 3s
  max_conns: 2
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Connections, 1)
	assert.Equal(t, "local", cfg.Connections[0].Name)
	assert.Equal(t, uint16(5433), cfg.Connections[0].Port)
	assert.Equal(t, "sales", cfg.Schema())
	assert.Equal(t, 3*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, int32(2), cfg.Database.MaxConns)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, DefaultBridgeAddr, cfg.Bridge.Addr)
}

func TestLoad_ProfileWithoutPortUsesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
connections:
  - name: bare
    host: db
    database: app
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Connections, 1)
	assert.Equal(t, DefaultPort, cfg.Connections[0].Port)
	assert.Equal(t, "postgresql://db:5432/app", cfg.Connections[0].DSN())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("VIZQL_DATABASE_MAX_CONNS", "9")
	t.Setenv("VIZQL_LOGGING_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, int32(9), cfg.Database.MaxConns)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connections: [\n"), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "read config")
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &Config{
		Connections: []Connection{{Name: "local", Driver: "postgres", Host: "localhost", Port: 5432, Database: "app", Username: "me", Password: "never-written"}},
		Preferences: Preferences{DefaultConnection: "local", Schema: "public"},
		Database:    Database{ConnectTimeout: 4 * time.Second, MaxConns: 3},
		Bridge:      Bridge{Addr: "127.0.0.1:9000"},
		Logging:     Logging{Level: "info"},
	}
	require.NoError(t, Save(cfg, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "never-written")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Connections, 1)
	assert.Equal(t, "local", loaded.Connections[0].Name)
	assert.Equal(t, "me", loaded.Connections[0].Username)
	assert.Empty(t, loaded.Connections[0].Password)
	assert.Equal(t, 4*time.Second, loaded.Database.ConnectTimeout)
	assert.Equal(t, int32(3), loaded.Database.MaxConns)
	assert.Equal(t, "127.0.0.1:9000", loaded.Bridge.Addr)
}

func TestSaveConnection_PasswordGoesToKeyring(t *testing.T) {
	keyring.MockInit()
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := &Config{}
	conn, err := NewConnection("app", "me", "s3cret", "localhost", "5432")
	require.NoError(t, err)
	require.NoError(t, SaveConnection(cfg, conn, path))

	require.Len(t, cfg.Connections, 1)
	assert.Empty(t, cfg.Connections[0].Password)

	pw, err := LoadPassword(conn.Name)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pw)

	loaded, err := Load(path)
	require.NoError(t, err)
	withPw, err := WithPassword(loaded.Connections[0])
	require.NoError(t, err)
	assert.Equal(t, "s3cret", withPw.Password)
}

func TestSecrets(t *testing.T) {
	keyring.MockInit()

	pw, err := LoadPassword("unknown")
	require.NoError(t, err)
	assert.Empty(t, pw)

	require.NoError(t, SavePassword("p", "x"))
	require.NoError(t, DeletePassword("p"))
	require.NoError(t, DeletePassword("p"))

	conn, err := WithPassword(Connection{Name: "p", Password: "given"})
	require.NoError(t, err)
	assert.Equal(t, "given", conn.Password)
}
