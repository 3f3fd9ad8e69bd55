package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Defaults used when a field is left empty.
const (
	DefaultHost              = "localhost"
	DefaultPort       uint16 = 5432
	DefaultSchema            = "public"
	DefaultBridgeAddr        = "127.0.0.1:7878"
)

// Config represents the application configuration.
type Config struct {
	Connections []Connection `mapstructure:"connections" yaml:"connections"`
	Preferences Preferences  `mapstructure:"preferences" yaml:"preferences"`
	Database    Database     `mapstructure:"database" yaml:"database"`
	Bridge      Bridge       `mapstructure:"bridge" yaml:"bridge"`
	Logging     Logging      `mapstructure:"logging" yaml:"logging"`
}

// Connection represents a saved database connection profile.
// Password is kept in the OS keyring and never written to the config file.
type Connection struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Driver   string `mapstructure:"driver" yaml:"driver"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     uint16 `mapstructure:"port" yaml:"port"`
	Database string `mapstructure:"database" yaml:"database"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"-" yaml:"-"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode,omitempty"`

	// raw is the connection string the profile was parsed from, if any.
	// It is passed to the driver as is and never persisted.
	raw         string
	rawPassword string
}

// Preferences holds user preferences.
type Preferences struct {
	DefaultConnection string `mapstructure:"default_connection" yaml:"default_connection"`
	Schema            string `mapstructure:"schema" yaml:"schema"`
}

// Database tunes the connection pool.
type Database struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	MaxConns       int32         `mapstructure:"max_conns" yaml:"max_conns"`
}

// Bridge configures the HTTP invoke bridge.
type Bridge struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `mapstructure:"level" yaml:"level"`
	SeqURL string `mapstructure:"seq_url" yaml:"seq_url,omitempty"`
}

// NewConnection builds a profile from the discrete fields a connect form
// collects. The port must parse as an unsigned 16-bit integer; an empty host
// falls back to localhost.
func NewConnection(dbname, user, password, host, port string) (Connection, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultHost
	}

	port = strings.TrimSpace(port)
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return Connection{}, fmt.Errorf("invalid port %q: must be a number between 0 and 65535", port)
	}

	conn := Connection{
		Driver:   "postgres",
		Host:     host,
		Port:     uint16(p),
		Database: strings.TrimSpace(dbname),
		Username: strings.TrimSpace(user),
		Password: password,
	}
	conn.Name = conn.defaultName()
	return conn, nil
}

// DSN returns the connection string handed to the driver. A profile parsed
// from a connection string yields that string, with the password replaced
// when it was changed since; otherwise a URL is built from the fields.
func (c Connection) DSN() string {
	if c.raw != "" {
		if c.Password == c.rawPassword {
			return c.raw
		}
		return replacePassword(c.raw, c.Password)
	}

	u := url.URL{Scheme: "postgresql"}
	if c.Username != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.Username, c.Password)
		} else {
			u.User = url.User(c.Username)
		}
	}

	host := c.Host
	if host == "" {
		host = DefaultHost
	}
	u.Host = net.JoinHostPort(host, strconv.Itoa(int(c.Port)))
	u.Path = "/" + c.Database

	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// Redacted returns the profile without its password or source string.
func (c Connection) Redacted() Connection {
	c.Password = ""
	c.raw = ""
	c.rawPassword = ""
	return c
}

// DisplayString returns a human-readable summary of the connection.
func (c Connection) DisplayString() string {
	s := c.Host + ":" + strconv.Itoa(int(c.Port)) + "/" + c.Database
	if c.Username != "" {
		s = c.Username + "@" + s
	}
	return s
}

func (c Connection) defaultName() string {
	return fmt.Sprintf("postgres-%s-%d-%s", c.Host, c.Port, c.Database)
}

// ParseDSN reads a PostgreSQL connection string, either a URL or key/value
// pairs, into a Connection. The string itself is kept for DSN, so options
// without a profile field (sslrootcert, application_name, a socket
// directory as host) reach the driver unchanged.
func ParseDSN(dsn string) (Connection, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return Connection{}, errors.New("invalid DSN: connection string is empty")
	}
	if scheme, _, ok := strings.Cut(dsn, "://"); ok && !strings.ContainsAny(scheme, "= ") &&
		scheme != "postgres" && scheme != "postgresql" {
		return Connection{}, fmt.Errorf("invalid DSN: unsupported scheme %q", scheme)
	}

	pc, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return Connection{}, fmt.Errorf("invalid DSN: %w", err)
	}

	conn := Connection{
		Driver:      "postgres",
		Host:        pc.Host,
		Port:        pc.Port,
		Database:    pc.Database,
		Username:    pc.User,
		Password:    pc.Password,
		SSLMode:     sslModeOf(dsn),
		raw:         dsn,
		rawPassword: pc.Password,
	}
	conn.Name = conn.defaultName()
	return conn, nil
}

func sslModeOf(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		if u, err := url.Parse(dsn); err == nil {
			return u.Query().Get("sslmode")
		}
		return ""
	}
	for _, field := range strings.Fields(dsn) {
		if v, ok := strings.CutPrefix(field, "sslmode="); ok {
			return strings.Trim(v, "'")
		}
	}
	return ""
}

// replacePassword sets password in a URL or key/value connection string.
// In key/value form the last occurrence of a key wins.
func replacePassword(dsn, password string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err == nil {
			u.User = url.UserPassword(u.User.Username(), password)
			return u.String()
		}
	}
	quoted := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(password)
	return dsn + " password='" + quoted + "'"
}

// HasConnection checks if a connection with the given name already exists.
func (cfg *Config) HasConnection(name string) bool {
	return cfg.FindConnection(name) != nil
}

// FindConnection returns the named profile, or nil.
func (cfg *Config) FindConnection(name string) *Connection {
	for i := range cfg.Connections {
		if cfg.Connections[i].Name == name {
			return &cfg.Connections[i]
		}
	}
	return nil
}

// AddConnection appends a connection, replacing any profile with the same name.
func (cfg *Config) AddConnection(conn Connection) {
	if existing := cfg.FindConnection(conn.Name); existing != nil {
		*existing = conn
		return
	}
	cfg.Connections = append(cfg.Connections, conn)
}

// RemoveConnection deletes the named profile and reports whether it existed.
func (cfg *Config) RemoveConnection(name string) bool {
	for i := range cfg.Connections {
		if cfg.Connections[i].Name == name {
			cfg.Connections = append(cfg.Connections[:i], cfg.Connections[i+1:]...)
			return true
		}
	}
	return false
}

// Schema returns the schema commands operate on.
func (cfg *Config) Schema() string {
	if cfg.Preferences.Schema == "" {
		return DefaultSchema
	}
	return cfg.Preferences.Schema
}
