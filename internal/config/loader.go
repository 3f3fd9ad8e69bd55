package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configDir  = ".vizql"
	configFile = "config"
	configType = "yaml"
	envPrefix  = "VIZQL"
)

// Load reads the configuration file at path, or ~/.vizql/config.yaml when
// path is empty. Environment variables prefixed with VIZQL_ override file
// values (VIZQL_DATABASE_MAX_CONNS, VIZQL_LOGGING_LEVEL, ...).
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, fmt.Errorf("config dir: %w", err)
		}
		v.SetConfigName(configFile)
		v.SetConfigType(configType)
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Hand-written profiles may leave the port out.
	for i := range cfg.Connections {
		if cfg.Connections[i].Port == 0 {
			cfg.Connections[i].Port = DefaultPort
		}
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("preferences.schema", DefaultSchema)
	v.SetDefault("database.connect_timeout", 10*time.Second)
	v.SetDefault("database.max_conns", 5)
	v.SetDefault("bridge.addr", DefaultBridgeAddr)
	v.SetDefault("logging.level", "info")
	return v
}

// Save writes the configuration to path, or ~/.vizql/config.yaml when path
// is empty. Passwords are never written.
func Save(cfg *Config, path string) error {
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return fmt.Errorf("config dir: %w", err)
		}
		path = filepath.Join(dir, configFile+"."+configType)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType(configType)
	v.Set("connections", cfg.Connections)
	v.Set("preferences", cfg.Preferences)
	v.Set("database", cfg.Database)
	v.Set("bridge", cfg.Bridge)
	v.Set("logging", cfg.Logging)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// SaveConnection stores conn's password in the keyring and persists the
// profile (without the password) to the config file at path. Only the
// profile fields are kept; options carried by a connection string are not.
func SaveConnection(cfg *Config, conn Connection, path string) error {
	if conn.Password != "" {
		if err := SavePassword(conn.Name, conn.Password); err != nil {
			return err
		}
	}
	cfg.AddConnection(conn.Redacted())
	return Save(cfg, path)
}

// DefaultConnection returns the default connection from config, or the first one.
func DefaultConnection(cfg *Config) *Connection {
	if len(cfg.Connections) == 0 {
		return nil
	}

	if cfg.Preferences.DefaultConnection != "" {
		if c := cfg.FindConnection(cfg.Preferences.DefaultConnection); c != nil {
			return c
		}
	}

	return &cfg.Connections[0]
}

// Dir returns the directory holding the config file and logs.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir), nil
}
