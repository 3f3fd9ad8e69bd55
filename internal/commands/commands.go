// Package commands exposes the service as named commands a front end can
// invoke with JSON arguments, mirroring a desktop shell's invoke mechanism.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/joacominatel/vizql/internal/app"
	"github.com/joacominatel/vizql/internal/config"
	"github.com/joacominatel/vizql/internal/database"
)

// Command names.
const (
	ConnectDBPool    = "connect_db_pool"
	ConnectDB        = "connect_db"
	CreateTable      = "create_table"
	ListTables       = "list_tables"
	ListTableColumns = "list_table_columns"
	ServerVersion    = "server_version"
	ColumnTypes      = "column_types"
)

// ErrUnknownCommand is returned by Invoke for names that are not registered.
var ErrUnknownCommand = errors.New("unknown command")

// ConnectArgs are the arguments of connect_db_pool. Port stays a string so
// that parsing failures surface as configuration errors.
type ConnectArgs struct {
	DBName   string `json:"dbname"`
	User     string `json:"user"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     string `json:"port"`
}

// ConnectStringArgs are the arguments of connect_db.
type ConnectStringArgs struct {
	ConnectionString string `json:"connectionString"`
}

// CreateTableArgs are the arguments of create_table.
type CreateTableArgs struct {
	TableName string            `json:"tableName"`
	Columns   []database.Column `json:"columns"`
}

// TableArgs are the arguments of list_table_columns.
type TableArgs struct {
	TableName string `json:"tableName"`
}

type handler func(ctx context.Context, raw json.RawMessage) (any, error)

// Commands is the invocable surface over a single service handle.
type Commands struct {
	service  *app.Service
	logger   *slog.Logger
	handlers map[string]handler
}

// New creates the command set for service.
func New(service *app.Service, logger *slog.Logger) *Commands {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Commands{service: service, logger: logger}
	c.handlers = map[string]handler{
		ConnectDBPool: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args ConnectArgs
			if err := decode(raw, &args); err != nil {
				return nil, err
			}
			return nil, c.ConnectDBPool(ctx, args)
		},
		ConnectDB: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args ConnectStringArgs
			if err := decode(raw, &args); err != nil {
				return nil, err
			}
			return c.ConnectDB(ctx, args)
		},
		CreateTable: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args CreateTableArgs
			if err := decode(raw, &args); err != nil {
				return nil, err
			}
			return nil, c.CreateTable(ctx, args)
		},
		ListTables: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return c.ListTables(ctx)
		},
		ListTableColumns: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args TableArgs
			if err := decode(raw, &args); err != nil {
				return nil, err
			}
			return c.ListTableColumns(ctx, args)
		},
		ServerVersion: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return c.ServerVersion(ctx)
		},
		ColumnTypes: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return c.ColumnTypes(), nil
		},
	}
	return c
}

// Names returns the registered command names, sorted.
func (c *Commands) Names() []string {
	names := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs the named command with JSON-encoded arguments. Empty args are
// treated as an empty object.
func (c *Commands) Invoke(ctx context.Context, name string, raw json.RawMessage) (any, error) {
	h, ok := c.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCommand, name)
	}
	return h(ctx, raw)
}

// ConnectDBPool opens the pool from discrete connection fields.
func (c *Commands) ConnectDBPool(ctx context.Context, args ConnectArgs) error {
	_, err := c.run(ctx, ConnectDBPool, func(ctx context.Context) (any, error) {
		return nil, c.service.ConnectFields(ctx, args.DBName, args.User, args.Password, args.Host, args.Port)
	})
	return err
}

// ConnectProfile opens the pool for a saved profile.
func (c *Commands) ConnectProfile(ctx context.Context, conn config.Connection) error {
	_, err := c.run(ctx, ConnectDBPool, func(ctx context.Context) (any, error) {
		return nil, c.service.ConnectProfile(ctx, conn)
	})
	return err
}

// ConnectDB opens the pool from a connection string and returns the server version.
func (c *Commands) ConnectDB(ctx context.Context, args ConnectStringArgs) (string, error) {
	v, err := c.run(ctx, ConnectDB, func(ctx context.Context) (any, error) {
		if err := c.service.Connect(ctx, args.ConnectionString); err != nil {
			return "", err
		}
		return c.service.ServerVersion(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// CreateTable creates a table from column descriptors.
func (c *Commands) CreateTable(ctx context.Context, args CreateTableArgs) error {
	_, err := c.run(ctx, CreateTable, func(ctx context.Context) (any, error) {
		return nil, c.service.CreateTable(ctx, args.TableName, args.Columns)
	})
	return err
}

// ListTables returns the base tables of the configured schema.
func (c *Commands) ListTables(ctx context.Context) ([]string, error) {
	v, err := c.run(ctx, ListTables, func(ctx context.Context) (any, error) {
		return c.service.ListTables(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// ListTableColumns returns a table's columns in definition order.
func (c *Commands) ListTableColumns(ctx context.Context, args TableArgs) ([]database.Column, error) {
	v, err := c.run(ctx, ListTableColumns, func(ctx context.Context) (any, error) {
		return c.service.LoadColumns(ctx, args.TableName)
	})
	if err != nil {
		return nil, err
	}
	return v.([]database.Column), nil
}

// ServerVersion returns the server's version banner.
func (c *Commands) ServerVersion(ctx context.Context) (string, error) {
	v, err := c.run(ctx, ServerVersion, func(ctx context.Context) (any, error) {
		return c.service.ServerVersion(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ColumnTypes returns the column types offered when creating a table.
func (c *Commands) ColumnTypes() []string {
	out := make([]string, len(database.ColumnTypes))
	copy(out, database.ColumnTypes)
	return out
}

// Service returns the underlying handle.
func (c *Commands) Service() *app.Service {
	return c.service
}

func (c *Commands) run(ctx context.Context, name string, fn func(context.Context) (any, error)) (any, error) {
	id := uuid.New()
	start := time.Now()
	log := c.logger.With(slog.String("command", name), slog.String("invocation", id.String()))

	log.Debug("invoke")
	v, err := fn(ctx)
	if err != nil {
		log.Warn("command failed", slog.Duration("took", time.Since(start)), slog.String("error", err.Error()))
		return nil, err
	}
	log.Debug("command done", slog.Duration("took", time.Since(start)))
	return v, nil
}

func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &app.ErrConfig{Cause: fmt.Errorf("invalid arguments: %w", err)}
	}
	return nil
}

// Message renders err as the plain string handed back across the boundary.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
