package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joacominatel/vizql/internal/database"
)

// Pool defaults.
const (
	DefaultMaxConns        = 5
	DefaultMinConns        = 1
	DefaultMaxConnIdleTime = 30 * time.Minute
	DefaultConnectTimeout  = 10 * time.Second
)

// Options tunes the connection pool. Zero values fall back to the defaults.
type Options struct {
	MaxConns       int32
	ConnectTimeout time.Duration
	Logger         *slog.Logger
}

// Driver implements the database.Driver interface for PostgreSQL.
type Driver struct {
	opts   Options
	logger *slog.Logger
	pool   *pgxpool.Pool
	dbName string
}

// New creates a new PostgreSQL driver.
func New(opts Options) *Driver {
	if opts.MaxConns <= 0 {
		opts.MaxConns = DefaultMaxConns
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{opts: opts, logger: logger}
}

// Connect establishes a connection pool to PostgreSQL.
func (d *Driver) Connect(ctx context.Context, dsn string) error {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("%w: %v", database.ErrInvalidDSN, err)
	}

	cfg.MaxConns = d.opts.MaxConns
	cfg.MinConns = min(DefaultMinConns, cfg.MaxConns)
	cfg.MaxConnIdleTime = DefaultMaxConnIdleTime
	cfg.ConnConfig.ConnectTimeout = d.opts.ConnectTimeout

	d.logger.Debug("opening pool",
		slog.String("host", cfg.ConnConfig.Host),
		slog.Int("port", int(cfg.ConnConfig.Port)),
		slog.String("database", cfg.ConnConfig.Database),
		slog.Int("max_conns", int(cfg.MaxConns)),
	)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return describeConnectError(err, &cfg.ConnConfig.Config)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return describeConnectError(err, &cfg.ConnConfig.Config)
	}

	d.pool = pool
	d.dbName = cfg.ConnConfig.Database
	return nil
}

// Close closes the connection pool.
func (d *Driver) Close() error {
	if d.pool != nil {
		d.logger.Debug("closing pool")
		d.pool.Close()
	}
	return nil
}

// Ping checks if the connection is alive.
func (d *Driver) Ping(ctx context.Context) error {
	if d.pool == nil {
		return database.ErrNotConnected
	}
	return d.pool.Ping(ctx)
}

// acquire checks out a connection, marking failures with database.ErrAcquire.
func (d *Driver) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	if d.pool == nil {
		return nil, database.ErrNotConnected
	}
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", database.ErrAcquire, err)
	}
	return conn, nil
}

// ListTables returns all base table names in a schema.
func (d *Driver) ListTables(ctx context.Context, schema string) ([]string, error) {
	conn, err := d.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, queryListTables, schema)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan table: %w", err)
	}
	if tables == nil {
		tables = []string{}
	}
	return tables, nil
}

// GetColumns returns column metadata for a table.
func (d *Driver) GetColumns(ctx context.Context, schema, table string) ([]database.Column, error) {
	conn, err := d.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, queryGetColumns, schema, table)
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}
	defer rows.Close()

	columns := []database.Column{}
	for rows.Next() {
		var col database.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Default, &col.OrdinalPos, &col.IsPrimary); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		col.IsNullable = nullable == "YES"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return columns, nil
}

// CreateTable builds and runs a CREATE TABLE statement. Invalid names or types
// are reported as *database.ValidationError before a connection is acquired.
func (d *Driver) CreateTable(ctx context.Context, schema, table string, columns []database.Column) error {
	stmt, err := BuildCreateTable(schema, table, columns)
	if err != nil {
		return err
	}

	conn, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	d.logger.Debug("creating table", slog.String("statement", stmt))
	if _, err := conn.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create table %q: %w", table, err)
	}
	return nil
}

// ServerVersion returns the result of SELECT version().
func (d *Driver) ServerVersion(ctx context.Context) (string, error) {
	conn, err := d.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Release()

	var version string
	if err := conn.QueryRow(ctx, queryServerVersion).Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("server version: no rows returned")
		}
		return "", fmt.Errorf("server version: %w", err)
	}
	return version, nil
}

// DatabaseName returns the name of the connected database.
func (d *Driver) DatabaseName() string {
	return d.dbName
}

var _ database.Driver = (*Driver)(nil)
