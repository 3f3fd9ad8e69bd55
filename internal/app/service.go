package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/joacominatel/vizql/internal/config"
	"github.com/joacominatel/vizql/internal/database"
)

// Service is the caller-owned database handle. Its pool is opened at most
// once; every data operation reads it without locking afterwards.
type Service struct {
	driver database.Driver
	schema string
	logger *slog.Logger

	mu    sync.Mutex // serializes initialization
	ready atomic.Bool
	conn  atomic.Pointer[config.Connection]
}

// Option configures a Service.
type Option func(*Service)

// WithSchema sets the schema tables are listed from and created in.
func WithSchema(schema string) Option {
	return func(s *Service) {
		if schema != "" {
			s.schema = schema
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new application service.
func NewService(driver database.Driver, opts ...Option) *Service {
	s := &Service{
		driver: driver,
		schema: config.DefaultSchema,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConnectFields opens the pool from the discrete fields of a connect form.
// A port that is not an unsigned 16-bit integer fails before any I/O.
func (s *Service) ConnectFields(ctx context.Context, dbname, user, password, host, port string) error {
	conn, err := config.NewConnection(dbname, user, password, host, port)
	if err != nil {
		return &ErrConfig{Cause: err}
	}
	return s.ConnectProfile(ctx, conn)
}

// Connect opens the pool from a connection URL.
func (s *Service) Connect(ctx context.Context, dsn string) error {
	conn, err := config.ParseDSN(dsn)
	if err != nil {
		return &ErrConfig{Cause: err}
	}
	return s.ConnectProfile(ctx, conn)
}

// ConnectProfile opens the pool for a saved or freshly built profile.
// A second call fails with ErrAlreadyInitialized and leaves the pool alone.
func (s *Service) ConnectProfile(ctx context.Context, conn config.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready.Load() {
		return ErrAlreadyInitialized
	}

	s.logger.Info("connecting", slog.String("target", conn.DisplayString()))
	if err := s.driver.Connect(ctx, conn.DSN()); err != nil {
		if errors.Is(err, database.ErrInvalidDSN) {
			return &ErrConfig{Cause: err}
		}
		s.logger.Warn("connect failed", slog.String("target", conn.DisplayString()), slog.Any("error", err))
		return &ErrConnection{Cause: err}
	}

	conn = conn.Redacted()
	s.conn.Store(&conn)
	s.ready.Store(true)
	s.logger.Info("connected", slog.String("database", s.driver.DatabaseName()))
	return nil
}

// Ready reports whether the pool has been opened.
func (s *Service) Ready() bool {
	return s.ready.Load()
}

// Connection returns the profile the pool was opened with, without password.
func (s *Service) Connection() (config.Connection, bool) {
	c := s.conn.Load()
	if c == nil {
		return config.Connection{}, false
	}
	return *c, true
}

// Disconnect closes the connection pool. Intended for process shutdown only.
func (s *Service) Disconnect() error {
	if !s.ready.Load() {
		return nil
	}
	return s.driver.Close()
}

// Ping checks that the pool can still reach the server.
func (s *Service) Ping(ctx context.Context) error {
	if !s.ready.Load() {
		return ErrNotInitialized
	}
	if err := s.driver.Ping(ctx); err != nil {
		return &ErrConnection{Cause: err}
	}
	return nil
}

// ListTables returns the base tables of the configured schema.
func (s *Service) ListTables(ctx context.Context) ([]string, error) {
	if !s.ready.Load() {
		return nil, ErrNotInitialized
	}
	tables, err := s.driver.ListTables(ctx, s.schema)
	if err != nil {
		return nil, s.classify("list tables", err)
	}
	return tables, nil
}

// LoadColumns returns the columns of a table; an unknown table yields none.
func (s *Service) LoadColumns(ctx context.Context, table string) ([]database.Column, error) {
	if !s.ready.Load() {
		return nil, ErrNotInitialized
	}
	columns, err := s.driver.GetColumns(ctx, s.schema, table)
	if err != nil {
		return nil, s.classify("list columns", err)
	}
	if columns == nil {
		columns = []database.Column{}
	}
	return columns, nil
}

// CreateTable creates a table in the configured schema.
func (s *Service) CreateTable(ctx context.Context, table string, columns []database.Column) error {
	if !s.ready.Load() {
		return ErrNotInitialized
	}
	if err := s.driver.CreateTable(ctx, s.schema, table, columns); err != nil {
		return s.classify("create table", err)
	}
	s.logger.Info("table created", slog.String("schema", s.schema), slog.String("table", table), slog.Int("columns", len(columns)))
	return nil
}

// ServerVersion returns the server's version banner.
func (s *Service) ServerVersion(ctx context.Context) (string, error) {
	if !s.ready.Load() {
		return "", ErrNotInitialized
	}
	v, err := s.driver.ServerVersion(ctx)
	if err != nil {
		return "", s.classify("server version", err)
	}
	return v, nil
}

// DatabaseName returns the current database name.
func (s *Service) DatabaseName() string {
	return s.driver.DatabaseName()
}

// Schema returns the schema the service operates on.
func (s *Service) Schema() string {
	return s.schema
}

// classify maps driver errors onto the service error taxonomy.
func (s *Service) classify(op string, err error) error {
	var verr *database.ValidationError
	switch {
	case errors.As(err, &verr):
		return &ErrConfig{Cause: err}
	case errors.Is(err, database.ErrAcquire):
		return &ErrConnection{Cause: err}
	case errors.Is(err, database.ErrNotConnected):
		return ErrNotInitialized
	default:
		return &ErrExecution{Op: op, Cause: err}
	}
}
