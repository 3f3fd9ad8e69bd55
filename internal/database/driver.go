package database

import "context"

// Driver defines the interface for database operations.
// All implementations must be safe for concurrent use once Connect has returned.
type Driver interface {
	// Connect opens the connection pool described by dsn.
	Connect(ctx context.Context, dsn string) error

	// Close closes the connection pool.
	Close() error

	// Ping checks if the connection is alive.
	Ping(ctx context.Context) error

	// ListTables returns the base tables of a schema.
	ListTables(ctx context.Context, schema string) ([]string, error)

	// GetColumns returns the columns of a table in definition order.
	// An unknown table yields an empty slice.
	GetColumns(ctx context.Context, schema, table string) ([]Column, error)

	// CreateTable creates a table with the given columns.
	CreateTable(ctx context.Context, schema, table string, columns []Column) error

	// ServerVersion returns the server's version banner.
	ServerVersion(ctx context.Context) (string, error)

	// DatabaseName returns the name of the connected database.
	DatabaseName() string
}
