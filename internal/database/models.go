package database

import (
	"errors"
	"fmt"
)

// Column describes a table column. Only Name and Type cross the command
// boundary; the remaining fields are filled by introspection.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	IsNullable bool   `json:"-"`
	IsPrimary  bool   `json:"-"`
	Default    string `json:"-"`
	OrdinalPos int    `json:"-"`
}

var (
	// ErrNotConnected is returned by a driver used before Connect succeeded.
	ErrNotConnected = errors.New("not connected")

	// ErrAcquire marks failures to check a connection out of the pool.
	ErrAcquire = errors.New("acquire connection")

	// ErrInvalidDSN marks connection strings that could not be parsed.
	ErrInvalidDSN = errors.New("invalid connection string")
)

// ValidationError reports input rejected before any statement is sent.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

// ColumnTypes is the menu of column types offered when creating a table.
// TEXT comes first and is the type used when none is given.
var ColumnTypes = []string{
	"TEXT",
	"INTEGER",
	"BIGINT",
	"SMALLINT",
	"DECIMAL",
	"REAL",
	"DOUBLE PRECISION",
	"BOOLEAN",
	"DATE",
	"TIME",
	"TIMESTAMP",
	"UUID",
	"JSON",
	"JSONB",
	"BYTEA",
	"VARCHAR",
	"CHAR",
}
