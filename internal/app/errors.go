package app

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by data operations invoked before a pool exists.
	ErrNotInitialized = errors.New("database pool not initialized: connect first")

	// ErrAlreadyInitialized is returned when a second pool is requested for the same service.
	ErrAlreadyInitialized = errors.New("database pool already initialized")
)

// ErrConfig represents invalid input, such as an unparsable port or an unsafe identifier.
type ErrConfig struct {
	Cause error
}

func (e *ErrConfig) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Cause)
}

func (e *ErrConfig) Unwrap() error {
	return e.Cause
}

// ErrConnection represents a failure to open the pool or check out a connection.
type ErrConnection struct {
	Cause error
}

func (e *ErrConnection) Error() string {
	return fmt.Sprintf("connection error: %v", e.Cause)
}

func (e *ErrConnection) Unwrap() error {
	return e.Cause
}

// ErrExecution represents a statement that the server rejected or that failed mid-flight.
type ErrExecution struct {
	Op    string
	Cause error
}

func (e *ErrExecution) Error() string {
	return fmt.Sprintf("execution error: %s: %v", e.Op, e.Cause)
}

func (e *ErrExecution) Unwrap() error {
	return e.Cause
}
