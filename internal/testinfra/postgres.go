// Package testinfra provides a PostgreSQL instance for integration tests.
package testinfra

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	PostgresImage    = "postgres:17-alpine"
	PostgresUser     = "postgres"
	PostgresPassword = "postgres"
	PostgresDB       = "vizql"

	// ConnEnv overrides the container with an existing server.
	ConnEnv = "VIZQL_TEST_CONN"
)

var (
	containerOnce sync.Once
	containerConn string
	containerErr  error
)

// StartPostgres runs a disposable PostgreSQL container and returns its
// connection string.
func StartPostgres(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	ctr, err := postgres.Run(ctx,
		PostgresImage,
		postgres.WithUsername(PostgresUser),
		postgres.WithPassword(PostgresPassword),
		postgres.WithDatabase(PostgresDB),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("start postgres: %w", err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		ctr.Terminate(ctx) //nolint:errcheck
		return nil, "", fmt.Errorf("get connection string: %w", err)
	}
	return ctr, connStr, nil
}

func sharedContainer() (string, error) {
	containerOnce.Do(func() {
		_, containerConn, containerErr = StartPostgres(context.Background())
	})
	return containerConn, containerErr
}

// RequireDatabase returns a connection string for an empty-ish test database,
// or skips the test in -short mode or when neither VIZQL_TEST_CONN nor Docker
// is available. The container is shared by every test in the package.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if conn := os.Getenv(ConnEnv); conn != "" {
		return conn
	}
	conn, err := sharedContainer()
	if err != nil {
		t.Skipf("%s not set and Docker unavailable: %v", ConnEnv, err)
	}
	return conn
}
