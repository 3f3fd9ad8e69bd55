package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes that get a tailored connection message.
const (
	codeInvalidPassword      = "28P01"
	codeInvalidAuthorization = "28000"
	codeInvalidCatalogName   = "3D000"
	codeTooManyConnections   = "53300"
	codeCannotConnectNow     = "57P03"
)

// describeConnectError wraps raw pgx connection errors with a hint about the
// most likely cause. The original error stays reachable through errors.Unwrap.
func describeConnectError(err error, cfg *pgconn.Config) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeInvalidPassword, codeInvalidAuthorization:
			return fmt.Errorf("authentication failed for user %q on %s: %w", cfg.User, addr, err)
		case codeInvalidCatalogName:
			return fmt.Errorf("database %q does not exist on %s: %w", cfg.Database, addr, err)
		case codeTooManyConnections:
			return fmt.Errorf("server %s refused the connection, too many clients: %w", addr, err)
		case codeCannotConnectNow:
			return fmt.Errorf("server %s is starting up or shutting down: %w", addr, err)
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "actively refused"):
		return fmt.Errorf("connection refused to %s, is PostgreSQL running and listening there: %w", addr, err)
	case strings.Contains(msg, "no such host") || strings.Contains(msg, "no host"):
		return fmt.Errorf("cannot resolve host %q: %w", cfg.Host, err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return fmt.Errorf("timed out connecting to %s: %w", addr, err)
	case strings.Contains(msg, "password authentication failed"):
		return fmt.Errorf("authentication failed for user %q on %s: %w", cfg.User, addr, err)
	}
	return fmt.Errorf("connect to %s: %w", addr, err)
}
