package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joacominatel/vizql/internal/app"
	"github.com/joacominatel/vizql/internal/commands"
	"github.com/joacominatel/vizql/internal/config"
	"github.com/joacominatel/vizql/internal/database/postgres"
	"github.com/joacominatel/vizql/internal/logging"
	"github.com/joho/godotenv"
	"golang.org/x/term"
)

// session bundles the per-process handle and its collaborators.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	commands *commands.Commands
	closeLog func()
}

// openSession loads configuration and builds a fresh, unconnected handle.
// Logs go to logOut.
func (o *rootOptions) openSession(logOut io.Writer) (*session, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, &app.ErrConfig{Cause: err}
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Verbose: o.verbose,
		SeqURL:  cfg.Logging.SeqURL,
		Output:  logOut,
	})
	if err != nil {
		return nil, &app.ErrConfig{Cause: err}
	}

	driver := postgres.New(postgres.Options{
		MaxConns:       cfg.Database.MaxConns,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		Logger:         logger,
	})
	service := app.NewService(driver, app.WithSchema(cfg.Schema()), app.WithLogger(logger))

	return &session{
		cfg:      cfg,
		logger:   logger,
		commands: commands.New(service, logger),
		closeLog: closeLog,
	}, nil
}

// Close releases the pool and flushes logs.
func (s *session) Close() {
	if err := s.commands.Service().Disconnect(); err != nil {
		s.logger.Warn("disconnect failed", slog.Any("error", err))
	}
	s.closeLog()
}

// connect opens the pool for the connection selected by --dsn, --profile or
// the configured default.
func (s *session) connect(ctx context.Context, o *rootOptions) error {
	conn, err := o.resolveConnection(s.cfg)
	if err != nil {
		return err
	}
	return s.commands.ConnectProfile(ctx, conn)
}

func (o *rootOptions) resolveConnection(cfg *config.Config) (config.Connection, error) {
	var conn config.Connection
	switch {
	case o.dsn != "":
		c, err := config.ParseDSN(o.dsn)
		if err != nil {
			return conn, &app.ErrConfig{Cause: err}
		}
		conn = c
	case o.profile != "":
		c := cfg.FindConnection(o.profile)
		if c == nil {
			return conn, &app.ErrConfig{Cause: fmt.Errorf("no saved profile named %q", o.profile)}
		}
		conn = *c
	default:
		c := config.DefaultConnection(cfg)
		if c == nil {
			return conn, &app.ErrConfig{Cause: errors.New("no connection given: pass --dsn or --profile, or save a profile first")}
		}
		conn = *c
	}

	if conn.Password == "" && o.dsn == "" {
		c, err := config.WithPassword(conn)
		if err != nil {
			return conn, err
		}
		conn = c
	}

	if o.askPass {
		pw, err := promptPassword(fmt.Sprintf("Password for %s: ", conn.DisplayString()))
		if err != nil {
			return conn, err
		}
		conn.Password = pw
	}
	return conn, nil
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", &app.ErrConfig{Cause: errors.New("cannot prompt for a password: stdin is not a terminal")}
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
