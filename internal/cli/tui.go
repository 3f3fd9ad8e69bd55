package cli

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joacominatel/vizql/internal/config"
	"github.com/joacominatel/vizql/internal/tui"
	"github.com/spf13/cobra"
)

const logFileName = "vizql.log"

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the terminal UI (the default)",
		Long: `Start the terminal UI. With --dsn or --profile it connects right away,
otherwise it offers the saved profiles or a connect form.

Logs are written to ~/.vizql/vizql.log while the UI owns the terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, opts)
		},
	}
}

func runTUI(cmd *cobra.Command, opts *rootOptions) error {
	logFile, err := openLogFile()
	if err != nil {
		return err
	}
	defer logFile.Close()

	s, err := opts.openSession(logFile)
	if err != nil {
		return err
	}
	defer s.Close()

	// Resolve before the alternate screen takes over so a password prompt
	// stays usable.
	var initial *config.Connection
	if opts.dsn != "" || opts.profile != "" {
		conn, err := opts.resolveConnection(s.cfg)
		if err != nil {
			return err
		}
		initial = &conn
	}

	model := tui.NewModel(s.commands, s.cfg, opts.configPath, initial)
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run terminal UI: %w", err)
	}
	return nil
}

func openLogFile() (*os.File, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, logFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
