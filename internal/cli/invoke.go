package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/joacominatel/vizql/internal/commands"
	"github.com/spf13/cobra"
)

const oneShotTimeout = 30 * time.Second

// needsPool reports whether a command requires the pool to be opened from
// the CLI connection flags before it runs.
func needsPool(name string) bool {
	switch name {
	case commands.ConnectDBPool, commands.ConnectDB, commands.ColumnTypes:
		return false
	}
	return true
}

func newInvokeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "invoke <command> [json-args]",
		Short: "Invoke one command and print its JSON result",
		Example: `  vizql invoke list_tables --profile local
  vizql invoke list_table_columns '{"tableName":"users"}' --dsn postgresql://me@localhost/app
  vizql invoke column_types`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.openSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), oneShotTimeout)
			defer cancel()

			name := args[0]
			var raw json.RawMessage
			if len(args) == 2 {
				raw = json.RawMessage(args[1])
			}

			if needsPool(name) {
				if err := s.connect(ctx, opts); err != nil {
					return err
				}
			}

			result, err := s.commands.Invoke(ctx, name, raw)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
