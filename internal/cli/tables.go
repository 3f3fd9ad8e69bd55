package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joacominatel/vizql/internal/app"
	"github.com/joacominatel/vizql/internal/commands"
	"github.com/joacominatel/vizql/internal/database"
	"github.com/spf13/cobra"
)

func newTablesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the configured schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd, opts, func(ctx context.Context, c *commands.Commands) error {
				tables, err := c.ListTables(ctx)
				if err != nil {
					return err
				}
				renderTables(cmd.OutOrStdout(), tables)
				return nil
			})
		},
	}
}

func newColumnsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "columns <table>",
		Short: "List the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd, opts, func(ctx context.Context, c *commands.Commands) error {
				cols, err := c.ListTableColumns(ctx, commands.TableArgs{TableName: args[0]})
				if err != nil {
					return err
				}
				renderColumns(cmd.OutOrStdout(), cols)
				return nil
			})
		},
	}
}

func newCreateTableCmd(opts *rootOptions) *cobra.Command {
	var specs []string

	cmd := &cobra.Command{
		Use:     "create-table <table>",
		Short:   "Create a table from name:TYPE column specs",
		Example: `  vizql create-table users --column "id:SERIAL PRIMARY KEY" --column "email:TEXT" --column "score:NUMERIC(10,2)"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			columns, err := parseColumnSpecs(specs)
			if err != nil {
				return err
			}
			return withPool(cmd, opts, func(ctx context.Context, c *commands.Commands) error {
				if err := c.CreateTable(ctx, commands.CreateTableArgs{TableName: args[0], Columns: columns}); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "created table %s\n", args[0])
				return err
			})
		},
	}

	cmd.Flags().StringArrayVarP(&specs, "column", "c", nil, `column as "name:TYPE" (TYPE defaults to TEXT); repeatable`)
	return cmd
}

// withPool opens a session, connects it and runs fn.
func withPool(cmd *cobra.Command, opts *rootOptions, fn func(context.Context, *commands.Commands) error) error {
	s, err := opts.openSession(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), oneShotTimeout)
	defer cancel()

	if err := s.connect(ctx, opts); err != nil {
		return err
	}
	return fn(ctx, s.commands)
}

// parseColumnSpecs turns "name:TYPE" flags into column descriptors.
func parseColumnSpecs(specs []string) ([]database.Column, error) {
	columns := make([]database.Column, 0, len(specs))
	for _, spec := range specs {
		name, typ, _ := strings.Cut(spec, ":")
		if strings.TrimSpace(name) == "" {
			return nil, &app.ErrConfig{Cause: fmt.Errorf("column spec %q has no name", spec)}
		}
		columns = append(columns, database.Column{
			Name: strings.TrimSpace(name),
			Type: strings.TrimSpace(typ),
		})
	}
	return columns, nil
}

func renderTables(w io.Writer, tables []string) {
	if len(tables) == 0 {
		_, _ = fmt.Fprintln(w, "(no tables)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "table"})
	for i, name := range tables {
		t.AppendRow(table.Row{i + 1, name})
	}
	t.Render()
}

func renderColumns(w io.Writer, cols []database.Column) {
	if len(cols) == 0 {
		_, _ = fmt.Fprintln(w, "(no columns)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "name", "type", "nullable", "default", "pk"})
	for _, c := range cols {
		pk := ""
		if c.IsPrimary {
			pk = "yes"
		}
		t.AppendRow(table.Row{c.OrdinalPos, c.Name, c.Type, c.IsNullable, c.Default, pk})
	}
	t.Render()
}
