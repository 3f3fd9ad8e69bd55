package cli

import (
	"fmt"

	"github.com/joacominatel/vizql/internal/app"
	"github.com/joacominatel/vizql/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newProfilesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List saved connection profiles",
		Long:  "List saved connection profiles as YAML. Passwords live in the OS keyring and are never printed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return &app.ErrConfig{Cause: err}
			}
			if len(cfg.Connections) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "(no saved profiles)")
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(map[string]any{"connections": cfg.Connections})
		},
	}

	cmd.AddCommand(newProfilesAddCmd(opts), newProfilesRemoveCmd(opts))
	return cmd
}

func newProfilesAddCmd(opts *rootOptions) *cobra.Command {
	var (
		name, host, port, database, user, sslmode string
		makeDefault, force                        bool
	)

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Save a connection profile",
		Example: `  vizql profiles add --name local --database app --user me -W`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return &app.ErrConfig{Cause: err}
			}

			conn, err := config.NewConnection(database, user, "", host, port)
			if err != nil {
				return &app.ErrConfig{Cause: err}
			}
			if name != "" {
				conn.Name = name
			}
			conn.SSLMode = sslmode
			if cfg.HasConnection(conn.Name) && !force {
				return &app.ErrConfig{Cause: fmt.Errorf("profile %q already exists, pass --force to replace it", conn.Name)}
			}

			if opts.askPass {
				if conn.Password, err = promptPassword("Password: "); err != nil {
					return err
				}
			}
			if makeDefault {
				cfg.Preferences.DefaultConnection = conn.Name
			}

			if err := config.SaveConnection(cfg, conn, opts.configPath); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved profile %s (%s)\n", conn.Name, conn.DisplayString())
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&name, "name", "", "profile name (default derived from host, port and database)")
	f.StringVar(&host, "host", config.DefaultHost, "server host")
	f.StringVar(&port, "port", "5432", "server port")
	f.StringVar(&database, "database", "", "database name")
	f.StringVar(&user, "user", "", "user name")
	f.StringVar(&sslmode, "sslmode", "", "sslmode (disable, require, verify-full, ...)")
	f.BoolVar(&makeDefault, "default", false, "make this the default profile")
	f.BoolVar(&force, "force", false, "replace an existing profile with the same name")
	return cmd
}

func newProfilesRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a saved profile and its stored password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return &app.ErrConfig{Cause: err}
			}
			if !cfg.RemoveConnection(args[0]) {
				return &app.ErrConfig{Cause: fmt.Errorf("no saved profile named %q", args[0])}
			}
			if cfg.Preferences.DefaultConnection == args[0] {
				cfg.Preferences.DefaultConnection = ""
			}
			if err := config.DeletePassword(args[0]); err != nil {
				return err
			}
			return config.Save(cfg, opts.configPath)
		},
	}
}
