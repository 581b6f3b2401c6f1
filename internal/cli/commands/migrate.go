package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grimoire-wiki/grimoire/internal/cli/ui"
	"github.com/grimoire-wiki/grimoire/internal/orm/migrate"
)

var migrateVerbose bool

// categorizeDatabaseError returns a user-friendly error message based on the database error
// In verbose mode, it returns the full error; otherwise, it returns a categorized message
func categorizeDatabaseError(err error, verbose bool) string {
	if verbose {
		return err.Error()
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "syntax") {
		return "SQL syntax error - use --verbose for details"
	}
	if strings.Contains(errStr, "constraint") || strings.Contains(errStr, "violates") {
		return "constraint violation - use --verbose for details"
	}
	if strings.Contains(errStr, "does not exist") || strings.Contains(errStr, "no such table") {
		return "referenced object does not exist - use --verbose for details"
	}
	if strings.Contains(errStr, "already exists") {
		return "object already exists - use --verbose for details"
	}
	if strings.Contains(errStr, "permission denied") || strings.Contains(errStr, "access denied") {
		return "permission denied - check database user privileges"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "unable to open") {
		return "cannot connect to the database - check database.url"
	}

	return "migration failed - use --verbose for details"
}

func newMigrateCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema commands",
		Long: `Create, inspect and drop the tables of the entity catalog.

The schema is generated from the declared entity types, so there are no
migration files to write.`,
	}

	cmd.PersistentFlags().BoolVarP(&migrateVerbose, "verbose", "v", false, "show full database errors")

	cmd.AddCommand(newMigrateUpCommand(global))
	cmd.AddCommand(newMigrateDownCommand(global))
	cmd.AddCommand(newMigrateStatusCommand(global))
	cmd.AddCommand(newMigratePrintCommand(global))

	return cmd
}

func newMigrateUpCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Create the entity tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(global)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.ensureSchema(cmd.Context())
			if err != nil {
				return fmt.Errorf("%s", categorizeDatabaseError(err, migrateVerbose))
			}

			p := printer(cmd, global)
			if n == 0 {
				p.Info("schema is up to date")
				return nil
			}
			p.Success("applied %d migration(s)", n)
			return nil
		},
	}
}

func newMigrateDownCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Drop the entity tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(global)
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.migration()
			if err != nil {
				return err
			}
			runner := migrate.NewRunner(a.db, a.dialect, a.logger)
			if err := runner.MigrateDown(cmd.Context(), []*migrate.Migration{m}); err != nil {
				return fmt.Errorf("%s", categorizeDatabaseError(err, migrateVerbose))
			}

			printer(cmd, global).Success("rolled back %s", m.Name)
			return nil
		},
	}
}

func newMigrateStatusCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(global)
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.migration()
			if err != nil {
				return err
			}

			tracker := migrate.NewTracker(a.db, a.dialect)
			if err := tracker.Initialize(cmd.Context()); err != nil {
				return fmt.Errorf("%s", categorizeDatabaseError(err, migrateVerbose))
			}
			applied, err := tracker.IsApplied(cmd.Context(), m.Version)
			if err != nil {
				return err
			}

			status := "pending"
			if applied {
				status = "applied"
			}
			table := ui.NewTable(cmd.OutOrStdout(), global.noColor, "VERSION", "NAME", "STATUS")
			table.AddRow(fmt.Sprint(m.Version), m.Name, status)
			table.Render()
			return nil
		},
	}
}

func newMigratePrintCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "print",
		Short: "Print the schema DDL without touching the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(global)
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.migration()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), m.Script())
			return nil
		},
	}
}
