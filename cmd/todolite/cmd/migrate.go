package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"todolite/internal/migrate"
	"todolite/internal/utils"
)

// newMigrateCmd creates the 'migrate' subcommand
func newMigrateCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy tasks between storage backends",
		Long: `Merge the task list of one backend into another, using the settings of both
in the config file. Tasks whose id already exists in the target are skipped.
Switch storage.backend afterwards to start using the target.`,
		Example: "  todolite migrate --from file --to sqlite",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd, cfg)
			if err != nil {
				return err
			}
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			if from == "" || to == "" {
				return utils.WrapWithSuggestion(
					fmt.Errorf("%w: both --from and --to are required", utils.ErrValidation),
					"Example: todolite migrate --from file --to sqlite",
				)
			}
			if from == to {
				return fmt.Errorf("%w: source and target are both %q", utils.ErrValidation, from)
			}

			ctx := cmd.Context()
			src, err := openNamedBackend(ctx, from, s.conf, cfg)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", from, err)
			}
			defer func() { _ = src.Close() }()
			dst, err := openNamedBackend(ctx, to, s.conf, cfg)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", to, err)
			}
			defer func() { _ = dst.Close() }()

			res, err := migrate.Run(ctx, src, dst, migrate.Options{Key: s.conf.GetTasksKey(), DryRun: dryRun})
			if err != nil {
				return err
			}

			code := ResultActionCompleted
			if dryRun || res.Migrated == 0 {
				code = ResultInfoOnly
			}
			if s.json {
				return writeJSON(stdout, map[string]interface{}{
					"from":   from,
					"to":     to,
					"report": res,
					"result": code,
				})
			}

			verb := "Migrated"
			if dryRun {
				verb = "Would migrate"
			}
			_, _ = fmt.Fprintf(stdout, "%s %d of %d task(s) from %s to %s.\n", verb, res.Migrated, res.Source, from, to)
			if res.Skipped > 0 {
				_, _ = fmt.Fprintf(stdout, "Skipped %d task(s) already in %s.\n", res.Skipped, to)
			}
			if res.DarkMode {
				_, _ = fmt.Fprintln(stdout, "Copied the theme preference.")
			}
			printResult(stdout, cfg, s.json, code)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().String("from", "", "Source backend (file, sqlite or redis)")
	cmd.Flags().String("to", "", "Target backend (file, sqlite or redis)")
	cmd.Flags().Bool("dry-run", false, "Report what would be copied without writing")
	return cmd
}
