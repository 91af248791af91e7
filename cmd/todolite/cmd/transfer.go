package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"todolite/internal/markdown"
	"todolite/internal/report"
	"todolite/internal/task"
	"todolite/internal/views"
)

// newImportCmd creates the 'import' subcommand
func newImportCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import tasks from a JSON export or a markdown checklist",
		Long: `Merge tasks from a todolite export (or a bare JSON task array) into the list.
Tasks whose id already exists are skipped. A markdown checklist adds its
unchecked items as new tasks. Use - to read standard input.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			var data []byte
			if args[0] == "-" {
				data, err = io.ReadAll(cfg.stdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read import file: %w", err)
			}

			var added, skipped int
			if markdown.IsChecklist(data) {
				added, skipped, err = importChecklist(cmd.Context(), a.store, data)
			} else {
				added, err = a.store.Import(cmd.Context(), data)
			}
			if err != nil {
				return err
			}

			if a.json {
				return writeJSON(stdout, map[string]interface{}{
					"action":   "import",
					"imported": added,
					"skipped":  skipped,
					"total":    a.store.Len(),
					"result":   ResultActionCompleted,
				})
			}
			_, _ = fmt.Fprintf(stdout, "Imported %d new task(s).\n", added)
			if skipped > 0 {
				_, _ = fmt.Fprintf(stdout, "Skipped %d checked item(s).\n", skipped)
			}
			a.result(stdout, ResultActionCompleted)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newExportCmd creates the 'export' subcommand
func newExportCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tasks to a JSON backup, a PDF or a markdown checklist",
		Long: `Write every task to todolite-backup-YYYY-MM-DD.json, or with --pdf or
--markdown write the tasks of a view as a checklist. Use --output - for
standard output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			asPDF, _ := cmd.Flags().GetBool("pdf")
			asMarkdown, _ := cmd.Flags().GetBool("markdown")
			if asPDF && asMarkdown {
				return fmt.Errorf("--pdf and --markdown cannot be combined")
			}
			output, _ := cmd.Flags().GetString("output")

			var buf bytes.Buffer
			var count int
			if asPDF || asMarkdown {
				viewName, _ := cmd.Flags().GetString("view")
				view, q, err := resolveQuery(viewName, a.conf, cfg)
				if err != nil {
					return err
				}
				if err := applyQueryFlags(cmd, &q); err != nil {
					return err
				}
				shown := views.Project(a.store.Tasks(), q)
				count = len(shown)

				title := "TodoLite"
				if view.Name != "default" {
					title += " - " + view.Name
				}
				if asMarkdown {
					if err := markdown.Write(&buf, title, shown); err != nil {
						return err
					}
					if output == "" {
						output = markdown.FileName(cfg.now())
					}
				} else {
					if err := report.WritePDF(&buf, shown, report.Options{
						Title:       title,
						GeneratedAt: cfg.now(),
						Classifier:  a.due,
					}); err != nil {
						return err
					}
					if output == "" {
						output = report.FileName(cfg.now())
					}
				}
			} else {
				snap := a.store.Export()
				count = len(snap.Tasks)
				data, err := task.MarshalSnapshot(snap)
				if err != nil {
					return err
				}
				buf.Write(data)
				buf.WriteByte('\n')
				if output == "" {
					output = task.ExportFileName(cfg.now())
				}
			}

			if output == "-" {
				_, err := stdout.Write(buf.Bytes())
				return err
			}

			if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}

			if a.json {
				return writeJSON(stdout, map[string]interface{}{
					"action": "export",
					"file":   output,
					"count":  count,
					"result": ResultActionCompleted,
				})
			}
			_, _ = fmt.Fprintf(stdout, "Exported %d task(s) to %s\n", count, output)
			a.result(stdout, ResultActionCompleted)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringP("output", "o", "", "Output file (default: dated file in the current directory, - for stdout)")
	cmd.Flags().Bool("pdf", false, "Write a PDF checklist instead of a JSON backup")
	cmd.Flags().Bool("markdown", false, "Write a markdown checklist instead of a JSON backup")
	addQueryFlags(cmd)
	return cmd
}

// importChecklist adds the unchecked items of a markdown checklist as new
// tasks in one save. Nothing is added unless every item is accepted.
func importChecklist(ctx context.Context, store *task.Store, data []byte) (added, skipped int, err error) {
	items, err := markdown.Parse(data)
	if err != nil {
		return 0, 0, err
	}
	var drafts []task.Draft
	var lines []int
	for _, item := range items {
		if item.Completed {
			skipped++
			continue
		}
		drafts = append(drafts, item.Draft)
		lines = append(lines, item.Line)
	}

	created, err := store.CreateAll(ctx, drafts)
	var de *task.DraftError
	if errors.As(err, &de) {
		return 0, 0, fmt.Errorf("line %d: %w", lines[de.Index], de.Err)
	}
	if err != nil {
		return 0, 0, err
	}
	return len(created), skipped, nil
}
