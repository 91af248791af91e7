package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"todolite/internal/config"
	"todolite/internal/views"
)

// getViewsDir returns the directory custom views are loaded from.
func getViewsDir(cfg *Config, conf *config.Config) string {
	if cfg != nil && cfg.ViewsPath != "" {
		return cfg.ViewsPath
	}
	return conf.GetViewsDir()
}

// newViewCmd creates the 'view' subcommand for view management
func newViewCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	viewCmd := &cobra.Command{
		Use:           "view",
		Short:         "Manage views",
		Long:          "A view is a saved filter and sort, selected with 'todolite list --view <name>'.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	viewCmd.AddCommand(newViewListCmd(stdout, cfg))
	viewCmd.AddCommand(newViewInitCmd(stdout, cfg))

	return viewCmd
}

// newViewListCmd creates the 'view list' subcommand
func newViewListCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available views",
		Long:  "List all available views including built-in and custom views.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd, cfg)
			if err != nil {
				return err
			}
			return doViewList(cfg, s, stdout)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// doViewList displays all available views
func doViewList(cfg *Config, s *settings, stdout io.Writer) error {
	loader := views.NewLoader(getViewsDir(cfg, s.conf))

	viewList, err := loader.ListViews()
	if err != nil {
		return err
	}

	if s.json {
		return writeJSON(stdout, map[string]interface{}{"views": viewList, "result": ResultInfoOnly})
	}

	_, _ = fmt.Fprintln(stdout, "Available views:")
	for _, v := range viewList {
		viewType := "custom"
		if v.BuiltIn {
			viewType = "built-in"
		}
		line := fmt.Sprintf("  - %s (%s)", v.Name, viewType)
		if v.Description != "" {
			line += ": " + v.Description
		}
		_, _ = fmt.Fprintln(stdout, line)
	}

	printResult(stdout, cfg, s.json, ResultInfoOnly)
	return nil
}

// newViewInitCmd creates the 'view init' subcommand
func newViewInitCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the views folder with an example view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd, cfg)
			if err != nil {
				return err
			}
			dir := getViewsDir(cfg, s.conf)

			created, err := views.SetupViewsFolder(dir)
			if err != nil {
				return fmt.Errorf("failed to create views folder: %w", err)
			}
			if !created {
				_, _ = fmt.Fprintf(stdout, "Views folder already exists: %s\n", dir)
				printResult(stdout, cfg, s.json, ResultInfoOnly)
				return nil
			}
			_, _ = fmt.Fprintf(stdout, "Created %s with example view 'urgent'\n", dir)
			printResult(stdout, cfg, s.json, ResultActionCompleted)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}
