package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"todolite/internal/config"
	"todolite/internal/credentials"
)

// newCredentialsCmd creates the 'credentials' subcommand for credential management
func newCredentialsCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	credentialsCmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage backend credentials",
		Long:  "Store, retrieve, and remove the Redis password in the system keyring.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	accountCmds := []struct {
		use, short, long string
		result           string
		run              func(ctx context.Context, h *credentials.CLIHandler, backend, user string, jsonOutput bool) error
	}{
		{
			use:    "set",
			short:  "Store credentials in system keyring",
			long:   "Prompt for a password and store it in the system keyring (macOS Keychain, Windows Credential Manager, or Linux Secret Service).",
			result: ResultActionCompleted,
			run: func(ctx context.Context, h *credentials.CLIHandler, backend, user string, _ bool) error {
				return h.Set(ctx, backend, user)
			},
		},
		{
			use:    "get",
			short:  "Show where credentials come from",
			long:   "Look the password up (keyring first, then TODOLITE_REDIS_PASSWORD) and show its source. The password itself is never printed.",
			result: ResultInfoOnly,
			run: func(ctx context.Context, h *credentials.CLIHandler, backend, user string, jsonOutput bool) error {
				return h.Get(ctx, backend, user, jsonOutput)
			},
		},
		{
			use:    "delete",
			short:  "Remove credentials from system keyring",
			long:   "Remove the stored password from the system keyring. Environment variables are not affected.",
			result: ResultActionCompleted,
			run: func(ctx context.Context, h *credentials.CLIHandler, backend, user string, _ bool) error {
				return h.Delete(ctx, backend, user)
			},
		},
	}
	for _, ac := range accountCmds {
		ac := ac
		credentialsCmd.AddCommand(&cobra.Command{
			Use:   ac.use + " [backend] [username]",
			Short: ac.short,
			Long:  ac.long,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if noPrompt, _ := cmd.Flags().GetBool("no-prompt"); noPrompt {
					cfg.NoPrompt = true
				}
				backend, user := args[0], args[1]
				if strings.ToLower(backend) != config.BackendRedis {
					return fmt.Errorf("backend %q does not use credentials (only %q does)", backend, config.BackendRedis)
				}
				jsonOutput, _ := cmd.Flags().GetBool("json")

				h := credentials.NewCLIHandler(newCredentialManager(cfg), cfg.stdin(), stdout, stderr)
				if err := ac.run(cmd.Context(), h, backend, user, jsonOutput); err != nil {
					return err
				}
				printResult(stdout, cfg, jsonOutput, ac.result)
				return nil
			},
			SilenceUsage:  true,
			SilenceErrors: true,
		})
	}
	credentialsCmd.AddCommand(newCredentialsListCmd(stdout, stderr, cfg))

	return credentialsCmd
}

// newCredentialsListCmd reports on the Redis account named in the config.
func newCredentialsListCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show credential status of the configured backend",
		Long:  "Show whether a password is available for the Redis account in the config.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd, cfg)
			if err != nil {
				return err
			}

			var accounts []credentials.BackendConfig
			redisConf := s.conf.Storage.Redis
			if s.conf.Storage.Backend == config.BackendRedis || redisConf.Username != "" {
				accounts = append(accounts, credentials.BackendConfig{Name: config.BackendRedis, Username: redisConf.Username})
			}

			h := credentials.NewCLIHandler(newCredentialManager(cfg), nil, stdout, stderr)
			if err := h.List(cmd.Context(), accounts, s.json); err != nil {
				return err
			}
			printResult(stdout, cfg, s.json, ResultInfoOnly)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}
