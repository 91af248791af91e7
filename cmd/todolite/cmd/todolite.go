package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"todolite/backend"
	"todolite/backend/file"
	"todolite/backend/redis"
	"todolite/backend/sqlite"
	"todolite/internal/config"
	"todolite/internal/credentials"
	"todolite/internal/due"
	"todolite/internal/notification"
	"todolite/internal/task"
	"todolite/internal/utils"
)

// Version is set at build time
var Version = "dev"

// Result codes for CLI output (used in no-prompt mode)
const (
	ResultActionCompleted = "ACTION_COMPLETED"
	ResultInfoOnly        = "INFO_ONLY"
	ResultError           = "ERROR"
)

// Config holds per-invocation settings that are not read from the config
// file. Zero values select the real environment.
type Config struct {
	NoPrompt     bool
	Verbose      bool
	OutputFormat string
	ConfigPath   string // Path to config.yaml (default: XDG config dir)
	DataDir      string // Forces the file backend in this directory (for testing)
	ViewsPath    string // Path to views directory (for testing)

	Now      func() time.Time                 // Clock for due dates and ids
	Stdin    io.Reader                        // Prompt input (default: os.Stdin)
	Notifier notification.NotificationManager // Replaces the configured notifier
	Keyring  credentials.Keyring              // Replaces the system keyring
}

func (c *Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Config) stdin() io.Reader {
	if c.Stdin != nil {
		return c.Stdin
	}
	return os.Stdin
}

// Execute runs the CLI with the given arguments and IO writers
func Execute(args []string, stdout, stderr io.Writer, cfg *Config) int {
	if cfg == nil {
		cfg = &Config{}
	}
	rootCmd := NewTodoLite(stdout, stderr, cfg)

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		if containsJSONFlag(args) {
			outputErrorJSON(err, stdout)
		} else {
			_, _ = fmt.Fprintln(stderr, "Error:", err)
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultError)
			}
		}
		return 1
	}
	return 0
}

// containsJSONFlag checks if args contain --json flag
func containsJSONFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--json" {
			return true
		}
	}
	return false
}

// NewTodoLite creates the root command with injectable IO
func NewTodoLite(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	if cfg == nil {
		cfg = &Config{}
	}

	cmd := &cobra.Command{
		Use:     "todolite",
		Short:   "A small personal task list",
		Long:    "todolite keeps a single task list with priorities, due dates, tags and repeating tasks.\nRun without arguments on a terminal to open the interactive view.",
		Version: Version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if isTerminal(stdout) && isTerminal(cfg.stdin()) {
				return runTUI(cmd, cfg)
			}
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file")
	cmd.PersistentFlags().BoolP("no-prompt", "y", false, "Disable interactive prompts")
	cmd.PersistentFlags().BoolP("verbose", "V", false, "Enable verbose/debug output")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")

	cmd.AddCommand(newAddCmd(stdout, cfg))
	cmd.AddCommand(newListCmd(stdout, cfg))
	cmd.AddCommand(newDoneCmd(stdout, cfg))
	cmd.AddCommand(newEditCmd(stdout, cfg))
	cmd.AddCommand(newRmCmd(stdout, cfg))
	cmd.AddCommand(newClearCmd(stdout, cfg))
	cmd.AddCommand(newTagsCmd(stdout, cfg))
	cmd.AddCommand(newStatsCmd(stdout, cfg))
	cmd.AddCommand(newImportCmd(stdout, cfg))
	cmd.AddCommand(newExportCmd(stdout, cfg))
	cmd.AddCommand(newMigrateCmd(stdout, cfg))
	cmd.AddCommand(newRemindCmd(stdout, cfg))
	cmd.AddCommand(newWatchCmd(stdout, cfg))
	cmd.AddCommand(newTUICmd(cfg))
	cmd.AddCommand(newViewCmd(stdout, cfg))
	cmd.AddCommand(newCredentialsCmd(stdout, stderr, cfg))

	return cmd
}

func isTerminal(v interface{}) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// settings is the resolved configuration of one command invocation.
type settings struct {
	conf *config.Config
	json bool
}

// loadSettings applies the global flags and reads the config file.
func loadSettings(cmd *cobra.Command, cfg *Config) (*settings, error) {
	noPrompt, _ := cmd.Flags().GetBool("no-prompt")
	if noPrompt {
		cfg.NoPrompt = true
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	utils.SetVerboseMode(cfg.Verbose || verbose)
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg.ConfigPath = path
	}

	conf, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := conf.Validate(); err != nil {
		return nil, utils.WrapWithSuggestion(err, "Fix the config file or delete it to recreate the defaults")
	}
	conf.ApplyFlags(cfg.NoPrompt, cfg.OutputFormat)
	if conf.NoPrompt {
		cfg.NoPrompt = true
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return &settings{conf: conf, json: jsonOutput || conf.OutputFormat == "json"}, nil
}

// app is an opened task store plus everything a command needs around it.
type app struct {
	*settings
	cfg   *Config
	blobs backend.BlobStore
	store *task.Store
	due   *due.Classifier
}

// openApp loads the configuration and opens the configured backend.
func openApp(cmd *cobra.Command, cfg *Config) (*app, error) {
	s, err := loadSettings(cmd, cfg)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	blobs, err := openBackend(ctx, s.conf, cfg)
	if err != nil {
		return nil, err
	}
	utils.Debugf("using %s backend at %s", s.conf.Storage.Backend, backend.Describe(blobs, s.conf.Storage.Backend))

	store, err := task.Open(ctx, blobs,
		task.WithKey(s.conf.GetTasksKey()),
		task.WithClock(cfg.now),
	)
	if err != nil {
		_ = blobs.Close()
		return nil, err
	}

	return &app{
		settings: s,
		cfg:      cfg,
		blobs:    blobs,
		store:    store,
		due:      due.New(cfg.now),
	}, nil
}

func (a *app) Close() {
	if err := a.blobs.Close(); err != nil {
		utils.Warnf("failed to close backend: %v", err)
	}
}

// result prints code unless JSON output already carries it.
func (a *app) result(w io.Writer, code string) {
	printResult(w, a.cfg, a.json, code)
}

func printResult(w io.Writer, cfg *Config, jsonOutput bool, code string) {
	if cfg.NoPrompt && !jsonOutput {
		_, _ = fmt.Fprintln(w, code)
	}
}

// openBackend opens the blob store selected in the config.
func openBackend(ctx context.Context, conf *config.Config, cfg *Config) (backend.BlobStore, error) {
	if cfg.DataDir != "" {
		return file.New(file.Config{Dir: cfg.DataDir})
	}
	return openNamedBackend(ctx, conf.Storage.Backend, conf, cfg)
}

// openNamedBackend opens one of the backends described in the config,
// whichever is currently selected.
func openNamedBackend(ctx context.Context, name string, conf *config.Config, cfg *Config) (backend.BlobStore, error) {
	switch name {
	case config.BackendFile:
		if cfg.DataDir != "" {
			return file.New(file.Config{Dir: cfg.DataDir})
		}
		return file.New(file.Config{Dir: conf.GetFileDir()})
	case config.BackendSQLite:
		path := conf.GetDatabasePath()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("could not create data directory: %w", err)
		}
		return sqlite.New(path)
	case config.BackendRedis:
		rc := conf.Storage.Redis
		if rc.Addr == "" {
			return nil, fmt.Errorf("storage.redis.addr is not set")
		}
		return redis.New(ctx, redis.Config{
			Addr:     rc.Addr,
			Username: rc.Username,
			Password: redisPassword(ctx, conf, cfg),
			DB:       rc.DB,
			Prefix:   conf.GetRedisPrefix(),
		})
	}
	return nil, utils.ErrInvalidChoice("backend", name, []string{config.BackendFile, config.BackendSQLite, config.BackendRedis})
}

// redisPassword prefers the keyring or environment over the config file.
func redisPassword(ctx context.Context, conf *config.Config, cfg *Config) string {
	rc := conf.Storage.Redis
	info, err := newCredentialManager(cfg).Get(ctx, config.BackendRedis, rc.Username)
	if err != nil {
		utils.Debugf("credential lookup failed: %v", err)
	} else if info.Found {
		utils.Debugf("redis password from %s", info.Source)
		return info.Password
	}
	return rc.Password
}

func newCredentialManager(cfg *Config) *credentials.Manager {
	if cfg.Keyring != nil {
		return credentials.NewManager(credentials.WithKeyring(cfg.Keyring))
	}
	return credentials.NewManager()
}

// writeJSON marshals v onto one line.
func writeJSON(w io.Writer, v interface{}) error {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, string(jsonBytes))
	return nil
}

type errorResponse struct {
	Error  string `json:"error"`
	Code   int    `json:"code"`
	Result string `json:"result"`
}

// outputErrorJSON outputs error in JSON format
func outputErrorJSON(err error, stdout io.Writer) {
	_ = writeJSON(stdout, errorResponse{
		Error:  err.Error(),
		Code:   1,
		Result: ResultError,
	})
}
