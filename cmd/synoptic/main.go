package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"synoptic/cmd/synoptic/app"
	"synoptic/internal/api"
	"synoptic/internal/config"
	"synoptic/internal/logging"
	"synoptic/internal/route"
	"synoptic/internal/session"
)

var (
	// Global flags
	verbose    bool
	configPath string
	apiURL     string
	startPath  string
	timeout    time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "synoptic",
	Short: "Synoptic MD - terminal clinical co-pilot",
	Long: `Synoptic MD is a terminal client for the Synoptic clinical backend.

It shows each patient's record, AI synopsis, lab trends and care plan,
formats dictated notes into SOAP notes, runs prognoses, and answers
questions about the patient. Voice commands are read from the source
configured in voice.source.

Run without arguments to start the interactive interface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The interactive UI owns the terminal; it logs through internal/logging only.
		if cmd == cmd.Root() {
			logger = zap.NewNop()
			return nil
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAudit()
		logging.CloseAll()
	},
	RunE: runInteractive,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.synoptic/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Backend base URL (overrides api.base_url)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")
	rootCmd.Flags().StringVar(&startPath, "open", "/patients", "Route to open, e.g. /dashboard/<patient-id>")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(patientsCmd)
	rootCmd.AddCommand(patientCmd)
	rootCmd.AddCommand(prognosisCmd)
	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(careplanCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(sayCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// env is what every subcommand works against.
type env struct {
	cfg    *config.Config
	client *api.Client
	store  session.Store
}

// loadConfig reads the config file, applies --api, validates, and sets up
// file logging.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	if err := logging.Initialize(cfg.Logging.Dir, cfg.Logging.ToLogging()); err != nil {
		return nil, err
	}
	if err := logging.InitAudit(); err != nil {
		logger.Warn("audit log disabled", zap.Error(err))
	}
	return cfg, nil
}

func newClient(cfg *config.Config) *api.Client {
	return api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.GetAPITimeout()),
		api.WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst),
	)
}

func openEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := session.Open(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	logger.Debug("environment ready",
		zap.String("api", cfg.API.BaseURL),
		zap.String("session_backend", cfg.Session.Backend))
	return &env{cfg: cfg, client: newClient(cfg), store: store}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		logger.Warn("close session store", zap.Error(err))
	}
}

// requireUser returns the stored user, or an error telling the user to log in.
func (e *env) requireUser() (session.User, error) {
	u, err := e.store.Load()
	if err != nil {
		return session.User{}, fmt.Errorf("not logged in: run 'synoptic login <email>' first")
	}
	return u, nil
}

// commandContext bounds a subcommand by --timeout and cancels it on SIGINT/SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// =============================================================================
// INTERACTIVE
// =============================================================================

func runInteractive(cmd *cobra.Command, args []string) error {
	start, err := route.Parse(startPath)
	if err != nil {
		return fmt.Errorf("--open: %w", err)
	}
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	deps := app.Deps{
		Config: e.cfg,
		API:    e.client,
		Store:  e.store,
		Start:  start,
	}
	if fs, ok := e.store.(*session.FileStore); ok {
		w, err := session.NewWatcher(fs)
		if err != nil {
			logging.Get(logging.CategorySession).Warn("session watcher unavailable: %v", err)
		} else {
			deps.Watcher = w
		}
	}
	return app.Run(deps)
}
