package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"esecure/cmd/esecure/popup"
	"esecure/cmd/esecure/ui"
	"esecure/internal/analyzer"
	"esecure/internal/browser"
	"esecure/internal/config"
	"esecure/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose     bool
	configPath  string
	baseURL     string
	accessToken string
	debuggerURL string
	tabURL      string
	timeout     time.Duration

	// Logger
	logger *zap.Logger
)

// errAnalysisFailed marks a completed run whose result is an error panel.
// The panel has already been printed.
var errAnalysisFailed = errors.New("analysis failed")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "esecure",
	Short: "ESECURE Terms Analyzer",
	Long: `esecure scores Terms & Conditions and Privacy Policies for safety and
transparency using the ESECURE analysis service.

Run without arguments to open the interactive analyzer. Give it a URL, or
paste the terms text, and press ctrl+s. With Chrome running under
--remote-debugging-port, ctrl+t fills in the URL of the active tab.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip logger init for interactive mode (it has its own UI)
		if cmd.Use == "esecure" && cmd.CalledAs() == "esecure" {
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
	},
	RunE: runPopup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./.esecure/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Analysis service base URL (or set ESECURE_BACKEND_URL)")
	rootCmd.PersistentFlags().StringVar(&accessToken, "token", "", "Public access token (or set ESECURE_PUBLIC_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&debuggerURL, "debugger-url", "", "Chrome DevTools address, e.g. 127.0.0.1:9222")
	rootCmd.PersistentFlags().StringVar(&tabURL, "tab-url", "", "Report this URL as the active tab instead of asking Chrome")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Request timeout (0 waits indefinitely)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(tabCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errAnalysisFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig reads .env, the config file and the environment, then applies
// command line flags on top.
func loadConfig() (*config.Config, string, error) {
	path := resolveConfigPath()
	if err := config.LoadDotEnv(); err != nil {
		return nil, path, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, path, nil
}

func applyFlagOverrides(cfg *config.Config) {
	if baseURL != "" {
		cfg.Backend.BaseURL = baseURL
	}
	if accessToken != "" {
		cfg.Backend.AccessToken = accessToken
	}
	if debuggerURL != "" {
		cfg.Browser.DebuggerURL = debuggerURL
		cfg.Browser.Enabled = true
	}
	if timeout > 0 {
		cfg.Backend.Timeout = timeout.String()
	}
}

// initLogging starts file logging for the workspace that owns the config
// file, i.e. the parent of its .esecure directory.
func initLogging(cfg *config.Config, path string) {
	ws := filepath.Dir(filepath.Dir(path))
	if err := logging.Initialize(ws, cfg.Logging.Options()); err != nil {
		logger.Warn("file logging disabled", zap.Error(err))
	}
}

func newClient(cfg *config.Config) *analyzer.Client {
	return analyzer.NewClient(analyzer.Config{
		BaseURL:     cfg.Backend.BaseURL,
		AccessToken: cfg.Backend.AccessToken,
		Timeout:     cfg.GetTimeout(),
	})
}

func newTabs(cfg *config.Config) browser.TabQuerier {
	if tabURL != "" {
		return browser.Static{URL: tabURL}
	}
	return browser.New(browser.Config{
		Enabled:     cfg.IsBrowserEnabled(),
		DebuggerURL: cfg.Browser.DebuggerURL,
		Timeout:     cfg.GetBrowserTimeout(),
	})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// runPopup opens the interactive analyzer and keeps it in sync with the
// config file until the user quits.
func runPopup(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg, path)
	defer logging.CloseAll()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := popup.New(ctx, popup.Options{
		Client:     newClient(cfg),
		Tabs:       newTabs(cfg),
		Styles:     ui.NewStyles(ui.ThemeFor(cfg.UI.Theme)),
		TabTimeout: cfg.GetBrowserTimeout(),
	})
	prog := popup.NewProgram(ctx, m)

	w, err := config.NewWatcher(path, func(c *config.Config) {
		applyFlagOverrides(c)
		prog.ApplyConfig(popup.ConfigChangedMsg{Client: newClient(c), Tabs: newTabs(c)})
	})
	if err == nil {
		if err := w.Start(ctx); err != nil {
			logging.BootWarn("config watcher not started: %v", err)
		}
		defer w.Stop()
	} else {
		logging.BootWarn("config watcher unavailable: %v", err)
	}

	logging.Boot("popup started (backend %s)", cfg.Backend.BaseURL)
	return prog.Run()
}
