// Package main implements the critbot CLI: the page-watching daemon, offline
// tools, and the settings panel.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"critbot/internal/config"
	"critbot/internal/logging"
	"critbot/internal/prompt"
	"critbot/internal/settings"
	"critbot/internal/watcher"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	timeout    time.Duration

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "critbot",
	Short: "critbot - adversarial second opinions for LLM chat answers",
	Long: `critbot watches ChatGPT, Claude and Gemini tabs of a Chrome instance.
When a new assistant answer appears it shows a panel with a critique prompt,
or a critique generated by another LLM provider.

Run without arguments to open the settings panel.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}
		if verbose {
			cfg.Logging.DebugMode = true
			cfg.Logging.Level = "debug"
		}
		if err := logging.Initialize(cfg.DataDir, cfg.Logging.Options()); err != nil {
			logger.Warn("File logging unavailable", zap.Error(err))
		}
		if logging.IsDebugMode() {
			logger.Debug("Category logs enabled", zap.String("dir", filepath.Join(cfg.DataDir, "logs")))
		}
		logging.Boot("critbot %s: config %s", cmd.Name(), configPath)
		logging.BootDebug("Data dir %s, %d site overrides", cfg.DataDir, len(cfg.Sites))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runSettingsPanel,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath(), "Config file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Timeout for one-shot commands")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(critiqueCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(toggleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore opens and seeds the preferences store.
func openStore(ctx context.Context) (*settings.Store, error) {
	store, err := settings.Open(cfg.Storage.Path)
	if err != nil {
		logging.BootWarn("Opening preferences %s failed: %v", cfg.Storage.Path, err)
		return nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		logging.BootError("Seeding preferences in %s failed: %v", cfg.Storage.Path, err)
		store.Close()
		return nil, err
	}
	return store, nil
}

func watcherOptions() watcher.Options {
	opts := watcher.DefaultOptions()
	if cfg.Watcher.MinTextLength > 0 {
		opts.MinTextLength = cfg.Watcher.MinTextLength
	}
	if cfg.Watcher.SweepMinTextLength > 0 {
		opts.SweepMinTextLength = cfg.Watcher.SweepMinTextLength
	}
	opts.Cooldown = cfg.GetCooldown()
	return opts
}

func newBuilder() *prompt.Builder {
	return prompt.NewBuilder(cfg.Prompt.MaxResponseChars, cfg.Prompt.MaxQuestionChars)
}
