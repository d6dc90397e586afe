// Command tutor is an interactive Socratic tutor for statistics, machine
// learning and AI, with background progress tracking and session report cards.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gemtutor/internal/chat"
	"gemtutor/internal/config"
	"gemtutor/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	debug      bool
	plain      bool
	configPath string
	workspace  string

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// newChatClient builds the LLM backend. Tests replace it with a fake.
var newChatClient = func(ctx context.Context, c *config.Config, apiKey string) (chat.Client, error) {
	return chat.NewClient(ctx, chat.Settings{
		Provider: c.LLM.Provider,
		APIKey:   apiKey,
		Model:    c.LLM.ChatModel(),
		BaseURL:  c.LLM.BaseURL,
		Timeout:  c.GetLLMTimeout(),
	})
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tutor",
	Short: "Gemini Tutor - Socratic AI tutor for Statistics, ML and AI",
	Long: `tutor opens a guided tutoring conversation with an LLM that leads you to
answers instead of handing them over.

Every turn is graded in the background and appended to a CSV progress store,
which seeds the next session. Leaving a session produces a Markdown report card.

Run without arguments to open the main menu.`,
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

		cfg, err = loadConfig()
		if err != nil {
			return err
		}
		if err := logging.Initialize(cfg.Logging); err != nil {
			logger.Warn("categorized logging disabled", zap.Error(err))
		}
		logging.Boot("tutor starting: provider=%s workspace=%s", cfg.LLM.Provider, workspace)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runInteractive,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Show latency and grading status")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "Print Markdown without terminal rendering")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/tutor.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")

	sessionCmd.Flags().StringVarP(&sessionProject, "project", "p", "", "Project name (default: last project)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Number of records to show (0: all, default from config)")
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing config file")

	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(roadmapCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the YAML config and resolves paths against the workspace.
func loadConfig() (*config.Config, error) {
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine workspace: %w", err)
		}
		workspace = wd
	}
	path := configPath
	if path == "" {
		path = filepath.Join(workspace, config.DefaultConfigFile)
	}

	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.Resolve(workspace)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	logger.Debug("config loaded", zap.String("path", path), zap.String("provider", c.LLM.Provider))
	return c, nil
}
