// Package config loads gemtutor configuration: the YAML application config,
// environment overrides and the plain-text API credential file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file looked up in the workspace.
const DefaultConfigFile = "tutor.yaml"

// Config holds all gemtutor configuration.
type Config struct {
	// LLM provider and models
	LLM LLMConfig `yaml:"llm"`

	// File locations for the progress store, reports and profile
	Storage StorageConfig `yaml:"storage"`

	// Background grading pool
	Grading GradingConfig `yaml:"grading"`

	// Conversation context
	History HistoryConfig `yaml:"history"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig locates the files the tutor reads and writes.
type StorageConfig struct {
	ProgressPath   string `yaml:"progress_path"`
	ReportsDir     string `yaml:"reports_dir"`
	ProfilePath    string `yaml:"profile_path"`
	CurriculumPath string `yaml:"curriculum_path"`
}

// GradingConfig sizes the background grading work queue.
type GradingConfig struct {
	Workers     int    `yaml:"workers"`
	QueueSize   int    `yaml:"queue_size"`
	Timeout     string `yaml:"timeout"`
	FlushOnExit bool   `yaml:"flush_on_exit"` // wait for queued grading before exiting
}

// HistoryConfig controls how much prior progress is fed into a new session.
type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:   ProviderGemini,
			Model:      DefaultModel,
			Timeout:    "120s",
			APIKeyFile: "API_KEY.txt",
		},

		Storage: StorageConfig{
			ProgressPath:   "progress_db.csv",
			ReportsDir:     "reports",
			ProfilePath:    "user_profile.json",
			CurriculumPath: "curriculum.json",
		},

		Grading: GradingConfig{
			Workers:   2,
			QueueSize: 16,
			Timeout:   "60s",
		},

		History: HistoryConfig{
			Limit: 5,
		},

		Logging: LoggingConfig{
			Level: "info",
			Dir:   filepath.Join(".tutor", "logs"),
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults (with env overrides applied).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
// Later keys in the list win, matching the order they are checked.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = ProviderAnthropic
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = ProviderOpenAI
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = ProviderGemini
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = ProviderGemini
	}

	if path := os.Getenv("TUTOR_PROGRESS_DB"); path != "" {
		c.Storage.ProgressPath = path
	}
	if dir := os.Getenv("TUTOR_REPORTS_DIR"); dir != "" {
		c.Storage.ReportsDir = dir
	}
}

// Resolve rewrites relative storage and logging paths against the workspace.
func (c *Config) Resolve(workspace string) {
	if workspace == "" {
		return
	}
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(workspace, p)
	}
	c.Storage.ProgressPath = abs(c.Storage.ProgressPath)
	c.Storage.ReportsDir = abs(c.Storage.ReportsDir)
	c.Storage.ProfilePath = abs(c.Storage.ProfilePath)
	c.Storage.CurriculumPath = abs(c.Storage.CurriculumPath)
	c.LLM.APIKeyFile = abs(c.LLM.APIKeyFile)
	c.Logging.Dir = abs(c.Logging.Dir)
}

// ResolveAPIKey returns the API key to use: an env or YAML key wins,
// otherwise the credential file is read.
func (c *Config) ResolveAPIKey() (string, bool) {
	if c.LLM.APIKey != "" {
		return c.LLM.APIKey, true
	}
	return LoadCredential(c.LLM.APIKeyFile)
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetGradingTimeout returns the per-job grading timeout as a duration.
func (c *Config) GetGradingTimeout() time.Duration {
	d, err := time.ParseDuration(c.Grading.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !IsValidProvider(c.LLM.Provider) {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	if c.LLM.Timeout != "" {
		if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
			return fmt.Errorf("invalid llm.timeout %q: %w", c.LLM.Timeout, err)
		}
	}
	if c.Grading.Timeout != "" {
		if _, err := time.ParseDuration(c.Grading.Timeout); err != nil {
			return fmt.Errorf("invalid grading.timeout %q: %w", c.Grading.Timeout, err)
		}
	}
	if c.Grading.Workers < 1 {
		return fmt.Errorf("grading.workers must be at least 1, got %d", c.Grading.Workers)
	}
	if c.Grading.QueueSize < 0 {
		return fmt.Errorf("grading.queue_size must not be negative, got %d", c.Grading.QueueSize)
	}
	return nil
}
