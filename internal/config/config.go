package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all critbot daemon configuration.
//
// User preferences (enabled, popup delay, provider, API key, ...) are not part of
// this file; they live in the preferences store so the settings panel can change
// them while the daemon runs.
type Config struct {
	// DataDir holds the preferences database and logs.
	DataDir string `yaml:"data_dir"`

	Browser   BrowserConfig         `yaml:"browser"`
	Storage   StorageConfig         `yaml:"storage"`
	Watcher   WatcherConfig         `yaml:"watcher"`
	Presenter PresenterConfig       `yaml:"presenter"`
	Prompt    PromptConfig          `yaml:"prompt"`
	Providers ProvidersConfig       `yaml:"providers"`
	Sites     map[string]SiteConfig `yaml:"sites,omitempty"`
	Logging   LoggingConfig         `yaml:"logging"`
}

// BrowserConfig configures the DevTools connection.
type BrowserConfig struct {
	// DebuggerURL is the WebSocket URL of an already running Chrome.
	// When empty, Chrome is launched (Launch[0] as binary, remaining entries as flags).
	DebuggerURL       string   `yaml:"debugger_url"`
	Launch            []string `yaml:"launch"`
	Headless          bool     `yaml:"headless"`
	NavigationTimeout string   `yaml:"navigation_timeout"`
}

// StorageConfig configures the preferences store.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// WatcherConfig configures response detection.
type WatcherConfig struct {
	SweepInterval      string `yaml:"sweep_interval"`
	Cooldown           string `yaml:"cooldown"`
	MinTextLength      int    `yaml:"min_text_length"`
	SweepMinTextLength int    `yaml:"sweep_min_text_length"`
}

// PresenterConfig configures the popup lifecycle.
type PresenterConfig struct {
	AutoDismiss string `yaml:"auto_dismiss"`
}

// PromptConfig configures critique prompt construction.
type PromptConfig struct {
	MaxResponseChars int `yaml:"max_response_chars"`
	MaxQuestionChars int `yaml:"max_question_chars"`
}

// ProvidersConfig configures the three LLM endpoints.
type ProvidersConfig struct {
	Timeout   string         `yaml:"timeout"`
	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`
	Gemini    ProviderConfig `yaml:"gemini"`
}

// ProviderConfig configures one provider endpoint.
type ProviderConfig struct {
	BaseURL      string  `yaml:"base_url"`
	DefaultModel string  `yaml:"default_model"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
}

// SiteConfig overrides the built-in selector table for one site.
// Empty lists keep the built-in value.
type SiteConfig struct {
	Hosts             []string `yaml:"hosts,omitempty"`
	ResponseSelectors []string `yaml:"response_selectors,omitempty"`
	QuestionSelectors []string `yaml:"question_selectors,omitempty"`
	InputSelectors    []string `yaml:"input_selectors,omitempty"`
}

// DefaultDataDir returns ~/.critbot, or .critbot when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".critbot"
	}
	return filepath.Join(home, ".critbot")
}

// DefaultConfigPath returns the default path to config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dataDir := DefaultDataDir()
	return &Config{
		DataDir: dataDir,
		Browser: BrowserConfig{
			NavigationTimeout: "30s",
		},
		Storage: StorageConfig{
			Path: filepath.Join(dataDir, "preferences.db"),
		},
		Watcher: WatcherConfig{
			SweepInterval:      "3s",
			Cooldown:           "5s",
			MinTextLength:      100,
			SweepMinTextLength: 120,
		},
		Presenter: PresenterConfig{
			AutoDismiss: "60s",
		},
		Prompt: PromptConfig{
			MaxResponseChars: 6000,
			MaxQuestionChars: 2000,
		},
		Providers: ProvidersConfig{
			Timeout: "120s",
			OpenAI: ProviderConfig{
				BaseURL:      "https://api.openai.com/v1",
				DefaultModel: "gpt-4o-mini",
				Temperature:  0.2,
				MaxTokens:    2048,
			},
			Anthropic: ProviderConfig{
				BaseURL:      "https://api.anthropic.com/v1",
				DefaultModel: "claude-3-5-sonnet-latest",
				Temperature:  0.2,
				MaxTokens:    2048,
			},
			Gemini: ProviderConfig{
				BaseURL:      "https://generativelanguage.googleapis.com/",
				DefaultModel: "gemini-1.5-flash",
				Temperature:  0.2,
				MaxTokens:    2048,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Defaults if the config file doesn't exist
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join(cfg.DataDir, "preferences.db")
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
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
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("CRITBOT_DEBUGGER_URL"); url != "" {
		c.Browser.DebuggerURL = url
	}
	if path := os.Getenv("CRITBOT_STORE"); path != "" {
		c.Storage.Path = path
	}
	if v := os.Getenv("CRITBOT_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		c.Providers.OpenAI.BaseURL = url
	}
	if url := os.Getenv("ANTHROPIC_BASE_URL"); url != "" {
		c.Providers.Anthropic.BaseURL = url
	}
	if url := os.Getenv("GEMINI_BASE_URL"); url != "" {
		c.Providers.Gemini.BaseURL = url
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetSweepInterval returns the periodic full-document scan interval.
func (c *Config) GetSweepInterval() time.Duration {
	return parseDuration(c.Watcher.SweepInterval, 3*time.Second)
}

// GetCooldown returns the minimum spacing between detections.
func (c *Config) GetCooldown() time.Duration {
	return parseDuration(c.Watcher.Cooldown, 5*time.Second)
}

// GetAutoDismiss returns the popup auto-dismiss timeout.
func (c *Config) GetAutoDismiss() time.Duration {
	return parseDuration(c.Presenter.AutoDismiss, 60*time.Second)
}

// GetProviderTimeout returns the HTTP timeout shared by all providers.
func (c *Config) GetProviderTimeout() time.Duration {
	return parseDuration(c.Providers.Timeout, 120*time.Second)
}

// GetNavigationTimeout returns the page navigation timeout.
func (c *Config) GetNavigationTimeout() time.Duration {
	return parseDuration(c.Browser.NavigationTimeout, 30*time.Second)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"watcher.sweep_interval": c.Watcher.SweepInterval,
		"watcher.cooldown":       c.Watcher.Cooldown,
		"presenter.auto_dismiss": c.Presenter.AutoDismiss,
		"providers.timeout":      c.Providers.Timeout,
	} {
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, raw)
		}
	}
	if c.Watcher.MinTextLength < 0 || c.Watcher.SweepMinTextLength < 0 {
		return fmt.Errorf("watcher text length thresholds must not be negative")
	}
	if c.Prompt.MaxResponseChars <= 0 || c.Prompt.MaxQuestionChars <= 0 {
		return fmt.Errorf("prompt truncation limits must be positive")
	}
	for name, site := range c.Sites {
		if site.ResponseSelectors != nil && len(site.ResponseSelectors) == 0 {
			return fmt.Errorf("site %s: response_selectors must not be empty", name)
		}
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path not configured")
	}
	return nil
}
