package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.GetSweepInterval(); got != 3*time.Second {
		t.Errorf("sweep interval = %v, want 3s", got)
	}
	if got := cfg.GetCooldown(); got != 5*time.Second {
		t.Errorf("cooldown = %v, want 5s", got)
	}
	if got := cfg.GetAutoDismiss(); got != 60*time.Second {
		t.Errorf("auto dismiss = %v, want 60s", got)
	}
	if cfg.Watcher.MinTextLength != 100 || cfg.Watcher.SweepMinTextLength != 120 {
		t.Errorf("thresholds = %d/%d, want 100/120", cfg.Watcher.MinTextLength, cfg.Watcher.SweepMinTextLength)
	}
	if cfg.Prompt.MaxResponseChars != 6000 || cfg.Prompt.MaxQuestionChars != 2000 {
		t.Errorf("prompt limits = %d/%d", cfg.Prompt.MaxResponseChars, cfg.Prompt.MaxQuestionChars)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("CRITBOT_DEBUGGER_URL", "")
	t.Setenv("CRITBOT_STORE", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Browser.DebuggerURL = "ws://127.0.0.1:9222/devtools/browser/abc"
	cfg.Watcher.Cooldown = "7s"
	cfg.Sites = map[string]SiteConfig{
		"claude": {ResponseSelectors: []string{".font-claude-message"}},
	}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Browser.DebuggerURL != cfg.Browser.DebuggerURL {
		t.Errorf("debugger url = %q", loaded.Browser.DebuggerURL)
	}
	if loaded.GetCooldown() != 7*time.Second {
		t.Errorf("cooldown = %v, want 7s", loaded.GetCooldown())
	}
	if sel := loaded.Sites["claude"].ResponseSelectors; len(sel) != 1 || sel[0] != ".font-claude-message" {
		t.Errorf("site override lost: %v", sel)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.Path == "" {
		t.Fatal("storage path should default")
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CRITBOT_DEBUGGER_URL", "ws://env")
	t.Setenv("CRITBOT_STORE", "/tmp/prefs.db")
	t.Setenv("CRITBOT_DEBUG", "1")
	t.Setenv("OPENAI_BASE_URL", "http://openai.local/v1")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.Browser.DebuggerURL != "ws://env" {
		t.Errorf("debugger url = %q", cfg.Browser.DebuggerURL)
	}
	if cfg.Storage.Path != "/tmp/prefs.db" {
		t.Errorf("store path = %q", cfg.Storage.Path)
	}
	if !cfg.Logging.DebugMode {
		t.Error("CRITBOT_DEBUG should enable debug mode")
	}
	if cfg.Providers.OpenAI.BaseURL != "http://openai.local/v1" {
		t.Errorf("openai base = %q", cfg.Providers.OpenAI.BaseURL)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad duration", func(c *Config) { c.Watcher.SweepInterval = "soon" }},
		{"negative cooldown", func(c *Config) { c.Watcher.Cooldown = "-1s" }},
		{"negative threshold", func(c *Config) { c.Watcher.MinTextLength = -1 }},
		{"zero prompt limit", func(c *Config) { c.Prompt.MaxResponseChars = 0 }},
		{"empty selectors", func(c *Config) {
			c.Sites = map[string]SiteConfig{"chatgpt": {ResponseSelectors: []string{}}}
		}},
		{"no store", func(c *Config) { c.Storage.Path = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("watcher: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
