// Package settings holds the user preferences and usage counters shared by the
// daemon, the CLI, and the settings panel, and the key/value store they live in.
package settings

import "time"

// Preference keys. Values are stored as JSON.
const (
	KeyEnabled       = "enabled"
	KeyPopupDelay    = "popupDelay"
	KeyCategories    = "categories"
	KeyAutoGenerate  = "autoGenerate"
	KeyProvider      = "provider"
	KeyModel         = "model"
	KeyAPIKey        = "apiKey"
	KeyAutoSend      = "autoSend"
	KeyTotalPrompts  = "totalPrompts"
	KeyUserResponses = "userResponses"
)

// SettingKeys lists every key that makes up Settings.
var SettingKeys = []string{
	KeyEnabled, KeyPopupDelay, KeyCategories, KeyAutoGenerate,
	KeyProvider, KeyModel, KeyAPIKey, KeyAutoSend,
}

// Categories are display-only critique categories.
type Categories struct {
	Factual   bool `json:"factual"`
	Logical   bool `json:"logical"`
	Practical bool `json:"practical"`
}

// Settings are the user preferences read by the watcher and presenter.
type Settings struct {
	Enabled           bool       `json:"enabled"`
	PopupDelaySeconds int        `json:"popupDelay"`
	Categories        Categories `json:"categories"`
	AutoGenerate      bool       `json:"autoGenerate"`
	Provider          string     `json:"provider"`
	Model             string     `json:"model"`
	APIKey            string     `json:"apiKey"`
	AutoSend          bool       `json:"autoSend"`
}

// UsageStats counts detections and user engagements.
type UsageStats struct {
	TotalPrompts  int `json:"totalPrompts"`
	UserResponses int `json:"userResponses"`
}

// DefaultSettings returns the values used for absent keys.
func DefaultSettings() Settings {
	return Settings{
		Enabled:           true,
		PopupDelaySeconds: 3,
		Categories:        Categories{Factual: true, Logical: true, Practical: true},
		Provider:          "openai",
	}
}

// PopupDelay returns the configured delay as a duration.
func (s Settings) PopupDelay() time.Duration {
	if s.PopupDelaySeconds < 0 {
		return 0
	}
	return time.Duration(s.PopupDelaySeconds) * time.Second
}

// CanGenerate reports whether a critique should be requested automatically.
func (s Settings) CanGenerate() bool {
	return s.AutoGenerate && s.APIKey != ""
}

// Redacted returns a copy safe for display and logs.
func (s Settings) Redacted() Settings {
	if s.APIKey == "" {
		return s
	}
	key := s.APIKey
	if len(key) > 4 {
		key = key[len(key)-4:]
	}
	s.APIKey = "****" + key
	return s
}
