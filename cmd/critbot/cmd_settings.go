package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"critbot/internal/gateway"
	"critbot/internal/settings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Open the settings panel, or read and write single preferences",
	Args:  cobra.NoArgs,
	RunE:  runSettingsPanel,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key...]",
	Short: "Print stored preferences as JSON values",
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Store one preference",
	Long: `Stores one preference. Keys:
  enabled, autoGenerate, autoSend   true|false
  popupDelay                        seconds (0 or more)
  provider                          openai|anthropic|gemini
  model, apiKey                     text ("" clears)
  categories                        comma separated subset of factual,logical,practical

Running daemons and settings panels pick the change up immediately.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, store *settings.Store) error {
		raw, err := store.Get(ctx, args...)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := cmd.OutOrStdout()
		for _, k := range keys {
			v := string(raw[k])
			if k == settings.KeyAPIKey {
				var key string
				if json.Unmarshal(raw[k], &key) == nil {
					v = strconv.Quote(settings.Settings{APIKey: key}.Redacted().APIKey)
				}
			}
			fmt.Fprintf(out, "%s=%s\n", k, v)
		}
		return nil
	})
}

// parseSetting converts a command-line value to the stored representation.
func parseSetting(key, value string) (any, error) {
	switch key {
	case settings.KeyEnabled, settings.KeyAutoGenerate, settings.KeyAutoSend:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s: want true or false, got %q", key, value)
		}
		return b, nil
	case settings.KeyPopupDelay:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%s: want a non-negative number of seconds, got %q", key, value)
		}
		return n, nil
	case settings.KeyProvider:
		p, err := gateway.ParseProvider(value)
		if err != nil {
			return nil, err
		}
		return p.String(), nil
	case settings.KeyModel, settings.KeyAPIKey:
		return strings.TrimSpace(value), nil
	case settings.KeyCategories:
		var c settings.Categories
		for _, name := range strings.Split(value, ",") {
			switch strings.ToLower(strings.TrimSpace(name)) {
			case "factual":
				c.Factual = true
			case "logical":
				c.Logical = true
			case "practical":
				c.Practical = true
			case "", "none":
			default:
				return nil, fmt.Errorf("%s: unknown category %q", key, name)
			}
		}
		return c, nil
	case settings.KeyTotalPrompts, settings.KeyUserResponses:
		return nil, fmt.Errorf("%s is a counter; use \"critbot stats reset\"", key)
	}
	return nil, fmt.Errorf("unknown preference %q", key)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	value, err := parseSetting(args[0], args[1])
	if err != nil {
		return err
	}
	return withStore(cmd, func(ctx context.Context, store *settings.Store) error {
		if err := store.Set(ctx, map[string]any{args[0]: value}); err != nil {
			return err
		}
		logger.Debug("Preference stored", zap.String("key", args[0]))
		return nil
	})
}
