package main

import (
	"context"
	"fmt"

	"critbot/internal/settings"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many answers were critiqued and engaged with",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var statsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset both counters to zero",
	Args:  cobra.NoArgs,
	RunE:  runStatsReset,
}

var toggleCmd = &cobra.Command{
	Use:   "toggle [on|off]",
	Short: "Enable or disable detection",
	Long: `Flips the enabled preference, or sets it with "on"/"off". Running daemons stop
or resume detecting immediately.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE:      runToggle,
}

func init() {
	statsCmd.AddCommand(statsResetCmd)
}

func withStore(cmd *cobra.Command, fn func(ctx context.Context, store *settings.Store) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

func runStats(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, store *settings.Store) error {
		s, err := store.Stats(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Prompts shown:   %d\n", s.TotalPrompts)
		fmt.Fprintf(out, "User responses:  %d\n", s.UserResponses)
		if s.TotalPrompts > 0 {
			fmt.Fprintf(out, "Engagement:      %.0f%%\n", 100*float64(s.UserResponses)/float64(s.TotalPrompts))
		}
		return nil
	})
}

func runStatsReset(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, store *settings.Store) error {
		if err := store.ResetStats(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Statistics reset.")
		return nil
	})
}

func runToggle(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(ctx context.Context, store *settings.Store) error {
		st, err := store.LoadSettings(ctx)
		if err != nil {
			return err
		}
		enabled := !st.Enabled
		if len(args) == 1 {
			switch args[0] {
			case "on":
				enabled = true
			case "off":
				enabled = false
			default:
				return fmt.Errorf("want on or off, got %q", args[0])
			}
		}
		if err := store.Set(ctx, map[string]any{settings.KeyEnabled: enabled}); err != nil {
			return err
		}
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "critbot %s.\n", state)
		return nil
	})
}
