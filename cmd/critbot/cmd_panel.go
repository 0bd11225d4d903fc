package main

import (
	"context"
	"fmt"

	"critbot/cmd/critbot/ui"
	"critbot/internal/messaging"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runSettingsPanel opens the interactive settings panel. Statistics refresh
// live while a daemon records detections.
func runSettingsPanel(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	bus := messaging.NewBus()
	p := tea.NewProgram(ui.New(ctx, store, bus), tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := bus.Subscribe(func(m messaging.Message) {
		if m.Action == messaging.ActionUpdateStats {
			p.Send(ui.RefreshMsg{})
		}
	})
	defer unsubscribe()

	go func() {
		if err := store.Watch(ctx, func() { p.Send(ui.RefreshMsg{}) }); err != nil {
			logger.Debug("Preference watch stopped", zap.Error(err))
		}
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("settings panel: %w", err)
	}
	bus.Wait()
	return nil
}
