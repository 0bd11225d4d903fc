package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"critbot/internal/browser"
	"critbot/internal/clock"
	"critbot/internal/gateway"
	"critbot/internal/messaging"
	"critbot/internal/settings"
	"critbot/internal/watcher"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch LLM chat tabs and show critique panels",
	Long: `Connects to Chrome (browser.debugger_url, or launches one) and attaches to
every ChatGPT, Claude and Gemini tab. New assistant answers get a critique
panel after the configured popup delay.

Preference changes made with "critbot settings", "critbot toggle" or the
settings panel apply to running tabs immediately.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	bus := messaging.NewBus()
	gateway.Serve(bus, gateway.New(cfg.Providers, cfg.GetProviderTimeout()))

	profiles := watcher.NewProfiles(cfg.Sites)
	sm := browser.NewSessionManager(browser.ConfigFrom(cfg), profiles)
	if err := sm.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := sm.Shutdown(context.Background()); err != nil {
			logger.Warn("Browser shutdown failed", zap.Error(err))
		}
	}()
	logger.Info("Connected to browser", zap.String("control_url", sm.ControlURL()))

	attacher := browser.NewAttacher(browser.AttachConfig{
		Profiles:      profiles,
		Bus:           bus,
		Store:         store,
		Clock:         clock.Real(),
		Builder:       newBuilder(),
		Watcher:       watcherOptions(),
		SweepInterval: cfg.GetSweepInterval(),
		AutoDismiss:   cfg.GetAutoDismiss(),
	})

	st, err := store.LoadSettings(ctx)
	if err != nil {
		logger.Warn("Reading preferences failed", zap.Error(err))
	}
	prefs := &prefsSync{store: store, bus: bus, reload: attacher.ReloadAll, enabled: st.Enabled}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sm.WatchTargets(gctx, attacher.Handle)
	})
	g.Go(func() error {
		return store.Watch(gctx, func() { prefs.apply(gctx) })
	})

	logger.Info("Watching tabs", zap.Bool("enabled", st.Enabled), zap.Int("popup_delay", st.PopupDelaySeconds))
	err = g.Wait()
	bus.Wait()
	if err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("Stopped", zap.Int("tabs", len(sm.List())))
	return nil
}

// prefsSync pushes preference changes made by other processes to running tabs.
// Watch callbacks may overlap, so apply holds mu for the whole reaction.
type prefsSync struct {
	mu    sync.Mutex
	store interface {
		LoadSettings(ctx context.Context) (settings.Settings, error)
	}
	bus     interface{ Broadcast(messaging.Message) }
	reload  func(ctx context.Context)
	enabled bool
}

func (p *prefsSync) apply(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, err := p.store.LoadSettings(ctx)
	if err != nil {
		logger.Warn("Reloading preferences failed", zap.Error(err))
		return
	}
	if st.Enabled != p.enabled {
		p.enabled = st.Enabled
		logger.Info("Critic toggled", zap.Bool("enabled", st.Enabled))
		p.bus.Broadcast(messaging.ToggleState(st.Enabled))
	}
	if p.reload != nil {
		p.reload(ctx)
	}
	p.bus.Broadcast(messaging.UpdateStats())
}
