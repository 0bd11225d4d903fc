// Package critic wires a response watcher and a popup presenter to one page
// and runs them on a single event loop.
package critic

import (
	"context"
	"errors"
	"time"

	"critbot/internal/clock"
	"critbot/internal/logging"
	"critbot/internal/messaging"
	"critbot/internal/presenter"
	"critbot/internal/prompt"
	"critbot/internal/settings"
	"critbot/internal/watcher"
)

// ErrNotRunning is returned by calls that need a running loop.
var ErrNotRunning = errors.New("controller is not running")

// Store is the subset of the preferences store a controller uses.
type Store interface {
	LoadSettings(ctx context.Context) (settings.Settings, error)
	watcher.StatsRecorder
	presenter.EngagementRecorder
}

// Config assembles a Controller.
type Config struct {
	Name     string
	Document watcher.Document
	Profile  watcher.Profile
	Renderer presenter.Renderer
	Bus      *messaging.Bus
	Store    Store
	Clock    clock.Clock
	Builder  *prompt.Builder

	Watcher       watcher.Options
	SweepInterval time.Duration
	AutoDismiss   time.Duration
}

// Controller owns one page. Every watcher and presenter call happens on the
// goroutine running Run, so marking an element is an atomic claim no matter
// which detection channel reaches it first.
type Controller struct {
	cfg Config
	mb  *mailbox

	running chan struct{}
	done    chan struct{}

	// Loop-owned.
	ctx        context.Context
	w          *watcher.Watcher
	p          *presenter.Presenter
	sweepTimer clock.Timer
	st         settings.Settings
}

// New creates a controller. Call Run to start it.
func New(cfg Config) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 3 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = string(cfg.Profile.Site)
	}
	return &Controller{
		cfg:     cfg,
		mb:      newMailbox(),
		running: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Run processes events until ctx is done. It returns nil on cancellation.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)
	c.ctx = ctx

	st, err := c.cfg.Store.LoadSettings(ctx)
	if err != nil {
		logging.PresenterWarn("[%s] settings unavailable, using defaults: %v", c.cfg.Name, err)
		st = settings.DefaultSettings()
	}
	c.st = st

	c.w = watcher.New(c.cfg.Document, c.cfg.Profile, c.cfg.Clock, c.cfg.Watcher).
		WithStats(c.cfg.Store, c.cfg.Bus)
	c.w.SetEnabled(st.Enabled)

	c.p = presenter.New(ctx, c.cfg.Clock, c.cfg.Renderer, c.cfg.Bus, st, presenter.Options{
		AutoDismiss: c.cfg.AutoDismiss,
		Builder:     c.cfg.Builder,
		Recorder:    c.cfg.Store,
		Broadcaster: c.cfg.Bus,
		Post:        c.mb.push,
		OnTransition: func(id string, from, to presenter.State) {
			logging.PresenterDebug("[%s] %s: %s -> %s", c.cfg.Name, id, from, to)
		},
	})

	unsubscribe := c.cfg.Bus.Subscribe(func(m messaging.Message) {
		if m.Action == messaging.ActionToggleState {
			enabled := m.Enabled
			c.mb.push(func() { c.setEnabled(enabled) })
		}
	})
	defer unsubscribe()

	c.armSweep()
	close(c.running)
	logging.Watcher("[%s] controller started (site=%s enabled=%v)", c.cfg.Name, c.cfg.Profile.Site, st.Enabled)

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case <-c.mb.signal:
			for _, f := range c.mb.drain() {
				f()
			}
		}
	}
}

// Done is closed when Run returns.
func (c *Controller) Done() <-chan struct{} { return c.done }

// NotifyAdded feeds newly inserted subtrees to the incremental channel.
func (c *Controller) NotifyAdded(ctx context.Context, roots []watcher.Node) {
	c.mb.push(func() {
		c.handle(c.w.HandleAdded(ctx, roots))
	})
}

// HandleUIEvent forwards a popup interaction.
func (c *Controller) HandleUIEvent(ev presenter.UIEvent) {
	c.mb.push(func() { c.p.HandleEvent(ev) })
}

// Reload re-reads settings from the store on the loop.
func (c *Controller) Reload(ctx context.Context) {
	c.mb.push(func() {
		st, err := c.cfg.Store.LoadSettings(ctx)
		if err != nil {
			logging.PresenterWarn("[%s] reload failed: %v", c.cfg.Name, err)
			return
		}
		c.st = st
		c.w.SetEnabled(st.Enabled)
		c.p.SetSettings(st)
		logging.PresenterDebug("[%s] settings reloaded (enabled=%v delay=%ds auto=%v)",
			c.cfg.Name, st.Enabled, st.PopupDelaySeconds, st.CanGenerate())
	})
}

// Snapshot describes the loop's state.
type Snapshot struct {
	Enabled    bool
	InstanceID string
	State      presenter.State
	View       presenter.View
}

// Snapshot waits for every previously posted event to be processed and
// returns the resulting state.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	select {
	case <-c.running:
	case <-c.done:
		return Snapshot{}, ErrNotRunning
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	out := make(chan Snapshot, 1)
	c.mb.push(func() {
		id, state := c.p.Current()
		v, _ := c.p.CurrentView()
		out <- Snapshot{Enabled: c.w.Enabled(), InstanceID: id, State: state, View: v}
	})
	select {
	case s := <-out:
		return s, nil
	case <-c.done:
		return Snapshot{}, ErrNotRunning
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (c *Controller) setEnabled(enabled bool) {
	c.st.Enabled = enabled
	c.w.SetEnabled(enabled)
	c.p.SetSettings(c.st)
	logging.Watcher("[%s] detection %s", c.cfg.Name, map[bool]string{true: "enabled", false: "disabled"}[enabled])
}

func (c *Controller) armSweep() {
	c.sweepTimer = c.cfg.Clock.AfterFunc(c.cfg.SweepInterval, func() {
		c.mb.push(func() {
			c.handle(c.w.Sweep(c.ctx))
			c.armSweep()
		})
	})
}

func (c *Controller) handle(found []watcher.DetectedResponse) {
	for _, d := range found {
		c.p.OnDetected(d)
	}
}

func (c *Controller) shutdown() {
	if c.sweepTimer != nil {
		c.sweepTimer.Stop()
	}
	c.p.Close()
	logging.Watcher("[%s] controller stopped", c.cfg.Name)
}
