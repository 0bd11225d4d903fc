package browser

import (
	"context"
	"sync"
	"time"

	"critbot/internal/clock"
	"critbot/internal/critic"
	"critbot/internal/logging"
	"critbot/internal/messaging"
	"critbot/internal/prompt"
	"critbot/internal/watcher"

	"github.com/go-rod/rod"
	"golang.org/x/sync/errgroup"
)

// AttachConfig is shared by every page critic.
type AttachConfig struct {
	Profiles      watcher.Profiles
	Bus           *messaging.Bus
	Store         critic.Store
	Clock         clock.Clock
	Builder       *prompt.Builder
	Watcher       watcher.Options
	SweepInterval time.Duration
	AutoDismiss   time.Duration
}

// Attacher runs a critic.Controller for each attached tab. Its Handle method
// is a PageHandler.
type Attacher struct {
	cfg AttachConfig

	mu     sync.Mutex
	active map[string]*critic.Controller
}

// NewAttacher creates an attacher.
func NewAttacher(cfg AttachConfig) *Attacher {
	return &Attacher{cfg: cfg, active: make(map[string]*critic.Controller)}
}

// Handle wires a controller to page and runs it until ctx is done.
func (a *Attacher) Handle(ctx context.Context, page *rod.Page, s Session) {
	profile, ok := a.cfg.Profiles[s.Site]
	if !ok {
		return
	}
	// Popup cleanup runs after ctx ends.
	detached := page.Context(context.WithoutCancel(ctx))

	renderer := NewRenderer(detached, profile)
	feed := NewMutationFeed(detached)
	ctrl := critic.New(critic.Config{
		Name:          string(s.Site) + "/" + s.ID[:8],
		Document:      NewDocument(page),
		Profile:       profile,
		Renderer:      renderer,
		Bus:           a.cfg.Bus,
		Store:         a.cfg.Store,
		Clock:         a.cfg.Clock,
		Builder:       a.cfg.Builder,
		Watcher:       a.cfg.Watcher,
		SweepInterval: a.cfg.SweepInterval,
		AutoDismiss:   a.cfg.AutoDismiss,
	})

	stopPopup, err := renderer.Install(ctrl.HandleUIEvent)
	if err != nil {
		logging.BrowserError("Popup install on %s failed: %v", s.URL, err)
		return
	}
	defer stopPopup()
	stopFeed, err := feed.Install()
	if err != nil {
		logging.BrowserError("Observer install on %s failed: %v", s.URL, err)
		return
	}
	defer stopFeed()

	a.mu.Lock()
	a.active[s.ID] = ctrl
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		delete(a.active, s.ID)
		a.mu.Unlock()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(gctx) })
	g.Go(func() error { return feed.Run(gctx, ctrl.NotifyAdded) })
	if err := g.Wait(); err != nil {
		logging.BrowserWarn("Critic for %s stopped: %v", s.URL, err)
	}
}

// ReloadAll makes every running controller re-read its settings.
func (a *Attacher) ReloadAll(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range a.active {
		c.Reload(ctx)
	}
}

// Active returns the number of running controllers.
func (a *Attacher) Active() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.active)
}
