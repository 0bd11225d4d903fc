// Package browser attaches critics to LLM chat tabs of a Chrome instance over
// the DevTools protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"critbot/internal/config"
	"critbot/internal/logging"
	"critbot/internal/watcher"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
)

// Session describes an attached tab.
type Session struct {
	ID         string       `json:"id"`
	TargetID   string       `json:"target_id"`
	URL        string       `json:"url"`
	Site       watcher.Site `json:"site"`
	CreatedAt  time.Time    `json:"created_at"`
	LastActive time.Time    `json:"last_active"`
}

type sessionRecord struct {
	meta   Session
	page   *rod.Page
	cancel context.CancelFunc
}

// Config holds browser connection settings.
type Config struct {
	DebuggerURL       string
	Launch            []string
	Headless          bool
	NavigationTimeout time.Duration
}

// ConfigFrom adapts the daemon configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		DebuggerURL:       cfg.Browser.DebuggerURL,
		Launch:            cfg.Browser.Launch,
		Headless:          cfg.Browser.Headless,
		NavigationTimeout: cfg.GetNavigationTimeout(),
	}
}

// PageHandler runs for each attached tab until ctx is cancelled, which happens
// when the tab closes or leaves the site it was attached for.
type PageHandler func(ctx context.Context, page *rod.Page, s Session)

// SessionManager owns the browser connection and the set of attached tabs.
type SessionManager struct {
	cfg      Config
	profiles watcher.Profiles

	mu         sync.RWMutex
	browser    *rod.Browser
	launched   bool
	controlURL string
	sessions   map[proto.TargetTargetID]*sessionRecord
	handlers   sync.WaitGroup
}

// NewSessionManager creates a session manager.
func NewSessionManager(cfg Config, profiles watcher.Profiles) *SessionManager {
	return &SessionManager{
		cfg:      cfg,
		profiles: profiles,
		sessions: make(map[proto.TargetTargetID]*sessionRecord),
	}
}

// Start connects to an existing Chrome or launches a new one.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		logging.BrowserWarn("Stale browser connection detected, reconnecting")
		_ = m.browser.Close()
		m.browser = nil
		m.controlURL = ""
	}

	controlURL := m.cfg.DebuggerURL
	launched := false
	if controlURL == "" && len(m.cfg.Launch) > 0 {
		bin := m.cfg.Launch[0]
		launch := launcher.New().Bin(bin).Headless(m.cfg.Headless)
		for _, rawFlag := range m.cfg.Launch[1:] {
			flagStr := strings.TrimLeft(rawFlag, "-")
			name, val, hasVal := strings.Cut(flagStr, "=")
			if hasVal {
				launch = launch.Set(flags.Flag(name), val)
			} else {
				launch = launch.Set(flags.Flag(name))
			}
		}
		url, err := launch.Launch()
		if err != nil {
			fallback := launcher.New().Bin(bin).Headless(m.cfg.Headless)
			alt, altErr := fallback.Launch()
			if altErr != nil {
				return fmt.Errorf("launch chrome: %w (fallback: %v)", err, altErr)
			}
			url = alt
		}
		controlURL = url
		launched = true
	}

	if controlURL == "" {
		url, err := launcher.New().Headless(m.cfg.Headless).Launch()
		if err != nil {
			return fmt.Errorf("no debugger_url and failed to launch: %w", err)
		}
		controlURL = url
		launched = true
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	m.browser = browser
	m.launched = launched
	m.controlURL = controlURL
	logging.Browser("Connected to %s (launched=%v)", controlURL, launched)
	return nil
}

// ControlURL returns the WebSocket debugger URL.
func (m *SessionManager) ControlURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.controlURL
}

// IsConnected returns whether the browser is connected.
func (m *SessionManager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser != nil
}

// Browser returns the connected browser, or nil.
func (m *SessionManager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// List returns metadata for all attached tabs.
func (m *SessionManager) List() []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Session, 0, len(m.sessions))
	for _, rec := range m.sessions {
		results = append(results, rec.meta)
	}
	return results
}

// WatchTargets attaches handle to every open or future LLM tab, once per tab,
// and blocks until ctx is done. A tab that navigates to a different site is
// detached and, if the new site is known, attached again.
func (m *SessionManager) WatchTargets(ctx context.Context, handle PageHandler) error {
	browser := m.Browser()
	if browser == nil {
		return errors.New("browser not connected")
	}

	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(browser); err != nil {
		return fmt.Errorf("enable target discovery: %w", err)
	}

	wait := browser.Context(ctx).EachEvent(
		func(e *proto.TargetTargetCreated) {
			m.consider(ctx, e.TargetInfo, handle)
		},
		func(e *proto.TargetTargetInfoChanged) {
			m.consider(ctx, e.TargetInfo, handle)
		},
		func(e *proto.TargetTargetDestroyed) {
			m.detach(e.TargetID, "closed")
		},
	)

	pages, err := browser.Pages()
	if err != nil {
		logging.BrowserWarn("Listing open pages failed: %v", err)
	}
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		m.consider(ctx, info, handle)
	}

	wait()

	m.mu.Lock()
	for id := range m.sessions {
		m.detachLocked(id, "shutdown")
	}
	m.mu.Unlock()
	m.handlers.Wait()
	return nil
}

func (m *SessionManager) consider(ctx context.Context, info *proto.TargetTargetInfo, handle PageHandler) {
	if info == nil || info.Type != proto.TargetTargetInfoTypePage {
		return
	}
	profile := m.profiles.ForURL(info.URL)

	m.mu.Lock()
	rec, tracked := m.sessions[info.TargetID]
	if tracked {
		if rec.meta.Site == profile.Site {
			rec.meta.URL = info.URL
			rec.meta.LastActive = time.Now()
			m.mu.Unlock()
			return
		}
		m.detachLocked(info.TargetID, "site changed")
	}
	if profile.Site == watcher.SiteOther {
		m.mu.Unlock()
		return
	}
	browser := m.browser
	m.mu.Unlock()
	if browser == nil {
		return
	}

	page, err := browser.PageFromTarget(info.TargetID)
	if err != nil {
		logging.BrowserWarn("Attach to %s failed: %v", info.TargetID, err)
		return
	}
	pageCtx, cancel := context.WithCancel(ctx)
	meta := Session{
		ID:         uuid.NewString(),
		TargetID:   string(info.TargetID),
		URL:        info.URL,
		Site:       profile.Site,
		CreatedAt:  time.Now(),
		LastActive: time.Now(),
	}

	m.mu.Lock()
	if _, raced := m.sessions[info.TargetID]; raced {
		m.mu.Unlock()
		cancel()
		return
	}
	m.sessions[info.TargetID] = &sessionRecord{meta: meta, page: page, cancel: cancel}
	m.handlers.Add(1)
	m.mu.Unlock()

	logging.Browser("Attached %s (%s) session=%s", info.URL, profile.Site, meta.ID)
	go func() {
		defer m.handlers.Done()
		if m.cfg.NavigationTimeout > 0 {
			if err := page.Context(pageCtx).Timeout(m.cfg.NavigationTimeout).WaitLoad(); err != nil {
				logging.BrowserDebug("Waiting for %s to load: %v", meta.URL, err)
			}
		}
		handle(pageCtx, page.Context(pageCtx), meta)
	}()
}

func (m *SessionManager) detach(id proto.TargetTargetID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detachLocked(id, reason)
}

func (m *SessionManager) detachLocked(id proto.TargetTargetID, reason string) {
	rec, ok := m.sessions[id]
	if !ok {
		return
	}
	rec.cancel()
	delete(m.sessions, id)
	logging.Browser("Detached %s (%s)", rec.meta.URL, reason)
}

// Shutdown detaches every tab and closes the browser if it was launched here.
// A browser reached through debugger_url is left running.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	for id := range m.sessions {
		m.detachLocked(id, "shutdown")
	}
	browser, launched := m.browser, m.launched
	m.browser = nil
	m.controlURL = ""
	m.mu.Unlock()

	if browser == nil || !launched {
		return nil
	}
	return browser.Close()
}
