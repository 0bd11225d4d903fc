// Package ui implements the critbot settings panel.
package ui

import (
	"context"
	"fmt"
	"strings"

	"critbot/internal/gateway"
	"critbot/internal/logging"
	"critbot/internal/messaging"
	"critbot/internal/settings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// MaxPopupDelay is the largest popup delay the panel offers, in seconds.
const MaxPopupDelay = 30

// Store is the preferences store as the panel uses it.
type Store interface {
	LoadSettings(ctx context.Context) (settings.Settings, error)
	Stats(ctx context.Context) (settings.UsageStats, error)
	Set(ctx context.Context, values map[string]any) error
	ResetStats(ctx context.Context) error
}

// Broadcaster delivers toggleState and updateStats notifications.
type Broadcaster interface {
	Broadcast(msg messaging.Message)
}

type field int

const (
	fieldEnabled field = iota
	fieldDelay
	fieldFactual
	fieldLogical
	fieldPractical
	fieldAutoGenerate
	fieldProvider
	fieldModel
	fieldAPIKey
	fieldAutoSend
	fieldCount
)

var fieldLabels = [fieldCount]string{
	fieldEnabled:      "Enabled",
	fieldDelay:        "Popup delay",
	fieldFactual:      "Factual",
	fieldLogical:      "Logical",
	fieldPractical:    "Practical",
	fieldAutoGenerate: "Auto generate",
	fieldProvider:     "Provider",
	fieldModel:        "Model",
	fieldAPIKey:       "API key",
	fieldAutoSend:     "Auto send",
}

// RefreshMsg asks the panel to re-read settings and statistics.
type RefreshMsg struct{}

type loadedMsg struct {
	st    settings.Settings
	stats settings.UsageStats
	err   error
}

type savedMsg struct {
	key string
	err error
}

type resetMsg struct{ err error }

// Model is the settings panel.
type Model struct {
	ctx   context.Context
	store Store
	bcast Broadcaster

	st     settings.Settings
	stats  settings.UsageStats
	loaded bool

	cursor  field
	editing bool
	input   textinput.Model

	status string
	err    error
	width  int

	keys   keyMap
	help   help.Model
	styles Styles
}

// New creates the panel. bcast may be nil.
func New(ctx context.Context, store Store, bcast Broadcaster) Model {
	in := textinput.New()
	in.CharLimit = 256
	in.Cursor.SetMode(cursor.CursorStatic)
	return Model{
		ctx:    ctx,
		store:  store,
		bcast:  bcast,
		st:     settings.DefaultSettings(),
		input:  in,
		keys:   defaultKeyMap(),
		help:   help.New(),
		styles: DefaultStyles(),
	}
}

// Settings returns the settings as currently shown.
func (m Model) Settings() settings.Settings { return m.st }

// Stats returns the statistics as currently shown.
func (m Model) Stats() settings.UsageStats { return m.stats }

func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		st, err := store.LoadSettings(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		stats, err := store.Stats(ctx)
		return loadedMsg{st: st, stats: stats, err: err}
	}
}

// save stores one key, then runs after (if any) on success.
func (m Model) save(key string, value any, after func()) tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		if err := store.Set(ctx, map[string]any{key: value}); err != nil {
			return savedMsg{key: key, err: err}
		}
		if after != nil {
			after()
		}
		return savedMsg{key: key}
	}
}

func (m Model) resetStats() tea.Cmd {
	ctx, store, bcast := m.ctx, m.store, m.bcast
	return func() tea.Msg {
		if err := store.ResetStats(ctx); err != nil {
			return resetMsg{err: err}
		}
		if bcast != nil {
			bcast.Broadcast(messaging.UpdateStats())
		}
		return resetMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case RefreshMsg:
		return m, m.load()

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if !m.editing {
			m.st = msg.st
		}
		m.stats = msg.stats
		m.loaded = true
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("saving %s: %w", msg.key, msg.err)
			logging.UI("Save failed: %v", m.err)
			return m, m.load()
		}
		m.err = nil
		m.status = "Saved " + msg.key
		logging.UIDebug("Saved %s", msg.key)
		return m, nil

	case resetMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.stats = settings.UsageStats{}
		m.status = "Statistics reset"
		logging.UI("Statistics reset from panel")
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < fieldCount-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Power):
		return m.setEnabled(!m.st.Enabled)
	case key.Matches(msg, m.keys.Reset):
		return m, m.resetStats()
	case key.Matches(msg, m.keys.Decrease):
		return m.adjust(-1)
	case key.Matches(msg, m.keys.Increase):
		return m.adjust(+1)
	case key.Matches(msg, m.keys.Toggle):
		return m.activate()
	}
	return m, nil
}

func (m Model) setEnabled(enabled bool) (tea.Model, tea.Cmd) {
	m.st.Enabled = enabled
	bcast := m.bcast
	return m, m.save(settings.KeyEnabled, enabled, func() {
		if bcast != nil {
			bcast.Broadcast(messaging.ToggleState(enabled))
		}
	})
}

// adjust changes the delay or cycles the provider.
func (m Model) adjust(delta int) (tea.Model, tea.Cmd) {
	switch m.cursor {
	case fieldDelay:
		d := m.st.PopupDelaySeconds + delta
		if d < 0 || d > MaxPopupDelay {
			return m, nil
		}
		m.st.PopupDelaySeconds = d
		return m, m.save(settings.KeyPopupDelay, d, nil)
	case fieldProvider:
		return m.cycleProvider(delta)
	}
	return m, nil
}

func (m Model) cycleProvider(delta int) (tea.Model, tea.Cmd) {
	p, err := gateway.ParseProvider(m.st.Provider)
	if err != nil {
		p = gateway.OpenAI
	} else if delta >= 0 {
		p = p.Next()
	} else {
		for i := 0; i < len(gateway.Providers)-1; i++ {
			p = p.Next()
		}
	}
	m.st.Provider = p.String()
	return m, m.save(settings.KeyProvider, m.st.Provider, nil)
}

// activate toggles booleans, cycles the provider and starts editing text fields.
func (m Model) activate() (tea.Model, tea.Cmd) {
	switch m.cursor {
	case fieldEnabled:
		return m.setEnabled(!m.st.Enabled)
	case fieldDelay:
		return m.adjust(+1)
	case fieldFactual, fieldLogical, fieldPractical:
		c := m.st.Categories
		switch m.cursor {
		case fieldFactual:
			c.Factual = !c.Factual
		case fieldLogical:
			c.Logical = !c.Logical
		case fieldPractical:
			c.Practical = !c.Practical
		}
		m.st.Categories = c
		return m, m.save(settings.KeyCategories, c, nil)
	case fieldAutoGenerate:
		m.st.AutoGenerate = !m.st.AutoGenerate
		return m, m.save(settings.KeyAutoGenerate, m.st.AutoGenerate, nil)
	case fieldAutoSend:
		m.st.AutoSend = !m.st.AutoSend
		return m, m.save(settings.KeyAutoSend, m.st.AutoSend, nil)
	case fieldProvider:
		return m.cycleProvider(+1)
	case fieldModel, fieldAPIKey:
		m.editing = true
		m.input.EchoMode = textinput.EchoNormal
		m.input.Placeholder = ""
		if m.cursor == fieldModel {
			m.input.SetValue(m.st.Model)
			m.input.Placeholder = m.defaultModel()
		} else {
			m.input.SetValue(m.st.APIKey)
			m.input.EchoMode = textinput.EchoPassword
		}
		m.input.CursorEnd()
		return m, m.input.Focus()
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.editing = false
		m.input.Blur()
		value := strings.TrimSpace(m.input.Value())
		if m.cursor == fieldModel {
			m.st.Model = value
			return m, m.save(settings.KeyModel, value, nil)
		}
		m.st.APIKey = value
		return m, m.save(settings.KeyAPIKey, value, nil)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) defaultModel() string {
	p, err := gateway.ParseProvider(m.st.Provider)
	if err != nil {
		return ""
	}
	return p.DefaultModel()
}
