package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"critbot/internal/messaging"
	"critbot/internal/settings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu     sync.Mutex
	values map[string]any
	st     settings.Settings
	stats  settings.UsageStats
	setErr error
}

func newMemStore() *memStore {
	return &memStore{
		values: map[string]any{},
		st:     settings.DefaultSettings(),
		stats:  settings.UsageStats{TotalPrompts: 7, UserResponses: 2},
	}
}

func (s *memStore) LoadSettings(context.Context) (settings.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st, nil
}

func (s *memStore) Stats(context.Context) (settings.UsageStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats, nil
}

func (s *memStore) Set(_ context.Context, values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	for k, v := range values {
		s.values[k] = v
	}
	return nil
}

func (s *memStore) ResetStats(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = settings.UsageStats{}
	return nil
}

type recorder struct {
	mu   sync.Mutex
	msgs []messaging.Message
}

func (r *recorder) Broadcast(m messaging.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func keyRunes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyLeft  = tea.KeyMsg{Type: tea.KeyLeft}
)

// send applies msg and runs the resulting command chain, ignoring commands
// that do not produce panel messages (cursor blink, quit).
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	for cmd != nil {
		out := cmd()
		switch out.(type) {
		case loadedMsg, savedMsg, resetMsg:
		default:
			return m
		}
		next, cmd = m.Update(out)
		m = next.(Model)
	}
	return m
}

func started(t *testing.T, store *memStore, bc Broadcaster) Model {
	t.Helper()
	m := New(context.Background(), store, bc)
	return send(t, m, RefreshMsg{})
}

func moveTo(t *testing.T, m Model, f field) Model {
	for m.cursor < f {
		m = send(t, m, keyDown)
	}
	return m
}

func TestLoadShowsStoredValues(t *testing.T) {
	store := newMemStore()
	store.st.Provider = "anthropic"
	m := started(t, store, nil)

	assert.True(t, m.loaded)
	assert.Equal(t, "anthropic", m.Settings().Provider)
	assert.Equal(t, settings.UsageStats{TotalPrompts: 7, UserResponses: 2}, m.Stats())
	assert.Contains(t, m.View(), "Prompts shown 7")
}

func TestPowerKeyBroadcastsToggleState(t *testing.T) {
	store, bc := newMemStore(), &recorder{}
	m := started(t, store, bc)

	m = send(t, m, keyRunes("e"))
	assert.False(t, m.Settings().Enabled)
	assert.Equal(t, false, store.values[settings.KeyEnabled])
	require.Len(t, bc.msgs, 1)
	assert.Equal(t, messaging.ToggleState(false), bc.msgs[0])
	assert.Contains(t, m.View(), "paused")
}

func TestDelayIsClamped(t *testing.T) {
	store := newMemStore()
	store.st.PopupDelaySeconds = 1
	m := moveTo(t, started(t, store, nil), fieldDelay)

	m = send(t, m, keyLeft)
	assert.Equal(t, 0, m.Settings().PopupDelaySeconds)
	assert.Equal(t, 0, store.values[settings.KeyPopupDelay])

	m = send(t, m, keyLeft)
	assert.Equal(t, 0, m.Settings().PopupDelaySeconds)

	m = send(t, m, keyRight)
	assert.Equal(t, 1, store.values[settings.KeyPopupDelay])
}

func TestCategoryToggle(t *testing.T) {
	store := newMemStore()
	m := moveTo(t, started(t, store, nil), fieldLogical)

	m = send(t, m, keyEnter)
	want := settings.Categories{Factual: true, Logical: false, Practical: true}
	assert.Equal(t, want, m.Settings().Categories)
	assert.Equal(t, want, store.values[settings.KeyCategories])
}

func TestProviderCycles(t *testing.T) {
	store := newMemStore()
	m := moveTo(t, started(t, store, nil), fieldProvider)

	m = send(t, m, keyRight)
	assert.Equal(t, "anthropic", m.Settings().Provider)
	m = send(t, m, keyRight)
	assert.Equal(t, "gemini", m.Settings().Provider)
	m = send(t, m, keyRight)
	assert.Equal(t, "openai", m.Settings().Provider)
	m = send(t, m, keyLeft)
	assert.Equal(t, "gemini", store.values[settings.KeyProvider])
}

func TestEditAPIKey(t *testing.T) {
	store := newMemStore()
	m := moveTo(t, started(t, store, nil), fieldAPIKey)

	m = send(t, m, keyEnter)
	require.True(t, m.editing)
	m = send(t, m, keyRunes("sk-test-1234"))
	m = send(t, m, keyEnter)

	assert.False(t, m.editing)
	assert.Equal(t, "sk-test-1234", store.values[settings.KeyAPIKey])
	view := m.View()
	assert.Contains(t, view, "****1234")
	assert.NotContains(t, view, "sk-test-1234")
}

func TestEditEscapeKeepsValue(t *testing.T) {
	store := newMemStore()
	store.st.Model = "gpt-4o"
	m := moveTo(t, started(t, store, nil), fieldModel)

	m = send(t, m, keyEnter)
	m = send(t, m, keyRunes("-mini"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, "gpt-4o", m.Settings().Model)
	assert.NotContains(t, store.values, settings.KeyModel)
}

func TestResetStats(t *testing.T) {
	store, bc := newMemStore(), &recorder{}
	m := started(t, store, bc)

	m = send(t, m, keyRunes("r"))
	assert.Equal(t, settings.UsageStats{}, m.Stats())
	assert.Equal(t, []messaging.Message{messaging.UpdateStats()}, bc.msgs)
	assert.Contains(t, m.View(), "Statistics reset")
}

func TestRefreshPicksUpExternalChanges(t *testing.T) {
	store := newMemStore()
	m := started(t, store, nil)

	store.mu.Lock()
	store.stats.TotalPrompts = 8
	store.st.Enabled = false
	store.mu.Unlock()

	m = send(t, m, RefreshMsg{})
	assert.Equal(t, 8, m.Stats().TotalPrompts)
	assert.False(t, m.Settings().Enabled)
}

func TestSaveErrorIsShown(t *testing.T) {
	store := newMemStore()
	store.setErr = errors.New("disk full")
	m := started(t, store, nil)

	m = send(t, m, keyRunes("e"))
	assert.True(t, strings.Contains(m.View(), "disk full"))
	// The reload after the failure restores the stored value.
	assert.True(t, m.Settings().Enabled)
}

func TestQuit(t *testing.T) {
	m := started(t, newMemStore(), nil)
	_, cmd := m.Update(keyRunes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
