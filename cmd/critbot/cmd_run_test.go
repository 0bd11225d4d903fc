package main

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"critbot/internal/messaging"
	"critbot/internal/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type prefsStore struct {
	enabled atomic.Bool
	err     error
}

func (s *prefsStore) LoadSettings(context.Context) (settings.Settings, error) {
	if s.err != nil {
		return settings.Settings{}, s.err
	}
	st := settings.DefaultSettings()
	st.Enabled = s.enabled.Load()
	return st, nil
}

type msgLog struct {
	mu   sync.Mutex
	msgs []messaging.Message
}

func (l *msgLog) Broadcast(m messaging.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, m)
}

func (l *msgLog) count(a messaging.Action) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.msgs {
		if m.Action == a {
			n++
		}
	}
	return n
}

func useNopLogger(t *testing.T) {
	t.Helper()
	prev := logger
	logger = zap.NewNop()
	t.Cleanup(func() { logger = prev })
}

func TestPrefsSync_OverlappingCallbacksToggleOnce(t *testing.T) {
	useNopLogger(t)
	store := &prefsStore{}
	bus := &msgLog{}
	var reloads atomic.Int32
	p := &prefsSync{
		store:   store,
		bus:     bus,
		reload:  func(context.Context) { reloads.Add(1) },
		enabled: true,
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.apply(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, bus.count(messaging.ActionToggleState))
	assert.Equal(t, 16, bus.count(messaging.ActionUpdateStats))
	assert.EqualValues(t, 16, reloads.Load())

	store.enabled.Store(true)
	p.apply(context.Background())
	require.Equal(t, 2, bus.count(messaging.ActionToggleState))
	bus.mu.Lock()
	defer bus.mu.Unlock()
	var last messaging.Message
	for _, m := range bus.msgs {
		if m.Action == messaging.ActionToggleState {
			last = m
		}
	}
	assert.True(t, last.Enabled)
}

func TestPrefsSync_LoadErrorBroadcastsNothing(t *testing.T) {
	useNopLogger(t)
	bus := &msgLog{}
	p := &prefsSync{store: &prefsStore{err: errors.New("locked")}, bus: bus, enabled: true}

	p.apply(context.Background())
	assert.Empty(t, bus.msgs)
}
