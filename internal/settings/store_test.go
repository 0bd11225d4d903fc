package settings

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadSettings_DefaultsWhenEmpty(t *testing.T) {
	s := openTestStore(t)
	got, err := s.LoadSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), got)
	assert.True(t, got.Enabled)
	assert.Equal(t, 3*time.Second, got.PopupDelay())
}

func TestInitialize_SeedsWithoutOverwriting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, map[string]any{KeyEnabled: false, KeyTotalPrompts: 7}))
	require.NoError(t, s.Initialize(ctx))

	got, err := s.LoadSettings(ctx)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Equal(t, 3, got.PopupDelaySeconds)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, UsageStats{TotalPrompts: 7, UserResponses: 0}, stats)

	raw, err := s.Get(ctx, KeyCategories)
	require.NoError(t, err)
	assert.JSONEq(t, `{"factual":true,"logical":true,"practical":true}`, string(raw[KeyCategories]))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := Settings{
		Enabled:           false,
		PopupDelaySeconds: 0,
		Categories:        Categories{Factual: true},
		AutoGenerate:      true,
		Provider:          "anthropic",
		Model:             "claude-3-5-sonnet-latest",
		APIKey:            "sk-test",
		AutoSend:          true,
	}
	require.NoError(t, s.SaveSettings(ctx, want))

	got, err := s.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, time.Duration(0), got.PopupDelay(), "explicit zero delay is honored")
}

func TestLoadSettings_MalformedValueFallsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, map[string]any{KeyPopupDelay: "soon"}))

	got, err := s.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, got.PopupDelaySeconds)
}

func TestIncrementAndReset(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stats, err := s.IncrementTotalPrompts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalPrompts)

	stats, err = s.IncrementUserResponses(ctx)
	require.NoError(t, err)
	assert.Equal(t, UsageStats{TotalPrompts: 1, UserResponses: 1}, stats)

	require.NoError(t, s.ResetStats(ctx))
	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, UsageStats{}, stats)
}

func TestIncrement_ConcurrentWritersLoseNothing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.IncrementTotalPrompts(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, stats.TotalPrompts)
}

func TestGet_AllKeys(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, map[string]any{KeyModel: "m", KeyAutoSend: true}))

	raw, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, raw, 2)
	assert.Equal(t, `"m"`, string(raw[KeyModel]))
}

func TestRedacted(t *testing.T) {
	s := Settings{APIKey: "sk-abcdef123"}
	assert.Equal(t, "****f123", s.Redacted().APIKey)
	assert.Equal(t, "", Settings{}.Redacted().APIKey)
}
