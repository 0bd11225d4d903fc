//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"critbot/internal/browser"
	"critbot/internal/config"
	"critbot/internal/messaging"
	"critbot/internal/settings"
	"critbot/internal/watcher"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/require"
)

const chatPage = `<html><body>
<div id="thread">
  <div data-message-author-role="user">원격 근무가 생산성을 높이나요?</div>
</div>
<textarea id="prompt-textarea"></textarea>
</body></html>`

func TestAttach_DetectsInsertedResponse_Integration(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatPage)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	store, err := settings.Open(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Initialize(ctx))
	require.NoError(t, store.Set(ctx, map[string]any{settings.KeyPopupDelay: 0}))

	profiles := watcher.NewProfiles(map[string]config.SiteConfig{
		"chatgpt": {Hosts: []string{"127.0.0.1"}},
	})
	sm := browser.NewSessionManager(browser.Config{Headless: true, NavigationTimeout: 10 * time.Second}, profiles)
	require.NoError(t, sm.Start(ctx))
	defer func() {
		require.NoError(t, sm.Shutdown(context.Background()))
	}()

	attacher := browser.NewAttacher(browser.AttachConfig{
		Profiles: profiles,
		Bus:      messaging.NewBus(),
		Store:    store,
		Watcher:  watcher.DefaultOptions(),
	})
	watchCtx, stopWatch := context.WithCancel(ctx)
	watchDone := make(chan error, 1)
	go func() { watchDone <- sm.WatchTargets(watchCtx, attacher.Handle) }()

	page, err := sm.Browser().Page(proto.TargetCreateTarget{URL: ts.URL})
	require.NoError(t, err)
	require.NoError(t, page.WaitLoad())

	require.Eventually(t, func() bool { return attacher.Active() == 1 }, 15*time.Second, 100*time.Millisecond)
	require.Len(t, sm.List(), 1)
	require.Equal(t, watcher.SiteChatGPT, sm.List()[0].Site)

	answer := strings.Repeat("원격 근무는 집중 시간을 늘리지만 협업 비용을 높입니다. ", 6)
	_, err = page.Eval(`(text) => {
		const el = document.createElement('div');
		el.setAttribute('data-message-author-role', 'assistant');
		el.textContent = text;
		document.getElementById('thread').appendChild(el);
	}`, answer)
	require.NoError(t, err)

	var popupText string
	require.Eventually(t, func() bool {
		res, err := page.Eval(`() => { const p = document.getElementById('critical-thinking-popup'); return p ? p.querySelector('textarea').value : ''; }`)
		if err != nil {
			return false
		}
		popupText = res.Value.Str()
		return popupText != ""
	}, 15*time.Second, 100*time.Millisecond)
	require.Contains(t, popupText, "원격 근무가 생산성을 높이나요?")
	require.Contains(t, popupText, "협업 비용")

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalPrompts)

	stopWatch()
	require.NoError(t, <-watchDone)
	require.Zero(t, attacher.Active())
}
