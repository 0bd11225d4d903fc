package browser

import (
	"context"
	"fmt"

	"critbot/internal/logging"
	"critbot/internal/watcher"

	"github.com/go-rod/rod"
	"github.com/ysmood/gson"
)

// MutationFeed forwards elements inserted into the page. A MutationObserver
// queues added elements on window.__critbotAdded and pokes a binding; the feed
// drains the queue from Go.
type MutationFeed struct {
	page   *rod.Page
	signal chan struct{}
}

// NewMutationFeed creates a feed for page.
func NewMutationFeed(page *rod.Page) *MutationFeed {
	return &MutationFeed{page: page, signal: make(chan struct{}, 1)}
}

// Install registers the binding and the observer script. The observer is
// installed again on every document the tab loads.
func (f *MutationFeed) Install() (func(), error) {
	stopBinding, err := f.page.Expose(mutationBinding, func(gson.JSON) (interface{}, error) {
		f.poke()
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("expose %s: %w", mutationBinding, err)
	}
	removeScript, err := f.page.EvalOnNewDocument(observerJS)
	if err != nil {
		_ = stopBinding()
		return nil, fmt.Errorf("install observer: %w", err)
	}
	if _, err := f.page.Eval(observerJS); err != nil {
		logging.BrowserDebug("observer not evaluated on current document: %v", err)
	}
	return func() {
		_ = removeScript()
		_ = stopBinding()
	}, nil
}

func (f *MutationFeed) poke() {
	select {
	case f.signal <- struct{}{}:
	default:
	}
}

// Run delivers drained batches until ctx is done.
func (f *MutationFeed) Run(ctx context.Context, deliver func(context.Context, []watcher.Node)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-f.signal:
		}
		nodes, err := f.drain(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logging.BrowserDebug("draining mutations failed: %v", err)
			continue
		}
		if len(nodes) > 0 {
			deliver(ctx, nodes)
		}
	}
}

func (f *MutationFeed) drain(ctx context.Context) ([]watcher.Node, error) {
	els, err := f.page.Context(ctx).ElementsByJS(rod.Eval(`() => {
		const q = window.__critbotAdded || [];
		window.__critbotAdded = [];
		return q.filter((n) => n.isConnected);
	}`))
	if err != nil {
		return nil, err
	}
	nodes := make([]watcher.Node, 0, len(els))
	for _, el := range els {
		n, err := NewNode(el)
		if err != nil {
			// Removed between the drain and the describe.
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
