// Package watcher detects newly rendered assistant responses in a page and
// emits each qualifying element at most once.
package watcher

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"critbot/internal/clock"
	"critbot/internal/logging"
	"critbot/internal/messaging"
	"critbot/internal/settings"
)

// DetectedResponse is one qualifying response element.
type DetectedResponse struct {
	NodeID         NodeID
	Text           string
	SourceQuestion string
	Timestamp      time.Time
}

// TimestampMs returns the detection time in Unix milliseconds.
func (d DetectedResponse) TimestampMs() int64 { return d.Timestamp.UnixMilli() }

// StatsRecorder counts detections.
type StatsRecorder interface {
	IncrementTotalPrompts(ctx context.Context) (settings.UsageStats, error)
}

// Broadcaster announces stats changes.
type Broadcaster interface {
	Broadcast(messaging.Message)
}

// Options tune detection.
type Options struct {
	// MinTextLength is the exclusive lower bound for incremental checks.
	MinTextLength int
	// SweepMinTextLength is the exclusive lower bound for full sweeps.
	SweepMinTextLength int
	// Cooldown suppresses detections after an emission. Zero disables it.
	Cooldown time.Duration
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{MinTextLength: 100, SweepMinTextLength: 120, Cooldown: 5 * time.Second}
}

// Watcher is not safe for concurrent use; its owner serializes all calls.
type Watcher struct {
	doc     Document
	profile Profile
	clock   clock.Clock
	opts    Options

	stats StatsRecorder
	bcast Broadcaster

	enabled  bool
	seen     map[NodeID]struct{}
	lastEmit time.Time
	emitted  bool
}

// New creates an enabled watcher for doc.
func New(doc Document, profile Profile, clk clock.Clock, opts Options) *Watcher {
	if clk == nil {
		clk = clock.Real()
	}
	return &Watcher{
		doc:     doc,
		profile: profile,
		clock:   clk,
		opts:    opts,
		enabled: true,
		seen:    make(map[NodeID]struct{}),
	}
}

// WithStats makes every detection increment totalPrompts and broadcast updateStats.
func (w *Watcher) WithStats(stats StatsRecorder, bcast Broadcaster) *Watcher {
	w.stats = stats
	w.bcast = bcast
	return w
}

// SetEnabled switches detection on or off. While disabled nothing is marked.
func (w *Watcher) SetEnabled(enabled bool) { w.enabled = enabled }

// Enabled reports whether detection is on.
func (w *Watcher) Enabled() bool { return w.enabled }

// Profile returns the site profile in use.
func (w *Watcher) Profile() Profile { return w.profile }

// Seen reports whether id has already been claimed.
func (w *Watcher) Seen(id NodeID) bool {
	_, ok := w.seen[id]
	return ok
}

// HandleAdded checks newly inserted subtrees.
func (w *Watcher) HandleAdded(ctx context.Context, roots []Node) []DetectedResponse {
	if !w.enabled || len(roots) == 0 {
		return nil
	}
	var out []DetectedResponse
	for _, root := range roots {
		for _, sel := range w.profile.ResponseSelectors {
			nodes, err := w.doc.QueryWithin(ctx, root, sel)
			if err != nil {
				logging.WatcherDebug("query %q within %s failed: %v", sel, root.ID(), err)
				continue
			}
			for _, n := range nodes {
				if d, ok := w.check(ctx, n, w.opts.MinTextLength); ok {
					out = append(out, d)
				}
			}
		}
	}
	return out
}

// Sweep re-scans the whole document.
func (w *Watcher) Sweep(ctx context.Context) []DetectedResponse {
	if !w.enabled {
		return nil
	}
	var out []DetectedResponse
	for _, sel := range w.profile.ResponseSelectors {
		nodes, err := w.doc.QueryAll(ctx, sel)
		if err != nil {
			logging.WatcherDebug("sweep query %q failed: %v", sel, err)
			continue
		}
		for _, n := range nodes {
			if d, ok := w.check(ctx, n, w.opts.SweepMinTextLength); ok {
				out = append(out, d)
			}
		}
	}
	return out
}

// check claims n if it qualifies. A claimed node is never emitted again, even
// when the cooldown suppressed its emission.
func (w *Watcher) check(ctx context.Context, n Node, minLen int) (DetectedResponse, bool) {
	id := n.ID()
	if _, ok := w.seen[id]; ok {
		return DetectedResponse{}, false
	}
	text, err := n.Text(ctx)
	if err != nil {
		logging.WatcherDebug("text of %s unreadable: %v", id, err)
		return DetectedResponse{}, false
	}
	if utf8.RuneCountInString(text) <= minLen {
		return DetectedResponse{}, false
	}
	w.seen[id] = struct{}{}

	now := w.clock.Now()
	if w.opts.Cooldown > 0 && w.emitted && now.Sub(w.lastEmit) < w.opts.Cooldown {
		logging.WatcherDebug("suppressed %s: cooldown (%v since last)", id, now.Sub(w.lastEmit))
		return DetectedResponse{}, false
	}
	w.lastEmit = now
	w.emitted = true

	d := DetectedResponse{
		NodeID:         id,
		Text:           text,
		SourceQuestion: w.matchQuestion(ctx),
		Timestamp:      now,
	}
	logging.Watcher("Detected response %s on %s (%d chars, question %d chars)",
		id, w.profile.Site, utf8.RuneCountInString(text), utf8.RuneCountInString(d.SourceQuestion))
	w.record(ctx)
	return d, true
}

// PopupSelector matches the critique panel and every node inside it. The
// panel's own textarea must never be read back as page content.
const PopupSelector = "#critical-thinking-popup, #critical-thinking-popup *"

// popupNodes returns the ids of the panel's nodes, or nil when none is shown.
func (w *Watcher) popupNodes(ctx context.Context) map[NodeID]struct{} {
	nodes, err := w.doc.QueryAll(ctx, PopupSelector)
	if err != nil {
		logging.WatcherDebug("popup query failed: %v", err)
		return nil
	}
	if len(nodes) == 0 {
		return nil
	}
	ids := make(map[NodeID]struct{}, len(nodes))
	for _, n := range nodes {
		ids[n.ID()] = struct{}{}
	}
	return ids
}

// matchQuestion finds the most recent user message, then the input control's
// value. Empty when neither is available.
func (w *Watcher) matchQuestion(ctx context.Context) string {
	popup := w.popupNodes(ctx)
	for _, sel := range w.profile.QuestionSelectors {
		nodes, err := w.doc.QueryAll(ctx, sel)
		if err != nil {
			logging.WatcherDebug("question query %q failed: %v", sel, err)
			continue
		}
		for i := len(nodes) - 1; i >= 0; i-- {
			if _, ok := popup[nodes[i].ID()]; ok {
				continue
			}
			text, err := nodes[i].Text(ctx)
			if err != nil {
				continue
			}
			if text = strings.TrimSpace(text); text != "" {
				return text
			}
		}
	}
	for _, sel := range w.profile.InputSelectors {
		nodes, err := w.doc.QueryAll(ctx, sel)
		if err != nil {
			logging.WatcherDebug("input query %q failed: %v", sel, err)
			continue
		}
		for _, n := range nodes {
			if _, ok := popup[n.ID()]; ok {
				continue
			}
			v, err := n.Value(ctx)
			if err != nil {
				continue
			}
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func (w *Watcher) record(ctx context.Context) {
	if w.stats == nil {
		return
	}
	if _, err := w.stats.IncrementTotalPrompts(ctx); err != nil {
		logging.WatcherDebug("failed to record detection: %v", err)
		return
	}
	if w.bcast != nil {
		w.bcast.Broadcast(messaging.UpdateStats())
	}
}
