// Package presenter runs the popup lifecycle for detected responses: delay,
// optional critique generation, display, engagement tracking and expiry.
package presenter

import (
	"context"
	"time"

	"critbot/internal/clock"
	"critbot/internal/logging"
	"critbot/internal/messaging"
	"critbot/internal/prompt"
	"critbot/internal/settings"
	"critbot/internal/watcher"

	"github.com/google/uuid"
)

// DefaultAutoDismiss is how long an untouched panel stays up.
const DefaultAutoDismiss = 60 * time.Second

// Requester sends a request and receives exactly one reply.
type Requester interface {
	Request(ctx context.Context, msg messaging.Message, onReply func(messaging.Reply))
}

// EngagementRecorder counts user engagements.
type EngagementRecorder interface {
	IncrementUserResponses(ctx context.Context) (settings.UsageStats, error)
}

// Options configure a Presenter.
type Options struct {
	AutoDismiss time.Duration
	Builder     *prompt.Builder
	Recorder    EngagementRecorder
	Broadcaster watcher.Broadcaster
	// Post runs f on the goroutine that owns the Presenter. Timer and reply
	// callbacks go through it. Nil runs f inline.
	Post func(f func())
	// OnTransition observes every state change.
	OnTransition func(id string, from, to State)
}

type instance struct {
	id      string
	state   State
	view    View
	prompt  string
	engaged bool

	delayTimer   clock.Timer
	dismissTimer clock.Timer
}

// Presenter is not safe for concurrent use; Options.Post serializes callbacks.
type Presenter struct {
	ctx      context.Context
	clock    clock.Clock
	renderer Renderer
	req      Requester
	opts     Options
	settings settings.Settings

	cur *instance
}

// New creates a Presenter. ctx scopes gateway requests and stats writes.
func New(ctx context.Context, clk clock.Clock, r Renderer, req Requester, st settings.Settings, opts Options) *Presenter {
	if clk == nil {
		clk = clock.Real()
	}
	if opts.AutoDismiss <= 0 {
		opts.AutoDismiss = DefaultAutoDismiss
	}
	if opts.Builder == nil {
		opts.Builder = &prompt.Builder{}
	}
	if opts.Post == nil {
		opts.Post = func(f func()) { f() }
	}
	return &Presenter{ctx: ctx, clock: clk, renderer: r, req: req, opts: opts, settings: st}
}

// SetSettings replaces the settings used for subsequent transitions.
func (p *Presenter) SetSettings(st settings.Settings) { p.settings = st }

// Current returns the live instance id and its state.
func (p *Presenter) Current() (string, State) {
	if p.cur == nil {
		return "", StateNone
	}
	return p.cur.id, p.cur.state
}

// CurrentView returns the live instance's view.
func (p *Presenter) CurrentView() (View, bool) {
	if p.cur == nil {
		return View{}, false
	}
	return p.cur.view, true
}

// OnDetected starts a new popup instance for d, removing any existing one,
// and returns the new instance id.
func (p *Presenter) OnDetected(d watcher.DetectedResponse) string {
	p.dismissCurrent("replaced")

	built := p.opts.Builder.Build(d.Text, d.SourceQuestion)
	inst := &instance{id: uuid.NewString(), prompt: built}
	p.cur = inst
	p.transition(inst, StatePendingDelay)
	logging.PresenterDebug("Instance %s pending for %v (prompt %d chars)", inst.id, p.settings.PopupDelay(), len(built))

	delay := p.settings.PopupDelay()
	if delay <= 0 {
		p.onDelayElapsed(inst.id)
		return inst.id
	}
	id := inst.id
	inst.delayTimer = p.clock.AfterFunc(delay, func() {
		p.opts.Post(func() { p.onDelayElapsed(id) })
	})
	return id
}

func (p *Presenter) onDelayElapsed(id string) {
	inst := p.live(id)
	if inst == nil || inst.state != StatePendingDelay {
		return
	}
	inst.delayTimer = nil

	st := p.settings
	p.transition(inst, StateGenerating)
	if st.CanGenerate() {
		inst.view = View{InstanceID: id, Working: true}
	} else {
		p.transition(inst, StateResolved)
		inst.view = View{InstanceID: id, Manual: true, Prompt: inst.prompt}
	}
	inst.view.State = inst.state.String()
	logging.Presenter("Showing popup %s (manual=%t)", id, inst.view.Manual)
	if err := p.renderer.Show(inst.view); err != nil {
		logging.PresenterWarn("Show %s failed: %v", id, err)
	}
	inst.dismissTimer = p.clock.AfterFunc(p.opts.AutoDismiss, func() {
		p.opts.Post(func() { p.onDismissTimeout(id) })
	})

	if !st.CanGenerate() {
		if st.AutoSend {
			if err := p.renderer.RelayToInput(inst.prompt); err != nil {
				logging.PresenterWarn("Auto relay failed: %v", err)
			}
		}
		return
	}

	p.req.Request(p.ctx, messaging.Message{
		Action:   messaging.ActionGenerateCritique,
		Provider: st.Provider,
		Model:    st.Model,
		APIKey:   st.APIKey,
		Prompt:   inst.prompt,
	}, func(r messaging.Reply) {
		p.opts.Post(func() { p.onReply(id, r) })
	})
}

func (p *Presenter) onReply(id string, r messaging.Reply) {
	inst := p.live(id)
	if inst == nil || inst.state != StateGenerating {
		logging.PresenterDebug("Dropping reply for stale instance %s", id)
		return
	}

	inst.view.Working = false
	if r.Failed() {
		p.transition(inst, StateFailed)
		inst.view.Error = r.Error
	} else {
		p.transition(inst, StateResolved)
		inst.view.Summary, inst.view.Detail = Split(r.Text)
		inst.view.ShowToggle = inst.view.Detail != ""
	}
	inst.view.State = inst.state.String()
	if err := p.renderer.Update(inst.view); err != nil {
		logging.PresenterWarn("Update %s failed: %v", id, err)
	}
}

func (p *Presenter) onDismissTimeout(id string) {
	inst := p.live(id)
	if inst == nil || inst.dismissTimer == nil {
		return
	}
	inst.dismissTimer = nil
	logging.PresenterDebug("Instance %s expired", id)
	p.dismissCurrent("expired")
}

// HandleEvent applies a user interaction. Events for other instances are ignored.
func (p *Presenter) HandleEvent(ev UIEvent) {
	inst := p.live(ev.InstanceID)
	if inst == nil {
		return
	}

	switch ev.Kind {
	case EventClose:
		p.dismissCurrent("closed")
	case EventPointerEnter:
		if inst.dismissTimer != nil {
			inst.dismissTimer.Stop()
			inst.dismissTimer = nil
			logging.PresenterDebug("Auto-dismiss cancelled for %s", inst.id)
		}
	case EventToggle:
		if inst.view.ShowToggle {
			inst.view.Expanded = !inst.view.Expanded
			if err := p.renderer.Update(inst.view); err != nil {
				logging.PresenterWarn("Update %s failed: %v", inst.id, err)
			}
		}
	case EventCopy:
		p.engage(inst)
	case EventRelay:
		if err := p.renderer.RelayToInput(inst.prompt); err != nil {
			logging.PresenterWarn("Relay failed: %v", err)
			return
		}
		if inst.view.Manual {
			p.engage(inst)
		}
	default:
		logging.PresenterDebug("Unknown event %q", ev.Kind)
	}
}

// Close removes any live instance.
func (p *Presenter) Close() {
	p.dismissCurrent("closed")
}

func (p *Presenter) engage(inst *instance) {
	if inst.engaged {
		return
	}
	inst.engaged = true
	if p.opts.Recorder == nil {
		return
	}
	if _, err := p.opts.Recorder.IncrementUserResponses(p.ctx); err != nil {
		logging.PresenterWarn("Failed to record engagement: %v", err)
		return
	}
	if p.opts.Broadcaster != nil {
		p.opts.Broadcaster.Broadcast(messaging.UpdateStats())
	}
}

func (p *Presenter) live(id string) *instance {
	if p.cur == nil || p.cur.id != id {
		return nil
	}
	return p.cur
}

func (p *Presenter) dismissCurrent(reason string) {
	inst := p.cur
	if inst == nil {
		return
	}
	p.cur = nil
	if inst.delayTimer != nil {
		inst.delayTimer.Stop()
	}
	if inst.dismissTimer != nil {
		inst.dismissTimer.Stop()
	}
	shown := inst.state != StatePendingDelay
	p.transition(inst, StateDismissed)
	if shown {
		if err := p.renderer.Remove(inst.id); err != nil {
			logging.PresenterWarn("Remove %s failed: %v", inst.id, err)
		}
	}
	logging.PresenterDebug("Instance %s dismissed (%s)", inst.id, reason)
}

func (p *Presenter) transition(inst *instance, to State) {
	from := inst.state
	inst.state = to
	if p.opts.OnTransition != nil {
		p.opts.OnTransition(inst.id, from, to)
	}
}
