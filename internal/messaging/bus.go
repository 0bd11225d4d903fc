package messaging

import (
	"context"
	"fmt"
	"sync"

	"critbot/internal/logging"

	"github.com/google/uuid"
)

// Handler answers a request message.
type Handler func(ctx context.Context, msg Message) Reply

// Bus is an in-process message bus with broadcast and request/reply.
// It is safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	subs     map[uint64]func(Message)
	nextSub  uint64
	handlers map[Action]Handler

	inflight sync.WaitGroup
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs:     make(map[uint64]func(Message)),
		handlers: make(map[Action]Handler),
	}
}

// Subscribe registers fn for every broadcast. fn runs on the broadcaster's
// goroutine and must not block. The returned func unsubscribes.
func (b *Bus) Subscribe(fn func(Message)) (cancel func()) {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Broadcast delivers msg to every subscriber.
func (b *Bus) Broadcast(msg Message) {
	b.mu.RLock()
	subs := make([]func(Message), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	logging.BusDebug("Broadcast %s to %d subscriber(s)", msg.Action, len(subs))
	for _, fn := range subs {
		fn(msg)
	}
}

// Handle registers the request handler for action, replacing any previous one.
func (b *Bus) Handle(action Action, h Handler) {
	b.mu.Lock()
	b.handlers[action] = h
	b.mu.Unlock()
	logging.Bus("Handler registered for %s", action)
}

// Request sends msg to the handler for msg.Action and invokes onReply exactly
// once, asynchronously. If no handler is registered, the handler panics, or ctx
// ends before the handler returns, onReply receives a ChannelError reply and the
// handler's eventual result is dropped.
func (b *Bus) Request(ctx context.Context, msg Message, onReply func(Reply)) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	b.mu.RLock()
	h := b.handlers[msg.Action]
	b.mu.RUnlock()

	var once sync.Once
	deliver := func(r Reply) {
		once.Do(func() { onReply(r) })
	}

	if h == nil {
		logging.BusWarn("No handler for %s (request %s)", msg.Action, msg.ID)
		b.inflight.Add(1)
		go func() {
			defer b.inflight.Done()
			deliver(ErrorReply(&ChannelError{Action: msg.Action, Reason: "no receiver"}))
		}()
		return
	}

	b.inflight.Add(2)
	result := make(chan Reply, 1)
	go func() {
		defer b.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				logging.BusWarn("Handler for %s panicked: %v", msg.Action, r)
				result <- ErrorReply(&ChannelError{Action: msg.Action, Reason: fmt.Sprintf("handler panic: %v", r)})
			}
		}()
		result <- h(ctx, msg)
	}()

	go func() {
		defer b.inflight.Done()
		select {
		case r := <-result:
			deliver(r)
		case <-ctx.Done():
			logging.BusDebug("Request %s abandoned: %v", msg.ID, ctx.Err())
			deliver(ErrorReply(&ChannelError{Action: msg.Action, Reason: ctx.Err().Error()}))
		}
	}()
}

// Wait blocks until every outstanding request goroutine has finished.
func (b *Bus) Wait() {
	b.inflight.Wait()
}
