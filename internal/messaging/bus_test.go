package messaging

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func await(t *testing.T, ch <-chan Reply) Reply {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no reply")
		return Reply{}
	}
}

func TestBroadcastAndUnsubscribe(t *testing.T) {
	b := NewBus()
	var got []Action
	cancel := b.Subscribe(func(m Message) { got = append(got, m.Action) })

	b.Broadcast(UpdateStats())
	b.Broadcast(ToggleState(false))
	cancel()
	cancel()
	b.Broadcast(UpdateStats())

	assert.Equal(t, []Action{ActionUpdateStats, ActionToggleState}, got)
}

func TestBroadcast_SubscriberMayBroadcast(t *testing.T) {
	b := NewBus()
	var n int
	b.Subscribe(func(m Message) {
		n++
		if m.Action == ActionToggleState {
			b.Broadcast(UpdateStats())
		}
	})
	b.Broadcast(ToggleState(true))
	assert.Equal(t, 2, n)
}

func TestRequest_HandlerReply(t *testing.T) {
	b := NewBus()
	b.Handle(ActionGenerateCritique, func(ctx context.Context, msg Message) Reply {
		assert.NotEmpty(t, msg.ID)
		return Reply{Text: "critique of " + msg.Prompt}
	})

	ch := make(chan Reply, 1)
	b.Request(context.Background(), Message{Action: ActionGenerateCritique, Prompt: "p"}, func(r Reply) { ch <- r })
	r := await(t, ch)
	assert.Equal(t, "critique of p", r.Text)
	assert.False(t, r.Failed())
	b.Wait()
}

func TestRequest_NoHandlerIsChannelError(t *testing.T) {
	b := NewBus()
	ch := make(chan Reply, 1)
	b.Request(context.Background(), Message{Action: ActionGenerateCritique}, func(r Reply) { ch <- r })
	r := await(t, ch)
	require.True(t, r.Failed())
	assert.Contains(t, r.Error, "no receiver")
	b.Wait()
}

func TestRequest_PanicIsChannelError(t *testing.T) {
	b := NewBus()
	b.Handle(ActionGenerateCritique, func(context.Context, Message) Reply { panic("boom") })
	ch := make(chan Reply, 1)
	b.Request(context.Background(), Message{Action: ActionGenerateCritique}, func(r Reply) { ch <- r })
	r := await(t, ch)
	assert.Contains(t, r.Error, "handler panic: boom")
	b.Wait()
}

func TestRequest_CancelledContextRepliesOnce(t *testing.T) {
	b := NewBus()
	release := make(chan struct{})
	b.Handle(ActionGenerateCritique, func(context.Context, Message) Reply {
		<-release
		return Reply{Text: "late"}
	})

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	ch := make(chan Reply, 2)
	b.Request(ctx, Message{Action: ActionGenerateCritique}, func(r Reply) {
		calls.Add(1)
		ch <- r
	})
	cancel()

	r := await(t, ch)
	assert.Contains(t, r.Error, "context canceled")

	close(release)
	b.Wait()
	assert.Equal(t, int32(1), calls.Load())
}
