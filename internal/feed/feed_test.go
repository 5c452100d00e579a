package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_PrimedWithCurrent(t *testing.T) {
	f := New(7)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := f.Subscribe(ctx)
	select {
	case v := <-ch:
		assert.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("expected primed value")
	}
}

func TestPublish_ReachesAllSubscribers(t *testing.T) {
	f := New("a")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch1 := f.Subscribe(ctx)
	ch2 := f.Subscribe(ctx)
	<-ch1
	<-ch2

	f.Publish("b")

	assert.Equal(t, "b", <-ch1)
	assert.Equal(t, "b", <-ch2)
	assert.Equal(t, "b", f.Get())
}

func TestPublish_CoalescesForSlowSubscriber(t *testing.T) {
	f := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := f.Subscribe(ctx)
	<-ch

	// Subscriber is not reading; publishes must not block and the newest
	// value wins.
	for i := 1; i <= 5; i++ {
		f.Publish(i)
	}

	assert.Equal(t, 5, <-ch)
	assert.Equal(t, 5, f.Get())
}

func TestSubscribe_ClosedOnCancel(t *testing.T) {
	f := New(1)
	ctx, cancel := context.WithCancel(context.Background())

	ch := f.Subscribe(ctx)
	<-ch
	cancel()

	select {
	case _, ok := <-ch:
		require.False(t, ok, "channel should be closed after cancel")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Publishing after cancellation must not panic or block.
	f.Publish(2)
	assert.Equal(t, 2, f.Get())
}

func TestGet_WithoutSubscribers(t *testing.T) {
	f := New([]string{"x"})
	f.Publish([]string{"y", "z"})
	assert.Equal(t, []string{"y", "z"}, f.Get())
}
