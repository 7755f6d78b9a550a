package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := New[string](4)

	first, cancelFirst := b.Subscribe()
	second, cancelSecond := b.Subscribe()
	defer cancelFirst()
	defer cancelSecond()

	b.Publish("completed")

	assert.Equal(t, "completed", <-first)
	assert.Equal(t, "completed", <-second)
}

func TestPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	b := New[int](1)
	b.Publish(42) // must return immediately
	assert.Equal(t, 0, b.Len())
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := New[int](1)
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(1)
	b.Publish(2) // buffer full, dropped

	assert.Equal(t, 1, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("expected dropped message, got %d", v)
	default:
	}
}

func TestCancelClosesChannel(t *testing.T) {
	b := New[int](1)
	ch, cancel := b.Subscribe()
	require.Equal(t, 1, b.Len())

	cancel()
	cancel() // idempotent

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Len())
}
