package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyDeliversToSubscriber(t *testing.T) {
	d := NewDispatcher()
	events, cancel := d.Subscribe()
	defer cancel()

	d.Notify("user-1", KindNewMessage, map[string]interface{}{"chat_id": "c1"})

	select {
	case n := <-events:
		assert.Equal(t, "user-1", n.RecipientUID)
		assert.Equal(t, KindNewMessage, n.Kind)
		assert.Equal(t, "c1", n.Payload["chat_id"])
		assert.False(t, n.CreatedAt.IsZero())
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestNotifyWithoutSubscribersNeverBlocks(t *testing.T) {
	d := NewDispatcher()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			d.Notify("nobody", KindStatusChanged, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked with no subscribers")
	}
}

func TestSlowSubscriberDoesNotBlockCaller(t *testing.T) {
	d := NewDispatcher()
	_, cancel := d.Subscribe()
	defer cancel()

	// Overfill the buffer; overflow goes to background retries and is
	// eventually dropped, never stalling the caller.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			d.Notify("user-1", KindThreadUpdated, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full subscriber")
	}
}

func TestCancelUnsubscribes(t *testing.T) {
	d := NewDispatcher()
	events, cancel := d.Subscribe()
	cancel()

	_, open := <-events
	require.False(t, open)

	// Publishing after cancellation must not panic.
	assert.NotPanics(t, func() {
		d.Notify("user-1", KindNewMessage, nil)
	})
}

func TestCancelWhileRetryInFlight(t *testing.T) {
	d := NewDispatcher()
	_, cancel := d.Subscribe()

	// Fill the buffer so the next Notify goes to a background retry,
	// then cancel while that retry is sleeping.
	assert.NotPanics(t, func() {
		for i := 0; i < 70; i++ {
			d.Notify("user-1", KindNewMessage, nil)
		}
		cancel()
		time.Sleep(5 * d.retryDelay)
		d.Notify("user-1", KindNewMessage, nil)
	})
}
