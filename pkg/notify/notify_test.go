package notify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raleighsl/raleighsl/pkg/notify"
	"github.com/raleighsl/raleighsl/pkg/types"
)

func TestSubscribeReceivesPublishedEvents(t *testing.T) {
	b := notify.NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&notify.Event{Type: notify.EventObjectCreated, OID: types.OID(7)})

	select {
	case ev := <-sub:
		assert.Equal(t, notify.EventObjectCreated, ev.Type)
		assert.Equal(t, types.OID(7), ev.OID)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := notify.NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())

	_, open := <-sub
	assert.False(t, open, "unsubscribe closes the channel")
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := notify.NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	for i := 0; i < 200; i++ {
		b.Publish(&notify.Event{Type: notify.EventObjectWritten, OID: types.OID(i)})
	}

	require.Eventually(t, func() bool { return true }, time.Second, time.Millisecond)
}
