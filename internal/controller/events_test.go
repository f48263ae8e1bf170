package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	b := NewBus()
	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel1()
	defer cancel2()

	b.Publish(Status{SessionID: "s1"})

	assert.Equal(t, "s1", (<-ch1).SessionID)
	assert.Equal(t, "s1", (<-ch2).SessionID)
}

func TestBusPublishNeverBlocks(t *testing.T) {
	b := NewBus()
	_, cancel := b.Subscribe()
	defer cancel()

	// Nobody drains the channel; publishing far past its capacity must
	// still return.
	for i := 0; i < subscriberBuffer*3; i++ {
		b.Publish(Status{})
	}
}

func TestBusSlowSubscriberDropsNotStalls(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish(Status{ElapsedSecs: int64(i)})
	}

	// The buffer holds the first snapshots; the overflow was dropped.
	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			assert.Equal(t, subscriberBuffer, count)
			return
		}
	}
}

func TestBusCancelClosesChannel(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe()
	require.Equal(t, 1, b.subscriberCount())

	cancel()
	cancel() // safe twice

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.subscriberCount())

	b.Publish(Status{}) // no subscribers left, still fine
}
