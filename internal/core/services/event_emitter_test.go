package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitter_DeliversInOrder(t *testing.T) {
	e := NewEmitter()
	ch, cancel := e.Subscribe(4)
	defer cancel()

	e.Emit(EventConnected{})
	e.Emit(EventMessageSent{ID: "1"})
	e.Emit(EventMessageSent{ID: "2"})

	require.Equal(t, EventConnected{}, <-ch)
	require.Equal(t, EventMessageSent{ID: "1"}, <-ch)
	require.Equal(t, EventMessageSent{ID: "2"}, <-ch)
}

func TestEmitter_FanOutToMultipleSubscribers(t *testing.T) {
	e := NewEmitter()
	ch1, cancel1 := e.Subscribe(1)
	ch2, cancel2 := e.Subscribe(1)
	defer cancel1()
	defer cancel2()

	e.Emit(EventClose{})

	assert.Equal(t, EventClose{}, <-ch1)
	assert.Equal(t, EventClose{}, <-ch2)
}

func TestEmitter_NoEventsAfterClose(t *testing.T) {
	e := NewEmitter()
	ch, cancel := e.Subscribe(4)
	defer cancel()

	e.Close()
	e.Emit(EventConnected{})

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed with no pending events")
}

func TestEmitter_CloseIsIdempotent(t *testing.T) {
	e := NewEmitter()
	e.Close()
	assert.NotPanics(t, func() { e.Close() })
}

func TestEmitter_CancelUnsubscribes(t *testing.T) {
	e := NewEmitter()
	ch, cancel := e.Subscribe(1)
	cancel()

	e.Emit(EventConnected{})

	_, ok := <-ch
	assert.False(t, ok)
}
