package web

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestEventHub_ReplaysHistoryThenLive(t *testing.T) {
	h := NewEventHub()
	h.Publish(Event{Type: "log", Message: "one"})
	h.Publish(Event{Type: "log", Message: "two"})

	ch, unsub := h.Subscribe()
	defer unsub()
	h.Publish(Event{Type: "log", Message: "three"})

	assert.Equal(t, "one", recv(t, ch).Message)
	assert.Equal(t, "two", recv(t, ch).Message)
	e := recv(t, ch)
	assert.Equal(t, "three", e.Message)
	assert.NotEmpty(t, e.Time)
}

func TestEventHub_HistoryIsBounded(t *testing.T) {
	h := NewEventHub()
	for i := 0; i < maxHistory+5; i++ {
		h.Publish(Event{Type: "log", Message: fmt.Sprint(i)})
	}
	ch, unsub := h.Subscribe()
	defer unsub()
	assert.Equal(t, "5", recv(t, ch).Message)
	assert.Len(t, ch, maxHistory-1)
}

func TestEventHub_SlowClientDoesNotBlock(t *testing.T) {
	h := NewEventHub()
	_, unsub := h.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < clientBuffer*4; i++ {
			h.Publish(Event{Type: "log"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow client")
	}
	assert.Equal(t, clientBuffer*3, h.Dropped())
}

func TestEventHub_FiltersByType(t *testing.T) {
	h := NewEventHub()
	h.Publish(Event{Type: "log", Message: "hello"})
	h.Publish(Event{Type: "match", Message: "m1"})

	ch, unsub := h.Subscribe("match", "queue")
	defer unsub()
	h.Publish(Event{Type: "log", Message: "skipped"})
	h.Publish(Event{Type: "queue", Message: "q"})

	assert.Equal(t, "m1", recv(t, ch).Message)
	assert.Equal(t, "q", recv(t, ch).Message)
	assert.Empty(t, ch)
}

func TestEventHub_UnsubscribeClosesChannel(t *testing.T) {
	h := NewEventHub()
	ch, unsub := h.Subscribe()
	require.Equal(t, 1, h.Clients())

	unsub()
	unsub()
	assert.Equal(t, 0, h.Clients())
	_, ok := <-ch
	assert.False(t, ok)

	h.Publish(Event{Type: "log"})
}
