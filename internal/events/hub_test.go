package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishSubscribe(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()
	assert.Equal(t, 2, h.Len())

	h.Publish("x")
	assert.Equal(t, "x", <-a)
	assert.Equal(t, "x", <-b)

	h.Unsubscribe(a)
	h.Unsubscribe(a) // second call is a no-op
	assert.Equal(t, 1, h.Len())
	_, ok := <-a
	assert.False(t, ok)
}

func TestHub_DropsWhenSlow(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	for i := 0; i < subscriberBuffer+5; i++ {
		h.Publish("e")
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestHub_Close(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	h.Close()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())

	late := h.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
	h.Publish("ignored")
}

func TestMakeEvent(t *testing.T) {
	raw := MakeEvent("req-1", TypeEmployersRendered, 1, map[string]any{"count": 2})

	var e Event
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	assert.Equal(t, TypeEmployersRendered, e.Type)
	assert.Equal(t, 1, e.Version)
	assert.Equal(t, "req-1", e.RequestID)
	assert.JSONEq(t, `{"count":2}`, string(e.Data))
	assert.False(t, e.At.IsZero())

	raw = MakeEvent("", TypePing, 1, nil)
	assert.NotContains(t, raw, "data")
	assert.NotContains(t, raw, "request_id")
}
