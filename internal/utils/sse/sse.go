package sse

import (
	"sync"
)

// Event is one server-sent event. Type becomes the SSE event name.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub fans events out to registered subscriber channels.
type Hub struct {
	channels sync.Map // key: subscriber id, value: chan Event
}

func NewHub() *Hub {
	return &Hub{}
}

func (h *Hub) Register(id string, ch chan Event) {
	h.channels.Store(id, ch)
}

// Unregister removes ch under id. A newer channel registered under the same id
// is left in place.
func (h *Hub) Unregister(id string, ch chan Event) {
	h.channels.CompareAndDelete(id, ch)
}

// Send delivers ev to one subscriber without blocking. It reports false when
// the subscriber is unknown or its buffer is full.
func (h *Hub) Send(id string, ev Event) bool {
	chVal, ok := h.channels.Load(id)
	if !ok {
		return false
	}
	select {
	case chVal.(chan Event) <- ev:
		return true
	default:
		return false
	}
}

// Broadcast delivers ev to every subscriber and returns how many received it.
func (h *Hub) Broadcast(ev Event) int {
	delivered := 0
	h.channels.Range(func(key, _ any) bool {
		if h.Send(key.(string), ev) {
			delivered++
		}
		return true
	})
	return delivered
}
