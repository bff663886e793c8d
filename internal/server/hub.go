package server

import (
	"sync"

	"uiforge/internal/pipeline"
)

// Hub fans per-job progress events out to websocket subscribers.
// Publish never blocks: a subscriber that stops draining loses events
// rather than stalling the pipeline.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan pipeline.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[chan pipeline.Event]struct{}{}}
}

// Publish satisfies pipeline.Listener via method value.
func (h *Hub) Publish(e pipeline.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[e.JobID] {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a listener for one job's events. The returned
// cancel must be called to release the channel.
func (h *Hub) Subscribe(jobID string) (<-chan pipeline.Event, func()) {
	ch := make(chan pipeline.Event, 64)
	h.mu.Lock()
	if h.subs[jobID] == nil {
		h.subs[jobID] = map[chan pipeline.Event]struct{}{}
	}
	h.subs[jobID][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs[jobID], ch)
		if len(h.subs[jobID]) == 0 {
			delete(h.subs, jobID)
		}
		h.mu.Unlock()
	}
}
