// Package statusfeed pushes periodic system-health snapshots and live
// notification frames to connected dashboard clients over WebSocket.
package statusfeed

import "sync"

// Frame is the single message schema carried over the feed.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

const (
	FrameSystemUpdate = "system-update"
	FrameNotification = "notification"
)

type subscriber struct {
	userID string
	ch     chan Frame
}

// Hub keeps in-memory feed subscribers. Process-local; slow consumers are
// skipped rather than blocking producers.
type Hub struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[*subscriber]struct{}{}}
}

// Subscribe registers a subscriber for the given user and returns its frame
// channel plus an unsubscribe function to call on disconnect.
func (h *Hub) Subscribe(userID string) (<-chan Frame, func()) {
	sub := &subscriber{userID: userID, ch: make(chan Frame, 16)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if _, ok := h.subs[sub]; ok {
			delete(h.subs, sub)
			close(sub.ch)
		}
		h.mu.Unlock()
	}
	return sub.ch, unsubscribe
}

// Broadcast delivers a frame to every subscriber.
func (h *Hub) Broadcast(frame Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.ch <- frame:
		default:
			// drop if subscriber is slow
		}
	}
}

// SendTo delivers a frame to all subscribers of one user.
func (h *Hub) SendTo(userID string, frame Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if sub.userID != userID {
			continue
		}
		select {
		case sub.ch <- frame:
		default:
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
