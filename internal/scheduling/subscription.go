package scheduling

import (
	"sync"

	"github.com/unitimehq/unitime/internal/model"
)

// ChangeKind describes what happened to a booking in a change notification.
type ChangeKind string

const (
	ChangeScheduled   ChangeKind = "scheduled"
	ChangeRescheduled ChangeKind = "rescheduled"
	ChangeCancelled   ChangeKind = "cancelled"
)

// Change is a snapshot delivered to subscribers after a booking mutation
// has been durably committed.
type Change struct {
	Kind    ChangeKind
	Booking model.ClassBooking
}

// Subscription is a cancellable handle on a stream of booking changes for
// one room.  Read changes from C; call Cancel when done.  Cancel is
// idempotent and safe to call from any goroutine.
type Subscription struct {
	C      <-chan Change
	hub    *Hub
	room   string
	ch     chan Change
	cancel sync.Once
}

// Cancel detaches the subscription from its hub and closes C.  Calling it
// more than once is a no-op.
func (s *Subscription) Cancel() {
	s.cancel.Do(func() {
		s.hub.remove(s.room, s.ch)
		close(s.ch)
	})
}

// Hub fans booking changes out to in-process subscribers keyed by room.
// It replaces the ambient component-local state of the reference app:
// callers that need live updates subscribe explicitly instead of sharing
// mutable globals.  Delivery is best-effort; a subscriber that stops
// draining its channel loses further notifications rather than blocking
// the resolver.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[chan Change]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[chan Change]struct{})}
}

// Subscribe registers interest in changes to bookings in the given room.
func (h *Hub) Subscribe(room string) *Subscription {
	ch := make(chan Change, 16)
	h.mu.Lock()
	subs, ok := h.rooms[room]
	if !ok {
		subs = make(map[chan Change]struct{})
		h.rooms[room] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()
	return &Subscription{C: ch, hub: h, room: room, ch: ch}
}

// Broadcast delivers a change to every subscriber of the booking's room.
func (h *Hub) Broadcast(change Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.rooms[change.Booking.Room] {
		select {
		case ch <- change:
		default: // subscriber not draining; drop instead of blocking
		}
	}
}

func (h *Hub) remove(room string, ch chan Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.rooms[room]; ok {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(h.rooms, room)
		}
	}
}
