package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unitimehq/unitime/internal/model"
)

func TestHubBroadcastPerRoom(t *testing.T) {
	hub := NewHub()
	lt1 := hub.Subscribe("LT-1")
	lt2 := hub.Subscribe("LT-2")
	defer lt1.Cancel()
	defer lt2.Cancel()

	hub.Broadcast(Change{Kind: ChangeScheduled, Booking: model.ClassBooking{ID: "b-1", Room: "LT-1"}})

	select {
	case change := <-lt1.C:
		assert.Equal(t, "b-1", change.Booking.ID)
	default:
		t.Fatal("LT-1 subscriber received nothing")
	}
	select {
	case <-lt2.C:
		t.Fatal("LT-2 subscriber received a change for LT-1")
	default:
	}
}

func TestSubscriptionCancelIdempotent(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("LT-1")
	sub.Cancel()
	sub.Cancel() // second cancel must not panic or double-close

	// Broadcasting after cancel must not deliver to the closed channel.
	hub.Broadcast(Change{Kind: ChangeCancelled, Booking: model.ClassBooking{ID: "b-1", Room: "LT-1"}})

	_, open := <-sub.C
	assert.False(t, open)
}

func TestHubDropsWhenSubscriberStalls(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("LT-1")
	defer sub.Cancel()

	// Fill beyond the channel buffer; Broadcast must never block.
	for i := 0; i < 64; i++ {
		hub.Broadcast(Change{Kind: ChangeScheduled, Booking: model.ClassBooking{ID: "b", Room: "LT-1"}})
	}

	received := 0
	for {
		select {
		case <-sub.C:
			received++
			continue
		default:
		}
		break
	}
	assert.Equal(t, 16, received) // buffer size; the rest were dropped
}
