package scheduling

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unitimehq/unitime/internal/model"
	"github.com/unitimehq/unitime/internal/repository"
)

// memStore is an in-memory BookingStore and ScheduleIndex with the same
// transactional semantics as the MySQL repos: the overlap re-check, the
// booking write and both index appends happen under one lock.
type memStore struct {
	mu       sync.Mutex
	bookings map[string]model.ClassBooking
	entries  []model.ScheduleEntry
	nextPos  uint64
}

func newMemStore() *memStore {
	return &memStore{bookings: make(map[string]model.ClassBooking)}
}

func (s *memStore) overlappingLocked(room string, start, end time.Time, excludeID string) []model.ClassBooking {
	var out []model.ClassBooking
	for _, b := range s.bookings {
		if b.Room != room || !b.Active() || b.ID == excludeID {
			continue
		}
		if Overlaps(b.Start, b.End, start, end) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (s *memStore) FindOverlapping(_ context.Context, room string, start, end time.Time, excludeID string) ([]model.ClassBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlappingLocked(room, start, end, excludeID), nil
}

func (s *memStore) CreateScheduled(_ context.Context, b *model.ClassBooking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.overlappingLocked(b.Room, b.Start, b.End, "")) > 0 {
		return repository.ErrRoomConflict
	}
	s.bookings[b.ID] = *b
	s.appendEntryLocked(b.LecturerID, b.ID, b.CreatedAt)
	s.appendEntryLocked(b.ClassRepID, b.ID, b.CreatedAt)
	return nil
}

func (s *memStore) appendEntryLocked(personID, bookingID string, at time.Time) {
	s.nextPos++
	s.entries = append(s.entries, model.ScheduleEntry{
		Position: s.nextPos, PersonID: personID, BookingID: bookingID, CreatedAt: at,
	})
}

func (s *memStore) GetByID(_ context.Context, id string) (*model.ClassBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return &b, nil
}

func (s *memStore) Reschedule(_ context.Context, b *model.ClassBooking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; !ok {
		return repository.ErrBookingNotFound
	}
	if len(s.overlappingLocked(b.Room, b.Start, b.End, b.ID)) > 0 {
		return repository.ErrRoomConflict
	}
	s.bookings[b.ID] = *b
	return nil
}

func (s *memStore) SetStatus(_ context.Context, id string, status model.BookingStatus, notes string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	b.Status = status
	b.StatusNotes = notes
	b.UpdatedAt = at
	s.bookings[id] = b
	return nil
}

func (s *memStore) Rebuild(_ context.Context, personID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.PersonID != personID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	var members []model.ClassBooking
	for _, b := range s.bookings {
		if b.LecturerID == personID || b.ClassRepID == personID {
			members = append(members, b)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].CreatedAt.Equal(members[j].CreatedAt) {
			return members[i].ID < members[j].ID
		}
		return members[i].CreatedAt.Before(members[j].CreatedAt)
	})
	for _, b := range members {
		s.appendEntryLocked(personID, b.ID, b.CreatedAt)
	}
	return len(members), nil
}

func (s *memStore) entriesFor(personID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, e := range s.entries {
		if e.PersonID == personID {
			ids = append(ids, e.BookingID)
		}
	}
	return ids
}

// memDirectory resolves participants from a fixed map.
type memDirectory struct {
	profiles map[string]model.UserProfile
}

func (d *memDirectory) ProfileByID(_ context.Context, id string) (*model.UserProfile, error) {
	p, ok := d.profiles[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &p, nil
}

// heldLocker reports every room as locked by someone else.
type heldLocker struct{}

func (heldLocker) AcquireRoomLock(context.Context, string, time.Duration) (bool, error) {
	return false, nil
}
func (heldLocker) ReleaseRoomLock(context.Context, string) error { return nil }

func testDirectory() *memDirectory {
	return &memDirectory{profiles: map[string]model.UserProfile{
		"lect-1":    {ID: "lect-1", Email: "ada@univ.example", FullName: "Ada Lovelace", Role: model.RoleLecturer, Approved: true},
		"lect-2":    {ID: "lect-2", Email: "alan@univ.example", FullName: "Alan Turing", Role: model.RoleLecturer, Approved: true},
		"lect-anon": {ID: "lect-anon", Email: "", FullName: "No Address", Role: model.RoleLecturer, Approved: true},
		"rep-1":     {ID: "rep-1", Email: "rep1@univ.example", FullName: "Grace Hopper", Role: model.RoleClassRep, Approved: true},
		"rep-2":     {ID: "rep-2", Email: "rep2@univ.example", FullName: "Edsger Dijkstra", Role: model.RoleClassRep, Approved: true},
	}}
}

func newTestResolver(t *testing.T, opts ...Option) (*Resolver, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewResolver(store, store, testDirectory(), opts...), store
}

func proposal(room string, start, end time.Time) ProposeRequest {
	return ProposeRequest{
		CourseCode: "CS101",
		Title:      "Algorithms",
		Room:       room,
		LecturerID: "lect-1",
		ClassRepID: "rep-1",
		Start:      start,
		End:        end,
	}
}

func TestProposeBookingAccepted(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	res, err := r.ProposeBooking(ctx, proposal("LT-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.NotEmpty(t, res.BookingID)

	b, err := r.GetBooking(ctx, res.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingScheduled, b.Status)
	assert.Equal(t, "ada@univ.example", b.LecturerEmail)

	// Both participants' schedule indexes gained the booking.
	assert.Equal(t, []string{res.BookingID}, store.entriesFor("lect-1"))
	assert.Equal(t, []string{res.BookingID}, store.entriesFor("rep-1"))
}

func TestProposeBookingRejectsOverlap(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	first, err := r.ProposeBooking(ctx, proposal("LT-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)
	require.True(t, first.Accepted)

	res, err := r.ProposeBooking(ctx, proposal("LT-1", at(9, 30), at(10, 30)))
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonRoomBooked, res.Reason)
	assert.Empty(t, res.BookingID)

	// Rejection mutates nothing: one booking, one index entry per person.
	assert.Len(t, store.bookings, 1)
	assert.Len(t, store.entriesFor("lect-1"), 1)
}

func TestProposeBookingTouchingIntervalsAccepted(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	res, err := r.ProposeBooking(ctx, proposal("LT-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)
	require.True(t, res.Accepted)

	// A class starting exactly when the previous one ends does not conflict.
	res, err = r.ProposeBooking(ctx, proposal("LT-1", at(10, 0), at(11, 0)))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}

func TestProposeBookingDifferentRoomSameSlot(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	res, err := r.ProposeBooking(ctx, proposal("LT-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)
	require.True(t, res.Accepted)

	res, err = r.ProposeBooking(ctx, proposal("LT-2", at(9, 0), at(10, 0)))
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}

func TestProposeBookingValidation(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		mut   func(*ProposeRequest)
		field string
	}{
		{"missing course code", func(p *ProposeRequest) { p.CourseCode = " " }, "course_code"},
		{"missing room", func(p *ProposeRequest) { p.Room = "" }, "room"},
		{"missing lecturer", func(p *ProposeRequest) { p.LecturerID = "" }, "lecturer_id"},
		{"missing class rep", func(p *ProposeRequest) { p.ClassRepID = "" }, "class_rep_id"},
		{"zero start", func(p *ProposeRequest) { p.Start = time.Time{} }, "start"},
		{"zero end", func(p *ProposeRequest) { p.End = time.Time{} }, "end"},
		{"end equals start", func(p *ProposeRequest) { p.End = p.Start }, "end"},
		{"end before start", func(p *ProposeRequest) { p.Start, p.End = p.End, p.Start }, "end"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := proposal("LT-1", at(9, 0), at(10, 0))
			tc.mut(&req)
			_, err := r.ProposeBooking(ctx, req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestProposeBookingUnknownParticipants(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	req := proposal("LT-1", at(9, 0), at(10, 0))
	req.LecturerID = "ghost"
	_, err := r.ProposeBooking(ctx, req)
	assert.ErrorIs(t, err, ErrUnknownParticipant)

	// A class rep id pointing at a lecturer is rejected too.
	req = proposal("LT-1", at(9, 0), at(10, 0))
	req.ClassRepID = "lect-2"
	_, err = r.ProposeBooking(ctx, req)
	assert.ErrorIs(t, err, ErrUnknownParticipant)

	// A lecturer without a contact address cannot be booked.
	req = proposal("LT-1", at(9, 0), at(10, 0))
	req.LecturerID = "lect-anon"
	_, err = r.ProposeBooking(ctx, req)
	assert.ErrorIs(t, err, ErrUnknownParticipant)

	assert.Empty(t, store.bookings)
}

func TestProposeBookingRoomLocked(t *testing.T) {
	r, store := newTestResolver(t, WithRoomLocker(heldLocker{}))
	ctx := context.Background()

	res, err := r.ProposeBooking(ctx, proposal("LT-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonRoomLocked, res.Reason)
	assert.Empty(t, store.bookings)
}

func TestRescheduleBooking(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	created, err := r.ProposeBooking(ctx, proposal("LT-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)

	res, err := r.RescheduleBooking(ctx, RescheduleRequest{
		BookingID: created.BookingID,
		NewRoom:   "LT-2",
		NewStart:  at(11, 0),
		NewEnd:    at(12, 0),
	})
	require.NoError(t, err)
	require.True(t, res.Accepted)

	b, err := r.GetBooking(ctx, created.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingRescheduled, b.Status)
	assert.Equal(t, "LT-2", b.Room)
	assert.Equal(t, at(11, 0), b.Start)
	require.NotNil(t, b.PreviousRoom)
	assert.Equal(t, "LT-1", *b.PreviousRoom)
	require.NotNil(t, b.PreviousStart)
	assert.Equal(t, at(9, 0), *b.PreviousStart)
}

func TestRescheduleExcludesOwnSlot(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	created, err := r.ProposeBooking(ctx, proposal("LT-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)

	// Shifting by 30 minutes overlaps the booking's own current slot; the
	// booking must not conflict with itself.
	res, err := r.RescheduleBooking(ctx, RescheduleRequest{
		BookingID: created.BookingID,
		NewStart:  at(9, 30),
		NewEnd:    at(10, 30),
	})
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}

func TestRescheduleRejectsForeignOverlap(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	_, err := r.ProposeBooking(ctx, proposal("LT-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)
	other, err := r.ProposeBooking(ctx, proposal("LT-1", at(11, 0), at(12, 0)))
	require.NoError(t, err)

	res, err := r.RescheduleBooking(ctx, RescheduleRequest{
		BookingID: other.BookingID,
		NewStart:  at(9, 30),
		NewEnd:    at(10, 30),
	})
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonRoomBooked, res.Reason)

	// The booking is untouched on rejection.
	b, err := r.GetBooking(ctx, other.BookingID)
	require.NoError(t, err)
	assert.Equal(t, at(11, 0), b.Start)
	assert.Nil(t, b.PreviousRoom)
}

func TestRescheduleCancelledBookingRejected(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	created, err := r.ProposeBooking(ctx, proposal("LT-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)
	_, err = r.CancelBooking(ctx, created.BookingID)
	require.NoError(t, err)

	// Moving a cancelled booking must not resurrect it; the class has to be
	// proposed again.
	res, err := r.RescheduleBooking(ctx, RescheduleRequest{
		BookingID: created.BookingID,
		NewStart:  at(11, 0),
		NewEnd:    at(12, 0),
	})
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, ReasonBookingCancelled, res.Reason)

	b, err := r.GetBooking(ctx, created.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
	assert.Equal(t, at(9, 0), b.Start)
}

func TestRescheduleUnknownBooking(t *testing.T) {
	r, _ := newTestResolver(t)
	_, err := r.RescheduleBooking(context.Background(), RescheduleRequest{
		BookingID: "missing",
		NewStart:  at(9, 0),
		NewEnd:    at(10, 0),
	})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCancelBookingFreesRoom(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	created, err := r.ProposeBooking(ctx, proposal("LT-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)

	res, err := r.CancelBooking(ctx, created.BookingID)
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	// Cancelling again is a no-op success.
	res, err = r.CancelBooking(ctx, created.BookingID)
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	// The slot is free again for a new proposal.
	replacement, err := r.ProposeBooking(ctx, proposal("LT-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)
	assert.True(t, replacement.Accepted)

	// The cancelled booking stays in both schedule indexes for history.
	assert.Contains(t, store.entriesFor("lect-1"), created.BookingID)
	b, err := r.GetBooking(ctx, created.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
}

func TestSetBookingStatus(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	created, err := r.ProposeBooking(ctx, proposal("LT-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)

	res, err := r.SetBookingStatus(ctx, created.BookingID, model.BookingCancelled, "double booked by mistake")
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	b, err := r.GetBooking(ctx, created.BookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
	assert.Equal(t, "double booked by mistake", b.StatusNotes)

	_, err = r.SetBookingStatus(ctx, created.BookingID, model.BookingStatus("bogus"), "")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestFindConflicts(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	early, err := r.ProposeBooking(ctx, proposal("LT-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)
	late, err := r.ProposeBooking(ctx, proposal("LT-1", at(10, 0), at(11, 0)))
	require.NoError(t, err)
	cancelled, err := r.ProposeBooking(ctx, proposal("LT-1", at(11, 0), at(12, 0)))
	require.NoError(t, err)
	_, err = r.CancelBooking(ctx, cancelled.BookingID)
	require.NoError(t, err)

	conflicts, err := r.FindConflicts(ctx, "LT-1", at(9, 30), at(11, 30), "")
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	// Ordered by start time; the cancelled booking never appears.
	assert.Equal(t, early.BookingID, conflicts[0].ID)
	assert.Equal(t, late.BookingID, conflicts[1].ID)

	// Each call re-issues the query, so results reflect later changes.
	_, err = r.CancelBooking(ctx, early.BookingID)
	require.NoError(t, err)
	conflicts, err = r.FindConflicts(ctx, "LT-1", at(9, 30), at(11, 30), "")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, late.BookingID, conflicts[0].ID)
}

func TestConcurrentProposalsOneWinner(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	const workers = 16
	results := make(chan Result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.ProposeBooking(ctx, proposal("LT-1", at(9, 0), at(10, 0)))
			assert.NoError(t, err)
			results <- res
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	for res := range results {
		if res.Accepted {
			accepted++
		} else {
			assert.Equal(t, ReasonRoomBooked, res.Reason)
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Len(t, store.bookings, 1)
}

func TestRebuildScheduleIndex(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		res, err := r.ProposeBooking(ctx, proposal("LT-1", at(9+2*i, 0), at(10+2*i, 0)))
		require.NoError(t, err)
		require.True(t, res.Accepted)
		ids = append(ids, res.BookingID)
	}

	before := store.entriesFor("lect-1")
	require.Len(t, before, 3)

	n, err := r.RebuildScheduleIndex(ctx, "lect-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.ElementsMatch(t, ids, store.entriesFor("lect-1"))

	// Rebuilding a consistent index is idempotent.
	n, err = r.RebuildScheduleIndex(ctx, "lect-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Other people's indexes are untouched.
	assert.Len(t, store.entriesFor("rep-1"), 3)

	_, err = r.RebuildScheduleIndex(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUnknownParticipant)
}

func TestBookingLifecycleScenario(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	// Monday morning in LT-1: CS101 takes 09:00-10:00.
	a, err := r.ProposeBooking(ctx, proposal("LT-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)
	require.True(t, a.Accepted)

	// A competing 09:30-10:30 proposal is turned away.
	req := proposal("LT-1", at(9, 30), at(10, 30))
	req.CourseCode = "MATH202"
	req.LecturerID, req.ClassRepID = "lect-2", "rep-2"
	res, err := r.ProposeBooking(ctx, req)
	require.NoError(t, err)
	require.False(t, res.Accepted)

	// Shifted to 10:00-11:00 it lands back to back with CS101.
	req.Start, req.End = at(10, 0), at(11, 0)
	bRes, err := r.ProposeBooking(ctx, req)
	require.NoError(t, err)
	require.True(t, bRes.Accepted)

	// CS101 is cancelled; its slot opens up immediately.
	_, err = r.CancelBooking(ctx, a.BookingID)
	require.NoError(t, err)

	req2 := proposal("LT-1", at(9, 0), at(10, 0))
	req2.CourseCode = "PHYS110"
	cRes, err := r.ProposeBooking(ctx, req2)
	require.NoError(t, err)
	require.True(t, cRes.Accepted)

	conflicts, err := r.FindConflicts(ctx, "LT-1", at(9, 0), at(11, 0), "")
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	assert.Equal(t, cRes.BookingID, conflicts[0].ID)
	assert.Equal(t, bRes.BookingID, conflicts[1].ID)
}

func TestProposeNotifiesSubscribers(t *testing.T) {
	hub := NewHub()
	r, _ := newTestResolver(t, WithHub(hub), WithIDGenerator(func() string { return "fixed-id" }))
	ctx := context.Background()

	sub := hub.Subscribe("LT-1")
	defer sub.Cancel()

	res, err := r.ProposeBooking(ctx, proposal("LT-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)
	require.True(t, res.Accepted)
	assert.Equal(t, "fixed-id", res.BookingID)

	select {
	case change := <-sub.C:
		assert.Equal(t, ChangeScheduled, change.Kind)
		assert.Equal(t, "fixed-id", change.Booking.ID)
	case <-time.After(time.Second):
		t.Fatal("no change notification received")
	}
}

func TestClockAndIDInjection(t *testing.T) {
	fixed := time.Date(2026, time.September, 1, 8, 0, 0, 0, time.UTC)
	var seq int
	r, _ := newTestResolver(t,
		WithClock(func() time.Time { return fixed }),
		WithIDGenerator(func() string { seq++; return fmt.Sprintf("b-%d", seq) }),
	)
	ctx := context.Background()

	res, err := r.ProposeBooking(ctx, proposal("LT-1", at(9, 0), at(10, 0)))
	require.NoError(t, err)
	assert.Equal(t, "b-1", res.BookingID)

	b, err := r.GetBooking(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, fixed, b.CreatedAt)
	assert.Equal(t, fixed, b.UpdatedAt)
}
