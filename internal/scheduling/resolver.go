package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unitimehq/unitime/internal/metrics"
	"github.com/unitimehq/unitime/internal/model"
	"github.com/unitimehq/unitime/internal/repository"
)

// ReasonRoomBooked is the rejection reason reported when the proposed
// interval overlaps an existing non-cancelled booking in the same room.
const ReasonRoomBooked = "room already booked in this interval"

// ReasonRoomLocked is reported when another in-flight proposal holds the
// cross-instance lock for the room.  The caller may simply try again.
const ReasonRoomLocked = "room is locked by another request, try again"

// ReasonBookingCancelled is reported when a reschedule targets a cancelled
// booking.  A cancelled class does not come back by moving it; it must be
// proposed again.
const ReasonBookingCancelled = "booking is cancelled, propose a new one"

// roomLockTTL bounds how long a crashed process can keep a room locked.
const roomLockTTL = 10 * time.Second

// BookingStore captures the persistence interactions needed by the
// resolver.  CreateScheduled must write the booking record and both
// schedule index entries as a single transaction, and must re-run the
// overlap check inside that transaction, returning
// repository.ErrRoomConflict when it fails.  Reschedule carries the same
// in-transaction re-check for the target room.
type BookingStore interface {
	FindOverlapping(ctx context.Context, room string, start, end time.Time, excludeID string) ([]model.ClassBooking, error)
	CreateScheduled(ctx context.Context, b *model.ClassBooking) error
	GetByID(ctx context.Context, id string) (*model.ClassBooking, error)
	Reschedule(ctx context.Context, b *model.ClassBooking) error
	SetStatus(ctx context.Context, id string, status model.BookingStatus, notes string, at time.Time) error
}

// ScheduleIndex exposes the recovery operation on the derived per-person
// index: reproducing it from a full scan of the booking collection.
type ScheduleIndex interface {
	Rebuild(ctx context.Context, personID string) (int, error)
}

// Directory resolves participant identifiers to profiles.  Implementations
// return repository.ErrUserNotFound when the identifier is unknown.
type Directory interface {
	ProfileByID(ctx context.Context, id string) (*model.UserProfile, error)
}

// RoomLocker provides cross-instance mutual exclusion keyed by room name.
// The Redis implementation lives in internal/cache; a nil locker degrades
// to in-process exclusion only.
type RoomLocker interface {
	AcquireRoomLock(ctx context.Context, room string, ttl time.Duration) (bool, error)
	ReleaseRoomLock(ctx context.Context, room string) error
}

// EventPublisher pushes committed booking changes to external consumers.
// Publish failures must not undo a committed booking; the resolver logs
// and carries on.
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, kind ChangeKind, b model.ClassBooking) error
}

// Result is the outcome of a booking operation.  A rejected proposal is a
// normal, expected outcome distinguished from errors: Accepted is false
// and Reason explains why, with no state mutated.
type Result struct {
	Accepted  bool   `json:"accepted"`
	BookingID string `json:"booking_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// ProposeRequest carries a proposed class booking.
type ProposeRequest struct {
	CourseCode string    `json:"course_code"`
	Title      string    `json:"title"`
	Room       string    `json:"room"`
	LecturerID string    `json:"lecturer_id"`
	ClassRepID string    `json:"class_rep_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

// RescheduleRequest moves an existing booking to a new slot.  NewRoom may
// be empty to keep the current room.
type RescheduleRequest struct {
	BookingID string    `json:"booking_id"`
	NewRoom   string    `json:"new_room,omitempty"`
	NewStart  time.Time `json:"new_start"`
	NewEnd    time.Time `json:"new_end"`
}

// Resolver accepts or rejects proposed bookings based on room-time overlap
// and, on acceptance, durably records the booking and updates both
// participant schedule indexes as a single logical unit.
type Resolver struct {
	store     BookingStore
	index     ScheduleIndex
	directory Directory
	locker    RoomLocker
	publisher EventPublisher
	hub       *Hub
	locks     *roomLocks
	newID     func() string
	now       func() time.Time
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithRoomLocker adds cross-instance room locking (Redis SetNX).
func WithRoomLocker(l RoomLocker) Option { return func(r *Resolver) { r.locker = l } }

// WithPublisher adds an event publisher for committed changes.
func WithPublisher(p EventPublisher) Option { return func(r *Resolver) { r.publisher = p } }

// WithHub attaches an in-process subscription hub notified on commit.
func WithHub(h *Hub) Option { return func(r *Resolver) { r.hub = h } }

// WithIDGenerator overrides booking id generation (tests).
func WithIDGenerator(gen func() string) Option { return func(r *Resolver) { r.newID = gen } }

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option { return func(r *Resolver) { r.now = now } }

// NewResolver wires the resolver's dependencies.  store, index and
// directory are required; the rest are optional.
func NewResolver(store BookingStore, index ScheduleIndex, directory Directory, opts ...Option) *Resolver {
	if store == nil || index == nil || directory == nil {
		panic("nil dependency passed to NewResolver")
	}
	r := &Resolver{
		store:     store,
		index:     index,
		directory: directory,
		locks:     newRoomLocks(),
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ProposeBooking validates the request, resolves both participants,
// serialises on the room and commits the booking together with both
// schedule index appends when no non-cancelled booking in the room
// overlaps [Start, End).
func (r *Resolver) ProposeBooking(ctx context.Context, req ProposeRequest) (Result, error) {
	if err := validatePropose(req); err != nil {
		return Result{}, err
	}

	lecturer, err := r.resolveParticipant(ctx, req.LecturerID, model.RoleLecturer)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(lecturer.Email) == "" {
		return Result{}, fmt.Errorf("%w: lecturer %s has no contact address", ErrUnknownParticipant, req.LecturerID)
	}
	if _, err := r.resolveParticipant(ctx, req.ClassRepID, model.RoleClassRep); err != nil {
		return Result{}, err
	}

	unlock, ok, err := r.lockRoom(ctx, req.Room)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Accepted: false, Reason: ReasonRoomLocked}, nil
	}
	defer unlock()

	conflicts, err := r.store.FindOverlapping(ctx, req.Room, req.Start, req.End, "")
	if err != nil {
		return Result{}, mapStoreErr(err)
	}
	if len(conflicts) > 0 {
		metrics.ProposalsRejected.Inc()
		return Result{Accepted: false, Reason: ReasonRoomBooked}, nil
	}

	now := r.now()
	booking := model.ClassBooking{
		ID:            r.newID(),
		CourseCode:    strings.TrimSpace(req.CourseCode),
		Title:         strings.TrimSpace(req.Title),
		Room:          req.Room,
		LecturerID:    req.LecturerID,
		LecturerEmail: lecturer.Email,
		ClassRepID:    req.ClassRepID,
		Start:         req.Start,
		End:           req.End,
		Status:        model.BookingScheduled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := r.store.CreateScheduled(ctx, &booking); err != nil {
		if errors.Is(err, repository.ErrRoomConflict) {
			metrics.ProposalsRejected.Inc()
			return Result{Accepted: false, Reason: ReasonRoomBooked}, nil
		}
		return Result{}, mapStoreErr(err)
	}

	metrics.ProposalsAccepted.Inc()
	r.notify(ctx, ChangeScheduled, booking)
	return Result{Accepted: true, BookingID: booking.ID}, nil
}

// RescheduleBooking re-runs the overlap test against the new room and
// interval, excluding the booking itself, and on success moves the current
// slot into the previous-slot fields.  Index membership is unchanged: the
// identifier stays valid in both participants' schedules.
func (r *Resolver) RescheduleBooking(ctx context.Context, req RescheduleRequest) (Result, error) {
	if req.BookingID == "" {
		return Result{}, validationErr("booking_id", "booking_id is required")
	}
	if err := validateInterval(req.NewStart, req.NewEnd, "new_start", "new_end"); err != nil {
		return Result{}, err
	}

	existing, err := r.store.GetByID(ctx, req.BookingID)
	if err != nil {
		return Result{}, mapStoreErr(err)
	}
	if existing.Status == model.BookingCancelled {
		return Result{Accepted: false, Reason: ReasonBookingCancelled}, nil
	}

	targetRoom := req.NewRoom
	if targetRoom == "" {
		targetRoom = existing.Room
	}

	unlock, ok, err := r.lockRoom(ctx, targetRoom)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Accepted: false, Reason: ReasonRoomLocked}, nil
	}
	defer unlock()

	conflicts, err := r.store.FindOverlapping(ctx, targetRoom, req.NewStart, req.NewEnd, existing.ID)
	if err != nil {
		return Result{}, mapStoreErr(err)
	}
	if len(conflicts) > 0 {
		return Result{Accepted: false, Reason: ReasonRoomBooked}, nil
	}

	updated := *existing
	prevRoom, prevStart, prevEnd := existing.Room, existing.Start, existing.End
	updated.PreviousRoom = &prevRoom
	updated.PreviousStart = &prevStart
	updated.PreviousEnd = &prevEnd
	updated.Room = targetRoom
	updated.Start = req.NewStart
	updated.End = req.NewEnd
	updated.Status = model.BookingRescheduled
	updated.UpdatedAt = r.now()

	if err := r.store.Reschedule(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrRoomConflict) {
			return Result{Accepted: false, Reason: ReasonRoomBooked}, nil
		}
		return Result{}, mapStoreErr(err)
	}

	metrics.Reschedules.Inc()
	r.notify(ctx, ChangeRescheduled, updated)
	return Result{Accepted: true, BookingID: updated.ID}, nil
}

// CancelBooking sets the status to cancelled.  The interval stops blocking
// the room but the identifier remains in both historical schedule indexes.
// Cancelling an already-cancelled booking is a no-op success.
func (r *Resolver) CancelBooking(ctx context.Context, bookingID string) (Result, error) {
	if bookingID == "" {
		return Result{}, validationErr("booking_id", "booking_id is required")
	}
	existing, err := r.store.GetByID(ctx, bookingID)
	if err != nil {
		return Result{}, mapStoreErr(err)
	}
	if existing.Status == model.BookingCancelled {
		return Result{Accepted: true, BookingID: bookingID}, nil
	}

	now := r.now()
	if err := r.store.SetStatus(ctx, bookingID, model.BookingCancelled, existing.StatusNotes, now); err != nil {
		return Result{}, mapStoreErr(err)
	}

	cancelled := *existing
	cancelled.Status = model.BookingCancelled
	cancelled.UpdatedAt = now

	metrics.Cancellations.Inc()
	r.notify(ctx, ChangeCancelled, cancelled)
	return Result{Accepted: true, BookingID: bookingID}, nil
}

// SetBookingStatus is the administrative status override with free-text
// notes.  It does not run conflict checks; use RescheduleBooking to move a
// booking.
func (r *Resolver) SetBookingStatus(ctx context.Context, bookingID string, status model.BookingStatus, notes string) (Result, error) {
	if bookingID == "" {
		return Result{}, validationErr("booking_id", "booking_id is required")
	}
	if !status.Valid() {
		return Result{}, validationErr("status", "status must be scheduled, cancelled or rescheduled")
	}
	if _, err := r.store.GetByID(ctx, bookingID); err != nil {
		return Result{}, mapStoreErr(err)
	}
	if err := r.store.SetStatus(ctx, bookingID, status, notes, r.now()); err != nil {
		return Result{}, mapStoreErr(err)
	}
	return Result{Accepted: true, BookingID: bookingID}, nil
}

// FindConflicts returns every non-cancelled booking in the room whose
// interval overlaps [start, end), excluding excludeID when non-empty.
// Each call re-issues the query, so the sequence is restartable.
func (r *Resolver) FindConflicts(ctx context.Context, room string, start, end time.Time, excludeID string) ([]model.ClassBooking, error) {
	if room == "" {
		return nil, validationErr("room", "room is required")
	}
	if err := validateInterval(start, end, "start", "end"); err != nil {
		return nil, err
	}
	conflicts, err := r.store.FindOverlapping(ctx, room, start, end, excludeID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return conflicts, nil
}

// GetBooking returns a single booking by id.
func (r *Resolver) GetBooking(ctx context.Context, bookingID string) (*model.ClassBooking, error) {
	b, err := r.store.GetByID(ctx, bookingID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return b, nil
}

// RebuildScheduleIndex reproduces a person's schedule index from a full
// booking scan.  It is the recovery pass for a crash between the booking
// write and an index update, and returns the number of entries written.
func (r *Resolver) RebuildScheduleIndex(ctx context.Context, personID string) (int, error) {
	if personID == "" {
		return 0, validationErr("person_id", "person_id is required")
	}
	if _, err := r.directory.ProfileByID(ctx, personID); err != nil {
		return 0, mapStoreErr(err)
	}
	n, err := r.index.Rebuild(ctx, personID)
	if err != nil {
		return 0, mapStoreErr(err)
	}
	return n, nil
}

func (r *Resolver) resolveParticipant(ctx context.Context, id string, want model.Role) (*model.UserProfile, error) {
	profile, err := r.directory.ProfileByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: %s %s", ErrUnknownParticipant, want, id)
		}
		return nil, mapStoreErr(err)
	}
	if profile.Role != want {
		return nil, fmt.Errorf("%w: %s is not a %s", ErrUnknownParticipant, id, want)
	}
	return profile, nil
}

// lockRoom serialises check-then-write on a room.  The in-process mutex is
// always taken; the cross-instance lock only when a locker is configured.
// The returned unlock releases both.
func (r *Resolver) lockRoom(ctx context.Context, room string) (func(), bool, error) {
	mu := r.locks.get(room)
	mu.Lock()
	if r.locker == nil {
		return mu.Unlock, true, nil
	}
	ok, err := r.locker.AcquireRoomLock(ctx, room, roomLockTTL)
	if err != nil {
		mu.Unlock()
		return nil, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		mu.Unlock()
		return nil, false, nil
	}
	return func() {
		if err := r.locker.ReleaseRoomLock(ctx, room); err != nil {
			log.Printf("scheduling: release room lock %q failed: %v", room, err)
		}
		mu.Unlock()
	}, true, nil
}

func (r *Resolver) notify(ctx context.Context, kind ChangeKind, b model.ClassBooking) {
	if r.hub != nil {
		r.hub.Broadcast(Change{Kind: kind, Booking: b})
	}
	if r.publisher != nil {
		if err := r.publisher.PublishBookingEvent(ctx, kind, b); err != nil {
			log.Printf("scheduling: publish %s event for booking %s failed: %v", kind, b.ID, err)
		}
	}
}

func validatePropose(req ProposeRequest) error {
	if strings.TrimSpace(req.CourseCode) == "" {
		return validationErr("course_code", "course_code is required")
	}
	if req.Room == "" {
		return validationErr("room", "room is required")
	}
	if req.LecturerID == "" {
		return validationErr("lecturer_id", "lecturer_id is required")
	}
	if req.ClassRepID == "" {
		return validationErr("class_rep_id", "class_rep_id is required")
	}
	return validateInterval(req.Start, req.End, "start", "end")
}

func validateInterval(start, end time.Time, startField, endField string) error {
	if start.IsZero() {
		return validationErr(startField, startField+" is required")
	}
	if end.IsZero() {
		return validationErr(endField, endField+" is required")
	}
	if !end.After(start) {
		return validationErr(endField, endField+" must be after "+startField)
	}
	return nil
}

// mapStoreErr folds persistence errors into the resolver's taxonomy.
// Known sentinels pass through; anything else is treated as a transient
// store failure and surfaced for the caller to retry with backoff.
func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrBookingNotFound):
		return ErrBookingNotFound
	case errors.Is(err, repository.ErrUserNotFound):
		return fmt.Errorf("%w: no such person", ErrUnknownParticipant)
	case errors.Is(err, ErrBookingNotFound), errors.Is(err, ErrUnknownParticipant), errors.Is(err, ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
