package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/unitimehq/unitime/internal/model"
	"github.com/unitimehq/unitime/internal/repository"
	"github.com/unitimehq/unitime/internal/utils"
)

// UserStore is the slice of the user repository the admin handler needs.
type UserStore interface {
	Create(ctx context.Context, u *model.UserProfile) error
	ListPendingApproval(ctx context.Context) ([]model.UserProfile, error)
	SetApproved(ctx context.Context, id string, approved bool, at time.Time) error
	ListByRole(ctx context.Context, role model.Role) ([]model.UserProfile, error)
}

// RoomStore is the slice of the room repository the admin handler needs.
type RoomStore interface {
	Create(ctx context.Context, rm *model.Room) error
	GetByName(ctx context.Context, name string) (*model.Room, error)
	List(ctx context.Context) ([]model.Room, error)
	ListAvailable(ctx context.Context, start, end time.Time) ([]model.Room, error)
}

// RoomBookingLister lists a room's bookings for the room detail endpoint.
type RoomBookingLister interface {
	ListByRoom(ctx context.Context, room string) ([]model.ClassBooking, error)
}

// AdminHandler groups the administrative operations: creating and
// approving user accounts, managing the room catalog and listing people
// for the booking forms.  Mutating routes are gated on the admin role by
// middleware; the read-only listings are registered for any role in the
// router.
type AdminHandler struct {
	Users      UserStore
	Rooms      RoomStore
	Bookings   RoomBookingLister
	BcryptCost int
}

// NewAdminHandler constructs an AdminHandler.  All dependencies must be
// non-nil.
func NewAdminHandler(users UserStore, rooms RoomStore, bookings RoomBookingLister, bcryptCost int) *AdminHandler {
	if users == nil || rooms == nil || bookings == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Users: users, Rooms: rooms, Bookings: bookings, BcryptCost: bcryptCost}
}

// CreateUser handles POST /v1/users.  Admin-created accounts are approved
// immediately; self-registered ones would start unapproved, but
// registration flows live outside this service.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var body struct {
		Email      string `json:"email"`
		FullName   string `json:"full_name"`
		Role       string `json:"role"`
		Department string `json:"department"`
		Password   string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(body.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}
	if strings.TrimSpace(body.FullName) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "full_name is required"})
	}
	role := model.Role(body.Role)
	if !role.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be admin, lecturer or class_rep"})
	}
	if len(body.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}

	hash, err := utils.HashPassword(body.Password, h.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to hash password"})
	}

	now := time.Now().UTC()
	u := model.UserProfile{
		ID:           uuid.NewString(),
		Email:        body.Email,
		FullName:     strings.TrimSpace(body.FullName),
		Role:         role,
		Department:   strings.TrimSpace(body.Department),
		Approved:     true,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.Users.Create(c.Request().Context(), &u); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, u)
}

// PendingUsers handles GET /v1/users/pending.
func (h *AdminHandler) PendingUsers(c echo.Context) error {
	users, err := h.Users.ListPendingApproval(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if users == nil {
		users = []model.UserProfile{}
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

// ApproveUser handles POST /v1/users/:id/approve.
func (h *AdminHandler) ApproveUser(c echo.Context) error {
	err := h.Users.SetApproved(c.Request().Context(), c.Param("id"), true, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"approved": true})
}

// ListLecturers handles GET /v1/lecturers.
func (h *AdminHandler) ListLecturers(c echo.Context) error {
	return h.listByRole(c, model.RoleLecturer)
}

// ListClassReps handles GET /v1/class-reps.
func (h *AdminHandler) ListClassReps(c echo.Context) error {
	return h.listByRole(c, model.RoleClassRep)
}

func (h *AdminHandler) listByRole(c echo.Context, role model.Role) error {
	users, err := h.Users.ListByRole(c.Request().Context(), role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if users == nil {
		users = []model.UserProfile{}
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

// CreateRoom handles POST /v1/rooms.
func (h *AdminHandler) CreateRoom(c echo.Context) error {
	var body struct {
		Name     string `json:"name"`
		Capacity int    `json:"capacity"`
		Location string `json:"location"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if body.Capacity < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must not be negative"})
	}

	now := time.Now().UTC()
	room := model.Room{
		ID:        uuid.NewString(),
		Name:      body.Name,
		Capacity:  body.Capacity,
		Location:  strings.TrimSpace(body.Location),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Rooms.Create(c.Request().Context(), &room); err != nil {
		if errors.Is(err, repository.ErrDuplicateRoom) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "room name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, room)
}

// ListRooms handles GET /v1/rooms.
func (h *AdminHandler) ListRooms(c echo.Context) error {
	rooms, err := h.Rooms.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if rooms == nil {
		rooms = []model.Room{}
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": rooms})
}

// RoomBookings handles GET /v1/rooms/:name.  It returns the room record
// together with every booking ever placed in it, cancelled ones included,
// ordered by start time.  Unknown room names are a 404.
func (h *AdminHandler) RoomBookings(c echo.Context) error {
	room, err := h.Rooms.GetByName(c.Request().Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	bookings, err := h.Bookings.ListByRoom(c.Request().Context(), room.Name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if bookings == nil {
		bookings = []model.ClassBooking{}
	}
	return c.JSON(http.StatusOK, echo.Map{"room": room, "bookings": bookings})
}

// AvailableRooms handles GET /v1/rooms/available?start=&end=.  It lists
// rooms with no non-cancelled booking overlapping the half-open interval.
func (h *AdminHandler) AvailableRooms(c echo.Context) error {
	start, err := parseTimeParam(c, "start")
	if err != nil || start.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start must be RFC 3339"})
	}
	end, err := parseTimeParam(c, "end")
	if err != nil || end.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end must be RFC 3339"})
	}
	if !end.After(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end must be after start"})
	}

	rooms, err := h.Rooms.ListAvailable(c.Request().Context(), start, end)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if rooms == nil {
		rooms = []model.Room{}
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": rooms})
}
