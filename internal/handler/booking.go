package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/unitimehq/unitime/internal/model"
	"github.com/unitimehq/unitime/internal/scheduling"
)

// BookingHandler exposes the booking operations over HTTP.  All methods
// assume that JWT authentication and role validation has already been
// performed by middleware.  Conflict decisions live in the scheduling
// resolver; the handler only binds requests and shapes responses.
type BookingHandler struct {
	Resolver *scheduling.Resolver
}

// NewBookingHandler constructs a BookingHandler.  The resolver must be
// non-nil.
func NewBookingHandler(resolver *scheduling.Resolver) *BookingHandler {
	if resolver == nil {
		panic("nil resolver passed to NewBookingHandler")
	}
	return &BookingHandler{Resolver: resolver}
}

// Propose handles POST /v1/bookings.  The body is a ProposeRequest with
// RFC 3339 start/end times.  An accepted proposal returns 201 with the new
// booking id; a rejected one returns 200 with accepted=false and the
// reason, since rejection is a normal outcome rather than an error.
func (h *BookingHandler) Propose(c echo.Context) error {
	var req scheduling.ProposeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	res, err := h.Resolver.ProposeBooking(c.Request().Context(), req)
	if err != nil {
		return schedulingError(c, err)
	}
	if !res.Accepted {
		return c.JSON(http.StatusOK, res)
	}
	return c.JSON(http.StatusCreated, res)
}

// requireOwnBooking enforces that a lecturer only mutates bookings they
// teach; admins pass through untouched.  When it has written a response it
// reports done=true and the caller returns its error value as-is.
func (h *BookingHandler) requireOwnBooking(c echo.Context, bookingID string) (done bool, err error) {
	role, _ := c.Get("role").(string)
	if role != string(model.RoleLecturer) {
		return false, nil
	}
	uid, err := getUserID(c)
	if err != nil {
		return true, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := h.Resolver.GetBooking(c.Request().Context(), bookingID)
	if err != nil {
		return true, schedulingError(c, err)
	}
	if b.LecturerID != uid {
		return true, c.JSON(http.StatusForbidden, echo.Map{"error": "only the assigned lecturer may modify this booking"})
	}
	return false, nil
}

// Reschedule handles POST /v1/bookings/:id/reschedule.  The body carries
// the new slot and an optional new room; the booking id comes from the
// path.  Lecturers may only move their own classes.
func (h *BookingHandler) Reschedule(c echo.Context) error {
	if done, err := h.requireOwnBooking(c, c.Param("id")); done {
		return err
	}
	var req scheduling.RescheduleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.BookingID = c.Param("id")

	res, err := h.Resolver.RescheduleBooking(c.Request().Context(), req)
	if err != nil {
		return schedulingError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Cancel handles POST /v1/bookings/:id/cancel.  Cancelling an already
// cancelled booking succeeds without change.  Lecturers may only cancel
// their own classes.
func (h *BookingHandler) Cancel(c echo.Context) error {
	if done, err := h.requireOwnBooking(c, c.Param("id")); done {
		return err
	}
	res, err := h.Resolver.CancelBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return schedulingError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// SetStatus handles POST /v1/bookings/:id/status: the administrative
// override that sets a status with free-text notes, bypassing conflict
// checks.
func (h *BookingHandler) SetStatus(c echo.Context) error {
	var body struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	res, err := h.Resolver.SetBookingStatus(c.Request().Context(), c.Param("id"), model.BookingStatus(body.Status), body.Notes)
	if err != nil {
		return schedulingError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	b, err := h.Resolver.GetBooking(c.Request().Context(), c.Param("id"))
	if err != nil {
		return schedulingError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Conflicts handles GET /v1/rooms/:name/conflicts?start=&end=&exclude=.
// It returns the non-cancelled bookings in the room overlapping the given
// half-open interval, ordered by start time.
func (h *BookingHandler) Conflicts(c echo.Context) error {
	start, err := parseTimeParam(c, "start")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start must be RFC 3339"})
	}
	end, err := parseTimeParam(c, "end")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end must be RFC 3339"})
	}

	conflicts, err := h.Resolver.FindConflicts(c.Request().Context(), c.Param("name"), start, end, c.QueryParam("exclude"))
	if err != nil {
		return schedulingError(c, err)
	}
	if conflicts == nil {
		conflicts = []model.ClassBooking{}
	}
	return c.JSON(http.StatusOK, echo.Map{"conflicts": conflicts})
}
