package handler

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/unitimehq/unitime/internal/model"
	"github.com/unitimehq/unitime/internal/repository"
	"github.com/unitimehq/unitime/internal/scheduling"
)

// ScheduleHandler serves per-person schedule reads and the index rebuild
// operation.  Reads go straight to the schedule repository; the rebuild
// routes through the resolver so the person is verified first.
type ScheduleHandler struct {
	Schedules *repository.ScheduleRepo
	Resolver  *scheduling.Resolver
}

// NewScheduleHandler constructs a ScheduleHandler.  Both dependencies must
// be non-nil.
func NewScheduleHandler(schedules *repository.ScheduleRepo, resolver *scheduling.Resolver) *ScheduleHandler {
	if schedules == nil || resolver == nil {
		panic("nil dependency passed to NewScheduleHandler")
	}
	return &ScheduleHandler{Schedules: schedules, Resolver: resolver}
}

// PersonSchedule handles GET /v1/people/:id/schedule?from=&until=.  It
// returns the person's bookings in index order, cancelled ones included;
// clients filter by status when rendering a current timetable.  The
// optional from/until bounds are RFC 3339 and restrict by start time.
func (h *ScheduleHandler) PersonSchedule(c echo.Context) error {
	from, err := parseTimeParam(c, "from")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "from must be RFC 3339"})
	}
	until, err := parseTimeParam(c, "until")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "until must be RFC 3339"})
	}

	bookings, err := h.Schedules.BookingsForPerson(c.Request().Context(), c.Param("id"),
		sql.NullTime{Time: from, Valid: !from.IsZero()},
		sql.NullTime{Time: until, Valid: !until.IsZero()})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if bookings == nil {
		bookings = []model.ClassBooking{}
	}
	return c.JSON(http.StatusOK, echo.Map{"person_id": c.Param("id"), "bookings": bookings})
}

// RebuildIndex handles POST /v1/people/:id/schedule/rebuild.  It drops and
// reproduces the person's schedule index from the booking records and
// reports how many entries were written.
func (h *ScheduleHandler) RebuildIndex(c echo.Context) error {
	n, err := h.Resolver.RebuildScheduleIndex(c.Request().Context(), c.Param("id"))
	if err != nil {
		return schedulingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"person_id": c.Param("id"), "entries": n})
}
