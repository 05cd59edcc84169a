package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/unitimehq/unitime/internal/scheduling"
)

// getUserID extracts the authenticated user's ID placed into the context by
// the JWT middleware.  It returns an error when the value is missing or not
// a string, which handlers translate to 401 Unauthorized.
func getUserID(c echo.Context) (string, error) {
	v := c.Get("user_id")
	s, ok := v.(string)
	if !ok || s == "" {
		return "", errors.New("no user in context")
	}
	return s, nil
}

// schedulingError translates resolver errors into HTTP responses.  A
// *scheduling.ValidationError becomes 400 with the offending field; the
// resolver's sentinels map to 404, 422 and 503; anything else is a 500.
func schedulingError(c echo.Context, err error) error {
	var ve *scheduling.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Message, "field": ve.Field})
	case errors.Is(err, scheduling.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, scheduling.ErrUnknownParticipant):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, scheduling.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "storage temporarily unavailable, retry later"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// parseTimeParam parses an RFC 3339 query parameter.  Missing values return
// the zero time without error so callers can treat them as unbounded.
func parseTimeParam(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
