package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unitimehq/unitime/internal/handler"    // import the handlers that implement business logic
	"github.com/unitimehq/unitime/internal/middleware" // import middleware for JWT authentication and role enforcement
	"github.com/unitimehq/unitime/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: the health check and the Prometheus metrics
// endpoint.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
	// Expose Prometheus metrics; the scraper does not authenticate.
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterBooking registers the booking, schedule and administration
// endpoints under /v1.  All routes require a valid access token; the
// mutating booking paths and the administrative paths further restrict the
// caller's role.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, s *handler.ScheduleHandler, a *handler.AdminHandler, jwtSecret string) {
	admin := string(model.RoleAdmin)
	lecturer := string(model.RoleLecturer)
	classRep := string(model.RoleClassRep)

	// All protected endpoints live under /v1 and run the JWTAuth middleware
	// before being invoked.  RequireRole with all three roles rejects
	// tokens that carry a missing or unknown role claim.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(admin, lecturer, classRep))

	// Proposing a booking is how classes enter the timetable; only admins
	// operate the booking desk.  Reschedule and cancel are also open to
	// lecturers; the handler checks they only touch their own classes.
	auth.POST("/bookings", b.Propose, middleware.RequireRole(admin))
	auth.POST("/bookings/:id/reschedule", b.Reschedule, middleware.RequireRole(admin, lecturer))
	auth.POST("/bookings/:id/cancel", b.Cancel, middleware.RequireRole(admin, lecturer))
	auth.POST("/bookings/:id/status", b.SetStatus, middleware.RequireRole(admin))
	auth.GET("/bookings/:id", b.Get)

	// Conflict inspection and room browsing are read-only and open to any
	// authenticated role.
	auth.GET("/rooms/available", a.AvailableRooms)
	auth.GET("/rooms/:name/conflicts", b.Conflicts)
	auth.GET("/rooms/:name", a.RoomBookings)
	auth.GET("/rooms", a.ListRooms)
	auth.POST("/rooms", a.CreateRoom, middleware.RequireRole(admin))

	// Account administration.
	auth.POST("/users", a.CreateUser, middleware.RequireRole(admin))
	auth.GET("/users/pending", a.PendingUsers, middleware.RequireRole(admin))
	auth.POST("/users/:id/approve", a.ApproveUser, middleware.RequireRole(admin))
	auth.GET("/lecturers", a.ListLecturers, middleware.RequireRole(admin))
	auth.GET("/class-reps", a.ListClassReps, middleware.RequireRole(admin))

	// Per-person schedules.
	auth.GET("/people/:id/schedule", s.PersonSchedule)
	auth.POST("/people/:id/schedule/rebuild", s.RebuildIndex, middleware.RequireRole(admin))
}
