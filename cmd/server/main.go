package main // Entry point package

import (
	"context" // Context for startup deadlines
	"log"     // Logging library

	"github.com/joho/godotenv"    // Loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/unitimehq/unitime/internal/cache"      // Redis-backed room locks
	"github.com/unitimehq/unitime/internal/config"     // Internal config loader
	"github.com/unitimehq/unitime/internal/database"   // MySQL connection and schema
	"github.com/unitimehq/unitime/internal/handler"    // HTTP handlers
	"github.com/unitimehq/unitime/internal/middleware" // Rate limiting middleware
	"github.com/unitimehq/unitime/internal/queue"      // Booking event publisher and consumer
	"github.com/unitimehq/unitime/internal/repository" // Data access layer
	"github.com/unitimehq/unitime/internal/router"     // Internal router setup
	"github.com/unitimehq/unitime/internal/scheduling" // Booking conflict resolver
)

func main() {
	_ = godotenv.Load()  // Load .env when present; real env vars win
	cfg := config.Load() // Load environment config

	// Open MySQL and apply the schema.  Startup fails fast when the
	// database is unreachable.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Repositories share the single connection pool.
	bookings := repository.NewBookingRepo(db)
	schedules := repository.NewScheduleRepo(db)
	users := repository.NewUserRepo(db)
	rooms := repository.NewRoomRepo(db)

	// Redis is optional: without it the resolver still serialises per room
	// in-process and the rate limiter disables itself.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; cross-instance room locks and rate limiting disabled")
	}

	opts := []scheduling.Option{scheduling.WithHub(scheduling.NewHub())}
	if rdb != nil {
		opts = append(opts, scheduling.WithRoomLocker(cache.NewRedisCache(rdb)))
	}
	if cfg.BrokerURL != "" {
		opts = append(opts, scheduling.WithPublisher(queue.NewPublisher(cfg.BrokerURL)))
		// The consumer records booking events to logs/timetable.log and
		// reconnects on broker outages.
		go func() {
			if err := queue.StartEventConsumer(cfg.BrokerURL); err != nil {
				log.Printf("event consumer stopped: %v", err)
			}
		}()
	}
	resolver := scheduling.NewResolver(bookings, schedules, users, opts...)

	e := echo.New() // Create Echo instance
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterRoutes(e) // Health check and metrics
	router.RegisterBooking(e,
		handler.NewBookingHandler(resolver),
		handler.NewScheduleHandler(schedules, resolver),
		handler.NewAdminHandler(users, rooms, bookings, cfg.BcryptCost),
		cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
