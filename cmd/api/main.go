package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/legendspp/hotel-bookings/internal/availability"
	"github.com/legendspp/hotel-bookings/internal/http/handlers"
	httpmw "github.com/legendspp/hotel-bookings/internal/http/middleware"
	"github.com/legendspp/hotel-bookings/internal/mailer"
	"github.com/legendspp/hotel-bookings/internal/notify"
	"github.com/legendspp/hotel-bookings/internal/payments"
	"github.com/legendspp/hotel-bookings/internal/repo/postgres"
	"github.com/legendspp/hotel-bookings/internal/service"
	"github.com/legendspp/hotel-bookings/internal/sweep"
	"github.com/legendspp/hotel-bookings/pkg/config"
	"github.com/legendspp/hotel-bookings/pkg/database"
	"github.com/legendspp/hotel-bookings/pkg/events"
	"github.com/legendspp/hotel-bookings/pkg/logger"
	mw "github.com/legendspp/hotel-bookings/pkg/middleware"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Repositories
	roomRepo := postgres.NewRoomRepository(pool)
	bookingRepo := postgres.NewBookingRepository(pool)

	// Collaborators
	gateway := payments.NewStripeGateway(cfg.Payment, cfg.App.ConfirmationURL)
	engine := availability.New(roomRepo, bookingRepo)
	bookingService := service.NewBookingService(engine, bookingRepo, roomRepo, gateway, eventBus)

	// Notifier consumes booking events and sends emails
	notifier := notify.New(eventBus, buildMailer(cfg), cfg.Email)
	if err := notifier.Start(); err != nil {
		logger.Error("Failed to start notifier", "error", err)
		os.Exit(1)
	}

	// Housekeeping sweep
	sweeper := sweep.New(bookingRepo, roomRepo, eventBus, cfg.Booking.SweepInterval, cfg.Booking.PendingGrace)
	go sweeper.Run(ctx)

	// Handlers
	h := handlers.New(bookingService, gateway, cfg)
	rateLimiter := httpmw.NewRateLimiter(rdb, cfg.Booking.RateLimitMax, cfg.Booking.RateLimitWindow)
	idempotency := httpmw.Idempotency(httpmw.NewRedisStore(rdb))

	// Setup router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("bookings"))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.App.BaseURL, "http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/rooms", h.ListRooms)
		r.Get("/availability", h.GetAvailability)

		r.Route("/bookings", func(r chi.Router) {
			r.With(rateLimiter.Middleware, idempotency).Post("/", h.CreateBooking)
			r.Get("/{id}", h.GetBooking)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/webhook", h.PaymentWebhook)
			r.Post("/confirm", h.ConfirmPayment)
		})

		r.Post("/auth/login", h.Login)

		r.Route("/admin/bookings", func(r chi.Router) {
			r.Use(h.RequireStaff)
			r.Get("/", h.ListBookings)
			r.Patch("/{id}", h.UpdateBooking)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()

		logger.Info("Shutting down bookings service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Bookings service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting bookings service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Bookings service error", "error", err)
		os.Exit(1)
	}
}

func buildMailer(cfg *config.Config) mailer.Service {
	switch {
	case cfg.Email.DevMode:
		return mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		return mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
	default:
		return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom,
			cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}
}
