package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"gatherly/config"
	_ "gatherly/docs"
	"gatherly/internal/adapters/auth"
	"gatherly/internal/adapters/email"
	"gatherly/internal/adapters/notify"
	"gatherly/internal/adapters/recsvc"
	delivery "gatherly/internal/delivery/http"
	"gatherly/internal/delivery/http/controllers"
	"gatherly/internal/delivery/http/middleware"
	"gatherly/internal/domain"
	"gatherly/internal/repository/postgres"
	"gatherly/internal/services"
)

// @title Gatherly API
// @version 1.0
// @description Group event scheduling: lifecycle, venue voting, waitlists, recurrence, check-ins.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Environment)

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("failed to reach database", "err", err)
		os.Exit(1)
	}
	if err := postgres.RunMigrations(db, "migrations"); err != nil {
		logger.Error("failed to run migrations", "err", err)
		os.Exit(1)
	}

	// Repositories
	eventRepo := postgres.NewEventRepository(db)
	participantRepo := postgres.NewParticipantRepository(db)
	optionRepo := postgres.NewVenueOptionRepository(db)
	voteRepo := postgres.NewVoteRepository(db)
	waitlistRepo := postgres.NewWaitlistRepository(db)
	templateRepo := postgres.NewRecurringTemplateRepository(db)
	checkInRepo := postgres.NewCheckInRepository(db)
	feedbackRepo := postgres.NewFeedbackRepository(db)
	userRepo := postgres.NewUserRepository(db)

	// Adapters
	hasher := auth.NewBcryptHasher(bcrypt.DefaultCost)
	tokenIssuer := auth.NewJWTIssuer(cfg.JWTSecret)
	tokenVerifier := auth.NewJWTVerifier(cfg.JWTSecret)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Mailer.Provider,
		FromAddress: cfg.Mailer.FromAddress,
		FromName:    cfg.Mailer.FromName,
		SES: email.SESConfig{
			Region:          cfg.Mailer.SESRegion,
			AccessKeyID:     cfg.Mailer.SESAccessKeyID,
			SecretAccessKey: cfg.Mailer.SESSecretKey,
		},
	})
	if err != nil {
		logger.Error("failed to create mailer", "err", err)
		os.Exit(1)
	}

	var notifier domain.Notifier
	if cfg.RedisURL != "" {
		notifier, err = notify.NewRedisNotifier(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to create redis notifier", "err", err)
			os.Exit(1)
		}
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	var prefAggregator domain.PreferenceAggregator
	var recommender domain.RecommendationGenerator
	var placeReader domain.PlaceReader
	if cfg.RecommenderURL != "" {
		client := recsvc.NewClient(cfg.RecommenderURL, &http.Client{Timeout: cfg.ServiceTimeout})
		prefAggregator, recommender, placeReader = client, client, client
	} else {
		logger.Warn("RECOMMENDER_URL not set, recommendation generation disabled")
		prefAggregator, recommender, placeReader = recsvc.Disabled{}, recsvc.Disabled{}, recsvc.Disabled{}
	}

	// Services
	waitlistSvc := services.NewWaitlistService(eventRepo, participantRepo, waitlistRepo, notifier, logger, cfg.ServiceTimeout)
	eventSvc := services.NewEventService(eventRepo, participantRepo, optionRepo, voteRepo, userRepo,
		prefAggregator, recommender, waitlistSvc, notifier, mailer, logger, cfg.ServiceTimeout)
	voteSvc := services.NewVoteService(eventRepo, optionRepo, voteRepo, participantRepo, placeReader, notifier, logger, cfg.ServiceTimeout)
	recurrenceSvc := services.NewRecurrenceService(templateRepo, eventRepo, logger, cfg.ServiceTimeout)
	checkInSvc := services.NewCheckInService(eventRepo, participantRepo, checkInRepo, feedbackRepo, cfg.ServiceTimeout)
	userSvc := services.NewUserService(userRepo, hasher, tokenIssuer, cfg.TokenExpiry, cfg.ServiceTimeout)

	mux := delivery.NewRouter(delivery.Controllers{
		Auth:        controllers.NewAuthController(logger, userSvc),
		Event:       controllers.NewEventController(logger, eventSvc),
		Participant: controllers.NewParticipantController(logger, eventSvc),
		Vote:        controllers.NewVoteController(logger, voteSvc),
		Waitlist:    controllers.NewWaitlistController(logger, waitlistSvc),
		Recurrence:  controllers.NewRecurrenceController(logger, recurrenceSvc),
		CheckIn:     controllers.NewCheckInController(logger, checkInSvc),
	}, tokenVerifier, logger)

	handler := middleware.LoggingMiddleware(logger, middleware.CORS(cfg.AllowedOrigins, mux))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
			os.Exit(1)
		}
	}()

	// Periodically materialize due occurrences of active recurring templates.
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-schedulerCtx.Done():
				return
			case now := <-ticker.C:
				created, err := recurrenceSvc.GenerateDueOccurrences(schedulerCtx, now)
				if err != nil {
					logger.Error("occurrence generation failed", "err", err)
					continue
				}
				if len(created) > 0 {
					logger.Info("materialized recurring events", "count", len(created))
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	stopScheduler()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}
