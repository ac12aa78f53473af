package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prk-tuition/homework-service/internal/auth"
	"github.com/prk-tuition/homework-service/internal/config"
	"github.com/prk-tuition/homework-service/internal/delivery/httpd"
	"github.com/prk-tuition/homework-service/internal/middleware"
	"github.com/prk-tuition/homework-service/internal/repository"
	"github.com/prk-tuition/homework-service/internal/service"
	"github.com/prk-tuition/homework-service/internal/service/integration"
	"github.com/rs/zerolog"
)

type App struct {
	server    *http.Server
	logger    zerolog.Logger
	config    *config.Config
	storage   *Storage
	publisher integration.EventPublisher
}

func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	storage, err := NewStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	var sessions auth.SessionStore
	if storage.redis != nil && cfg.Auth.SessionStore == config.CacheDriverRedis {
		sessions = auth.NewRedisSessionStore(storage.redis)
	} else {
		sessions = auth.NewMemorySessionStore()
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL, sessions)

	// The broker and object storage are optional: without them the API
	// still serves, with no notifications and no receipt uploads.
	var publisher integration.EventPublisher
	if client, err := integration.NewRabbitMQClient(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.QueueName, log); err != nil {
		log.Error().Err(err).Msg("Failed to connect to RabbitMQ, notifications disabled")
	} else {
		publisher = client
	}

	var receipts repository.ReceiptStorage
	if cfg.MinIO.Endpoint != "" {
		receipts, err = repository.NewMinIOReceiptStorage(
			cfg.MinIO.Endpoint,
			cfg.MinIO.AccessKey,
			cfg.MinIO.SecretKey,
			cfg.MinIO.Bucket,
			cfg.MinIO.Region,
			cfg.MinIO.UseSSL,
			cfg.MinIO.ConnectTimeout,
			log,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create MinIO client, receipt uploads disabled")
			receipts = nil
		}
	}

	clock := service.SystemClock(cfg.School.Location())
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	validator := service.NewValidator()

	authService := service.NewAuthService(storage.Users, hasher, tokens, validator, clock, cfg.School.PointsMilestone, log)
	registrationService := service.NewRegistrationService(
		storage.Users,
		receipts,
		publisher,
		hasher,
		validator,
		clock,
		service.RegistrationConfig{
			UPIID:         cfg.School.UPIID,
			PresignExpiry: cfg.MinIO.PresignExpiry,
		},
		log,
	)
	homeworkService := service.NewHomeworkService(storage.Users, storage.Questions, storage.Answers, publisher, validator, clock, log)
	reportService := service.NewReportService(storage.Users, storage.Questions, storage.Answers, clock, log)
	messageService := service.NewMessageService(storage.Users, storage.Announcements, publisher, validator, clock, log)

	handler := httpd.NewHandler(
		authService,
		registrationService,
		homeworkService,
		reportService,
		messageService,
		tokens,
		cfg.Server.MaxUploadSize,
		log,
	)
	handler.SetReadinessCheck(storage.Ping)

	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Recovery(log))
	router.Use(chimw.Timeout(cfg.Server.RequestTimeout))
	router.Use(middleware.NewCORS(cfg.CORS))

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:    server,
		logger:    log,
		config:    cfg,
		storage:   storage,
		publisher: publisher,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info().Msgf("Starting homework service on %s", a.config.Server.Address)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down homework service...")

	err := a.server.Shutdown(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to shutdown HTTP server")
	}

	if a.publisher != nil {
		if cerr := a.publisher.Close(); cerr != nil {
			a.logger.Error().Err(cerr).Msg("Failed to close RabbitMQ connection")
		}
	}

	a.storage.Close()

	a.logger.Info().Msg("Homework service stopped")
	return err
}
