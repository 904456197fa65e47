package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/dismissal-api/internal/config"
	"github.com/noah-isme/dismissal-api/internal/database"
	"github.com/noah-isme/dismissal-api/internal/dto"
	"github.com/noah-isme/dismissal-api/internal/handler"
	"github.com/noah-isme/dismissal-api/internal/lunch"
	"github.com/noah-isme/dismissal-api/internal/middleware"
	"github.com/noah-isme/dismissal-api/internal/models"
	"github.com/noah-isme/dismissal-api/internal/observability"
	"github.com/noah-isme/dismissal-api/internal/repository"
	"github.com/noah-isme/dismissal-api/internal/router"
	"github.com/noah-isme/dismissal-api/internal/service"
	"github.com/noah-isme/dismissal-api/pkg/ai"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.With().Str("service", cfg.AppName).Logger()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := db.AutoMigrate(&models.Student{}, &models.DismissalRecord{}, &models.LunchCacheEntry{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(rootCtx, cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, continuing without it")
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, continuing without it")
		natsConn = nil
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	validate := dto.NewValidator()

	var goodbye ai.GoodbyeWriter = ai.StaticGoodbye{}
	var searcher ai.Searcher
	if cfg.OpenAIAPIKey != "" {
		client, err := ai.NewOpenAIClient(ai.OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			SearchModel: cfg.OpenAISearchModel,
			Logger:      logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create openai client")
		}
		goodbye = client
		searcher = client
	} else {
		logger.Warn().Msg("openai api key not set, using fixed goodbye messages and no menu search")
	}

	studentRepo := repository.NewStudentRepository(db)
	dismissalRepo := repository.NewDismissalRepository(db)
	lunchRepo := repository.NewLunchCacheRepository(db)

	liveFeed := service.NewLiveFeedService(studentRepo, dismissalRepo, redisClient, natsConn, cfg.LiveChannel, logger)
	liveFeed.Start(rootCtx)

	rosterService := service.NewRosterService(studentRepo, liveFeed, validate, service.DefaultRoster(), logger)
	dismissalService := service.NewDismissalService(dismissalRepo, studentRepo, goodbye, liveFeed, validate, cfg.Location, logger)
	deletionService := service.NewDeletionService(dismissalService, rosterService, redisClient, cfg.LiveChannel, cfg.DeletionTTL, validate, logger)
	exportService := service.NewExportService(dismissalService, cfg.SchoolShort, logger)
	authService := service.NewAuthService(cfg.AdminCode, cfg.JWTSecret, cfg.StaffTTL, logger)
	lunchService := service.NewLunchService(buildLunchChain(cfg, lunchRepo, searcher, logger), logger)
	liveSessions := service.NewLiveSessionService(liveFeed, dismissalService, validate, logger)

	if cfg.SeedRoster {
		if _, err := rosterService.SeedIfEmpty(rootCtx); err != nil {
			logger.Error().Err(err).Msg("failed to seed default roster")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		HealthChecks:     dependencyChecks(db, redisClient, natsConn),
		AuthHandler:      handler.NewAuthHandler(authService, validate, logger),
		StudentHandler:   handler.NewStudentHandler(rosterService, logger),
		DismissalHandler: handler.NewDismissalHandler(dismissalService, logger),
		DeletionHandler:  handler.NewDeletionHandler(deletionService, logger),
		LunchHandler:     handler.NewLunchHandler(lunchService, cfg.Location, logger),
		ExportHandler:    handler.NewExportHandler(exportService, dismissalService, logger),
		LiveHandler:      handler.NewLiveHandler(liveSessions, cfg.Location, logger),
		JWTMiddleware:    middleware.JWTProtected(cfg.JWTSecret),
		LiveAuth:         middleware.OptionalJWT(cfg.JWTSecret),
		SubmitLimiter:    middleware.RateLimit("dismissal-submit", cfg.SubmitRateLimit, cfg.SubmitRateWindow),
		MetricsHandler:   observability.MetricsHandler(),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(rootCtx, app, logger)
}

func buildLunchChain(cfg config.Config, repo repository.LunchCacheRepository, searcher ai.Searcher, logger zerolog.Logger) *lunch.Chain {
	steps := []lunch.Step{
		{Resolver: lunch.NewVerifiedTable(lunch.DefaultVerifiedMenus, cfg.MenuURL), Kind: lunch.Authoritative},
		{Resolver: lunch.NewMemoryCache(cfg.LunchMemoryMB), Kind: lunch.Cache},
		{Resolver: lunch.NewPersistedCache(repo), Kind: lunch.Cache},
	}
	if searcher != nil {
		steps = append(steps, lunch.Step{Resolver: lunch.NewGenerator(searcher, cfg.SchoolName, cfg.MenuURL), Kind: lunch.Origin})
	}
	return lunch.NewChain(logger, steps...)
}

func dependencyChecks(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) map[string]handler.DependencyCheck {
	checks := map[string]handler.DependencyCheck{
		"store": func(context.Context) error { return database.Ping(db) },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	if natsConn != nil {
		checks["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		}
	}
	return checks
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
