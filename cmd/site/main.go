package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gtechsltn/alexa-london-travel-site/internal/auth"
	"github.com/gtechsltn/alexa-london-travel-site/internal/config"
	"github.com/gtechsltn/alexa-london-travel-site/internal/handler"
	"github.com/gtechsltn/alexa-london-travel-site/internal/middleware"
	"github.com/gtechsltn/alexa-london-travel-site/internal/repository/postgres"
	"github.com/gtechsltn/alexa-london-travel-site/internal/repository/rediscache"
	"github.com/gtechsltn/alexa-london-travel-site/internal/service"
	"github.com/gtechsltn/alexa-london-travel-site/internal/tfl"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	secure := cfg.Env == "production"

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	if err := postgres.EnsureSchema(context.Background(), pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure document collection")
	}
	log.Info().Msg("Connected to database")

	// Connect to Redis; the count cache degrades to misses without it
	var countCache *rediscache.UserCountCache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, user count caching disabled")
	} else {
		countCache = rediscache.NewUserCountCache(redisClient, cfg.Redis.UserCountTTL)
	}
	cancelPing()

	// Initialize store and services
	userStore := postgres.NewUserStore(pool)
	tflClient := tfl.NewClient(cfg.Tfl)

	var accountService *service.AccountService
	if countCache != nil {
		accountService = service.NewAccountService(userStore, countCache)
	} else {
		accountService = service.NewAccountService(userStore, nil)
	}
	preferencesService := service.NewPreferencesService(userStore, tflClient)
	alexaService := service.NewAlexaService(userStore, cfg.Alexa)

	// Initialize sessions and providers
	tokenService, err := auth.NewTokenService(cfg.SessionSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token service")
	}
	sessions := auth.NewCookieSessionManager(tokenService, cfg.SessionCookie, cfg.SessionTTL, secure)
	providers := auth.NewRegistry(cfg.Providers, cfg.BaseURL)
	sessionAuth := middleware.NewSessionAuthMiddleware(sessions, userStore)

	// Initialize handlers
	apiHandler := handler.NewApiHandler(accountService)
	authHandler := handler.NewAuthHandler(providers, accountService, preferencesService, sessions, userStore, secure)
	manageHandler := handler.NewManageHandler(preferencesService, providers, sessions)
	alexaHandler := handler.NewAlexaHandler(alexaService)

	apiLimiter := middleware.NewRateLimiter()
	defer apiLimiter.Stop()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.RequestID())

	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	e.Use(zerologMiddleware())
	e.Use(echomiddleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	handler.RegisterRoutes(e, sessionAuth, apiLimiter, apiHandler, authHandler, manageHandler, alexaHandler)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
