package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/domyzanna/pittima/internal/auth"
	"github.com/domyzanna/pittima/internal/channels"
	"github.com/domyzanna/pittima/internal/config"
	"github.com/domyzanna/pittima/internal/database"
	"github.com/domyzanna/pittima/internal/deadlines"
	"github.com/domyzanna/pittima/internal/health"
	"github.com/domyzanna/pittima/internal/models"
	"github.com/domyzanna/pittima/internal/otp"
	"github.com/domyzanna/pittima/internal/settings"
	"github.com/domyzanna/pittima/internal/watchman"
	"github.com/domyzanna/pittima/internal/worker"
)

func main() {
	cfg := config.Load()
	logger := worker.NewLogger(cfg.LogLevel, cfg.LogFormat)

	loc, err := time.LoadLocation(cfg.WatchmanTimezone)
	if err != nil {
		logger.Warn("unknown timezone, falling back to UTC", "timezone", cfg.WatchmanTimezone)
		loc = time.UTC
	}

	if cfg.EncryptionKey != "" {
		if err := models.InitEncryption(cfg.EncryptionKey); err != nil {
			logger.Error("failed to initialize phone encryption", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("ENCRYPTION_KEY not set, phone numbers will be stored in plaintext")
	}

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	if cfg.Env == "development" {
		if err := database.SeedDevData(db); err != nil {
			logger.Warn("failed to seed development data", "error", err)
		}
	}

	// Notification providers. Stub mode keeps local development working
	// without real API credentials.
	emailClient := channels.NewEmailClient(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFromAddress, cfg.StubProviders)
	pushClient := channels.NewPushClient(cfg.PushAPIURL, cfg.PushAPIKey, cfg.StubProviders)
	whatsappClient := channels.NewWhatsAppClient(cfg.WhatsAppAPIURL, cfg.WhatsAppAPIKey, cfg.StubProviders)

	templates, err := watchman.LoadTemplates()
	if err != nil {
		logger.Error("failed to load notification templates", "error", err)
		os.Exit(1)
	}

	runCache, err := watchman.NewRunCache(cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect run cache", "error", err)
		os.Exit(1)
	}
	defer runCache.Close()

	wm := watchman.New(watchman.Config{
		Store:     watchman.NewGormStore(db),
		Email:     emailClient,
		Push:      pushClient,
		WhatsApp:  whatsappClient,
		Templates: templates,
		Cache:     runCache,
		Logger:    logger,
		Location:  loc,
	})

	otpStore, err := otp.NewRedisStore(cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect OTP store", "error", err)
		os.Exit(1)
	}
	defer otpStore.Close()
	otpService := otp.NewService(otpStore, otp.NewGormProfileStore(db), whatsappClient, logger)

	// Background queue: worker consumes watchman:run tasks, scheduler
	// enqueues them on the configured cron.
	if err := worker.InitClient(cfg.RedisURL); err != nil {
		logger.Error("failed to initialize task client", "error", err)
		os.Exit(1)
	}
	defer worker.CloseClient()

	stopWorker, err := worker.Start(cfg, wm)
	if err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}
	defer stopWorker()

	stopScheduler, err := worker.StartScheduler(cfg)
	if err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer stopScheduler()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   cfg.Env == "production",
	})
	router.Use(sessions.Sessions("pittima_session", sessionStore))

	router.GET("/health", gin.WrapF(health.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Scheduled trigger, authenticated by shared secret.
	cron := router.Group("/api/cron", auth.RequireCronSecret(cfg.CronSecret))
	{
		cron.POST("/watchman", watchman.TriggerHandler(wm, logger))
	}
	router.GET("/api/cron/watchman", watchman.TriggerUsageHandler())

	api := router.Group("/api", auth.RequireAuth())
	{
		api.GET("/deadlines", deadlines.ListHandler(db, loc))
		api.POST("/deadlines", deadlines.CreateHandler(db, loc))
		api.PUT("/deadlines/:id", deadlines.UpdateHandler(db, loc))
		api.DELETE("/deadlines/:id", deadlines.DeleteHandler(db))
		api.POST("/deadlines/:id/complete", deadlines.CompleteHandler(db, loc))
		api.POST("/deadlines/:id/renew", deadlines.RenewHandler(db, loc))
		api.GET("/categories", deadlines.ListCategoriesHandler(db))

		api.POST("/settings/push", settings.RegisterPushHandler(db))
		api.DELETE("/settings/push/:token", settings.DeletePushHandler(db))
		api.GET("/settings/whatsapp", settings.GetWhatsAppHandler(db))
		api.POST("/settings/whatsapp", settings.UpdateWhatsAppHandler(db))

		api.POST("/whatsapp/otp", otp.Handler(otpService))

		admin := api.Group("/admin", auth.RequireAdmin())
		{
			// Manual runs go through the queue so Unique and retry
			// semantics apply to them as well.
			admin.POST("/watchman", worker.EnqueueHandler(worker.EnqueueWatchmanRun, logger))
			admin.GET("/watchman/last", watchman.LastRunHandler(runCache))
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
}
