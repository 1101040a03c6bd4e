package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mikepea/foodshare/pkg/foodshare/auth"
	"github.com/mikepea/foodshare/pkg/foodshare/config"
	"github.com/mikepea/foodshare/pkg/foodshare/database"
	"github.com/mikepea/foodshare/pkg/foodshare/events"
	"github.com/mikepea/foodshare/pkg/foodshare/logger"
	"github.com/mikepea/foodshare/pkg/foodshare/models"
	"github.com/mikepea/foodshare/pkg/foodshare/ratelimit"
	"github.com/mikepea/foodshare/pkg/foodshare/reminders"
	"github.com/mikepea/foodshare/pkg/foodshare/server"

	_ "github.com/mikepea/foodshare/api/swagger"
)

// @title Foodshare API
// @version 1.0
// @description Share food that is about to expire with your friends.

// @contact.name Foodshare Support
// @contact.url https://github.com/mikepea/foodshare

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name foodshare_session

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Session token. Format: "Bearer {token}"

func main() {
	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	// Default logger until the configured level is known
	logger.Init("info", false)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", err)
	}

	logger.Init(cfg.LogLevel, !cfg.IsProduction())
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	if err := database.Connect(cfg.DBDriver, cfg.DBDSN, database.Options{Debug: cfg.LogLevel == "debug"}); err != nil {
		logger.Fatal("failed to connect to database", err)
	}
	db := database.GetDB()

	// Run auto-migrations
	if err := models.AutoMigrate(db); err != nil {
		logger.Fatal("failed to run migrations", err)
	}
	if err := models.SeedCategories(db); err != nil {
		logger.Fatal("failed to seed categories", err)
	}
	logger.Info("database ready", "driver", cfg.DBDriver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sessions and login attempts live in Redis when configured so that
	// several instances share them; otherwise in the database and memory.
	var (
		sessionStore auth.SessionStore = auth.NewGormSessionStore(db)
		attemptStore ratelimit.AttemptStore
	)
	if cfg.RedisAddr != "" {
		client, err := database.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("failed to connect to redis", err)
		}
		defer client.Close()
		sessionStore = auth.NewRedisSessionStore(client)
		attemptStore = ratelimit.NewRedisStore(client, cfg.LoginWindow)
		logger.Info("using redis for sessions and login attempts", "addr", cfg.RedisAddr)
	} else {
		memory := ratelimit.NewMemoryStore()
		memory.StartCleanup(ctx, time.Minute)
		attemptStore = memory
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqp, err := events.NewAMQPPublisher(cfg.AMQPURL, events.DefaultExchange)
		if err != nil {
			logger.Fatal("failed to connect to message broker", err)
		}
		publisher = amqp
		logger.Info("publishing events", "exchange", events.DefaultExchange)
	}
	defer publisher.Close()

	sessions := auth.NewSessionManager(sessionStore, cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure)

	scheduler, err := reminders.NewScheduler(cfg.ReminderCron, reminders.NewSweeper(db, publisher, cfg.ReminderDays), sessions)
	if err != nil {
		logger.Fatal("invalid REMINDER_CRON", err)
	}
	scheduler.Start()

	throttle := ratelimit.NewIPLimiter(cfg.APIRateLimitRPS, cfg.APIRateLimitBurst)
	throttle.StartCleanup(ctx, time.Minute)

	r := server.New(server.Deps{
		DB:        db,
		Config:    cfg,
		Sessions:  sessions,
		Limiter:   ratelimit.NewLoginLimiter(attemptStore, cfg.LoginMaxAttempts, cfg.LoginWindow),
		Publisher: publisher,
		Throttle:  throttle,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting foodshare server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
}
