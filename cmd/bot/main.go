package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"lumenbot/internal/admin"
	"lumenbot/internal/attendance"
	"lumenbot/internal/auth"
	"lumenbot/internal/bot"
	"lumenbot/internal/config"
	"lumenbot/internal/httpmiddleware"
	"lumenbot/internal/jobs"
	"lumenbot/internal/schedule"
	"lumenbot/internal/store"
	"lumenbot/internal/telegram"
	"lumenbot/internal/undo"
	"lumenbot/internal/users"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg config.App, logger *zap.Logger) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	loc := cfg.Location()
	tg := telegram.New(cfg.TelegramAPIURL, cfg.TelegramToken)

	scheduleRepo := schedule.NewRepository(db.Client)
	schedules := schedule.NewService(scheduleRepo, loc, logger)

	undoRepo := undo.NewRepository(db.Client)
	undoSvc := undo.NewService(undoRepo, loc, logger)

	attendanceRepo := attendance.NewRepository(db.Client)
	attendanceSvc := attendance.NewService(attendanceRepo, undoSvc, logger)

	userRepo := users.NewRepository(db.Client)

	router := bot.NewRouter(tg, schedules, attendanceSvc, undoSvc, userRepo, loc, cfg.AppBaseURL, logger)

	jobRepo := jobs.NewRepository(db.Client)
	runner := jobs.NewRunner(jobRepo, tg, redisClient, userRepo, attendanceSvc, loc, cfg.JobLockTTL, logger)

	adminRepo := admin.NewRepository(db.Client)
	probe := func(ctx context.Context, userID string) bool {
		_, err := attendanceSvc.CourseAttendance(ctx, userID)
		return err == nil
	}
	diagnostics := admin.NewService(adminRepo, userRepo, probe, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/webhook", func(c *gin.Context) {
		// The secret header proves the update came from the transport we
		// registered the webhook with.
		if cfg.WebhookSecret != "" {
			got := c.GetHeader("X-Telegram-Bot-Api-Secret-Token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(cfg.WebhookSecret)) != 1 {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "bad secret"})
				return
			}
		}

		var upd telegram.Update
		if err := json.NewDecoder(c.Request.Body).Decode(&upd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed update"})
			return
		}

		// The transport redelivers until it sees a 2xx, so duplicate
		// update ids must not re-run handlers. A redis outage degrades to
		// no dedupe rather than dropping updates.
		if seen, err := redisClient.SeenUpdate(c.Request.Context(), upd.UpdateID, cfg.UpdateDedupeTTL); err != nil {
			logger.Warn("update dedupe unavailable", zap.Error(err))
		} else if seen {
			bot.DuplicateUpdates.Inc()
			c.Status(http.StatusOK)
			return
		}

		// A bounded handler budget keeps the webhook response inside the
		// transport's delivery timeout.
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.UpdateTimeout)
		defer cancel()
		router.HandleUpdate(ctx, upd)

		c.Status(http.StatusOK)
	})

	adminGroup := r.Group("/admin", auth.AdminAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	adminGroup.GET("/diagnostics", func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
			return
		}
		c.JSON(http.StatusOK, diagnostics.ForUser(c.Request.Context(), userID))
	})

	adminGroup.POST("/jobs/:name", func(c *gin.Context) {
		var err error
		switch c.Param("name") {
		case jobs.JobReminders:
			err = runner.RunReminders(c.Request.Context())
		case jobs.JobDailyBrief:
			err = runner.RunDailyBrief(c.Request.Context())
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown job"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "job failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
	return nil
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" || env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
