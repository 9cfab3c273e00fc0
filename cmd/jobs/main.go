package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"lumenbot/internal/attendance"
	"lumenbot/internal/config"
	"lumenbot/internal/jobs"
	"lumenbot/internal/store"
	"lumenbot/internal/telegram"
	"lumenbot/internal/undo"
	"lumenbot/internal/users"
)

// One-shot job runner, meant to be invoked from cron or a scheduler:
//
//	jobs -job reminders
//	jobs -job daily-brief
//	jobs -job all
func main() {
	jobName := flag.String("job", "all", "job to run: reminders, daily-brief or all")
	timeout := flag.Duration("timeout", 4*time.Minute, "overall run budget")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if cfg.Env != "production" && cfg.Env != "prod" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	loc := cfg.Location()
	tg := telegram.New(cfg.TelegramAPIURL, cfg.TelegramToken)

	undoSvc := undo.NewService(undo.NewRepository(db.Client), loc, logger)
	attendanceSvc := attendance.NewService(attendance.NewRepository(db.Client), undoSvc, logger)
	userRepo := users.NewRepository(db.Client)

	runner := jobs.NewRunner(jobs.NewRepository(db.Client), tg, redisClient, userRepo, attendanceSvc, loc, cfg.JobLockTTL, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var failed bool
	run := func(name string, fn func(context.Context) error) {
		if err := fn(ctx); err != nil {
			logger.Error("job failed", zap.String("job", name), zap.Error(err))
			failed = true
		}
	}

	switch *jobName {
	case jobs.JobReminders:
		run(jobs.JobReminders, runner.RunReminders)
	case jobs.JobDailyBrief:
		run(jobs.JobDailyBrief, runner.RunDailyBrief)
	case "all":
		run(jobs.JobReminders, runner.RunReminders)
		run(jobs.JobDailyBrief, runner.RunDailyBrief)
	default:
		logger.Fatal("unknown job", zap.String("job", *jobName))
	}

	if failed {
		logger.Fatal("run finished with failures")
	}
	logger.Info("run finished")
}
