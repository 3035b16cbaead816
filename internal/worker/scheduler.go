package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/domyzanna/pittima/internal/config"
)

// StartScheduler creates and starts an Asynq Scheduler that enqueues the
// nightly watchman run. Returns a stop function for graceful shutdown.
func StartScheduler(cfg *config.Config) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	location, err := time.LoadLocation(cfg.WatchmanTimezone)
	if err != nil {
		slog.Warn("Invalid timezone, using UTC", "timezone", cfg.WatchmanTimezone, "error", err)
		location = time.UTC
	}

	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: location,
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	// Register the nightly scan. Unique prevents a duplicate batch if the
	// scheduler fires twice.
	task := asynq.NewTask(
		TaskWatchmanRun,
		nil, // empty payload: the handler scans all users
		asynq.MaxRetry(3),
		asynq.Timeout(15*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Unique(23*time.Hour),
	)

	entryID, err := scheduler.Register(cfg.WatchmanSchedule, task)
	if err != nil {
		return nil, fmt.Errorf("failed to register watchman schedule: %w", err)
	}

	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	slog.Info(
		"Scheduler started",
		"schedule", cfg.WatchmanSchedule,
		"timezone", cfg.WatchmanTimezone,
		"entry_id", entryID,
	)

	return func() { scheduler.Shutdown() }, nil
}
