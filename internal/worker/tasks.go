package worker

import (
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskWatchmanRun = "watchman:run"
)

// Package-level Asynq client (singleton)
var client *asynq.Client

// InitClient initializes the global Asynq client for task enqueueing.
// Must be called before any EnqueueX functions.
func InitClient(redisURL string) error {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return err
	}

	client = asynq.NewClient(opt)
	return nil
}

// CloseClient closes the Asynq client connection gracefully.
func CloseClient() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// EnqueueWatchmanRun enqueues one watchman batch run. Used by the admin
// surface when a run should go through the queue instead of executing
// inline. Unique prevents piling up duplicate runs.
func EnqueueWatchmanRun() error {
	task := asynq.NewTask(
		TaskWatchmanRun,
		nil, // no payload: the handler scans all users
		asynq.MaxRetry(3),
		asynq.Timeout(15*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Unique(time.Hour),
	)

	_, err := client.Enqueue(task)
	return err
}
