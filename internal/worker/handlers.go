package worker

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

// EnqueueHandler queues a watchman run instead of executing it inline, so
// manual triggers get the same uniqueness and retry semantics as the
// nightly schedule. The enqueue func is injected; production passes
// EnqueueWatchmanRun.
func EnqueueHandler(enqueue func() error, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := enqueue(); err != nil {
			if errors.Is(err, asynq.ErrDuplicateTask) {
				c.JSON(http.StatusConflict, gin.H{
					"success": false,
					"error":   "a run is already queued",
				})
				return
			}
			logger.Error("Failed to enqueue watchman run", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "failed to enqueue run",
			})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"success": true, "enqueued": true})
	}
}
