package watchman

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TriggerHandler runs a full sweep synchronously and returns the report.
// Mounted behind the cron-secret middleware for the scheduler callback and
// behind session auth for the admin panel.
func TriggerHandler(wm *Watchman, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := wm.Run(c.Request.Context())
		if err != nil {
			logger.Error("watchman run failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "result": report})
	}
}

// TriggerUsageHandler answers GET on the cron endpoint with a usage hint,
// matching the webhook convention of probing endpoints with GET first.
func TriggerUsageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "POST to this endpoint with the X-Cron-Secret header to trigger a run",
		})
	}
}

// LastRunHandler returns the cached report of the most recent sweep.
func LastRunHandler(cache *RunCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := cache.LoadLastRun(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load last run"})
			return
		}
		if report == nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "no run recorded yet"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "result": report})
	}
}
