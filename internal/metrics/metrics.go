// Package metrics exposes Prometheus counters for the notification engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	watchmanRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pittima_watchman_runs_total",
		Help: "Completed watchman batch runs.",
	})

	usersChecked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pittima_watchman_users_checked_total",
		Help: "Users consumed across all watchman runs.",
	})

	notificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pittima_notifications_sent_total",
		Help: "Successful notification dispatches by channel.",
	}, []string{"channel"})

	notificationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pittima_notifications_failed_total",
		Help: "Failed notification dispatches by channel.",
	}, []string{"channel"})

	pushTokensRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pittima_push_tokens_removed_total",
		Help: "Invalid push tokens cleaned up by the watchman.",
	})
)

// ChannelOutcome is one channel's sent/failed tally for a single run.
type ChannelOutcome struct {
	Sent   int
	Failed int
}

// ObserveRun records one finished watchman run.
func ObserveRun(checkedUsers, tokensRemoved int, outcomes map[string]ChannelOutcome) {
	watchmanRuns.Inc()
	usersChecked.Add(float64(checkedUsers))
	pushTokensRemoved.Add(float64(tokensRemoved))
	for channel, o := range outcomes {
		notificationsSent.WithLabelValues(channel).Add(float64(o.Sent))
		notificationsFailed.WithLabelValues(channel).Add(float64(o.Failed))
	}
}
