// Package watchman implements the "Night's Watchman" batch: a scheduled
// scan over every user's deadlines that fans reminders out across email,
// push, and WhatsApp. Channels fail independently; a single user's failure
// never stops the batch.
package watchman

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/domyzanna/pittima/internal/channels"
	"github.com/domyzanna/pittima/internal/deadlines"
	"github.com/domyzanna/pittima/internal/metrics"
	"github.com/domyzanna/pittima/internal/models"
)

const (
	defaultPageSize       = 200
	defaultPerPageWorkers = 4

	// perUserTimeout bounds one user's channel fan-out so a hung provider
	// cannot stall the rest of the batch.
	perUserTimeout = 2 * time.Minute
)

// Config wires the watchman's collaborators. Store, the three senders,
// Templates, and Logger are required; Cache is optional.
type Config struct {
	Store     Store
	Email     channels.EmailSender
	Push      channels.PushSender
	WhatsApp  channels.WhatsAppSender
	Templates *Templates
	Cache     *RunCache
	Logger    *slog.Logger
	Location  *time.Location

	PageSize       int
	PerPageWorkers int
	Now            func() time.Time
}

// Watchman orchestrates one batch invocation.
type Watchman struct {
	store     Store
	email     channels.EmailSender
	push      channels.PushSender
	whatsapp  channels.WhatsAppSender
	templates *Templates
	cache     *RunCache
	logger    *slog.Logger
	loc       *time.Location

	pageSize int
	workers  int
	now      func() time.Time
}

// New creates a Watchman from the given configuration.
func New(cfg Config) *Watchman {
	w := &Watchman{
		store:     cfg.Store,
		email:     cfg.Email,
		push:      cfg.Push,
		whatsapp:  cfg.WhatsApp,
		templates: cfg.Templates,
		cache:     cfg.Cache,
		logger:    cfg.Logger,
		loc:       cfg.Location,
		pageSize:  cfg.PageSize,
		workers:   cfg.PerPageWorkers,
		now:       cfg.Now,
	}
	if w.loc == nil {
		w.loc = time.UTC
	}
	if w.pageSize <= 0 {
		w.pageSize = defaultPageSize
	}
	if w.workers <= 0 {
		w.workers = defaultPerPageWorkers
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

// Run executes one full scan and returns the aggregated report. It fails
// outright only when the user directory cannot be enumerated; every
// per-user or per-channel failure is absorbed into the report.
func (w *Watchman) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.New().String(),
		StartedAt: w.now(),
	}
	today := deadlines.Midnight(w.now(), w.loc)

	w.logger.Info("Watchman run starting", "run_id", report.RunID, "today", today.Format("2006-01-02"))

	var mu sync.Mutex
	err := w.store.ForEachUserPage(ctx, w.pageSize, func(users []models.User) error {
		sem := make(chan struct{}, w.workers)
		var wg sync.WaitGroup
		for i := range users {
			user := users[i]
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				defer func() {
					if r := recover(); r != nil {
						w.logger.Error("User processing panicked", "run_id", report.RunID, "user_id", user.ID, "panic", r)
						mu.Lock()
						report.UserErrors++
						mu.Unlock()
					}
				}()
				w.processUser(ctx, &user, today, report, &mu)
			}()
		}
		wg.Wait()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("watchman run failed: %w", err)
	}

	report.FinishedAt = w.now()
	metrics.ObserveRun(report.CheckedUsers, report.TokensRemoved, map[string]metrics.ChannelOutcome{
		"email":    {Sent: report.Email.Sent, Failed: report.Email.Failed},
		"push":     {Sent: report.Push.Sent, Failed: report.Push.Failed},
		"whatsapp": {Sent: report.WhatsApp.Sent, Failed: report.WhatsApp.Failed},
	})

	if w.cache != nil {
		if err := w.cache.StoreLastRun(ctx, report); err != nil {
			w.logger.Warn("Failed to cache run report", "run_id", report.RunID, "error", err)
		}
	}

	w.logger.Info("Watchman run finished",
		"run_id", report.RunID,
		"checked_users", report.CheckedUsers,
		"found_deadlines", report.FoundDeadlines,
		"notifications_triggered", report.NotificationsTriggered,
		"email_sent", report.Email.Sent,
		"push_sent", report.Push.Sent,
		"whatsapp_sent", report.WhatsApp.Sent,
		"tokens_removed", report.TokensRemoved,
		"user_errors", report.UserErrors,
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
	)

	return report, nil
}

// processUser handles one user end to end: eligibility, aggregated email,
// per-deadline pushes with token cleanup, WhatsApp cadence, and the
// notified mark. All counters go through mu.
func (w *Watchman) processUser(ctx context.Context, user *models.User, today time.Time, report *RunReport, mu *sync.Mutex) {
	userCtx, cancel := context.WithTimeout(ctx, perUserTimeout)
	defer cancel()

	mu.Lock()
	report.CheckedUsers++
	mu.Unlock()

	// Unreachable users are consumed but contribute nothing else.
	if user.Email == "" || !user.EmailVerified {
		return
	}

	all, err := w.store.DeadlinesForUser(userCtx, user.ID)
	if err != nil {
		w.logger.Error("Failed to load deadlines, skipping user", "user_id", user.ID, "error", err)
		mu.Lock()
		report.UserErrors++
		mu.Unlock()
		return
	}

	var eligible []models.Deadline
	for i := range all {
		if deadlines.Eligible(&all[i], today, w.loc) {
			eligible = append(eligible, all[i])
		}
	}
	if len(eligible) == 0 {
		return
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].ExpirationDate.Before(eligible[j].ExpirationDate)
	})

	// "found" counts the user's whole collection, "triggered" only the
	// eligible set. The dashboards report both.
	mu.Lock()
	report.FoundDeadlines += len(all)
	report.NotificationsTriggered += len(eligible)
	mu.Unlock()

	w.sendEmail(userCtx, user, eligible, today, report, mu)
	w.sendPushes(userCtx, user, eligible, today, report, mu)
	w.sendWhatsApp(userCtx, user, eligible, today, report, mu)

	ids := make([]uint, len(eligible))
	for i := range eligible {
		ids[i] = eligible[i].ID
	}
	if err := w.store.MarkNotified(userCtx, ids); err != nil {
		w.logger.Error("Failed to mark deadlines notified", "user_id", user.ID, "error", err)
	}
}

func (w *Watchman) sendEmail(ctx context.Context, user *models.User, eligible []models.Deadline, today time.Time, report *RunReport, mu *sync.Mutex) {
	res := w.email.Send(ctx, w.composeEmail(user, eligible, today))

	mu.Lock()
	defer mu.Unlock()
	if res.Success {
		report.Email.Sent++
	} else {
		report.Email.Failed++
		w.logger.Warn("Email dispatch failed", "user_id", user.ID, "reason", res.Message)
	}
}

func (w *Watchman) sendPushes(ctx context.Context, user *models.User, eligible []models.Deadline, today time.Time, report *RunReport, mu *sync.Mutex) {
	subs, err := w.store.PushSubscriptionsForUser(ctx, user.ID)
	if err != nil {
		w.logger.Error("Failed to load push subscriptions", "user_id", user.ID, "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	// Dead tokens are collected across the whole loop and removed in one
	// batch write afterwards.
	invalid := make(map[string]bool)
	for _, sub := range subs {
		for i := range eligible {
			res := w.push.Send(ctx, w.composePush(sub.Token, &eligible[i], today))

			mu.Lock()
			if res.Success {
				report.Push.Sent++
			} else {
				report.Push.Failed++
			}
			mu.Unlock()

			if !res.Success {
				w.logger.Warn("Push dispatch failed",
					"user_id", user.ID, "deadline_id", eligible[i].ID,
					"invalid_token", res.InvalidToken, "reason", res.Message)
				if res.InvalidToken {
					invalid[sub.Token] = true
				}
			}
		}
	}

	if len(invalid) == 0 {
		return
	}
	tokens := make([]string, 0, len(invalid))
	for token := range invalid {
		tokens = append(tokens, token)
	}
	if err := w.store.RemovePushTokens(ctx, user.ID, tokens); err != nil {
		w.logger.Error("Failed to remove invalid push tokens", "user_id", user.ID, "error", err)
		return
	}
	mu.Lock()
	report.TokensRemoved += len(tokens)
	mu.Unlock()
	w.logger.Info("Removed invalid push tokens", "user_id", user.ID, "count", len(tokens))
}

func (w *Watchman) sendWhatsApp(ctx context.Context, user *models.User, eligible []models.Deadline, today time.Time, report *RunReport, mu *sync.Mutex) {
	profile, err := w.store.WhatsAppProfileForUser(ctx, user.ID)
	if err != nil {
		w.logger.Error("Failed to load whatsapp profile", "user_id", user.ID, "error", err)
		return
	}
	user.WhatsAppProfile = profile
	if !user.WhatsAppEligible() {
		return
	}

	for i := range eligible {
		// Business rule: at most two WhatsApp messages per deadline per
		// cycle, the day before and the day of expiration.
		daysLeft := deadlines.DaysUntil(today, eligible[i].ExpirationDate, w.loc)
		if daysLeft != 0 && daysLeft != 1 {
			continue
		}

		res := w.whatsapp.Send(ctx, w.composeWhatsApp(profile.PhoneNumber, &eligible[i], today))

		mu.Lock()
		if res.Success {
			report.WhatsApp.Sent++
		} else {
			report.WhatsApp.Failed++
		}
		mu.Unlock()

		if !res.Success {
			w.logger.Warn("WhatsApp dispatch failed",
				"user_id", user.ID, "deadline_id", eligible[i].ID, "reason", res.Message)
		}
	}
}
