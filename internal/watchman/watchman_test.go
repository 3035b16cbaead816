package watchman

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/domyzanna/pittima/internal/channels"
	"github.com/domyzanna/pittima/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- Fakes ---

// fakeStore is an in-memory Store. Writes are recorded for assertions.
type fakeStore struct {
	mu        sync.Mutex
	users     []models.User
	deadlines map[uint][]models.Deadline
	subs      map[uint][]models.PushSubscription
	profiles  map[uint]*models.WhatsAppProfile

	deadlineErr map[uint]error

	notified      []uint
	removedTokens map[uint][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		deadlines:     make(map[uint][]models.Deadline),
		subs:          make(map[uint][]models.PushSubscription),
		profiles:      make(map[uint]*models.WhatsAppProfile),
		deadlineErr:   make(map[uint]error),
		removedTokens: make(map[uint][]string),
	}
}

func (s *fakeStore) ForEachUserPage(_ context.Context, pageSize int, fn func([]models.User) error) error {
	for start := 0; start < len(s.users); start += pageSize {
		end := start + pageSize
		if end > len(s.users) {
			end = len(s.users)
		}
		if err := fn(s.users[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStore) DeadlinesForUser(_ context.Context, userID uint) ([]models.Deadline, error) {
	if err := s.deadlineErr[userID]; err != nil {
		return nil, err
	}
	return s.deadlines[userID], nil
}

func (s *fakeStore) PushSubscriptionsForUser(_ context.Context, userID uint) ([]models.PushSubscription, error) {
	return s.subs[userID], nil
}

func (s *fakeStore) WhatsAppProfileForUser(_ context.Context, userID uint) (*models.WhatsAppProfile, error) {
	return s.profiles[userID], nil
}

func (s *fakeStore) MarkNotified(_ context.Context, ids []uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notified = append(s.notified, ids...)
	return nil
}

func (s *fakeStore) RemovePushTokens(_ context.Context, userID uint, tokens []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removedTokens[userID] = append(s.removedTokens[userID], tokens...)
	return nil
}

// Recording senders. The watchman fans users out across goroutines, so
// every fake guards its log with a mutex.

type stubEmail struct {
	mu   sync.Mutex
	sent []channels.EmailMessage
	fail bool
}

func (e *stubEmail) Send(_ context.Context, msg channels.EmailMessage) channels.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, msg)
	if e.fail {
		return channels.Result{Message: "email provider down"}
	}
	return channels.Result{Success: true}
}

type stubPush struct {
	mu            sync.Mutex
	sent          []channels.PushMessage
	invalidTokens map[string]bool
}

func (p *stubPush) Send(_ context.Context, msg channels.PushMessage) channels.PushResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	if p.invalidTokens[msg.Token] {
		return channels.PushResult{
			Result:       channels.Result{Message: "token invalid: NOT_REGISTERED"},
			InvalidToken: true,
		}
	}
	return channels.PushResult{Result: channels.Result{Success: true}}
}

type stubWhatsApp struct {
	mu   sync.Mutex
	sent []channels.WhatsAppMessage
}

func (w *stubWhatsApp) Send(_ context.Context, msg channels.WhatsAppMessage) channels.Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sent = append(w.sent, msg)
	return channels.Result{Success: true}
}

// --- Helpers ---

var testNow = time.Date(2025, time.May, 20, 9, 0, 0, 0, time.UTC)

func newTestWatchman(t *testing.T, store Store, email channels.EmailSender, push channels.PushSender, wa channels.WhatsAppSender) *Watchman {
	t.Helper()
	templates, err := LoadTemplates()
	require.NoError(t, err)

	return New(Config{
		Store:     store,
		Email:     email,
		Push:      push,
		WhatsApp:  wa,
		Templates: templates,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Location:  time.UTC,
		Now:       func() time.Time { return testNow },
	})
}

func verifiedUser(id uint, email string) models.User {
	u := models.User{Email: email, EmailVerified: true, DisplayName: "Test User", Plan: models.PlanPlus}
	u.ID = id
	return u
}

func deadline(id uint, name string, expiresIn int, notifyDaysBefore int) models.Deadline {
	exp := testNow.AddDate(0, 0, expiresIn)
	d := models.Deadline{
		Name:                  name,
		ExpirationDate:        exp,
		NotifyDaysBefore:      notifyDaysBefore,
		NotificationStartDate: exp.AddDate(0, 0, -notifyDaysBefore),
		NotificationStatus:    models.NotificationStatusPending,
	}
	d.ID = id
	return d
}

// --- Tests ---

func TestRunNotEligibleOutsideWindow(t *testing.T) {
	// Deadline expires in 43 days with a 30-day window: the run happens 40
	// days before the start of anything interesting, nothing goes out.
	store := newFakeStore()
	store.users = []models.User{verifiedUser(1, "a@example.com")}
	store.deadlines[1] = []models.Deadline{deadline(10, "car insurance", 43, 30)}
	store.subs[1] = []models.PushSubscription{{UserID: 1, Token: "tok-1"}}

	email := &stubEmail{}
	push := &stubPush{}
	w := newTestWatchman(t, store, email, push, &stubWhatsApp{})

	report, err := w.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.CheckedUsers)
	assert.Equal(t, 0, report.FoundDeadlines)
	assert.Equal(t, 0, report.NotificationsTriggered)
	assert.Empty(t, email.sent)
	assert.Empty(t, push.sent)
	assert.Empty(t, store.notified)
}

func TestRunEligibleInsideWindow(t *testing.T) {
	// Same deadline, now 3 days from expiration: aggregated email plus one
	// push per registered token.
	store := newFakeStore()
	store.users = []models.User{verifiedUser(1, "a@example.com")}
	store.deadlines[1] = []models.Deadline{deadline(10, "car insurance", 3, 30)}
	store.subs[1] = []models.PushSubscription{
		{UserID: 1, Token: "tok-1"},
		{UserID: 1, Token: "tok-2"},
	}

	email := &stubEmail{}
	push := &stubPush{}
	w := newTestWatchman(t, store, email, push, &stubWhatsApp{})

	report, err := w.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.CheckedUsers)
	assert.Equal(t, 1, report.FoundDeadlines)
	assert.Equal(t, 1, report.NotificationsTriggered)
	assert.Equal(t, 1, report.Email.Sent)
	assert.Equal(t, 2, report.Push.Sent)

	require.Len(t, email.sent, 1)
	assert.Equal(t, "a@example.com", email.sent[0].To)
	assert.Contains(t, email.sent[0].HTMLBody, "car insurance")
	assert.Contains(t, email.sent[0].HTMLBody, testNow.AddDate(0, 0, 3).Format("2 January 2006"))

	assert.Len(t, push.sent, 2)
	assert.Equal(t, []uint{10}, store.notified)
}

func TestRunCompletedDeadlineAlwaysSkipped(t *testing.T) {
	store := newFakeStore()
	store.users = []models.User{verifiedUser(1, "a@example.com")}
	d := deadline(10, "passport", 3, 30)
	d.IsCompleted = true
	d.NotificationStatus = models.NotificationStatusActive
	store.deadlines[1] = []models.Deadline{d}

	email := &stubEmail{}
	w := newTestWatchman(t, store, email, &stubPush{}, &stubWhatsApp{})

	report, err := w.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.NotificationsTriggered)
	assert.Empty(t, email.sent)
}

func TestRunFoundCountsAllDeadlinesWhenAnyEligible(t *testing.T) {
	store := newFakeStore()
	store.users = []models.User{verifiedUser(1, "a@example.com")}
	store.deadlines[1] = []models.Deadline{
		deadline(10, "eligible now", 3, 30),
		deadline(11, "far future", 200, 30),
		deadline(12, "also far", 300, 7),
	}

	w := newTestWatchman(t, store, &stubEmail{}, &stubPush{}, &stubWhatsApp{})

	report, err := w.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.FoundDeadlines, "found counts the user's whole collection")
	assert.Equal(t, 1, report.NotificationsTriggered)
}

func TestRunSkipsUnverifiedEmail(t *testing.T) {
	store := newFakeStore()
	unverified := verifiedUser(1, "a@example.com")
	unverified.EmailVerified = false
	noEmail := verifiedUser(2, "")
	store.users = []models.User{unverified, noEmail}
	store.deadlines[1] = []models.Deadline{deadline(10, "due soon", 3, 30)}
	store.deadlines[2] = []models.Deadline{deadline(11, "due soon too", 3, 30)}

	email := &stubEmail{}
	w := newTestWatchman(t, store, email, &stubPush{}, &stubWhatsApp{})

	report, err := w.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.CheckedUsers, "unreachable users are still consumed")
	assert.Equal(t, 0, report.NotificationsTriggered)
	assert.Empty(t, email.sent)
}

func TestRunInvalidTokenCleanup(t *testing.T) {
	// Provider reports 2 of 3 tokens dead: exactly those two are removed in
	// one batch, the third survives, and email/WhatsApp are unaffected.
	store := newFakeStore()
	store.users = []models.User{verifiedUser(1, "a@example.com")}
	store.deadlines[1] = []models.Deadline{deadline(10, "car insurance", 1, 30)}
	store.subs[1] = []models.PushSubscription{
		{UserID: 1, Token: "tok-dead-1"},
		{UserID: 1, Token: "tok-alive"},
		{UserID: 1, Token: "tok-dead-2"},
	}
	store.profiles[1] = &models.WhatsAppProfile{
		UserID: 1, PhoneNumber: "+391234567890",
		Verified: true, Enabled: true, ConsentGiven: true,
	}

	email := &stubEmail{}
	push := &stubPush{invalidTokens: map[string]bool{"tok-dead-1": true, "tok-dead-2": true}}
	wa := &stubWhatsApp{}
	w := newTestWatchman(t, store, email, push, wa)

	report, err := w.Run(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"tok-dead-1", "tok-dead-2"}, store.removedTokens[1])
	assert.Equal(t, 2, report.TokensRemoved)
	assert.Equal(t, 1, report.Push.Sent)
	assert.Equal(t, 2, report.Push.Failed)

	assert.Equal(t, 1, report.Email.Sent, "email unaffected by push failures")
	assert.Len(t, wa.sent, 1, "whatsapp unaffected by push failures")
}

func TestRunWhatsAppCadence(t *testing.T) {
	// Only the day-before and day-of reminders go over WhatsApp, even
	// though all three deadlines are inside their email/push window.
	store := newFakeStore()
	store.users = []models.User{verifiedUser(1, "a@example.com")}
	store.deadlines[1] = []models.Deadline{
		deadline(10, "due today", 0, 30),
		deadline(11, "due tomorrow", 1, 30),
		deadline(12, "due in three days", 3, 30),
	}
	store.profiles[1] = &models.WhatsAppProfile{
		UserID: 1, PhoneNumber: "+391234567890",
		Verified: true, Enabled: true, ConsentGiven: true,
	}

	wa := &stubWhatsApp{}
	w := newTestWatchman(t, store, &stubEmail{}, &stubPush{}, wa)

	report, err := w.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.NotificationsTriggered)
	require.Len(t, wa.sent, 2)
	assert.Equal(t, 2, report.WhatsApp.Sent)
	for _, msg := range wa.sent {
		assert.Equal(t, "+391234567890", msg.To)
	}
}

func TestRunWhatsAppGate(t *testing.T) {
	base := func() *models.WhatsAppProfile {
		return &models.WhatsAppProfile{
			UserID: 1, PhoneNumber: "+391234567890",
			Verified: true, Enabled: true, ConsentGiven: true,
		}
	}

	tests := []struct {
		name    string
		mutate  func(u *models.User, p *models.WhatsAppProfile) *models.WhatsAppProfile
		expects int
	}{
		{"all conditions met", func(u *models.User, p *models.WhatsAppProfile) *models.WhatsAppProfile { return p }, 1},
		{"unverified", func(u *models.User, p *models.WhatsAppProfile) *models.WhatsAppProfile { p.Verified = false; return p }, 0},
		{"disabled", func(u *models.User, p *models.WhatsAppProfile) *models.WhatsAppProfile { p.Enabled = false; return p }, 0},
		{"no consent", func(u *models.User, p *models.WhatsAppProfile) *models.WhatsAppProfile { p.ConsentGiven = false; return p }, 0},
		{"free plan", func(u *models.User, p *models.WhatsAppProfile) *models.WhatsAppProfile { u.Plan = models.PlanFree; return p }, 0},
		{"no profile", func(u *models.User, p *models.WhatsAppProfile) *models.WhatsAppProfile { return nil }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			user := verifiedUser(1, "a@example.com")
			profile := tt.mutate(&user, base())
			store.users = []models.User{user}
			store.deadlines[1] = []models.Deadline{deadline(10, "due tomorrow", 1, 30)}
			if profile != nil {
				store.profiles[1] = profile
			}

			wa := &stubWhatsApp{}
			w := newTestWatchman(t, store, &stubEmail{}, &stubPush{}, wa)

			_, err := w.Run(context.Background())
			require.NoError(t, err)
			assert.Len(t, wa.sent, tt.expects)
		})
	}
}

func TestRunUserErrorDoesNotAbortBatch(t *testing.T) {
	store := newFakeStore()
	store.users = []models.User{verifiedUser(1, "broken@example.com"), verifiedUser(2, "ok@example.com")}
	store.deadlineErr[1] = fmt.Errorf("malformed profile document")
	store.deadlines[2] = []models.Deadline{deadline(20, "still delivered", 3, 30)}

	email := &stubEmail{}
	w := newTestWatchman(t, store, email, &stubPush{}, &stubWhatsApp{})

	report, err := w.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.CheckedUsers)
	assert.Equal(t, 1, report.UserErrors)
	require.Len(t, email.sent, 1)
	assert.Equal(t, "ok@example.com", email.sent[0].To)
}

func TestRunEmailFailureIsolatedFromPush(t *testing.T) {
	store := newFakeStore()
	store.users = []models.User{verifiedUser(1, "a@example.com")}
	store.deadlines[1] = []models.Deadline{deadline(10, "car insurance", 3, 30)}
	store.subs[1] = []models.PushSubscription{{UserID: 1, Token: "tok-1"}}

	email := &stubEmail{fail: true}
	push := &stubPush{}
	w := newTestWatchman(t, store, email, push, &stubWhatsApp{})

	report, err := w.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Email.Failed)
	assert.Equal(t, 1, report.Push.Sent, "push goes out even when email fails")
	assert.Equal(t, []uint{10}, store.notified)
}

func TestRunAggregatedEmailSortedByExpiration(t *testing.T) {
	store := newFakeStore()
	store.users = []models.User{verifiedUser(1, "a@example.com")}
	store.deadlines[1] = []models.Deadline{
		deadline(12, "later", 6, 30),
		deadline(10, "overdue", -2, 30),
		deadline(11, "today", 0, 30),
	}

	email := &stubEmail{}
	w := newTestWatchman(t, store, email, &stubPush{}, &stubWhatsApp{})

	_, err := w.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, email.sent, 1)
	body := email.sent[0].HTMLBody
	assert.Less(t, strings.Index(body, "overdue"), strings.Index(body, "today"))
	assert.Less(t, strings.Index(body, "today"), strings.Index(body, "later"))
	assert.Contains(t, body, "expired 2 days ago")
	assert.Contains(t, body, "due today")
	assert.Equal(t, "You have 3 deadline(s) needing attention", email.sent[0].Subject)
}

func TestRunFatalWhenEnumerationFails(t *testing.T) {
	w := newTestWatchman(t, &failingStore{}, &stubEmail{}, &stubPush{}, &stubWhatsApp{})

	report, err := w.Run(context.Background())
	assert.Error(t, err)
	assert.Nil(t, report)
}

// failingStore simulates a configuration-level failure: the directory
// itself cannot be enumerated.
type failingStore struct{}

func (f *failingStore) ForEachUserPage(context.Context, int, func([]models.User) error) error {
	return gorm.ErrInvalidDB
}
func (f *failingStore) DeadlinesForUser(context.Context, uint) ([]models.Deadline, error) {
	return nil, nil
}
func (f *failingStore) PushSubscriptionsForUser(context.Context, uint) ([]models.PushSubscription, error) {
	return nil, nil
}
func (f *failingStore) WhatsAppProfileForUser(context.Context, uint) (*models.WhatsAppProfile, error) {
	return nil, nil
}
func (f *failingStore) MarkNotified(context.Context, []uint) error          { return nil }
func (f *failingStore) RemovePushTokens(context.Context, uint, []string) error { return nil }
