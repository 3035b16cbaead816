package watchman

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/domyzanna/pittima/internal/channels"
	"github.com/domyzanna/pittima/internal/deadlines"
	"github.com/domyzanna/pittima/internal/models"
)

// dueLabel renders the human annotation attached to each deadline:
// overdue, due today, or the formatted due date.
func dueLabel(daysLeft int, due time.Time) string {
	switch {
	case daysLeft < 0:
		if daysLeft == -1 {
			return "expired 1 day ago"
		}
		return fmt.Sprintf("expired %d days ago", -daysLeft)
	case daysLeft == 0:
		return "due today"
	default:
		return "due " + due.Format("2 January 2006")
	}
}

// composeEmail builds the single aggregated email for one user. The
// eligible slice is already sorted by ascending expiration date.
func (w *Watchman) composeEmail(user *models.User, eligible []models.Deadline, today time.Time) channels.EmailMessage {
	name := user.DisplayName
	if name == "" {
		name = user.Email
	}

	var b strings.Builder
	b.WriteString("<p>")
	b.WriteString(html.EscapeString(fmt.Sprintf(w.templates.Email.Intro, name)))
	b.WriteString("</p>\n<ul>\n")
	for _, d := range eligible {
		daysLeft := deadlines.DaysUntil(today, d.ExpirationDate, w.loc)
		b.WriteString(fmt.Sprintf("  <li><strong>%s</strong>: %s (%s)</li>\n",
			html.EscapeString(d.Name),
			html.EscapeString(dueLabel(daysLeft, d.ExpirationDate)),
			deadlines.Classify(daysLeft)))
	}
	b.WriteString("</ul>\n")

	return channels.EmailMessage{
		To:       user.Email,
		Subject:  fmt.Sprintf(w.templates.Email.Subject, len(eligible)),
		HTMLBody: b.String(),
	}
}

// composePush builds one push payload for a single deadline.
func (w *Watchman) composePush(token string, d *models.Deadline, today time.Time) channels.PushMessage {
	daysLeft := deadlines.DaysUntil(today, d.ExpirationDate, w.loc)
	return channels.PushMessage{
		Token: token,
		Title: w.templates.Push.Title,
		Body:  fmt.Sprintf(w.templates.Push.Body, d.Name, dueLabel(daysLeft, d.ExpirationDate)),
		Link:  "/deadlines",
	}
}

// composeWhatsApp builds one WhatsApp reminder for a single deadline.
func (w *Watchman) composeWhatsApp(phone string, d *models.Deadline, today time.Time) channels.WhatsAppMessage {
	daysLeft := deadlines.DaysUntil(today, d.ExpirationDate, w.loc)
	return channels.WhatsAppMessage{
		To:   phone,
		Body: fmt.Sprintf(w.templates.WhatsApp.Body, d.Name, dueLabel(daysLeft, d.ExpirationDate)),
	}
}
