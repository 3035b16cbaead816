// Package channels holds the three independent notification senders
// (email, push, WhatsApp). Each sender converts every provider failure
// into a Result value; a dispatcher never returns a Go error, so one
// channel's outage cannot abort another's sends.
package channels

import "context"

// Result is the common outcome shape of every dispatcher.
type Result struct {
	Success bool
	Message string
}

// EmailMessage is one aggregated reminder email for a user.
type EmailMessage struct {
	To       string
	Subject  string
	HTMLBody string
}

// EmailSender delivers one email per user per watchman run.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) Result
}

// PushMessage is one push notification for a single device token.
type PushMessage struct {
	Token string
	Title string
	Body  string
	Link  string
}

// PushResult extends Result with the provider's invalid-token signal.
// InvalidToken means the token is permanently dead (unregistered device)
// and must be cleaned up, not retried.
type PushResult struct {
	Result
	InvalidToken bool
}

// PushSender delivers one push per (token, deadline).
type PushSender interface {
	Send(ctx context.Context, msg PushMessage) PushResult
}

// WhatsAppMessage is one templated reminder for a verified phone number.
type WhatsAppMessage struct {
	To   string
	Body string
}

// WhatsAppSender delivers WhatsApp reminders and OTP codes.
type WhatsAppSender interface {
	Send(ctx context.Context, msg WhatsAppMessage) Result
}
