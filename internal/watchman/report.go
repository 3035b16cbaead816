package watchman

import "time"

// ChannelStats counts per-channel outcomes for one run.
type ChannelStats struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// RunReport is the aggregated summary of one watchman invocation. It is
// ephemeral: returned to the caller, logged, and cached for the admin
// endpoint, never stored as a domain entity.
type RunReport struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	CheckedUsers           int `json:"checkedUsers"`
	FoundDeadlines         int `json:"foundDeadlines"`
	NotificationsTriggered int `json:"notificationsTriggered"`

	Email    ChannelStats `json:"email"`
	Push     ChannelStats `json:"push"`
	WhatsApp ChannelStats `json:"whatsapp"`

	TokensRemoved int `json:"tokensRemoved"`
	UserErrors    int `json:"userErrors"`
}
