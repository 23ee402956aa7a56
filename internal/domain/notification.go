package domain

import "time"

// NotificationKind partitions notifications for cooldown deduplication.
type NotificationKind string

const (
	KindRenewal         NotificationKind = "renewal"
	KindSessionReminder NotificationKind = "session_reminder"
	KindProgress        NotificationKind = "progress"
)

// Notification is an append-only member alert. Only the read flag mutates.
type Notification struct {
	ID        string
	MemberID  string
	Kind      NotificationKind
	Message   string
	Read      bool
	CreatedAt time.Time
}
