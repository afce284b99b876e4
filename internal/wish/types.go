// Package wish holds the persisted data model shared by the store, the
// scheduler and the command surface.
package wish

import "time"

// ArchiveReason records why a wish left the active set.
type ArchiveReason string

const (
	ReasonManual     ArchiveReason = "manual"
	ReasonSent       ArchiveReason = "sent"
	ReasonSendFailed ArchiveReason = "send_failed"
	ReasonPastDate   ArchiveReason = "auto_archived_past_date"
)

// Wish is a one-time message scheduled for a single recipient.
type Wish struct {
	ID               string     `json:"id"`
	Date             string     `json:"date"` // DD/MM/YYYY
	Time             string     `json:"time"` // HH:MM
	Recipient        string     `json:"jid"`
	Message          string     `json:"message"`
	CreatedBy        string     `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
	Archived         bool       `json:"archived"`
	RescheduledFrom  string     `json:"rescheduled_from,omitempty"`
	SentAt           *time.Time `json:"sent_at,omitempty"`
	SentSuccessfully *bool      `json:"sent_successfully,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
}

// MarkSent stamps the delivery outcome onto w.
func (w *Wish) MarkSent(at time.Time, sendErr error) {
	ok := sendErr == nil
	w.SentAt = &at
	w.SentSuccessfully = &ok
	if sendErr != nil {
		w.ErrorMessage = sendErr.Error()
	}
}

// Due reports whether w is scheduled for exactly the minute s.
func (w Wish) Due(s Stamp) bool {
	return w.Date == s.Date && w.Time == s.Time
}

// ArchivedWish is a wish that has left the active set.
type ArchivedWish struct {
	Wish
	ArchivedAt     time.Time     `json:"archived_at"`
	ArchivedReason ArchiveReason `json:"archived_reason"`
}

// Delivered reports whether the archived record carries a successful send.
func (a ArchivedWish) Delivered() bool {
	return a.SentSuccessfully != nil && *a.SentSuccessfully
}

// GroupWish is a broadcast to every member of a named group on a month/day.
type GroupWish struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"` // DD/MM
	Time      string    `json:"time"` // HH:MM
	GroupName string    `json:"groupName"`
	Message   string    `json:"message"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Due reports whether g fires on the month/day and minute of s.
func (g GroupWish) Due(s Stamp) bool {
	return g.Date == s.MonthDay() && g.Time == s.Time
}

// Member is one recipient inside a group.
type Member struct {
	Address string    `json:"jid"`
	Name    string    `json:"name"`
	AddedBy string    `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

// Group is a named recipient list.
type Group struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	Members     []Member  `json:"members"`
}

// Addresses returns the member addresses in insertion order.
func (g Group) Addresses() []string {
	out := make([]string, len(g.Members))
	for i, m := range g.Members {
		out[i] = m.Address
	}
	return out
}

// BotState is the persisted run state of the bot.
type BotState struct {
	Active        bool       `json:"active"`
	LastActivity  time.Time  `json:"lastActivity"`
	ActivatedBy   string     `json:"activated_by,omitempty"`
	ActivatedAt   *time.Time `json:"activated_at,omitempty"`
	DeactivatedBy string     `json:"deactivated_by,omitempty"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// Activity is one entry of the capped activity log.
type Activity struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Backup is a full snapshot of every persisted collection.
type Backup struct {
	Wishes         []Wish           `json:"wishes"`
	ArchivedWishes []ArchivedWish   `json:"archivedWishes"`
	GroupWishes    []GroupWish      `json:"groupWishes"`
	UserGroups     map[string]Group `json:"userGroups"`
	Whitelist      []string         `json:"whitelist"`
	BotConfig      BotState         `json:"botConfig"`
	BackupDate     time.Time        `json:"backup_date"`
}
