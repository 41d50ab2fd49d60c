package meetup

import "time"

const (
	// MessageQuota is the number of messages each party may send.
	MessageQuota = 5
	// ChatGracePeriod keeps the chat open after the scheduled start.
	ChatGracePeriod = 2 * time.Hour
)

// ChatGuard enforces the per-role message quota of an event chat.
type ChatGuard struct {
	Quota int
}

func NewChatGuard() ChatGuard {
	return ChatGuard{Quota: MessageQuota}
}

func (g ChatGuard) count(chat *EventChat, role Role) *int {
	if role == RoleCreator {
		return &chat.CreatorMessageCount
	}
	return &chat.ParticipantMessageCount
}

// Remaining returns how many messages role may still send.
func (g ChatGuard) Remaining(chat *EventChat, role Role) int {
	if chat.IsLocked {
		return 0
	}
	left := g.Quota - *g.count(chat, role)
	if left < 0 {
		return 0
	}
	return left
}

// Admit checks whether role may send a message now.
func (g ChatGuard) Admit(chat *EventChat, role Role, now time.Time) error {
	if chat.IsLocked {
		return ErrChatLocked
	}
	if !now.Before(chat.ExpiresAt) {
		return ErrChatExpired
	}
	if *g.count(chat, role) >= g.Quota {
		return ErrQuotaExhausted
	}
	return nil
}

// Record counts an accepted message and locks the chat once both parties
// have used their quota.
func (g ChatGuard) Record(chat *EventChat, role Role, now time.Time) {
	*g.count(chat, role)++
	if chat.CreatorMessageCount >= g.Quota && chat.ParticipantMessageCount >= g.Quota && !chat.IsLocked {
		chat.IsLocked = true
		chat.LockedAt = &now
	}
}
