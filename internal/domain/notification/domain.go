package notification

import (
	"context"
	"time"
)

type Type string

const (
	TypeStar    Type = "star"
	TypeFork    Type = "fork"
	TypeFollow  Type = "follow"
	TypeComment Type = "comment"
	TypeMention Type = "mention"
	TypeSystem  Type = "system"
)

var Types = []Type{TypeStar, TypeFork, TypeFollow, TypeComment, TypeMention, TypeSystem}

func (t Type) Valid() bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Notification struct {
	ID            string         `json:"id"`
	RecipientID   string         `json:"recipient_id"`
	SenderID      string         `json:"sender_id,omitempty"`
	Type          Type           `json:"type"`
	Title         string         `json:"title"`
	Message       string         `json:"message"`
	Data          map[string]any `json:"data,omitempty"`
	Priority      Priority       `json:"priority"`
	RelatedNoteID string         `json:"related_note_id,omitempty"`
	RelatedUserID string         `json:"related_user_id,omitempty"`
	IsRead        bool           `json:"is_read"`
	ReadAt        *time.Time     `json:"read_at"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Clone returns a copy that shares nothing mutable with n except Data,
// which is treated as read-only.
func (n Notification) Clone() Notification {
	if n.ReadAt != nil {
		at := *n.ReadAt
		n.ReadAt = &at
	}
	return n
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Publisher pushes a stored notification to whatever realtime transport
// the recipient's clients subscribe to.
type Publisher interface {
	PublishNotification(ctx context.Context, n Notification) error
}
