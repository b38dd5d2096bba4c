package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const MessagesColName = "messages"

type MessageKind string

const (
	MessageText        MessageKind = "text"
	MessageSystemJoin  MessageKind = "system_join"
	MessageSystemLeave MessageKind = "system_leave"
	MessageSystemKick  MessageKind = "system_kick"
)

func (k MessageKind) IsSystem() bool {
	switch k {
	case MessageSystemJoin, MessageSystemLeave, MessageSystemKick:
		return true
	default:
		return false
	}
}

type ChatMessage struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID    string             `bson:"event_id" json:"event_id"`
	SenderID   string             `bson:"sender_id" json:"sender_id"`
	SenderName string             `bson:"sender_name" json:"sender_name"`
	Body       string             `bson:"body" json:"body"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
	Kind       MessageKind        `bson:"kind" json:"kind"`
}

func (m *ChatMessage) BeforeCreate() error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	return nil
}

// SystemText renders the notice stored for a join, leave or kick.
func SystemText(kind MessageKind, userName, reason string) string {
	switch kind {
	case MessageSystemJoin:
		return fmt.Sprintf("%s joined the event", userName)
	case MessageSystemLeave:
		return fmt.Sprintf("%s left the event", userName)
	case MessageSystemKick:
		if reason == "" {
			return fmt.Sprintf("%s was removed from the event", userName)
		}
		return fmt.Sprintf("%s was removed from the event: %s", userName, reason)
	default:
		return ""
	}
}

// ChatRepo is the document-store boundary for chat messages. Messages are
// append-only; the store assigns ID and Timestamp on insert.
type ChatRepo interface {
	InsertMessage(ctx context.Context, msg *ChatMessage) error
	// ListMessages returns an event's messages, oldest first.
	ListMessages(ctx context.Context, eventID string) ([]ChatMessage, error)
	DeleteEventMessages(ctx context.Context, eventID string) error
	// WatchMessages emits the event's full message list, oldest first, on
	// every change. The channel is closed when ctx ends or the query fails.
	WatchMessages(ctx context.Context, eventID string) (<-chan []ChatMessage, error)
}
