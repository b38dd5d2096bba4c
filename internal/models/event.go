package models

import (
	"context"
	"strings"
	"time"
)

const (
	EventsColName       = "events"
	MinEventCapacity    = 2
	MaxEventCapacity    = 20
	AllSports           = "All"
	DefaultEventsDBName = "campusplay"
)

type Difficulty string

const (
	Beginner     Difficulty = "Beginner"
	Intermediate Difficulty = "Intermediate"
	Advanced     Difficulty = "Advanced"
)

type KickRecord struct {
	UserID   string    `bson:"user_id" json:"user_id"`
	UserName string    `bson:"user_name" json:"user_name"`
	Reason   string    `bson:"reason" json:"reason"`
	KickedAt time.Time `bson:"kicked_at" json:"kicked_at"`
}

type SportsEvent struct {
	ID               string            `bson:"_id" json:"id"`
	Title            string            `bson:"title" json:"title"`
	Sport            string            `bson:"sport" json:"sport"`
	Location         string            `bson:"location" json:"location"`
	Date             string            `bson:"date" json:"date"` // display string, e.g. "Fri, Oct 17"
	Time             string            `bson:"time" json:"time"` // display string, e.g. "6:30 PM"
	MaxParticipants  int               `bson:"max_participants" json:"max_participants"`
	ParticipantIDs   []string          `bson:"participant_ids" json:"participant_ids"` // join order
	ParticipantNames map[string]string `bson:"participant_names" json:"participant_names"`
	CreatedBy        string            `bson:"created_by" json:"created_by"`
	CreatedByName    string            `bson:"created_by_name" json:"created_by_name"`
	CreatedAt        time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `bson:"updated_at" json:"updated_at"`
	Description      string            `bson:"description" json:"description"`
	Difficulty       Difficulty        `bson:"difficulty" json:"difficulty"`
	IsActive         bool              `bson:"is_active" json:"is_active"`
	ClosedReason     *string           `bson:"closed_reason,omitempty" json:"closed_reason,omitempty"`
	ClosedAt         *time.Time        `bson:"closed_at,omitempty" json:"closed_at,omitempty"`
	Kicked           []KickRecord      `bson:"kicked" json:"kicked"`
}

// EventInput carries the user-supplied fields of a new event.
type EventInput struct {
	Title           string     `json:"title" validate:"required"`
	Sport           string     `json:"sport" validate:"required"`
	Location        string     `json:"location" validate:"required"`
	Date            string     `json:"date" validate:"required"`
	Time            string     `json:"time" validate:"required"`
	MaxParticipants int        `json:"max_participants" validate:"min=2,max=20"`
	Description     string     `json:"description"`
	Difficulty      Difficulty `json:"difficulty" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
}

func (in *EventInput) Sanitize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Sport = strings.TrimSpace(in.Sport)
	in.Location = strings.TrimSpace(in.Location)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.Description = strings.TrimSpace(in.Description)
	if in.Difficulty == "" {
		in.Difficulty = Beginner
	}
}

// HasParticipant reports whether userID is currently on the roster.
func (e *SportsEvent) HasParticipant(userID string) bool {
	for _, id := range e.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (e *SportsEvent) IsCreator(userID string) bool {
	return e.CreatedBy == userID
}

// EventRepo is the document-store boundary for events. The mutating methods
// are conditional: when the stated precondition does not hold at write time
// they change nothing and return ErrPreconditionFailed.
type EventRepo interface {
	InsertEvent(ctx context.Context, event *SportsEvent) error
	GetEvent(ctx context.Context, id string) (*SportsEvent, error)
	ListEvents(ctx context.Context) ([]SportsEvent, error)
	// active, userID not on roster, roster below capacity
	AddParticipant(ctx context.Context, eventID, userID, userName string) error
	// active, userID on roster, userID is not the creator
	RemoveParticipant(ctx context.Context, eventID, userID string) error
	// active, actorID is the creator, target on roster, target is not the creator
	KickParticipant(ctx context.Context, eventID, actorID string, record KickRecord) error
	// active, actorID is the creator
	CloseEvent(ctx context.Context, eventID, actorID, reason string, at time.Time) error
	// actorID is the creator
	DeleteEvent(ctx context.Context, eventID, actorID string) error
	// active, actorID is the creator, roster size <= max
	UpdateMaxParticipants(ctx context.Context, eventID, actorID string, max int) error
	// WatchEvents emits the full event list, newest first, on every change.
	// The channel is closed when ctx ends or the live query fails.
	WatchEvents(ctx context.Context) (<-chan []SportsEvent, error)
}
