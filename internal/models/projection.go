package models

import "strings"

type EventState string

const (
	StateOpen   EventState = "open"
	StateFull   EventState = "full"
	StateClosed EventState = "closed"
)

func (e *SportsEvent) ParticipantCount() int {
	return len(e.ParticipantIDs)
}

func (e *SportsEvent) SpotsRemaining() int {
	return max(0, e.MaxParticipants-e.ParticipantCount())
}

func (e *SportsEvent) IsFull() bool {
	return e.ParticipantCount() >= e.MaxParticipants
}

func (e *SportsEvent) IsClosed() bool {
	return !e.IsActive
}

func (e *SportsEvent) State() EventState {
	switch {
	case e.IsClosed():
		return StateClosed
	case e.IsFull():
		return StateFull
	default:
		return StateOpen
	}
}

// EventView is an event together with the values the UI derives from it.
type EventView struct {
	SportsEvent
	ParticipantCount int        `json:"participant_count"`
	SpotsRemaining   int        `json:"spots_remaining"`
	IsFull           bool       `json:"is_full"`
	IsClosed         bool       `json:"is_closed"`
	State            EventState `json:"state"`
	IsJoined         bool       `json:"is_joined"`
	IsCreator        bool       `json:"is_creator"`
}

// ViewOf projects e for the viewer identity. viewer may be empty.
func ViewOf(e SportsEvent, viewer string) EventView {
	return EventView{
		SportsEvent:      e,
		ParticipantCount: e.ParticipantCount(),
		SpotsRemaining:   e.SpotsRemaining(),
		IsFull:           e.IsFull(),
		IsClosed:         e.IsClosed(),
		State:            e.State(),
		IsJoined:         viewer != "" && e.HasParticipant(viewer),
		IsCreator:        viewer != "" && e.IsCreator(viewer),
	}
}

func ViewsOf(events []SportsEvent, viewer string) []EventView {
	out := make([]EventView, 0, len(events))
	for _, e := range events {
		out = append(out, ViewOf(e, viewer))
	}
	return out
}

// FilterBySport keeps events of the given sport. An empty sport or "All"
// keeps everything. Matching ignores case.
func FilterBySport(events []SportsEvent, sport string) []SportsEvent {
	sport = strings.TrimSpace(sport)
	if sport == "" || strings.EqualFold(sport, AllSports) {
		return filter(events, func(SportsEvent) bool { return true })
	}
	return filter(events, func(e SportsEvent) bool {
		return strings.EqualFold(e.Sport, sport)
	})
}

// OpenEvents is the browse list: active events only, closed ones excluded.
func OpenEvents(events []SportsEvent) []SportsEvent {
	return filter(events, func(e SportsEvent) bool { return e.IsActive })
}

// MyEvents returns events the identity is on the roster of, closed included.
func MyEvents(events []SportsEvent, userID string) []SportsEvent {
	return filter(events, func(e SportsEvent) bool { return e.HasParticipant(userID) })
}

func EventsCreatedBy(events []SportsEvent, userID string) []SportsEvent {
	return filter(events, func(e SportsEvent) bool { return e.CreatedBy == userID })
}

func filter(events []SportsEvent, keep func(SportsEvent) bool) []SportsEvent {
	out := make([]SportsEvent, 0, len(events))
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
