// Package memstore is an in-process reactive document store. It implements
// the same repository contracts as the Mongo and Supabase backends, with
// each conditional update checked and applied under one lock, and pushes a
// fresh snapshot to watchers after every write.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/joshua-takyi/campusplay/internal/models"
)

type Store struct {
	mu       sync.RWMutex
	events   map[string]*models.SportsEvent
	messages map[string][]models.ChatMessage
	profiles map[string]*models.UserProfile

	eventSubs   map[chan []models.SportsEvent]struct{}
	messageSubs map[string]map[chan []models.ChatMessage]struct{}

	failNext error
	now      func() time.Time
}

func New() *Store {
	return &Store{
		events:      make(map[string]*models.SportsEvent),
		messages:    make(map[string][]models.ChatMessage),
		profiles:    make(map[string]*models.UserProfile),
		eventSubs:   make(map[chan []models.SportsEvent]struct{}),
		messageSubs: make(map[string]map[chan []models.ChatMessage]struct{}),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// FailNext makes the next store call return err instead of touching data.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *Store) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

// events

func (s *Store) InsertEvent(ctx context.Context, event *models.SportsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	if _, exists := s.events[event.ID]; exists {
		return fmt.Errorf("event %s already exists", event.ID)
	}
	s.events[event.ID] = cloneEvent(event)
	s.publishEventsLocked()
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*models.SportsEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	event, exists := s.events[id]
	if !exists {
		return nil, models.ErrNoDocument
	}
	return cloneEvent(event), nil
}

func (s *Store) ListEvents(ctx context.Context) ([]models.SportsEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	return s.listEventsLocked(), nil
}

func (s *Store) AddParticipant(ctx context.Context, eventID, userID, userName string) error {
	return s.updateEvent(eventID, func(e *models.SportsEvent) bool {
		if !e.IsActive || e.HasParticipant(userID) || len(e.ParticipantIDs) >= e.MaxParticipants {
			return false
		}
		e.ParticipantIDs = append(e.ParticipantIDs, userID)
		e.ParticipantNames[userID] = userName
		return true
	})
}

func (s *Store) RemoveParticipant(ctx context.Context, eventID, userID string) error {
	return s.updateEvent(eventID, func(e *models.SportsEvent) bool {
		if !e.IsActive || !e.HasParticipant(userID) || e.CreatedBy == userID {
			return false
		}
		removeParticipant(e, userID)
		return true
	})
}

func (s *Store) KickParticipant(ctx context.Context, eventID, actorID string, record models.KickRecord) error {
	return s.updateEvent(eventID, func(e *models.SportsEvent) bool {
		if !e.IsActive || e.CreatedBy != actorID || record.UserID == actorID || !e.HasParticipant(record.UserID) {
			return false
		}
		removeParticipant(e, record.UserID)
		e.Kicked = append(e.Kicked, record)
		return true
	})
}

func (s *Store) CloseEvent(ctx context.Context, eventID, actorID, reason string, at time.Time) error {
	return s.updateEvent(eventID, func(e *models.SportsEvent) bool {
		if !e.IsActive || e.CreatedBy != actorID {
			return false
		}
		e.IsActive = false
		e.ClosedReason = &reason
		closedAt := at
		e.ClosedAt = &closedAt
		return true
	})
}

func (s *Store) DeleteEvent(ctx context.Context, eventID, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	event, exists := s.events[eventID]
	if !exists || event.CreatedBy != actorID {
		return models.ErrPreconditionFailed
	}
	delete(s.events, eventID)
	s.publishEventsLocked()
	return nil
}

func (s *Store) UpdateMaxParticipants(ctx context.Context, eventID, actorID string, max int) error {
	return s.updateEvent(eventID, func(e *models.SportsEvent) bool {
		if !e.IsActive || e.CreatedBy != actorID || len(e.ParticipantIDs) > max {
			return false
		}
		e.MaxParticipants = max
		return true
	})
}

func (s *Store) WatchEvents(ctx context.Context) (<-chan []models.SportsEvent, error) {
	s.mu.Lock()
	if err := s.takeFailure(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	ch := make(chan []models.SportsEvent, 1)
	ch <- s.listEventsLocked()
	s.eventSubs[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.eventSubs, ch)
		close(ch)
	}()
	return ch, nil
}

// updateEvent runs apply on a working copy and commits it only when apply
// reports that its precondition held.
func (s *Store) updateEvent(eventID string, apply func(e *models.SportsEvent) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	current, exists := s.events[eventID]
	if !exists {
		return models.ErrPreconditionFailed
	}
	working := cloneEvent(current)
	if !apply(working) {
		return models.ErrPreconditionFailed
	}
	working.UpdatedAt = s.now()
	s.events[eventID] = working
	s.publishEventsLocked()
	return nil
}

func (s *Store) listEventsLocked() []models.SportsEvent {
	out := make([]models.SportsEvent, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, *cloneEvent(e))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) publishEventsLocked() {
	if len(s.eventSubs) == 0 {
		return
	}
	snapshot := s.listEventsLocked()
	for ch := range s.eventSubs {
		offer(ch, snapshot)
	}
}

// messages

func (s *Store) InsertMessage(ctx context.Context, msg *models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	if err := msg.BeforeCreate(); err != nil {
		return err
	}
	ts := s.now()
	history := s.messages[msg.EventID]
	if n := len(history); n > 0 && ts.Before(history[n-1].Timestamp) {
		ts = history[n-1].Timestamp
	}
	msg.Timestamp = ts
	s.messages[msg.EventID] = append(history, *msg)
	s.publishMessagesLocked(msg.EventID)
	return nil
}

func (s *Store) ListMessages(ctx context.Context, eventID string) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	return slices.Clone(s.messages[eventID]), nil
}

func (s *Store) DeleteEventMessages(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	delete(s.messages, eventID)
	s.publishMessagesLocked(eventID)
	return nil
}

func (s *Store) WatchMessages(ctx context.Context, eventID string) (<-chan []models.ChatMessage, error) {
	s.mu.Lock()
	if err := s.takeFailure(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	ch := make(chan []models.ChatMessage, 1)
	ch <- slices.Clone(s.messages[eventID])
	subs, ok := s.messageSubs[eventID]
	if !ok {
		subs = make(map[chan []models.ChatMessage]struct{})
		s.messageSubs[eventID] = subs
	}
	subs[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.messageSubs[eventID], ch)
		if len(s.messageSubs[eventID]) == 0 {
			delete(s.messageSubs, eventID)
		}
		close(ch)
	}()
	return ch, nil
}

// MessageWatchers reports how many live message queries are open for eventID.
func (s *Store) MessageWatchers(eventID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messageSubs[eventID])
}

func (s *Store) publishMessagesLocked(eventID string) {
	subs := s.messageSubs[eventID]
	if len(subs) == 0 {
		return
	}
	for ch := range subs {
		offer(ch, slices.Clone(s.messages[eventID]))
	}
}

// profiles

func (s *Store) GetProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	profile, exists := s.profiles[id]
	if !exists {
		return nil, models.ErrNoDocument
	}
	return cloneProfile(profile), nil
}

func (s *Store) CreateProfile(ctx context.Context, profile *models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	if _, exists := s.profiles[profile.ID]; exists {
		return models.ErrProfileExists
	}
	s.profiles[profile.ID] = cloneProfile(profile)
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, fields map[string]interface{}) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	current, exists := s.profiles[id]
	if !exists {
		return nil, models.ErrNoDocument
	}
	working := cloneProfile(current)
	if err := applyProfileFields(working, fields); err != nil {
		return nil, err
	}
	s.profiles[id] = working
	return cloneProfile(working), nil
}

func applyProfileFields(p *models.UserProfile, fields map[string]interface{}) error {
	for key, value := range fields {
		var ok bool
		switch key {
		case "full_name":
			p.FullName, ok = value.(string)
		case "major":
			p.Major, ok = value.(string)
		case "year":
			p.Year, ok = value.(string)
		case "bio":
			p.Bio, ok = value.(string)
		case "avatar_url":
			p.AvatarURL, ok = value.(string)
		case "favorite_sports":
			var sports []string
			sports, ok = value.([]string)
			p.FavoriteSports = slices.Clone(sports)
		case "skill_level":
			p.SkillLevel, ok = value.(models.SkillLevel)
		case "updated_at":
			p.UpdatedAt, ok = value.(time.Time)
		default:
			return fmt.Errorf("unknown profile field %q", key)
		}
		if !ok {
			return fmt.Errorf("invalid value for profile field %q", key)
		}
	}
	return nil
}

// offer delivers v, replacing an undelivered older snapshot if the consumer
// has fallen behind.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

func removeParticipant(e *models.SportsEvent, userID string) {
	e.ParticipantIDs = slices.DeleteFunc(e.ParticipantIDs, func(id string) bool { return id == userID })
	delete(e.ParticipantNames, userID)
}

func cloneEvent(e *models.SportsEvent) *models.SportsEvent {
	c := *e
	c.ParticipantIDs = slices.Clone(e.ParticipantIDs)
	if c.ParticipantIDs == nil {
		c.ParticipantIDs = []string{}
	}
	c.ParticipantNames = make(map[string]string, len(e.ParticipantNames))
	for k, v := range e.ParticipantNames {
		c.ParticipantNames[k] = v
	}
	c.Kicked = slices.Clone(e.Kicked)
	if c.Kicked == nil {
		c.Kicked = []models.KickRecord{}
	}
	if e.ClosedReason != nil {
		reason := *e.ClosedReason
		c.ClosedReason = &reason
	}
	if e.ClosedAt != nil {
		at := *e.ClosedAt
		c.ClosedAt = &at
	}
	return &c
}

func cloneProfile(p *models.UserProfile) *models.UserProfile {
	c := *p
	c.FavoriteSports = slices.Clone(p.FavoriteSports)
	c.JoinedEventIDs = slices.Clone(p.JoinedEventIDs)
	c.CreatedEventIDs = slices.Clone(p.CreatedEventIDs)
	return &c
}

var (
	_ models.EventRepo   = (*Store)(nil)
	_ models.ChatRepo    = (*Store)(nil)
	_ models.ProfileRepo = (*Store)(nil)
)
