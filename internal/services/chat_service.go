package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/joshua-takyi/campusplay/internal/live"
	"github.com/joshua-takyi/campusplay/internal/models"
)

const MaxMessageLength = 1000

func chatKey(eventID string) string {
	return "chat:" + eventID
}

// ChatService records per-event chat. Who may read or post is derived from
// the event's current roster on every call; nothing is cached here.
type ChatService struct {
	messages models.ChatRepo
	events   models.EventRepo
	profiles *ProfileService
	hub      *live.Hub[[]models.ChatMessage]
	timeout  time.Duration
	logger   *slog.Logger

	// chat key -> subscriber id -> identity behind that stream
	viewersMu sync.Mutex
	viewers   map[string]map[string]string
}

func NewChatService(messages models.ChatRepo, events models.EventRepo, profiles *ProfileService, hub *live.Hub[[]models.ChatMessage], timeout time.Duration, logger *slog.Logger) *ChatService {
	return &ChatService{
		messages: messages,
		events:   events,
		profiles: profiles,
		hub:      hub,
		timeout:  timeout,
		logger:   logger,
		viewers:  make(map[string]map[string]string),
	}
}

func (cs *ChatService) loadEvent(ctx context.Context, eventID string) (*models.SportsEvent, error) {
	ctx, cancel := withStoreTimeout(ctx, cs.timeout)
	defer cancel()

	event, err := cs.events.GetEvent(ctx, eventID)
	if errors.Is(err, models.ErrNoDocument) {
		return nil, models.ErrEventNotFound
	}
	if err != nil {
		return nil, models.StoreFailure("get event", err)
	}
	return event, nil
}

// SendMessage appends a text message from a current participant of an
// active event.
func (cs *ChatService) SendMessage(ctx context.Context, eventID, senderID, body string) (*models.ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, models.ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return nil, models.Validationf("message must be at most %d characters", MaxMessageLength)
	}

	event, err := cs.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsActive {
		return nil, models.ErrEventClosed
	}
	if !event.HasParticipant(senderID) {
		return nil, models.ErrNotAuthorized
	}

	senderName := event.ParticipantNames[senderID]
	if senderName == "" {
		senderName = cs.profiles.DisplayName(ctx, senderID)
	}

	msg := &models.ChatMessage{
		EventID:    eventID,
		SenderID:   senderID,
		SenderName: senderName,
		Body:       body,
		Kind:       models.MessageText,
	}

	storeCtx, cancel := withStoreTimeout(ctx, cs.timeout)
	defer cancel()
	if err := cs.messages.InsertMessage(storeCtx, msg); err != nil {
		return nil, models.StoreFailure("send message", err)
	}
	return msg, nil
}

// appendSystemMessage records a join, leave or kick notice. It is only
// called by the event catalog after the roster change has landed.
func (cs *ChatService) appendSystemMessage(ctx context.Context, eventID, subjectID, subjectName string, kind models.MessageKind, reason string) error {
	if !kind.IsSystem() {
		return models.Validationf("%s is not a system message kind", kind)
	}

	msg := &models.ChatMessage{
		EventID:    eventID,
		SenderID:   subjectID,
		SenderName: subjectName,
		Body:       models.SystemText(kind, subjectName, reason),
		Kind:       kind,
	}

	ctx, cancel := withStoreTimeout(ctx, cs.timeout)
	defer cancel()
	if err := cs.messages.InsertMessage(ctx, msg); err != nil {
		return models.StoreFailure("append system message", err)
	}
	return nil
}

// ListMessages returns the history of an event, oldest first, to one of its
// participants.
func (cs *ChatService) ListMessages(ctx context.Context, eventID, viewerID string) ([]models.ChatMessage, error) {
	event, err := cs.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.HasParticipant(viewerID) {
		return nil, models.ErrNotAuthorized
	}

	storeCtx, cancel := withStoreTimeout(ctx, cs.timeout)
	defer cancel()
	msgs, err := cs.messages.ListMessages(storeCtx, eventID)
	if err != nil {
		return nil, models.StoreFailure("list messages", err)
	}
	return msgs, nil
}

// Subscribe streams the ordered history of an event to subscriberID.
// Subscribing again with the same id returns the same stream; all
// subscribers of one event share a single live query.
func (cs *ChatService) Subscribe(ctx context.Context, eventID, viewerID, subscriberID string) (<-chan []models.ChatMessage, error) {
	event, err := cs.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.HasParticipant(viewerID) {
		return nil, models.ErrNotAuthorized
	}

	key := chatKey(eventID)
	ch, err := cs.hub.Subscribe(key, subscriberID, func(ctx context.Context) (<-chan []models.ChatMessage, error) {
		return cs.messages.WatchMessages(ctx, eventID)
	})
	if err != nil {
		return nil, models.StoreFailure("subscribe to chat", err)
	}
	cs.addViewer(key, subscriberID, viewerID)

	// a removal that landed between the check above and addViewer would
	// have found nothing to revoke
	event, err = cs.loadEvent(ctx, eventID)
	if err != nil || !event.HasParticipant(viewerID) {
		cs.Unsubscribe(eventID, subscriberID)
		if err != nil {
			return nil, err
		}
		return nil, models.ErrNotAuthorized
	}
	return ch, nil
}

// Unsubscribe is a no-op when subscriberID is not subscribed.
func (cs *ChatService) Unsubscribe(eventID, subscriberID string) {
	key := chatKey(eventID)
	cs.hub.Unsubscribe(key, subscriberID)
	cs.removeViewer(key, subscriberID)
}

func (cs *ChatService) UnsubscribeAll(subscriberID string) {
	cs.hub.UnsubscribeAll(subscriberID)

	cs.viewersMu.Lock()
	defer cs.viewersMu.Unlock()
	for key, subs := range cs.viewers {
		delete(subs, subscriberID)
		if len(subs) == 0 {
			delete(cs.viewers, key)
		}
	}
}

// revokeViewer closes every chat stream userID holds on eventID. It runs
// after userID has left the roster, before anything else is posted.
func (cs *ChatService) revokeViewer(eventID, userID string) {
	key := chatKey(eventID)

	cs.viewersMu.Lock()
	var revoked []string
	for subscriberID, viewer := range cs.viewers[key] {
		if viewer == userID {
			revoked = append(revoked, subscriberID)
		}
	}
	cs.viewersMu.Unlock()

	for _, subscriberID := range revoked {
		cs.Unsubscribe(eventID, subscriberID)
	}
	if len(revoked) > 0 {
		cs.logger.Info("chat streams revoked", "event_id", eventID, "user_id", userID, "streams", len(revoked))
	}
}

func (cs *ChatService) addViewer(key, subscriberID, userID string) {
	cs.viewersMu.Lock()
	defer cs.viewersMu.Unlock()
	if cs.viewers[key] == nil {
		cs.viewers[key] = make(map[string]string)
	}
	cs.viewers[key][subscriberID] = userID
}

func (cs *ChatService) removeViewer(key, subscriberID string) {
	cs.viewersMu.Lock()
	defer cs.viewersMu.Unlock()
	delete(cs.viewers[key], subscriberID)
	if len(cs.viewers[key]) == 0 {
		delete(cs.viewers, key)
	}
}

// deleteHistory removes an event's messages and ends its live streams.
func (cs *ChatService) deleteHistory(ctx context.Context, eventID string) error {
	key := chatKey(eventID)
	cs.hub.Drop(key)
	cs.viewersMu.Lock()
	delete(cs.viewers, key)
	cs.viewersMu.Unlock()

	ctx, cancel := withStoreTimeout(ctx, cs.timeout)
	defer cancel()
	if err := cs.messages.DeleteEventMessages(ctx, eventID); err != nil {
		return models.StoreFailure("delete chat history", err)
	}
	return nil
}
