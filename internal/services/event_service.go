package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joshua-takyi/campusplay/internal/live"
	"github.com/joshua-takyi/campusplay/internal/models"
)

const eventsFeedKey = "events"

type EventScope string

const (
	ScopeOpen    EventScope = "open"
	ScopeMine    EventScope = "mine"
	ScopeCreated EventScope = "created"
)

// EventService is the only writer of event rosters and lifecycle state.
// Every mutation is checked against a fresh read first, then applied with a
// conditional write so that only one of several racing writers wins.
type EventService struct {
	events   models.EventRepo
	chat     *ChatService
	profiles *ProfileService
	hub      *live.Hub[[]models.SportsEvent]
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewEventService(events models.EventRepo, chat *ChatService, profiles *ProfileService, hub *live.Hub[[]models.SportsEvent], timeout time.Duration, logger *slog.Logger) *EventService {
	return &EventService{
		events:   events,
		chat:     chat,
		profiles: profiles,
		hub:      hub,
		timeout:  timeout,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (es *EventService) CreateEvent(ctx context.Context, in models.EventInput, creatorID string) (*models.SportsEvent, error) {
	in.Sanitize()
	if err := models.Validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if creatorID == "" {
		return nil, models.ErrNotAuthorized
	}

	creatorName := es.profiles.DisplayName(ctx, creatorID)
	now := es.now()
	event := &models.SportsEvent{
		ID:               uuid.New().String(),
		Title:            in.Title,
		Sport:            in.Sport,
		Location:         in.Location,
		Date:             in.Date,
		Time:             in.Time,
		MaxParticipants:  in.MaxParticipants,
		ParticipantIDs:   []string{creatorID},
		ParticipantNames: map[string]string{creatorID: creatorName},
		CreatedBy:        creatorID,
		CreatedByName:    creatorName,
		CreatedAt:        now,
		UpdatedAt:        now,
		Description:      in.Description,
		Difficulty:       in.Difficulty,
		IsActive:         true,
		Kicked:           []models.KickRecord{},
	}

	storeCtx, cancel := withStoreTimeout(ctx, es.timeout)
	defer cancel()
	if err := es.events.InsertEvent(storeCtx, event); err != nil {
		return nil, models.StoreFailure("create event", err)
	}

	es.logger.Info("event created", "event_id", event.ID, "user_id", creatorID, "sport", event.Sport)
	return event, nil
}

func (es *EventService) GetEvent(ctx context.Context, id string) (*models.SportsEvent, error) {
	ctx, cancel := withStoreTimeout(ctx, es.timeout)
	defer cancel()

	event, err := es.events.GetEvent(ctx, id)
	if errors.Is(err, models.ErrNoDocument) {
		return nil, models.ErrEventNotFound
	}
	if err != nil {
		return nil, models.StoreFailure("get event", err)
	}
	return event, nil
}

// ListEvents returns the projected events for viewer in the given scope,
// filtered by sport. An empty scope means the open-events browse list.
func (es *EventService) ListEvents(ctx context.Context, viewerID string, scope EventScope, sport string) ([]models.EventView, error) {
	storeCtx, cancel := withStoreTimeout(ctx, es.timeout)
	defer cancel()

	events, err := es.events.ListEvents(storeCtx)
	if err != nil {
		return nil, models.StoreFailure("list events", err)
	}

	scoped, err := applyScope(events, viewerID, scope)
	if err != nil {
		return nil, err
	}
	return models.ViewsOf(models.FilterBySport(scoped, sport), viewerID), nil
}

func applyScope(events []models.SportsEvent, viewerID string, scope EventScope) ([]models.SportsEvent, error) {
	switch scope {
	case "", ScopeOpen:
		return models.OpenEvents(events), nil
	case ScopeMine:
		return models.MyEvents(events, viewerID), nil
	case ScopeCreated:
		return models.EventsCreatedBy(events, viewerID), nil
	default:
		return nil, models.Validationf("unknown scope %q", scope)
	}
}

// ProjectSnapshot applies scope and sport filtering to a live snapshot.
func ProjectSnapshot(events []models.SportsEvent, viewerID string, scope EventScope, sport string) ([]models.EventView, error) {
	scoped, err := applyScope(events, viewerID, scope)
	if err != nil {
		return nil, err
	}
	return models.ViewsOf(models.FilterBySport(scoped, sport), viewerID), nil
}

func checkJoin(e *models.SportsEvent, userID string) error {
	switch {
	case !e.IsActive:
		return models.ErrEventClosed
	case e.HasParticipant(userID):
		return models.ErrAlreadyJoined
	case e.IsFull():
		return models.ErrEventFull
	}
	return nil
}

func checkLeave(e *models.SportsEvent, userID string) error {
	switch {
	case !e.IsActive:
		return models.ErrEventClosed
	case !e.HasParticipant(userID):
		return models.ErrNotAParticipant
	case e.IsCreator(userID):
		return models.ErrCreatorCannotLeave
	}
	return nil
}

func checkKick(e *models.SportsEvent, actorID, targetID string) error {
	switch {
	case !e.IsCreator(actorID):
		return models.ErrNotAuthorized
	case actorID == targetID:
		return models.ErrCannotKickSelf
	case !e.IsActive:
		return models.ErrEventClosed
	case !e.HasParticipant(targetID):
		return models.ErrNotAParticipant
	}
	return nil
}

func checkClose(e *models.SportsEvent, actorID string) error {
	switch {
	case !e.IsCreator(actorID):
		return models.ErrNotAuthorized
	case !e.IsActive:
		return models.ErrEventClosed
	}
	return nil
}

func checkCapacity(e *models.SportsEvent, actorID string, newMax int) error {
	switch {
	case !e.IsCreator(actorID):
		return models.ErrNotAuthorized
	case !e.IsActive:
		return models.ErrEventClosed
	case e.ParticipantCount() > newMax:
		return models.Validationf("capacity cannot be below the current %d participants", e.ParticipantCount())
	}
	return nil
}

// requireReason runs after the permission checks so a caller without rights
// learns that first.
func requireReason(reason, message string) error {
	if reason == "" {
		return models.Validationf("%s", message)
	}
	return nil
}

// mutate runs check against the current event, applies write, and when the
// conditional write is rejected re-reads the event to report why.
func (es *EventService) mutate(ctx context.Context, eventID string, check func(*models.SportsEvent) error, write func(context.Context, *models.SportsEvent) error) (*models.SportsEvent, error) {
	event, err := es.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := check(event); err != nil {
		return nil, err
	}

	storeCtx, cancel := withStoreTimeout(ctx, es.timeout)
	defer cancel()
	err = write(storeCtx, event)
	if errors.Is(err, models.ErrPreconditionFailed) {
		current, getErr := es.GetEvent(ctx, eventID)
		if getErr != nil {
			return nil, getErr
		}
		if checkErr := check(current); checkErr != nil {
			return nil, checkErr
		}
		return nil, models.ErrConcurrentUpdate
	}
	if err != nil {
		return nil, models.StoreFailure("update event", err)
	}
	return event, nil
}

// notify appends a system message after a roster change. The roster change
// has already landed, so a failure here is logged and not returned.
func (es *EventService) notify(ctx context.Context, eventID, userID, userName string, kind models.MessageKind, reason string) {
	if err := es.chat.appendSystemMessage(ctx, eventID, userID, userName, kind, reason); err != nil {
		es.logger.Error("failed to append system message",
			"event_id", eventID,
			"user_id", userID,
			"kind", kind,
			"error", err,
		)
	}
}

func (es *EventService) JoinEvent(ctx context.Context, eventID, userID string) error {
	userName := es.profiles.DisplayName(ctx, userID)
	_, err := es.mutate(ctx, eventID,
		func(e *models.SportsEvent) error { return checkJoin(e, userID) },
		func(ctx context.Context, e *models.SportsEvent) error {
			return es.events.AddParticipant(ctx, eventID, userID, userName)
		},
	)
	if err != nil {
		return err
	}

	es.logger.Info("participant joined", "event_id", eventID, "user_id", userID)
	es.notify(ctx, eventID, userID, userName, models.MessageSystemJoin, "")
	return nil
}

func (es *EventService) LeaveEvent(ctx context.Context, eventID, userID string) error {
	event, err := es.mutate(ctx, eventID,
		func(e *models.SportsEvent) error { return checkLeave(e, userID) },
		func(ctx context.Context, e *models.SportsEvent) error {
			return es.events.RemoveParticipant(ctx, eventID, userID)
		},
	)
	if err != nil {
		return err
	}

	userName := event.ParticipantNames[userID]
	if userName == "" {
		userName = es.profiles.DisplayName(ctx, userID)
	}
	es.logger.Info("participant left", "event_id", eventID, "user_id", userID)
	es.chat.revokeViewer(eventID, userID)
	es.notify(ctx, eventID, userID, userName, models.MessageSystemLeave, "")
	return nil
}

func (es *EventService) KickParticipant(ctx context.Context, eventID, actorID, targetID, reason string) error {
	reason = strings.TrimSpace(reason)

	var record models.KickRecord
	_, err := es.mutate(ctx, eventID,
		func(e *models.SportsEvent) error {
			if err := checkKick(e, actorID, targetID); err != nil {
				return err
			}
			return requireReason(reason, "a reason is required to remove a participant")
		},
		func(ctx context.Context, e *models.SportsEvent) error {
			name := e.ParticipantNames[targetID]
			if name == "" {
				name = targetID
			}
			record = models.KickRecord{
				UserID:   targetID,
				UserName: name,
				Reason:   reason,
				KickedAt: es.now(),
			}
			return es.events.KickParticipant(ctx, eventID, actorID, record)
		},
	)
	if err != nil {
		return err
	}

	es.logger.Info("participant removed", "event_id", eventID, "user_id", targetID, "actor_id", actorID)
	es.chat.revokeViewer(eventID, targetID)
	es.notify(ctx, eventID, targetID, record.UserName, models.MessageSystemKick, reason)
	return nil
}

func (es *EventService) CloseEvent(ctx context.Context, eventID, actorID, reason string) error {
	reason = strings.TrimSpace(reason)

	_, err := es.mutate(ctx, eventID,
		func(e *models.SportsEvent) error {
			if err := checkClose(e, actorID); err != nil {
				return err
			}
			return requireReason(reason, "a reason is required to close an event")
		},
		func(ctx context.Context, e *models.SportsEvent) error {
			return es.events.CloseEvent(ctx, eventID, actorID, reason, es.now())
		},
	)
	if err != nil {
		return err
	}
	es.logger.Info("event closed", "event_id", eventID, "user_id", actorID)
	return nil
}

// CancelEvent removes the event and its chat history for good. Closed
// events may still be cancelled.
func (es *EventService) CancelEvent(ctx context.Context, eventID, actorID string) error {
	_, err := es.mutate(ctx, eventID,
		func(e *models.SportsEvent) error {
			if !e.IsCreator(actorID) {
				return models.ErrNotAuthorized
			}
			return nil
		},
		func(ctx context.Context, e *models.SportsEvent) error {
			return es.events.DeleteEvent(ctx, eventID, actorID)
		},
	)
	if err != nil {
		return err
	}

	if err := es.chat.deleteHistory(ctx, eventID); err != nil {
		es.logger.Error("failed to delete chat history", "event_id", eventID, "error", err)
	}
	es.logger.Info("event cancelled", "event_id", eventID, "user_id", actorID)
	return nil
}

func (es *EventService) UpdateMaxParticipants(ctx context.Context, eventID, actorID string, newMax int) error {
	if newMax < models.MinEventCapacity || newMax > models.MaxEventCapacity {
		return models.Validationf("max_participants must be between %d and %d", models.MinEventCapacity, models.MaxEventCapacity)
	}

	_, err := es.mutate(ctx, eventID,
		func(e *models.SportsEvent) error { return checkCapacity(e, actorID, newMax) },
		func(ctx context.Context, e *models.SportsEvent) error {
			return es.events.UpdateMaxParticipants(ctx, eventID, actorID, newMax)
		},
	)
	if err != nil {
		return err
	}
	es.logger.Info("event capacity updated", "event_id", eventID, "max_participants", newMax)
	return nil
}

// WatchEvents streams full event-list snapshots, newest first. All watchers
// share one live query.
func (es *EventService) WatchEvents(subscriberID string) (<-chan []models.SportsEvent, error) {
	ch, err := es.hub.Subscribe(eventsFeedKey, subscriberID, es.events.WatchEvents)
	if err != nil {
		return nil, models.StoreFailure("watch events", err)
	}
	return ch, nil
}

func (es *EventService) UnwatchEvents(subscriberID string) {
	es.hub.Unsubscribe(eventsFeedKey, subscriberID)
}

// FillEventHistory sets the profile's joined and created event ids from the
// current event list, newest first. Closed events are included.
func (es *EventService) FillEventHistory(ctx context.Context, profile *models.UserProfile) error {
	storeCtx, cancel := withStoreTimeout(ctx, es.timeout)
	defer cancel()

	events, err := es.events.ListEvents(storeCtx)
	if err != nil {
		return models.StoreFailure("list events", err)
	}

	profile.JoinedEventIDs = eventIDs(models.MyEvents(events, profile.ID))
	profile.CreatedEventIDs = eventIDs(models.EventsCreatedBy(events, profile.ID))
	return nil
}

func eventIDs(events []models.SportsEvent) []string {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}
