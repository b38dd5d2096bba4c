package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/joshua-takyi/campusplay/internal/live"
	"github.com/joshua-takyi/campusplay/internal/memstore"
	"github.com/joshua-takyi/campusplay/internal/models"
)

type testApp struct {
	store    *memstore.Store
	profiles *ProfileService
	chat     *ChatService
	events   *EventService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := discardLogger()
	store := memstore.New()
	eventHub := live.NewHub[[]models.SportsEvent](ctx, logger)
	chatHub := live.NewHub[[]models.ChatMessage](ctx, logger)
	t.Cleanup(eventHub.Close)
	t.Cleanup(chatHub.Close)

	profiles := NewProfileService(store, nil, nil, time.Second, logger)
	chat := NewChatService(store, store, profiles, chatHub, time.Second, logger)
	events := NewEventService(store, chat, profiles, eventHub, time.Second, logger)
	return &testApp{store: store, profiles: profiles, chat: chat, events: events}
}

func (a *testApp) addProfile(t *testing.T, id, name string) {
	t.Helper()
	err := a.profiles.CreateProfile(context.Background(), &models.UserProfile{
		ID:       id,
		FullName: name,
		Email:    id + "@students.example.edu",
	})
	if err != nil {
		t.Fatalf("CreateProfile(%s): %v", id, err)
	}
}

func (a *testApp) createEvent(t *testing.T, creator string, max int) *models.SportsEvent {
	t.Helper()
	event, err := a.events.CreateEvent(context.Background(), models.EventInput{
		Title:           "Evening pickup",
		Sport:           "Basketball",
		Location:        "Rec Center Court 2",
		Date:            "Fri, Oct 17",
		Time:            "6:30 PM",
		MaxParticipants: max,
	}, creator)
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	return event
}

func (a *testApp) event(t *testing.T, id string) *models.SportsEvent {
	t.Helper()
	event, err := a.events.GetEvent(context.Background(), id)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	return event
}

func (a *testApp) messages(t *testing.T, eventID string) []models.ChatMessage {
	t.Helper()
	msgs, err := a.store.ListMessages(context.Background(), eventID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	return msgs
}
