package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joshua-takyi/campusplay/internal/models"
)

func TestCreateEventAutoJoinsCreator(t *testing.T) {
	app := newTestApp(t)
	app.addProfile(t, "alice", "Alice Smith")

	event := app.createEvent(t, "alice", 4)

	stored := app.event(t, event.ID)
	if len(stored.ParticipantIDs) != 1 || stored.ParticipantIDs[0] != "alice" {
		t.Errorf("participants = %v, want [alice]", stored.ParticipantIDs)
	}
	if !stored.IsActive || stored.ParticipantCount() != 1 {
		t.Errorf("active = %v count = %d", stored.IsActive, stored.ParticipantCount())
	}
	if stored.CreatedByName != "Alice Smith" || stored.ParticipantNames["alice"] != "Alice Smith" {
		t.Errorf("creator name = %q", stored.CreatedByName)
	}
	if stored.Difficulty != models.Beginner {
		t.Errorf("difficulty = %q, want default Beginner", stored.Difficulty)
	}
}

func TestCreateEventFallsBackToIdentityName(t *testing.T) {
	app := newTestApp(t)

	event := app.createEvent(t, "no-profile", 4)
	if event.CreatedByName != "no-profile" {
		t.Errorf("creator name = %q, want raw identity", event.CreatedByName)
	}
}

func TestCreateEventValidation(t *testing.T) {
	app := newTestApp(t)
	valid := models.EventInput{
		Title: "Run", Sport: "Running", Location: "Track", Date: "Sat", Time: "9 AM", MaxParticipants: 5,
	}

	cases := map[string]func(in *models.EventInput){
		"blank title": func(in *models.EventInput) { in.Title = "   " },
		"no sport":    func(in *models.EventInput) { in.Sport = "" },
		"no location": func(in *models.EventInput) { in.Location = "" },
		"no date":     func(in *models.EventInput) { in.Date = "" },
		"no time":     func(in *models.EventInput) { in.Time = "" },
		"capacity 1":  func(in *models.EventInput) { in.MaxParticipants = 1 },
		"capacity 21": func(in *models.EventInput) { in.MaxParticipants = 21 },
		"bad level":   func(in *models.EventInput) { in.Difficulty = "Expert" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			_, err := app.events.CreateEvent(context.Background(), in, "alice")
			if models.KindOf(err) != models.KindValidation {
				t.Errorf("got %v, want validation error", err)
			}
		})
	}

	events, _ := app.store.ListEvents(context.Background())
	if len(events) != 0 {
		t.Errorf("invalid input reached the store: %d events", len(events))
	}
}

func TestCreateEventStoreFailure(t *testing.T) {
	app := newTestApp(t)
	app.addProfile(t, "alice", "Alice")
	app.events.events = &failingEvents{EventRepo: app.store, err: errors.New("network down")}

	_, err := app.events.CreateEvent(context.Background(), models.EventInput{
		Title: "Run", Sport: "Running", Location: "Track", Date: "Sat", Time: "9 AM", MaxParticipants: 5,
	}, "alice")
	if models.KindOf(err) != models.KindStore || !errors.Is(err, models.ErrStore) {
		t.Fatalf("got %v, want store error", err)
	}
}

type failingEvents struct {
	models.EventRepo
	err error
}

func (f *failingEvents) InsertEvent(ctx context.Context, event *models.SportsEvent) error {
	return f.err
}

func TestJoinTwiceFailsWithAlreadyJoined(t *testing.T) {
	app := newTestApp(t)
	event := app.createEvent(t, "alice", 4)
	ctx := context.Background()

	if err := app.events.JoinEvent(ctx, event.ID, "bob"); err != nil {
		t.Fatalf("JoinEvent: %v", err)
	}
	if err := app.events.JoinEvent(ctx, event.ID, "bob"); !errors.Is(err, models.ErrAlreadyJoined) {
		t.Errorf("second join: got %v, want ErrAlreadyJoined", err)
	}

	stored := app.event(t, event.ID)
	count := 0
	for _, id := range stored.ParticipantIDs {
		if id == "bob" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("bob appears %d times on the roster", count)
	}
}

func TestConcurrentJoinersRespectCapacity(t *testing.T) {
	app := newTestApp(t)
	event := app.createEvent(t, "alice", 3)
	ctx := context.Background()

	const joiners = 25
	var wg sync.WaitGroup
	errs := make(chan error, joiners)
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- app.events.JoinEvent(ctx, event.ID, fmt.Sprintf("user-%d", i))
		}(i)
	}
	wg.Wait()
	close(errs)

	joined := 0
	for err := range errs {
		switch {
		case err == nil:
			joined++
		case errors.Is(err, models.ErrEventFull), errors.Is(err, models.ErrConcurrentUpdate):
		default:
			t.Errorf("unexpected join error: %v", err)
		}
	}

	stored := app.event(t, event.ID)
	if stored.ParticipantCount() > stored.MaxParticipants {
		t.Fatalf("roster %d exceeds capacity %d", stored.ParticipantCount(), stored.MaxParticipants)
	}
	if joined != 2 || stored.ParticipantCount() != 3 {
		t.Errorf("joined = %d roster = %d, want 2 and 3", joined, stored.ParticipantCount())
	}
}

func TestLeaveThenJoinRestoresMembership(t *testing.T) {
	app := newTestApp(t)
	event := app.createEvent(t, "alice", 4)
	ctx := context.Background()
	_ = app.events.JoinEvent(ctx, event.ID, "bob")

	before := fmt.Sprint(app.event(t, event.ID).ParticipantIDs)
	if err := app.events.LeaveEvent(ctx, event.ID, "bob"); err != nil {
		t.Fatalf("LeaveEvent: %v", err)
	}
	if err := app.events.JoinEvent(ctx, event.ID, "bob"); err != nil {
		t.Fatalf("JoinEvent: %v", err)
	}
	if after := fmt.Sprint(app.event(t, event.ID).ParticipantIDs); after != before {
		t.Errorf("roster = %s, want %s", after, before)
	}
}

func TestLeavePolicies(t *testing.T) {
	app := newTestApp(t)
	event := app.createEvent(t, "alice", 4)
	ctx := context.Background()

	if err := app.events.LeaveEvent(ctx, event.ID, "stranger"); !errors.Is(err, models.ErrNotAParticipant) {
		t.Errorf("leave when absent: got %v, want ErrNotAParticipant", err)
	}
	if err := app.events.LeaveEvent(ctx, event.ID, "alice"); !errors.Is(err, models.ErrCreatorCannotLeave) {
		t.Errorf("creator leave: got %v, want ErrCreatorCannotLeave", err)
	}
	if !app.event(t, event.ID).HasParticipant("alice") {
		t.Error("creator removed from roster")
	}
}

func TestJoinAndLeaveAppendSystemMessages(t *testing.T) {
	app := newTestApp(t)
	app.addProfile(t, "bob", "Bob Jones")
	event := app.createEvent(t, "alice", 4)
	ctx := context.Background()

	_ = app.events.JoinEvent(ctx, event.ID, "bob")
	_ = app.events.LeaveEvent(ctx, event.ID, "bob")

	msgs := app.messages(t, event.ID)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Kind != models.MessageSystemJoin || msgs[0].Body != "Bob Jones joined the event" {
		t.Errorf("first message = %+v", msgs[0])
	}
	if msgs[1].Kind != models.MessageSystemLeave || msgs[1].SenderID != "bob" {
		t.Errorf("second message = %+v", msgs[1])
	}
}

func TestSystemMessageFailureDoesNotFailJoin(t *testing.T) {
	app := newTestApp(t)
	event := app.createEvent(t, "alice", 4)
	ctx := context.Background()

	// only message inserts fail
	chatOnly := &failingChat{ChatRepo: app.store, err: errors.New("chat down")}
	app.chat.messages = chatOnly

	if err := app.events.JoinEvent(ctx, event.ID, "bob"); err != nil {
		t.Fatalf("JoinEvent: %v", err)
	}
	if !app.event(t, event.ID).HasParticipant("bob") {
		t.Error("join did not land")
	}
}

type failingChat struct {
	models.ChatRepo
	err error
}

func (f *failingChat) InsertMessage(ctx context.Context, msg *models.ChatMessage) error {
	return f.err
}

func TestKickParticipant(t *testing.T) {
	app := newTestApp(t)
	app.addProfile(t, "bob", "Bob")
	event := app.createEvent(t, "alice", 4)
	ctx := context.Background()
	_ = app.events.JoinEvent(ctx, event.ID, "bob")
	before := fmt.Sprint(app.event(t, event.ID).ParticipantIDs)

	err := app.events.KickParticipant(ctx, event.ID, "bob", "alice", "spam")
	if models.KindOf(err) != models.KindAuthorization {
		t.Errorf("kick by non-creator: got %v, want authorization error", err)
	}
	if after := fmt.Sprint(app.event(t, event.ID).ParticipantIDs); after != before {
		t.Errorf("roster changed after rejected kick: %s", after)
	}
	if err := app.events.KickParticipant(ctx, event.ID, "bob", "alice", ""); !errors.Is(err, models.ErrNotAuthorized) {
		t.Errorf("kick by non-creator without reason: got %v, want ErrNotAuthorized", err)
	}

	if err := app.events.KickParticipant(ctx, event.ID, "alice", "bob", "  "); models.KindOf(err) != models.KindValidation {
		t.Errorf("blank reason: got %v, want validation error", err)
	}
	if err := app.events.KickParticipant(ctx, event.ID, "alice", "alice", "bye"); !errors.Is(err, models.ErrCannotKickSelf) {
		t.Errorf("kick self: got %v, want ErrCannotKickSelf", err)
	}

	joinMessages := len(app.messages(t, event.ID))
	if err := app.events.KickParticipant(ctx, event.ID, "alice", "bob", "no show"); err != nil {
		t.Fatalf("KickParticipant: %v", err)
	}

	stored := app.event(t, event.ID)
	if stored.HasParticipant("bob") {
		t.Error("kicked user still on roster")
	}
	if len(stored.Kicked) != 1 || stored.Kicked[0].UserID != "bob" || stored.Kicked[0].Reason != "no show" {
		t.Errorf("kicked = %+v", stored.Kicked)
	}

	msgs := app.messages(t, event.ID)
	kicks := 0
	for _, m := range msgs[joinMessages:] {
		if m.Kind == models.MessageSystemKick {
			kicks++
		}
	}
	if len(msgs)-joinMessages != 1 || kicks != 1 {
		t.Errorf("kick produced %d messages, %d of them kick notices", len(msgs)-joinMessages, kicks)
	}

	if err := app.events.KickParticipant(ctx, event.ID, "alice", "bob", "again"); !errors.Is(err, models.ErrNotAParticipant) {
		t.Errorf("kicking an absent user: got %v, want ErrNotAParticipant", err)
	}
}

func TestFullEventScenario(t *testing.T) {
	app := newTestApp(t)
	event := app.createEvent(t, "A", 2)
	ctx := context.Background()

	if err := app.events.JoinEvent(ctx, event.ID, "B"); err != nil {
		t.Fatalf("B join: %v", err)
	}
	stored := app.event(t, event.ID)
	if stored.ParticipantCount() != 2 || !stored.IsFull() {
		t.Errorf("after B: count = %d full = %v", stored.ParticipantCount(), stored.IsFull())
	}

	if err := app.events.JoinEvent(ctx, event.ID, "C"); !errors.Is(err, models.ErrEventFull) {
		t.Errorf("C join: got %v, want ErrEventFull", err)
	}

	if err := app.events.LeaveEvent(ctx, event.ID, "B"); err != nil {
		t.Fatalf("B leave: %v", err)
	}
	stored = app.event(t, event.ID)
	if stored.IsFull() || stored.SpotsRemaining() != 1 {
		t.Errorf("after B left: full = %v spots = %d", stored.IsFull(), stored.SpotsRemaining())
	}

	if err := app.events.JoinEvent(ctx, event.ID, "C"); err != nil {
		t.Errorf("C join after B left: %v", err)
	}
}

func TestCloseEventBlocksFurtherActivity(t *testing.T) {
	app := newTestApp(t)
	event := app.createEvent(t, "alice", 4)
	ctx := context.Background()
	_ = app.events.JoinEvent(ctx, event.ID, "bob")

	if err := app.events.CloseEvent(ctx, event.ID, "bob", "rain"); models.KindOf(err) != models.KindAuthorization {
		t.Errorf("close by non-creator: got %v", err)
	}
	if err := app.events.CloseEvent(ctx, event.ID, "bob", ""); !errors.Is(err, models.ErrNotAuthorized) {
		t.Errorf("close by non-creator without reason: got %v, want ErrNotAuthorized", err)
	}
	if err := app.events.CloseEvent(ctx, event.ID, "alice", ""); models.KindOf(err) != models.KindValidation {
		t.Errorf("close without reason: got %v", err)
	}
	if err := app.events.CloseEvent(ctx, event.ID, "alice", "rain"); err != nil {
		t.Fatalf("CloseEvent: %v", err)
	}

	if err := app.events.JoinEvent(ctx, event.ID, "carol"); !errors.Is(err, models.ErrEventClosed) {
		t.Errorf("join closed: got %v", err)
	}
	if err := app.events.LeaveEvent(ctx, event.ID, "bob"); !errors.Is(err, models.ErrEventClosed) {
		t.Errorf("leave closed: got %v", err)
	}
	if err := app.events.KickParticipant(ctx, event.ID, "alice", "bob", "x"); !errors.Is(err, models.ErrEventClosed) {
		t.Errorf("kick closed: got %v", err)
	}
	if _, err := app.chat.SendMessage(ctx, event.ID, "bob", "hello"); !errors.Is(err, models.ErrEventClosed) {
		t.Errorf("send closed: got %v", err)
	}
	if err := app.events.UpdateMaxParticipants(ctx, event.ID, "alice", 10); !errors.Is(err, models.ErrEventClosed) {
		t.Errorf("resize closed: got %v", err)
	}

	stored := app.event(t, event.ID)
	if stored.ClosedReason == nil || *stored.ClosedReason != "rain" || stored.ClosedAt == nil {
		t.Errorf("closed fields not set: %+v", stored)
	}

	open, _ := app.events.ListEvents(ctx, "bob", ScopeOpen, "")
	if len(open) != 0 {
		t.Errorf("closed event in browse list")
	}
	mine, _ := app.events.ListEvents(ctx, "bob", ScopeMine, "")
	if len(mine) != 1 || mine[0].State != models.StateClosed {
		t.Errorf("closed event missing from my events: %+v", mine)
	}
}

func TestCancelEventRemovesEverything(t *testing.T) {
	app := newTestApp(t)
	event := app.createEvent(t, "alice", 4)
	ctx := context.Background()
	_ = app.events.JoinEvent(ctx, event.ID, "bob")
	_, _ = app.chat.SendMessage(ctx, event.ID, "bob", "see you there")
	_ = app.events.CloseEvent(ctx, event.ID, "alice", "moved")

	if err := app.events.CancelEvent(ctx, event.ID, "bob"); models.KindOf(err) != models.KindAuthorization {
		t.Errorf("cancel by non-creator: got %v", err)
	}
	if err := app.events.CancelEvent(ctx, event.ID, "alice"); err != nil {
		t.Fatalf("CancelEvent on closed event: %v", err)
	}

	if len(app.messages(t, event.ID)) != 0 {
		t.Error("chat history survived cancel")
	}

	checks := map[string]error{
		"get":    func() error { _, err := app.events.GetEvent(ctx, event.ID); return err }(),
		"join":   app.events.JoinEvent(ctx, event.ID, "carol"),
		"leave":  app.events.LeaveEvent(ctx, event.ID, "bob"),
		"kick":   app.events.KickParticipant(ctx, event.ID, "alice", "bob", "x"),
		"close":  app.events.CloseEvent(ctx, event.ID, "alice", "x"),
		"cancel": app.events.CancelEvent(ctx, event.ID, "alice"),
		"resize": app.events.UpdateMaxParticipants(ctx, event.ID, "alice", 5),
		"send":   func() error { _, err := app.chat.SendMessage(ctx, event.ID, "bob", "hi"); return err }(),
	}
	for op, err := range checks {
		if models.KindOf(err) != models.KindNotFound {
			t.Errorf("%s after cancel: got %v, want not found", op, err)
		}
	}
}

func TestUpdateMaxParticipants(t *testing.T) {
	app := newTestApp(t)
	event := app.createEvent(t, "alice", 4)
	ctx := context.Background()
	_ = app.events.JoinEvent(ctx, event.ID, "bob")
	_ = app.events.JoinEvent(ctx, event.ID, "carol")

	cases := []struct {
		actor string
		max   int
		kind  models.ErrorKind
	}{
		{"bob", 5, models.KindAuthorization},
		{"alice", 1, models.KindValidation},
		{"alice", 21, models.KindValidation},
		{"alice", 2, models.KindValidation},
	}
	for _, tc := range cases {
		err := app.events.UpdateMaxParticipants(ctx, event.ID, tc.actor, tc.max)
		if models.KindOf(err) != tc.kind {
			t.Errorf("actor %s max %d: got %v, want %s", tc.actor, tc.max, err, tc.kind)
		}
	}

	if err := app.events.UpdateMaxParticipants(ctx, event.ID, "alice", 3); err != nil {
		t.Fatalf("UpdateMaxParticipants: %v", err)
	}
	if stored := app.event(t, event.ID); stored.MaxParticipants != 3 || stored.State() != models.StateFull {
		t.Errorf("max = %d state = %s", stored.MaxParticipants, stored.State())
	}
}

func TestListEventsScopesAndSport(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	hoops := app.createEvent(t, "alice", 4)
	tennis, err := app.events.CreateEvent(ctx, models.EventInput{
		Title: "Doubles", Sport: "Tennis", Location: "Courts", Date: "Sun", Time: "10 AM", MaxParticipants: 4,
	}, "bob")
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	_ = app.events.JoinEvent(ctx, tennis.ID, "alice")

	all, _ := app.events.ListEvents(ctx, "alice", ScopeOpen, models.AllSports)
	if len(all) != 2 {
		t.Errorf("open events = %d, want 2", len(all))
	}
	tennisOnly, _ := app.events.ListEvents(ctx, "alice", ScopeOpen, "tennis")
	if len(tennisOnly) != 1 || tennisOnly[0].ID != tennis.ID || !tennisOnly[0].IsJoined || tennisOnly[0].IsCreator {
		t.Errorf("tennis filter = %+v", tennisOnly)
	}
	created, _ := app.events.ListEvents(ctx, "alice", ScopeCreated, "")
	if len(created) != 1 || created[0].ID != hoops.ID || !created[0].IsCreator {
		t.Errorf("created = %+v", created)
	}
	mine, _ := app.events.ListEvents(ctx, "alice", ScopeMine, "")
	if len(mine) != 2 {
		t.Errorf("mine = %d, want 2", len(mine))
	}
	if _, err := app.events.ListEvents(ctx, "alice", "everything", ""); models.KindOf(err) != models.KindValidation {
		t.Errorf("unknown scope: got %v", err)
	}
}

func TestListEventsTimeout(t *testing.T) {
	app := newTestApp(t)
	app.store.FailNext(context.DeadlineExceeded)

	_, err := app.events.ListEvents(context.Background(), "alice", ScopeOpen, "")
	if models.KindOf(err) != models.KindTimeout {
		t.Errorf("got %v (%s), want timeout kind", err, models.KindOf(err))
	}
}

func TestWatchEventsPushesChanges(t *testing.T) {
	app := newTestApp(t)
	event := app.createEvent(t, "alice", 4)

	ch, err := app.events.WatchEvents("sub-1")
	if err != nil {
		t.Fatalf("WatchEvents: %v", err)
	}
	again, _ := app.events.WatchEvents("sub-1")
	if again != ch {
		t.Error("watching twice returned a second stream")
	}

	first := <-ch
	if len(first) != 1 || first[0].ParticipantCount() != 1 {
		t.Fatalf("initial snapshot = %+v", first)
	}

	_ = app.events.JoinEvent(context.Background(), event.ID, "bob")
	deadline := time.After(time.Second)
	for {
		select {
		case snap := <-ch:
			if snap[0].ParticipantCount() == 2 {
				app.events.UnwatchEvents("sub-1")
				app.events.UnwatchEvents("sub-1")
				return
			}
		case <-deadline:
			t.Fatal("join never reached the watcher")
		}
	}
}

func TestFillEventHistory(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	mine := app.createEvent(t, "alice", 4)
	theirs := app.createEvent(t, "carol", 4)
	other := app.createEvent(t, "carol", 4)
	_ = app.events.JoinEvent(ctx, theirs.ID, "alice")
	_ = app.events.CloseEvent(ctx, mine.ID, "alice", "done")

	profile := &models.UserProfile{ID: "alice"}
	if err := app.events.FillEventHistory(ctx, profile); err != nil {
		t.Fatalf("FillEventHistory: %v", err)
	}

	joined := fmt.Sprint(profile.JoinedEventIDs)
	if len(profile.JoinedEventIDs) != 2 || !strings.Contains(joined, mine.ID) || !strings.Contains(joined, theirs.ID) || strings.Contains(joined, other.ID) {
		t.Errorf("joined = %v", profile.JoinedEventIDs)
	}
	if len(profile.CreatedEventIDs) != 1 || profile.CreatedEventIDs[0] != mine.ID {
		t.Errorf("created = %v, want [%s]", profile.CreatedEventIDs, mine.ID)
	}
}
