package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joshua-takyi/campusplay/internal/memstore"
	"github.com/joshua-takyi/campusplay/internal/models"
)

type mapNameCache struct {
	mu    sync.Mutex
	names map[string]string
	hits  int
}

func newMapNameCache() *mapNameCache {
	return &mapNameCache{names: make(map[string]string)}
}

func (m *mapNameCache) GetDisplayName(ctx context.Context, userID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.names[userID]
	if ok {
		m.hits++
	}
	return name, ok, nil
}

func (m *mapNameCache) SetDisplayName(ctx context.Context, userID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[userID] = name
	return nil
}

func (m *mapNameCache) InvalidateDisplayName(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.names, userID)
	return nil
}

func strPtr(s string) *string { return &s }

func TestCreateProfileOnce(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	app.addProfile(t, "ada", "Ada")

	err := app.profiles.CreateProfile(ctx, &models.UserProfile{ID: "ada", FullName: "Ada", Email: "ada@students.example.edu"})
	if !errors.Is(err, models.ErrProfileExists) {
		t.Errorf("second create: got %v, want ErrProfileExists", err)
	}

	profile, err := app.profiles.GetProfile(ctx, "ada")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile.SkillLevel != models.SkillBeginner || profile.CreatedAt.IsZero() || profile.FavoriteSports == nil {
		t.Errorf("defaults not applied: %+v", profile)
	}
}

func TestCreateProfileValidation(t *testing.T) {
	app := newTestApp(t)
	err := app.profiles.CreateProfile(context.Background(), &models.UserProfile{ID: "x", FullName: " ", Email: "nope"})
	if models.KindOf(err) != models.KindValidation {
		t.Errorf("got %v, want validation error", err)
	}
}

func TestGetProfileNotFound(t *testing.T) {
	app := newTestApp(t)
	if _, err := app.profiles.GetProfile(context.Background(), "ghost"); !errors.Is(err, models.ErrProfileNotFound) {
		t.Errorf("got %v, want ErrProfileNotFound", err)
	}
}

func TestUpdateProfileOwnerOnly(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	app.addProfile(t, "ada", "Ada")

	update := models.ProfileUpdate{Bio: strPtr("hooper")}
	if _, err := app.profiles.UpdateProfile(ctx, "mallory", "ada", update); !errors.Is(err, models.ErrNotAuthorized) {
		t.Errorf("update by other user: got %v, want ErrNotAuthorized", err)
	}
	if _, err := app.profiles.UpdateProfile(ctx, "ada", "ada", models.ProfileUpdate{}); models.KindOf(err) != models.KindValidation {
		t.Errorf("empty update: got %v, want validation error", err)
	}
	if _, err := app.profiles.UpdateProfile(ctx, "ada", "ada", models.ProfileUpdate{FullName: strPtr("  ")}); models.KindOf(err) != models.KindValidation {
		t.Errorf("blank name: got %v, want validation error", err)
	}

	updated, err := app.profiles.UpdateProfile(ctx, "ada", "ada", models.ProfileUpdate{
		Bio:            strPtr(" hooper "),
		FavoriteSports: []string{"Tennis", "Tennis", " Soccer "},
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Bio != "hooper" || len(updated.FavoriteSports) != 2 || updated.FullName != "Ada" {
		t.Errorf("updated = %+v", updated)
	}
}

func TestDisplayNameUsesCacheAndInvalidates(t *testing.T) {
	store := memstore.New()
	cache := newMapNameCache()
	profiles := NewProfileService(store, cache, nil, 0, discardLogger())
	ctx := context.Background()
	_ = profiles.CreateProfile(ctx, &models.UserProfile{ID: "ada", FullName: "Ada", Email: "ada@students.example.edu"})

	if name := profiles.DisplayName(ctx, "ada"); name != "Ada" {
		t.Fatalf("DisplayName = %q", name)
	}
	if name := profiles.DisplayName(ctx, "ada"); name != "Ada" || cache.hits != 1 {
		t.Errorf("second lookup = %q with %d cache hits", name, cache.hits)
	}

	if _, err := profiles.UpdateProfile(ctx, "ada", "ada", models.ProfileUpdate{FullName: strPtr("Ada L")}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if name := profiles.DisplayName(ctx, "ada"); name != "Ada L" {
		t.Errorf("stale name after update: %q", name)
	}
}

func TestDisplayNameFallsBackToIdentity(t *testing.T) {
	app := newTestApp(t)
	app.store.FailNext(errors.New("profiles unavailable"))

	if name := app.profiles.DisplayName(context.Background(), "u-123"); name != "u-123" {
		t.Errorf("DisplayName = %q, want raw identity", name)
	}
}

func TestUploadAvatarWithoutCloudinary(t *testing.T) {
	app := newTestApp(t)
	app.addProfile(t, "ada", "Ada")
	ctx := context.Background()

	if _, err := app.profiles.UploadAvatar(ctx, "bob", "ada", "data:image/png;base64,AAAA"); !errors.Is(err, models.ErrNotAuthorized) {
		t.Errorf("upload for other user: got %v", err)
	}
	if _, err := app.profiles.UploadAvatar(ctx, "ada", "ada", ""); models.KindOf(err) != models.KindValidation {
		t.Errorf("empty image: got %v", err)
	}
	if _, err := app.profiles.UploadAvatar(ctx, "ada", "ada", "data:image/png;base64,AAAA"); !errors.Is(err, ErrAvatarsDisabled) {
		t.Errorf("got %v, want ErrAvatarsDisabled", err)
	}
}

func TestWatchProfileFollowsUpdates(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	app.addProfile(t, "ada", "Ada")

	ch, err := app.profiles.WatchProfile(ctx, "ada", "tab-1")
	if err != nil {
		t.Fatalf("WatchProfile: %v", err)
	}
	first := <-ch
	if first.FullName != "Ada" {
		t.Fatalf("first snapshot = %q, want Ada", first.FullName)
	}

	if _, err := app.profiles.UpdateProfile(ctx, "ada", "ada", models.ProfileUpdate{Bio: strPtr("point guard")}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	select {
	case got := <-ch:
		if got.Bio != "point guard" {
			t.Errorf("bio = %q, want point guard", got.Bio)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot after update")
	}

	app.profiles.UnwatchProfile("ada", "tab-1")
	app.profiles.UnwatchProfile("ada", "tab-1")
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unwatch")
	}
}

func TestWatchProfileMissing(t *testing.T) {
	app := newTestApp(t)
	if _, err := app.profiles.WatchProfile(context.Background(), "ghost", "tab-1"); !errors.Is(err, models.ErrProfileNotFound) {
		t.Errorf("got %v, want ErrProfileNotFound", err)
	}
}
