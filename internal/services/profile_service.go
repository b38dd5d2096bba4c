package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/joshua-takyi/campusplay/internal/helpers"
	"github.com/joshua-takyi/campusplay/internal/live"
	"github.com/joshua-takyi/campusplay/internal/models"
)

var ErrAvatarsDisabled = &models.AppError{Kind: models.KindStore, Code: "avatars_disabled", Message: "avatar uploads are not configured"}

type ProfileService struct {
	profiles models.ProfileRepo
	names    models.NameCache
	cld      *cloudinary.Cloudinary
	timeout  time.Duration
	logger   *slog.Logger

	// live profile streams, fed by this service's own writes
	hub     *live.Hub[models.UserProfile]
	feedsMu sync.Mutex
	feeds   map[string]map[chan models.UserProfile]struct{}
}

// NewProfileService wires the profile store. names and cld are optional.
func NewProfileService(profiles models.ProfileRepo, names models.NameCache, cld *cloudinary.Cloudinary, timeout time.Duration, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		names:    names,
		cld:      cld,
		timeout:  timeout,
		logger:   logger,
		hub:      live.NewHub[models.UserProfile](context.Background(), logger),
		feeds:    make(map[string]map[chan models.UserProfile]struct{}),
	}
}

func (ps *ProfileService) GetProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	ctx, cancel := withStoreTimeout(ctx, ps.timeout)
	defer cancel()

	profile, err := ps.profiles.GetProfile(ctx, id)
	if errors.Is(err, models.ErrNoDocument) {
		return nil, models.ErrProfileNotFound
	}
	if err != nil {
		return nil, models.StoreFailure("get profile", err)
	}
	return profile, nil
}

// CreateProfile stores the profile made at sign-up. A second call for the
// same identity fails with ErrProfileExists.
func (ps *ProfileService) CreateProfile(ctx context.Context, profile *models.UserProfile) error {
	profile.FullName = strings.TrimSpace(profile.FullName)
	profile.Email = strings.TrimSpace(profile.Email)
	if profile.SkillLevel == "" {
		profile.SkillLevel = models.SkillBeginner
	}
	if err := models.Validate.Struct(profile); err != nil {
		return validationError(err)
	}
	if profile.ID == "" {
		return models.Validationf("profile id is required")
	}

	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	if profile.FavoriteSports == nil {
		profile.FavoriteSports = []string{}
	}
	if profile.JoinedEventIDs == nil {
		profile.JoinedEventIDs = []string{}
	}
	if profile.CreatedEventIDs == nil {
		profile.CreatedEventIDs = []string{}
	}

	ctx, cancel := withStoreTimeout(ctx, ps.timeout)
	defer cancel()
	if err := ps.profiles.CreateProfile(ctx, profile); err != nil {
		return models.StoreFailure("create profile", err)
	}
	return nil
}

// UpdateProfile applies a partial update. Only the owner may write.
func (ps *ProfileService) UpdateProfile(ctx context.Context, actorID, profileID string, update models.ProfileUpdate) (*models.UserProfile, error) {
	if actorID != profileID {
		return nil, models.ErrNotAuthorized
	}
	if update.IsEmpty() {
		return nil, models.Validationf("no fields to update")
	}
	if err := models.Validate.Struct(update); err != nil {
		return nil, validationError(err)
	}
	if update.FullName != nil && strings.TrimSpace(*update.FullName) == "" {
		return nil, models.Validationf("full_name cannot be blank")
	}

	fields := update.Fields()
	fields["updated_at"] = time.Now().UTC()
	return ps.applyUpdate(ctx, profileID, fields)
}

func (ps *ProfileService) applyUpdate(ctx context.Context, profileID string, fields map[string]interface{}) (*models.UserProfile, error) {
	storeCtx, cancel := withStoreTimeout(ctx, ps.timeout)
	defer cancel()

	profile, err := ps.profiles.UpdateProfile(storeCtx, profileID, fields)
	if errors.Is(err, models.ErrNoDocument) {
		return nil, models.ErrProfileNotFound
	}
	if err != nil {
		return nil, models.StoreFailure("update profile", err)
	}

	if _, ok := fields["full_name"]; ok && ps.names != nil {
		if err := ps.names.InvalidateDisplayName(ctx, profileID); err != nil {
			ps.logger.Warn("failed to invalidate cached display name", "user_id", profileID, "error", err)
		}
	}
	ps.publish(*profile)
	return profile, nil
}

// DisplayName resolves the name shown for an identity. It never fails: any
// lookup problem degrades to the raw identity string.
func (ps *ProfileService) DisplayName(ctx context.Context, userID string) string {
	if ps.names != nil {
		name, ok, err := ps.names.GetDisplayName(ctx, userID)
		if err != nil {
			ps.logger.Warn("display name cache read failed", "user_id", userID, "error", err)
		} else if ok {
			return name
		}
	}

	profile, err := ps.GetProfile(ctx, userID)
	if err != nil {
		ps.logger.Warn("display name lookup failed, using identity",
			"user_id", userID,
			"kind", models.KindTransientLoad,
			"error", err,
		)
		return userID
	}
	if profile.FullName == "" {
		return userID
	}

	if ps.names != nil {
		if err := ps.names.SetDisplayName(ctx, userID, profile.FullName); err != nil {
			ps.logger.Warn("display name cache write failed", "user_id", userID, "error", err)
		}
	}
	return profile.FullName
}

// UploadAvatar stores the image with Cloudinary and records its URL on the
// owner's profile. image is anything the Cloudinary uploader accepts: a
// data URI, remote URL or local path.
func (ps *ProfileService) UploadAvatar(ctx context.Context, actorID, profileID, image string) (*models.UserProfile, error) {
	if actorID != profileID {
		return nil, models.ErrNotAuthorized
	}
	if strings.TrimSpace(image) == "" {
		return nil, models.Validationf("image is required")
	}
	if ps.cld == nil {
		return nil, ErrAvatarsDisabled
	}

	url, err := helpers.UploadAvatar(ctx, ps.cld, image, profileID)
	if err != nil {
		return nil, models.StoreFailure("upload avatar", err)
	}

	return ps.applyUpdate(ctx, profileID, map[string]interface{}{
		"avatar_url": url,
		"updated_at": time.Now().UTC(),
	})
}

// WatchProfile streams the owner's profile: the current record first, then
// the result of every update made through this service.
func (ps *ProfileService) WatchProfile(ctx context.Context, userID, subscriberID string) (<-chan models.UserProfile, error) {
	// loaded with the caller's ctx so the read runs under their session
	profile, err := ps.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	ch, err := ps.hub.Subscribe(userID, subscriberID, func(feedCtx context.Context) (<-chan models.UserProfile, error) {
		out := make(chan models.UserProfile, 1)
		out <- *profile

		ps.feedsMu.Lock()
		if ps.feeds[userID] == nil {
			ps.feeds[userID] = make(map[chan models.UserProfile]struct{})
		}
		ps.feeds[userID][out] = struct{}{}
		ps.feedsMu.Unlock()

		go func() {
			<-feedCtx.Done()
			ps.feedsMu.Lock()
			defer ps.feedsMu.Unlock()
			delete(ps.feeds[userID], out)
			if len(ps.feeds[userID]) == 0 {
				delete(ps.feeds, userID)
			}
			close(out)
		}()
		return out, nil
	})
	if err != nil {
		return nil, models.StoreFailure("watch profile", err)
	}
	return ch, nil
}

func (ps *ProfileService) UnwatchProfile(userID, subscriberID string) {
	ps.hub.Unsubscribe(userID, subscriberID)
}

// Close ends every profile stream.
func (ps *ProfileService) Close() {
	ps.hub.Close()
}

func (ps *ProfileService) publish(profile models.UserProfile) {
	ps.feedsMu.Lock()
	defer ps.feedsMu.Unlock()
	for out := range ps.feeds[profile.ID] {
		// keep only the newest record
		select {
		case <-out:
		default:
		}
		out <- profile
	}
}
