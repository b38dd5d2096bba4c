package models

import (
	"context"
	"strings"
	"time"
)

const ProfileTable = "profiles"

type SkillLevel string

const (
	SkillBeginner     SkillLevel = "Beginner"
	SkillIntermediate SkillLevel = "Intermediate"
	SkillAdvanced     SkillLevel = "Advanced"
)

type UserProfile struct {
	ID              string     `db:"id" json:"id"`
	FullName        string     `db:"full_name" json:"full_name" validate:"required"`
	Email           string     `db:"email" json:"email" validate:"required,email"`
	Major           string     `db:"major" json:"major"`
	Year            string     `db:"year" json:"year"`
	FavoriteSports  []string   `db:"favorite_sports" json:"favorite_sports"`
	SkillLevel      SkillLevel `db:"skill_level" json:"skill_level" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Bio             string     `db:"bio" json:"bio"`
	AvatarURL       string     `db:"avatar_url" json:"avatar_url"`
	JoinedEventIDs  []string   `db:"joined_event_ids" json:"joined_event_ids"`
	CreatedEventIDs []string   `db:"created_event_ids" json:"created_event_ids"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// ProfileUpdate is a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	FullName       *string     `json:"full_name,omitempty" validate:"omitempty,min=1"`
	Major          *string     `json:"major,omitempty"`
	Year           *string     `json:"year,omitempty"`
	FavoriteSports []string    `json:"favorite_sports,omitempty"`
	SkillLevel     *SkillLevel `json:"skill_level,omitempty" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Bio            *string     `json:"bio,omitempty" validate:"omitempty,max=500"`
}

func (u ProfileUpdate) IsEmpty() bool {
	return u.FullName == nil && u.Major == nil && u.Year == nil &&
		u.FavoriteSports == nil && u.SkillLevel == nil && u.Bio == nil
}

// Fields returns the column changes of u.
func (u ProfileUpdate) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if u.FullName != nil {
		fields["full_name"] = strings.TrimSpace(*u.FullName)
	}
	if u.Major != nil {
		fields["major"] = strings.TrimSpace(*u.Major)
	}
	if u.Year != nil {
		fields["year"] = strings.TrimSpace(*u.Year)
	}
	if u.FavoriteSports != nil {
		fields["favorite_sports"] = dedupe(u.FavoriteSports)
	}
	if u.SkillLevel != nil {
		fields["skill_level"] = *u.SkillLevel
	}
	if u.Bio != nil {
		fields["bio"] = strings.TrimSpace(*u.Bio)
	}
	return fields
}

// dedupe keeps the first occurrence of each trimmed, non-empty value.
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

type ProfileRepo interface {
	GetProfile(ctx context.Context, id string) (*UserProfile, error)
	// CreateProfile returns ErrProfileExists when id is taken.
	CreateProfile(ctx context.Context, profile *UserProfile) error
	UpdateProfile(ctx context.Context, id string, fields map[string]interface{}) (*UserProfile, error)
}

// NameCache is an optional read-through cache of display names.
type NameCache interface {
	GetDisplayName(ctx context.Context, userID string) (string, bool, error)
	SetDisplayName(ctx context.Context, userID, name string) error
	InvalidateDisplayName(ctx context.Context, userID string) error
}
