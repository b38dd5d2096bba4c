package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type accessTokenKey struct{}

// WithAccessToken attaches the caller's access token so Supabase calls run
// under the caller's row-level-security session.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

func AccessTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(accessTokenKey{}).(string)
	return token
}

func ConvertToProfile(raw map[string]interface{}) (*UserProfile, error) {
	profileBytes, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal raw profile: %v", err)
	}

	profile := &UserProfile{}
	if err := json.Unmarshal(profileBytes, profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal to profile struct: %v", err)
	}

	return profile, nil
}

func (su *SupabaseRepo) GetProfile(ctx context.Context, id string) (*UserProfile, error) {
	client, err := su.GetAuthenticatedClient(AccessTokenFrom(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %w", err)
	}

	raw, _, err := client.From(ProfileTable).
		Select("*", "", false).
		Eq("id", id).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by ID: %w", err)
	}

	// Supabase returns an array even for single results
	var profiles []UserProfile
	if err := json.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile rows: %w", err)
	}

	if len(profiles) == 0 {
		return nil, ErrNoDocument
	}
	if len(profiles) > 1 {
		return nil, fmt.Errorf("multiple profiles found for ID %s", id)
	}

	return &profiles[0], nil
}

func (su *SupabaseRepo) CreateProfile(ctx context.Context, profile *UserProfile) error {
	client, err := su.GetAuthenticatedClient(AccessTokenFrom(ctx))
	if err != nil {
		return fmt.Errorf("failed to create authenticated client: %w", err)
	}

	_, _, err = client.From(ProfileTable).
		Insert(profile, false, "", "", "exact").
		Execute()
	if err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint") {
			return ErrProfileExists
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (su *SupabaseRepo) UpdateProfile(ctx context.Context, id string, fields map[string]interface{}) (*UserProfile, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	client, err := su.GetAuthenticatedClient(AccessTokenFrom(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %w", err)
	}

	raw, _, err := client.From(ProfileTable).
		Update(fields, "", "exact").
		Eq("id", id).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	var rawProfiles []map[string]interface{}
	if err := json.Unmarshal(raw, &rawProfiles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal updated profile: %w", err)
	}

	if len(rawProfiles) == 0 {
		return nil, ErrNoDocument
	}

	return ConvertToProfile(rawProfiles[0])
}
