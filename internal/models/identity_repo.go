package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go/types"
)

func (su *SupabaseRepo) SignUp(ctx context.Context, email, password string) (string, error) {
	res, err := su.supabaseClient.Auth.Signup(types.SignupRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		errMsg := strings.ToLower(err.Error())
		if strings.Contains(errMsg, "already registered") {
			return "", &AppError{Kind: KindConflict, Code: "email_in_use", Message: "email already in use"}
		}
		if strings.Contains(errMsg, "password") {
			return "", Validationf("password rejected by identity provider")
		}
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	// with autoconfirm on the user comes back inside the session
	id := res.User.ID
	if id == uuid.Nil {
		id = res.Session.User.ID
	}
	if id == uuid.Nil {
		return "", fmt.Errorf("identity provider returned no user id")
	}
	return id.String(), nil
}

func (su *SupabaseRepo) SignIn(ctx context.Context, email, password string) (*Session, error) {
	resp, err := su.supabaseClient.Auth.SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate user: %w", err)
	}
	return sessionFromToken(resp), nil
}

func (su *SupabaseRepo) SignOut(ctx context.Context, accessToken string) error {
	if err := su.supabaseClient.Auth.WithToken(accessToken).Logout(); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

func (su *SupabaseRepo) SendPasswordReset(ctx context.Context, email string) error {
	if err := su.supabaseClient.Auth.Recover(types.RecoverRequest{Email: email}); err != nil {
		return fmt.Errorf("failed to send password reset: %w", err)
	}
	return nil
}

func (su *SupabaseRepo) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	resp, err := su.supabaseClient.Auth.RefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return sessionFromToken(resp), nil
}

func sessionFromToken(tokenRes *types.TokenResponse) *Session {
	return &Session{
		UserID:       tokenRes.User.ID.String(),
		Email:        tokenRes.User.Email,
		AccessToken:  tokenRes.AccessToken,
		RefreshToken: tokenRes.RefreshToken,
		ExpiresIn:    tokenRes.ExpiresIn,
	}
}
