package models

import "context"

// Session is what the identity provider hands back on sign-in.
type Session struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
	ExpiresIn    int    `json:"expires_in"`
}

type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string) (string, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	SendPasswordReset(ctx context.Context, email string) error
	RefreshToken(ctx context.Context, refreshToken string) (*Session, error)
}

type AuthStatus string

const (
	AuthLoading         AuthStatus = "loading"
	AuthAuthenticated   AuthStatus = "authenticated"
	AuthUnauthenticated AuthStatus = "unauthenticated"
	AuthError           AuthStatus = "error"
	AuthSuccess         AuthStatus = "success"
)

// AuthState is reported to the UI after auth calls and on session checks.
type AuthState struct {
	Status  AuthStatus   `json:"status"`
	UserID  string       `json:"user_id,omitempty"`
	Email   string       `json:"email,omitempty"`
	Profile *UserProfile `json:"profile,omitempty"`
	Message string       `json:"message,omitempty"`
}

type SignUpRequest struct {
	FullName        string     `json:"full_name" validate:"required"`
	Email           string     `json:"email" validate:"required,email"`
	Password        string     `json:"password" validate:"required,min=8"`
	ConfirmPassword string     `json:"confirm_password" validate:"required"`
	Major           string     `json:"major"`
	Year            string     `json:"year"`
	FavoriteSports  []string   `json:"favorite_sports"`
	SkillLevel      SkillLevel `json:"skill_level" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Bio             string     `json:"bio"`
}
