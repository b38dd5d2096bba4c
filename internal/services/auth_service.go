package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/joshua-takyi/campusplay/internal/helpers"
	"github.com/joshua-takyi/campusplay/internal/models"
)

// AuthService enforces the sign-up policy in front of the identity provider
// and creates the profile document for new accounts.
type AuthService struct {
	identity    models.IdentityProvider
	profiles    *ProfileService
	emailDomain string
	logger      *slog.Logger
}

func NewAuthService(identity models.IdentityProvider, profiles *ProfileService, emailDomain string, logger *slog.Logger) *AuthService {
	return &AuthService{
		identity:    identity,
		profiles:    profiles,
		emailDomain: emailDomain,
		logger:      logger,
	}
}

func (as *AuthService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthState, error) {
	req.Email = strings.ToLower(helpers.StringTrim(req.Email))
	req.FullName = helpers.StringTrim(req.FullName)
	if err := models.Validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if !helpers.HasStudentEmailDomain(req.Email, as.emailDomain) {
		return nil, models.Validationf("use your student email ending in %s", as.emailDomain)
	}
	if !helpers.IsPasswordStrong(req.Password) {
		return nil, models.Validationf("password must have 8 or more characters with upper and lower case letters, a number and a special character")
	}
	if req.Password != req.ConfirmPassword {
		return nil, models.Validationf("passwords do not match")
	}

	userID, err := as.identity.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		return nil, models.StoreFailure("sign up", err)
	}

	profile := &models.UserProfile{
		ID:             userID,
		FullName:       req.FullName,
		Email:          req.Email,
		Major:          helpers.StringTrim(req.Major),
		Year:           helpers.StringTrim(req.Year),
		FavoriteSports: req.FavoriteSports,
		SkillLevel:     req.SkillLevel,
		Bio:            helpers.StringTrim(req.Bio),
	}
	if err := as.profiles.CreateProfile(ctx, profile); err != nil {
		as.logger.Error("account created but profile was not", "user_id", userID, "error", err)
		return nil, err
	}

	as.logger.Info("user signed up", "user_id", userID)
	return &models.AuthState{
		Status:  models.AuthSuccess,
		UserID:  userID,
		Email:   req.Email,
		Profile: profile,
		Message: "account created, check your inbox to confirm your email",
	}, nil
}

func (as *AuthService) SignIn(ctx context.Context, email, password string) (*models.Session, *models.AuthState, error) {
	email = strings.ToLower(helpers.StringTrim(email))
	if err := models.Validate.Var(email, "required,email"); err != nil {
		return nil, nil, models.Validationf("a valid email is required")
	}
	if password == "" {
		return nil, nil, models.Validationf("password is required")
	}

	session, err := as.identity.SignIn(ctx, email, password)
	if err != nil {
		return nil, nil, &models.AppError{Kind: models.KindAuthorization, Code: "invalid_credentials", Message: "invalid email or password", Err: err}
	}

	state := as.stateFor(models.WithAccessToken(ctx, session.AccessToken), session.UserID, session.Email)
	return session, state, nil
}

func (as *AuthService) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	if err := as.identity.SignOut(ctx, accessToken); err != nil {
		return models.StoreFailure("sign out", err)
	}
	return nil
}

func (as *AuthService) SendPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(helpers.StringTrim(email))
	if err := models.Validate.Var(email, "required,email"); err != nil {
		return models.Validationf("a valid email is required")
	}
	if err := as.identity.SendPasswordReset(ctx, email); err != nil {
		return models.StoreFailure("send password reset", err)
	}
	return nil
}

func (as *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	if refreshToken == "" {
		return nil, models.Validationf("refresh token is required")
	}
	session, err := as.identity.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, &models.AppError{Kind: models.KindAuthorization, Code: "refresh_failed", Message: "session expired, sign in again", Err: err}
	}
	return session, nil
}

// Session reports the auth state of the caller. An empty userID means no
// valid token was presented.
func (as *AuthService) Session(ctx context.Context, userID, email string) *models.AuthState {
	if userID == "" {
		return &models.AuthState{Status: models.AuthUnauthenticated}
	}
	return as.stateFor(ctx, userID, email)
}

func (as *AuthService) stateFor(ctx context.Context, userID, email string) *models.AuthState {
	state := &models.AuthState{
		Status: models.AuthAuthenticated,
		UserID: userID,
		Email:  email,
	}

	profile, err := as.profiles.GetProfile(ctx, userID)
	switch {
	case err == nil:
		state.Profile = profile
	case errors.Is(err, models.ErrProfileNotFound):
		state.Message = "profile not found"
	default:
		as.logger.Warn("failed to load profile for session", "user_id", userID, "error", err)
		state.Status = models.AuthError
		state.Message = err.Error()
	}
	return state
}
