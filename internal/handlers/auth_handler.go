package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/campusplay/internal/helpers"
	"github.com/joshua-takyi/campusplay/internal/models"
	"github.com/joshua-takyi/campusplay/internal/services"
)

func SignUp(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SignUpRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid request payload"))
			return
		}

		state, err := a.SignUp(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.SuccessResponse(state, state.Message))
	}
}

func SignIn(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid request payload"))
			return
		}

		session, state, err := a.SignIn(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}

		setSessionCookies(c, session)
		// tokens stay in cookies only
		c.JSON(http.StatusOK, models.SuccessResponse(state, "signed in"))
	}
}

func SignOut(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if claims, ok := helpers.ClaimsFrom(c); ok {
			token = claims.AccessToken
		}

		if err := a.SignOut(c.Request.Context(), token); err != nil {
			// the cookies are cleared either way
			_ = c.Error(err)
		}

		clearSessionCookies(c)
		c.JSON(http.StatusOK, models.SuccessResponse(models.AuthState{Status: models.AuthUnauthenticated}, "signed out"))
	}
}

func PasswordReset(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email string `json:"email"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid request payload"))
			return
		}

		if err := a.SendPasswordReset(c.Request.Context(), req.Email); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(nil, "if an account exists for that email, a reset link is on its way"))
	}
}

func RefreshSession(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		refreshToken, err := c.Cookie("refresh_token")
		if err != nil || refreshToken == "" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse("refresh token not found"))
			return
		}

		session, err := a.RefreshToken(c.Request.Context(), refreshToken)
		if err != nil {
			clearSessionCookies(c)
			respondError(c, err)
			return
		}

		setSessionCookies(c, session)
		c.JSON(http.StatusOK, models.SuccessResponse(models.AuthState{
			Status: models.AuthAuthenticated,
			UserID: session.UserID,
			Email:  session.Email,
		}, "session refreshed"))
	}
}

func Session(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := helpers.ClaimsFrom(c)
		if !ok {
			c.JSON(http.StatusOK, models.SuccessResponse(models.AuthState{Status: models.AuthUnauthenticated}, ""))
			return
		}

		state := a.Session(c.Request.Context(), claims.UserID, claims.Email)
		c.JSON(http.StatusOK, models.SuccessResponse(state, ""))
	}
}
