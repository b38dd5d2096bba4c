package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/campusplay/internal/helpers"
	"github.com/joshua-takyi/campusplay/internal/models"
)

func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindAuthorization:
		return http.StatusForbidden
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindConflict:
		return http.StatusConflict
	case models.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// respondError writes the failure envelope. Backend failures are also
// recorded on the context so ErrorHandler logs them with the request id.
func respondError(c *gin.Context, err error) {
	kind := models.KindOf(err)
	if kind == models.KindStore || kind == models.KindTimeout {
		_ = c.Error(err)
	}
	c.JSON(statusFor(kind), models.FailureResponse(err))
}

// currentUser returns the caller's claims or writes a 401.
func currentUser(c *gin.Context) (*helpers.EnhancedClaims, bool) {
	claims, ok := helpers.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("unauthorized"))
		return nil, false
	}
	return claims, true
}

func isProduction() bool {
	return os.Getenv("ENVIRONMENT") == "production"
}

func setSessionCookies(c *gin.Context, session *models.Session) {
	c.SetCookie(
		"access_token",
		session.AccessToken,
		session.ExpiresIn,
		"/",
		"", // let Gin pick current domain
		isProduction(),
		true,
	)
	c.SetCookie(
		"refresh_token",
		session.RefreshToken,
		3600*24*30, // 30 days
		"/",
		"",
		isProduction(),
		true,
	)
}

func clearSessionCookies(c *gin.Context) {
	c.SetCookie("access_token", "", -1, "/", "", isProduction(), true)
	c.SetCookie("refresh_token", "", -1, "/", "", isProduction(), true)
}
