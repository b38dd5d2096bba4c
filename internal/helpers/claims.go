package helpers

import "github.com/gin-gonic/gin"

const ClaimsKey = "user"

type EnhancedClaims struct {
	*CustomClaims
	UserID    string `json:"id"`
	Email     string `json:"email,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	// AccessToken is the raw token the claims were read from.
	AccessToken string `json:"-"`
}

func (ec *EnhancedClaims) IsOwner(userID string) bool {
	return ec.UserID == userID
}

// ClaimsFrom returns the claims AuthMiddleware stored on the request.
func ClaimsFrom(c *gin.Context) (*EnhancedClaims, bool) {
	v, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*EnhancedClaims)
	return claims, ok && claims.UserID != ""
}
