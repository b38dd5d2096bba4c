package middleware

import (
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/campusplay/internal/helpers"
	"github.com/joshua-takyi/campusplay/internal/models"
	"github.com/joshua-takyi/campusplay/internal/services"
	"golang.org/x/time/rate"
)

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// StructuredLogger provides structured logging middleware
func StructuredLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		requestID, _ := c.Get("request_id")
		attrs := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if claims, ok := helpers.ClaimsFrom(c); ok {
			attrs = append(attrs, "user_id", claims.UserID)
		}

		logger.Info("HTTP Request", attrs...)
	}
}

// ErrorHandler logs errors recorded by handlers. Handlers write their own
// response; a generic 500 is only sent when nothing was written.
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last()
		requestID, _ := c.Get("request_id")

		logger.Error("Request error",
			"request_id", requestID,
			"error", err.Error(),
			"kind", models.KindOf(err.Err),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)

		if !c.Writer.Written() {
			// Don't return error details in production
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":      "Internal server error",
				"request_id": requestID,
			})
		}
	}
}

func AuthMiddleware(authService *services.AuthService, profileService *services.ProfileService, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get JWT token from cookie
		token, err := c.Cookie("access_token")
		if err != nil || token == "" {
			token = bearerToken(c)
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse("access token not found"))
			c.Abort()
			return
		}

		claims, err := helpers.ValidateToken(token)
		if err != nil {
			// Token validation failed, try to refresh
			refreshToken, refreshErr := c.Cookie("refresh_token")
			if refreshErr != nil || refreshToken == "" {
				c.JSON(http.StatusUnauthorized, models.ErrorResponse(err.Error()))
				c.Abort()
				return
			}

			session, refreshErr := authService.RefreshToken(c.Request.Context(), refreshToken)
			if refreshErr != nil {
				logger.Error("Token refresh failed", "error", refreshErr)
				c.JSON(http.StatusUnauthorized, models.ErrorResponse("token expired and refresh failed"))
				c.Abort()
				return
			}

			isProduction := os.Getenv("ENVIRONMENT") == "production"
			logger.Info("Token refreshed successfully",
				"user_id", session.UserID,
				"expires_in", session.ExpiresIn,
			)
			c.SetCookie("access_token", session.AccessToken, session.ExpiresIn, "/", "", isProduction, true)
			c.SetCookie("refresh_token", session.RefreshToken, 3600*24*30, "/", "", isProduction, true)

			token = session.AccessToken
			claims, err = helpers.ValidateToken(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, models.ErrorResponse("refreshed token validation failed"))
				c.Abort()
				return
			}
		}

		// Supabase calls further down run under the caller's session
		ctx := models.WithAccessToken(c.Request.Context(), token)
		c.Request = c.Request.WithContext(ctx)

		enhanced := &helpers.EnhancedClaims{
			CustomClaims: claims,
			UserID:       claims.Subject,
			Email:        claims.Email,
			AccessToken:  token,
		}
		if profile, err := profileService.GetProfile(ctx, claims.Subject); err == nil {
			enhanced.FullName = profile.FullName
			enhanced.AvatarURL = profile.AvatarURL
		} else {
			logger.Debug("Profile not loaded for request", "user_id", claims.Subject, "error", err)
		}

		c.Set(helpers.ClaimsKey, enhanced)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	header := c.GetHeader("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

// RateLimiter hands out one token bucket per key.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mutex    sync.Mutex
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(requestsPerMinute int, burst int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    burst,
	}
}

func (rl *RateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// CleanupLimiters forgets keys whose bucket has refilled completely.
func (rl *RateLimiter) CleanupLimiters() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	for key, limiter := range rl.limiters {
		if limiter.Tokens() >= float64(rl.burst) {
			delete(rl.limiters, key)
		}
	}
}

// RateLimit throttles requests per signed-in identity, or per client IP
// when the route is public.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if claims, ok := helpers.ClaimsFrom(c); ok {
			key = claims.UserID
		}

		if !rl.GetLimiter(key).Allow() {
			c.Header("X-RateLimit-Remaining", "0")
			c.JSON(http.StatusTooManyRequests, models.ErrorResponse("too many requests, slow down"))
			c.Abort()
			return
		}
		c.Next()
	}
}
