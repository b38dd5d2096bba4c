package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/campusplay/internal/container"
	"github.com/joshua-takyi/campusplay/internal/handlers"
	"github.com/joshua-takyi/campusplay/internal/middleware"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	if container.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{container.Config.FrontendOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
	}))

	// Add middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	// API version 1
	v1 := r.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "OK",
				"service": "campusplay-api",
				"store":   container.Config.StoreBackend,
			})
		})

		// public routes
		v1.POST("/auth/signup", handlers.SignUp(container.AuthService))
		v1.POST("/auth/login", handlers.SignIn(container.AuthService))
		v1.POST("/auth/password-reset", handlers.PasswordReset(container.AuthService))
		v1.POST("/auth/refresh", handlers.RefreshSession(container.AuthService))
	}

	upgrader := handlers.NewUpgrader(container.Config.FrontendOrigin)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(container.AuthService, container.ProfileService, container.Logger))

	protected.POST("/auth/logout", handlers.SignOut(container.AuthService))
	protected.GET("/auth/session", handlers.Session(container.AuthService))

	protected.GET("/profile/me", handlers.GetMyProfile(container.ProfileService, container.EventService))
	protected.GET("/profile/me/live", handlers.WatchMyProfile(container.ProfileService, upgrader))
	profileRoutes := protected.Group("/profiles")
	{
		profileRoutes.GET("/:id", handlers.GetProfile(container.ProfileService, container.EventService))
		profileRoutes.PATCH("/:id", handlers.UpdateProfile(container.ProfileService))
		profileRoutes.POST("/:id/avatar", handlers.UploadAvatar(container.ProfileService))
	}

	eventRoutes := protected.Group("/events")
	{
		eventRoutes.GET("", handlers.ListEvents(container.EventService))
		eventRoutes.POST("", handlers.CreateEvent(container.EventService))
		eventRoutes.GET("/live", handlers.WatchEvents(container.EventService, upgrader))
		eventRoutes.GET("/:id", handlers.GetEvent(container.EventService))
		eventRoutes.DELETE("/:id", handlers.CancelEvent(container.EventService))
		eventRoutes.POST("/:id/join", handlers.JoinEvent(container.EventService))
		eventRoutes.POST("/:id/leave", handlers.LeaveEvent(container.EventService))
		eventRoutes.POST("/:id/kick", handlers.KickParticipant(container.EventService))
		eventRoutes.POST("/:id/close", handlers.CloseEvent(container.EventService))
		eventRoutes.PATCH("/:id/capacity", handlers.UpdateCapacity(container.EventService))

		eventRoutes.GET("/:id/messages", handlers.ListMessages(container.ChatService))
		eventRoutes.POST("/:id/messages", middleware.RateLimit(container.ChatLimiter), handlers.SendMessage(container.ChatService))
		eventRoutes.GET("/:id/chat/live", handlers.WatchChat(container.ChatService, upgrader))
	}

	return r
}
