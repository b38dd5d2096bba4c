package container

import (
	"context"
	"log/slog"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/joshua-takyi/campusplay/internal/config"
	"github.com/joshua-takyi/campusplay/internal/live"
	"github.com/joshua-takyi/campusplay/internal/memstore"
	"github.com/joshua-takyi/campusplay/internal/middleware"
	"github.com/joshua-takyi/campusplay/internal/models"
	"github.com/joshua-takyi/campusplay/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/supabase-community/supabase-go"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	// Database clients
	SupabaseClient *supabase.Client
	MongoDBClient  *mongo.Client
	Mongo          *models.MongodbRepo

	AuthService    *services.AuthService
	ProfileService *services.ProfileService
	EventService   *services.EventService
	ChatService    *services.ChatService
	ChatLimiter    *middleware.RateLimiter

	eventHub *live.Hub[[]models.SportsEvent]
	chatHub  *live.Hub[[]models.ChatMessage]
	cancel   context.CancelFunc
}

// NewContainer creates a new dependency injection container. mongoDBClient
// is nil in memory mode; redisClient and cld are nil when not configured.
func NewContainer(
	cfg *config.Config,
	logger *slog.Logger,
	supabaseClient *supabase.Client,
	mongoDBClient *mongo.Client,
	redisClient *redis.Client,
	cld *cloudinary.Cloudinary,
) *Container {
	// Initialize repositories
	supa := models.SupabaseNewRepo(supabaseClient, cfg.SupabaseURL, cfg.SupabaseAnonKey)

	var (
		events   models.EventRepo
		messages models.ChatRepo
		profiles models.ProfileRepo = supa
		mongoDB  *models.MongodbRepo
	)
	if cfg.UseMemoryStore() {
		store := memstore.New()
		events, messages, profiles = store, store, store
		logger.Warn("Using in-memory store, data is lost on restart")
	} else {
		mongoDB = models.MongodbNewRepo(mongoDBClient, cfg.MongoDBDatabase)
		events, messages = mongoDB, mongoDB
	}

	var names models.NameCache
	if redisClient != nil {
		names = models.RedisNewRepo(redisClient)
	}

	ctx, cancel := context.WithCancel(context.Background())
	eventHub := live.NewHub[[]models.SportsEvent](ctx, logger.With("hub", "events"))
	chatHub := live.NewHub[[]models.ChatMessage](ctx, logger.With("hub", "chat"))

	profileService := services.NewProfileService(profiles, names, cld, cfg.StoreTimeout, logger)
	chatService := services.NewChatService(messages, events, profileService, chatHub, cfg.StoreTimeout, logger)
	eventService := services.NewEventService(events, chatService, profileService, eventHub, cfg.StoreTimeout, logger)
	authService := services.NewAuthService(supa, profileService, cfg.StudentEmailDomain, logger)

	return &Container{
		Config:         cfg,
		Logger:         logger,
		SupabaseClient: supabaseClient,
		MongoDBClient:  mongoDBClient,
		Mongo:          mongoDB,
		AuthService:    authService,
		ProfileService: profileService,
		EventService:   eventService,
		ChatService:    chatService,
		ChatLimiter:    middleware.NewRateLimiter(cfg.ChatRatePerMinute, 5),
		eventHub:       eventHub,
		chatHub:        chatHub,
		cancel:         cancel,
	}
}

// Close ends every live stream. Open websockets see their source close
// and exit.
func (c *Container) Close() {
	c.eventHub.Close()
	c.chatHub.Close()
	c.ProfileService.Close()
	c.cancel()
}
