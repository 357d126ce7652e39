package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/studyhall-app/studyhall/internal/app"
	iauth "github.com/studyhall-app/studyhall/internal/auth"
	"github.com/studyhall-app/studyhall/internal/handlers"
	"github.com/studyhall-app/studyhall/internal/middleware"
	"github.com/studyhall-app/studyhall/internal/realtime"
	"github.com/studyhall-app/studyhall/internal/services"
)

// Dependencies carries the constructed services the router wires into handlers.
type Dependencies struct {
	DB          *gorm.DB
	Config      *app.Config
	JWT         *iauth.JWTService
	Hub         *realtime.Hub
	Users       *services.UserService
	Invites     *services.InviteService
	Relations   *services.RelationService
	Lessons     *services.LessonService
	Boards      *services.BoardService
	Attachments *services.AttachmentService
	Chat        *services.ChatService
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(100, time.Minute))

	// Health endpoint (public)
	r.GET("/health", handlers.Health(deps.DB))

	if deps.Config.Monitoring.Prometheus.Enabled {
		endpoint := deps.Config.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	authHandler := handlers.NewAuthHandler(deps.Users, deps.JWT)
	inviteHandler := handlers.NewInviteHandler(deps.Invites)
	relationHandler := handlers.NewRelationHandler(deps.Relations)
	lessonHandler := handlers.NewLessonHandler(deps.Lessons)
	boardHandler := handlers.NewBoardHandler(deps.Boards, deps.Hub)
	attachmentHandler := handlers.NewAttachmentHandler(deps.Attachments)
	chatHandler := handlers.NewChatHandler(deps.Chat, deps.Hub)
	realtimeHandler := handlers.NewRealtimeHandler(deps.Hub, deps.JWT, deps.Relations, deps.Boards)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// The websocket endpoint authenticates via query token inside the handler.
	r.GET("/api/realtime/ws", realtimeHandler.Serve)

	requireAuth := middleware.Auth(deps.JWT)

	api := r.Group("/api")
	api.Use(requireAuth)

	api.GET("/auth/me", authHandler.Me)

	// Invites
	invites := api.Group("/invites")
	{
		invites.POST("", inviteHandler.Create)
		invites.GET("", inviteHandler.List)
		invites.GET("/:code", inviteHandler.Resolve)
		invites.POST("/accept", inviteHandler.Accept)
	}

	// Relations and their nested resources
	relations := api.Group("/relations")
	{
		relations.GET("", relationHandler.List)
		relations.GET("/:id", relationHandler.Get)
		relations.PATCH("/:id", relationHandler.Update)
		relations.DELETE("/:id", relationHandler.Delete)

		relations.GET("/:id/lessons", lessonHandler.ListForRelation)
		relations.GET("/:id/boards", boardHandler.ListForRelation)

		relations.POST("/:id/attachments", attachmentHandler.Upload)
		relations.GET("/:id/attachments", attachmentHandler.ListForRelation)

		relations.POST("/:id/messages", chatHandler.Post)
		relations.GET("/:id/messages", chatHandler.List)
		relations.POST("/:id/messages/read", chatHandler.MarkRead)
	}

	// Lessons
	lessons := api.Group("/lessons")
	{
		lessons.POST("", lessonHandler.Schedule)
		lessons.GET("/upcoming", lessonHandler.ListUpcoming)
		lessons.PATCH("/:id", lessonHandler.Update)
		lessons.POST("/:id/cancel", lessonHandler.Cancel)
	}

	// Boards
	boards := api.Group("/boards")
	{
		boards.POST("", boardHandler.Create)
		boards.GET("/:id", boardHandler.Get)
		boards.PATCH("/:id", boardHandler.Rename)
		boards.PUT("/:id/content", boardHandler.UpdateContent)
		boards.DELETE("/:id", boardHandler.Delete)
	}

	// Attachments
	attachments := api.Group("/attachments")
	{
		attachments.GET("/:id/download", attachmentHandler.Download)
		attachments.DELETE("/:id", attachmentHandler.Delete)
	}

	// Chat aggregates and presence
	api.GET("/chat/unread", chatHandler.UnreadCounts)
	api.GET("/realtime/presence", realtimeHandler.Presence)

	return r, nil
}
