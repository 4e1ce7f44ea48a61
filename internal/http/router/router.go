package router

import (
	"github.com/gin-gonic/gin"

	"github.com/StuffMaster78/acad-system-backend/internal/config"
	"github.com/StuffMaster78/acad-system-backend/internal/http/handlers"
	"github.com/StuffMaster78/acad-system-backend/internal/http/middleware"
	"github.com/StuffMaster78/acad-system-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	orderHandler *handlers.OrderHandler,
	assignmentHandler *handlers.AssignmentHandler,
	disputeHandler *handlers.DisputeHandler,
	fileHandler *handlers.FileHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	api.GET("/ws", wsHandler.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/orders/:id", middleware.UUIDValidator("id"), orderHandler.GetOrder)
		protected.GET("/orders/:id/transitions", middleware.UUIDValidator("id"), orderHandler.AvailableTransitions)
		protected.GET("/orders/:id/logs", middleware.UUIDValidator("id"), orderHandler.ListLogs)
		protected.POST("/orders/:id/transition", middleware.UUIDValidator("id"), orderHandler.Transition)

		protected.POST("/orders/:id/assign", middleware.UUIDValidator("id"), assignmentHandler.Assign)
		protected.POST("/orders/:id/unassign", middleware.UUIDValidator("id"), assignmentHandler.Unassign)
		protected.GET("/orders/:id/requests", middleware.UUIDValidator("id"), assignmentHandler.ListRequests)
		protected.GET("/orders/:id/reassignments", middleware.UUIDValidator("id"), assignmentHandler.ListReassignments)
		protected.POST("/orders/:id/requests", middleware.UUIDValidator("id"), assignmentHandler.CreateRequest)
		protected.POST("/orders/:id/assign-from-queue", middleware.UUIDValidator("id"), assignmentHandler.AssignFromQueue)
		protected.POST("/orders/:id/acceptance", middleware.UUIDValidator("id"), assignmentHandler.RespondAcceptance)

		protected.POST("/orders/:id/dispute", middleware.UUIDValidator("id"), disputeHandler.Raise)
		protected.GET("/orders/:id/disputes", middleware.UUIDValidator("id"), disputeHandler.ListByOrder)
		protected.POST("/disputes/:id/review", middleware.UUIDValidator("id"), disputeHandler.StartReview)
		protected.POST("/disputes/:id/escalate", middleware.UUIDValidator("id"), disputeHandler.Escalate)
		protected.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), disputeHandler.Resolve)

		protected.POST("/orders/:id/files", middleware.UUIDValidator("id"), fileHandler.Upload)
		protected.GET("/orders/:id/files", middleware.UUIDValidator("id"), fileHandler.List)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
	}

	return r
}
