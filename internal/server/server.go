package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"job-portal/config"
	"job-portal/internal/database"
	"job-portal/internal/handlers"
	"job-portal/internal/jobs"
	"job-portal/internal/metrics"
	"job-portal/internal/middleware"
	"job-portal/pkg/auth"
)

const (
	serviceName    = "job-portal-api"
	serviceVersion = "1.0.0"
)

// Server represents the HTTP server
type Server struct {
	Router      *gin.Engine
	config      *config.Config
	logger      *zap.Logger
	jwtService  *auth.JWTService
	rateLimiter *middleware.RateLimiter
	db          *gorm.DB
	svc         *jobs.Service
	metrics     *metrics.Metrics

	// Handlers
	authHandler        *handlers.AuthHandler
	offerHandler       *handlers.OfferHandler
	applicationHandler *handlers.ApplicationHandler
	userHandler        *handlers.UserHandler
}

// New creates a server around svc. db backs the readiness check and m, when
// non-nil, instruments every request and serves the metrics endpoint.
func New(cfg *config.Config, db *gorm.DB, svc *jobs.Service, m *metrics.Metrics, logger *zap.Logger) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	jwtService := auth.NewJWTService(cfg)

	server := &Server{
		Router:      gin.New(),
		config:      cfg,
		logger:      logger,
		jwtService:  jwtService,
		rateLimiter: middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimitWindow()),
		db:          db,
		svc:         svc,
		metrics:     m,

		authHandler:        handlers.NewAuthHandler(svc, logger, jwtService),
		offerHandler:       handlers.NewOfferHandler(svc, logger, cfg.Pagination),
		applicationHandler: handlers.NewApplicationHandler(svc, logger),
		userHandler:        handlers.NewUserHandler(svc, logger),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// JWTService exposes the token service so callers can prune its blacklist.
func (s *Server) JWTService() *auth.JWTService {
	return s.jwtService
}

// RateLimiter exposes the per-client limiter so callers can evict idle buckets.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) setupMiddleware() {
	s.Router.Use(middleware.RequestContext(s.logger))
	s.Router.Use(middleware.Recovery(s.logger))
	s.Router.Use(middleware.AccessLog(s.logger, s.config.IsDevelopment()))
	s.Router.Use(middleware.APIHeaders())

	if s.metrics != nil {
		s.Router.Use(s.metrics.Middleware())
	}

	s.Router.Use(middleware.CORS(s.config.CORS))

	s.Router.Use(middleware.RateLimitMiddleware(s.rateLimiter, s.logger))
}

func (s *Server) setupRoutes() {
	s.Router.GET("/health", s.healthCheck)
	s.Router.HEAD("/health", s.healthCheck)
	s.Router.GET("/ready", s.readinessCheck)
	s.Router.HEAD("/ready", s.readinessCheck)

	if s.metrics != nil {
		s.Router.GET(s.config.Metrics.Path, s.metrics.Handler())
	}

	if s.config.IsDevelopment() {
		s.Router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	requireAuth := middleware.AuthMiddleware(s.jwtService)
	optionalAuth := middleware.OptionalAuth(s.jwtService)

	v1 := s.Router.Group("/api/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", s.authHandler.Register)
			authGroup.POST("/login", s.authHandler.Login)
			authGroup.POST("/refresh", s.authHandler.RefreshToken)
			authGroup.POST("/logout", requireAuth, s.authHandler.Logout)
			authGroup.GET("/me", requireAuth, s.authHandler.Me)
			authGroup.PUT("/me", requireAuth, s.authHandler.UpdateMe)
			authGroup.DELETE("/me", requireAuth, s.authHandler.DeleteMe)
			authGroup.POST("/change-password", requireAuth, s.authHandler.ChangePassword)
		}

		offers := v1.Group("/offers")
		{
			offers.GET("", optionalAuth, s.offerHandler.ListOffers)
			offers.GET("/mine", requireAuth, s.offerHandler.MyOffers)
			offers.GET("/:id", optionalAuth, s.offerHandler.GetOffer)
			offers.POST("", requireAuth, s.offerHandler.CreateOffer)
			offers.PUT("/:id", requireAuth, s.offerHandler.UpdateOffer)
			offers.DELETE("/:id", requireAuth, s.offerHandler.DeleteOffer)
			offers.GET("/:id/can-apply", requireAuth, s.offerHandler.CanApply)
			offers.POST("/:id/apply", requireAuth, s.applicationHandler.Apply)
			offers.GET("/:id/applications", requireAuth, s.applicationHandler.ListForOffer)
		}

		applications := v1.Group("/applications")
		applications.Use(requireAuth)
		{
			applications.GET("/mine", s.applicationHandler.Mine)
			applications.GET("/received", s.applicationHandler.Received)
			applications.GET("/:id", s.applicationHandler.GetApplication)
			applications.PUT("/:id/status", s.applicationHandler.UpdateStatus)
			applications.POST("/:id/cancel", s.applicationHandler.Cancel)
		}

		admin := v1.Group("/admin")
		admin.Use(requireAuth, middleware.RequireStaff())
		{
			admin.GET("/offers", s.offerHandler.AllOffers)
			admin.GET("/users", s.userHandler.ListUsers)
			admin.POST("/users/:id/ban", s.userHandler.SetBan)
		}
	}
}

// healthCheck handles health check requests
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   serviceVersion,
		"service":   serviceName,
	})
}

// readinessCheck handles readiness check requests
// @Summary Readiness check
// @Description Check if the service is ready to serve requests
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (s *Server) readinessCheck(c *gin.Context) {
	if err := database.IsHealthy(s.db); err != nil {
		s.logger.Error("Database health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not ready",
			"timestamp": time.Now().UTC(),
			"error":     "Database connection failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"version":   serviceVersion,
		"service":   serviceName,
		"checks": gin.H{
			"database": "healthy",
			"stats":    database.GetStats(s.db),
		},
	})
}
