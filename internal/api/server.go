package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tradebot-config/internal/auth"
	"tradebot-config/internal/configuration"
	"tradebot-config/internal/events"
	"tradebot-config/internal/logging"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// ConfigSession is the configuration state the API serves
type ConfigSession interface {
	Keys() []string
	Startup(key string, dictOnly bool) (interface{}, error)
	Edited(key string, dictOnly bool) (interface{}, error)
	CheckMode(inBacktesting bool) (*configuration.Report, error)
	InBacktesting() bool
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ProductionMode bool
}

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	session     ConfigSession
	config      ServerConfig
	jwtManager  *auth.JWTManager
	logger      *logging.Logger
	rateLimiter *RateLimiter
	eventBus    *events.EventBus
	recent      *events.Recorder
	wsHub       *WSHub
}

// NewServer creates a new API server. A nil jwtManager disables authentication.
func NewServer(config ServerConfig, session ConfigSession, jwtManager *auth.JWTManager, logger *logging.Logger) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithComponent("api")

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = config.AllowedOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:5173"}
	}
	corsConfig.AllowCredentials = true
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			// credentials cannot be combined with a wildcard origin
			corsConfig.AllowOrigins = nil
			corsConfig.AllowAllOrigins = true
			corsConfig.AllowCredentials = false
			break
		}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		session:     session,
		config:      config,
		jwtManager:  jwtManager,
		logger:      logger,
		rateLimiter: NewRateLimiter(10, time.Minute),
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	if s.jwtManager != nil {
		api.Use(auth.Middleware(s.jwtManager))
	}

	cfg := api.Group("/config")
	{
		cfg.GET("", s.handleListSnapshots)
		cfg.GET("/events", s.handleRecentEvents)
		cfg.GET("/:key/startup", s.handleGetStartup)
		cfg.GET("/:key/edited", s.handleGetEdited)
		cfg.POST("/health-check", auth.RequireWrite(), s.rateLimit("health-check"), s.handleHealthCheck)
	}

	ws := s.router.Group("/ws")
	if s.jwtManager != nil {
		ws.Use(auth.Middleware(s.jwtManager))
	}
	ws.GET("/config/events", s.handleEventStream)
}

// WithEvents publishes health check outcomes on bus, serves the events kept
// by recent and streams every event on bus to websocket clients
func (s *Server) WithEvents(bus *events.EventBus, recent *events.Recorder) *Server {
	s.eventBus = bus
	s.recent = recent
	if bus != nil && s.wsHub == nil {
		s.wsHub = NewWSHub(s.logger)
		go s.wsHub.Run()
		bus.SubscribeAll(s.wsHub.BroadcastEvent)
	}
	return s
}

// Router exposes the handler for tests and embedding
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", addr, "auth", s.jwtManager != nil)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if s.wsHub != nil {
		s.wsHub.Stop()
	}

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) rateLimit(endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.rateLimiter.Allow(endpoint + ":" + c.ClientIP()) {
			errorResponse(c, http.StatusTooManyRequests, "too many requests, try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}

// requestLogger attaches a trace-scoped logger to every request
func requestLogger(base *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx, l := logging.WithTraceContext(c.Request.Context(), base)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		l.WithDuration(time.Since(start)).Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
		)
	}
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
