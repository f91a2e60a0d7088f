package handler

import (
	"net/http"
	"time"

	_ "exposure-server/docs"
	sharedMiddleware "exposure-server/shared/middleware"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

// RouterConfig collects what NewRouter wires together.
type RouterConfig struct {
	Sessions       *SessionHandler
	WebSocket      *WebSocketHandler
	AllowedOrigins []string
	// RateLimit guards mutating session routes when set.
	RateLimit gin.HandlerFunc
	Logger    *zap.Logger
}

// NewRouter builds the gin engine with logging, recovery, metrics, CORS, health and docs.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(sharedMiddleware.GinZapLogger(cfg.Logger))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")
	// label by route template so patient ids do not explode cardinality
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		if path := c.FullPath(); path != "" {
			return path
		}
		return "unmatched"
	}

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 || cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", sharedMiddleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{sharedMiddleware.RequestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	var limit []gin.HandlerFunc
	if cfg.RateLimit != nil {
		limit = append(limit, cfg.RateLimit)
	}
	cfg.Sessions.RegisterRoutes(router, limit...)
	if cfg.WebSocket != nil {
		cfg.WebSocket.RegisterRoutes(router)
	}

	p.Use(router)
	return router
}

// NewRateLimiter limits requests per client IP and patient. A nil client keeps counters in memory.
func NewRateLimiter(client *redis.Client, window time.Duration, limit uint, logger *zap.Logger) gin.HandlerFunc {
	var store rateli.Store
	if client != nil {
		store = rateli.RedisStore(&rateli.RedisOptions{
			RedisClient: client,
			Rate:        window,
			Limit:       limit,
		})
	} else {
		store = rateli.InMemoryStore(&rateli.InMemoryOptions{
			Rate:  window,
			Limit: limit,
		})
	}

	return rateli.RateLimiter(store, &rateli.Options{
		ErrorHandler: func(c *gin.Context, info rateli.Info) {
			logger.Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.String("patientID", c.Param("patientId")),
				zap.Time("resetTime", info.ResetTime),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Code:      "rate_limited",
				Message:   "Too many requests. Try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
				Retryable: true,
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP() + ":" + c.Param("patientId")
		},
	})
}
