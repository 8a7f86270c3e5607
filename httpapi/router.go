package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/middleware"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Mode selects how much error detail reaches the client.
type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

// Options configures NewRouter. Engine is required.
type Options struct {
	Engine *goAccount.Engine
	Logger *zap.Logger
	Mode   Mode

	AllowOrigins   []string
	MaxBodyBytes   int64
	MaxUploadBytes int64

	// RateLimiter is optional; the caller runs its eviction loop.
	RateLimiter *middleware.IPRateLimiter
	// Health backs GET /api/v1/health when set.
	Health func(ctx context.Context) error
	// Metrics is mounted at GET /metrics when set.
	Metrics http.Handler
}

// API holds the gin router and the handlers bound to one engine.
type API struct {
	Router *gin.Engine

	engine *goAccount.Engine
	logger *zap.Logger
	mode   Mode
	health func(ctx context.Context) error
}

// NewRouter builds the router with the full middleware stack and route table.
func NewRouter(opts Options) (*API, error) {
	if opts.Engine == nil {
		return nil, errors.New("httpapi: engine is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Mode == "" {
		opts.Mode = ModeProduction
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = opts.Engine.Config().Image.MaxBytes + 1<<20
	}

	a := &API{
		engine: opts.Engine,
		logger: opts.Logger,
		mode:   opts.Mode,
		health: opts.Health,
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.MaxMultipartMemory = opts.MaxUploadBytes
	a.Router = router

	router.Use(
		middleware.RequestContext(),
		ginzap.GinzapWithConfig(opts.Logger, &ginzap.Config{
			TimeFormat: time.RFC3339,
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == http.MethodHead
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := middleware.RequestID(c); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("user_id", v))
				}

				return fields
			},
		}),
		ginzap.RecoveryWithZap(opts.Logger, true),
		middleware.SecurityHeaders(),
	)
	if len(opts.AllowOrigins) > 0 {
		router.Use(cors.New(corsConfig(opts.AllowOrigins)))
	}
	if opts.RateLimiter != nil {
		router.Use(opts.RateLimiter.Middleware())
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"status": "fail", "message": "Route not found"})
	})

	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	v1 := router.Group("/api/v1")
	v1.GET("/health", a.Health)

	auth := middleware.Auth(a.engine, a.writeError)
	users := v1.Group("/users")
	body := users.Group("", middleware.BodySizeLimiter(opts.MaxBodyBytes))
	{
		body.POST("/signup", a.Signup)
		body.POST("/login", a.Login)

		body.POST("/verification/:id", auth, a.VerifyEmail)
		body.GET("/resend-code/:id", auth, a.ResendCode)

		body.GET("/logout", auth, a.Logout)
		body.GET("/logout-all", auth, a.LogoutAll)

		body.POST("/forgot-pass", a.ForgotPassword)
		body.PATCH("/reset-pass/:email", a.ResetPassword)
		body.POST("/resend-pass-otp/:email", a.ResendPasswordOTP)
		body.POST("/verify-pass-otp/:email", a.VerifyPasswordOTP)

		body.POST("/complete-signup", auth, a.CompleteSignup)
		body.POST("/location", auth, a.SetLocation)

		body.GET("/get-user", auth, a.GetUser)
		body.PATCH("/update-user", auth, a.UpdateUser)
		body.PATCH("/change-password", auth, a.ChangePassword)

		body.DELETE("/delete-profile-picture", auth, a.DeleteProfilePicture)
		body.DELETE("/delete-user", auth, a.DeleteUser)
	}

	// Uploads get their own, larger, body limit.
	users.POST("/upload-image", auth, middleware.BodySizeLimiter(opts.MaxUploadBytes), a.UploadImage)

	return a, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

// Health reports store reachability.
func (a *API) Health(c *gin.Context) {
	if a.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := a.health(ctx); err != nil {
			a.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "Storage is unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
