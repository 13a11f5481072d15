package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"donation-platform/internal/handlers"
	"donation-platform/internal/logger"
	"donation-platform/internal/middleware"
	"donation-platform/internal/models"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Intent    *handlers.PaymentIntentHandler
	Records   *handlers.RecordHandler
	Webhook   *handlers.WebhookHandler
	Admin     *handlers.AdminHandler
	Profile   *handlers.ProfileHandler
	Auth      *handlers.AuthHandler
	WebSocket *handlers.WebSocketHandler
	Public    handlers.PublicConfig
}

type Options struct {
	JWTSecret string
	Origins   []string
	Log       *zap.Logger
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// New builds the gin engine. Unknown verbs on a known path answer 405.
func New(h Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), logger.RequestLogger(opts.Log), cors.New(corsConfig(opts.Origins)))
	r.NoMethod(handlers.MethodNotAllowed)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	r.POST("/create-payment-intent", middleware.OptionalAuth(opts.JWTSecret), h.Intent.CreatePaymentIntent)
	r.POST("/webhook/stripe", h.Webhook.StripeWebhook)
	r.GET("/ws", h.WebSocket.ServeWs)

	api := r.Group("/api")
	{
		api.GET("/config/public", h.Public.Handle)

		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(opts.JWTSecret))
		{
			protected.GET("/me", h.Profile.GetMyProfile)
			protected.PUT("/me", h.Profile.UpdateMyProfile)
			protected.GET("/me/badge", h.Profile.GetMyBadge)

			for _, kind := range models.Kinds {
				k := string(kind)
				protected.GET("/me/"+k, h.Records.ListMine(kind))
				protected.POST("/"+k+"/manual", h.Records.SubmitManual(kind))
				protected.POST("/"+k+"/online/confirm", h.Records.ConfirmOnline(kind))
				protected.POST("/"+k+"/paypal/capture", h.Records.CapturePayPal(kind))
			}
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(opts.JWTSecret), middleware.RequireAdmin())
		{
			for _, kind := range models.Kinds {
				k := string(kind)
				admin.GET("/"+k, h.Admin.ListRecords(kind))
				admin.PATCH("/"+k+"/:id/status", h.Admin.UpdateStatus(kind))
			}
		}
	}

	return r
}
