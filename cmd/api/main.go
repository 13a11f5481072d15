package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"

	"donation-platform/internal/config"
	"donation-platform/internal/handlers"
	"donation-platform/internal/logger"
	"donation-platform/internal/payments"
	"donation-platform/internal/repository"
	"donation-platform/internal/routes"
	"donation-platform/internal/supabase"
	ws "donation-platform/internal/websocket"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	zl, err := logger.New(cfg.Production())
	if err != nil {
		log.Fatal("cannot build logger:", err)
	}
	defer zl.Sync()
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := sqlx.Connect("pgx", cfg.DSN)
	if err != nil {
		zl.Fatal("cannot connect to database", zap.Error(err))
	}
	defer db.Close()
	zl.Info("Connected to Supabase (PostgreSQL)")

	records := repository.NewRecordRepository(db)
	profiles := repository.NewProfileRepository(db)

	var (
		proofs handlers.ProofUploader
		authn  handlers.Authenticator
	)
	sb, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	if err != nil {
		zl.Warn("Supabase client disabled, proof uploads and auth proxy unavailable", zap.Error(err))
	} else {
		proofs = supabase.NewProofStore(sb.Storage, cfg.SupabaseProofBucket)
		authn = supabase.NewAuth(sb.Auth)
	}

	stripeGateway := payments.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, zl)
	if !stripeGateway.Configured() {
		zl.Warn("Stripe secret key missing, online payments will fail")
	}

	var paypal handlers.OrderVerifier
	verifier, err := payments.NewPayPalVerifier(cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.PayPalSandbox)
	if err != nil {
		zl.Warn("PayPal disabled", zap.Error(err))
	} else {
		paypal = verifier
	}

	hub := ws.NewHub(zl)
	go hub.Run()
	defer hub.Stop()

	r := routes.New(routes.Handlers{
		Intent: handlers.NewPaymentIntentHandler(stripeGateway, hub, zl),
		Records: &handlers.RecordHandler{
			Records:  records,
			Proofs:   proofs,
			Stripe:   stripeGateway,
			PayPal:   paypal,
			Notifier: hub,
			Log:      zl,
		},
		Webhook:   handlers.NewWebhookHandler(stripeGateway, records, hub, zl),
		Admin:     handlers.NewAdminHandler(records, hub, zl),
		Profile:   handlers.NewProfileHandler(profiles, records, zl),
		Auth:      handlers.NewAuthHandler(authn, zl),
		WebSocket: handlers.NewWebSocketHandler(hub, cfg.JWTSecret, cfg.AllowedOrigins(), zl),
		Public:    handlers.NewPublicConfig(cfg),
	}, routes.Options{
		JWTSecret: cfg.JWTSecret,
		Origins:   cfg.AllowedOrigins(),
		Log:       zl,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		zl.Info("Server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("could not start server", zap.Error(err))
		}
	}()

	<-quit
	zl.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
	}
}
