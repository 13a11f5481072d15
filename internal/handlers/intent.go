package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"donation-platform/internal/logger"
	"donation-platform/internal/middleware"
	"donation-platform/internal/models"
	"donation-platform/internal/payflow"
	"donation-platform/internal/payments"
)

type PaymentIntentHandler struct {
	Stripe   IntentGateway
	Notifier payflow.Notifier
	Log      *zap.Logger
}

func NewPaymentIntentHandler(stripe IntentGateway, notifier payflow.Notifier, log *zap.Logger) *PaymentIntentHandler {
	return &PaymentIntentHandler{Stripe: stripe, Notifier: notifier, Log: log}
}

type CreatePaymentIntentRequest struct {
	Amount   float64 `json:"amount" binding:"required,gt=0,lte=999999.99"`
	Currency string  `json:"currency"`
	Kind     string  `json:"kind"`
}

// CreatePaymentIntent starts an online payment and hands the client secret
// to the browser SDK. A double submit creates two independent intents
// unless the caller sends an Idempotency-Key header.
func (h *PaymentIntentHandler) CreatePaymentIntent(c *gin.Context) {
	log := logger.FromContext(c, h.Log)

	if !h.Stripe.Configured() {
		log.Error("Cannot create payment intent", zap.String("reason", payments.MissingSecretKeyMessage))
		c.JSON(http.StatusInternalServerError, gin.H{"error": payments.MissingSecretKeyMessage})
		return
	}

	var req CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	kind := models.KindDonation
	if req.Kind != "" {
		var ok bool
		if kind, ok = models.ParseKind(req.Kind); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: unknown kind " + req.Kind})
			return
		}
	}

	flow, err := payflow.New(payflow.Deps{Intents: h.Stripe, Notifier: h.Notifier}, kind, middleware.UserID(c), req.Amount, req.Currency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if err := flow.Select(models.MethodOnline); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	intent, err := flow.RequestIntent(c.Request.Context(), c.GetHeader("Idempotency-Key"))
	if err != nil {
		log.Error("Failed to create payment intent", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": payments.ErrorMessage(err)})
		return
	}

	log.Info("Payment intent created", zap.String("payment_intent_id", intent.ID), zap.String("kind", string(kind)))
	c.JSON(http.StatusOK, gin.H{"clientSecret": intent.ClientSecret})
}

// MethodNotAllowed answers any verb the route does not serve.
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
}
