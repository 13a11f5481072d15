package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"donation-platform/internal/logger"
	"donation-platform/internal/models"
	"donation-platform/internal/payflow"
	"donation-platform/internal/payments"
)

const maxWebhookBytes = 65536

const (
	eventIntentSucceeded = "payment_intent.succeeded"
	eventIntentFailed    = "payment_intent.payment_failed"
)

type WebhookHandler struct {
	Events   WebhookParser
	Records  RecordStore
	Notifier payflow.Notifier
	Log      *zap.Logger
}

func NewWebhookHandler(events WebhookParser, records RecordStore, notifier payflow.Notifier, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{Events: events, Records: records, Notifier: notifier, Log: log}
}

// StripeWebhook records succeeded intents even when the browser never came
// back to confirm. Inserts are keyed on the intent id, so a confirm call and
// a webhook delivery for the same charge produce one row.
func (h *WebhookHandler) StripeWebhook(c *gin.Context) {
	log := logger.FromContext(c, h.Log)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warn("Failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Could not read body"})
		return
	}

	event, err := h.Events.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Warn("Rejected webhook", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook signature"})
		return
	}

	if event.Intent == nil {
		log.Debug("Ignoring webhook event", zap.String("type", event.Type))
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}

	switch event.Type {
	case eventIntentSucceeded:
		if err := h.recordSucceeded(c, event.Intent); err != nil {
			log.Error("Failed to record webhook payment",
				zap.String("event_id", event.ID),
				zap.String("payment_intent_id", event.Intent.ID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
	case eventIntentFailed:
		if payerID := event.Intent.Metadata["payer_id"]; payerID != "" && h.Notifier != nil {
			h.Notifier.Notify(models.Notification{
				PayerID: payerID,
				Kind:    models.NotifyError,
				Message: "The card payment was declined.",
			})
		}
	default:
		log.Debug("Ignoring webhook event", zap.String("type", event.Type))
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func (h *WebhookHandler) recordSucceeded(c *gin.Context, intent *payments.Intent) error {
	log := logger.FromContext(c, h.Log)

	payerID := intent.Metadata["payer_id"]
	if payerID == "" {
		log.Info("Succeeded intent has no payer, skipping", zap.String("payment_intent_id", intent.ID))
		return nil
	}
	kind := intentKind(*intent)

	flow, err := payflow.New(payflow.Deps{Records: h.Records, Notifier: h.Notifier}, kind, payerID,
		payments.FromMinorUnits(intent.AmountMinor), intent.Currency)
	if err != nil {
		if errors.Is(err, payflow.ErrInvalidAmount) {
			log.Warn("Succeeded intent has no amount, skipping", zap.String("payment_intent_id", intent.ID))
			return nil
		}
		return err
	}
	if err := flow.Select(models.MethodOnline); err != nil {
		return err
	}
	if err := flow.Resume(*intent); err != nil {
		return err
	}
	if err := flow.Process(); err != nil {
		return err
	}
	if err := flow.Complete(c.Request.Context(), *intent); err != nil {
		return err
	}

	if flow.Inserted() {
		log.Info("Recorded payment from webhook", zap.String("payment_intent_id", intent.ID), zap.String("kind", string(kind)))
	} else {
		log.Info("Duplicate webhook, already recorded", zap.String("payment_intent_id", intent.ID))
	}
	return nil
}
