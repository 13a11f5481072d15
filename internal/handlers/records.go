package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"donation-platform/internal/logger"
	"donation-platform/internal/middleware"
	"donation-platform/internal/models"
	"donation-platform/internal/payflow"
	"donation-platform/internal/payments"
	"donation-platform/internal/supabase"
)

const maxProofBytes = 10 << 20

type RecordHandler struct {
	Records  RecordStore
	Proofs   ProofUploader
	Stripe   IntentGateway
	PayPal   OrderVerifier
	Notifier payflow.Notifier
	Log      *zap.Logger
}

func (h *RecordHandler) deps() payflow.Deps {
	return payflow.Deps{Records: h.Records, Notifier: h.Notifier, Intents: h.Stripe}
}

type ManualPaymentRequest struct {
	Amount   float64 `form:"amount" json:"amount" binding:"required,gt=0,lte=999999.99"`
	Currency string  `form:"currency" json:"currency"`
	Method   string  `form:"method" json:"method" binding:"required,oneof=cash bank transfer"`
}

// SubmitManual records a cash, bank or transfer payment as pending. Bank and
// transfer payments need a "proof" file in the multipart body.
func (h *RecordHandler) SubmitManual(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromContext(c, h.Log)
		payerID := middleware.UserID(c)
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxProofBytes+(1<<20))

		var req ManualPaymentRequest
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		flow, err := payflow.New(h.deps(), kind, payerID, req.Amount, req.Currency)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		method := models.Method(req.Method)
		if err := flow.Select(method); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if method.RequiresProof() {
			file, err := c.FormFile("proof")
			switch {
			case errors.Is(err, http.ErrMissingFile):
			case err != nil:
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proof upload: " + err.Error()})
				return
			default:
				url, status, msg := h.uploadProof(c, payerID, file)
				if msg != "" {
					c.JSON(status, gin.H{"error": msg})
					return
				}
				if err := flow.AttachProof(url); err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error."})
					return
				}
			}
		}

		if !flow.CanSubmit() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A proof of payment is required for bank transfers."})
			return
		}

		if err := flow.Submit(c.Request.Context()); err != nil {
			log.Error("Failed to record manual payment", zap.String("kind", string(kind)), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save your payment."})
			return
		}

		c.JSON(http.StatusCreated, flow.Record())
	}
}

// uploadProof stores the proof file and returns its URL, or the status and
// message to answer with.
func (h *RecordHandler) uploadProof(c *gin.Context, payerID string, file *multipart.FileHeader) (string, int, string) {
	if h.Proofs == nil {
		return "", http.StatusServiceUnavailable, "Proof uploads are not available."
	}
	if file.Size > maxProofBytes {
		return "", http.StatusRequestEntityTooLarge, "Proof file is too large (max 10 MB)."
	}
	f, err := file.Open()
	if err != nil {
		return "", http.StatusBadRequest, "Invalid proof upload: " + err.Error()
	}
	defer f.Close()

	url, err := h.Proofs.Upload(c.Request.Context(), payerID, file.Filename, file.Header.Get("Content-Type"), f)
	if err != nil {
		if errors.Is(err, supabase.ErrUnsupportedProofType) {
			return "", http.StatusUnsupportedMediaType, "Proof must be an image or a PDF."
		}
		logger.FromContext(c, h.Log).Warn("Proof upload failed", zap.String("payer_id", payerID), zap.Error(err))
		return "", http.StatusBadGateway, "Could not store the proof file."
	}
	return url, http.StatusOK, ""
}

type ConfirmOnlineRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

// ConfirmOnline records a card payment once the processor reports the
// intent as succeeded.
func (h *RecordHandler) ConfirmOnline(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromContext(c, h.Log)
		payerID := middleware.UserID(c)

		var req ConfirmOnlineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		if !h.Stripe.Configured() {
			c.JSON(http.StatusInternalServerError, gin.H{"error": payments.MissingSecretKeyMessage})
			return
		}
		intent, err := h.Stripe.GetIntent(c.Request.Context(), req.PaymentIntentID)
		if err != nil {
			log.Error("Failed to retrieve payment intent", zap.String("payment_intent_id", req.PaymentIntentID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": payments.ErrorMessage(err)})
			return
		}
		// Anonymous intents carry no owner and cannot be claimed here.
		if owner := intent.Metadata["payer_id"]; owner == "" || owner != payerID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Payment intent belongs to another payer."})
			return
		}
		if intentKind(intent) != kind {
			c.JSON(http.StatusConflict, gin.H{"error": "Payment intent was created for " + string(intentKind(intent)) + "."})
			return
		}

		flow, err := payflow.New(h.deps(), kind, payerID, payments.FromMinorUnits(intent.AmountMinor), intent.Currency)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment intent amount."})
			return
		}
		if err := flow.Select(models.MethodOnline); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := flow.Resume(intent); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := flow.Process(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if err := flow.Complete(c.Request.Context(), intent); err != nil {
			if errors.Is(err, payflow.ErrPaymentFailed) {
				c.JSON(http.StatusPaymentRequired, gin.H{"error": "Payment was not completed.", "status": intent.Status})
				return
			}
			log.Error("Charge succeeded but record insert failed",
				zap.String("payment_intent_id", intent.ID),
				zap.String("payer_id", payerID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save your payment."})
			return
		}

		respondRecorded(c, flow)
	}
}

type CapturePayPalRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// CapturePayPal records a PayPal order after verifying it with PayPal.
func (h *RecordHandler) CapturePayPal(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromContext(c, h.Log)
		payerID := middleware.UserID(c)

		var req CapturePayPalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
		if h.PayPal == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "PayPal payments are not available."})
			return
		}

		order, err := h.PayPal.VerifyOrder(c.Request.Context(), req.OrderID)
		switch {
		case errors.Is(err, payments.ErrPayPalDisabled):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "PayPal payments are not available."})
			return
		case errors.Is(err, payments.ErrOrderNotCompleted):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "PayPal order is not completed.", "status": order.Status})
			return
		case err != nil:
			log.Error("Failed to verify PayPal order", zap.String("order_id", req.OrderID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Could not verify the PayPal order."})
			return
		}

		if order.PayerID == "" || order.PayerID != payerID {
			c.JSON(http.StatusForbidden, gin.H{"error": "PayPal order belongs to another payer."})
			return
		}
		if order.Kind != string(kind) {
			c.JSON(http.StatusConflict, gin.H{"error": "PayPal order was created for " + order.Kind + "."})
			return
		}

		flow, err := payflow.New(h.deps(), kind, payerID, order.Amount, order.Currency)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid PayPal order amount."})
			return
		}
		if err := flow.Select(models.MethodPayPal); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := flow.ConfirmPayPal(c.Request.Context(), order); err != nil {
			log.Error("PayPal capture succeeded but record insert failed",
				zap.String("order_id", order.ID),
				zap.String("payer_id", payerID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save your payment."})
			return
		}

		respondRecorded(c, flow)
	}
}

// ListMine returns the caller's records, newest first.
func (h *RecordHandler) ListMine(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := h.Records.ListByPayer(c.Request.Context(), kind, middleware.UserID(c))
		if err != nil {
			logger.FromContext(c, h.Log).Error("Failed to list records", zap.String("kind", string(kind)), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch records"})
			return
		}
		c.JSON(http.StatusOK, records)
	}
}

// intentKind is the kind an intent was created for. Intents without one
// predate the kind metadata and are donations.
func intentKind(intent payments.Intent) models.Kind {
	if kind, ok := models.ParseKind(intent.Metadata["kind"]); ok {
		return kind
	}
	return models.KindDonation
}

func respondRecorded(c *gin.Context, flow *payflow.Flow) {
	if !flow.Inserted() {
		c.JSON(http.StatusOK, gin.H{"status": "already recorded", "transaction_id": flow.Record().TransactionID})
		return
	}
	c.JSON(http.StatusCreated, flow.Record())
}
