package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"donation-platform/internal/logger"
	"donation-platform/internal/models"
	"donation-platform/internal/payflow"
	"donation-platform/internal/repository"
)

type AdminHandler struct {
	Records  RecordStore
	Notifier payflow.Notifier
	Log      *zap.Logger
}

func NewAdminHandler(records RecordStore, notifier payflow.Notifier, log *zap.Logger) *AdminHandler {
	return &AdminHandler{Records: records, Notifier: notifier, Log: log}
}

// ListRecords returns every record of kind, optionally filtered by ?status=.
func (h *AdminHandler) ListRecords(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := models.Status(c.Query("status"))
		if status != "" && !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
			return
		}

		records, err := h.Records.List(c.Request.Context(), kind, status)
		if err != nil {
			logger.FromContext(c, h.Log).Error("Failed to list records", zap.String("kind", string(kind)), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch records"})
			return
		}
		c.JSON(http.StatusOK, records)
	}
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=verified paid"`
}

// UpdateStatus moves a pending record to verified or paid.
func (h *AdminHandler) UpdateStatus(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromContext(c, h.Log)

		var req UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		rec, err := h.Records.UpdateStatus(c.Request.Context(), kind, c.Param("id"), models.Status(req.Status))
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
			return
		case errors.Is(err, repository.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": "Only pending records can be verified"})
			return
		case err != nil:
			log.Error("Failed to update record status", zap.String("id", c.Param("id")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}

		log.Info("Record status updated",
			zap.String("kind", string(kind)),
			zap.String("id", rec.ID),
			zap.String("status", string(rec.Status)),
		)
		if h.Notifier != nil && rec.PayerID != "" {
			h.Notifier.Notify(models.Notification{
				PayerID:  rec.PayerID,
				Kind:     models.NotifySuccess,
				Message:  "Your payment has been " + string(rec.Status) + ".",
				RecordID: rec.ID,
			})
		}
		c.JSON(http.StatusOK, rec)
	}
}
