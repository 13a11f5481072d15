package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"donation-platform/internal/logger"
	"donation-platform/internal/middleware"
	"donation-platform/internal/repository"
)

type ProfileHandler struct {
	Profiles ProfileStore
	Records  RecordStore
	Log      *zap.Logger
}

func NewProfileHandler(profiles ProfileStore, records RecordStore, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{Profiles: profiles, Records: records, Log: log}
}

func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	profile, err := h.Profiles.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		logger.FromContext(c, h.Log).Error("Failed to get profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error."})
		return
	}
	c.JSON(http.StatusOK, profile)
}

type UpdateProfileRequest struct {
	FullName *string `json:"full_name" binding:"omitempty,max=120"`
	Phone    *string `json:"phone" binding:"omitempty,max=32"`
}

// UpdateMyProfile changes only the fields present in the body.
func (h *ProfileHandler) UpdateMyProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	profile, err := h.Profiles.Update(c.Request.Context(), middleware.UserID(c), req.FullName, req.Phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		logger.FromContext(c, h.Log).Error("Failed to update profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error."})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetMyBadge reports whether the caller holds a verified or paid membership.
func (h *ProfileHandler) GetMyBadge(c *gin.Context) {
	badge, err := h.Records.MembershipBadge(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		logger.FromContext(c, h.Log).Error("Failed to compute membership badge", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error."})
		return
	}
	c.JSON(http.StatusOK, badge)
}
