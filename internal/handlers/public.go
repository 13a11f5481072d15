package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"donation-platform/internal/config"
	"donation-platform/internal/models"
)

type PublicConfig struct {
	StripePublishableKey string          `json:"stripePublishableKey,omitempty"`
	PayPalClientID       string          `json:"paypalClientId,omitempty"`
	PayPalSandbox        bool            `json:"paypalSandbox"`
	Methods              []models.Method `json:"methods"`
}

// NewPublicConfig exposes only the browser-safe keys and the methods this
// deployment can actually take.
func NewPublicConfig(cfg config.Config) PublicConfig {
	out := PublicConfig{
		PayPalSandbox: cfg.PayPalSandbox,
		Methods:       []models.Method{models.MethodCash, models.MethodBank, models.MethodTransfer},
	}
	if cfg.StripeEnabled() {
		out.StripePublishableKey = cfg.StripePublishableKey
		out.Methods = append(out.Methods, models.MethodOnline)
	}
	if cfg.PayPalEnabled() {
		out.PayPalClientID = cfg.PayPalClientID
		out.Methods = append(out.Methods, models.MethodPayPal)
	}
	return out
}

func (p PublicConfig) Handle(c *gin.Context) {
	c.JSON(http.StatusOK, p)
}
