package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"

	"donation-platform/internal/logger"
)

// DefaultCurrency is used when a request does not name one.
const DefaultCurrency = "usd"

// MissingSecretKeyMessage is reported to callers when no secret key is configured.
const MissingSecretKeyMessage = "Missing Stripe Secret Key"

var (
	ErrNotConfigured    = errors.New("stripe secret key is not configured")
	ErrWebhookNotSigned = errors.New("stripe webhook secret is not configured")
)

// MaxAmount is the largest amount, in currency units, Stripe accepts for a
// single charge (99999999 minor units).
const MaxAmount = 999999.99

// MinorUnits converts an amount in currency units to minor units,
// rounding half up: 19.995 becomes 2000.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromMinorUnits is the inverse of MinorUnits.
func FromMinorUnits(minor int64) float64 {
	return float64(minor) / 100
}

// IntentRequest describes a PaymentIntent to create.
type IntentRequest struct {
	Amount         float64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

// Intent is the subset of a Stripe PaymentIntent the app relies on.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountMinor  int64
	Currency     string
	Metadata     map[string]string
}

// Succeeded reports whether the processor has confirmed the charge.
func (i Intent) Succeeded() bool {
	return i.Status == string(stripe.PaymentIntentStatusSucceeded)
}

// WebhookEvent is a verified Stripe event carrying a PaymentIntent.
type WebhookEvent struct {
	ID     string
	Type   string
	Intent *Intent
}

// StripeGateway talks to Stripe through its own client and backend, so
// nothing here touches stripe.Key or the SDK's default logger.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// StripeOption tweaks the backend a gateway is built with.
type StripeOption func(*stripe.BackendConfig)

// WithAPIURL points the gateway at another Stripe-compatible API, such as stripe-mock.
func WithAPIURL(url string) StripeOption {
	return func(c *stripe.BackendConfig) {
		c.URL = stripe.String(url)
	}
}

// NewStripeGateway builds a gateway. An empty secretKey yields a gateway
// whose calls return ErrNotConfigured instead of failing at startup.
func NewStripeGateway(secretKey, webhookSecret string, log *zap.Logger, opts ...StripeOption) *StripeGateway {
	g := &StripeGateway{webhookSecret: webhookSecret}
	if secretKey == "" {
		return g
	}

	sdkLog := logger.Filtered(log.Named("stripe"), logger.DropPrefixes("Requesting", "Request completed", "Response:"))
	backendConfig := &stripe.BackendConfig{
		LeveledLogger:     &leveledLogger{log: sdkLog.Sugar()},
		MaxNetworkRetries: stripe.Int64(0),
	}
	for _, opt := range opts {
		opt(backendConfig)
	}

	g.api = &client.API{}
	g.api.Init(secretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig),
	})
	return g
}

// Configured reports whether a secret key was supplied.
func (g *StripeGateway) Configured() bool {
	return g != nil && g.api != nil
}

// CreateIntent creates a PaymentIntent with automatic payment methods enabled.
// No idempotency key is sent unless the request carries one.
func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	if !g.Configured() {
		return Intent{}, ErrNotConfigured
	}

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = DefaultCurrency
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(MinorUnits(req.Amount)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, err
	}
	return toIntent(pi), nil
}

// GetIntent fetches the current state of a PaymentIntent.
func (g *StripeGateway) GetIntent(ctx context.Context, id string) (Intent, error) {
	if !g.Configured() {
		return Intent{}, ErrNotConfigured
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return Intent{}, err
	}
	return toIntent(pi), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
// Intent is set only for payment_intent.* events.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (WebhookEvent, error) {
	if g == nil || g.webhookSecret == "" {
		return WebhookEvent{}, ErrWebhookNotSigned
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return WebhookEvent{}, err
	}

	out := WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(out.Type, "payment_intent.") && event.Data != nil {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return out, fmt.Errorf("decode payment intent: %w", err)
		}
		intent := toIntent(&pi)
		out.Intent = &intent
	}
	return out, nil
}

// ErrorMessage returns the processor's own message for Stripe errors and
// err.Error() otherwise.
func ErrorMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return err.Error()
}

func toIntent(pi *stripe.PaymentIntent) Intent {
	return Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

// leveledLogger routes the SDK's leveled logging into zap.
type leveledLogger struct {
	log *zap.SugaredLogger
}

func (l *leveledLogger) Debugf(format string, v ...interface{}) { l.log.Debugf(format, v...) }
func (l *leveledLogger) Infof(format string, v ...interface{})  { l.log.Infof(format, v...) }
func (l *leveledLogger) Warnf(format string, v ...interface{})  { l.log.Warnf(format, v...) }
func (l *leveledLogger) Errorf(format string, v ...interface{}) { l.log.Errorf(format, v...) }
