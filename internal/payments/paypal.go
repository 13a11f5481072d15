package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/plutov/paypal/v4"
)

const paypalOrderCompleted = "COMPLETED"

var (
	ErrPayPalDisabled     = errors.New("paypal is not configured")
	ErrOrderNotCompleted  = errors.New("paypal order is not completed")
	ErrOrderMissingAmount = errors.New("paypal order has no amount")
)

// CapturedOrder is a PayPal order the buyer approved and the SDK captured.
// Kind and PayerID come from the purchase unit's custom_id, which the SPA
// sets to OrderReference(kind, payerID) when it creates the order.
type CapturedOrder struct {
	ID       string
	Status   string
	Amount   float64
	Currency string
	Kind     string
	PayerID  string
}

// OrderReference is the custom_id a PayPal order must carry to be recorded.
func OrderReference(kind, payerID string) string {
	return kind + ":" + payerID
}

// PayPalVerifier checks a client-captured order against the PayPal REST API
// before the app records it.
type PayPalVerifier struct {
	mu     sync.Mutex
	client *paypal.Client
}

// NewPayPalVerifier returns ErrPayPalDisabled when credentials are missing.
func NewPayPalVerifier(clientID, secret string, sandbox bool) (*PayPalVerifier, error) {
	if clientID == "" || secret == "" {
		return nil, ErrPayPalDisabled
	}
	base := paypal.APIBaseLive
	if sandbox {
		base = paypal.APIBaseSandBox
	}
	c, err := paypal.NewClient(clientID, secret, base)
	if err != nil {
		return nil, err
	}
	return &PayPalVerifier{client: c}, nil
}

// VerifyOrder fetches orderID and requires it to be COMPLETED.
func (v *PayPalVerifier) VerifyOrder(ctx context.Context, orderID string) (CapturedOrder, error) {
	if v == nil {
		return CapturedOrder{}, ErrPayPalDisabled
	}

	// The SDK only refreshes a token it already holds.
	v.mu.Lock()
	if v.client.Token == nil {
		if _, err := v.client.GetAccessToken(ctx); err != nil {
			v.mu.Unlock()
			return CapturedOrder{}, fmt.Errorf("paypal access token: %w", err)
		}
	}
	v.mu.Unlock()

	order, err := v.client.GetOrder(ctx, orderID)
	if err != nil {
		return CapturedOrder{}, err
	}
	return capturedFromOrder(order)
}

func capturedFromOrder(order *paypal.Order) (CapturedOrder, error) {
	out := CapturedOrder{ID: order.ID, Status: order.Status}
	if order.Status != paypalOrderCompleted {
		return out, ErrOrderNotCompleted
	}
	if len(order.PurchaseUnits) == 0 || order.PurchaseUnits[0].Amount == nil {
		return out, ErrOrderMissingAmount
	}

	unit := order.PurchaseUnits[0]
	if kind, payer, ok := strings.Cut(unit.CustomID, ":"); ok {
		out.Kind, out.PayerID = kind, payer
	}

	amount := unit.Amount
	value, err := strconv.ParseFloat(amount.Value, 64)
	if err != nil {
		return out, fmt.Errorf("paypal amount %q: %w", amount.Value, err)
	}
	out.Amount = value
	out.Currency = strings.ToLower(amount.Currency)
	return out, nil
}
