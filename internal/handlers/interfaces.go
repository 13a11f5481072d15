package handlers

import (
	"context"
	"io"

	"donation-platform/internal/models"
	"donation-platform/internal/payments"
	"donation-platform/internal/supabase"
)

// IntentGateway creates and inspects processor payment intents.
type IntentGateway interface {
	Configured() bool
	CreateIntent(ctx context.Context, req payments.IntentRequest) (payments.Intent, error)
	GetIntent(ctx context.Context, id string) (payments.Intent, error)
}

// WebhookParser verifies and decodes processor webhooks.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (payments.WebhookEvent, error)
}

// OrderVerifier confirms a PayPal order server side.
type OrderVerifier interface {
	VerifyOrder(ctx context.Context, orderID string) (payments.CapturedOrder, error)
}

// RecordStore persists donations and memberships.
type RecordStore interface {
	Insert(ctx context.Context, kind models.Kind, rec *models.Record) (bool, error)
	Get(ctx context.Context, kind models.Kind, id string) (*models.Record, error)
	ListByPayer(ctx context.Context, kind models.Kind, payerID string) ([]models.Record, error)
	List(ctx context.Context, kind models.Kind, status models.Status) ([]models.Record, error)
	UpdateStatus(ctx context.Context, kind models.Kind, id string, next models.Status) (*models.Record, error)
	MembershipBadge(ctx context.Context, payerID string) (models.Badge, error)
}

// ProofUploader stores bank-transfer receipts.
type ProofUploader interface {
	Upload(ctx context.Context, payerID, filename, contentType string, data io.Reader) (string, error)
}

// ProfileStore reads and edits profile rows.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*models.Profile, error)
	Update(ctx context.Context, id string, fullName, phone *string) (*models.Profile, error)
}

// Authenticator proxies credentials to the identity provider.
type Authenticator interface {
	Register(email, password, fullName string) (supabase.Session, error)
	Login(email, password string) (supabase.Session, error)
}
