// Package payflow drives a single payment attempt from method selection to
// a recorded donation or membership.
//
//	unselected -> cash | bank | paypal
//	unselected -> online:awaiting-secret -> online:ready -> online:processing -> online:succeeded | online:failed
//
// Every successful terminal path writes exactly one record and pushes a
// success notification. Failures push an error notification and leave the
// flow where the attempt can be retried.
package payflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"donation-platform/internal/models"
	"donation-platform/internal/payments"
)

type State string

const (
	StateUnselected     State = "unselected"
	StateCash           State = "cash"
	StateBank           State = "bank"
	StatePayPal         State = "paypal"
	StateAwaitingSecret State = "online:awaiting-secret"
	StateReady          State = "online:ready"
	StateProcessing     State = "online:processing"
	StateSucceeded      State = "online:succeeded"
	StateFailed         State = "online:failed"
	StateCompleted      State = "completed"
)

var (
	ErrInvalidTransition = errors.New("payflow: invalid transition")
	ErrUnsupportedMethod = errors.New("payflow: unsupported method")
	ErrProofRequired     = errors.New("payflow: proof file required")
	ErrInvalidAmount     = errors.New("payflow: amount must be positive and within the processor limit")
	ErrPaymentFailed     = errors.New("payflow: payment was not confirmed")
	ErrIntentMismatch    = errors.New("payflow: intent does not belong to this attempt")
)

// Recorder persists a record. inserted is false when a row with the same
// transaction id already exists.
type Recorder interface {
	Insert(ctx context.Context, kind models.Kind, rec *models.Record) (inserted bool, err error)
}

// Notifier pushes a toast to the payer.
type Notifier interface {
	Notify(n models.Notification)
}

// IntentCreator creates processor-side payment intents.
type IntentCreator interface {
	CreateIntent(ctx context.Context, req payments.IntentRequest) (payments.Intent, error)
}

// Deps are the collaborators shared by all flows.
type Deps struct {
	Records  Recorder
	Notifier Notifier
	Intents  IntentCreator
}

// Flow is one payment attempt. It is not safe for concurrent use; each
// request or UI interaction owns its own Flow.
type Flow struct {
	deps     Deps
	kind     models.Kind
	payerID  string
	amount   float64
	currency string

	state    State
	method   models.Method
	intentID string
	secret   string
	proofURL string
	record   *models.Record
	inserted bool
}

// New starts a flow in StateUnselected.
func New(deps Deps, kind models.Kind, payerID string, amount float64, currency string) (*Flow, error) {
	if amount <= 0 || amount > payments.MaxAmount {
		return nil, ErrInvalidAmount
	}
	if currency == "" {
		currency = payments.DefaultCurrency
	}
	return &Flow{
		deps:     deps,
		kind:     kind,
		payerID:  payerID,
		amount:   amount,
		currency: strings.ToLower(currency),
		state:    StateUnselected,
	}, nil
}

func (f *Flow) State() State           { return f.state }
func (f *Flow) Method() models.Method  { return f.method }
func (f *Flow) ClientSecret() string   { return f.secret }
func (f *Flow) IntentID() string       { return f.intentID }
func (f *Flow) Record() *models.Record { return f.record }

// Inserted reports whether the last write created a new row rather than
// hitting an existing transaction id.
func (f *Flow) Inserted() bool { return f.inserted }

// Select picks a payment method. Switching methods is allowed until the
// online flow starts processing; it discards the previous method's state.
func (f *Flow) Select(method models.Method) error {
	switch f.state {
	case StateProcessing, StateSucceeded, StateCompleted:
		return fmt.Errorf("%w: select from %s", ErrInvalidTransition, f.state)
	}

	f.reset()
	switch method {
	case models.MethodCash:
		f.state = StateCash
	case models.MethodBank, models.MethodTransfer:
		f.state = StateBank
	case models.MethodPayPal:
		f.state = StatePayPal
	case models.MethodOnline:
		f.state = StateAwaitingSecret
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	f.method = method
	return nil
}

// RequestIntent asks the processor for a new intent and stores its secret.
// On failure the flow falls back to unselected so the payer can retry.
func (f *Flow) RequestIntent(ctx context.Context, idempotencyKey string) (payments.Intent, error) {
	if f.state != StateAwaitingSecret {
		return payments.Intent{}, fmt.Errorf("%w: request intent from %s", ErrInvalidTransition, f.state)
	}

	meta := map[string]string{"kind": string(f.kind)}
	if f.payerID != "" {
		meta["payer_id"] = f.payerID
	}
	intent, err := f.deps.Intents.CreateIntent(ctx, payments.IntentRequest{
		Amount:         f.amount,
		Currency:       f.currency,
		Metadata:       meta,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		f.reset()
		f.notify(models.NotifyError, "Could not start the card payment. Please try again.", "")
		return payments.Intent{}, err
	}

	f.intentID = intent.ID
	f.secret = intent.ClientSecret
	f.state = StateReady
	return intent, nil
}

// Resume re-enters the online flow for an intent created by an earlier request.
func (f *Flow) Resume(intent payments.Intent) error {
	if f.state != StateAwaitingSecret {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, f.state)
	}
	f.intentID = intent.ID
	f.secret = intent.ClientSecret
	f.state = StateReady
	return nil
}

// Process marks the card confirmation as in flight.
func (f *Flow) Process() error {
	if f.state != StateReady && f.state != StateFailed {
		return fmt.Errorf("%w: process from %s", ErrInvalidTransition, f.state)
	}
	f.state = StateProcessing
	return nil
}

// Complete applies the processor's verdict for the in-flight intent. A
// succeeded intent is recorded as paid; if that insert fails the flow stays
// in processing so Complete can be retried without charging again.
func (f *Flow) Complete(ctx context.Context, intent payments.Intent) error {
	if f.state != StateProcessing {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, f.state)
	}
	if intent.ID != f.intentID {
		return ErrIntentMismatch
	}
	if !intent.Succeeded() {
		f.state = StateFailed
		f.notify(models.NotifyError, "The card payment was not completed.", "")
		return fmt.Errorf("%w: intent status %s", ErrPaymentFailed, intent.Status)
	}

	rec := f.newRecord(models.StatusPaid, intent.ID)
	if intent.AmountMinor > 0 {
		rec.Amount = payments.FromMinorUnits(intent.AmountMinor)
	}
	if intent.Currency != "" {
		rec.Currency = intent.Currency
	}
	if err := f.write(ctx, rec); err != nil {
		return err
	}
	f.state = StateSucceeded
	return nil
}

// AttachProof stores the uploaded proof location for a bank payment.
func (f *Flow) AttachProof(url string) error {
	if f.state != StateBank {
		return fmt.Errorf("%w: attach proof from %s", ErrInvalidTransition, f.state)
	}
	f.proofURL = url
	return nil
}

// CanSubmit reports whether a manual submission is currently allowed.
func (f *Flow) CanSubmit() bool {
	switch f.state {
	case StateCash:
		return true
	case StateBank:
		return f.proofURL != ""
	}
	return false
}

// Submit records a manual (cash or bank) payment as pending staff verification.
func (f *Flow) Submit(ctx context.Context) error {
	if f.state != StateCash && f.state != StateBank {
		return fmt.Errorf("%w: submit from %s", ErrInvalidTransition, f.state)
	}
	if !f.CanSubmit() {
		return ErrProofRequired
	}

	rec := f.newRecord(models.StatusPending, "MANUAL-"+uuid.NewString())
	if f.proofURL != "" {
		proof := f.proofURL
		rec.ProofURL = &proof
	}
	if err := f.write(ctx, rec); err != nil {
		return err
	}
	f.state = StateCompleted
	return nil
}

// ConfirmPayPal records an order the PayPal SDK captured and the server verified.
func (f *Flow) ConfirmPayPal(ctx context.Context, order payments.CapturedOrder) error {
	if f.state != StatePayPal {
		return fmt.Errorf("%w: paypal confirm from %s", ErrInvalidTransition, f.state)
	}

	rec := f.newRecord(models.StatusPaid, order.ID)
	rec.Amount = order.Amount
	if order.Currency != "" {
		rec.Currency = order.Currency
	}
	if err := f.write(ctx, rec); err != nil {
		return err
	}
	f.state = StateCompleted
	return nil
}

// Fail reports a client- or processor-side failure without changing the
// method, so the same method can be retried.
func (f *Flow) Fail(message string) {
	if f.state == StateProcessing {
		f.state = StateFailed
	}
	f.notify(models.NotifyError, message, "")
}

// Cancel discards everything. An intent already created is left to expire
// on the processor side.
func (f *Flow) Cancel() {
	f.reset()
}

func (f *Flow) reset() {
	f.state = StateUnselected
	f.method = ""
	f.intentID = ""
	f.secret = ""
	f.proofURL = ""
	f.record = nil
	f.inserted = false
}

func (f *Flow) newRecord(status models.Status, txID string) *models.Record {
	return &models.Record{
		PayerID:       f.payerID,
		Amount:        f.amount,
		Currency:      f.currency,
		Method:        f.method,
		Status:        status,
		TransactionID: txID,
	}
}

// write inserts rec. When the transaction was already recorded (say, by the
// webhook) the insert is a no-op and only the first writer notifies.
func (f *Flow) write(ctx context.Context, rec *models.Record) error {
	inserted, err := f.deps.Records.Insert(ctx, f.kind, rec)
	if err != nil {
		f.notify(models.NotifyError, "We could not save your payment. Please try again.", "")
		return fmt.Errorf("record %s: %w", f.kind, err)
	}
	f.record = rec
	f.inserted = inserted
	if inserted {
		f.notify(models.NotifySuccess, successMessage(f.kind, rec.Status), rec.ID)
	}
	return nil
}

func (f *Flow) notify(kind models.NotificationKind, message, recordID string) {
	if f.deps.Notifier == nil || f.payerID == "" {
		return
	}
	f.deps.Notifier.Notify(models.Notification{
		PayerID:  f.payerID,
		Kind:     kind,
		Message:  message,
		RecordID: recordID,
	})
}

func successMessage(kind models.Kind, status models.Status) string {
	subject := "Donation"
	if kind == models.KindMembership {
		subject = "Membership payment"
	}
	if status == models.StatusPending {
		return subject + " submitted. It will be confirmed once verified."
	}
	return subject + " received. Thank you!"
}
