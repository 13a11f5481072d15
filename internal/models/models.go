package models

import "time"

// We use 'db' tags for sqlx to map the Supabase column names
// (snake_case) to our Go fields (CamelCase).

// Kind selects which table a payment record lives in.
type Kind string

const (
	KindDonation   Kind = "donations"
	KindMembership Kind = "memberships"
)

// Kinds lists every record kind, in route registration order.
var Kinds = []Kind{KindDonation, KindMembership}

// ParseKind accepts "donations"/"memberships" and their singular forms.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "donations", "donation":
		return KindDonation, true
	case "memberships", "membership":
		return KindMembership, true
	}
	return "", false
}

// Table returns the Postgres table for k. Only known kinds map to a table.
func (k Kind) Table() string {
	switch k {
	case KindDonation:
		return "donations"
	case KindMembership:
		return "memberships"
	}
	return ""
}

// Method is how a payer settled a record.
type Method string

const (
	MethodOnline   Method = "online"
	MethodPayPal   Method = "paypal"
	MethodTransfer Method = "transfer"
	MethodCash     Method = "cash"
	MethodBank     Method = "bank"
)

func (m Method) Valid() bool {
	switch m {
	case MethodOnline, MethodPayPal, MethodTransfer, MethodCash, MethodBank:
		return true
	}
	return false
}

// Manual methods are verified out-of-band by staff.
func (m Method) Manual() bool {
	return m == MethodCash || m == MethodBank || m == MethodTransfer
}

// RequiresProof reports whether a proof file must be attached before submission.
func (m Method) RequiresProof() bool {
	return m == MethodBank || m == MethodTransfer
}

// Status of a payment record. pending -> verified and pending -> paid are one-way.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusPaid     Status = "paid"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusVerified || s == StatusPaid
}

// CanTransitionTo reports whether s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && (next == StatusVerified || next == StatusPaid)
}

// Record is a single donation or membership payment row.
type Record struct {
	ID            string    `db:"id" json:"id"`
	PayerID       string    `db:"payer_id" json:"payer_id"`
	Amount        float64   `db:"amount" json:"amount"`
	Currency      string    `db:"currency" json:"currency"`
	Method        Method    `db:"method" json:"method"`
	Status        Status    `db:"status" json:"status"`
	TransactionID string    `db:"transaction_id" json:"transaction_id"`
	ProofURL      *string   `db:"proof_url" json:"proof_url,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Profile is the public profile row kept next to the Supabase auth user.
type Profile struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  *string   `db:"full_name" json:"full_name"`
	Phone     *string   `db:"phone" json:"phone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Badge is the membership badge shown on a profile.
type Badge struct {
	Member bool       `json:"member"`
	Since  *time.Time `json:"since,omitempty"`
}

// NotificationKind is the toast flavour pushed to the payer.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
)

// Notification is pushed to a payer's open websocket connections.
type Notification struct {
	PayerID  string           `json:"-"`
	Kind     NotificationKind `json:"kind"`
	Message  string           `json:"message"`
	RecordID string           `json:"record_id,omitempty"`
}
