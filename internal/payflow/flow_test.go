package payflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"donation-platform/internal/models"
	"donation-platform/internal/payments"
)

type mockRecorder struct{ mock.Mock }

func (m *mockRecorder) Insert(ctx context.Context, kind models.Kind, rec *models.Record) (bool, error) {
	args := m.Called(ctx, kind, rec)
	return args.Bool(0), args.Error(1)
}

type mockIntents struct{ mock.Mock }

func (m *mockIntents) CreateIntent(ctx context.Context, req payments.IntentRequest) (payments.Intent, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(payments.Intent), args.Error(1)
}

type recordingNotifier struct{ sent []models.Notification }

func (n *recordingNotifier) Notify(msg models.Notification) { n.sent = append(n.sent, msg) }

func newFlow(t *testing.T, amount float64) (*Flow, *mockRecorder, *mockIntents, *recordingNotifier) {
	t.Helper()
	rec := &mockRecorder{}
	intents := &mockIntents{}
	notes := &recordingNotifier{}
	f, err := New(Deps{Records: rec, Intents: intents, Notifier: notes}, models.KindDonation, "payer-1", amount, "MAD")
	require.NoError(t, err)
	return f, rec, intents, notes
}

func TestNew_RejectsNonPositiveAmount(t *testing.T) {
	_, err := New(Deps{}, models.KindDonation, "p", 0, "usd")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestNew_RejectsAmountAboveProcessorLimit(t *testing.T) {
	_, err := New(Deps{}, models.KindDonation, "p", 1e17, "usd")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = New(Deps{}, models.KindDonation, "p", payments.MaxAmount, "usd")
	assert.NoError(t, err)
}

func TestBank_SubmitRequiresProof(t *testing.T) {
	f, rec, _, _ := newFlow(t, 20)
	require.NoError(t, f.Select(models.MethodBank))

	assert.False(t, f.CanSubmit())
	assert.ErrorIs(t, f.Submit(context.Background()), ErrProofRequired)
	rec.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, StateBank, f.State())
}

func TestBank_SubmitWithProofWritesPendingRecord(t *testing.T) {
	f, rec, _, notes := newFlow(t, 20)
	require.NoError(t, f.Select(models.MethodBank))
	require.NoError(t, f.AttachProof("https://cdn.example/proof.png"))
	assert.True(t, f.CanSubmit())

	rec.On("Insert", mock.Anything, models.KindDonation, mock.MatchedBy(func(r *models.Record) bool {
		return r.Status == models.StatusPending && r.Method == models.MethodBank &&
			r.ProofURL != nil && *r.ProofURL == "https://cdn.example/proof.png" && r.Currency == "mad"
	})).Return(true, nil).Once()

	require.NoError(t, f.Submit(context.Background()))
	rec.AssertExpectations(t)
	assert.Equal(t, StateCompleted, f.State())
	require.Len(t, notes.sent, 1)
	assert.Equal(t, models.NotifySuccess, notes.sent[0].Kind)
}

func TestCash_InsertFailureAllowsRetry(t *testing.T) {
	f, rec, _, notes := newFlow(t, 5)
	require.NoError(t, f.Select(models.MethodCash))

	rec.On("Insert", mock.Anything, models.KindDonation, mock.Anything).Return(false, errors.New("db down")).Once()
	assert.Error(t, f.Submit(context.Background()))
	assert.Equal(t, StateCash, f.State())
	require.Len(t, notes.sent, 1)
	assert.Equal(t, models.NotifyError, notes.sent[0].Kind)

	rec.On("Insert", mock.Anything, models.KindDonation, mock.Anything).Return(true, nil).Once()
	assert.NoError(t, f.Submit(context.Background()))
	assert.Equal(t, StateCompleted, f.State())
}

func TestOnline_HappyPath(t *testing.T) {
	f, rec, intents, _ := newFlow(t, 50)
	require.NoError(t, f.Select(models.MethodOnline))
	assert.Equal(t, StateAwaitingSecret, f.State())

	intents.On("CreateIntent", mock.Anything, mock.MatchedBy(func(r payments.IntentRequest) bool {
		return r.Amount == 50 && r.Currency == "mad" && r.Metadata["payer_id"] == "payer-1" && r.Metadata["kind"] == "donations"
	})).Return(payments.Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil)

	_, err := f.RequestIntent(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, StateReady, f.State())
	assert.Equal(t, "pi_1_secret", f.ClientSecret())

	require.NoError(t, f.Process())
	rec.On("Insert", mock.Anything, models.KindDonation, mock.MatchedBy(func(r *models.Record) bool {
		return r.TransactionID == "pi_1" && r.Status == models.StatusPaid && r.Amount == 50
	})).Return(true, nil).Once()

	err = f.Complete(context.Background(), payments.Intent{ID: "pi_1", Status: "succeeded", AmountMinor: 5000, Currency: "mad"})
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, f.State())
	rec.AssertExpectations(t)
}

func TestOnline_IntentErrorReturnsToUnselected(t *testing.T) {
	f, _, intents, notes := newFlow(t, 10)
	require.NoError(t, f.Select(models.MethodOnline))
	intents.On("CreateIntent", mock.Anything, mock.Anything).Return(payments.Intent{}, errors.New("network"))

	_, err := f.RequestIntent(context.Background(), "")
	assert.Error(t, err)
	assert.Equal(t, StateUnselected, f.State())
	assert.Len(t, notes.sent, 1)
}

func TestOnline_FailedIntentCanBeRetried(t *testing.T) {
	f, rec, _, _ := newFlow(t, 10)
	require.NoError(t, f.Select(models.MethodOnline))
	require.NoError(t, f.Resume(payments.Intent{ID: "pi_2", ClientSecret: "s"}))
	require.NoError(t, f.Process())

	err := f.Complete(context.Background(), payments.Intent{ID: "pi_2", Status: "requires_payment_method"})
	assert.ErrorIs(t, err, ErrPaymentFailed)
	assert.Equal(t, StateFailed, f.State())
	rec.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)

	require.NoError(t, f.Process())
	assert.Equal(t, StateProcessing, f.State())
}

func TestOnline_CompleteRejectsForeignIntent(t *testing.T) {
	f, _, _, _ := newFlow(t, 10)
	require.NoError(t, f.Select(models.MethodOnline))
	require.NoError(t, f.Resume(payments.Intent{ID: "pi_3"}))
	require.NoError(t, f.Process())

	assert.ErrorIs(t, f.Complete(context.Background(), payments.Intent{ID: "pi_other", Status: "succeeded"}), ErrIntentMismatch)
}

func TestPayPal_ConfirmUsesOrderAmount(t *testing.T) {
	f, rec, _, _ := newFlow(t, 10)
	require.NoError(t, f.Select(models.MethodPayPal))
	assert.False(t, f.CanSubmit())

	rec.On("Insert", mock.Anything, models.KindDonation, mock.MatchedBy(func(r *models.Record) bool {
		return r.TransactionID == "ORDER-9" && r.Amount == 12.5 && r.Currency == "eur" && r.Method == models.MethodPayPal
	})).Return(true, nil).Once()

	require.NoError(t, f.ConfirmPayPal(context.Background(), payments.CapturedOrder{ID: "ORDER-9", Amount: 12.5, Currency: "eur"}))
	assert.Equal(t, StateCompleted, f.State())
}

func TestSelect_InvalidAndLocked(t *testing.T) {
	f, _, _, _ := newFlow(t, 10)
	assert.ErrorIs(t, f.Select(models.Method("crypto")), ErrUnsupportedMethod)

	require.NoError(t, f.Select(models.MethodOnline))
	require.NoError(t, f.Resume(payments.Intent{ID: "pi_4"}))
	require.NoError(t, f.Process())
	assert.ErrorIs(t, f.Select(models.MethodCash), ErrInvalidTransition)
}

func TestCancel_DiscardsState(t *testing.T) {
	f, _, _, _ := newFlow(t, 10)
	require.NoError(t, f.Select(models.MethodBank))
	require.NoError(t, f.AttachProof("u"))
	f.Cancel()

	assert.Equal(t, StateUnselected, f.State())
	assert.Empty(t, f.Method())
	assert.False(t, f.CanSubmit())
}

func TestNotify_SkippedForAnonymousPayer(t *testing.T) {
	notes := &recordingNotifier{}
	intents := &mockIntents{}
	f, err := New(Deps{Intents: intents, Notifier: notes}, models.KindDonation, "", 10, "")
	require.NoError(t, err)
	require.NoError(t, f.Select(models.MethodOnline))
	intents.On("CreateIntent", mock.Anything, mock.Anything).Return(payments.Intent{}, errors.New("x"))

	_, _ = f.RequestIntent(context.Background(), "")
	assert.Empty(t, notes.sent)
}

func TestOnline_DuplicateInsertDoesNotNotifyTwice(t *testing.T) {
	f, rec, _, notes := newFlow(t, 10)
	require.NoError(t, f.Select(models.MethodOnline))
	require.NoError(t, f.Resume(payments.Intent{ID: "pi_dup"}))
	require.NoError(t, f.Process())

	rec.On("Insert", mock.Anything, models.KindDonation, mock.Anything).Return(false, nil).Once()
	require.NoError(t, f.Complete(context.Background(), payments.Intent{ID: "pi_dup", Status: "succeeded", AmountMinor: 1000}))

	assert.Equal(t, StateSucceeded, f.State())
	assert.False(t, f.Inserted())
	assert.Empty(t, notes.sent)
}
