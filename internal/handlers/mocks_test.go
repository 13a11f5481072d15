package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"donation-platform/internal/middleware"
	"donation-platform/internal/models"
	"donation-platform/internal/payments"
	"donation-platform/internal/supabase"
)

const testSecret = "test-jwt-secret"

// --- Mocks ---

type MockGateway struct {
	mock.Mock
	configured bool
}

func (m *MockGateway) Configured() bool { return m.configured }

func (m *MockGateway) CreateIntent(ctx context.Context, req payments.IntentRequest) (payments.Intent, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(payments.Intent), args.Error(1)
}

func (m *MockGateway) GetIntent(ctx context.Context, id string) (payments.Intent, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(payments.Intent), args.Error(1)
}

func (m *MockGateway) ParseWebhook(payload []byte, signature string) (payments.WebhookEvent, error) {
	args := m.Called(payload, signature)
	return args.Get(0).(payments.WebhookEvent), args.Error(1)
}

type MockRecordStore struct{ mock.Mock }

func (m *MockRecordStore) Insert(ctx context.Context, kind models.Kind, rec *models.Record) (bool, error) {
	args := m.Called(ctx, kind, rec)
	return args.Bool(0), args.Error(1)
}

func (m *MockRecordStore) Get(ctx context.Context, kind models.Kind, id string) (*models.Record, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Record), args.Error(1)
}

func (m *MockRecordStore) ListByPayer(ctx context.Context, kind models.Kind, payerID string) ([]models.Record, error) {
	args := m.Called(ctx, kind, payerID)
	return args.Get(0).([]models.Record), args.Error(1)
}

func (m *MockRecordStore) List(ctx context.Context, kind models.Kind, status models.Status) ([]models.Record, error) {
	args := m.Called(ctx, kind, status)
	return args.Get(0).([]models.Record), args.Error(1)
}

func (m *MockRecordStore) UpdateStatus(ctx context.Context, kind models.Kind, id string, next models.Status) (*models.Record, error) {
	args := m.Called(ctx, kind, id, next)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Record), args.Error(1)
}

func (m *MockRecordStore) MembershipBadge(ctx context.Context, payerID string) (models.Badge, error) {
	args := m.Called(ctx, payerID)
	return args.Get(0).(models.Badge), args.Error(1)
}

type MockVerifier struct{ mock.Mock }

func (m *MockVerifier) VerifyOrder(ctx context.Context, orderID string) (payments.CapturedOrder, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(payments.CapturedOrder), args.Error(1)
}

type fakeUploader struct {
	url         string
	err         error
	contentType string
	body        []byte
}

func (f *fakeUploader) Upload(_ context.Context, _, _, contentType string, data io.Reader) (string, error) {
	f.contentType = contentType
	f.body, _ = io.ReadAll(data)
	return f.url, f.err
}

type MockProfileStore struct{ mock.Mock }

func (m *MockProfileStore) Get(ctx context.Context, id string) (*models.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileStore) Update(ctx context.Context, id string, fullName, phone *string) (*models.Profile, error) {
	args := m.Called(ctx, id, fullName, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

type MockAuthenticator struct{ mock.Mock }

func (m *MockAuthenticator) Register(email, password, fullName string) (supabase.Session, error) {
	args := m.Called(email, password, fullName)
	return args.Get(0).(supabase.Session), args.Error(1)
}

func (m *MockAuthenticator) Login(email, password string) (supabase.Session, error) {
	args := m.Called(email, password)
	return args.Get(0).(supabase.Session), args.Error(1)
}

type recordingNotifier struct{ sent []models.Notification }

func (n *recordingNotifier) Notify(msg models.Notification) { n.sent = append(n.sent, msg) }

// --- Helpers ---

func signToken(t *testing.T, sub, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":          sub,
		"email":        sub + "@example.com",
		"app_metadata": map[string]interface{}{"role": role},
		"exp":          time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func authedRouter() *gin.Engine {
	r := gin.New()
	r.Use(middleware.AuthMiddleware(testSecret))
	return r
}

type formFile struct {
	name        string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, file *formFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="proof"; filename="`+file.name+`"`)
		h.Set("Content-Type", file.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func newRequest(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}
