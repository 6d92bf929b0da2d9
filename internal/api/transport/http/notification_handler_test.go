package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arenafit/backoffice/internal/notification/app"
	"github.com/arenafit/backoffice/internal/notification/domain"
	"github.com/arenafit/backoffice/internal/notification/provider"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) SendInvoiceNotification(ctx context.Context, invoiceID uuid.UUID, phoneOverride *string) (*app.DispatchOutcome, error) {
	args := m.Called(ctx, invoiceID, phoneOverride)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*app.DispatchOutcome), args.Error(1)
}

func (m *MockDispatcher) SendDirect(ctx context.Context, phone, message string) provider.SendResult {
	args := m.Called(ctx, phone, message)
	return args.Get(0).(provider.SendResult)
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Enqueue(ctx context.Context, invoiceID uuid.UUID, phoneOverride *string) (uuid.UUID, error) {
	args := m.Called(ctx, invoiceID, phoneOverride)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockOutboxRepository) MarkSent(ctx context.Context, outboxID uuid.UUID) error {
	return m.Called(ctx, outboxID).Error(0)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, outboxID uuid.UUID, errorText string) error {
	return m.Called(ctx, outboxID, errorText).Error(0)
}

func (m *MockOutboxRepository) MoveToDeadLetter(ctx context.Context, outboxID uuid.UUID, reason string) error {
	return m.Called(ctx, outboxID, reason).Error(0)
}

func (m *MockOutboxRepository) ListPending(ctx context.Context, limit int) ([]domain.PendingOutboxItem, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PendingOutboxItem), args.Error(1)
}

func (m *MockOutboxRepository) GetByID(ctx context.Context, outboxID uuid.UUID) (*domain.OutboxEntry, error) {
	args := m.Called(ctx, outboxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) LatestByInvoice(ctx context.Context, invoiceID uuid.UUID) (*domain.OutboxEntry, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) CountFailedByInvoice(ctx context.Context, invoiceID uuid.UUID) (int, error) {
	args := m.Called(ctx, invoiceID)
	return args.Int(0), args.Error(1)
}

func (m *MockOutboxRepository) ListLatest(ctx context.Context, limit int) ([]domain.OutboxEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OutboxEntry), args.Error(1)
}

func newTestRouter(dispatcher Dispatcher, repo domain.OutboxRepository) chi.Router {
	handler := NewNotificationHandler(dispatcher, repo, slog.Default())
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, r chi.Router, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSendInvoiceWhatsAppSent(t *testing.T) {
	invoiceID := uuid.New()
	outboxID := uuid.New()

	dispatcher := new(MockDispatcher)
	dispatcher.On("SendInvoiceNotification", mock.Anything, invoiceID, (*string)(nil)).
		Return(&app.DispatchOutcome{OutboxID: outboxID, Sent: true, Provider: "meta"}, nil)

	r := newTestRouter(dispatcher, new(MockOutboxRepository))
	rec := doRequest(t, r, http.MethodPost, "/invoices/"+invoiceID.String()+"/send-whatsapp", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[SendInvoiceWhatsAppResponse](t, rec)
	assert.Equal(t, outboxID.String(), resp.OutboxID)
	assert.Equal(t, "Sent", resp.Status)
	assert.Empty(t, resp.Warn)
}

func TestSendInvoiceWhatsAppSentWithWriteBackWarning(t *testing.T) {
	invoiceID := uuid.New()
	outboxID := uuid.New()

	dispatcher := new(MockDispatcher)
	dispatcher.On("SendInvoiceNotification", mock.Anything, invoiceID, (*string)(nil)).
		Return(&app.DispatchOutcome{OutboxID: outboxID, Sent: true, Warning: "mark_update_failed"}, nil)

	r := newTestRouter(dispatcher, new(MockOutboxRepository))
	rec := doRequest(t, r, http.MethodPost, "/invoices/"+invoiceID.String()+"/send-whatsapp", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[SendInvoiceWhatsAppResponse](t, rec)
	assert.Equal(t, "mark_update_failed", resp.Warn)
}

func TestSendInvoiceWhatsAppDeliveryFailure(t *testing.T) {
	invoiceID := uuid.New()
	outboxID := uuid.New()

	dispatcher := new(MockDispatcher)
	dispatcher.On("SendInvoiceNotification", mock.Anything, invoiceID, (*string)(nil)).
		Return(&app.DispatchOutcome{OutboxID: outboxID, Sent: false, Reason: provider.ReasonInvalidPhone}, nil)

	r := newTestRouter(dispatcher, new(MockOutboxRepository))
	rec := doRequest(t, r, http.MethodPost, "/invoices/"+invoiceID.String()+"/send-whatsapp", nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeBody[SendInvoiceWhatsAppResponse](t, rec)
	assert.Equal(t, "Failed", resp.Status)
	assert.Equal(t, provider.ReasonInvalidPhone, resp.Error)
}

func TestSendInvoiceWhatsAppPhoneOverride(t *testing.T) {
	invoiceID := uuid.New()
	outboxID := uuid.New()
	override := "+5511977776666"

	dispatcher := new(MockDispatcher)
	dispatcher.On("SendInvoiceNotification", mock.Anything, invoiceID, &override).
		Return(&app.DispatchOutcome{OutboxID: outboxID, Sent: true}, nil)

	r := newTestRouter(dispatcher, new(MockOutboxRepository))
	rec := doRequest(t, r, http.MethodPost, "/invoices/"+invoiceID.String()+"/send-whatsapp",
		SendInvoiceWhatsAppRequest{Phone: &override})

	assert.Equal(t, http.StatusOK, rec.Code)
	dispatcher.AssertExpectations(t)
}

func TestSendInvoiceWhatsAppInvalidInvoiceID(t *testing.T) {
	dispatcher := new(MockDispatcher)
	r := newTestRouter(dispatcher, new(MockOutboxRepository))

	rec := doRequest(t, r, http.MethodPost, "/invoices/not-a-uuid/send-whatsapp", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "invalid_invoice_id", resp.Error)
	dispatcher.AssertNotCalled(t, "SendInvoiceNotification", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendInvoiceWhatsAppInvoiceNotFound(t *testing.T) {
	invoiceID := uuid.New()

	dispatcher := new(MockDispatcher)
	dispatcher.On("SendInvoiceNotification", mock.Anything, invoiceID, (*string)(nil)).
		Return(nil, domain.ErrInvoiceNotFound)

	r := newTestRouter(dispatcher, new(MockOutboxRepository))
	rec := doRequest(t, r, http.MethodPost, "/invoices/"+invoiceID.String()+"/send-whatsapp", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "invoice_not_found", resp.Error)
}

func TestSendInvoiceWhatsAppOutboxFetchFailure(t *testing.T) {
	invoiceID := uuid.New()
	outboxID := uuid.New()

	dispatcher := new(MockDispatcher)
	dispatcher.On("SendInvoiceNotification", mock.Anything, invoiceID, (*string)(nil)).
		Return(&app.DispatchOutcome{OutboxID: outboxID}, domain.ErrOutboxEntryNotFound)

	r := newTestRouter(dispatcher, new(MockOutboxRepository))
	rec := doRequest(t, r, http.MethodPost, "/invoices/"+invoiceID.String()+"/send-whatsapp", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "outbox_not_found", resp.Error)
	assert.Equal(t, outboxID.String(), resp.OutboxID)
}

func TestSendInvoiceWhatsAppStoreFailure(t *testing.T) {
	invoiceID := uuid.New()

	dispatcher := new(MockDispatcher)
	dispatcher.On("SendInvoiceNotification", mock.Anything, invoiceID, (*string)(nil)).
		Return(nil, errors.New("connection refused"))

	r := newTestRouter(dispatcher, new(MockOutboxRepository))
	rec := doRequest(t, r, http.MethodPost, "/invoices/"+invoiceID.String()+"/send-whatsapp", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "internal_error", resp.Error)
}

func TestTestSendEndpoint(t *testing.T) {
	dispatcher := new(MockDispatcher)
	dispatcher.On("SendDirect", mock.Anything, "+5511988887777", "oi").
		Return(provider.SendResult{Ok: true, Provider: "meta", ExternalID: "wamid.1"})

	r := newTestRouter(dispatcher, new(MockOutboxRepository))
	rec := doRequest(t, r, http.MethodPost, "/test/send-whatsapp",
		TestSendRequest{Phone: "+5511988887777", Message: "oi"})

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[TestSendResponse](t, rec)
	assert.Equal(t, "Sent", resp.Status)
	assert.Equal(t, "meta", resp.Provider)
	assert.Equal(t, "wamid.1", resp.ID)
}

func TestTestSendEndpointFailure(t *testing.T) {
	dispatcher := new(MockDispatcher)
	dispatcher.On("SendDirect", mock.Anything, "bogus", "oi").
		Return(provider.SendResult{Ok: false, Reason: provider.ReasonInvalidPhone})

	r := newTestRouter(dispatcher, new(MockOutboxRepository))
	rec := doRequest(t, r, http.MethodPost, "/test/send-whatsapp",
		TestSendRequest{Phone: "bogus", Message: "oi"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeBody[TestSendResponse](t, rec)
	assert.Equal(t, provider.ReasonInvalidPhone, resp.Error)
}

func TestOutboxLatest(t *testing.T) {
	invoiceID := uuid.New()
	now := time.Now().UTC()
	entries := []domain.OutboxEntry{
		{
			ID:        uuid.New(),
			InvoiceID: &invoiceID,
			Phone:     "+5511988887777",
			Status:    domain.StatusSent,
			Attempts:  1,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        uuid.New(),
			Phone:     "+5511977776666",
			Status:    domain.StatusFailed,
			Attempts:  2,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	repo := new(MockOutboxRepository)
	repo.On("ListLatest", mock.Anything, 2).Return(entries, nil)

	r := newTestRouter(new(MockDispatcher), repo)
	rec := doRequest(t, r, http.MethodGet, "/outbox/latest?limit=2", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[[]OutboxEntryResponse](t, rec)
	require.Len(t, resp, 2)
	assert.Equal(t, invoiceID.String(), *resp[0].InvoiceID)
	assert.Nil(t, resp[1].InvoiceID)
	assert.Equal(t, "Failed", resp[1].Status)
}

func TestOutboxLatestDefaultLimit(t *testing.T) {
	repo := new(MockOutboxRepository)
	repo.On("ListLatest", mock.Anything, defaultOutboxListLimit).Return([]domain.OutboxEntry{}, nil)

	r := newTestRouter(new(MockDispatcher), repo)
	rec := doRequest(t, r, http.MethodGet, "/outbox/latest", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestOutboxLatestInvalidLimit(t *testing.T) {
	repo := new(MockOutboxRepository)
	r := newTestRouter(new(MockDispatcher), repo)

	for _, limit := range []string{"abc", "0", "-3"} {
		rec := doRequest(t, r, http.MethodGet, "/outbox/latest?limit="+limit, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit %q", limit)
	}
	repo.AssertNotCalled(t, "ListLatest", mock.Anything, mock.Anything)
}
