package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arenafit/backoffice/internal/notification/app"
	"github.com/arenafit/backoffice/internal/notification/domain"
	"github.com/arenafit/backoffice/internal/notification/provider"
)

const defaultOutboxListLimit = 5

// Dispatcher is the slice of DispatchService the handlers need.
type Dispatcher interface {
	SendInvoiceNotification(ctx context.Context, invoiceID uuid.UUID, phoneOverride *string) (*app.DispatchOutcome, error)
	SendDirect(ctx context.Context, phone, message string) provider.SendResult
}

// NotificationHandler exposes the enqueue-and-send path, the direct test
// send and outbox inspection.
type NotificationHandler struct {
	dispatcher Dispatcher
	outboxRepo domain.OutboxRepository
	logger     *slog.Logger
}

func NewNotificationHandler(dispatcher Dispatcher, outboxRepo domain.OutboxRepository, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		dispatcher: dispatcher,
		outboxRepo: outboxRepo,
		logger:     logger.With("handler", "notification"),
	}
}

// RegisterRoutes registers notification routes on the given router.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/invoices/{invoiceID}/send-whatsapp", h.handleSendInvoiceWhatsApp)
	r.Post("/test/send-whatsapp", h.handleTestSend)
	r.Get("/outbox/latest", h.handleOutboxLatest)
}

func (h *NotificationHandler) handleSendInvoiceWhatsApp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	invoiceID, err := uuid.Parse(chi.URLParam(r, "invoiceID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_invoice_id")
		return
	}

	var req SendInvoiceWhatsAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	outcome, err := h.dispatcher.SendInvoiceNotification(ctx, invoiceID, req.Phone)
	if err != nil {
		h.logger.ErrorContext(ctx, "send-whatsapp failed", "invoice_id", invoiceID, "error", err)
		switch {
		case errors.Is(err, domain.ErrInvoiceNotFound):
			respondError(w, http.StatusBadRequest, "invoice_not_found")
		case errors.Is(err, domain.ErrOutboxEntryNotFound):
			respondJSON(w, http.StatusNotFound, ErrorResponse{Error: "outbox_not_found", OutboxID: outcome.OutboxID.String()})
		case outcome != nil:
			respondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error", OutboxID: outcome.OutboxID.String()})
		default:
			respondError(w, http.StatusInternalServerError, "internal_error")
		}
		return
	}

	if outcome.Sent {
		respondJSON(w, http.StatusOK, SendInvoiceWhatsAppResponse{
			OutboxID: outcome.OutboxID.String(),
			Status:   string(domain.StatusSent),
			Warn:     outcome.Warning,
		})
		return
	}
	respondJSON(w, http.StatusBadGateway, SendInvoiceWhatsAppResponse{
		OutboxID: outcome.OutboxID.String(),
		Status:   string(domain.StatusFailed),
		Error:    outcome.Reason,
	})
}

func (h *NotificationHandler) handleTestSend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req TestSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	res := h.dispatcher.SendDirect(ctx, req.Phone, req.Message)
	if res.Ok {
		respondJSON(w, http.StatusOK, TestSendResponse{
			Status:   string(domain.StatusSent),
			Provider: res.Provider,
			ID:       res.ExternalID,
		})
		return
	}
	respondJSON(w, http.StatusBadGateway, TestSendResponse{
		Status: string(domain.StatusFailed),
		Error:  res.Reason,
	})
}

func (h *NotificationHandler) handleOutboxLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultOutboxListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		limit = parsed
	}

	entries, err := h.outboxRepo.ListLatest(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list outbox entries", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	resp := make([]OutboxEntryResponse, 0, len(entries))
	for _, e := range entries {
		item := OutboxEntryResponse{
			ID:            e.ID.String(),
			Phone:         e.Phone,
			Status:        string(e.Status),
			Attempts:      e.Attempts,
			LastAttemptAt: e.LastAttemptAt,
			Error:         e.Error,
			DeadLetterAt:  e.DeadLetterAt,
			CreatedAt:     e.CreatedAt,
			UpdatedAt:     e.UpdatedAt,
		}
		if e.InvoiceID != nil {
			s := e.InvoiceID.String()
			item.InvoiceID = &s
		}
		resp = append(resp, item)
	}
	respondJSON(w, http.StatusOK, resp)
}
