package http

import (
	"encoding/json"
	"net/http"
	"time"
)

// SendInvoiceWhatsAppRequest is the optional body of
// POST /invoices/{id}/send-whatsapp.
type SendInvoiceWhatsAppRequest struct {
	Phone *string `json:"phone,omitempty"`
}

// SendInvoiceWhatsAppResponse reports the inline delivery outcome.
type SendInvoiceWhatsAppResponse struct {
	OutboxID string `json:"outboxId"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Warn     string `json:"warn,omitempty"`
}

// TestSendRequest is the body of POST /test/send-whatsapp.
type TestSendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// TestSendResponse reports a direct provider call outcome.
type TestSendResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider,omitempty"`
	ID       string `json:"id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// OutboxEntryResponse is one row of GET /outbox/latest.
type OutboxEntryResponse struct {
	ID            string     `json:"id"`
	InvoiceID     *string    `json:"invoice_id"`
	Phone         string     `json:"phone"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
	Error         *string    `json:"error"`
	DeadLetterAt  *time.Time `json:"dead_letter_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token and the operator's profile.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse is the operator profile shape.
type UserResponse struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error    string `json:"error"`
	OutboxID string `json:"outboxId,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
