package domain

import (
	"context"

	"github.com/google/uuid"
)

// OutboxRepository is the durable queue contract. Enqueue, MarkSent,
// MarkFailed and MoveToDeadLetter map onto atomic stored procedures in the
// backing store; the remaining methods are read views.
type OutboxRepository interface {
	// Enqueue computes the canonical message and destination for the invoice
	// and inserts a new Pending entry, returning its id. Returns
	// ErrInvoiceNotFound when the invoice does not exist.
	Enqueue(ctx context.Context, invoiceID uuid.UUID, phoneOverride *string) (uuid.UUID, error)

	// MarkSent sets status = Sent and clears the error. Idempotent in effect:
	// re-applying to a Sent entry leaves it Sent with a null error.
	MarkSent(ctx context.Context, outboxID uuid.UUID) error

	// MarkFailed sets status = Failed, increments attempts by exactly one and
	// records the failure reason.
	MarkFailed(ctx context.Context, outboxID uuid.UUID, errorText string) error

	// MoveToDeadLetter creates the dead-letter reference and stamps
	// dead_letter_at. Returns ErrAlreadyDeadLettered on a second call for the
	// same entry; callers treat that as a no-op.
	MoveToDeadLetter(ctx context.Context, outboxID uuid.UUID, reason string) error

	// ListPending returns up to limit Pending entries from the read view,
	// oldest first.
	ListPending(ctx context.Context, limit int) ([]PendingOutboxItem, error)

	// GetByID returns a full outbox entry.
	GetByID(ctx context.Context, outboxID uuid.UUID) (*OutboxEntry, error)

	// LatestByInvoice returns the most recent entry for the invoice, or
	// ErrOutboxEntryNotFound when the invoice has none.
	LatestByInvoice(ctx context.Context, invoiceID uuid.UUID) (*OutboxEntry, error)

	// CountFailedByInvoice counts entries in Failed status for the invoice.
	CountFailedByInvoice(ctx context.Context, invoiceID uuid.UUID) (int, error)

	// ListLatest returns the newest entries across all invoices, for
	// operational inspection.
	ListLatest(ctx context.Context, limit int) ([]OutboxEntry, error)
}
