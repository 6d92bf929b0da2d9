package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the closed set of delivery states an outbox entry moves
// through. Sent is terminal; Failed is terminal once the entry has been
// dead-lettered.
type OutboxStatus string

const (
	StatusPending OutboxStatus = "Pending"
	StatusSent    OutboxStatus = "Sent"
	StatusFailed  OutboxStatus = "Failed"
)

// Valid reports whether s is one of the known statuses.
func (s OutboxStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further delivery attempt should target an
// entry in this status. dead-lettered entries are terminal regardless of
// status and are checked separately via DeadLetterAt.
func (s OutboxStatus) IsTerminal() bool {
	return s == StatusSent
}

// OutboxEntry is one pending or historical WhatsApp notification attempt.
// The message body and destination are computed by the enqueue stored
// procedure and are immutable once created.
type OutboxEntry struct {
	ID            uuid.UUID
	InvoiceID     *uuid.UUID // nil for out-of-band test entries
	Phone         string
	Message       string
	Status        OutboxStatus
	Attempts      int
	LastAttemptAt *time.Time
	Error         *string
	DeadLetterAt  *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DeadLettered reports whether the entry was moved to the dead-letter store.
func (e *OutboxEntry) DeadLettered() bool {
	return e.DeadLetterAt != nil
}

// PendingOutboxItem is the projection the drain worker consumes from the
// pending read view: just enough to attempt delivery.
type PendingOutboxItem struct {
	ID      uuid.UUID
	Phone   string
	Message string
}

// DeadLetterEntry references an outbox entry that exhausted its retry budget.
// At most one exists per outbox entry.
type DeadLetterEntry struct {
	ID        uuid.UUID
	OutboxID  uuid.UUID
	Reason    string
	CreatedAt time.Time
}

var (
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrOutboxEntryNotFound = errors.New("outbox entry not found")
	ErrAlreadyDeadLettered = errors.New("outbox entry already dead-lettered")
)
