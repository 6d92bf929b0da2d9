package domain

import (
	"context"

	"github.com/google/uuid"
)

// BillingReader exposes the read-only billing queries the sweep tool needs.
type BillingReader interface {
	// GetUnitByName resolves a unit by its exact name, returning
	// ErrUnitNotFound when absent.
	GetUnitByName(ctx context.Context, name string) (*Unit, error)

	// GetClassByName resolves a class within a unit, returning
	// ErrClassNotFound when absent.
	GetClassByName(ctx context.Context, unitID uuid.UUID, name string) (*Class, error)

	// ListStudentIDsByClass returns the ids of students enrolled in a class.
	ListStudentIDsByClass(ctx context.Context, unitID, classID uuid.UUID) ([]uuid.UUID, error)

	// ListInvoices returns invoices matching the filter, newest due date
	// first.
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)
}
