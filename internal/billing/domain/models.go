package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// InvoiceStatusOpen is the status label used by the billing schema for an
// invoice that has not been paid ("Aberta" in the product's locale).
const InvoiceStatusOpen = "Aberta"

// Unit is a franchise unit (one academy location).
type Unit struct {
	ID   uuid.UUID
	Name string
}

// Class is a training class within a unit.
type Class struct {
	ID     uuid.UUID
	UnitID uuid.UUID
	Name   string
}

// Invoice is the read model the sweep tool filters on. Amount computation and
// discount stacking live in the database; only identity, window and status
// fields are consumed here.
type Invoice struct {
	ID        uuid.UUID
	StudentID uuid.UUID
	UnitID    uuid.UUID
	Status    string
	DueDate   time.Time
}

// InvoiceFilter selects sweep candidates: a unit, a due-date window, and
// optional status / student-set restrictions.
type InvoiceFilter struct {
	UnitID     uuid.UUID
	From       time.Time
	To         time.Time
	OnlyOpen   bool
	StudentIDs []uuid.UUID // nil means no class restriction
}

var (
	ErrUnitNotFound  = errors.New("unit not found")
	ErrClassNotFound = errors.New("class not found")
)
