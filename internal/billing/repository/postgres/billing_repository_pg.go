package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arenafit/backoffice/internal/billing/domain"
)

type pgBillingRepository struct {
	db *pgxpool.Pool
}

// NewPgBillingRepository creates a read-only billing repository instance.
func NewPgBillingRepository(db *pgxpool.Pool) domain.BillingReader {
	return &pgBillingRepository{db: db}
}

func (r *pgBillingRepository) GetUnitByName(ctx context.Context, name string) (*domain.Unit, error) {
	var unit domain.Unit
	err := r.db.QueryRow(ctx,
		`SELECT id, name FROM units WHERE name = $1 LIMIT 1`,
		name,
	).Scan(&unit.ID, &unit.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUnitNotFound
		}
		return nil, err
	}
	return &unit, nil
}

func (r *pgBillingRepository) GetClassByName(ctx context.Context, unitID uuid.UUID, name string) (*domain.Class, error) {
	var class domain.Class
	err := r.db.QueryRow(ctx,
		`SELECT id, unit_id, name FROM classes WHERE unit_id = $1 AND name = $2 LIMIT 1`,
		unitID, name,
	).Scan(&class.ID, &class.UnitID, &class.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrClassNotFound
		}
		return nil, err
	}
	return &class, nil
}

func (r *pgBillingRepository) ListStudentIDsByClass(ctx context.Context, unitID, classID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM students WHERE unit_id = $1 AND class_id = $2`,
		unitID, classID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *pgBillingRepository) ListInvoices(ctx context.Context, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	query := strings.Builder{}
	query.WriteString(
		`SELECT id, student_id, unit_id, status, due_date
		 FROM invoices
		 WHERE unit_id = $1 AND due_date >= $2 AND due_date <= $3`)
	args := []any{filter.UnitID, filter.From, filter.To}

	if filter.OnlyOpen {
		args = append(args, domain.InvoiceStatusOpen)
		query.WriteString(fmt.Sprintf(" AND status = $%d", len(args)))
	}
	if filter.StudentIDs != nil {
		args = append(args, filter.StudentIDs)
		query.WriteString(fmt.Sprintf(" AND student_id = ANY($%d)", len(args)))
	}
	query.WriteString(" ORDER BY due_date DESC")

	rows, err := r.db.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(&inv.ID, &inv.StudentID, &inv.UnitID, &inv.Status, &inv.DueDate); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
