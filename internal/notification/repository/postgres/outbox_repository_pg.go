package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arenafit/backoffice/internal/notification/domain"
)

// pgOutboxRepository implements domain.OutboxRepository on PostgreSQL. The
// four state transitions are stored procedures owned by the schema; this
// layer only binds their call contracts. Reads go straight at the table and
// the pending view.
type pgOutboxRepository struct {
	db *pgxpool.Pool
}

// NewPgOutboxRepository creates a new outbox repository instance.
func NewPgOutboxRepository(db *pgxpool.Pool) domain.OutboxRepository {
	return &pgOutboxRepository{db: db}
}

func (r *pgOutboxRepository) Enqueue(ctx context.Context, invoiceID uuid.UUID, phoneOverride *string) (uuid.UUID, error) {
	var outboxID uuid.UUID
	err := r.db.QueryRow(ctx,
		`SELECT queue_invoice_whatsapp($1, $2)`,
		invoiceID, phoneOverride,
	).Scan(&outboxID)
	if err != nil {
		// The procedure raises when the invoice is unknown.
		if strings.Contains(err.Error(), "invoice_not_found") {
			return uuid.Nil, domain.ErrInvoiceNotFound
		}
		return uuid.Nil, err
	}
	return outboxID, nil
}

func (r *pgOutboxRepository) MarkSent(ctx context.Context, outboxID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `SELECT mark_whatsapp_sent($1)`, outboxID)
	return err
}

func (r *pgOutboxRepository) MarkFailed(ctx context.Context, outboxID uuid.UUID, errorText string) error {
	_, err := r.db.Exec(ctx, `SELECT mark_whatsapp_failed($1, $2)`, outboxID, errorText)
	return err
}

func (r *pgOutboxRepository) MoveToDeadLetter(ctx context.Context, outboxID uuid.UUID, reason string) error {
	_, err := r.db.Exec(ctx, `SELECT move_outbox_to_dead_letter($1, $2)`, outboxID, reason)
	if err != nil {
		if strings.Contains(err.Error(), "already_dead_lettered") {
			return domain.ErrAlreadyDeadLettered
		}
		return err
	}
	return nil
}

func (r *pgOutboxRepository) ListPending(ctx context.Context, limit int) ([]domain.PendingOutboxItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, phone, message
		 FROM v_whatsapp_outbox_pending
		 ORDER BY created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.PendingOutboxItem
	for rows.Next() {
		var item domain.PendingOutboxItem
		if err := rows.Scan(&item.ID, &item.Phone, &item.Message); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

const outboxColumns = `id, invoice_id, phone, message, status, attempts,
	last_attempt_at, error, dead_letter_at, created_at, updated_at`

func scanOutboxEntry(row pgx.Row) (*domain.OutboxEntry, error) {
	var e domain.OutboxEntry
	err := row.Scan(
		&e.ID, &e.InvoiceID, &e.Phone, &e.Message, &e.Status, &e.Attempts,
		&e.LastAttemptAt, &e.Error, &e.DeadLetterAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOutboxEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *pgOutboxRepository) GetByID(ctx context.Context, outboxID uuid.UUID) (*domain.OutboxEntry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+outboxColumns+` FROM whatsapp_outbox WHERE id = $1`,
		outboxID,
	)
	return scanOutboxEntry(row)
}

func (r *pgOutboxRepository) LatestByInvoice(ctx context.Context, invoiceID uuid.UUID) (*domain.OutboxEntry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+outboxColumns+`
		 FROM whatsapp_outbox
		 WHERE invoice_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		invoiceID,
	)
	return scanOutboxEntry(row)
}

func (r *pgOutboxRepository) CountFailedByInvoice(ctx context.Context, invoiceID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM whatsapp_outbox WHERE invoice_id = $1 AND status = $2`,
		invoiceID, domain.StatusFailed,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *pgOutboxRepository) ListLatest(ctx context.Context, limit int) ([]domain.OutboxEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+outboxColumns+`
		 FROM whatsapp_outbox
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.OutboxEntry
	for rows.Next() {
		var e domain.OutboxEntry
		err := rows.Scan(
			&e.ID, &e.InvoiceID, &e.Phone, &e.Message, &e.Status, &e.Attempts,
			&e.LastAttemptAt, &e.Error, &e.DeadLetterAt, &e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
