package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	billingdomain "github.com/arenafit/backoffice/internal/billing/domain"
	"github.com/arenafit/backoffice/internal/notification/domain"
)

// Skip reasons recorded by the sweep. The retry-ceiling pair is checked two
// ways on purpose: against the last entry's attempt counter and against the
// count of Failed rows for the invoice. They can disagree when an invoice has
// accumulated several outbox rows, and the distinct reasons tell an operator
// which check fired.
const (
	SkipNoOutbox      = "no_outbox"
	SkipNotFailed     = "not_failed"
	SkipMaxAttempts   = "max_attempts"
	SkipMaxFailedRows = "max_failed_rows"
	SkipHasOutbox     = "has_outbox"
	SkipSent          = "sent"
	SkipDeadLettered  = "dead_lettered"
)

// SweepConfig selects sweep candidates and controls the retry policy.
// Zero From/To default to the current calendar month (UTC).
type SweepConfig struct {
	UnitName          string
	ClassName         string // empty means all classes in the unit
	From              time.Time
	To                time.Time
	OnlyOpen          bool
	SendAll           bool // every invoice in range vs. latest per student
	DryRunSend        bool
	OnlyPendingOutbox bool
	Limit             int // 0 means no cap
	RetryFailed       bool
	MaxAttempts       int // 0 means no ceiling
	MoveToDLQOnMax    bool
}

// SweepResult records one candidate's outcome.
type SweepResult struct {
	InvoiceID uuid.UUID
	OutboxID  uuid.UUID
	Skipped   bool
	Reason    string
	DLQMoved  bool
	DryRun    bool
	Sent      bool
	Err       string
}

// SweepSummary aggregates a finished run.
type SweepSummary struct {
	TotalCandidates int
	Sent            int
	Failed          int
	Skipped         int
	DryRun          int
	Results         []SweepResult
}

// SweepService is the single-pass operational retry/sweep job. It never
// aborts the whole run for one candidate's failure.
type SweepService struct {
	billing    billingdomain.BillingReader
	outboxRepo domain.OutboxRepository
	dispatcher *DispatchService
	logger     *slog.Logger
}

func NewSweepService(
	billing billingdomain.BillingReader,
	outboxRepo domain.OutboxRepository,
	dispatcher *DispatchService,
	logger *slog.Logger,
) *SweepService {
	return &SweepService{
		billing:    billing,
		outboxRepo: outboxRepo,
		dispatcher: dispatcher,
		logger:     logger.With("component", "sweep"),
	}
}

// MonthBounds returns the first and last day of now's calendar month, UTC.
func MonthBounds(now time.Time) (time.Time, time.Time) {
	y, m, _ := now.UTC().Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start, end
}

// Run resolves the candidate invoice set and processes each candidate once.
func (s *SweepService) Run(ctx context.Context, cfg SweepConfig) (*SweepSummary, error) {
	from, to := cfg.From, cfg.To
	if from.IsZero() || to.IsZero() {
		from, to = MonthBounds(time.Now())
	}

	s.logger.InfoContext(ctx, "sweep starting",
		"unit", cfg.UnitName, "class", cfg.ClassName,
		"from", from.Format("2006-01-02"), "to", to.Format("2006-01-02"),
		"only_open", cfg.OnlyOpen, "send_all", cfg.SendAll,
		"dry_run", cfg.DryRunSend, "only_pending_outbox", cfg.OnlyPendingOutbox,
		"limit", cfg.Limit, "retry_failed", cfg.RetryFailed,
		"max_attempts", cfg.MaxAttempts, "move_to_dlq_on_max", cfg.MoveToDLQOnMax)

	unit, err := s.billing.GetUnitByName(ctx, cfg.UnitName)
	if err != nil {
		return nil, fmt.Errorf("resolve unit %q: %w", cfg.UnitName, err)
	}

	filter := billingdomain.InvoiceFilter{
		UnitID:   unit.ID,
		From:     from,
		To:       to,
		OnlyOpen: cfg.OnlyOpen,
	}
	if cfg.ClassName != "" {
		class, err := s.billing.GetClassByName(ctx, unit.ID, cfg.ClassName)
		if err != nil {
			return nil, fmt.Errorf("resolve class %q: %w", cfg.ClassName, err)
		}
		studentIDs, err := s.billing.ListStudentIDsByClass(ctx, unit.ID, class.ID)
		if err != nil {
			return nil, fmt.Errorf("list students of class %q: %w", cfg.ClassName, err)
		}
		if len(studentIDs) == 0 {
			s.logger.InfoContext(ctx, "no students in class", "class", cfg.ClassName)
			return &SweepSummary{}, nil
		}
		filter.StudentIDs = studentIDs
	}

	invoices, err := s.billing.ListInvoices(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	if len(invoices) == 0 {
		s.logger.InfoContext(ctx, "no invoices in window")
		return &SweepSummary{}, nil
	}

	candidates := s.selectCandidates(invoices, cfg)

	summary := &SweepSummary{TotalCandidates: len(candidates)}
	for _, inv := range candidates {
		res := s.processCandidate(ctx, inv, cfg)
		summary.Results = append(summary.Results, res)
		switch {
		case res.Skipped:
			summary.Skipped++
		case res.DryRun:
			summary.DryRun++
		case res.Sent:
			summary.Sent++
		default:
			summary.Failed++
		}
	}

	s.logger.InfoContext(ctx, "sweep finished",
		"total_candidates", summary.TotalCandidates,
		"sent", summary.Sent, "failed", summary.Failed,
		"skipped", summary.Skipped, "dry_run", summary.DryRun)
	return summary, nil
}

// selectCandidates keeps every invoice when SendAll is set, otherwise the
// latest invoice (by due date) per student. Invoices arrive newest first, so
// the first occurrence per student wins. The limit caps the result.
func (s *SweepService) selectCandidates(invoices []billingdomain.Invoice, cfg SweepConfig) []billingdomain.Invoice {
	selected := invoices
	if !cfg.SendAll {
		seen := make(map[uuid.UUID]bool, len(invoices))
		selected = make([]billingdomain.Invoice, 0, len(invoices))
		for _, inv := range invoices {
			if seen[inv.StudentID] {
				continue
			}
			seen[inv.StudentID] = true
			selected = append(selected, inv)
		}
	}
	if cfg.Limit > 0 && len(selected) > cfg.Limit {
		selected = selected[:cfg.Limit]
	}
	return selected
}

func (s *SweepService) processCandidate(ctx context.Context, inv billingdomain.Invoice, cfg SweepConfig) SweepResult {
	last, err := s.outboxRepo.LatestByInvoice(ctx, inv.ID)
	if err != nil && !errors.Is(err, domain.ErrOutboxEntryNotFound) {
		s.logger.WarnContext(ctx, "failed to read last outbox entry", "invoice_id", inv.ID, "error", err)
		return SweepResult{InvoiceID: inv.ID, Err: err.Error()}
	}
	if errors.Is(err, domain.ErrOutboxEntryNotFound) {
		last = nil
	}

	if cfg.RetryFailed {
		if skip, ok := s.retryModeSkip(ctx, inv, last, cfg); ok {
			return skip
		}
	} else {
		if cfg.OnlyPendingOutbox && last != nil {
			s.logger.InfoContext(ctx, "skip: invoice already has outbox record", "invoice_id", inv.ID)
			return SweepResult{InvoiceID: inv.ID, Skipped: true, Reason: SkipHasOutbox}
		}
		if last != nil && last.Status == domain.StatusSent {
			s.logger.InfoContext(ctx, "skip: already sent", "invoice_id", inv.ID)
			return SweepResult{InvoiceID: inv.ID, Skipped: true, Reason: SkipSent}
		}
	}

	if cfg.DryRunSend {
		s.logger.InfoContext(ctx, "dry-run: skipping send", "invoice_id", inv.ID)
		return SweepResult{InvoiceID: inv.ID, DryRun: true}
	}

	outcome, err := s.dispatcher.SendInvoiceNotification(ctx, inv.ID, nil)
	if err != nil {
		s.logger.WarnContext(ctx, "send failed at store level", "invoice_id", inv.ID, "error", err)
		res := SweepResult{InvoiceID: inv.ID, Err: err.Error()}
		if outcome != nil {
			res.OutboxID = outcome.OutboxID
		}
		return res
	}

	res := SweepResult{InvoiceID: inv.ID, OutboxID: outcome.OutboxID, Sent: outcome.Sent}
	if !outcome.Sent {
		res.Err = outcome.Reason
		s.logger.WarnContext(ctx, "delivery failed", "invoice_id", inv.ID, "outbox_id", outcome.OutboxID, "reason", outcome.Reason)
	} else {
		s.logger.InfoContext(ctx, "delivery sent", "invoice_id", inv.ID, "outbox_id", outcome.OutboxID)
	}
	return res
}

// retryModeSkip applies the retry-mode eligibility rules. It returns the skip
// result and true when the candidate must not be retried.
func (s *SweepService) retryModeSkip(ctx context.Context, inv billingdomain.Invoice, last *domain.OutboxEntry, cfg SweepConfig) (SweepResult, bool) {
	if last == nil {
		s.logger.InfoContext(ctx, "skip: no outbox record", "invoice_id", inv.ID)
		return SweepResult{InvoiceID: inv.ID, Skipped: true, Reason: SkipNoOutbox}, true
	}
	if last.Status != domain.StatusFailed {
		s.logger.InfoContext(ctx, "skip: last status not failed", "invoice_id", inv.ID, "status", last.Status)
		return SweepResult{InvoiceID: inv.ID, Skipped: true, Reason: SkipNotFailed}, true
	}
	if last.DeadLettered() {
		s.logger.InfoContext(ctx, "skip: entry dead-lettered", "invoice_id", inv.ID, "outbox_id", last.ID)
		return SweepResult{InvoiceID: inv.ID, Skipped: true, Reason: SkipDeadLettered}, true
	}

	if cfg.MaxAttempts > 0 {
		if last.Attempts >= cfg.MaxAttempts {
			moved := s.maybeDeadLetter(ctx, inv.ID, last.ID, SkipMaxAttempts, cfg)
			s.logger.InfoContext(ctx, "skip: attempt ceiling reached", "invoice_id", inv.ID, "attempts", last.Attempts)
			return SweepResult{InvoiceID: inv.ID, OutboxID: last.ID, Skipped: true, Reason: SkipMaxAttempts, DLQMoved: moved}, true
		}

		failedRows, err := s.outboxRepo.CountFailedByInvoice(ctx, inv.ID)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to count failed outbox rows", "invoice_id", inv.ID, "error", err)
			return SweepResult{InvoiceID: inv.ID, Err: err.Error()}, true
		}
		if failedRows >= cfg.MaxAttempts {
			moved := s.maybeDeadLetter(ctx, inv.ID, last.ID, SkipMaxFailedRows, cfg)
			s.logger.InfoContext(ctx, "skip: failed-row ceiling reached", "invoice_id", inv.ID, "failed_rows", failedRows)
			return SweepResult{InvoiceID: inv.ID, OutboxID: last.ID, Skipped: true, Reason: SkipMaxFailedRows, DLQMoved: moved}, true
		}
	}

	return SweepResult{}, false
}

// maybeDeadLetter moves the entry to the dead-letter store when the policy
// enables it. A repeat move is a no-op; failures are logged, never fatal.
func (s *SweepService) maybeDeadLetter(ctx context.Context, invoiceID, outboxID uuid.UUID, reason string, cfg SweepConfig) bool {
	if !cfg.MoveToDLQOnMax {
		return false
	}
	err := s.outboxRepo.MoveToDeadLetter(ctx, outboxID, reason)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyDeadLettered) {
			s.logger.InfoContext(ctx, "dead-letter move was a no-op", "invoice_id", invoiceID, "outbox_id", outboxID)
			return false
		}
		s.logger.WarnContext(ctx, "dead-letter move failed", "invoice_id", invoiceID, "outbox_id", outboxID, "reason", reason, "error", err)
		return false
	}
	s.logger.InfoContext(ctx, "moved to dead letter", "invoice_id", invoiceID, "outbox_id", outboxID, "reason", reason)
	return true
}
