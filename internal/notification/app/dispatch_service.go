package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arenafit/backoffice/internal/notification/domain"
	"github.com/arenafit/backoffice/internal/notification/provider"
)

// NATS subjects for delivery outcome events.
const (
	subjectOutboxSent   = "notifications.outbox.sent"
	subjectOutboxFailed = "notifications.outbox.failed"
)

// EventPublisher publishes delivery outcome events. Satisfied by
// messagebroker.NatsClient; may be nil when eventing is disabled.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// DispatchOutcome is the result of one enqueue-and-send (or drain) attempt
// after the outbox write-back.
type DispatchOutcome struct {
	OutboxID   uuid.UUID
	Sent       bool
	Provider   string
	ExternalID string
	Reason     string // failure reason when Sent is false
	Warning    string // set when the outcome write-back itself failed
}

// DispatchService owns the enqueue-then-send path shared by the HTTP API, the
// drain worker and the sweep tool. It is the only writer of outbox state.
type DispatchService struct {
	outboxRepo domain.OutboxRepository
	adapter    provider.Adapter
	events     EventPublisher
	logger     *slog.Logger
}

func NewDispatchService(
	outboxRepo domain.OutboxRepository,
	adapter provider.Adapter,
	events EventPublisher,
	logger *slog.Logger,
) *DispatchService {
	return &DispatchService{
		outboxRepo: outboxRepo,
		adapter:    adapter,
		events:     events,
		logger:     logger.With("component", "dispatch"),
	}
}

// SendInvoiceNotification enqueues a notification for the invoice and
// attempts delivery inline, writing the outcome back before returning.
// Store-level failures before an outbox id exists surface as errors; delivery
// failures are part of the outcome.
func (s *DispatchService) SendInvoiceNotification(ctx context.Context, invoiceID uuid.UUID, phoneOverride *string) (*DispatchOutcome, error) {
	outboxID, err := s.outboxRepo.Enqueue(ctx, invoiceID, phoneOverride)
	if err != nil {
		return nil, fmt.Errorf("enqueue notification: %w", err)
	}

	entry, err := s.outboxRepo.GetByID(ctx, outboxID)
	if err != nil {
		return &DispatchOutcome{OutboxID: outboxID}, fmt.Errorf("fetch outbox entry: %w", err)
	}

	outcome := s.attempt(ctx, outboxID, entry.Phone, entry.Message, false)
	return outcome, nil
}

// SendDirect calls the provider without touching the outbox, for the
// operational test endpoint.
func (s *DispatchService) SendDirect(ctx context.Context, phone, message string) provider.SendResult {
	timer := prometheus.NewTimer(providerRequestDurationHist.WithLabelValues(s.adapter.Name()))
	defer timer.ObserveDuration()
	return s.adapter.Send(ctx, phone, message)
}

// AttemptDelivery performs one delivery attempt for a pending outbox item and
// writes the outcome back. With dryRun set, the provider is short-circuited
// to a synthetic stub success.
func (s *DispatchService) AttemptDelivery(ctx context.Context, item domain.PendingOutboxItem, dryRun bool) *DispatchOutcome {
	return s.attempt(ctx, item.ID, item.Phone, item.Message, dryRun)
}

func (s *DispatchService) attempt(ctx context.Context, outboxID uuid.UUID, phone, message string, dryRun bool) *DispatchOutcome {
	var res provider.SendResult
	if dryRun {
		res = provider.SendResult{Ok: true, Provider: "stub"}
		deliveryAttemptsCounter.WithLabelValues("dry_run").Inc()
	} else {
		timer := prometheus.NewTimer(providerRequestDurationHist.WithLabelValues(s.adapter.Name()))
		res = s.adapter.Send(ctx, phone, message)
		timer.ObserveDuration()
	}

	outcome := &DispatchOutcome{
		OutboxID:   outboxID,
		Sent:       res.Ok,
		Provider:   res.Provider,
		ExternalID: res.ExternalID,
		Reason:     res.Reason,
	}

	if res.Ok {
		if !dryRun {
			deliveryAttemptsCounter.WithLabelValues("sent").Inc()
		}
		if err := s.outboxRepo.MarkSent(ctx, outboxID); err != nil {
			s.logger.ErrorContext(ctx, "failed to mark outbox entry sent", "outbox_id", outboxID, "error", err)
			outcome.Warning = "mark_update_failed"
			return outcome
		}
		s.publishOutcome(ctx, subjectOutboxSent, outcome)
		return outcome
	}

	deliveryAttemptsCounter.WithLabelValues("failed").Inc()
	reason := res.Reason
	if reason == "" {
		reason = "unknown_error"
		outcome.Reason = reason
	}
	if err := s.outboxRepo.MarkFailed(ctx, outboxID, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark outbox entry failed", "outbox_id", outboxID, "error", err)
		outcome.Warning = "mark_update_failed"
		return outcome
	}
	s.publishOutcome(ctx, subjectOutboxFailed, outcome)
	return outcome
}

type outboxEvent struct {
	OutboxID   string    `json:"outbox_id"`
	Status     string    `json:"status"`
	Provider   string    `json:"provider,omitempty"`
	ExternalID string    `json:"external_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// publishOutcome emits a fire-and-forget event; publish failures are logged
// and never affect the delivery outcome.
func (s *DispatchService) publishOutcome(ctx context.Context, subject string, outcome *DispatchOutcome) {
	if s.events == nil {
		return
	}
	status := domain.StatusFailed
	if outcome.Sent {
		status = domain.StatusSent
	}
	payload, err := json.Marshal(outboxEvent{
		OutboxID:   outcome.OutboxID.String(),
		Status:     string(status),
		Provider:   outcome.Provider,
		ExternalID: outcome.ExternalID,
		Error:      outcome.Reason,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to marshal outbox event", "error", err)
		return
	}
	if err := s.events.Publish(ctx, subject, payload); err != nil {
		s.logger.WarnContext(ctx, "failed to publish outbox event", "subject", subject, "error", err)
	}
}
