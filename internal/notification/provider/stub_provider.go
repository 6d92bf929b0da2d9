package provider

import (
	"context"
	"log/slog"
)

// StubProvider accepts every validated send without touching the network.
// Used in tests and in environments without a real WhatsApp account.
type StubProvider struct {
	logger *slog.Logger
}

func NewStubProvider(logger *slog.Logger) *StubProvider {
	return &StubProvider{logger: logger.With("provider", "stub")}
}

func (p *StubProvider) Send(ctx context.Context, phone, message string) SendResult {
	e164, failed, ok := validate(phone, message)
	if !ok {
		return failed
	}
	p.logger.DebugContext(ctx, "stub send accepted", "phone", e164, "message_length", len(message))
	return SendResult{Ok: true, Provider: p.Name()}
}

func (p *StubProvider) Name() string { return "stub" }
