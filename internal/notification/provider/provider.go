package provider

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// Failure reasons produced before or during a send attempt. These strings are
// persisted on outbox entries, so they are part of the store contract.
const (
	ReasonInvalidPhone          = "invalid_phone"
	ReasonEmptyMessage          = "empty_message"
	ReasonProviderNotConfigured = "provider_not_configured"
	ReasonProviderNotSupported  = "provider_not_supported"
	ReasonNetworkError          = "network_error"
)

// SendResult is the single outcome of a delivery attempt. Expected failure
// modes are values here, never Go errors: Ok false with a Reason.
type SendResult struct {
	Ok         bool
	Provider   string
	ExternalID string // provider-assigned message id, when available
	Reason     string // failure reason, empty on success
}

// Adapter is a single-shot WhatsApp sender. Retries are the caller's
// responsibility.
type Adapter interface {
	Send(ctx context.Context, phone, message string) SendResult
	Name() string
}

// Config selects and configures the concrete adapter.
type Config struct {
	Provider      string // "stub" or "meta"
	Token         string
	PhoneNumberID string
	APIBaseURL    string
}

// New builds the adapter for the configured provider. Unknown provider names
// yield an adapter that fails every send with provider_not_supported, and a
// meta provider without credentials fails with provider_not_configured; both
// are explicit runtime outcomes rather than startup errors, matching the
// operational model where credentials arrive per environment.
func New(cfg Config, logger *slog.Logger, httpClient *http.Client) Adapter {
	switch cfg.Provider {
	case "stub":
		return NewStubProvider(logger)
	case "meta":
		if cfg.Token == "" || cfg.PhoneNumberID == "" {
			return &unconfiguredProvider{name: cfg.Provider}
		}
		return NewMetaProvider(logger, cfg, httpClient)
	default:
		return &unsupportedProvider{name: cfg.Provider}
	}
}

// validate normalizes the destination and checks the message body. It returns
// a failed SendResult and false when the attempt must not reach the network.
func validate(phone, message string) (normalized string, failed SendResult, ok bool) {
	e164 := FormatPhoneBR(phone)
	if !ValidPhone(e164) {
		return "", SendResult{Ok: false, Reason: ReasonInvalidPhone}, false
	}
	if strings.TrimSpace(message) == "" {
		return "", SendResult{Ok: false, Reason: ReasonEmptyMessage}, false
	}
	return e164, SendResult{}, true
}

type unconfiguredProvider struct {
	name string
}

func (p *unconfiguredProvider) Send(ctx context.Context, phone, message string) SendResult {
	if _, failed, ok := validate(phone, message); !ok {
		return failed
	}
	return SendResult{Ok: false, Reason: ReasonProviderNotConfigured}
}

func (p *unconfiguredProvider) Name() string { return p.name }

type unsupportedProvider struct {
	name string
}

func (p *unsupportedProvider) Send(ctx context.Context, phone, message string) SendResult {
	if _, failed, ok := validate(phone, message); !ok {
		return failed
	}
	return SendResult{Ok: false, Reason: ReasonProviderNotSupported}
}

func (p *unsupportedProvider) Name() string { return p.name }
