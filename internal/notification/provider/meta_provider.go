package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxMessageLength is the Meta Cloud API limit for a text body; longer
// messages are truncated, not rejected.
const maxMessageLength = 4096

// MetaProvider sends WhatsApp text messages through the Meta Graph API
// (POST {base}/{phone-number-id}/messages with a bearer token).
type MetaProvider struct {
	logger        *slog.Logger
	httpClient    *http.Client
	baseURL       string
	token         string
	phoneNumberID string
}

func NewMetaProvider(logger *slog.Logger, cfg Config, httpClient *http.Client) *MetaProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &MetaProvider{
		logger:        logger.With("provider", "meta"),
		httpClient:    httpClient,
		baseURL:       strings.TrimSuffix(cfg.APIBaseURL, "/"),
		token:         cfg.Token,
		phoneNumberID: cfg.PhoneNumberID,
	}
}

type metaSendRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             metaTextBody `json:"text"`
}

type metaTextBody struct {
	Body string `json:"body"`
}

type metaSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *MetaProvider) Send(ctx context.Context, phone, message string) SendResult {
	e164, failed, ok := validate(phone, message)
	if !ok {
		return failed
	}

	body := message
	// Truncate by characters, not bytes; accented Portuguese text must never
	// lose a split rune at the cut point.
	if runes := []rune(body); len(runes) > maxMessageLength {
		body = string(runes[:maxMessageLength])
	}

	reqBody := metaSendRequest{
		MessagingProduct: "whatsapp",
		To:               strings.TrimPrefix(e164, "+"),
		Type:             "text",
		Text:             metaTextBody{Body: body},
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal meta request", "error", err)
		return SendResult{Ok: false, Reason: ReasonNetworkError}
	}

	url := fmt.Sprintf("%s/%s/messages", p.baseURL, p.phoneNumberID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBytes))
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build meta request", "error", err)
		return SendResult{Ok: false, Reason: ReasonNetworkError}
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.token)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.logger.WarnContext(ctx, "meta request failed", "error", err, "phone", e164)
		return SendResult{Ok: false, Reason: ReasonNetworkError}
	}
	defer httpResp.Body.Close()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		p.logger.WarnContext(ctx, "failed to read meta response", "status_code", httpResp.StatusCode, "error", err)
		return SendResult{Ok: false, Reason: ReasonNetworkError}
	}

	// The error payload is informative even on 2xx-adjacent parse failures,
	// so decode leniently and fall back to the HTTP status.
	var parsed metaSendResponse
	_ = json.Unmarshal(respBytes, &parsed)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		reason := fmt.Sprintf("http_%d", httpResp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			reason = parsed.Error.Message
		}
		p.logger.WarnContext(ctx, "meta send rejected", "status_code", httpResp.StatusCode, "reason", reason, "phone", e164)
		return SendResult{Ok: false, Reason: reason}
	}

	externalID := ""
	if len(parsed.Messages) > 0 {
		externalID = parsed.Messages[0].ID
	}
	p.logger.InfoContext(ctx, "meta send accepted", "phone", e164, "external_id", externalID)
	return SendResult{Ok: true, Provider: p.Name(), ExternalID: externalID}
}

func (p *MetaProvider) Name() string { return "meta" }
