package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"sales-recovery/internal/pkg/config"
	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/usecase/shared"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	sendPath             = "/emails"
	idempotencyHeader    = "Idempotency-Key"
	maxErrorBodyBytes    = 4 << 10
	providerErrorSnippet = 256
)

// HTTPEmailDispatcher sends messages through a JSON email API.
type HTTPEmailDispatcher struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPEmailDispatcher(cfg config.DispatcherConfig, logger *slog.Logger) *HTTPEmailDispatcher {
	return NewHTTPEmailDispatcherWithClient(cfg, &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   cfg.Timeout,
	}, logger)
}

func NewHTTPEmailDispatcherWithClient(cfg config.DispatcherConfig, client *http.Client, logger *slog.Logger) *HTTPEmailDispatcher {
	return &HTTPEmailDispatcher{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  client,
		logger:  logger,
	}
}

var _ shared.Dispatcher = (*HTTPEmailDispatcher)(nil)

func (d *HTTPEmailDispatcher) Send(ctx context.Context, msg shared.Message) (string, error) {
	body, err := json.Marshal(newSendRequest(msg))
	if err != nil {
		return "", errs.Mark(errs.Wrap(err, "marshal email payload"), errs.ErrPermanentDispatch)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+sendPath, bytes.NewReader(body))
	if err != nil {
		return "", errs.Mark(errs.Wrap(err, "build email request"), errs.ErrPermanentDispatch)
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if msg.IdempotencyKey != "" {
		req.Header.Set(idempotencyHeader, msg.IdempotencyKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		// network errors and deadline hits are worth another try
		return "", errs.Mark(errs.Wrap(err, "email api request failed"), errs.ErrTransientDispatch)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", classifyStatus(resp.StatusCode, raw)
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errs.Mark(errs.Wrap(err, "decode email api response"), errs.ErrTransientDispatch)
	}
	if out.ID == "" {
		return "", errs.Mark(errs.New("email api response without id"), errs.ErrTransientDispatch)
	}

	d.logger.Debug("email accepted by provider", "provider_message_id", out.ID, "idempotency_key", msg.IdempotencyKey)
	return out.ID, nil
}

func classifyStatus(status int, body []byte) error {
	snippet := string(body)
	if len(snippet) > providerErrorSnippet {
		snippet = snippet[:providerErrorSnippet]
	}
	err := errs.Newf("email api returned status %d: %s", status, snippet)
	if status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500 {
		return errs.Mark(err, errs.ErrTransientDispatch)
	}
	return errs.Mark(err, errs.ErrPermanentDispatch)
}

type sendRequest struct {
	From    string    `json:"from"`
	To      []string  `json:"to"`
	Subject string    `json:"subject"`
	HTML    string    `json:"html"`
	ReplyTo string    `json:"reply_to,omitempty"`
	Tags    []sendTag `json:"tags,omitempty"`
}

type sendTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type sendResponse struct {
	ID string `json:"id"`
}

func newSendRequest(msg shared.Message) sendRequest {
	to := msg.To
	if msg.ToName != "" {
		to = fmt.Sprintf("%s <%s>", msg.ToName, msg.To)
	}
	req := sendRequest{
		From:    msg.From,
		To:      []string{to},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	}
	keys := make([]string, 0, len(msg.Tags))
	for k := range msg.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		req.Tags = append(req.Tags, sendTag{Name: k, Value: msg.Tags[k]})
	}
	return req
}
