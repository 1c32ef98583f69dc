// Package notify holds the concrete outbound senders the automation action
// executors delegate delivery to. Each client owns its HTTP timeout; the
// engine treats a failed or expired call as a delivery error and does not
// retry.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 10 * time.Second

// Config carries the delivery endpoints for all clients.
type Config struct {
	SlackWebhookURL string
	EmailRelayURL   string
	EmailRelayKey   string
	Timeout         time.Duration
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func postJSON(ctx context.Context, client *http.Client, logger *logrus.Logger, url string, body interface{}, headers map[string]string) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Castflow-Notify/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	logger.Debugf("notify: POST %s -> %d", url, resp.StatusCode)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("delivery failed [%d]: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SlackClient posts messages to a Slack incoming-webhook URL.
type SlackClient struct {
	webhookURL string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewSlackClient(cfg Config, logger *logrus.Logger) *SlackClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &SlackClient{
		webhookURL: cfg.SlackWebhookURL,
		httpClient: newHTTPClient(cfg.Timeout),
		logger:     logger,
	}
}

// Post sends text to the given channel through the configured webhook.
func (c *SlackClient) Post(ctx context.Context, channel, text string) error {
	if c.webhookURL == "" {
		return fmt.Errorf("slack webhook URL not configured")
	}
	payload := map[string]string{
		"channel": channel,
		"text":    text,
	}
	if err := postJSON(ctx, c.httpClient, c.logger, c.webhookURL, payload, nil); err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	return nil
}

// EmailClient submits messages to the HTTP mail relay.
type EmailClient struct {
	relayURL   string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewEmailClient(cfg Config, logger *logrus.Logger) *EmailClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &EmailClient{
		relayURL:   cfg.EmailRelayURL,
		apiKey:     cfg.EmailRelayKey,
		httpClient: newHTTPClient(cfg.Timeout),
		logger:     logger,
	}
}

// Send queues one message on the relay.
func (c *EmailClient) Send(ctx context.Context, to, subject, body string) error {
	if c.relayURL == "" {
		return fmt.Errorf("email relay URL not configured")
	}
	payload := map[string]string{
		"to":      to,
		"subject": subject,
		"body":    body,
	}
	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{"X-API-Key": c.apiKey}
	}
	if err := postJSON(ctx, c.httpClient, c.logger, c.relayURL+"/api/v1/messages", payload, headers); err != nil {
		return fmt.Errorf("email send: %w", err)
	}
	return nil
}

// WebhookClient delivers JSON payloads to arbitrary per-action URLs.
type WebhookClient struct {
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewWebhookClient(cfg Config, logger *logrus.Logger) *WebhookClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &WebhookClient{
		httpClient: newHTTPClient(cfg.Timeout),
		logger:     logger,
	}
}

// Deliver posts the payload to url.
func (c *WebhookClient) Deliver(ctx context.Context, url string, payload map[string]string) error {
	if url == "" {
		return fmt.Errorf("webhook URL required")
	}
	if payload == nil {
		payload = map[string]string{}
	}
	if err := postJSON(ctx, c.httpClient, c.logger, url, payload, nil); err != nil {
		return fmt.Errorf("webhook deliver: %w", err)
	}
	return nil
}
