package services

import (
	"context"
	"fmt"

	"castflow/internal/models"
	"castflow/pkg/notify"
)

// ActionOutcome is the result of one executor invocation. Warnings carry
// unresolved template placeholders (a configuration smell, not a failure).
type ActionOutcome struct {
	Detail    string   `json:"detail"`
	Target    string   `json:"target"`
	WouldSend bool     `json:"would_send,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// ActionExecutor performs one action type's side effect. In test mode the
// executor must do the full templating and validation work but suppress the
// real outbound call.
type ActionExecutor interface {
	Type() string
	Execute(ctx context.Context, cfg models.ActionConfiguration, params map[string]interface{}, testMode bool) (ActionOutcome, error)
}

// SlackExecutor posts a rendered message template to a chat channel.
type SlackExecutor struct {
	client *notify.SlackClient
}

func NewSlackExecutor(client *notify.SlackClient) *SlackExecutor {
	return &SlackExecutor{client: client}
}

func (e *SlackExecutor) Type() string { return models.ActionSlackNotification }

func (e *SlackExecutor) Execute(ctx context.Context, cfg models.ActionConfiguration, params map[string]interface{}, testMode bool) (ActionOutcome, error) {
	if cfg.Channel == "" {
		return ActionOutcome{}, fmt.Errorf("slack_notification requires a channel")
	}
	message, missing := RenderTemplate(cfg.Message, params)
	outcome := ActionOutcome{Target: cfg.Channel, Warnings: missing}
	if testMode {
		outcome.WouldSend = true
		outcome.Detail = fmt.Sprintf("would post to %s: %s", cfg.Channel, message)
		return outcome, nil
	}
	if err := e.client.Post(ctx, cfg.Channel, message); err != nil {
		return outcome, err
	}
	outcome.Detail = fmt.Sprintf("posted to %s", cfg.Channel)
	return outcome, nil
}

// EmailExecutor sends a rendered subject/body to a recipient.
type EmailExecutor struct {
	client *notify.EmailClient
}

func NewEmailExecutor(client *notify.EmailClient) *EmailExecutor {
	return &EmailExecutor{client: client}
}

func (e *EmailExecutor) Type() string { return models.ActionEmail }

func (e *EmailExecutor) Execute(ctx context.Context, cfg models.ActionConfiguration, params map[string]interface{}, testMode bool) (ActionOutcome, error) {
	recipient, missing := RenderTemplate(cfg.Recipient, params)
	if recipient == "" {
		return ActionOutcome{Warnings: missing}, fmt.Errorf("email requires a recipient")
	}
	subject, missSubject := RenderTemplate(cfg.Subject, params)
	body, missBody := RenderTemplate(cfg.Body, params)
	missing = append(missing, missSubject...)
	missing = append(missing, missBody...)

	outcome := ActionOutcome{Target: recipient, Warnings: missing}
	if testMode {
		outcome.WouldSend = true
		outcome.Detail = fmt.Sprintf("would email %s: %s", recipient, subject)
		return outcome, nil
	}
	if err := e.client.Send(ctx, recipient, subject, body); err != nil {
		return outcome, err
	}
	outcome.Detail = fmt.Sprintf("emailed %s", recipient)
	return outcome, nil
}

// WebhookExecutor delivers a rendered payload to a per-action URL.
type WebhookExecutor struct {
	client *notify.WebhookClient
}

func NewWebhookExecutor(client *notify.WebhookClient) *WebhookExecutor {
	return &WebhookExecutor{client: client}
}

func (e *WebhookExecutor) Type() string { return models.ActionWebhook }

func (e *WebhookExecutor) Execute(ctx context.Context, cfg models.ActionConfiguration, params map[string]interface{}, testMode bool) (ActionOutcome, error) {
	url, missURL := RenderTemplate(cfg.URL, params)
	if url == "" {
		return ActionOutcome{Warnings: missURL}, fmt.Errorf("webhook requires a URL")
	}
	payload, missPayload := RenderTemplateMap(cfg.Payload, params)
	missing := append(missURL, missPayload...)

	outcome := ActionOutcome{Target: url, Warnings: missing}
	if testMode {
		outcome.WouldSend = true
		outcome.Detail = fmt.Sprintf("would POST to %s", url)
		return outcome, nil
	}
	if err := e.client.Deliver(ctx, url, payload); err != nil {
		return outcome, err
	}
	outcome.Detail = fmt.Sprintf("delivered to %s", url)
	return outcome, nil
}

// DefaultExecutors wires the closed set of executors against the notify
// clients.
func DefaultExecutors(slack *notify.SlackClient, email *notify.EmailClient, webhook *notify.WebhookClient) []ActionExecutor {
	return []ActionExecutor{
		NewSlackExecutor(slack),
		NewEmailExecutor(email),
		NewWebhookExecutor(webhook),
	}
}
