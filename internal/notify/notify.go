package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrSendFailed reports a non-success response from the email provider.
var ErrSendFailed = errors.New("notification send failed")

// Notifier delivers best-effort user notifications. Failures are reported to
// the caller for logging but must never roll back the operation that
// triggered them.
type Notifier interface {
	SendCardCreated(ctx context.Context, recipient string, cardName string) error
}

const (
	defaultBaseURL = "https://api.resend.com"
	sendTimeout    = 10 * time.Second
)

// ResendClient sends transactional email through the Resend HTTP API.
type ResendClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	fromEmail  string
}

// ResendOption configures a ResendClient.
type ResendOption func(*ResendClient)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(baseURL string) ResendOption {
	return func(client *ResendClient) {
		client.baseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ResendOption {
	return func(client *ResendClient) {
		client.httpClient = httpClient
	}
}

// NewResendClient wires a client with the given credentials.
func NewResendClient(apiKey string, fromEmail string, options ...ResendOption) *ResendClient {
	client := &ResendClient{
		httpClient: &http.Client{Timeout: sendTimeout},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		fromEmail:  fromEmail,
	}
	for _, option := range options {
		if option != nil {
			option(client)
		}
	}
	return client
}

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendCardCreated emails the card-created confirmation to the recipient.
func (client *ResendClient) SendCardCreated(ctx context.Context, recipient string, cardName string) error {
	payload, err := json.Marshal(sendEmailRequest{
		From:    client.fromEmail,
		To:      []string{recipient},
		Subject: fmt.Sprintf("Your virtual card %q is ready", cardName),
		HTML:    cardCreatedHTML(cardName),
	})
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+client.apiKey)

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer func() { _ = response.Body.Close() }()
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrSendFailed, response.StatusCode, string(body))
	}
	return nil
}

func cardCreatedHTML(cardName string) string {
	var builder bytes.Buffer
	builder.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">`)
	builder.WriteString(`<h1>Orbi Pay</h1>`)
	builder.WriteString(`<h2>Dear User,</h2>`)
	builder.WriteString(fmt.Sprintf(`<p>Your virtual card <strong>%q</strong> has been successfully created and is now active.</p>`, cardName))
	builder.WriteString(`<p>You can manage limits, freeze the card, and review activity in the dashboard.</p>`)
	builder.WriteString(`</div>`)
	return builder.String()
}

// NopNotifier swallows notifications; used when no provider is configured.
type NopNotifier struct{}

// SendCardCreated does nothing.
func (NopNotifier) SendCardCreated(context.Context, string, string) error {
	return nil
}
