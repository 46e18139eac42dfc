// Package resend provides the Resend transactional email client.
package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/leadflowhq/leadflow/pkg/config"
)

const defaultBaseURL = "https://api.resend.com"

var ErrNotConfigured = errors.New("resend credentials missing")

// Client sends email through the Resend HTTP API. Unlike the browser-bound
// predecessor of this service, a transport failure here is a real failure,
// never a simulated success.
type Client struct {
	apiKey     string
	fromEmail  string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Resend client from delivery settings.
func NewClient(settings config.Settings) *Client {
	return &Client{
		apiKey:    settings.ResendAPIKey,
		fromEmail: settings.ResendFromEmail,
		baseURL:   defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithBaseURL is used by tests to point at a local server.
func NewClientWithBaseURL(settings config.Settings, baseURL string) *Client {
	client := NewClient(settings)
	client.baseURL = baseURL

	return client
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Send delivers one HTML email.
func (c *Client) Send(ctx context.Context, to, subject, htmlBody string) error {
	if c.apiKey == "" || c.fromEmail == "" {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(sendRequest{
		From:    c.fromEmail,
		To:      to,
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return fmt.Errorf("resend returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
