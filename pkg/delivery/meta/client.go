// Package meta provides the Meta Cloud API WhatsApp template channel.
package meta

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

const defaultBaseURL = "https://graph.facebook.com/v19.0"

var ErrNotConfigured = errors.New("meta credentials missing")

// Client sends preapproved template messages through the Meta Cloud API.
// Arbitrary text is not accepted by this channel; free-text sends belong to
// the fallback channel.
type Client struct {
	token        string
	phoneID      string
	languageCode string
	baseURL      string
	httpClient   *http.Client
}

// NewClient creates a Meta Cloud API client from delivery settings.
func NewClient(settings config.Settings) *Client {
	return &Client{
		token:        settings.MetaWhatsAppToken,
		phoneID:      settings.MetaPhoneID,
		languageCode: settings.MetaLanguageCode,
		baseURL:      defaultBaseURL,
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

type templatePayload struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Template         template `json:"template"`
}

type template struct {
	Name       string      `json:"name"`
	Language   language    `json:"language"`
	Components []component `json:"components,omitempty"`
}

type language struct {
	Code string `json:"code"`
}

type component struct {
	Type       string      `json:"type"`
	Parameters []parameter `json:"parameters"`
}

type parameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTemplate sends one template message with positional body variables.
func (c *Client) SendTemplate(ctx context.Context, to, templateName string, variables []string) error {
	if c.token == "" || c.phoneID == "" {
		return ErrNotConfigured
	}

	tpl := template{
		Name:     templateName,
		Language: language{Code: c.languageCode},
	}

	if len(variables) > 0 {
		params := make([]parameter, 0, len(variables))
		for _, v := range variables {
			params = append(params, parameter{Type: "text", Text: v})
		}

		tpl.Components = []component{{Type: "body", Parameters: params}}
	}

	payload, err := json.Marshal(templatePayload{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template:         tpl,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal template payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build template request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("template request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return fmt.Errorf("meta returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
