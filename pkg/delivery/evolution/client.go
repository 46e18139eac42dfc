// Package evolution provides the Evolution API free-text WhatsApp channel.
package evolution

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

var ErrNotConfigured = errors.New("evolution credentials missing")

// Client sends free-text messages through a self-hosted Evolution API
// instance. This is the fallback channel — it accepts arbitrary text.
type Client struct {
	baseURL      string
	instanceName string
	apiKey       string
	httpClient   *http.Client
}

// NewClient creates an Evolution API client from delivery settings.
func NewClient(settings config.Settings) *Client {
	return &Client{
		baseURL:      settings.EvolutionAPIURL,
		instanceName: settings.EvolutionInstanceName,
		apiKey:       settings.EvolutionAPIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type sendTextRequest struct {
	Number      string `json:"number"`
	Text        string `json:"text"`
	Delay       int    `json:"delay"`
	LinkPreview bool   `json:"linkPreview"`
}

// SendText delivers one free-text message.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	if c.baseURL == "" || c.instanceName == "" {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(sendTextRequest{
		Number:      to,
		Text:        text,
		Delay:       1000,
		LinkPreview: true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal text payload: %w", err)
	}

	url := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, c.instanceName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build text request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("text request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return fmt.Errorf("evolution returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
