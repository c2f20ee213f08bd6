package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ticketfair/escrow-service/internal/config"
)

// HTTPClient talks to a payment provider over its REST API using
// client-credential basic auth.
type HTTPClient struct {
	httpClient   *http.Client
	baseAPIURL   string
	clientID     string
	clientSecret string
}

// NewHTTPClient builds a provider client from configuration.
func NewHTTPClient(cfg config.ProviderConfig) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		baseAPIURL:   cfg.BaseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
}

type operationPayload struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency_code"`
}

// Capture requests a capture of the held payment.
func (c *HTTPClient) Capture(ctx context.Context, req Request) error {
	path := fmt.Sprintf("/v2/payments/%s/capture", req.ProviderPaymentID)
	return c.post(ctx, path, req)
}

// Refund requests a refund of the held payment.
func (c *HTTPClient) Refund(ctx context.Context, req Request) error {
	path := fmt.Sprintf("/v2/payments/%s/refund", req.ProviderPaymentID)
	return c.post(ctx, path, req)
}

func (c *HTTPClient) post(ctx context.Context, path string, r Request) error {
	body, err := json.Marshal(operationPayload{
		Amount:   r.Amount.StringFixed(2),
		Currency: r.Currency,
	})
	if err != nil {
		return fmt.Errorf("marshal provider payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseAPIURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return nil
}
