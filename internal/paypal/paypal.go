// Package paypal is the payment capture collaborator. It talks to the
// PayPal Orders v2 API with a client-credentials token; the ledger only
// records a stage after the caller has confirmed a COMPLETED capture.
package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/tripcrew/backend/internal/config"
)

// CaptureResult is the outcome of capturing an approved order.
type CaptureResult struct {
	ID       string
	Status   string
	Amount   string
	Currency string
}

// Completed reports whether the capture went through.
func (r *CaptureResult) Completed() bool {
	return r.Status == "COMPLETED"
}

// Client calls the PayPal REST API.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// New builds a client with an oauth2 client-credentials token source, so
// access tokens refresh themselves.
func New(cfg *config.PayPalConfig) *Client {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     strings.TrimSuffix(cfg.BaseURL, "/") + "/v1/oauth2/token",
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    cc.Client(context.Background()),
		timeout: cfg.Timeout,
	}
}

type captureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
				Amount struct {
					CurrencyCode string `json:"currency_code"`
					Value        string `json:"value"`
				} `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CaptureOrder captures an approved order and returns the capture result.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/v2/checkout/orders/%s/capture", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader("{}"))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("capture order %s: %w", orderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("capture order %s: unexpected status %d", orderID, resp.StatusCode)
	}

	var body captureResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("capture order %s: decode: %w", orderID, err)
	}

	result := &CaptureResult{ID: body.ID, Status: body.Status}
	if len(body.PurchaseUnits) > 0 {
		captures := body.PurchaseUnits[0].Payments.Captures
		if len(captures) > 0 {
			result.ID = captures[0].ID
			result.Amount = captures[0].Amount.Value
			result.Currency = captures[0].Amount.CurrencyCode
		}
	}
	return result, nil
}
