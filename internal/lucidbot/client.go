package lucidbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lucidlabs/lucid-analytics/internal/config"
)

var (
	// ErrTokenInvalid is returned when LucidBot rejects the API token.
	ErrTokenInvalid = errors.New("lucidbot token rejected")
)

// Client talks to the LucidBot panel API. Authentication is a static
// per-account token sent as X-ACCESS-TOKEN on every request.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.LucidbotConfig, timeout time.Duration) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-ACCESS-TOKEN", token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// VerifyToken checks a token against the account endpoint and returns
// the account it belongs to.
func (c *Client) VerifyToken(ctx context.Context, token string) (*AccountPayload, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/account", token, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lucidbot account request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrTokenInvalid
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lucidbot account: unexpected status %d", resp.StatusCode)
	}

	var envelope struct {
		Status string         `json:"status"`
		Data   AccountPayload `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("lucidbot account: decode: %w", err)
	}
	return &envelope.Data, nil
}

// FindContactsByAd looks up contacts whose tracking custom field holds
// the given ad id. The panel caps a single lookup at 100 contacts.
func (c *Client) FindContactsByAd(ctx context.Context, token, fieldID, adID string) ([]ContactPayload, error) {
	payload, err := json.Marshal(map[string]string{
		"field_id": fieldID,
		"value":    adID,
	})
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/users/find_by_custom_field", token, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lucidbot contact lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrTokenInvalid
	}
	if resp.StatusCode == http.StatusNotFound {
		// No contacts carry this value.
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lucidbot contact lookup: unexpected status %d", resp.StatusCode)
	}

	var envelope struct {
		Status string           `json:"status"`
		Data   []ContactPayload `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("lucidbot contact lookup: decode: %w", err)
	}
	return envelope.Data, nil
}
