package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lucidlabs/lucid-analytics/internal/config"
)

var (
	// ErrTokenInvalid is returned when the Graph API rejects the
	// access token (expired, revoked, or missing permissions).
	ErrTokenInvalid = errors.New("meta access token rejected")
)

// adFields expands the campaign and adset hierarchy in one call so the
// dashboard needs no follow-up lookups.
const adFields = "id,name,effective_status,campaign{id,name},adset{id,name}"

const insightFields = "ad_id,ad_name,spend,impressions,clicks,ctr,cpm"

// Client talks to the Meta Marketing (Graph) API.
type Client struct {
	baseURL    string
	version    string
	httpClient *http.Client
}

func NewClient(cfg config.MetaConfig, timeout time.Duration) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		version: cfg.APIVersion,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// graphError is the Graph API's error envelope.
type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// paging carries the cursor for the next result page.
type paging struct {
	Next string `json:"next"`
	Cursors struct {
		After string `json:"after"`
	} `json:"cursors"`
}

func (c *Client) get(ctx context.Context, token, path string, params url.Values, out interface{}) error {
	params.Set("access_token", token)
	endpoint := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, c.version, strings.TrimPrefix(path, "/"), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrTokenInvalid
	}
	if resp.StatusCode != http.StatusOK {
		var ge graphError
		if json.NewDecoder(resp.Body).Decode(&ge) == nil && ge.Error.Message != "" {
			// OAuth errors come back as 400 with a typed body.
			if ge.Error.Type == "OAuthException" {
				return ErrTokenInvalid
			}
			return fmt.Errorf("graph api: %s (code %d)", ge.Error.Message, ge.Error.Code)
		}
		return fmt.Errorf("graph api: unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// VerifyAccount checks the token can read the ad account and returns
// its name.
func (c *Client) VerifyAccount(ctx context.Context, token, accountID string) (*AccountPayload, error) {
	params := url.Values{}
	params.Set("fields", "id,name")

	var account AccountPayload
	if err := c.get(ctx, token, actPath(accountID), params, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// FetchAds lists the account's ads with their campaign/adset hierarchy,
// following paging cursors until exhausted.
func (c *Client) FetchAds(ctx context.Context, token, accountID string) ([]AdPayload, error) {
	params := url.Values{}
	params.Set("fields", adFields)
	params.Set("limit", "200")

	var all []AdPayload
	for {
		var envelope struct {
			Data   []AdPayload `json:"data"`
			Paging paging      `json:"paging"`
		}
		if err := c.get(ctx, token, actPath(accountID)+"/ads", params, &envelope); err != nil {
			return nil, err
		}
		all = append(all, envelope.Data...)

		if envelope.Paging.Cursors.After == "" || envelope.Paging.Next == "" {
			break
		}
		params.Set("after", envelope.Paging.Cursors.After)
	}
	return all, nil
}

// FetchInsights pulls ad-level insights for the date range. Dates are
// inclusive, formatted YYYY-MM-DD.
func (c *Client) FetchInsights(ctx context.Context, token, accountID, since, until string) ([]InsightRow, error) {
	params := url.Values{}
	params.Set("fields", insightFields)
	params.Set("level", "ad")
	params.Set("time_range", fmt.Sprintf(`{"since":"%s","until":"%s"}`, since, until))
	params.Set("limit", "500")

	var all []InsightRow
	for {
		var envelope struct {
			Data   []InsightRow `json:"data"`
			Paging paging       `json:"paging"`
		}
		if err := c.get(ctx, token, actPath(accountID)+"/insights", params, &envelope); err != nil {
			return nil, err
		}
		all = append(all, envelope.Data...)

		if envelope.Paging.Cursors.After == "" || envelope.Paging.Next == "" {
			break
		}
		params.Set("after", envelope.Paging.Cursors.After)
	}
	return all, nil
}

// actPath prefixes an ad account id the way the Graph API expects.
func actPath(accountID string) string {
	if strings.HasPrefix(accountID, "act_") {
		return accountID
	}
	return "act_" + accountID
}
