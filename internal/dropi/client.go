package dropi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lucidlabs/lucid-analytics/internal/config"
)

var (
	// ErrTokenExpired means the upstream rejected our bearer token. The
	// orchestrator re-authenticates instead of retrying blindly.
	ErrTokenExpired = errors.New("dropi token expired")
	ErrLoginFailed  = errors.New("dropi login rejected")
)

// whiteBrandIDs is a per-country login payload constant required by the
// upstream. Guatemala uses a legacy numeric value.
var whiteBrandIDs = map[string]interface{}{
	"gt": 1,
	"co": "df3e6b0bb66ceaadca4f84cbc371fd66e04d20fe51fc414da8d1b84d31d178de",
	"mx": "df3e6b0bb66ceaadca4f84cbc371fd66e04d20fe51fc414da8d1b84d31d178de",
	"cl": "df3e6b0bb66ceaadca4f84cbc371fd66e04d20fe51fc414da8d1b84d31d178de",
	"pe": "df3e6b0bb66ceaadca4f84cbc371fd66e04d20fe51fc414da8d1b84d31d178de",
	"ec": "df3e6b0bb66ceaadca4f84cbc371fd66e04d20fe51fc414da8d1b84d31d178de",
}

// Client talks to the Dropi API. The upstream fronts its API with
// browser fingerprinting, so every request carries a full Chrome-like
// header set; without it the API answers "Access denied".
type Client struct {
	baseURLs       map[string]string
	defaultCountry string
	httpClient     *http.Client
}

// LoginResult is the outcome of a successful credential exchange.
type LoginResult struct {
	Token       string
	DropiUserID string
	UserName    string
}

func NewClient(cfg config.DropiConfig, timeout time.Duration) *Client {
	return &Client{
		baseURLs:       cfg.BaseURLs,
		defaultCountry: cfg.DefaultCountry,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) baseURL(country string) string {
	if u, ok := c.baseURLs[country]; ok {
		return u
	}
	return c.baseURLs[c.defaultCountry]
}

func (c *Client) setHeaders(req *http.Request, token, country string) {
	origin := fmt.Sprintf("https://app.dropi.%s", country)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Origin", origin)
	req.Header.Set("Referer", origin+"/")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9,en;q=0.8")
	req.Header.Set("Sec-Ch-Ua", `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`)
	req.Header.Set("Sec-Ch-Ua-Mobile", "?0")
	req.Header.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-site")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

type loginEnvelope struct {
	IsSuccess bool   `json:"isSuccess"`
	Token     string `json:"token"`
	Message   string `json:"message"`
	Objects   struct {
		ID      FlexInt `json:"id"`
		Name    string  `json:"name"`
		Surname string  `json:"surname"`
	} `json:"objects"`
}

// Login exchanges credentials for a bearer token valid roughly 24h.
func (c *Client) Login(ctx context.Context, email, password, country string) (*LoginResult, error) {
	payload := map[string]interface{}{
		"email":          email,
		"password":       password,
		"white_brand_id": whiteBrandIDs[country],
		"brand":          "",
		"otp":            nil,
		"with_cdc":       false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL(country)+"/api/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, "", country)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dropi login request failed: %w", err)
	}
	defer resp.Body.Close()

	var env loginEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("dropi login response malformed: %w", err)
	}

	if !env.IsSuccess || env.Token == "" {
		if env.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrLoginFailed, env.Message)
		}
		return nil, ErrLoginFailed
	}

	userName := env.Objects.Name
	if env.Objects.Surname != "" {
		userName += " " + env.Objects.Surname
	}

	return &LoginResult{
		Token:       env.Token,
		DropiUserID: strconv.FormatInt(int64(env.Objects.ID), 10),
		UserName:    userName,
	}, nil
}

type listEnvelope struct {
	IsSuccess bool            `json:"isSuccess"`
	Objects   json.RawMessage `json:"objects"`
	Total     int             `json:"total"`
}

// FetchOrders retrieves one page of orders, newest updates first so
// incremental syncs see recent changes early.
func (c *Client) FetchOrders(ctx context.Context, token, country string, page, limit int) ([]OrderPayload, error) {
	params := url.Values{}
	params.Set("result_number", strconv.Itoa(limit))
	params.Set("start", strconv.Itoa(page*limit))
	params.Set("order_by", "updated_at")
	params.Set("order_dir", "desc")

	var orders []OrderPayload
	if err := c.getList(ctx, token, country, "/api/orders/myorders", params, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// FetchWallet retrieves one page of wallet ledger entries inside the
// [from, now] window.
func (c *Client) FetchWallet(ctx context.Context, token, country, dropiUserID string, page, limit int, from time.Time) ([]MovementPayload, error) {
	params := url.Values{}
	params.Set("orderBy", "id")
	params.Set("orderDirection", "desc")
	params.Set("result_number", strconv.Itoa(limit))
	params.Set("start", strconv.Itoa(page*limit))
	params.Set("textToSearch", "")
	params.Set("type", "null")
	params.Set("id", "null")
	params.Set("identification_code", "null")
	params.Set("user_id", dropiUserID)
	params.Set("from", from.Format("2006-01-02"))
	params.Set("until", time.Now().Format("2006-01-02"))
	params.Set("wallet_id", "0")

	var movements []MovementPayload
	if err := c.getList(ctx, token, country, "/api/historywallet", params, &movements); err != nil {
		return nil, err
	}
	return movements, nil
}

func (c *Client) getList(ctx context.Context, token, country, endpoint string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL(country)+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	c.setHeaders(req, token, country)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dropi request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrTokenExpired
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dropi returned HTTP %d", resp.StatusCode)
	}

	var env listEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("dropi response malformed: %w", err)
	}
	if !env.IsSuccess {
		return errors.New("dropi reported failure")
	}
	if len(env.Objects) == 0 {
		return nil
	}

	return json.Unmarshal(env.Objects, out)
}
