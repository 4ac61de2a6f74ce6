package merchantapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/congo-pay/merchant_payouts/internal/payout"
	"github.com/congo-pay/merchant_payouts/pkg/dto"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	defaultTimeout       = 15 * time.Second
	maxErrorBody         = 64 << 10
)

// Client talks to the merchant API. Transport failures come back as
// payout.KindNetwork errors and non-2xx responses as payout.KindHTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New builds a client for the API rooted at baseURL. A nil httpClient gets a
// client with a 15 second timeout.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base url must be absolute: %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: u, http: httpClient}, nil
}

// Merchant fetches the balances and the embedded recent activity.
func (c *Client) Merchant(ctx context.Context) (dto.MerchantResponse, error) {
	var out dto.MerchantResponse
	err := c.do(ctx, http.MethodGet, c.endpoint("api/merchant", nil), nil, nil, "merchant", false, &out)
	return out, err
}

// Activity fetches one page of the activity feed. An empty cursor requests
// the first page.
func (c *Client) Activity(ctx context.Context, cursor string, limit int) (dto.ActivityPage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out dto.ActivityPage
	err := c.do(ctx, http.MethodGet, c.endpoint("api/merchant/activity", q), nil, nil, "activity", false, &out)
	return out, err
}

// CreatePayout submits a payout. The idempotency key lets the server drop a
// duplicate delivery of the same attempt.
func (c *Client) CreatePayout(ctx context.Context, req dto.CreatePayoutRequest, idempotencyKey string) (dto.Payout, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return dto.Payout{}, fmt.Errorf("encode payout request: %w", err)
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		header.Set(idempotencyKeyHeader, idempotencyKey)
	}
	var out dto.Payout
	err = c.do(ctx, http.MethodPost, c.endpoint("api/payouts", nil), header, body, "payout", true, &out)
	return out, err
}

// Payout looks up a payout by id.
func (c *Client) Payout(ctx context.Context, id string) (dto.Payout, error) {
	var out dto.Payout
	err := c.do(ctx, http.MethodGet, c.endpoint("api/payouts/"+url.PathEscape(id), nil), nil, nil, "payout", true, &out)
	return out, err
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := c.baseURL.JoinPath(path)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// do performs the request and decodes a 2xx JSON body into out. strictJSON
// only trusts error bodies declared as application/json.
func (c *Client) do(ctx context.Context, method, endpoint string, header http.Header, body []byte, resource string, strictJSON bool, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", resource, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return payout.NetworkError(fmt.Errorf("network error: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return payout.HTTPError(resp.StatusCode, errorMessage(resp, resource, strictJSON))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", resource, err)
	}
	return nil
}

func errorMessage(resp *http.Response, resource string, strictJSON bool) string {
	fallback := fmt.Sprintf("Failed to fetch %s: %d", resource, resp.StatusCode)
	if strictJSON {
		mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			return fallback
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fallback
	}
	var body dto.ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return fallback
	}
	return body.Error
}
