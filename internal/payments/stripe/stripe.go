// Package stripe is a minimal client for the two provider endpoints the
// service needs: plan pricing and hosted checkout sessions.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("payment provider secret key is not configured")

// ProviderError is a non-2xx answer from the provider.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("stripe: unexpected status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	httpClient *http.Client
	apiBase    string
	secretKey  string
}

func New(apiBase, secretKey string, timeout time.Duration) *Client {
	if !strings.HasSuffix(apiBase, "/") {
		apiBase += "/"
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiBase:    apiBase,
		secretKey:  secretKey,
	}
}

// Configured reports whether requests can be authenticated.
func (c *Client) Configured() bool {
	return c.secretKey != ""
}

type plan struct {
	Amount int64 `json:"amount"`
}

// PlanAmount returns the price of a plan in cents.
func (c *Client) PlanAmount(ctx context.Context, planID string) (int64, error) {
	const op = "stripe.PlanAmount"

	var p plan

	if err := c.do(ctx, http.MethodGet, "v1/plans/"+url.PathEscape(planID), nil, &p); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return p.Amount, nil
}

type CheckoutParams struct {
	UserID        int64
	CustomerEmail string
	Plan          string
	CancelURL     string
	SuccessURL    string
}

type checkoutSession struct {
	ID string `json:"id"`
}

// CreateCheckoutSession opens a hosted checkout for a subscription to
// p.Plan and returns the provider's session id. It is not idempotent.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (string, error) {
	const op = "stripe.CreateCheckoutSession"

	form := url.Values{}
	form.Set("cancel_url", p.CancelURL)
	form.Set("client_reference_id", strconv.FormatInt(p.UserID, 10))
	form.Set("customer_email", p.CustomerEmail)
	form.Set("payment_method_types[]", "card")
	form.Set("subscription_data[items][][plan]", p.Plan)
	form.Set("success_url", p.SuccessURL)

	var s checkoutSession

	if err := c.do(ctx, http.MethodPost, "v1/checkout/sessions", form, &s); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if s.ID == "" {
		return "", fmt.Errorf("%s: response has no session id", op)
	}

	return s.ID, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, body)
	if err != nil {
		return err
	}

	req.SetBasicAuth(c.secretKey, "")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return err
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &ProviderError{StatusCode: res.StatusCode, Body: string(raw)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
