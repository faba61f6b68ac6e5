package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/veltapay/wallet-backend/internal/domain"
	"github.com/veltapay/wallet-backend/internal/logging"
)

// Client talks to the payment processor's balance API. The processor
// reports amounts as decimal strings per currency; the client converts the
// configured currency to int64 minor units and ignores the rest.
type Client struct {
	baseURL    string
	apiKey     string
	currency   domain.Currency
	maxRetries uint64
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, currency domain.Currency, maxRetries int) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		currency:   currency,
		maxRetries: uint64(maxRetries),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type balanceResponse struct {
	Available []balanceAmount `json:"available"`
	Pending   []balanceAmount `json:"pending"`
}

type balanceAmount struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// PlatformBalance returns the processor's available platform balance in
// minor units of the configured currency.
func (c *Client) PlatformBalance(ctx context.Context) (int64, error) {
	return c.fetchBalance(ctx, "")
}

// AccountBalance returns the available balance of one connected account.
func (c *Client) AccountBalance(ctx context.Context, accountRef string) (int64, error) {
	return c.fetchBalance(ctx, accountRef)
}

func (c *Client) fetchBalance(ctx context.Context, accountRef string) (int64, error) {
	endpoint := c.baseURL + "/v1/balance"
	if accountRef != "" {
		endpoint += "?account=" + url.QueryEscape(accountRef)
	}

	var resp balanceResponse
	operation := func() error {
		return c.doRequest(ctx, endpoint, &resp)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return 0, fmt.Errorf("fetchBalance: %w: %w", domain.ErrExternalService, err)
	}

	return c.sumAvailable(resp)
}

func (c *Client) doRequest(ctx context.Context, endpoint string, out *balanceResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	logging.FromContext(ctx).Debug("processor response received",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		// Client errors will not heal on retry; server errors might.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode: %w", err))
	}
	return nil
}

// sumAvailable totals the available funds for the configured currency.
// Other currencies are skipped, not errors: the processor reports every
// currency it has ever settled.
func (c *Client) sumAvailable(resp balanceResponse) (int64, error) {
	total := decimal.Zero
	for _, a := range resp.Available {
		if domain.Currency(a.Currency) != c.currency {
			continue
		}
		d, err := decimal.NewFromString(a.Amount)
		if err != nil {
			return 0, fmt.Errorf("sumAvailable: %w: amount %q: %w", domain.ErrExternalService, a.Amount, err)
		}
		total = total.Add(d)
	}

	minor := total.Shift(2)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("sumAvailable: %w: amount %s is not a whole number of minor units", domain.ErrExternalService, total)
	}
	return minor.IntPart(), nil
}
