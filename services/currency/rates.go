// Package currency fetches and caches exchange rates from ExchangeRate-API.
package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"invoicely/models"
	"invoicely/utils"
)

var (
	ErrNotConfigured   = utils.NewError(utils.ErrUnavailable, "Currency conversion is not configured")
	ErrUnknownCurrency = utils.NewValidationError("currency", "Unsupported currency")

	codePattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Rates is one snapshot of conversion rates relative to Base.
type Rates struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// Conversion is the result of Convert.
type Conversion struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
	Rate   float64 `json:"rate"`
	Result float64 `json:"result"`
}

// CurrencyService is what the HTTP layer and the worker need.
type CurrencyService interface {
	Enabled() bool
	Rates(ctx context.Context, base string) (*Rates, error)
	Refresh(ctx context.Context, base string) (*Rates, error)
	Convert(ctx context.Context, amount float64, from, to string) (*Conversion, error)
}

// RateCache stores rate snapshots per base currency.
type RateCache interface {
	Get(ctx context.Context, base string) (*Rates, error)
	Set(ctx context.Context, rates *Rates, ttl time.Duration) error
}

// RedisRateCache keeps snapshots under currency:rates:<BASE>.
type RedisRateCache struct {
	Client redis.Cmdable
}

func rateKey(base string) string {
	return "currency:rates:" + base
}

// Get returns (nil, nil) on a miss.
func (c *RedisRateCache) Get(ctx context.Context, base string) (*Rates, error) {
	var r Rates
	err := utils.GetJSON(ctx, c.Client, rateKey(base), &r)
	if errors.Is(err, utils.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *RedisRateCache) Set(ctx context.Context, rates *Rates, ttl time.Duration) error {
	return utils.SetJSON(ctx, c.Client, rateKey(rates.Base), rates, ttl)
}

type RatesClient struct {
	BaseURL string
	APIKey  string
	TTL     time.Duration
	HTTP    *http.Client
	Cache   RateCache
	Logger  *zap.Logger
	Now     func() time.Time
}

func NewRatesClient(baseURL, apiKey string, ttl time.Duration, cache RateCache, logger *zap.Logger) *RatesClient {
	return &RatesClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		TTL:     ttl,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Cache:   cache,
		Logger:  logger,
	}
}

func (c *RatesClient) Enabled() bool {
	return c.APIKey != ""
}

// Rates serves from the cache and falls back to Refresh on a miss. A broken
// cache is logged and bypassed.
func (c *RatesClient) Rates(ctx context.Context, base string) (*Rates, error) {
	base, err := normaliseCode(base)
	if err != nil {
		return nil, err
	}
	if c.Cache != nil {
		cached, err := c.Cache.Get(ctx, base)
		if err != nil {
			c.Logger.Warn("Rate cache read failed", zap.String("base", base), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}
	return c.Refresh(ctx, base)
}

type apiResponse struct {
	Result          string             `json:"result"`
	ErrorType       string             `json:"error-type"`
	BaseCode        string             `json:"base_code"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// Refresh always hits the API and stores the snapshot.
func (c *RatesClient) Refresh(ctx context.Context, base string) (*Rates, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	base, err := normaliseCode(base)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/latest/%s", c.BaseURL, c.APIKey, base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rates request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates: %w", err)
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode rates (status %d): %w", resp.StatusCode, err)
	}
	if body.Result != "success" {
		if body.ErrorType == "unsupported-code" {
			return nil, ErrUnknownCurrency
		}
		return nil, fmt.Errorf("rates API returned %q (status %d)", body.ErrorType, resp.StatusCode)
	}

	rates := &Rates{Base: base, Rates: body.ConversionRates, FetchedAt: c.now().UTC()}
	if c.Cache != nil {
		if err := c.Cache.Set(ctx, rates, c.TTL); err != nil {
			c.Logger.Warn("Rate cache write failed", zap.String("base", base), zap.Error(err))
		}
	}
	c.Logger.Info("Exchange rates refreshed", zap.String("base", base), zap.Int("count", len(rates.Rates)))
	return rates, nil
}

// Convert uses the rates of from and rounds the result to cents.
func (c *RatesClient) Convert(ctx context.Context, amount float64, from, to string) (*Conversion, error) {
	if amount < 0 {
		return nil, utils.NewValidationError("amount", "Amount cannot be negative")
	}
	from, err := normaliseCode(from)
	if err != nil {
		return nil, err
	}
	to, err = normaliseCode(to)
	if err != nil {
		return nil, err
	}
	if from == to {
		return &Conversion{From: from, To: to, Amount: amount, Rate: 1, Result: models.RoundMoney(amount)}, nil
	}

	rates, err := c.Rates(ctx, from)
	if err != nil {
		return nil, err
	}
	rate, ok := rates.Rates[to]
	if !ok {
		return nil, ErrUnknownCurrency
	}
	return &Conversion{From: from, To: to, Amount: amount, Rate: rate, Result: models.RoundMoney(amount * rate)}, nil
}

func (c *RatesClient) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func normaliseCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(code) {
		return "", utils.NewValidationError("currency", "Currency must be a 3-letter code")
	}
	return code, nil
}
