package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"paper-trading-go/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrNotFound is returned when the provider does not know the symbol, or
// when its response cannot be trusted (transport failure, malformed body,
// non-positive price). Callers treat all of these the same way: the
// symbol is not tradable right now.
var ErrNotFound = errors.New("symbol not found")

// Quote is the provider's answer for one symbol at one point in time.
type Quote struct {
	Name   string
	Symbol string
	Price  decimal.Decimal
}

// ClientInterface defines the interface for the quote provider client.
type ClientInterface interface {
	Lookup(ctx context.Context, symbol string) (*Quote, error)
}

// Client is a client for the external quote provider API.
// It implements ClientInterface.
type Client struct {
	client  *resty.Client
	apiKey  string
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new quote provider client.
func NewClient(cfg *config.Quote, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(cfg.BaseURL)

	// The provider meters requests per API key; limit on our side so a
	// burst of portfolio views does not get the key throttled.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		apiKey:  cfg.ApiKey,
		logger:  logger,
		limiter: limiter,
	}
}

// lookupResponse is the provider's wire format for a single quote.
type lookupResponse struct {
	CompanyName string  `json:"companyName"`
	Symbol      string  `json:"symbol"`
	LatestPrice float64 `json:"latestPrice"`
}

// Lookup fetches the current quote for a symbol. A single attempt is
// made; any failure mode surfaces as ErrNotFound so business logic never
// sees transport details.
func (c *Client) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrNotFound
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var result lookupResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		SetQueryParam("token", c.apiKey).
		Get(fmt.Sprintf("/stable/stock/%s/quote", symbol))

	if err != nil {
		c.logger.Warn("Quote lookup transport failure",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		return nil, ErrNotFound
	}

	if resp.IsError() {
		c.logger.Debug("Quote lookup rejected by provider",
			zap.String("symbol", symbol),
			zap.Int("status", resp.StatusCode()),
		)
		return nil, ErrNotFound
	}

	if result.Symbol == "" || result.LatestPrice <= 0 {
		return nil, ErrNotFound
	}

	return &Quote{
		Name:   result.CompanyName,
		Symbol: result.Symbol,
		Price:  decimal.NewFromFloat(result.LatestPrice),
	}, nil
}
