package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"CoinSage/internal/domain/models"
	pkghttp "CoinSage/pkg/http"
	applogger "CoinSage/pkg/logger"
)

// ClientOption configures the REST client.
type ClientOption func(*Client)

// Client polls the Binance 24hr ticker REST endpoint for price observations.
type Client struct {
	baseURL string
	symbols []string
	limiter *rate.Limiter
	http    *pkghttp.Client
	l       *applogger.Logger
}

// NewClient creates a Binance REST client.
func NewClient(baseURL string, symbols []string, l *applogger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		symbols: symbols,
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		http:    pkghttp.NewClient(pkghttp.WithTimeout(15 * time.Second)),
		l:       l,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithRateLimit overrides the per-second request limit and burst.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *pkghttp.Client) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

type ticker24h struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"lastPrice"`
	Volume    string `json:"volume"`
	CloseTime int64  `json:"closeTime"` // ms
}

// FetchPrices retrieves the current ticker for every configured symbol.
// A symbol that fails to fetch is logged and skipped so one bad symbol
// does not starve the rest of the poll cycle.
func (c *Client) FetchPrices(ctx context.Context) ([]*models.PriceObservation, error) {
	out := make([]*models.PriceObservation, 0, len(c.symbols))
	var lastErr error
	for _, sym := range c.symbols {
		obs, err := c.fetchOne(ctx, sym)
		if err != nil {
			lastErr = err
			c.l.Warn("binance: ticker fetch failed",
				applogger.String("symbol", sym),
				applogger.Error(err))
			continue
		}
		out = append(out, obs)
	}
	if len(out) == 0 && lastErr != nil {
		return nil, fmt.Errorf("fetch prices: %w", lastErr)
	}
	return out, nil
}

func (c *Client) fetchOne(ctx context.Context, symbol string) (*models.PriceObservation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var t ticker24h
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodGet,
		URL:         c.baseURL + "/api/v3/ticker/24hr",
		QueryParams: map[string][]string{"symbol": {symbol}},
	}, &t)
	if err != nil {
		return nil, err
	}

	price, err := strconv.ParseFloat(t.LastPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lastPrice %q: %w", t.LastPrice, err)
	}
	volume, err := strconv.ParseFloat(t.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parse volume %q: %w", t.Volume, err)
	}

	ts := time.UnixMilli(t.CloseTime).UTC()
	if t.CloseTime == 0 {
		ts = time.Now().UTC()
	}

	return &models.PriceObservation{
		Symbol:    t.Symbol,
		Timestamp: ts,
		Price:     price,
		Volume:    volume,
	}, nil
}
