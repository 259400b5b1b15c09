package cryptopanic

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"CoinSage/internal/domain/models"
	pkghttp "CoinSage/pkg/http"
	applogger "CoinSage/pkg/logger"
	"CoinSage/pkg/util"
)

// ClientOption configures the news client.
type ClientOption func(*Client)

// Client polls the CryptoPanic posts API for crypto news.
type Client struct {
	baseURL    string
	apiKey     string
	currencies []string
	pageLimit  int
	limiter    *rate.Limiter
	http       *pkghttp.Client
	l          *applogger.Logger
}

// NewClient creates a CryptoPanic client.
func NewClient(baseURL, apiKey string, currencies []string, l *applogger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		currencies: currencies,
		pageLimit:  50,
		limiter:    rate.NewLimiter(rate.Limit(1), 2),
		http:       pkghttp.NewClient(pkghttp.WithTimeout(15 * time.Second)),
		l:          l,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithPageLimit sets posts per page.
func WithPageLimit(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageLimit = n
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *pkghttp.Client) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

type postsResponse struct {
	Results []post `json:"results"`
}

type post struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	Votes       votes  `json:"votes"`
}

type votes struct {
	Positive  int `json:"positive"`
	Negative  int `json:"negative"`
	Important int `json:"important"`
	Liked     int `json:"liked"`
	Disliked  int `json:"disliked"`
}

// FetchNews retrieves recent posts for every configured currency. Posts are
// deduplicated by external ID across currencies within the batch. A currency
// that fails to fetch is logged and skipped.
func (c *Client) FetchNews(ctx context.Context) ([]*models.NewsObservation, error) {
	seen := make(map[string]struct{})
	out := make([]*models.NewsObservation, 0, len(c.currencies)*c.pageLimit)
	var lastErr error

	for _, currency := range c.currencies {
		items, err := c.fetchCurrency(ctx, currency)
		if err != nil {
			lastErr = err
			c.l.Warn("cryptopanic: fetch failed",
				applogger.String("currency", currency),
				applogger.Error(err))
			continue
		}
		for _, item := range items {
			if _, dup := seen[item.ExternalID]; dup {
				continue
			}
			seen[item.ExternalID] = struct{}{}
			out = append(out, item)
		}
	}

	if len(out) == 0 && lastErr != nil {
		return nil, fmt.Errorf("fetch news: %w", lastErr)
	}
	return out, nil
}

func (c *Client) fetchCurrency(ctx context.Context, currency string) ([]*models.NewsObservation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp postsResponse
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    c.baseURL + "/api/v1/posts/",
		QueryParams: map[string][]string{
			"auth_token": {c.apiKey},
			"currencies": {currency},
			"per_page":   {strconv.Itoa(c.pageLimit)},
		},
	}, &resp)
	if err != nil {
		return nil, err
	}

	out := make([]*models.NewsObservation, 0, len(resp.Results))
	for _, p := range resp.Results {
		if p.Title == "" {
			continue
		}
		publishedAt, ok := util.ParseTime(p.PublishedAt)
		if !ok {
			// a single malformed record must not abort the batch
			c.l.Debug("cryptopanic: skip post with bad published_at",
				applogger.Int64("id", p.ID),
				applogger.String("published_at", p.PublishedAt))
			continue
		}
		out = append(out, &models.NewsObservation{
			ExternalID:  strconv.FormatInt(p.ID, 10),
			Currency:    currency,
			Title:       p.Title,
			URL:         p.URL,
			Sentiment:   p.Votes.sentiment(),
			Importance:  p.Votes.importance(),
			PublishedAt: publishedAt.UTC(),
		})
	}
	return out, nil
}

// sentiment maps community votes onto the three-way label. Posts without a
// clear vote lean stay neutral.
func (v votes) sentiment() models.Sentiment {
	pos := v.Positive + v.Liked
	neg := v.Negative + v.Disliked
	switch {
	case pos > neg:
		return models.SentimentPositive
	case neg > pos:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// importance is the share of "important" votes among all votes cast, or nil
// when nobody voted.
func (v votes) importance() *float64 {
	total := v.Positive + v.Negative + v.Important + v.Liked + v.Disliked
	if total == 0 {
		return nil
	}
	imp := float64(v.Important) / float64(total)
	return &imp
}
