package usecase

import (
	"context"
	"time"

	"CoinSage/internal/domain/models"
	drepo "CoinSage/internal/domain/repository"
	applogger "CoinSage/pkg/logger"
)

// PriceFetcher is the REST side of the exchange collector.
type PriceFetcher interface {
	FetchPrices(ctx context.Context) ([]*models.PriceObservation, error)
}

// NewsFetcher is the news API client used by the news collector.
type NewsFetcher interface {
	FetchNews(ctx context.Context) ([]*models.NewsObservation, error)
}

// PriceCollector pulls raw price observations from the exchange and ships
// them to the message bus. It runs the REST poller on a fixed interval and,
// when a stream is configured, relays live stream observations as well.
type PriceCollector struct {
	fetcher   PriceFetcher
	stream    drepo.PriceStream // nil disables streaming
	publisher drepo.Publisher
	metrics   drepo.Metrics
	interval  time.Duration
	l         *applogger.Logger
}

func NewPriceCollector(
	fetcher PriceFetcher,
	stream drepo.PriceStream,
	publisher drepo.Publisher,
	metrics drepo.Metrics,
	interval time.Duration,
	l *applogger.Logger,
) *PriceCollector {
	return &PriceCollector{
		fetcher:   fetcher,
		stream:    stream,
		publisher: publisher,
		metrics:   metrics,
		interval:  interval,
		l:         l,
	}
}

// Run blocks until ctx is cancelled.
func (c *PriceCollector) Run(ctx context.Context) {
	if c.stream != nil {
		go c.runStream(ctx)
	}

	c.pollOnce(ctx)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(ctx)
		}
	}
}

func (c *PriceCollector) pollOnce(ctx context.Context) {
	start := time.Now()
	obs, err := c.fetcher.FetchPrices(ctx)
	if err != nil {
		c.l.Error("price collector: poll failed", applogger.Error(err))
		c.metrics.RecordError("price_poll")
		return
	}
	c.metrics.RecordLatency("price_poll", time.Since(start).Seconds())

	if len(obs) == 0 {
		return
	}
	if err := c.publisher.PublishPriceBatch(ctx, obs); err != nil {
		c.l.Error("price collector: publish failed", applogger.Error(err))
		c.metrics.RecordError("price_publish")
	}
}

func (c *PriceCollector) runStream(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if !c.stream.IsConnected() {
			if err := c.connectStream(ctx); err != nil {
				c.l.Error("price collector: stream connect failed",
					applogger.Error(err))
				c.metrics.RecordError("stream_connect")
				select {
				case <-ctx.Done():
					return
				case <-time.After(5 * time.Second):
				}
				continue
			}
		}

		obs, errs := c.stream.Read(ctx)
		c.relay(ctx, obs, errs)
		// Read loop ended: either ctx is done or the socket failed
		if ctx.Err() != nil {
			_ = c.stream.Close()
			return
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.l.Error("price collector: reconnect failed", applogger.Error(err))
			c.metrics.RecordError("stream_reconnect")
		}
	}
}

func (c *PriceCollector) connectStream(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	return c.stream.Subscribe(ctx)
}

func (c *PriceCollector) relay(ctx context.Context, obs <-chan *models.PriceObservation, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				return
			}
			if err != nil {
				c.l.Warn("price collector: stream error", applogger.Error(err))
				c.metrics.RecordError("stream_read")
				return
			}
		case o, ok := <-obs:
			if !ok {
				return
			}
			if err := c.publisher.PublishPrice(ctx, o); err != nil {
				c.l.Error("price collector: stream publish failed",
					applogger.String("symbol", o.Symbol),
					applogger.Error(err))
				c.metrics.RecordError("price_publish")
			}
		}
	}
}

// NewsCollector polls the news API and ships observations to the bus.
type NewsCollector struct {
	fetcher   NewsFetcher
	publisher drepo.Publisher
	metrics   drepo.Metrics
	interval  time.Duration
	l         *applogger.Logger
}

func NewNewsCollector(
	fetcher NewsFetcher,
	publisher drepo.Publisher,
	metrics drepo.Metrics,
	interval time.Duration,
	l *applogger.Logger,
) *NewsCollector {
	return &NewsCollector{
		fetcher:   fetcher,
		publisher: publisher,
		metrics:   metrics,
		interval:  interval,
		l:         l,
	}
}

// Run blocks until ctx is cancelled.
func (c *NewsCollector) Run(ctx context.Context) {
	c.pollOnce(ctx)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollOnce(ctx)
		}
	}
}

func (c *NewsCollector) pollOnce(ctx context.Context) {
	start := time.Now()
	obs, err := c.fetcher.FetchNews(ctx)
	if err != nil {
		c.l.Error("news collector: poll failed", applogger.Error(err))
		c.metrics.RecordError("news_poll")
		return
	}
	c.metrics.RecordLatency("news_poll", time.Since(start).Seconds())

	if len(obs) == 0 {
		return
	}
	batch := make([]models.NewsObservation, len(obs))
	for i, o := range obs {
		batch[i] = *o
	}
	if err := c.publisher.PublishNewsBatch(ctx, batch); err != nil {
		c.l.Error("news collector: publish failed", applogger.Error(err))
		c.metrics.RecordError("news_publish")
	}
}
