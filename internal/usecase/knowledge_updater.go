package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"CoinSage/internal/domain/models"
	drepo "CoinSage/internal/domain/repository"
	"CoinSage/internal/service/features"
	"CoinSage/internal/service/knowledge"
	"CoinSage/internal/service/prediction"
	"CoinSage/pkg/cache"
	applogger "CoinSage/pkg/logger"
	"CoinSage/pkg/queue"
)

// PipelineConfig holds the per-tick pipeline parameters.
type PipelineConfig struct {
	Symbols       []string
	PriceLimit    int
	NewsLimit     int
	NewsBucket    time.Duration
	Normalization features.NormMethod
	Lags          []int
	Features      features.Config

	// QueueRetrain defers model refresh to the job queue instead of running
	// it inline with the pipeline tick.
	QueueRetrain bool
}

// RetrainPayload is the queue message asking for a model refresh.
type RetrainPayload struct {
	Symbol string `json:"symbol"`
}

const retrainMessageType = "model.retrain"

// lock TTL bounds how long a crashed run can block the next one
const symbolLockTTL = 30 * time.Minute

// KnowledgeUpdater runs the per-symbol feature pipeline: load raw
// observations, derive feature tables, persist knowledge items and refresh
// the prediction models. Symbol runs are independent and execute
// concurrently.
type KnowledgeUpdater struct {
	market    drepo.MarketStore
	knowStore drepo.KnowledgeStore
	engine    *prediction.Engine
	cache     cache.Service
	jobs      queue.Service
	metrics   drepo.Metrics
	l         *applogger.Logger
	cfg       PipelineConfig
}

func NewKnowledgeUpdater(
	market drepo.MarketStore,
	knowStore drepo.KnowledgeStore,
	engine *prediction.Engine,
	cacheSvc cache.Service,
	jobs queue.Service,
	metrics drepo.Metrics,
	l *applogger.Logger,
	cfg PipelineConfig,
) *KnowledgeUpdater {
	return &KnowledgeUpdater{
		market:    market,
		knowStore: knowStore,
		engine:    engine,
		cache:     cacheSvc,
		jobs:      jobs,
		metrics:   metrics,
		l:         l,
		cfg:       cfg,
	}
}

// UpdateKnowledgeBase runs the pipeline once for every configured symbol.
// Each symbol runs in its own goroutine; one symbol failing never blocks the
// others. The returned error joins per-symbol failures.
func (u *KnowledgeUpdater) UpdateKnowledgeBase(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, symbol := range u.cfg.Symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			if err := u.runSymbol(ctx, symbol); err != nil {
				u.l.Error("pipeline: symbol run failed",
					applogger.String("symbol", symbol),
					applogger.Error(err))
				u.metrics.RecordError("pipeline_run")
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", symbol, err))
				mu.Unlock()
			}
		}(symbol)
	}
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("pipeline: %d of %d symbols failed: %w",
			len(errs), len(u.cfg.Symbols), errs[0])
	}
	return nil
}

func (u *KnowledgeUpdater) runSymbol(ctx context.Context, symbol string) error {
	lockKey := cache.Key("pipeline:lock", symbol)
	ok, err := u.cache.TryLock(ctx, lockKey, symbolLockTTL)
	if err != nil {
		u.l.Warn("pipeline: lock check failed, running anyway",
			applogger.String("symbol", symbol), applogger.Error(err))
	} else if !ok {
		u.l.Info("pipeline: previous run still active, skipping",
			applogger.String("symbol", symbol))
		return nil
	}
	if err == nil {
		defer func() { _ = u.cache.Unlock(context.WithoutCancel(ctx), lockKey) }()
	}

	start := time.Now()
	defer func() {
		u.metrics.RecordPipelineRun(symbol, time.Since(start).Seconds())
	}()

	priceRows, newsRows, merged, err := u.buildFeatureTables(ctx, symbol)
	if err != nil {
		return err
	}
	if len(priceRows) == 0 {
		u.l.Info("pipeline: not enough price history yet",
			applogger.String("symbol", symbol),
			applogger.Int("min_observations", features.MinObservations(u.cfg.Features)))
		return nil
	}

	items := knowledge.ExtractPriceKnowledge(symbol, priceRows)
	items = append(items, knowledge.ExtractNewsKnowledge(symbol, newsRows)...)
	if len(items) > 0 {
		if err := u.knowStore.SaveItems(ctx, items); err != nil {
			return fmt.Errorf("save knowledge items: %w", err)
		}
		u.metrics.RecordKnowledgeItems(symbol, len(items))
	}

	if u.cfg.QueueRetrain && u.jobs != nil {
		if err := u.jobs.PublishMessage(ctx, retrainMessageType, RetrainPayload{Symbol: symbol}); err != nil {
			return fmt.Errorf("enqueue retrain: %w", err)
		}
		u.l.Debug("pipeline: retrain queued", applogger.String("symbol", symbol))
		return nil
	}
	return u.engine.UpdateModels(ctx, symbol, merged)
}

// RetrainModels rebuilds the merged feature table for symbol and refreshes
// its models. Used by the queued retrain job.
func (u *KnowledgeUpdater) RetrainModels(ctx context.Context, symbol string) error {
	_, _, merged, err := u.buildFeatureTables(ctx, symbol)
	if err != nil {
		return err
	}
	return u.engine.UpdateModels(ctx, symbol, merged)
}

func (u *KnowledgeUpdater) buildFeatureTables(ctx context.Context, symbol string) (
	[]models.PriceFeatureRow, []models.NewsFeatureRow, []models.MergedFeatureRow, error,
) {
	prices, err := u.market.LatestPrices(ctx, symbol, u.cfg.PriceLimit)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load prices: %w", err)
	}
	news, err := u.market.LatestNews(ctx, BaseCurrency(symbol), u.cfg.NewsLimit)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load news: %w", err)
	}

	priceRows := features.ExtractPriceFeatures(prices, u.cfg.Features)
	newsRows := features.ExtractNewsSentimentFeatures(news, u.cfg.NewsBucket)

	merged := features.Merge(priceRows, newsRows)
	merged = features.Normalize(merged, u.cfg.Normalization)
	if len(u.cfg.Lags) > 0 {
		merged = features.CreateLaggedFeatures(merged, u.cfg.Lags, nil)
	}
	return priceRows, newsRows, merged, nil
}

var quoteAssets = []string{"USDT", "BUSD", "USDC", "USD", "BTC", "ETH", "EUR"}

// BaseCurrency strips a known quote asset suffix from a trading pair, mapping
// e.g. "BTCUSDT" to "BTC". Unknown pairs pass through unchanged.
func BaseCurrency(symbol string) string {
	s := strings.ToUpper(symbol)
	for _, quote := range quoteAssets {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return strings.TrimSuffix(s, quote)
		}
	}
	return s
}
