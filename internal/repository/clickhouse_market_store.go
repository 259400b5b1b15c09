package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"CoinSage/internal/domain/models"
	pkgch "CoinSage/pkg/clickhouse"
	applogger "CoinSage/pkg/logger"
)

// CHMarketStore persists raw price and news observations in ClickHouse.
// ReplacingMergeTree keyed on the natural identity of each observation makes
// re-ingestion after a collector restart idempotent.
type CHMarketStore struct {
	client *pkgch.Client
	l      *applogger.Logger
}

// NewCHMarketStore creates a ClickHouse-backed market store.
func NewCHMarketStore(client *pkgch.Client, l *applogger.Logger) *CHMarketStore {
	return &CHMarketStore{client: client, l: l}
}

// Init ensures tables exist and the connection is healthy.
func (s *CHMarketStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_observations (
			symbol LowCardinality(String),
			ts DateTime64(3, 'UTC'),
			price Float64,
			volume Float64
		) ENGINE = ReplacingMergeTree
		PARTITION BY toYYYYMM(ts)
		ORDER BY (symbol, ts)`,
		`CREATE TABLE IF NOT EXISTS news_observations (
			external_id String,
			currency LowCardinality(String),
			title String,
			url String,
			sentiment LowCardinality(String),
			importance Nullable(Float64),
			published_at DateTime64(3, 'UTC')
		) ENGINE = ReplacingMergeTree
		PARTITION BY toYYYYMM(published_at)
		ORDER BY (currency, published_at, external_id)`,
	}
	if err := s.client.InitSchema(ctx, stmts); err != nil {
		return fmt.Errorf("market store init: %w", err)
	}
	return s.client.Health(ctx)
}

// StorePrice inserts a single price observation.
func (s *CHMarketStore) StorePrice(ctx context.Context, o *models.PriceObservation) error {
	return s.StorePriceBatch(ctx, []*models.PriceObservation{o})
}

// StorePriceBatch inserts price observations in one batch.
func (s *CHMarketStore) StorePriceBatch(ctx context.Context, obs []*models.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO price_observations (symbol, ts, price, volume) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx, o.Symbol, o.Timestamp, o.Price, o.Volume); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	s.l.Debug("price batch stored", applogger.Int("rows", len(obs)))
	return nil
}

// StoreNewsBatch inserts news observations in one batch.
func (s *CHMarketStore) StoreNewsBatch(ctx context.Context, obs []models.NewsObservation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO news_observations
		 (external_id, currency, title, url, sentiment, importance, published_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		var imp interface{}
		if o.Importance != nil {
			imp = *o.Importance
		}
		if _, err := stmt.ExecContext(ctx,
			o.ExternalID, o.Currency, o.Title, o.URL, string(o.Sentiment), imp, o.PublishedAt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	s.l.Debug("news batch stored", applogger.Int("rows", len(obs)))
	return nil
}

// LatestPrices returns up to limit observations for symbol in ascending time order.
func (s *CHMarketStore) LatestPrices(ctx context.Context, symbol string, limit int) ([]models.PriceObservation, error) {
	rows, err := s.client.DB().QueryContext(ctx,
		`SELECT symbol, ts, price, volume
		 FROM price_observations FINAL
		 WHERE symbol = ?
		 ORDER BY ts DESC
		 LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	var out []models.PriceObservation
	for rows.Next() {
		var o models.PriceObservation
		if err := rows.Scan(&o.Symbol, &o.Timestamp, &o.Price, &o.Volume); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prices: %w", err)
	}

	reverseInPlace(out)
	return out, nil
}

// LatestNews returns up to limit news observations for currency in ascending
// publish order.
func (s *CHMarketStore) LatestNews(ctx context.Context, currency string, limit int) ([]models.NewsObservation, error) {
	rows, err := s.client.DB().QueryContext(ctx,
		`SELECT external_id, currency, title, url, sentiment, importance, published_at
		 FROM news_observations FINAL
		 WHERE currency = ?
		 ORDER BY published_at DESC
		 LIMIT ?`, currency, limit)
	if err != nil {
		return nil, fmt.Errorf("query news: %w", err)
	}
	defer rows.Close()

	var out []models.NewsObservation
	for rows.Next() {
		var (
			o         models.NewsObservation
			sentiment string
			imp       sql.NullFloat64
		)
		if err := rows.Scan(&o.ExternalID, &o.Currency, &o.Title, &o.URL, &sentiment, &imp, &o.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan news: %w", err)
		}
		o.Sentiment = models.Sentiment(sentiment)
		if imp.Valid {
			v := imp.Float64
			o.Importance = &v
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate news: %w", err)
	}

	reverseNewsInPlace(out)
	return out, nil
}

// Health pings the underlying client.
func (s *CHMarketStore) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Health(ctx)
}

// Close closes the underlying client.
func (s *CHMarketStore) Close() error {
	return s.client.Close()
}

func reverseInPlace(obs []models.PriceObservation) {
	for i, j := 0, len(obs)-1; i < j; i, j = i+1, j-1 {
		obs[i], obs[j] = obs[j], obs[i]
	}
}

func reverseNewsInPlace(obs []models.NewsObservation) {
	for i, j := 0, len(obs)-1; i < j; i, j = i+1, j-1 {
		obs[i], obs[j] = obs[j], obs[i]
	}
}
