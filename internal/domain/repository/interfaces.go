package repository

import (
	"context"
	"time"

	"CoinSage/internal/domain/models"
)

// PriceStream is a live exchange feed producing raw price observations.
type PriceStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.PriceObservation, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher ships raw observations to the message bus.
type Publisher interface {
	PublishPrice(ctx context.Context, o *models.PriceObservation) error
	PublishPriceBatch(ctx context.Context, obs []*models.PriceObservation) error
	PublishNewsBatch(ctx context.Context, obs []models.NewsObservation) error
	Close() error
}

// MarketStore persists and serves raw observations.
type MarketStore interface {
	Init(ctx context.Context) error // ensure tables, health check
	StorePrice(ctx context.Context, o *models.PriceObservation) error
	StorePriceBatch(ctx context.Context, obs []*models.PriceObservation) error
	StoreNewsBatch(ctx context.Context, obs []models.NewsObservation) error

	// LatestPrices returns up to limit observations for symbol in ascending
	// time order.
	LatestPrices(ctx context.Context, symbol string, limit int) ([]models.PriceObservation, error)
	// LatestNews returns up to limit news observations for currency in
	// ascending publish order.
	LatestNews(ctx context.Context, currency string, limit int) ([]models.NewsObservation, error)

	Health(ctx context.Context) error
	Close() error
}

// KnowledgeFilter narrows a knowledge query. Zero values mean "any".
type KnowledgeFilter struct {
	Symbol   string
	DataType models.DataType
	From     time.Time
	To       time.Time
	Limit    int
}

// KnowledgeStore persists derived knowledge items. Items are write-once.
type KnowledgeStore interface {
	SaveItems(ctx context.Context, items []models.KnowledgeItem) error
	Query(ctx context.Context, f KnowledgeFilter) ([]models.KnowledgeItem, error)
}

// ModelRegistry is the transactional store of model metadata. Activate must
// deactivate any prior active row for the same name and insert the new row
// as a single atomic unit; a concurrent reader can never observe zero or two
// active rows for one name.
type ModelRegistry interface {
	Activate(ctx context.Context, m *models.PredictionModel) (int64, error)
	ActiveModel(ctx context.Context, symbol string, purpose models.ModelPurpose) (*models.PredictionModel, error)
	ListModels(ctx context.Context, symbol string) ([]models.PredictionModel, error)
	SavePrediction(ctx context.Context, p *models.Prediction) error
	LatestPredictions(ctx context.Context, symbol string, limit int) ([]models.Prediction, error)
}

// BinaryStore persists serialized model weights. Save must be durable before
// the caller commits the matching registry row, so an active metadata row
// never points at a missing binary.
type BinaryStore interface {
	Save(symbol string, purpose models.ModelPurpose, blob []byte) error
	Load(symbol string, purpose models.ModelPurpose) ([]byte, error)
}

// Metrics is the pipeline's metrics sink.
type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordPipelineRun(symbol string, seconds float64)
	RecordKnowledgeItems(symbol string, n int)
	RecordModelPerformance(symbol, purpose, metric string, value float64)
}
