package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"CoinSage/internal/domain/models"
	drepo "CoinSage/internal/domain/repository"
	applogger "CoinSage/pkg/logger"
)

// PriceIngestHandler consumes raw price observations off the bus and writes
// them to the market store. Registered with the Kafka consumer per topic.
type PriceIngestHandler struct {
	topic string
	store drepo.MarketStore
	l     *applogger.Logger
}

func NewPriceIngestHandler(topic string, store drepo.MarketStore, l *applogger.Logger) *PriceIngestHandler {
	return &PriceIngestHandler{topic: topic, store: store, l: l}
}

func (h *PriceIngestHandler) Topic() string { return h.topic }

func (h *PriceIngestHandler) Handle(ctx context.Context, payload []byte) error {
	var o models.PriceObservation
	if err := json.Unmarshal(payload, &o); err != nil {
		return fmt.Errorf("decode price observation: %w", err)
	}
	if o.Symbol == "" || o.Timestamp.IsZero() {
		return fmt.Errorf("price observation missing symbol or timestamp")
	}
	if err := h.store.StorePrice(ctx, &o); err != nil {
		return fmt.Errorf("store price: %w", err)
	}
	h.l.Debug("ingest: price stored",
		applogger.String("symbol", o.Symbol),
		applogger.Float64("price", o.Price))
	return nil
}

// NewsIngestHandler consumes raw news observations off the bus.
type NewsIngestHandler struct {
	topic string
	store drepo.MarketStore
	l     *applogger.Logger
}

func NewNewsIngestHandler(topic string, store drepo.MarketStore, l *applogger.Logger) *NewsIngestHandler {
	return &NewsIngestHandler{topic: topic, store: store, l: l}
}

func (h *NewsIngestHandler) Topic() string { return h.topic }

func (h *NewsIngestHandler) Handle(ctx context.Context, payload []byte) error {
	var o models.NewsObservation
	if err := json.Unmarshal(payload, &o); err != nil {
		return fmt.Errorf("decode news observation: %w", err)
	}
	if o.ExternalID == "" || o.Currency == "" {
		return fmt.Errorf("news observation missing external_id or currency")
	}
	if err := h.store.StoreNewsBatch(ctx, []models.NewsObservation{o}); err != nil {
		return fmt.Errorf("store news: %w", err)
	}
	h.l.Debug("ingest: news stored",
		applogger.String("currency", o.Currency),
		applogger.String("external_id", o.ExternalID))
	return nil
}
