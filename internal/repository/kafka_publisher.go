package repository

import (
	"context"
	"fmt"

	"CoinSage/internal/domain/models"
	drepo "CoinSage/internal/domain/repository"
	pkgkafka "CoinSage/pkg/kafka"
)

// KafkaPublisher ships raw observations to the message bus, keyed by symbol
// (or currency) so one instrument always lands on one partition.
type KafkaPublisher struct {
	producer    *pkgkafka.Producer
	pricesTopic string
	newsTopic   string
	metrics     drepo.Metrics
}

// NewKafkaPublisher creates a Kafka-backed observation publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, pricesTopic, newsTopic string, metrics drepo.Metrics) *KafkaPublisher {
	return &KafkaPublisher{
		producer:    producer,
		pricesTopic: pricesTopic,
		newsTopic:   newsTopic,
		metrics:     metrics,
	}
}

// PublishPrice publishes a single price observation.
func (p *KafkaPublisher) PublishPrice(ctx context.Context, o *models.PriceObservation) error {
	if err := p.producer.Publish(ctx, p.pricesTopic, []byte(o.Symbol), o); err != nil {
		p.metrics.RecordError("publish_price")
		return fmt.Errorf("publish price: %w", err)
	}
	p.metrics.RecordMessageSent("kafka", o.Symbol)
	p.metrics.RecordLastPrice(o.Symbol, o.Price)
	return nil
}

// PublishPriceBatch publishes price observations in one batch.
func (p *KafkaPublisher) PublishPriceBatch(ctx context.Context, obs []*models.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	msgs := make([]pkgkafka.Message, 0, len(obs))
	for _, o := range obs {
		msgs = append(msgs, pkgkafka.Message{Key: []byte(o.Symbol), Value: o})
	}
	if err := p.producer.PublishBatch(ctx, p.pricesTopic, msgs); err != nil {
		p.metrics.RecordError("publish_price_batch")
		return fmt.Errorf("publish price batch: %w", err)
	}
	for _, o := range obs {
		p.metrics.RecordMessageSent("kafka", o.Symbol)
		p.metrics.RecordLastPrice(o.Symbol, o.Price)
	}
	return nil
}

// PublishNewsBatch publishes news observations in one batch.
func (p *KafkaPublisher) PublishNewsBatch(ctx context.Context, obs []models.NewsObservation) error {
	if len(obs) == 0 {
		return nil
	}

	msgs := make([]pkgkafka.Message, 0, len(obs))
	for _, o := range obs {
		msgs = append(msgs, pkgkafka.Message{Key: []byte(o.Currency), Value: o})
	}
	if err := p.producer.PublishBatch(ctx, p.newsTopic, msgs); err != nil {
		p.metrics.RecordError("publish_news_batch")
		return fmt.Errorf("publish news batch: %w", err)
	}
	for _, o := range obs {
		p.metrics.RecordMessageSent("kafka", o.Currency)
	}
	return nil
}

// Close closes the underlying producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
