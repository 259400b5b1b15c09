package features

import (
	"math"
	"testing"
	"time"

	"CoinSage/internal/domain/models"
)

func newsObs(currency string, at time.Time, sentiment models.Sentiment, importance float64) models.NewsObservation {
	imp := importance
	return models.NewsObservation{
		ExternalID:  currency + at.String(),
		Currency:    currency,
		Title:       "headline",
		Sentiment:   sentiment,
		Importance:  &imp,
		PublishedAt: at,
	}
}

func TestNewsSentimentSingleBucket(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC)
	obs := []models.NewsObservation{
		newsObs("ETH", at, models.SentimentPositive, 0.8),
		newsObs("ETH", at.Add(time.Minute), models.SentimentPositive, 0.8),
		newsObs("ETH", at.Add(2*time.Minute), models.SentimentPositive, 0.8),
		newsObs("ETH", at.Add(3*time.Minute), models.SentimentNegative, 0.5),
		newsObs("ETH", at.Add(4*time.Minute), models.SentimentNegative, 0.5),
	}

	rows := ExtractNewsSentimentFeatures(obs, time.Hour)
	if len(rows) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(rows))
	}
	r := rows[0]
	if !r.Bucket.Equal(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected bucket %v", r.Bucket)
	}
	if r.NewsCount != 5 {
		t.Fatalf("news_count = %d", r.NewsCount)
	}
	if math.Abs(r.AvgSentiment-0.2) > 1e-9 {
		t.Fatalf("avg_sentiment = %v", r.AvgSentiment)
	}
	if math.Abs(r.WeightedSentiment-0.28) > 1e-9 {
		t.Fatalf("weighted_sentiment = %v", r.WeightedSentiment)
	}
	if math.Abs(r.PositiveRatio-0.6) > 1e-9 || math.Abs(r.NegativeRatio-0.4) > 1e-9 {
		t.Fatalf("ratios = %v / %v", r.PositiveRatio, r.NegativeRatio)
	}
	if math.Abs(r.ImportanceAvg-0.68) > 1e-9 {
		t.Fatalf("importance_avg = %v", r.ImportanceAvg)
	}
}

func TestNewsSentimentGapFilledWithZeroRows(t *testing.T) {
	obs := []models.NewsObservation{
		newsObs("BTC", time.Date(2026, 1, 1, 10, 15, 0, 0, time.UTC), models.SentimentPositive, 1),
		newsObs("BTC", time.Date(2026, 1, 1, 12, 45, 0, 0, time.UTC), models.SentimentNegative, 1),
	}

	rows := ExtractNewsSentimentFeatures(obs, time.Hour)
	if len(rows) != 3 {
		t.Fatalf("expected 3 buckets across the span, got %d", len(rows))
	}
	gap := rows[1]
	if !gap.Bucket.Equal(time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected gap bucket %v", gap.Bucket)
	}
	if gap.NewsCount != 0 || gap.AvgSentiment != 0 || gap.WeightedSentiment != 0 ||
		gap.PositiveRatio != 0 || gap.NegativeRatio != 0 || gap.ImportanceAvg != 0 {
		t.Fatalf("gap bucket is not all-zero: %+v", gap)
	}
}

func TestNewsSentimentMissingImportance(t *testing.T) {
	at := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	obs := []models.NewsObservation{
		{
			ExternalID:  "1",
			Currency:    "BTC",
			Sentiment:   models.SentimentPositive,
			Importance:  nil, // treated as 0, must not abort the batch
			PublishedAt: at,
		},
		newsObs("BTC", at.Add(time.Minute), models.SentimentPositive, 0.6),
	}

	rows := ExtractNewsSentimentFeatures(obs, time.Hour)
	if len(rows) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(rows))
	}
	if rows[0].NewsCount != 2 {
		t.Fatalf("news_count = %d", rows[0].NewsCount)
	}
	if math.Abs(rows[0].ImportanceAvg-0.3) > 1e-9 {
		t.Fatalf("importance_avg = %v", rows[0].ImportanceAvg)
	}
	if math.Abs(rows[0].WeightedSentiment-0.3) > 1e-9 {
		t.Fatalf("weighted_sentiment = %v", rows[0].WeightedSentiment)
	}
}

func TestNewsSentimentEmptyInput(t *testing.T) {
	if rows := ExtractNewsSentimentFeatures(nil, time.Hour); rows != nil {
		t.Fatalf("expected nil, got %d rows", len(rows))
	}
}

func TestNewsSentimentPermutationInvariance(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	obs := []models.NewsObservation{
		newsObs("ETH", at, models.SentimentPositive, 0.8),
		newsObs("ETH", at.Add(90*time.Minute), models.SentimentNegative, 0.5),
		newsObs("ETH", at.Add(10*time.Minute), models.SentimentNeutral, 0.2),
	}
	reversed := []models.NewsObservation{obs[2], obs[1], obs[0]}

	a := ExtractNewsSentimentFeatures(obs, time.Hour)
	b := ExtractNewsSentimentFeatures(reversed, time.Hour)
	if len(a) != len(b) {
		t.Fatalf("row counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bucket %d differs across input orderings", i)
		}
	}
}
