package knowledge

import (
	"testing"
	"time"

	"CoinSage/internal/domain/models"
)

func featureRow(ts time.Time, ma20, ma50 float64) models.PriceFeatureRow {
	return models.PriceFeatureRow{
		Timestamp:       ts,
		Price:           100,
		Volume:          1000,
		PriceChange24h:  0.05,
		VolumeChange24h: -0.1,
		MA20:            ma20,
		MA50:            ma50,
		RSI14:           61.8,
		MACD:            1.5,
		MACDHist:        0.3,
	}
}

func TestExtractPriceKnowledgeLatestRowOnly(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := []models.PriceFeatureRow{
		featureRow(t1, 90, 95),
		featureRow(t1.Add(time.Hour), 105, 95),
	}

	items := ExtractPriceKnowledge("BTCUSDT", rows)
	if len(items) != 6 {
		t.Fatalf("expected 6 items, got %d", len(items))
	}
	for _, item := range items {
		if !item.Timestamp.Equal(t1.Add(time.Hour)) {
			t.Fatalf("item %q not from the latest row: %v", item.FeatureName, item.Timestamp)
		}
		if item.Symbol != "BTCUSDT" {
			t.Fatalf("wrong symbol %q", item.Symbol)
		}
	}

	byName := make(map[string]models.KnowledgeItem, len(items))
	for _, item := range items {
		byName[item.FeatureName] = item
	}

	pc := byName["price_change_24h"]
	if pc.DataType != models.DataTypePrice || pc.FeatureValue == nil || *pc.FeatureValue != 0.05 {
		t.Fatalf("price_change_24h item wrong: %+v", pc)
	}
	if pc.Metadata["price"] != 100 {
		t.Fatalf("expected price metadata, got %+v", pc.Metadata)
	}

	rsi := byName["rsi_14"]
	if rsi.DataType != models.DataTypeTechnical || *rsi.FeatureValue != 61.8 {
		t.Fatalf("rsi_14 item wrong: %+v", rsi)
	}

	cross := byName["ma_cross"]
	if cross.FeatureText != "bullish" {
		t.Fatalf("expected bullish cross (ma20 105 > ma50 95), got %q", cross.FeatureText)
	}
}

func TestExtractPriceKnowledgeEqualAveragesAreBearish(t *testing.T) {
	rows := []models.PriceFeatureRow{
		featureRow(time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC), 100, 100),
	}
	items := ExtractPriceKnowledge("BTCUSDT", rows)
	for _, item := range items {
		if item.FeatureName == "ma_cross" {
			if item.FeatureText != "bearish" {
				t.Fatalf("equal averages must read bearish, got %q", item.FeatureText)
			}
			return
		}
	}
	t.Fatalf("ma_cross item missing")
}

func TestExtractPriceKnowledgeEmptyInput(t *testing.T) {
	items := ExtractPriceKnowledge("BTCUSDT", nil)
	if items == nil {
		t.Fatalf("expected non-nil empty slice")
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestExtractNewsKnowledge(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := []models.NewsFeatureRow{
		{Bucket: t1, NewsCount: 2, AvgSentiment: 0.1},
		{Bucket: t1.Add(time.Hour), NewsCount: 5, AvgSentiment: 0.2, WeightedSentiment: 0.28, ImportanceAvg: 0.68},
	}

	items := ExtractNewsKnowledge("ETHUSDT", rows)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for _, item := range items {
		if item.DataType != models.DataTypeNews {
			t.Fatalf("wrong data type %q", item.DataType)
		}
		if !item.Timestamp.Equal(t1.Add(time.Hour)) {
			t.Fatalf("item %q not from the latest bucket", item.FeatureName)
		}
		if item.Metadata["news_count"] != 5 {
			t.Fatalf("expected news_count metadata 5, got %v", item.Metadata["news_count"])
		}
	}
	if *items[0].FeatureValue != 0.2 || *items[1].FeatureValue != 0.28 || *items[2].FeatureValue != 0.68 {
		t.Fatalf("unexpected values: %v %v %v",
			*items[0].FeatureValue, *items[1].FeatureValue, *items[2].FeatureValue)
	}
}

func TestExtractNewsKnowledgeEmptyInput(t *testing.T) {
	items := ExtractNewsKnowledge("ETHUSDT", nil)
	if items == nil || len(items) != 0 {
		t.Fatalf("expected non-nil empty slice, got %v", items)
	}
}
