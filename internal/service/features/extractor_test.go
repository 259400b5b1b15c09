package features

import (
	"math"
	"testing"
	"time"

	"CoinSage/internal/domain/models"
)

func smallConfig() Config {
	return Config{
		Change1h:   1,
		Change24h:  2,
		MA5:        2,
		MA20:       2,
		MA50:       2,
		MA200:      2,
		BollingerK: 2,
		RSIPeriod:  2,
		MACDFast:   2,
		MACDSlow:   3,
		MACDSignal: 2,
	}
}

func priceObs(base time.Time, prices ...float64) []models.PriceObservation {
	obs := make([]models.PriceObservation, len(prices))
	for i, p := range prices {
		obs[i] = models.PriceObservation{
			Symbol:    "BTCUSDT",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Price:     p,
			Volume:    100 + float64(i),
		}
	}
	return obs
}

func TestExtractPriceFeaturesDropsWarmupRows(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := priceObs(base, 10, 11, 12, 13, 14)

	rows := ExtractPriceFeatures(obs, smallConfig())
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows after warmup, got %d", len(rows))
	}
	if !rows[0].Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("unexpected first row timestamp %v", rows[0].Timestamp)
	}
	// every returned row is fully defined
	for _, r := range rows {
		if math.IsNaN(r.PriceChange24h) || math.IsNaN(r.RSI14) || math.IsNaN(r.MACDSignal) {
			t.Fatalf("row %v contains NaN", r.Timestamp)
		}
	}
}

func TestExtractPriceFeaturesValues(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := priceObs(base, 10, 11, 12, 13, 14)

	rows := ExtractPriceFeatures(obs, smallConfig())
	last := rows[len(rows)-1]

	// 14/12 - 1 over the 2-sample window
	if diff := math.Abs(last.PriceChange24h - (14.0/12.0 - 1)); diff > 1e-9 {
		t.Fatalf("price_change_24h = %v", last.PriceChange24h)
	}
	if diff := math.Abs(last.MA20 - 13.5); diff > 1e-9 {
		t.Fatalf("ma_20 = %v", last.MA20)
	}
	// population std of {13, 14} is 0.5; bands are MA20 +/- 2*std
	if diff := math.Abs(last.UpperBand - 14.5); diff > 1e-9 {
		t.Fatalf("upper_band = %v", last.UpperBand)
	}
	if diff := math.Abs(last.LowerBand - 12.5); diff > 1e-9 {
		t.Fatalf("lower_band = %v", last.LowerBand)
	}
	if last.MACDHist != last.MACD-last.MACDSignal {
		t.Fatalf("macd_hist = %v, macd-signal = %v", last.MACDHist, last.MACD-last.MACDSignal)
	}
}

func TestExtractPriceFeaturesRSIClampOnMonotonicRise(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := priceObs(base, 10, 11, 12, 13, 14, 15)

	rows := ExtractPriceFeatures(obs, smallConfig())
	for _, r := range rows {
		if r.RSI14 != 100 {
			t.Fatalf("expected RSI 100 on monotonic rise, got %v at %v", r.RSI14, r.Timestamp)
		}
	}
}

func TestExtractPriceFeaturesLinearRise(t *testing.T) {
	cfg := Config{
		Change1h:   12,
		Change24h:  48,
		MA5:        5,
		MA20:       20,
		MA50:       50,
		MA200:      50,
		BollingerK: 2,
		RSIPeriod:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]models.PriceObservation, 60)
	for i := range obs {
		obs[i] = models.PriceObservation{
			Symbol:    "BTCUSDT",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Price:     100 + float64(i),
			Volume:    1000,
		}
	}

	rows := ExtractPriceFeatures(obs, cfg)
	if len(rows) != 11 {
		t.Fatalf("expected 11 rows after the 50-sample warmup, got %d", len(rows))
	}
	if !rows[0].Timestamp.Equal(base.Add(49 * time.Minute)) {
		t.Fatalf("unexpected first row timestamp %v", rows[0].Timestamp)
	}
	for _, r := range rows {
		if r.RSI14 != 100 {
			t.Fatalf("RSI = %v at %v on a strict rise", r.RSI14, r.Timestamp)
		}
		if r.MACDHist <= 0 {
			t.Fatalf("macd_hist = %v at %v, must stay positive on a strict rise", r.MACDHist, r.Timestamp)
		}
		if r.PriceChange24h <= 0 {
			t.Fatalf("price_change_24h = %v at %v", r.PriceChange24h, r.Timestamp)
		}
	}
}

func TestExtractPriceFeaturesDedupLastWins(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := priceObs(base, 10, 11, 12, 13, 14)
	// duplicate of the last timestamp with a different price; later wins
	obs = append(obs, models.PriceObservation{
		Symbol:    "BTCUSDT",
		Timestamp: base.Add(4 * time.Minute),
		Price:     99,
		Volume:    104,
	})

	rows := ExtractPriceFeatures(obs, smallConfig())
	last := rows[len(rows)-1]
	if last.Price != 99 {
		t.Fatalf("expected duplicate timestamp to keep last value, got price %v", last.Price)
	}
}

func TestExtractPriceFeaturesUnsortedInput(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sorted := priceObs(base, 10, 11, 12, 13, 14)
	shuffled := []models.PriceObservation{sorted[3], sorted[0], sorted[4], sorted[1], sorted[2]}

	a := ExtractPriceFeatures(sorted, smallConfig())
	b := ExtractPriceFeatures(shuffled, smallConfig())
	if len(a) != len(b) {
		t.Fatalf("row counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("row %d differs between sorted and shuffled input", i)
		}
	}
}

func TestExtractPriceFeaturesEmptyInput(t *testing.T) {
	if rows := ExtractPriceFeatures(nil, DefaultConfig()); len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestMinObservations(t *testing.T) {
	if got := MinObservations(DefaultConfig()); got != 1440 {
		t.Fatalf("expected 1440, got %d", got)
	}
	if got := MinObservations(smallConfig()); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}
