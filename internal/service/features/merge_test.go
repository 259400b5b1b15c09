package features

import (
	"math"
	"testing"
	"time"

	"CoinSage/internal/domain/models"
)

func priceRow(ts time.Time, price float64) models.PriceFeatureRow {
	return models.PriceFeatureRow{
		Timestamp: ts,
		Price:     price,
		Volume:    price * 10,
		MA20:      price,
		MA50:      price,
		RSI14:     50,
	}
}

func newsRow(ts time.Time, avg float64) models.NewsFeatureRow {
	return models.NewsFeatureRow{
		Bucket:       ts,
		NewsCount:    1,
		AvgSentiment: avg,
	}
}

func TestMergeFillPolicy(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	price := []models.PriceFeatureRow{priceRow(t1, 100), priceRow(t2, 110)}
	news := []models.NewsFeatureRow{newsRow(t2, 0.5), newsRow(t3, -0.5)}

	merged := Merge(price, news)
	if len(merged) != 3 {
		t.Fatalf("expected 3 merged rows, got %d", len(merged))
	}

	// t1: price only, news columns are zero
	if !merged[0].HasPrice || merged[0].Price.Price != 100 {
		t.Fatalf("t1 price missing: %+v", merged[0])
	}
	if merged[0].News.AvgSentiment != 0 || merged[0].News.NewsCount != 0 {
		t.Fatalf("t1 news columns not zero: %+v", merged[0].News)
	}

	// t2: both sides present
	if merged[1].Price.Price != 110 || merged[1].News.AvgSentiment != 0.5 {
		t.Fatalf("t2 join wrong: %+v", merged[1])
	}

	// t3: news only, price forward-filled from t2
	if !merged[2].HasPrice || merged[2].Price.Price != 110 {
		t.Fatalf("t3 price not forward-filled: %+v", merged[2])
	}
	if merged[2].News.AvgSentiment != -0.5 {
		t.Fatalf("t3 news wrong: %+v", merged[2].News)
	}
}

func TestMergeNewsBeforeFirstPrice(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	merged := Merge(
		[]models.PriceFeatureRow{priceRow(t2, 100)},
		[]models.NewsFeatureRow{newsRow(t1, 1)},
	)
	if len(merged) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(merged))
	}
	if merged[0].HasPrice {
		t.Fatalf("row before first price must not carry price data")
	}
	if !merged[1].HasPrice {
		t.Fatalf("second row should carry price data")
	}
}

func TestMergeEmptySides(t *testing.T) {
	if got := Merge(nil, nil); got != nil {
		t.Fatalf("expected nil for empty input")
	}

	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	onlyPrice := Merge([]models.PriceFeatureRow{priceRow(t1, 100)}, nil)
	if len(onlyPrice) != 1 || !onlyPrice[0].HasPrice {
		t.Fatalf("price-only merge wrong: %+v", onlyPrice)
	}
	onlyNews := Merge(nil, []models.NewsFeatureRow{newsRow(t1, 1)})
	if len(onlyNews) != 1 || onlyNews[0].HasPrice {
		t.Fatalf("news-only merge wrong: %+v", onlyNews)
	}
}

func TestMergePermutationInvariance(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	price := []models.PriceFeatureRow{
		priceRow(t1, 100),
		priceRow(t1.Add(time.Hour), 110),
		priceRow(t1.Add(2*time.Hour), 120),
	}
	news := []models.NewsFeatureRow{
		newsRow(t1.Add(time.Hour), 0.5),
		newsRow(t1.Add(3*time.Hour), -0.5),
	}
	priceRev := []models.PriceFeatureRow{price[2], price[0], price[1]}
	newsRev := []models.NewsFeatureRow{news[1], news[0]}

	a := Merge(price, news)
	b := Merge(priceRev, newsRev)
	if len(a) != len(b) {
		t.Fatalf("row counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Timestamp != b[i].Timestamp || a[i].HasPrice != b[i].HasPrice ||
			a[i].Price != b[i].Price || a[i].News != b[i].News {
			t.Fatalf("row %d differs across input orderings", i)
		}
	}
}

func TestNormalizeMinMax(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := Merge([]models.PriceFeatureRow{
		priceRow(t1, 100),
		priceRow(t1.Add(time.Hour), 150),
		priceRow(t1.Add(2*time.Hour), 200),
	}, nil)

	out := Normalize(rows, NormMinMax)
	if out[0].Price.Price != 0 || out[2].Price.Price != 1 {
		t.Fatalf("minmax endpoints: %v .. %v", out[0].Price.Price, out[2].Price.Price)
	}
	if math.Abs(out[1].Price.Price-0.5) > 1e-9 {
		t.Fatalf("minmax midpoint = %v", out[1].Price.Price)
	}
	// input untouched
	if rows[0].Price.Price != 100 {
		t.Fatalf("input mutated: %v", rows[0].Price.Price)
	}
}

func TestNormalizeZScore(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := Merge([]models.PriceFeatureRow{
		priceRow(t1, 100),
		priceRow(t1.Add(time.Hour), 200),
	}, nil)

	out := Normalize(rows, NormZScore)
	if math.Abs(out[0].Price.Price+1) > 1e-9 || math.Abs(out[1].Price.Price-1) > 1e-9 {
		t.Fatalf("zscore values: %v, %v", out[0].Price.Price, out[1].Price.Price)
	}
}

func TestNormalizeConstantColumnUntouched(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := Merge([]models.PriceFeatureRow{
		priceRow(t1, 100),
		priceRow(t1.Add(time.Hour), 100),
	}, nil)

	for _, method := range []NormMethod{NormMinMax, NormZScore} {
		out := Normalize(rows, method)
		if out[0].Price.Price != 100 || out[1].Price.Price != 100 {
			t.Fatalf("%s: constant column changed to %v, %v",
				method, out[0].Price.Price, out[1].Price.Price)
		}
	}
}

func TestCreateLaggedFeatures(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := Merge([]models.PriceFeatureRow{
		priceRow(t1, 100),
		priceRow(t1.Add(time.Hour), 110),
		priceRow(t1.Add(2*time.Hour), 120),
	}, nil)

	out := CreateLaggedFeatures(rows, []int{1, 2}, []string{"price"})
	if len(out) != 1 {
		t.Fatalf("expected 1 row with enough lag history, got %d", len(out))
	}
	if out[0].Lags["price_lag_1"] != 110 || out[0].Lags["price_lag_2"] != 100 {
		t.Fatalf("lag values: %+v", out[0].Lags)
	}
	// input untouched
	if rows[0].Lags != nil {
		t.Fatalf("input rows mutated")
	}
}

func TestCreateLaggedFeaturesNoLags(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := Merge([]models.PriceFeatureRow{priceRow(t1, 100)}, nil)

	out := CreateLaggedFeatures(rows, nil, nil)
	if len(out) != 1 {
		t.Fatalf("expected passthrough, got %d rows", len(out))
	}
}
