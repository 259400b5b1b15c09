package knowledge

import (
	"CoinSage/internal/domain/models"
)

// technicalIndicators is the fixed allow-list of indicator facts snapshotted
// per pipeline run.
var technicalIndicators = []struct {
	name string
	get  func(*models.PriceFeatureRow) float64
}{
	{"rsi_14", func(r *models.PriceFeatureRow) float64 { return r.RSI14 }},
	{"macd", func(r *models.PriceFeatureRow) float64 { return r.MACD }},
	{"macd_hist", func(r *models.PriceFeatureRow) float64 { return r.MACDHist }},
}

// ExtractPriceKnowledge derives fact snapshots from the latest price feature
// row. An empty table yields no items: not enough rolling history yet is the
// normal warm-up state, not an error.
func ExtractPriceKnowledge(symbol string, rows []models.PriceFeatureRow) []models.KnowledgeItem {
	if len(rows) == 0 {
		return []models.KnowledgeItem{}
	}
	latest := rows[len(rows)-1]
	ts := latest.Timestamp

	items := make([]models.KnowledgeItem, 0, 6)
	items = append(items, models.ScalarItem(symbol, ts, models.DataTypePrice,
		"price_change_24h", latest.PriceChange24h,
		map[string]float64{"price": latest.Price, "volume": latest.Volume}))
	items = append(items, models.ScalarItem(symbol, ts, models.DataTypePrice,
		"volume_change_24h", latest.VolumeChange24h,
		map[string]float64{"volume": latest.Volume}))

	for _, ind := range technicalIndicators {
		items = append(items, models.ScalarItem(symbol, ts, models.DataTypeTechnical,
			ind.name, ind.get(&latest), nil))
	}

	// Equal averages count as bearish: the bullish condition is a strict
	// cross above.
	cross := "bearish"
	if latest.MA20 > latest.MA50 {
		cross = "bullish"
	}
	items = append(items, models.TextItem(symbol, ts, models.DataTypeTechnical,
		"ma_cross", cross,
		map[string]float64{"ma_20": latest.MA20, "ma_50": latest.MA50}))

	return items
}

// ExtractNewsKnowledge derives fact snapshots from the latest news feature
// row. Always returns a non-nil slice so callers never need a nil check.
func ExtractNewsKnowledge(symbol string, rows []models.NewsFeatureRow) []models.KnowledgeItem {
	if len(rows) == 0 {
		return []models.KnowledgeItem{}
	}
	latest := rows[len(rows)-1]
	ts := latest.Bucket
	count := float64(latest.NewsCount)

	return []models.KnowledgeItem{
		models.ScalarItem(symbol, ts, models.DataTypeNews,
			"avg_sentiment", latest.AvgSentiment,
			map[string]float64{"news_count": count}),
		models.ScalarItem(symbol, ts, models.DataTypeNews,
			"weighted_sentiment", latest.WeightedSentiment,
			map[string]float64{"news_count": count}),
		models.ScalarItem(symbol, ts, models.DataTypeNews,
			"importance_avg", latest.ImportanceAvg,
			map[string]float64{"news_count": count}),
	}
}
