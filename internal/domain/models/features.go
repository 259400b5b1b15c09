package models

import "time"

// PriceFeatureRow is one fully materialized row of the per-symbol price
// feature table. A row only exists once every rolling window it depends on
// has enough history; there are no partially filled rows.
type PriceFeatureRow struct {
	Timestamp time.Time `json:"timestamp"`

	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`

	PriceChange1h   float64 `json:"price_change_1h"`
	PriceChange24h  float64 `json:"price_change_24h"`
	VolumeChange1h  float64 `json:"volume_change_1h"`
	VolumeChange24h float64 `json:"volume_change_24h"`

	MA5   float64 `json:"ma_5"`
	MA20  float64 `json:"ma_20"`
	MA50  float64 `json:"ma_50"`
	MA200 float64 `json:"ma_200"`

	MA20Std   float64 `json:"ma_20_std"`
	UpperBand float64 `json:"upper_band"`
	LowerBand float64 `json:"lower_band"`

	RSI14 float64 `json:"rsi_14"`

	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`
}

// NewsFeatureRow is one bucketed row of the per-currency sentiment feature
// table. Buckets inside the observed span with no news are materialized as
// all-zero rows, which keeps "no news" distinguishable from "missing data".
type NewsFeatureRow struct {
	Bucket time.Time `json:"bucket"`

	NewsCount         int     `json:"news_count"`
	AvgSentiment      float64 `json:"avg_sentiment"`
	WeightedSentiment float64 `json:"weighted_sentiment"`
	PositiveRatio     float64 `json:"positive_ratio"`
	NegativeRatio     float64 `json:"negative_ratio"`
	ImportanceAvg     float64 `json:"importance_avg"`
}

// MergedFeatureRow is the outer join of a price row and a news row on one
// timestamp. HasPrice is false only at the head of the series where no prior
// price exists to forward-fill from; news columns are always present because
// absent news fills with zeros.
type MergedFeatureRow struct {
	Timestamp time.Time `json:"timestamp"`

	HasPrice bool            `json:"has_price"`
	Price    PriceFeatureRow `json:"price"`

	News NewsFeatureRow `json:"news"`

	// Lags holds columns appended by lagged-feature generation, keyed
	// "<column>_lag_<k>". Nil until lagging is applied.
	Lags map[string]float64 `json:"lags,omitempty"`
}
