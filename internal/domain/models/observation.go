package models

import "time"

// Sentiment is the label attached to a news observation by the upstream source.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Score maps the label onto the {-1, 0, +1} scale used by feature extraction.
func (s Sentiment) Score() float64 {
	switch s {
	case SentimentPositive:
		return 1
	case SentimentNegative:
		return -1
	default:
		return 0
	}
}

// PriceObservation is a single raw price sample for one symbol, as produced
// by the exchange collector. The collector appends; downstream code treats
// the sequence as immutable.
type PriceObservation struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
}

// NewsObservation is a single raw news item for one currency.
// ExternalID is the stable dedup key assigned by the news source.
// Importance is nil when the source did not provide one; feature extraction
// substitutes 0 rather than rejecting the record.
type NewsObservation struct {
	ExternalID  string    `json:"external_id"`
	Currency    string    `json:"currency"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Sentiment   Sentiment `json:"sentiment"`
	Importance  *float64  `json:"importance"`
	PublishedAt time.Time `json:"published_at"`
}

// ImportanceOrZero returns the importance score, or 0 when missing.
func (n NewsObservation) ImportanceOrZero() float64 {
	if n.Importance == nil {
		return 0
	}
	return *n.Importance
}
