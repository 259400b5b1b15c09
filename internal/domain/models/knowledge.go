package models

import "time"

// DataType classifies a knowledge item by the table it was derived from.
type DataType string

const (
	DataTypePrice     DataType = "price"
	DataTypeTechnical DataType = "technical"
	DataTypeNews      DataType = "news"
)

// KnowledgeItem is a single named, timestamped fact derived from the latest
// row of a feature table. Items are write-once; they are queried by symbol,
// type and time range long after the feature table they came from is gone.
type KnowledgeItem struct {
	Symbol      string    `json:"symbol"`
	Timestamp   time.Time `json:"timestamp"`
	DataType    DataType  `json:"data_type"`
	FeatureName string    `json:"feature_name"`

	// Exactly one of FeatureValue / FeatureText is set.
	FeatureValue *float64 `json:"feature_value,omitempty"`
	FeatureText  string   `json:"feature_text,omitempty"`

	Metadata map[string]float64 `json:"metadata,omitempty"`
}

// ScalarItem builds a numeric knowledge item.
func ScalarItem(symbol string, ts time.Time, dt DataType, name string, value float64, meta map[string]float64) KnowledgeItem {
	v := value
	return KnowledgeItem{
		Symbol:       symbol,
		Timestamp:    ts,
		DataType:     dt,
		FeatureName:  name,
		FeatureValue: &v,
		Metadata:     meta,
	}
}

// TextItem builds a textual knowledge item.
func TextItem(symbol string, ts time.Time, dt DataType, name, text string, meta map[string]float64) KnowledgeItem {
	return KnowledgeItem{
		Symbol:      symbol,
		Timestamp:   ts,
		DataType:    dt,
		FeatureName: name,
		FeatureText: text,
		Metadata:    meta,
	}
}
