package models

import "time"

// ModelPurpose identifies which of the two per-symbol models a registry row
// belongs to.
type ModelPurpose string

const (
	PurposePriceRegression         ModelPurpose = "price_regression"
	PurposeDirectionClassification ModelPurpose = "direction_classification"
)

// ModelName is the registry key for a (symbol, purpose) pair. At most one
// row per name is active at a time.
func ModelName(symbol string, purpose ModelPurpose) string {
	return symbol + "_" + string(purpose)
}

// PredictionModel is the metadata row describing one trained model. The
// trained weights live in the binary store under the same (symbol, purpose);
// this row never embeds them.
type PredictionModel struct {
	ID         int64              `json:"id"`
	Name       string             `json:"name"`
	Symbol     string             `json:"symbol"`
	Purpose    ModelPurpose       `json:"purpose"`
	ModelType  string             `json:"model_type"`
	Target     string             `json:"target"`
	Features   []string           `json:"features"`
	Parameters map[string]float64 `json:"parameters"`

	// Performance holds the evaluation metric for this training run:
	// "rmse" for regression, "accuracy" for classification.
	Performance map[string]float64 `json:"performance"`

	Active    bool      `json:"active"`
	TrainedAt time.Time `json:"trained_at"`
}

// Prediction is the result of applying an active model to one feature row.
// Rows are append-only.
type Prediction struct {
	ID              int64     `json:"id"`
	ModelID         int64     `json:"model_id"`
	Symbol          string    `json:"symbol"`
	Timestamp       time.Time `json:"timestamp"`
	Target          string    `json:"target"`
	PredictionValue *float64  `json:"prediction_value,omitempty"`
	PredictionText  string    `json:"prediction_text,omitempty"`
	Confidence      float64   `json:"confidence"`
	FeaturesUsed    []string  `json:"features_used"`
}
