package prediction

import (
	"errors"
	"fmt"

	"CoinSage/internal/domain/models"
)

// ErrInsufficientData is returned by trainers given too few samples or no
// features. The engine maps it to a logged no-op; warm-up is not a failure.
var ErrInsufficientData = errors.New("prediction: insufficient training data")

// TrainingError describes a failed fit for one (symbol, purpose) sub-model.
// Regression and classification fail independently; a TrainingError never
// aborts the sibling sub-model and never removes the prior active model.
type TrainingError struct {
	Symbol  string
	Purpose models.ModelPurpose
	Err     error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("train %s/%s: %v", e.Symbol, e.Purpose, e.Err)
}

func (e *TrainingError) Unwrap() error { return e.Err }
