package prediction

import (
	"errors"
	"math"
)

var errDiverged = errors.New("prediction: training diverged")

// LogisticClassifier is a binary logistic-regression model fitted by
// full-batch gradient descent on standardized inputs. Class 1 means "future
// price above current price".
type LogisticClassifier struct {
	Weights []float64
	Bias    float64

	FeatureMeans []float64
	FeatureStds  []float64
}

// TrainLogisticClassifier fits the model. Labels must be 0 or 1.
// Deterministic for the same input.
func TrainLogisticClassifier(x [][]float64, labels []float64, params TrainParams) (*LogisticClassifier, error) {
	if len(x) < 2 || len(x) != len(labels) || len(x[0]) == 0 {
		return nil, ErrInsufficientData
	}
	params = params.withDefaults()
	nFeat := len(x[0])

	means, stds := fitScaler(x)
	xs := applyScaler(x, means, stds)

	w := make([]float64, nFeat)
	b := 0.0
	n := float64(len(xs))
	for epoch := 0; epoch < params.Epochs; epoch++ {
		gradW := make([]float64, nFeat)
		gradB := 0.0
		for i, row := range xs {
			z := b
			for j, v := range row {
				z += w[j] * v
			}
			err := sigmoid(z) - labels[i]
			for j, v := range row {
				gradW[j] += err * v
			}
			gradB += err
		}
		for j := range w {
			w[j] -= params.LearningRate * gradW[j] / n
		}
		b -= params.LearningRate * gradB / n
	}

	for j := range w {
		if math.IsNaN(w[j]) || math.IsInf(w[j], 0) {
			return nil, errDiverged
		}
	}

	return &LogisticClassifier{
		Weights:      w,
		Bias:         b,
		FeatureMeans: means,
		FeatureStds:  stds,
	}, nil
}

// PredictProba returns P(class 1) for one feature vector.
func (m *LogisticClassifier) PredictProba(features []float64) float64 {
	z := m.Bias
	for j, v := range features {
		z += m.Weights[j] * scale(v, m.FeatureMeans[j], m.FeatureStds[j])
	}
	return sigmoid(z)
}

// Predict returns the class label at the 0.5 threshold.
func (m *LogisticClassifier) Predict(features []float64) int {
	if m.PredictProba(features) >= 0.5 {
		return 1
	}
	return 0
}

// Accuracy evaluates the model on a holdout set.
func (m *LogisticClassifier) Accuracy(x [][]float64, labels []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	correct := 0
	for i, row := range x {
		if float64(m.Predict(row)) == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(x))
}

func sigmoid(z float64) float64 {
	// clamp to keep exp from overflowing on extreme inputs
	if z > 30 {
		return 1
	}
	if z < -30 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}
