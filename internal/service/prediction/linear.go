package prediction

import (
	"math"
)

// TrainParams tune the gradient-descent trainers. Zero values fall back to
// the defaults below.
type TrainParams struct {
	Epochs       int
	LearningRate float64
}

func (p TrainParams) withDefaults() TrainParams {
	if p.Epochs <= 0 {
		p.Epochs = 300
	}
	if p.LearningRate <= 0 {
		p.LearningRate = 0.05
	}
	return p
}

// LinearRegressor is a least-squares linear model fitted by full-batch
// gradient descent on standardized inputs. Standardization parameters are
// part of the model so inference sees the same scale as training.
type LinearRegressor struct {
	Weights []float64
	Bias    float64

	FeatureMeans []float64
	FeatureStds  []float64
	TargetMean   float64
	TargetStd    float64
}

// TrainLinearRegressor fits the model. Deterministic: zero-initialized
// weights, fixed iteration order, no internal randomness.
func TrainLinearRegressor(x [][]float64, y []float64, params TrainParams) (*LinearRegressor, error) {
	if len(x) < 2 || len(x) != len(y) || len(x[0]) == 0 {
		return nil, ErrInsufficientData
	}
	params = params.withDefaults()
	nFeat := len(x[0])

	means, stds := fitScaler(x)
	tMean, tStd := meanStd(y)
	if tStd == 0 {
		tStd = 1 // constant target: model degenerates to predicting the mean
	}

	xs := applyScaler(x, means, stds)
	ys := make([]float64, len(y))
	for i, v := range y {
		ys[i] = (v - tMean) / tStd
	}

	w := make([]float64, nFeat)
	b := 0.0
	n := float64(len(xs))
	for epoch := 0; epoch < params.Epochs; epoch++ {
		gradW := make([]float64, nFeat)
		gradB := 0.0
		for i, row := range xs {
			pred := b
			for j, v := range row {
				pred += w[j] * v
			}
			err := pred - ys[i]
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

	return &LinearRegressor{
		Weights:      w,
		Bias:         b,
		FeatureMeans: means,
		FeatureStds:  stds,
		TargetMean:   tMean,
		TargetStd:    tStd,
	}, nil
}

// Predict returns the fitted value for one feature vector.
func (m *LinearRegressor) Predict(features []float64) float64 {
	pred := m.Bias
	for j, v := range features {
		pred += m.Weights[j] * scale(v, m.FeatureMeans[j], m.FeatureStds[j])
	}
	return pred*m.TargetStd + m.TargetMean
}

// RMSE evaluates the model on a holdout set.
func (m *LinearRegressor) RMSE(x [][]float64, y []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for i, row := range x {
		d := m.Predict(row) - y[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(x)))
}

// R2 is the coefficient of determination on a holdout set, clamped to [0,1].
func (m *LinearRegressor) R2(x [][]float64, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	mean, _ := meanStd(y)
	ssRes := 0.0
	ssTot := 0.0
	for i, row := range x {
		d := m.Predict(row) - y[i]
		ssRes += d * d
		t := y[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		return 0
	}
	r2 := 1 - ssRes/ssTot
	if r2 < 0 {
		r2 = 0
	}
	if r2 > 1 {
		r2 = 1
	}
	return r2
}

// --- shared scaling helpers ---

func fitScaler(x [][]float64) (means, stds []float64) {
	nFeat := len(x[0])
	means = make([]float64, nFeat)
	stds = make([]float64, nFeat)
	n := float64(len(x))
	for j := 0; j < nFeat; j++ {
		sum := 0.0
		for _, row := range x {
			sum += row[j]
		}
		means[j] = sum / n
		sum2 := 0.0
		for _, row := range x {
			d := row[j] - means[j]
			sum2 += d * d
		}
		stds[j] = math.Sqrt(sum2 / n)
		if stds[j] < 1e-12 {
			stds[j] = 1 // constant feature contributes nothing either way
		}
	}
	return means, stds
}

func applyScaler(x [][]float64, means, stds []float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		s := make([]float64, len(row))
		for j, v := range row {
			s[j] = scale(v, means[j], stds[j])
		}
		out[i] = s
	}
	return out
}

func scale(v, mean, std float64) float64 { return (v - mean) / std }

func meanStd(y []float64) (mean, std float64) {
	if len(y) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range y {
		sum += v
	}
	mean = sum / float64(len(y))
	sum2 := 0.0
	for _, v := range y {
		d := v - mean
		sum2 += d * d
	}
	return mean, math.Sqrt(sum2 / float64(len(y)))
}
