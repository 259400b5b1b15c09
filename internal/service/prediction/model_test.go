package prediction

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

// regressionData is a noiseless linear target over two decorrelated
// features, so a converged fit reproduces it almost exactly.
func regressionData(n int) (x [][]float64, y []float64) {
	x = make([][]float64, n)
	y = make([]float64, n)
	for i := 0; i < n; i++ {
		f1 := math.Sin(0.7 * float64(i))
		f2 := math.Cos(1.3 * float64(i))
		x[i] = []float64{f1, f2}
		y[i] = 2*f1 - 3*f2 + 5
	}
	return x, y
}

func TestTrainLinearRegressorConverges(t *testing.T) {
	x, y := regressionData(120)
	m, err := TrainLinearRegressor(x, y, TrainParams{Epochs: 4000, LearningRate: 0.05})
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	if rmse := m.RMSE(x, y); rmse > 0.01 {
		t.Fatalf("rmse %.6f on noiseless linear data", rmse)
	}
	if r2 := m.R2(x, y); r2 < 0.99 {
		t.Fatalf("r2 %.6f on noiseless linear data", r2)
	}

	want := 2*math.Sin(0.7*5) - 3*math.Cos(1.3*5) + 5
	if got := m.Predict(x[5]); math.Abs(got-want) > 0.05 {
		t.Fatalf("predict %.4f, want %.4f", got, want)
	}
}

func TestTrainLinearRegressorDeterministic(t *testing.T) {
	x, y := regressionData(60)
	p := TrainParams{Epochs: 500, LearningRate: 0.05}
	m1, err := TrainLinearRegressor(x, y, p)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	m2, err := TrainLinearRegressor(x, y, p)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if !reflect.DeepEqual(m1, m2) {
		t.Fatalf("identical input produced different models")
	}
}

func TestTrainLinearRegressorInsufficientData(t *testing.T) {
	if _, err := TrainLinearRegressor([][]float64{{1}}, []float64{1}, TrainParams{}); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("single row: got %v", err)
	}
	if _, err := TrainLinearRegressor([][]float64{{1}, {2}}, []float64{1}, TrainParams{}); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("length mismatch: got %v", err)
	}
}

func TestTrainLinearRegressorConstantTarget(t *testing.T) {
	x := [][]float64{{1, 2}, {3, 4}, {5, 6}, {7, 8}}
	y := []float64{10, 10, 10, 10}
	m, err := TrainLinearRegressor(x, y, TrainParams{Epochs: 200, LearningRate: 0.05})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if got := m.Predict([]float64{2, 3}); math.Abs(got-10) > 0.01 {
		t.Fatalf("constant target must predict the constant, got %.4f", got)
	}
}

// classificationData is linearly separable on the first feature.
func classificationData(n int) (x [][]float64, labels []float64) {
	x = make([][]float64, n)
	labels = make([]float64, n)
	for i := 0; i < n; i++ {
		sign := float64(i%2*2 - 1)
		f1 := sign * (1 + float64(i)/float64(n))
		f2 := 0.01 * float64(i)
		x[i] = []float64{f1, f2}
		if f1 > 0 {
			labels[i] = 1
		}
	}
	return x, labels
}

func TestTrainLogisticClassifierSeparable(t *testing.T) {
	x, labels := classificationData(80)
	m, err := TrainLogisticClassifier(x, labels, TrainParams{Epochs: 3000, LearningRate: 0.3})
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	if acc := m.Accuracy(x, labels); acc != 1.0 {
		t.Fatalf("accuracy %.4f on separable data", acc)
	}
	if p := m.PredictProba([]float64{1.8, 0.4}); p < 0.8 {
		t.Fatalf("deep class-1 point scored %.4f", p)
	}
	if p := m.PredictProba([]float64{-1.8, 0.4}); p > 0.2 {
		t.Fatalf("deep class-0 point scored %.4f", p)
	}
}

func TestTrainLogisticClassifierInsufficientData(t *testing.T) {
	if _, err := TrainLogisticClassifier([][]float64{{1}}, []float64{1}, TrainParams{}); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("single row: got %v", err)
	}
}

func TestRegressorRoundTrip(t *testing.T) {
	x, y := regressionData(40)
	m, err := TrainLinearRegressor(x, y, TrainParams{Epochs: 200, LearningRate: 0.05})
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	blob, err := EncodeRegressor(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeRegressor(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(m, got) {
		t.Fatalf("round trip changed the model:\n%+v\n%+v", m, got)
	}
}

func TestClassifierRoundTrip(t *testing.T) {
	x, labels := classificationData(40)
	m, err := TrainLogisticClassifier(x, labels, TrainParams{Epochs: 200, LearningRate: 0.3})
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	blob, err := EncodeClassifier(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeClassifier(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(m, got) {
		t.Fatalf("round trip changed the model:\n%+v\n%+v", m, got)
	}
}

func TestDecodeRegressorGarbage(t *testing.T) {
	if _, err := DecodeRegressor([]byte("not a model")); err == nil {
		t.Fatalf("expected decode error")
	}
}
