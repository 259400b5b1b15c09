package prediction

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"CoinSage/internal/domain/models"
	drepo "CoinSage/internal/domain/repository"
	applogger "CoinSage/pkg/logger"
)

type fakeRegistry struct {
	mu          sync.Mutex
	nextID      int64
	activated   []*models.PredictionModel
	predictions []*models.Prediction
	activateErr error
	saveErr     error
}

func (r *fakeRegistry) Activate(_ context.Context, m *models.PredictionModel) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activateErr != nil {
		return 0, r.activateErr
	}
	// swap: any prior active row for the same name deactivates with the
	// insert, as one unit
	for _, prev := range r.activated {
		if prev.Name == m.Name {
			prev.Active = false
		}
	}
	r.nextID++
	cp := *m
	cp.ID = r.nextID
	r.activated = append(r.activated, &cp)
	return r.nextID, nil
}

// activeRows returns the active registry rows for one (symbol, purpose).
func (r *fakeRegistry) activeRows(symbol string, purpose models.ModelPurpose) []*models.PredictionModel {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PredictionModel
	for _, m := range r.activated {
		if m.Active && m.Symbol == symbol && m.Purpose == purpose {
			out = append(out, m)
		}
	}
	return out
}

func (r *fakeRegistry) ActiveModel(context.Context, string, models.ModelPurpose) (*models.PredictionModel, error) {
	return nil, errors.New("no active model")
}

func (r *fakeRegistry) ListModels(context.Context, string) ([]models.PredictionModel, error) {
	return nil, nil
}

func (r *fakeRegistry) SavePrediction(_ context.Context, p *models.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	cp := *p
	r.predictions = append(r.predictions, &cp)
	return nil
}

func (r *fakeRegistry) LatestPredictions(context.Context, string, int) ([]models.Prediction, error) {
	return nil, nil
}

type fakeBinaries struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	saveErr error
}

func (b *fakeBinaries) Save(symbol string, purpose models.ModelPurpose, blob []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return b.saveErr
	}
	if b.blobs == nil {
		b.blobs = make(map[string][]byte)
	}
	b.blobs[symbol+"/"+string(purpose)] = blob
	return nil
}

func (b *fakeBinaries) Load(symbol string, purpose models.ModelPurpose) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	blob, ok := b.blobs[symbol+"/"+string(purpose)]
	if !ok {
		return nil, errors.New("not found")
	}
	return blob, nil
}

type fakeMetrics struct {
	mu   sync.Mutex
	errs map[string]int
	perf map[string]float64
}

func (m *fakeMetrics) RecordMessageSent(string, string)  {}
func (m *fakeMetrics) RecordLastPrice(string, float64)   {}
func (m *fakeMetrics) RecordLatency(string, float64)     {}
func (m *fakeMetrics) RecordPipelineRun(string, float64) {}
func (m *fakeMetrics) RecordKnowledgeItems(string, int)  {}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errs == nil {
		m.errs = make(map[string]int)
	}
	m.errs[kind]++
}

func (m *fakeMetrics) RecordModelPerformance(symbol, purpose, metric string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.perf == nil {
		m.perf = make(map[string]float64)
	}
	m.perf[symbol+"/"+purpose+"/"+metric] = value
}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func engineConfig() Config {
	cfg := DefaultConfig()
	cfg.MinRows = 10
	cfg.MinFeatures = 3
	cfg.TargetShift = 2
	cfg.Train = TrainParams{Epochs: 200, LearningRate: 0.05}
	cfg.RegressionFeatures = []string{"price", "volume", "rsi_14"}
	cfg.ClassificationFeatures = []string{"price_change_24h", "rsi_14", "macd"}
	return cfg
}

func mergedRows(n int) []models.MergedFeatureRow {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]models.MergedFeatureRow, n)
	for i := 0; i < n; i++ {
		f := float64(i)
		rows[i] = models.MergedFeatureRow{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			HasPrice:  true,
			Price: models.PriceFeatureRow{
				Timestamp:      base.Add(time.Duration(i) * time.Hour),
				Price:          100 + 10*math.Sin(0.5*f),
				Volume:         1000 + f,
				PriceChange24h: 0.1 * math.Sin(0.5*f+1),
				RSI14:          50 + 20*math.Sin(0.3*f),
				MACD:           math.Cos(0.4 * f),
			},
		}
	}
	return rows
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *fakeRegistry, *fakeBinaries, *fakeMetrics) {
	t.Helper()
	reg := &fakeRegistry{}
	bin := &fakeBinaries{}
	met := &fakeMetrics{}
	return NewEngine(reg, bin, met, testLogger(t), cfg), reg, bin, met
}

func TestUpdateModelsSkipsBelowRowFloor(t *testing.T) {
	e, reg, bin, _ := newTestEngine(t, engineConfig())

	if err := e.UpdateModels(context.Background(), "BTCUSDT", mergedRows(5)); err != nil {
		t.Fatalf("warm-up must be a no-op, got %v", err)
	}
	if len(reg.activated) != 0 || len(bin.blobs) != 0 {
		t.Fatalf("no model may be written below the row floor")
	}
}

func TestUpdateModelsSkipsBelowFeatureFloor(t *testing.T) {
	cfg := engineConfig()
	cfg.MinFeatures = 5
	e, reg, _, _ := newTestEngine(t, cfg)

	if err := e.UpdateModels(context.Background(), "BTCUSDT", mergedRows(40)); err != nil {
		t.Fatalf("too few feature columns must be a no-op, got %v", err)
	}
	if len(reg.activated) != 0 {
		t.Fatalf("no model may be written below the feature floor")
	}
}

func TestUpdateModelsActivatesBothSubModels(t *testing.T) {
	e, reg, bin, met := newTestEngine(t, engineConfig())

	if err := e.UpdateModels(context.Background(), "BTCUSDT", mergedRows(40)); err != nil {
		t.Fatalf("update: %v", err)
	}

	if len(reg.activated) != 2 {
		t.Fatalf("expected 2 activated models, got %d", len(reg.activated))
	}
	byPurpose := make(map[models.ModelPurpose]*models.PredictionModel)
	for _, m := range reg.activated {
		byPurpose[m.Purpose] = m
	}

	regr := byPurpose[models.PurposePriceRegression]
	if regr == nil {
		t.Fatalf("regression model missing")
	}
	if !regr.Active || regr.Symbol != "BTCUSDT" {
		t.Fatalf("regression metadata wrong: %+v", regr)
	}
	if _, ok := regr.Performance["rmse"]; !ok {
		t.Fatalf("regression model missing rmse: %+v", regr.Performance)
	}

	clf := byPurpose[models.PurposeDirectionClassification]
	if clf == nil {
		t.Fatalf("classification model missing")
	}
	if _, ok := clf.Performance["accuracy"]; !ok {
		t.Fatalf("classification model missing accuracy: %+v", clf.Performance)
	}

	// binaries must exist and decode for both purposes
	blob, err := bin.Load("BTCUSDT", models.PurposePriceRegression)
	if err != nil {
		t.Fatalf("regression binary: %v", err)
	}
	if _, err := DecodeRegressor(blob); err != nil {
		t.Fatalf("regression binary undecodable: %v", err)
	}
	blob, err = bin.Load("BTCUSDT", models.PurposeDirectionClassification)
	if err != nil {
		t.Fatalf("classification binary: %v", err)
	}
	if _, err := DecodeClassifier(blob); err != nil {
		t.Fatalf("classification binary undecodable: %v", err)
	}

	if len(reg.predictions) != 2 {
		t.Fatalf("expected a prediction per sub-model, got %d", len(reg.predictions))
	}
	for _, p := range reg.predictions {
		if p.ModelID == 0 {
			t.Fatalf("prediction not linked to an activated model: %+v", p)
		}
		if p.PredictionValue == nil && p.PredictionText == "" {
			t.Fatalf("prediction carries neither value nor text: %+v", p)
		}
	}

	if _, ok := met.perf["BTCUSDT/"+string(models.PurposePriceRegression)+"/rmse"]; !ok {
		t.Fatalf("rmse not recorded: %+v", met.perf)
	}
}

func TestUpdateModelsSwapsActiveRows(t *testing.T) {
	e, reg, _, _ := newTestEngine(t, engineConfig())
	rows := mergedRows(40)

	if err := e.UpdateModels(context.Background(), "BTCUSDT", rows); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if err := e.UpdateModels(context.Background(), "BTCUSDT", rows); err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	if len(reg.activated) != 4 {
		t.Fatalf("expected 4 registry rows after two refreshes, got %d", len(reg.activated))
	}
	for _, purpose := range []models.ModelPurpose{
		models.PurposePriceRegression,
		models.PurposeDirectionClassification,
	} {
		active := reg.activeRows("BTCUSDT", purpose)
		if len(active) != 1 {
			t.Fatalf("%s: expected exactly one active row, got %d", purpose, len(active))
		}
		if active[0].ID <= 2 {
			t.Fatalf("%s: active row %d is not from the second refresh", purpose, active[0].ID)
		}
	}
}

func TestUpdateModelsFailedRefreshKeepsActiveRow(t *testing.T) {
	e, reg, bin, _ := newTestEngine(t, engineConfig())
	rows := mergedRows(40)

	if err := e.UpdateModels(context.Background(), "BTCUSDT", rows); err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	bin.saveErr = errors.New("disk full")
	if err := e.UpdateModels(context.Background(), "BTCUSDT", rows); err == nil {
		t.Fatalf("second refresh must report the persistence failure")
	}

	for _, purpose := range []models.ModelPurpose{
		models.PurposePriceRegression,
		models.PurposeDirectionClassification,
	} {
		active := reg.activeRows("BTCUSDT", purpose)
		if len(active) != 1 {
			t.Fatalf("%s: expected exactly one active row, got %d", purpose, len(active))
		}
		if active[0].ID > 2 {
			t.Fatalf("%s: failed refresh must leave the first model active, got row %d", purpose, active[0].ID)
		}
	}
}

func TestUpdateModelsPropagatesPersistenceErrors(t *testing.T) {
	e, reg, bin, _ := newTestEngine(t, engineConfig())
	bin.saveErr = errors.New("disk full")

	err := e.UpdateModels(context.Background(), "BTCUSDT", mergedRows(40))
	if err == nil {
		t.Fatalf("binary store failure must propagate")
	}
	var pe *drepo.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected a persistence error, got %v", err)
	}
	if len(reg.activated) != 0 {
		t.Fatalf("registry row must not activate when the binary write failed")
	}
}

func TestUpdateModelsIsolatesTrainingFailures(t *testing.T) {
	cfg := engineConfig()
	// absurd learning rate makes the regression fit diverge; the bounded
	// logistic gradients keep the classifier finite
	cfg.Train = TrainParams{Epochs: 300, LearningRate: 1e6}
	e, reg, _, met := newTestEngine(t, cfg)

	if err := e.UpdateModels(context.Background(), "BTCUSDT", mergedRows(40)); err != nil {
		t.Fatalf("training failure must not surface as an error, got %v", err)
	}
	if len(reg.activated) != 1 {
		t.Fatalf("expected only the classification model, got %d activations", len(reg.activated))
	}
	if reg.activated[0].Purpose != models.PurposeDirectionClassification {
		t.Fatalf("wrong surviving model: %s", reg.activated[0].Purpose)
	}
	if met.errs["train_regression"] != 1 {
		t.Fatalf("regression failure not counted: %+v", met.errs)
	}
}

func TestUpdateModelsToleratesPredictionWriteFailure(t *testing.T) {
	e, reg, _, met := newTestEngine(t, engineConfig())
	reg.saveErr = errors.New("registry down")

	if err := e.UpdateModels(context.Background(), "BTCUSDT", mergedRows(40)); err != nil {
		t.Fatalf("prediction write is best effort, got %v", err)
	}
	if len(reg.activated) != 2 {
		t.Fatalf("activation must survive a failed prediction write")
	}
	if met.errs["save_prediction"] != 2 {
		t.Fatalf("prediction failures not counted: %+v", met.errs)
	}
}
