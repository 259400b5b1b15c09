package prediction

import (
	"context"
	"errors"
	"time"

	"CoinSage/internal/domain/models"
	drepo "CoinSage/internal/domain/repository"
	"CoinSage/internal/service/features"
	applogger "CoinSage/pkg/logger"
)

// Config tunes the refresh engine.
type Config struct {
	// MinRows is the row floor below which a refresh call is a no-op.
	MinRows int
	// MinFeatures is the per-sub-model floor of available feature columns.
	MinFeatures int
	// TargetShift is the look-ahead in samples for the training target.
	TargetShift int

	TestFraction float64
	Seed         int64
	Train        TrainParams

	RegressionFeatures     []string
	ClassificationFeatures []string
}

// DefaultConfig mirrors the production pipeline: 24-sample look-ahead,
// 80/20 split, fixed seed so repeated runs on identical input yield
// identical evaluation metrics.
func DefaultConfig() Config {
	return Config{
		MinRows:      30,
		MinFeatures:  3,
		TargetShift:  24,
		TestFraction: 0.2,
		Seed:         42,
		RegressionFeatures: []string{
			"price", "volume", "price_change_24h", "volume_change_24h",
			"rsi_14", "macd", "macd_hist", "ma_20", "ma_50",
			"avg_sentiment", "weighted_sentiment", "importance_avg",
		},
		ClassificationFeatures: []string{
			"price_change_24h", "volume_change_24h",
			"rsi_14", "macd", "macd_hist",
			"avg_sentiment", "weighted_sentiment", "importance_avg",
		},
	}
}

// Engine retrains the per-symbol regression and classification models and
// atomically swaps the active registry rows. The registry transaction is the
// only shared mutable state in the whole pipeline; everything else here is
// pure computation over the caller's feature table.
type Engine struct {
	registry drepo.ModelRegistry
	binaries drepo.BinaryStore
	metrics  drepo.Metrics
	l        *applogger.Logger
	cfg      Config
}

func NewEngine(registry drepo.ModelRegistry, binaries drepo.BinaryStore, metrics drepo.Metrics, l *applogger.Logger, cfg Config) *Engine {
	return &Engine{registry: registry, binaries: binaries, metrics: metrics, l: l, cfg: cfg}
}

// UpdateModels retrains both sub-models from the merged feature table.
// Training failures are logged with symbol+purpose context and isolated per
// sub-model: a broken regression fit never blocks the classification
// refresh, and a failed fit never touches the previously active model.
// Persistence failures do propagate, because a swallowed registry error
// would leave the caller believing a swap happened.
func (e *Engine) UpdateModels(ctx context.Context, symbol string, rows []models.MergedFeatureRow) error {
	if len(rows) < e.cfg.MinRows {
		e.l.Debug("model refresh skipped: not enough rows",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(rows)),
			applogger.Int("min_rows", e.cfg.MinRows),
		)
		return nil
	}

	base, future := e.supervised(rows)
	if len(base) == 0 {
		e.l.Debug("model refresh skipped: no rows with a defined target",
			applogger.String("symbol", symbol))
		return nil
	}

	var persistErrs []error

	if err := e.refreshRegression(ctx, symbol, rows, base, future); err != nil {
		if isPersistence(err) {
			persistErrs = append(persistErrs, err)
		} else {
			e.metrics.RecordError("train_regression")
			e.l.Error("regression refresh failed, keeping previous model",
				applogger.String("symbol", symbol),
				applogger.String("purpose", string(models.PurposePriceRegression)),
				applogger.Error(err),
			)
		}
	}

	if err := e.refreshClassification(ctx, symbol, rows, base, future); err != nil {
		if isPersistence(err) {
			persistErrs = append(persistErrs, err)
		} else {
			e.metrics.RecordError("train_classification")
			e.l.Error("classification refresh failed, keeping previous model",
				applogger.String("symbol", symbol),
				applogger.String("purpose", string(models.PurposeDirectionClassification)),
				applogger.Error(err),
			)
		}
	}

	return errors.Join(persistErrs...)
}

// supervised pairs each feature row with its future price TargetShift
// samples ahead. Rows whose current or future price is undefined fall out,
// matching the tail-drop the target shift implies.
func (e *Engine) supervised(rows []models.MergedFeatureRow) (base []models.MergedFeatureRow, future []float64) {
	shift := e.cfg.TargetShift
	for i := 0; i+shift < len(rows); i++ {
		if !rows[i].HasPrice || !rows[i+shift].HasPrice {
			continue
		}
		base = append(base, rows[i])
		future = append(future, rows[i+shift].Price.Price)
	}
	return base, future
}

func (e *Engine) refreshRegression(ctx context.Context, symbol string, all, base []models.MergedFeatureRow, future []float64) error {
	cols := features.AvailableColumns(base, e.cfg.RegressionFeatures)
	if len(cols) < e.cfg.MinFeatures {
		e.l.Debug("regression skipped: not enough feature columns",
			applogger.String("symbol", symbol),
			applogger.Int("available", len(cols)),
		)
		return nil
	}

	x := features.Matrix(base, cols)
	trainIdx, testIdx := TrainTestSplit(len(x), e.cfg.TestFraction, e.cfg.Seed)

	model, err := TrainLinearRegressor(take(x, trainIdx), takeVec(future, trainIdx), e.cfg.Train)
	if err != nil {
		return &TrainingError{Symbol: symbol, Purpose: models.PurposePriceRegression, Err: err}
	}
	rmse := model.RMSE(take(x, testIdx), takeVec(future, testIdx))

	blob, err := EncodeRegressor(model)
	if err != nil {
		return &TrainingError{Symbol: symbol, Purpose: models.PurposePriceRegression, Err: err}
	}

	meta := &models.PredictionModel{
		Name:      models.ModelName(symbol, models.PurposePriceRegression),
		Symbol:    symbol,
		Purpose:   models.PurposePriceRegression,
		ModelType: "linear_regression_gd",
		Target:    "price_24h",
		Features:  cols,
		Parameters: map[string]float64{
			"epochs":        float64(e.cfg.Train.withDefaults().Epochs),
			"learning_rate": e.cfg.Train.withDefaults().LearningRate,
			"test_fraction": e.cfg.TestFraction,
			"seed":          float64(e.cfg.Seed),
		},
		Performance: map[string]float64{"rmse": rmse},
		Active:      true,
		TrainedAt:   time.Now().UTC(),
	}

	id, err := e.activate(ctx, symbol, models.PurposePriceRegression, blob, meta)
	if err != nil {
		return err
	}

	e.metrics.RecordModelPerformance(symbol, string(models.PurposePriceRegression), "rmse", rmse)
	e.l.Info("regression model activated",
		applogger.String("symbol", symbol),
		applogger.Float64("rmse", rmse),
		applogger.Int("features", len(cols)),
	)

	e.predictLatest(ctx, all, cols, meta, id, func(vec []float64) (float64, string, float64) {
		return model.Predict(vec), "", model.R2(take(x, testIdx), takeVec(future, testIdx))
	})
	return nil
}

func (e *Engine) refreshClassification(ctx context.Context, symbol string, all, base []models.MergedFeatureRow, future []float64) error {
	cols := features.AvailableColumns(base, e.cfg.ClassificationFeatures)
	if len(cols) < e.cfg.MinFeatures {
		e.l.Debug("classification skipped: not enough feature columns",
			applogger.String("symbol", symbol),
			applogger.Int("available", len(cols)),
		)
		return nil
	}

	x := features.Matrix(base, cols)
	// direction is up only on a strict increase; flat classifies as down
	labels := make([]float64, len(base))
	for i := range base {
		if future[i] > base[i].Price.Price {
			labels[i] = 1
		}
	}

	trainIdx, testIdx := TrainTestSplit(len(x), e.cfg.TestFraction, e.cfg.Seed)

	model, err := TrainLogisticClassifier(take(x, trainIdx), takeVec(labels, trainIdx), e.cfg.Train)
	if err != nil {
		return &TrainingError{Symbol: symbol, Purpose: models.PurposeDirectionClassification, Err: err}
	}
	accuracy := model.Accuracy(take(x, testIdx), takeVec(labels, testIdx))

	blob, err := EncodeClassifier(model)
	if err != nil {
		return &TrainingError{Symbol: symbol, Purpose: models.PurposeDirectionClassification, Err: err}
	}

	meta := &models.PredictionModel{
		Name:      models.ModelName(symbol, models.PurposeDirectionClassification),
		Symbol:    symbol,
		Purpose:   models.PurposeDirectionClassification,
		ModelType: "logistic_regression_gd",
		Target:    "price_direction_24h",
		Features:  cols,
		Parameters: map[string]float64{
			"epochs":        float64(e.cfg.Train.withDefaults().Epochs),
			"learning_rate": e.cfg.Train.withDefaults().LearningRate,
			"test_fraction": e.cfg.TestFraction,
			"seed":          float64(e.cfg.Seed),
		},
		Performance: map[string]float64{"accuracy": accuracy},
		Active:      true,
		TrainedAt:   time.Now().UTC(),
	}

	id, err := e.activate(ctx, symbol, models.PurposeDirectionClassification, blob, meta)
	if err != nil {
		return err
	}

	e.metrics.RecordModelPerformance(symbol, string(models.PurposeDirectionClassification), "accuracy", accuracy)
	e.l.Info("classification model activated",
		applogger.String("symbol", symbol),
		applogger.Float64("accuracy", accuracy),
		applogger.Int("features", len(cols)),
	)

	e.predictLatest(ctx, all, cols, meta, id, func(vec []float64) (float64, string, float64) {
		proba := model.PredictProba(vec)
		text := "down"
		if proba >= 0.5 {
			text = "up"
		}
		conf := proba
		if proba < 0.5 {
			conf = 1 - proba
		}
		return proba, text, conf
	})
	return nil
}

// activate stores the binary first, then swaps the registry row. Binary
// durability before the metadata transaction means an active row can never
// point at a missing blob.
func (e *Engine) activate(ctx context.Context, symbol string, purpose models.ModelPurpose, blob []byte, meta *models.PredictionModel) (int64, error) {
	if err := e.binaries.Save(symbol, purpose, blob); err != nil {
		return 0, &drepo.PersistenceError{Op: "save model binary", Err: err}
	}
	id, err := e.registry.Activate(ctx, meta)
	if err != nil {
		if isPersistence(err) {
			return 0, err
		}
		return 0, &drepo.PersistenceError{Op: "activate model", Err: err}
	}
	return id, nil
}

// predictLatest applies the freshly activated model to the newest complete
// feature row and records a Prediction. Best effort: a failed prediction
// write is logged, not propagated, since it does not threaten the registry's
// consistency.
func (e *Engine) predictLatest(ctx context.Context, rows []models.MergedFeatureRow, cols []string, meta *models.PredictionModel, modelID int64, apply func([]float64) (value float64, text string, confidence float64)) {
	var latest *models.MergedFeatureRow
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].HasPrice {
			latest = &rows[i]
			break
		}
	}
	if latest == nil {
		return
	}

	vec := features.Matrix([]models.MergedFeatureRow{*latest}, cols)[0]
	value, text, confidence := apply(vec)

	p := &models.Prediction{
		ModelID:      modelID,
		Symbol:       meta.Symbol,
		Timestamp:    latest.Timestamp,
		Target:       meta.Target,
		Confidence:   confidence,
		FeaturesUsed: cols,
	}
	if text != "" {
		p.PredictionText = text
	} else {
		p.PredictionValue = &value
	}

	if err := e.registry.SavePrediction(ctx, p); err != nil {
		e.metrics.RecordError("save_prediction")
		e.l.Error("prediction write failed",
			applogger.String("symbol", meta.Symbol),
			applogger.String("purpose", string(meta.Purpose)),
			applogger.Error(err),
		)
	}
}

func isPersistence(err error) bool {
	var pe *drepo.PersistenceError
	return errors.As(err, &pe)
}
