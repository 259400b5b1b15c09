package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"CoinSage/internal/domain/models"
	drepo "CoinSage/internal/domain/repository"
	applogger "CoinSage/pkg/logger"
)

// ErrNoActiveModel is returned when no active registry row exists for a
// (symbol, purpose) pair.
var ErrNoActiveModel = errors.New("registry: no active model")

// PGModelRegistry is the transactional model registry on Postgres. The
// deactivate-then-insert swap runs in one transaction so readers never see
// zero or two active rows for a model name.
type PGModelRegistry struct {
	db *sql.DB
	l  *applogger.Logger
}

// PGConfig holds Postgres connection settings.
type PGConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// NewPGModelRegistry opens a Postgres connection pool and verifies it.
func NewPGModelRegistry(cfg PGConfig, l *applogger.Logger) (*PGModelRegistry, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	return &PGModelRegistry{db: db, l: l}, nil
}

// Init ensures registry tables exist (idempotent).
func (r *PGModelRegistry) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS prediction_models (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			symbol TEXT NOT NULL,
			purpose TEXT NOT NULL,
			model_type TEXT NOT NULL,
			target TEXT NOT NULL,
			features JSONB NOT NULL DEFAULT '[]',
			parameters JSONB NOT NULL DEFAULT '{}',
			performance JSONB NOT NULL DEFAULT '{}',
			active BOOLEAN NOT NULL DEFAULT FALSE,
			trained_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prediction_models_name_active
			ON prediction_models (name) WHERE active`,
		`CREATE TABLE IF NOT EXISTS predictions (
			id BIGSERIAL PRIMARY KEY,
			model_id BIGINT NOT NULL REFERENCES prediction_models(id),
			symbol TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			target TEXT NOT NULL,
			prediction_value DOUBLE PRECISION,
			prediction_text TEXT,
			confidence DOUBLE PRECISION NOT NULL,
			features_used JSONB NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_symbol_ts
			ON predictions (symbol, ts DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("registry init: %w", err)
		}
	}
	return nil
}

// Activate deactivates any prior active row with the same name and inserts
// the new row, atomically. Returns the new row id.
func (r *PGModelRegistry) Activate(ctx context.Context, m *models.PredictionModel) (int64, error) {
	features, err := json.Marshal(m.Features)
	if err != nil {
		return 0, fmt.Errorf("marshal features: %w", err)
	}
	parameters, err := json.Marshal(m.Parameters)
	if err != nil {
		return 0, fmt.Errorf("marshal parameters: %w", err)
	}
	performance, err := json.Marshal(m.Performance)
	if err != nil {
		return 0, fmt.Errorf("marshal performance: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin activate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE prediction_models SET active = FALSE WHERE name = $1 AND active`, m.Name); err != nil {
		return 0, wrapPGError("deactivate previous", err)
	}

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO prediction_models
		 (name, symbol, purpose, model_type, target, features, parameters, performance, active, trained_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9)
		 RETURNING id`,
		m.Name, m.Symbol, string(m.Purpose), m.ModelType, m.Target,
		features, parameters, performance, m.TrainedAt).Scan(&id)
	if err != nil {
		return 0, wrapPGError("insert model", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, wrapPGError("commit activate", err)
	}

	m.ID = id
	r.l.Info("model activated",
		applogger.String("name", m.Name),
		applogger.Int64("id", id),
	)
	return id, nil
}

// ActiveModel returns the active registry row for a (symbol, purpose) pair.
func (r *PGModelRegistry) ActiveModel(ctx context.Context, symbol string, purpose models.ModelPurpose) (*models.PredictionModel, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, symbol, purpose, model_type, target, features, parameters, performance, active, trained_at
		 FROM prediction_models
		 WHERE name = $1 AND active`,
		models.ModelName(symbol, purpose))

	m, err := scanModel(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveModel
		}
		return nil, fmt.Errorf("query active model: %w", err)
	}
	return m, nil
}

// ListModels returns all registry rows for a symbol, newest first.
func (r *PGModelRegistry) ListModels(ctx context.Context, symbol string) ([]models.PredictionModel, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, symbol, purpose, model_type, target, features, parameters, performance, active, trained_at
		 FROM prediction_models
		 WHERE symbol = $1
		 ORDER BY trained_at DESC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("query models: %w", err)
	}
	defer rows.Close()

	var out []models.PredictionModel
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate models: %w", err)
	}
	return out, nil
}

// SavePrediction appends a prediction row.
func (r *PGModelRegistry) SavePrediction(ctx context.Context, p *models.Prediction) error {
	features, err := json.Marshal(p.FeaturesUsed)
	if err != nil {
		return fmt.Errorf("marshal features_used: %w", err)
	}

	var value interface{}
	if p.PredictionValue != nil {
		value = *p.PredictionValue
	}
	var text interface{}
	if p.PredictionText != "" {
		text = p.PredictionText
	}

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO predictions
		 (model_id, symbol, ts, target, prediction_value, prediction_text, confidence, features_used)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		p.ModelID, p.Symbol, p.Timestamp, p.Target, value, text, p.Confidence, features).Scan(&p.ID)
	if err != nil {
		return wrapPGError("insert prediction", err)
	}
	return nil
}

// LatestPredictions returns up to limit predictions for a symbol, newest first.
func (r *PGModelRegistry) LatestPredictions(ctx context.Context, symbol string, limit int) ([]models.Prediction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, model_id, symbol, ts, target, prediction_value, prediction_text, confidence, features_used
		 FROM predictions
		 WHERE symbol = $1
		 ORDER BY ts DESC, id DESC
		 LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []models.Prediction
	for rows.Next() {
		var (
			p     models.Prediction
			value sql.NullFloat64
			text  sql.NullString
			feats []byte
		)
		if err := rows.Scan(&p.ID, &p.ModelID, &p.Symbol, &p.Timestamp, &p.Target,
			&value, &text, &p.Confidence, &feats); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if value.Valid {
			v := value.Float64
			p.PredictionValue = &v
		}
		if text.Valid {
			p.PredictionText = text.String
		}
		if err := json.Unmarshal(feats, &p.FeaturesUsed); err != nil {
			return nil, fmt.Errorf("unmarshal features_used: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predictions: %w", err)
	}
	return out, nil
}

// Close closes the connection pool.
func (r *PGModelRegistry) Close() error {
	return r.db.Close()
}

// Health pings the pool.
func (r *PGModelRegistry) Health(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanModel(row rowScanner) (*models.PredictionModel, error) {
	var (
		m           models.PredictionModel
		purpose     string
		features    []byte
		parameters  []byte
		performance []byte
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Symbol, &purpose, &m.ModelType, &m.Target,
		&features, &parameters, &performance, &m.Active, &m.TrainedAt); err != nil {
		return nil, err
	}
	m.Purpose = models.ModelPurpose(purpose)
	if err := json.Unmarshal(features, &m.Features); err != nil {
		return nil, fmt.Errorf("unmarshal features: %w", err)
	}
	if err := json.Unmarshal(parameters, &m.Parameters); err != nil {
		return nil, fmt.Errorf("unmarshal parameters: %w", err)
	}
	if err := json.Unmarshal(performance, &m.Performance); err != nil {
		return nil, fmt.Errorf("unmarshal performance: %w", err)
	}
	return &m, nil
}

// wrapPGError classifies a Postgres driver error for callers that need to
// distinguish persistence failures.
func wrapPGError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &drepo.PersistenceError{Op: fmt.Sprintf("%s (%s)", op, pqErr.Code.Name()), Err: err}
	}
	return &drepo.PersistenceError{Op: op, Err: err}
}
