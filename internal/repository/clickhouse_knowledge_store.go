package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"CoinSage/internal/domain/models"
	drepo "CoinSage/internal/domain/repository"
	pkgch "CoinSage/pkg/clickhouse"
	applogger "CoinSage/pkg/logger"
)

// CHKnowledgeStore persists derived knowledge items in ClickHouse. Items are
// append-only; corrections arrive as new rows with a newer timestamp.
type CHKnowledgeStore struct {
	client *pkgch.Client
	l      *applogger.Logger
}

// NewCHKnowledgeStore creates a ClickHouse-backed knowledge store.
func NewCHKnowledgeStore(client *pkgch.Client, l *applogger.Logger) *CHKnowledgeStore {
	return &CHKnowledgeStore{client: client, l: l}
}

// Init ensures the knowledge table exists.
func (s *CHKnowledgeStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS knowledge_items (
			symbol LowCardinality(String),
			data_type LowCardinality(String),
			ts DateTime64(3, 'UTC'),
			feature_name LowCardinality(String),
			feature_value Nullable(Float64),
			feature_text Nullable(String),
			metadata String
		) ENGINE = MergeTree
		PARTITION BY toYYYYMM(ts)
		ORDER BY (symbol, data_type, ts, feature_name)`,
	}
	if err := s.client.InitSchema(ctx, stmts); err != nil {
		return fmt.Errorf("knowledge store init: %w", err)
	}
	return nil
}

// SaveItems inserts knowledge items in one batch.
func (s *CHKnowledgeStore) SaveItems(ctx context.Context, items []models.KnowledgeItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO knowledge_items
		 (symbol, data_type, ts, feature_name, feature_value, feature_text, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		var value interface{}
		if item.FeatureValue != nil {
			value = *item.FeatureValue
		}
		var text interface{}
		if item.FeatureText != "" {
			text = item.FeatureText
		}

		meta := "{}"
		if len(item.Metadata) > 0 {
			raw, err := json.Marshal(item.Metadata)
			if err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("marshal metadata: %w", err)
			}
			meta = string(raw)
		}

		if _, err := stmt.ExecContext(ctx,
			item.Symbol, string(item.DataType), item.Timestamp,
			item.FeatureName, value, text, meta); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	s.l.Debug("knowledge items stored", applogger.Int("rows", len(items)))
	return nil
}

// Query returns knowledge items matching the filter, newest first.
func (s *CHKnowledgeStore) Query(ctx context.Context, f drepo.KnowledgeFilter) ([]models.KnowledgeItem, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.Symbol != "" {
		conds = append(conds, "symbol = ?")
		args = append(args, f.Symbol)
	}
	if f.DataType != "" {
		conds = append(conds, "data_type = ?")
		args = append(args, string(f.DataType))
	}
	if !f.From.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		conds = append(conds, "ts <= ?")
		args = append(args, f.To)
	}

	query := `SELECT symbol, data_type, ts, feature_name, feature_value, feature_text, metadata
		FROM knowledge_items`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY ts DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query knowledge: %w", err)
	}
	defer rows.Close()

	var out []models.KnowledgeItem
	for rows.Next() {
		var (
			item     models.KnowledgeItem
			dataType string
			value    sql.NullFloat64
			text     sql.NullString
			meta     string
		)
		if err := rows.Scan(&item.Symbol, &dataType, &item.Timestamp,
			&item.FeatureName, &value, &text, &meta); err != nil {
			return nil, fmt.Errorf("scan knowledge: %w", err)
		}
		item.DataType = models.DataType(dataType)
		if value.Valid {
			v := value.Float64
			item.FeatureValue = &v
		}
		if text.Valid {
			item.FeatureText = text.String
		}
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &item.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate knowledge: %w", err)
	}
	return out, nil
}
