package usecase

import (
	"context"
	"fmt"
	"time"

	applogger "CoinSage/pkg/logger"
	"CoinSage/pkg/queue"
)

// RetrainJob consumes queued model-refresh requests. It exists so a slow
// training run never stalls the pipeline tick that requested it.
type RetrainJob struct {
	updater *KnowledgeUpdater
	timeout time.Duration
	l       *applogger.Logger
}

func NewRetrainJob(updater *KnowledgeUpdater, timeout time.Duration, l *applogger.Logger) *RetrainJob {
	return &RetrainJob{updater: updater, timeout: timeout, l: l}
}

func (j *RetrainJob) Name() string { return "model-retrain" }

func (j *RetrainJob) Type() string { return retrainMessageType }

func (j *RetrainJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[RetrainPayload](payload)
	if err != nil {
		return fmt.Errorf("retrain job: %w", err)
	}
	if p.Symbol == "" {
		return fmt.Errorf("retrain job: empty symbol")
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	start := time.Now()
	if err := j.updater.RetrainModels(ctx, p.Symbol); err != nil {
		return fmt.Errorf("retrain %s: %w", p.Symbol, err)
	}
	j.l.Info("retrain job: done",
		applogger.String("symbol", p.Symbol),
		applogger.Duration("took", time.Since(start)))
	return nil
}
