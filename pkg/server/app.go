package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "CoinSage/internal/domain/repository"
	"CoinSage/internal/usecase"
	"CoinSage/pkg/cache"
	pkgch "CoinSage/pkg/clickhouse"
	"CoinSage/pkg/config"
	xhttp "CoinSage/pkg/http"
	pkgkafka "CoinSage/pkg/kafka"
	applogger "CoinSage/pkg/logger"
	"CoinSage/pkg/queue"
)

// Deps bundles everything the application lifecycle starts and stops.
type Deps struct {
	PriceCollector *usecase.PriceCollector
	NewsCollector  *usecase.NewsCollector
	Scheduler      *usecase.Scheduler

	Consumer     *pkgkafka.Consumer
	PriceHandler pkgkafka.MessageHandler
	NewsHandler  pkgkafka.MessageHandler

	JobQueue *queue.RedisQueue // nil when queued retraining is disabled

	HTTPHandler xhttp.Handler

	Publisher drepo.Publisher
	CHClient  *pkgch.Client
	Cache     cache.Service
}

// App encapsulates the application lifecycle: collectors, ingest consumer,
// pipeline scheduler, job queue and the dashboard HTTP server.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	d          Deps
	httpServer *xhttp.Server
}

func New(cfg *config.Config, l *applogger.Logger, d Deps) *App {
	return &App{cfg: cfg, l: l, d: d}
}

// Run starts every component and blocks until an interrupt arrives.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.l, a.d.HTTPHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(a.cfg.Metrics.Path),
	)

	if a.d.PriceCollector != nil {
		go a.d.PriceCollector.Run(ctx)
		a.l.Info("price collector started",
			applogger.Strings("symbols", a.cfg.Binance.Symbols))
	}
	if a.d.NewsCollector != nil {
		go a.d.NewsCollector.Run(ctx)
		a.l.Info("news collector started",
			applogger.Strings("currencies", a.cfg.CryptoPanic.Currencies))
	}

	if a.d.Consumer != nil {
		if a.d.PriceHandler != nil {
			a.d.Consumer.RegisterHandler(a.d.PriceHandler)
		}
		if a.d.NewsHandler != nil {
			a.d.Consumer.RegisterHandler(a.d.NewsHandler)
		}
		go func() {
			if err := a.d.Consumer.Start(); err != nil {
				a.l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.l.Info("kafka consumer started",
			applogger.String("group", a.cfg.Kafka.Consumer.GroupID))
	}

	if a.d.JobQueue != nil {
		if err := a.d.JobQueue.Start(); err != nil {
			a.l.Error("job queue start error", applogger.Error(err))
			return err
		}
		a.l.Info("job queue started")
	}

	if a.d.Scheduler != nil {
		go a.d.Scheduler.Run(ctx)
		a.l.Info("pipeline scheduler started",
			applogger.Duration("interval", a.cfg.Pipeline.Interval))
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown stops components in dependency order: producers of work first,
// then the stores they write to.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.l.Warn("http shutdown error", applogger.Error(err))
		}
	}

	if a.d.Consumer != nil {
		if err := a.d.Consumer.Stop(shutdownCtx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.d.JobQueue != nil {
		if err := a.d.JobQueue.Stop(shutdownCtx); err != nil {
			a.l.Warn("job queue stop error", applogger.Error(err))
		}
	}

	if a.d.Publisher != nil {
		if err := a.d.Publisher.Close(); err != nil {
			a.l.Warn("publisher close error", applogger.Error(err))
		}
	}

	if a.d.CHClient != nil {
		if err := a.d.CHClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if a.d.Cache != nil {
		if err := a.d.Cache.Close(); err != nil {
			a.l.Warn("cache close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
