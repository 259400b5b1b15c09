package main

import (
	"flag"
	"log"
	"os"

	"CoinSage/internal/di"
	"CoinSage/pkg/config"
	applogger "CoinSage/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	l, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	app, err := di.InitializeApp(cfg, l)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	l.Info("starting",
		applogger.String("env", cfg.Environment),
		applogger.Strings("symbols", cfg.Binance.Symbols))

	if err := app.Run(); err != nil {
		l.Error("app error", applogger.Error(err))
		os.Exit(1)
	}
}
