package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gridtrader/internal/broker"
	"gridtrader/internal/config"
	"gridtrader/internal/engine"
	"gridtrader/internal/logging"
	"gridtrader/internal/md"
	"gridtrader/internal/metrics"
	"gridtrader/internal/order"
	"gridtrader/internal/risk"
	"gridtrader/internal/state"
	"gridtrader/internal/strategy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, closer := logging.New(cfg.LogLevel, cfg.LogFile)
	defer closer.Close()

	runID := generateRunID()
	decisions, err := engine.NewDecisionLogger(cfg.DecisionsPath, runID, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("decision logger error")
	}
	defer func() {
		if err := decisions.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close decision logger")
		}
	}()

	strat, err := strategy.Build(strategy.Kind(cfg.Strategy), strategyConfig(cfg), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("strategy error")
	}

	instruments := state.NewInstruments(state.DataConfig{
		SMAPeriod:       cfg.TMAPeriod,
		RSIPeriod:       cfg.RSIPeriod,
		RSIWindow:       cfg.RSIWindow,
		VWAPResetPeriod: cfg.VWAPResetPeriod,
	})
	tracked := trackedInstruments(cfg)
	for _, inst := range tracked {
		instruments.Register(inst)
	}

	var brokerClient engine.Broker
	if cfg.Mode == config.ModePaper {
		brokerClient = broker.New(cfg.APIKey, cfg.APISecret, cfg.PaperBaseURL, cfg.OrdersPerSecond, logger)
	}
	engineImpl := engine.New(cfg, strat, risk.NewGate(logger), brokerClient, instruments, decisions, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalChan
		logger.Info().Msg("shutdown signal received")
		cancel()
	}()

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		srv = metrics.Serve(cfg.MetricsAddr)
	}

	go engineImpl.RunCycles(ctx, cfg.DecisionInterval)
	if brokerClient != nil {
		go engine.SyncAccountLoop(ctx, brokerClient, engineImpl, cfg.ReconcileInterval)
	}

	logger.Info().
		Str("run_id", runID).
		Str("mode", string(cfg.Mode)).
		Str("strategy", cfg.Strategy).
		Str("source", cfg.Source).
		Int("instruments", len(tracked)).
		Msg("starting bot")

	if err := runSource(ctx, cfg, tracked, engineImpl.OnMarketEvent, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("market data stream stopped")
	}

	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		done()
	}
	logger.Info().Msg("bot shutdown complete")
}

func runSource(ctx context.Context, cfg config.Config, instruments []md.Instrument, handler md.EventHandler, logger zerolog.Logger) error {
	switch cfg.Source {
	case config.SourceBinance:
		return md.StartBinanceTrades(ctx, cfg.BinanceURL, instruments, handler, logger)
	default:
		return md.StartStream(ctx, md.StreamConfig{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			Feed:      cfg.Feed,
		}, instruments, handler, logger)
	}
}

func trackedInstruments(cfg config.Config) []md.Instrument {
	out := make([]md.Instrument, 0, len(cfg.Instruments))
	for i, inst := range cfg.Instruments {
		exchange := inst.Exchange
		if exchange == "" {
			exchange = cfg.Source
		}
		out = append(out, md.Instrument{
			Exchange: order.ExchangeID(exchange),
			Index:    order.InstrumentIndex(i),
			Name:     inst.Name,
		})
	}
	return out
}

func strategyConfig(cfg config.Config) strategy.Config {
	grid := strategy.DefaultGridConfig()
	grid.WalletSize = cfg.WalletSize
	grid.RiskPercentage = cfg.RiskPercentage
	grid.BandPercentage = cfg.BandPercentage
	grid.GridSpacingPercentage = cfg.GridSpacingPercentage
	grid.MaxGridLevels = cfg.MaxGridLevels
	grid.PriceHistoryLength = cfg.PriceHistoryLength

	vwap := strategy.DefaultVWAPRSIConfig()
	vwap.WalletSize = cfg.WalletSize
	vwap.RiskPercentage = cfg.RiskPercentage

	return strategy.Config{Grid: grid, VWAPRSI: vwap}
}

func generateRunID() string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	return timestamp + "-" + uuid.NewString()[:8]
}
