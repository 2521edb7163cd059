// Package main provides the entry point for the scalper engine server: it
// wires the store, broker connectors, decision pipeline, and scheduler
// together and serves the operator HTTP/WebSocket API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atlas-desktop/scalper-engine/internal/api"
	"github.com/atlas-desktop/scalper-engine/internal/broker"
	"github.com/atlas-desktop/scalper-engine/internal/config"
	"github.com/atlas-desktop/scalper-engine/internal/copytrade"
	"github.com/atlas-desktop/scalper-engine/internal/decision"
	"github.com/atlas-desktop/scalper-engine/internal/journal"
	"github.com/atlas-desktop/scalper-engine/internal/marketdata"
	"github.com/atlas-desktop/scalper-engine/internal/monitor"
	"github.com/atlas-desktop/scalper-engine/internal/orchestrator"
	"github.com/atlas-desktop/scalper-engine/internal/portfolio"
	"github.com/atlas-desktop/scalper-engine/internal/scalper"
	"github.com/atlas-desktop/scalper-engine/internal/scheduler"
	"github.com/atlas-desktop/scalper-engine/internal/store"
)

func main() {
	host := flag.String("host", "localhost", "Server host")
	port := flag.Int("port", 8080, "Server port")
	dataDir := flag.String("data", "./data", "Data directory")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	paper := flag.Bool("paper", true, "Enable paper trading mode")
	configFile := flag.String("config", "", "Runtime config file (optional; env vars and defaults apply regardless)")
	cycleInterval := flag.Duration("cycle-interval", 5*time.Second, "Scalper cycle tick interval")
	flag.Parse()

	logger := setupLogger(*logLevel)
	defer logger.Sync()

	serverCfg := config.ServerConfig{
		Host: *host, Port: *port, DataDir: *dataDir, LogLevel: *logLevel,
		Paper: *paper, EnableMetrics: true, MetricsPort: 9090,
		CORSOrigins: []string{"*"},
	}

	logger.Info("starting scalper engine",
		zap.String("host", serverCfg.Host),
		zap.Int("port", serverCfg.Port),
		zap.String("dataDir", serverCfg.DataDir),
		zap.Bool("paper", serverCfg.Paper),
	)

	if err := os.MkdirAll(serverCfg.DataDir, 0o755); err != nil {
		logger.Fatal("failed to create data directory", zap.Error(err))
	}

	loader := config.NewLoader(*configFile, logger)
	runtimeCfg, err := loader.Load()
	if err != nil {
		logger.Fatal("failed to load runtime config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := store.New()

	brokers := broker.NewRegistry()
	paperConn := broker.NewPaperConnector(runtimeCfg.PaperStartBalance, logger)
	brokers.Register(paperConn)
	// MT5 wiring needs a live MT5Client implementation (a terminal bridge or
	// gRPC gateway); none ships in this repo, so only the paper connector is
	// registered until one is supplied.

	metrics := journal.NewMetrics(prometheus.NewRegistry())
	j := journal.New(st, logger, metrics)
	orch := orchestrator.New(st, j, logger)
	recorder := portfolio.NewRecorder(st, logger)
	planner := scalper.NewPlanner(logger)
	pipeline := decision.New(st, orch, j, logger, runtimeCfg)
	mon := monitor.New(st, orch, j, logger, runtimeCfg)
	copytradeAllocator := copytrade.NewAllocator(st, brokers, logger)

	marketCfg := marketdata.DefaultConfig()
	marketSvc := marketdata.NewService(logger, marketCfg, paperConn)

	apiServer := api.NewServer(logger, serverCfg, api.Deps{
		Store: st, Brokers: brokers, Planner: planner, Decisions: pipeline,
		Orch: orch, Portfolio: recorder, Monitor: mon, Journal: j,
		Copytrade: copytradeAllocator, RuntimeCfg: runtimeCfg,
	})

	runner := scheduler.NewRunner(scheduler.Config{
		Store: st, Market: marketSvc, Brokers: brokers, Planner: planner,
		Decisions: pipeline, Orch: orch, Portfolio: recorder, Monitor: mon,
		Hub: apiServer.Hub(), RuntimeCfg: runtimeCfg,
	}, logger)
	runner.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	marketSvc.Start(ctx)

	tickerDone := make(chan struct{})
	go runScheduleLoop(ctx, runner, *cycleInterval, logger, tickerDone)

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("api server error", zap.Error(err))
		}
	}()

	logger.Info("scalper engine started",
		zap.String("ws", fmt.Sprintf("ws://%s:%d/ws", serverCfg.Host, serverCfg.Port)),
		zap.String("http", fmt.Sprintf("http://%s:%d/api/v1", serverCfg.Host, serverCfg.Port)),
		zap.Bool("paper", serverCfg.Paper),
	)

	<-sigChan
	logger.Info("shutdown signal received")

	cancel()
	<-tickerDone

	marketSvc.Stop()

	if err := runner.Stop(); err != nil {
		logger.Error("error stopping scheduler", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", zap.Error(err))
	}

	logger.Info("scalper engine stopped")
}

// runScheduleLoop drives the cooperative scheduler: a market-hours guard
// sweep, a scalper cycle, a pending-order dispatch sweep, and a position
// policy sweep every interval, until ctx is canceled. Each task runs
// serially within a tick since they share the same store and broker state;
// bot cycles themselves still fan out in parallel inside Runner.Tick.
func runScheduleLoop(ctx context.Context, runner *scheduler.Runner, interval time.Duration, logger *zap.Logger, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if errs := runner.MarketGuardTick(now); len(errs) > 0 {
				logger.Warn("market guard errors", zap.Int("count", len(errs)), zap.Errors("errors", errs))
			}
			if errs := runner.Tick(ctx, now); len(errs) > 0 {
				logger.Warn("scalper cycle errors", zap.Int("count", len(errs)), zap.Errors("errors", errs))
			}
			if errs := runner.DispatchPendingOrders(ctx, now); len(errs) > 0 {
				logger.Warn("order dispatch errors", zap.Int("count", len(errs)), zap.Errors("errors", errs))
			}
			if errs := runner.MonitorTick(ctx, now); len(errs) > 0 {
				logger.Warn("monitor sweep errors", zap.Int("count", len(errs)), zap.Errors("errors", errs))
			}
		}
	}
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
