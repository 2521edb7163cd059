// Package main provides the operator CLI: one-shot maintenance and reporting
// commands run against the engine's component set, independent of the long
// running server process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/internal/broker"
	"github.com/atlas-desktop/scalper-engine/internal/config"
	"github.com/atlas-desktop/scalper-engine/internal/decision"
	"github.com/atlas-desktop/scalper-engine/internal/journal"
	"github.com/atlas-desktop/scalper-engine/internal/monitor"
	"github.com/atlas-desktop/scalper-engine/internal/orchestrator"
	"github.com/atlas-desktop/scalper-engine/internal/portfolio"
	"github.com/atlas-desktop/scalper-engine/internal/scalper"
	"github.com/atlas-desktop/scalper-engine/internal/scheduler"
	"github.com/atlas-desktop/scalper-engine/internal/store"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// components bundles the constructed set every operator command draws from.
// Built fresh per invocation: this CLI is a maintenance tool, not the
// long-running engine process, so it starts from an empty store unless a
// durable Store implementation is wired in its place.
type components struct {
	store     *store.Store
	brokers   *broker.Registry
	orch      *orchestrator.Orchestrator
	recorder  *portfolio.Recorder
	monitor   *monitor.Monitor
	runner    *scheduler.Runner
	runtimeCfg types.RuntimeConfig
	log       *zap.Logger
}

func buildComponents(logger *zap.Logger) *components {
	loader := config.NewLoader("", logger)
	runtimeCfg, err := loader.Load()
	if err != nil {
		logger.Fatal("failed to load runtime config", zap.Error(err))
	}

	st := store.New()
	brokers := broker.NewRegistry()
	brokers.Register(broker.NewPaperConnector(runtimeCfg.PaperStartBalance, logger))

	metrics := journal.NewMetrics(prometheus.NewRegistry())
	j := journal.New(st, logger, metrics)
	orch := orchestrator.New(st, j, logger)
	recorder := portfolio.NewRecorder(st, logger)
	mon := monitor.New(st, orch, j, logger, runtimeCfg)
	planner := scalper.NewPlanner(logger)
	pipeline := decision.New(st, orch, j, logger, runtimeCfg)

	runner := scheduler.NewRunner(scheduler.Config{
		Store: st, Market: noMarketData{}, Brokers: brokers, Planner: planner,
		Decisions: pipeline, Orch: orch, Portfolio: recorder, Monitor: mon,
		RuntimeCfg: runtimeCfg,
	}, logger)

	return &components{
		store: st, brokers: brokers, orch: orch, recorder: recorder,
		monitor: mon, runner: runner, runtimeCfg: runtimeCfg, log: logger,
	}
}

type noMarketData struct{}

func (noMarketData) Candles(ctx context.Context, symbol string, tf types.Timeframe, lookback int) ([]types.Candle, error) {
	return nil, nil
}

// brokerCanceler adapts the broker registry to monitor.OrderCanceler,
// resolving each order's account and connector before canceling.
type brokerCanceler struct {
	ctx     context.Context
	store   *store.Store
	brokers *broker.Registry
}

func (b brokerCanceler) CancelOrder(order types.Order) error {
	account, ok := b.store.GetBrokerAccount(order.BrokerAccountID)
	if !ok {
		return fmt.Errorf("order %s references unknown broker account %s", order.ID, order.BrokerAccountID)
	}
	conn, err := b.brokers.Resolve(account.BrokerCode)
	if err != nil {
		return err
	}
	return conn.CancelOrder(b.ctx, account, order)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cmd := os.Args[1]
	args := os.Args[2:]
	now := time.Now()
	ctx := context.Background()

	switch cmd {
	case "cancel-stuck-orders":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		minutes := fs.Int("minutes", 5, "cancel orders still unacknowledged after this many minutes")
		fs.Parse(args)
		c := buildComponents(logger)
		canceler := brokerCanceler{ctx: ctx, store: c.store, brokers: c.brokers}
		n := monitor.CancelStuckOrders(c.store, canceler, time.Duration(*minutes)*time.Minute, now, logger)
		fmt.Printf("canceled %d stuck orders\n", n)

	case "reconcile-trades":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		apply := fs.Bool("apply", false, "apply backfill instead of a dry-run report")
		fs.Parse(args)
		c := buildComponents(logger)
		res := monitor.ReconcileOrders(c.store, c.recorder, *apply, now, logger)
		fmt.Printf("scanned %d filled orders, backfilled %d, skipped %d (apply=%v)\n", res.Scanned, res.Backfilled, res.Skipped, *apply)

	case "recompute-pnl":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		days := fs.Int("days", 30, "recompute the realized PnL rollup over this many trailing days")
		fs.Parse(args)
		c := buildComponents(logger)
		n, err := portfolio.RecomputePnL(c.store, *days, now)
		if err != nil {
			logger.Fatal("recompute-pnl failed", zap.Error(err))
		}
		fmt.Printf("recomputed %d daily pnl rows over the last %d days\n", n, *days)

	case "performance-report":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		days := fs.Int("days", 30, "report window in trailing days")
		fs.Parse(args)
		c := buildComponents(logger)
		summary := portfolio.PerformanceReport(c.store, *days, now)
		fmt.Println(summary.String())

	case "show-runtime-config":
		c := buildComponents(logger)
		printRuntimeConfig(c.runtimeCfg)

	case "run-scalper-cycle":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		botID := fs.String("bot", "", "bot id to run a single scalper cycle for")
		fs.Parse(args)
		if *botID == "" {
			logger.Fatal("run-scalper-cycle requires --bot")
		}
		c := buildComponents(logger)
		bot, ok := c.store.GetBot(*botID)
		if !ok {
			logger.Fatal("bot not found", zap.String("bot", *botID))
		}
		c.runner.Start()
		defer c.runner.Stop()
		bot.Status = types.BotStatusActive
		bot.AutoTrade = true
		_ = c.store.SaveBot(bot)
		errs := c.runner.Tick(ctx, now)
		if len(errs) > 0 {
			logger.Error("scalper cycle reported errors", zap.Errors("errors", errs))
			os.Exit(1)
		}
		fmt.Printf("ran one scalper cycle for bot %s\n", *botID)

	default:
		usage()
		os.Exit(1)
	}
}

func printRuntimeConfig(cfg types.RuntimeConfig) {
	fmt.Printf("decision_min_score=%s\n", cfg.DecisionMinScore)
	fmt.Printf("decision_flip_score=%s\n", cfg.DecisionFlipScore)
	fmt.Printf("decision_allow_hedging=%v\n", cfg.DecisionAllowHedging)
	fmt.Printf("decision_flip_cooldown_min=%d\n", cfg.DecisionFlipCooldownMin)
	fmt.Printf("decision_max_flips_per_day=%d\n", cfg.DecisionMaxFlipsPerDay)
	fmt.Printf("decision_order_cooldown_sec=%d\n", cfg.DecisionOrderCooldownSec)
	fmt.Printf("order_ack_timeout_seconds=%d\n", cfg.OrderAckTimeoutSeconds)
	fmt.Printf("early_exit_max_unrealized_pct=%s\n", cfg.EarlyExitMaxUnrealizedPct)
	fmt.Printf("trailing_trigger_pct=%s\n", cfg.TrailingTriggerPct)
	fmt.Printf("trailing_distance_atr_mult=%s\n", cfg.TrailingDistanceATRMult)
	fmt.Printf("paper_start_balance=%s\n", cfg.PaperStartBalance)
	fmt.Printf("mt5_default_contract_size=%s\n", cfg.MT5DefaultContractSize)
	fmt.Printf("max_order_lot=%s\n", cfg.MaxOrderLot)
	fmt.Printf("max_order_notional=%s\n", cfg.MaxOrderNotional)
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: operator <command> [flags]

commands:
  cancel-stuck-orders --minutes N
  reconcile-trades [--apply]
  recompute-pnl --days N
  performance-report --days N
  show-runtime-config
  run-scalper-cycle --bot ID`)
}
