package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/internal/broker"
	"github.com/atlas-desktop/scalper-engine/internal/decision"
	"github.com/atlas-desktop/scalper-engine/internal/journal"
	"github.com/atlas-desktop/scalper-engine/internal/orchestrator"
	"github.com/atlas-desktop/scalper-engine/internal/portfolio"
	"github.com/atlas-desktop/scalper-engine/internal/scalper"
	"github.com/atlas-desktop/scalper-engine/internal/store"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

type emptyMarketData struct{}

func (emptyMarketData) Candles(ctx context.Context, symbol string, tf types.Timeframe, lookback int) ([]types.Candle, error) {
	return nil, nil
}

type fixedMarketData struct {
	candles []types.Candle
}

func (f fixedMarketData) Candles(ctx context.Context, symbol string, tf types.Timeframe, lookback int) ([]types.Candle, error) {
	return f.candles, nil
}

func flatCandles(n int, price decimal.Decimal) []types.Candle {
	out := make([]types.Candle, n)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = types.Candle{Time: base.Add(time.Duration(i) * time.Minute), Open: price, High: price, Low: price, Close: price}
	}
	return out
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastSignalUpdate(*types.Signal)     {}
func (noopBroadcaster) BroadcastDecisionUpdate(*types.Decision) {}
func (noopBroadcaster) BroadcastOrderUpdate(*types.Order)       {}

func newTestRunner(t *testing.T) (*Runner, *store.Store) {
	t.Helper()
	logger := zap.NewNop()
	st := store.New()
	brokers := broker.NewRegistry()
	brokers.Register(broker.NewPaperConnector(decimal.NewFromInt(10000), logger))

	j := journal.New(st, logger, journal.NewMetrics(prometheus.NewRegistry()))
	orch := orchestrator.New(st, j, logger)
	recorder := portfolio.NewRecorder(st, logger)
	planner := scalper.NewPlanner(logger)
	pipeline := decision.New(st, orch, j, logger, types.DefaultRuntimeConfig())

	runner := NewRunner(Config{
		Store:      st,
		Market:     emptyMarketData{},
		Brokers:    brokers,
		Planner:    planner,
		Decisions:  pipeline,
		Orch:       orch,
		Portfolio:  recorder,
		Hub:        noopBroadcaster{},
		RuntimeCfg: types.DefaultRuntimeConfig(),
	}, logger)
	runner.Start()
	t.Cleanup(func() { runner.Stop() })
	return runner, st
}

func TestTickSkipsInactiveBots(t *testing.T) {
	runner, st := newTestRunner(t)
	_ = st.SaveBot(types.Bot{ID: "b1", Status: types.BotStatusPaused, AutoTrade: true})
	_ = st.SaveBot(types.Bot{ID: "b2", Status: types.BotStatusActive, AutoTrade: false})

	errs := runner.Tick(context.Background(), time.Now())
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestTickWithNoCandlesProducesNoOrders(t *testing.T) {
	runner, st := newTestRunner(t)
	_ = st.SaveBrokerAccount(types.BrokerAccount{ID: "acct1", BrokerCode: "paper", IsActive: true})
	_ = st.SaveBot(types.Bot{
		ID:                "b1",
		Status:            types.BotStatusActive,
		AutoTrade:         true,
		BrokerAccountID:   "acct1",
		Asset:             types.Asset{Symbol: "EURUSD"},
		DefaultTimeframe:  types.Timeframe1m,
		DefaultQty:        decimal.NewFromFloat(0.01),
		EnabledStrategies: []string{"trend_follow"},
		DecisionMinScore:  decimal.NewFromFloat(0.5),
	})

	errs := runner.Tick(context.Background(), time.Now())
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if len(st.ListOrdersByBot("b1")) != 0 {
		t.Errorf("expected no orders placed with empty candle history")
	}
}

func TestDispatchPendingOrdersPlacesNewOrders(t *testing.T) {
	runner, st := newTestRunner(t)
	_ = st.SaveBrokerAccount(types.BrokerAccount{ID: "acct1", BrokerCode: "paper", IsActive: true})
	bot := types.Bot{ID: "b1", BrokerAccountID: "acct1", Asset: types.Asset{Symbol: "EURUSD"}}
	_ = st.SaveBot(bot)

	pos := types.Position{BrokerAccountID: "acct1", Symbol: "EURUSD", Qty: decimal.NewFromFloat(0.5)}
	orch := orchestrator.New(st, nil, zap.NewNop())
	order, err := orch.CreateCloseOrder(pos, bot, time.Now())
	if err != nil {
		t.Fatalf("create close order: %v", err)
	}
	if order.Status != types.OrderStatusNew {
		t.Fatalf("expected freshly created close order to be new, got %s", order.Status)
	}

	errs := runner.DispatchPendingOrders(context.Background(), time.Now())
	if len(errs) != 0 {
		t.Fatalf("expected no errors dispatching pending orders, got %v", errs)
	}

	updated, ok := st.GetOrder(order.ID)
	if !ok {
		t.Fatalf("expected order to still exist")
	}
	if updated.Status == types.OrderStatusNew {
		t.Errorf("expected order to move out of new after dispatch, still new")
	}
}

func TestDispatchPendingOrdersReportsUnknownAccount(t *testing.T) {
	runner, st := newTestRunner(t)
	bot := types.Bot{ID: "b1", BrokerAccountID: "missing-acct", Asset: types.Asset{Symbol: "EURUSD"}}
	_ = st.SaveBot(bot)

	pos := types.Position{BrokerAccountID: "missing-acct", Symbol: "EURUSD", Qty: decimal.NewFromFloat(0.5)}
	orch := orchestrator.New(st, nil, zap.NewNop())
	if _, err := orch.CreateCloseOrder(pos, bot, time.Now()); err != nil {
		t.Fatalf("create close order: %v", err)
	}

	errs := runner.DispatchPendingOrders(context.Background(), time.Now())
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for unknown broker account, got %v", errs)
	}
}

func TestMonitorTickClosesPositionPastKillSwitch(t *testing.T) {
	logger := zap.NewNop()
	st := store.New()
	brokers := broker.NewRegistry()
	brokers.Register(broker.NewPaperConnector(decimal.NewFromInt(10000), logger))

	j := journal.New(st, logger, journal.NewMetrics(prometheus.NewRegistry()))
	orch := orchestrator.New(st, j, logger)
	planner := scalper.NewPlanner(logger)
	pipeline := decision.New(st, orch, j, logger, types.DefaultRuntimeConfig())
	mon := monitor.New(st, orch, j, logger, types.DefaultRuntimeConfig())
	market := fixedMarketData{candles: flatCandles(30, decimal.NewFromFloat(1.0500))}

	runner := NewRunner(Config{
		Store:      st,
		Market:     market,
		Brokers:    brokers,
		Planner:    planner,
		Decisions:  pipeline,
		Orch:       orch,
		Monitor:    mon,
		Hub:        noopBroadcaster{},
		RuntimeCfg: types.DefaultRuntimeConfig(),
	}, logger)
	runner.Start()
	t.Cleanup(func() { runner.Stop() })

	_ = st.SaveBrokerAccount(types.BrokerAccount{ID: "acct1", BrokerCode: "paper", IsActive: true})
	bot := types.Bot{
		ID: "b1", BrokerAccountID: "acct1", Asset: types.Asset{Symbol: "EURUSD"},
		DefaultTimeframe: types.Timeframe1m,
		KillSwitch:       types.KillSwitchState{MaxUnrealizedPct: decimal.NewFromFloat(0.01)},
	}
	_ = st.SaveBot(bot)
	_ = st.SavePosition(types.Position{
		BrokerAccountID: "acct1", Symbol: "EURUSD",
		Qty: decimal.NewFromFloat(1), AvgPrice: decimal.NewFromFloat(2.0000),
		Status: types.PositionStatusOpen, UpdatedAt: time.Now(),
	})

	errs := runner.MonitorTick(context.Background(), time.Now())
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}

	orders := st.ListOrdersByBot("b1")
	if len(orders) != 1 {
		t.Fatalf("expected 1 close order created, got %d", len(orders))
	}
	if !orders[0].IsCloseOrder() {
		t.Errorf("expected a close order")
	}
}

func TestMarketGuardTickPausesBotOnWeekendClosedSymbol(t *testing.T) {
	runner, st := newTestRunner(t)
	_ = st.SaveBot(types.Bot{ID: "b1", Status: types.BotStatusActive, Asset: types.Asset{Symbol: "EURUSD"}})

	saturday := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	if errs := runner.MarketGuardTick(saturday); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}

	bot, _ := st.GetBot("b1")
	if bot.Status != types.BotStatusPaused {
		t.Fatalf("expected bot paused over the weekend, got %s", bot.Status)
	}
}

func TestMarketGuardTickUnpausesBotOnceMarketReopens(t *testing.T) {
	runner, st := newTestRunner(t)
	_ = st.SaveBot(types.Bot{ID: "b1", Status: types.BotStatusActive, Asset: types.Asset{Symbol: "EURUSD"}})

	saturday := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	_ = runner.MarketGuardTick(saturday)

	sundayAfterOpen := time.Date(2026, 8, 2, 23, 0, 0, 0, time.UTC)
	if errs := runner.MarketGuardTick(sundayAfterOpen); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}

	bot, _ := st.GetBot("b1")
	if bot.Status != types.BotStatusActive {
		t.Fatalf("expected bot un-paused once the weekly market reopened, got %s", bot.Status)
	}
}

func TestMarketGuardTickLeavesCryptoBotAlone(t *testing.T) {
	runner, st := newTestRunner(t)
	_ = st.SaveBot(types.Bot{ID: "b1", Status: types.BotStatusActive, Asset: types.Asset{Symbol: "BTCUSD"}})

	saturday := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	_ = runner.MarketGuardTick(saturday)

	bot, _ := st.GetBot("b1")
	if bot.Status != types.BotStatusActive {
		t.Fatalf("expected crypto bot to stay active on a weekend, got %s", bot.Status)
	}
}

func TestBuildScalperConfigUsesBotFields(t *testing.T) {
	bot := types.Bot{
		Asset:                  types.Asset{Symbol: "EURUSD"},
		MaxConcurrentPositions: 3,
		MaxTradesPerDay:        10,
	}
	cfg := buildScalperConfig(bot)
	symCfg, ok := cfg.SymbolConfigFor("EURUSD")
	if !ok {
		t.Fatalf("expected EURUSD symbol config")
	}
	if symCfg.MaxTradesPerDay != 10 {
		t.Errorf("expected max trades per day 10, got %d", symCfg.MaxTradesPerDay)
	}
	if cfg.Risk.MaxConcurrentPositions != 3 {
		t.Errorf("expected max concurrent positions 3, got %d", cfg.Risk.MaxConcurrentPositions)
	}
}
