package monitor

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/internal/journal"
	"github.com/atlas-desktop/scalper-engine/internal/orchestrator"
	"github.com/atlas-desktop/scalper-engine/internal/store"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

func newTestMonitor(t *testing.T, cfg types.RuntimeConfig) (*Monitor, *store.Store) {
	t.Helper()
	logger := zap.NewNop()
	st := store.New()
	j := journal.New(st, logger, journal.NewMetrics(prometheus.NewRegistry()))
	orch := orchestrator.New(st, j, logger)
	return New(st, orch, j, logger, cfg), st
}

func TestEvaluatePositionTriggersKillSwitchOnSevereLoss(t *testing.T) {
	cfg := types.DefaultRuntimeConfig()
	mon, st := newTestMonitor(t, cfg)

	_ = st.SaveBrokerAccount(types.BrokerAccount{ID: "acct1", BrokerCode: "paper", IsActive: true})
	bot := types.Bot{ID: "b1", BrokerAccountID: "acct1", Asset: types.Asset{Symbol: "EURUSD"},
		KillSwitch: types.KillSwitchState{MaxUnrealizedPct: decimal.NewFromFloat(0.01)}}
	_ = st.SaveBot(bot)

	pos := types.Position{BrokerAccountID: "acct1", Symbol: "EURUSD", Qty: decimal.NewFromFloat(1), AvgPrice: decimal.NewFromFloat(2.0)}

	result := mon.EvaluatePosition(pos, bot, decimal.NewFromFloat(1.0), decimal.NewFromFloat(0.001), false, time.Now())
	if result.Action != ActionKillSwitch {
		t.Fatalf("expected kill switch action, got %s (%s)", result.Action, result.Reason)
	}

	orders := st.ListOrdersByBot("b1")
	if len(orders) != 1 || !orders[0].IsCloseOrder() {
		t.Fatalf("expected a close order created, got %+v", orders)
	}
}

func TestEvaluatePositionTriggersKillSwitchOnEngineFlipWithAnyLoss(t *testing.T) {
	cfg := types.DefaultRuntimeConfig()
	mon, st := newTestMonitor(t, cfg)

	_ = st.SaveBrokerAccount(types.BrokerAccount{ID: "acct1", BrokerCode: "paper", IsActive: true})
	bot := types.Bot{ID: "b1", BrokerAccountID: "acct1", Asset: types.Asset{Symbol: "EURUSD"},
		KillSwitch: types.KillSwitchState{MaxUnrealizedPct: decimal.NewFromFloat(0.5)}}
	_ = st.SaveBot(bot)

	pos := types.Position{BrokerAccountID: "acct1", Symbol: "EURUSD", Qty: decimal.NewFromFloat(1), AvgPrice: decimal.NewFromFloat(1.1000)}

	result := mon.EvaluatePosition(pos, bot, decimal.NewFromFloat(1.0999), decimal.NewFromFloat(0.001), true, time.Now())
	if result.Action != ActionKillSwitch {
		t.Fatalf("expected kill switch on any loss with engine flip, got %s", result.Action)
	}
}

func TestEvaluatePositionEarlyExitsOnModerateLoss(t *testing.T) {
	cfg := types.DefaultRuntimeConfig()
	cfg.EarlyExitMaxUnrealizedPct = decimal.NewFromFloat(0.02)
	mon, st := newTestMonitor(t, cfg)

	_ = st.SaveBrokerAccount(types.BrokerAccount{ID: "acct1", BrokerCode: "paper", IsActive: true})
	bot := types.Bot{ID: "b1", BrokerAccountID: "acct1", Asset: types.Asset{Symbol: "EURUSD"}}
	_ = st.SaveBot(bot)

	pos := types.Position{BrokerAccountID: "acct1", Symbol: "EURUSD", Qty: decimal.NewFromFloat(1), AvgPrice: decimal.NewFromFloat(1.1000)}

	result := mon.EvaluatePosition(pos, bot, decimal.NewFromFloat(1.0700), decimal.Zero, false, time.Now())
	if result.Action != ActionEarlyExit {
		t.Fatalf("expected early exit, got %s (%s)", result.Action, result.Reason)
	}
}

func TestEvaluatePositionAdvancesTrailingStopOnWinningLongPosition(t *testing.T) {
	cfg := types.DefaultRuntimeConfig()
	cfg.TrailingTriggerPct = decimal.NewFromFloat(0.01)
	cfg.TrailingDistanceATRMult = decimal.NewFromFloat(1)
	mon, st := newTestMonitor(t, cfg)

	bot := types.Bot{ID: "b1", BrokerAccountID: "acct1", Asset: types.Asset{Symbol: "EURUSD"}}
	_ = st.SaveBot(bot)

	pos := types.Position{
		BrokerAccountID: "acct1", Symbol: "EURUSD", Qty: decimal.NewFromFloat(1),
		AvgPrice: decimal.NewFromFloat(1.1000), SL: decimal.NewFromFloat(1.0900),
	}

	result := mon.EvaluatePosition(pos, bot, decimal.NewFromFloat(1.1500), decimal.NewFromFloat(0.0010), false, time.Now())
	if result.Action != ActionTrailingMove {
		t.Fatalf("expected trailing move, got %s (%s)", result.Action, result.Reason)
	}
	if !result.NewSL.GreaterThan(pos.SL) {
		t.Errorf("expected new stop to advance beyond old stop, got %s vs %s", result.NewSL, pos.SL)
	}
}

func TestEvaluatePositionNoActionWhenFlat(t *testing.T) {
	cfg := types.DefaultRuntimeConfig()
	mon, st := newTestMonitor(t, cfg)

	bot := types.Bot{ID: "b1", BrokerAccountID: "acct1", Asset: types.Asset{Symbol: "EURUSD"}}
	_ = st.SaveBot(bot)

	pos := types.Position{BrokerAccountID: "acct1", Symbol: "EURUSD", Qty: decimal.NewFromFloat(1), AvgPrice: decimal.NewFromFloat(1.1000)}

	result := mon.EvaluatePosition(pos, bot, decimal.NewFromFloat(1.1005), decimal.Zero, false, time.Now())
	if result.Action != ActionNone {
		t.Fatalf("expected no action on flat position, got %s", result.Action)
	}
}
