package decision

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/internal/journal"
	"github.com/atlas-desktop/scalper-engine/internal/orchestrator"
	"github.com/atlas-desktop/scalper-engine/internal/scalper"
	"github.com/atlas-desktop/scalper-engine/internal/store"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

func enabledScalperConfig(symbol string) types.ScalperConfig {
	return types.ScalperConfig{
		Symbols: map[string]types.SymbolConfig{
			symbol: {Symbol: symbol, Enabled: true},
		},
	}
}

func baseBot(id, symbol string) types.Bot {
	return types.Bot{
		ID: id, BrokerAccountID: "acct1", Asset: types.Asset{Symbol: symbol},
		Status: types.BotStatusActive, AutoTrade: true,
		DefaultQty: decimal.NewFromFloat(0.1),
	}
}

func baseSignal(botID, symbol string, direction types.Side, score float64) types.Signal {
	return types.Signal{
		ID: "sig-" + botID, BotID: botID, Symbol: symbol, Direction: direction,
		DedupeKey: "dedupe-" + botID, Payload: map[string]any{"score": score},
		CreatedAt: time.Now(),
	}
}

func riskContextFor(sig types.Signal) scalper.RiskContext {
	return scalper.RiskContext{Symbol: sig.Symbol, Direction: sig.Direction}
}

func TestEvaluateOpensOnCleanSignal(t *testing.T) {
	st := store.New()
	bot := baseBot("b1", "EURUSD")
	_ = st.SaveBot(bot)

	pipeline := New(st, nil, nil, zap.NewNop(), types.DefaultRuntimeConfig())
	sig := baseSignal("b1", "EURUSD", types.SideBuy, 0.9)

	decision := pipeline.Evaluate(sig, enabledScalperConfig("EURUSD"), riskContextFor(sig), time.Now())
	if decision.Action != types.ActionOpen {
		t.Fatalf("expected action open, got %s (%s)", decision.Action, decision.Reason)
	}
}

func TestEvaluateIgnoresInactiveBot(t *testing.T) {
	st := store.New()
	bot := baseBot("b1", "EURUSD")
	bot.Status = types.BotStatusPaused
	_ = st.SaveBot(bot)

	pipeline := New(st, nil, nil, zap.NewNop(), types.DefaultRuntimeConfig())
	sig := baseSignal("b1", "EURUSD", types.SideBuy, 0.9)

	decision := pipeline.Evaluate(sig, enabledScalperConfig("EURUSD"), riskContextFor(sig), time.Now())
	if decision.Action != types.ActionIgnore {
		t.Fatalf("expected ignore for inactive bot, got %s", decision.Action)
	}
}

func TestEvaluateIgnoresBelowMinScore(t *testing.T) {
	st := store.New()
	bot := baseBot("b1", "EURUSD")
	_ = st.SaveBot(bot)

	pipeline := New(st, nil, nil, zap.NewNop(), types.DefaultRuntimeConfig())
	sig := baseSignal("b1", "EURUSD", types.SideBuy, 0.01)

	decision := pipeline.Evaluate(sig, enabledScalperConfig("EURUSD"), riskContextFor(sig), time.Now())
	if decision.Action != types.ActionIgnore || decision.Reason != "score below minimum" {
		t.Fatalf("expected ignore below minimum score, got %s (%s)", decision.Action, decision.Reason)
	}
}

func TestEvaluateIgnoresDuplicateSignal(t *testing.T) {
	st := store.New()
	bot := baseBot("b1", "EURUSD")
	_ = st.SaveBot(bot)
	_ = st.SaveSignal(types.Signal{ID: "older", DedupeKey: "dedupe-b1"})

	pipeline := New(st, nil, nil, zap.NewNop(), types.DefaultRuntimeConfig())
	sig := baseSignal("b1", "EURUSD", types.SideBuy, 0.9)

	decision := pipeline.Evaluate(sig, enabledScalperConfig("EURUSD"), riskContextFor(sig), time.Now())
	if decision.Action != types.ActionIgnore || decision.Reason != "duplicate signal" {
		t.Fatalf("expected ignore on duplicate signal, got %s (%s)", decision.Action, decision.Reason)
	}
}

func TestEvaluateIgnoresSameDirectionWhenPositionOpen(t *testing.T) {
	st := store.New()
	bot := baseBot("b1", "EURUSD")
	_ = st.SaveBot(bot)
	_ = st.SavePosition(types.Position{
		BrokerAccountID: "acct1", Symbol: "EURUSD", Qty: decimal.NewFromFloat(1),
		Status: types.PositionStatusOpen,
	})

	pipeline := New(st, nil, nil, zap.NewNop(), types.DefaultRuntimeConfig())
	sig := baseSignal("b1", "EURUSD", types.SideBuy, 0.9)

	decision := pipeline.Evaluate(sig, enabledScalperConfig("EURUSD"), riskContextFor(sig), time.Now())
	if decision.Action != types.ActionIgnore || decision.Reason != "same-direction position already open" {
		t.Fatalf("expected ignore on same direction dup, got %s (%s)", decision.Action, decision.Reason)
	}
}

func TestEvaluateIgnoresWhenDailyCapReached(t *testing.T) {
	st := store.New()
	bot := baseBot("b1", "EURUSD")
	bot.MaxTradesPerDay = 1
	_ = st.SaveBot(bot)
	now := time.Now()
	_ = st.SaveOrder(types.Order{ID: "o1", BotID: "b1", Symbol: "EURUSD", Status: types.OrderStatusFilled, CreatedAt: now})

	pipeline := New(st, nil, nil, zap.NewNop(), types.DefaultRuntimeConfig())
	sig := baseSignal("b1", "EURUSD", types.SideBuy, 0.9)

	decision := pipeline.Evaluate(sig, enabledScalperConfig("EURUSD"), riskContextFor(sig), now)
	if decision.Action != types.ActionIgnore || decision.Reason != "daily trade cap reached" {
		t.Fatalf("expected ignore on daily cap, got %s (%s)", decision.Action, decision.Reason)
	}
}

func TestEvaluateIgnoresWhenTradeIntervalNotElapsed(t *testing.T) {
	st := store.New()
	bot := baseBot("b1", "EURUSD")
	bot.TradeIntervalMinutes = 30
	_ = st.SaveBot(bot)
	now := time.Now()
	_ = st.SaveDecision(types.Decision{ID: "d0", BotID: "b1", Action: types.ActionOpen, CreatedAt: now.Add(-10 * time.Minute)})

	pipeline := New(st, nil, nil, zap.NewNop(), types.DefaultRuntimeConfig())
	sig := baseSignal("b1", "EURUSD", types.SideBuy, 0.9)

	decision := pipeline.Evaluate(sig, enabledScalperConfig("EURUSD"), riskContextFor(sig), now)
	if decision.Action != types.ActionIgnore || decision.Reason != "trade interval not elapsed" {
		t.Fatalf("expected ignore on trade interval, got %s (%s)", decision.Action, decision.Reason)
	}
}

func TestEvaluateUsesBotScoreFloorWhenStricterThanRuntime(t *testing.T) {
	st := store.New()
	bot := baseBot("b1", "EURUSD")
	bot.DecisionMinScore = decimal.NewFromFloat(0.95)
	_ = st.SaveBot(bot)

	pipeline := New(st, nil, nil, zap.NewNop(), types.DefaultRuntimeConfig())
	sig := baseSignal("b1", "EURUSD", types.SideBuy, 0.9)

	decision := pipeline.Evaluate(sig, enabledScalperConfig("EURUSD"), riskContextFor(sig), time.Now())
	if decision.Action != types.ActionIgnore || decision.Reason != "score below minimum" {
		t.Fatalf("expected ignore below bot's stricter minimum score, got %s (%s)", decision.Action, decision.Reason)
	}
}

func TestEvaluateFlipOpensAndPairsFlipClose(t *testing.T) {
	st := store.New()
	bot := baseBot("b1", "EURUSD")
	_ = st.SaveBot(bot)
	_ = st.SavePosition(types.Position{
		BrokerAccountID: "acct1", Symbol: "EURUSD", Qty: decimal.NewFromFloat(1),
		Status: types.PositionStatusOpen,
	})

	j := journal.New(st, zap.NewNop(), journal.NewMetrics(prometheus.NewRegistry()))
	orch := orchestrator.New(st, j, zap.NewNop())
	pipeline := New(st, orch, j, zap.NewNop(), types.DefaultRuntimeConfig())
	sig := baseSignal("b1", "EURUSD", types.SideSell, 0.95)
	now := time.Now()

	decision := pipeline.Evaluate(sig, enabledScalperConfig("EURUSD"), riskContextFor(sig), now)
	if decision.Action != types.ActionOpen {
		t.Fatalf("expected the flip to produce an open decision, got %s (%s)", decision.Action, decision.Reason)
	}

	decisions := st.ListDecisionsByBot("b1")
	var sawFlipClose bool
	for _, d := range decisions {
		if d.Action == types.ActionClose && d.Reason == "flip_close" {
			sawFlipClose = true
		}
	}
	if !sawFlipClose {
		t.Fatalf("expected a paired flip_close decision, got %+v", decisions)
	}

	orders := st.ListOrdersByBot("b1")
	var sawCloseOrder bool
	for _, o := range orders {
		if o.IsCloseOrder() {
			sawCloseOrder = true
		}
	}
	if !sawCloseOrder {
		t.Fatalf("expected the flip_close decision to be fanned out to an idempotent close order, got %+v", orders)
	}

	bot, _ = st.GetBot("b1")
	if bot.ScalperParams.LastFlipAt.IsZero() {
		t.Fatalf("expected LastFlipAt to be set on flip")
	}
	if !bot.ScalperParams.LastHTFBiasAt.IsZero() {
		t.Fatalf("expected flip to leave the unrelated HTF bias cache timestamp untouched")
	}
}

func TestEvaluateFlipRespectsCooldown(t *testing.T) {
	st := store.New()
	bot := baseBot("b1", "EURUSD")
	now := time.Now()
	bot.ScalperParams.LastFlipAt = now.Add(-1 * time.Minute)
	_ = st.SaveBot(bot)
	_ = st.SavePosition(types.Position{
		BrokerAccountID: "acct1", Symbol: "EURUSD", Qty: decimal.NewFromFloat(1),
		Status: types.PositionStatusOpen,
	})

	pipeline := New(st, nil, nil, zap.NewNop(), types.DefaultRuntimeConfig())
	sig := baseSignal("b1", "EURUSD", types.SideSell, 0.95)

	decision := pipeline.Evaluate(sig, enabledScalperConfig("EURUSD"), riskContextFor(sig), now)
	if decision.Action != types.ActionIgnore || decision.Reason != "flip cooldown active" {
		t.Fatalf("expected ignore on flip cooldown, got %s (%s)", decision.Action, decision.Reason)
	}
}

func TestEvaluateFlipRespectsDailyCap(t *testing.T) {
	st := store.New()
	bot := baseBot("b1", "EURUSD")
	_ = st.SaveBot(bot)
	_ = st.SavePosition(types.Position{
		BrokerAccountID: "acct1", Symbol: "EURUSD", Qty: decimal.NewFromFloat(1),
		Status: types.PositionStatusOpen,
	})
	now := time.Now()
	cfg := types.DefaultRuntimeConfig()
	cfg.DecisionMaxFlipsPerDay = 1
	cfg.DecisionFlipCooldownMin = 0
	for i := 0; i < cfg.DecisionMaxFlipsPerDay; i++ {
		_ = st.SaveDecision(types.Decision{
			ID: "flip-" + string(rune('a'+i)), BotID: "b1", Action: types.ActionClose,
			Reason: "flip_close", CreatedAt: now.Add(-time.Duration(i+1) * time.Minute),
		})
	}

	pipeline := New(st, nil, nil, zap.NewNop(), cfg)
	sig := baseSignal("b1", "EURUSD", types.SideSell, 0.95)

	decision := pipeline.Evaluate(sig, enabledScalperConfig("EURUSD"), riskContextFor(sig), now)
	if decision.Action != types.ActionIgnore || decision.Reason != "daily flip cap reached" {
		t.Fatalf("expected ignore on daily flip cap, got %s (%s)", decision.Action, decision.Reason)
	}
}
