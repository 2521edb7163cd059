package scalper

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

func TestPlanReturnsNilOutsideTradingWindow(t *testing.T) {
	p := NewPlanner(zap.NewNop())
	bot := types.Bot{
		ID: "b1", Asset: types.Asset{Symbol: "EURUSD"},
		EnabledStrategies: []string{"hammer"},
		TradingWindow: types.TradingWindow{
			Enabled: true, AllowedDays: []string{"mon", "tue", "wed", "thu", "fri"},
			StartHour: 8, EndHour: 17,
		},
	}

	saturday := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	if sig := p.Plan(bot, nil, types.EngineContext{}, saturday); sig != nil {
		t.Fatalf("expected no signal outside the bot's trading window, got %+v", sig)
	}
}

func TestPlanReturnsNilWhenBotPaused(t *testing.T) {
	p := NewPlanner(zap.NewNop())
	now := time.Now()
	bot := types.Bot{
		ID: "b1", Asset: types.Asset{Symbol: "EURUSD"},
		EnabledStrategies: []string{"hammer"},
		PausedUntil:       now.Add(time.Hour),
	}

	if sig := p.Plan(bot, nil, types.EngineContext{}, now); sig != nil {
		t.Fatalf("expected no signal while the bot is paused, got %+v", sig)
	}
}

func TestPlanReturnsNilWithNoEnabledStrategies(t *testing.T) {
	p := NewPlanner(zap.NewNop())
	bot := types.Bot{ID: "b1", Asset: types.Asset{Symbol: "EURUSD"}}

	if sig := p.Plan(bot, nil, types.EngineContext{}, time.Now()); sig != nil {
		t.Fatalf("expected no signal with no enabled strategies, got %+v", sig)
	}
}

func TestPlanReturnsNilWhenNoStrategyTriggers(t *testing.T) {
	p := NewPlanner(zap.NewNop())
	bot := types.Bot{
		ID: "b1", Asset: types.Asset{Symbol: "EURUSD"},
		EnabledStrategies: []string{"hammer"},
		DecisionMinScore:  decimal.NewFromFloat(0.55),
	}

	// An empty candle series can never trigger any strategy.
	if sig := p.Plan(bot, nil, types.EngineContext{}, time.Now()); sig != nil {
		t.Fatalf("expected no signal with an empty candle series, got %+v", sig)
	}
}
