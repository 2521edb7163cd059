package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

func mkCandle(o, h, l, c float64) types.Candle {
	return types.Candle{
		Time:  time.Now(),
		Open:  decimal.NewFromFloat(o),
		High:  decimal.NewFromFloat(h),
		Low:   decimal.NewFromFloat(l),
		Close: decimal.NewFromFloat(c),
	}
}

func TestEvaluateReturnsNoneWhenNothingTriggers(t *testing.T) {
	e := NewEngine(nil)
	candles := []types.Candle{mkCandle(1, 1.001, 0.999, 1.0001)}
	out := e.Evaluate(candles, types.EngineContext{Symbol: "EURUSD"}, []string{StrategyHammer})
	if out.Triggered {
		t.Fatalf("expected no trigger, got %+v", out)
	}
}

func TestEvaluateReturnsEngulfingTrigger(t *testing.T) {
	e := NewEngine(nil)
	// With only engulfing enabled, a bullish engulfing pair is returned as a
	// buy outcome.
	candles := []types.Candle{
		mkCandle(10, 10.1, 9.9, 9.95),
		mkCandle(9.95, 11, 9.9, 10.9), // bullish engulfing
	}
	out := e.Evaluate(candles, types.EngineContext{Symbol: "EURUSD"}, []string{StrategyEngulfing})
	if !out.Triggered || out.Direction != types.SideBuy {
		t.Fatalf("expected bullish engulfing trigger, got %+v", out)
	}
}

func TestPriorityOrderEntriesAreRegistered(t *testing.T) {
	for i, name := range PriorityOrder {
		if _, ok := Registry[name]; !ok {
			t.Fatalf("priority entry %d (%s) missing from registry", i, name)
		}
	}
}

func TestSelectNarrowsToAvailable(t *testing.T) {
	candles := make([]types.Candle, 20)
	for i := range candles {
		candles[i] = mkCandle(1, 1.001, 0.999, 1.0001)
	}
	available := []string{StrategyHammer, StrategyHarami}
	got := Select(candles, types.EngineContext{Symbol: "EURUSD"}, available, 3)
	for _, name := range got {
		found := false
		for _, a := range available {
			if a == name {
				found = true
			}
		}
		if !found {
			t.Fatalf("Select returned %s not in available set", name)
		}
	}
}
