package scalper

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

func enabledConfig() types.ScalperConfig {
	return types.ScalperConfig{
		Symbols: map[string]types.SymbolConfig{
			"EURUSD": {Symbol: "EURUSD", Enabled: true},
		},
	}
}

func TestCheckRiskBlocksUnconfiguredSymbol(t *testing.T) {
	d := CheckRisk(types.ScalperConfig{}, RiskContext{Symbol: "EURUSD"})
	if d.Allowed || d.Reason != "symbol not configured for scalping" {
		t.Fatalf("expected block on unconfigured symbol, got %+v", d)
	}
}

func TestCheckRiskBlocksDisabledSymbol(t *testing.T) {
	cfg := types.ScalperConfig{Symbols: map[string]types.SymbolConfig{"EURUSD": {Symbol: "EURUSD", Enabled: false}}}
	d := CheckRisk(cfg, RiskContext{Symbol: "EURUSD"})
	if d.Allowed || d.Reason != "symbol disabled" {
		t.Fatalf("expected block on disabled symbol, got %+v", d)
	}
}

func TestCheckRiskBlocksMaxConcurrentPositions(t *testing.T) {
	cfg := enabledConfig()
	cfg.Risk.MaxConcurrentPositions = 2
	d := CheckRisk(cfg, RiskContext{Symbol: "EURUSD", OpenPositionsTotal: 2})
	if d.Allowed || d.Reason != "max concurrent positions reached" {
		t.Fatalf("expected block on max concurrent positions, got %+v", d)
	}
}

func TestCheckRiskBlocksScaleInWhenNotAllowed(t *testing.T) {
	cfg := enabledConfig()
	d := CheckRisk(cfg, RiskContext{Symbol: "EURUSD", OpenPositionsSymbol: 1})
	if d.Allowed || d.Reason != "scale-in not allowed for symbol" {
		t.Fatalf("expected block on scale-in, got %+v", d)
	}
}

func TestCheckRiskBlocksDailySymbolCap(t *testing.T) {
	cfg := types.ScalperConfig{Symbols: map[string]types.SymbolConfig{
		"EURUSD": {Symbol: "EURUSD", Enabled: true, MaxTradesPerDay: 3},
	}}
	d := CheckRisk(cfg, RiskContext{Symbol: "EURUSD", TradesTodaySymbol: 3})
	if d.Allowed || d.Reason != "daily symbol trade cap reached" {
		t.Fatalf("expected block on daily symbol cap, got %+v", d)
	}
}

func TestCheckRiskBlocksSpreadLimit(t *testing.T) {
	cfg := types.ScalperConfig{Symbols: map[string]types.SymbolConfig{
		"EURUSD": {Symbol: "EURUSD", Enabled: true, Risk: types.RiskPreset{MaxSpreadPoints: decimal.NewFromInt(10)}},
	}}
	d := CheckRisk(cfg, RiskContext{Symbol: "EURUSD", SpreadPoints: decimal.NewFromInt(20)})
	if d.Allowed || d.Reason != "spread exceeds limit" {
		t.Fatalf("expected block on spread limit, got %+v", d)
	}
}

func TestCheckRiskAllowsCleanEntry(t *testing.T) {
	d := CheckRisk(enabledConfig(), RiskContext{Symbol: "EURUSD"})
	if !d.Allowed {
		t.Fatalf("expected clean entry to be allowed, got %+v", d)
	}
	if d.String() != "allowed" {
		t.Errorf("expected String() = allowed, got %q", d.String())
	}
}

func TestCheckRiskBlockedStringIncludesReason(t *testing.T) {
	d := CheckRisk(types.ScalperConfig{}, RiskContext{Symbol: "EURUSD"})
	if d.String() != "blocked: symbol not configured for scalping" {
		t.Errorf("unexpected blocked string: %q", d.String())
	}
}

func TestFlipCooldownActive(t *testing.T) {
	now := time.Now()
	if FlipCooldownActive(time.Time{}, now, 15) {
		t.Errorf("expected zero lastFlipAt to never be in cooldown")
	}
	if FlipCooldownActive(now.Add(-20*time.Minute), now, 15) {
		t.Errorf("expected cooldown to have elapsed after 20m with a 15m window")
	}
	if !FlipCooldownActive(now.Add(-5*time.Minute), now, 15) {
		t.Errorf("expected cooldown still active 5m into a 15m window")
	}
}
