package psychology

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

func TestRecordTradeOutcomeResetsStreakOnWin(t *testing.T) {
	bot := types.Bot{Psychology: types.PsychologyState{CurrentLossStreak: 3}}
	RecordTradeOutcome(&bot, types.PsychologyProfile{}, true, time.Now())
	if bot.Psychology.CurrentLossStreak != 0 {
		t.Errorf("expected loss streak reset to 0 on win, got %d", bot.Psychology.CurrentLossStreak)
	}
}

func TestRecordTradeOutcomePausesAtThreshold(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	bot := types.Bot{Psychology: types.PsychologyState{MaxLossStreakBeforePause: 2, LossStreakCooldownMin: 30}}

	RecordTradeOutcome(&bot, types.PsychologyProfile{}, false, now)
	if bot.Status == types.BotStatusPaused {
		t.Fatalf("expected bot not paused after first loss")
	}

	RecordTradeOutcome(&bot, types.PsychologyProfile{}, false, now)
	if bot.Status != types.BotStatusPaused {
		t.Fatalf("expected bot paused after reaching loss streak threshold")
	}
	if !bot.PausedUntil.Equal(now.Add(30 * time.Minute)) {
		t.Errorf("expected pause until +30m, got %v", bot.PausedUntil)
	}
}

func TestRecordTradeOutcomeUsesMoreConservativeProfileThreshold(t *testing.T) {
	now := time.Now()
	bot := types.Bot{Psychology: types.PsychologyState{MaxLossStreakBeforePause: 5}}
	profile := types.PsychologyProfile{MaxLossStreakBeforePause: 1}

	RecordTradeOutcome(&bot, profile, false, now)
	if bot.Status != types.BotStatusPaused {
		t.Fatalf("expected the tighter profile threshold to win and pause the bot")
	}
}

func TestSizeMultiplierTiers(t *testing.T) {
	bot := types.Bot{Psychology: types.PsychologyState{
		SoftDrawdownLimitPct: decimal.NewFromFloat(0.05),
		HardDrawdownLimitPct: decimal.NewFromFloat(0.10),
		SoftSizeMultiplier:   decimal.NewFromFloat(0.5),
		HardSizeMultiplier:   decimal.NewFromFloat(0.25),
	}}

	if m := SizeMultiplier(bot, decimal.NewFromFloat(0.01)); !m.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected full size below soft limit, got %s", m)
	}
	if m := SizeMultiplier(bot, decimal.NewFromFloat(0.06)); !m.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("expected soft multiplier between soft and hard limit, got %s", m)
	}
	if m := SizeMultiplier(bot, decimal.NewFromFloat(0.11)); !m.Equal(decimal.NewFromFloat(0.25)) {
		t.Errorf("expected hard multiplier at or beyond hard limit, got %s", m)
	}
}

func TestCheckAllocationGuardTripsOnLossCap(t *testing.T) {
	bot := types.Bot{Allocation: types.AllocationState{Amount: decimal.NewFromInt(1000), StartPnL: decimal.Zero}}
	cfg := AllocationGuardConfig{LossPct: decimal.NewFromFloat(10)}

	tripped, reason := CheckAllocationGuard(&bot, cfg, decimal.NewFromInt(-150))
	if !tripped || reason != "allocation loss cap reached" {
		t.Fatalf("expected loss cap trip, got tripped=%v reason=%q", tripped, reason)
	}
	if bot.Status != types.BotStatusPaused {
		t.Errorf("expected bot paused after allocation guard trip")
	}
}

func TestCheckAllocationGuardIsIdempotentWithinCycle(t *testing.T) {
	bot := types.Bot{ScalperParams: types.ScalperParams{AllocationGuard: true}}
	tripped, reason := CheckAllocationGuard(&bot, AllocationGuardConfig{}, decimal.Zero)
	if !tripped || reason != "already tripped this cycle" {
		t.Fatalf("expected idempotent trip on already-tripped guard, got %v %q", tripped, reason)
	}
}

func TestStartAllocationCycleResetsGuard(t *testing.T) {
	bot := types.Bot{ScalperParams: types.ScalperParams{AllocationGuard: true}}
	now := time.Now()
	StartAllocationCycle(&bot, decimal.NewFromInt(500), decimal.NewFromInt(10), now)

	if bot.ScalperParams.AllocationGuard {
		t.Errorf("expected allocation guard cleared by new cycle")
	}
	if !bot.Allocation.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected allocation amount 500, got %s", bot.Allocation.Amount)
	}
}
