package scalper

import (
	"testing"
	"time"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

func TestGetProfileFallsBackToVerySafe(t *testing.T) {
	if p := GetProfile(""); p.Slug != "very_safe" {
		t.Errorf("expected empty slug to fall back to very_safe, got %s", p.Slug)
	}
	if p := GetProfile("not_a_real_profile"); p.Slug != "very_safe" {
		t.Errorf("expected unknown slug to fall back to very_safe, got %s", p.Slug)
	}
	if p := GetProfile("aggressive_scalper"); p.Slug != "aggressive_scalper" {
		t.Errorf("expected known slug to round-trip, got %s", p.Slug)
	}
}

func TestAllProfilesReturnsCopy(t *testing.T) {
	all := AllProfiles()
	if len(all) != 3 {
		t.Fatalf("expected 3 builtin profiles, got %d", len(all))
	}
	delete(all, "balanced")
	if GetProfile("balanced").Slug != "balanced" {
		t.Errorf("expected mutating the returned map not to affect the builtin catalog")
	}
}

func TestApplyProfileDefaultsOnlyFillsUnsetFields(t *testing.T) {
	bot := &types.Bot{MaxTradesPerDay: 99}
	ApplyProfileDefaults(bot, "very_safe")

	if bot.TradingProfile != "very_safe" {
		t.Errorf("expected profile slug stamped on bot, got %s", bot.TradingProfile)
	}
	if bot.MaxTradesPerDay != 99 {
		t.Errorf("expected pre-set max trades per day to survive, got %d", bot.MaxTradesPerDay)
	}
	if bot.MaxConcurrentPositions != 1 {
		t.Errorf("expected unset max concurrent positions filled from profile, got %d", bot.MaxConcurrentPositions)
	}
	if !bot.TradingWindow.Enabled {
		t.Errorf("expected trading window filled in from profile")
	}
}

func TestApplyProfileDefaultsIsIdempotent(t *testing.T) {
	bot := &types.Bot{}
	ApplyProfileDefaults(bot, "balanced")
	first := bot.MaxConcurrentPositions
	ApplyProfileDefaults(bot, "balanced")
	if bot.MaxConcurrentPositions != first {
		t.Errorf("expected second call to be a no-op, got %d vs %d", bot.MaxConcurrentPositions, first)
	}
}

func TestProfileWarningsFlagsLooserSettings(t *testing.T) {
	bot := types.Bot{TradingProfile: "very_safe", MaxTradesPerDay: 50, MaxConcurrentPositions: 10,
		DecisionMinScore: builtinProfiles["very_safe"].DecisionMinScore}
	warnings := ProfileWarnings(bot)
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings for trades and concurrency, got %+v", warnings)
	}
}

func TestProfileWarningsEmptyWhenWithinRecommendation(t *testing.T) {
	bot := types.Bot{TradingProfile: "balanced", MaxTradesPerDay: 8, MaxConcurrentPositions: 3,
		DecisionMinScore: builtinProfiles["balanced"].DecisionMinScore}
	if warnings := ProfileWarnings(bot); len(warnings) != 0 {
		t.Errorf("expected no warnings when bot matches its profile, got %+v", warnings)
	}
}

func TestIsWithinTradingWindowDisabledAlwaysTrue(t *testing.T) {
	bot := types.Bot{TradingWindow: types.TradingWindow{Enabled: false}}
	if !IsWithinTradingWindow(bot, time.Now()) {
		t.Errorf("expected disabled trading window to always be within range")
	}
}

func TestIsWithinTradingWindowRestrictsByWeekdayAndHour(t *testing.T) {
	bot := types.Bot{TradingWindow: types.TradingWindow{
		Enabled: true, AllowedDays: []string{"mon", "tue", "wed", "thu", "fri"},
		StartHour: 8, EndHour: 17,
	}}

	saturday := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	if IsWithinTradingWindow(bot, saturday) {
		t.Errorf("expected Saturday to be outside a weekday-only window")
	}

	tuesdayInWindow := time.Date(2026, 8, 4, 10, 0, 0, 0, time.UTC)
	if !IsWithinTradingWindow(bot, tuesdayInWindow) {
		t.Errorf("expected Tuesday 10:00 to be within an 08:00-17:00 window")
	}

	tuesdayOutsideWindow := time.Date(2026, 8, 4, 20, 0, 0, 0, time.UTC)
	if IsWithinTradingWindow(bot, tuesdayOutsideWindow) {
		t.Errorf("expected Tuesday 20:00 to be outside an 08:00-17:00 window")
	}
}

func TestIsWithinTradingWindowHandlesOvernightWrap(t *testing.T) {
	bot := types.Bot{TradingWindow: types.TradingWindow{
		Enabled: true, AllowedDays: []string{"mon", "tue", "wed", "thu", "fri"},
		StartHour: 22, EndHour: 6,
	}}

	tuesdayLateNight := time.Date(2026, 8, 4, 23, 0, 0, 0, time.UTC)
	if !IsWithinTradingWindow(bot, tuesdayLateNight) {
		t.Errorf("expected 23:00 to be inside an overnight 22:00-06:00 window")
	}

	tuesdayMidday := time.Date(2026, 8, 4, 12, 0, 0, 0, time.UTC)
	if IsWithinTradingWindow(bot, tuesdayMidday) {
		t.Errorf("expected midday to be outside an overnight 22:00-06:00 window")
	}
}
