// Package scalper implements the scalper planner: named risk profiles,
// layered ScalperConfig resolution, trading-window gating, and the
// risk-context builder the decision pipeline consults before opening a
// position.
package scalper

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

var weekdayMap = map[string]time.Weekday{
	"mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday, "sun": time.Sunday,
}

// builtinProfiles are the named risk presets a bot can adopt wholesale,
// ordered from most to least conservative.
var builtinProfiles = map[string]types.TradingProfile{
	"very_safe": {
		Slug: "very_safe", Name: "Very Safe",
		Description:            "Minimal risk, few trades, wide score floor.",
		RiskPerTradePct:        decimal.NewFromFloat(0.25),
		MaxTradesPerDay:        3,
		MaxConcurrentPositions: 1,
		MaxDrawdownPct:         decimal.NewFromFloat(0.05),
		DecisionMinScore:       decimal.NewFromFloat(0.70),
		SignalQualityThreshold: decimal.NewFromFloat(0.65),
		CooldownSeconds:        600,
		AllowedDays:            []string{"mon", "tue", "wed", "thu", "fri"},
		TradingStartHour:       8, TradingEndHour: 17,
	},
	"balanced": {
		Slug: "balanced", Name: "Balanced",
		Description:            "Moderate risk and trade frequency.",
		RiskPerTradePct:        decimal.NewFromFloat(0.75),
		MaxTradesPerDay:        8,
		MaxConcurrentPositions: 3,
		MaxDrawdownPct:         decimal.NewFromFloat(0.10),
		DecisionMinScore:       decimal.NewFromFloat(0.55),
		SignalQualityThreshold: decimal.NewFromFloat(0.50),
		CooldownSeconds:        180,
		AllowedDays:            []string{"mon", "tue", "wed", "thu", "fri"},
		TradingStartHour:       0, TradingEndHour: 23, TradingEndMinute: 59,
	},
	"aggressive_scalper": {
		Slug: "aggressive_scalper", Name: "Aggressive Scalper",
		Description:            "High trade frequency, tight score floor, larger drawdown tolerance.",
		RiskPerTradePct:        decimal.NewFromFloat(1.5),
		MaxTradesPerDay:        25,
		MaxConcurrentPositions: 6,
		MaxDrawdownPct:         decimal.NewFromFloat(0.20),
		DecisionMinScore:       decimal.NewFromFloat(0.45),
		SignalQualityThreshold: decimal.NewFromFloat(0.40),
		CooldownSeconds:        60,
		AllowedDays:            []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"},
		TradingStartHour:       0, TradingEndHour: 23, TradingEndMinute: 59,
	},
}

// GetProfile returns a named profile, falling back to "very_safe" when slug
// is empty or unrecognized, matching the original catalog's conservative
// default.
func GetProfile(slug string) types.TradingProfile {
	if slug == "" {
		slug = "very_safe"
	}
	if p, ok := builtinProfiles[slug]; ok {
		return p
	}
	return builtinProfiles["very_safe"]
}

// AllProfiles returns every built-in profile.
func AllProfiles() map[string]types.TradingProfile {
	out := make(map[string]types.TradingProfile, len(builtinProfiles))
	for k, v := range builtinProfiles {
		out[k] = v
	}
	return out
}

// ApplyProfileDefaults copies a profile's fields onto a bot wherever the bot
// has not already set a more specific value (zero-value fields are
// considered unset). Idempotent: calling it twice with the same profile
// produces no further change.
func ApplyProfileDefaults(bot *types.Bot, slug string) {
	profile := GetProfile(slug)
	bot.TradingProfile = profile.Slug
	if bot.DecisionMinScore.IsZero() {
		bot.DecisionMinScore = profile.DecisionMinScore
	}
	if bot.MaxTradesPerDay == 0 {
		bot.MaxTradesPerDay = profile.MaxTradesPerDay
	}
	if bot.MaxConcurrentPositions == 0 {
		bot.MaxConcurrentPositions = profile.MaxConcurrentPositions
	}
	if !bot.TradingWindow.Enabled {
		bot.TradingWindow = types.TradingWindow{
			Enabled:     true,
			AllowedDays: profile.AllowedDays,
			StartHour:   profile.TradingStartHour,
			StartMinute: profile.TradingStartMinute,
			EndHour:     profile.TradingEndHour,
			EndMinute:   profile.TradingEndMinute,
		}
	}
}

// ProfileWarnings flags bot fields that exceed what its declared profile
// recommends, without clamping them: an operator override is allowed, but
// should be visible.
func ProfileWarnings(bot types.Bot) []string {
	profile := GetProfile(bot.TradingProfile)
	var warnings []string
	if bot.MaxTradesPerDay > profile.MaxTradesPerDay {
		warnings = append(warnings, "max_trades_per_day exceeds profile recommendation")
	}
	if bot.MaxConcurrentPositions > profile.MaxConcurrentPositions {
		warnings = append(warnings, "max_concurrent_positions exceeds profile recommendation")
	}
	if bot.DecisionMinScore.LessThan(profile.DecisionMinScore) {
		warnings = append(warnings, "decision_min_score is looser than profile recommendation")
	}
	return warnings
}

// IsWithinTradingWindow reports whether now falls inside bot's own weekday
// and time-of-day trading window. This is the bot's own schedule, distinct
// from the broader market-hours calendar in internal/markethours: a bot can
// be configured to trade only London session hours even when the underlying
// market is open around the clock.
func IsWithinTradingWindow(bot types.Bot, now time.Time) bool {
	w := bot.TradingWindow
	if !w.Enabled {
		return true
	}
	now = now.UTC()
	if len(w.AllowedDays) > 0 {
		allowed := false
		for _, d := range w.AllowedDays {
			if wd, ok := weekdayMap[d]; ok && wd == now.Weekday() {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	nowMinutes := now.Hour()*60 + now.Minute()
	startMinutes := w.StartHour*60 + w.StartMinute
	endMinutes := w.EndHour*60 + w.EndMinute

	if startMinutes <= endMinutes {
		return nowMinutes >= startMinutes && nowMinutes <= endMinutes
	}
	// overnight wrap, e.g. start 22:00 end 06:00
	return nowMinutes >= startMinutes || nowMinutes <= endMinutes
}
