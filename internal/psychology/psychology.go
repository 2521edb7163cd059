// Package psychology implements the loss-streak auto-pause, drawdown-based
// size multiplier, and capital-allocation guard that sit between the
// decision pipeline and order sizing.
package psychology

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// RecordTradeOutcome updates a bot's loss-streak counter after a realized
// trade outcome, and pauses the bot when the streak reaches its threshold.
// The threshold used is the more conservative (smaller) of the bot's own
// setting and the profile default, so a bot operator cannot loosen the
// safety net below the profile floor by misconfiguration alone.
func RecordTradeOutcome(bot *types.Bot, profile types.PsychologyProfile, won bool, now time.Time) {
	if won {
		bot.Psychology.CurrentLossStreak = 0
		return
	}
	bot.Psychology.CurrentLossStreak++

	threshold := bot.Psychology.MaxLossStreakBeforePause
	if profile.MaxLossStreakBeforePause > 0 && (threshold == 0 || profile.MaxLossStreakBeforePause < threshold) {
		threshold = profile.MaxLossStreakBeforePause
	}
	if threshold <= 0 {
		return
	}
	if bot.Psychology.CurrentLossStreak < threshold {
		return
	}

	cooldown := bot.Psychology.LossStreakCooldownMin
	if profile.LossStreakCooldownMin > 0 && (cooldown == 0 || profile.LossStreakCooldownMin < cooldown) {
		cooldown = profile.LossStreakCooldownMin
	}
	if cooldown <= 0 {
		cooldown = 60
	}
	bot.Status = types.BotStatusPaused
	bot.PausedUntil = now.Add(time.Duration(cooldown) * time.Minute)
}

// SizeMultiplier returns the position-size multiplier implied by the bot's
// current drawdown against its soft and hard limits: 1.0 below the soft
// limit, the soft multiplier between soft and hard, and the hard multiplier
// at or beyond the hard limit.
func SizeMultiplier(bot types.Bot, currentDrawdownPct decimal.Decimal) decimal.Decimal {
	p := bot.Psychology
	if p.HardDrawdownLimitPct.GreaterThan(decimal.Zero) && currentDrawdownPct.GreaterThanOrEqual(p.HardDrawdownLimitPct) {
		if p.HardSizeMultiplier.GreaterThan(decimal.Zero) {
			return p.HardSizeMultiplier
		}
		return decimal.NewFromFloat(0.25)
	}
	if p.SoftDrawdownLimitPct.GreaterThan(decimal.Zero) && currentDrawdownPct.GreaterThanOrEqual(p.SoftDrawdownLimitPct) {
		if p.SoftSizeMultiplier.GreaterThan(decimal.Zero) {
			return p.SoftSizeMultiplier
		}
		return decimal.NewFromFloat(0.5)
	}
	return decimal.NewFromInt(1)
}

// AllocationGuardConfig bounds a bot's capital-allocation cycle.
type AllocationGuardConfig struct {
	// ProfitPct <= 0 disables the profit cap, mirroring how the loss cap's
	// own <=0 value is already treated as disabled.
	ProfitPct decimal.Decimal
	LossPct   decimal.Decimal
}

// CheckAllocationGuard evaluates whether a bot's cumulative realized PnL
// since its allocation cycle started has crossed the profit or loss cap. It
// is idempotent: once ScalperParams.AllocationGuard is set, repeated calls within the same
// cycle are a no-op until the cycle is re-baselined by StartAllocationCycle.
func CheckAllocationGuard(bot *types.Bot, cfg AllocationGuardConfig, currentPnL decimal.Decimal) (tripped bool, reason string) {
	if bot.ScalperParams.AllocationGuard {
		return true, "already tripped this cycle"
	}
	if bot.Allocation.Amount.IsZero() {
		return false, ""
	}
	pnlPct := currentPnL.Sub(bot.Allocation.StartPnL).Div(bot.Allocation.Amount).Mul(decimal.NewFromInt(100))

	if cfg.LossPct.GreaterThan(decimal.Zero) && pnlPct.LessThanOrEqual(cfg.LossPct.Neg()) {
		bot.ScalperParams.AllocationGuard = true
		bot.Status = types.BotStatusPaused
		return true, "allocation loss cap reached"
	}
	if cfg.ProfitPct.GreaterThan(decimal.Zero) && pnlPct.GreaterThanOrEqual(cfg.ProfitPct) {
		bot.ScalperParams.AllocationGuard = true
		bot.Status = types.BotStatusPaused
		return true, "allocation profit cap reached"
	}
	return false, ""
}

// StartAllocationCycle re-baselines a bot's allocation tracking, clearing
// the idempotent guard flag so a new cycle can trip again.
func StartAllocationCycle(bot *types.Bot, amount decimal.Decimal, startPnL decimal.Decimal, now time.Time) {
	bot.Allocation = types.AllocationState{
		Amount:    amount,
		StartPnL:  startPnL,
		StartedAt: now,
	}
	bot.ScalperParams.AllocationGuard = false
}
