package scalper

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// RiskContext is the point-in-time state the scalper risk check consults:
// how many trades the symbol/account have taken today, how long since the
// last same-direction or losing trade, current spread/slippage, and whether
// scale-in or countertrend entries are presently allowed.
type RiskContext struct {
	Symbol                    string
	Direction                 types.Side
	TradesTodaySymbol         int
	TradesTodayTotal          int
	OpenPositionsSymbol       int
	OpenPositionsTotal        int
	ReentryCount              int
	MinutesSinceLastSameDirection int
	MinutesSinceLastLoss      int
	SpreadPoints              decimal.Decimal
	SlippagePoints            decimal.Decimal
	FloatingSymbolRiskPct     decimal.Decimal
	Countertrend              bool
	LastFlipAt                time.Time
	Now                       time.Time
}

// RiskDecision is the outcome of CheckRisk: either allowed, or blocked with a
// specific named reason (the first limit hit wins; checks are ordered from
// cheapest/most-fundamental to most nuanced, matching the original ordering).
type RiskDecision struct {
	Allowed bool
	Reason  string
}

func blocked(reason string) RiskDecision { return RiskDecision{Allowed: false, Reason: reason} }
func allowed() RiskDecision              { return RiskDecision{Allowed: true} }

// CheckRisk evaluates a candidate entry against the resolved ScalperConfig
// for rc.Symbol and the live RiskContext, in a fixed check order so that the
// reported block reason is always the first (not merely some) limit hit.
func CheckRisk(cfg types.ScalperConfig, rc RiskContext) RiskDecision {
	symCfg, ok := cfg.SymbolConfigFor(rc.Symbol)
	if !ok {
		return blocked("symbol not configured for scalping")
	}
	if !symCfg.Enabled {
		return blocked("symbol disabled")
	}
	if cfg.Risk.MaxConcurrentPositions > 0 && rc.OpenPositionsTotal >= cfg.Risk.MaxConcurrentPositions {
		return blocked("max concurrent positions reached")
	}
	if cfg.Risk.MaxPositionsPerSymbol > 0 && rc.OpenPositionsSymbol >= cfg.Risk.MaxPositionsPerSymbol {
		return blocked("max positions per symbol reached")
	}
	if rc.OpenPositionsSymbol > 0 {
		if !symCfg.Reentry.AllowScaleIn {
			return blocked("scale-in not allowed for symbol")
		}
		if symCfg.Reentry.MaxReentries > 0 && rc.ReentryCount >= symCfg.Reentry.MaxReentries {
			return blocked("max reentries reached")
		}
	}
	if rc.Countertrend {
		if !symCfg.Reentry.AllowCountertrend {
			return blocked("countertrend entries disabled")
		}
		if symCfg.Reentry.MaxCountertrendCount > 0 && rc.ReentryCount >= symCfg.Reentry.MaxCountertrendCount {
			return blocked("countertrend cap reached")
		}
	}
	if symCfg.MaxTradesPerDay > 0 && rc.TradesTodaySymbol >= symCfg.MaxTradesPerDay {
		return blocked("daily symbol trade cap reached")
	}
	if cfg.Risk.MaxTradesPerDayTotal > 0 && rc.TradesTodayTotal >= cfg.Risk.MaxTradesPerDayTotal {
		return blocked("daily total trade cap reached")
	}
	if symCfg.Reentry.MinutesBetweenSameDirection > 0 && rc.MinutesSinceLastSameDirection >= 0 &&
		rc.MinutesSinceLastSameDirection < symCfg.Reentry.MinutesBetweenSameDirection {
		return blocked("reentry cooldown active")
	}
	if symCfg.Reentry.LossCooldownMinutes > 0 && rc.MinutesSinceLastLoss >= 0 &&
		rc.MinutesSinceLastLoss < symCfg.Reentry.LossCooldownMinutes {
		return blocked("loss cooldown active")
	}
	if symCfg.Risk.MaxSpreadPoints.GreaterThan(decimal.Zero) && rc.SpreadPoints.GreaterThan(symCfg.Risk.MaxSpreadPoints) {
		return blocked("spread exceeds limit")
	}
	if symCfg.Risk.MaxSlippagePoints.GreaterThan(decimal.Zero) && rc.SlippagePoints.GreaterThan(symCfg.Risk.MaxSlippagePoints) {
		return blocked("slippage exceeds limit")
	}
	if symCfg.Risk.MaxFloatingRiskPct.GreaterThan(decimal.Zero) && rc.FloatingSymbolRiskPct.GreaterThan(symCfg.Risk.MaxFloatingRiskPct) {
		return blocked("floating risk cap exceeded")
	}
	return allowed()
}

// FlipCooldownActive reports whether a direction flip is still within its
// cooldown window, used by internal/decision before creating a synthetic
// paired close+open flip.
func FlipCooldownActive(lastFlipAt time.Time, now time.Time, cooldownMinutes int) bool {
	if lastFlipAt.IsZero() || cooldownMinutes <= 0 {
		return false
	}
	return now.Sub(lastFlipAt) < time.Duration(cooldownMinutes)*time.Minute
}

// String implements fmt.Stringer for log-friendly RiskDecision output.
func (d RiskDecision) String() string {
	if d.Allowed {
		return "allowed"
	}
	return fmt.Sprintf("blocked: %s", d.Reason)
}
