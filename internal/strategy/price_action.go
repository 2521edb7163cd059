package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/scalper-engine/internal/indicators"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// TrendPullback detects a pullback to a fast moving average within an
// established trend (defined by a slower moving average's slope), entering
// in the direction of the trend on the reclaim candle.
func TrendPullback(candles []types.Candle, ctx types.EngineContext) types.StrategyOutcome {
	const name = "trend_pullback"
	if len(candles) < 25 {
		return none(name, "insufficient candles for trend read")
	}
	fast := indicators.EMA(candles, 8)
	slowPrev := indicators.EMA(candles[:len(candles)-5], 21)
	slow := indicators.EMA(candles, 21)
	cur := candles[len(candles)-1]

	uptrend := slow.GreaterThan(slowPrev)
	downtrend := slow.LessThan(slowPrev)

	touchedFast := cur.Low.LessThanOrEqual(fast) && cur.High.GreaterThanOrEqual(fast)

	if uptrend && touchedFast && cur.Close.GreaterThan(fast) && cur.IsBullish() {
		sl, tp := slTPFromRange(cur.Close, cur.Low, cur.Range(), types.SideBuy, decimal.NewFromFloat(2))
		return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: types.SideBuy,
			SL: sl, TP: tp, Reason: "pullback to EMA8 in uptrend", Score: decimal.NewFromFloat(0.6)}
	}
	if downtrend && touchedFast && cur.Close.LessThan(fast) && !cur.IsBullish() {
		sl, tp := slTPFromRange(cur.Close, cur.High, cur.Range(), types.SideSell, decimal.NewFromFloat(2))
		return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: types.SideSell,
			SL: sl, TP: tp, Reason: "pullback to EMA8 in downtrend", Score: decimal.NewFromFloat(0.6)}
	}
	return none(name, "no qualifying pullback reclaim")
}

// BreakoutRetest detects a break of a recent swing level followed by a
// retest candle that holds the level, continuing in the breakout direction.
func BreakoutRetest(candles []types.Candle, ctx types.EngineContext) types.StrategyOutcome {
	const name = "breakout_retest"
	const lookback = 20
	if len(candles) < lookback+2 {
		return none(name, "insufficient candles")
	}
	window := candles[len(candles)-lookback-2 : len(candles)-2]
	breakoutCandle := candles[len(candles)-2]
	retest := candles[len(candles)-1]

	swingHigh := window[0].High
	swingLow := window[0].Low
	for _, c := range window {
		if c.High.GreaterThan(swingHigh) {
			swingHigh = c.High
		}
		if c.Low.LessThan(swingLow) {
			swingLow = c.Low
		}
	}

	if breakoutCandle.Close.GreaterThan(swingHigh) &&
		retest.Low.LessThanOrEqual(swingHigh) && retest.Close.GreaterThan(swingHigh) {
		sl, tp := slTPFromRange(retest.Close, swingHigh, retest.Range(), types.SideBuy, decimal.NewFromFloat(2.5))
		return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: types.SideBuy,
			SL: sl, TP: tp, Reason: "breakout retest held above swing high", Score: decimal.NewFromFloat(0.65)}
	}
	if breakoutCandle.Close.LessThan(swingLow) &&
		retest.High.GreaterThanOrEqual(swingLow) && retest.Close.LessThan(swingLow) {
		sl, tp := slTPFromRange(retest.Close, swingLow, retest.Range(), types.SideSell, decimal.NewFromFloat(2.5))
		return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: types.SideSell,
			SL: sl, TP: tp, Reason: "breakout retest held below swing low", Score: decimal.NewFromFloat(0.65)}
	}
	return none(name, "no retest confirmation")
}

// RangeReversion detects price tagging the edge of a recent trading range
// and reverting back toward the midpoint, for ranging (non-trending) books.
func RangeReversion(candles []types.Candle, ctx types.EngineContext) types.StrategyOutcome {
	const name = "range_reversion"
	const lookback = 20
	if len(candles) < lookback+1 {
		return none(name, "insufficient candles")
	}
	window := candles[len(candles)-lookback-1 : len(candles)-1]
	cur := candles[len(candles)-1]

	high := window[0].High
	low := window[0].Low
	for _, c := range window {
		if c.High.GreaterThan(high) {
			high = c.High
		}
		if c.Low.LessThan(low) {
			low = c.Low
		}
	}
	rangeSize := high.Sub(low)
	if rangeSize.IsZero() {
		return none(name, "zero-width range")
	}
	edgeBand := rangeSize.Mul(decimal.NewFromFloat(0.1))

	if cur.Low.LessThanOrEqual(low.Add(edgeBand)) && cur.IsBullish() {
		sl, tp := slTPFromRange(cur.Close, low, rangeSize, types.SideBuy, decimal.NewFromFloat(1.2))
		return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: types.SideBuy,
			SL: sl, TP: tp, Reason: "reversion off range low", Score: decimal.NewFromFloat(0.4)}
	}
	if cur.High.GreaterThanOrEqual(high.Sub(edgeBand)) && !cur.IsBullish() {
		sl, tp := slTPFromRange(cur.Close, high, rangeSize, types.SideSell, decimal.NewFromFloat(1.2))
		return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: types.SideSell,
			SL: sl, TP: tp, Reason: "reversion off range high", Score: decimal.NewFromFloat(0.4)}
	}
	return none(name, "price not at range edge")
}

// MomentumIgnition detects a sharp expansion candle (range and body well
// above the recent average true range) signalling the start of an impulsive
// move, entering in the expansion's direction.
func MomentumIgnition(candles []types.Candle, ctx types.EngineContext) types.StrategyOutcome {
	const name = "momentum_ignition"
	if len(candles) < 15 {
		return none(name, "insufficient candles")
	}
	atr := indicators.ATR(candles[:len(candles)-1], 14)
	cur := candles[len(candles)-1]
	if atr.IsZero() {
		return none(name, "zero ATR baseline")
	}
	if cur.Range().LessThan(atr.Mul(decimal.NewFromFloat(1.8))) {
		return none(name, "candle range not expansive enough")
	}
	if cur.Body().LessThan(cur.Range().Mul(decimal.NewFromFloat(0.6))) {
		return none(name, "expansion candle lacks directional conviction")
	}

	direction := types.SideSell
	extreme := cur.High
	if cur.IsBullish() {
		direction = types.SideBuy
		extreme = cur.Low
	}
	sl, tp := slTPFromRange(cur.Close, extreme, cur.Range(), direction, decimal.NewFromFloat(2))
	return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: direction,
		SL: sl, TP: tp, Reason: "momentum ignition expansion candle", Score: decimal.NewFromFloat(0.7)}
}
