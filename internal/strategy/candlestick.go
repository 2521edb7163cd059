// Package strategy implements the candlestick, price-action, and SMC
// strategy catalog plus the engine arbitrator that picks one outcome per
// tick from however many strategies a bot has enabled.
package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

func none(name, reason string) types.StrategyOutcome {
	return types.StrategyOutcome{Strategy: name, Triggered: false, Reason: reason}
}

// slTPFromRange sets a stop loss a fraction of the triggering candle's range
// beyond its extreme, and a take profit at a fixed reward multiple.
func slTPFromRange(entry, extreme decimal.Decimal, rng decimal.Decimal, direction types.Side, rewardMult decimal.Decimal) (sl, tp decimal.Decimal) {
	buffer := rng.Mul(decimal.NewFromFloat(0.1))
	if direction == types.SideBuy {
		sl = extreme.Sub(buffer)
		tp = entry.Add(entry.Sub(sl).Mul(rewardMult))
	} else {
		sl = extreme.Add(buffer)
		tp = entry.Sub(sl.Sub(entry).Mul(rewardMult))
	}
	return sl, tp
}

// Harami detects a two-candle harami: a large candle followed by a small
// candle fully contained within the prior body, signalling exhaustion.
func Harami(candles []types.Candle, ctx types.EngineContext) types.StrategyOutcome {
	const name = "harami"
	if len(candles) < 2 {
		return none(name, "insufficient candles")
	}
	prev := candles[len(candles)-2]
	cur := candles[len(candles)-1]

	prevBody := prev.Body()
	curBody := cur.Body()
	if prevBody.IsZero() || curBody.GreaterThanOrEqual(prevBody.Mul(decimal.NewFromFloat(0.6))) {
		return none(name, "current body not small enough relative to prior")
	}

	prevHigh := decimal.Max(prev.Open, prev.Close)
	prevLow := decimal.Min(prev.Open, prev.Close)
	curHigh := decimal.Max(cur.Open, cur.Close)
	curLow := decimal.Min(cur.Open, cur.Close)
	if !(curHigh.LessThanOrEqual(prevHigh) && curLow.GreaterThanOrEqual(prevLow)) {
		return none(name, "current body not contained in prior body")
	}

	var direction types.Side
	if prev.IsBullish() {
		direction = types.SideSell
	} else {
		direction = types.SideBuy
	}
	sl, tp := slTPFromRange(cur.Close, prev.Low, prev.Range(), direction, decimal.NewFromFloat(1.5))
	if direction == types.SideSell {
		sl, tp = slTPFromRange(cur.Close, prev.High, prev.Range(), direction, decimal.NewFromFloat(1.5))
	}
	return types.StrategyOutcome{
		Strategy: name, Triggered: true, Direction: direction,
		SL: sl, TP: tp, Reason: "harami reversal", Score: decimal.NewFromFloat(0.45),
	}
}

// Engulfing detects a bullish or bearish engulfing pair.
func Engulfing(candles []types.Candle, ctx types.EngineContext) types.StrategyOutcome {
	const name = "engulfing"
	if len(candles) < 2 {
		return none(name, "insufficient candles")
	}
	prev := candles[len(candles)-2]
	cur := candles[len(candles)-1]
	if prev.Body().IsZero() {
		return none(name, "prior candle has no body")
	}

	bullish := !prev.IsBullish() && cur.IsBullish() &&
		cur.Open.LessThanOrEqual(prev.Close) && cur.Close.GreaterThanOrEqual(prev.Open)
	bearish := prev.IsBullish() && !cur.IsBullish() &&
		cur.Open.GreaterThanOrEqual(prev.Close) && cur.Close.LessThanOrEqual(prev.Open)

	if !bullish && !bearish {
		return none(name, "no engulfing pattern")
	}
	direction := types.SideBuy
	extreme := cur.Low
	if bearish {
		direction = types.SideSell
		extreme = cur.High
	}
	sl, tp := slTPFromRange(cur.Close, extreme, cur.Range(), direction, decimal.NewFromFloat(2))
	return types.StrategyOutcome{
		Strategy: name, Triggered: true, Direction: direction,
		SL: sl, TP: tp, Reason: "engulfing reversal", Score: decimal.NewFromFloat(0.5),
	}
}

// Hammer detects a bullish hammer: small body near the top of the range,
// long lower wick, little to no upper wick.
func Hammer(candles []types.Candle, ctx types.EngineContext) types.StrategyOutcome {
	const name = "hammer"
	if len(candles) < 1 {
		return none(name, "insufficient candles")
	}
	cur := candles[len(candles)-1]
	rng := cur.Range()
	if rng.IsZero() {
		return none(name, "zero range candle")
	}
	body := cur.Body()
	lowerWick := cur.LowerWick()
	upperWick := cur.UpperWick()

	if lowerWick.LessThan(body.Mul(decimal.NewFromInt(2))) {
		return none(name, "lower wick too short")
	}
	if upperWick.GreaterThan(rng.Mul(decimal.NewFromFloat(0.1))) {
		return none(name, "upper wick too long")
	}
	sl, tp := slTPFromRange(cur.Close, cur.Low, rng, types.SideBuy, decimal.NewFromFloat(2))
	return types.StrategyOutcome{
		Strategy: name, Triggered: true, Direction: types.SideBuy,
		SL: sl, TP: tp, Reason: "hammer reversal", Score: decimal.NewFromFloat(0.4),
	}
}

// ShootingStar detects a bearish shooting star: small body near the bottom
// of the range, long upper wick, little to no lower wick.
func ShootingStar(candles []types.Candle, ctx types.EngineContext) types.StrategyOutcome {
	const name = "shooting_star"
	if len(candles) < 1 {
		return none(name, "insufficient candles")
	}
	cur := candles[len(candles)-1]
	rng := cur.Range()
	if rng.IsZero() {
		return none(name, "zero range candle")
	}
	body := cur.Body()
	upperWick := cur.UpperWick()
	lowerWick := cur.LowerWick()

	if upperWick.LessThan(body.Mul(decimal.NewFromInt(2))) {
		return none(name, "upper wick too short")
	}
	if lowerWick.GreaterThan(rng.Mul(decimal.NewFromFloat(0.1))) {
		return none(name, "lower wick too long")
	}
	sl, tp := slTPFromRange(cur.Close, cur.High, rng, types.SideSell, decimal.NewFromFloat(2))
	return types.StrategyOutcome{
		Strategy: name, Triggered: true, Direction: types.SideSell,
		SL: sl, TP: tp, Reason: "shooting star reversal", Score: decimal.NewFromFloat(0.4),
	}
}

// Marubozu detects a candle with little to no wicks, signalling strong
// one-sided conviction to continue in the candle's own direction.
func Marubozu(candles []types.Candle, ctx types.EngineContext) types.StrategyOutcome {
	const name = "marubozu"
	if len(candles) < 1 {
		return none(name, "insufficient candles")
	}
	cur := candles[len(candles)-1]
	rng := cur.Range()
	if rng.IsZero() {
		return none(name, "zero range candle")
	}
	wickTolerance := rng.Mul(decimal.NewFromFloat(0.05))
	if cur.UpperWick().GreaterThan(wickTolerance) || cur.LowerWick().GreaterThan(wickTolerance) {
		return none(name, "wicks too long for marubozu")
	}
	direction := types.SideSell
	extreme := cur.High
	if cur.IsBullish() {
		direction = types.SideBuy
		extreme = cur.Low
	}
	sl, tp := slTPFromRange(cur.Close, extreme, rng, direction, decimal.NewFromFloat(1.5))
	return types.StrategyOutcome{
		Strategy: name, Triggered: true, Direction: direction,
		SL: sl, TP: tp, Reason: "marubozu continuation", Score: decimal.NewFromFloat(0.4),
	}
}

// ThreeSoldiers detects three white soldiers (bullish) or three black crows
// (bearish): three consecutive same-direction candles of comparable body
// size, each closing beyond the prior's close.
func ThreeSoldiers(candles []types.Candle, ctx types.EngineContext) types.StrategyOutcome {
	const name = "three_soldiers"
	if len(candles) < 3 {
		return none(name, "insufficient candles")
	}
	c := candles[len(candles)-3:]

	allBullish := c[0].IsBullish() && c[1].IsBullish() && c[2].IsBullish()
	allBearish := !c[0].IsBullish() && !c[1].IsBullish() && !c[2].IsBullish()
	if !allBullish && !allBearish {
		return none(name, "not three same-direction candles")
	}

	if allBullish {
		if !(c[1].Close.GreaterThan(c[0].Close) && c[2].Close.GreaterThan(c[1].Close)) {
			return none(name, "closes not progressively higher")
		}
		sl, tp := slTPFromRange(c[2].Close, c[0].Low, c[2].Range(), types.SideBuy, decimal.NewFromFloat(1.5))
		return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: types.SideBuy,
			SL: sl, TP: tp, Reason: "three white soldiers", Score: decimal.NewFromFloat(0.5)}
	}

	if !(c[1].Close.LessThan(c[0].Close) && c[2].Close.LessThan(c[1].Close)) {
		return none(name, "closes not progressively lower")
	}
	sl, tp := slTPFromRange(c[2].Close, c[0].High, c[2].Range(), types.SideSell, decimal.NewFromFloat(1.5))
	return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: types.SideSell,
		SL: sl, TP: tp, Reason: "three black crows", Score: decimal.NewFromFloat(0.5)}
}

// DojiBreakout detects a doji (indecision) candle followed by a breakout
// candle that closes beyond the doji's range in a clear direction.
func DojiBreakout(candles []types.Candle, ctx types.EngineContext) types.StrategyOutcome {
	const name = "doji_breakout"
	if len(candles) < 2 {
		return none(name, "insufficient candles")
	}
	doji := candles[len(candles)-2]
	brk := candles[len(candles)-1]
	rng := doji.Range()
	if rng.IsZero() {
		return none(name, "zero range doji candle")
	}
	if doji.Body().GreaterThan(rng.Mul(decimal.NewFromFloat(0.1))) {
		return none(name, "prior candle not a doji")
	}

	if brk.Close.GreaterThan(doji.High) && brk.IsBullish() {
		sl, tp := slTPFromRange(brk.Close, doji.Low, rng, types.SideBuy, decimal.NewFromFloat(2))
		return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: types.SideBuy,
			SL: sl, TP: tp, Reason: "doji breakout up", Score: decimal.NewFromFloat(0.45)}
	}
	if brk.Close.LessThan(doji.Low) && !brk.IsBullish() {
		sl, tp := slTPFromRange(brk.Close, doji.High, rng, types.SideSell, decimal.NewFromFloat(2))
		return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: types.SideSell,
			SL: sl, TP: tp, Reason: "doji breakout down", Score: decimal.NewFromFloat(0.45)}
	}
	return none(name, "no breakout beyond doji range")
}

// PriceActionPinbar detects a single-candle pinbar/rejection: a long wick on
// one side with a small body near the opposite extreme, independent of the
// stricter hammer/shooting-star body-position rules.
func PriceActionPinbar(candles []types.Candle, ctx types.EngineContext) types.StrategyOutcome {
	const name = "price_action_pinbar"
	if len(candles) < 1 {
		return none(name, "insufficient candles")
	}
	cur := candles[len(candles)-1]
	rng := cur.Range()
	if rng.IsZero() {
		return none(name, "zero range candle")
	}
	body := cur.Body()
	lowerWick := cur.LowerWick()
	upperWick := cur.UpperWick()
	wickThreshold := rng.Mul(decimal.NewFromFloat(0.66))

	if lowerWick.GreaterThanOrEqual(wickThreshold) && body.LessThan(rng.Mul(decimal.NewFromFloat(0.25))) {
		sl, tp := slTPFromRange(cur.Close, cur.Low, rng, types.SideBuy, decimal.NewFromFloat(1.5))
		return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: types.SideBuy,
			SL: sl, TP: tp, Reason: "bullish pinbar rejection", Score: decimal.NewFromFloat(0.4)}
	}
	if upperWick.GreaterThanOrEqual(wickThreshold) && body.LessThan(rng.Mul(decimal.NewFromFloat(0.25))) {
		sl, tp := slTPFromRange(cur.Close, cur.High, rng, types.SideSell, decimal.NewFromFloat(1.5))
		return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: types.SideSell,
			SL: sl, TP: tp, Reason: "bearish pinbar rejection", Score: decimal.NewFromFloat(0.4)}
	}
	return none(name, "no dominant rejection wick")
}
