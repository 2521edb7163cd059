package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// SansenSutsumiLiquidity ("three-statement liquidity sweep") detects a wick
// that sweeps through a recent swing extreme and closes back inside it,
// taking out resting stop-loss liquidity before reversing.
func SansenSutsumiLiquidity(candles []types.Candle, ctx types.EngineContext) types.StrategyOutcome {
	const name = "sansen_sutsumi_liquidity"
	const lookback = 15
	if len(candles) < lookback+1 {
		return none(name, "insufficient candles")
	}
	window := candles[len(candles)-lookback-1 : len(candles)-1]
	cur := candles[len(candles)-1]

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

	sweptHigh := cur.High.GreaterThan(swingHigh) && cur.Close.LessThan(swingHigh)
	sweptLow := cur.Low.LessThan(swingLow) && cur.Close.GreaterThan(swingLow)

	if sweptLow {
		sl, tp := slTPFromRange(cur.Close, cur.Low, cur.Range(), types.SideBuy, decimal.NewFromFloat(2.5))
		return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: types.SideBuy,
			SL: sl, TP: tp, Reason: "liquidity sweep below swing low", Score: decimal.NewFromFloat(0.55)}
	}
	if sweptHigh {
		sl, tp := slTPFromRange(cur.Close, cur.High, cur.Range(), types.SideSell, decimal.NewFromFloat(2.5))
		return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: types.SideSell,
			SL: sl, TP: tp, Reason: "liquidity sweep above swing high", Score: decimal.NewFromFloat(0.55)}
	}
	return none(name, "no liquidity sweep detected")
}

// SanpeTonkachiFVG ("hammer-strike fair value gap") detects a fresh fair
// value gap formed by a strong directional candle, entering on the close
// that confirms the gap as the most recent imbalance.
func SanpeTonkachiFVG(candles []types.Candle, ctx types.EngineContext) types.StrategyOutcome {
	const name = "sanpe_tonkachi_fvg"
	if len(candles) < 4 {
		return none(name, "insufficient candles")
	}
	gaps := FindFairValueGaps(candles)
	if len(gaps) == 0 {
		return none(name, "no fair value gap present")
	}
	last := gaps[len(gaps)-1]
	if last.Index != len(candles)-1 {
		return none(name, "most recent gap is stale")
	}
	cur := candles[len(candles)-1]

	if last.Bullish {
		sl, tp := slTPFromRange(cur.Close, last.Bottom, cur.Range(), types.SideBuy, decimal.NewFromFloat(2))
		return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: types.SideBuy,
			SL: sl, TP: tp, Reason: "bullish fair value gap imbalance", Score: decimal.NewFromFloat(0.5),
			Metadata: map[string]any{"fvgTop": last.Top.String(), "fvgBottom": last.Bottom.String()}}
	}
	sl, tp := slTPFromRange(cur.Close, last.Top, cur.Range(), types.SideSell, decimal.NewFromFloat(2))
	return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: types.SideSell,
		SL: sl, TP: tp, Reason: "bearish fair value gap imbalance", Score: decimal.NewFromFloat(0.5),
		Metadata: map[string]any{"fvgTop": last.Top.String(), "fvgBottom": last.Bottom.String()}}
}

// CompositeSMC is the highest-priority strategy: it requires a known
// structure bias plus either a liquidity sweep or a fair value gap in the
// same direction before triggering. A sweep takes precedence; an agreeing
// fair value gap then only raises its score. All three are not required.
func CompositeSMC(candles []types.Candle, ctx types.EngineContext) types.StrategyOutcome {
	const name = "composite_smc"
	if len(candles) < 30 {
		return none(name, "insufficient candles for structure read")
	}
	swings := ClassifySwings(candles, 2)
	bias, known := StructureBias(swings)
	if !known {
		return none(name, "no structure bias yet")
	}

	sweep := SansenSutsumiLiquidity(candles, ctx)
	fvg := SanpeTonkachiFVG(candles, ctx)

	if sweep.Triggered && sweep.Direction == bias {
		score := sweep.Score.Add(decimal.NewFromFloat(0.2))
		if fvg.Triggered && fvg.Direction == bias {
			score = score.Add(decimal.NewFromFloat(0.15))
		}
		if score.GreaterThan(decimal.NewFromInt(1)) {
			score = decimal.NewFromInt(1)
		}
		return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: bias,
			SL: sweep.SL, TP: sweep.TP, Reason: "structure-aligned liquidity sweep", Score: score}
	}
	if fvg.Triggered && fvg.Direction == bias {
		score := fvg.Score.Add(decimal.NewFromFloat(0.2))
		return types.StrategyOutcome{Strategy: name, Triggered: true, Direction: bias,
			SL: fvg.SL, TP: fvg.TP, Reason: "structure-aligned fair value gap", Score: score}
	}
	return none(name, "no structure-aligned confirmation")
}
