package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/scalper-engine/internal/indicators"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// SwingLabel classifies a swing point against the swing before it of the
// same kind (two highs compared to each other, two lows to each other).
type SwingLabel string

const (
	SwingHigherHigh SwingLabel = "higher_high"
	SwingLowerHigh  SwingLabel = "lower_high"
	SwingHigherLow  SwingLabel = "higher_low"
	SwingLowerLow   SwingLabel = "lower_low"
)

// Swing is a classified fractal swing point.
type Swing struct {
	Index int
	Price decimal.Decimal
	IsHigh bool
	Label SwingLabel
}

// ClassifySwings labels each fractal swing (from internal/indicators.Fractals)
// against the prior swing of the same kind, producing the higher-high/
// higher-low/lower-high/lower-low sequence an SMC reader uses to call trend
// structure and spot a break of structure.
func ClassifySwings(candles []types.Candle, fractalPeriod int) []Swing {
	fractals := indicators.Fractals(candles, fractalPeriod)
	var highs, lows []Swing
	var out []Swing
	for _, f := range fractals {
		if f.IsHigh {
			label := SwingHigherHigh
			if len(highs) > 0 && f.Price.LessThan(highs[len(highs)-1].Price) {
				label = SwingLowerHigh
			}
			s := Swing{Index: f.Index, Price: f.Price, IsHigh: true, Label: label}
			highs = append(highs, s)
			out = append(out, s)
		} else {
			label := SwingHigherLow
			if len(lows) > 0 && f.Price.LessThan(lows[len(lows)-1].Price) {
				label = SwingLowerLow
			}
			s := Swing{Index: f.Index, Price: f.Price, IsHigh: false, Label: label}
			lows = append(lows, s)
			out = append(out, s)
		}
	}
	return out
}

// StructureBias returns the directional bias implied by the swing labels.
// The bullish position is the earlier of the latest higher-high and latest
// higher-low (or whichever of the two exists), the bearish position likewise
// from lower-high/lower-low. Bullish wins when its position is at or after
// the bearish one, bearish otherwise; unknown only when no swing is labelled.
func StructureBias(swings []Swing) (side types.Side, known bool) {
	var lastHH, lastHL, lastLH, lastLL int = -1, -1, -1, -1
	for i, s := range swings {
		switch s.Label {
		case SwingHigherHigh:
			lastHH = i
		case SwingHigherLow:
			lastHL = i
		case SwingLowerHigh:
			lastLH = i
		case SwingLowerLow:
			lastLL = i
		}
	}
	bullishAt := minIndexIgnoringMissing(lastHH, lastHL)
	bearishAt := minIndexIgnoringMissing(lastLH, lastLL)
	if bullishAt < 0 && bearishAt < 0 {
		return "", false
	}
	if bullishAt >= bearishAt {
		return types.SideBuy, true
	}
	return types.SideSell, true
}

func minIndexIgnoringMissing(a, b int) int {
	if a < 0 {
		return b
	}
	if b < 0 {
		return a
	}
	if a < b {
		return a
	}
	return b
}

// FairValueGap is an SMC imbalance: candle i-2's high/low leaves a gap with
// candle i's low/high that candle i-1 never traded into.
type FairValueGap struct {
	Index     int
	Bullish   bool
	Top       decimal.Decimal
	Bottom    decimal.Decimal
}

// FindFairValueGaps scans a candle series for three-candle imbalances.
func FindFairValueGaps(candles []types.Candle) []FairValueGap {
	var gaps []FairValueGap
	for i := 2; i < len(candles); i++ {
		first := candles[i-2]
		third := candles[i]
		if third.Low.GreaterThan(first.High) {
			gaps = append(gaps, FairValueGap{Index: i, Bullish: true, Top: third.Low, Bottom: first.High})
		}
		if third.High.LessThan(first.Low) {
			gaps = append(gaps, FairValueGap{Index: i, Bullish: false, Top: first.Low, Bottom: third.High})
		}
	}
	return gaps
}
