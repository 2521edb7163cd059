// Package indicators computes the technical readings candlestick, price
// action, and SMC strategies are scored against: moving averages, ATR, and
// Williams fractals.
package indicators

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
	"github.com/atlas-desktop/scalper-engine/pkg/utils"
)

// SMA returns the simple moving average of the last period closes. Returns
// zero when fewer than period candles are available.
func SMA(candles []types.Candle, period int) decimal.Decimal {
	if period <= 0 || len(candles) < period {
		return decimal.Zero
	}
	window := candles[len(candles)-period:]
	sum := decimal.Zero
	for _, c := range window {
		sum = sum.Add(c.Close)
	}
	return sum.Div(decimal.NewFromInt(int64(period)))
}

// EMA returns the exponential moving average across the full series, seeded
// from the first candle and walked forward.
func EMA(candles []types.Candle, period int) decimal.Decimal {
	if period <= 0 || len(candles) == 0 {
		return decimal.Zero
	}
	e := utils.NewEMA(period)
	for _, c := range candles {
		e.Add(c.Close)
	}
	return e.Current()
}

// ATR returns the average true range over the last period candles, using the
// simplified high-low range mean (no prior-close gap term), matching the
// engine's intraday scalping use case where gaps are rare.
func ATR(candles []types.Candle, period int) decimal.Decimal {
	if period <= 0 || len(candles) < period {
		return decimal.Zero
	}
	window := candles[len(candles)-period:]
	sum := decimal.Zero
	for _, c := range window {
		sum = sum.Add(c.Range())
	}
	return sum.Div(decimal.NewFromInt(int64(period)))
}

// Fractal is a Williams fractal swing point.
type Fractal struct {
	Index     int
	Time      types.Candle
	IsHigh    bool
	IsLow     bool
	Price     decimal.Decimal
}

// Fractals detects Williams fractals with the given half-window period: a
// candle at index i is a high fractal when its high is the strict max over
// [i-period, i+period], and symmetrically for low fractals. The half-window
// means the most recent `period` candles can never be classified.
func Fractals(candles []types.Candle, period int) []Fractal {
	if period <= 0 || len(candles) < 2*period+1 {
		return nil
	}
	var out []Fractal
	for i := period; i < len(candles)-period; i++ {
		isHigh := true
		isLow := true
		for j := i - period; j <= i+period; j++ {
			if j == i {
				continue
			}
			if candles[j].High.GreaterThanOrEqual(candles[i].High) {
				isHigh = false
			}
			if candles[j].Low.LessThanOrEqual(candles[i].Low) {
				isLow = false
			}
		}
		if isHigh {
			out = append(out, Fractal{Index: i, Time: candles[i], IsHigh: true, Price: candles[i].High})
		}
		if isLow {
			out = append(out, Fractal{Index: i, Time: candles[i], IsLow: true, Price: candles[i].Low})
		}
	}
	return out
}
