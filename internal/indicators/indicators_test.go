package indicators

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

func candle(o, h, l, c float64) types.Candle {
	return types.Candle{
		Time:  time.Now(),
		Open:  decimal.NewFromFloat(o),
		High:  decimal.NewFromFloat(h),
		Low:   decimal.NewFromFloat(l),
		Close: decimal.NewFromFloat(c),
	}
}

func TestSMAInsufficientData(t *testing.T) {
	candles := []types.Candle{candle(1, 2, 0.5, 1.5)}
	if got := SMA(candles, 5); !got.IsZero() {
		t.Fatalf("expected zero for insufficient data, got %s", got)
	}
}

func TestSMAAverages(t *testing.T) {
	candles := []types.Candle{
		candle(1, 1, 1, 1),
		candle(2, 2, 2, 2),
		candle(3, 3, 3, 3),
	}
	got := SMA(candles, 3)
	want := decimal.NewFromInt(2)
	if !got.Equal(want) {
		t.Fatalf("SMA = %s, want %s", got, want)
	}
}

func TestATRUsesHighLowRange(t *testing.T) {
	candles := []types.Candle{
		candle(10, 12, 9, 11),
		candle(11, 13, 11, 12),
	}
	got := ATR(candles, 2)
	want := decimal.NewFromFloat(2.5) // ranges: 3, 2 -> mean 2.5
	if !got.Equal(want) {
		t.Fatalf("ATR = %s, want %s", got, want)
	}
}

func TestFractalsDetectsSwingHighAndLow(t *testing.T) {
	candles := []types.Candle{
		candle(1, 10, 9, 9.5),
		candle(1, 11, 9.5, 10),
		candle(1, 15, 9, 12), // swing high at index 2
		candle(1, 11, 9.5, 10),
		candle(1, 10, 9, 9.5),
	}
	got := Fractals(candles, 2)
	if len(got) == 0 {
		t.Fatalf("expected at least one fractal")
	}
	found := false
	for _, f := range got {
		if f.IsHigh && f.Index == 2 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected high fractal at index 2, got %+v", got)
	}
}
