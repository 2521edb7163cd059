package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/internal/broker"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

type fixedTickSource struct {
	bid, ask decimal.Decimal
	at       time.Time
}

func (f *fixedTickSource) Tick(ctx context.Context, symbol string) (broker.Tick, error) {
	return broker.Tick{Bid: f.bid, Ask: f.ask, Time: f.at}, nil
}

func TestIngestOpensAndUpdatesBar(t *testing.T) {
	src := &fixedTickSource{bid: decimal.NewFromFloat(1.1000), ask: decimal.NewFromFloat(1.1002)}
	svc := NewService(zap.NewNop(), DefaultConfig(), src)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.ingest("EURUSD", types.Timeframe1m, decimal.NewFromFloat(1.1001), base)
	svc.ingest("EURUSD", types.Timeframe1m, decimal.NewFromFloat(1.1005), base.Add(10*time.Second))
	svc.ingest("EURUSD", types.Timeframe1m, decimal.NewFromFloat(1.0999), base.Add(20*time.Second))

	candles, err := svc.Candles(context.Background(), "EURUSD", types.Timeframe1m, 0)
	if err != nil {
		t.Fatalf("candles: %v", err)
	}
	if len(candles) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(candles))
	}
	bar := candles[0]
	if !bar.High.Equal(decimal.NewFromFloat(1.1005)) {
		t.Errorf("expected high 1.1005, got %s", bar.High)
	}
	if !bar.Low.Equal(decimal.NewFromFloat(1.0999)) {
		t.Errorf("expected low 1.0999, got %s", bar.Low)
	}
	if !bar.Close.Equal(decimal.NewFromFloat(1.0999)) {
		t.Errorf("expected close 1.0999, got %s", bar.Close)
	}
}

func TestIngestOpensNewBarOnNextBucket(t *testing.T) {
	src := &fixedTickSource{bid: decimal.NewFromFloat(1.1000), ask: decimal.NewFromFloat(1.1002)}
	svc := NewService(zap.NewNop(), DefaultConfig(), src)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.ingest("EURUSD", types.Timeframe1m, decimal.NewFromFloat(1.1000), base)
	svc.ingest("EURUSD", types.Timeframe1m, decimal.NewFromFloat(1.1010), base.Add(90*time.Second))

	candles, _ := svc.Candles(context.Background(), "EURUSD", types.Timeframe1m, 0)
	if len(candles) != 2 {
		t.Fatalf("expected 2 bars after bucket rollover, got %d", len(candles))
	}
}

func TestCandlesRespectsLookback(t *testing.T) {
	src := &fixedTickSource{bid: decimal.NewFromFloat(1.1000), ask: decimal.NewFromFloat(1.1002)}
	svc := NewService(zap.NewNop(), DefaultConfig(), src)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		svc.ingest("EURUSD", types.Timeframe1m, decimal.NewFromFloat(1.1000), base.Add(time.Duration(i)*time.Minute))
	}

	candles, err := svc.Candles(context.Background(), "EURUSD", types.Timeframe1m, 2)
	if err != nil {
		t.Fatalf("candles: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(candles))
	}
}
