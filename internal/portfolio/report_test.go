package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/scalper-engine/internal/store"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

func seedTradeLog(t *testing.T, st *store.Store, botID, accountID, symbol string, pnl decimal.Decimal, createdAt time.Time) {
	t.Helper()
	order := types.Order{
		ID: botID + "-" + createdAt.Format("150405.000000000"),
		BotID: botID, BrokerAccountID: accountID, Symbol: symbol,
		Status: types.OrderStatusFilled, CreatedAt: createdAt, UpdatedAt: createdAt,
	}
	if err := st.SaveOrder(order); err != nil {
		t.Fatalf("save order: %v", err)
	}
	if err := st.SaveTradeLog(types.TradeLog{
		ID: order.ID + "-tl", OrderID: order.ID, BotID: botID,
		PnL: pnl, HasPnL: true, CreatedAt: createdAt,
	}); err != nil {
		t.Fatalf("save trade log: %v", err)
	}
}

func TestRecomputePnLGroupsByAccountSymbolDay(t *testing.T) {
	st := store.New()
	_ = st.SaveBot(types.Bot{ID: "b1", BrokerAccountID: "acct1", Asset: types.Asset{Symbol: "EURUSD"}})

	day := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	seedTradeLog(t, st, "b1", "acct1", "EURUSD", decimal.NewFromFloat(10), day)
	seedTradeLog(t, st, "b1", "acct1", "EURUSD", decimal.NewFromFloat(-4), day.Add(time.Hour))
	seedTradeLog(t, st, "b1", "acct1", "EURUSD", decimal.NewFromFloat(100), day.AddDate(0, 0, -90))

	n, err := RecomputePnL(st, 30, day.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("recompute pnl: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 bucket rolled up, got %d", n)
	}

	rollup, ok := st.GetPnLDaily("acct1", "EURUSD", day)
	if !ok {
		t.Fatalf("expected a pnl rollup row")
	}
	if !rollup.Realized.Equal(decimal.NewFromFloat(6)) {
		t.Errorf("expected realized 6, got %s", rollup.Realized)
	}
}

func TestPerformanceReportCountsWinsAndLosses(t *testing.T) {
	st := store.New()
	_ = st.SaveBot(types.Bot{ID: "b1", BrokerAccountID: "acct1", Asset: types.Asset{Symbol: "EURUSD"}})

	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	seedTradeLog(t, st, "b1", "acct1", "EURUSD", decimal.NewFromFloat(10), now.Add(-time.Hour))
	seedTradeLog(t, st, "b1", "acct1", "EURUSD", decimal.NewFromFloat(-5), now.Add(-2*time.Hour))
	seedTradeLog(t, st, "b1", "acct1", "EURUSD", decimal.Zero, now.Add(-3*time.Hour))
	seedTradeLog(t, st, "b1", "acct1", "EURUSD", decimal.NewFromFloat(1000), now.AddDate(0, 0, -10))

	summary := PerformanceReport(st, 1, now)
	if summary.TotalTrades != 3 {
		t.Fatalf("expected 3 trades within window, got %d", summary.TotalTrades)
	}
	if summary.Wins != 1 || summary.Losses != 1 || summary.Breakevens != 1 {
		t.Fatalf("expected 1 win / 1 loss / 1 breakeven, got %+v", summary)
	}
	if !summary.RealizedTotal.Equal(decimal.NewFromFloat(5)) {
		t.Errorf("expected realized total 5, got %s", summary.RealizedTotal)
	}
	if summary.String() == "" {
		t.Errorf("expected non-empty summary string")
	}
}
