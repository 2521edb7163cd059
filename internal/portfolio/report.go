package portfolio

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// ReportStore is the persistence surface RecomputePnL and PerformanceReport
// need, separate from the Store surface Recorder itself needs.
type ReportStore interface {
	ListBots() []types.Bot
	TradeLogsForBot(botID string) []types.TradeLog
	GetOrder(id string) (types.Order, bool)
	UpsertPnLDaily(types.PnLDaily) error
	GetPnLDaily(brokerAccountID, symbol string, date time.Time) (types.PnLDaily, bool)
}

// RecomputePnL rebuilds the PnLDaily rollup for the last `days` days from
// each bot's trade log, grouping realized PnL by (broker account, symbol,
// day) via each trade log's order. It is a full rebuild of the window, not
// an incremental add, since UpsertPnLDaily replaces the row outright.
func RecomputePnL(store ReportStore, days int, now time.Time) (int, error) {
	cutoff := now.AddDate(0, 0, -days)
	type bucketKey struct {
		account string
		symbol  string
		day     string
	}
	totals := make(map[bucketKey]decimal.Decimal)

	for _, bot := range store.ListBots() {
		for _, tl := range store.TradeLogsForBot(bot.ID) {
			if !tl.HasPnL || tl.CreatedAt.Before(cutoff) {
				continue
			}
			order, ok := store.GetOrder(tl.OrderID)
			if !ok {
				continue
			}
			key := bucketKey{
				account: order.BrokerAccountID,
				symbol:  order.Symbol,
				day:     tl.CreatedAt.Format("2006-01-02"),
			}
			totals[key] = totals[key].Add(tl.PnL)
		}
	}

	for key, realized := range totals {
		day, err := time.Parse("2006-01-02", key.day)
		if err != nil {
			continue
		}
		existing, _ := store.GetPnLDaily(key.account, key.symbol, day)
		if err := store.UpsertPnLDaily(types.PnLDaily{
			BrokerAccountID: key.account,
			Symbol:          key.symbol,
			Date:            day,
			Realized:        realized,
			Unrealized:      existing.Unrealized,
			Fees:            existing.Fees,
			Balance:         existing.Balance,
		}); err != nil {
			return len(totals), err
		}
	}
	return len(totals), nil
}

// PerformanceSummary is the aggregate result of PerformanceReport.
type PerformanceSummary struct {
	Days          int
	TotalTrades   int
	Wins          int
	Losses        int
	Breakevens    int
	RealizedTotal decimal.Decimal
}

// String renders the summary the way an operator would read it off a
// terminal report.
func (p PerformanceSummary) String() string {
	winRate := decimal.Zero
	if p.TotalTrades > 0 {
		winRate = decimal.NewFromInt(int64(p.Wins)).Div(decimal.NewFromInt(int64(p.TotalTrades))).Mul(decimal.NewFromInt(100))
	}
	return fmt.Sprintf("last %d days: %d trades, %d wins / %d losses / %d breakeven (%.1f%% win rate), realized pnl %s",
		p.Days, p.TotalTrades, p.Wins, p.Losses, p.Breakevens, winRate.InexactFloat64(), p.RealizedTotal.String())
}

// PerformanceReport summarizes realized trade outcomes across every bot over
// the last `days` days.
func PerformanceReport(store ReportStore, days int, now time.Time) PerformanceSummary {
	cutoff := now.AddDate(0, 0, -days)
	summary := PerformanceSummary{Days: days}
	for _, bot := range store.ListBots() {
		for _, tl := range store.TradeLogsForBot(bot.ID) {
			if !tl.HasPnL || tl.CreatedAt.Before(cutoff) {
				continue
			}
			summary.TotalTrades++
			summary.RealizedTotal = summary.RealizedTotal.Add(tl.PnL)
			switch {
			case tl.PnL.GreaterThan(decimal.Zero):
				summary.Wins++
			case tl.PnL.LessThan(decimal.Zero):
				summary.Losses++
			default:
				summary.Breakevens++
			}
		}
	}
	return summary
}
