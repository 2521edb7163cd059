package broker

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// PaperConnector simulates fills immediately at the order's requested
// price, for accounts with no live broker credentials. Unlike MT5Connector
// it carries no circuit breaker or session state: there is nothing external
// that can fail.
type PaperConnector struct {
	startBalance decimal.Decimal
	log          *zap.Logger

	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]decimal.Decimal
}

// NewPaperConnector builds a PaperConnector seeded with a starting balance
// (used only for equity reporting; paper accounts have no funded balance).
func NewPaperConnector(startBalance decimal.Decimal, log *zap.Logger) *PaperConnector {
	return &PaperConnector{
		startBalance: startBalance,
		log:          log,
		rng:          rand.New(rand.NewSource(1)),
		prices:       make(map[string]decimal.Decimal),
	}
}

// Code implements Connector.
func (p *PaperConnector) Code() string { return "paper" }

// PlaceOrder immediately acknowledges and fills the order at its requested
// price (or, if unset, leaves FilledPrice zero for the caller to resolve
// against the latest known tick).
func (p *PaperConnector) PlaceOrder(ctx context.Context, account types.BrokerAccount, order types.Order) (PlaceResult, error) {
	return PlaceResult{
		BrokerTicket: "paper_" + order.ClientOrderID,
		Status:       types.OrderStatusFilled,
		FilledQty:    order.Qty,
		FilledPrice:  order.Price,
	}, nil
}

// CancelOrder is a no-op: paper orders fill synchronously in PlaceOrder, so
// there is never anything left in flight to cancel.
func (p *PaperConnector) CancelOrder(ctx context.Context, account types.BrokerAccount, order types.Order) error {
	return nil
}

// AccountEquity returns the connector's configured starting balance; a
// paper account's equity drifts only through internal/portfolio's realized
// PnL bookkeeping, not a live broker query.
func (p *PaperConnector) AccountEquity(ctx context.Context, account types.BrokerAccount) (decimal.Decimal, error) {
	return p.startBalance, nil
}

// ProbeSymbol reports every symbol visible, tradable, and fresh: paper
// trading has no market-hours restriction of its own beyond the calendar
// internal/markethours already applies.
func (p *PaperConnector) ProbeSymbol(ctx context.Context, account types.BrokerAccount, symbol string) (bool, bool, time.Duration, error) {
	return true, true, 0, nil
}

// defaultBasePrice seeds a symbol's synthetic walk the first time it is
// quoted. Real figures don't matter for simulation; only their movement
// does.
func defaultBasePrice(symbol string) decimal.Decimal {
	switch symbol {
	case "XAUUSD":
		return decimal.NewFromFloat(2000.0)
	case "US30", "US500", "NAS100":
		return decimal.NewFromFloat(15000.0)
	case "BTCUSD":
		return decimal.NewFromFloat(60000.0)
	default:
		return decimal.NewFromFloat(1.1000)
	}
}

// Tick implements marketdata.TickSource with a synthetic random walk
// around a per-symbol base price, since a paper account has no venue to
// quote it a real one.
func (p *PaperConnector) Tick(ctx context.Context, symbol string) (Tick, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mid, ok := p.prices[symbol]
	if !ok {
		mid = defaultBasePrice(symbol)
	}
	driftBp := decimal.NewFromFloat((p.rng.Float64() - 0.5) * 0.0004)
	mid = mid.Mul(decimal.NewFromInt(1).Add(driftBp))
	p.prices[symbol] = mid

	spread := mid.Mul(decimal.NewFromFloat(0.00005))
	half := spread.Div(decimal.NewFromInt(2))
	return Tick{Bid: mid.Sub(half), Ask: mid.Add(half), Time: time.Now()}, nil
}
