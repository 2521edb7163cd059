package broker

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

func TestPaperConnectorFillsAtRequestedPrice(t *testing.T) {
	conn := NewPaperConnector(decimal.NewFromInt(10000), nil)
	order := types.Order{ClientOrderID: "c1", Qty: decimal.NewFromFloat(0.5), Price: decimal.NewFromFloat(1.1000)}

	result, err := conn.PlaceOrder(context.Background(), types.BrokerAccount{}, order)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if result.Status != types.OrderStatusFilled {
		t.Errorf("expected immediate fill, got status %s", result.Status)
	}
	if !result.FilledQty.Equal(order.Qty) || !result.FilledPrice.Equal(order.Price) {
		t.Errorf("expected fill to match requested qty/price, got %+v", result)
	}
	if result.BrokerTicket != "paper_c1" {
		t.Errorf("expected ticket derived from client order id, got %q", result.BrokerTicket)
	}
}

func TestPaperConnectorAccountEquityReturnsStartBalance(t *testing.T) {
	conn := NewPaperConnector(decimal.NewFromInt(5000), nil)
	equity, err := conn.AccountEquity(context.Background(), types.BrokerAccount{})
	if err != nil {
		t.Fatalf("account equity: %v", err)
	}
	if !equity.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("expected equity 5000, got %s", equity)
	}
}

func TestPaperConnectorTickWalksAroundBasePrice(t *testing.T) {
	conn := NewPaperConnector(decimal.Zero, nil)
	tick, err := conn.Tick(context.Background(), "EURUSD")
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if tick.Bid.GreaterThan(tick.Ask) {
		t.Errorf("expected bid <= ask, got bid=%s ask=%s", tick.Bid, tick.Ask)
	}
	if tick.Bid.LessThanOrEqual(decimal.Zero) {
		t.Errorf("expected a positive synthetic price, got %s", tick.Bid)
	}
}
