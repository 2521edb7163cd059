// Package broker defines the connector contract every execution venue
// implements (paper simulation, MT5) and a registry resolving a broker code
// to its connector.
package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// PlaceResult is the immediate broker response to an order placement: a
// synchronous ack/reject plus whatever ticket identifies the order at the
// broker for later reconciliation.
type PlaceResult struct {
	BrokerTicket string
	Status       types.OrderStatus
	FilledQty    decimal.Decimal
	FilledPrice  decimal.Decimal
	Error        string
}

// Connector is the contract every broker integration implements. Close
// orders are placed through the same PlaceOrder path as opens; the
// connector tells them apart via order.IsCloseOrder().
type Connector interface {
	Code() string
	PlaceOrder(ctx context.Context, account types.BrokerAccount, order types.Order) (PlaceResult, error)
	CancelOrder(ctx context.Context, account types.BrokerAccount, order types.Order) error
	AccountEquity(ctx context.Context, account types.BrokerAccount) (decimal.Decimal, error)
	ProbeSymbol(ctx context.Context, account types.BrokerAccount, symbol string) (visible, tradable bool, lastTickAge time.Duration, err error)
}

// Registry resolves a broker code (e.g. "paper", "mt5") to its Connector.
type Registry struct {
	connectors map[string]Connector
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{connectors: make(map[string]Connector)}
}

// Register adds a connector under its own Code().
func (r *Registry) Register(c Connector) {
	r.connectors[c.Code()] = c
}

// Resolve returns the connector for brokerCode, or an error if unregistered.
func (r *Registry) Resolve(brokerCode string) (Connector, error) {
	c, ok := r.connectors[NormalizeBrokerCode(brokerCode)]
	if !ok {
		return nil, fmt.Errorf("no connector registered for broker code %q", brokerCode)
	}
	return c, nil
}

// NormalizeBrokerCode lowercases ASCII letters and removes every space
// (interior ones included) from a broker code for lookup.
func NormalizeBrokerCode(code string) string {
	out := make([]byte, 0, len(code))
	for _, c := range code {
		if c >= 'A' && c <= 'Z' {
			c = c - 'A' + 'a'
		}
		if c == ' ' {
			continue
		}
		out = append(out, byte(c))
	}
	return string(out)
}
