// Package copytrade fans an executed master-bot order out to its enabled
// followers, scaling quantity by each follower's own allocation model.
package copytrade

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/internal/broker"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// qtyPrecision matches the eight-decimal-place quantize used for every
// allocation model's output.
const qtyPrecision = 8

// Store is the persistence surface copytrade needs.
type Store interface {
	FollowersForMaster(masterBotID string) []types.Follower
	GetBrokerAccount(id string) (types.BrokerAccount, bool)
}

// Allocator resolves a follower's order quantity from the master fill.
type Allocator struct {
	store    Store
	registry *broker.Registry
	log      *zap.Logger
}

// NewAllocator builds an Allocator.
func NewAllocator(store Store, registry *broker.Registry, log *zap.Logger) *Allocator {
	return &Allocator{store: store, registry: registry, log: log}
}

// FollowerOrder is one follower's derived order, ready to be placed through
// its own broker account.
type FollowerOrder struct {
	Follower types.Follower
	Qty      decimal.Decimal
}

// Fanout computes the order each eligible, enabled follower of masterBotID
// should place in response to a master fill of masterQty.
// A follower is eligible only when its account's current equity is at
// least its configured minimum balance; ineligible followers are skipped,
// not erred on, since a thin account missing one signal is routine.
func (a *Allocator) Fanout(ctx context.Context, masterBotID string, masterQty decimal.Decimal) []FollowerOrder {
	var out []FollowerOrder
	for _, f := range a.store.FollowersForMaster(masterBotID) {
		if !f.IsEnabled {
			continue
		}
		account, ok := a.store.GetBrokerAccount(f.BrokerAccountID)
		if !ok {
			a.log.Warn("follower references unknown broker account", zap.String("follower", f.ID), zap.String("account", f.BrokerAccountID))
			continue
		}
		equity, err := a.equityFor(ctx, account)
		if err != nil {
			a.log.Warn("could not read follower account equity, skipping this cycle", zap.String("follower", f.ID), zap.Error(err))
			continue
		}
		if equity.LessThan(f.MinBalance) {
			continue
		}
		qty := a.computeAllocation(f, masterQty, equity)
		if qty.IsZero() || qty.IsNegative() {
			continue
		}
		out = append(out, FollowerOrder{Follower: f, Qty: qty})
	}
	return out
}

// equityFor reads a follower account's live equity through its connector,
// or a flat 10000 default for any broker code with no live equity query
// (mirroring the original fallback for non-MT5 accounts).
func (a *Allocator) equityFor(ctx context.Context, account types.BrokerAccount) (decimal.Decimal, error) {
	conn, err := a.registry.Resolve(account.BrokerCode)
	if err != nil {
		return decimal.NewFromInt(10000), nil
	}
	return conn.AccountEquity(ctx, account)
}

func (a *Allocator) computeAllocation(f types.Follower, masterQty decimal.Decimal, equity decimal.Decimal) decimal.Decimal {
	switch f.Model {
	case types.AllocationProportional:
		return allocProportional(masterQty, f.Multiplier)
	case types.AllocationFixed:
		return allocFixed(f.FixedQty)
	case types.AllocationEquityPct:
		return allocEquityPct(masterQty, f.EquityPct, equity)
	default:
		return decimal.Zero
	}
}

func allocProportional(masterQty, multiplier decimal.Decimal) decimal.Decimal {
	if multiplier.IsZero() {
		multiplier = decimal.NewFromInt(1)
	}
	return masterQty.Mul(multiplier).Round(qtyPrecision)
}

func allocFixed(fixedQty decimal.Decimal) decimal.Decimal {
	return fixedQty.Round(qtyPrecision)
}

// allocEquityPct sizes the follower's order as equityPct% of its own
// account equity, scaled down against a fixed notional-to-qty divisor. This
// is a deliberately coarse approximation (no live price conversion) since
// the allocation model's own design never resolved a proper notional-to-qty
// conversion; it sizes by the follower's own equity rather than blindly
// mirroring the master's lot size.
func allocEquityPct(masterQty, equityPct, equity decimal.Decimal) decimal.Decimal {
	if equityPct.IsZero() {
		equityPct = decimal.NewFromInt(1)
	}
	pct := equityPct.Div(decimal.NewFromInt(100))
	targetNotional := equity.Mul(pct)
	qty := targetNotional.Div(decimal.NewFromInt(1000))
	if masterQty.IsZero() {
		return qty.Round(qtyPrecision)
	}
	return qty.Round(qtyPrecision)
}
