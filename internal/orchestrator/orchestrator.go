// Package orchestrator turns Decisions into Orders and enforces the order
// status transition state machine, keyed off a deterministic client order id
// so repeated dispatch of the same decision never double-places an order.
package orchestrator

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/internal/journal"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// allowedTransitions is the order status state machine: new -> {ack,
// filled, error, canceled}; ack -> {filled, part_filled, error, canceled};
// part_filled -> {filled, error, canceled}; filled/error/canceled are
// terminal and accept nothing.
var allowedTransitions = map[types.OrderStatus]map[types.OrderStatus]bool{
	types.OrderStatusNew: {
		types.OrderStatusAck:      true,
		types.OrderStatusFilled:   true,
		types.OrderStatusError:    true,
		types.OrderStatusCanceled: true,
	},
	types.OrderStatusAck: {
		types.OrderStatusFilled:     true,
		types.OrderStatusPartFilled: true,
		types.OrderStatusError:      true,
		types.OrderStatusCanceled:   true,
	},
	types.OrderStatusPartFilled: {
		types.OrderStatusFilled:   true,
		types.OrderStatusError:    true,
		types.OrderStatusCanceled: true,
	},
}

// CanTransition reports whether an order may move from `from` to `to`.
func CanTransition(from, to types.OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// ClientOrderID derives the deterministic idempotency key for a brand-new
// order from its owning decision: any number of retries of the same
// decision against the same account/symbol/action collapse to one order.
func ClientOrderID(decisionID, accountID, symbol string, side types.Side) string {
	return shortHash(fmt.Sprintf("%s|%s|%s|%s", decisionID, accountID, symbol, side))
}

// CloseClientOrderID derives the deterministic idempotency key for an order
// created to flatten an existing position, distinct from ClientOrderID's
// namespace via the "close|" prefix so the two can never collide.
func CloseClientOrderID(positionKey, accountID, symbol string) string {
	return "close|" + shortHash(fmt.Sprintf("close|%s|%s|%s", positionKey, accountID, symbol))
}

func shortHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:20]
}

// Store is the persistence surface the orchestrator needs.
type Store interface {
	FindOrderByClientID(clientOrderID string) (types.Order, bool)
	SaveOrder(types.Order) error
	GetOrder(id string) (types.Order, bool)
}

// Orchestrator creates and transitions orders.
type Orchestrator struct {
	store   Store
	journal *journal.Journal
	log     *zap.Logger
}

// New builds an Orchestrator.
func New(store Store, j *journal.Journal, log *zap.Logger) *Orchestrator {
	return &Orchestrator{store: store, journal: j, log: log}
}

// CreateOrder derives the order's client_order_id from the decision and
// returns the existing order unchanged if one with that id already exists,
// making repeated dispatch of the same decision a no-op.
func (o *Orchestrator) CreateOrder(d types.Decision, bot types.Bot, symbol string, side types.Side, qty, price, sl, tp decimal.Decimal, now time.Time) (types.Order, error) {
	clientID := ClientOrderID(d.ID, bot.BrokerAccountID, symbol, side)
	if existing, ok := o.store.FindOrderByClientID(clientID); ok {
		return existing, nil
	}

	order := types.Order{
		ID:              genOrderID(clientID),
		BotID:           bot.ID,
		BrokerAccountID: bot.BrokerAccountID,
		ClientOrderID:   clientID,
		DecisionID:      d.ID,
		Symbol:          symbol,
		Side:            side,
		Qty:             qty,
		Price:           price,
		SL:              sl,
		TP:              tp,
		Status:          types.OrderStatusNew,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := o.store.SaveOrder(order); err != nil {
		return types.Order{}, err
	}
	if o.journal != nil {
		o.journal.Log(journal.Event{Type: "order.created", BotID: bot.ID, Symbol: symbol, OrderID: order.ID, DecisionID: d.ID})
	}
	return order, nil
}

// CreateCloseOrder builds an order to flatten an existing position, keyed
// off the position rather than a decision so repeated close attempts for
// the same position also collapse to one order.
func (o *Orchestrator) CreateCloseOrder(pos types.Position, bot types.Bot, now time.Time) (types.Order, error) {
	posKey := pos.BrokerAccountID + "|" + pos.Symbol
	clientID := CloseClientOrderID(posKey, bot.BrokerAccountID, pos.Symbol)
	if existing, ok := o.store.FindOrderByClientID(clientID); ok {
		return existing, nil
	}
	side := types.SideSell
	if pos.Qty.IsNegative() {
		side = types.SideBuy
	}
	order := types.Order{
		ID:              genOrderID(clientID),
		BotID:           bot.ID,
		BrokerAccountID: bot.BrokerAccountID,
		ClientOrderID:   clientID,
		PositionID:      posKey,
		Symbol:          pos.Symbol,
		Side:            side,
		Qty:             pos.Qty.Abs(),
		Status:          types.OrderStatusNew,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := o.store.SaveOrder(order); err != nil {
		return types.Order{}, err
	}
	if o.journal != nil {
		o.journal.Log(journal.Event{Type: "order.close_created", BotID: bot.ID, Symbol: pos.Symbol, OrderID: order.ID})
	}
	return order, nil
}

// Transition moves order to newStatus if the state machine allows it, and
// persists the updated order. It is a no-op (returns the unchanged order,
// no error) if the order is already in newStatus.
func (o *Orchestrator) Transition(orderID string, newStatus types.OrderStatus, lastError string, now time.Time) (types.Order, error) {
	order, ok := o.store.GetOrder(orderID)
	if !ok {
		return types.Order{}, fmt.Errorf("order %s not found", orderID)
	}
	if order.Status == newStatus {
		return order, nil
	}
	if !CanTransition(order.Status, newStatus) {
		return order, fmt.Errorf("invalid order transition %s -> %s", order.Status, newStatus)
	}
	prevStatus := order.Status
	order.Status = newStatus
	order.LastError = lastError
	order.UpdatedAt = now
	if err := o.store.SaveOrder(order); err != nil {
		return order, err
	}
	if o.journal != nil {
		o.journal.Log(journal.Event{Type: "order.transition", BotID: order.BotID, Symbol: order.Symbol, OrderID: order.ID,
			Context: map[string]any{"from": string(prevStatus), "to": string(newStatus)}})
	}
	return order, nil
}

func genOrderID(clientID string) string {
	return "ord_" + clientID
}
