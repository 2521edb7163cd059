package monitor

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// FillRecorder is the narrow slice of portfolio.Recorder reconcile needs.
type FillRecorder interface {
	RecordFill(order types.Order, fillQty, fillPrice, fee decimal.Decimal, accountBalance decimal.Decimal, brokerTicket string, execTime time.Time) error
}

// OrderExecStore is the persistence surface ReconcileOrders needs.
type OrderExecStore interface {
	ListOrdersByStatus(status types.OrderStatus) []types.Order
	ExecutionsForOrder(orderID string) []types.Execution
}

// ReconcileResult summarizes a reconciliation sweep.
type ReconcileResult struct {
	Scanned int
	Backfilled int
	Skipped int
}

// ReconcileOrders sweeps every filled order without a matching Execution and
// optionally backfills one from the order's own recorded price, catching
// fills a broker callback was lost for. When apply is false it only counts
// what it would have done, for a dry-run report.
func ReconcileOrders(store OrderExecStore, recorder FillRecorder, apply bool, now time.Time, log *zap.Logger) ReconcileResult {
	var res ReconcileResult
	filled := store.ListOrdersByStatus(types.OrderStatusFilled)
	for _, order := range filled {
		res.Scanned++
		execs := store.ExecutionsForOrder(order.ID)
		if len(execs) > 0 {
			continue
		}
		if order.Price.IsZero() {
			res.Skipped++
			continue
		}
		if !apply {
			res.Backfilled++
			continue
		}
		if err := recorder.RecordFill(order, order.Qty, order.Price, decimal.Zero, decimal.Zero, "", now); err != nil {
			if log != nil {
				log.Error("reconcile backfill failed", zap.String("order", order.ID), zap.Error(err))
			}
			res.Skipped++
			continue
		}
		res.Backfilled++
	}
	return res
}

// StaleOrderStore is the persistence surface CancelStuckOrders needs.
type StaleOrderStore interface {
	ListOrdersByStatus(status types.OrderStatus) []types.Order
}

// OrderCanceler cancels a stuck order at the broker.
type OrderCanceler interface {
	CancelOrder(order types.Order) error
}

// CancelStuckOrders cancels any order still in "new" or "ack" status older
// than ackTimeout, since the broker never confirmed or filled it within the
// expected window.
func CancelStuckOrders(store StaleOrderStore, canceler OrderCanceler, ackTimeout time.Duration, now time.Time, log *zap.Logger) int {
	canceled := 0
	for _, status := range []types.OrderStatus{types.OrderStatusNew, types.OrderStatusAck} {
		for _, order := range store.ListOrdersByStatus(status) {
			if now.Sub(order.CreatedAt) < ackTimeout {
				continue
			}
			if err := canceler.CancelOrder(order); err != nil {
				if log != nil {
					log.Error("failed to cancel stuck order", zap.String("order", order.ID), zap.Error(err))
				}
				continue
			}
			canceled++
		}
	}
	return canceled
}
