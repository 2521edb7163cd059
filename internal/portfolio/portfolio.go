// Package portfolio records broker fills against positions: weighted-average
// entry price math, realized PnL attribution on reducing fills, and trade
// log classification.
package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
	"github.com/atlas-desktop/scalper-engine/pkg/utils"
)

// Store is the minimal persistence surface Recorder needs; internal/store
// implements it.
type Store interface {
	GetPosition(brokerAccountID, symbol string) (types.Position, bool)
	SavePosition(types.Position) error
	SaveExecution(types.Execution) error
	SaveTradeLog(types.TradeLog) error
	FindExecution(orderID string, qty, price decimal.Decimal, execTime time.Time) (types.Execution, bool)
	FindExecutionByTicket(orderID, brokerTicket string) (types.Execution, bool)
}

// Recorder applies fills to positions and classifies realized outcomes.
type Recorder struct {
	store Store
	log   *zap.Logger
}

// NewRecorder builds a Recorder.
func NewRecorder(store Store, log *zap.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// RecordFill applies a single broker fill to the order's position, updating
// the weighted-average entry price on same-direction fills, attributing
// realized PnL on reducing/flipping fills, and appending a TradeLog row. It
// is idempotent: a fill already recorded under (order_id, broker_ticket) or
// (order_id, qty, price, exec_time) is skipped.
func (r *Recorder) RecordFill(order types.Order, fillQty, fillPrice, fee decimal.Decimal, accountBalance decimal.Decimal, brokerTicket string, execTime time.Time) error {
	if brokerTicket != "" {
		if _, exists := r.store.FindExecutionByTicket(order.ID, brokerTicket); exists {
			return nil
		}
	} else if _, exists := r.store.FindExecution(order.ID, fillQty, fillPrice, execTime); exists {
		return nil
	}

	exec := types.Execution{
		ID:             utils.GenerateExecutionID(),
		OrderID:        order.ID,
		BrokerTicket:   brokerTicket,
		Qty:            fillQty,
		Price:          fillPrice,
		Fee:            fee,
		AccountBalance: accountBalance,
		ExecTime:       execTime,
	}
	if err := r.store.SaveExecution(exec); err != nil {
		return err
	}

	signedFill := fillQty
	if order.Side == types.SideSell {
		signedFill = fillQty.Neg()
	}

	pos, existed := r.store.GetPosition(order.BrokerAccountID, order.Symbol)
	if !existed {
		pos = types.Position{
			BrokerAccountID: order.BrokerAccountID,
			Symbol:          order.Symbol,
			Status:          types.PositionStatusOpen,
		}
	}

	realizedPnL := decimal.Zero
	sameDirection := pos.Qty.IsZero() || (pos.Qty.IsPositive() == signedFill.IsPositive())

	if sameDirection {
		newQty := pos.Qty.Add(signedFill)
		if !newQty.IsZero() {
			totalCost := pos.AvgPrice.Mul(pos.Qty.Abs()).Add(fillPrice.Mul(fillQty))
			pos.AvgPrice = totalCost.Div(newQty.Abs())
		}
		pos.Qty = newQty
	} else {
		reducing := fillQty
		if fillQty.GreaterThan(pos.Qty.Abs()) {
			reducing = pos.Qty.Abs()
		}
		if pos.Qty.IsPositive() {
			realizedPnL = fillPrice.Sub(pos.AvgPrice).Mul(reducing)
		} else {
			realizedPnL = pos.AvgPrice.Sub(fillPrice).Mul(reducing)
		}

		newQty := pos.Qty.Add(signedFill)
		if fillQty.GreaterThan(pos.Qty.Abs()) {
			// flip: the remainder of the fill opens a new position in the
			// opposite direction at this fill's price.
			pos.AvgPrice = fillPrice
		}
		pos.Qty = newQty
	}

	if pos.Qty.IsZero() {
		pos.Status = types.PositionStatusClosed
	} else {
		pos.Status = types.PositionStatusOpen
	}
	pos.UpdatedAt = execTime
	if err := r.store.SavePosition(pos); err != nil {
		return err
	}

	if !sameDirection {
		status := types.TradeLogBreakeven
		if realizedPnL.GreaterThan(decimal.Zero) {
			status = types.TradeLogWin
		} else if realizedPnL.LessThan(decimal.Zero) {
			status = types.TradeLogLoss
		}
		tl := types.TradeLog{
			ID:        utils.GenerateID("tlg"),
			OrderID:   order.ID,
			BotID:     order.BotID,
			Status:    string(status),
			PnL:       realizedPnL,
			HasPnL:    true,
			CreatedAt: execTime,
		}
		if err := r.store.SaveTradeLog(tl); err != nil {
			return err
		}
	} else {
		tl := types.TradeLog{
			ID:        utils.GenerateID("tlg"),
			OrderID:   order.ID,
			BotID:     order.BotID,
			Status:    string(order.Status),
			CreatedAt: execTime,
		}
		if err := r.store.SaveTradeLog(tl); err != nil {
			return err
		}
	}

	if r.log != nil {
		r.log.Info("fill recorded",
			zap.String("order", order.ID), zap.String("symbol", order.Symbol),
			zap.String("qty", fillQty.String()), zap.String("price", fillPrice.String()),
			zap.String("realizedPnl", realizedPnL.String()))
	}
	return nil
}
