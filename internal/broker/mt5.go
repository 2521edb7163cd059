package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// MT5Client is the narrow seam MT5Connector talks to: a terminal session
// capable of sending and closing orders and reading symbol/tick state. The
// method names mirror the MetaRPC MT5 SDK's OrderSend/PositionClose/
// SymbolInfoTick shapes so a real gRPC-backed implementation can satisfy
// this interface without the connector itself depending on generated
// protobuf stubs this module does not vendor.
type MT5Client interface {
	Login(ctx context.Context, login string, password string, server string) error
	AccountEquity(ctx context.Context) (decimal.Decimal, error)
	SymbolInfo(ctx context.Context, symbol string) (SymbolInfo, error)
	SymbolTick(ctx context.Context, symbol string) (Tick, error)
	OrderSend(ctx context.Context, req OrderRequest) (OrderResult, error)
	PositionClose(ctx context.Context, ticket string, qty decimal.Decimal) (OrderResult, error)
	OpenPositions(ctx context.Context, symbol string) ([]BrokerPosition, error)
}

// SymbolInfo is the subset of MT5 symbol metadata the connector validates
// orders against.
type SymbolInfo struct {
	Visible      bool
	TradeAllowed bool
	VolumeMin    decimal.Decimal
	VolumeStep   decimal.Decimal
	ContractSize decimal.Decimal
	StopsLevel   decimal.Decimal // minimum distance, in points, between price and SL/TP
}

// Tick is a bid/ask snapshot.
type Tick struct {
	Bid  decimal.Decimal
	Ask  decimal.Decimal
	Time time.Time
}

// Spread returns ask-bid.
func (t Tick) Spread() decimal.Decimal { return t.Ask.Sub(t.Bid) }

// OrderRequest is what MT5Connector sends to the terminal.
type OrderRequest struct {
	Symbol string
	Side   types.Side
	Qty    decimal.Decimal
	SL     decimal.Decimal
	TP     decimal.Decimal
	Ticket string // set for close requests against an existing position
}

// OrderResult is the terminal's response to an OrderRequest.
type OrderResult struct {
	Ticket      string
	Retcode     int
	FilledQty   decimal.Decimal
	FilledPrice decimal.Decimal
}

// BrokerPosition is a position as reported by the terminal.
type BrokerPosition struct {
	Ticket string
	Symbol string
	Qty    decimal.Decimal
	Side   types.Side
}

// retcode constants mirror MT5's trade server return codes closely enough
// for the mapping this connector needs; the full enum lives at the
// terminal/gateway boundary, not here.
const (
	RetcodeDone          = 10009
	RetcodeRequoted      = 10004
	RetcodeInvalidStops  = 10016
	RetcodeNoMoney       = 10019
	RetcodeMarketClosed  = 10018
	RetcodeInvalidVolume = 10014
)

func mapRetcode(code int) string {
	switch code {
	case RetcodeDone:
		return ""
	case RetcodeRequoted:
		return "requote: price moved before fill"
	case RetcodeInvalidStops:
		return "invalid stops: SL/TP violates broker stop level"
	case RetcodeNoMoney:
		return "insufficient margin"
	case RetcodeMarketClosed:
		return "market closed"
	case RetcodeInvalidVolume:
		return "invalid volume"
	default:
		return fmt.Sprintf("broker rejected order, retcode=%d", code)
	}
}

// circuitState is one (login, server) pair's failure-tracking state.
type circuitState struct {
	failures   int
	openedAt   time.Time
}

const circuitFailureThreshold = 3
const circuitCooldown = 300 * time.Second

// MT5Connector wraps a single MT5Client session behind account-keyed
// locking, broker-side validation, and a per-(login,server) circuit
// breaker. A single process-wide session is shared across all accounts
// that log into the same (login, server) pair, matching the one-session-
// per-terminal constraint of the native MT5 API.
type MT5Connector struct {
	mu      sync.Mutex
	client  MT5Client
	log     *zap.Logger
	runtime types.RuntimeConfig

	accountLocks map[string]*sync.Mutex
	circuits     map[string]*circuitState
	loggedIn     map[string]bool
	hedgingAllowed map[string]bool
}

// NewMT5Connector builds an MT5Connector around a client implementation.
func NewMT5Connector(client MT5Client, runtime types.RuntimeConfig, log *zap.Logger) *MT5Connector {
	return &MT5Connector{
		client:         client,
		log:            log,
		runtime:        runtime,
		accountLocks:   make(map[string]*sync.Mutex),
		circuits:       make(map[string]*circuitState),
		loggedIn:       make(map[string]bool),
		hedgingAllowed: make(map[string]bool),
	}
}

// Code implements Connector.
func (c *MT5Connector) Code() string { return "mt5" }

func accountKey(account types.BrokerAccount) string {
	return account.Credentials["login"] + "@" + account.Credentials["server"]
}

func (c *MT5Connector) lockFor(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.accountLocks[key]
	if !ok {
		l = &sync.Mutex{}
		c.accountLocks[key] = l
	}
	return l
}

func (c *MT5Connector) circuitOpen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, ok := c.circuits[key]
	if !ok {
		return false
	}
	if cs.failures < circuitFailureThreshold {
		return false
	}
	if time.Since(cs.openedAt) > circuitCooldown {
		cs.failures = 0
		return false
	}
	return true
}

func (c *MT5Connector) recordFailure(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, ok := c.circuits[key]
	if !ok {
		cs = &circuitState{}
		c.circuits[key] = cs
	}
	cs.failures++
	if cs.failures == circuitFailureThreshold {
		cs.openedAt = time.Now()
	}
}

func (c *MT5Connector) resetFailure(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.circuits, key)
}

func (c *MT5Connector) ensureLogin(ctx context.Context, account types.BrokerAccount) error {
	key := accountKey(account)
	if c.circuitOpen(key) {
		return fmt.Errorf("mt5 circuit open for %s: too many recent failures", key)
	}
	c.mu.Lock()
	already := c.loggedIn[key]
	c.mu.Unlock()
	if already {
		return nil
	}
	if err := c.client.Login(ctx, account.Credentials["login"], account.Credentials["password"], account.Credentials["server"]); err != nil {
		c.recordFailure(key)
		return fmt.Errorf("mt5 login failed: %w", err)
	}
	c.mu.Lock()
	c.loggedIn[key] = true
	c.mu.Unlock()
	c.resetFailure(key)
	return nil
}

// PlaceOrder adjusts the order to broker symbol constraints before sending
// it: qty is raised to the min lot, rounded up to the volume step and capped
// at MaxOrderLot, an opening order's notional (contract-size scaled) is
// checked against MaxOrderNotional, and SL/TP are widened to the stop level. Spread is not
// checked. It also enforces the hedging guard: a new
// position opposing an existing one is rejected unless hedging is enabled
// for the account.
func (c *MT5Connector) PlaceOrder(ctx context.Context, account types.BrokerAccount, order types.Order) (PlaceResult, error) {
	key := accountKey(account)
	lock := c.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	if err := c.ensureLogin(ctx, account); err != nil {
		return PlaceResult{}, err
	}

	info, err := c.client.SymbolInfo(ctx, order.Symbol)
	if err != nil {
		c.recordFailure(key)
		return PlaceResult{}, fmt.Errorf("symbol info lookup failed: %w", err)
	}
	if !info.Visible || !info.TradeAllowed {
		return PlaceResult{}, fmt.Errorf("symbol %s not tradable at broker", order.Symbol)
	}

	if !order.IsCloseOrder() {
		if err := c.checkHedging(ctx, account, order); err != nil {
			return PlaceResult{}, err
		}
	}

	qty := order.Qty
	if info.VolumeMin.GreaterThan(decimal.Zero) && qty.LessThan(info.VolumeMin) {
		qty = info.VolumeMin
	}
	if info.VolumeStep.GreaterThan(decimal.Zero) {
		steps := qty.Div(info.VolumeStep).Ceil()
		qty = steps.Mul(info.VolumeStep)
	}
	maxLot := c.runtime.MaxOrderLot
	if maxLot.GreaterThan(decimal.Zero) && info.VolumeMin.GreaterThan(maxLot) {
		maxLot = info.VolumeMin // broker minimum always wins over a misconfigured cap
	}
	if maxLot.GreaterThan(decimal.Zero) && qty.GreaterThan(maxLot) {
		qty = maxLot
	}

	if !order.IsCloseOrder() {
		tick, err := c.client.SymbolTick(ctx, order.Symbol)
		if err != nil {
			c.recordFailure(key)
			return PlaceResult{}, fmt.Errorf("tick lookup failed: %w", err)
		}
		contractSize := info.ContractSize
		if contractSize.IsZero() {
			contractSize = c.runtime.MT5DefaultContractSize
		}
		scale := decimal.NewFromInt(1)
		ratio := contractSize
		if contractSize.GreaterThan(decimal.Zero) && contractSize.LessThan(decimal.NewFromInt(10)) {
			if ratio.GreaterThan(decimal.Zero) {
				candidateScale := decimal.NewFromInt(1).Div(contractSize)
				if candidateScale.LessThanOrEqual(decimal.NewFromInt(1000)) {
					scale = candidateScale
				}
			}
		}
		notional := qty.Mul(tick.Ask).Mul(contractSize)
		effectiveNotional := notional.Mul(scale)
		if c.runtime.MaxOrderNotional.GreaterThan(decimal.Zero) && effectiveNotional.GreaterThan(c.runtime.MaxOrderNotional) {
			return PlaceResult{}, fmt.Errorf("order notional %s exceeds max_order_notional", effectiveNotional.String())
		}
	}

	sl, tp := order.SL, order.TP
	if info.StopsLevel.GreaterThan(decimal.Zero) {
		sl, tp = widenStops(order.Side, order.Price, sl, tp, info.StopsLevel)
	}

	req := OrderRequest{Symbol: order.Symbol, Side: order.Side, Qty: qty, SL: sl, TP: tp}
	if order.IsCloseOrder() && order.PositionID != "" {
		req.Ticket = order.PositionID
	}

	res, err := c.sendWithRetry(ctx, req)
	if err != nil {
		c.recordFailure(key)
		return PlaceResult{}, err
	}
	c.resetFailure(key)

	if res.Retcode != RetcodeDone {
		return PlaceResult{BrokerTicket: res.Ticket, Status: types.OrderStatusError, Error: mapRetcode(res.Retcode)}, nil
	}
	return PlaceResult{
		BrokerTicket: res.Ticket,
		Status:       types.OrderStatusFilled,
		FilledQty:    res.FilledQty,
		FilledPrice:  res.FilledPrice,
	}, nil
}

// sendWithRetry retries a send once after a transient IPC-style failure,
// mirroring the single-retry-after-reselect pattern used for stale terminal
// sessions.
func (c *MT5Connector) sendWithRetry(ctx context.Context, req OrderRequest) (OrderResult, error) {
	res, err := c.client.OrderSend(ctx, req)
	if err == nil {
		return res, nil
	}
	res, err2 := c.client.OrderSend(ctx, req)
	if err2 != nil {
		return OrderResult{}, fmt.Errorf("order send failed after retry: %w", err2)
	}
	return res, nil
}

func (c *MT5Connector) checkHedging(ctx context.Context, account types.BrokerAccount, order types.Order) error {
	c.mu.Lock()
	allowed := c.hedgingAllowed[accountKey(account)]
	c.mu.Unlock()
	if allowed {
		return nil
	}
	positions, err := c.client.OpenPositions(ctx, order.Symbol)
	if err != nil {
		return nil // a probe failure should not block an otherwise-valid order
	}
	for _, p := range positions {
		if p.Side != order.Side && !p.Qty.IsZero() {
			return fmt.Errorf("opposing position already open on %s and hedging is disabled", order.Symbol)
		}
	}
	return nil
}

// widenStops pushes SL/TP out to the broker's minimum stop distance when
// the requested levels are tighter than the symbol's StopsLevel allows.
func widenStops(side types.Side, price, sl, tp, stopsLevel decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if price.IsZero() {
		return sl, tp
	}
	if !sl.IsZero() {
		dist := price.Sub(sl).Abs()
		if dist.LessThan(stopsLevel) {
			if side == types.SideBuy {
				sl = price.Sub(stopsLevel)
			} else {
				sl = price.Add(stopsLevel)
			}
		}
	}
	if !tp.IsZero() {
		dist := tp.Sub(price).Abs()
		if dist.LessThan(stopsLevel) {
			if side == types.SideBuy {
				tp = price.Add(stopsLevel)
			} else {
				tp = price.Sub(stopsLevel)
			}
		}
	}
	return sl, tp
}

// CancelOrder closes out a resting order by ticket.
func (c *MT5Connector) CancelOrder(ctx context.Context, account types.BrokerAccount, order types.Order) error {
	lock := c.lockFor(accountKey(account))
	lock.Lock()
	defer lock.Unlock()
	if err := c.ensureLogin(ctx, account); err != nil {
		return err
	}
	_, err := c.client.PositionClose(ctx, order.PositionID, order.Qty)
	return err
}

// AccountEquity returns the account's live equity from the terminal.
func (c *MT5Connector) AccountEquity(ctx context.Context, account types.BrokerAccount) (decimal.Decimal, error) {
	if err := c.ensureLogin(ctx, account); err != nil {
		return decimal.Zero, err
	}
	return c.client.AccountEquity(ctx)
}

// ProbeSymbol reports visibility/tradability and tick staleness for
// internal/broker.Connector callers that already carry a ctx and account.
func (c *MT5Connector) ProbeSymbol(ctx context.Context, account types.BrokerAccount, symbol string) (bool, bool, time.Duration, error) {
	if err := c.ensureLogin(ctx, account); err != nil {
		return false, false, 0, err
	}
	info, err := c.client.SymbolInfo(ctx, symbol)
	if err != nil {
		return false, false, 0, err
	}
	tick, err := c.client.SymbolTick(ctx, symbol)
	if err != nil {
		return info.Visible, info.TradeAllowed, 0, err
	}
	return info.Visible, info.TradeAllowed, time.Since(tick.Time), nil
}

// Tick fetches the current bid/ask for symbol under account, logging in
// first if needed. Used by the market data aggregator's poll loop to build
// candles from live prices.
func (c *MT5Connector) Tick(ctx context.Context, account types.BrokerAccount, symbol string) (Tick, error) {
	if err := c.ensureLogin(ctx, account); err != nil {
		return Tick{}, err
	}
	return c.client.SymbolTick(ctx, symbol)
}

// ForAccount binds account and a background context to this connector,
// returning a markethours.BrokerProbe (no ctx/account in its signature) for
// wiring into markethours.GetStatus. internal/broker.Connector needs ctx and
// multi-account routing per call; markethours only ever probes one symbol
// for one already-known account at a time, so the adapter captures both and
// narrows the call down to just the symbol.
func (c *MT5Connector) ForAccount(account types.BrokerAccount) *boundProbe {
	return &boundProbe{connector: c, account: account}
}

// boundProbe adapts MT5Connector.ProbeSymbol to markethours.BrokerProbe for
// one fixed account.
type boundProbe struct {
	connector *MT5Connector
	account   types.BrokerAccount
}

// ProbeSymbol implements markethours.BrokerProbe.
func (b *boundProbe) ProbeSymbol(symbol string) (bool, bool, time.Duration, error) {
	return b.connector.ProbeSymbol(context.Background(), b.account, symbol)
}

// Tick implements marketdata.TickSource for this fixed account.
func (b *boundProbe) Tick(ctx context.Context, symbol string) (Tick, error) {
	return b.connector.Tick(ctx, b.account, symbol)
}
