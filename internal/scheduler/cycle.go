// Package scheduler runs one scalper cycle per active bot: fetch candles,
// plan a signal, evaluate it through the decision pipeline, and place the
// resulting order. Bots are independent of one another within a cycle, so
// the runner fans them out across a bounded worker pool instead of a serial
// loop or unbounded goroutine-per-bot fan-out.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/internal/broker"
	"github.com/atlas-desktop/scalper-engine/internal/decision"
	"github.com/atlas-desktop/scalper-engine/internal/indicators"
	"github.com/atlas-desktop/scalper-engine/internal/markethours"
	"github.com/atlas-desktop/scalper-engine/internal/monitor"
	"github.com/atlas-desktop/scalper-engine/internal/orchestrator"
	"github.com/atlas-desktop/scalper-engine/internal/portfolio"
	"github.com/atlas-desktop/scalper-engine/internal/scalper"
	"github.com/atlas-desktop/scalper-engine/internal/workers"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

const atrPeriod = 14

// MarketData supplies the candle history a cycle needs to evaluate
// strategies. Production wiring backs this with the broker connector's own
// history endpoint or a dedicated feed; tests back it with a fixture.
type MarketData interface {
	Candles(ctx context.Context, symbol string, tf types.Timeframe, lookback int) ([]types.Candle, error)
}

// Broadcaster pushes live updates to connected operator clients. Satisfied
// by *api.Hub without this package importing internal/api.
type Broadcaster interface {
	BroadcastSignalUpdate(sig *types.Signal)
	BroadcastDecisionUpdate(d *types.Decision)
	BroadcastOrderUpdate(o *types.Order)
}

// Store is the persistence surface a scalper cycle needs.
type Store interface {
	ListBots() []types.Bot
	GetBrokerAccount(id string) (types.BrokerAccount, bool)
	GetPosition(brokerAccountID, symbol string) (types.Position, bool)
	ListOpenPositions() []types.Position
	CountOrdersToday(botID, symbol string, now time.Time) int
	ListOrdersByBot(botID string) []types.Order
	ListOrdersByStatus(status types.OrderStatus) []types.Order
	SaveSignal(types.Signal) error
	SaveBot(types.Bot) error
}

// Runner evaluates every active bot's scalper cycle on each tick.
type Runner struct {
	store    Store
	market   MarketData
	brokers  *broker.Registry
	planner  *scalper.Planner
	decider  *decision.Pipeline
	orch     *orchestrator.Orchestrator
	recorder *portfolio.Recorder
	monitor  *monitor.Monitor
	hub      Broadcaster
	pool     *workers.Pool
	cfg      types.RuntimeConfig
	log      *zap.Logger
}

// Config bundles Runner's dependencies.
type Config struct {
	Store      Store
	Market     MarketData
	Brokers    *broker.Registry
	Planner    *scalper.Planner
	Decisions  *decision.Pipeline
	Orch       *orchestrator.Orchestrator
	Portfolio  *portfolio.Recorder
	Monitor    *monitor.Monitor
	Hub        Broadcaster
	RuntimeCfg types.RuntimeConfig
	// Concurrency bounds how many bot cycles run at once. Zero selects a
	// small fixed default rather than one worker per bot.
	Concurrency int
}

// NewRunner builds a Runner and its backing worker pool. The pool is left
// stopped; call Start before the first Tick.
func NewRunner(cfg Config, log *zap.Logger) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	poolCfg := workers.DefaultPoolConfig("scalper-cycle")
	poolCfg.NumWorkers = cfg.Concurrency
	return &Runner{
		store:    cfg.Store,
		market:   cfg.Market,
		brokers:  cfg.Brokers,
		planner:  cfg.Planner,
		decider:  cfg.Decisions,
		orch:     cfg.Orch,
		recorder: cfg.Portfolio,
		monitor:  cfg.Monitor,
		hub:      cfg.Hub,
		pool:     workers.NewPool(log, poolCfg),
		cfg:      cfg.RuntimeCfg,
		log:      log,
	}
}

// Start brings up the backing worker pool. Idempotent.
func (r *Runner) Start() { r.pool.Start() }

// Stop stops the backing worker pool by cancelling its context: queued
// cycles are dropped and in-flight cycles are not waited for.
func (r *Runner) Stop() error { return r.pool.Stop() }

// Tick runs one scalper cycle across every active, auto-trading bot,
// fanning each bot's cycle out to the worker pool and waiting for all of
// them to finish before returning. A single bot's failure never aborts the
// others; failures are collected and returned together.
func (r *Runner) Tick(ctx context.Context, now time.Time) []error {
	bots := r.store.ListBots()
	errCh := make(chan error, len(bots))
	submitted := 0

	for _, bot := range bots {
		if bot.Status != types.BotStatusActive || !bot.AutoTrade {
			continue
		}
		bot := bot
		submitted++
		err := r.pool.SubmitFunc(func() error {
			cycleErr := r.runBotCycle(ctx, bot, now)
			errCh <- cycleErr
			return cycleErr
		})
		if err != nil {
			errCh <- fmt.Errorf("bot %s: %w", bot.ID, err)
		}
	}

	var errs []error
	for i := 0; i < submitted; i++ {
		if err := <-errCh; err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// runBotCycle fetches candles, plans a signal, and-if one is produced-
// pushes it through the decision pipeline and, for an open decision,
// places the resulting order with the bot's broker.
func (r *Runner) runBotCycle(ctx context.Context, bot types.Bot, now time.Time) error {
	symbol := bot.Asset.Symbol
	tf := bot.DefaultTimeframe

	candles, err := r.market.Candles(ctx, symbol, tf, 200)
	if err != nil {
		return fmt.Errorf("candles for %s: %w", symbol, err)
	}
	if len(candles) == 0 {
		return nil
	}

	engineCtx := types.EngineContext{Symbol: symbol, Timeframe: tf}

	sig := r.planner.Plan(bot, candles, engineCtx, now)
	if sig == nil {
		return nil
	}
	if err := r.store.SaveSignal(*sig); err != nil {
		r.log.Warn("signal persist failed", zap.String("bot", bot.ID), zap.Error(err))
	}
	if r.hub != nil {
		r.hub.BroadcastSignalUpdate(sig)
	}

	scalperCfg := buildScalperConfig(bot)
	riskCtx := r.buildRiskContext(bot, *sig, now)

	d := r.decider.Evaluate(*sig, scalperCfg, riskCtx, now)
	if r.hub != nil {
		r.hub.BroadcastDecisionUpdate(&d)
	}
	if d.Action != types.ActionOpen {
		return nil
	}

	return r.placeFromDecision(ctx, bot, *sig, d, now)
}

func (r *Runner) placeFromDecision(ctx context.Context, bot types.Bot, sig types.Signal, d types.Decision, now time.Time) error {
	account, ok := r.store.GetBrokerAccount(bot.BrokerAccountID)
	if !ok {
		return fmt.Errorf("bot %s references unknown broker account", bot.ID)
	}
	conn, err := r.brokers.Resolve(account.BrokerCode)
	if err != nil {
		return err
	}

	qty := bot.DefaultQty
	if d.Params.Qty != nil {
		qty = *d.Params.Qty
	}
	var sl, tp decimal.Decimal
	if d.Params.SL != nil {
		sl = *d.Params.SL
	}
	if d.Params.TP != nil {
		tp = *d.Params.TP
	}

	order, err := r.orch.CreateOrder(d, bot, sig.Symbol, sig.Direction, qty, decimal.Zero, sl, tp, now)
	if err != nil {
		return err
	}

	return r.dispatchOrder(ctx, account, conn, order, now)
}

// dispatchOrder places an already-created order with its broker, transitions
// it to the resulting status, records a fill, and broadcasts the update. Used
// both for orders this runner just created and for orders created elsewhere
// (monitor.Monitor's kill-switch/early-exit closes) that are still waiting to
// be sent to the broker.
func (r *Runner) dispatchOrder(ctx context.Context, account types.BrokerAccount, conn broker.Connector, order types.Order, now time.Time) error {
	result, err := conn.PlaceOrder(ctx, account, order)
	if err != nil {
		return err
	}
	updated, err := r.orch.Transition(order.ID, result.Status, result.Error, now)
	if err != nil {
		return err
	}
	if r.hub != nil {
		r.hub.BroadcastOrderUpdate(&updated)
	}
	if result.Status == types.OrderStatusFilled && r.recorder != nil {
		equity, _ := conn.AccountEquity(ctx, account)
		if err := r.recorder.RecordFill(updated, result.FilledQty, result.FilledPrice, decimal.Zero, equity, result.BrokerTicket, now); err != nil {
			r.log.Warn("fill recording failed", zap.String("order", updated.ID), zap.Error(err))
		}
	}
	return nil
}

// DispatchPendingOrders sends every order still sitting in OrderStatusNew to
// its broker. Orders reach this state either moments before placeFromDecision
// dispatches them itself, or from monitor.Monitor's closePosition, which only
// persists a close order through the orchestrator and leaves actually sending
// it to the broker to the next scheduled sweep.
func (r *Runner) DispatchPendingOrders(ctx context.Context, now time.Time) []error {
	pending := r.store.ListOrdersByStatus(types.OrderStatusNew)
	var errs []error
	for _, order := range pending {
		account, ok := r.store.GetBrokerAccount(order.BrokerAccountID)
		if !ok {
			errs = append(errs, fmt.Errorf("order %s references unknown broker account %s", order.ID, order.BrokerAccountID))
			continue
		}
		conn, err := r.brokers.Resolve(account.BrokerCode)
		if err != nil {
			errs = append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if err := r.dispatchOrder(ctx, account, conn, order, now); err != nil {
			errs = append(errs, fmt.Errorf("order %s: %w", order.ID, err))
		}
	}
	return errs
}

// MonitorTick runs the per-position policy step (kill-switch, early exit,
// trailing stop) over every open position, resolving each position's owning
// bot, last traded price, and ATR from the same candle history the scalper
// cycle itself consults. A kill-switch or early-exit verdict only persists a
// close order through the orchestrator; DispatchPendingOrders is what
// actually sends it to the broker on the next sweep.
func (r *Runner) MonitorTick(ctx context.Context, now time.Time) []error {
	if r.monitor == nil {
		return nil
	}
	var errs []error
	bots := r.store.ListBots()
	for _, pos := range r.store.ListOpenPositions() {
		bot, ok := findBotForPosition(bots, pos)
		if !ok {
			errs = append(errs, fmt.Errorf("position %s/%s has no owning bot", pos.BrokerAccountID, pos.Symbol))
			continue
		}
		tf := bot.DefaultTimeframe
		candles, err := r.market.Candles(ctx, pos.Symbol, tf, atrPeriod+1)
		if err != nil || len(candles) == 0 {
			continue
		}
		lastPrice := candles[len(candles)-1].Close
		atr := indicators.ATR(candles, atrPeriod)

		engineOpposite := false
		if sig := r.planner.Plan(bot, candles, types.EngineContext{Symbol: pos.Symbol, Timeframe: tf}, now); sig != nil {
			engineOpposite = sig.Direction != pos.Side()
		}

		r.monitor.EvaluatePosition(pos, bot, lastPrice, atr, engineOpposite, now)
	}
	return errs
}

// MarketGuardTick pauses or un-pauses every bot in response to its symbol's
// market-hours status, so a bot configured against an FX/CFD symbol sits
// paused over the weekend instead of spending the scheduled cycle folding
// that same check into every bot's own decision pipeline. A broker probe is
// intentionally not wired in here: GetStatus falls back to the weekly
// calendar when probe is nil, which is sufficient for the weekend gate this
// sweep exists for.
func (r *Runner) MarketGuardTick(now time.Time) []error {
	var errs []error
	for _, bot := range r.store.ListBots() {
		status := markethours.GetStatus(bot.Asset.Symbol, now, nil)
		if !monitor.ApplyMarketGuard(&bot, status, now) {
			continue
		}
		if err := r.store.SaveBot(bot); err != nil {
			errs = append(errs, fmt.Errorf("bot %s: %w", bot.ID, err))
		}
	}
	return errs
}

// findBotForPosition resolves the bot trading a position's broker
// account/symbol pair. Position carries no bot id of its own, since a
// position belongs to a broker account, not a bot, until matched this way.
func findBotForPosition(bots []types.Bot, pos types.Position) (types.Bot, bool) {
	for _, bot := range bots {
		if bot.BrokerAccountID == pos.BrokerAccountID && bot.Asset.Symbol == pos.Symbol {
			return bot, true
		}
	}
	return types.Bot{}, false
}

// buildScalperConfig derives a single-symbol ScalperConfig from a bot's own
// risk fields as stored; no named trading profile is applied on this path.
func buildScalperConfig(bot types.Bot) types.ScalperConfig {
	symbol := bot.Asset.Symbol
	return types.ScalperConfig{
		Risk: types.RiskEnvelope{
			MaxConcurrentPositions: bot.MaxConcurrentPositions,
			MaxPositionsPerSymbol:  bot.MaxConcurrentPositions,
			MaxTradesPerDayTotal:   bot.MaxTradesPerDay,
		},
		Symbols: map[string]types.SymbolConfig{
			symbol: {
				Symbol:          symbol,
				Enabled:         true,
				MaxTradesPerDay: bot.MaxTradesPerDay,
				Reentry: types.ReentryRules{
					AllowScaleIn:      bot.AllowOppositeScalp,
					AllowCountertrend: bot.AllowOppositeScalp,
				},
			},
		},
	}
}

func (r *Runner) buildRiskContext(bot types.Bot, sig types.Signal, now time.Time) scalper.RiskContext {
	symbol := sig.Symbol
	openSymbol := 0
	openTotal := 0
	for _, pos := range r.store.ListOpenPositions() {
		if pos.BrokerAccountID != bot.BrokerAccountID {
			continue
		}
		openTotal++
		if pos.Symbol == symbol {
			openSymbol++
		}
	}
	return scalper.RiskContext{
		Symbol:              symbol,
		Direction:           sig.Direction,
		TradesTodaySymbol:   r.store.CountOrdersToday(bot.ID, symbol, now),
		TradesTodayTotal:    r.store.CountOrdersToday(bot.ID, "", now),
		OpenPositionsSymbol: openSymbol,
		OpenPositionsTotal:  openTotal,
		Now:                 now,
	}
}
