// Package types provides shared domain type definitions for the trading engine.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side represents buy or sell.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// AssetCategory classifies a tradable instrument.
type AssetCategory string

const (
	CategoryForex      AssetCategory = "forex"
	CategoryCrypto     AssetCategory = "crypto"
	CategoryIndices    AssetCategory = "indices"
	CategoryCommodities AssetCategory = "commodities"
)

// Timeframe is a candle interval tag.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

// Seconds returns the timeframe's duration in seconds, or 0 if unknown.
func (t Timeframe) Seconds() int64 {
	switch t {
	case Timeframe1m:
		return 60
	case Timeframe5m:
		return 300
	case Timeframe15m:
		return 900
	case Timeframe30m:
		return 1800
	case Timeframe1h:
		return 3600
	case Timeframe4h:
		return 14400
	case Timeframe1d:
		return 86400
	default:
		return 0
	}
}

// Candle is an OHLCV bar. TickVolume is the broker's tick-count proxy for volume.
type Candle struct {
	Time       time.Time       `json:"time"`
	Open       decimal.Decimal `json:"open"`
	High       decimal.Decimal `json:"high"`
	Low        decimal.Decimal `json:"low"`
	Close      decimal.Decimal `json:"close"`
	TickVolume decimal.Decimal `json:"tickVolume"`
}

// Range returns high-low for the candle.
func (c Candle) Range() decimal.Decimal {
	return c.High.Sub(c.Low)
}

// Body returns the absolute open/close distance.
func (c Candle) Body() decimal.Decimal {
	return c.Close.Sub(c.Open).Abs()
}

// IsBullish reports whether close > open.
func (c Candle) IsBullish() bool {
	return c.Close.GreaterThan(c.Open)
}

// UpperWick returns the wick above the body.
func (c Candle) UpperWick() decimal.Decimal {
	top := c.Open
	if c.Close.GreaterThan(top) {
		top = c.Close
	}
	return c.High.Sub(top)
}

// LowerWick returns the wick below the body.
func (c Candle) LowerWick() decimal.Decimal {
	bottom := c.Open
	if c.Close.LessThan(bottom) {
		bottom = c.Close
	}
	return bottom.Sub(c.Low)
}

// Asset is a tradable instrument definition. Immutable per trading session.
type Asset struct {
	Symbol         string          `json:"symbol"`
	Category       AssetCategory   `json:"category"`
	MinQty         decimal.Decimal `json:"minQty"`
	RecommendedQty decimal.Decimal `json:"recommendedQty"`
	MaxSpread      decimal.Decimal `json:"maxSpread"`
	MinNotional    decimal.Decimal `json:"minNotional"`
	IsActive       bool            `json:"isActive"`
}

// BrokerAccount is a credential set bound to a broker connector.
type BrokerAccount struct {
	ID            string          `json:"id"`
	Owner         string          `json:"owner"`
	BrokerCode    string          `json:"brokerCode"`
	AccountRef    string          `json:"accountRef"`
	Credentials   map[string]string `json:"-"`
	BaseCurrency  string          `json:"baseCurrency"`
	Leverage      decimal.Decimal `json:"leverage"`
	IsActive      bool            `json:"isActive"`
	IsVerified    bool            `json:"isVerified"`
}

// BotStatus is the bot lifecycle state.
type BotStatus string

const (
	BotStatusActive  BotStatus = "active"
	BotStatusPaused  BotStatus = "paused"
	BotStatusStopped BotStatus = "stopped"
)

// EngineMode selects which decision path produces signals for a bot.
type EngineMode string

const (
	EngineModeExternal EngineMode = "external"
	EngineModeHarami    EngineMode = "harami"
	EngineModeScalper  EngineMode = "scalper"
)

// TradingWindow is an allowed weekday/time-of-day schedule.
type TradingWindow struct {
	Enabled     bool       `json:"enabled"`
	AllowedDays []string   `json:"allowedDays"` // lowercase: mon, tue, ...
	Start       time.Time  `json:"-"`           // time-of-day only fields below are used instead
	StartHour   int        `json:"startHour"`
	StartMinute int        `json:"startMinute"`
	EndHour     int        `json:"endHour"`
	EndMinute   int        `json:"endMinute"`
}

// PsychologyState is the mutable loss-streak/pause bookkeeping carried on a Bot.
type PsychologyState struct {
	CurrentLossStreak        int             `json:"currentLossStreak"`
	MaxLossStreakBeforePause int             `json:"maxLossStreakBeforePause"`
	LossStreakCooldownMin    int             `json:"lossStreakCooldownMin"`
	SoftDrawdownLimitPct     decimal.Decimal `json:"softDrawdownLimitPct"`
	HardDrawdownLimitPct     decimal.Decimal `json:"hardDrawdownLimitPct"`
	SoftSizeMultiplier       decimal.Decimal `json:"softSizeMultiplier"`
	HardSizeMultiplier       decimal.Decimal `json:"hardSizeMultiplier"`
}

// KillSwitchState is the per-bot kill-switch threshold.
type KillSwitchState struct {
	MaxUnrealizedPct decimal.Decimal `json:"maxUnrealizedPct"`
}

// AllocationState is the capital-allocation cycle bookkeeping carried on a Bot.
type AllocationState struct {
	Amount          decimal.Decimal `json:"amount"`
	ProfitPct       decimal.Decimal `json:"profitPct"`
	LossPct         decimal.Decimal `json:"lossPct"`
	StartPnL        decimal.Decimal `json:"startPnl"`
	StartedAt       time.Time       `json:"startedAt"`
	GuardTripped    bool            `json:"guardTripped"`
}

// MarketGuardState records the reversible auto-pause flag for market-hours closures.
type MarketGuardState struct {
	Was BotStatus `json:"was,omitempty"`
}

// ScalperParams is the bot-local free-form scalper bookkeeping: cached HTF bias,
// the market-guard reversible flag, the allocation guard idempotency flag, and
// the last flip_close timestamp used for the flip cooldown gate.
type ScalperParams struct {
	LastHTFBias      string           `json:"lastHtfBias,omitempty"`
	LastHTFBiasAt    time.Time        `json:"lastHtfBiasAt,omitempty"`
	MarketGuard      MarketGuardState `json:"marketGuard,omitempty"`
	AllocationGuard  bool             `json:"allocationGuard,omitempty"`
	LastFlipAt       time.Time        `json:"lastFlipAt,omitempty"`
}

// Bot is an owner's configured trading automation against one asset/broker account.
type Bot struct {
	ID                    string          `json:"id"`
	Owner                 string          `json:"owner"`
	Name                  string          `json:"name"`
	Asset                 Asset           `json:"asset"`
	BrokerAccountID       string          `json:"brokerAccountId"`
	Status                BotStatus       `json:"status"`
	AutoTrade             bool            `json:"autoTrade"`
	EngineMode            EngineMode      `json:"engineMode"`
	DefaultTimeframe      Timeframe       `json:"defaultTimeframe"`
	DefaultQty            decimal.Decimal `json:"defaultQty"`
	AllowedTimeframes     []Timeframe     `json:"allowedTimeframes"`
	EnabledStrategies     []string        `json:"enabledStrategies"`
	DecisionMinScore      decimal.Decimal `json:"decisionMinScore"`
	MaxConcurrentPositions int            `json:"maxConcurrentPositions"`
	MaxTradesPerDay       int             `json:"maxTradesPerDay"`
	TradeIntervalMinutes  int             `json:"tradeIntervalMinutes"`
	TradingProfile        string          `json:"tradingProfile"`
	TradingWindow         TradingWindow   `json:"tradingWindow"`
	Psychology            PsychologyState `json:"psychology"`
	KillSwitch            KillSwitchState `json:"killSwitch"`
	Allocation            AllocationState `json:"allocation"`
	ScalperParams         ScalperParams   `json:"scalperParams"`
	AllowOppositeScalp    bool            `json:"allowOppositeScalp"`
	PausedUntil           time.Time       `json:"pausedUntil"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// IsPaused reports whether the bot's pause window is still in effect.
func (b *Bot) IsPaused(now time.Time) bool {
	return !b.PausedUntil.IsZero() && b.PausedUntil.After(now)
}

// Signal is an immutable ingestion event: an internal strategy tick or an external alert.
type Signal struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	BotID      string         `json:"botId,omitempty"`
	Symbol     string         `json:"symbol"`
	Timeframe  Timeframe      `json:"timeframe"`
	Direction  Side           `json:"direction"`
	Payload    map[string]any `json:"payload"`
	DedupeKey  string         `json:"dedupeKey"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// DecisionAction is the outcome class the decision pipeline assigns to a Signal.
type DecisionAction string

const (
	ActionOpen   DecisionAction = "open"
	ActionClose  DecisionAction = "close"
	ActionIgnore DecisionAction = "ignore"
)

// DecisionParams carries the open/close-specific payload attached to a Decision.
type DecisionParams struct {
	SL         *decimal.Decimal `json:"sl,omitempty"`
	TP         *decimal.Decimal `json:"tp,omitempty"`
	Qty        *decimal.Decimal `json:"qty,omitempty"`
	PositionID string           `json:"positionId,omitempty"`
	Scalp      bool             `json:"scalp,omitempty"`
	Extra      map[string]any   `json:"extra,omitempty"`
}

// Decision is the single outcome the pipeline produces for a Signal.
type Decision struct {
	ID         string         `json:"id"`
	SignalID   string         `json:"signalId"`
	BotID      string         `json:"botId"`
	Action     DecisionAction `json:"action"`
	Reason     string         `json:"reason"`
	Score      decimal.Decimal `json:"score"`
	Params     DecisionParams `json:"params"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	OrderStatusNew         OrderStatus = "new"
	OrderStatusAck         OrderStatus = "ack"
	OrderStatusFilled      OrderStatus = "filled"
	OrderStatusPartFilled  OrderStatus = "part_filled"
	OrderStatusCanceled    OrderStatus = "canceled"
	OrderStatusError       OrderStatus = "error"
)

// IsTerminal reports whether the status admits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCanceled || s == OrderStatusError
}

// Order is a broker-bound order derived (1:1 at most) from a Decision.
type Order struct {
	ID              string          `json:"id"`
	BotID           string          `json:"botId"`
	BrokerAccountID string          `json:"brokerAccountId"`
	ClientOrderID   string          `json:"clientOrderId"`
	DecisionID      string          `json:"decisionId,omitempty"`
	PositionID      string          `json:"positionId,omitempty"`
	Symbol          string          `json:"symbol"`
	Side            Side            `json:"side"`
	Qty             decimal.Decimal `json:"qty"`
	Price           decimal.Decimal `json:"price,omitempty"`
	SL              decimal.Decimal `json:"sl,omitempty"`
	TP              decimal.Decimal `json:"tp,omitempty"`
	Status          OrderStatus     `json:"status"`
	LastError       string          `json:"lastError,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// IsCloseOrder reports whether this order was created to flatten a position.
func (o *Order) IsCloseOrder() bool {
	return len(o.ClientOrderID) >= 6 && o.ClientOrderID[:6] == "close|"
}

// Execution is a single broker fill recorded against an Order.
type Execution struct {
	ID               string          `json:"id"`
	OrderID          string          `json:"orderId"`
	BrokerTicket     string          `json:"brokerTicket,omitempty"`
	Qty              decimal.Decimal `json:"qty"`
	Price            decimal.Decimal `json:"price"`
	Fee              decimal.Decimal `json:"fee"`
	AccountBalance   decimal.Decimal `json:"accountBalance,omitempty"`
	ExecTime         time.Time       `json:"execTime"`
}

// PositionStatus is open or closed.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// Position is the running net exposure for an account/symbol pair.
type Position struct {
	BrokerAccountID string          `json:"brokerAccountId"`
	Symbol          string          `json:"symbol"`
	Qty             decimal.Decimal `json:"qty"` // signed: >0 long, <0 short
	AvgPrice        decimal.Decimal `json:"avgPrice"`
	SL              decimal.Decimal `json:"sl,omitempty"`
	TP              decimal.Decimal `json:"tp,omitempty"`
	Status          PositionStatus  `json:"status"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Side returns the position's directional side, meaningless when flat.
func (p *Position) Side() Side {
	if p.Qty.IsNegative() {
		return SideSell
	}
	return SideBuy
}

// TradeLogStatus extends OrderStatus with realized-outcome classifications.
type TradeLogStatus string

const (
	TradeLogWin       TradeLogStatus = "win"
	TradeLogLoss      TradeLogStatus = "loss"
	TradeLogBreakeven TradeLogStatus = "breakeven"
)

// TradeLog is an append-only row per order status transition (and per realized outcome).
type TradeLog struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"orderId"`
	BotID     string          `json:"botId"`
	Status    string          `json:"status"`
	PnL       decimal.Decimal `json:"pnl,omitempty"`
	HasPnL    bool            `json:"hasPnl"`
	CreatedAt time.Time       `json:"createdAt"`
}

// PnLDaily is the per-account/symbol/day rollup.
type PnLDaily struct {
	BrokerAccountID string          `json:"brokerAccountId"`
	Symbol          string          `json:"symbol"`
	Date            time.Time       `json:"date"`
	Realized        decimal.Decimal `json:"realized"`
	Unrealized      decimal.Decimal `json:"unrealized"`
	Fees            decimal.Decimal `json:"fees"`
	Balance         decimal.Decimal `json:"balance"`
}

// JournalSeverity classifies a JournalEntry.
type JournalSeverity string

const (
	SeverityInfo    JournalSeverity = "info"
	SeverityWarning JournalSeverity = "warning"
	SeverityError   JournalSeverity = "error"
)

// JournalEntry is an append-only structured audit/observability row.
type JournalEntry struct {
	ID              string          `json:"id"`
	EventType       string          `json:"eventType"`
	Severity        JournalSeverity `json:"severity"`
	Message         string          `json:"message"`
	Context         map[string]any  `json:"context,omitempty"`
	Owner           string          `json:"owner,omitempty"`
	Symbol          string          `json:"symbol,omitempty"`
	BotID           string          `json:"botId,omitempty"`
	BrokerAccountID string          `json:"brokerAccountId,omitempty"`
	OrderID         string          `json:"orderId,omitempty"`
	PositionID      string          `json:"positionId,omitempty"`
	SignalID        string          `json:"signalId,omitempty"`
	DecisionID      string          `json:"decisionId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// TradingProfile is a named risk preset a bot may adopt wholesale.
type TradingProfile struct {
	Slug                    string          `json:"slug"`
	Name                    string          `json:"name"`
	Description             string          `json:"description"`
	RiskPerTradePct         decimal.Decimal `json:"riskPerTradePct"`
	MaxTradesPerDay         int             `json:"maxTradesPerDay"`
	MaxConcurrentPositions  int             `json:"maxConcurrentPositions"`
	MaxDrawdownPct          decimal.Decimal `json:"maxDrawdownPct"`
	DecisionMinScore        decimal.Decimal `json:"decisionMinScore"`
	SignalQualityThreshold  decimal.Decimal `json:"signalQualityThreshold"`
	CooldownSeconds         int             `json:"cooldownSeconds"`
	AllowedDays             []string        `json:"allowedDays"`
	TradingStartHour        int             `json:"tradingStartHour"`
	TradingStartMinute      int             `json:"tradingStartMinute"`
	TradingEndHour          int             `json:"tradingEndHour"`
	TradingEndMinute        int             `json:"tradingEndMinute"`
}

// FollowerAllocationModel selects how a follower's order qty is derived from the master's.
type FollowerAllocationModel string

const (
	AllocationProportional FollowerAllocationModel = "proportional"
	AllocationFixed        FollowerAllocationModel = "fixed"
	AllocationEquityPct    FollowerAllocationModel = "equity_pct"
)

// Follower is a copy-trade subscriber replicating a master bot's fanout.
type Follower struct {
	ID              string                  `json:"id"`
	MasterBotID     string                  `json:"masterBotId"`
	BrokerAccountID string                  `json:"brokerAccountId"`
	IsEnabled       bool                    `json:"isEnabled"`
	Model           FollowerAllocationModel `json:"model"`
	Multiplier      decimal.Decimal         `json:"multiplier,omitempty"`
	FixedQty        decimal.Decimal         `json:"fixedQty,omitempty"`
	EquityPct       decimal.Decimal         `json:"equityPct,omitempty"`
	MinBalance      decimal.Decimal         `json:"minBalance"`
}
