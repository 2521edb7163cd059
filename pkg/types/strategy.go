package types

import "github.com/shopspring/decimal"

// StrategyOutcome is the uniform return value of every candlestick/price-action/
// SMC strategy function: a verdict on the most recent candle in the series.
type StrategyOutcome struct {
	Strategy  string          `json:"strategy"`
	Triggered bool            `json:"triggered"`
	Direction Side            `json:"direction,omitempty"`
	SL        decimal.Decimal `json:"sl,omitempty"`
	TP        decimal.Decimal `json:"tp,omitempty"`
	Reason    string          `json:"reason"`
	Score     decimal.Decimal `json:"score"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}

// EngineContext carries the ambient state a strategy or the engine arbitrator
// needs beyond the candle series itself: spread, session, and HTF bias.
type EngineContext struct {
	Symbol         string          `json:"symbol"`
	Timeframe      Timeframe       `json:"timeframe"`
	SpreadPoints   decimal.Decimal `json:"spreadPoints"`
	Session        SessionWindow   `json:"session"`
	HTFBias        Side            `json:"htfBias,omitempty"`
	HTFBiasKnown   bool            `json:"htfBiasKnown"`
}

// StrategyFunc is the signature every strategy in internal/strategy implements:
// a pure function of a candle series (oldest first) and context to an outcome.
type StrategyFunc func(candles []Candle, ctx EngineContext) StrategyOutcome
