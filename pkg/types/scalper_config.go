package types

import "github.com/shopspring/decimal"

// SessionWindow names a trading session used by the AI strategy selector and
// the scalper planner's session-aware bias (london, new_york, asia, overnight).
type SessionWindow string

const (
	SessionLondon    SessionWindow = "london"
	SessionNewYork   SessionWindow = "new_york"
	SessionAsia      SessionWindow = "asia"
	SessionOvernight SessionWindow = "overnight"
)

// ReentryRules bounds how many same-direction and countertrend re-entries a
// symbol may accumulate within a trading day.
type ReentryRules struct {
	MaxReentries         int             `json:"maxReentries"`
	AllowScaleIn         bool            `json:"allowScaleIn"`
	AllowCountertrend    bool            `json:"allowCountertrend"`
	MaxCountertrendCount int             `json:"maxCountertrendCount"`
	MinutesBetweenSameDirection int      `json:"minutesBetweenSameDirection"`
	LossCooldownMinutes  int             `json:"lossCooldownMinutes"`
}

// RiskPreset bounds spread/slippage/floating-risk tolerances for a symbol.
type RiskPreset struct {
	MaxSpreadPoints     decimal.Decimal `json:"maxSpreadPoints"`
	MaxSlippagePoints   decimal.Decimal `json:"maxSlippagePoints"`
	MaxFloatingRiskPct  decimal.Decimal `json:"maxFloatingRiskPct"`
	RiskPerTradePct     decimal.Decimal `json:"riskPerTradePct"`
}

// SymbolConfig is the per-symbol layer of a ScalperConfig.
type SymbolConfig struct {
	Symbol           string       `json:"symbol"`
	Enabled          bool         `json:"enabled"`
	MaxTradesPerDay  int          `json:"maxTradesPerDay"`
	Reentry          ReentryRules `json:"reentry"`
	Risk             RiskPreset   `json:"risk"`
}

// StrategyProfile names the enabled-strategy subset and per-strategy score
// floor a bot's scalper planner should consider, ahead of the AI selector's
// session/volatility narrowing.
type StrategyProfile struct {
	Name             string          `json:"name"`
	EnabledStrategies []string       `json:"enabledStrategies"`
	MinScore         decimal.Decimal `json:"minScore"`
}

// RiskEnvelope is the top-level risk ceiling a ScalperConfig enforces across
// all symbols: position and daily trade caps independent of any one symbol's
// own SymbolConfig limits.
type RiskEnvelope struct {
	MaxConcurrentPositions int             `json:"maxConcurrentPositions"`
	MaxPositionsPerSymbol  int             `json:"maxPositionsPerSymbol"`
	MaxTradesPerDayTotal   int             `json:"maxTradesPerDayTotal"`
	AllowedSymbols         []string        `json:"allowedSymbols"`
}

// PsychologyProfile mirrors Bot.Psychology but as a layerable config default.
// It is not merged onto a bot's own PsychologyState.
type PsychologyProfile struct {
	MaxLossStreakBeforePause int             `json:"maxLossStreakBeforePause"`
	LossStreakCooldownMin    int             `json:"lossStreakCooldownMin"`
	SoftDrawdownLimitPct     decimal.Decimal `json:"softDrawdownLimitPct"`
	HardDrawdownLimitPct     decimal.Decimal `json:"hardDrawdownLimitPct"`
	SoftSizeMultiplier       decimal.Decimal `json:"softSizeMultiplier"`
	HardSizeMultiplier       decimal.Decimal `json:"hardSizeMultiplier"`
}

// ScalperConfig is the configuration consumed by scalper.CheckRisk. The
// scheduler builds one per bot from the bot's own fields; Merge layers an
// override onto a base.
type ScalperConfig struct {
	Risk        RiskEnvelope               `json:"risk"`
	Symbols     map[string]SymbolConfig    `json:"symbols"`
	Strategy    StrategyProfile            `json:"strategy"`
	Psychology  PsychologyProfile          `json:"psychology"`
}

// Merge layers override onto c, returning a new ScalperConfig. Risk fields
// are taken from override only where non-zero. Strategy and Psychology are
// replaced wholesale when override sets Strategy.Name or
// Psychology.MaxLossStreakBeforePause, zero fields included. Symbol maps are
// merged key-by-key, an override entry replacing the base entry whole.
func (c ScalperConfig) Merge(override ScalperConfig) ScalperConfig {
	out := c
	if override.Risk.MaxConcurrentPositions != 0 {
		out.Risk.MaxConcurrentPositions = override.Risk.MaxConcurrentPositions
	}
	if override.Risk.MaxPositionsPerSymbol != 0 {
		out.Risk.MaxPositionsPerSymbol = override.Risk.MaxPositionsPerSymbol
	}
	if override.Risk.MaxTradesPerDayTotal != 0 {
		out.Risk.MaxTradesPerDayTotal = override.Risk.MaxTradesPerDayTotal
	}
	if len(override.Risk.AllowedSymbols) > 0 {
		out.Risk.AllowedSymbols = override.Risk.AllowedSymbols
	}
	if override.Strategy.Name != "" {
		out.Strategy = override.Strategy
	}
	if override.Psychology.MaxLossStreakBeforePause != 0 {
		out.Psychology = override.Psychology
	}
	if len(override.Symbols) > 0 {
		merged := make(map[string]SymbolConfig, len(out.Symbols)+len(override.Symbols))
		for k, v := range out.Symbols {
			merged[k] = v
		}
		for k, v := range override.Symbols {
			merged[k] = v
		}
		out.Symbols = merged
	}
	return out
}

// SymbolConfigFor returns the effective SymbolConfig for a symbol, falling
// back to a disabled zero-value config when the symbol is not listed.
func (c ScalperConfig) SymbolConfigFor(symbol string) (SymbolConfig, bool) {
	sc, ok := c.Symbols[symbol]
	return sc, ok
}
