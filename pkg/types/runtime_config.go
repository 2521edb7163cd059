package types

import "github.com/shopspring/decimal"

// RuntimeConfig holds the operator-tunable knobs that apply across all bots.
// Loaded once per process by internal/config and cached; served read-only
// by GET /api/v1/runtime-config. It is not reloaded while the process runs.
type RuntimeConfig struct {
	DecisionMinScore          decimal.Decimal `mapstructure:"decision_min_score"`
	DecisionFlipScore         decimal.Decimal `mapstructure:"decision_flip_score"`
	DecisionAllowHedging      bool            `mapstructure:"decision_allow_hedging"`
	DecisionFlipCooldownMin   int             `mapstructure:"decision_flip_cooldown_min"`
	DecisionMaxFlipsPerDay    int             `mapstructure:"decision_max_flips_per_day"`
	DecisionOrderCooldownSec  int             `mapstructure:"decision_order_cooldown_sec"`
	DecisionScalpSLOffset     decimal.Decimal `mapstructure:"decision_scalp_sl_offset"`
	DecisionScalpTPOffset     decimal.Decimal `mapstructure:"decision_scalp_tp_offset"`
	DecisionScalpQtyMultiplier decimal.Decimal `mapstructure:"decision_scalp_qty_multiplier"`
	OrderAckTimeoutSeconds    int             `mapstructure:"order_ack_timeout_seconds"`
	EarlyExitMaxUnrealizedPct decimal.Decimal `mapstructure:"early_exit_max_unrealized_pct"`
	TrailingTriggerPct        decimal.Decimal `mapstructure:"trailing_trigger_pct"`
	TrailingDistanceATRMult   decimal.Decimal `mapstructure:"trailing_distance_atr_mult"`
	PaperStartBalance         decimal.Decimal `mapstructure:"paper_start_balance"`
	MT5DefaultContractSize    decimal.Decimal `mapstructure:"mt5_default_contract_size"`
	MaxOrderLot               decimal.Decimal `mapstructure:"max_order_lot"`
	MaxOrderNotional          decimal.Decimal `mapstructure:"max_order_notional"`
}

// DefaultRuntimeConfig returns the built-in fallback values, used when no
// override file or environment variable is present for a given key.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		DecisionMinScore:           decimal.NewFromFloat(0.55),
		DecisionFlipScore:          decimal.NewFromFloat(0.70),
		DecisionAllowHedging:       false,
		DecisionFlipCooldownMin:    15,
		DecisionMaxFlipsPerDay:     4,
		DecisionOrderCooldownSec:   30,
		DecisionScalpSLOffset:      decimal.NewFromInt(150),
		DecisionScalpTPOffset:      decimal.NewFromInt(300),
		DecisionScalpQtyMultiplier: decimal.NewFromFloat(1.0),
		OrderAckTimeoutSeconds:     20,
		EarlyExitMaxUnrealizedPct:  decimal.NewFromFloat(0.02),
		TrailingTriggerPct:         decimal.NewFromFloat(0.01),
		TrailingDistanceATRMult:    decimal.NewFromFloat(0.5),
		PaperStartBalance:          decimal.NewFromInt(10000),
		MT5DefaultContractSize:     decimal.NewFromInt(100000),
		MaxOrderLot:                decimal.NewFromFloat(5.0),
		MaxOrderNotional:           decimal.NewFromInt(500000),
	}
}
