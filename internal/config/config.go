// Package config loads the engine's layered runtime and scalper
// configuration via viper: built-in defaults, an optional config file, and
// environment variable overrides, in that precedence order.
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// ServerConfig holds process-level HTTP/WS server settings, populated from
// command-line flags in cmd/server/main.go rather than from viper: these are
// launch-time knobs, not hot-reloadable trading parameters.
type ServerConfig struct {
	Host           string
	Port           int
	DataDir        string
	LogLevel       string
	Paper          bool
	EnableMetrics  bool
	MetricsPort    int
	CORSOrigins    []string
}

// Loader owns the viper instance backing RuntimeConfig and caches the last
// successfully loaded value, mirroring the teacher's single-responsibility
// constructor-injected components instead of a package-level singleton.
type Loader struct {
	mu  sync.RWMutex
	v   *viper.Viper
	log *zap.Logger

	cached *types.RuntimeConfig
}

// NewLoader builds a Loader reading from configPath (if non-empty) layered
// with SCALPER_-prefixed environment variables.
func NewLoader(configPath string, log *zap.Logger) *Loader {
	v := viper.New()
	v.SetEnvPrefix("scalper")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	return &Loader{v: v, log: log}
}

// Load reads the config file (if configured) and environment overrides on
// top of DefaultRuntimeConfig, caching the result. A missing config file is
// not an error: defaults plus environment overrides are a valid
// configuration on their own.
func (l *Loader) Load() (types.RuntimeConfig, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	def := types.DefaultRuntimeConfig()
	l.bindDefaults(def)

	if l.v.ConfigFileUsed() == "" && l.v.GetString("config_file_path") == "" {
		// no explicit config file set; try reading anyway in case SetConfigFile
		// was called, swallowing a not-found error.
	}
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if l.log != nil {
				l.log.Warn("runtime config file could not be read, using defaults and environment", zap.Error(err))
			}
		}
	}

	cfg, err := l.unmarshal(def)
	if err != nil {
		return def, fmt.Errorf("unmarshal runtime config: %w", err)
	}
	l.cached = &cfg
	return cfg, nil
}

// Current returns the last loaded RuntimeConfig, loading it on first call.
func (l *Loader) Current() types.RuntimeConfig {
	l.mu.RLock()
	cached := l.cached
	l.mu.RUnlock()
	if cached != nil {
		return *cached
	}
	cfg, err := l.Load()
	if err != nil && l.log != nil {
		l.log.Error("falling back to default runtime config", zap.Error(err))
	}
	return cfg
}

func (l *Loader) bindDefaults(def types.RuntimeConfig) {
	l.v.SetDefault("decision_min_score", def.DecisionMinScore.String())
	l.v.SetDefault("decision_flip_score", def.DecisionFlipScore.String())
	l.v.SetDefault("decision_allow_hedging", def.DecisionAllowHedging)
	l.v.SetDefault("decision_flip_cooldown_min", def.DecisionFlipCooldownMin)
	l.v.SetDefault("decision_max_flips_per_day", def.DecisionMaxFlipsPerDay)
	l.v.SetDefault("decision_order_cooldown_sec", def.DecisionOrderCooldownSec)
	l.v.SetDefault("decision_scalp_sl_offset", def.DecisionScalpSLOffset.String())
	l.v.SetDefault("decision_scalp_tp_offset", def.DecisionScalpTPOffset.String())
	l.v.SetDefault("decision_scalp_qty_multiplier", def.DecisionScalpQtyMultiplier.String())
	l.v.SetDefault("order_ack_timeout_seconds", def.OrderAckTimeoutSeconds)
	l.v.SetDefault("early_exit_max_unrealized_pct", def.EarlyExitMaxUnrealizedPct.String())
	l.v.SetDefault("trailing_trigger_pct", def.TrailingTriggerPct.String())
	l.v.SetDefault("trailing_distance_atr_mult", def.TrailingDistanceATRMult.String())
	l.v.SetDefault("paper_start_balance", def.PaperStartBalance.String())
	l.v.SetDefault("mt5_default_contract_size", def.MT5DefaultContractSize.String())
	l.v.SetDefault("max_order_lot", def.MaxOrderLot.String())
	l.v.SetDefault("max_order_notional", def.MaxOrderNotional.String())
}

func (l *Loader) unmarshal(def types.RuntimeConfig) (types.RuntimeConfig, error) {
	cfg := def
	var err error
	if cfg.DecisionMinScore, err = decFromViper(l.v, "decision_min_score"); err != nil {
		return def, err
	}
	if cfg.DecisionFlipScore, err = decFromViper(l.v, "decision_flip_score"); err != nil {
		return def, err
	}
	cfg.DecisionAllowHedging = l.v.GetBool("decision_allow_hedging")
	cfg.DecisionFlipCooldownMin = l.v.GetInt("decision_flip_cooldown_min")
	cfg.DecisionMaxFlipsPerDay = l.v.GetInt("decision_max_flips_per_day")
	cfg.DecisionOrderCooldownSec = l.v.GetInt("decision_order_cooldown_sec")
	if cfg.DecisionScalpSLOffset, err = decFromViper(l.v, "decision_scalp_sl_offset"); err != nil {
		return def, err
	}
	if cfg.DecisionScalpTPOffset, err = decFromViper(l.v, "decision_scalp_tp_offset"); err != nil {
		return def, err
	}
	if cfg.DecisionScalpQtyMultiplier, err = decFromViper(l.v, "decision_scalp_qty_multiplier"); err != nil {
		return def, err
	}
	cfg.OrderAckTimeoutSeconds = l.v.GetInt("order_ack_timeout_seconds")
	if cfg.EarlyExitMaxUnrealizedPct, err = decFromViper(l.v, "early_exit_max_unrealized_pct"); err != nil {
		return def, err
	}
	if cfg.TrailingTriggerPct, err = decFromViper(l.v, "trailing_trigger_pct"); err != nil {
		return def, err
	}
	if cfg.TrailingDistanceATRMult, err = decFromViper(l.v, "trailing_distance_atr_mult"); err != nil {
		return def, err
	}
	if cfg.PaperStartBalance, err = decFromViper(l.v, "paper_start_balance"); err != nil {
		return def, err
	}
	if cfg.MT5DefaultContractSize, err = decFromViper(l.v, "mt5_default_contract_size"); err != nil {
		return def, err
	}
	if cfg.MaxOrderLot, err = decFromViper(l.v, "max_order_lot"); err != nil {
		return def, err
	}
	if cfg.MaxOrderNotional, err = decFromViper(l.v, "max_order_notional"); err != nil {
		return def, err
	}
	return cfg, nil
}
