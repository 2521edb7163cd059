package config

import (
	"os"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	l := NewLoader("", nil)
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OrderAckTimeoutSeconds == 0 {
		t.Errorf("expected a non-zero default ack timeout")
	}
	if cfg.PaperStartBalance.IsZero() {
		t.Errorf("expected a non-zero default paper start balance")
	}
}

func TestLoadAppliesEnvironmentOverride(t *testing.T) {
	os.Setenv("SCALPER_ORDER_ACK_TIMEOUT_SECONDS", "45")
	defer os.Unsetenv("SCALPER_ORDER_ACK_TIMEOUT_SECONDS")

	l := NewLoader("", nil)
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OrderAckTimeoutSeconds != 45 {
		t.Errorf("expected env override to set ack timeout to 45, got %d", cfg.OrderAckTimeoutSeconds)
	}
}

func TestLoadAppliesDecimalEnvironmentOverride(t *testing.T) {
	os.Setenv("SCALPER_MAX_ORDER_LOT", "2.5")
	defer os.Unsetenv("SCALPER_MAX_ORDER_LOT")

	l := NewLoader("", nil)
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.MaxOrderLot.Equal(decimal.NewFromFloat(2.5)) {
		t.Errorf("expected max order lot 2.5, got %s", cfg.MaxOrderLot)
	}
}

func TestCurrentLoadsOnFirstCallAndCaches(t *testing.T) {
	l := NewLoader("", nil)
	first := l.Current()
	second := l.Current()
	if !first.PaperStartBalance.Equal(second.PaperStartBalance) {
		t.Errorf("expected cached config to be stable across calls")
	}
}
