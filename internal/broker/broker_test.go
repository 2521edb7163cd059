package broker

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeBrokerCode(t *testing.T) {
	cases := map[string]string{
		"Paper":  "paper",
		"MT5":    "mt5",
		" MT 5 ": "mt5",
		"paper":  "paper",
	}
	for in, want := range cases {
		if got := NormalizeBrokerCode(in); got != want {
			t.Errorf("NormalizeBrokerCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRegistryResolveRegisteredConnector(t *testing.T) {
	r := NewRegistry()
	conn := NewPaperConnector(decimal.Zero, nil)
	r.Register(conn)

	got, err := r.Resolve("PAPER")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Code() != "paper" {
		t.Errorf("expected paper connector, got %q", got.Code())
	}
}

func TestRegistryResolveUnknownCodeErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Resolve("mt5"); err == nil {
		t.Errorf("expected error resolving unregistered broker code")
	}
}
