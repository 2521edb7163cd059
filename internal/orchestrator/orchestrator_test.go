package orchestrator

import (
	"testing"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

func TestClientOrderIDDeterministic(t *testing.T) {
	a := ClientOrderID("dec1", "acct1", "EURUSD", types.SideBuy)
	b := ClientOrderID("dec1", "acct1", "EURUSD", types.SideBuy)
	if a != b {
		t.Fatalf("expected deterministic client order id, got %s vs %s", a, b)
	}
	c := ClientOrderID("dec2", "acct1", "EURUSD", types.SideBuy)
	if a == c {
		t.Fatalf("expected different decision to produce different client order id")
	}
}

func TestCloseClientOrderIDNamespaceSeparate(t *testing.T) {
	open := ClientOrderID("dec1", "acct1", "EURUSD", types.SideBuy)
	close := CloseClientOrderID("acct1|EURUSD", "acct1", "EURUSD")
	if open == close {
		t.Fatalf("open and close client order ids must never collide")
	}
	if close[:6] != "close|" {
		t.Fatalf("close client order id must carry close| prefix, got %s", close)
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to types.OrderStatus
		want     bool
	}{
		{types.OrderStatusNew, types.OrderStatusAck, true},
		{types.OrderStatusNew, types.OrderStatusFilled, true},
		{types.OrderStatusAck, types.OrderStatusPartFilled, true},
		{types.OrderStatusPartFilled, types.OrderStatusFilled, true},
		{types.OrderStatusFilled, types.OrderStatusAck, false},
		{types.OrderStatusCanceled, types.OrderStatusFilled, false},
		{types.OrderStatusError, types.OrderStatusNew, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}
