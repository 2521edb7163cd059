package copytrade

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/internal/broker"
	"github.com/atlas-desktop/scalper-engine/internal/store"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

func TestFanoutSkipsDisabledFollowers(t *testing.T) {
	st := store.New()
	registry := broker.NewRegistry()
	registry.Register(broker.NewPaperConnector(decimal.NewFromInt(10000), zap.NewNop()))
	a := NewAllocator(st, registry, zap.NewNop())

	_ = st.SaveBrokerAccount(types.BrokerAccount{ID: "acct1", BrokerCode: "paper"})
	_ = st.SaveFollower(types.Follower{ID: "f1", MasterBotID: "master", BrokerAccountID: "acct1", IsEnabled: false})

	orders := a.Fanout(context.Background(), "master", decimal.NewFromFloat(1))
	if len(orders) != 0 {
		t.Fatalf("expected no orders for a disabled follower, got %+v", orders)
	}
}

func TestFanoutSkipsFollowerBelowMinBalance(t *testing.T) {
	st := store.New()
	registry := broker.NewRegistry()
	registry.Register(broker.NewPaperConnector(decimal.NewFromInt(100), zap.NewNop()))
	a := NewAllocator(st, registry, zap.NewNop())

	_ = st.SaveBrokerAccount(types.BrokerAccount{ID: "acct1", BrokerCode: "paper"})
	_ = st.SaveFollower(types.Follower{
		ID: "f1", MasterBotID: "master", BrokerAccountID: "acct1", IsEnabled: true,
		Model: types.AllocationProportional, Multiplier: decimal.NewFromInt(1),
		MinBalance: decimal.NewFromInt(1000),
	})

	orders := a.Fanout(context.Background(), "master", decimal.NewFromFloat(1))
	if len(orders) != 0 {
		t.Fatalf("expected no orders when follower equity is below min balance, got %+v", orders)
	}
}

func TestFanoutProportionalScalesMasterQty(t *testing.T) {
	st := store.New()
	registry := broker.NewRegistry()
	registry.Register(broker.NewPaperConnector(decimal.NewFromInt(10000), zap.NewNop()))
	a := NewAllocator(st, registry, zap.NewNop())

	_ = st.SaveBrokerAccount(types.BrokerAccount{ID: "acct1", BrokerCode: "paper"})
	_ = st.SaveFollower(types.Follower{
		ID: "f1", MasterBotID: "master", BrokerAccountID: "acct1", IsEnabled: true,
		Model: types.AllocationProportional, Multiplier: decimal.NewFromFloat(0.5),
	})

	orders := a.Fanout(context.Background(), "master", decimal.NewFromFloat(2))
	if len(orders) != 1 {
		t.Fatalf("expected 1 follower order, got %d", len(orders))
	}
	if !orders[0].Qty.Equal(decimal.NewFromFloat(1)) {
		t.Errorf("expected proportional qty 1, got %s", orders[0].Qty)
	}
}

func TestFanoutFixedIgnoresMasterQty(t *testing.T) {
	st := store.New()
	registry := broker.NewRegistry()
	registry.Register(broker.NewPaperConnector(decimal.NewFromInt(10000), zap.NewNop()))
	a := NewAllocator(st, registry, zap.NewNop())

	_ = st.SaveBrokerAccount(types.BrokerAccount{ID: "acct1", BrokerCode: "paper"})
	_ = st.SaveFollower(types.Follower{
		ID: "f1", MasterBotID: "master", BrokerAccountID: "acct1", IsEnabled: true,
		Model: types.AllocationFixed, FixedQty: decimal.NewFromFloat(0.3),
	})

	orders := a.Fanout(context.Background(), "master", decimal.NewFromFloat(50))
	if len(orders) != 1 || !orders[0].Qty.Equal(decimal.NewFromFloat(0.3)) {
		t.Fatalf("expected fixed qty 0.3 regardless of master qty, got %+v", orders)
	}
}

func TestFanoutSkipsFollowerWithUnknownBrokerAccount(t *testing.T) {
	st := store.New()
	registry := broker.NewRegistry()
	a := NewAllocator(st, registry, zap.NewNop())

	_ = st.SaveFollower(types.Follower{ID: "f1", MasterBotID: "master", BrokerAccountID: "missing", IsEnabled: true})

	orders := a.Fanout(context.Background(), "master", decimal.NewFromFloat(1))
	if len(orders) != 0 {
		t.Fatalf("expected no orders for a follower referencing an unknown account, got %+v", orders)
	}
}
