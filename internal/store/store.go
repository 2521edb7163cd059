// Package store provides the in-process repository backing the engine: a
// mutex-protected set of maps, matching the teacher's data-store pattern
// (sync.RWMutex-guarded collections behind narrow accessor methods) rather
// than a full database layer. A durable backend can implement the same
// interfaces this package satisfies without touching call sites.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// Store is the engine's single in-process repository.
type Store struct {
	mu sync.RWMutex

	assets         map[string]types.Asset
	brokerAccounts map[string]types.BrokerAccount
	bots           map[string]types.Bot
	signals        map[string]types.Signal
	decisions      map[string]types.Decision
	orders         map[string]types.Order
	ordersByClient map[string]string // clientOrderID -> orderID
	executions     []types.Execution
	positions      map[string]types.Position // key: brokerAccountID|symbol
	tradeLogs      []types.TradeLog
	pnlDaily       map[string]types.PnLDaily // key: brokerAccountID|symbol|date
	journal        []types.JournalEntry
	followers      map[string]types.Follower
}

// New builds an empty Store.
func New() *Store {
	return &Store{
		assets:         make(map[string]types.Asset),
		brokerAccounts: make(map[string]types.BrokerAccount),
		bots:           make(map[string]types.Bot),
		signals:        make(map[string]types.Signal),
		decisions:      make(map[string]types.Decision),
		orders:         make(map[string]types.Order),
		ordersByClient: make(map[string]string),
		positions:      make(map[string]types.Position),
		pnlDaily:       make(map[string]types.PnLDaily),
		followers:      make(map[string]types.Follower),
	}
}

func positionKey(brokerAccountID, symbol string) string {
	return brokerAccountID + "|" + symbol
}

// --- Assets ---

func (s *Store) SaveAsset(a types.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[a.Symbol] = a
	return nil
}

func (s *Store) GetAsset(symbol string) (types.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[symbol]
	return a, ok
}

// --- Broker accounts ---

func (s *Store) SaveBrokerAccount(ba types.BrokerAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brokerAccounts[ba.ID] = ba
	return nil
}

func (s *Store) GetBrokerAccount(id string) (types.BrokerAccount, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ba, ok := s.brokerAccounts[id]
	return ba, ok
}

// --- Bots ---

func (s *Store) SaveBot(b types.Bot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.UpdatedAt = time.Now()
	s.bots[b.ID] = b
	return nil
}

func (s *Store) GetBot(id string) (types.Bot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bots[id]
	return b, ok
}

func (s *Store) ListBots() []types.Bot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Bot, 0, len(s.bots))
	for _, b := range s.bots {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- Signals ---

func (s *Store) SaveSignal(sig types.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals[sig.ID] = sig
	return nil
}

func (s *Store) FindSignalByDedupeKey(key string) (types.Signal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sig := range s.signals {
		if sig.DedupeKey == key {
			return sig, true
		}
	}
	return types.Signal{}, false
}

// --- Decisions ---

func (s *Store) SaveDecision(d types.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[d.ID] = d
	return nil
}

func (s *Store) GetDecision(id string) (types.Decision, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decisions[id]
	return d, ok
}

func (s *Store) ListDecisionsByBot(botID string) []types.Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Decision
	for _, d := range s.decisions {
		if d.BotID == botID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// --- Orders ---

func (s *Store) SaveOrder(o types.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.UpdatedAt = time.Now()
	s.orders[o.ID] = o
	s.ordersByClient[o.ClientOrderID] = o.ID
	return nil
}

func (s *Store) GetOrder(id string) (types.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	return o, ok
}

func (s *Store) FindOrderByClientID(clientOrderID string) (types.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ordersByClient[clientOrderID]
	if !ok {
		return types.Order{}, false
	}
	o, ok := s.orders[id]
	return o, ok
}

func (s *Store) ListOrdersByStatus(status types.OrderStatus) []types.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Order
	for _, o := range s.orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) ListOrdersByBot(botID string) []types.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Order
	for _, o := range s.orders {
		if o.BotID == botID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) CountOrdersToday(botID string, symbol string, now time.Time) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	y, m, d := now.Date()
	for _, o := range s.orders {
		if o.BotID != botID || o.Status != types.OrderStatusFilled {
			continue
		}
		if symbol != "" && o.Symbol != symbol {
			continue
		}
		oy, om, od := o.CreatedAt.Date()
		if oy == y && om == m && od == d {
			count++
		}
	}
	return count
}

// --- Executions ---

func (s *Store) SaveExecution(e types.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions = append(s.executions, e)
	return nil
}

func (s *Store) FindExecution(orderID string, qty, price decimal.Decimal, execTime time.Time) (types.Execution, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.executions {
		if e.OrderID == orderID && e.Qty.Equal(qty) && e.Price.Equal(price) && e.ExecTime.Equal(execTime) {
			return e, true
		}
	}
	return types.Execution{}, false
}

func (s *Store) FindExecutionByTicket(orderID, brokerTicket string) (types.Execution, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if brokerTicket == "" {
		return types.Execution{}, false
	}
	for _, e := range s.executions {
		if e.OrderID == orderID && e.BrokerTicket == brokerTicket {
			return e, true
		}
	}
	return types.Execution{}, false
}

func (s *Store) ExecutionsForOrder(orderID string) []types.Execution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Execution
	for _, e := range s.executions {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out
}

// --- Positions ---

func (s *Store) SavePosition(p types.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[positionKey(p.BrokerAccountID, p.Symbol)] = p
	return nil
}

func (s *Store) GetPosition(brokerAccountID, symbol string) (types.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[positionKey(brokerAccountID, symbol)]
	return p, ok
}

func (s *Store) ListOpenPositions() []types.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Position
	for _, p := range s.positions {
		if p.Status == types.PositionStatusOpen {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// --- Trade logs ---

func (s *Store) SaveTradeLog(t types.TradeLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tradeLogs = append(s.tradeLogs, t)
	return nil
}

func (s *Store) TradeLogsForBot(botID string) []types.TradeLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.TradeLog
	for _, t := range s.tradeLogs {
		if t.BotID == botID {
			out = append(out, t)
		}
	}
	return out
}

// --- PnL daily ---

func (s *Store) UpsertPnLDaily(p types.PnLDaily) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := positionKey(p.BrokerAccountID, p.Symbol) + "|" + p.Date.Format("2006-01-02")
	s.pnlDaily[key] = p
	return nil
}

func (s *Store) GetPnLDaily(brokerAccountID, symbol string, date time.Time) (types.PnLDaily, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := positionKey(brokerAccountID, symbol) + "|" + date.Format("2006-01-02")
	p, ok := s.pnlDaily[key]
	return p, ok
}

// --- Journal ---

func (s *Store) AppendJournalEntry(e types.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journal = append(s.journal, e)
	return nil
}

func (s *Store) RecentJournalEntries(limit int) []types.JournalEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.journal) {
		limit = len(s.journal)
	}
	out := make([]types.JournalEntry, limit)
	copy(out, s.journal[len(s.journal)-limit:])
	return out
}

// --- Followers ---

func (s *Store) SaveFollower(f types.Follower) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followers[f.ID] = f
	return nil
}

func (s *Store) FollowersForMaster(masterBotID string) []types.Follower {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Follower
	for _, f := range s.followers {
		if f.MasterBotID == masterBotID {
			out = append(out, f)
		}
	}
	return out
}
