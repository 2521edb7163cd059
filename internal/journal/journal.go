// Package journal is the fail-soft structured event writer used everywhere
// in the engine: every risk block, order transition, and guard trip is
// logged here in addition to zap, so operators can query engine history
// without grepping log files.
package journal

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
	"github.com/atlas-desktop/scalper-engine/pkg/utils"
)

// Store is the append-only persistence surface journal entries land on.
type Store interface {
	AppendJournalEntry(types.JournalEntry) error
}

// Event carries everything Journal.Log's write path needs. All reference fields
// are optional; absent ones are simply omitted.
type Event struct {
	Type            string
	Severity        types.JournalSeverity
	Message         string
	Context         map[string]any
	Owner           string
	Symbol          string
	BotID           string
	BrokerAccountID string
	OrderID         string
	PositionID      string
	SignalID        string
	DecisionID      string
}

// Journal writes Events to a Store and increments Prometheus counters,
// never returning an error to the caller: a broken audit trail should never
// take down the order pipeline that is trying to log to it.
type Journal struct {
	store   Store
	log     *zap.Logger
	metrics *Metrics
}

// New builds a Journal.
func New(store Store, log *zap.Logger, metrics *Metrics) *Journal {
	return &Journal{store: store, log: log, metrics: metrics}
}

// Log records an Event, sanitizing any decimal.Decimal values in Context to
// strings first (the original motivation: Decimal doesn't marshal to JSON
// predictably across encoders). Failures are logged via zap and swallowed.
func (j *Journal) Log(e Event) {
	if e.Severity == "" {
		e.Severity = types.SeverityInfo
	}
	entry := types.JournalEntry{
		ID:              utils.GenerateID("jnl"),
		EventType:       e.Type,
		Severity:        e.Severity,
		Message:         e.Message,
		Context:         sanitize(e.Context),
		Owner:           e.Owner,
		Symbol:          e.Symbol,
		BotID:           e.BotID,
		BrokerAccountID: e.BrokerAccountID,
		OrderID:         e.OrderID,
		PositionID:      e.PositionID,
		SignalID:        e.SignalID,
		DecisionID:      e.DecisionID,
		CreatedAt:       time.Now(),
	}
	if err := j.store.AppendJournalEntry(entry); err != nil {
		if j.log != nil {
			j.log.Error("journal write failed", zap.Error(err), zap.String("eventType", e.Type))
		}
		return
	}
	if j.metrics != nil {
		j.metrics.ObserveEvent(e.Type, string(e.Severity))
	}
}

// sanitize recursively converts decimal.Decimal (and nested maps/slices
// containing them) to strings so the context survives any JSON encoder.
func sanitize(v map[string]any) map[string]any {
	if v == nil {
		return nil
	}
	out := make(map[string]any, len(v))
	for k, val := range v {
		out[k] = sanitizeValue(val)
	}
	return out
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case decimal.Decimal:
		return t.String()
	case map[string]any:
		return sanitize(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return v
	}
}
