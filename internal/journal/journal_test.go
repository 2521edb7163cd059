package journal

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

type fakeStore struct {
	entries []types.JournalEntry
	err     error
}

func (f *fakeStore) AppendJournalEntry(e types.JournalEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

func TestLogSanitizesDecimalContext(t *testing.T) {
	st := &fakeStore{}
	j := New(st, zap.NewNop(), NewMetrics(prometheus.NewRegistry()))

	j.Log(Event{Type: "decision.open", Context: map[string]any{"score": decimal.NewFromFloat(0.87)}})

	if len(st.entries) != 1 {
		t.Fatalf("expected 1 entry written, got %d", len(st.entries))
	}
	score, ok := st.entries[0].Context["score"].(string)
	if !ok || score != "0.87" {
		t.Errorf("expected decimal context sanitized to string \"0.87\", got %v", st.entries[0].Context["score"])
	}
}

func TestLogDefaultsSeverityToInfo(t *testing.T) {
	st := &fakeStore{}
	j := New(st, zap.NewNop(), NewMetrics(prometheus.NewRegistry()))

	j.Log(Event{Type: "decision.ignore"})

	if st.entries[0].Severity != types.SeverityInfo {
		t.Errorf("expected default severity info, got %s", st.entries[0].Severity)
	}
}

func TestLogSwallowsStoreErrors(t *testing.T) {
	st := &fakeStore{err: errors.New("disk full")}
	j := New(st, zap.NewNop(), NewMetrics(prometheus.NewRegistry()))

	j.Log(Event{Type: "decision.open"})
}
