package workers

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestPoolSubmitAndStats(t *testing.T) {
	cfg := DefaultPoolConfig("test")
	cfg.NumWorkers = 2
	pool := NewPool(zap.NewNop(), cfg)
	pool.Start()
	defer pool.Stop()

	var completed atomic.Int64
	for i := 0; i < 10; i++ {
		if err := pool.SubmitFunc(func() error {
			completed.Add(1)
			return nil
		}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for completed.Load() < 10 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := completed.Load(); got != 10 {
		t.Fatalf("expected 10 tasks completed, got %d", got)
	}

	stats := pool.Stats()
	if stats.TasksSubmitted != 10 {
		t.Errorf("expected 10 submitted, got %d", stats.TasksSubmitted)
	}
	if stats.TasksCompleted != 10 {
		t.Errorf("expected 10 completed, got %d", stats.TasksCompleted)
	}
}

func TestPoolSubmitWaitPropagatesError(t *testing.T) {
	cfg := DefaultPoolConfig("test")
	cfg.NumWorkers = 1
	pool := NewPool(zap.NewNop(), cfg)
	pool.Start()
	defer pool.Stop()

	wantErr := errors.New("boom")
	err := pool.SubmitWait(TaskFunc(func() error { return wantErr }))
	if !errors.Is(err, wantErr) {
		t.Errorf("expected %v, got %v", wantErr, err)
	}
}

func TestPoolRejectsWhenStopped(t *testing.T) {
	cfg := DefaultPoolConfig("test")
	pool := NewPool(zap.NewNop(), cfg)

	if err := pool.SubmitFunc(func() error { return nil }); err != ErrPoolStopped {
		t.Errorf("expected ErrPoolStopped, got %v", err)
	}
}

func TestPoolRecoversPanic(t *testing.T) {
	cfg := DefaultPoolConfig("test")
	cfg.NumWorkers = 1
	cfg.PanicRecovery = true
	cfg.TaskTimeout = time.Second
	pool := NewPool(zap.NewNop(), cfg)
	pool.Start()
	defer pool.Stop()

	if err := pool.SubmitFunc(func() error {
		panic("deliberate")
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for pool.Stats().PanicRecovered == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := pool.Stats().PanicRecovered; got != 1 {
		t.Fatalf("expected 1 panic recovered, got %d", got)
	}
}
