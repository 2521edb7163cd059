// Package marketdata turns a broker's tick quotes into the OHLCV candle
// history the scalper planner evaluates. MT5 and the paper simulator both
// expose synchronous tick lookups rather than a push feed, so this package
// polls on an interval and aggregates into bars itself, the same shape the
// teacher's exchange-websocket service used for its own OHLCV cache.
package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/internal/broker"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

var decimalTwo = decimal.NewFromInt(2)

// TickSource is anything that can be asked for a symbol's current
// bid/ask. Satisfied by *broker.PaperConnector and the account-bound
// adapter MT5Connector.ForAccount returns.
type TickSource interface {
	Tick(ctx context.Context, symbol string) (broker.Tick, error)
}

// Config configures the poll loop and which symbols/timeframes it builds
// bars for.
type Config struct {
	Symbols     []string
	Timeframes  []types.Timeframe
	PollInterval time.Duration
	MaxBarsKept int
}

// DefaultConfig returns sensible defaults for a handful of FX majors on the
// timeframes the scalper strategies actually consult.
func DefaultConfig() Config {
	return Config{
		Symbols:      []string{"EURUSD", "GBPUSD", "USDJPY"},
		Timeframes:   []types.Timeframe{types.Timeframe1m, types.Timeframe5m, types.Timeframe15m},
		PollInterval: 2 * time.Second,
		MaxBarsKept:  500,
	}
}

type barKey struct {
	symbol string
	tf     types.Timeframe
}

// Service polls a TickSource and maintains a rolling OHLCV cache per
// (symbol, timeframe), satisfying internal/scheduler.MarketData.
type Service struct {
	logger *zap.Logger
	config Config
	source TickSource

	mu      sync.RWMutex
	bars    map[barKey][]types.Candle
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	onBar func(symbol string, tf types.Timeframe, c types.Candle)
}

// NewService builds a Service around a tick source.
func NewService(logger *zap.Logger, config Config, source TickSource) *Service {
	return &Service{
		logger: logger,
		config: config,
		source: source,
		bars:   make(map[barKey][]types.Candle),
	}
}

// OnBar registers a callback fired whenever a bar closes (the previous bar
// is finalized because a new tick landed in the next interval). A later
// call replaces the earlier callback; cmd/server registers none.
func (s *Service) OnBar(fn func(symbol string, tf types.Timeframe, c types.Candle)) {
	s.onBar = fn
}

// Start begins polling in the background. Idempotent.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	for _, symbol := range s.config.Symbols {
		symbol := symbol
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.pollLoop(runCtx, symbol)
		}()
	}
}

// Stop halts polling and waits for the poll goroutines to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// pollLoop fetches symbol's tick every PollInterval and folds it into every
// configured timeframe's current bar, retrying after a backoff that doubles
// on each consecutive failed fetch (doubling stops once it reaches 30s)
// rather than aborting on a transient tick-source error.
func (s *Service) pollLoop(ctx context.Context, symbol string) {
	interval := s.config.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	backoff := interval
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick, err := s.source.Tick(ctx, symbol)
			if err != nil {
				if s.logger != nil {
					s.logger.Warn("tick fetch failed", zap.String("symbol", symbol), zap.Error(err))
				}
				time.Sleep(backoff)
				if backoff < maxBackoff {
					backoff *= 2
				}
				continue
			}
			backoff = interval
			mid := tick.Bid.Add(tick.Ask).Div(decimalTwo)
			for _, tf := range s.config.Timeframes {
				s.ingest(symbol, tf, mid, tick.Time)
			}
		}
	}
}

// ingest folds price into symbol/tf's current bar, opening a new one when
// price's bucket has moved past the previous bar's.
func (s *Service) ingest(symbol string, tf types.Timeframe, price decimal.Decimal, at time.Time) {
	bucket := bucketStart(tf, at)
	key := barKey{symbol: symbol, tf: tf}

	s.mu.Lock()
	defer s.mu.Unlock()

	series := s.bars[key]
	if len(series) == 0 || series[len(series)-1].Time.Before(bucket) {
		closed := len(series) > 0
		var closedBar types.Candle
		if closed {
			closedBar = series[len(series)-1]
		}
		series = append(series, types.Candle{Time: bucket, Open: price, High: price, Low: price, Close: price})
		if max := s.config.MaxBarsKept; max > 0 && len(series) > max {
			series = series[len(series)-max:]
		}
		s.bars[key] = series
		if closed && s.onBar != nil {
			s.onBar(symbol, tf, closedBar)
		}
		return
	}

	last := &series[len(series)-1]
	if price.GreaterThan(last.High) {
		last.High = price
	}
	if price.LessThan(last.Low) {
		last.Low = price
	}
	last.Close = price
}

// Candles implements internal/scheduler.MarketData: the most recent
// lookback bars for symbol/tf, oldest first.
func (s *Service) Candles(ctx context.Context, symbol string, tf types.Timeframe, lookback int) ([]types.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.bars[barKey{symbol: symbol, tf: tf}]
	if lookback <= 0 || lookback >= len(series) {
		out := make([]types.Candle, len(series))
		copy(out, series)
		return out, nil
	}
	out := make([]types.Candle, lookback)
	copy(out, series[len(series)-lookback:])
	return out, nil
}

func bucketStart(tf types.Timeframe, at time.Time) time.Time {
	secs := tf.Seconds()
	if secs <= 0 {
		secs = 60
	}
	return time.Unix((at.Unix()/secs)*secs, 0).UTC()
}
