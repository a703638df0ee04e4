// Package runner schedules analysis passes: on every tick it fetches fresh
// candle series for each configured symbol, runs the signal engine, and
// broadcasts any emitted signal to the hub.
package runner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openquant-labs/signalfan/internal/engine"
	"github.com/openquant-labs/signalfan/internal/hub"
	"github.com/openquant-labs/signalfan/internal/logger"
	"github.com/openquant-labs/signalfan/internal/types"
)

// DefaultLookback is the number of candles fetched per timeframe. It leaves
// headroom over the longest indicator warmup in the pipeline.
const DefaultLookback = 120

// CandleSource supplies recent candles for one symbol and timeframe.
type CandleSource interface {
	GetCandles(ctx context.Context, symbol string, timeframe types.Timeframe, limit int) ([]types.Candle, error)
}

// Runner drives the signal engine on a fixed cadence.
type Runner struct {
	engine   *engine.Engine
	hub      *hub.Hub
	source   CandleSource
	log      *logger.Logger
	interval time.Duration
	lookback int
}

// Option configures a Runner.
type Option func(*Runner)

// WithInterval overrides the analysis cadence. The default is the primary
// timeframe's bar length.
func WithInterval(interval time.Duration) Option {
	return func(r *Runner) { r.interval = interval }
}

// WithLookback overrides the number of candles fetched per timeframe.
func WithLookback(lookback int) Option {
	return func(r *Runner) { r.lookback = lookback }
}

// New creates a runner over the engine, hub and candle source.
func New(analysisEngine *engine.Engine, signalHub *hub.Hub, source CandleSource, log *logger.Logger, opts ...Option) *Runner {
	runner := &Runner{
		engine:   analysisEngine,
		hub:      signalHub,
		source:   source,
		log:      log,
		interval: analysisEngine.Config().PrimaryTimeframe.Duration(),
		lookback: DefaultLookback,
	}

	if runner.interval <= 0 {
		runner.interval = time.Minute
	}

	// The engine rejects series shorter than its confirmation window, so the
	// fetch must always cover it.
	if window := analysisEngine.Config().ConfirmationCandles; window > runner.lookback {
		runner.lookback = window
	}

	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

// Run ticks until the context is cancelled.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("analysis runner started",
		zap.Duration("interval", r.interval),
		zap.Strings("symbols", r.engine.Config().Symbols),
	)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("analysis runner stopped")

			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs one analysis pass over every configured symbol. Failures
// for one symbol are logged and do not stop the pass.
func (r *Runner) RunOnce(ctx context.Context) []engine.AnalysisResult {
	cfg := r.engine.Config()
	results := make([]engine.AnalysisResult, 0, len(cfg.Symbols))

	for _, symbol := range cfg.Symbols {
		result, err := r.analyzeSymbol(ctx, symbol)
		if err != nil {
			r.log.Error("analysis pass failed",
				zap.String("symbol", symbol),
				zap.Error(err),
			)

			continue
		}

		results = append(results, result)

		if result.Signal.IsNone() {
			continue
		}

		if !cfg.BroadcastEnabled {
			r.log.Info("broadcast disabled, dropping signal",
				zap.String("symbol", symbol),
				zap.String("signal_id", result.Signal.Unwrap().ID),
			)

			continue
		}

		signal := result.Signal.Unwrap()
		if err := r.hub.Broadcast(signal); err != nil {
			r.log.Error("failed to broadcast signal",
				zap.String("symbol", symbol),
				zap.String("signal_id", signal.ID),
				zap.Error(err),
			)
		}
	}

	return results
}

func (r *Runner) analyzeSymbol(ctx context.Context, symbol string) (engine.AnalysisResult, error) {
	candles1m, err := r.source.GetCandles(ctx, symbol, types.Timeframe1m, r.lookback)
	if err != nil {
		return engine.AnalysisResult{}, err
	}

	candles3m, err := r.source.GetCandles(ctx, symbol, types.Timeframe3m, r.lookback)
	if err != nil {
		return engine.AnalysisResult{}, err
	}

	candles5m, err := r.source.GetCandles(ctx, symbol, types.Timeframe5m, r.lookback)
	if err != nil {
		return engine.AnalysisResult{}, err
	}

	return r.engine.Analyze(symbol, candles1m, candles3m, candles5m)
}
