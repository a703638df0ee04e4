package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/openquant-labs/signalfan/internal/engine"
	"github.com/openquant-labs/signalfan/internal/hub"
	"github.com/openquant-labs/signalfan/internal/logger"
	"github.com/openquant-labs/signalfan/internal/types"
	"github.com/openquant-labs/signalfan/pkg/errors"
)

// analysisTime is a weekday noon kept in the future so signals built against
// it pass the hub's wall-clock expiry check.
var analysisTime = time.Date(2030, 6, 4, 12, 0, 0, 0, time.UTC)

// fakeSource serves pre-built candle series per timeframe, for any symbol.
type fakeSource struct {
	series map[types.Timeframe][]types.Candle
	err    error
	calls  int
}

func (f *fakeSource) GetCandles(_ context.Context, _ string, timeframe types.Timeframe, _ int) ([]types.Candle, error) {
	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	return f.series[timeframe], nil
}

// trendSeries steps the close by upStep and downStep on alternating bars.
func trendSeries(tf types.Timeframe, n int, start, upStep, downStep, volume float64) []types.Candle {
	base := analysisTime.Add(-time.Duration(n) * tf.Duration())
	candles := make([]types.Candle, n)

	close := start
	prev := start
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			close += upStep
		} else {
			close += downStep
		}

		candles[i] = types.Candle{
			Symbol:    "BTCUSDT",
			Timeframe: tf,
			Time:      base.Add(time.Duration(i) * tf.Duration()),
			Open:      prev,
			High:      close + 0.15,
			Low:       close - 0.15,
			Close:     close,
			Volume:    volume,
		}
		prev = close
	}

	return candles
}

func uptrendSeries() map[types.Timeframe][]types.Candle {
	return map[types.Timeframe][]types.Candle{
		types.Timeframe1m: trendSeries(types.Timeframe1m, 60, 100, 0.3, -0.1, 1000),
		types.Timeframe3m: trendSeries(types.Timeframe3m, 60, 100, 0.3, -0.1, 1000),
		types.Timeframe5m: trendSeries(types.Timeframe5m, 60, 100, 0.3, -0.1, 1000),
	}
}

func flatSeries() map[types.Timeframe][]types.Candle {
	return map[types.Timeframe][]types.Candle{
		types.Timeframe1m: trendSeries(types.Timeframe1m, 60, 100, 0, 0, 1000),
		types.Timeframe3m: trendSeries(types.Timeframe3m, 60, 100, 0, 0, 1000),
		types.Timeframe5m: trendSeries(types.Timeframe5m, 60, 100, 0, 0, 1000),
	}
}

type RunnerTestSuite struct {
	suite.Suite
	hub *hub.Hub
}

func TestRunnerSuite(t *testing.T) {
	suite.Run(t, new(RunnerTestSuite))
}

func (s *RunnerTestSuite) SetupTest() {
	s.hub = hub.New(logger.NewNopLogger())
}

func (s *RunnerTestSuite) TearDownTest() {
	s.hub.Close()
}

func (s *RunnerTestSuite) newRunner(cfg engine.Config, source CandleSource) *Runner {
	analysisEngine, err := engine.New(cfg, logger.NewNopLogger())
	s.Require().NoError(err)
	analysisEngine.WithClock(func() time.Time { return analysisTime })

	return New(analysisEngine, s.hub, source, logger.NewNopLogger())
}

// permissiveConfig widens the indicator bands so the trend fixtures pass the
// threshold filters.
func permissiveConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.RSIMin = 15
	cfg.RSIMax = 85
	cfg.ADXMin = 5
	cfg.ADXMax = 95
	cfg.BiasThresholdPct = 0.5

	return cfg
}

func (s *RunnerTestSuite) TestLookbackCoversConfirmationWindow() {
	cfg := permissiveConfig()
	cfg.ConfirmationCandles = DefaultLookback + 80

	runner := s.newRunner(cfg, &fakeSource{series: uptrendSeries()})
	s.Equal(DefaultLookback+80, runner.lookback)

	// A window inside the default leaves the lookback alone.
	runner = s.newRunner(permissiveConfig(), &fakeSource{series: uptrendSeries()})
	s.Equal(DefaultLookback, runner.lookback)
}

func (s *RunnerTestSuite) TestRunOnceBroadcastsEmittedSignal() {
	runner := s.newRunner(permissiveConfig(), &fakeSource{series: uptrendSeries()})

	results := runner.RunOnce(context.Background())
	s.Require().Len(results, 1)
	s.Require().True(results[0].Passed)

	active := s.hub.ActiveSignals()
	s.Require().Len(active, 1)
	s.Equal("BTCUSDT", active[0].Symbol)
	s.Equal(types.SignalActionBuy, active[0].Action)
}

func (s *RunnerTestSuite) TestRunOnceNoSignalNoBroadcast() {
	runner := s.newRunner(permissiveConfig(), &fakeSource{series: flatSeries()})

	results := runner.RunOnce(context.Background())
	s.Require().Len(results, 1)
	s.False(results[0].Passed)
	s.Empty(s.hub.ActiveSignals())
}

func (s *RunnerTestSuite) TestRunOnceBroadcastDisabledDropsSignal() {
	cfg := permissiveConfig()
	cfg.BroadcastEnabled = false

	runner := s.newRunner(cfg, &fakeSource{series: uptrendSeries()})

	results := runner.RunOnce(context.Background())
	s.Require().Len(results, 1)
	s.Require().True(results[0].Passed)
	s.Empty(s.hub.ActiveSignals())
}

func (s *RunnerTestSuite) TestRunOnceSourceErrorSkipsSymbol() {
	source := &fakeSource{err: errors.New(errors.ErrCodeMarketDataFetchFailed, "fetch failed")}
	runner := s.newRunner(permissiveConfig(), source)

	results := runner.RunOnce(context.Background())
	s.Empty(results)
	s.Empty(s.hub.ActiveSignals())
}

func (s *RunnerTestSuite) TestRunOnceAnalyzesEverySymbol() {
	cfg := permissiveConfig()
	cfg.Symbols = []string{"BTCUSDT", "ETHUSDT"}

	source := &fakeSource{series: flatSeries()}
	runner := s.newRunner(cfg, source)

	results := runner.RunOnce(context.Background())
	s.Len(results, 2)
	s.Equal(6, source.calls)
}

func (s *RunnerTestSuite) TestRunStopsOnContextCancel() {
	runner := s.newRunner(permissiveConfig(), &fakeSource{series: flatSeries()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		runner.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		s.Fail("runner did not stop on context cancel")
	}
}
