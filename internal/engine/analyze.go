package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/openquant-labs/signalfan/internal/indicator"
	"github.com/openquant-labs/signalfan/internal/logger"
	"github.com/openquant-labs/signalfan/internal/types"
	"github.com/openquant-labs/signalfan/pkg/errors"
)

// Engine runs the ordered filter pipeline over multi-timeframe candle series
// and emits at most one fully-specified trading signal per call. The engine
// holds no mutable state between calls; it is safe to share across symbols.
type Engine struct {
	cfg Config
	log *logger.Logger
	now func() time.Time
}

// New creates a signal engine with a validated configuration.
func New(cfg Config, log *logger.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		cfg: cfg,
		log: log,
		now: time.Now,
	}, nil
}

// WithClock overrides the engine's wall clock. Intended for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now

	return e
}

// Config returns the engine's active configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Analyze runs the filter pipeline for the symbol over the 1m, 3m and 5m
// candle series. Each filter short-circuits the pipeline on failure; the
// result records a verdict for every filter either way. A signal is attached
// only when every filter passes.
func (e *Engine) Analyze(symbol string, candles1m, candles3m, candles5m []types.Candle) (AnalysisResult, error) {
	now := e.now().UTC()

	result := AnalysisResult{
		Symbol:     symbol,
		AnalyzedAt: now,
		Passed:     false,
		Filters:    newFilterReport(),
		Regime:     types.MarketRegimeNeutral,
		Votes:      nil,
		Signal:     nil,
	}

	minCandles := e.cfg.ConfirmationCandles
	if minCandles < 1 {
		minCandles = 1
	}

	if len(candles1m) < minCandles || len(candles3m) < minCandles || len(candles5m) < minCandles {
		return result, errors.Newf(errors.ErrCodeInvalidParameter,
			"analyze %s: each timeframe series needs at least %d candles (got 1m=%d 3m=%d 5m=%d)",
			symbol, minCandles, len(candles1m), len(candles3m), len(candles5m))
	}

	// 1. Trading hours
	hours := e.checkTradingHours(now)
	result.Filters.TradingHours = hours

	if !hours.Passed {
		return result, nil
	}

	// 2. Market regime, classified on the slowest confirmation series
	regime := indicator.ClassifyRegime(candles5m, e.cfg.BiasLookback, e.cfg.BiasThresholdPct)
	result.Regime = regime

	if regime == types.MarketRegimeRanging || regime == types.MarketRegimeVolatile {
		result.Filters.MarketRegime = fail(fmt.Sprintf("regime %s is not tradeable", regime))

		return result, nil
	}

	result.Filters.MarketRegime = pass(fmt.Sprintf("regime %s", regime))

	// 3. Volume on the primary timeframe
	volumeRatio := indicator.VolumeRatio(candles1m, indicator.DefaultVolumePeriod)
	if volumeRatio < e.cfg.VolumeMin || volumeRatio > e.cfg.VolumeMax {
		result.Filters.VolumeCheck = fail(fmt.Sprintf("volume ratio %.2f outside [%.2f, %.2f]",
			volumeRatio, e.cfg.VolumeMin, e.cfg.VolumeMax))

		return result, nil
	}

	result.Filters.VolumeCheck = pass(fmt.Sprintf("volume ratio %.2f", volumeRatio))

	// 4. Multi-timeframe confirmation
	series := []struct {
		tf      types.Timeframe
		candles []types.Candle
	}{
		{types.Timeframe1m, candles1m},
		{types.Timeframe3m, candles3m},
		{types.Timeframe5m, candles5m},
	}

	votes := make([]types.TimeframeVote, 0, len(series))
	for _, s := range series {
		snapshot := computeSnapshot(s.candles)
		price := s.candles[len(s.candles)-1].Close
		action, confidence := e.voteFromSnapshot(snapshot, price)

		votes = append(votes, types.TimeframeVote{
			Timeframe:  s.tf,
			Action:     action,
			Confidence: confidence,
		})
	}

	result.Votes = votes

	direction := votes[0].Action
	agreed := direction != types.SignalActionHold

	for _, v := range votes[1:] {
		if v.Action != direction {
			agreed = false

			break
		}
	}

	if !agreed {
		result.Filters.MultiTimeframe = fail(fmt.Sprintf(
			"timeframes disagree: 1m=%s 3m=%s 5m=%s", votes[0].Action, votes[1].Action, votes[2].Action))

		return result, nil
	}

	confidence := 0.0
	for _, v := range votes {
		confidence += v.Confidence
	}

	confidence /= float64(len(votes))
	if confidence > 100 {
		confidence = 100
	}

	result.Filters.MultiTimeframe = pass(fmt.Sprintf(
		"all timeframes agree on %s, confidence %.1f", direction, confidence))

	// 5. Indicator thresholds on the primary timeframe
	primary := computeSnapshot(candles1m)
	entryPrice := candles1m[len(candles1m)-1].Close

	thresholds := e.checkThresholds(primary, entryPrice)
	result.Filters.IndicatorThresholds = thresholds

	if !thresholds.Passed {
		return result, nil
	}

	signal, err := e.buildSignal(symbol, direction, confidence, entryPrice, primary, regime, votes, now)
	if err != nil {
		return result, err
	}

	result.Passed = true
	result.Signal = optional.Some(signal)

	e.log.Info("signal generated",
		zap.String("symbol", symbol),
		zap.String("action", string(signal.Action)),
		zap.Float64("confidence", signal.Confidence),
		zap.String("strength", string(signal.Strength)),
		zap.Float64("entry", signal.EntryPrice),
	)

	return result, nil
}

// checkTradingHours rejects weekends and the configured low-liquidity UTC
// window. A window with equal start and end hours is disabled.
func (e *Engine) checkTradingHours(now time.Time) FilterCheck {
	weekday := now.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return fail(fmt.Sprintf("weekend (%s)", weekday))
	}

	start, end := e.cfg.QuietHourStartUTC, e.cfg.QuietHourEndUTC
	if start != end {
		hour := now.Hour()

		inWindow := false
		if start < end {
			inWindow = hour >= start && hour < end
		} else {
			// Window wraps midnight, e.g. 22 -> 1
			inWindow = hour >= start || hour < end
		}

		if inWindow {
			return fail(fmt.Sprintf("low-liquidity window %02d:00-%02d:00 UTC", start, end))
		}
	}

	return pass("within trading hours")
}

// voteFromSnapshot independently classifies one timeframe as BUY/SELL/HOLD
// using the EMA cross, RSI band membership and MACD-histogram sign. The
// confidence is 50 plus an EMA-gap term, an RSI-distance term and a
// MACD-strength term, capped at 100.
func (e *Engine) voteFromSnapshot(s types.IndicatorSnapshot, price float64) (types.SignalAction, float64) {
	bullish := s.EMAFast > s.EMASlow && s.MACDHistogram > 0 && s.RSI < e.cfg.RSIMax
	bearish := s.EMAFast < s.EMASlow && s.MACDHistogram < 0 && s.RSI > e.cfg.RSIMin

	var action types.SignalAction

	switch {
	case bullish:
		action = types.SignalActionBuy
	case bearish:
		action = types.SignalActionSell
	default:
		return types.SignalActionHold, 0
	}

	confidence := 50.0

	if s.EMASlow != 0 {
		gapPct := math.Abs(s.EMAFast-s.EMASlow) / s.EMASlow * 100
		confidence += math.Min(gapPct*4, 20)
	}

	confidence += (1 - math.Abs(s.RSI-50)/50) * 15

	if price > 0 {
		confidence += math.Min(math.Abs(s.MACDHistogram)/price*10000, 15)
	}

	if confidence > 100 {
		confidence = 100
	}

	return action, confidence
}

// checkThresholds applies the indicator-threshold filter to the primary
// timeframe snapshot.
func (e *Engine) checkThresholds(s types.IndicatorSnapshot, price float64) FilterCheck {
	if s.RSI < e.cfg.RSIMin || s.RSI > e.cfg.RSIMax {
		return fail(fmt.Sprintf("RSI %.1f outside [%.1f, %.1f]", s.RSI, e.cfg.RSIMin, e.cfg.RSIMax))
	}

	if s.ADX < e.cfg.ADXMin || s.ADX > e.cfg.ADXMax {
		return fail(fmt.Sprintf("ADX %.1f outside [%.1f, %.1f]", s.ADX, e.cfg.ADXMin, e.cfg.ADXMax))
	}

	if price <= 0 {
		return fail("non-positive price")
	}

	if math.Abs(s.MACDHistogram)/price < e.cfg.MACDMinStrength {
		return fail(fmt.Sprintf("MACD histogram strength %.6f below %.6f",
			math.Abs(s.MACDHistogram)/price, e.cfg.MACDMinStrength))
	}

	return pass("indicator thresholds satisfied")
}

// buildSignal assembles the final trading signal from the pipeline outputs.
func (e *Engine) buildSignal(
	symbol string,
	direction types.SignalAction,
	confidence float64,
	entryPrice float64,
	snapshot types.IndicatorSnapshot,
	regime types.MarketRegime,
	votes []types.TimeframeVote,
	now time.Time,
) (types.TradingSignal, error) {
	var stopLoss, takeProfit float64

	if direction == types.SignalActionBuy {
		stopLoss = entryPrice * (1 - e.cfg.StopLossPct/100)
		takeProfit = entryPrice * (1 + e.cfg.TakeProfitPct/100)
	} else {
		stopLoss = entryPrice * (1 + e.cfg.StopLossPct/100)
		takeProfit = entryPrice * (1 - e.cfg.TakeProfitPct/100)
	}

	volatility := 0.0
	if entryPrice > 0 {
		volatility = snapshot.ATR / entryPrice * 100
	}

	builder := types.NewSignalBuilder(symbol, direction).
		WithPrices(entryPrice, stopLoss, takeProfit).
		WithConfidence(confidence).
		WithContext(regime, indicator.TrendFromEMAs(snapshot.EMAFast, snapshot.EMASlow), volatility, snapshot).
		WithVotes(votes).
		WithTTL(time.Duration(e.cfg.SignalTTLMinutes) * time.Minute)

	if trailing, ok := e.cfg.TrailingConfig(); ok {
		builder = builder.WithTrailing(trailing)
	}

	return builder.Build(now)
}

// computeSnapshot evaluates the indicator set over a candle series.
func computeSnapshot(candles []types.Candle) types.IndicatorSnapshot {
	closes := types.Closes(candles)

	return types.IndicatorSnapshot{
		EMAFast:       indicator.EMA(closes, indicator.DefaultFastEMAPeriod),
		EMASlow:       indicator.EMA(closes, indicator.DefaultSlowEMAPeriod),
		RSI:           indicator.RSI(closes, indicator.DefaultRSIPeriod),
		MACDHistogram: indicator.MACDHistogram(closes, indicator.DefaultMACDFastPeriod, indicator.DefaultMACDSlowPeriod),
		ADX:           indicator.ADX(candles, indicator.DefaultADXPeriod),
		ATR:           indicator.ATR(candles, indicator.DefaultATRPeriod),
		VolumeRatio:   indicator.VolumeRatio(candles, indicator.DefaultVolumePeriod),
	}
}
