package indicator

import "github.com/openquant-labs/signalfan/internal/types"

const (
	// VolatileATRPctCutoff is the ATR as a percentage of price above which the
	// market is classified VOLATILE regardless of trend.
	VolatileATRPctCutoff = 1.5

	// rangingADXCeiling separates directionless chop from a neutral drift.
	rangingADXCeiling = 20.0
)

// ClassifyRegime buckets the last lookback candles into a market regime.
// An ATR above VolatileATRPctCutoff percent of price overrides the trend
// classification; otherwise the window's price change against changeThresholdPct
// decides BULLISH/BEARISH, and weak directional movement splits RANGING from
// NEUTRAL. Series shorter than the lookback return NEUTRAL.
func ClassifyRegime(candles []types.Candle, lookback int, changeThresholdPct float64) types.MarketRegime {
	if lookback <= 0 || len(candles) < lookback {
		return types.MarketRegimeNeutral
	}

	window := candles[len(candles)-lookback:]
	lastClose := window[len(window)-1].Close

	if lastClose <= 0 {
		return types.MarketRegimeNeutral
	}

	atr := ATR(window, DefaultATRPeriod)
	if atr/lastClose*100 > VolatileATRPctCutoff {
		return types.MarketRegimeVolatile
	}

	firstClose := window[0].Close
	if firstClose <= 0 {
		return types.MarketRegimeNeutral
	}

	changePct := (lastClose - firstClose) / firstClose * 100

	switch {
	case changePct >= changeThresholdPct:
		return types.MarketRegimeBullish
	case changePct <= -changeThresholdPct:
		return types.MarketRegimeBearish
	}

	if ADX(window, DefaultADXPeriod) < rangingADXCeiling {
		return types.MarketRegimeRanging
	}

	return types.MarketRegimeNeutral
}

// TrendFromEMAs derives the trend direction from a fast/slow EMA pair.
func TrendFromEMAs(fast, slow float64) types.TrendDirection {
	switch {
	case fast > slow:
		return types.TrendUp
	case fast < slow:
		return types.TrendDown
	default:
		return types.TrendSideways
	}
}
