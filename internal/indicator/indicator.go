// Package indicator provides stateless technical indicator functions over
// candle series. All functions are deterministic and side-effect-free: given
// the same candles they return the same value, and series shorter than an
// indicator's required lookback return the indicator's documented default
// instead of an error (RSI -> 50, ADX -> 25, ATR -> 0, volume ratio -> 1).
package indicator

// Default lookback periods.
const (
	DefaultFastEMAPeriod   = 9
	DefaultSlowEMAPeriod   = 21
	DefaultMACDFastPeriod  = 12
	DefaultMACDSlowPeriod  = 26
	DefaultRSIPeriod       = 14
	DefaultADXPeriod       = 14
	DefaultATRPeriod       = 14
	DefaultVolumePeriod    = 20
	DefaultBollingerPeriod = 20
)

// Neutral defaults returned when a series is shorter than the required lookback.
const (
	DefaultRSI         = 50.0
	DefaultADX         = 25.0
	DefaultATR         = 0.0
	DefaultVolumeRatio = 1.0
)
