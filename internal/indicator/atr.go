package indicator

import (
	"math"

	"github.com/openquant-labs/signalfan/internal/types"
)

// TrueRange calculates the true range of a bar given the previous close:
// the greatest of high-low, |high-prevClose| and |low-prevClose|.
func TrueRange(high, low, prevClose float64) float64 {
	tr := high - low
	if hc := math.Abs(high - prevClose); hc > tr {
		tr = hc
	}

	if lc := math.Abs(low - prevClose); lc > tr {
		tr = lc
	}

	return tr
}

// ATR calculates the Average True Range over the candles using Wilder's
// smoothing. Series shorter than period+1 return 0.
func ATR(candles []types.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return DefaultATR
	}

	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		trs = append(trs, TrueRange(candles[i].High, candles[i].Low, candles[i-1].Close))
	}

	// First average
	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trs[i]
	}

	atr /= float64(period)

	// Wilder smoothing for the remainder
	for i := period; i < len(trs); i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)
	}

	return atr
}
