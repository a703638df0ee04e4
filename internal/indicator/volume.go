package indicator

import "github.com/openquant-labs/signalfan/internal/types"

// VolumeRatio calculates the current volume divided by the simple moving
// average of the preceding period volumes. Series shorter than period+1, or a
// zero average, return the neutral default of 1.
func VolumeRatio(candles []types.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return DefaultVolumeRatio
	}

	current := candles[len(candles)-1].Volume
	previous := candles[len(candles)-1-period : len(candles)-1]

	avg := SMA(types.Volumes(previous), period)
	if avg == 0 {
		return DefaultVolumeRatio
	}

	return current / avg
}
