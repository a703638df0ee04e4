package indicator

import "math"

// BollingerBands holds the three band levels.
type BollingerBands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger calculates Bollinger bands over the close prices: the middle band
// is the period SMA, the outer bands sit stdDevs standard deviations away.
// Series shorter than the period collapse all three bands onto the last close.
func Bollinger(closes []float64, period int, stdDevs float64) BollingerBands {
	if len(closes) == 0 || period <= 0 {
		return BollingerBands{}
	}

	if len(closes) < period {
		last := closes[len(closes)-1]

		return BollingerBands{Upper: last, Middle: last, Lower: last}
	}

	window := closes[len(closes)-period:]
	middle := SMA(window, period)

	variance := 0.0
	for _, v := range window {
		diff := v - middle
		variance += diff * diff
	}

	sigma := math.Sqrt(variance / float64(period))

	return BollingerBands{
		Upper:  middle + stdDevs*sigma,
		Middle: middle,
		Lower:  middle - stdDevs*sigma,
	}
}
