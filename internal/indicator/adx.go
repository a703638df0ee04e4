package indicator

import "github.com/openquant-labs/signalfan/internal/types"

// ADX calculates the Average Directional Index over the candles, measuring
// trend strength regardless of direction. Directional movement and true range
// are smoothed with Wilder's method; the resulting DX values are averaged into
// the ADX. Series shorter than 2*period+1 return the neutral default of 25.
func ADX(candles []types.Candle, period int) float64 {
	if period <= 0 || len(candles) < 2*period+1 {
		return DefaultADX
	}

	plusDMs := make([]float64, 0, len(candles)-1)
	minusDMs := make([]float64, 0, len(candles)-1)
	trs := make([]float64, 0, len(candles)-1)

	for i := 1; i < len(candles); i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low

		plusDM := 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}

		minusDM := 0.0
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}

		plusDMs = append(plusDMs, plusDM)
		minusDMs = append(minusDMs, minusDM)
		trs = append(trs, TrueRange(candles[i].High, candles[i].Low, candles[i-1].Close))
	}

	smoothedPlusDM := wilderSum(plusDMs, period)
	smoothedMinusDM := wilderSum(minusDMs, period)
	smoothedTR := wilderSum(trs, period)

	dxs := make([]float64, 0, len(smoothedTR))

	for i := range smoothedTR {
		if smoothedTR[i] == 0 {
			dxs = append(dxs, 0)

			continue
		}

		plusDI := 100 * smoothedPlusDM[i] / smoothedTR[i]
		minusDI := 100 * smoothedMinusDM[i] / smoothedTR[i]

		sum := plusDI + minusDI
		if sum == 0 {
			dxs = append(dxs, 0)

			continue
		}

		diff := plusDI - minusDI
		if diff < 0 {
			diff = -diff
		}

		dxs = append(dxs, 100*diff/sum)
	}

	if len(dxs) < period {
		return DefaultADX
	}

	// ADX is the Wilder average of the DX series
	adx := 0.0
	for i := 0; i < period; i++ {
		adx += dxs[i]
	}

	adx /= float64(period)

	for i := period; i < len(dxs); i++ {
		adx = (adx*float64(period-1) + dxs[i]) / float64(period)
	}

	return adx
}

// wilderSum applies Wilder's running-sum smoothing to the series, producing
// one smoothed value per input element from index period-1 onward.
func wilderSum(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}

	smoothed := make([]float64, 0, len(values)-period+1)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}

	smoothed = append(smoothed, sum)

	for i := period; i < len(values); i++ {
		sum = sum - sum/float64(period) + values[i]
		smoothed = append(smoothed, sum)
	}

	return smoothed
}
