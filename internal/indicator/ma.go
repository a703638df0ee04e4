package indicator

// SMA calculates the simple moving average of the last period values.
// Shorter series average whatever is available; an empty series returns 0.
func SMA(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return 0
	}

	if len(values) < period {
		period = len(values)
	}

	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}

	return sum / float64(period)
}

// EMA calculates the exponential moving average of the values using the
// standard smoothing factor 2/(period+1), seeded with the SMA of the first
// period values. Series shorter than the period fall back to the SMA of the
// whole series.
func EMA(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return 0
	}

	if len(values) < period {
		return SMA(values, len(values))
	}

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}

	ema := seed / float64(period)
	multiplier := 2.0 / (float64(period) + 1.0)

	for _, v := range values[period:] {
		ema = (v-ema)*multiplier + ema
	}

	return ema
}
