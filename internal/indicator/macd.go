package indicator

// MACDHistogram calculates the MACD histogram proxy: fast EMA minus slow EMA.
// The signal line is simplified to zero for low-latency use, so the histogram
// equals the MACD line itself. Series shorter than the slow period return 0.
func MACDHistogram(closes []float64, fastPeriod, slowPeriod int) float64 {
	if fastPeriod <= 0 || slowPeriod <= 0 || len(closes) < slowPeriod {
		return 0
	}

	return EMA(closes, fastPeriod) - EMA(closes, slowPeriod)
}
