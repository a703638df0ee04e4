package indicator

import (
	"time"

	"github.com/openquant-labs/signalfan/internal/types"
)

// candlesFromCloses builds a candle series where each bar's open is the
// previous close and high/low hug the close by the given range.
func candlesFromCloses(closes []float64, barRange float64) []types.Candle {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, len(closes))

	prev := closes[0]
	for i, c := range closes {
		candles[i] = types.Candle{
			Symbol:    "BTCUSDT",
			Timeframe: types.Timeframe1m,
			Time:      start.Add(time.Duration(i) * time.Minute),
			Open:      prev,
			High:      c + barRange,
			Low:       c - barRange,
			Close:     c,
			Volume:    1000,
		}
		prev = c
	}

	return candles
}

// constantCloses returns n copies of the value.
func constantCloses(n int, value float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = value
	}

	return closes
}

// trendingCloses returns n closes starting at base and stepping by step.
func trendingCloses(n int, base, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = base + float64(i)*step
	}

	return closes
}
