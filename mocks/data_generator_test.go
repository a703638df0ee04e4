package mocks

import (
	"testing"
)

func TestDataGenerator_Generate(t *testing.T) {
	gen := NewDataGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Count = 100

	candles := gen.Generate(config)

	if len(candles) != 100 {
		t.Errorf("expected 100 candles, got %d", len(candles))
	}

	// Verify candles are in chronological order
	for i := 1; i < len(candles); i++ {
		if !candles[i].Time.After(candles[i-1].Time) {
			t.Errorf("candles not in chronological order at index %d", i)
		}
	}

	// Verify symbol and timeframe are set correctly
	for i, c := range candles {
		if c.Symbol != config.Symbol {
			t.Errorf("expected symbol %s at index %d, got %s", config.Symbol, i, c.Symbol)
		}
		if c.Timeframe != config.Timeframe {
			t.Errorf("expected timeframe %s at index %d, got %s", config.Timeframe, i, c.Timeframe)
		}
	}

	// Verify OHLC values are positive
	for i, c := range candles {
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			t.Errorf("invalid OHLC values at index %d: O=%f H=%f L=%f C=%f",
				i, c.Open, c.High, c.Low, c.Close)
		}
	}

	// Verify High >= Low
	for i, c := range candles {
		if c.High < c.Low {
			t.Errorf("High < Low at index %d: H=%f L=%f", i, c.High, c.Low)
		}
	}

	// Verify time intervals match the timeframe
	expectedInterval := config.Timeframe.Duration()
	for i := 1; i < len(candles); i++ {
		actualInterval := candles[i].Time.Sub(candles[i-1].Time)
		if actualInterval != expectedInterval {
			t.Errorf("unexpected interval at index %d: expected %v, got %v",
				i, expectedInterval, actualInterval)
		}
	}
}

func TestDataGenerator_Reproducibility(t *testing.T) {
	// Same seed should produce same results
	gen1 := NewDataGenerator(42)
	gen2 := NewDataGenerator(42)

	config := DefaultConfig()
	config.Count = 10

	candles1 := gen1.Generate(config)
	candles2 := gen2.Generate(config)

	for i := range candles1 {
		if candles1[i].Close != candles2[i].Close {
			t.Errorf("data not reproducible at index %d: got %f and %f",
				i, candles1[i].Close, candles2[i].Close)
		}
	}
}

func TestDataGenerator_DifferentSeeds(t *testing.T) {
	gen1 := NewDataGenerator(42)
	gen2 := NewDataGenerator(123)

	config := DefaultConfig()
	config.Count = 10

	candles1 := gen1.Generate(config)
	candles2 := gen2.Generate(config)

	same := true
	for i := range candles1 {
		if candles1[i].Close != candles2[i].Close {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical series")
	}
}

func TestDataGenerator_MultiSymbol(t *testing.T) {
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Count = 50

	symbols := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	candles := gen.GenerateMultiSymbol(symbols, config)

	if len(candles) != len(symbols)*config.Count {
		t.Errorf("expected %d candles, got %d", len(symbols)*config.Count, len(candles))
	}

	seen := make(map[string]int)
	for _, c := range candles {
		seen[c.Symbol]++
	}
	for _, s := range symbols {
		if seen[s] != config.Count {
			t.Errorf("expected %d candles for %s, got %d", config.Count, s, seen[s])
		}
	}
}

func TestDataGenerator_TrendDirection(t *testing.T) {
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Count = 5000
	config.Trend = 0.5

	candles := gen.Generate(config)

	start := candles[0].Close
	end := candles[len(candles)-1].Close
	if end <= start {
		t.Errorf("strong positive trend should drift up over %d bars: start=%f end=%f",
			config.Count, start, end)
	}

	if !candles[0].Time.Equal(config.StartTime) {
		t.Errorf("first candle time mismatch: expected %v, got %v", config.StartTime, candles[0].Time)
	}
}
