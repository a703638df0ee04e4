package types

import "time"

// Timeframe identifies the bar interval of a candle series.
type Timeframe string

const (
	Timeframe1m Timeframe = "1m"
	Timeframe3m Timeframe = "3m"
	Timeframe5m Timeframe = "5m"
)

// Duration returns the bar length of the timeframe.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case Timeframe1m:
		return time.Minute
	case Timeframe3m:
		return 3 * time.Minute
	case Timeframe5m:
		return 5 * time.Minute
	default:
		return 0
	}
}

// Candle is a single immutable OHLCV bar supplied by a market data provider.
type Candle struct {
	Symbol    string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Timeframe Timeframe `yaml:"timeframe" json:"timeframe" csv:"timeframe"`
	Time      time.Time `yaml:"time" json:"time" csv:"time"`
	Open      float64   `yaml:"open" json:"open" csv:"open"`
	High      float64   `yaml:"high" json:"high" csv:"high"`
	Low       float64   `yaml:"low" json:"low" csv:"low"`
	Close     float64   `yaml:"close" json:"close" csv:"close"`
	Volume    float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Closes extracts the close prices of a candle series in order.
func Closes(candles []Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	return closes
}

// Volumes extracts the volumes of a candle series in order.
func Volumes(candles []Candle) []float64 {
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		volumes[i] = c.Volume
	}

	return volumes
}
