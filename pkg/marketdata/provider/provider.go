// Package provider fetches OHLCV candles from external market data venues,
// either live (a bounded window ending now) or as a historical backfill
// written through a configured writer.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/openquant-labs/signalfan/internal/types"
	"github.com/openquant-labs/signalfan/pkg/marketdata/writer"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

// OnBackfillProgress reports backfill progress to the caller.
type OnBackfillProgress = func(current float64, total float64, message string)

// Provider supplies candle series for one or more symbols.
type Provider interface {
	// ConfigWriter sets the destination for Backfill downloads.
	ConfigWriter(writer writer.CandleWriter)
	// GetCandles returns up to limit most-recent candles for the symbol and
	// timeframe, oldest first.
	GetCandles(ctx context.Context, symbol string, timeframe types.Timeframe, limit int) ([]types.Candle, error)
	// Backfill downloads the candle history for the date range through the
	// configured writer and returns the number of candles written.
	Backfill(ctx context.Context, symbol string, timeframe types.Timeframe, startDate, endDate time.Time, onProgress OnBackfillProgress) (int, error)
}

// NewCandleProvider creates a provider of the given type. The polygon
// provider requires an API key as config.
func NewCandleProvider(providerType ProviderType, config any) (Provider, error) {
	switch providerType {
	case ProviderBinance:
		return NewBinanceProvider(), nil
	case ProviderPolygon:
		apiKey, ok := config.(string)
		if !ok {
			return nil, fmt.Errorf("polygon provider requires API key string config")
		}

		return NewPolygonProvider(apiKey)
	default:
		return nil, fmt.Errorf("unsupported market data provider: %s", providerType)
	}
}
