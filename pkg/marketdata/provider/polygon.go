package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/schollz/progressbar/v3"

	"github.com/openquant-labs/signalfan/internal/types"
	"github.com/openquant-labs/signalfan/pkg/marketdata/writer"
)

// PolygonProvider fetches aggregate bars from Polygon.io.
type PolygonProvider struct {
	client *polygon.Client
	writer writer.CandleWriter
}

// NewPolygonProvider creates a provider with the given API key.
func NewPolygonProvider(apiKey string) (*PolygonProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}

	return &PolygonProvider{
		client: polygon.New(apiKey),
	}, nil
}

// ConfigWriter implements Provider.
func (p *PolygonProvider) ConfigWriter(w writer.CandleWriter) {
	p.writer = w
}

// GetCandles implements Provider. The window is limit bars ending now.
func (p *PolygonProvider) GetCandles(ctx context.Context, symbol string, timeframe types.Timeframe, limit int) ([]types.Candle, error) {
	multiplier, err := timeframeToPolygonMinutes(timeframe)
	if err != nil {
		return nil, err
	}

	end := time.Now().UTC()
	start := end.Add(-time.Duration(limit) * timeframe.Duration())

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   models.Minute,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(50000)

	iter := p.client.ListAggs(ctx, params)

	candles := make([]types.Candle, 0, limit)

	for iter.Next() {
		agg := iter.Item()
		candles = append(candles, aggToCandle(symbol, timeframe, agg))
	}

	if iter.Err() != nil {
		return nil, fmt.Errorf("error iterating polygon aggregates: %w", iter.Err())
	}

	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	return candles, nil
}

// Backfill implements Provider.
func (p *PolygonProvider) Backfill(ctx context.Context, symbol string, timeframe types.Timeframe, startDate, endDate time.Time, onProgress OnBackfillProgress) (written int, err error) {
	if p.writer == nil {
		return 0, fmt.Errorf("no writer configured for PolygonProvider. Call ConfigWriter first")
	}

	multiplier, err := timeframeToPolygonMinutes(timeframe)
	if err != nil {
		return 0, err
	}

	if err = p.writer.Initialize(); err != nil {
		return 0, fmt.Errorf("failed to initialize writer: %w", err)
	}

	defer func() {
		if cerr := p.writer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("error closing writer: %w", cerr)
		}
	}()

	totalDays := int(endDate.Sub(startDate).Hours()/24) + 1
	bar := progressbar.NewOptions(totalDays,
		progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", symbol)),
		progressbar.OptionShowCount())

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   models.Minute,
		From:       models.Millis(startDate),
		To:         models.Millis(endDate),
	}.WithLimit(50000)

	iter := p.client.ListAggs(ctx, params)

	for iter.Next() {
		agg := iter.Item()

		if err = p.writer.Write(aggToCandle(symbol, timeframe, agg)); err != nil {
			return written, fmt.Errorf("failed to write candle: %w", err)
		}

		written++

		if written%1000 == 0 {
			if onProgress != nil {
				onProgress(float64(written), float64(totalDays), fmt.Sprintf("Downloading %s", symbol))
			}

			daysElapsed := int(time.Time(agg.Timestamp).Sub(startDate).Hours() / 24)
			bar.Set(daysElapsed)
		}
	}

	if iter.Err() != nil {
		return written, fmt.Errorf("error iterating polygon aggregates: %w", iter.Err())
	}

	bar.Finish()

	if _, err = p.writer.Finalize(); err != nil {
		return written, fmt.Errorf("failed to finalize writer: %w", err)
	}

	return written, nil
}

func aggToCandle(symbol string, timeframe types.Timeframe, agg models.Agg) types.Candle {
	return types.Candle{
		Symbol:    symbol,
		Timeframe: timeframe,
		Time:      time.Time(agg.Timestamp),
		Open:      agg.Open,
		High:      agg.High,
		Low:       agg.Low,
		Close:     agg.Close,
		Volume:    agg.Volume,
	}
}

func timeframeToPolygonMinutes(timeframe types.Timeframe) (int, error) {
	duration := timeframe.Duration()
	if duration <= 0 {
		return 0, fmt.Errorf("unsupported timeframe for Polygon: %s", timeframe)
	}

	return int(duration / time.Minute), nil
}
