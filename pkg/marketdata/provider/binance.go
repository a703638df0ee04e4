package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/openquant-labs/signalfan/internal/types"
	"github.com/openquant-labs/signalfan/pkg/marketdata/writer"
)

// binanceMaxKlines is the per-request cap on the klines endpoint.
const binanceMaxKlines = 500

// BinanceKlinesService mirrors the SDK's klines request builder so tests can
// substitute a scripted implementation.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Limit(limit int) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceAPIClient is the slice of the Binance SDK the provider consumes.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

type realBinanceClient struct {
	client *binance.Client
}

func (c *realBinanceClient) NewKlinesService() BinanceKlinesService {
	return &realKlinesService{service: c.client.NewKlinesService()}
}

type realKlinesService struct {
	service *binance.KlinesService
}

func (s *realKlinesService) Symbol(symbol string) BinanceKlinesService {
	s.service.Symbol(symbol)

	return s
}

func (s *realKlinesService) Interval(interval string) BinanceKlinesService {
	s.service.Interval(interval)

	return s
}

func (s *realKlinesService) StartTime(startTime int64) BinanceKlinesService {
	s.service.StartTime(startTime)

	return s
}

func (s *realKlinesService) EndTime(endTime int64) BinanceKlinesService {
	s.service.EndTime(endTime)

	return s
}

func (s *realKlinesService) Limit(limit int) BinanceKlinesService {
	s.service.Limit(limit)

	return s
}

func (s *realKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

// BinanceProvider fetches spot klines. The klines endpoint is public, so no
// credentials are required.
type BinanceProvider struct {
	api    BinanceAPIClient
	writer writer.CandleWriter
}

// NewBinanceProvider creates a provider against the public Binance API.
func NewBinanceProvider() *BinanceProvider {
	return &BinanceProvider{
		api: &realBinanceClient{client: binance.NewClient("", "")},
	}
}

// newBinanceProviderWithClient is the injection point for tests.
func newBinanceProviderWithClient(api BinanceAPIClient) *BinanceProvider {
	return &BinanceProvider{api: api}
}

// ConfigWriter implements Provider.
func (p *BinanceProvider) ConfigWriter(w writer.CandleWriter) {
	p.writer = w
}

// GetCandles implements Provider.
func (p *BinanceProvider) GetCandles(ctx context.Context, symbol string, timeframe types.Timeframe, limit int) ([]types.Candle, error) {
	if limit <= 0 || limit > binanceMaxKlines {
		limit = binanceMaxKlines
	}

	klines, err := p.api.NewKlinesService().
		Symbol(symbol).
		Interval(string(timeframe)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch klines from Binance: %w", err)
	}

	candles := make([]types.Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, klineToCandle(symbol, timeframe, k))
	}

	return candles, nil
}

// Backfill implements Provider. Pagination follows the endpoint's 500-kline
// page size, advancing past the last kline's close time each page.
func (p *BinanceProvider) Backfill(ctx context.Context, symbol string, timeframe types.Timeframe, startDate, endDate time.Time, onProgress OnBackfillProgress) (int, error) {
	if p.writer == nil {
		return 0, fmt.Errorf("writer is not configured")
	}

	if err := p.writer.Initialize(); err != nil {
		return 0, fmt.Errorf("failed to initialize writer: %w", err)
	}

	startMillis := startDate.UnixMilli()
	endMillis := endDate.UnixMilli()
	currentStart := startMillis
	written := 0

	for {
		klines, err := p.api.NewKlinesService().
			Symbol(symbol).
			Interval(string(timeframe)).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(binanceMaxKlines).
			Do(ctx)
		if err != nil {
			p.writer.Close()

			return written, fmt.Errorf("failed to fetch klines from Binance: %w", err)
		}

		if onProgress != nil {
			onProgress(float64(currentStart-startMillis), float64(endMillis-startMillis),
				fmt.Sprintf("Downloading %s %s klines from Binance", symbol, timeframe))
		}

		for _, k := range klines {
			if err := p.writer.Write(klineToCandle(symbol, timeframe, k)); err != nil {
				p.writer.Close()

				return written, fmt.Errorf("failed to write candle: %w", err)
			}

			written++
		}

		// A short page means the range is exhausted.
		if len(klines) < binanceMaxKlines {
			break
		}

		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	if _, err := p.writer.Finalize(); err != nil {
		return written, fmt.Errorf("failed to finalize writer: %w", err)
	}

	return written, nil
}

func klineToCandle(symbol string, timeframe types.Timeframe, k *binance.Kline) types.Candle {
	open, _ := strconv.ParseFloat(k.Open, 64)
	high, _ := strconv.ParseFloat(k.High, 64)
	low, _ := strconv.ParseFloat(k.Low, 64)
	closePrice, _ := strconv.ParseFloat(k.Close, 64)
	volume, _ := strconv.ParseFloat(k.Volume, 64)

	return types.Candle{
		Symbol:    symbol,
		Timeframe: timeframe,
		Time:      time.UnixMilli(k.OpenTime),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}
}
