// Package marketdata downloads candle history from external providers and
// stores it as Parquet files for analysis and replay.
package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/openquant-labs/signalfan/internal/types"
	"github.com/openquant-labs/signalfan/pkg/marketdata/provider"
	"github.com/openquant-labs/signalfan/pkg/marketdata/writer"
)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	ProviderType  provider.ProviderType `validate:"required,oneof=polygon binance"`
	DataPath      string                `validate:"required"`
	PolygonApiKey string                `validate:"required_if=ProviderType polygon"`
}

// BackfillParams holds the parameters for one backfill request.
type BackfillParams struct {
	Symbol    string          `validate:"required"`
	Timeframe types.Timeframe `validate:"required,oneof=1m 3m 5m"`
	StartDate time.Time       `validate:"required"`
	EndDate   time.Time       `validate:"required,gtfield=StartDate"`
}

// Client wires a candle provider to a Parquet writer per backfill request.
type Client struct {
	provider provider.Provider
	config   ClientConfig
	validate *validator.Validate
}

// NewClient validates the configuration and constructs the provider.
func NewClient(config ClientConfig) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	var providerConfig any
	if config.ProviderType == provider.ProviderPolygon {
		providerConfig = config.PolygonApiKey
	}

	candleProvider, err := provider.NewCandleProvider(config.ProviderType, providerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	return &Client{
		provider: candleProvider,
		config:   config,
		validate: validate,
	}, nil
}

// Provider exposes the underlying candle provider for live fetches.
func (c *Client) Provider() provider.Provider {
	return c.provider
}

// Backfill downloads the requested range into a Parquet file under the
// client's data path and returns the file path and candle count.
func (c *Client) Backfill(ctx context.Context, params BackfillParams, onProgress provider.OnBackfillProgress) (string, int, error) {
	if err := c.validate.Struct(params); err != nil {
		return "", 0, fmt.Errorf("invalid backfill params: %w", err)
	}

	if err := os.MkdirAll(c.config.DataPath, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create data path: %w", err)
	}

	outputPath := filepath.Join(c.config.DataPath, backfillFilename(params))

	c.provider.ConfigWriter(writer.NewDuckDBWriter(outputPath))

	count, err := c.provider.Backfill(ctx, params.Symbol, params.Timeframe, params.StartDate, params.EndDate, onProgress)
	if err != nil {
		return "", count, err
	}

	return outputPath, count, nil
}

func backfillFilename(params BackfillParams) string {
	return fmt.Sprintf("%s_%s_%s_%s.parquet",
		params.Symbol,
		params.Timeframe,
		params.StartDate.Format("20060102"),
		params.EndDate.Format("20060102"),
	)
}
