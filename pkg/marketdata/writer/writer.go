package writer

import (
	"github.com/openquant-labs/signalfan/internal/types"
)

// CandleWriter defines the interface for persisting downloaded candles.
type CandleWriter interface {
	// Initialize sets up the writer, potentially creating tables or files.
	Initialize() error
	// Write persists a single candle.
	Write(candle types.Candle) error
	// Finalize completes the writing process and returns the output path.
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
	// GetOutputPath returns the configured output file path.
	GetOutputPath() string
}
