package engine

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/openquant-labs/signalfan/internal/logger"
	"github.com/openquant-labs/signalfan/internal/types"
	"github.com/openquant-labs/signalfan/internal/version"
	"github.com/openquant-labs/signalfan/pkg/errors"
)

// ConfigVersion is the strategy configuration schema version this engine
// understands. Configs with a different major version are rejected.
const ConfigVersion = "1.0.0"

// Config is the strategy configuration for the signal engine. Unknown fields
// are rejected at decode time; every recognized option is a named field.
type Config struct {
	// Version is the config schema version, checked against ConfigVersion.
	Version string `yaml:"version" json:"version" validate:"required"`

	// Symbols is the list of symbols to analyze.
	Symbols []string `yaml:"symbols" json:"symbols" validate:"required,min=1"`

	// PrimaryTimeframe feeds the volume filter and the indicator snapshot.
	PrimaryTimeframe types.Timeframe `yaml:"primary_timeframe" json:"primaryTimeframe" validate:"required"`
	// ConfirmationTimeframes must agree with the primary before a signal fires.
	ConfirmationTimeframes []types.Timeframe `yaml:"confirmation_timeframes" json:"confirmationTimeframes" validate:"required,min=1"`

	// RiskPerTradePct is the default percentage of balance risked per trade.
	RiskPerTradePct float64 `yaml:"risk_per_trade_pct" json:"riskPerTradePct" validate:"gt=0,lte=100"`
	// Leverage applied to positions opened from the engine's signals.
	Leverage int `yaml:"leverage" json:"leverage" validate:"gte=1,lte=125"`
	// StopLossPct and TakeProfitPct place the signal bracket around entry.
	StopLossPct   float64 `yaml:"stop_loss_pct" json:"stopLossPct" validate:"gt=0,lt=100"`
	TakeProfitPct float64 `yaml:"take_profit_pct" json:"takeProfitPct" validate:"gt=0,lt=1000"`

	// Trailing-stop parameters copied onto every emitted signal.
	TrailingProfitActivatePct float64 `yaml:"trailing_profit_activate_pct" json:"trailingProfitActivatePct" validate:"gte=0"`
	TrailingProfitTrailPct    float64 `yaml:"trailing_profit_trail_pct" json:"trailingProfitTrailPct" validate:"gte=0"`
	TrailingLossActivatePct   float64 `yaml:"trailing_loss_activate_pct" json:"trailingLossActivatePct" validate:"lte=0"`
	TrailingLossTrailPct      float64 `yaml:"trailing_loss_trail_pct" json:"trailingLossTrailPct" validate:"gte=0"`

	// Filter thresholds.
	MACDMinStrength float64 `yaml:"macd_min_strength" json:"macdMinStrength" validate:"gte=0"`
	VolumeMin       float64 `yaml:"volume_min" json:"volumeMin" validate:"gt=0"`
	VolumeMax       float64 `yaml:"volume_max" json:"volumeMax" validate:"gtfield=VolumeMin"`
	ADXMin          float64 `yaml:"adx_min" json:"adxMin" validate:"gte=0"`
	ADXMax          float64 `yaml:"adx_max" json:"adxMax" validate:"gtfield=ADXMin"`
	RSIMin          float64 `yaml:"rsi_min" json:"rsiMin" validate:"gte=0,lte=100"`
	RSIMax          float64 `yaml:"rsi_max" json:"rsiMax" validate:"gtfield=RSIMin,lte=100"`

	// ConfirmationCandles is the minimum series length per timeframe.
	ConfirmationCandles int `yaml:"confirmation_candles" json:"confirmationCandles" validate:"gte=1"`

	// Market-bias classification window and threshold.
	BiasLookback     int     `yaml:"bias_lookback" json:"biasLookback" validate:"gte=2"`
	BiasThresholdPct float64 `yaml:"bias_threshold_pct" json:"biasThresholdPct" validate:"gt=0"`

	// Low-liquidity UTC window rejected by the trading-hours filter.
	// Start == End disables the window.
	QuietHourStartUTC int `yaml:"quiet_hour_start_utc" json:"quietHourStartUTC" validate:"gte=0,lte=23"`
	QuietHourEndUTC   int `yaml:"quiet_hour_end_utc" json:"quietHourEndUTC" validate:"gte=0,lte=23"`

	// SignalTTLMinutes is the lifetime of an emitted signal.
	SignalTTLMinutes int `yaml:"signal_ttl_minutes" json:"signalTTLMinutes" validate:"gte=1"`

	// BroadcastEnabled gates publishing to the hub.
	BroadcastEnabled bool `yaml:"broadcast_enabled" json:"broadcastEnabled"`
}

// DefaultConfig returns the hard-coded fallback configuration used when no
// persisted configuration is available.
func DefaultConfig() Config {
	return Config{
		Version:                   ConfigVersion,
		Symbols:                   []string{"BTCUSDT"},
		PrimaryTimeframe:          types.Timeframe1m,
		ConfirmationTimeframes:    []types.Timeframe{types.Timeframe3m, types.Timeframe5m},
		RiskPerTradePct:           1.0,
		Leverage:                  5,
		StopLossPct:               1.0,
		TakeProfitPct:             2.0,
		TrailingProfitActivatePct: 1.0,
		TrailingProfitTrailPct:    0.4,
		TrailingLossActivatePct:   -1.0,
		TrailingLossTrailPct:      0.5,
		MACDMinStrength:           0.0001,
		VolumeMin:                 0.8,
		VolumeMax:                 2.0,
		ADXMin:                    20,
		ADXMax:                    60,
		RSIMin:                    30,
		RSIMax:                    70,
		ConfirmationCandles:       30,
		BiasLookback:              30,
		BiasThresholdPct:          1.0,
		QuietHourStartUTC:         22,
		QuietHourEndUTC:           1,
		SignalTTLMinutes:          5,
		BroadcastEnabled:          true,
	}
}

// Validate checks the configuration fields and the schema version.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeEngineConfigError, "invalid engine config", err)
	}

	if err := version.CheckConfigCompatibility(ConfigVersion, c.Version); err != nil {
		return errors.Wrap(errors.ErrCodeVersionMismatch, "unsupported config version", err)
	}

	return nil
}

// TrailingConfig returns the trailing parameters carried by signals, or false
// when trailing is disabled (any zero distance or activation).
func (c *Config) TrailingConfig() (types.TrailingConfig, bool) {
	if c.TrailingProfitActivatePct <= 0 || c.TrailingProfitTrailPct <= 0 ||
		c.TrailingLossActivatePct >= 0 || c.TrailingLossTrailPct <= 0 {
		return types.TrailingConfig{}, false
	}

	return types.TrailingConfig{
		ProfitActivatePct: c.TrailingProfitActivatePct,
		ProfitTrailPct:    c.TrailingProfitTrailPct,
		LossActivatePct:   c.TrailingLossActivatePct,
		LossTrailPct:      c.TrailingLossTrailPct,
	}, true
}

// ConfigSource supplies the persisted strategy configuration as YAML.
// The store implements it; tests can supply a literal document.
type ConfigSource interface {
	StrategyConfig(ctx context.Context) (string, error)
}

// ParseConfig decodes a YAML configuration document. Unknown fields are
// rejected at this boundary rather than silently dropped.
func ParseConfig(doc string) (Config, error) {
	var cfg Config

	decoder := yaml.NewDecoder(strings.NewReader(doc))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeConfigDecodeFailed, "failed to decode engine config", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadConfig hydrates the engine configuration from the source, falling back
// to DefaultConfig when the source is unavailable or holds no document.
// Signals already in flight are never mutated by a reload.
func LoadConfig(ctx context.Context, source ConfigSource, log *logger.Logger) Config {
	doc, err := source.StrategyConfig(ctx)
	if err != nil || doc == "" {
		log.Warn("no persisted strategy config, using defaults", zap.Error(err))

		return DefaultConfig()
	}

	cfg, err := ParseConfig(doc)
	if err != nil {
		log.Error("persisted strategy config invalid, using defaults", zap.Error(err))

		return DefaultConfig()
	}

	return cfg
}
