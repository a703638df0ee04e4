package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openquant-labs/signalfan/internal/types"
)

// SubscriberConfig wires one execution bot: its gate settings plus the
// listener-level knobs that sit outside the gate.
type SubscriberConfig struct {
	Settings types.SubscriberSettings `yaml:"settings" validate:"required"`
	// PerformanceFeePct deducts a percentage of positive realized profit.
	// Zero disables the fee.
	PerformanceFeePct float64 `yaml:"performance_fee_pct" validate:"gte=0,lte=100"`
	// DenySymbols are dropped before the decision gate runs.
	DenySymbols []string `yaml:"deny_symbols"`
}

// AppConfig is the process-level configuration for the run command.
// Strategy parameters live in the store, not here.
type AppConfig struct {
	// Listen is the HTTP/WebSocket stream address.
	Listen string `yaml:"listen" validate:"required"`
	// DatabasePath is the DuckDB file backing signals and positions.
	DatabasePath string `yaml:"database_path" validate:"required"`
	// Testnet routes orders to the Binance futures testnet.
	Testnet bool `yaml:"testnet"`

	Subscribers []SubscriberConfig `yaml:"subscribers" validate:"required,min=1,dive"`
}

// DefaultAppConfig returns the configuration used when no file is given.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Listen:       ":8080",
		DatabasePath: "signalfan.db",
		Testnet:      false,
		Subscribers: []SubscriberConfig{
			{
				Settings: types.SubscriberSettings{
					SubscriberID:      "default",
					Enabled:           true,
					MinConfidence:     60,
					MaxOpenPositions:  3,
					RiskPerTradePct:   1.0,
					Leverage:          5,
					MinReserveBalance: 50,
				},
			},
		},
	}
}

// LoadAppConfig reads and validates the YAML application config at path.
// An empty path yields DefaultAppConfig.
func LoadAppConfig(path string) (AppConfig, error) {
	if path == "" {
		return DefaultAppConfig(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, fmt.Errorf("failed to read app config: %w", err)
	}

	return parseAppConfig(string(raw))
}

func parseAppConfig(doc string) (AppConfig, error) {
	var cfg AppConfig

	decoder := yaml.NewDecoder(strings.NewReader(doc))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("failed to decode app config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("invalid app config: %w", err)
	}

	return cfg, nil
}
