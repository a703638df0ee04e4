package types

import "github.com/moznion/go-optional"

// SubscriberSettings holds one subscriber's gating and sizing preferences.
// The decision gate and execution engine treat it as read-only input.
type SubscriberSettings struct {
	SubscriberID string `yaml:"subscriber_id" json:"subscriberId" validate:"required"`
	// Enabled gates the whole bot. Disabled subscribers reject every signal.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// AllowedSymbols is the symbol allow-list. Empty means all symbols.
	AllowedSymbols []string `yaml:"allowed_symbols" json:"allowedSymbols"`
	// MinConfidence is the minimum signal confidence the subscriber follows.
	MinConfidence float64 `yaml:"min_confidence" json:"minConfidence" validate:"gte=0,lte=100"`
	// MinStrength is the weakest strength bucket the subscriber follows.
	MinStrength SignalStrength `yaml:"min_strength" json:"minStrength"`
	// MaxOpenPositions caps concurrently open positions.
	MaxOpenPositions int `yaml:"max_open_positions" json:"maxOpenPositions" validate:"gte=1"`
	// RiskPerTradePct is the percentage of balance risked per trade.
	RiskPerTradePct float64 `yaml:"risk_per_trade_pct" json:"riskPerTradePct" validate:"gt=0,lte=100"`
	// Leverage applied when opening positions.
	Leverage int `yaml:"leverage" json:"leverage" validate:"gte=1"`
	// MinReserveBalance is the collateral floor that must stay untouched.
	MinReserveBalance float64 `yaml:"min_reserve_balance" json:"minReserveBalance" validate:"gte=0"`

	// StopLossPct overrides the signal's stop loss, recomputed from entry.
	StopLossPct optional.Option[float64] `yaml:"stop_loss_pct" json:"stopLossPct"`
	// TakeProfitPct overrides the signal's take profit, recomputed from entry.
	TakeProfitPct optional.Option[float64] `yaml:"take_profit_pct" json:"takeProfitPct"`
}

// SymbolAllowed reports whether the settings permit trading the symbol.
func (s *SubscriberSettings) SymbolAllowed(symbol string) bool {
	if len(s.AllowedSymbols) == 0 {
		return true
	}

	for _, allowed := range s.AllowedSymbols {
		if allowed == symbol {
			return true
		}
	}

	return false
}

// FollowsStrength reports whether the signal strength meets the floor.
func (s *SubscriberSettings) FollowsStrength(strength SignalStrength) bool {
	if s.MinStrength == "" {
		return true
	}

	return strength.Rank() >= s.MinStrength.Rank()
}
