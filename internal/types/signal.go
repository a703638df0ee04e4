package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/openquant-labs/signalfan/pkg/errors"
)

// SignalAction is the trading action recommended by a signal.
type SignalAction string

const (
	// SignalActionBuy tells subscribers to open a long position
	SignalActionBuy SignalAction = "BUY"
	// SignalActionSell tells subscribers to open a short position
	SignalActionSell SignalAction = "SELL"
	// SignalActionHold tells subscribers to take no action
	SignalActionHold SignalAction = "HOLD"
	// SignalActionCloseLong tells subscribers to close an open long position
	SignalActionCloseLong SignalAction = "CLOSE_LONG"
	// SignalActionCloseShort tells subscribers to close an open short position
	SignalActionCloseShort SignalAction = "CLOSE_SHORT"
)

// IsEntry reports whether the action opens a new position.
func (a SignalAction) IsEntry() bool {
	return a == SignalActionBuy || a == SignalActionSell
}

// SignalStrength is an ordinal bucket describing how strongly the filters
// agreed on a direction.
type SignalStrength string

const (
	SignalStrengthWeak       SignalStrength = "WEAK"
	SignalStrengthModerate   SignalStrength = "MODERATE"
	SignalStrengthStrong     SignalStrength = "STRONG"
	SignalStrengthVeryStrong SignalStrength = "VERY_STRONG"
)

// Rank returns the ordering of the strength bucket. Higher is stronger.
func (s SignalStrength) Rank() int {
	switch s {
	case SignalStrengthWeak:
		return 0
	case SignalStrengthModerate:
		return 1
	case SignalStrengthStrong:
		return 2
	case SignalStrengthVeryStrong:
		return 3
	default:
		return -1
	}
}

// StrengthFromConfidence buckets a 0-100 confidence score into a strength.
func StrengthFromConfidence(confidence float64) SignalStrength {
	switch {
	case confidence >= 90:
		return SignalStrengthVeryStrong
	case confidence >= 75:
		return SignalStrengthStrong
	case confidence < 60:
		return SignalStrengthWeak
	default:
		return SignalStrengthModerate
	}
}

// SignalStatus is the lifecycle status of a broadcast signal.
//
// EXECUTED is advisory only: it records that at least one subscriber acted,
// but never blocks other subscribers from independently executing the same
// signal. Only EXPIRED and CANCELLED are hard stops.
type SignalStatus string

const (
	SignalStatusActive    SignalStatus = "ACTIVE"
	SignalStatusExecuted  SignalStatus = "EXECUTED"
	SignalStatusExpired   SignalStatus = "EXPIRED"
	SignalStatusCancelled SignalStatus = "CANCELLED"
)

// IsTerminal reports whether the status is a hard stop for new executions.
func (s SignalStatus) IsTerminal() bool {
	return s == SignalStatusExpired || s == SignalStatusCancelled
}

// MarketRegime is a coarse classification of recent market behavior.
type MarketRegime string

const (
	MarketRegimeBullish MarketRegime = "BULLISH"
	MarketRegimeBearish MarketRegime = "BEARISH"
	MarketRegimeNeutral MarketRegime = "NEUTRAL"
	MarketRegimeRanging MarketRegime = "RANGING"
	MarketRegimeVolatile MarketRegime = "VOLATILE"
)

// TrendDirection is the prevailing direction of the trend at signal time.
type TrendDirection string

const (
	TrendUp       TrendDirection = "UP"
	TrendDown     TrendDirection = "DOWN"
	TrendSideways TrendDirection = "SIDEWAYS"
)

// IndicatorSnapshot captures the indicator values that produced a signal.
type IndicatorSnapshot struct {
	EMAFast       float64 `yaml:"ema_fast" json:"emaFast"`
	EMASlow       float64 `yaml:"ema_slow" json:"emaSlow"`
	RSI           float64 `yaml:"rsi" json:"rsi"`
	MACDHistogram float64 `yaml:"macd_histogram" json:"macdHistogram"`
	ADX           float64 `yaml:"adx" json:"adx"`
	ATR           float64 `yaml:"atr" json:"atr"`
	VolumeRatio   float64 `yaml:"volume_ratio" json:"volumeRatio"`
}

// TimeframeVote is one timeframe's independent directional classification.
type TimeframeVote struct {
	Timeframe  Timeframe    `yaml:"timeframe" json:"timeframe"`
	Action     SignalAction `yaml:"action" json:"action"`
	Confidence float64      `yaml:"confidence" json:"confidence"`
}

// TrailingConfig holds the trailing-stop parameters attached to a signal.
// All values are percentages of the entry price.
type TrailingConfig struct {
	ProfitActivatePct float64 `yaml:"profit_activate_pct" json:"profitActivatePct" validate:"gt=0"`
	ProfitTrailPct    float64 `yaml:"profit_trail_pct" json:"profitTrailPct" validate:"gt=0"`
	LossActivatePct   float64 `yaml:"loss_activate_pct" json:"lossActivatePct" validate:"lt=0"`
	LossTrailPct      float64 `yaml:"loss_trail_pct" json:"lossTrailPct" validate:"gt=0"`
}

// TradingSignal is the unit of communication between the signal engine and
// its subscribers. Signals are created by the engine, mutated only by the hub
// (status transitions), and retained in bounded history after expiry.
type TradingSignal struct {
	ID        string    `yaml:"id" json:"id" validate:"required,uuid"`
	Symbol    string    `yaml:"symbol" json:"symbol" validate:"required"`
	CreatedAt time.Time `yaml:"created_at" json:"createdAt" validate:"required"`
	ExpiresAt time.Time `yaml:"expires_at" json:"expiresAt" validate:"required"`

	Action     SignalAction   `yaml:"action" json:"action" validate:"required,oneof=BUY SELL HOLD CLOSE_LONG CLOSE_SHORT"`
	Strength   SignalStrength `yaml:"strength" json:"strength" validate:"required,oneof=WEAK MODERATE STRONG VERY_STRONG"`
	Confidence float64        `yaml:"confidence" json:"confidence" validate:"gte=0,lte=100"`
	EntryPrice float64        `yaml:"entry_price" json:"entryPrice" validate:"required,gt=0"`
	StopLoss   float64        `yaml:"stop_loss" json:"stopLoss" validate:"required,gt=0"`
	TakeProfit float64        `yaml:"take_profit" json:"takeProfit" validate:"required,gt=0"`
	RiskReward float64        `yaml:"risk_reward" json:"riskReward" validate:"gte=0"`

	Regime     MarketRegime      `yaml:"regime" json:"regime"`
	Trend      TrendDirection    `yaml:"trend" json:"trend"`
	Volatility float64           `yaml:"volatility" json:"volatility"`
	Indicators IndicatorSnapshot `yaml:"indicators" json:"indicators"`
	Votes      []TimeframeVote   `yaml:"votes" json:"votes"`
	Trailing   optional.Option[TrailingConfig] `yaml:"trailing" json:"trailing"`

	Status SignalStatus `yaml:"status" json:"status" validate:"required,oneof=ACTIVE EXECUTED EXPIRED CANCELLED"`
}

// Expired reports whether the signal has passed its expiry at the given time.
func (s *TradingSignal) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Validate validates the TradingSignal struct, including the directional
// ordering of stop loss and take profit around the entry price.
func (s *TradingSignal) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSignal, "invalid trading signal", err)
	}

	switch s.Action {
	case SignalActionBuy:
		if s.StopLoss >= s.EntryPrice {
			return errors.Newf(errors.ErrCodeInvalidStopLoss,
				"buy signal stop loss %.8f must be below entry %.8f", s.StopLoss, s.EntryPrice)
		}

		if s.TakeProfit <= s.EntryPrice {
			return errors.Newf(errors.ErrCodeInvalidTakeProfit,
				"buy signal take profit %.8f must be above entry %.8f", s.TakeProfit, s.EntryPrice)
		}
	case SignalActionSell:
		if s.StopLoss <= s.EntryPrice {
			return errors.Newf(errors.ErrCodeInvalidStopLoss,
				"sell signal stop loss %.8f must be above entry %.8f", s.StopLoss, s.EntryPrice)
		}

		if s.TakeProfit >= s.EntryPrice {
			return errors.Newf(errors.ErrCodeInvalidTakeProfit,
				"sell signal take profit %.8f must be below entry %.8f", s.TakeProfit, s.EntryPrice)
		}
	case SignalActionHold, SignalActionCloseLong, SignalActionCloseShort:
		// No bracket ordering to enforce for non-entry actions.
	}

	if !s.ExpiresAt.After(s.CreatedAt) {
		return errors.New(errors.ErrCodeInvalidSignal, "signal TTL must be positive")
	}

	return nil
}

// SignalBuilder constructs TradingSignal values while enforcing creation-time
// invariants. Use NewSignalBuilder and finish with Build.
type SignalBuilder struct {
	signal TradingSignal
	ttl    time.Duration
}

// NewSignalBuilder starts a builder for the given symbol and action.
func NewSignalBuilder(symbol string, action SignalAction) *SignalBuilder {
	return &SignalBuilder{
		signal: TradingSignal{
			ID:     uuid.NewString(),
			Symbol: symbol,
			Action: action,
			Status: SignalStatusActive,
		},
		ttl: 5 * time.Minute,
	}
}

// WithPrices sets the entry, stop loss and take profit levels.
func (b *SignalBuilder) WithPrices(entry, stopLoss, takeProfit float64) *SignalBuilder {
	b.signal.EntryPrice = entry
	b.signal.StopLoss = stopLoss
	b.signal.TakeProfit = takeProfit

	if risk := entry - stopLoss; risk != 0 {
		reward := takeProfit - entry
		rr := reward / risk

		if rr < 0 {
			rr = -rr
		}

		b.signal.RiskReward = rr
	}

	return b
}

// WithConfidence sets the confidence score and derives the strength bucket.
func (b *SignalBuilder) WithConfidence(confidence float64) *SignalBuilder {
	if confidence > 100 {
		confidence = 100
	}

	if confidence < 0 {
		confidence = 0
	}

	b.signal.Confidence = confidence
	b.signal.Strength = StrengthFromConfidence(confidence)

	return b
}

// WithContext sets the market context fields.
func (b *SignalBuilder) WithContext(regime MarketRegime, trend TrendDirection, volatility float64, snapshot IndicatorSnapshot) *SignalBuilder {
	b.signal.Regime = regime
	b.signal.Trend = trend
	b.signal.Volatility = volatility
	b.signal.Indicators = snapshot

	return b
}

// WithVotes sets the per-timeframe sub-votes.
func (b *SignalBuilder) WithVotes(votes []TimeframeVote) *SignalBuilder {
	b.signal.Votes = votes

	return b
}

// WithTrailing attaches trailing-stop parameters.
func (b *SignalBuilder) WithTrailing(cfg TrailingConfig) *SignalBuilder {
	b.signal.Trailing = optional.Some(cfg)

	return b
}

// WithTTL overrides the default 5 minute time-to-live.
func (b *SignalBuilder) WithTTL(ttl time.Duration) *SignalBuilder {
	b.ttl = ttl

	return b
}

// Build finalizes the signal, stamping creation and expiry times, and
// validates the invariants. Returns an error if the signal is malformed.
func (b *SignalBuilder) Build(now time.Time) (TradingSignal, error) {
	if b.ttl <= 0 {
		return TradingSignal{}, errors.New(errors.ErrCodeInvalidSignal, "signal TTL must be positive")
	}

	b.signal.CreatedAt = now
	b.signal.ExpiresAt = now.Add(b.ttl)

	if err := b.signal.Validate(); err != nil {
		return TradingSignal{}, err
	}

	return b.signal, nil
}
