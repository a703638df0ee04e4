package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type SignalTestSuite struct {
	suite.Suite
	now time.Time
}

func TestSignalSuite(t *testing.T) {
	suite.Run(t, new(SignalTestSuite))
}

func (suite *SignalTestSuite) SetupTest() {
	suite.now = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
}

func (suite *SignalTestSuite) TestStrengthFromConfidence() {
	tests := []struct {
		confidence float64
		expected   SignalStrength
	}{
		{95, SignalStrengthVeryStrong},
		{90, SignalStrengthVeryStrong},
		{80, SignalStrengthStrong},
		{75, SignalStrengthStrong},
		{65, SignalStrengthModerate},
		{60, SignalStrengthModerate},
		{59.9, SignalStrengthWeak},
		{0, SignalStrengthWeak},
	}

	for _, tc := range tests {
		suite.Equal(tc.expected, StrengthFromConfidence(tc.confidence),
			"confidence %.1f", tc.confidence)
	}
}

func (suite *SignalTestSuite) TestStrengthOrdering() {
	suite.Less(SignalStrengthWeak.Rank(), SignalStrengthModerate.Rank())
	suite.Less(SignalStrengthModerate.Rank(), SignalStrengthStrong.Rank())
	suite.Less(SignalStrengthStrong.Rank(), SignalStrengthVeryStrong.Rank())
}

func (suite *SignalTestSuite) TestBuilderBuySignal() {
	signal, err := NewSignalBuilder("BTCUSDT", SignalActionBuy).
		WithPrices(100, 98, 104).
		WithConfidence(82).
		Build(suite.now)

	suite.NoError(err)
	suite.NotEmpty(signal.ID)
	suite.Equal(SignalStatusActive, signal.Status)
	suite.Equal(SignalStrengthStrong, signal.Strength)
	suite.Equal(suite.now.Add(5*time.Minute), signal.ExpiresAt)
	suite.InDelta(2.0, signal.RiskReward, 1e-9)

	// BUY => stopLoss < entry < takeProfit
	suite.Less(signal.StopLoss, signal.EntryPrice)
	suite.Greater(signal.TakeProfit, signal.EntryPrice)
}

func (suite *SignalTestSuite) TestBuilderSellSignal() {
	signal, err := NewSignalBuilder("ETHUSDT", SignalActionSell).
		WithPrices(2000, 2040, 1920).
		WithConfidence(91).
		Build(suite.now)

	suite.NoError(err)
	suite.Equal(SignalStrengthVeryStrong, signal.Strength)

	// SELL => takeProfit < entry < stopLoss
	suite.Greater(signal.StopLoss, signal.EntryPrice)
	suite.Less(signal.TakeProfit, signal.EntryPrice)
}

func (suite *SignalTestSuite) TestBuilderRejectsInvertedBuyBracket() {
	_, err := NewSignalBuilder("BTCUSDT", SignalActionBuy).
		WithPrices(100, 103, 104).
		WithConfidence(80).
		Build(suite.now)

	suite.Error(err)
}

func (suite *SignalTestSuite) TestBuilderRejectsInvertedSellBracket() {
	_, err := NewSignalBuilder("BTCUSDT", SignalActionSell).
		WithPrices(100, 98, 96).
		WithConfidence(80).
		Build(suite.now)

	suite.Error(err)
}

func (suite *SignalTestSuite) TestBuilderRejectsNonPositiveTTL() {
	_, err := NewSignalBuilder("BTCUSDT", SignalActionBuy).
		WithPrices(100, 98, 104).
		WithConfidence(80).
		WithTTL(0).
		Build(suite.now)

	suite.Error(err)
}

func (suite *SignalTestSuite) TestBuilderClampsConfidence() {
	signal, err := NewSignalBuilder("BTCUSDT", SignalActionBuy).
		WithPrices(100, 98, 104).
		WithConfidence(140).
		Build(suite.now)

	suite.NoError(err)
	suite.Equal(100.0, signal.Confidence)
}

func (suite *SignalTestSuite) TestExpired() {
	signal, err := NewSignalBuilder("BTCUSDT", SignalActionBuy).
		WithPrices(100, 98, 104).
		WithConfidence(80).
		Build(suite.now)
	suite.NoError(err)

	suite.False(signal.Expired(suite.now))
	suite.False(signal.Expired(signal.ExpiresAt.Add(-time.Millisecond)))
	suite.True(signal.Expired(signal.ExpiresAt))
	suite.True(signal.Expired(signal.ExpiresAt.Add(time.Millisecond)))
}

func (suite *SignalTestSuite) TestStatusTerminal() {
	suite.False(SignalStatusActive.IsTerminal())
	suite.False(SignalStatusExecuted.IsTerminal())
	suite.True(SignalStatusExpired.IsTerminal())
	suite.True(SignalStatusCancelled.IsTerminal())
}

func (suite *SignalTestSuite) TestTrailingAttached() {
	signal, err := NewSignalBuilder("BTCUSDT", SignalActionBuy).
		WithPrices(100, 98, 104).
		WithConfidence(80).
		WithTrailing(TrailingConfig{
			ProfitActivatePct: 1.0,
			ProfitTrailPct:    0.4,
			LossActivatePct:   -1.0,
			LossTrailPct:      0.5,
		}).
		Build(suite.now)

	suite.NoError(err)
	suite.True(signal.Trailing.IsSome())
	suite.Equal(1.0, signal.Trailing.Unwrap().ProfitActivatePct)
}
