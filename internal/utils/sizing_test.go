package utils

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/openquant-labs/signalfan/internal/commission"
)

type SizingTestSuite struct {
	suite.Suite
}

func TestSizingTestSuite(t *testing.T) {
	suite.Run(t, new(SizingTestSuite))
}

func (suite *SizingTestSuite) TestRoundToDecimalPrecision() {
	tests := []struct {
		name      string
		quantity  float64
		precision int
		expected  float64
	}{
		{"rounds down", 0.123456789, 8, 0.12345678},
		{"whole number unchanged", 5, 2, 5},
		{"zero precision floors", 1.99, 0, 1},
		{"tiny quantity floors to zero", 0.000000001, 8, 0},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.InDelta(tc.expected, RoundToDecimalPrecision(tc.quantity, tc.precision), 1e-12)
		})
	}
}

func (suite *SizingTestSuite) TestQuantityFromRisk() {
	// risking 100 with a 2-point stop gives 50 units
	suite.InDelta(50, QuantityFromRisk(100, 100, 98), 1e-9)
	// short direction uses the absolute stop distance
	suite.InDelta(50, QuantityFromRisk(100, 100, 102), 1e-9)
	// degenerate stops size to zero
	suite.Zero(QuantityFromRisk(100, 100, 100))
	suite.Zero(QuantityFromRisk(0, 100, 98))
}

func (suite *SizingTestSuite) TestRequiredMargin() {
	suite.InDelta(1000, RequiredMargin(50, 100, 5), 1e-9)
	suite.InDelta(5000, RequiredMargin(50, 100, 1), 1e-9)
	// leverage below one clamps to one
	suite.InDelta(5000, RequiredMargin(50, 100, 0), 1e-9)
}

func (suite *SizingTestSuite) TestNetProfit() {
	fee := commission.NewPercentagePerformanceFee(10)

	suite.InDelta(90, NetProfit(100, fee), 1e-9)
	// losses are never charged
	suite.InDelta(-100, NetProfit(-100, fee), 1e-9)
}

func (suite *SizingTestSuite) TestSlippagePct() {
	suite.InDelta(0.1, SlippagePct(100, 100.1), 1e-9)
	suite.InDelta(-0.1, SlippagePct(100, 99.9), 1e-9)
	suite.Zero(SlippagePct(0, 100))
}
