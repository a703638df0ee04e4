package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/openquant-labs/signalfan/internal/types"
)

type RegimeUnitTestSuite struct {
	suite.Suite
}

func TestRegimeUnitSuite(t *testing.T) {
	suite.Run(t, new(RegimeUnitTestSuite))
}

func (suite *RegimeUnitTestSuite) TestShortSeriesIsNeutral() {
	candles := candlesFromCloses(constantCloses(5, 100), 0.2)
	suite.Equal(types.MarketRegimeNeutral, ClassifyRegime(candles, 20, 1.0))
}

func (suite *RegimeUnitTestSuite) TestSteadyClimbIsBullish() {
	candles := candlesFromCloses(trendingCloses(30, 100, 0.2), 0.1)
	suite.Equal(types.MarketRegimeBullish, ClassifyRegime(candles, 30, 1.0))
}

func (suite *RegimeUnitTestSuite) TestSteadyDropIsBearish() {
	candles := candlesFromCloses(trendingCloses(30, 100, -0.2), 0.1)
	suite.Equal(types.MarketRegimeBearish, ClassifyRegime(candles, 30, 1.0))
}

func (suite *RegimeUnitTestSuite) TestWideBarsOverrideTrendAsVolatile() {
	// Bars with a 4-point range on a ~100 price give ATR% well above 1.5
	candles := candlesFromCloses(trendingCloses(30, 100, 0.5), 2.0)
	suite.Equal(types.MarketRegimeVolatile, ClassifyRegime(candles, 30, 1.0))
}

func (suite *RegimeUnitTestSuite) TestFlatChopIsRanging() {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
		if i%2 == 1 {
			closes[i] = 100.3
		}
	}

	candles := candlesFromCloses(closes, 0.2)
	suite.Equal(types.MarketRegimeRanging, ClassifyRegime(candles, 40, 1.0))
}

func (suite *RegimeUnitTestSuite) TestTrendFromEMAs() {
	suite.Equal(types.TrendUp, TrendFromEMAs(105, 100))
	suite.Equal(types.TrendDown, TrendFromEMAs(95, 100))
	suite.Equal(types.TrendSideways, TrendFromEMAs(100, 100))
}
