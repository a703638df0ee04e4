package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type RSIUnitTestSuite struct {
	suite.Suite
}

func TestRSIUnitSuite(t *testing.T) {
	suite.Run(t, new(RSIUnitTestSuite))
}

func (suite *RSIUnitTestSuite) TestInsufficientDataReturnsNeutralDefault() {
	suite.Equal(DefaultRSI, RSI([]float64{100, 101}, 14))
	suite.Equal(DefaultRSI, RSI(nil, 14))
	suite.Equal(DefaultRSI, RSI(trendingCloses(14, 100, 1), 14)) // needs period+1
}

func (suite *RSIUnitTestSuite) TestPerfectUptrendReturns100() {
	suite.Equal(100.0, RSI(trendingCloses(30, 100, 1), 14))
}

func (suite *RSIUnitTestSuite) TestPerfectDowntrendNearZero() {
	rsi := RSI(trendingCloses(30, 100, -1), 14)
	suite.InDelta(0.0, rsi, 1e-9)
}

func (suite *RSIUnitTestSuite) TestAlternatingSeriesNearFifty() {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
		if i%2 == 1 {
			closes[i] = 101
		}
	}

	rsi := RSI(closes, 14)
	suite.Greater(rsi, 40.0)
	suite.Less(rsi, 60.0)
}

func (suite *RSIUnitTestSuite) TestBoundedBetween0And100() {
	for _, closes := range [][]float64{
		trendingCloses(50, 200, -2),
		trendingCloses(50, 50, 3),
		{100, 90, 110, 80, 120, 70, 130, 60, 140, 50, 150, 40, 160, 30, 170, 20},
	} {
		rsi := RSI(closes, 14)
		suite.GreaterOrEqual(rsi, 0.0)
		suite.LessOrEqual(rsi, 100.0)
	}
}
