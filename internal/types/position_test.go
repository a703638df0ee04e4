package types

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type PositionTestSuite struct {
	suite.Suite
}

func TestPositionSuite(t *testing.T) {
	suite.Run(t, new(PositionTestSuite))
}

func (suite *PositionTestSuite) TestPnLPctLong() {
	p := Position{Side: PositionSideLong, EntryPrice: 100}

	suite.InDelta(2.0, p.PnLPct(102), 1e-9)
	suite.InDelta(-3.0, p.PnLPct(97), 1e-9)
	suite.InDelta(0.0, p.PnLPct(100), 1e-9)
}

func (suite *PositionTestSuite) TestPnLPctShortInvertsSign() {
	p := Position{Side: PositionSideShort, EntryPrice: 100}

	suite.InDelta(-2.0, p.PnLPct(102), 1e-9)
	suite.InDelta(3.0, p.PnLPct(97), 1e-9)
}

func (suite *PositionTestSuite) TestPnLPctZeroEntry() {
	p := Position{Side: PositionSideLong, EntryPrice: 0}
	suite.Equal(0.0, p.PnLPct(100))
}

func (suite *PositionTestSuite) TestRealizedPnLLong() {
	p := Position{Side: PositionSideLong, EntryPrice: 100.01, Quantity: 100}
	suite.InDelta(999.0, p.RealizedPnLAt(110.0), 1e-6)
}

func (suite *PositionTestSuite) TestRealizedPnLShort() {
	p := Position{Side: PositionSideShort, EntryPrice: 2000, Quantity: 0.5}
	suite.InDelta(25.0, p.RealizedPnLAt(1950), 1e-9)
	suite.InDelta(-25.0, p.RealizedPnLAt(2050), 1e-9)
}

func (suite *PositionTestSuite) TestSideForAction() {
	suite.Equal(PositionSideLong, SideForAction(SignalActionBuy))
	suite.Equal(PositionSideShort, SideForAction(SignalActionSell))
}
