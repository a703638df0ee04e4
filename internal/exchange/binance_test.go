package exchange

import (
	"context"
	"errors"
	"testing"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/suite"

	pkgerrors "github.com/openquant-labs/signalfan/pkg/errors"
)

// Mock implementations for testing

type mockFuturesClient struct {
	pingService             *mockPingService
	changeLeverageService   *mockChangeLeverageService
	changeMarginTypeService *mockChangeMarginTypeService
	createOrderService      *mockCreateOrderService
	cancelAllService        *mockCancelAllOpenOrdersService
	premiumIndexService     *mockPremiumIndexService
	getBalanceService       *mockGetBalanceService
	positionRiskService     *mockPositionRiskService
}

func newMockFuturesClient() *mockFuturesClient {
	return &mockFuturesClient{
		pingService:             &mockPingService{},
		changeLeverageService:   &mockChangeLeverageService{},
		changeMarginTypeService: &mockChangeMarginTypeService{},
		createOrderService:      &mockCreateOrderService{},
		cancelAllService:        &mockCancelAllOpenOrdersService{},
		premiumIndexService:     &mockPremiumIndexService{},
		getBalanceService:       &mockGetBalanceService{},
		positionRiskService:     &mockPositionRiskService{},
	}
}

func (m *mockFuturesClient) NewPingService() PingService { return m.pingService }

func (m *mockFuturesClient) NewChangeLeverageService() ChangeLeverageService {
	return m.changeLeverageService
}

func (m *mockFuturesClient) NewChangeMarginTypeService() ChangeMarginTypeService {
	return m.changeMarginTypeService
}

func (m *mockFuturesClient) NewCreateOrderService() CreateOrderService {
	return m.createOrderService
}

func (m *mockFuturesClient) NewCancelAllOpenOrdersService() CancelAllOpenOrdersService {
	return m.cancelAllService
}

func (m *mockFuturesClient) NewPremiumIndexService() PremiumIndexService {
	return m.premiumIndexService
}

func (m *mockFuturesClient) NewGetBalanceService() GetBalanceService {
	return m.getBalanceService
}

func (m *mockFuturesClient) NewPositionRiskService() PositionRiskService {
	return m.positionRiskService
}

type mockPingService struct {
	err error
}

func (m *mockPingService) Do(_ context.Context) error { return m.err }

type mockChangeLeverageService struct {
	symbol   string
	leverage int
	err      error
}

func (m *mockChangeLeverageService) Symbol(symbol string) ChangeLeverageService {
	m.symbol = symbol

	return m
}

func (m *mockChangeLeverageService) Leverage(leverage int) ChangeLeverageService {
	m.leverage = leverage

	return m
}

func (m *mockChangeLeverageService) Do(_ context.Context) (*futures.SymbolLeverage, error) {
	if m.err != nil {
		return nil, m.err
	}

	return &futures.SymbolLeverage{Symbol: m.symbol, Leverage: m.leverage}, nil
}

type mockChangeMarginTypeService struct {
	symbol     string
	marginType futures.MarginType
	err        error
}

func (m *mockChangeMarginTypeService) Symbol(symbol string) ChangeMarginTypeService {
	m.symbol = symbol

	return m
}

func (m *mockChangeMarginTypeService) MarginType(marginType futures.MarginType) ChangeMarginTypeService {
	m.marginType = marginType

	return m
}

func (m *mockChangeMarginTypeService) Do(_ context.Context) error { return m.err }

type mockCreateOrderService struct {
	response *futures.CreateOrderResponse
	err      error

	symbol     string
	side       futures.SideType
	orderType  futures.OrderType
	quantity   string
	stopPrice  string
	reduceOnly bool
}

func (m *mockCreateOrderService) Symbol(symbol string) CreateOrderService {
	m.symbol = symbol

	return m
}

func (m *mockCreateOrderService) Side(side futures.SideType) CreateOrderService {
	m.side = side

	return m
}

func (m *mockCreateOrderService) Type(orderType futures.OrderType) CreateOrderService {
	m.orderType = orderType

	return m
}

func (m *mockCreateOrderService) Quantity(quantity string) CreateOrderService {
	m.quantity = quantity

	return m
}

func (m *mockCreateOrderService) StopPrice(stopPrice string) CreateOrderService {
	m.stopPrice = stopPrice

	return m
}

func (m *mockCreateOrderService) ReduceOnly(reduceOnly bool) CreateOrderService {
	m.reduceOnly = reduceOnly

	return m
}

func (m *mockCreateOrderService) Do(_ context.Context) (*futures.CreateOrderResponse, error) {
	if m.err != nil {
		return nil, m.err
	}

	if m.response != nil {
		return m.response, nil
	}

	return &futures.CreateOrderResponse{Symbol: m.symbol, OrderID: 1}, nil
}

type mockCancelAllOpenOrdersService struct {
	symbol string
	err    error
}

func (m *mockCancelAllOpenOrdersService) Symbol(symbol string) CancelAllOpenOrdersService {
	m.symbol = symbol

	return m
}

func (m *mockCancelAllOpenOrdersService) Do(_ context.Context) error { return m.err }

type mockPremiumIndexService struct {
	symbol  string
	indexes []*futures.PremiumIndex
	err     error
}

func (m *mockPremiumIndexService) Symbol(symbol string) PremiumIndexService {
	m.symbol = symbol

	return m
}

func (m *mockPremiumIndexService) Do(_ context.Context) ([]*futures.PremiumIndex, error) {
	return m.indexes, m.err
}

type mockGetBalanceService struct {
	balances []*futures.Balance
	err      error
}

func (m *mockGetBalanceService) Do(_ context.Context) ([]*futures.Balance, error) {
	return m.balances, m.err
}

type mockPositionRiskService struct {
	symbol string
	risks  []*futures.PositionRisk
	err    error
}

func (m *mockPositionRiskService) Symbol(symbol string) PositionRiskService {
	m.symbol = symbol

	return m
}

func (m *mockPositionRiskService) Do(_ context.Context) ([]*futures.PositionRisk, error) {
	return m.risks, m.err
}

type BinanceExchangeTestSuite struct {
	suite.Suite

	client   *mockFuturesClient
	exchange *BinanceExchange
	ctx      context.Context
}

func TestBinanceExchangeSuite(t *testing.T) {
	suite.Run(t, new(BinanceExchangeTestSuite))
}

func (suite *BinanceExchangeTestSuite) SetupTest() {
	suite.client = newMockFuturesClient()
	suite.exchange = newBinanceExchangeWithClient(suite.client)
	suite.ctx = context.Background()
}

func (suite *BinanceExchangeTestSuite) TestPing() {
	suite.NoError(suite.exchange.Ping(suite.ctx))

	suite.client.pingService.err = errors.New("network down")
	err := suite.exchange.Ping(suite.ctx)
	suite.Require().Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeExchangeState))
}

func (suite *BinanceExchangeTestSuite) TestSetLeverage() {
	suite.Require().NoError(suite.exchange.SetLeverage(suite.ctx, "BTCUSDT", 10))
	suite.Equal("BTCUSDT", suite.client.changeLeverageService.symbol)
	suite.Equal(10, suite.client.changeLeverageService.leverage)

	err := suite.exchange.SetLeverage(suite.ctx, "BTCUSDT", 0)
	suite.Require().Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeInvalidParameter))
}

func (suite *BinanceExchangeTestSuite) TestSetMarginType() {
	suite.Require().NoError(suite.exchange.SetMarginType(suite.ctx, "BTCUSDT", MarginTypeIsolated))
	suite.Equal(futures.MarginTypeIsolated, suite.client.changeMarginTypeService.marginType)

	err := suite.exchange.SetMarginType(suite.ctx, "BTCUSDT", MarginType("weird"))
	suite.Require().Error(err)
}

func (suite *BinanceExchangeTestSuite) TestMarketOrderFormatsQuantity() {
	suite.client.createOrderService.response = &futures.CreateOrderResponse{
		OrderID:          42,
		Symbol:           "BTCUSDT",
		AvgPrice:         "50000.5",
		ExecutedQuantity: "0.12345678",
	}

	result, err := suite.exchange.MarketOrder(suite.ctx, "BTCUSDT", OrderSideBuy, 0.123456789, false)
	suite.Require().NoError(err)

	suite.Equal("0.12345678", suite.client.createOrderService.quantity)
	suite.Equal(futures.SideTypeBuy, suite.client.createOrderService.side)
	suite.Equal(futures.OrderTypeMarket, suite.client.createOrderService.orderType)
	suite.False(suite.client.createOrderService.reduceOnly)
	suite.Equal(int64(42), result.OrderID)
	suite.InDelta(50000.5, result.AvgPrice, 1e-9)
	suite.InDelta(0.12345678, result.ExecutedQty, 1e-9)
}

func (suite *BinanceExchangeTestSuite) TestMarketOrderRejectsBadQuantity() {
	_, err := suite.exchange.MarketOrder(suite.ctx, "BTCUSDT", OrderSideBuy, 0, false)
	suite.Require().Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeInvalidQuantity))

	_, err = suite.exchange.MarketOrder(suite.ctx, "BTCUSDT", OrderSideBuy, 0.000000001, false)
	suite.Require().Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeInvalidQuantity))
}

func (suite *BinanceExchangeTestSuite) TestMarketOrderWrapsVenueError() {
	suite.client.createOrderService.err = errors.New("insufficient margin")

	_, err := suite.exchange.MarketOrder(suite.ctx, "BTCUSDT", OrderSideSell, 1, true)
	suite.Require().Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeOrderFailed))
}

func (suite *BinanceExchangeTestSuite) TestStopLossOrderIsReduceOnlyStopMarket() {
	_, err := suite.exchange.StopLossOrder(suite.ctx, "BTCUSDT", OrderSideSell, 0.5, 49000)
	suite.Require().NoError(err)

	suite.Equal(futures.OrderTypeStopMarket, suite.client.createOrderService.orderType)
	suite.Equal("49000", suite.client.createOrderService.stopPrice)
	suite.True(suite.client.createOrderService.reduceOnly)
}

func (suite *BinanceExchangeTestSuite) TestTakeProfitOrderIsReduceOnlyTakeProfitMarket() {
	_, err := suite.exchange.TakeProfitOrder(suite.ctx, "BTCUSDT", OrderSideSell, 0.5, 52000)
	suite.Require().NoError(err)

	suite.Equal(futures.OrderTypeTakeProfitMarket, suite.client.createOrderService.orderType)
	suite.Equal("52000", suite.client.createOrderService.stopPrice)
	suite.True(suite.client.createOrderService.reduceOnly)
}

func (suite *BinanceExchangeTestSuite) TestTriggerOrderRejectsZeroStopPrice() {
	_, err := suite.exchange.StopLossOrder(suite.ctx, "BTCUSDT", OrderSideSell, 0.5, 0)
	suite.Require().Error(err)
}

func (suite *BinanceExchangeTestSuite) TestCancelAllOrders() {
	suite.Require().NoError(suite.exchange.CancelAllOrders(suite.ctx, "BTCUSDT"))
	suite.Equal("BTCUSDT", suite.client.cancelAllService.symbol)
}

func (suite *BinanceExchangeTestSuite) TestGetMarkPrice() {
	suite.client.premiumIndexService.indexes = []*futures.PremiumIndex{
		{Symbol: "BTCUSDT", MarkPrice: "50123.45"},
	}

	price, err := suite.exchange.GetMarkPrice(suite.ctx, "BTCUSDT")
	suite.Require().NoError(err)
	suite.InDelta(50123.45, price, 1e-9)
}

func (suite *BinanceExchangeTestSuite) TestGetMarkPriceEmptyResponse() {
	_, err := suite.exchange.GetMarkPrice(suite.ctx, "BTCUSDT")
	suite.Require().Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeMarkPriceFailed))
}

func (suite *BinanceExchangeTestSuite) TestGetBalancePicksQuoteAsset() {
	suite.client.getBalanceService.balances = []*futures.Balance{
		{Asset: "BNB", Balance: "1.5", AvailableBalance: "1.5"},
		{Asset: "USDT", Balance: "10000.5", AvailableBalance: "8000.25"},
	}

	balance, err := suite.exchange.GetBalance(suite.ctx)
	suite.Require().NoError(err)
	suite.InDelta(10000.5, balance.Total, 1e-9)
	suite.InDelta(8000.25, balance.Available, 1e-9)
}

func (suite *BinanceExchangeTestSuite) TestGetBalanceMissingQuoteAsset() {
	suite.client.getBalanceService.balances = []*futures.Balance{
		{Asset: "BNB", Balance: "1.5", AvailableBalance: "1.5"},
	}

	_, err := suite.exchange.GetBalance(suite.ctx)
	suite.Require().Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeBalanceFailed))
}

func (suite *BinanceExchangeTestSuite) TestGetPosition() {
	suite.client.positionRiskService.risks = []*futures.PositionRisk{
		{PositionAmt: "0.5", EntryPrice: "50000", UnRealizedProfit: "120.5", Leverage: "10"},
	}

	position, err := suite.exchange.GetPosition(suite.ctx, "BTCUSDT")
	suite.Require().NoError(err)
	suite.InDelta(0.5, position.Quantity, 1e-9)
	suite.InDelta(50000, position.EntryPrice, 1e-9)
	suite.InDelta(120.5, position.UnrealizedPnL, 1e-9)
	suite.Equal(10, position.Leverage)
}

func (suite *BinanceExchangeTestSuite) TestGetPositionFlatSymbol() {
	position, err := suite.exchange.GetPosition(suite.ctx, "BTCUSDT")
	suite.Require().NoError(err)
	suite.Zero(position.Quantity)
	suite.Equal("BTCUSDT", position.Symbol)
}

func (suite *BinanceExchangeTestSuite) TestEntryAndCloseSides() {
	suite.Equal(OrderSideBuy, EntrySide("LONG"))
	suite.Equal(OrderSideSell, EntrySide("SHORT"))
	suite.Equal(OrderSideSell, CloseSide("LONG"))
	suite.Equal(OrderSideBuy, CloseSide("SHORT"))
}
