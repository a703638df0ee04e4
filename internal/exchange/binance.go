package exchange

import (
	"context"
	"strconv"

	"github.com/adshao/go-binance/v2/futures"

	"github.com/openquant-labs/signalfan/internal/utils"
	"github.com/openquant-labs/signalfan/pkg/errors"
)

const (
	// BinanceDecimalPrecision is a default decimal precision used as a fallback.
	// Production systems should use symbol-specific precision from the exchange
	// info filters (LOT_SIZE, PRICE_FILTER).
	BinanceDecimalPrecision = 8

	// quoteAsset is the settlement currency of the futures account.
	quoteAsset = "USDT"
)

// Service interfaces for mocking the Binance futures API

// PingService interface for connectivity checks.
type PingService interface {
	Do(ctx context.Context) error
}

// ChangeLeverageService interface for setting symbol leverage.
type ChangeLeverageService interface {
	Symbol(symbol string) ChangeLeverageService
	Leverage(leverage int) ChangeLeverageService
	Do(ctx context.Context) (*futures.SymbolLeverage, error)
}

// ChangeMarginTypeService interface for setting the margin mode.
type ChangeMarginTypeService interface {
	Symbol(symbol string) ChangeMarginTypeService
	MarginType(marginType futures.MarginType) ChangeMarginTypeService
	Do(ctx context.Context) error
}

// CreateOrderService interface for placing orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side futures.SideType) CreateOrderService
	Type(orderType futures.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	StopPrice(stopPrice string) CreateOrderService
	ReduceOnly(reduceOnly bool) CreateOrderService
	Do(ctx context.Context) (*futures.CreateOrderResponse, error)
}

// CancelAllOpenOrdersService interface for cancelling all resting orders.
type CancelAllOpenOrdersService interface {
	Symbol(symbol string) CancelAllOpenOrdersService
	Do(ctx context.Context) error
}

// PremiumIndexService interface for mark-price queries.
type PremiumIndexService interface {
	Symbol(symbol string) PremiumIndexService
	Do(ctx context.Context) ([]*futures.PremiumIndex, error)
}

// GetBalanceService interface for account balance queries.
type GetBalanceService interface {
	Do(ctx context.Context) ([]*futures.Balance, error)
}

// PositionRiskService interface for position queries.
type PositionRiskService interface {
	Symbol(symbol string) PositionRiskService
	Do(ctx context.Context) ([]*futures.PositionRisk, error)
}

// FuturesClient interface abstracts the Binance futures client for testing.
type FuturesClient interface {
	NewPingService() PingService
	NewChangeLeverageService() ChangeLeverageService
	NewChangeMarginTypeService() ChangeMarginTypeService
	NewCreateOrderService() CreateOrderService
	NewCancelAllOpenOrdersService() CancelAllOpenOrdersService
	NewPremiumIndexService() PremiumIndexService
	NewGetBalanceService() GetBalanceService
	NewPositionRiskService() PositionRiskService
}

// realFuturesClient wraps the actual futures.Client.
type realFuturesClient struct {
	client *futures.Client
}

func (r *realFuturesClient) NewPingService() PingService {
	return &realPingService{service: r.client.NewPingService()}
}

func (r *realFuturesClient) NewChangeLeverageService() ChangeLeverageService {
	return &realChangeLeverageService{service: r.client.NewChangeLeverageService()}
}

func (r *realFuturesClient) NewChangeMarginTypeService() ChangeMarginTypeService {
	return &realChangeMarginTypeService{service: r.client.NewChangeMarginTypeService()}
}

func (r *realFuturesClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realFuturesClient) NewCancelAllOpenOrdersService() CancelAllOpenOrdersService {
	return &realCancelAllOpenOrdersService{service: r.client.NewCancelAllOpenOrdersService()}
}

func (r *realFuturesClient) NewPremiumIndexService() PremiumIndexService {
	return &realPremiumIndexService{service: r.client.NewPremiumIndexService()}
}

func (r *realFuturesClient) NewGetBalanceService() GetBalanceService {
	return &realGetBalanceService{service: r.client.NewGetBalanceService()}
}

func (r *realFuturesClient) NewPositionRiskService() PositionRiskService {
	return &realPositionRiskService{service: r.client.NewGetPositionRiskService()}
}

// Real service wrappers

type realPingService struct {
	service *futures.PingService
}

func (s *realPingService) Do(ctx context.Context) error {
	return s.service.Do(ctx)
}

type realGetBalanceService struct {
	service *futures.GetBalanceService
}

func (s *realGetBalanceService) Do(ctx context.Context) ([]*futures.Balance, error) {
	return s.service.Do(ctx)
}

type realChangeLeverageService struct {
	service *futures.ChangeLeverageService
}

func (s *realChangeLeverageService) Symbol(symbol string) ChangeLeverageService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realChangeLeverageService) Leverage(leverage int) ChangeLeverageService {
	s.service = s.service.Leverage(leverage)

	return s
}

func (s *realChangeLeverageService) Do(ctx context.Context) (*futures.SymbolLeverage, error) {
	return s.service.Do(ctx)
}

type realChangeMarginTypeService struct {
	service *futures.ChangeMarginTypeService
}

func (s *realChangeMarginTypeService) Symbol(symbol string) ChangeMarginTypeService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realChangeMarginTypeService) MarginType(marginType futures.MarginType) ChangeMarginTypeService {
	s.service = s.service.MarginType(marginType)

	return s
}

func (s *realChangeMarginTypeService) Do(ctx context.Context) error {
	return s.service.Do(ctx)
}

type realCreateOrderService struct {
	service *futures.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side futures.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType futures.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) StopPrice(stopPrice string) CreateOrderService {
	s.service = s.service.StopPrice(stopPrice)

	return s
}

func (s *realCreateOrderService) ReduceOnly(reduceOnly bool) CreateOrderService {
	s.service = s.service.ReduceOnly(reduceOnly)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*futures.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realCancelAllOpenOrdersService struct {
	service *futures.CancelAllOpenOrdersService
}

func (s *realCancelAllOpenOrdersService) Symbol(symbol string) CancelAllOpenOrdersService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCancelAllOpenOrdersService) Do(ctx context.Context) error {
	return s.service.Do(ctx)
}

type realPremiumIndexService struct {
	service *futures.PremiumIndexService
}

func (s *realPremiumIndexService) Symbol(symbol string) PremiumIndexService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realPremiumIndexService) Do(ctx context.Context) ([]*futures.PremiumIndex, error) {
	return s.service.Do(ctx)
}

type realPositionRiskService struct {
	service *futures.GetPositionRiskService
}

func (s *realPositionRiskService) Symbol(symbol string) PositionRiskService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realPositionRiskService) Do(ctx context.Context) ([]*futures.PositionRisk, error) {
	return s.service.Do(ctx)
}

// BinanceConfig holds the credentials and endpoint selection for the
// futures client.
type BinanceConfig struct {
	ApiKey    string `yaml:"api_key" json:"apiKey"`
	SecretKey string `yaml:"secret_key" json:"secretKey"`
	BaseURL   string `yaml:"base_url" json:"baseUrl"`
}

// BinanceExchange implements Exchange against Binance USDT-margined futures.
// It is stateless; every call goes straight to the venue.
type BinanceExchange struct {
	client           FuturesClient
	decimalPrecision int
}

// NewBinanceExchange creates a futures exchange client. If useTestnet is
// true it connects to the Binance futures testnet; an explicit BaseURL takes
// precedence.
func NewBinanceExchange(config BinanceConfig, useTestnet bool) *BinanceExchange {
	if useTestnet {
		futures.UseTestnet = true
	}

	client := futures.NewClient(config.ApiKey, config.SecretKey)

	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return &BinanceExchange{
		client:           &realFuturesClient{client: client},
		decimalPrecision: BinanceDecimalPrecision,
	}
}

// newBinanceExchangeWithClient creates an exchange with a custom client.
// This is used for testing with mock clients.
func newBinanceExchangeWithClient(client FuturesClient) *BinanceExchange {
	return &BinanceExchange{
		client:           client,
		decimalPrecision: BinanceDecimalPrecision,
	}
}

// Ping implements Exchange.
func (b *BinanceExchange) Ping(ctx context.Context) error {
	if err := b.client.NewPingService().Do(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeExchangeState, "failed to reach Binance", err)
	}

	return nil
}

// SetLeverage implements Exchange.
func (b *BinanceExchange) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	if leverage < 1 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "leverage %d must be at least 1", leverage)
	}

	_, err := b.client.NewChangeLeverageService().
		Symbol(symbol).
		Leverage(leverage).
		Do(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLeverageFailed, "failed to set leverage on Binance", err)
	}

	return nil
}

// SetMarginType implements Exchange. Binance rejects a no-op change with a
// dedicated error; callers may treat that as success.
func (b *BinanceExchange) SetMarginType(ctx context.Context, symbol string, marginType MarginType) error {
	var futuresMode futures.MarginType

	switch marginType {
	case MarginTypeIsolated:
		futuresMode = futures.MarginTypeIsolated
	case MarginTypeCrossed:
		futuresMode = futures.MarginTypeCrossed
	default:
		return errors.Newf(errors.ErrCodeInvalidParameter, "unsupported margin type: %s", marginType)
	}

	err := b.client.NewChangeMarginTypeService().
		Symbol(symbol).
		MarginType(futuresMode).
		Do(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeExchangeState, "failed to set margin type on Binance", err)
	}

	return nil
}

// MarketOrder implements Exchange.
func (b *BinanceExchange) MarketOrder(ctx context.Context, symbol string, side OrderSide, quantity float64, reduceOnly bool) (OrderResult, error) {
	quantityStr, err := b.formatQuantity(quantity)
	if err != nil {
		return OrderResult{}, err
	}

	futuresSide, err := mapSide(side)
	if err != nil {
		return OrderResult{}, err
	}

	response, err := b.client.NewCreateOrderService().
		Symbol(symbol).
		Side(futuresSide).
		Type(futures.OrderTypeMarket).
		Quantity(quantityStr).
		ReduceOnly(reduceOnly).
		Do(ctx)
	if err != nil {
		return OrderResult{}, errors.Wrap(errors.ErrCodeOrderFailed, "failed to place market order on Binance", err)
	}

	return orderResult(response), nil
}

// StopLossOrder implements Exchange.
func (b *BinanceExchange) StopLossOrder(ctx context.Context, symbol string, side OrderSide, quantity, stopPrice float64) (OrderResult, error) {
	return b.triggerOrder(ctx, symbol, side, quantity, stopPrice, futures.OrderTypeStopMarket)
}

// TakeProfitOrder implements Exchange.
func (b *BinanceExchange) TakeProfitOrder(ctx context.Context, symbol string, side OrderSide, quantity, stopPrice float64) (OrderResult, error) {
	return b.triggerOrder(ctx, symbol, side, quantity, stopPrice, futures.OrderTypeTakeProfitMarket)
}

func (b *BinanceExchange) triggerOrder(ctx context.Context, symbol string, side OrderSide, quantity, stopPrice float64, orderType futures.OrderType) (OrderResult, error) {
	quantityStr, err := b.formatQuantity(quantity)
	if err != nil {
		return OrderResult{}, err
	}

	futuresSide, err := mapSide(side)
	if err != nil {
		return OrderResult{}, err
	}

	if stopPrice <= 0 {
		return OrderResult{}, errors.New(errors.ErrCodeInvalidParameter, "stop price must be greater than zero")
	}

	response, err := b.client.NewCreateOrderService().
		Symbol(symbol).
		Side(futuresSide).
		Type(orderType).
		Quantity(quantityStr).
		StopPrice(strconv.FormatFloat(stopPrice, 'f', -1, 64)).
		ReduceOnly(true).
		Do(ctx)
	if err != nil {
		return OrderResult{}, errors.Wrap(errors.ErrCodeOrderFailed, "failed to place trigger order on Binance", err)
	}

	return orderResult(response), nil
}

// CancelAllOrders implements Exchange.
func (b *BinanceExchange) CancelAllOrders(ctx context.Context, symbol string) error {
	err := b.client.NewCancelAllOpenOrdersService().
		Symbol(symbol).
		Do(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeCancelOrdersFailed, "failed to cancel open orders on Binance", err)
	}

	return nil
}

// GetMarkPrice implements Exchange.
func (b *BinanceExchange) GetMarkPrice(ctx context.Context, symbol string) (float64, error) {
	indexes, err := b.client.NewPremiumIndexService().
		Symbol(symbol).
		Do(ctx)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeMarkPriceFailed, "failed to fetch mark price from Binance", err)
	}

	if len(indexes) == 0 {
		return 0, errors.Newf(errors.ErrCodeMarkPriceFailed, "no mark price returned for %s", symbol)
	}

	price, err := strconv.ParseFloat(indexes[0].MarkPrice, 64)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeMarkPriceFailed, "failed to parse mark price", err)
	}

	return price, nil
}

// GetBalance implements Exchange.
func (b *BinanceExchange) GetBalance(ctx context.Context) (Balance, error) {
	balances, err := b.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		return Balance{}, errors.Wrap(errors.ErrCodeBalanceFailed, "failed to fetch balance from Binance", err)
	}

	for _, balance := range balances {
		if balance.Asset != quoteAsset {
			continue
		}

		total, _ := strconv.ParseFloat(balance.Balance, 64)
		available, _ := strconv.ParseFloat(balance.AvailableBalance, 64)

		return Balance{Total: total, Available: available}, nil
	}

	return Balance{}, errors.Newf(errors.ErrCodeBalanceFailed, "no %s balance on the account", quoteAsset)
}

// GetPosition implements Exchange.
func (b *BinanceExchange) GetPosition(ctx context.Context, symbol string) (PositionInfo, error) {
	risks, err := b.client.NewPositionRiskService().
		Symbol(symbol).
		Do(ctx)
	if err != nil {
		return PositionInfo{}, errors.Wrap(errors.ErrCodeExchangeState, "failed to fetch position from Binance", err)
	}

	if len(risks) == 0 {
		return PositionInfo{Symbol: symbol}, nil
	}

	risk := risks[0]
	quantity, _ := strconv.ParseFloat(risk.PositionAmt, 64)
	entryPrice, _ := strconv.ParseFloat(risk.EntryPrice, 64)
	unrealized, _ := strconv.ParseFloat(risk.UnRealizedProfit, 64)
	leverage, _ := strconv.Atoi(risk.Leverage)

	return PositionInfo{
		Symbol:        symbol,
		Quantity:      quantity,
		EntryPrice:    entryPrice,
		UnrealizedPnL: unrealized,
		Leverage:      leverage,
	}, nil
}

func (b *BinanceExchange) formatQuantity(quantity float64) (string, error) {
	if quantity <= 0 {
		return "", errors.New(errors.ErrCodeInvalidQuantity, "order quantity must be greater than zero")
	}

	rounded := utils.RoundToDecimalPrecision(quantity, b.decimalPrecision)
	if rounded <= 0 {
		return "", errors.Newf(errors.ErrCodeInvalidQuantity,
			"order quantity %.8f is too small after rounding to %d decimal places",
			quantity, b.decimalPrecision)
	}

	return strconv.FormatFloat(rounded, 'f', b.decimalPrecision, 64), nil
}

func mapSide(side OrderSide) (futures.SideType, error) {
	switch side {
	case OrderSideBuy:
		return futures.SideTypeBuy, nil
	case OrderSideSell:
		return futures.SideTypeSell, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported order side: %s", side)
	}
}

func orderResult(response *futures.CreateOrderResponse) OrderResult {
	avgPrice, _ := strconv.ParseFloat(response.AvgPrice, 64)
	executedQty, _ := strconv.ParseFloat(response.ExecutedQuantity, 64)

	return OrderResult{
		OrderID:     response.OrderID,
		Symbol:      response.Symbol,
		AvgPrice:    avgPrice,
		ExecutedQty: executedQty,
	}
}
