// Package exchange abstracts the derivatives venue the execution engine
// trades on. The production implementation talks to Binance USDT-margined
// futures; tests substitute a scripted fake.
package exchange

import (
	"context"

	"github.com/openquant-labs/signalfan/internal/types"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// EntrySide returns the order side that opens a position on the given side.
func EntrySide(side types.PositionSide) OrderSide {
	if side == types.PositionSideShort {
		return OrderSideSell
	}

	return OrderSideBuy
}

// CloseSide returns the order side that closes a position on the given side.
func CloseSide(side types.PositionSide) OrderSide {
	if side == types.PositionSideShort {
		return OrderSideBuy
	}

	return OrderSideSell
}

// MarginType selects how collateral backs a position.
type MarginType string

const (
	MarginTypeIsolated MarginType = "ISOLATED"
	MarginTypeCrossed  MarginType = "CROSSED"
)

// OrderResult reports a placed order.
type OrderResult struct {
	OrderID     int64   `json:"orderId"`
	Symbol      string  `json:"symbol"`
	AvgPrice    float64 `json:"avgPrice"`
	ExecutedQty float64 `json:"executedQty"`
}

// Balance is the account balance in quote currency.
type Balance struct {
	Total     float64 `json:"total"`
	Available float64 `json:"available"`
}

// PositionInfo is the venue's view of an open position.
type PositionInfo struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	EntryPrice    float64 `json:"entryPrice"`
	UnrealizedPnL float64 `json:"unrealizedPnl"`
	Leverage      int     `json:"leverage"`
}

// Exchange is the trading venue collaborator. All calls are authenticated
// and may fail with wrapped transport or venue errors; callers convert those
// into failed execution records rather than propagating them upward.
type Exchange interface {
	// Ping verifies connectivity to the venue.
	Ping(ctx context.Context) error

	// SetLeverage sets the leverage for future orders on the symbol.
	SetLeverage(ctx context.Context, symbol string, leverage int) error

	// SetMarginType sets the margin mode for the symbol.
	SetMarginType(ctx context.Context, symbol string, marginType MarginType) error

	// MarketOrder places a market order. reduceOnly orders can only shrink an
	// existing position.
	MarketOrder(ctx context.Context, symbol string, side OrderSide, quantity float64, reduceOnly bool) (OrderResult, error)

	// StopLossOrder places a reduce-only stop-market order at stopPrice.
	StopLossOrder(ctx context.Context, symbol string, side OrderSide, quantity, stopPrice float64) (OrderResult, error)

	// TakeProfitOrder places a reduce-only take-profit-market order.
	TakeProfitOrder(ctx context.Context, symbol string, side OrderSide, quantity, stopPrice float64) (OrderResult, error)

	// CancelAllOrders cancels every resting order on the symbol.
	CancelAllOrders(ctx context.Context, symbol string) error

	// GetMarkPrice returns the current mark price for the symbol.
	GetMarkPrice(ctx context.Context, symbol string) (float64, error)

	// GetBalance returns the quote-currency account balance.
	GetBalance(ctx context.Context) (Balance, error)

	// GetPosition returns the venue's position for the symbol. A flat symbol
	// returns a zero-quantity PositionInfo, not an error.
	GetPosition(ctx context.Context, symbol string) (PositionInfo, error)
}
