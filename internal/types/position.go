package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionSide is the direction of an open position.
type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// SideForAction maps a signal action to the position side it opens.
func SideForAction(action SignalAction) PositionSide {
	if action == SignalActionSell {
		return PositionSideShort
	}

	return PositionSideLong
}

// PositionStatus is the lifecycle status of a position.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "OPEN"
	PositionStatusClosed PositionStatus = "CLOSED"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitReasonTakeProfit     ExitReason = "TAKE_PROFIT"
	ExitReasonStopLoss       ExitReason = "STOP_LOSS"
	ExitReasonTrailingProfit ExitReason = "TRAILING_PROFIT"
	ExitReasonTrailingLoss   ExitReason = "TRAILING_LOSS"
	ExitReasonEmergencyExit  ExitReason = "EMERGENCY_EXIT"

	// ExitReasonManual and ExitReasonSignalExpired are never produced by a
	// monitor rule; callers pass them to ClosePosition when an operator
	// flattens a position, or when one is retired because its originating
	// signal lapsed.
	ExitReasonManual        ExitReason = "MANUAL"
	ExitReasonSignalExpired ExitReason = "SIGNAL_EXPIRED"
)

// Position is one subscriber's holding opened from an accepted signal.
// It is owned exclusively by that subscriber's execution engine; only the
// engine's monitoring loop or close call mutate it.
type Position struct {
	ID           string       `yaml:"id" json:"id"`
	SubscriberID string       `yaml:"subscriber_id" json:"subscriberId"`
	SignalID     string       `yaml:"signal_id" json:"signalId"`
	Symbol       string       `yaml:"symbol" json:"symbol"`
	Side         PositionSide `yaml:"side" json:"side"`

	EntryPrice float64   `yaml:"entry_price" json:"entryPrice"`
	EntryTime  time.Time `yaml:"entry_time" json:"entryTime"`
	Quantity   float64   `yaml:"quantity" json:"quantity"`
	Leverage   int       `yaml:"leverage" json:"leverage"`

	// Live bracket levels, trailing-adjusted over the position's lifetime.
	StopLoss   float64 `yaml:"stop_loss" json:"stopLoss"`
	TakeProfit float64 `yaml:"take_profit" json:"takeProfit"`

	// Levels the originating signal carried, kept for audit.
	SignalStopLoss   float64 `yaml:"signal_stop_loss" json:"signalStopLoss"`
	SignalTakeProfit float64 `yaml:"signal_take_profit" json:"signalTakeProfit"`

	// Trailing parameters live on the signal; the monitor keeps its runtime
	// state here.
	TrailingProfitActive bool    `yaml:"trailing_profit_active" json:"trailingProfitActive"`
	TrailingLossActive   bool    `yaml:"trailing_loss_active" json:"trailingLossActive"`
	PeakProfitPct        float64 `yaml:"peak_profit_pct" json:"peakProfitPct"`
	TroughLossPct        float64 `yaml:"trough_loss_pct" json:"troughLossPct"`

	Status      PositionStatus `yaml:"status" json:"status"`
	ExitReason  ExitReason     `yaml:"exit_reason" json:"exitReason"`
	ExitPrice   float64        `yaml:"exit_price" json:"exitPrice"`
	ExitTime    time.Time      `yaml:"exit_time" json:"exitTime"`
	RealizedPnL float64        `yaml:"realized_pnl" json:"realizedPnl"`
	Fee         float64        `yaml:"fee" json:"fee"`
}

// PnLPct returns the signed profit percentage of the position at the given
// mark price. Short positions invert the sign of the raw price delta.
func (p *Position) PnLPct(markPrice float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}

	raw := (markPrice - p.EntryPrice) / p.EntryPrice * 100
	if p.Side == PositionSideShort {
		return -raw
	}

	return raw
}

// RealizedPnLAt computes the realized profit of closing the full quantity at
// the given exit price, before fees. Decimal math avoids float drift on the
// quantity multiplication.
func (p *Position) RealizedPnLAt(exitPrice float64) float64 {
	entry := decimal.NewFromFloat(p.EntryPrice)
	exit := decimal.NewFromFloat(exitPrice)
	qty := decimal.NewFromFloat(p.Quantity)

	diff := exit.Sub(entry)
	if p.Side == PositionSideShort {
		diff = entry.Sub(exit)
	}

	pnl, _ := diff.Mul(qty).Float64()

	return pnl
}
