package execution

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openquant-labs/signalfan/internal/exchange"
	"github.com/openquant-labs/signalfan/internal/types"
	"github.com/openquant-labs/signalfan/internal/utils"
	"github.com/openquant-labs/signalfan/pkg/errors"
)

// Result is the outcome of one execution attempt. Duplicate deliveries and
// validation failures are reported here, not as errors; only store failures
// that leave the attempt in an unknown state surface as errors.
type Result struct {
	Success    bool                  `json:"success"`
	PositionID string                `json:"positionId,omitempty"`
	Status     types.ExecutionStatus `json:"status"`
	Reason     string                `json:"reason,omitempty"`
}

// Execute attempts to open a position from the signal. The dedup record is
// reserved before anything else: losing that race is a terminal rejection and
// no order is ever placed. Every later failure still marks the reserved
// record, so a retry is always an explicit subscriber action.
func (e *Engine) Execute(ctx context.Context, signal types.TradingSignal) (Result, error) {
	start := e.now().UTC()

	inserted, err := e.store.RecordExecutionIfAbsent(ctx, types.ExecutionRecord{
		SignalID:     signal.ID,
		SubscriberID: e.subscriberID,
		Status:       types.ExecutionStatusPending,
		CreatedAt:    start,
	})
	if err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to reserve execution record", err)
	}

	if !inserted {
		e.log.Debug("signal already recorded for subscriber, skipping",
			zap.String("signal_id", signal.ID),
			zap.String("subscriber_id", e.subscriberID),
		)

		return Result{
			Success: false,
			Status:  types.ExecutionStatusRejected,
			Reason:  "execution already recorded for this signal",
		}, nil
	}

	if validation := e.Validate(ctx, signal); !validation.Valid {
		reason := strings.Join(validation.Errors, "; ")

		if err := e.store.MarkExecutionFailed(ctx, signal.ID, e.subscriberID, types.ExecutionStatusRejected, reason); err != nil {
			return Result{}, err
		}

		return Result{Success: false, Status: types.ExecutionStatusRejected, Reason: reason}, nil
	}

	position, err := e.openPosition(ctx, signal)
	if err != nil {
		e.log.Error("execution failed",
			zap.String("signal_id", signal.ID),
			zap.String("subscriber_id", e.subscriberID),
			zap.Error(err),
		)

		if markErr := e.store.MarkExecutionFailed(ctx, signal.ID, e.subscriberID, types.ExecutionStatusFailed, err.Error()); markErr != nil {
			return Result{}, markErr
		}

		return Result{Success: false, Status: types.ExecutionStatusFailed, Reason: err.Error()}, nil
	}

	slippage := utils.SlippagePct(signal.EntryPrice, position.EntryPrice)
	latency := e.now().UTC().Sub(start).Milliseconds()

	if err := e.store.MarkExecutionExecuted(ctx, signal.ID, e.subscriberID, position.ID, slippage, latency); err != nil {
		return Result{}, err
	}

	e.log.Info("position opened",
		zap.String("signal_id", signal.ID),
		zap.String("subscriber_id", e.subscriberID),
		zap.String("position_id", position.ID),
		zap.String("side", string(position.Side)),
		zap.Float64("quantity", position.Quantity),
		zap.Float64("entry", position.EntryPrice),
		zap.Float64("slippage_pct", slippage),
		zap.Int64("latency_ms", latency),
	)

	return Result{Success: true, PositionID: position.ID, Status: types.ExecutionStatusExecuted}, nil
}

// openPosition performs every exchange interaction for an entry: margin and
// leverage setup, the market entry, the reduce-only bracket, and persisting
// the position record.
func (e *Engine) openPosition(ctx context.Context, signal types.TradingSignal) (types.Position, error) {
	symbol := signal.Symbol
	side := types.SideForAction(signal.Action)

	if err := e.exchange.SetMarginType(ctx, symbol, e.marginType); err != nil {
		return types.Position{}, err
	}

	if err := e.exchange.SetLeverage(ctx, symbol, e.settings.Leverage); err != nil {
		return types.Position{}, err
	}

	balance, err := e.exchange.GetBalance(ctx)
	if err != nil {
		return types.Position{}, err
	}

	stopLoss, _ := e.bracketFor(signal, side, signal.EntryPrice)

	riskAmount := balance.Total * e.settings.RiskPerTradePct / 100

	quantity := utils.QuantityFromRisk(riskAmount, signal.EntryPrice, stopLoss)
	if quantity <= 0 {
		return types.Position{}, errors.New(errors.ErrCodeInvalidQuantity, "computed entry quantity is zero")
	}

	order, err := e.exchange.MarketOrder(ctx, symbol, exchange.EntrySide(side), quantity, false)
	if err != nil {
		return types.Position{}, err
	}

	fillPrice := order.AvgPrice
	if fillPrice <= 0 {
		fillPrice = signal.EntryPrice
	}

	filledQty := order.ExecutedQty
	if filledQty <= 0 {
		filledQty = quantity
	}

	// Re-price the bracket around the actual fill so slippage cannot leave
	// the stop on the wrong side of the entry.
	liveStopLoss, liveTakeProfit := e.bracketFor(signal, side, fillPrice)

	closeSide := exchange.CloseSide(side)

	if _, err := e.exchange.StopLossOrder(ctx, symbol, closeSide, filledQty, liveStopLoss); err != nil {
		e.unwindEntry(ctx, symbol, closeSide, filledQty, err)

		return types.Position{}, err
	}

	if _, err := e.exchange.TakeProfitOrder(ctx, symbol, closeSide, filledQty, liveTakeProfit); err != nil {
		e.unwindEntry(ctx, symbol, closeSide, filledQty, err)

		return types.Position{}, err
	}

	position := types.Position{
		ID:               uuid.NewString(),
		SubscriberID:     e.subscriberID,
		SignalID:         signal.ID,
		Symbol:           symbol,
		Side:             side,
		EntryPrice:       fillPrice,
		EntryTime:        e.now().UTC(),
		Quantity:         filledQty,
		Leverage:         e.settings.Leverage,
		StopLoss:         liveStopLoss,
		TakeProfit:       liveTakeProfit,
		SignalStopLoss:   signal.StopLoss,
		SignalTakeProfit: signal.TakeProfit,
		Status:           types.PositionStatusOpen,
	}

	if err := e.store.SavePosition(ctx, position); err != nil {
		return types.Position{}, err
	}

	if signal.Trailing.IsSome() {
		e.rememberTrailing(position.ID, signal.Trailing.Unwrap())
	}

	return position, nil
}

// bracketFor derives the stop-loss and take-profit around the given base
// price. Subscriber percentage overrides win over the signal's levels; the
// signal's levels are converted to percentage distances so they track a
// re-priced base.
func (e *Engine) bracketFor(signal types.TradingSignal, side types.PositionSide, basePrice float64) (stopLoss, takeProfit float64) {
	stopLossPct := percentDistance(signal.EntryPrice, signal.StopLoss)
	if e.settings.StopLossPct.IsSome() {
		stopLossPct = e.settings.StopLossPct.Unwrap()
	}

	takeProfitPct := percentDistance(signal.EntryPrice, signal.TakeProfit)
	if e.settings.TakeProfitPct.IsSome() {
		takeProfitPct = e.settings.TakeProfitPct.Unwrap()
	}

	if side == types.PositionSideLong {
		return basePrice * (1 - stopLossPct/100), basePrice * (1 + takeProfitPct/100)
	}

	return basePrice * (1 + stopLossPct/100), basePrice * (1 - takeProfitPct/100)
}

// unwindEntry flattens a just-filled entry whose bracket could not be placed,
// so no position is left without a resting stop. The unwind is best effort;
// callers report the original bracket error.
func (e *Engine) unwindEntry(ctx context.Context, symbol string, closeSide exchange.OrderSide, quantity float64, cause error) {
	if err := e.exchange.CancelAllOrders(ctx, symbol); err != nil {
		e.log.Error("failed to cancel orders while unwinding entry",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
	}

	if _, err := e.exchange.MarketOrder(ctx, symbol, closeSide, quantity, true); err != nil {
		e.log.Error("failed to unwind unprotected entry",
			zap.String("symbol", symbol),
			zap.Float64("quantity", quantity),
			zap.NamedError("bracket_error", cause),
			zap.Error(err),
		)

		return
	}

	e.log.Warn("entry unwound after bracket failure",
		zap.String("symbol", symbol),
		zap.Float64("quantity", quantity),
		zap.Error(cause),
	)
}

func percentDistance(entry, level float64) float64 {
	if entry <= 0 {
		return 0
	}

	distance := (level - entry) / entry * 100
	if distance < 0 {
		distance = -distance
	}

	return distance
}
