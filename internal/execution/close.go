package execution

import (
	"context"

	"go.uber.org/zap"

	"github.com/openquant-labs/signalfan/internal/exchange"
	"github.com/openquant-labs/signalfan/internal/types"
	"github.com/openquant-labs/signalfan/internal/utils"
	"github.com/openquant-labs/signalfan/pkg/errors"
)

// ClosePosition flattens the position with a reduce-only market order and
// finalizes its record. fallbackPrice is used for the realized P&L when the
// exchange does not report a fill price. Closing an already closed position
// is an error so callers cannot double-book P&L.
func (e *Engine) ClosePosition(ctx context.Context, positionID string, reason types.ExitReason, fallbackPrice float64) (types.Position, error) {
	position, err := e.store.GetPosition(ctx, positionID)
	if err != nil {
		return types.Position{}, err
	}

	if position.Status == types.PositionStatusClosed {
		return types.Position{}, errors.Newf(errors.ErrCodePositionClosed, "position %s is already closed", positionID)
	}

	// Resting bracket orders must go before the reduce-only close, otherwise
	// a stop could trigger against the already flat position.
	if err := e.exchange.CancelAllOrders(ctx, position.Symbol); err != nil {
		return types.Position{}, err
	}

	order, err := e.exchange.MarketOrder(ctx, position.Symbol, exchange.CloseSide(position.Side), position.Quantity, true)
	if err != nil {
		return types.Position{}, err
	}

	exitPrice := order.AvgPrice
	if exitPrice <= 0 {
		exitPrice = fallbackPrice
	}

	pnl := position.RealizedPnLAt(exitPrice)
	fee := e.fee.Calculate(pnl)

	position.Status = types.PositionStatusClosed
	position.ExitReason = reason
	position.ExitPrice = exitPrice
	position.ExitTime = e.now().UTC()
	position.RealizedPnL = utils.NetProfit(pnl, e.fee)
	position.Fee = fee

	if err := e.store.UpdatePosition(ctx, position); err != nil {
		return types.Position{}, err
	}

	e.forgetTrailing(position.ID)

	e.log.Info("position closed",
		zap.String("position_id", position.ID),
		zap.String("symbol", position.Symbol),
		zap.String("reason", string(reason)),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("realized_pnl", position.RealizedPnL),
		zap.Float64("fee", fee),
	)

	return position, nil
}
