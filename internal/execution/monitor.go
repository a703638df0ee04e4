package execution

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/openquant-labs/signalfan/internal/types"
	"github.com/openquant-labs/signalfan/pkg/errors"
)

// MonitorPosition runs one monitoring tick for the position: fetch the mark
// price, evaluate the exit rules, and either close the position or persist
// its updated trailing state. A closed position is a no-op.
func (e *Engine) MonitorPosition(ctx context.Context, positionID string) error {
	position, err := e.store.GetPosition(ctx, positionID)
	if err != nil {
		return err
	}

	if position.Status == types.PositionStatusClosed {
		return nil
	}

	markPrice, err := e.exchange.GetMarkPrice(ctx, position.Symbol)
	if err != nil {
		return errors.Wrap(errors.ErrCodeMonitorTickFailed, "failed to fetch mark price", err)
	}

	trailing := optional.None[types.TrailingConfig]()
	if cfg, ok := e.trailingFor(position.ID); ok {
		trailing = optional.Some(cfg)
	}

	decision := evaluateExit(&position, trailing, markPrice)

	if decision.close {
		_, err := e.ClosePosition(ctx, position.ID, decision.reason, markPrice)

		return err
	}

	if decision.changed {
		return e.store.UpdatePosition(ctx, position)
	}

	return nil
}

// MonitorLoop ticks every monitor interval over the subscriber's open
// positions until the context is cancelled. A failing tick is logged and
// skipped; the remaining positions still get their tick.
func (e *Engine) MonitorLoop(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.log.Info("position monitor started",
		zap.String("subscriber_id", e.subscriberID),
		zap.Duration("interval", e.interval),
	)

	for {
		select {
		case <-ctx.Done():
			e.log.Info("position monitor stopped", zap.String("subscriber_id", e.subscriberID))

			return
		case <-ticker.C:
			e.monitorTick(ctx)
		}
	}
}

func (e *Engine) monitorTick(ctx context.Context) {
	positions, err := e.store.OpenPositions(ctx, e.subscriberID)
	if err != nil {
		e.log.Error("failed to list open positions", zap.Error(err))

		return
	}

	for _, position := range positions {
		if err := e.MonitorPosition(ctx, position.ID); err != nil {
			e.log.Error("monitor tick failed",
				zap.String("position_id", position.ID),
				zap.String("symbol", position.Symbol),
				zap.Error(err),
			)
		}
	}
}
