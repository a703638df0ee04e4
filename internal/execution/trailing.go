package execution

import (
	"github.com/moznion/go-optional"

	"github.com/openquant-labs/signalfan/internal/types"
)

// exitDecision is the outcome of one monitoring tick for one position.
type exitDecision struct {
	close  bool
	reason types.ExitReason
	// changed reports that trailing state on the position was updated and
	// must be persisted even though the position stays open.
	changed bool
}

// evaluateExit applies the exit rules to the position at the given mark
// price, mutating the position's trailing state in place. Rules run in a
// fixed priority; the first match closes the position:
//
//  1. signed P&L at or below the emergency floor
//  2. the static stop-loss level
//  3. the static take-profit level
//  4. trailing profit giving back its trail distance from the peak
//  5. trailing loss recovering its trail distance from the trough
//
// All percentage comparisons use the signed P&L, which already inverts the
// raw price delta for shorts.
func evaluateExit(position *types.Position, trailing optional.Option[types.TrailingConfig], markPrice float64) exitDecision {
	pnlPct := position.PnLPct(markPrice)

	if pnlPct <= EmergencyStopPct {
		return exitDecision{close: true, reason: types.ExitReasonEmergencyExit}
	}

	if crossedStopLoss(position, markPrice) {
		return exitDecision{close: true, reason: types.ExitReasonStopLoss}
	}

	if crossedTakeProfit(position, markPrice) {
		return exitDecision{close: true, reason: types.ExitReasonTakeProfit}
	}

	if trailing.IsNone() {
		return exitDecision{}
	}

	cfg := trailing.Unwrap()
	changed := false

	// Trailing profit: arm at the activation threshold, ride the peak, close
	// when the profit gives back the trail distance.
	if cfg.ProfitTrailPct > 0 && pnlPct >= cfg.ProfitActivatePct {
		if !position.TrailingProfitActive {
			position.TrailingProfitActive = true
			position.PeakProfitPct = pnlPct
			changed = true
		} else if pnlPct > position.PeakProfitPct {
			position.PeakProfitPct = pnlPct
			changed = true
		}
	}

	if position.TrailingProfitActive && pnlPct <= position.PeakProfitPct-cfg.ProfitTrailPct {
		return exitDecision{close: true, reason: types.ExitReasonTrailingProfit}
	}

	// Trailing loss: arm below the (negative) activation threshold, track the
	// trough, close when the loss recovers by the trail distance.
	if cfg.LossTrailPct > 0 && pnlPct <= cfg.LossActivatePct {
		if !position.TrailingLossActive {
			position.TrailingLossActive = true
			position.TroughLossPct = pnlPct
			changed = true
		} else if pnlPct < position.TroughLossPct {
			position.TroughLossPct = pnlPct
			changed = true
		}
	}

	if position.TrailingLossActive && pnlPct >= position.TroughLossPct+cfg.LossTrailPct {
		return exitDecision{close: true, reason: types.ExitReasonTrailingLoss}
	}

	return exitDecision{changed: changed}
}

func crossedStopLoss(position *types.Position, markPrice float64) bool {
	if position.StopLoss <= 0 {
		return false
	}

	if position.Side == types.PositionSideShort {
		return markPrice >= position.StopLoss
	}

	return markPrice <= position.StopLoss
}

func crossedTakeProfit(position *types.Position, markPrice float64) bool {
	if position.TakeProfit <= 0 {
		return false
	}

	if position.Side == types.PositionSideShort {
		return markPrice <= position.TakeProfit
	}

	return markPrice >= position.TakeProfit
}
