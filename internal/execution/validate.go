package execution

import (
	"context"
	"fmt"
	"math"

	"github.com/openquant-labs/signalfan/internal/types"
)

// ValidationResult lists every live constraint a signal failed. An empty
// Errors slice means the signal may be executed.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Validate checks the signal against live state: expiry and terminal status,
// allow-list and strength floor, venue connectivity, the reserve-balance
// floor, the open-position cap, and mark-price drift from the signal's
// entry. All checks run so the
// result names every violated constraint, not just the first.
func (e *Engine) Validate(ctx context.Context, signal types.TradingSignal) ValidationResult {
	errs := make([]string, 0)

	if signal.Expired(e.now().UTC()) {
		errs = append(errs, "signal expired")
	}

	if signal.Status.IsTerminal() {
		errs = append(errs, fmt.Sprintf("signal status %s is terminal", signal.Status))
	}

	if !e.settings.SymbolAllowed(signal.Symbol) {
		errs = append(errs, fmt.Sprintf("symbol %s is not in the allow-list", signal.Symbol))
	}

	if !e.settings.FollowsStrength(signal.Strength) {
		errs = append(errs, fmt.Sprintf("strength %s below subscriber floor %s",
			signal.Strength, e.settings.MinStrength))
	}

	if err := e.exchange.Ping(ctx); err != nil {
		errs = append(errs, "exchange is unreachable")

		return ValidationResult{Valid: false, Errors: errs}
	}

	balance, err := e.exchange.GetBalance(ctx)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to fetch balance: %v", err))
	} else if balance.Total < e.settings.MinReserveBalance {
		errs = append(errs, fmt.Sprintf("balance %.2f below reserve floor %.2f",
			balance.Total, e.settings.MinReserveBalance))
	}

	open, err := e.store.OpenPositions(ctx, e.subscriberID)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to count open positions: %v", err))
	} else if len(open) >= e.settings.MaxOpenPositions {
		errs = append(errs, fmt.Sprintf("open positions %d at limit %d",
			len(open), e.settings.MaxOpenPositions))
	}

	mark, err := e.exchange.GetMarkPrice(ctx, signal.Symbol)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to fetch mark price: %v", err))
	} else if signal.EntryPrice > 0 {
		drift := math.Abs(mark-signal.EntryPrice) / signal.EntryPrice * 100
		if drift > MaxPriceDriftPct {
			errs = append(errs, fmt.Sprintf("mark price %.4f drifted %.3f%% from signal entry %.4f",
				mark, drift, signal.EntryPrice))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
