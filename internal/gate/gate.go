// Package gate decides whether one subscriber should act on one signal.
// Decide is a pure function over its three inputs plus a clock; it performs
// no I/O and never returns an error for an ordinary rejection.
package gate

import (
	"fmt"
	"math"
	"time"

	"github.com/moznion/go-optional"

	"github.com/openquant-labs/signalfan/internal/types"
)

// DailyLossCapPct is the fraction of total balance a subscriber may lose in
// one day before new entries are refused.
const DailyLossCapPct = 5.0

// PositionPlan is the sizing the gate computed for an approved signal.
type PositionPlan struct {
	Symbol         string             `json:"symbol"`
	Side           types.PositionSide `json:"side"`
	Quantity       float64            `json:"quantity"`
	EntryPrice     float64            `json:"entryPrice"`
	StopLoss       float64            `json:"stopLoss"`
	TakeProfit     float64            `json:"takeProfit"`
	Leverage       int                `json:"leverage"`
	RiskAmount     float64            `json:"riskAmount"`
	RequiredMargin float64            `json:"requiredMargin"`
}

// Decision is the gate's verdict for one (signal, subscriber) pair.
type Decision struct {
	Execute          bool                          `json:"execute"`
	Reason           string                        `json:"reason"`
	RejectionReasons []string                      `json:"rejectionReasons,omitempty"`
	Position         optional.Option[PositionPlan] `json:"position"`
}

func reject(reason string) Decision {
	return Decision{
		Execute:          false,
		Reason:           reason,
		RejectionReasons: []string{reason},
		Position:         nil,
	}
}

// Decide evaluates the subscriber's constraints against the signal and the
// account snapshot, in a fixed order, returning on the first failure. On
// approval it carries the computed position plan.
func Decide(signal types.TradingSignal, settings types.SubscriberSettings, account types.AccountSnapshot, now time.Time) Decision {
	if !settings.Enabled {
		return reject("bot is disabled")
	}

	if !settings.SymbolAllowed(signal.Symbol) {
		return reject(fmt.Sprintf("symbol %s is not in the allow-list", signal.Symbol))
	}

	if account.Balance < settings.MinReserveBalance {
		return reject(fmt.Sprintf("balance %.2f below reserve floor %.2f",
			account.Balance, settings.MinReserveBalance))
	}

	if signal.Confidence < settings.MinConfidence {
		return reject(fmt.Sprintf("confidence %.1f below subscriber minimum %.1f",
			signal.Confidence, settings.MinConfidence))
	}

	if !settings.FollowsStrength(signal.Strength) {
		return reject(fmt.Sprintf("strength %s below subscriber floor %s",
			signal.Strength, settings.MinStrength))
	}

	if account.OpenPositions >= settings.MaxOpenPositions {
		return reject(fmt.Sprintf("open positions %d at limit %d",
			account.OpenPositions, settings.MaxOpenPositions))
	}

	if account.DailyLoss > account.Balance*DailyLossCapPct/100 {
		return reject(fmt.Sprintf("daily loss %.2f exceeds %.1f%% of balance",
			account.DailyLoss, DailyLossCapPct))
	}

	plan, err := buildPlan(signal, settings, account)
	if err != "" {
		return reject(err)
	}

	if account.AvailableBalance < plan.RequiredMargin {
		return reject(fmt.Sprintf("available balance %.2f below required margin %.2f",
			account.AvailableBalance, plan.RequiredMargin))
	}

	if signal.Expired(now) {
		return reject(fmt.Sprintf("signal expired at %s", signal.ExpiresAt.Format(time.RFC3339)))
	}

	return Decision{
		Execute:  true,
		Reason:   "all checks passed",
		Position: optional.Some(plan),
	}
}

// buildPlan applies any subscriber stop/take overrides and sizes the position
// from the risk budget and the final stop distance. Returns a non-empty
// rejection string when no valid plan exists.
func buildPlan(signal types.TradingSignal, settings types.SubscriberSettings, account types.AccountSnapshot) (PositionPlan, string) {
	if !signal.Action.IsEntry() {
		return PositionPlan{}, fmt.Sprintf("action %s does not open a position", signal.Action)
	}

	side := types.SideForAction(signal.Action)

	entry := signal.EntryPrice
	if entry <= 0 {
		return PositionPlan{}, "signal has no usable entry price"
	}

	stopLoss := signal.StopLoss
	takeProfit := signal.TakeProfit

	if settings.StopLossPct.IsSome() {
		pct := settings.StopLossPct.Unwrap() / 100
		if side == types.PositionSideLong {
			stopLoss = entry * (1 - pct)
		} else {
			stopLoss = entry * (1 + pct)
		}
	}

	if settings.TakeProfitPct.IsSome() {
		pct := settings.TakeProfitPct.Unwrap() / 100
		if side == types.PositionSideLong {
			takeProfit = entry * (1 + pct)
		} else {
			takeProfit = entry * (1 - pct)
		}
	}

	stopDistance := math.Abs(entry - stopLoss)
	if stopDistance <= 0 {
		return PositionPlan{}, "stop distance is zero"
	}

	leverage := settings.Leverage
	if leverage < 1 {
		leverage = 1
	}

	riskAmount := account.Balance * settings.RiskPerTradePct / 100
	quantity := riskAmount / stopDistance
	margin := quantity * entry / float64(leverage)

	if quantity <= 0 {
		return PositionPlan{}, "computed quantity is zero"
	}

	return PositionPlan{
		Symbol:         signal.Symbol,
		Side:           side,
		Quantity:       quantity,
		EntryPrice:     entry,
		StopLoss:       stopLoss,
		TakeProfit:     takeProfit,
		Leverage:       leverage,
		RiskAmount:     riskAmount,
		RequiredMargin: margin,
	}, ""
}
