package utils

import (
	"math"

	"github.com/openquant-labs/signalfan/internal/commission"
)

// RoundToDecimalPrecision floors the quantity to the given decimal precision.
// Flooring keeps the rounded order inside the available balance.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	return math.Floor(quantity*multiplier) / multiplier
}

// QuantityFromRisk sizes a position so that hitting the stop loses roughly
// the risk amount. Returns 0 when the stop distance is not usable.
func QuantityFromRisk(riskAmount, entryPrice, stopLoss float64) float64 {
	stopDistance := math.Abs(entryPrice - stopLoss)
	if stopDistance <= 0 || riskAmount <= 0 {
		return 0
	}

	return riskAmount / stopDistance
}

// RequiredMargin returns the margin a position of the quantity needs at the
// given leverage.
func RequiredMargin(quantity, entryPrice float64, leverage int) float64 {
	if leverage < 1 {
		leverage = 1
	}

	return quantity * entryPrice / float64(leverage)
}

// NetProfit subtracts the performance fee from a realized profit. Losses pass
// through unchanged.
func NetProfit(profit float64, fee commission.PerformanceFee) float64 {
	return profit - fee.Calculate(profit)
}

// SlippagePct is the signed drift of the fill price from the expected price,
// as a percentage of the expected price.
func SlippagePct(expectedPrice, fillPrice float64) float64 {
	if expectedPrice == 0 {
		return 0
	}

	return (fillPrice - expectedPrice) / expectedPrice * 100
}
