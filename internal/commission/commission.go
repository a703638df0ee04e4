package commission

// PerformanceFee calculates the fee charged when a position closes in profit.
type PerformanceFee interface {
	// Calculate returns the fee in quote currency for a realized profit.
	// Non-positive profits are never charged.
	Calculate(profit float64) float64
}

type Scheme string

const (
	SchemePercentage Scheme = "percentage"
	SchemeZero       Scheme = "zero"
)

var AllSchemes = []any{
	SchemePercentage,
	SchemeZero,
}

func GetPerformanceFeeHandler(scheme Scheme) PerformanceFee {
	switch scheme {
	case SchemePercentage:
		return NewPercentagePerformanceFee(DefaultPerformanceFeePct)
	case SchemeZero:
		return NewZeroPerformanceFee()
	default:
		return NewZeroPerformanceFee()
	}
}
