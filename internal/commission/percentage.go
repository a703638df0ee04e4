package commission

// DefaultPerformanceFeePct is the share of realized profit charged when no
// explicit rate is configured.
const DefaultPerformanceFeePct = 10.0

type PercentagePerformanceFee struct {
	ratePct float64
}

func NewPercentagePerformanceFee(ratePct float64) PerformanceFee {
	if ratePct < 0 {
		ratePct = 0
	}

	return &PercentagePerformanceFee{ratePct: ratePct}
}

func (f *PercentagePerformanceFee) Calculate(profit float64) float64 {
	if profit <= 0 {
		return 0
	}

	return profit * f.ratePct / 100
}
