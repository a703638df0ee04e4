package commission

// ZeroPerformanceFee implements PerformanceFee with no charge.
type ZeroPerformanceFee struct{}

// NewZeroPerformanceFee creates a fee handler that never charges.
func NewZeroPerformanceFee() PerformanceFee {
	return &ZeroPerformanceFee{}
}

// Calculate returns 0 for any profit.
func (f *ZeroPerformanceFee) Calculate(profit float64) float64 {
	return 0.0
}
