package types

// AccountSnapshot is a point-in-time view of one subscriber's account used by
// the decision gate. It carries no live connection to the exchange.
type AccountSnapshot struct {
	// Balance is the total wallet balance in quote currency.
	Balance float64 `yaml:"balance" json:"balance"`
	// AvailableBalance is the balance not locked as margin.
	AvailableBalance float64 `yaml:"available_balance" json:"availableBalance"`
	// OpenPositions is the current number of open positions.
	OpenPositions int `yaml:"open_positions" json:"openPositions"`
	// DailyLoss is today's accumulated realized loss, as a positive amount.
	DailyLoss float64 `yaml:"daily_loss" json:"dailyLoss"`
}
