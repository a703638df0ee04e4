package types

import "time"

// ExecutionStatus is the status of one subscriber's execution attempt.
type ExecutionStatus string

const (
	// ExecutionStatusPending marks the dedup record before any order is placed.
	ExecutionStatusPending ExecutionStatus = "PENDING"
	// ExecutionStatusExecuted marks a successfully filled execution.
	ExecutionStatusExecuted ExecutionStatus = "EXECUTED"
	// ExecutionStatusFailed marks an attempt that reserved the dedup slot but
	// failed afterwards. Retries are an explicit subscriber action.
	ExecutionStatusFailed ExecutionStatus = "FAILED"
	// ExecutionStatusRejected marks an attempt rejected by validation.
	ExecutionStatusRejected ExecutionStatus = "REJECTED"
)

// ExecutionRecord is the dedup ledger entry for a (signal, subscriber) pair.
// It is created exactly once via the store's atomic insert-if-absent and is
// the sole cross-subscriber synchronization point in the system.
type ExecutionRecord struct {
	SignalID     string          `yaml:"signal_id" json:"signalId"`
	SubscriberID string          `yaml:"subscriber_id" json:"subscriberId"`
	Status       ExecutionStatus `yaml:"status" json:"status"`
	PositionID   string          `yaml:"position_id" json:"positionId"`
	CreatedAt    time.Time       `yaml:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `yaml:"updated_at" json:"updatedAt"`

	// SlippagePct is the realized drift between the signal entry and fill price.
	SlippagePct float64 `yaml:"slippage_pct" json:"slippagePct"`
	// LatencyMs is the time between receiving the signal and order placement.
	LatencyMs int64 `yaml:"latency_ms" json:"latencyMs"`
	// Error carries a human-readable failure reason for FAILED/REJECTED records.
	Error string `yaml:"error" json:"error"`
}
