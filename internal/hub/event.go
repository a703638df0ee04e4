package hub

import (
	"github.com/openquant-labs/signalfan/internal/types"
)

// EventType identifies the lifecycle moment an event describes.
type EventType string

const (
	// EventBroadcast is published when a new signal enters the hub.
	EventBroadcast EventType = "BROADCAST"
	// EventUpdate is published after fields are merged into a signal.
	EventUpdate EventType = "UPDATE"
	// EventCancel is published when a signal is cancelled.
	EventCancel EventType = "CANCEL"
	// EventExpire is published when a signal's TTL elapses.
	EventExpire EventType = "EXPIRE"
)

// Event is the unit delivered to subscribers. Signal is a copy taken at
// publish time; receivers may retain it without synchronization.
type Event struct {
	Type   EventType           `json:"type"`
	Signal types.TradingSignal `json:"signal"`
	Reason string              `json:"reason,omitempty"`
}

// Filter narrows a subscription to particular symbols or actions. A nil or
// empty slice matches everything for that dimension.
type Filter struct {
	Symbols []string
	Actions []types.SignalAction
}

// Matches reports whether the signal falls inside the filter.
func (f Filter) Matches(signal types.TradingSignal) bool {
	if len(f.Symbols) > 0 {
		found := false
		for _, s := range f.Symbols {
			if s == signal.Symbol {
				found = true

				break
			}
		}

		if !found {
			return false
		}
	}

	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if a == signal.Action {
				found = true

				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}
