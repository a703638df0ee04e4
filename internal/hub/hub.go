// Package hub is the in-process broadcaster between the signal engine and
// subscriber listeners. A single hub instance is shared per process; it owns
// signal status transitions, keeps the active set and a bounded history, and
// fans events out to subscribers without ever blocking the publisher.
package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/openquant-labs/signalfan/internal/logger"
	"github.com/openquant-labs/signalfan/internal/types"
	"github.com/openquant-labs/signalfan/pkg/errors"
)

const (
	// maxHistory bounds the most-recent-first history ring.
	maxHistory = 1000

	// defaultSubscriberBuffer is the per-subscriber queue depth. Events beyond
	// it are dropped for that subscriber rather than blocking the publisher.
	defaultSubscriberBuffer = 64
)

// SignalUpdate is the set of fields UpdateSignal can merge into a stored
// signal. Absent fields leave the stored value untouched.
type SignalUpdate struct {
	Status     optional.Option[types.SignalStatus]
	StopLoss   optional.Option[float64]
	TakeProfit optional.Option[float64]
}

// Stats is a point-in-time observability snapshot of the hub.
type Stats struct {
	ActiveCount     int   `json:"activeCount"`
	TotalBroadcast  int64 `json:"totalBroadcast"`
	SubscriberCount int   `json:"subscriberCount"`
	DroppedEvents   int64 `json:"droppedEvents"`
}

type subscriber struct {
	id     int
	filter Filter
	ch     chan Event
}

// Hub holds the active signal set, schedules expiry, and fans broadcast,
// update, cancel and expiry events out to subscribers. All status transitions
// for a signal id happen under the hub's lock, so they are serialized per id.
type Hub struct {
	log *logger.Logger

	mu      sync.RWMutex
	active  map[string]types.TradingSignal
	history []types.TradingSignal
	subs    map[int]*subscriber
	timers  map[string]*time.Timer
	nextSub int
	closed  bool

	totalBroadcast atomic.Int64
	dropped        atomic.Int64
}

// New creates an empty hub.
func New(log *logger.Logger) *Hub {
	return &Hub{
		log:    log,
		active: make(map[string]types.TradingSignal),
		subs:   make(map[int]*subscriber),
		timers: make(map[string]*time.Timer),
	}
}

// Broadcast inserts the signal into the active set and history, schedules its
// expiry timer, and publishes a broadcast event. Signals that are already
// expired or carry a duplicate id are rejected.
func (h *Hub) Broadcast(signal types.TradingSignal) error {
	now := time.Now().UTC()

	if signal.ID == "" {
		return errors.New(errors.ErrCodeInvalidSignal, "signal has no id")
	}

	if signal.Expired(now) {
		return errors.Newf(errors.ErrCodeSignalExpired, "signal %s expired at %s", signal.ID, signal.ExpiresAt)
	}

	h.mu.Lock()

	if h.closed {
		h.mu.Unlock()

		return errors.New(errors.ErrCodeHubClosed, "hub is closed")
	}

	if _, exists := h.active[signal.ID]; exists {
		h.mu.Unlock()

		return errors.Newf(errors.ErrCodeDuplicateSignal, "signal %s already broadcast", signal.ID)
	}

	if signal.Status == "" {
		signal.Status = types.SignalStatusActive
	}

	h.active[signal.ID] = signal
	h.pushHistory(signal)
	h.totalBroadcast.Add(1)

	id := signal.ID
	h.timers[id] = time.AfterFunc(signal.ExpiresAt.Sub(now), func() {
		h.expireSignal(id)
	})

	h.publishLocked(Event{Type: EventBroadcast, Signal: signal})
	h.mu.Unlock()

	h.log.Info("signal broadcast",
		zap.String("signal_id", signal.ID),
		zap.String("symbol", signal.Symbol),
		zap.String("action", string(signal.Action)),
		zap.Time("expires_at", signal.ExpiresAt),
	)

	return nil
}

// Subscribe registers a listener for events matching the filter and returns
// the delivery channel plus an unsubscribe function. Delivery is best-effort:
// when a subscriber's buffer is full, events for it are dropped and counted.
func (h *Hub) Subscribe(filter Filter) (<-chan Event, func()) {
	return h.SubscribeBuffered(filter, defaultSubscriberBuffer)
}

// SubscribeBuffered is Subscribe with an explicit queue depth.
func (h *Hub) SubscribeBuffered(filter Filter, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextSub++
	sub := &subscriber{
		id:     h.nextSub,
		filter: filter,
		ch:     make(chan Event, buffer),
	}

	if h.closed {
		close(sub.ch)

		return sub.ch, func() {}
	}

	h.subs[sub.id] = sub

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			if _, ok := h.subs[sub.id]; ok {
				delete(h.subs, sub.id)
				close(sub.ch)
			}
		})
	}

	return sub.ch, unsubscribe
}

// UpdateSignal merges the update into the stored signal in both the active
// set and history, then publishes an update event. Transitions out of ACTIVE
// into a terminal status happen at most once; a second terminal transition is
// rejected. Marking EXECUTED is advisory and never blocks later updates.
func (h *Hub) UpdateSignal(id string, update SignalUpdate) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	signal, ok := h.active[id]
	if !ok {
		return errors.Newf(errors.ErrCodeSignalNotFound, "signal %s is not active", id)
	}

	if update.Status.IsSome() {
		next := update.Status.Unwrap()

		if signal.Status.IsTerminal() {
			return errors.Newf(errors.ErrCodeSignalNotActive,
				"signal %s already %s", id, signal.Status)
		}

		signal.Status = next
	}

	if update.StopLoss.IsSome() {
		signal.StopLoss = update.StopLoss.Unwrap()
	}

	if update.TakeProfit.IsSome() {
		signal.TakeProfit = update.TakeProfit.Unwrap()
	}

	h.replaceHistory(signal)

	if signal.Status.IsTerminal() {
		delete(h.active, id)
		h.stopTimerLocked(id)
	} else {
		h.active[id] = signal
	}

	h.publishLocked(Event{Type: EventUpdate, Signal: signal})

	return nil
}

// CancelSignal transitions the signal to CANCELLED, removes it from the
// active set and publishes a cancellation event carrying the reason.
func (h *Hub) CancelSignal(id, reason string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	signal, ok := h.active[id]
	if !ok {
		return errors.Newf(errors.ErrCodeSignalNotFound, "signal %s is not active", id)
	}

	if signal.Status.IsTerminal() {
		return errors.Newf(errors.ErrCodeSignalNotActive, "signal %s already %s", id, signal.Status)
	}

	signal.Status = types.SignalStatusCancelled
	delete(h.active, id)
	h.stopTimerLocked(id)
	h.replaceHistory(signal)
	h.publishLocked(Event{Type: EventCancel, Signal: signal, Reason: reason})

	h.log.Info("signal cancelled", zap.String("signal_id", id), zap.String("reason", reason))

	return nil
}

// expireSignal is the one-shot expiry timer callback. Signals that already
// transitioned to a terminal status are left untouched.
func (h *Hub) expireSignal(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	signal, ok := h.active[id]
	if !ok || signal.Status.IsTerminal() {
		return
	}

	signal.Status = types.SignalStatusExpired
	delete(h.active, id)
	delete(h.timers, id)
	h.replaceHistory(signal)
	h.publishLocked(Event{Type: EventExpire, Signal: signal, Reason: "ttl elapsed"})

	h.log.Debug("signal expired", zap.String("signal_id", id))
}

// GetSignal returns the active signal with the id, if any.
func (h *Hub) GetSignal(id string) (types.TradingSignal, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	signal, ok := h.active[id]

	return signal, ok
}

// ActiveSignals returns a copy of the active signal set.
func (h *Hub) ActiveSignals() []types.TradingSignal {
	h.mu.RLock()
	defer h.mu.RUnlock()

	signals := make([]types.TradingSignal, 0, len(h.active))
	for _, s := range h.active {
		signals = append(signals, s)
	}

	return signals
}

// History returns up to limit signals, most recent first. A non-positive
// limit returns the full retained history.
func (h *Hub) History(limit int) []types.TradingSignal {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > len(h.history) {
		limit = len(h.history)
	}

	out := make([]types.TradingSignal, limit)
	copy(out, h.history[:limit])

	return out
}

// GetStats returns the hub's observability counters.
func (h *Hub) GetStats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return Stats{
		ActiveCount:     len(h.active),
		TotalBroadcast:  h.totalBroadcast.Load(),
		SubscriberCount: len(h.subs),
		DroppedEvents:   h.dropped.Load(),
	}
}

// Close stops all expiry timers and closes every subscriber channel. Further
// broadcasts are rejected.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true

	for id, timer := range h.timers {
		timer.Stop()
		delete(h.timers, id)
	}

	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
}

// publishLocked fans the event out to matching subscribers. Callers hold the
// hub lock. Sends never block; a full subscriber queue drops the event for
// that subscriber only.
func (h *Hub) publishLocked(event Event) {
	for _, sub := range h.subs {
		if !sub.filter.Matches(event.Signal) {
			continue
		}

		select {
		case sub.ch <- event:
		default:
			h.dropped.Add(1)
			h.log.Warn("subscriber queue full, event dropped",
				zap.Int("subscriber", sub.id),
				zap.String("signal_id", event.Signal.ID),
				zap.String("event", string(event.Type)),
			)
		}
	}
}

func (h *Hub) pushHistory(signal types.TradingSignal) {
	h.history = append([]types.TradingSignal{signal}, h.history...)
	if len(h.history) > maxHistory {
		h.history = h.history[:maxHistory]
	}
}

func (h *Hub) replaceHistory(signal types.TradingSignal) {
	for i := range h.history {
		if h.history[i].ID == signal.ID {
			h.history[i] = signal

			return
		}
	}
}

func (h *Hub) stopTimerLocked(id string) {
	if timer, ok := h.timers[id]; ok {
		timer.Stop()
		delete(h.timers, id)
	}
}
