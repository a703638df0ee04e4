// Package listener glues one subscriber to the signal hub: it drains the
// subscriber's event queue, applies allow and deny filters, runs the decision
// gate against a fresh account snapshot, and forwards approved signals to the
// subscriber's execution engine.
package listener

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/openquant-labs/signalfan/internal/exchange"
	"github.com/openquant-labs/signalfan/internal/execution"
	"github.com/openquant-labs/signalfan/internal/gate"
	"github.com/openquant-labs/signalfan/internal/hub"
	"github.com/openquant-labs/signalfan/internal/logger"
	"github.com/openquant-labs/signalfan/internal/store"
	"github.com/openquant-labs/signalfan/internal/types"
)

// Listener owns one subscriber's end of the hub. Each listener runs
// independently; a failure here never affects other subscribers.
type Listener struct {
	settings types.SubscriberSettings
	hub      *hub.Hub
	engine   *execution.Engine
	venue    exchange.Exchange
	store    store.Store
	log      *logger.Logger

	filter      hub.Filter
	denySymbols map[string]struct{}
	now         func() time.Time
}

// Option configures a Listener.
type Option func(*Listener)

// WithFilter narrows the hub subscription to matching signals.
func WithFilter(filter hub.Filter) Option {
	return func(l *Listener) { l.filter = filter }
}

// WithDenySymbols drops signals for the given symbols before the gate runs.
func WithDenySymbols(symbols ...string) Option {
	return func(l *Listener) {
		for _, symbol := range symbols {
			l.denySymbols[symbol] = struct{}{}
		}
	}
}

// WithClock overrides the listener's wall clock. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Listener) { l.now = now }
}

// NewListener creates a listener for the subscriber behind the engine.
func NewListener(
	settings types.SubscriberSettings,
	signalHub *hub.Hub,
	engine *execution.Engine,
	venue exchange.Exchange,
	persistence store.Store,
	log *logger.Logger,
	opts ...Option,
) *Listener {
	listener := &Listener{
		settings:    settings,
		hub:         signalHub,
		engine:      engine,
		venue:       venue,
		store:       persistence,
		log:         log,
		denySymbols: make(map[string]struct{}),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(listener)
	}

	return listener
}

// Run subscribes to the hub and processes events until the context is
// cancelled or the hub closes the subscription.
func (l *Listener) Run(ctx context.Context) {
	events, unsubscribe := l.hub.Subscribe(l.filter)
	defer unsubscribe()

	l.log.Info("listener started", zap.String("subscriber_id", l.settings.SubscriberID))

	for {
		select {
		case <-ctx.Done():
			l.log.Info("listener stopped", zap.String("subscriber_id", l.settings.SubscriberID))

			return
		case event, ok := <-events:
			if !ok {
				l.log.Info("hub closed subscription", zap.String("subscriber_id", l.settings.SubscriberID))

				return
			}

			l.handleEvent(ctx, event)
		}
	}
}

func (l *Listener) handleEvent(ctx context.Context, event hub.Event) {
	if event.Type != hub.EventBroadcast {
		l.log.Debug("ignoring non-broadcast event",
			zap.String("subscriber_id", l.settings.SubscriberID),
			zap.String("type", string(event.Type)),
			zap.String("signal_id", event.Signal.ID),
		)

		return
	}

	l.HandleSignal(ctx, event.Signal)
}

// HandleSignal runs the full per-signal path: deny filter, account snapshot,
// decision gate, execution. Failures are logged and swallowed so one bad
// signal cannot take the listener down.
func (l *Listener) HandleSignal(ctx context.Context, signal types.TradingSignal) {
	if _, denied := l.denySymbols[signal.Symbol]; denied {
		l.log.Debug("signal symbol denied",
			zap.String("subscriber_id", l.settings.SubscriberID),
			zap.String("signal_id", signal.ID),
			zap.String("symbol", signal.Symbol),
		)

		return
	}

	snapshot, err := l.accountSnapshot(ctx)
	if err != nil {
		l.log.Error("failed to build account snapshot",
			zap.String("subscriber_id", l.settings.SubscriberID),
			zap.String("signal_id", signal.ID),
			zap.Error(err),
		)

		return
	}

	decision := gate.Decide(signal, l.settings, snapshot, l.now())
	if !decision.Execute {
		l.log.Debug("signal rejected by gate",
			zap.String("subscriber_id", l.settings.SubscriberID),
			zap.String("signal_id", signal.ID),
			zap.String("reason", decision.Reason),
		)

		return
	}

	result, err := l.engine.Execute(ctx, signal)
	if err != nil {
		l.log.Error("execution errored",
			zap.String("subscriber_id", l.settings.SubscriberID),
			zap.String("signal_id", signal.ID),
			zap.Error(err),
		)

		return
	}

	if !result.Success {
		l.log.Info("execution did not open a position",
			zap.String("subscriber_id", l.settings.SubscriberID),
			zap.String("signal_id", signal.ID),
			zap.String("status", string(result.Status)),
			zap.String("reason", result.Reason),
		)

		return
	}

	// Advisory for other subscribers; the signal stays active and the update
	// can fail harmlessly if it expired in the meantime.
	if err := l.hub.UpdateSignal(signal.ID, hub.SignalUpdate{
		Status: optional.Some(types.SignalStatusExecuted),
	}); err != nil {
		l.log.Debug("could not mark signal executed",
			zap.String("subscriber_id", l.settings.SubscriberID),
			zap.String("signal_id", signal.ID),
			zap.Error(err),
		)
	}
}

// accountSnapshot assembles the gate's view of the account: live balance,
// open-position count, and today's realized loss.
func (l *Listener) accountSnapshot(ctx context.Context) (types.AccountSnapshot, error) {
	balance, err := l.venue.GetBalance(ctx)
	if err != nil {
		return types.AccountSnapshot{}, err
	}

	open, err := l.store.OpenPositions(ctx, l.settings.SubscriberID)
	if err != nil {
		return types.AccountSnapshot{}, err
	}

	now := l.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	closed, err := l.store.ClosedPositions(ctx, l.settings.SubscriberID, midnight)
	if err != nil {
		return types.AccountSnapshot{}, err
	}

	dailyLoss := 0.0
	for _, position := range closed {
		if position.RealizedPnL < 0 {
			dailyLoss += -position.RealizedPnL
		}
	}

	return types.AccountSnapshot{
		Balance:          balance.Total,
		AvailableBalance: balance.Available,
		OpenPositions:    len(open),
		DailyLoss:        dailyLoss,
	}, nil
}
