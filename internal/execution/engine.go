// Package execution turns approved signals into live positions for one
// subscriber and watches those positions until they close. Each subscriber
// owns one Engine; engines never share positions, so the only cross-engine
// coordination is the store's execution ledger.
package execution

import (
	"sync"
	"time"

	"github.com/openquant-labs/signalfan/internal/commission"
	"github.com/openquant-labs/signalfan/internal/exchange"
	"github.com/openquant-labs/signalfan/internal/logger"
	"github.com/openquant-labs/signalfan/internal/store"
	"github.com/openquant-labs/signalfan/internal/types"
)

const (
	// MaxPriceDriftPct rejects execution when the mark price moved further
	// than this from the signal's entry. Acts as a soft timeout on stale
	// signals without affecting other subscribers.
	MaxPriceDriftPct = 0.2

	// EmergencyStopPct is the hard floor on signed position P&L. Crossing it
	// closes the position regardless of any other exit rule.
	EmergencyStopPct = -2.0

	// DefaultMonitorInterval is how often the monitoring loop walks the
	// subscriber's open positions.
	DefaultMonitorInterval = 10 * time.Second
)

// Engine executes signals and monitors positions for a single subscriber.
type Engine struct {
	subscriberID string
	settings     types.SubscriberSettings
	exchange     exchange.Exchange
	store        store.Store
	fee          commission.PerformanceFee
	log          *logger.Logger
	marginType   exchange.MarginType
	interval     time.Duration
	now          func() time.Time

	// Trailing parameters travel on the signal, not the position record, so
	// the engine remembers them per open position. A restart loses the
	// association and those positions fall back to their static brackets.
	mu       sync.Mutex
	trailing map[string]types.TrailingConfig
}

// Option configures an Engine.
type Option func(*Engine)

// WithMarginType sets the margin mode requested before entries.
func WithMarginType(marginType exchange.MarginType) Option {
	return func(e *Engine) { e.marginType = marginType }
}

// WithMonitorInterval overrides the monitoring cadence.
func WithMonitorInterval(interval time.Duration) Option {
	return func(e *Engine) { e.interval = interval }
}

// WithClock overrides the engine's wall clock. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an execution engine for the subscriber.
func NewEngine(
	settings types.SubscriberSettings,
	venue exchange.Exchange,
	persistence store.Store,
	fee commission.PerformanceFee,
	log *logger.Logger,
	opts ...Option,
) *Engine {
	engine := &Engine{
		subscriberID: settings.SubscriberID,
		settings:     settings,
		exchange:     venue,
		store:        persistence,
		fee:          fee,
		log:          log,
		marginType:   exchange.MarginTypeIsolated,
		interval:     DefaultMonitorInterval,
		now:          time.Now,
		trailing:     make(map[string]types.TrailingConfig),
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// SubscriberID returns the owning subscriber's id.
func (e *Engine) SubscriberID() string {
	return e.subscriberID
}

func (e *Engine) rememberTrailing(positionID string, cfg types.TrailingConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.trailing[positionID] = cfg
}

func (e *Engine) trailingFor(positionID string) (types.TrailingConfig, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, ok := e.trailing[positionID]

	return cfg, ok
}

func (e *Engine) forgetTrailing(positionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.trailing, positionID)
}
