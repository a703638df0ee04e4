package engine

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/openquant-labs/signalfan/internal/types"
)

// FilterCheck records the outcome of one pipeline filter. Filters the
// pipeline never reached keep Evaluated=false and the default fail state, so
// a result always carries a verdict for every filter.
type FilterCheck struct {
	Evaluated bool   `json:"evaluated"`
	Passed    bool   `json:"passed"`
	Reason    string `json:"reason"`
}

func pass(reason string) FilterCheck {
	return FilterCheck{Evaluated: true, Passed: true, Reason: reason}
}

func fail(reason string) FilterCheck {
	return FilterCheck{Evaluated: true, Passed: false, Reason: reason}
}

func notEvaluated() FilterCheck {
	return FilterCheck{Evaluated: false, Passed: false, Reason: "not evaluated"}
}

// FilterReport holds the per-filter verdicts in pipeline order.
type FilterReport struct {
	TradingHours        FilterCheck `json:"tradingHours"`
	MarketRegime        FilterCheck `json:"marketRegime"`
	VolumeCheck         FilterCheck `json:"volumeCheck"`
	MultiTimeframe      FilterCheck `json:"multiTimeframe"`
	IndicatorThresholds FilterCheck `json:"indicatorThresholds"`
}

func newFilterReport() FilterReport {
	return FilterReport{
		TradingHours:        notEvaluated(),
		MarketRegime:        notEvaluated(),
		VolumeCheck:         notEvaluated(),
		MultiTimeframe:      notEvaluated(),
		IndicatorThresholds: notEvaluated(),
	}
}

// AnalysisResult is the full outcome of one analysis pass for a symbol.
// Signal is present only when every filter passed.
type AnalysisResult struct {
	Symbol     string                                `json:"symbol"`
	AnalyzedAt time.Time                             `json:"analyzedAt"`
	Passed     bool                                  `json:"passed"`
	Filters    FilterReport                          `json:"filters"`
	Regime     types.MarketRegime                    `json:"regime"`
	Votes      []types.TimeframeVote                 `json:"votes"`
	Signal     optional.Option[types.TradingSignal] `json:"signal"`
}
