package signal

import (
	"TurtleStock/internal/domain/models"
)

// Evaluate applies the breakout-with-trend-confirmation rule to an indicator
// snapshot and returns the resulting signal row for the given scope.
//
// The rule is fixed by contract:
//
//	triggered = close >= high20dPrior && close > sma50 && close > sma200
//
// The tie (close equal to the prior 20-day high) counts as a trigger. Both
// SMA filters must pass. When any required indicator is nil the signal is
// not evaluable: it reads as HOLD but stays distinguishable for reporting.
func Evaluate(set models.IndicatorSet, scope models.Scope) *models.Signal {
	s := &models.Signal{
		Symbol:     set.Symbol,
		Date:       set.Date,
		Scope:      scope,
		Indicators: set,
	}

	if set.High20d == nil || set.SMA50 == nil || set.SMA200 == nil {
		return s
	}

	s.Evaluable = true
	s.Triggered = set.Close >= *set.High20d &&
		set.Close > *set.SMA50 &&
		set.Close > *set.SMA200
	return s
}
