package signal

import (
	"testing"
	"time"

	"TurtleStock/internal/domain/models"
)

func f(v float64) *float64 { return &v }

func set(close float64, high20, sma50, sma200 *float64) models.IndicatorSet {
	return models.IndicatorSet{
		Symbol:  "AAPL",
		Date:    time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Close:   close,
		High20d: high20,
		SMA50:   sma50,
		SMA200:  sma200,
	}
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name      string
		set       models.IndicatorSet
		evaluable bool
		triggered bool
	}{
		{
			name:      "breakout with both trend filters",
			set:       set(105, f(104), f(100), f(95)),
			evaluable: true,
			triggered: true,
		},
		{
			name: "tie with prior high counts as trigger",
			// close == high20dPrior must trigger, not miss
			set:       set(104, f(104), f(100), f(95)),
			evaluable: true,
			triggered: true,
		},
		{
			name:      "below prior high",
			set:       set(103, f(104), f(100), f(95)),
			evaluable: true,
			triggered: false,
		},
		{
			name:      "above short sma only",
			set:       set(105, f(104), f(100), f(110)),
			evaluable: true,
			triggered: false,
		},
		{
			name:      "close equal to sma50 fails strict filter",
			set:       set(104, f(104), f(104), f(95)),
			evaluable: true,
			triggered: false,
		},
		{
			name:      "nil high20d not evaluable",
			set:       set(105, nil, f(100), f(95)),
			evaluable: false,
		},
		{
			name:      "nil sma200 not evaluable",
			set:       set(105, f(104), f(100), nil),
			evaluable: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.set, models.MarketScope())
			if got.Evaluable != tc.evaluable {
				t.Fatalf("evaluable = %v, want %v", got.Evaluable, tc.evaluable)
			}
			if got.Triggered != tc.triggered {
				t.Fatalf("triggered = %v, want %v", got.Triggered, tc.triggered)
			}
			if got.Symbol != tc.set.Symbol || !got.Date.Equal(tc.set.Date) {
				t.Fatalf("signal identity not carried over: %+v", got)
			}
		})
	}
}

func TestEvaluateScopeTagging(t *testing.T) {
	s := Evaluate(set(105, f(104), f(100), f(95)), models.UserScope("u-1"))
	if s.Scope.Kind != models.ScopeKindUser || s.Scope.UserID != "u-1" {
		t.Fatalf("scope = %+v, want user u-1", s.Scope)
	}
}
