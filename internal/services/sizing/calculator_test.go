package sizing

import (
	"math"
	"testing"

	"TurtleStock/internal/domain/errs"
)

func f(v float64) *float64 { return &v }

func TestCalculateReferenceScenario(t *testing.T) {
	// capital=10000, risk=2%, price=$100, atr=$2
	rec, err := Calculate(Inputs{
		Symbol:       "AAPL",
		Capital:      10000,
		RiskPercent:  2,
		CurrentPrice: 100,
		ATR:          f(2),
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.StopLossPrice != 96 {
		t.Fatalf("stop loss = %v, want 96", rec.StopLossPrice)
	}
	if rec.StopDistance != 4 {
		t.Fatalf("stop distance = %v, want 4", rec.StopDistance)
	}
	if rec.RiskAmount != 200 {
		t.Fatalf("risk amount = %v, want 200", rec.RiskAmount)
	}
	if rec.RecommendedShares != 50 {
		t.Fatalf("shares = %v, want 50", rec.RecommendedShares)
	}
	if rec.PositionValue != 5000 {
		t.Fatalf("position value = %v, want 5000", rec.PositionValue)
	}
}

func TestCalculateCapitalCap(t *testing.T) {
	// Tiny ATR would recommend an enormous position; the cap keeps the
	// position value at or below capital.
	rec, err := Calculate(Inputs{
		Symbol:       "F",
		Capital:      1000,
		RiskPercent:  10,
		CurrentPrice: 10,
		ATR:          f(0.01),
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.PositionValue > rec.RecommendedShares*10+1e-9 || rec.PositionValue > 1000+1e-9 {
		t.Fatalf("position value %v exceeds capital", rec.PositionValue)
	}
	if rec.RecommendedShares != 100 {
		t.Fatalf("shares = %v, want capped 100", rec.RecommendedShares)
	}
}

func TestCalculateProperties(t *testing.T) {
	cases := []struct {
		capital, risk, price, atr float64
	}{
		{10000, 2, 100, 2},
		{5000, 1, 37.5, 0.8},
		{123456, 100, 9.99, 14.2},
		{1, 0.5, 1000, 0.001},
		{250000, 25, 3.14, 0.07},
	}
	for _, tc := range cases {
		rec, err := Calculate(Inputs{
			Symbol:       "X",
			Capital:      tc.capital,
			RiskPercent:  tc.risk,
			CurrentPrice: tc.price,
			ATR:          f(tc.atr),
		})
		if err != nil {
			t.Fatalf("%+v: %v", tc, err)
		}
		if rec.RecommendedShares*tc.price > tc.capital+1e-9 {
			t.Fatalf("%+v: position value exceeds capital", tc)
		}
		if rec.RecommendedShares*2*tc.atr > tc.capital*tc.risk/100+1e-9 {
			t.Fatalf("%+v: risked amount exceeds budget", tc)
		}
	}
}

func TestCalculateRejections(t *testing.T) {
	cases := []struct {
		name string
		in   Inputs
		kind errs.Kind
	}{
		{"zero capital", Inputs{Capital: 0, RiskPercent: 2, CurrentPrice: 100, ATR: f(2)}, errs.KindValidation},
		{"negative capital", Inputs{Capital: -5, RiskPercent: 2, CurrentPrice: 100, ATR: f(2)}, errs.KindValidation},
		{"zero risk", Inputs{Capital: 100, RiskPercent: 0, CurrentPrice: 100, ATR: f(2)}, errs.KindValidation},
		{"risk above 100", Inputs{Capital: 100, RiskPercent: 101, CurrentPrice: 100, ATR: f(2)}, errs.KindValidation},
		{"zero price", Inputs{Capital: 100, RiskPercent: 2, CurrentPrice: 0, ATR: f(2)}, errs.KindValidation},
		{"nil atr", Inputs{Capital: 100, RiskPercent: 2, CurrentPrice: 100, ATR: nil}, errs.KindDataUnavailable},
		{"zero atr", Inputs{Capital: 100, RiskPercent: 2, CurrentPrice: 100, ATR: f(0)}, errs.KindDataUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(tc.in)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errs.IsKind(err, tc.kind) {
				t.Fatalf("kind = %v, want %v", errs.KindOf(err), tc.kind)
			}
		})
	}
}

func TestCheckAddUp(t *testing.T) {
	if err := CheckAddUp(5, 10); err != nil {
		t.Fatalf("decreasing tranche should pass: %v", err)
	}
	// Equal tranche breaches the strictly-decreasing rule.
	err := CheckAddUp(10, 10)
	if !errs.IsKind(err, errs.KindConflict) {
		t.Fatalf("kind = %v, want conflict", errs.KindOf(err))
	}
	var e *errs.Error
	if !asErr(err, &e) {
		t.Fatal("expected *errs.Error")
	}
	max, ok := e.Params["max_addup_shares"].(float64)
	if !ok || max >= 10 {
		t.Fatalf("max_addup_shares = %v, want < 10", e.Params["max_addup_shares"])
	}
	if math.Abs(max-10) > 1e-9 {
		t.Fatalf("max_addup_shares = %v, want just under 10", max)
	}

	if err := CheckAddUp(15, 10); !errs.IsKind(err, errs.KindConflict) {
		t.Fatalf("oversized tranche must conflict, got %v", err)
	}
	if err := CheckAddUp(0, 10); !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("zero tranche must fail validation, got %v", err)
	}
	if err := CheckAddUp(1, 0); !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("no position must fail validation, got %v", err)
	}
}

func asErr(err error, target **errs.Error) bool {
	e, ok := err.(*errs.Error)
	if ok {
		*target = e
	}
	return ok
}
