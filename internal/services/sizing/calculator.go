package sizing

import (
	"math"

	"TurtleStock/internal/domain/errs"
	"TurtleStock/internal/domain/models"
)

// stopMultiple is the ATR multiple used for the stop distance.
const stopMultiple = 2.0

// Inputs are the validated ingredients of a sizing recommendation.
type Inputs struct {
	Symbol       string
	Capital      float64
	RiskPercent  float64 // (0, 100]
	CurrentPrice float64
	ATR          *float64 // nil when history could not price volatility
}

// Calculate derives the stop-loss price and recommended share count under
// the risk budget. The recommendation never spends more than total capital
// on one position.
//
// A nil or non-positive ATR is a hard DataUnavailable failure: risk cannot
// be priced, and a fabricated default would size the position blind.
func Calculate(in Inputs) (*models.SizeRecommendation, error) {
	if in.Capital <= 0 {
		return nil, errs.Validation("capital must be positive, got %v", in.Capital)
	}
	if in.RiskPercent <= 0 || in.RiskPercent > 100 {
		return nil, errs.Validation("risk tolerance must be in (0,100], got %v", in.RiskPercent)
	}
	if in.CurrentPrice <= 0 {
		return nil, errs.Validation("current price must be positive, got %v", in.CurrentPrice)
	}
	if in.ATR == nil || *in.ATR <= 0 {
		return nil, errs.DataUnavailable("ATR unavailable for %s: cannot price risk", in.Symbol)
	}

	atr := *in.ATR
	stopDistance := stopMultiple * atr
	riskAmount := in.Capital * in.RiskPercent / 100

	shares := riskAmount / stopDistance
	// Cap the position at total capital.
	if max := in.Capital / in.CurrentPrice; shares > max {
		shares = max
	}

	return &models.SizeRecommendation{
		Symbol:            in.Symbol,
		ATR:               atr,
		StopLossPrice:     in.CurrentPrice - stopDistance,
		StopDistance:      stopDistance,
		RiskAmount:        riskAmount,
		RecommendedShares: shares,
		PositionValue:     shares * in.CurrentPrice,
	}, nil
}

// CheckAddUp enforces the decreasing-pyramid rule: an add-up tranche must be
// strictly smaller than the shares already held. On rejection the maximum
// permitted tranche is reported back via the error params.
func CheckAddUp(requested, currentShares float64) error {
	if requested <= 0 {
		return errs.Validation("add-up shares must be positive, got %v", requested)
	}
	if currentShares <= 0 {
		return errs.Validation("no existing position to add up")
	}
	if requested >= currentShares {
		max := math.Nextafter(currentShares, 0)
		return errs.Conflict("add-up of %v shares breaches the pyramid cap of %v held", requested, currentShares).
			WithParam("max_addup_shares", max)
	}
	return nil
}
