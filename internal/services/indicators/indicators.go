package indicators

import (
	"math"

	"TurtleStock/internal/domain/models"
)

// Window sizes for the daily indicator set. 252 trading bars approximate one
// year.
const (
	BreakoutWindow = 20
	SMAShortWindow = 50
	SMALongWindow  = 200
	ATRWindow      = 14
	YearWindow     = 252
)

// MinHistory is the bar count below which a symbol is skipped entirely: the
// 52-week high needs a full year of bars.
const MinHistory = YearWindow

// Compute derives the IndicatorSet for the latest bar of an ordered daily
// series (oldest first). Each field is nil when the series is shorter than
// its window; no field is ever estimated from a shorter window.
func Compute(symbol string, bars []models.PriceBar) models.IndicatorSet {
	set := models.IndicatorSet{Symbol: symbol}
	if len(bars) == 0 {
		return set
	}

	last := bars[len(bars)-1]
	set.Date = last.Date
	set.Close = last.Close

	// The breakout comparison excludes the latest bar's own high, so the
	// prior window ends one bar early.
	set.High20d = rollingHigh(bars[:len(bars)-1], BreakoutWindow)
	set.SMA50 = sma(bars, SMAShortWindow)
	set.SMA200 = sma(bars, SMALongWindow)
	set.High52w = rollingHigh(bars, YearWindow)
	set.ATR = atr(bars, ATRWindow)
	return set
}

// sma is the arithmetic mean of the last n closes, or nil with fewer bars.
func sma(bars []models.PriceBar, n int) *float64 {
	if n <= 0 || len(bars) < n {
		return nil
	}
	sum := 0.0
	for i := len(bars) - n; i < len(bars); i++ {
		sum += bars[i].Close
	}
	v := sum / float64(n)
	return &v
}

// rollingHigh is the max high over the last n bars, or nil with fewer bars.
func rollingHigh(bars []models.PriceBar, n int) *float64 {
	if n <= 0 || len(bars) < n {
		return nil
	}
	high := bars[len(bars)-n].High
	for i := len(bars) - n + 1; i < len(bars); i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
	}
	return &high
}

// atr is the simple rolling mean of true range over the last n bars. Simple
// mean by contract, not Wilder's exponential smoothing, so results are
// deterministic and directly testable. True range needs a previous close, so
// n+1 bars are required.
func atr(bars []models.PriceBar, n int) *float64 {
	if n <= 0 || len(bars) < n+1 {
		return nil
	}
	sum := 0.0
	for i := len(bars) - n; i < len(bars); i++ {
		sum += trueRange(bars[i], bars[i-1].Close)
	}
	v := sum / float64(n)
	return &v
}

func trueRange(bar models.PriceBar, prevClose float64) float64 {
	tr := bar.High - bar.Low
	if d := math.Abs(bar.High - prevClose); d > tr {
		tr = d
	}
	if d := math.Abs(bar.Low - prevClose); d > tr {
		tr = d
	}
	return tr
}
