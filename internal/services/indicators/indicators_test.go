package indicators

import (
	"math"
	"testing"
	"time"

	"TurtleStock/internal/domain/models"
)

func flatBars(n int, close float64) []models.PriceBar {
	bars := make([]models.PriceBar, 0, n)
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		bars = append(bars, models.PriceBar{
			Date:  day.AddDate(0, 0, i),
			Open:  close,
			High:  close,
			Low:   close,
			Close: close,
		})
	}
	return bars
}

func TestComputeShortHistoryIsNil(t *testing.T) {
	cases := []struct {
		name string
		n    int
	}{
		{"empty", 0},
		{"one bar", 1},
		{"nineteen bars", 19},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set := Compute("AAPL", flatBars(tc.n, 100))
			if set.SMA200 != nil || set.High52w != nil {
				t.Fatalf("long windows must be nil with %d bars", tc.n)
			}
			if tc.n < BreakoutWindow+1 && set.High20d != nil {
				t.Fatalf("high20d must be nil with %d bars", tc.n)
			}
		})
	}
}

func TestComputeWindowBoundaries(t *testing.T) {
	// 50 bars: SMA50 defined, SMA200 and High52w not.
	set := Compute("MSFT", flatBars(50, 100))
	if set.SMA50 == nil {
		t.Fatal("sma50 should be defined with exactly 50 bars")
	}
	if *set.SMA50 != 100 {
		t.Fatalf("sma50 = %v, want 100", *set.SMA50)
	}
	if set.SMA200 != nil {
		t.Fatal("sma200 must be nil with 50 bars")
	}
	if set.High52w != nil {
		t.Fatal("high52w must be nil with 50 bars")
	}
}

func TestHigh20dExcludesLatestBar(t *testing.T) {
	bars := flatBars(30, 100)
	// Latest bar spikes above all history; the prior 20-day high must not
	// include it.
	bars[len(bars)-1].High = 150
	bars[len(bars)-1].Close = 150

	set := Compute("NVDA", bars)
	if set.High20d == nil {
		t.Fatal("high20d should be defined with 30 bars")
	}
	if *set.High20d != 100 {
		t.Fatalf("high20d = %v, want 100 (latest bar excluded)", *set.High20d)
	}
}

func TestSMAValues(t *testing.T) {
	bars := flatBars(YearWindow, 0)
	for i := range bars {
		bars[i].Close = float64(i + 1)
	}
	set := Compute("T", bars)
	// closes 203..252 average to 227.5
	if set.SMA50 == nil || math.Abs(*set.SMA50-227.5) > 1e-9 {
		t.Fatalf("sma50 = %v, want 227.5", set.SMA50)
	}
	// closes 53..252 average to 152.5
	if set.SMA200 == nil || math.Abs(*set.SMA200-152.5) > 1e-9 {
		t.Fatalf("sma200 = %v, want 152.5", set.SMA200)
	}
}

func TestATRSimpleMean(t *testing.T) {
	bars := flatBars(YearWindow, 100)
	// Last 14 bars have a fixed high-low range of 4 and no gaps, so the
	// simple mean of true range is exactly 4.
	for i := len(bars) - ATRWindow; i < len(bars); i++ {
		bars[i].High = 102
		bars[i].Low = 98
		bars[i].Close = 100
	}
	set := Compute("KO", bars)
	if set.ATR == nil {
		t.Fatal("atr should be defined")
	}
	if math.Abs(*set.ATR-4) > 1e-9 {
		t.Fatalf("atr = %v, want 4", *set.ATR)
	}
}

func TestATRUsesGapOverPrevClose(t *testing.T) {
	bars := flatBars(ATRWindow+1, 100)
	// One bar gaps up: high-low is 1 but the gap over the previous close is
	// 10, so true range for that bar is 10.
	last := len(bars) - 1
	bars[last].High = 110
	bars[last].Low = 109
	bars[last].Close = 110

	set := Compute("GE", bars)
	if set.ATR == nil {
		t.Fatal("atr should be defined with 15 bars")
	}
	want := (0.0*13 + 10.0) / float64(ATRWindow)
	if math.Abs(*set.ATR-want) > 1e-9 {
		t.Fatalf("atr = %v, want %v", *set.ATR, want)
	}
}

func TestHigh52wIncludesLatestBar(t *testing.T) {
	bars := flatBars(YearWindow, 100)
	bars[len(bars)-1].High = 140
	set := Compute("AMD", bars)
	if set.High52w == nil || *set.High52w != 140 {
		t.Fatalf("high52w = %v, want 140", set.High52w)
	}
}
