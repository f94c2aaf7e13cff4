package usecase

import (
	"context"
	"math"
	"testing"

	"TurtleStock/internal/domain/errs"
	"TurtleStock/internal/domain/models"
)

func TestRecommendReferenceScenario(t *testing.T) {
	// Constant true range of 2 gives ATR 2; with $10k capital at 2% risk and
	// a $100 price the stop sits at $96 and the budget buys 50 shares.
	bars := make([]models.PriceBar, 0, 300)
	for i := 0; i < 300; i++ {
		bars = append(bars, models.PriceBar{
			Date: tradeDay.AddDate(0, 0, i), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1,
		})
	}

	settings := &memSettingsStore{}
	_ = settings.Save(context.Background(), &models.UserSettings{
		UserID: "u1", Capital: 10000, RiskTolerance: 2,
	})
	sizer := NewPositionSizer(settings,
		&fakeBars{bars: map[string][]models.PriceBar{"AAPL": bars}},
		&fixedQuotes{prices: map[string]float64{"AAPL": 100}},
		400)

	rec, err := sizer.Recommend(context.Background(), "u1", "AAPL", 0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(rec.ATR-2) > 1e-9 {
		t.Fatalf("atr = %v, want 2", rec.ATR)
	}
	if math.Abs(rec.StopLossPrice-96) > 1e-9 {
		t.Fatalf("stop = %v, want 96", rec.StopLossPrice)
	}
	if math.Abs(rec.RecommendedShares-50) > 1e-9 {
		t.Fatalf("shares = %v, want 50", rec.RecommendedShares)
	}
	if math.Abs(rec.PositionValue-5000) > 1e-9 {
		t.Fatalf("value = %v, want 5000", rec.PositionValue)
	}
}

func TestRecommendRefusesWithoutATR(t *testing.T) {
	settings := &memSettingsStore{}
	_ = settings.Save(context.Background(), &models.UserSettings{
		UserID: "u1", Capital: 10000, RiskTolerance: 2,
	})
	sizer := NewPositionSizer(settings,
		&fakeBars{bars: map[string][]models.PriceBar{"IPO": flatBars(5)}},
		&fixedQuotes{prices: map[string]float64{"IPO": 10}},
		400)

	_, err := sizer.Recommend(context.Background(), "u1", "IPO", 10, 0, 0)
	if !errs.IsKind(err, errs.KindDataUnavailable) {
		t.Fatalf("kind = %v, want data unavailable", errs.KindOf(err))
	}
}

func TestRecommendRequiresSettings(t *testing.T) {
	sizer := NewPositionSizer(&memSettingsStore{},
		&fakeBars{bars: map[string][]models.PriceBar{}},
		&fixedQuotes{}, 400)
	_, err := sizer.Recommend(context.Background(), "u1", "AAPL", 100, 0, 0)
	if !errs.IsKind(err, errs.KindDataUnavailable) {
		t.Fatalf("kind = %v, want data unavailable", errs.KindOf(err))
	}
}

func TestRecommendOverridesSettings(t *testing.T) {
	bars := make([]models.PriceBar, 0, 300)
	for i := 0; i < 300; i++ {
		bars = append(bars, models.PriceBar{
			Date: tradeDay.AddDate(0, 0, i), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1,
		})
	}
	sizer := NewPositionSizer(&memSettingsStore{},
		&fakeBars{bars: map[string][]models.PriceBar{"AAPL": bars}},
		&fixedQuotes{prices: map[string]float64{"AAPL": 100}},
		400)

	// Explicit capital and risk mean stored settings are never consulted.
	rec, err := sizer.Recommend(context.Background(), "u1", "AAPL", 100, 20000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(rec.RiskAmount-200) > 1e-9 {
		t.Fatalf("risk = %v, want 200", rec.RiskAmount)
	}
	if math.Abs(rec.RecommendedShares-50) > 1e-9 {
		t.Fatalf("shares = %v, want 50", rec.RecommendedShares)
	}
}
