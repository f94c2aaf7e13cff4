package ledger

import (
	"math"
	"testing"
	"time"

	"TurtleStock/internal/domain/errs"
	"TurtleStock/internal/domain/models"
)

var day = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func lot(shares, price float64) models.PurchaseLot {
	return models.PurchaseLot{Shares: shares, Price: price, Date: day}
}

func checkInvariant(t *testing.T, h *models.Holding) {
	t.Helper()
	var shares, cost float64
	for _, l := range h.Lots {
		shares += l.Shares
		cost += l.Shares * l.Price
	}
	if math.Abs(shares-h.TotalShares) > Tolerance {
		t.Fatalf("total shares %v != lot sum %v", h.TotalShares, shares)
	}
	if math.Abs(h.AveragePrice*h.TotalShares-cost) > Tolerance {
		t.Fatalf("avg*total %v != lot cost %v", h.AveragePrice*h.TotalShares, cost)
	}
}

func TestBuyThenBuyAverages(t *testing.T) {
	// Buy 10@$100 then 5@$110 -> 15 shares at $103.33
	h, err := NewHolding("u1", "AAPL", lot(10, 100))
	if err != nil {
		t.Fatal(err)
	}
	if err := ApplyBuy(h, lot(5, 110)); err != nil {
		t.Fatal(err)
	}
	if h.TotalShares != 15 {
		t.Fatalf("total = %v, want 15", h.TotalShares)
	}
	want := (10*100.0 + 5*110.0) / 15
	if math.Abs(h.AveragePrice-want) > 1e-9 {
		t.Fatalf("avg = %v, want %v", h.AveragePrice, want)
	}
	checkInvariant(t, h)
}

func TestWeightedAverageInvariantOverSequence(t *testing.T) {
	h, err := NewHolding("u1", "MSFT", lot(3, 41.7))
	if err != nil {
		t.Fatal(err)
	}
	buys := []models.PurchaseLot{
		lot(7, 39.2), lot(1.5, 44.01), lot(0.25, 38), lot(12, 42.42),
	}
	for _, l := range buys {
		if err := ApplyBuy(h, l); err != nil {
			t.Fatal(err)
		}
		checkInvariant(t, h)
	}
}

func TestSellFullPosition(t *testing.T) {
	// Reference scenario: buy 10@100 + 5@110, sell 15@120.
	h, _ := NewHolding("u1", "AAPL", lot(10, 100))
	_ = ApplyBuy(h, lot(5, 110))

	avg := h.AveragePrice
	trade, removed, err := ApplySell(h, 15, 120, day)
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Fatal("full sell must remove the holding")
	}
	wantNet := 15 * (120 - avg)
	if math.Abs(trade.NetValue-wantNet) > 1e-9 {
		t.Fatalf("net value = %v, want %v (~250)", trade.NetValue, wantNet)
	}
	if trade.AveragePriceAtSale != avg {
		t.Fatalf("avg at sale = %v, want %v", trade.AveragePriceAtSale, avg)
	}
	if h.TotalShares != 0 || len(h.Lots) != 0 {
		t.Fatalf("holding not emptied: %+v", h)
	}
}

func TestPartialSellKeepsAveragePrice(t *testing.T) {
	h, _ := NewHolding("u1", "NVDA", lot(10, 100))
	_ = ApplyBuy(h, lot(5, 110))
	avg := h.AveragePrice

	trade, removed, err := ApplySell(h, 6, 130, day)
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Fatal("partial sell must not remove the holding")
	}
	if h.TotalShares != 9 {
		t.Fatalf("total = %v, want 9", h.TotalShares)
	}
	if math.Abs(h.AveragePrice-avg) > Tolerance {
		t.Fatalf("avg changed on sell: %v -> %v", avg, h.AveragePrice)
	}
	if math.Abs(trade.NetValue-6*(130-avg)) > 1e-9 {
		t.Fatalf("net value = %v", trade.NetValue)
	}
	checkInvariant(t, h)
}

func TestOversellRejectedAndUnchanged(t *testing.T) {
	h, _ := NewHolding("u1", "KO", lot(10, 50))
	before := *h

	_, _, err := ApplySell(h, 11, 60, day)
	if !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("kind = %v, want validation", errs.KindOf(err))
	}
	if h.TotalShares != before.TotalShares || h.AveragePrice != before.AveragePrice || len(h.Lots) != len(before.Lots) {
		t.Fatalf("holding mutated on rejected sell: %+v", h)
	}
}

func TestSellValidation(t *testing.T) {
	h, _ := NewHolding("u1", "KO", lot(10, 50))
	if _, _, err := ApplySell(h, 0, 60, day); !errs.IsKind(err, errs.KindValidation) {
		t.Fatal("zero shares must fail validation")
	}
	if _, _, err := ApplySell(h, -2, 60, day); !errs.IsKind(err, errs.KindValidation) {
		t.Fatal("negative shares must fail validation")
	}
	if _, _, err := ApplySell(h, 5, 0, day); !errs.IsKind(err, errs.KindValidation) {
		t.Fatal("zero price must fail validation")
	}
}

func TestBadLotRejected(t *testing.T) {
	if _, err := NewHolding("u1", "X", lot(0, 10)); !errs.IsKind(err, errs.KindValidation) {
		t.Fatal("zero-share lot must fail")
	}
	if _, err := NewHolding("u1", "X", lot(1, -10)); !errs.IsKind(err, errs.KindValidation) {
		t.Fatal("negative-price lot must fail")
	}
	h, _ := NewHolding("u1", "X", lot(1, 10))
	if err := ApplyBuy(h, lot(-1, 10)); !errs.IsKind(err, errs.KindValidation) {
		t.Fatal("negative buy must fail")
	}
	if h.TotalShares != 1 {
		t.Fatalf("holding mutated on rejected buy: %+v", h)
	}
}
