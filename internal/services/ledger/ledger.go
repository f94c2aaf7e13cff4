package ledger

import (
	"time"

	"TurtleStock/internal/domain/errs"
	"TurtleStock/internal/domain/models"
)

// Tolerance is the floating tolerance for the weighted-average invariant
// averagePrice*totalShares == sum(lot.shares*lot.price).
const Tolerance = 1e-6

// NewHolding creates a holding from its first purchase lot.
func NewHolding(userID, symbol string, lot models.PurchaseLot) (*models.Holding, error) {
	if err := validateLot(lot); err != nil {
		return nil, err
	}
	h := &models.Holding{UserID: userID, Symbol: symbol, Lots: []models.PurchaseLot{lot}}
	recompute(h)
	return h, nil
}

// ApplyBuy appends a purchase lot and recomputes the derived fields. The
// holding is not mutated on a rejected lot.
func ApplyBuy(h *models.Holding, lot models.PurchaseLot) error {
	if err := validateLot(lot); err != nil {
		return err
	}
	h.Lots = append(h.Lots, lot)
	recompute(h)
	return nil
}

// ApplySell reduces the position by sharesSold against the single
// weighted-average pool. The average price of the remaining shares is
// unchanged: partial sells are proportional, not FIFO per lot. The returned
// trade carries netValue = sharesSold*(sellPrice-averagePriceAtSale), and
// removed reports whether the position went to zero.
func ApplySell(h *models.Holding, sharesSold, sellPrice float64, date time.Time) (trade *models.Trade, removed bool, err error) {
	if sharesSold <= 0 {
		return nil, false, errs.Validation("shares sold must be positive, got %v", sharesSold)
	}
	if sellPrice <= 0 {
		return nil, false, errs.Validation("sell price must be positive, got %v", sellPrice)
	}
	if sharesSold > h.TotalShares {
		return nil, false, errs.Validation("cannot sell %v shares, only %v held", sharesSold, h.TotalShares).
			WithParam("total_shares", h.TotalShares)
	}

	trade = &models.Trade{
		UserID:             h.UserID,
		Symbol:             h.Symbol,
		SharesSold:         sharesSold,
		SellPrice:          sellPrice,
		AveragePriceAtSale: h.AveragePrice,
		NetValue:           sharesSold * (sellPrice - h.AveragePrice),
		Date:               date,
	}

	remaining := h.TotalShares - sharesSold
	if remaining <= Tolerance {
		h.Lots = nil
		h.TotalShares = 0
		return trade, true, nil
	}

	// Scale every lot proportionally so the lot list keeps summing to the
	// remaining share count while each lot's price, and therefore the
	// blended average, stays fixed.
	factor := remaining / h.TotalShares
	for i := range h.Lots {
		h.Lots[i].Shares *= factor
	}
	h.TotalShares = remaining
	return trade, false, nil
}

func validateLot(lot models.PurchaseLot) error {
	if lot.Shares <= 0 {
		return errs.Validation("lot shares must be positive, got %v", lot.Shares)
	}
	if lot.Price <= 0 {
		return errs.Validation("lot price must be positive, got %v", lot.Price)
	}
	return nil
}

// recompute rebuilds TotalShares and AveragePrice from the lot list.
func recompute(h *models.Holding) {
	var shares, cost float64
	for _, lot := range h.Lots {
		shares += lot.Shares
		cost += lot.Shares * lot.Price
	}
	h.TotalShares = shares
	if shares > 0 {
		h.AveragePrice = cost / shares
	}
}
