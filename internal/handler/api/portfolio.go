package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"TurtleStock/internal/domain/models"
	nhttp "TurtleStock/pkg/http"
	"TurtleStock/pkg/http/middleware"
	"TurtleStock/pkg/util"
)

func (h *Handler) bindTrade(c echo.Context) (*tradeRequest, time.Time, error) {
	req := &tradeRequest{}
	if verr := nhttp.ReadAndValidateRequest(c, req); verr != nil {
		return nil, time.Time{}, nhttp.BadRequestResponse(c, verr)
	}
	date := util.Day(time.Now())
	if req.Date != "" {
		d, err := util.ParseDay(req.Date)
		if err != nil {
			return nil, time.Time{}, nhttp.AppErrorResponse(c, nhttp.BadRequestError(err.Error()))
		}
		date = d
	}
	return req, date, nil
}

// Buy records a purchase lot for the caller.
func (h *Handler) Buy(c echo.Context) error {
	req, date, errResp := h.bindTrade(c)
	if req == nil {
		return errResp
	}
	holding, err := h.portfolio.Buy(c.Request().Context(), middleware.UserID(c), req.Symbol, req.Shares, req.Price, date)
	if err != nil {
		return errorResponse(c, err)
	}
	return nhttp.CreatedResponse(c, toHoldingResponse(holding))
}

// AddUp records a pyramid tranche. Tranches that are not strictly smaller
// than the current position come back as 409 with the permitted maximum.
func (h *Handler) AddUp(c echo.Context) error {
	req, date, errResp := h.bindTrade(c)
	if req == nil {
		return errResp
	}
	holding, err := h.portfolio.AddUp(c.Request().Context(), middleware.UserID(c), req.Symbol, req.Shares, req.Price, date)
	if err != nil {
		return errorResponse(c, err)
	}
	return nhttp.CreatedResponse(c, toHoldingResponse(holding))
}

// Sell reduces or closes a position and returns the realized trade.
func (h *Handler) Sell(c echo.Context) error {
	req, date, errResp := h.bindTrade(c)
	if req == nil {
		return errResp
	}
	trade, err := h.portfolio.Sell(c.Request().Context(), middleware.UserID(c), req.Symbol, req.Shares, req.Price, date)
	if err != nil {
		return errorResponse(c, err)
	}
	return nhttp.SuccessResponse(c, toTradeResponse(trade))
}

// DeleteHolding removes a position without recording a trade.
func (h *Handler) DeleteHolding(c echo.Context) error {
	err := h.portfolio.Delete(c.Request().Context(), middleware.UserID(c), c.Param("symbol"))
	if err != nil {
		return errorResponse(c, err)
	}
	return nhttp.NoContentResponse(c)
}

// ListHoldings returns the caller's open positions.
func (h *Handler) ListHoldings(c echo.Context) error {
	holdings, err := h.portfolio.Holdings(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	out := make([]holdingResponse, 0, len(holdings))
	for _, hd := range holdings {
		out = append(out, toHoldingResponse(hd))
	}
	return nhttp.ListResponse(c, out, int64(len(out)))
}

// Performance values the caller's positions at current quotes.
func (h *Handler) Performance(c echo.Context) error {
	report, err := h.portfolio.Performance(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return nhttp.SuccessResponse(c, toPerformanceResponse(report))
}

// GetSettings returns the caller's risk settings.
func (h *Handler) GetSettings(c echo.Context) error {
	s, err := h.portfolio.Settings(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return nhttp.SuccessResponse(c, settingsResponse{
		Capital:       s.Capital,
		RiskTolerance: s.RiskTolerance,
		MaxLossLimit:  s.MaxLossLimit,
	})
}

// UpdateSettings validates and stores the caller's risk settings.
func (h *Handler) UpdateSettings(c echo.Context) error {
	req := &settingsRequest{}
	if verr := nhttp.ReadAndValidateRequest(c, req); verr != nil {
		return nhttp.BadRequestResponse(c, verr)
	}
	s := &models.UserSettings{
		UserID:        middleware.UserID(c),
		Capital:       req.Capital,
		RiskTolerance: req.RiskTolerance,
		MaxLossLimit:  req.MaxLossLimit,
	}
	if err := h.portfolio.UpdateSettings(c.Request().Context(), s); err != nil {
		return errorResponse(c, err)
	}
	return nhttp.SuccessResponse(c, settingsResponse{
		Capital:       s.Capital,
		RiskTolerance: s.RiskTolerance,
		MaxLossLimit:  s.MaxLossLimit,
	})
}
