package api

import (
	"github.com/labstack/echo/v4"

	nhttp "TurtleStock/pkg/http"
	"TurtleStock/pkg/http/middleware"
)

// RecommendSize returns the position size recommendation. Omitted price
// means "use the current quote"; omitted capital or risk fall back to the
// caller's stored settings.
func (h *Handler) RecommendSize(c echo.Context) error {
	req := &sizingRequest{}
	if verr := nhttp.ReadAndValidateRequest(c, req); verr != nil {
		return nhttp.BadRequestResponse(c, verr)
	}

	rec, err := h.sizer.Recommend(c.Request().Context(), middleware.UserID(c), req.Symbol, req.Price, req.Capital, req.RiskPercent)
	if err != nil {
		return errorResponse(c, err)
	}
	return nhttp.SuccessResponse(c, toSizingResponse(rec))
}
