package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"TurtleStock/internal/domain/models"
	nhttp "TurtleStock/pkg/http"
	"TurtleStock/pkg/http/middleware"
	"TurtleStock/pkg/util"
)

// ListSignals returns the evaluation rows for one date, defaulting to the
// most recent evaluated trading day. The market scope is the default;
// scope=user narrows to rows owned by the caller. buy_only=true keeps only
// triggered rows.
func (h *Handler) ListSignals(c echo.Context) error {
	var date time.Time
	if raw := c.QueryParam("date"); raw != "" {
		d, err := util.ParseDay(raw)
		if err != nil {
			return nhttp.AppErrorResponse(c, nhttp.BadRequestError(err.Error()))
		}
		date = d
	}

	scope := models.MarketScope()
	if c.QueryParam("scope") == "user" {
		scope = models.UserScope(middleware.UserID(c))
	}
	buyOnly := c.QueryParam("buy_only") == "true"

	rows, err := h.signals.List(c.Request().Context(), date, scope, buyOnly)
	if err != nil {
		return errorResponse(c, err)
	}

	out := make([]signalResponse, 0, len(rows))
	for _, s := range rows {
		out = append(out, toSignalResponse(s))
	}
	return nhttp.ListResponse(c, out, int64(len(out)))
}

// GetQuote returns the current price snapshot for one symbol.
func (h *Handler) GetQuote(c echo.Context) error {
	q, err := h.quotes.Quote(c.Request().Context(), c.Param("symbol"))
	if err != nil {
		return errorResponse(c, err)
	}
	return nhttp.SuccessResponse(c, quoteResponse{
		Symbol:        q.Symbol,
		Price:         q.Price,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		Timestamp:     q.Timestamp.Format(time.RFC3339),
	})
}

// Health reports the engine's liveness, including the signal store.
func (h *Handler) Health(c echo.Context) error {
	status := "ok"
	if err := h.signals.Health(c.Request().Context()); err != nil {
		status = "degraded"
	}
	return nhttp.SuccessResponse(c, map[string]string{"status": status})
}
