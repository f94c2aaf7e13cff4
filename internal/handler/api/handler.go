package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	"TurtleStock/internal/domain/errs"
	"TurtleStock/internal/usecase"
	nhttp "TurtleStock/pkg/http"
	"TurtleStock/pkg/http/middleware"
	"TurtleStock/pkg/logger"
)

// Handler wires the engine's operations onto the HTTP surface.
type Handler struct {
	signals   *usecase.Signals
	runner    *usecase.BatchRunner
	sizer     *usecase.PositionSizer
	portfolio *usecase.Portfolio
	quotes    *usecase.QuoteService
	jwtSecret string
	log       *logger.Logger
}

func NewHandler(signals *usecase.Signals,
	runner *usecase.BatchRunner,
	sizer *usecase.PositionSizer,
	portfolio *usecase.Portfolio,
	quotes *usecase.QuoteService,
	jwtSecret string,
	log *logger.Logger) *Handler {
	return &Handler{
		signals:   signals,
		runner:    runner,
		sizer:     sizer,
		portfolio: portfolio,
		quotes:    quotes,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

// RegisterRoutes mounts all endpoints on the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	v1 := e.Group("/api/v1", middleware.JWTAuth(h.jwtSecret))

	v1.GET("/signals", h.ListSignals)
	v1.GET("/quotes/:symbol", h.GetQuote)

	v1.GET("/scheduler/status", h.SchedulerStatus)
	v1.POST("/scheduler/run", h.TriggerRun, middleware.RequireAdmin())

	v1.POST("/sizing", h.RecommendSize)

	v1.GET("/portfolio", h.ListHoldings)
	v1.POST("/portfolio/buy", h.Buy)
	v1.POST("/portfolio/addup", h.AddUp)
	v1.POST("/portfolio/sell", h.Sell)
	v1.DELETE("/portfolio/:symbol", h.DeleteHolding)
	v1.GET("/portfolio/performance", h.Performance)

	v1.GET("/settings", h.GetSettings)
	v1.PUT("/settings", h.UpdateSettings)
}

// errorResponse maps a kind-tagged domain error onto the HTTP envelope.
func errorResponse(c echo.Context, err error) error {
	var de *errs.Error
	if !errors.As(err, &de) {
		return nhttp.AppErrorResponse(c, nhttp.InternalError("something went wrong"))
	}

	var app *nhttp.AppError
	switch de.Kind {
	case errs.KindValidation:
		app = nhttp.BadRequestError(de.Reason)
	case errs.KindDataUnavailable:
		app = nhttp.NotFoundError(de.Reason)
	case errs.KindConflict:
		app = nhttp.ConflictError(de.Reason)
	default:
		app = nhttp.InternalError("something went wrong")
	}
	if len(de.Params) > 0 {
		app = app.WithParams(de.Params)
	}
	return nhttp.AppErrorResponse(c, app)
}
