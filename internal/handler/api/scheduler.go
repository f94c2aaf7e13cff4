package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"TurtleStock/internal/domain/models"
	nhttp "TurtleStock/pkg/http"
)

// SchedulerStatus reports the most recent run and the last fully successful
// one.
func (h *Handler) SchedulerStatus(c echo.Context) error {
	latest, lastSuccess, err := h.runner.Status(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return nhttp.SuccessResponse(c, schedulerStatusResponse{
		Latest:         toRunResponse(latest),
		LastSuccessful: toRunResponse(lastSuccess),
	})
}

// TriggerRun starts a manual batch run and blocks until it finishes. A run
// already in flight is rejected with 409, never queued. The run itself is
// detached from the request context so a dropped client cannot abort a sweep
// half way through.
func (h *Handler) TriggerRun(c echo.Context) error {
	run, err := h.runner.Run(context.WithoutCancel(c.Request().Context()), models.TriggerManual)
	if err != nil {
		return errorResponse(c, err)
	}
	return nhttp.SuccessResponse(c, toRunResponse(run))
}
