package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storyline-app/storyline-api/internal/service"
	appErrors "github.com/storyline-app/storyline-api/pkg/errors"
	"github.com/storyline-app/storyline-api/pkg/response"
)

type lineService interface {
	Submit(ctx context.Context, req service.SubmitLineRequest, ip string) (*service.SubmitLineResponse, error)
	Cooldown(ctx context.Context, ip string) (*service.CooldownStatus, error)
}

// LineHandler serves the public contribution endpoints. The submitter
// identity is always c.ClientIP() so the write path and the status path
// derive it identically.
type LineHandler struct {
	service lineService
	metrics *service.MetricsService
}

// NewLineHandler constructs a line handler. metrics may be nil.
func NewLineHandler(svc lineService, metrics *service.MetricsService) *LineHandler {
	return &LineHandler{service: svc, metrics: metrics}
}

// Submit appends a line to the active story.
func (h *LineHandler) Submit(c *gin.Context) {
	var req service.SubmitLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	resp, err := h.service.Submit(c.Request.Context(), req, c.ClientIP())
	if err != nil {
		var appErr *appErrors.Error
		if h.metrics != nil && errors.As(err, &appErr) && appErr.Code == appErrors.ErrRateLimited.Code {
			h.metrics.LineThrottled()
		}
		response.Error(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.LineAccepted()
	}
	response.OK(c, resp)
}

// Cooldown reports the caller's remaining contribution wait.
func (h *LineHandler) Cooldown(c *gin.Context) {
	status, err := h.service.Cooldown(c.Request.Context(), c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}
