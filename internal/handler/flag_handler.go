package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/storyline-app/storyline-api/internal/service"
	appErrors "github.com/storyline-app/storyline-api/pkg/errors"
	"github.com/storyline-app/storyline-api/pkg/response"
)

type flagIntake interface {
	File(ctx context.Context, lineID int64, req service.FileFlagRequest, reporter string) error
}

// FlagHandler serves the public moderation-flag endpoint.
type FlagHandler struct {
	service flagIntake
	metrics *service.MetricsService
}

// NewFlagHandler constructs a flag handler. metrics may be nil.
func NewFlagHandler(svc flagIntake, metrics *service.MetricsService) *FlagHandler {
	return &FlagHandler{service: svc, metrics: metrics}
}

// File records a flag against a line.
func (h *FlagHandler) File(c *gin.Context) {
	lineID, err := strconv.ParseInt(c.Param("lineId"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Invalid line ID."))
		return
	}

	var req service.FileFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.File(c.Request.Context(), lineID, req, c.ClientIP()); err != nil {
		response.Error(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.FlagFiled()
	}
	response.OK(c, gin.H{"success": true})
}
