package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storyline-app/storyline-api/internal/service"
	appErrors "github.com/storyline-app/storyline-api/pkg/errors"
	"github.com/storyline-app/storyline-api/pkg/response"
)

type storyService interface {
	Current(ctx context.Context) (*service.CurrentStory, error)
	Rename(ctx context.Context, req service.RenameRequest) (*service.RenameResponse, error)
	Status(ctx context.Context) (*service.RenameStatus, error)
}

// StoryHandler serves the public story endpoints.
type StoryHandler struct {
	service storyService
	clock   func() time.Time
}

// NewStoryHandler constructs a story handler.
func NewStoryHandler(svc storyService) *StoryHandler {
	return &StoryHandler{service: svc, clock: time.Now}
}

// Current returns the active story and its lines.
func (h *StoryHandler) Current(c *gin.Context) {
	current, err := h.service.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, current)
}

// Rename changes the story title, subject to the global cooldown.
func (h *StoryHandler) Rename(c *gin.Context) {
	var req service.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	resp, err := h.service.Rename(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

// RenameStatus reports the rename cooldown without mutating anything.
func (h *StoryHandler) RenameStatus(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}

// NextReset reports the upcoming quarterly reset instant.
func (h *StoryHandler) NextReset(c *gin.Context) {
	next := service.NextReset(h.clock())
	response.OK(c, gin.H{"nextReset": next.Format(time.RFC3339)})
}
