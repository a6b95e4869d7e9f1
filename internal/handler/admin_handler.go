package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/storyline-app/storyline-api/internal/models"
	"github.com/storyline-app/storyline-api/internal/service"
	appErrors "github.com/storyline-app/storyline-api/pkg/errors"
	"github.com/storyline-app/storyline-api/pkg/response"
)

type adminService interface {
	Lines(ctx context.Context) ([]models.Line, error)
	DeleteLine(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*models.Stats, error)
	Log(ctx context.Context, req service.AdminLogRequest) error
}

type flagModeration interface {
	List(ctx context.Context) ([]models.FlagWithLine, error)
	Resolve(ctx context.Context, id int64) error
	DebugAll(ctx context.Context) ([]models.LineFlag, error)
}

type adminAuth interface {
	Login(password string) (string, error)
}

// AdminHandler serves the moderation console endpoints.
type AdminHandler struct {
	admin  adminService
	flags  flagModeration
	auth   adminAuth
	dbPath string
}

// NewAdminHandler constructs an admin handler. dbPath is the store file
// streamed by DownloadDB.
func NewAdminHandler(admin adminService, flags flagModeration, auth adminAuth, dbPath string) *AdminHandler {
	return &AdminHandler{admin: admin, flags: flags, auth: auth, dbPath: dbPath}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login exchanges the admin password for a signed bearer token.
func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	token, err := h.auth.Login(req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"token": token})
}

// Lines lists every line for moderation.
func (h *AdminHandler) Lines(c *gin.Context) {
	lines, err := h.admin.Lines(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"lines": lines})
}

// DeleteLine hard-deletes a line.
func (h *AdminHandler) DeleteLine(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Invalid line ID."))
		return
	}
	if err := h.admin.DeleteLine(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"success": true})
}

// Stats summarizes contribution totals.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Flags lists flags joined to their line snapshots.
func (h *AdminHandler) Flags(c *gin.Context) {
	flags, err := h.flags.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"flags": flags})
}

// ResolveFlag marks a flag resolved. Idempotent.
func (h *AdminHandler) ResolveFlag(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Invalid flag ID."))
		return
	}
	if err := h.flags.Resolve(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"success": true})
}

// Log appends an administrative action record.
func (h *AdminHandler) Log(c *gin.Context) {
	var req service.AdminLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.admin.Log(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"success": true})
}

// DownloadDB streams the raw store snapshot.
func (h *AdminHandler) DownloadDB(c *gin.Context) {
	c.FileAttachment(h.dbPath, "database.sqlite")
}

// DebugFlags dumps the raw flag rows.
func (h *AdminHandler) DebugFlags(c *gin.Context) {
	flags, err := h.flags.DebugAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, flags)
}
