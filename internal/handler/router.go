package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/storyline-app/storyline-api/internal/middleware"
	"github.com/storyline-app/storyline-api/internal/service"
)

// Handlers bundles everything RegisterRoutes wires up.
type Handlers struct {
	Story *StoryHandler
	Line  *LineHandler
	Flag  *FlagHandler
	Admin *AdminHandler
	Auth  *service.AuthService
}

// RegisterRoutes mounts the public API and the bearer-protected admin API.
func RegisterRoutes(r *gin.Engine, h Handlers) {
	api := r.Group("/api")

	story := api.Group("/story")
	story.GET("/current", h.Story.Current)
	story.POST("/rename", h.Story.Rename)
	story.GET("/rename-status", h.Story.RenameStatus)
	story.GET("/next-reset", h.Story.NextReset)

	line := api.Group("/line")
	line.POST("", h.Line.Submit)
	line.GET("/cooldown", h.Line.Cooldown)

	api.POST("/flag/:lineId", h.Flag.File)

	admin := api.Group("/admin")
	admin.POST("/login", h.Admin.Login)

	protected := admin.Group("", middleware.AdminJWT(h.Auth))
	protected.GET("/lines", h.Admin.Lines)
	protected.DELETE("/line/:id", h.Admin.DeleteLine)
	protected.GET("/stats", h.Admin.Stats)
	protected.GET("/flags", h.Admin.Flags)
	protected.POST("/flag/:id/resolve", h.Admin.ResolveFlag)
	protected.POST("/log", h.Admin.Log)
	protected.GET("/download-db", h.Admin.DownloadDB)
	protected.GET("/debug-flags", h.Admin.DebugFlags)
}
