package api

import (
	"net/http"

	"haca/internal/utils"
	"haca/internal/web/middleware"
	"haca/internal/web/models"

	"github.com/gin-gonic/gin"
)

func RegisterFixRoutes(r *gin.Engine, middleware *middleware.MiddlewareManager, deps Dependencies) {
	fixes := r.Group("/api/fixes")
	fixes.Use(middleware.RequireAuth())
	{
		fixes.POST("/preview", func(c *gin.Context) {
			var req models.FixRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
				return
			}
			preview, err := deps.Assistant.Preview(c, req.Refactor())
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "preview": preview})
		})

		fixes.POST("/apply", func(c *gin.Context) {
			log := utils.Logger("WEB")
			var req models.FixRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
				return
			}

			if req.Async && deps.EnqueueFix != nil {
				id, err := deps.EnqueueFix(req.Refactor(), req.DryRun)
				if err != nil {
					fail(c, err)
					return
				}
				c.JSON(http.StatusAccepted, gin.H{"success": true, "task_id": id})
				return
			}

			preview, err := deps.Assistant.Preview(c, req.Refactor())
			if err != nil {
				fail(c, err)
				return
			}
			res, err := deps.Assistant.Apply(c, preview, req.DryRun)
			if err != nil {
				body := gin.H{"success": false, "error": err.Error()}
				if res != nil && res.BackupPath != "" {
					body["backup_path"] = res.BackupPath
				}
				c.JSON(statusFor(err), body)
				return
			}

			if !req.DryRun && deps.EnqueueScan != nil {
				if err := deps.EnqueueScan("fix applied"); err != nil {
					log.Warnf("Follow-up scan not enqueued: %v", err)
				}
			}
			c.JSON(http.StatusOK, res)
		})
	}
}
