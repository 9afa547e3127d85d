package api

import (
	"net/http"
	"path/filepath"

	"haca/internal/document"
	"haca/internal/web/middleware"
	"haca/internal/web/models"

	"github.com/gin-gonic/gin"
)

// backupSources maps the accepted file names onto document files
var backupSources = map[string]string{
	"automations": document.AutomationsFile,
	"scripts":     document.ScriptsFile,
	"scenes":      document.ScenesFile,
}

func RegisterBackupRoutes(r *gin.Engine, middleware *middleware.MiddlewareManager, deps Dependencies, configDir string) {
	backups := r.Group("/api/backups")
	backups.Use(middleware.RequireAuth())
	{
		backups.GET("", func(c *gin.Context) {
			list, err := deps.Backups.List()
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"backups": list})
		})

		backups.POST("", func(c *gin.Context) {
			var req models.BackupRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
				return
			}
			file, ok := backupSources[req.File]
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file must be automations, scripts or scenes"})
				return
			}
			path, err := deps.Backups.Create(filepath.Join(configDir, file))
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusCreated, gin.H{"success": true, "backup_path": path})
		})

		backups.POST("/restore", func(c *gin.Context) {
			var req models.BackupPathRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
				return
			}
			restored, pre, err := deps.Backups.Restore(req.Path)
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "restored": restored, "pre_restore_backup": pre})
		})

		backups.DELETE("", func(c *gin.Context) {
			var req models.BackupPathRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
				return
			}
			if err := deps.Backups.Delete(req.Path); err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true})
		})
	}
}
