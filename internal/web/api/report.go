package api

import (
	"net/http"
	"strconv"

	"haca/internal/engine"
	"haca/internal/models"
	"haca/internal/utils"
	"haca/internal/web/middleware"

	"github.com/gin-gonic/gin"
)

const maxPageSize = 500

func RegisterReportRoutes(r *gin.Engine, middleware *middleware.MiddlewareManager, deps Dependencies) {
	api := r.Group("/api")
	api.Use(middleware.RequireAuth())
	{
		api.GET("/report", func(c *gin.Context) {
			res := deps.Engine.Last()
			if res == nil {
				fail(c, engine.ErrNoScan)
				return
			}
			c.JSON(http.StatusOK, engine.Report(res))
		})

		api.GET("/score", func(c *gin.Context) {
			res := deps.Engine.Last()
			if res == nil {
				fail(c, engine.ErrNoScan)
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"health_score": res.Score,
				"total_issues": res.Total,
				"counts":       res.Counts(),
				"timestamp":    res.Timestamp,
			})
		})

		api.GET("/issues", func(c *gin.Context) {
			res := deps.Engine.Last()
			if res == nil {
				fail(c, engine.ErrNoScan)
				return
			}
			issues := res.All()
			if category := c.Query("category"); category != "" {
				list, ok := res.Issues[models.Category(category)]
				if !ok {
					c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown category " + category})
					return
				}
				issues = list
			}
			offset, limit, ok := page(c)
			if !ok {
				return
			}
			total := len(issues)
			if offset > total {
				offset = total
			}
			end := total
			if limit > 0 && offset+limit < total {
				end = offset + limit
			}
			c.JSON(http.StatusOK, gin.H{
				"total":  total,
				"offset": offset,
				"limit":  limit,
				"issues": issues[offset:end],
			})
		})

		api.POST("/scan", func(c *gin.Context) {
			if deps.EnqueueScan != nil && c.Query("async") == "true" {
				if err := deps.EnqueueScan("api request"); err != nil {
					fail(c, err)
					return
				}
				c.JSON(http.StatusAccepted, gin.H{"success": true, "queued": true})
				return
			}
			res, err := deps.Engine.Run(c)
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"success":      true,
				"health_score": res.Score,
				"total_issues": res.Total,
				"counts":       res.Counts(),
			})
		})

		api.GET("/history", func(c *gin.Context) {
			limit, err := strconv.Atoi(c.DefaultQuery("limit", "30"))
			if err != nil || limit < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "limit must be a positive integer"})
				return
			}
			history, err := deps.Engine.History(c, limit)
			if err != nil {
				utils.Logger("WEB").Errorf("Reading history failed: %v", err)
				fail(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"history": history})
		})

		api.POST("/reports", func(c *gin.Context) {
			path, err := deps.Engine.WriteReport()
			if err != nil {
				fail(c, err)
				return
			}
			c.JSON(http.StatusCreated, gin.H{"success": true, "path": path})
		})
	}
}

// page parses offset and limit; limit 0 means everything
func page(c *gin.Context) (offset, limit int, ok bool) {
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "offset must be a non-negative integer"})
		return 0, 0, false
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 || limit > maxPageSize {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "limit must be between 0 and 500"})
		return 0, 0, false
	}
	return offset, limit, true
}
