// Package router wires handlers onto a gin engine for both entry points.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/workshop-scheduler/pkg/handlers"
)

const version = "1.0.0"

// Setup registers every route on a new engine
func Setup(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Workshop Scheduler API",
			"version": version,
		})
	})

	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	// Scheduler Endpoints
	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.POST("/schedule", h.ScheduleJSON)
		api.POST("/validate", h.ValidateInput)
		api.GET("/runs/:id", h.GetRun)
		api.GET("/usage", h.GetMyUsage)
	}

	return r
}
