package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arnavshah/workshop-scheduler/pkg/database"
)

// RecordUsage adds one request to today's usage row of the calling key
func (h *Handler) RecordUsage(c *gin.Context, participants, assignments int) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	today := time.Now().Format("2006-01-02")

	// Single-query upsert, supported by both Postgres and SQLite
	err := h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count":      gorm.Expr("request_count + ?", 1),
			"total_participants": gorm.Expr("total_participants + ?", participants),
			"total_assignments":  gorm.Expr("total_assignments + ?", assignments),
		}),
	}).Create(&database.APIUsage{
		KeyID:             apiKey.ID,
		Date:              today,
		RequestCount:      1,
		TotalParticipants: participants,
		TotalAssignments:  assignments,
	}).Error
	if err != nil {
		h.Logger.Warn("could not record usage", zap.Uint("key_id", apiKey.ID), zap.Error(err))
	}
}

// GetMyUsage returns usage stats for the authenticated API key
func (h *Handler) GetMyUsage(c *gin.Context) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "API Key context missing"})
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	var usage []database.APIUsage
	if err := h.DB.Where("key_id = ?", apiKey.ID).Order("date desc").Limit(30).Find(&usage).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch usage details"})
		return
	}

	var totalRequests, totalParticipants, totalAssignments int64
	for _, u := range usage {
		totalRequests += int64(u.RequestCount)
		totalParticipants += int64(u.TotalParticipants)
		totalAssignments += int64(u.TotalAssignments)
	}

	c.JSON(http.StatusOK, gin.H{
		"key_name":      apiKey.Name,
		"rate_limit":    apiKey.RateLimit,
		"usage_history": usage,
		"totals": gin.H{
			"requests":     totalRequests,
			"participants": totalParticipants,
			"assignments":  totalAssignments,
		},
	})
}
