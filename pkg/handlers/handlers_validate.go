package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/workshop-scheduler/pkg/models"
	"github.com/arnavshah/workshop-scheduler/pkg/scheduler"
)

// ValidateInput handles the JSON-based validation request
func (h *Handler) ValidateInput(c *gin.Context) {
	var input models.ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	m, warnings, err := scheduler.BuildModel(input.Schedule, input.Preferences, h.modelOptions(input.Days))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	// Overrides are only resolvable against the schedule; capacity is checked
	// when the run applies them.
	for _, p := range scheduler.Overrides(input.Overrides).Participants() {
		for _, fs := range input.Overrides[p] {
			if _, ok := m.Slot(scheduler.SlotKey{Activity: fs.Activity, Day: fs.Day, Session: fs.Session}); !ok {
				c.JSON(http.StatusOK, gin.H{
					"valid": false,
					"error": fmt.Sprintf("override for %s names unknown slot %s/%s/%d", p, fs.Activity, fs.Day, fs.Session),
				})
				return
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"warnings": warnings,
		"demand":   scheduler.DemandCounts(input.Preferences),
		"stats": gin.H{
			"participant_count": len(m.Participants),
			"slot_count":        len(m.Slots),
			"zone_count":        len(m.Zones),
			"day_count":         len(m.Days),
		},
	})
}
