package handlers

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arnavshah/workshop-scheduler/pkg/database"
	"github.com/arnavshah/workshop-scheduler/pkg/models"
	"github.com/arnavshah/workshop-scheduler/pkg/scheduler"
)

func (h *Handler) modelOptions(days []string) scheduler.ModelOptions {
	return scheduler.ModelOptions{
		Days:         days,
		UnrankedCost: h.Config.UnrankedCost,
		QuotaPerZone: h.Config.QuotaPerZone,
	}
}

// fail maps scheduling errors onto HTTP statuses
func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, database.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, scheduler.ErrInvalidSchedule),
		errors.Is(err, scheduler.ErrUnknownSlot),
		errors.Is(err, scheduler.ErrOverrideCapacity),
		errors.Is(err, scheduler.ErrRepeatActivity),
		errors.Is(err, scheduler.ErrPeriodOccupied):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.Logger.Error("schedule request failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// overrides merges the request's manual slots with assignments carried over
// from an earlier run, either posted inline or loaded by run id
func (h *Handler) overrides(input *models.ScheduleInput) (scheduler.Overrides, error) {
	ov := scheduler.Overrides(input.Overrides)
	previous := input.PreviousAssignments
	if input.PreviousRunID != "" {
		stored, err := database.LoadRunAssignments(h.DB, input.PreviousRunID, input.PreviousActivities)
		if err != nil {
			return nil, err
		}
		previous = append(slices.Clone(previous), stored...)
	}
	if len(previous) == 0 {
		return ov, nil
	}
	return scheduler.MergePrevious(ov, previous, input.PreviousActivities), nil
}

// ScheduleJSON handles the JSON-based scheduling request
func (h *Handler) ScheduleJSON(c *gin.Context) {
	var input models.ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ov, err := h.overrides(&input)
	if err != nil {
		h.fail(c, err)
		return
	}

	runID := uuid.NewString()
	log := h.Logger.With(zap.String("run_id", runID))

	s, err := scheduler.Build(input.Schedule, input.Preferences, h.modelOptions(input.Days), h.Solver, log,
		scheduler.Options{TimeLimit: h.Config.TimeLimit})
	if err != nil {
		h.fail(c, err)
		return
	}

	policy := scheduler.CohortPolicy{Cutoffs: input.Cutoffs, GreedyFrom: -1}
	if input.GreedyFrom != nil {
		policy.GreedyFrom = *input.GreedyFrom
	}

	res, err := s.Run(c.Request.Context(), scheduler.Plan{Overrides: ov, Policy: policy})
	if err != nil {
		h.fail(c, err)
		return
	}

	run := &database.Run{
		ID:            runID,
		Participants:  res.Summary.Participants,
		Assignments:   len(res.Assignments),
		Cohorts:       len(res.Cohorts),
		FairnessScore: res.Summary.FairnessScore,
	}
	if apiKeyRaw, ok := c.Get("apiKey"); ok {
		run.KeyID = apiKeyRaw.(*database.APIKey).ID
	}
	if err := database.SaveRun(h.DB, run, res.Assignments); err != nil {
		h.fail(c, err)
		return
	}

	h.RecordUsage(c, res.Summary.Participants, len(res.Assignments))

	log.Info("schedule created",
		zap.Int("participants", res.Summary.Participants),
		zap.Int("assignments", len(res.Assignments)),
		zap.Int("conflicts", len(res.Conflicts)),
	)
	c.JSON(http.StatusOK, models.ScheduleResponse{
		RunID:       runID,
		Assignments: res.Assignments,
		Cohorts:     res.Cohorts,
		Warnings:    res.Warnings,
		Conflicts:   res.Conflicts,
		Duplicates:  res.Duplicates,
		Summary:     res.Summary,
	})
}

// GetRun returns a stored run, optionally filtered with ?activity=
func (h *Handler) GetRun(c *gin.Context) {
	id := c.Param("id")
	run, err := database.GetRun(h.DB, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	rows, err := database.LoadRunAssignments(h.DB, id, c.QueryArray("activity"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "assignments": rows})
}
