package models

import "time"

// ScheduleRow is one line of the activity schedule, before aggregation
type ScheduleRow struct {
	Activity string `json:"activity" binding:"required"`
	Day      string `json:"day" binding:"required"`
	Session  int    `json:"session"`
	FullDay  bool   `json:"full_day"`
	Capacity int    `json:"capacity"`
}

// PreferenceRow is one long-form preference entry
type PreferenceRow struct {
	Participant string    `json:"participant" binding:"required"`
	Activity    string    `json:"activity" binding:"required"`
	Zone        string    `json:"zone"`
	Rank        int       `json:"rank"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// FixedSlot pins a participant to one activity occurrence
type FixedSlot struct {
	Activity string `json:"activity"`
	Day      string `json:"day"`
	Session  int    `json:"session"`
}

// Assignment is one row of the final schedule
type Assignment struct {
	Participant string `json:"participant"`
	Zone        string `json:"zone"`
	Day         string `json:"day"`
	Session     int    `json:"session"`
	Activity    string `json:"activity"`
}

// ConflictReason explains why a participant's period could not be filled
type ConflictReason struct {
	Participant string   `json:"participant"`
	Day         string   `json:"day"`
	Session     int      `json:"session"`
	Reasons     []string `json:"reasons"`
}

// Warning kinds reported while building the preference model
const (
	WarnUnmatchedPreference = "unmatched_preference"
	WarnUnzonedActivity     = "unzoned_activity"
	WarnInvalidRank         = "invalid_rank"
)

// Warning is a recoverable input problem
type Warning struct {
	Kind        string `json:"kind"`
	Participant string `json:"participant,omitempty"`
	Activity    string `json:"activity,omitempty"`
	Message     string `json:"message"`
}

// DuplicateAssignment reports a participant holding the same activity more than once
type DuplicateAssignment struct {
	Participant string `json:"participant"`
	Activity    string `json:"activity"`
	Count       int    `json:"count"`
}

// CohortReport describes how one cohort was solved
type CohortReport struct {
	Index      int      `json:"index"`
	Size       int      `json:"size"`
	Tier       string   `json:"tier"`
	Attempts   []string `json:"attempts"`
	Objective  float64  `json:"objective"`
	DurationMS int64    `json:"duration_ms"`
}

// Summary aggregates preference satisfaction over a schedule. Every row is
// counted once: FirstChoice+SecondChoice+OtherChoice+Unranked == Assignments,
// where OtherChoice holds rows ranked below the second-choice tier.
type Summary struct {
	Participants  int     `json:"participants"`
	Assignments   int     `json:"assignments"`
	FirstChoice   int     `json:"first_choice"`
	SecondChoice  int     `json:"second_choice"`
	OtherChoice   int     `json:"other_choice"`
	Unranked      int     `json:"unranked"`
	FairnessScore float64 `json:"fairness_score"`
}

// DemandCount is how many participants named an activity at a given rank
type DemandCount struct {
	Zone     string `json:"zone"`
	Rank     int    `json:"rank"`
	Activity string `json:"activity"`
	Count    int    `json:"count"`
}

// ScheduleInput is the data structure for the scheduling endpoint
type ScheduleInput struct {
	Schedule            []ScheduleRow          `json:"schedule" binding:"required,dive"`
	Preferences         []PreferenceRow        `json:"preferences" binding:"required,dive"`
	Days                []string               `json:"days,omitempty"`
	Overrides           map[string][]FixedSlot `json:"overrides,omitempty"`
	PreviousRunID       string                 `json:"previous_run_id,omitempty"`
	PreviousActivities  []string               `json:"previous_activities,omitempty"`
	PreviousAssignments []Assignment           `json:"previous_assignments,omitempty"`
	Cutoffs             []time.Time            `json:"cutoffs,omitempty"`
	GreedyFrom          *int                   `json:"greedy_from,omitempty"`
}

// ScheduleResponse is the data structure for the scheduling result
type ScheduleResponse struct {
	RunID       string                `json:"run_id"`
	Assignments []Assignment          `json:"assignments"`
	Cohorts     []CohortReport        `json:"cohorts"`
	Warnings    []Warning             `json:"warnings,omitempty"`
	Conflicts   []ConflictReason      `json:"conflicts,omitempty"`
	Duplicates  []DuplicateAssignment `json:"duplicates,omitempty"`
	Summary     Summary               `json:"summary"`
}
