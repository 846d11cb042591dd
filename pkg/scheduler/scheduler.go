package scheduler

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/arnavshah/workshop-scheduler/pkg/mip"
	"github.com/arnavshah/workshop-scheduler/pkg/models"
)

// DefaultTimeLimit bounds each exact solve when Options leave it unset
const DefaultTimeLimit = 60 * time.Second

// Names of the tiers a cohort can be solved by
const (
	TierExact   = "exact"
	TierRelaxed = "relaxed"
	TierGreedy  = "greedy"
)

// Options tune a run
type Options struct {
	TimeLimit time.Duration
}

// Plan is what a run needs beyond the model: who is fixed and how the rest
// are split
type Plan struct {
	Overrides Overrides
	Policy    CohortPolicy
}

// Result is the outcome of a run
type Result struct {
	Assignments []models.Assignment
	Cohorts     []models.CohortReport
	Warnings    []models.Warning
	Conflicts   []models.ConflictReason
	Duplicates  []models.DuplicateAssignment
	Summary     models.Summary
}

// Scheduler handles the logic of assigning participants to activity slots
type Scheduler struct {
	Model    *Model
	State    *State
	Warnings []models.Warning

	solver mip.Solver
	logger *zap.Logger
	opts   Options
}

// NewScheduler creates a new scheduler instance. A nil solver sends every
// cohort to the greedy heuristic.
func NewScheduler(m *Model, solver mip.Solver, logger *zap.Logger, opts Options) *Scheduler {
	if opts.TimeLimit <= 0 {
		opts.TimeLimit = DefaultTimeLimit
	}
	return &Scheduler{
		Model:  m,
		State:  NewState(m),
		solver: solver,
		logger: logger,
		opts:   opts,
	}
}

// Build creates the model from raw tables and a scheduler over it. Input
// warnings are logged and kept for the result.
func Build(schedule []models.ScheduleRow, prefs []models.PreferenceRow, mopts ModelOptions, solver mip.Solver, logger *zap.Logger, opts Options) (*Scheduler, error) {
	m, warnings, err := BuildModel(schedule, prefs, mopts)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		logger.Warn("input warning",
			zap.String("kind", w.Kind),
			zap.String("participant", w.Participant),
			zap.String("activity", w.Activity),
			zap.String("message", w.Message),
		)
	}
	s := NewScheduler(m, solver, logger, opts)
	s.Warnings = warnings
	return s, nil
}

// Run applies the overrides, then solves each cohort in order against the
// capacity left by everything before it. Overrides that cannot be reconciled
// and cancellation of ctx are the only errors; solver trouble degrades to
// the next tier.
func (s *Scheduler) Run(ctx context.Context, plan Plan) (*Result, error) {
	manual, err := ApplyOverrides(s.State, plan.Overrides)
	if err != nil {
		return nil, err
	}
	s.logger.Info("overrides applied",
		zap.Int("participants", len(plan.Overrides)),
		zap.Int("rows", len(manual)),
	)

	var pool []Participant
	for _, p := range s.Model.Participants {
		if _, fixed := plan.Overrides[p.Name]; !fixed {
			pool = append(pool, p)
		}
	}

	res := &Result{Warnings: s.Warnings}
	rows := slices.Clone(manual)
	for i, cohort := range Partition(pool, plan.Policy.Cutoffs) {
		if len(cohort) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report, cohortRows, conflicts, err := s.solveCohort(ctx, i, cohort, plan.Policy.LowPriority(i))
		if err != nil {
			return nil, err
		}
		rows = append(rows, cohortRows...)
		res.Cohorts = append(res.Cohorts, report)
		res.Conflicts = append(res.Conflicts, conflicts...)
	}

	res.Assignments = rows
	res.Duplicates = FindDuplicates(rows)
	for _, d := range res.Duplicates {
		s.logger.Error("duplicate assignment",
			zap.String("participant", d.Participant),
			zap.String("activity", d.Activity),
			zap.Int("count", d.Count),
		)
	}
	res.Summary = Summarize(rows, s.Model)
	return res, nil
}

func (s *Scheduler) solveCohort(ctx context.Context, index int, cohort []Participant, lowPriority bool) (models.CohortReport, []models.Assignment, []models.ConflictReason, error) {
	start := time.Now()
	report := models.CohortReport{Index: index, Size: len(cohort)}
	log := s.logger.With(zap.Int("cohort", index), zap.Int("size", len(cohort)))

	switch {
	case lowPriority:
		log.Info("cohort is low priority, skipping exact solver")
	case s.solver == nil:
		log.Debug("no exact solver configured")
	default:
		for _, f := range []Formulation{{Relaxed: false}, {Relaxed: true}} {
			tier := TierExact
			if f.Relaxed {
				tier = TierRelaxed
			}
			cp := BuildProgram(cohort, s.Model, s.State, f)
			cp.Name = fmt.Sprintf("cohort%d-%s", index, f)

			sol, err := mip.SolveWithBudget(ctx, s.solver, cp.Program, s.opts.TimeLimit)
			if err != nil {
				if ctx.Err() != nil {
					return report, nil, nil, fmt.Errorf("cohort %d: %w", index, ctx.Err())
				}
				report.Attempts = append(report.Attempts, tier+":error")
				log.Warn("solver failed, falling back", zap.String("tier", tier), zap.Error(err))
				continue
			}
			report.Attempts = append(report.Attempts, tier+":"+sol.Status.String())
			if sol.Status != mip.Optimal {
				log.Warn("no optimal solution, falling back",
					zap.String("tier", tier),
					zap.Stringer("status", sol.Status),
					zap.Int("columns", len(cp.Columns)),
					zap.Int("rows", len(cp.Rows)),
				)
				continue
			}

			rows := cp.Decode(sol)
			if err := s.State.Commit(rows); err != nil {
				report.Attempts[len(report.Attempts)-1] = tier + ":rejected"
				log.Error("solution does not fit residual state", zap.String("tier", tier), zap.Error(err))
				continue
			}
			report.Tier = tier
			report.Objective = sol.Objective
			report.DurationMS = time.Since(start).Milliseconds()
			log.Info("cohort solved",
				zap.String("tier", tier),
				zap.Float64("objective", sol.Objective),
				zap.Int("rows", len(rows)),
			)
			return report, rows, nil, nil
		}
	}

	rows, conflicts, err := Greedy(cohort, s.Model, s.State)
	if err != nil {
		return report, nil, nil, fmt.Errorf("cohort %d: greedy: %w", index, err)
	}
	report.Tier = TierGreedy
	report.Attempts = append(report.Attempts, TierGreedy)
	for _, r := range rows {
		report.Objective += float64(s.Model.Cost(r.Participant, r.Activity))
	}
	report.DurationMS = time.Since(start).Milliseconds()
	if len(conflicts) > 0 {
		log.Warn("greedy left periods unfilled", zap.Int("conflicts", len(conflicts)))
	}
	log.Info("cohort solved",
		zap.String("tier", TierGreedy),
		zap.Float64("objective", report.Objective),
		zap.Int("rows", len(rows)),
	)
	return report, rows, conflicts, nil
}
