package scheduler

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/arnavshah/workshop-scheduler/pkg/mip"
	"github.com/arnavshah/workshop-scheduler/pkg/models"
)

// exhaustive solves small programs by trying every column assignment
type exhaustive struct{}

func (exhaustive) Solve(ctx context.Context, p *mip.Program) (*mip.Solution, error) {
	n := len(p.Columns)
	if n > 20 {
		return nil, fmt.Errorf("program too large for exhaustive search: %d columns", n)
	}
	var best []bool
	bestObj := 0.0
	x := make([]bool, n)
	for mask := 0; mask < 1<<n; mask++ {
		for j := range x {
			x[j] = mask&(1<<j) != 0
		}
		obj, ok := p.Evaluate(x)
		if ok && (best == nil || obj < bestObj) {
			best = slices.Clone(x)
			bestObj = obj
		}
	}
	if best == nil {
		return &mip.Solution{Status: mip.Infeasible}, nil
	}
	return &mip.Solution{Status: mip.Optimal, Objective: bestObj, Values: best}, nil
}

// scripted answers each call with the next status; Optimal answers are
// computed exhaustively
type scripted struct {
	mu       sync.Mutex
	statuses []mip.Status
	calls    []string
}

func (s *scripted) Solve(ctx context.Context, p *mip.Program) (*mip.Solution, error) {
	s.mu.Lock()
	n := len(s.calls)
	s.calls = append(s.calls, p.Name)
	s.mu.Unlock()

	status := mip.Unknown
	if n < len(s.statuses) {
		status = s.statuses[n]
	}
	if status == mip.Optimal {
		return exhaustive{}.Solve(ctx, p)
	}
	return &mip.Solution{Status: status}, nil
}

func (s *scripted) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// stalling never finishes before its context does
type stalling struct{}

func (stalling) Solve(ctx context.Context, p *mip.Program) (*mip.Solution, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

var monday = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

func half(activity, day string, session, capacity int) models.ScheduleRow {
	return models.ScheduleRow{Activity: activity, Day: day, Session: session, Capacity: capacity}
}

func full(activity, day string, capacity int) models.ScheduleRow {
	return models.ScheduleRow{Activity: activity, Day: day, Session: FullDaySession, FullDay: true, Capacity: capacity}
}

func pref(participant, activity, zone string, rank int) models.PreferenceRow {
	return models.PreferenceRow{Participant: participant, Activity: activity, Zone: zone, Rank: rank, SubmittedAt: monday}
}

func mustModel(t *testing.T, schedule []models.ScheduleRow, prefs []models.PreferenceRow, days ...string) *Model {
	t.Helper()
	m, _, err := BuildModel(schedule, prefs, ModelOptions{Days: days})
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	return m
}

func newTestScheduler(m *Model, solver mip.Solver) *Scheduler {
	return NewScheduler(m, solver, zap.NewNop(), Options{TimeLimit: 5 * time.Second})
}

// assertInvariants checks capacity, no-repeat and session exclusivity
func assertInvariants(t *testing.T, rows []models.Assignment, m *Model) {
	t.Helper()
	if err := CheckCapacity(rows, m); err != nil {
		t.Errorf("capacity violated: %v", err)
	}
	if dups := FindDuplicates(rows); len(dups) > 0 {
		t.Errorf("Expected no duplicates, got %v", dups)
	}
	if err := CheckSessions(rows, m); err != nil {
		t.Errorf("session exclusivity violated: %v", err)
	}
}

func activitiesOf(rows []models.Assignment, participant string) []string {
	var out []string
	for _, r := range rows {
		if r.Participant == participant {
			out = append(out, r.Activity)
		}
	}
	slices.Sort(out)
	return out
}
