package scheduler

import (
	"slices"
	"strings"
	"time"
)

// CohortPolicy controls how participants are split and which cohorts are
// solved exactly
type CohortPolicy struct {
	Cutoffs []time.Time
	// GreedyFrom is the first cohort index sent straight to the heuristic.
	// Negative means every cohort is tried exactly first.
	GreedyFrom int
}

// LowPriority reports whether cohort i skips the exact solver
func (p CohortPolicy) LowPriority(i int) bool {
	return p.GreedyFrom >= 0 && i >= p.GreedyFrom
}

// Partition splits participants by submission time. Cohort i holds those
// submitted in [cutoffs[i-1], cutoffs[i]); the result always has
// len(cutoffs)+1 cohorts, some possibly empty.
func Partition(participants []Participant, cutoffs []time.Time) [][]Participant {
	bounds := slices.Clone(cutoffs)
	slices.SortFunc(bounds, func(a, b time.Time) int { return a.Compare(b) })

	cohorts := make([][]Participant, len(bounds)+1)
	for _, p := range participants {
		i, _ := slices.BinarySearchFunc(bounds, p.SubmittedAt, func(c, t time.Time) int {
			// Index of the first cutoff strictly after t.
			if c.After(t) {
				return 1
			}
			return -1
		})
		cohorts[i] = append(cohorts[i], p)
	}
	for _, c := range cohorts {
		slices.SortFunc(c, func(a, b Participant) int {
			if d := a.SubmittedAt.Compare(b.SubmittedAt); d != 0 {
				return d
			}
			return strings.Compare(a.Name, b.Name)
		})
	}
	return cohorts
}
