package scheduler

import (
	"fmt"
	"math"

	"github.com/arnavshah/workshop-scheduler/pkg/models"
)

// FindDuplicates reports every (participant, activity) pair held more than once
func FindDuplicates(rows []models.Assignment) []models.DuplicateAssignment {
	counts := make(map[costKey]int)
	var order []costKey
	for _, r := range rows {
		k := costKey{r.Participant, r.Activity}
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}
	var dups []models.DuplicateAssignment
	for _, k := range order {
		if counts[k] > 1 {
			dups = append(dups, models.DuplicateAssignment{
				Participant: k.participant,
				Activity:    k.activity,
				Count:       counts[k],
			})
		}
	}
	return dups
}

// CheckCapacity returns an error for the first slot holding more rows than
// its declared capacity
func CheckCapacity(rows []models.Assignment, m *Model) error {
	held := make(map[SlotKey]int)
	for _, r := range rows {
		held[SlotKey{Activity: r.Activity, Day: r.Day, Session: r.Session}]++
	}
	for _, s := range m.Slots {
		if held[s.SlotKey] > s.Capacity {
			return fmt.Errorf("%s holds %d of %d", s.SlotKey, held[s.SlotKey], s.Capacity)
		}
	}
	return nil
}

// CheckSessions returns an error when a participant has two rows covering the
// same half-day period
func CheckSessions(rows []models.Assignment, m *Model) error {
	seen := make(map[periodKey]string)
	for _, r := range rows {
		s, ok := m.Slot(SlotKey{Activity: r.Activity, Day: r.Day, Session: r.Session})
		if !ok {
			return fmt.Errorf("%w: %s/%s/%d", ErrUnknownSlot, r.Activity, r.Day, r.Session)
		}
		for _, sess := range sessionsOf(s) {
			k := periodKey{r.Participant, r.Day, sess}
			if prev, ok := seen[k]; ok {
				return fmt.Errorf("%s has %s and %s on %s session %d", r.Participant, prev, r.Activity, r.Day, sess)
			}
			seen[k] = r.Activity
		}
	}
	return nil
}

// QuotaUnits totals quota units per participant and zone
func QuotaUnits(rows []models.Assignment, m *Model) map[string]map[string]int {
	out := make(map[string]map[string]int)
	for _, r := range rows {
		s, ok := m.Slot(SlotKey{Activity: r.Activity, Day: r.Day, Session: r.Session})
		if !ok || s.Zone == "" {
			continue
		}
		if out[r.Participant] == nil {
			out[r.Participant] = make(map[string]int)
		}
		out[r.Participant][s.Zone] += s.Units()
	}
	return out
}

// Summarize counts rows per preference tier and scores how evenly the total
// preference cost is spread across participants
func Summarize(rows []models.Assignment, m *Model) models.Summary {
	sum := models.Summary{Assignments: len(rows)}
	cost := make(map[string]float64)
	for _, r := range rows {
		r2, ok := m.Rank(r.Participant, r.Activity)
		switch {
		case !ok:
			sum.Unranked++
		case m.Tiers.Of(r2) == TierFirst:
			sum.FirstChoice++
		case m.Tiers.Of(r2) == TierSecond:
			sum.SecondChoice++
		default:
			sum.OtherChoice++
		}
		cost[r.Participant] += float64(m.Cost(r.Participant, r.Activity))
	}
	sum.Participants = len(cost)
	sum.FairnessScore = fairness(cost)
	return sum
}

// fairness returns a percentage (0-100) of how evenly cost is distributed.
// 100% means every participant carries the same total cost.
func fairness(cost map[string]float64) float64 {
	if len(cost) == 0 {
		return 100.0
	}
	var total float64
	for _, c := range cost {
		total += c
	}
	if total == 0 {
		return 100.0
	}
	mean := total / float64(len(cost))

	var varianceSum float64
	for _, c := range cost {
		diff := c - mean
		varianceSum += diff * diff
	}
	stdDev := math.Sqrt(varianceSum / float64(len(cost)))

	score := (1.0 - (stdDev / mean)) * 100.0
	if score < 0 {
		return 0.0
	}
	return score
}
