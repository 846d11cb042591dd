package scheduler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/arnavshah/workshop-scheduler/pkg/models"
)

// pick is a slot under consideration for one participant
type pick struct {
	slot Slot
	cost int
	need int
}

// Greedy builds a schedule for the cohort one participant and one day at a
// time, committing every choice to st straight away so later participants
// see the reduced capacity. Zone quotas are pursued but not guaranteed.
// Periods that cannot be filled are returned as conflicts.
func Greedy(cohort []Participant, m *Model, st *State) ([]models.Assignment, []models.ConflictReason, error) {
	var rows []models.Assignment
	var conflicts []models.ConflictReason

	take := func(p string, s Slot) error {
		r := row(p, s)
		if err := st.Commit([]models.Assignment{r}); err != nil {
			return err
		}
		rows = append(rows, r)
		return nil
	}

	for _, p := range cohort {
		for _, day := range m.Days {
			slots := m.SlotsOn(day)

			if !st.Occupied(p.Name, day, 1) && !st.Occupied(p.Name, day, 2) {
				if s, ok := bestPick(candidates(p.Name, slots, st, m, fullDayOnly(2))); ok {
					if err := take(p.Name, s); err != nil {
						return nil, nil, err
					}
					continue
				}
			}

			for _, sess := range halfDaySessions {
				if st.Occupied(p.Name, day, sess) {
					continue
				}
				open := candidates(p.Name, slots, st, m, halfDayIn(sess))
				s, ok := neediest(open)
				if !ok {
					s, ok = bestPick(open)
				}
				if !ok {
					continue
				}
				if err := take(p.Name, s); err != nil {
					return nil, nil, err
				}
			}

			if !st.Occupied(p.Name, day, 1) && !st.Occupied(p.Name, day, 2) {
				if s, ok := bestPick(candidates(p.Name, slots, st, m, fullDayOnly(0))); ok {
					if err := take(p.Name, s); err != nil {
						return nil, nil, err
					}
				}
			}

			for _, sess := range halfDaySessions {
				if !st.Occupied(p.Name, day, sess) {
					conflicts = append(conflicts, explain(p.Name, day, sess, slots, st))
				}
			}
		}
	}
	return rows, conflicts, nil
}

type slotFilter func(s Slot, need int) bool

// fullDayOnly accepts full-day slots whose zone still needs at least minNeed units
func fullDayOnly(minNeed int) slotFilter {
	return func(s Slot, need int) bool {
		return s.FullDay && need >= minNeed
	}
}

func halfDayIn(session int) slotFilter {
	return func(s Slot, _ int) bool {
		return !s.FullDay && s.Session == session
	}
}

// candidates lists the slots the participant could take right now
func candidates(participant string, slots []Slot, st *State, m *Model, keep slotFilter) []pick {
	var out []pick
	for _, s := range slots {
		if !s.Matchable() || st.Remaining(s.SlotKey) < 1 || st.Used(participant, s.Activity) {
			continue
		}
		if clashes(st, participant, s) {
			continue
		}
		need := st.Need(participant, s.Zone)
		if !keep(s, need) {
			continue
		}
		out = append(out, pick{slot: s, cost: m.Cost(participant, s.Activity), need: need})
	}
	return out
}

// bestPick takes the lowest cost, then the first activity name
func bestPick(picks []pick) (Slot, bool) {
	if len(picks) == 0 {
		return Slot{}, false
	}
	best := slices.MinFunc(picks, func(a, b pick) int {
		if a.cost != b.cost {
			return a.cost - b.cost
		}
		return strings.Compare(a.slot.Activity, b.slot.Activity)
	})
	return best.slot, true
}

// neediest prefers zones with unmet quota: smallest positive need first, so
// a zone one unit short is closed before a zone not yet started
func neediest(picks []pick) (Slot, bool) {
	var short []pick
	for _, p := range picks {
		if p.need > 0 {
			short = append(short, p)
		}
	}
	if len(short) == 0 {
		return Slot{}, false
	}
	best := slices.MinFunc(short, func(a, b pick) int {
		if a.need != b.need {
			return a.need - b.need
		}
		if a.cost != b.cost {
			return a.cost - b.cost
		}
		return strings.Compare(a.slot.Activity, b.slot.Activity)
	})
	return best.slot, true
}

// explain counts why no slot on the day could fill the period
func explain(participant, day string, session int, slots []Slot, st *State) models.ConflictReason {
	var reasons []string
	fullCount := 0
	repeatCount := 0
	unzonedCount := 0
	overlapCount := 0
	for _, s := range slots {
		if !s.FullDay && s.Session != session {
			continue
		}
		switch {
		case !s.Matchable():
			unzonedCount++
		case st.Used(participant, s.Activity):
			repeatCount++
		case st.Remaining(s.SlotKey) < 1:
			fullCount++
		case clashes(st, participant, s):
			overlapCount++
		}
	}
	if fullCount > 0 {
		reasons = append(reasons, fmt.Sprintf("%d slots were at capacity", fullCount))
	}
	if repeatCount > 0 {
		reasons = append(reasons, fmt.Sprintf("%d slots were activities already assigned", repeatCount))
	}
	if overlapCount > 0 {
		reasons = append(reasons, fmt.Sprintf("%d full-day slots overlapped a filled session", overlapCount))
	}
	if unzonedCount > 0 {
		reasons = append(reasons, fmt.Sprintf("%d slots had no zone", unzonedCount))
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "no activities scheduled for this period")
	}
	return models.ConflictReason{
		Participant: participant,
		Day:         day,
		Session:     session,
		Reasons:     reasons,
	}
}
