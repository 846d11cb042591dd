package scheduler

import (
	"fmt"
	"strings"

	"github.com/arnavshah/workshop-scheduler/pkg/mip"
	"github.com/arnavshah/workshop-scheduler/pkg/models"
)

// Formulation selects which constraint families go into a cohort program
type Formulation struct {
	// Relaxed drops the zone quota family, keeping capacity, no-repeat and
	// one-per-period.
	Relaxed bool
}

func (f Formulation) String() string {
	if f.Relaxed {
		return "relaxed"
	}
	return "strict"
}

// Candidate is the (participant, slot) pair behind one program column
type Candidate struct {
	Participant string
	Slot        Slot
}

// CohortProgram is a program together with the meaning of its columns
type CohortProgram struct {
	*mip.Program
	Candidates []Candidate
}

// BuildProgram formulates the cohort against the residual state. It reads st
// but never writes it.
//
// One binary column exists per participant and slot that is zoned, has
// capacity, is not an activity the participant already holds and does not
// clash with a period the participant already fills. The objective is the
// sum of preference costs.
func BuildProgram(cohort []Participant, m *Model, st *State, f Formulation) *CohortProgram {
	cp := &CohortProgram{Program: mip.NewProgram("assignment-" + f.String())}

	byParticipant := make(map[string][]int)
	bySlot := make(map[SlotKey][]int)
	for _, p := range cohort {
		for _, s := range m.Slots {
			if !s.Matchable() || st.Remaining(s.SlotKey) < 1 || st.Used(p.Name, s.Activity) {
				continue
			}
			if clashes(st, p.Name, s) {
				continue
			}
			j := cp.AddColumn(columnName(p.Name, s), float64(m.Cost(p.Name, s.Activity)))
			cp.Candidates = append(cp.Candidates, Candidate{Participant: p.Name, Slot: s})
			byParticipant[p.Name] = append(byParticipant[p.Name], j)
			bySlot[s.SlotKey] = append(bySlot[s.SlotKey], j)
		}
	}

	for _, p := range cohort {
		cols := byParticipant[p.Name]
		if !f.Relaxed {
			cp.addZoneRows(m, st, p.Name, cols)
		}
		cp.addNoRepeatRows(p.Name, cols)
		cp.addPeriodRows(m, st, p.Name, cols)
	}

	// Capacity rows only where the candidates could overrun the slot.
	for _, s := range m.Slots {
		cols := bySlot[s.SlotKey]
		remaining := st.Remaining(s.SlotKey)
		if len(cols) <= remaining {
			continue
		}
		cp.AddRow("Capacity_"+sanitize(s.SlotKey.String()), mip.Upper, float64(remaining), cols, ones(len(cols)))
	}
	return cp
}

// addZoneRows adds, per zone, the exact quota row plus the rules that push
// the solver to second choices before wildcards.
func (cp *CohortProgram) addZoneRows(m *Model, st *State, participant string, cols []int) {
	for _, z := range m.Zones {
		b := m.Buckets(participant, z)
		need := float64(m.Quota - st.Units(participant, z))

		var all, stated, other []int
		var allCoef, statedCoef, otherCoef []float64
		for _, j := range cols {
			s := cp.Candidates[j].Slot
			if s.Zone != z {
				continue
			}
			u := float64(s.Units())
			all = append(all, j)
			allCoef = append(allCoef, u)
			if b.Tier(s.Activity) == TierOther {
				other = append(other, j)
				otherCoef = append(otherCoef, u)
			} else {
				stated = append(stated, j)
				statedCoef = append(statedCoef, u)
			}
		}

		tag := sanitize(participant + "_" + z)
		cp.AddRow("TwoPerZone_"+tag, mip.Fixed, need, all, allCoef)
		if b.HasSecond() {
			cp.AddRow("UseSeconds_"+tag, mip.Lower, need, stated, statedCoef)
		}
		if len(other) > 0 {
			limit := 1.0
			if b.HasSecond() {
				limit = 0
			}
			cp.AddRow("RandLimit_"+tag, mip.Upper, limit, other, otherCoef)
		}
	}
}

func (cp *CohortProgram) addNoRepeatRows(participant string, cols []int) {
	byActivity := make(map[string][]int)
	var order []string
	for _, j := range cols {
		a := cp.Candidates[j].Slot.Activity
		if _, ok := byActivity[a]; !ok {
			order = append(order, a)
		}
		byActivity[a] = append(byActivity[a], j)
	}
	for _, a := range order {
		if len(byActivity[a]) < 2 {
			continue
		}
		cp.AddRow("NoRepeat_"+sanitize(participant+"_"+a), mip.Upper, 1, byActivity[a], ones(len(byActivity[a])))
	}
}

// addPeriodRows requires exactly one slot covering each free half-day
// period. An empty row for a free period makes the program infeasible, which
// is the intended signal that the period cannot be filled.
func (cp *CohortProgram) addPeriodRows(m *Model, st *State, participant string, cols []int) {
	for _, day := range m.Days {
		for _, sess := range halfDaySessions {
			if st.Occupied(participant, day, sess) {
				continue
			}
			var idx []int
			for _, j := range cols {
				s := cp.Candidates[j].Slot
				if s.Day == day && (s.FullDay || s.Session == sess) {
					idx = append(idx, j)
				}
			}
			name := fmt.Sprintf("OnePerSlot_%s_%s_T%d", sanitize(participant), sanitize(day), sess)
			cp.AddRow(name, mip.Fixed, 1, idx, ones(len(idx)))
		}
	}
}

// Decode turns the selected columns into assignment rows
func (cp *CohortProgram) Decode(sol *mip.Solution) []models.Assignment {
	var rows []models.Assignment
	for j, on := range sol.Values {
		if on {
			c := cp.Candidates[j]
			rows = append(rows, row(c.Participant, c.Slot))
		}
	}
	return rows
}

// clashes reports whether any period s covers is already filled
func clashes(st *State, participant string, s Slot) bool {
	for _, sess := range sessionsOf(s) {
		if st.Occupied(participant, s.Day, sess) {
			return true
		}
	}
	return false
}

func columnName(participant string, s Slot) string {
	return sanitize(fmt.Sprintf("x_%s_%s_%s_T%d", participant, s.Activity, s.Day, s.Session))
}

func sanitize(s string) string {
	return strings.Join(strings.Fields(s), "_")
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}
