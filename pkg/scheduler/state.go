package scheduler

import (
	"errors"
	"fmt"

	"github.com/arnavshah/workshop-scheduler/pkg/models"
)

var (
	ErrUnknownSlot       = errors.New("slot is not on the schedule")
	ErrCapacityExhausted = errors.New("slot has no remaining capacity")
	ErrRepeatActivity    = errors.New("participant already holds this activity")
	ErrPeriodOccupied    = errors.New("participant already has this period")
)

type zoneKey struct {
	participant string
	zone        string
}

type periodKey struct {
	participant string
	day         string
	session     int
}

// State is the residual capacity and per-participant bookkeeping shared by
// every cohort of a run. It has a single writer.
type State struct {
	model    *Model
	capacity []int
	units    map[zoneKey]int
	occupied map[periodKey]string
	used     map[costKey]bool
}

// NewState starts a run with every slot at its declared capacity
func NewState(m *Model) *State {
	st := &State{
		model:    m,
		capacity: make([]int, len(m.Slots)),
		units:    make(map[zoneKey]int),
		occupied: make(map[periodKey]string),
		used:     make(map[costKey]bool),
	}
	for i, s := range m.Slots {
		st.capacity[i] = s.Capacity
	}
	return st
}

// Remaining is the capacity left in a slot
func (st *State) Remaining(k SlotKey) int {
	i, ok := st.model.slotIndex[k]
	if !ok {
		return 0
	}
	return st.capacity[i]
}

// Units is the quota already consumed by a participant in a zone
func (st *State) Units(participant, zone string) int {
	return st.units[zoneKey{participant, zone}]
}

// Need is how many quota units the participant still lacks in a zone
func (st *State) Need(participant, zone string) int {
	return max(st.model.Quota-st.Units(participant, zone), 0)
}

// Occupied reports whether a half-day period is already taken
func (st *State) Occupied(participant, day string, session int) bool {
	_, ok := st.occupied[periodKey{participant, day, session}]
	return ok
}

// Used reports whether the participant already holds the activity
func (st *State) Used(participant, activity string) bool {
	return st.used[costKey{participant, activity}]
}

// sessionsOf lists the half-day periods a slot covers
func sessionsOf(s Slot) []int {
	if s.FullDay {
		return halfDaySessions[:]
	}
	return []int{s.Session}
}

// Commit checks the whole batch against the current state and applies it
// only if every row fits. Rows are validated in order so that conflicts
// within the batch are caught too.
func (st *State) Commit(rows []models.Assignment) error {
	capDelta := make(map[int]int)
	pendingUsed := make(map[costKey]bool)
	pendingPeriod := make(map[periodKey]bool)

	for _, r := range rows {
		k := SlotKey{Activity: r.Activity, Day: r.Day, Session: r.Session}
		i, ok := st.model.slotIndex[k]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSlot, k)
		}
		if st.capacity[i]-capDelta[i] < 1 {
			return fmt.Errorf("%w: %s", ErrCapacityExhausted, k)
		}
		ck := costKey{r.Participant, r.Activity}
		if st.used[ck] || pendingUsed[ck] {
			return fmt.Errorf("%w: %s has %s", ErrRepeatActivity, r.Participant, r.Activity)
		}
		for _, sess := range sessionsOf(st.model.Slots[i]) {
			pk := periodKey{r.Participant, r.Day, sess}
			if _, ok := st.occupied[pk]; ok || pendingPeriod[pk] {
				return fmt.Errorf("%w: %s on %s session %d", ErrPeriodOccupied, r.Participant, r.Day, sess)
			}
			pendingPeriod[pk] = true
		}
		capDelta[i]++
		pendingUsed[ck] = true
	}

	for _, r := range rows {
		i := st.model.slotIndex[SlotKey{Activity: r.Activity, Day: r.Day, Session: r.Session}]
		s := st.model.Slots[i]
		st.capacity[i]--
		st.used[costKey{r.Participant, r.Activity}] = true
		for _, sess := range sessionsOf(s) {
			st.occupied[periodKey{r.Participant, r.Day, sess}] = r.Activity
		}
		if s.Zone != "" {
			st.units[zoneKey{r.Participant, s.Zone}] += s.Units()
		}
	}
	return nil
}

// row builds the assignment record for a participant in a slot
func row(participant string, s Slot) models.Assignment {
	return models.Assignment{
		Participant: participant,
		Zone:        s.Zone,
		Day:         s.Day,
		Session:     s.Session,
		Activity:    s.Activity,
	}
}
