package scheduler

import (
	"errors"
	"fmt"
	"slices"

	"github.com/arnavshah/workshop-scheduler/pkg/models"
)

// ErrOverrideCapacity is returned when a fixed slot has no capacity left
var ErrOverrideCapacity = errors.New("override exceeds slot capacity")

// Overrides pins participants to slots before any solving happens
type Overrides map[string][]models.FixedSlot

// Participants returns the overridden names in sorted order
func (o Overrides) Participants() []string {
	names := make([]string, 0, len(o))
	for n := range o {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// MergePrevious folds assignments from an earlier run into the override set.
// When activities is non-empty only rows for those activities are taken.
// Slots already present for a participant are not added twice.
func MergePrevious(base Overrides, previous []models.Assignment, activities []string) Overrides {
	out := make(Overrides, len(base))
	for p, slots := range base {
		out[p] = slices.Clone(slots)
	}
	for _, r := range previous {
		if len(activities) > 0 && !slices.Contains(activities, r.Activity) {
			continue
		}
		fs := models.FixedSlot{Activity: r.Activity, Day: r.Day, Session: r.Session}
		if slices.Contains(out[r.Participant], fs) {
			continue
		}
		out[r.Participant] = append(out[r.Participant], fs)
	}
	return out
}

// ApplyOverrides commits every fixed slot into st and returns the resulting
// rows, participants in name order. Any slot that cannot be reconciled aborts
// the run.
func ApplyOverrides(st *State, ov Overrides) ([]models.Assignment, error) {
	var rows []models.Assignment
	for _, p := range ov.Participants() {
		batch := make([]models.Assignment, 0, len(ov[p]))
		for _, fs := range ov[p] {
			s, ok := st.model.Slot(SlotKey{Activity: fs.Activity, Day: fs.Day, Session: fs.Session})
			if !ok {
				return nil, fmt.Errorf("override for %s: %w: %s/%s/%d", p, ErrUnknownSlot, fs.Activity, fs.Day, fs.Session)
			}
			batch = append(batch, row(p, s))
		}
		if err := st.Commit(batch); err != nil {
			if errors.Is(err, ErrCapacityExhausted) {
				return nil, fmt.Errorf("override for %s: %w: %v", p, ErrOverrideCapacity, err)
			}
			return nil, fmt.Errorf("override for %s: %w", p, err)
		}
		rows = append(rows, batch...)
	}
	return rows, nil
}
