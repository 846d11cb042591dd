package scheduler

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/arnavshah/workshop-scheduler/pkg/models"
)

// FullDaySession is the session index reserved for full-day slots
const FullDaySession = 0

// halfDaySessions are the two periods every day is split into
var halfDaySessions = [2]int{1, 2}

// Defaults applied when ModelOptions leave a field zero
const (
	DefaultUnrankedCost = 99
	DefaultQuotaPerZone = 2
)

// ErrInvalidSchedule marks schedule rows that cannot be aggregated
var ErrInvalidSchedule = errors.New("invalid schedule")

// SlotKey identifies one occurrence of an activity
type SlotKey struct {
	Activity string
	Day      string
	Session  int
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Activity, k.Day, k.Session)
}

// Slot is an activity occurrence with its declared capacity
type Slot struct {
	SlotKey
	Zone     string
	FullDay  bool
	Capacity int
}

// Units is the zone quota a slot consumes: two for a full day, one otherwise
func (s Slot) Units() int {
	if s.FullDay {
		return 2
	}
	return 1
}

// Matchable reports whether the solvers may hand the slot out
func (s Slot) Matchable() bool {
	return s.Zone != ""
}

// Participant is someone to be scheduled
type Participant struct {
	Name        string
	SubmittedAt time.Time
}

// ModelOptions tune how raw tables are turned into a Model
type ModelOptions struct {
	// Days fixes the day order; sorted day names are used when empty.
	Days         []string
	UnrankedCost int
	QuotaPerZone int
	Tiers        TierTable
}

type costKey struct {
	participant string
	activity    string
}

// Model is the immutable preference and capacity lookup built from raw tables
type Model struct {
	Slots        []Slot
	Days         []string
	Zones        []string
	Participants []Participant
	Unranked     int
	Quota        int
	Tiers        TierTable

	slotIndex  map[SlotKey]int
	slotsByDay map[string][]int
	zoneOf     map[string]string
	rank       map[costKey]int
}

// BuildModel aggregates schedule rows by slot and collapses preference rows
// into a min-rank cost map. Unmatched preferences and unzoned activities are
// reported as warnings, not errors.
func BuildModel(schedule []models.ScheduleRow, prefs []models.PreferenceRow, opts ModelOptions) (*Model, []models.Warning, error) {
	m := &Model{
		Unranked:   opts.UnrankedCost,
		Quota:      opts.QuotaPerZone,
		Tiers:      opts.Tiers,
		slotIndex:  make(map[SlotKey]int),
		slotsByDay: make(map[string][]int),
		zoneOf:     make(map[string]string),
		rank:       make(map[costKey]int),
	}
	if m.Unranked <= 0 {
		m.Unranked = DefaultUnrankedCost
	}
	if m.Quota <= 0 {
		m.Quota = DefaultQuotaPerZone
	}
	if m.Tiers == nil {
		m.Tiers = DefaultTiers
	}

	var warnings []models.Warning

	// Aggregate capacity by (activity, day, session).
	capacity := make(map[SlotKey]int)
	fullDay := make(map[SlotKey]bool)
	var keys []SlotKey
	activities := make(map[string]bool)
	for i, row := range schedule {
		name := strings.TrimSpace(row.Activity)
		day := strings.TrimSpace(row.Day)
		if name == "" || day == "" {
			return nil, nil, fmt.Errorf("%w: row %d has no activity or day", ErrInvalidSchedule, i)
		}
		if row.Session < FullDaySession || row.Session > halfDaySessions[1] {
			return nil, nil, fmt.Errorf("%w: %s on %s has session %d", ErrInvalidSchedule, name, day, row.Session)
		}
		if (row.Session == FullDaySession) != row.FullDay {
			return nil, nil, fmt.Errorf("%w: %s on %s session %d disagrees with full-day flag", ErrInvalidSchedule, name, day, row.Session)
		}
		if row.Capacity < 0 {
			return nil, nil, fmt.Errorf("%w: %s on %s has negative capacity", ErrInvalidSchedule, name, day)
		}
		key := SlotKey{Activity: name, Day: day, Session: row.Session}
		if _, ok := capacity[key]; !ok {
			keys = append(keys, key)
		}
		capacity[key] += row.Capacity
		fullDay[key] = row.FullDay
		activities[name] = true
	}

	// Day order.
	seenDays := make(map[string]bool)
	for _, k := range keys {
		seenDays[k.Day] = true
	}
	if len(opts.Days) > 0 {
		for _, d := range opts.Days {
			if !slices.Contains(m.Days, d) {
				m.Days = append(m.Days, d)
			}
		}
		for d := range seenDays {
			if !slices.Contains(m.Days, d) {
				return nil, nil, fmt.Errorf("%w: day %q missing from day order", ErrInvalidSchedule, d)
			}
		}
	} else {
		for d := range seenDays {
			m.Days = append(m.Days, d)
		}
		slices.Sort(m.Days)
	}
	dayPos := make(map[string]int, len(m.Days))
	for i, d := range m.Days {
		dayPos[d] = i
	}

	// Preferences: zone map, min-rank costs, participants.
	maxRank := 0
	submitted := make(map[string]time.Time)
	var names []string
	unmatched := make(map[costKey]bool)
	for _, row := range prefs {
		who := strings.TrimSpace(row.Participant)
		what := strings.TrimSpace(row.Activity)
		if who == "" {
			continue
		}
		if _, ok := submitted[who]; !ok {
			submitted[who] = row.SubmittedAt
			names = append(names, who)
		}
		if !activities[what] {
			ck := costKey{who, what}
			if !unmatched[ck] {
				unmatched[ck] = true
				warnings = append(warnings, models.Warning{
					Kind:        models.WarnUnmatchedPreference,
					Participant: who,
					Activity:    what,
					Message:     "activity is not on the schedule",
				})
			}
			continue
		}
		if row.Rank < 1 {
			warnings = append(warnings, models.Warning{
				Kind:        models.WarnInvalidRank,
				Participant: who,
				Activity:    what,
				Message:     fmt.Sprintf("rank %d ignored", row.Rank),
			})
			continue
		}
		if _, ok := m.zoneOf[what]; !ok && row.Zone != "" {
			m.zoneOf[what] = row.Zone
		}
		ck := costKey{who, what}
		if r, ok := m.rank[ck]; !ok || row.Rank < r {
			m.rank[ck] = row.Rank
		}
		maxRank = max(maxRank, row.Rank)
	}
	if m.Unranked <= maxRank {
		m.Unranked = maxRank + 1
	}

	slices.Sort(names)
	for _, n := range names {
		m.Participants = append(m.Participants, Participant{Name: n, SubmittedAt: submitted[n]})
	}

	// Slots in day, session, activity order.
	slices.SortFunc(keys, func(a, b SlotKey) int {
		if d := dayPos[a.Day] - dayPos[b.Day]; d != 0 {
			return d
		}
		if d := a.Session - b.Session; d != 0 {
			return d
		}
		return strings.Compare(a.Activity, b.Activity)
	})
	unzoned := make(map[string]bool)
	zones := make(map[string]bool)
	for _, k := range keys {
		zone := m.zoneOf[k.Activity]
		if zone == "" && !unzoned[k.Activity] {
			unzoned[k.Activity] = true
			warnings = append(warnings, models.Warning{
				Kind:     models.WarnUnzonedActivity,
				Activity: k.Activity,
				Message:  "no preference names a zone for this activity; it will not be matched",
			})
		}
		if zone != "" {
			zones[zone] = true
		}
		m.slotIndex[k] = len(m.Slots)
		m.slotsByDay[k.Day] = append(m.slotsByDay[k.Day], len(m.Slots))
		m.Slots = append(m.Slots, Slot{
			SlotKey:  k,
			Zone:     zone,
			FullDay:  fullDay[k],
			Capacity: capacity[k],
		})
	}
	for z := range zones {
		m.Zones = append(m.Zones, z)
	}
	slices.Sort(m.Zones)

	return m, warnings, nil
}

// Slot looks up a slot by key
func (m *Model) Slot(k SlotKey) (Slot, bool) {
	i, ok := m.slotIndex[k]
	if !ok {
		return Slot{}, false
	}
	return m.Slots[i], true
}

// SlotsOn returns the slots of one day in model order
func (m *Model) SlotsOn(day string) []Slot {
	idx := m.slotsByDay[day]
	out := make([]Slot, len(idx))
	for i, j := range idx {
		out[i] = m.Slots[j]
	}
	return out
}

// Zone returns the zone of an activity
func (m *Model) Zone(activity string) (string, bool) {
	z, ok := m.zoneOf[activity]
	return z, ok
}

// Rank returns the participant's stated rank for an activity
func (m *Model) Rank(participant, activity string) (int, bool) {
	r, ok := m.rank[costKey{participant, activity}]
	return r, ok
}

// Cost is the stated rank, or the unranked sentinel
func (m *Model) Cost(participant, activity string) int {
	if r, ok := m.Rank(participant, activity); ok {
		return r
	}
	return m.Unranked
}

// Participant returns a participant by name
func (m *Model) Participant(name string) (Participant, bool) {
	i, ok := slices.BinarySearchFunc(m.Participants, name, func(p Participant, n string) int {
		return strings.Compare(p.Name, n)
	})
	if !ok {
		return Participant{}, false
	}
	return m.Participants[i], true
}

// DemandCounts counts participants per (zone, rank, activity)
func DemandCounts(prefs []models.PreferenceRow) []models.DemandCount {
	type key struct {
		zone     string
		rank     int
		activity string
	}
	seen := make(map[key]map[string]bool)
	for _, p := range prefs {
		k := key{p.Zone, p.Rank, strings.TrimSpace(p.Activity)}
		if seen[k] == nil {
			seen[k] = make(map[string]bool)
		}
		seen[k][strings.TrimSpace(p.Participant)] = true
	}
	out := make([]models.DemandCount, 0, len(seen))
	for k, who := range seen {
		out = append(out, models.DemandCount{Zone: k.zone, Rank: k.rank, Activity: k.activity, Count: len(who)})
	}
	slices.SortFunc(out, func(a, b models.DemandCount) int {
		if c := strings.Compare(a.Zone, b.Zone); c != 0 {
			return c
		}
		if a.Rank != b.Rank {
			return a.Rank - b.Rank
		}
		return strings.Compare(a.Activity, b.Activity)
	})
	return out
}
