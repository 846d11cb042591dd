package scheduler

import (
	"errors"
	"slices"
	"testing"

	"github.com/arnavshah/workshop-scheduler/pkg/models"
)

func TestBuildModel_AggregatesCapacity(t *testing.T) {
	schedule := []models.ScheduleRow{
		half("Pottery", "Mon", 1, 3),
		half("Pottery", "Mon", 1, 2),
		full("Hike", "Mon", 4),
	}
	prefs := []models.PreferenceRow{pref("ann", "Pottery", "Z1", 1)}

	m := mustModel(t, schedule, prefs)

	if len(m.Slots) != 2 {
		t.Fatalf("Expected 2 slots, got %d", len(m.Slots))
	}
	s, ok := m.Slot(SlotKey{Activity: "Pottery", Day: "Mon", Session: 1})
	if !ok {
		t.Fatal("Expected Pottery/Mon/1 to exist")
	}
	if s.Capacity != 5 {
		t.Errorf("Expected aggregated capacity 5, got %d", s.Capacity)
	}
	// Full-day slots sort before half-day slots of the same day.
	if m.Slots[0].Activity != "Hike" || !m.Slots[0].FullDay || m.Slots[0].Units() != 2 {
		t.Errorf("Expected full-day Hike first with 2 units, got %+v", m.Slots[0])
	}
}

func TestBuildModel_MinRankAndSentinel(t *testing.T) {
	schedule := []models.ScheduleRow{half("A", "Mon", 1, 1), half("B", "Mon", 2, 1)}
	prefs := []models.PreferenceRow{
		pref("ann", "A", "Z1", 3),
		pref("ann", "A", "Z2", 1),
		pref("ann", "B", "Z1", 2),
	}
	m := mustModel(t, schedule, prefs)

	if got := m.Cost("ann", "A"); got != 1 {
		t.Errorf("Expected min rank 1 for A, got %d", got)
	}
	if got := m.Cost("bob", "A"); got != DefaultUnrankedCost {
		t.Errorf("Expected sentinel %d, got %d", DefaultUnrankedCost, got)
	}
	if z, _ := m.Zone("A"); z != "Z1" {
		t.Errorf("Expected first observed zone Z1, got %s", z)
	}
}

func TestBuildModel_SentinelAboveEveryRank(t *testing.T) {
	schedule := []models.ScheduleRow{half("A", "Mon", 1, 1)}
	prefs := []models.PreferenceRow{pref("ann", "A", "Z1", 150)}

	m := mustModel(t, schedule, prefs)
	if m.Unranked != 151 {
		t.Errorf("Expected sentinel 151, got %d", m.Unranked)
	}
}

func TestBuildModel_Warnings(t *testing.T) {
	schedule := []models.ScheduleRow{half("A", "Mon", 1, 1), half("Orphan", "Mon", 2, 1)}
	prefs := []models.PreferenceRow{
		pref("ann", "A", "Z1", 1),
		pref("ann", "Missing", "Z1", 2),
		pref("ann", "Missing", "Z1", 3),
		pref("bob", "A", "Z1", 0),
	}

	m, warnings, err := BuildModel(schedule, prefs, ModelOptions{})
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}

	kinds := make(map[string]int)
	for _, w := range warnings {
		kinds[w.Kind]++
	}
	if kinds[models.WarnUnmatchedPreference] != 1 {
		t.Errorf("Expected 1 unmatched warning, got %d", kinds[models.WarnUnmatchedPreference])
	}
	if kinds[models.WarnUnzonedActivity] != 1 {
		t.Errorf("Expected 1 unzoned warning, got %d", kinds[models.WarnUnzonedActivity])
	}
	if kinds[models.WarnInvalidRank] != 1 {
		t.Errorf("Expected 1 invalid rank warning, got %d", kinds[models.WarnInvalidRank])
	}
	if _, ok := m.Rank("ann", "Missing"); ok {
		t.Error("Expected unmatched preference to be dropped")
	}
	s, _ := m.Slot(SlotKey{Activity: "Orphan", Day: "Mon", Session: 2})
	if s.Matchable() {
		t.Error("Expected unzoned slot to be unmatchable")
	}
	if len(m.Participants) != 2 {
		t.Errorf("Expected 2 participants, got %d", len(m.Participants))
	}
}

func TestBuildModel_InvalidSchedule(t *testing.T) {
	cases := map[string]models.ScheduleRow{
		"session out of range":  half("A", "Mon", 3, 1),
		"half-day in session 0": {Activity: "A", Day: "Mon", Session: 0, Capacity: 1},
		"full-day in session 1": {Activity: "A", Day: "Mon", Session: 1, FullDay: true, Capacity: 1},
		"negative capacity":     half("A", "Mon", 1, -1),
		"missing day":           {Activity: "A", Session: 1, Capacity: 1},
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := BuildModel([]models.ScheduleRow{r}, nil, ModelOptions{})
			if !errors.Is(err, ErrInvalidSchedule) {
				t.Errorf("Expected ErrInvalidSchedule, got %v", err)
			}
		})
	}
}

func TestBuildModel_DayOrder(t *testing.T) {
	schedule := []models.ScheduleRow{half("A", "Tue", 1, 1), half("B", "Mon", 1, 1)}

	m := mustModel(t, schedule, nil, "Tue", "Mon")
	if !slices.Equal(m.Days, []string{"Tue", "Mon"}) {
		t.Errorf("Expected explicit day order, got %v", m.Days)
	}
	if m.Slots[0].Day != "Tue" {
		t.Errorf("Expected slots in day order, got %s first", m.Slots[0].Day)
	}

	m = mustModel(t, schedule, nil)
	if !slices.Equal(m.Days, []string{"Mon", "Tue"}) {
		t.Errorf("Expected sorted days, got %v", m.Days)
	}

	_, _, err := BuildModel(schedule, nil, ModelOptions{Days: []string{"Mon"}})
	if !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("Expected ErrInvalidSchedule for day outside order, got %v", err)
	}
}

func TestBuckets(t *testing.T) {
	schedule := []models.ScheduleRow{
		half("A", "Mon", 1, 1),
		half("A", "Tue", 1, 1),
		half("B", "Mon", 2, 1),
		half("C", "Tue", 2, 1),
	}
	prefs := []models.PreferenceRow{
		pref("ann", "A", "Z1", 1),
		pref("ann", "A", "Z1", 2),
		pref("ann", "B", "Z1", 2),
		pref("bob", "C", "Z1", 1),
	}
	m := mustModel(t, schedule, prefs)

	b := m.Buckets("ann", "Z1")
	if !slices.Equal(b.First, []string{"A"}) {
		t.Errorf("Expected first [A], got %v", b.First)
	}
	if !slices.Equal(b.Second, []string{"B"}) {
		t.Errorf("Expected second [B], got %v", b.Second)
	}
	if b.Tier("C") != TierOther {
		t.Errorf("Expected C to be other, got %s", b.Tier("C"))
	}
	if m.Buckets("bob", "Z1").HasSecond() {
		t.Error("Expected bob to have no second choice")
	}
}

func TestTierTable(t *testing.T) {
	custom := TierTable{1: TierFirst, 2: TierFirst, 3: TierSecond}
	if custom.Of(2) != TierFirst || custom.Of(3) != TierSecond || custom.Of(4) != TierOther {
		t.Error("Expected custom tier table to be honoured")
	}
	if DefaultTiers.Of(2) != TierSecond {
		t.Errorf("Expected rank 2 to be second, got %s", DefaultTiers.Of(2))
	}
}

func TestDemandCounts(t *testing.T) {
	prefs := []models.PreferenceRow{
		pref("ann", "A", "Z1", 1),
		pref("bob", "A", "Z1", 1),
		pref("bob", "A", "Z1", 1),
		pref("ann", "B", "Z1", 2),
	}
	counts := DemandCounts(prefs)
	if len(counts) != 2 {
		t.Fatalf("Expected 2 demand rows, got %d", len(counts))
	}
	if counts[0].Activity != "A" || counts[0].Count != 2 {
		t.Errorf("Expected A counted twice, got %+v", counts[0])
	}
}
