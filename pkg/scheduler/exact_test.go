package scheduler

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/arnavshah/workshop-scheduler/pkg/mip"
	"github.com/arnavshah/workshop-scheduler/pkg/models"
)

// twoDayModel has Mon A (Z1, session 1), Mon B (Z1, session 2) and a
// full-day C (Z2) on Tue, each with room for two
func twoDayModel(t *testing.T, participants ...string) *Model {
	t.Helper()
	schedule := []models.ScheduleRow{
		half("A", "Mon", 1, 2),
		half("B", "Mon", 2, 2),
		full("C", "Tue", 2),
	}
	var prefs []models.PreferenceRow
	for _, p := range participants {
		prefs = append(prefs,
			pref(p, "A", "Z1", 1),
			pref(p, "B", "Z1", 2),
			pref(p, "C", "Z2", 1),
		)
	}
	return mustModel(t, schedule, prefs, "Mon", "Tue")
}

func findRow(p *mip.Program, name string) (mip.Row, bool) {
	for _, r := range p.Rows {
		if r.Name == name {
			return r, true
		}
	}
	return mip.Row{}, false
}

func hasRowPrefix(p *mip.Program, prefix string) bool {
	return slices.ContainsFunc(p.Rows, func(r mip.Row) bool { return strings.HasPrefix(r.Name, prefix) })
}

func TestBuildProgram_Strict(t *testing.T) {
	m := twoDayModel(t, "ann")
	st := NewState(m)

	cp := BuildProgram(m.Participants, m, st, Formulation{})
	if len(cp.Columns) != 3 {
		t.Fatalf("Expected 3 columns, got %d", len(cp.Columns))
	}
	if cp.Columns[0].Name != "x_ann_A_Mon_T1" {
		t.Errorf("Expected column x_ann_A_Mon_T1, got %s", cp.Columns[0].Name)
	}

	zone, ok := findRow(cp.Program, "TwoPerZone_ann_Z2")
	if !ok {
		t.Fatal("Expected TwoPerZone_ann_Z2 row")
	}
	if zone.Bound != mip.Fixed || zone.Value != 2 || len(zone.Coef) != 1 || zone.Coef[0] != 2 {
		t.Errorf("Expected full day to weigh 2 towards a quota of 2, got %+v", zone)
	}
	seconds, ok := findRow(cp.Program, "UseSeconds_ann_Z1")
	if !ok || seconds.Bound != mip.Lower || seconds.Value != 2 {
		t.Errorf("Expected UseSeconds_ann_Z1 >= 2, got %+v", seconds)
	}
	if _, ok := findRow(cp.Program, "UseSeconds_ann_Z2"); ok {
		t.Error("Expected no UseSeconds row without a second choice")
	}
	for _, name := range []string{"OnePerSlot_ann_Mon_T1", "OnePerSlot_ann_Mon_T2", "OnePerSlot_ann_Tue_T1", "OnePerSlot_ann_Tue_T2"} {
		r, ok := findRow(cp.Program, name)
		if !ok || r.Bound != mip.Fixed || r.Value != 1 {
			t.Errorf("Expected %s == 1, got %+v", name, r)
		}
	}
	if hasRowPrefix(cp.Program, "Capacity_") {
		t.Error("Expected no capacity rows when every slot has room")
	}

	sol, err := exhaustive{}.Solve(context.Background(), cp.Program)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.Status != mip.Optimal || sol.Objective != 4 {
		t.Errorf("Expected optimal objective 4, got %s %v", sol.Status, sol.Objective)
	}
	if got := activitiesOf(cp.Decode(sol), "ann"); !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Errorf("Expected ann to get A, B, C, got %v", got)
	}
}

func TestBuildProgram_Relaxed(t *testing.T) {
	m := twoDayModel(t, "ann")
	cp := BuildProgram(m.Participants, m, NewState(m), Formulation{Relaxed: true})

	for _, prefix := range []string{"TwoPerZone_", "UseSeconds_", "RandLimit_"} {
		if hasRowPrefix(cp.Program, prefix) {
			t.Errorf("Expected relaxed program without %s rows", prefix)
		}
	}
	if !hasRowPrefix(cp.Program, "OnePerSlot_") {
		t.Error("Expected relaxed program to keep one-per-period rows")
	}
}

func TestBuildProgram_ReadsResidualState(t *testing.T) {
	m := twoDayModel(t, "ann", "bob", "cat")
	st := NewState(m)
	if _, err := ApplyOverrides(st, Overrides{"ann": {{Activity: "A", Day: "Mon", Session: 1}}}); err != nil {
		t.Fatalf("ApplyOverrides: %v", err)
	}
	// bob and cat compete for the single seat left in A.
	cohort := []Participant{{Name: "bob"}, {Name: "cat"}}
	cp := BuildProgram(cohort, m, st, Formulation{})

	capRow, ok := findRow(cp.Program, "Capacity_A/Mon/1")
	if !ok || capRow.Value != 1 || len(capRow.Index) != 2 {
		t.Errorf("Expected A capped at 1 over 2 columns, got %+v", capRow)
	}

	solo := BuildProgram([]Participant{{Name: "ann"}}, m, st, Formulation{})
	for _, c := range solo.Candidates {
		if c.Slot.Activity == "A" {
			t.Error("Expected no column for an activity already held")
		}
	}
	if _, ok := findRow(solo.Program, "OnePerSlot_ann_Mon_T1"); ok {
		t.Error("Expected no period row for a period filled by an override")
	}
	zone, _ := findRow(solo.Program, "TwoPerZone_ann_Z1")
	if zone.Value != 1 {
		t.Errorf("Expected remaining Z1 need of 1, got %v", zone.Value)
	}
}

func TestBuildProgram_NoRepeat(t *testing.T) {
	schedule := []models.ScheduleRow{
		half("A", "Mon", 1, 1),
		half("A", "Tue", 1, 1),
		half("B", "Mon", 2, 1),
		half("B", "Tue", 2, 1),
		half("C", "Tue", 1, 1),
		half("D", "Tue", 2, 1),
	}
	prefs := []models.PreferenceRow{
		pref("ann", "A", "Z1", 1),
		pref("ann", "B", "Z2", 1),
		pref("ann", "C", "Z1", 3),
		pref("ann", "D", "Z2", 3),
	}
	m := mustModel(t, schedule, prefs)

	cp := BuildProgram(m.Participants, m, NewState(m), Formulation{Relaxed: true})
	r, ok := findRow(cp.Program, "NoRepeat_ann_A")
	if !ok || r.Bound != mip.Upper || r.Value != 1 || len(r.Index) != 2 {
		t.Errorf("Expected NoRepeat_ann_A <= 1 over 2 columns, got %+v", r)
	}
	sol, _ := exhaustive{}.Solve(context.Background(), cp.Program)
	if sol.Status != mip.Optimal {
		t.Fatalf("Expected optimal, got %s", sol.Status)
	}
	rows := cp.Decode(sol)
	assertInvariants(t, rows, m)
	if got := activitiesOf(rows, "ann"); !slices.Equal(got, []string{"A", "B", "C", "D"}) {
		t.Errorf("Expected A, B, C, D, got %v", got)
	}
}

func TestBuildProgram_WildcardLimit(t *testing.T) {
	schedule := []models.ScheduleRow{
		half("A", "Mon", 1, 1),
		half("W", "Mon", 2, 1),
		half("S", "Tue", 1, 1),
		half("V", "Tue", 2, 1),
	}
	prefs := []models.PreferenceRow{
		pref("ann", "A", "Z1", 1),
		pref("bob", "W", "Z1", 1),
		pref("bob", "S", "Z2", 1),
		pref("bob", "V", "Z2", 1),
		pref("cat", "S", "Z2", 2),
	}
	m := mustModel(t, schedule, prefs)
	st := NewState(m)

	ann := BuildProgram([]Participant{{Name: "ann"}}, m, st, Formulation{})
	r, ok := findRow(ann.Program, "RandLimit_ann_Z1")
	if !ok || r.Value != 1 || len(r.Index) != 1 {
		t.Errorf("Expected one wildcard allowed without second choices, got %+v", r)
	}

	cat := BuildProgram([]Participant{{Name: "cat"}}, m, st, Formulation{})
	r, ok = findRow(cat.Program, "RandLimit_cat_Z2")
	if !ok || r.Value != 0 {
		t.Errorf("Expected no wildcard when a second choice exists, got %+v", r)
	}
}

func TestBuildProgram_FullDayWildcardCountsTwoUnits(t *testing.T) {
	schedule := []models.ScheduleRow{
		half("A", "Mon", 1, 1),
		half("B", "Mon", 2, 1),
		full("W", "Tue", 1),
	}
	prefs := []models.PreferenceRow{
		pref("ann", "A", "Z1", 1),
		pref("ann", "B", "Z1", 1),
		pref("bob", "W", "Z2", 1),
	}
	m := mustModel(t, schedule, prefs)
	st := NewState(m)

	cp := BuildProgram([]Participant{{Name: "ann"}}, m, st, Formulation{})
	r, ok := findRow(cp.Program, "RandLimit_ann_Z2")
	if !ok || r.Value != 1 || len(r.Coef) != 1 || r.Coef[0] != 2 {
		t.Fatalf("Expected the full-day wildcard weighted 2 against a limit of 1, got %+v", r)
	}

	// Z2 can only be filled by the wildcard, which the strict rules forbid.
	sol, err := exhaustive{}.Solve(context.Background(), cp.Program)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.Status != mip.Infeasible {
		t.Errorf("Expected strict to be infeasible, got %s with %v", sol.Status, cp.Decode(sol))
	}

	relaxed := BuildProgram([]Participant{{Name: "ann"}}, m, st, Formulation{Relaxed: true})
	sol, err = exhaustive{}.Solve(context.Background(), relaxed.Program)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.Status != mip.Optimal {
		t.Errorf("Expected relaxed to be optimal, got %s", sol.Status)
	}
}

func TestBuildProgram_EmptyPeriodIsInfeasible(t *testing.T) {
	schedule := []models.ScheduleRow{half("A", "Mon", 1, 0), half("B", "Mon", 2, 1)}
	prefs := []models.PreferenceRow{pref("ann", "A", "Z1", 1), pref("ann", "B", "Z1", 2)}
	m := mustModel(t, schedule, prefs)

	cp := BuildProgram(m.Participants, m, NewState(m), Formulation{Relaxed: true})
	if !cp.TriviallyInfeasible() {
		t.Error("Expected a period with no candidate slot to be trivially infeasible")
	}
}
