package scheduler

import "slices"

// Tier is a preference bucket
type Tier int

const (
	TierFirst Tier = iota
	TierSecond
	TierOther
)

func (t Tier) String() string {
	switch t {
	case TierFirst:
		return "first"
	case TierSecond:
		return "second"
	default:
		return "other"
	}
}

// TierTable maps a stated rank to its tier. Ranks not in the table, and
// unranked activities, fall into TierOther.
type TierTable map[int]Tier

// DefaultTiers treats rank 1 as first choice and rank 2 as second choice
var DefaultTiers = TierTable{1: TierFirst, 2: TierSecond}

// Of returns the tier of a rank
func (t TierTable) Of(rank int) Tier {
	if tier, ok := t[rank]; ok {
		return tier
	}
	return TierOther
}

// Buckets holds a participant's distinct stated choices within one zone
type Buckets struct {
	First  []string
	Second []string
}

// HasSecond reports whether any second choice remains after removing firsts
func (b Buckets) HasSecond() bool {
	return len(b.Second) > 0
}

// Tier classifies an activity against the buckets
func (b Buckets) Tier(activity string) Tier {
	if slices.Contains(b.First, activity) {
		return TierFirst
	}
	if slices.Contains(b.Second, activity) {
		return TierSecond
	}
	return TierOther
}

// Buckets collects the participant's first and second choices in a zone.
// An activity ranked both first and second counts only as first.
func (m *Model) Buckets(participant, zone string) Buckets {
	var b Buckets
	seen := make(map[string]bool)
	for _, s := range m.Slots {
		if s.Zone != zone || seen[s.Activity] {
			continue
		}
		seen[s.Activity] = true
		r, ok := m.Rank(participant, s.Activity)
		if !ok {
			continue
		}
		switch m.Tiers.Of(r) {
		case TierFirst:
			b.First = append(b.First, s.Activity)
		case TierSecond:
			b.Second = append(b.Second, s.Activity)
		}
	}
	return b
}
