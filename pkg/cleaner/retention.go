package cleaner

import (
	"sort"

	"github.com/samber/lo"

	"github.com/akulov/framesweep/pkg/tracker"
)

// Candidate is a version selected for removal and the rule that selected it.
type Candidate struct {
	Rule    string
	Version tracker.Version
}

// applyRules evaluates the configured rules against one group, in order.
// Each rule only looks at the versions of its own status: "newest" is
// computed within the same-status subset, never across the whole group. A
// note-status take is deliberately not protected by being newer than an
// unrelated na-status take.
func applyRules(g *Group, rules []Rule) []Candidate {
	sorted := make([]tracker.Version, len(g.Versions))
	copy(sorted, g.Versions)

	// The tracker returns versions ascending by creation time already, but
	// the rules depend on it, so sort again. Stable keeps fetch order for
	// equal timestamps.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	candidates := make([]Candidate, 0)

	for _, rule := range rules {
		bucket := lo.Filter(sorted, func(v tracker.Version, _ int) bool {
			return v.Status == rule.Status
		})

		if len(bucket) <= rule.Keep {
			continue
		}

		for _, v := range bucket[:len(bucket)-rule.Keep] {
			candidates = append(candidates, Candidate{Rule: rule.Name, Version: v})
		}
	}

	return candidates
}
