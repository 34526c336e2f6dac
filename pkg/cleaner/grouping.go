package cleaner

import (
	"github.com/akulov/framesweep/pkg/tracker"
)

// GroupKey identifies a (shot, task) pair.
type GroupKey struct {
	ShotID int
	TaskID int
}

// Group is the (shot, task) bucket the retention rules run against. Versions
// keep their fetch order until the rules sort them by creation time.
type Group struct {
	Key      GroupKey
	Shot     string
	Task     string
	Versions []tracker.Version
}

// groupByShotTask partitions eligible versions by (shot, task), preserving
// the order in which groups are first seen. Versions lacking either
// reference cannot be processed and are skipped, not treated as an error.
func groupByShotTask(versions []tracker.Version, stats *ScanStats) []*Group {
	groups := make([]*Group, 0)
	index := make(map[GroupKey]*Group)

	for _, v := range versions {
		if v.Entity == nil || v.Task == nil {
			stats.Ungrouped++
			continue
		}

		key := GroupKey{ShotID: v.Entity.ID, TaskID: v.Task.ID}
		g, ok := index[key]
		if !ok {
			g = &Group{Key: key, Shot: v.Entity.Name, Task: v.Task.Name}
			index[key] = g
			groups = append(groups, g)
		}
		g.Versions = append(g.Versions, v)
	}

	stats.Groups = len(groups)
	return groups
}
