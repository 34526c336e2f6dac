package cleaner

import (
	"fmt"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/samber/lo"

	"github.com/akulov/framesweep/pkg/tracker"
)

const sequenceExt = ".exr"

// filterEligible keeps versions that point at an EXR frame sequence and do
// not belong to an excluded pipeline step. Exclusion is checked both against
// the declared step name and as a substring of the frame path itself, since
// tracker metadata is not always filled in.
func (c *Cleaner) filterEligible(versions []tracker.Version, stats *ScanStats) []tracker.Version {
	eligible := make([]tracker.Version, 0, len(versions))

	for _, v := range versions {
		if v.FramePath == "" || !strings.HasSuffix(strings.ToLower(v.FramePath), sequenceExt) {
			stats.NonSequence++
			continue
		}

		if v.Step != "" && lo.Contains(c.cfg.ExcludedSteps, v.Step) {
			level.Debug(c.log).Log("msg", fmt.Sprintf("excluding version %s due to pipeline step: %s", v.Code, v.Step))
			stats.ExcludedByStep++
			continue
		}

		if step, found := c.stepInPath(v.FramePath); found {
			level.Warn(c.log).Log("msg", fmt.Sprintf("path suggests excluded step %q: %s", step, v.FramePath))
			stats.ExcludedByStep++
			continue
		}

		eligible = append(eligible, v)
	}

	stats.Kept = len(eligible)
	return eligible
}

func (c *Cleaner) stepInPath(path string) (string, bool) {
	upper := strings.ToUpper(path)
	return lo.Find(c.cfg.ExcludedSteps, func(step string) bool {
		return strings.Contains(upper, strings.ToUpper(step))
	})
}
