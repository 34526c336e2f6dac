package cleaner

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-kit/log/level"
)

// Removal is one audit entry of the plan: which rule selected which version,
// and the sequence directory it resolved to.
type Removal struct {
	Rule string `json:"rule"`
	Code string `json:"code"`
	Path string `json:"path"`
}

// resolve maps candidates to the parent directory of their frame path (the
// directory holding the full sequence), drops directories that no longer
// exist, and deduplicates the path list preserving first-seen order. Two
// records may resolve to the same directory; it must be acted on once.
func (c *Cleaner) resolve(candidates []Candidate, stats *ScanStats) ([]string, []Removal) {
	paths := make([]string, 0, len(candidates))
	manifest := make([]Removal, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))

	for _, cand := range candidates {
		dir := filepath.Dir(cand.Version.FramePath)

		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			// Stale tracker metadata, not an error.
			stats.MissingPaths++
			continue
		}

		manifest = append(manifest, Removal{Rule: cand.Rule, Code: cand.Version.Code, Path: dir})
		level.Info(c.log).Log("msg", fmt.Sprintf("rule %s: %s -> %s", cand.Rule, cand.Version.Code, dir))

		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		paths = append(paths, dir)
	}

	stats.Selected = len(paths)
	return paths, manifest
}
