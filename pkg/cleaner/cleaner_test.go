package cleaner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akulov/framesweep/pkg/tracker"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type stubFinder struct {
	versions []tracker.Version
	err      error
}

func (s *stubFinder) FindVersions(_ context.Context, _ int) ([]tracker.Version, error) {
	return s.versions, s.err
}

func testConfig() Config {
	return Config{
		ExcludedSteps: DefaultExcludedSteps(),
		Rules:         DefaultRules(),
	}
}

func newTestCleaner(t *testing.T, finder VersionFinder) *Cleaner {
	t.Helper()

	c, err := New(testConfig(), finder, nil, prometheus.NewPedanticRegistry(), log.NewNopLogger())
	require.NoError(t, err)
	return c
}

func ver(code, status string, shotID, taskID int, path string, created time.Time) tracker.Version {
	return tracker.Version{
		Code:      code,
		Status:    status,
		Entity:    &tracker.Ref{ID: shotID, Name: "SHOT"},
		Task:      &tracker.Ref{ID: taskID, Name: "comp"},
		FramePath: path,
		CreatedAt: created,
	}
}

// seqDir creates a sequence directory with one frame file and returns the
// directory and the frame path.
func seqDir(t *testing.T, name string) (string, string) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	frame := filepath.Join(dir, name+".1001.exr")
	require.NoError(t, os.WriteFile(frame, []byte("frame"), 0o644))
	return dir, frame
}

func TestScanPipeline(t *testing.T) {
	naDir, naFrame := seqDir(t, "sh010_comp_v001")
	keepDir, keepFrame := seqDir(t, "sh010_comp_v002")

	finder := &stubFinder{versions: []tracker.Version{
		ver("sh010_comp_v001", "na", 10, 100, naFrame, t0),
		ver("sh010_comp_v002", "ip", 10, 100, keepFrame, t0.Add(time.Hour)),
	}}

	c := newTestCleaner(t, finder)
	plan, err := c.Scan(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, []string{naDir}, plan.Paths)
	assert.Equal(t, 2, plan.Stats.Fetched)
	assert.Equal(t, 2, plan.Stats.Kept)
	assert.Equal(t, 1, plan.Stats.Selected)
	assert.Equal(t, int64(5), plan.TotalBytes)

	require.Len(t, plan.Manifest, 1)
	assert.Equal(t, "abandoned", plan.Manifest[0].Rule)
	assert.Equal(t, "sh010_comp_v001", plan.Manifest[0].Code)

	// Scanning is side-effect-free: both directories are still on disk.
	for _, dir := range []string{naDir, keepDir} {
		_, err := os.Stat(dir)
		assert.NoError(t, err)
	}
}

func TestScanFetchError(t *testing.T) {
	c := newTestCleaner(t, &stubFinder{err: assert.AnError})

	_, err := c.Scan(context.Background(), 1)
	assert.Error(t, err)
}

func TestScanReportsProgressPerStage(t *testing.T) {
	_, frame := seqDir(t, "sh020_comp_v001")

	finder := &stubFinder{versions: []tracker.Version{
		ver("sh020_comp_v001", "na", 20, 200, frame, t0),
	}}

	stages := make(map[Stage]bool)
	progress := func(stage Stage, _, _ int) { stages[stage] = true }

	c, err := New(testConfig(), finder, progress, prometheus.NewPedanticRegistry(), log.NewNopLogger())
	require.NoError(t, err)

	_, err = c.Scan(context.Background(), 1)
	require.NoError(t, err)

	for _, stage := range []Stage{StageFetch, StageFilter, StageGroup, StageRules, StageResolve} {
		assert.True(t, stages[stage], "missing progress callback for stage %s", stage)
	}
}

// A repeated -cleaner.excluded-step flag lands in the config twice when the
// flag set is parsed again after the config file loads; the duplicates must
// collapse, keeping first-seen order.
func TestNewDeduplicatesExcludedSteps(t *testing.T) {
	cfg := testConfig()
	cfg.ExcludedSteps = append(cfg.ExcludedSteps, "Roto", "Matchmove", "Matchmove")

	c, err := New(cfg, &stubFinder{}, nil, prometheus.NewPedanticRegistry(), log.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, append(DefaultExcludedSteps(), "Matchmove"), c.cfg.ExcludedSteps)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
		isErr bool
	}{
		{"defaults", DefaultRules(), false},
		{"empty", nil, true},
		{"negative keep", []Rule{{Name: "bad", Status: "na", Keep: -1}}, true},
		{"missing status", []Rule{{Name: "bad", Keep: 1}}, true},
		{"duplicate status", []Rule{{Name: "a", Status: "na"}, {Name: "b", Status: "na", Keep: 1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{ExcludedSteps: DefaultExcludedSteps(), Rules: tt.rules}
			err := cfg.Validate()
			assert.Equal(t, tt.isErr, err != nil)
		})
	}
}

// The internal-note status token varies by deployment; the engine follows
// whatever the configuration says.
func TestAlternateStatusVocabulary(t *testing.T) {
	oldDir, oldFrame := seqDir(t, "sh030_comp_v001")
	_, newFrame := seqDir(t, "sh030_comp_v002")

	cfg := testConfig()
	cfg.Rules = []Rule{
		{Name: "abandoned", Status: "na", Keep: 0},
		{Name: "internal-note", Status: "bkdn", Keep: 1},
		{Name: "client-note", Status: "note", Keep: 2},
	}

	finder := &stubFinder{versions: []tracker.Version{
		ver("sh030_comp_v001", "bkdn", 30, 300, oldFrame, t0),
		ver("sh030_comp_v002", "bkdn", 30, 300, newFrame, t0.Add(time.Hour)),
	}}

	c, err := New(cfg, finder, nil, prometheus.NewPedanticRegistry(), log.NewNopLogger())
	require.NoError(t, err)

	plan, err := c.Scan(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{oldDir}, plan.Paths)
}
