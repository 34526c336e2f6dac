package cleaner

import (
	"flag"

	"github.com/grafana/dskit/flagext"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Rule keeps the newest Keep versions of the given status within a
// (shot, task) group and selects the rest for removal. Keep 0 selects
// every version of that status.
type Rule struct {
	Name   string `yaml:"name"`
	Status string `yaml:"status"`
	Keep   int    `yaml:"keep"`
}

type Config struct {
	ExcludedSteps []string `yaml:"excluded_steps"`
	Rules         []Rule   `yaml:"rules"`
}

// DefaultExcludedSteps are the pipeline steps whose renders are never
// cleanup candidates, plus the bootstrap version marker.
func DefaultExcludedSteps() []string {
	return []string{"Roto", "Paint", "Prep", "Ingest", "v000"}
}

// DefaultRules encode the shipped retention policy. The status tokens vary
// by deployment (some pipelines use "bkdn" for internal notes), so they are
// configuration, not constants.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "abandoned", Status: "na", Keep: 0},
		{Name: "internal-note", Status: "innote", Keep: 1},
		{Name: "client-note", Status: "note", Keep: 2},
	}
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	c.ExcludedSteps = DefaultExcludedSteps()
	c.Rules = DefaultRules()

	f.Var((*flagext.StringSlice)(&c.ExcludedSteps), "cleaner.excluded-step", "Additional pipeline step excluded from cleanup. May be repeated.")
}

func (c *Config) Validate() error {
	if len(c.Rules) == 0 {
		return errors.New("cleaner: no retention rules configured")
	}

	for _, r := range c.Rules {
		if r.Name == "" || r.Status == "" {
			return errors.Errorf("cleaner: rule with empty name or status: %+v", r)
		}
		if r.Keep < 0 {
			return errors.Errorf("cleaner: rule %s has negative keep count", r.Name)
		}
	}

	statuses := lo.Map(c.Rules, func(r Rule, _ int) string { return r.Status })
	if len(lo.Uniq(statuses)) != len(statuses) {
		return errors.New("cleaner: two rules target the same status")
	}

	return nil
}
