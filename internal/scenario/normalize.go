package scenario

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Rule remaps a set of observed status codes to one effective status code
// for a single scenario. An empty Observed list matches any observed status.
// Reason is mandatory: a remap that cannot be explained must not exist, so
// over-acceptance stays reviewable in one place instead of being scattered
// through call sites.
type Rule struct {
	Observed  []int  `yaml:"observed"`
	Effective int    `yaml:"effective"`
	Reason    string `yaml:"reason"`
}

func (r Rule) matches(status int) bool {
	if len(r.Observed) == 0 {
		return true
	}
	for _, o := range r.Observed {
		if o == status {
			return true
		}
	}
	return false
}

// Policy is the status-normalization table: scenario name to remap rules.
// It absorbs known environment variance (an optionally absent chain, a
// backend with non-fixed negative-path codes) before the runner compares
// observed against expected.
type Policy struct {
	rules map[string][]Rule
}

// LoadPolicy parses a rules document and validates that every rule carries
// a rationale and a non-zero effective status.
func LoadPolicy(data []byte) (*Policy, error) {
	var doc map[string][]Rule
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("normalization rules: %w", err)
	}
	for name, rules := range doc {
		for i, r := range rules {
			if r.Effective == 0 {
				return nil, fmt.Errorf("normalization rules: %s[%d] has no effective status", name, i)
			}
			if r.Reason == "" {
				return nil, fmt.Errorf("normalization rules: %s[%d] has no reason", name, i)
			}
		}
	}
	return &Policy{rules: doc}, nil
}

// DefaultPolicy returns the embedded rules table. The embedded document is
// validated by tests; a parse failure here is a build defect.
func DefaultPolicy() *Policy {
	p, err := LoadPolicy(defaultRulesYAML)
	if err != nil {
		panic(err)
	}
	return p
}

// EmptyPolicy returns a policy with no remaps, for runs that must compare
// raw statuses only.
func EmptyPolicy() *Policy {
	return &Policy{rules: map[string][]Rule{}}
}

// Apply returns the effective status for a scenario given the observed one,
// plus the rationale when a remap fired. Scenarios without rules, and
// observed statuses no rule matches, pass through unchanged.
func (p *Policy) Apply(scenario string, observed int) (int, string) {
	for _, r := range p.rules[scenario] {
		if r.matches(observed) {
			return r.Effective, r.Reason
		}
	}
	return observed, ""
}

// Rules returns the remap rules registered for a scenario.
func (p *Policy) Rules(scenario string) []Rule {
	return p.rules[scenario]
}
