package filter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/newswire/core"
)

// ruleFile is the on-disk shape of a rule configuration file.
type ruleFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	Name               string   `yaml:"name"`
	Mode               string   `yaml:"mode"`
	Keywords           []string `yaml:"keywords"`
	Topics             []string `yaml:"topics"`
	Threshold          float32  `yaml:"threshold"`
	RequireAllKeywords bool     `yaml:"require_all_keywords"`
	CaseSensitive      bool     `yaml:"case_sensitive"`
	WholeWord          bool     `yaml:"whole_word"`
	Active             *bool    `yaml:"active"`
}

// LoadRules reads and validates filter rules from a YAML file.
//
// Example file:
//
//	rules:
//	  - name: politics
//	    mode: combined
//	    keywords: [election, parliament]
//	    topics: [elections, government policy]
//	    threshold: 0.75
func LoadRules(path string) ([]core.FilterRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates filter rules from YAML bytes.
// Rules are active unless the file says otherwise, and an omitted threshold
// falls back to the default.
func ParseRules(data []byte) ([]core.FilterRule, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing rule file: %w", err)
	}

	rules := make([]core.FilterRule, 0, len(file.Rules))
	for i, spec := range file.Rules {
		mode, err := parseMode(spec.Mode)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%q): %w", i, spec.Name, err)
		}

		rule := core.NewFilterRule(spec.Name, mode, spec.Keywords, spec.Topics, spec.Threshold)
		rule.RequireAllKeywords = spec.RequireAllKeywords
		rule.CaseSensitive = spec.CaseSensitive
		rule.WholeWord = spec.WholeWord
		if spec.Active != nil {
			rule.IsActive = *spec.Active
		}

		if err := core.ValidateFilterRule(&rule); err != nil {
			return nil, fmt.Errorf("rule %d (%q): %w", i, spec.Name, err)
		}

		rules = append(rules, rule)
	}

	return rules, nil
}

func parseMode(s string) (core.FilterMode, error) {
	switch s {
	case "keyword_only":
		return core.FilterModeKeywordOnly, nil
	case "semantic_only":
		return core.FilterModeSemanticOnly, nil
	case "combined", "":
		return core.FilterModeCombined, nil
	}
	return 0, fmt.Errorf("unknown filter mode %q", s)
}
