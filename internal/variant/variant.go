package variant

import "strings"

// DefaultName is the variant every unmatched identifier resolves to.
const DefaultName = "control"

// Variant is a named treatment group applied to one run.
type Variant struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	FeatureFlags map[string]bool `json:"featureFlags,omitempty"`
	Weight       float64         `json:"weight,omitempty"` // Traffic share, informational only
}

// Rule maps identifiers containing Match to a variant.
type Rule struct {
	Match   string
	Variant Variant
}

// Resolver classifies run or project identifiers into variants.
// Resolution is static: the same identifier always yields the same variant.
type Resolver struct {
	rules    []Rule
	fallback Variant
}

// DefaultRules mirrors the project naming used by the browser suites:
// any project with "widget" in its name runs the widget pattern.
func DefaultRules() []Rule {
	return []Rule{
		{
			Match: "widget",
			Variant: Variant{
				Name:        "widget",
				Description: "Modern widget pattern with progressive disclosure",
				FeatureFlags: map[string]bool{
					"useWidgetPattern": true,
					"showCampaign":     true,
					"enableAnimations": true,
				},
				Weight: 0.5,
			},
		},
	}
}

// DefaultVariant is the control group used when no rule matches.
func DefaultVariant() Variant {
	return Variant{
		Name:        DefaultName,
		Description: "Traditional modal pattern",
		FeatureFlags: map[string]bool{
			"useWidgetPattern": false,
			"showCampaign":     true,
			"enableAnimations": true,
		},
		Weight: 0.5,
	}
}

// NewResolver builds a resolver. Rules are tried in order, first match wins.
// A nil rule set uses DefaultRules.
func NewResolver(rules []Rule, fallback *Variant) *Resolver {
	if rules == nil {
		rules = DefaultRules()
	}
	fb := DefaultVariant()
	if fallback != nil && fallback.Name != "" {
		fb = *fallback
	}
	return &Resolver{rules: rules, fallback: fb}
}

// Resolve returns the variant for id. It never fails: unknown or empty
// identifiers fall back to the control variant.
func (r *Resolver) Resolve(id string) Variant {
	lower := strings.ToLower(id)
	for _, rule := range r.rules {
		if rule.Match == "" || rule.Variant.Name == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(rule.Match)) {
			return clone(rule.Variant)
		}
	}
	return clone(r.fallback)
}

// clone copies the flag map so callers cannot mutate the resolver's rules.
func clone(v Variant) Variant {
	if v.FeatureFlags != nil {
		flags := make(map[string]bool, len(v.FeatureFlags))
		for k, val := range v.FeatureFlags {
			flags[k] = val
		}
		v.FeatureFlags = flags
	}
	return v
}
