// Package config loads funnel-goat configuration from defaults, the
// funnel-goat.yaml file, FUNNEL_GOAT_ environment variables and flags.
package config

import (
	"time"

	"github.com/headline-goat/funnel-goat/internal/harness"
	"github.com/headline-goat/funnel-goat/internal/variant"
)

// Default values.
const (
	DefaultFile         = "funnel-goat.yaml"
	DefaultReportDir    = "playwright-report"
	DefaultDB           = "./funnel-goat.db"
	DefaultLogLevel     = "info"
	DefaultPort         = 8080
	DefaultVitalsWindow = time.Second
	DefaultSimRuns      = 50

	EnvPrefix = "FUNNEL_GOAT_"
)

// Config is the resolved configuration.
type Config struct {
	ControlVariant string         `koanf:"control_variant" yaml:"control_variant"`
	ReportDir      string         `koanf:"report_dir" yaml:"report_dir"`
	DB             string         `koanf:"db" yaml:"db"`
	LogLevel       string         `koanf:"log_level" yaml:"log_level"`
	Workers        int            `koanf:"workers" yaml:"workers"` // 0 means GOMAXPROCS
	VitalsWindow   time.Duration  `koanf:"vitals_window" yaml:"vitals_window"`
	Port           int            `koanf:"port" yaml:"port"`
	Persist        bool           `koanf:"persist" yaml:"persist"`
	Variants       []VariantRule  `koanf:"variants" yaml:"variants,omitempty"`
	Simulate       SimulateConfig `koanf:"simulate" yaml:"simulate,omitempty"`

	// File is the config file that was read, empty when none was found.
	File string `koanf:"-" yaml:"-"`
}

// VariantRule maps project or run names containing Match to a variant.
// A rule without Match describes the control variant itself.
type VariantRule struct {
	Name         string          `koanf:"name" yaml:"name"`
	Description  string          `koanf:"description" yaml:"description,omitempty"`
	Match        string          `koanf:"match" yaml:"match,omitempty"`
	FeatureFlags map[string]bool `koanf:"feature_flags" yaml:"feature_flags,omitempty"`
	Weight       float64         `koanf:"weight" yaml:"weight,omitempty"`
}

// SimulateConfig configures the simulate command.
type SimulateConfig struct {
	Runs    int              `koanf:"runs" yaml:"runs,omitempty"`
	Seed    uint64           `koanf:"seed" yaml:"seed,omitempty"`
	Vitals  bool             `koanf:"vitals" yaml:"vitals,omitempty"`
	Funnels []harness.Funnel `koanf:"funnels" yaml:"funnels,omitempty"`
}

// Resolver builds the variant resolver from the configured rules. With no
// rules it uses the built-in widget rule and a control variant named
// after ControlVariant.
func (c *Config) Resolver() *variant.Resolver {
	fallback := variant.DefaultVariant()
	if c.ControlVariant != "" {
		fallback.Name = c.ControlVariant
	}

	if len(c.Variants) == 0 {
		return variant.NewResolver(nil, &fallback)
	}

	rules := make([]variant.Rule, 0, len(c.Variants))
	for _, r := range c.Variants {
		v := variant.Variant{
			Name:         r.Name,
			Description:  r.Description,
			FeatureFlags: r.FeatureFlags,
			Weight:       r.Weight,
		}
		if r.Match == "" {
			fallback = v
			continue
		}
		rules = append(rules, variant.Rule{Match: r.Match, Variant: v})
	}
	return variant.NewResolver(rules, &fallback)
}

// Funnels returns the configured simulation funnels, or the default
// control/widget pair sized to runs.
func (c *Config) Funnels(runs int) []harness.Funnel {
	if len(c.Simulate.Funnels) > 0 {
		funnels := make([]harness.Funnel, len(c.Simulate.Funnels))
		copy(funnels, c.Simulate.Funnels)
		for i := range funnels {
			if funnels[i].Runs == 0 {
				funnels[i].Runs = runs
			}
		}
		return funnels
	}
	return harness.DefaultFunnels(runs)
}
