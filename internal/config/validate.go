package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.ControlVariant == "" {
		errs = append(errs, errors.New("control_variant is required"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.VitalsWindow < 0 {
		errs = append(errs, fmt.Errorf("vitals_window must not be negative, got %s", c.VitalsWindow))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}

	seen := make(map[string]bool)
	for i, r := range c.Variants {
		if r.Name == "" {
			errs = append(errs, fmt.Errorf("variants[%d]: name is required", i))
			continue
		}
		if seen[r.Match] {
			errs = append(errs, fmt.Errorf("variants[%d]: duplicate match %q", i, r.Match))
		}
		seen[r.Match] = true
	}

	for i, f := range c.Simulate.Funnels {
		if f.Project == "" {
			errs = append(errs, fmt.Errorf("simulate.funnels[%d]: project is required", i))
		}
		rates := []struct {
			name string
			p    float64
		}{
			{"click_rate", f.ClickRate},
			{"start_rate", f.StartRate},
			{"complete_rate", f.CompleteRate},
			{"error_rate", f.ErrorRate},
		}
		for _, r := range rates {
			if r.p < 0 || r.p > 1 {
				errs = append(errs, fmt.Errorf("simulate.funnels[%d]: %s must be within [0, 1], got %g", i, r.name, r.p))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// WriteFile writes the configuration as YAML. It refuses to overwrite an
// existing file.
func (c *Config) WriteFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
