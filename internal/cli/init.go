package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/headline-goat/funnel-goat/internal/config"
)

// initAnswers are the values collected by the init prompts.
type initAnswers struct {
	ControlVariant string
	ReportDir      string
	Persist        bool
}

// askInit runs the interactive prompts. Replaced in tests.
var askInit = promptInit

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter funnel-goat.yaml",
		Long: `Ask for the control variant and report directory, then write a starter
config file with the default variant rules and simulation funnels.

Example:
  funnel-goat init
  funnel-goat init --config ci/funnel-goat.yaml`,
		Args: cobra.NoArgs,
		// The target file does not exist yet, so skip it when loading
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfgFile
			a.cfgFile = ""
			defer func() { a.cfgFile = path }()
			return a.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfgFile
			if path == "" {
				path = config.DefaultFile
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}

			answers, err := askInit(*a.cfg)
			if err != nil {
				return err
			}

			cfg := *a.cfg
			cfg.ControlVariant = answers.ControlVariant
			cfg.ReportDir = answers.ReportDir
			cfg.Persist = answers.Persist
			cfg.Variants = starterVariants(answers.ControlVariant)
			cfg.Simulate.Funnels = cfg.Funnels(0)

			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.WriteFile(path); err != nil {
				return err
			}

			printNextSteps(cmd.OutOrStdout(), path, cfg)
			return nil
		},
	}
}

// starterVariants spells out the built-in rules so they can be edited.
func starterVariants(control string) []config.VariantRule {
	rules := []config.VariantRule{{
		Name:         "widget",
		Description:  "Modern widget pattern with progressive disclosure",
		Match:        "widget",
		FeatureFlags: map[string]bool{"useWidgetPattern": true, "showCampaign": true, "enableAnimations": true},
		Weight:       0.5,
	}}
	return append(rules, config.VariantRule{
		Name:         control,
		Description:  "Traditional modal pattern",
		FeatureFlags: map[string]bool{"useWidgetPattern": false, "showCampaign": true, "enableAnimations": true},
		Weight:       0.5,
	})
}

func promptInit(defaults config.Config) (initAnswers, error) {
	notEmpty := func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("must not be empty")
		}
		return nil
	}

	control := promptui.Prompt{
		Label:    "Control variant",
		Default:  defaults.ControlVariant,
		Validate: notEmpty,
	}
	controlName, err := control.Run()
	if err != nil {
		return initAnswers{}, promptErr(err)
	}

	dir := promptui.Prompt{
		Label:    "Report directory",
		Default:  defaults.ReportDir,
		Validate: notEmpty,
	}
	reportDir, err := dir.Run()
	if err != nil {
		return initAnswers{}, promptErr(err)
	}

	persist := promptui.Select{
		Label: "Record finalized suites in the history database",
		Items: []string{"Yes", "No"},
	}
	idx, _, err := persist.Run()
	if err != nil {
		return initAnswers{}, promptErr(err)
	}

	return initAnswers{
		ControlVariant: strings.TrimSpace(controlName),
		ReportDir:      strings.TrimSpace(reportDir),
		Persist:        idx == 0,
	}, nil
}

func promptErr(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		return errors.New("init cancelled")
	}
	return err
}

func printNextSteps(w io.Writer, path string, cfg config.Config) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Wrote %s\n", path)
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "1. Name your browser projects after their variant")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "   Projects containing \"widget\" run the widget; everything else is %q.\n", cfg.ControlVariant)
	fmt.Fprintln(w, "   Edit the variants list to add your own rules.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "2. Try the pipeline without a browser")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "   funnel-goat simulate --runs 100")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "3. Aggregate a recorded suite")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "   funnel-goat aggregate results.jsonl")
	fmt.Fprintf(w, "   Reports land in %s/\n", cfg.ReportDir)
	fmt.Fprintln(w)

	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  history            List recorded suites")
	fmt.Fprintln(w, "  results <suite>    Show a suite's summary")
	fmt.Fprintln(w, "  serve              Browse suites in the dashboard")
	fmt.Fprintln(w, "  sample-size        Plan how many runs you need")
}
