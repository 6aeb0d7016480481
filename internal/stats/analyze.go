package stats

// Arm is one variant's pooled conversion counts.
type Arm struct {
	Name      string
	Successes int
	Trials    int
}

// ArmResult contains statistics for a single arm
type ArmResult struct {
	Name         string
	Successes    int
	Trials       int
	Rate         float64
	CI           Interval
	Wilson       Interval
	UpliftPct    float64      // vs control; 0 for the control itself
	Significance Significance // vs control; zero value for the control itself
}

// Result represents statistical analysis of an experiment
type Result struct {
	Arms    []ArmResult
	Control int // index of the control arm
	Leading int // index of the arm with the highest rate; ties go to the earlier arm
}

// Analyze computes per-arm rates and intervals and compares every arm to
// the control arm named control. An unknown control name uses the first arm.
func Analyze(arms []Arm, control string) *Result {
	result := &Result{Arms: make([]ArmResult, len(arms))}

	for i, a := range arms {
		if a.Name == control {
			result.Control = i
			break
		}
	}

	maxRate := 0.0
	for i, a := range arms {
		rate := 0.0
		if a.Trials > 0 {
			rate = float64(a.Successes) / float64(a.Trials)
		}

		result.Arms[i] = ArmResult{
			Name:      a.Name,
			Successes: a.Successes,
			Trials:    a.Trials,
			Rate:      rate,
			CI:        ConfidenceInterval(a.Successes, a.Trials, 0.95),
			Wilson:    WilsonInterval(a.Successes, a.Trials, 0.95),
		}

		if rate > maxRate {
			maxRate = rate
			result.Leading = i
		}
	}

	if len(arms) < 2 {
		return result
	}

	ctrl := result.Arms[result.Control]
	for i := range result.Arms {
		if i == result.Control {
			continue
		}
		arm := &result.Arms[i]
		arm.UpliftPct = Uplift(ctrl.Rate, arm.Rate)
		arm.Significance = ChiSquareTest(ctrl.Successes, ctrl.Trials, arm.Successes, arm.Trials)
	}

	return result
}
