package insights

import "math"

// conversionPath is the ordered chain the step conversions walk. Excluded
// and Rejected are side exits, not steps.
var conversionPath = []Stage{StageSimulated, StageEligible, StageAnalyzed, StageApproved, StageGenerated, StagePaid}

// StepMetric is the conversion into one stage of the path.
type StepMetric struct {
	Stage          Stage   `json:"stage"`
	Count          int     `json:"count"`
	StepConversion float64 `json:"step_conversion"`
	CumulativeConv float64 `json:"cumulative_conversion"`
}

// StepConversions computes step (from the previous stage) and cumulative
// (from Simulated) conversion along the path, and names the stage with the
// lowest step conversion as the bottleneck. Stages are counted
// independently, so a step can exceed 1 on inconsistent data.
func StepConversions(st Stages) ([]StepMetric, Stage) {
	steps := make([]StepMetric, len(conversionPath))
	first := len(st.Get(conversionPath[0]))
	for i, stage := range conversionPath {
		n := len(st.Get(stage))
		step := 1.0
		if i > 0 {
			step = Ratio(n, steps[i-1].Count)
		}
		steps[i] = StepMetric{
			Stage:          stage,
			Count:          n,
			StepConversion: round3(step),
			CumulativeConv: round3(Ratio(n, first)),
		}
	}
	if first == 0 {
		return steps, ""
	}
	var bottleneck Stage
	lowest := math.Inf(1)
	for _, s := range steps[1:] {
		if s.StepConversion < lowest {
			lowest, bottleneck = s.StepConversion, s.Stage
		}
	}
	return steps, bottleneck
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
