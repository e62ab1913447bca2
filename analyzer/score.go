package analyzer

import "math"

// Score computes the priority-weighted percentage of passed checks. It is
// always recomputed from the checks slice so the score can never drift
// from the check outcomes it summarizes.
func Score(checks []SEOCheck) int {
	earned, total := 0, 0
	for _, check := range checks {
		weight := priorityWeights[check.Priority]
		total += weight
		if check.Passed {
			earned += weight
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(earned) / float64(total) * 100))
}
