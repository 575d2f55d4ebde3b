package entity

import "sort"

// StepOutcome is the verdict of one executed step.
type StepOutcome struct {
	Text    string
	Success bool
}

type RunResult struct {
	Passed     int
	Failed     int
	FailedStep *Step
	Outcomes   []StepOutcome
}

func (r RunResult) OK() bool {
	return r.Failed == 0
}

type StepFailure struct {
	Step  string
	Count int
}

type BenchmarkStats struct {
	Runs         int
	Successes    int
	Failures     int
	StepFailures map[string]int
}

func NewBenchmarkStats() *BenchmarkStats {
	return &BenchmarkStats{StepFailures: make(map[string]int)}
}

func (s *BenchmarkStats) Record(r RunResult) {
	s.Runs++
	if r.OK() {
		s.Successes++
		return
	}
	s.Failures++
	if r.FailedStep != nil {
		s.StepFailures[r.FailedStep.FullText()]++
	}
}

func (s *BenchmarkStats) SuccessRate() float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Runs) * 100
}

// FailuresByStep returns failing steps, most common first. Ties keep
// alphabetical order so output is stable.
func (s *BenchmarkStats) FailuresByStep() []StepFailure {
	out := make([]StepFailure, 0, len(s.StepFailures))
	for step, n := range s.StepFailures {
		out = append(out, StepFailure{Step: step, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Step < out[j].Step
	})
	return out
}
