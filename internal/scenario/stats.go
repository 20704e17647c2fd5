package scenario

// Stats accumulates pass/fail counters for one run. It is an explicit value
// owned by the Runner, not ambient state, so runs compose and tests can
// assert on it in isolation. Invariant: Total == Passed + Failed after every
// completed scenario.
type Stats struct {
	Total  int
	Passed int
	Failed int
}

// SuccessRate returns the percentage of passed scenarios, 0 for an empty run.
func (s *Stats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Total) * 100
}

// ExitCode maps the run outcome to the process exit code: 0 when every
// scenario passed, 1 otherwise.
func (s *Stats) ExitCode() int {
	if s.Failed == 0 {
		return 0
	}
	return 1
}
