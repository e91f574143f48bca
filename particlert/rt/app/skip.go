package app

// skipReportEvery bounds how often a run of skipped draws is logged.
const skipReportEvery = 120

type skipReporter struct {
	consecutive int
	total       uint64
}

// skip records one skipped draw and reports whether it should be logged:
// the first of a run, then every skipReportEvery.
func (s *skipReporter) skip() bool {
	s.total++
	s.consecutive++
	return s.consecutive == 1 || s.consecutive%skipReportEvery == 0
}

// recovered ends a run and returns its length.
func (s *skipReporter) recovered() int {
	n := s.consecutive
	s.consecutive = 0
	return n
}
