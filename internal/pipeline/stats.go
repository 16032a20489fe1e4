package pipeline

import "time"

// Stats describes one pipeline run
type Stats struct {
	Name             string
	Workers          int
	QueueCapacity    int
	LinesRead        uint64
	LinesSkipped     uint64
	RecordsEnqueued  uint64
	RecordsProcessed uint64
	RecordsFailed    uint64
	Duration         time.Duration
}

// SuccessRate returns the record success rate as a percentage
func (s Stats) SuccessRate() float64 {
	handled := s.RecordsProcessed + s.RecordsFailed
	if handled == 0 {
		return 100.0
	}
	return (float64(s.RecordsProcessed) / float64(handled)) * 100.0
}

// SkipRate returns the share of lines that did not parse, as a percentage
func (s Stats) SkipRate() float64 {
	if s.LinesRead == 0 {
		return 0
	}
	return (float64(s.LinesSkipped) / float64(s.LinesRead)) * 100.0
}

// Drained reports whether every enqueued record was handled
func (s Stats) Drained() bool {
	return s.RecordsEnqueued == s.RecordsProcessed+s.RecordsFailed
}
