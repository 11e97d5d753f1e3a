package model

import "time"

// Summary aggregates the verdicts of one check run.
type Summary struct {
	Total    int
	Failures int
	Counts   map[VerdictKind]int
	Failed   []ReportEntry
}

// OK reports whether the run had no failures.
func (s Summary) OK() bool {
	return s.Failures == 0
}

// RunInfo describes a check run before it starts.
type RunInfo struct {
	RunID      string
	Packages   []Path
	Budget     int
	Timeout    time.Duration
	Threshold  int
	ShardIndex int
	ShardCount int
}

// RunReport is the persisted record of a check run.
type RunReport struct {
	RunID      string         `yaml:"run_id"`
	StartedAt  time.Time      `yaml:"started_at"`
	FinishedAt time.Time      `yaml:"finished_at"`
	Packages   []string       `yaml:"packages"`
	Budget     int            `yaml:"budget"`
	Threshold  int            `yaml:"threshold"`
	Total      int            `yaml:"total"`
	Counts     map[string]int `yaml:"counts"`
	Failures   []ReportEntry  `yaml:"failures,omitempty"`
}

// ReportEntry is one failing unit in a RunReport.
type ReportEntry struct {
	Source     string `yaml:"source"`
	Test       string `yaml:"test,omitempty"`
	Verdict    string `yaml:"verdict"`
	Diagnostic string `yaml:"diagnostic"`
}

// FilePair links a file to the counterpart it should have.
type FilePair struct {
	File     Path
	Expected Path
}

// ConsistencyReport is the outcome of matching source files against test files.
type ConsistencyReport struct {
	MissingTests []FilePair
	UnknownTests []FilePair
}

// Summary rebuilds the in-memory summary of a persisted run. Unknown verdict
// tags are ignored.
func (r RunReport) Summary() Summary {
	summary := Summary{
		Total:  r.Total,
		Counts: make(map[VerdictKind]int, len(r.Counts)),
		Failed: r.Failures,
	}

	for tag, count := range r.Counts {
		kind, ok := ParseVerdictKind(tag)
		if !ok {
			continue
		}

		summary.Counts[kind] += count
		if kind.IsFailure() {
			summary.Failures += count
		}
	}

	return summary
}
