package scan

import "time"

// Severity levels for findings.
type Severity string

const (
	CriticalSeverity Severity = "critical"
	HighSeverity     Severity = "high"
	MediumSeverity   Severity = "medium"
	LowSeverity      Severity = "low"
	InfoSeverity     Severity = "info"
)

// Status is the overall outcome of a scan run.
type Status string

const (
	// StatusSucceeded means every invoked plugin completed without error.
	StatusSucceeded Status = "SUCCEEDED"

	// StatusPartiallySucceeded means at least one plugin succeeded and at
	// least one failed.
	StatusPartiallySucceeded Status = "PARTIALLY_SUCCEEDED"

	// StatusFailed means no plugin succeeded, including the degenerate
	// case of a run with no plugins at all.
	StatusFailed Status = "FAILED"
)

// Finding is a single detection reported by a plugin.
type Finding struct {
	Plugin      string    `json:"plugin" yaml:"plugin"`
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Severity    Severity  `json:"severity" yaml:"severity"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Target      string    `json:"target,omitempty" yaml:"target,omitempty"`
	DetectedAt  time.Time `json:"detected_at" yaml:"detected_at"`
}

// PluginOutcome records how a single plugin invocation ended.
type PluginOutcome struct {
	Plugin   string        `json:"plugin" yaml:"plugin"`
	Findings int           `json:"findings" yaml:"findings"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Succeeded reports whether the invocation completed without error.
func (o PluginOutcome) Succeeded() bool { return o.Error == "" }

// Result is the aggregated outcome of one scan run. Built incrementally by
// the workflow and immutable once returned.
type Result struct {
	RunID         string          `json:"run_id" yaml:"run_id"`
	Target        Target          `json:"target" yaml:"target"`
	Status        Status          `json:"status" yaml:"status"`
	StatusMessage string          `json:"status_message,omitempty" yaml:"status_message,omitempty"`
	Findings      []Finding       `json:"findings" yaml:"findings"`
	Outcomes      []PluginOutcome `json:"plugin_outcomes" yaml:"plugin_outcomes"`
	StartedAt     time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt    time.Time       `json:"finished_at" yaml:"finished_at"`
}

// Succeeded reports whether the run produced usable results, i.e. the
// status is SUCCEEDED or PARTIALLY_SUCCEEDED.
func (r Result) Succeeded() bool {
	return r.Status == StatusSucceeded || r.Status == StatusPartiallySucceeded
}
