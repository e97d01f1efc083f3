package output

import (
	"time"
)

// StepResult is the outcome of one probe step.
type StepResult struct {
	Name       string        `json:"name"`
	Path       string        `json:"path"`
	StatusCode int           `json:"status_code,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Failed reports whether the step produced no usable response.
func (s StepResult) Failed() bool {
	return s.Error != ""
}

// Summary contains the outcome of a whole run.
type Summary struct {
	StartedAt     time.Time    `json:"started_at"`
	CompletedAt   time.Time    `json:"completed_at"`
	Authenticated bool         `json:"authenticated"`
	Steps         []StepResult `json:"steps"`
}

// Duration returns the wall-clock time of the run.
func (s *Summary) Duration() time.Duration {
	return s.CompletedAt.Sub(s.StartedAt)
}

// FailedCount returns the number of failed steps.
func (s *Summary) FailedCount() int {
	n := 0
	for _, step := range s.Steps {
		if step.Failed() {
			n++
		}
	}
	return n
}

// StatusCounts groups step outcomes by HTTP status. Failed steps count under 0.
func (s *Summary) StatusCounts() map[int]int {
	counts := make(map[int]int)
	for _, step := range s.Steps {
		counts[step.StatusCode]++
	}
	return counts
}
