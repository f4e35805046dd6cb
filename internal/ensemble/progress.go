package ensemble

import (
	"fmt"

	"github.com/scenariolab/workbench/internal/monitoring"
)

// Status classifies how an experiment resolved.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// ProgressEvent is emitted after each experiment resolves, carrying
// running totals. Consumed by logging and UI collaborators; the runner
// itself never depends on the sink.
type ProgressEvent struct {
	ExperimentID int64
	Status       Status
	Completed    int
	Failed       int
	Cancelled    int
	Total        int
}

// Resolved returns how many experiments have resolved so far.
func (e ProgressEvent) Resolved() int {
	return e.Completed + e.Failed + e.Cancelled
}

// LogProgress returns a progress sink that logs every interval-th event
// plus every failure through monitoring.Logf. An interval below 1 logs
// every event.
func LogProgress(interval int) func(ProgressEvent) {
	if interval < 1 {
		interval = 1
	}
	return func(ev ProgressEvent) {
		if ev.Status == StatusSuccess && ev.Resolved()%interval != 0 {
			return
		}
		monitoring.Logf("[Runner] experiment %d %s (%d/%d done, %d failed)",
			ev.ExperimentID, ev.Status, ev.Resolved(), ev.Total, ev.Failed)
	}
}
