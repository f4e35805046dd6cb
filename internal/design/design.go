// Package design combines sampled scenarios with policies into an
// ordered sequence of experiments. Identity assignment happens here and
// nowhere else: IDs are sequential from zero in output order, assigned by
// a local counter, and are the join key between the experiment table and
// the outcome table for the rest of a study's life.
package design

import (
	"fmt"

	"github.com/scenariolab/workbench/internal/params"
	"github.com/scenariolab/workbench/internal/sampling"
)

// Mode selects how scenarios and policies combine.
type Mode int

const (
	// FullFactorial crosses every scenario with every policy, each pair
	// replicated the requested number of times. Policies form the outer
	// loop, scenarios the inner one, replications innermost.
	FullFactorial Mode = iota
	// Paired zips scenarios and policies index-for-index. Counts must
	// match; this avoids the factorial blow-up when both sets were
	// sampled together.
	Paired
)

func (m Mode) String() string {
	switch m {
	case FullFactorial:
		return "factorial"
	case Paired:
		return "paired"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// DesignError reports an invalid generation request.
type DesignError struct {
	Reason string
}

func (e *DesignError) Error() string {
	return fmt.Sprintf("invalid design: %s", e.Reason)
}

// Experiment is one unit of work: a scenario, a policy, and a replication
// index under a globally unique sequential identity. Immutable once
// generated.
type Experiment struct {
	ID          int64
	Scenario    sampling.Assignment
	Policy      sampling.Assignment
	Replication int
}

// Label renders a short display name for logs and CSV rows.
func (e Experiment) Label() string {
	s := e.Scenario.Name
	if s == "" {
		s = "scenario"
	}
	p := e.Policy.Name
	if p == "" {
		p = "policy"
	}
	return fmt.Sprintf("%s/%s/r%d#%d", s, p, e.Replication, e.ID)
}

// Baseline returns the canonical "no policy" assignment: no lever is set
// and the model adapter runs with its defaults.
func Baseline() sampling.Assignment {
	return sampling.Assignment{Name: "none", Values: map[string]params.Value{}}
}

// Generate produces the ordered experiment sequence for the given mode.
// Output order, and therefore identity assignment, is deterministic given
// deterministic inputs.
func Generate(scenarios, policies []sampling.Assignment, replications int, mode Mode) ([]Experiment, error) {
	if len(scenarios) == 0 {
		return nil, &DesignError{Reason: "no scenarios"}
	}
	if len(policies) == 0 {
		return nil, &DesignError{Reason: "no policies"}
	}
	if replications < 1 {
		return nil, &DesignError{Reason: fmt.Sprintf("replications must be >= 1, got %d", replications)}
	}

	var out []Experiment
	next := int64(0)
	emit := func(s, p sampling.Assignment, rep int) {
		out = append(out, Experiment{ID: next, Scenario: s, Policy: p, Replication: rep})
		next++
	}

	switch mode {
	case FullFactorial:
		out = make([]Experiment, 0, len(scenarios)*len(policies)*replications)
		for _, p := range policies {
			for _, s := range scenarios {
				for rep := 0; rep < replications; rep++ {
					emit(s, p, rep)
				}
			}
		}
	case Paired:
		if len(scenarios) != len(policies) {
			return nil, &DesignError{Reason: fmt.Sprintf("paired design needs matching counts, got %d scenarios and %d policies", len(scenarios), len(policies))}
		}
		out = make([]Experiment, 0, len(scenarios)*replications)
		for i := range scenarios {
			for rep := 0; rep < replications; rep++ {
				emit(scenarios[i], policies[i], rep)
			}
		}
	default:
		return nil, &DesignError{Reason: fmt.Sprintf("unknown mode %d", mode)}
	}
	return out, nil
}
