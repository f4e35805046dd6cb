// Package results accumulates the runner's output stream into the
// two-table ensemble structure: an experiment table with one row per
// submitted experiment and an outcome table with one row per successful
// experiment. Identity is the join key; the store is the only ordering
// guarantee downstream analysis should rely on.
package results

import (
	"fmt"
	"sort"
	"sync"

	"github.com/scenariolab/workbench/internal/design"
)

// Measure is one outcome variable's value: a scalar, or a time series
// when Series is non-nil.
type Measure struct {
	Scalar float64
	Series []float64
}

// IsSeries reports whether the measure carries a time series.
func (m Measure) IsSeries() bool { return m.Series != nil }

// Scalarize reduces the measure to a single number: the scalar itself, or
// the final element of a series. Scenario discovery classifiers that only
// care about end state can use this directly.
func (m Measure) Scalarize() float64 {
	if m.Series == nil {
		return m.Scalar
	}
	if len(m.Series) == 0 {
		return 0
	}
	return m.Series[len(m.Series)-1]
}

// Outcome maps outcome-variable names to measured values.
type Outcome map[string]Measure

// DuplicateResultError reports a second submission for an identity that
// already has a committed row. The existing row is left unchanged.
type DuplicateResultError struct {
	ID int64
}

func (e *DuplicateResultError) Error() string {
	return fmt.Sprintf("result for experiment %d already recorded", e.ID)
}

// Record is one committed row: the experiment plus either its outcome or
// its failure description.
type Record struct {
	Experiment design.Experiment
	Failed     bool
	Failure    string
	Outcome    Outcome
}

// Store is the append-only ensemble accumulator. Writes happen one per
// experiment identity from the runner's collector; committed rows are
// safe to read concurrently.
type Store struct {
	mu      sync.RWMutex
	byID    map[int64]Record
	vars    []string
	varSeen map[string]bool
}

// NewStore returns an empty results store.
func NewStore() *Store {
	return &Store{
		byID:    make(map[int64]Record),
		varSeen: make(map[string]bool),
	}
}

// AddSuccess commits an outcome row for the experiment.
func (s *Store) AddSuccess(exp design.Experiment, out Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[exp.ID]; ok {
		return &DuplicateResultError{ID: exp.ID}
	}
	cp := make(Outcome, len(out))
	for k, v := range out {
		cp[k] = v
		if !s.varSeen[k] {
			s.varSeen[k] = true
			s.vars = append(s.vars, k)
		}
	}
	s.byID[exp.ID] = Record{Experiment: exp, Outcome: cp}
	return nil
}

// AddFailure commits a failed row: the experiment stays in the experiment
// table flagged failed and contributes no outcome row.
func (s *Store) AddFailure(exp design.Experiment, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[exp.ID]; ok {
		return &DuplicateResultError{ID: exp.ID}
	}
	s.byID[exp.ID] = Record{Experiment: exp, Failed: true, Failure: reason}
	return nil
}

// Len returns the number of committed experiment rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Get returns the committed record for an identity.
func (s *Store) Get(id int64) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	return r, ok
}

// Experiments returns all committed rows ordered by identity, failures
// included.
func (s *Store) Experiments() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(func(Record) bool { return true })
}

// Clean returns the successful rows ordered by identity: the combined
// experiments-with-outcomes view used for analysis.
func (s *Store) Clean() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(func(r Record) bool { return !r.Failed })
}

// Outcomes returns the outcome table: committed outcomes keyed by
// experiment identity. Failed experiments have no entry.
func (s *Store) Outcomes() map[int64]Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]Outcome, len(s.byID))
	for id, r := range s.byID {
		if r.Failed {
			continue
		}
		cp := make(Outcome, len(r.Outcome))
		for k, v := range r.Outcome {
			cp[k] = v
		}
		out[id] = cp
	}
	return out
}

// FailedIDs returns the identities of failed experiments in order.
func (s *Store) FailedIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int64
	for id, r := range s.byID {
		if r.Failed {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// OutcomeVars returns outcome variable names in first-seen order.
func (s *Store) OutcomeVars() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.vars))
	copy(out, s.vars)
	return out
}

func (s *Store) sortedLocked(keep func(Record) bool) []Record {
	out := make([]Record, 0, len(s.byID))
	for _, r := range s.byID {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Experiment.ID < out[j].Experiment.ID
	})
	return out
}
