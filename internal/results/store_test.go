package results

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/scenariolab/workbench/internal/design"
	"github.com/scenariolab/workbench/internal/params"
	"github.com/scenariolab/workbench/internal/sampling"
)

func exp(id int64, u float64) design.Experiment {
	return design.Experiment{
		ID: id,
		Scenario: sampling.Assignment{
			Name:   "s",
			Values: map[string]params.Value{"u": params.RealValue(u)},
		},
		Policy: design.Baseline(),
	}
}

func TestAddAndProjections(t *testing.T) {
	s := NewStore()
	if err := s.AddSuccess(exp(1, 0.5), Outcome{"y": {Scalar: 2}}); err != nil {
		t.Fatalf("AddSuccess: %v", err)
	}
	if err := s.AddFailure(exp(0, 0.1), "model exploded"); err != nil {
		t.Fatalf("AddFailure: %v", err)
	}
	if err := s.AddSuccess(exp(2, 0.9), Outcome{"y": {Scalar: 3}}); err != nil {
		t.Fatalf("AddSuccess: %v", err)
	}

	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}

	all := s.Experiments()
	if len(all) != 3 {
		t.Fatalf("Experiments returned %d rows", len(all))
	}
	for i, r := range all {
		if r.Experiment.ID != int64(i) {
			t.Fatalf("row %d has ID %d; projections must be ordered by identity", i, r.Experiment.ID)
		}
	}

	clean := s.Clean()
	if len(clean) != 2 {
		t.Fatalf("Clean returned %d rows, want 2", len(clean))
	}
	for _, r := range clean {
		if r.Failed {
			t.Fatal("Clean must exclude failed rows")
		}
	}

	failed := s.FailedIDs()
	if len(failed) != 1 || failed[0] != 0 {
		t.Fatalf("FailedIDs = %v, want [0]", failed)
	}

	outs := s.Outcomes()
	if len(outs) != 2 {
		t.Fatalf("Outcomes returned %d entries, want 2", len(outs))
	}
	if _, ok := outs[0]; ok {
		t.Fatal("failed experiment must not appear in the outcome table")
	}
	if outs[1]["y"].Scalar != 2 || outs[2]["y"].Scalar != 3 {
		t.Fatalf("outcome table wrong: %+v", outs)
	}
}

func TestDuplicateRejected(t *testing.T) {
	s := NewStore()
	if err := s.AddSuccess(exp(7, 0.5), Outcome{"y": {Scalar: 1}}); err != nil {
		t.Fatalf("AddSuccess: %v", err)
	}

	err := s.AddSuccess(exp(7, 0.5), Outcome{"y": {Scalar: 99}})
	var dup *DuplicateResultError
	if !errors.As(err, &dup) || dup.ID != 7 {
		t.Fatalf("expected DuplicateResultError for ID 7, got %v", err)
	}

	// the failure path must reject duplicates too, and the original row
	// must be untouched
	if err := s.AddFailure(exp(7, 0.5), "retry"); !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateResultError from AddFailure, got %v", err)
	}
	r, ok := s.Get(7)
	if !ok || r.Failed || r.Outcome["y"].Scalar != 1 {
		t.Fatalf("original row changed after duplicate submission: %+v", r)
	}
}

func TestOutcomeCopiedOnAdd(t *testing.T) {
	s := NewStore()
	out := Outcome{"y": {Scalar: 1}}
	if err := s.AddSuccess(exp(0, 0), out); err != nil {
		t.Fatalf("AddSuccess: %v", err)
	}
	out["y"] = Measure{Scalar: 42}
	r, _ := s.Get(0)
	if r.Outcome["y"].Scalar != 1 {
		t.Fatal("store row aliased the caller's outcome map")
	}
}

func TestOutcomeVarsFirstSeenOrder(t *testing.T) {
	s := NewStore()
	_ = s.AddSuccess(exp(0, 0), Outcome{"b": {Scalar: 1}})
	_ = s.AddSuccess(exp(1, 0), Outcome{"a": {Scalar: 1}, "b": {Scalar: 2}})
	vars := s.OutcomeVars()
	if len(vars) != 2 || vars[0] != "b" || vars[1] != "a" {
		t.Fatalf("OutcomeVars = %v, want first-seen order [b a]", vars)
	}
}

func TestMeasureScalarize(t *testing.T) {
	if got := (Measure{Scalar: 4}).Scalarize(); got != 4 {
		t.Fatalf("scalar Scalarize = %v", got)
	}
	if got := (Measure{Series: []float64{1, 2, 9}}).Scalarize(); got != 9 {
		t.Fatalf("series Scalarize = %v, want final element", got)
	}
}

func TestWriteCSV(t *testing.T) {
	s := NewStore()
	_ = s.AddSuccess(exp(0, 0.25), Outcome{"y": {Scalar: 2}, "ts": {Series: []float64{1, 2}}})
	_ = s.AddFailure(exp(1, 0.75), "boom")

	var buf bytes.Buffer
	if err := s.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "experiment_id,scenario,policy,replication,status,error,u") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "1;2") {
		t.Fatalf("series cell missing from row: %s", lines[1])
	}
	if !strings.Contains(lines[2], "failed") || !strings.Contains(lines[2], "boom") {
		t.Fatalf("failure row wrong: %s", lines[2])
	}
}
