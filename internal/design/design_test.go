package design

import (
	"errors"
	"fmt"
	"testing"

	"github.com/scenariolab/workbench/internal/params"
	"github.com/scenariolab/workbench/internal/sampling"
)

func assignments(prefix string, n int) []sampling.Assignment {
	out := make([]sampling.Assignment, n)
	for i := range out {
		out[i] = sampling.Assignment{
			Name:   fmt.Sprintf("%s%d", prefix, i),
			Values: map[string]params.Value{prefix: params.IntValue(int64(i))},
		}
	}
	return out
}

func TestFullFactorialSize(t *testing.T) {
	scenarios := assignments("s", 5)
	policies := assignments("p", 3)
	got, err := Generate(scenarios, policies, 2, FullFactorial)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(got) != 5*3*2 {
		t.Fatalf("factorial design has %d experiments, want %d", len(got), 5*3*2)
	}
}

func TestIdentitiesContiguous(t *testing.T) {
	scenarios := assignments("s", 4)
	policies := assignments("p", 2)
	got, err := Generate(scenarios, policies, 3, FullFactorial)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i, e := range got {
		if e.ID != int64(i) {
			t.Fatalf("experiment %d has ID %d, identities must be 0..k-1 in order", i, e.ID)
		}
	}
}

func TestFullFactorialLoopOrder(t *testing.T) {
	// Policies are the outer loop: the first |scenarios| x replications
	// experiments all share the first policy.
	scenarios := assignments("s", 3)
	policies := assignments("p", 2)
	got, err := Generate(scenarios, policies, 1, FullFactorial)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i := 0; i < 3; i++ {
		if got[i].Policy.Name != "p0" {
			t.Fatalf("experiment %d has policy %q, want p0 first", i, got[i].Policy.Name)
		}
		if got[i].Scenario.Name != fmt.Sprintf("s%d", i) {
			t.Fatalf("experiment %d has scenario %q", i, got[i].Scenario.Name)
		}
	}
}

func TestReplicationIndices(t *testing.T) {
	scenarios := assignments("s", 1)
	policies := assignments("p", 1)
	got, err := Generate(scenarios, policies, 4, FullFactorial)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 replicated experiments, got %d", len(got))
	}
	for i, e := range got {
		if e.Replication != i {
			t.Fatalf("experiment %d has replication %d", i, e.Replication)
		}
	}
}

func TestPairedDesign(t *testing.T) {
	scenarios := assignments("s", 6)
	policies := assignments("p", 6)
	got, err := Generate(scenarios, policies, 1, Paired)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(got) != 6 {
		t.Fatalf("paired design has %d experiments, want 6", len(got))
	}
	for i, e := range got {
		if e.Scenario.Name != fmt.Sprintf("s%d", i) || e.Policy.Name != fmt.Sprintf("p%d", i) {
			t.Fatalf("experiment %d pairs %q with %q", i, e.Scenario.Name, e.Policy.Name)
		}
	}
}

func TestPairedDesignMismatch(t *testing.T) {
	_, err := Generate(assignments("s", 4), assignments("p", 3), 1, Paired)
	var de *DesignError
	if !errors.As(err, &de) {
		t.Fatalf("expected DesignError for mismatched counts, got %v", err)
	}
}

func TestGenerateValidation(t *testing.T) {
	s := assignments("s", 1)
	p := assignments("p", 1)
	if _, err := Generate(nil, p, 1, FullFactorial); err == nil {
		t.Fatal("expected error for empty scenarios")
	}
	if _, err := Generate(s, nil, 1, FullFactorial); err == nil {
		t.Fatal("expected error for empty policies")
	}
	if _, err := Generate(s, p, 0, FullFactorial); err == nil {
		t.Fatal("expected error for zero replications")
	}
}

func TestBaseline(t *testing.T) {
	b := Baseline()
	if b.Name != "none" || len(b.Values) != 0 {
		t.Fatalf("baseline policy is %+v, want named empty assignment", b)
	}
}
