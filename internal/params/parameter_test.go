package params

import (
	"errors"
	"testing"
)

func TestNewRealValidation(t *testing.T) {
	if _, err := NewReal("a", 0, 1); err != nil {
		t.Fatalf("valid range rejected: %v", err)
	}
	_, err := NewReal("a", 2, 1)
	var ise *InvalidSpaceError
	if !errors.As(err, &ise) {
		t.Fatalf("expected InvalidSpaceError for inverted range, got %v", err)
	}
	if _, err := NewReal("", 0, 1); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestNewRealDegenerateRangeAllowed(t *testing.T) {
	// min == max is a valid single-point domain
	p, err := NewReal("fixed", 3, 3)
	if err != nil {
		t.Fatalf("degenerate range rejected: %v", err)
	}
	if !p.Contains(RealValue(3)) {
		t.Fatal("degenerate range should contain its single point")
	}
}

func TestNewIntegerValidation(t *testing.T) {
	p, err := NewInteger("n", 1, 9)
	if err != nil {
		t.Fatalf("valid range rejected: %v", err)
	}
	if !p.Contains(IntValue(1)) || !p.Contains(IntValue(9)) {
		t.Fatal("bounds should be inclusive")
	}
	if p.Contains(RealValue(4.5)) {
		t.Fatal("integer domain should reject fractional value")
	}
	if _, err := NewInteger("n", 5, 4); err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func TestNewCategoricalValidation(t *testing.T) {
	if _, err := NewCategorical("c", nil); err == nil {
		t.Fatal("expected error for empty category set")
	}
	if _, err := NewCategorical("c", []string{"a", "a"}); err == nil {
		t.Fatal("expected error for duplicate categories")
	}
	p, err := NewCategorical("c", []string{"a", "b"})
	if err != nil {
		t.Fatalf("valid categories rejected: %v", err)
	}
	if !p.Contains(CategoryValue("a")) || p.Contains(CategoryValue("z")) {
		t.Fatal("category containment wrong")
	}
}

func TestNewWeightedCategoricalValidation(t *testing.T) {
	if _, err := NewWeightedCategorical("c", []string{"a", "b"}, []float64{1}); err == nil {
		t.Fatal("expected error for weight/category length mismatch")
	}
	if _, err := NewWeightedCategorical("c", []string{"a", "b"}, []float64{1, -1}); err == nil {
		t.Fatal("expected error for non-positive weight")
	}
	if _, err := NewWeightedCategorical("c", []string{"a", "b"}, []float64{3, 1}); err != nil {
		t.Fatal("valid weights rejected")
	}
}

func TestNewBoolean(t *testing.T) {
	p, err := NewBoolean("flag")
	if err != nil {
		t.Fatalf("NewBoolean: %v", err)
	}
	if len(p.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(p.Categories))
	}
	if !p.Contains(BoolValue(true)) || !p.Contains(BoolValue(false)) {
		t.Fatal("boolean domain should contain both truth values")
	}
}

func TestNewSpaceUniqueNames(t *testing.T) {
	u, _ := NewReal("x", 0, 1)
	l, _ := NewReal("x", 0, 1)
	if _, err := NewSpace([]Parameter{u}, []Parameter{l}); err == nil {
		t.Fatal("expected error for duplicate name across uncertainties and levers")
	}
	l2, _ := NewReal("y", 0, 1)
	s, err := NewSpace([]Parameter{u}, []Parameter{l2})
	if err != nil {
		t.Fatalf("valid space rejected: %v", err)
	}
	if len(s.Uncertainties()) != 1 || len(s.Levers()) != 1 {
		t.Fatal("space accessors returned wrong counts")
	}
}

func TestSpaceAccessorsReturnCopies(t *testing.T) {
	u, _ := NewReal("x", 0, 1)
	s, err := NewSpace([]Parameter{u}, nil)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	got := s.Uncertainties()
	got[0].Name = "mutated"
	if s.Uncertainties()[0].Name != "x" {
		t.Fatal("mutating accessor result leaked into the space")
	}
}

func TestValueRoundTrip(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{RealValue(1.5), "1.5"},
		{RealValue(2), "2"},
		{IntValue(7), "7"},
		{CategoryValue("blue"), "blue"},
		{BoolValue(true), "true"},
	}
	for _, c := range cases {
		if got := c.v.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
	if !RealValue(2).Equal(IntValue(2)) {
		t.Fatal("numeric values with equal magnitude should compare equal")
	}
	if RealValue(0).Equal(CategoryValue("")) {
		t.Fatal("number and category must not compare equal")
	}
}

func TestValueJSON(t *testing.T) {
	b, err := CategoryValue("b").MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(b) != `"b"` {
		t.Fatalf("category marshals as %s", b)
	}
	var v Value
	if err := v.UnmarshalJSON([]byte("4.25")); err != nil {
		t.Fatalf("UnmarshalJSON number: %v", err)
	}
	if v.Float() != 4.25 {
		t.Fatalf("got %v", v.Float())
	}
	if err := v.UnmarshalJSON([]byte("true")); err != nil {
		t.Fatalf("UnmarshalJSON bool: %v", err)
	}
	if v.Category() != "true" {
		t.Fatalf("bool should map to category label, got %q", v.Category())
	}
	if err := v.UnmarshalJSON([]byte("[1,2]")); err == nil {
		t.Fatal("expected error for array value")
	}
}
