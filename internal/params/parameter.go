// Package params describes the input space of an exploratory modeling
// study: uncertainties (exogenous inputs sampled over a domain) and
// levers (controllable decision inputs). A Space is immutable once
// constructed and validated; samplers and design generation treat it as
// read-only.
package params

import (
	"fmt"
	"math"
)

// Kind tags the value type of a parameter.
type Kind int

const (
	Real Kind = iota
	Integer
	Categorical
	Constant
)

// String returns the kind tag used in CSV definitions and logs.
func (k Kind) String() string {
	switch k {
	case Real:
		return "real"
	case Integer:
		return "int"
	case Categorical:
		return "cat"
	case Constant:
		return "const"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// InvalidSpaceError reports a parameter or space whose domain is unusable.
type InvalidSpaceError struct {
	Name   string
	Reason string
}

func (e *InvalidSpaceError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Name, e.Reason)
}

// Parameter is one input dimension. Depending on Kind, either the
// [Lower, Upper] range, the category set, or the constant value is
// meaningful. Parameters are plain values; copy freely.
type Parameter struct {
	Name string
	Kind Kind

	// Real and Integer ranges. For Integer both bounds are integral and
	// the domain is inclusive on both ends.
	Lower float64
	Upper float64

	// Categorical domain. Weights, when non-nil, has the same length as
	// Categories and biases sampling; weights need not sum to one.
	Categories []string
	Weights    []float64

	// Constant value.
	Const Value
}

// NewReal returns a real-valued parameter over [lower, upper].
func NewReal(name string, lower, upper float64) (Parameter, error) {
	if name == "" {
		return Parameter{}, &InvalidSpaceError{Name: name, Reason: "empty name"}
	}
	if math.IsNaN(lower) || math.IsNaN(upper) || math.IsInf(lower, 0) || math.IsInf(upper, 0) {
		return Parameter{}, &InvalidSpaceError{Name: name, Reason: "bounds must be finite"}
	}
	if lower > upper {
		return Parameter{}, &InvalidSpaceError{Name: name, Reason: fmt.Sprintf("lower bound %v exceeds upper bound %v", lower, upper)}
	}
	return Parameter{Name: name, Kind: Real, Lower: lower, Upper: upper}, nil
}

// NewInteger returns an integer-valued parameter over [lower, upper] inclusive.
func NewInteger(name string, lower, upper int64) (Parameter, error) {
	if name == "" {
		return Parameter{}, &InvalidSpaceError{Name: name, Reason: "empty name"}
	}
	if lower > upper {
		return Parameter{}, &InvalidSpaceError{Name: name, Reason: fmt.Sprintf("lower bound %d exceeds upper bound %d", lower, upper)}
	}
	return Parameter{Name: name, Kind: Integer, Lower: float64(lower), Upper: float64(upper)}, nil
}

// NewCategorical returns a categorical parameter drawing uniformly over
// the given categories.
func NewCategorical(name string, categories []string) (Parameter, error) {
	return NewWeightedCategorical(name, categories, nil)
}

// NewWeightedCategorical returns a categorical parameter with explicit
// sampling weights. Weights must be positive and match the category
// count; pass nil for uniform draws.
func NewWeightedCategorical(name string, categories []string, weights []float64) (Parameter, error) {
	if name == "" {
		return Parameter{}, &InvalidSpaceError{Name: name, Reason: "empty name"}
	}
	if len(categories) == 0 {
		return Parameter{}, &InvalidSpaceError{Name: name, Reason: "empty category set"}
	}
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		if seen[c] {
			return Parameter{}, &InvalidSpaceError{Name: name, Reason: fmt.Sprintf("duplicate category %q", c)}
		}
		seen[c] = true
	}
	if weights != nil {
		if len(weights) != len(categories) {
			return Parameter{}, &InvalidSpaceError{Name: name, Reason: fmt.Sprintf("%d weights for %d categories", len(weights), len(categories))}
		}
		for i, w := range weights {
			if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return Parameter{}, &InvalidSpaceError{Name: name, Reason: fmt.Sprintf("weight %v for category %q is not positive", w, categories[i])}
			}
		}
	}
	cats := make([]string, len(categories))
	copy(cats, categories)
	var ws []float64
	if weights != nil {
		ws = make([]float64, len(weights))
		copy(ws, weights)
	}
	return Parameter{Name: name, Kind: Categorical, Categories: cats, Weights: ws}, nil
}

// NewBoolean returns a two-category parameter over {"false", "true"}.
func NewBoolean(name string) (Parameter, error) {
	return NewCategorical(name, []string{"false", "true"})
}

// NewConstant returns a parameter fixed to a single value for every sample.
func NewConstant(name string, value Value) (Parameter, error) {
	if name == "" {
		return Parameter{}, &InvalidSpaceError{Name: name, Reason: "empty name"}
	}
	return Parameter{Name: name, Kind: Constant, Const: value}, nil
}

// Contains reports whether v lies inside the parameter's domain.
func (p Parameter) Contains(v Value) bool {
	switch p.Kind {
	case Real:
		return !v.IsCategory() && v.Float() >= p.Lower && v.Float() <= p.Upper
	case Integer:
		f := v.Float()
		return !v.IsCategory() && f == math.Trunc(f) && f >= p.Lower && f <= p.Upper
	case Categorical:
		if !v.IsCategory() {
			return false
		}
		for _, c := range p.Categories {
			if c == v.Category() {
				return true
			}
		}
		return false
	case Constant:
		return v.Equal(p.Const)
	}
	return false
}
