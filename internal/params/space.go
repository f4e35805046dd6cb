package params

import "fmt"

// Space is the full input description of a study: ordered uncertainties
// and ordered levers with names unique across both sets. Construct with
// NewSpace; the accessors return copies so callers cannot mutate a
// validated space.
type Space struct {
	uncertainties []Parameter
	levers        []Parameter
}

// NewSpace validates and freezes a parameter space.
func NewSpace(uncertainties, levers []Parameter) (*Space, error) {
	seen := make(map[string]bool, len(uncertainties)+len(levers))
	check := func(ps []Parameter, role string) error {
		for _, p := range ps {
			if p.Name == "" {
				return &InvalidSpaceError{Name: p.Name, Reason: fmt.Sprintf("unnamed %s", role)}
			}
			if seen[p.Name] {
				return &InvalidSpaceError{Name: p.Name, Reason: "name not unique across uncertainties and levers"}
			}
			seen[p.Name] = true
		}
		return nil
	}
	if err := check(uncertainties, "uncertainty"); err != nil {
		return nil, err
	}
	if err := check(levers, "lever"); err != nil {
		return nil, err
	}

	s := &Space{
		uncertainties: make([]Parameter, len(uncertainties)),
		levers:        make([]Parameter, len(levers)),
	}
	copy(s.uncertainties, uncertainties)
	copy(s.levers, levers)
	return s, nil
}

// Uncertainties returns the ordered uncertainty parameters.
func (s *Space) Uncertainties() []Parameter {
	out := make([]Parameter, len(s.uncertainties))
	copy(out, s.uncertainties)
	return out
}

// Levers returns the ordered lever parameters.
func (s *Space) Levers() []Parameter {
	out := make([]Parameter, len(s.levers))
	copy(out, s.levers)
	return out
}
