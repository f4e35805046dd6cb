package discovery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scenariolab/workbench/internal/params"
)

// Interval is a closed numeric range.
type Interval struct {
	Lower float64
	Upper float64
}

// Limit restricts a single dimension. Exactly one of Interval and
// Categories is set, matching the dimension's kind.
type Limit struct {
	Interval   *Interval
	Categories []string
}

// Box is a rectangular restriction of the input space together with the
// statistics it scored against the candidate set it was discovered in.
// Dimensions the induction never restricted are absent from Limits.
//
// Density is the interesting fraction inside the box, Coverage the
// fraction of all interesting points it captures, Mass the fraction of
// all points it captures.
type Box struct {
	Limits   map[string]Limit
	Density  float64
	Coverage float64
	Mass     float64

	// Trajectory holds the statistics after each peeling step, starting
	// from the unrestricted box.
	Trajectory Trajectory
}

// Contains reports whether the assignment values fall inside every limit.
// Dimensions without a limit are unrestricted.
func (b Box) Contains(vals map[string]params.Value) bool {
	for name, lim := range b.Limits {
		v, ok := vals[name]
		if !ok {
			return false
		}
		if lim.Interval != nil {
			f := v.Float()
			if f < lim.Interval.Lower || f > lim.Interval.Upper {
				return false
			}
			continue
		}
		found := false
		for _, c := range lim.Categories {
			if v.Category() == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// String renders the restrictions in dimension order, for logs and
// reports.
func (b Box) String() string {
	names := make([]string, 0, len(b.Limits))
	for name := range b.Limits {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		lim := b.Limits[name]
		if lim.Interval != nil {
			parts = append(parts, fmt.Sprintf("%s in [%.4g, %.4g]", name, lim.Interval.Lower, lim.Interval.Upper))
		} else {
			parts = append(parts, fmt.Sprintf("%s in {%s}", name, strings.Join(lim.Categories, ", ")))
		}
	}
	if len(parts) == 0 {
		return "(unrestricted)"
	}
	return strings.Join(parts, " and ")
}

// TrajectoryStep is the box statistics after one peeling step.
type TrajectoryStep struct {
	Density  float64
	Coverage float64
	Mass     float64
}

// Trajectory is the density/coverage/mass path the peeling loop took.
type Trajectory []TrajectoryStep
