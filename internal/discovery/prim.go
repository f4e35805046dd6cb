// Package discovery induces box-shaped rules over experiment inputs: it
// finds restrictions of the sampled space in which a caller-defined
// "interesting" outcome class is concentrated. The induction is the
// classic peel-then-paste loop over quantile trims, restartable to find
// several non-overlapping boxes.
package discovery

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/scenariolab/workbench/internal/monitoring"
	"github.com/scenariolab/workbench/internal/params"
	"github.com/scenariolab/workbench/internal/results"
)

// EmptyClassificationError reports that the results hold nothing to
// discover: too few successful experiments, or none the classifier marks
// interesting.
type EmptyClassificationError struct {
	Successes   int
	Interesting int
}

func (e *EmptyClassificationError) Error() string {
	if e.Interesting == 0 && e.Successes > 0 {
		return fmt.Sprintf("nothing to discover: none of %d successful experiments classified interesting", e.Successes)
	}
	return fmt.Sprintf("nothing to discover: only %d successful experiments", e.Successes)
}

// Objective shapes the peeling score. A candidate trim with density gain
// g and mass loss l scores g^DensityWeight / l^MassWeight; the default
// weights of 1 give the plain gain-per-unit-mass-lost rule.
type Objective struct {
	DensityWeight float64
	MassWeight    float64
}

// Config holds the induction knobs. The zero value is usable; unset
// fields take the defaults noted per field.
type Config struct {
	// PeelAlpha is the fraction of contained points a single peel trims
	// from one edge. Default 0.05.
	PeelAlpha float64
	// PasteAlpha is the fraction of contained points a single paste step
	// re-admits. Default: PeelAlpha.
	PasteAlpha float64
	// MassMin is the floor on box mass; trims that would shrink the box
	// below it are not considered. Default 0.05.
	MassMin float64
	// DensityFloor is the minimum density pasting may dilute the box to.
	// Default: the density of the peeled box, so pasting only admits
	// expansions that do not dilute it.
	DensityFloor float64
	// DensityThreshold stops the multi-box search once the best
	// remaining box falls below it. 0 disables the check.
	DensityThreshold float64
	// MinInteresting stops the multi-box search once fewer interesting
	// points remain uncaptured. Default 1.
	MinInteresting int
	// MinPoints is the minimum number of successful experiments required
	// to run at all. Default 10.
	MinPoints int

	Objective Objective
}

func (c Config) withDefaults() Config {
	if c.PeelAlpha <= 0 {
		c.PeelAlpha = 0.05
	}
	if c.PasteAlpha <= 0 {
		c.PasteAlpha = c.PeelAlpha
	}
	if c.MassMin <= 0 {
		c.MassMin = 0.05
	}
	if c.MinInteresting <= 0 {
		c.MinInteresting = 1
	}
	if c.MinPoints <= 0 {
		c.MinPoints = 10
	}
	if c.Objective.DensityWeight <= 0 {
		c.Objective.DensityWeight = 1
	}
	if c.Objective.MassWeight <= 0 {
		c.Objective.MassWeight = 1
	}
	return c
}

// Discover labels every successful experiment with the classifier and
// induces boxes until the remaining interesting points run out or no box
// clears the density threshold. Boxes are returned in discovery order;
// each was scored against the points the earlier boxes left behind.
func Discover(store *results.Store, interesting func(results.Outcome) bool, cfg Config) ([]Box, error) {
	cfg = cfg.withDefaults()
	dims, pool, err := buildDataset(store, interesting, cfg.MinPoints)
	if err != nil {
		return nil, err
	}

	var boxes []Box
	for {
		if countInteresting(pool) < cfg.MinInteresting {
			break
		}
		box, captured := induceBox(dims, pool, cfg)
		if cfg.DensityThreshold > 0 && box.Density < cfg.DensityThreshold {
			break
		}
		if len(captured) == 0 {
			break
		}
		boxes = append(boxes, box)
		monitoring.Logf("[Discovery] box %d: density=%.3f coverage=%.3f mass=%.3f",
			len(boxes), box.Density, box.Coverage, box.Mass)
		pool = removePoints(pool, captured)
		if len(pool) == 0 {
			break
		}
	}
	return boxes, nil
}

type dimension struct {
	name        string
	categorical bool
}

type point struct {
	vals        map[string]params.Value
	interesting bool
}

func buildDataset(store *results.Store, interesting func(results.Outcome) bool, minPoints int) ([]dimension, []point, error) {
	clean := store.Clean()
	if len(clean) < minPoints {
		return nil, nil, &EmptyClassificationError{Successes: len(clean)}
	}

	merged := func(rec results.Record) map[string]params.Value {
		vals := make(map[string]params.Value, len(rec.Experiment.Scenario.Values)+len(rec.Experiment.Policy.Values))
		for k, v := range rec.Experiment.Scenario.Values {
			vals[k] = v
		}
		for k, v := range rec.Experiment.Policy.Values {
			vals[k] = v
		}
		return vals
	}

	first := merged(clean[0])
	names := make([]string, 0, len(first))
	for name := range first {
		names = append(names, name)
	}
	sort.Strings(names)

	dims := make([]dimension, len(names))
	for i, name := range names {
		dims[i] = dimension{name: name, categorical: first[name].IsCategory()}
	}

	pool := make([]point, 0, len(clean))
	hits := 0
	for _, rec := range clean {
		p := point{vals: merged(rec), interesting: interesting(rec.Outcome)}
		if p.interesting {
			hits++
		}
		pool = append(pool, p)
	}
	if hits == 0 {
		return nil, nil, &EmptyClassificationError{Successes: len(clean)}
	}
	return dims, pool, nil
}

func countInteresting(pool []point) int {
	n := 0
	for _, p := range pool {
		if p.interesting {
			n++
		}
	}
	return n
}

func removePoints(pool []point, captured map[int]bool) []point {
	out := pool[:0:len(pool)]
	for i, p := range pool {
		if !captured[i] {
			out = append(out, p)
		}
	}
	return out
}

// workBox carries the in-progress restriction over every dimension.
type workBox struct {
	nums map[string]Interval
	cats map[string]map[string]bool
}

func (b workBox) clone() workBox {
	nb := workBox{
		nums: make(map[string]Interval, len(b.nums)),
		cats: make(map[string]map[string]bool, len(b.cats)),
	}
	for k, v := range b.nums {
		nb.nums[k] = v
	}
	for k, set := range b.cats {
		ns := make(map[string]bool, len(set))
		for c := range set {
			ns[c] = true
		}
		nb.cats[k] = ns
	}
	return nb
}

func (b workBox) contains(p point) bool {
	for name, iv := range b.nums {
		f := p.vals[name].Float()
		if f < iv.Lower || f > iv.Upper {
			return false
		}
	}
	for name, set := range b.cats {
		if !set[p.vals[name].Category()] {
			return false
		}
	}
	return true
}

// fullBox spans the observed domain of every dimension over the pool.
func fullBox(dims []dimension, pool []point) workBox {
	wb := workBox{nums: map[string]Interval{}, cats: map[string]map[string]bool{}}
	for _, d := range dims {
		if d.categorical {
			set := map[string]bool{}
			for _, p := range pool {
				set[p.vals[d.name].Category()] = true
			}
			wb.cats[d.name] = set
			continue
		}
		iv := Interval{Lower: math.Inf(1), Upper: math.Inf(-1)}
		for _, p := range pool {
			f := p.vals[d.name].Float()
			iv.Lower = math.Min(iv.Lower, f)
			iv.Upper = math.Max(iv.Upper, f)
		}
		wb.nums[d.name] = iv
	}
	return wb
}

type boxStats struct {
	contained   int
	interesting int
	density     float64
	coverage    float64
	mass        float64
}

func (s boxStats) step() TrajectoryStep {
	return TrajectoryStep{Density: s.density, Coverage: s.coverage, Mass: s.mass}
}

func evalBox(wb workBox, pool []point, totalInteresting int) boxStats {
	var s boxStats
	for _, p := range pool {
		if !wb.contains(p) {
			continue
		}
		s.contained++
		if p.interesting {
			s.interesting++
		}
	}
	if s.contained > 0 {
		s.density = float64(s.interesting) / float64(s.contained)
	}
	if totalInteresting > 0 {
		s.coverage = float64(s.interesting) / float64(totalInteresting)
	}
	s.mass = float64(s.contained) / float64(len(pool))
	return s
}

// induceBox runs one peel-then-paste pass over the pool and reports the
// box plus the pool indices it captures.
func induceBox(dims []dimension, pool []point, cfg Config) (Box, map[int]bool) {
	totalInteresting := countInteresting(pool)
	full := fullBox(dims, pool)
	wb := full.clone()
	cur := evalBox(wb, pool, totalInteresting)
	traj := Trajectory{cur.step()}

	for {
		next, stats, ok := bestPeel(dims, wb, pool, cur, totalInteresting, cfg)
		if !ok {
			break
		}
		wb, cur = next, stats
		traj = append(traj, cur.step())
	}

	wb, cur = paste(dims, full, wb, pool, cur, totalInteresting, cfg)

	captured := map[int]bool{}
	for i, p := range pool {
		if wb.contains(p) {
			captured[i] = true
		}
	}
	return exportBox(dims, full, wb, cur, traj), captured
}

type peelCandidate struct {
	box   workBox
	stats boxStats
	score float64
	lost  float64
}

// bestPeel evaluates one quantile trim per edge of every dimension and
// returns the highest-scoring admissible one. Ties on score fall to the
// trim losing the least mass; dimension order settles the rest, so the
// choice is deterministic for a given pool order.
func bestPeel(dims []dimension, wb workBox, pool []point, cur boxStats, totalInteresting int, cfg Config) (workBox, boxStats, bool) {
	var best *peelCandidate

	consider := func(cand workBox) {
		stats := evalBox(cand, pool, totalInteresting)
		lost := cur.mass - stats.mass
		gain := stats.density - cur.density
		if lost <= 0 || gain <= 0 || stats.mass < cfg.MassMin {
			return
		}
		score := math.Pow(gain, cfg.Objective.DensityWeight) / math.Pow(lost, cfg.Objective.MassWeight)
		if best == nil || score > best.score || (score == best.score && lost < best.lost) {
			best = &peelCandidate{box: cand, stats: stats, score: score, lost: lost}
		}
	}

	for _, d := range dims {
		if d.categorical {
			set := wb.cats[d.name]
			if len(set) < 2 {
				continue
			}
			for _, c := range sortedKeys(set) {
				cand := wb.clone()
				delete(cand.cats[d.name], c)
				consider(cand)
			}
			continue
		}

		vals := containedValues(wb, pool, d.name)
		if len(vals) < 2 {
			continue
		}
		sort.Float64s(vals)
		iv := wb.nums[d.name]

		if lo := stat.Quantile(cfg.PeelAlpha, stat.Empirical, vals, nil); lo > iv.Lower {
			cand := wb.clone()
			cand.nums[d.name] = Interval{Lower: lo, Upper: iv.Upper}
			consider(cand)
		}
		if hi := stat.Quantile(1-cfg.PeelAlpha, stat.Empirical, vals, nil); hi < iv.Upper {
			cand := wb.clone()
			cand.nums[d.name] = Interval{Lower: iv.Lower, Upper: hi}
			consider(cand)
		}
	}

	if best == nil {
		return workBox{}, boxStats{}, false
	}
	return best.box, best.stats, true
}

// paste greedily re-expands one dimension at a time while coverage rises
// and density holds the floor.
func paste(dims []dimension, full, wb workBox, pool []point, cur boxStats, totalInteresting int, cfg Config) (workBox, boxStats) {
	floor := cfg.DensityFloor
	if floor <= 0 {
		floor = cur.density
	}

	admit := func(cand workBox) (boxStats, bool) {
		stats := evalBox(cand, pool, totalInteresting)
		if stats.coverage > cur.coverage && stats.density >= floor {
			return stats, true
		}
		return boxStats{}, false
	}

	for changed := true; changed; {
		changed = false
		for _, d := range dims {
			if d.categorical {
				dropped := []string{}
				for c := range full.cats[d.name] {
					if !wb.cats[d.name][c] {
						dropped = append(dropped, c)
					}
				}
				sort.Strings(dropped)
				for _, c := range dropped {
					cand := wb.clone()
					cand.cats[d.name][c] = true
					if stats, ok := admit(cand); ok {
						wb, cur = cand, stats
						changed = true
						break
					}
				}
				continue
			}

			iv := wb.nums[d.name]
			if lo, ok := pasteBound(wb, pool, d.name, cur.contained, cfg.PasteAlpha, true); ok && lo < iv.Lower {
				cand := wb.clone()
				cand.nums[d.name] = Interval{Lower: lo, Upper: iv.Upper}
				if stats, ok := admit(cand); ok {
					wb, cur = cand, stats
					iv = cand.nums[d.name]
					changed = true
				}
			}
			if hi, ok := pasteBound(wb, pool, d.name, cur.contained, cfg.PasteAlpha, false); ok && hi > iv.Upper {
				cand := wb.clone()
				cand.nums[d.name] = Interval{Lower: iv.Lower, Upper: hi}
				if stats, ok := admit(cand); ok {
					wb, cur = cand, stats
					changed = true
				}
			}
		}
	}
	return wb, cur
}

// pasteBound finds the bound admitting roughly alpha*contained of the
// points just outside the named edge, holding every other dimension's
// restriction.
func pasteBound(wb workBox, pool []point, name string, contained int, alpha float64, lowerEdge bool) (float64, bool) {
	iv := wb.nums[name]
	relaxed := wb.clone()
	relaxed.nums[name] = Interval{Lower: math.Inf(-1), Upper: math.Inf(1)}

	var outside []float64
	for _, p := range pool {
		if !relaxed.contains(p) {
			continue
		}
		f := p.vals[name].Float()
		if lowerEdge && f < iv.Lower {
			outside = append(outside, f)
		} else if !lowerEdge && f > iv.Upper {
			outside = append(outside, f)
		}
	}
	if len(outside) == 0 {
		return 0, false
	}
	k := int(math.Ceil(alpha * float64(contained)))
	if k < 1 {
		k = 1
	}
	if k > len(outside) {
		k = len(outside)
	}
	sort.Float64s(outside)
	if lowerEdge {
		return outside[len(outside)-k], true
	}
	return outside[k-1], true
}

// exportBox keeps only the dimensions the induction actually tightened.
func exportBox(dims []dimension, full, wb workBox, cur boxStats, traj Trajectory) Box {
	limits := map[string]Limit{}
	for _, d := range dims {
		if d.categorical {
			if len(wb.cats[d.name]) == len(full.cats[d.name]) {
				continue
			}
			limits[d.name] = Limit{Categories: sortedKeys(wb.cats[d.name])}
			continue
		}
		iv, fullIv := wb.nums[d.name], full.nums[d.name]
		if iv.Lower > fullIv.Lower || iv.Upper < fullIv.Upper {
			bound := iv
			limits[d.name] = Limit{Interval: &bound}
		}
	}
	return Box{
		Limits:     limits,
		Density:    cur.density,
		Coverage:   cur.coverage,
		Mass:       cur.mass,
		Trajectory: traj,
	}
}

func containedValues(wb workBox, pool []point, name string) []float64 {
	var vals []float64
	for _, p := range pool {
		if wb.contains(p) {
			vals = append(vals, p.vals[name].Float())
		}
	}
	return vals
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
