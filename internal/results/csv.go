package results

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"
)

// WriteCSV exports the joined ensemble: one row per experiment with its
// scenario and policy values, status, and outcome columns. Series
// outcomes are written semicolon-joined in a single cell. Column order is
// deterministic: fixed columns, then input names sorted, then outcome
// variables in first-seen order.
func (s *Store) WriteCSV(w io.Writer) error {
	rows := s.Experiments()
	vars := s.OutcomeVars()

	inputSet := make(map[string]bool)
	for _, r := range rows {
		for k := range r.Experiment.Scenario.Values {
			inputSet[k] = true
		}
		for k := range r.Experiment.Policy.Values {
			inputSet[k] = true
		}
	}
	inputs := make([]string, 0, len(inputSet))
	for k := range inputSet {
		inputs = append(inputs, k)
	}
	sort.Strings(inputs)

	cw := csv.NewWriter(w)
	header := []string{"experiment_id", "scenario", "policy", "replication", "status", "error"}
	header = append(header, inputs...)
	header = append(header, vars...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		rec := []string{
			strconv.FormatInt(r.Experiment.ID, 10),
			r.Experiment.Scenario.Name,
			r.Experiment.Policy.Name,
			strconv.Itoa(r.Experiment.Replication),
			statusCell(r),
			r.Failure,
		}
		for _, name := range inputs {
			if v, ok := r.Experiment.Scenario.Values[name]; ok {
				rec = append(rec, v.String())
			} else if v, ok := r.Experiment.Policy.Values[name]; ok {
				rec = append(rec, v.String())
			} else {
				rec = append(rec, "")
			}
		}
		for _, name := range vars {
			m, ok := r.Outcome[name]
			if !ok {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, measureCell(m))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func statusCell(r Record) string {
	if r.Failed {
		return "failed"
	}
	return "ok"
}

func measureCell(m Measure) string {
	if !m.IsSeries() {
		return strconv.FormatFloat(m.Scalar, 'g', -1, 64)
	}
	parts := make([]string, len(m.Series))
	for i, v := range m.Series {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ";")
}
