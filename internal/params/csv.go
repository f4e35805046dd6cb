package params

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadCSV loads parameter definitions from CSV. Each row is
// `name,type,values...` where type is one of real, int, cat, bool, const.
// The type column may be omitted entirely, in which case two integral
// values infer an integer range, two numeric values a real range, and
// anything else a category set. A header row starting with "name" is
// skipped. Rows may have trailing empty fields (ragged category lists).
func ReadCSV(r io.Reader) ([]Parameter, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var out []Parameter
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parameter csv: %w", err)
		}
		line++
		rec = trimRecord(rec)
		if len(rec) == 0 {
			continue
		}
		if line == 1 && strings.EqualFold(rec[0], "name") {
			continue
		}
		p, err := parameterFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("parameter csv line %d: %w", line, err)
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("parameter csv: no parameter rows")
	}
	return out, nil
}

// WriteCSV writes parameter definitions in the format ReadCSV accepts.
func WriteCSV(w io.Writer, parameters []Parameter) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "type", "values"}); err != nil {
		return err
	}
	for _, p := range parameters {
		rec := []string{p.Name, p.Kind.String()}
		switch p.Kind {
		case Real:
			rec = append(rec, formatFloat(p.Lower), formatFloat(p.Upper))
		case Integer:
			rec = append(rec, strconv.FormatInt(int64(p.Lower), 10), strconv.FormatInt(int64(p.Upper), 10))
		case Categorical:
			rec = append(rec, p.Categories...)
		case Constant:
			rec = append(rec, p.Const.String())
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func trimRecord(rec []string) []string {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	// drop trailing empty fields from ragged rows
	for len(rec) > 0 && rec[len(rec)-1] == "" {
		rec = rec[:len(rec)-1]
	}
	if len(rec) == 1 && rec[0] == "" {
		return nil
	}
	return rec
}

func parameterFromRecord(rec []string) (Parameter, error) {
	name := rec[0]
	rest := rec[1:]

	typ := ""
	switch strings.ToLower(strings.TrimSpace(firstOrEmpty(rest))) {
	case "real", "int", "integer", "cat", "bool", "const", "constant":
		typ = strings.ToLower(rest[0])
		rest = rest[1:]
	default:
		typ = inferType(rest)
	}

	switch typ {
	case "real":
		lo, hi, err := parseRange(name, rest)
		if err != nil {
			return Parameter{}, err
		}
		return NewReal(name, lo, hi)
	case "int", "integer":
		lo, hi, err := parseRange(name, rest)
		if err != nil {
			return Parameter{}, err
		}
		if lo != float64(int64(lo)) || hi != float64(int64(hi)) {
			return Parameter{}, fmt.Errorf("integer parameter %q has non-integral bounds", name)
		}
		return NewInteger(name, int64(lo), int64(hi))
	case "cat":
		return NewCategorical(name, rest)
	case "bool":
		return NewBoolean(name)
	case "const", "constant":
		if len(rest) != 1 {
			return Parameter{}, fmt.Errorf("constant %q needs exactly one value", name)
		}
		if f, err := strconv.ParseFloat(rest[0], 64); err == nil {
			return NewConstant(name, RealValue(f))
		}
		return NewConstant(name, CategoryValue(rest[0]))
	}
	return Parameter{}, fmt.Errorf("unknown parameter type %q", typ)
}

// inferType guesses a row's type from its values when no type column is
// present: two integral values form an integer range, two numeric values
// a real range, everything else a category set.
func inferType(values []string) string {
	if len(values) != 2 {
		return "cat"
	}
	integral := true
	for _, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "cat"
		}
		if f != float64(int64(f)) {
			integral = false
		}
	}
	// "1" and "9" without a type column read as an integer range; "0" and
	// "1.1" as a real range.
	for _, v := range values {
		if strings.ContainsAny(v, ".eE") {
			integral = false
		}
	}
	if integral {
		return "int"
	}
	return "real"
}

func parseRange(name string, values []string) (float64, float64, error) {
	if len(values) != 2 {
		return 0, 0, fmt.Errorf("parameter %q: range needs exactly 2 values, got %d", name, len(values))
	}
	lo, err := strconv.ParseFloat(values[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parameter %q: bad lower bound %q", name, values[0])
	}
	hi, err := strconv.ParseFloat(values[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parameter %q: bad upper bound %q", name, values[1])
	}
	return lo, hi, nil
}

func firstOrEmpty(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
