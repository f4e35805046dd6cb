package params

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Value is one concrete setting for a parameter: a number or a category
// label. Values pass through scenario and policy maps as explicit data,
// never as reflected interface values, so adapters can marshal them
// without type switches over arbitrary Go types.
type Value struct {
	num   float64
	cat   string
	isCat bool
}

// RealValue wraps a float.
func RealValue(v float64) Value { return Value{num: v} }

// IntValue wraps an integer.
func IntValue(v int64) Value { return Value{num: float64(v)} }

// CategoryValue wraps a category label.
func CategoryValue(c string) Value { return Value{cat: c, isCat: true} }

// BoolValue wraps a boolean as its canonical category label.
func BoolValue(b bool) Value { return CategoryValue(strconv.FormatBool(b)) }

// IsCategory reports whether the value is a category label rather than a
// number.
func (v Value) IsCategory() bool { return v.isCat }

// Float returns the numeric value. Zero for category values.
func (v Value) Float() float64 { return v.num }

// Int returns the numeric value truncated to an integer.
func (v Value) Int() int64 { return int64(math.Trunc(v.num)) }

// Category returns the category label. Empty for numeric values.
func (v Value) Category() string { return v.cat }

// Equal reports value equality across both representations.
func (v Value) Equal(o Value) bool {
	if v.isCat != o.isCat {
		return false
	}
	if v.isCat {
		return v.cat == o.cat
	}
	return v.num == o.num
}

// String renders the value the way CSV output and logs show it.
func (v Value) String() string {
	if v.isCat {
		return v.cat
	}
	if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1e15 {
		return strconv.FormatInt(int64(v.num), 10)
	}
	return strconv.FormatFloat(v.num, 'g', -1, 64)
}

// MarshalJSON encodes numbers as JSON numbers and categories as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isCat {
		return json.Marshal(v.cat)
	}
	return json.Marshal(v.num)
}

// UnmarshalJSON accepts a JSON number, string, or bool.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case float64:
		*v = RealValue(t)
	case string:
		*v = CategoryValue(t)
	case bool:
		*v = BoolValue(t)
	default:
		return fmt.Errorf("value must be a number, string, or bool, got %T", raw)
	}
	return nil
}
