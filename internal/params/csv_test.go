package params

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestReadCSVTypedRows(t *testing.T) {
	in := `name,type,values
a_real,real,0,1.1
an_int,int,1,9
a_categorical,cat,a,b,c
a_bool,bool
fixed,const,42
`
	got, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 parameters, got %d", len(got))
	}
	if got[0].Kind != Real || got[0].Lower != 0 || got[0].Upper != 1.1 {
		t.Errorf("a_real parsed as %+v", got[0])
	}
	if got[1].Kind != Integer || got[1].Lower != 1 || got[1].Upper != 9 {
		t.Errorf("an_int parsed as %+v", got[1])
	}
	if got[2].Kind != Categorical || len(got[2].Categories) != 3 {
		t.Errorf("a_categorical parsed as %+v", got[2])
	}
	if got[3].Kind != Categorical || len(got[3].Categories) != 2 {
		t.Errorf("a_bool parsed as %+v", got[3])
	}
	if got[4].Kind != Constant || got[4].Const.Float() != 42 {
		t.Errorf("fixed parsed as %+v", got[4])
	}
}

func TestReadCSVInferredTypes(t *testing.T) {
	// No type column: integral pair -> int, mixed pair -> real,
	// anything else -> categories.
	in := `a_real,0,1.1
an_int,1,9
a_categorical,a,b,c
`
	got, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	kinds := []Kind{got[0].Kind, got[1].Kind, got[2].Kind}
	want := []Kind{Real, Integer, Categorical}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("inferred kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCSVRaggedRows(t *testing.T) {
	in := "a_real,real,0,1.1,,\nan_int,int,1,9\n"
	got, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 parameters, got %d", len(got))
	}
}

func TestReadCSVErrors(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty input")
	}
	if _, err := ReadCSV(strings.NewReader("bad,real,5,1\n")); err == nil {
		t.Fatal("expected error for inverted range")
	}
	if _, err := ReadCSV(strings.NewReader("bad,int,0.5,2\n")); err == nil {
		t.Fatal("expected error for fractional integer bound")
	}
}

func TestCSVRoundTrip(t *testing.T) {
	r, _ := NewReal("u", -2.5, 10)
	n, _ := NewInteger("k", 0, 4)
	c, _ := NewCategorical("mode", []string{"fast", "slow"})
	want := []Parameter{r, n, c}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, want); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	opts := cmp.Options{
		cmp.AllowUnexported(Value{}),
		cmpopts.EquateEmpty(),
	}
	if diff := cmp.Diff(want, got, opts); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
