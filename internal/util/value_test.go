package util

import (
	"errors"
	"testing"
)

func TestParseCellValue(t *testing.T) {
	cases := []struct {
		input     string
		magnitude float64
		unit      string
	}{
		{"45 MPa", 45, "MPa"},
		{"210 °C", 210, "°C"},
		{"1.24 g/cm³", 1.24, "g/cm³"},
		{"-12.5", -12.5, ""},
		{"+3.2 GPa", 3.2, "GPa"},
		{"1.5e3 Pa", 1500, "Pa"},
		{"  42  ", 42, ""},
		{"approx. 45 MPa", 45, "MPa"},
	}

	for _, c := range cases {
		parsed, err := ParseCellValue(c.input)
		if err != nil {
			t.Fatalf("%q: %v", c.input, err)
		}
		if parsed.Magnitude != c.magnitude {
			t.Fatalf("%q: magnitude=%v want %v", c.input, parsed.Magnitude, c.magnitude)
		}
		if parsed.Unit != c.unit {
			t.Fatalf("%q: unit=%q want %q", c.input, parsed.Unit, c.unit)
		}
	}
}

func TestParseCellValueRejectsNonNumeric(t *testing.T) {
	for _, input := range []string{"Hot", "", "   ", "N/A", "---"} {
		if _, err := ParseCellValue(input); !errors.Is(err, ErrUnparsableValue) {
			t.Fatalf("%q: expected ErrUnparsableValue, got %v", input, err)
		}
	}
}

func TestSlugKey(t *testing.T) {
	cases := map[string]string{
		"Print Temperature":   "print_temperature",
		"  Layer Height (mm)": "layer_height_mm",
		"UTS":                 "uts",
		"a--b__c":             "a_b_c",
	}
	for input, want := range cases {
		if got := SlugKey(input); got != want {
			t.Fatalf("SlugKey(%q)=%q want %q", input, got, want)
		}
	}
}
