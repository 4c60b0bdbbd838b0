package units

import "testing"

func TestFormat(t *testing.T) {
	for _, tc := range []struct {
		unit     Unit
		value    float64
		expected string
	}{
		{unit: Kilowatts, value: 0.63, expected: "0.63 kW"},
		{unit: Kilowatts, value: 2.8333, expected: "2.83 kW"},
		{unit: KilowattHours, value: 32.2, expected: "32.20 kWh"},
		{unit: Percent, value: 85.6, expected: "86%"},
		{unit: Percent, value: 0, expected: "0%"},
		{unit: Euros, value: 3.2, expected: "€3.20"},
		{unit: EurosPerKWh, value: 0.09, expected: "€0.09/kWh"},
		{unit: Kilograms, value: 4.2, expected: "4.2 kg"},
		{unit: Unknown, value: 1.5, expected: "1.5"},
	} {
		if got := tc.unit.Format(tc.value); got != tc.expected {
			t.Errorf("expected %v.Format(%v) to be %q, got %q", tc.unit, tc.value, tc.expected, got)
		}
	}
}

func TestHeading(t *testing.T) {
	if got := Kilowatts.Heading("solar"); got != "solar (kW)" {
		t.Errorf("expected %q, got %q", "solar (kW)", got)
	}
	if got := Unit(200).Heading("x"); got != "x (?)" {
		t.Errorf("expected unknown unit heading, got %q", got)
	}
}
