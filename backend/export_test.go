package backend

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteForecastCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteForecastCSV(&buf, Fallback().Dataset()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 25 {
		t.Fatalf("expected 25 lines, got %d", len(lines))
	}
	header := "hour,solar (kW),load (kW),battery (kW),grid (kW),price (€/kWh),soc (%)"
	if lines[0] != header {
		t.Errorf("expected header %q, got %q", header, lines[0])
	}
	if lines[11] != "10,4.6,1.2,0,0.1,0.09,86" {
		t.Errorf("unexpected row for hour 10: %q", lines[11])
	}
}
