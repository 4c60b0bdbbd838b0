package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~whereswaldon/watt-wealth/flow"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Snapshot is the dashboard document: the present power flow, a 24 hour
// forecast and the figures shown around them.
type Snapshot struct {
	Now       Now        `json:"now" yaml:"now"`
	Forecast  Forecast   `json:"forecast" yaml:"forecast"`
	Savings   Savings    `json:"savings" yaml:"savings"`
	Battery   Health     `json:"battery" yaml:"battery"`
	Decisions []Decision `json:"decisions,omitempty" yaml:"decisions,omitempty"`
	Tips      []string   `json:"tips,omitempty" yaml:"tips,omitempty"`
}

type Now struct {
	flow.Reading  `yaml:",inline"`
	SavingPerHour float64 `json:"savingPerHour" yaml:"savingPerHour"`
	GreenPercent  float64 `json:"greenPercent" yaml:"greenPercent"`
}

// Forecast holds the hourly series as they appear in the document. Only
// Hours, GridPrices and Solar are required; see Snapshot.Dataset for the
// defaults of the others.
type Forecast struct {
	Hours        []string  `json:"hours" yaml:"hours"`
	GridPrices   []float64 `json:"gridPrices" yaml:"gridPrices"`
	Solar        []float64 `json:"solar" yaml:"solar"`
	Load         []float64 `json:"load,omitempty" yaml:"load,omitempty"`
	BatteryPower []float64 `json:"batteryPower,omitempty" yaml:"batteryPower,omitempty"`
	GridPower    []float64 `json:"gridPower,omitempty" yaml:"gridPower,omitempty"`
	SoC          []float64 `json:"soc,omitempty" yaml:"soc,omitempty"`
}

type Savings struct {
	Today    float64 `json:"today" yaml:"today"`
	Week     float64 `json:"week" yaml:"week"`
	Lifetime float64 `json:"lifetime" yaml:"lifetime"`
	CO2Kg    float64 `json:"co2Kg" yaml:"co2Kg"`
}

// Health describes the state of the home battery.
type Health struct {
	SoH       float64 `json:"soh" yaml:"soh"`
	Cycles    int     `json:"cycles" yaml:"cycles"`
	LifeYears float64 `json:"lifeYears" yaml:"lifeYears"`
}

// Decision is one entry of the explainable decision log.
type Decision struct {
	Period string `json:"period" yaml:"period"`
	Reason string `json:"reason" yaml:"reason"`
}

var errNoHours = errors.New("forecast has no hours")

// Validate checks that every present forecast series covers every hour.
func (s Snapshot) Validate() error {
	hours := len(s.Forecast.Hours)
	if hours == 0 {
		return errNoHours
	}
	required := map[string][]float64{
		"gridPrices": s.Forecast.GridPrices,
		"solar":      s.Forecast.Solar,
	}
	optional := map[string][]float64{
		"load":         s.Forecast.Load,
		"batteryPower": s.Forecast.BatteryPower,
		"gridPower":    s.Forecast.GridPower,
		"soc":          s.Forecast.SoC,
	}
	for name, series := range required {
		if len(series) != hours {
			return fmt.Errorf("forecast series %q has %d values for %d hours", name, len(series), hours)
		}
	}
	for name, series := range optional {
		if len(series) != 0 && len(series) != hours {
			return fmt.Errorf("forecast series %q has %d values for %d hours", name, len(series), hours)
		}
	}
	return nil
}

// Decode parses a snapshot document. YAML is accepted when yamlDoc is set,
// JSON otherwise.
func Decode(r io.Reader, yamlDoc bool) (Snapshot, error) {
	var s Snapshot
	if yamlDoc {
		if err := yaml.NewDecoder(r).Decode(&s); err != nil {
			return Snapshot{}, fmt.Errorf("failed decoding yaml snapshot: %w", err)
		}
	} else {
		if err := json.NewDecoder(r).Decode(&s); err != nil {
			return Snapshot{}, fmt.Errorf("failed decoding json snapshot: %w", err)
		}
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads the snapshot document at path.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed reading snapshot: %w", err)
	}
	return Decode(bytes.NewReader(data), isYAML(path))
}

// LoadOrFallback reads the snapshot at path, or returns the built-in
// snapshot if that is not possible. An empty path selects the built-in data
// silently.
func LoadOrFallback(path string) Snapshot {
	if path == "" {
		return Fallback()
	}
	s, err := Load(path)
	if err != nil {
		log.Warnf("mock data unavailable, using built-in snapshot: %v", err)
		return Fallback()
	}
	return s
}

// Fallback returns the built-in demo snapshot.
func Fallback() Snapshot {
	return Snapshot{
		Now: Now{
			Reading:       flow.Reading{Solar: 0.63, Battery: 86, Grid: 0.02, Home: 2.83},
			SavingPerHour: 0.18,
			GreenPercent:  77,
		},
		Forecast: Forecast{
			Hours: []string{
				"00", "01", "02", "03", "04", "05", "06", "07", "08", "09", "10", "11",
				"12", "13", "14", "15", "16", "17", "18", "19", "20", "21", "22", "23",
			},
			GridPrices: []float64{
				0.24, 0.22, 0.21, 0.20, 0.20, 0.19, 0.18, 0.16, 0.12, 0.10, 0.09, 0.10,
				0.12, 0.15, 0.18, 0.20, 0.22, 0.26, 0.28, 0.25, 0.22, 0.21, 0.23, 0.24,
			},
			Solar: []float64{
				0, 0, 0, 0, 0, 0.5, 1.2, 2.8, 3.2, 4.1, 4.6, 4.8,
				4.0, 3.2, 2.1, 1.0, 0.5, 0.2, 0, 0, 0, 0, 0, 0,
			},
		},
		Savings: Savings{Today: 3.2, Week: 15.4, Lifetime: 520, CO2Kg: 4.2},
		Battery: Health{SoH: 98, Cycles: 120, LifeYears: 8},
		Decisions: []Decision{
			{Period: "09:00 – 12:00", Reason: "Charge battery from solar surplus while grid prices are lowest."},
			{Period: "17:00 – 20:00", Reason: "Discharge battery to cover the evening peak price."},
			{Period: "00:00 – 06:00", Reason: "Hold charge; overnight prices are close to the daily average."},
		},
		Tips: []string{
			"Run the dishwasher between 10:00 and 12:00 when solar output peaks.",
			"Shift EV charging to late morning to use surplus solar.",
			"Avoid the oven between 17:00 and 19:00, the most expensive grid hours.",
		},
	}
}
