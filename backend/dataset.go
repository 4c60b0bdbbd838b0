package backend

import (
	"slices"

	"git.sr.ht/~whereswaldon/watt-wealth/units"
)

// SeriesID names the series of a Dataset.
type SeriesID int

const (
	SeriesSolar SeriesID = iota
	SeriesLoad
	SeriesBattery
	SeriesGrid
	SeriesPrice
	SeriesSoC
	numSeries
)

// Defaults for forecast series the document may leave out.
const (
	DefaultLoad         = 1.2
	DefaultBatteryPower = 0.0
	DefaultGridPower    = 0.1
)

// Dataset is the forecast with every series present, ready for charting and
// aggregation.
type Dataset struct {
	Hours  []string
	Series []*Series
}

// Dataset expands the forecast of s, filling optional series with their
// defaults. A missing SoC forecast repeats the present charge level.
func (s Snapshot) Dataset() Dataset {
	f := s.Forecast
	hours := len(f.Hours)
	optional := func(name string, unit units.Unit, values []float64, fallback float64) *Series {
		if len(values) == 0 {
			return constantSeries(name, unit, hours, fallback)
		}
		return NewSeries(name, unit, values)
	}
	d := Dataset{
		Hours:  slices.Clone(f.Hours),
		Series: make([]*Series, numSeries),
	}
	d.Series[SeriesSolar] = NewSeries("Solar", units.Kilowatts, f.Solar)
	d.Series[SeriesLoad] = optional("Load", units.Kilowatts, f.Load, DefaultLoad)
	d.Series[SeriesBattery] = optional("Battery", units.Kilowatts, f.BatteryPower, DefaultBatteryPower)
	d.Series[SeriesGrid] = optional("Grid", units.Kilowatts, f.GridPower, DefaultGridPower)
	d.Series[SeriesPrice] = NewSeries("Price", units.EurosPerKWh, f.GridPrices)
	d.Series[SeriesSoC] = optional("Battery SoC", units.Percent, f.SoC, s.Now.Battery)
	return d
}

func (d Dataset) Get(id SeriesID) *Series {
	return d.Series[id]
}

// Initialized reports whether the dataset holds any hours.
func (d Dataset) Initialized() bool {
	return len(d.Hours) != 0 && len(d.Series) != 0
}

// TotalSolar is the forecast solar production in kWh.
func (d Dataset) TotalSolar() float64 {
	return d.Get(SeriesSolar).Sum()
}

// HourValue is the value of a series at one hour.
type HourValue struct {
	Index int
	Hour  string
	Value float64
}

// CheapestHours returns up to n hours ordered by ascending grid price. Hours
// with equal prices keep their chronological order.
func (d Dataset) CheapestHours(n int) []HourValue {
	prices := d.Get(SeriesPrice)
	out := make([]HourValue, prices.Len())
	for i := range out {
		out[i] = HourValue{Index: i, Hour: d.Hours[i], Value: prices.At(i)}
	}
	slices.SortStableFunc(out, func(a, b HourValue) int {
		switch {
		case a.Value < b.Value:
			return -1
		case a.Value > b.Value:
			return 1
		}
		return 0
	})
	return out[:max(0, min(n, len(out)))]
}

// Peak returns the hour at which the series reaches its maximum. The first
// such hour wins.
func (d Dataset) Peak(id SeriesID) (HourValue, bool) {
	s := d.Get(id)
	if s.Len() == 0 {
		return HourValue{}, false
	}
	best := HourValue{Index: 0, Hour: d.Hours[0], Value: s.At(0)}
	for i := 1; i < s.Len(); i++ {
		if v := s.At(i); v > best.Value {
			best = HourValue{Index: i, Hour: d.Hours[i], Value: v}
		}
	}
	return best, true
}
