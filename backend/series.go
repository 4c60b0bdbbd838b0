package backend

import (
	"slices"

	"git.sr.ht/~whereswaldon/watt-wealth/units"
)

// Series is one hourly data set of the forecast.
type Series struct {
	name               string
	unit               units.Unit
	values             []float64
	rangeMin, rangeMax float64
	sum                float64
}

func NewSeries(name string, unit units.Unit, values []float64) *Series {
	s := &Series{
		name:   name,
		unit:   unit,
		values: slices.Clone(values),
	}
	for i, v := range s.values {
		if i == 0 {
			s.rangeMin, s.rangeMax = v, v
		}
		s.rangeMin = min(s.rangeMin, v)
		s.rangeMax = max(s.rangeMax, v)
		s.sum += v
	}
	return s
}

// constantSeries returns a series repeating v for every hour.
func constantSeries(name string, unit units.Unit, hours int, v float64) *Series {
	values := make([]float64, hours)
	for i := range values {
		values[i] = v
	}
	return NewSeries(name, unit, values)
}

func (s *Series) Name() string {
	return s.name
}

func (s *Series) Unit() units.Unit {
	return s.unit
}

func (s *Series) Len() int {
	return len(s.values)
}

func (s *Series) At(hour int) float64 {
	return s.values[hour]
}

func (s *Series) Values() []float64 {
	return slices.Clone(s.values)
}

// Range returns the smallest and largest value of the series.
func (s *Series) Range() (min, max float64) {
	return s.rangeMin, s.rangeMax
}

// Sum of all hourly values. For a power series in kW this is the energy in
// kWh over the forecast.
func (s *Series) Sum() float64 {
	return s.sum
}

// Between returns statistics about the half-open interval of hours
// [hourA,hourB). If hourB is less than hourA the interval [hourB,hourA) is
// used. Hours outside the series are ignored; ok is false when no hour of
// the interval is covered.
func (s *Series) Between(hourA, hourB int) (maximum, mean, minimum float64, ok bool) {
	if hourB < hourA {
		hourA, hourB = hourB, hourA
	}
	hourA = max(hourA, 0)
	hourB = min(hourB, len(s.values))
	if hourA >= hourB {
		return 0, 0, 0, false
	}
	values := s.values[hourA:hourB]
	maximum = values[0]
	minimum = values[0]
	for _, v := range values {
		mean += v
		maximum = max(maximum, v)
		minimum = min(minimum, v)
	}
	mean /= float64(len(values))
	return maximum, mean, minimum, true
}
