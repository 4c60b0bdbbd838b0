package units

import (
	"math"
	"strconv"
)

type Unit uint8

func (u Unit) String() string {
	switch u {
	case Kilowatts:
		return "kW"
	case KilowattHours:
		return "kWh"
	case Percent:
		return "%"
	case EurosPerKWh:
		return "€/kWh"
	case Euros:
		return "€"
	case Kilograms:
		return "kg"
	default:
		return "?"
	}
}

const (
	Kilowatts Unit = iota
	KilowattHours
	Percent
	EurosPerKWh
	Euros
	Kilograms
	Unknown
)

// Heading formats a column or axis heading the way trace and export files
// name their columns, e.g. "solar (kW)".
func (u Unit) Heading(name string) string {
	return name + " (" + u.String() + ")"
}

// Format renders v for display next to a node or KPI. Power is shown with two
// decimals, charge levels are rounded to whole percent and money is prefixed
// with the currency sign.
func (u Unit) Format(v float64) string {
	switch u {
	case Kilowatts, KilowattHours:
		return strconv.FormatFloat(v, 'f', 2, 64) + " " + u.String()
	case Percent:
		return strconv.Itoa(int(math.Round(v))) + "%"
	case EurosPerKWh:
		return "€" + strconv.FormatFloat(v, 'f', 2, 64) + "/kWh"
	case Euros:
		return "€" + strconv.FormatFloat(v, 'f', 2, 64)
	case Kilograms:
		return strconv.FormatFloat(v, 'f', -1, 64) + " kg"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}
