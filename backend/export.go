package backend

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"git.sr.ht/~whereswaldon/watt-wealth/units"
)

var exportColumns = []SeriesID{SeriesSolar, SeriesLoad, SeriesBattery, SeriesGrid, SeriesPrice, SeriesSoC}

var exportHeadings = []string{
	"hour",
	units.Kilowatts.Heading("solar"),
	units.Kilowatts.Heading("load"),
	units.Kilowatts.Heading("battery"),
	units.Kilowatts.Heading("grid"),
	units.EurosPerKWh.Heading("price"),
	units.Percent.Heading("soc"),
}

// WriteForecastCSV writes one row per forecast hour.
func WriteForecastCSV(w io.Writer, d Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeadings); err != nil {
		return fmt.Errorf("failed writing forecast headings: %w", err)
	}
	record := make([]string, len(exportHeadings))
	for hour, label := range d.Hours {
		record[0] = label
		for col, id := range exportColumns {
			record[col+1] = strconv.FormatFloat(d.Get(id).At(hour), 'f', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed writing forecast hour %s: %w", label, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
