package render

import (
	"fmt"
	"io"

	"git.sr.ht/~whereswaldon/watt-wealth/backend"
	"git.sr.ht/~whereswaldon/watt-wealth/units"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

func lineData(s *backend.Series) []opts.LineData {
	out := make([]opts.LineData, s.Len())
	for i := range out {
		out[i] = opts.LineData{Value: s.At(i)}
	}
	return out
}

func productionChart(d backend.Dataset) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Production and consumption",
			Subtitle: fmt.Sprintf("%s of solar forecast", units.KilowattHours.Format(d.TotalSolar())),
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: units.Kilowatts.String()}),
	)
	line.SetXAxis(d.Hours)
	for _, id := range []backend.SeriesID{backend.SeriesSolar, backend.SeriesLoad, backend.SeriesBattery, backend.SeriesGrid} {
		s := d.Get(id)
		line.AddSeries(s.Name(), lineData(s))
	}
	return line
}

func batteryChart(d backend.Dataset) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Battery & price"}),
		charts.WithYAxisOpts(opts.YAxis{Name: units.Percent.String()}),
	)
	line.ExtendYAxis(opts.YAxis{Name: units.EurosPerKWh.String()})
	soc := d.Get(backend.SeriesSoC)
	price := d.Get(backend.SeriesPrice)
	line.SetXAxis(d.Hours).
		AddSeries(soc.Name(), lineData(soc)).
		AddSeries(price.Name(), lineData(price), charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}))
	return line
}

func mixChart(s backend.Snapshot) *charts.Pie {
	mix := backend.EnergyMix(s.Now.Reading)
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Energy mix",
			Subtitle: fmt.Sprintf("%s green", units.Percent.Format(s.Now.GreenPercent)),
		}),
	)
	pie.AddSeries("mix", []opts.PieData{
		{Name: "Solar", Value: mix.Solar},
		{Name: "Battery", Value: mix.Battery},
		{Name: "Grid", Value: mix.Grid},
	})
	return pie
}

// Report writes an HTML page charting the forecast and present energy mix of
// s.
func Report(w io.Writer, s backend.Snapshot) error {
	d := s.Dataset()
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(
		productionChart(d),
		batteryChart(d),
		mixChart(s),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed rendering report: %w", err)
	}
	return nil
}
