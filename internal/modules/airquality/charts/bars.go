package charts

import (
	"fmt"
	"io"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"airquality-dashboard/internal/modules/airquality/types"
)

// StationAverages draws grouped bars: one group per station, one bar per
// pollutant. Stations without a value for a pollutant get a zero-height bar.
func StationAverages(w io.Writer, avg *types.StationAverages, pal Palette) error {
	p := newPlot("Average pollutant level by station", "Station", "Mean (µg/m³)")

	names := make([]string, len(avg.Rows))
	for i, r := range avg.Rows {
		names[i] = r.Station
	}

	k := len(avg.Pollutants)
	barWidth := vg.Points(36 / float64(max(k, 1)))
	for j, pollutant := range avg.Pollutants {
		values := make(plotter.Values, len(avg.Rows))
		for i := range avg.Rows {
			if v := avg.Rows[i].Means[j]; v != nil {
				values[i] = *v
			}
		}
		bars, err := plotter.NewBarChart(values, barWidth)
		if err != nil {
			return fmt.Errorf("bars %s: %w", pollutant, err)
		}
		bars.LineStyle.Width = 0
		bars.Color = pal.color(j)
		bars.Offset = barWidth * vg.Length(float64(j)-float64(k-1)/2)
		p.Add(bars)
		p.Legend.Add(string(pollutant), bars)
	}
	p.Legend.Top = true
	p.NominalX(names...)
	if len(names) > 8 {
		p.X.Tick.Label.Rotation = 0.8
		p.X.Tick.Label.XAlign = -1
	}

	return render(w, p, width, height)
}
