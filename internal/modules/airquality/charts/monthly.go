package charts

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"airquality-dashboard/internal/modules/airquality/types"
)

// MonthlyPM draws one line per station of the monthly mean of pollutant,
// which must be PM2.5 or PM10. Months without a mean leave a gap in the point list.
func MonthlyPM(w io.Writer, rows []types.MonthlyMean, pollutant types.Column, pal Palette) error {
	if pollutant != types.ColPM25 && pollutant != types.ColPM10 {
		return fmt.Errorf("%w: monthly trend is available for PM2.5 and PM10, not %s", types.ErrMissingColumn, pollutant)
	}

	p := newPlot("Monthly mean "+string(pollutant)+" by station", "Month", string(pollutant)+" (µg/m³)")
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	// rows arrive ordered by station, then month
	var (
		station string
		points  plotter.XYs
		series  int
	)
	flush := func() error {
		if len(points) == 0 {
			return nil
		}
		line, err := plotter.NewLine(points)
		if err != nil {
			return fmt.Errorf("line %s: %w", station, err)
		}
		line.Color = pal.color(series)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(station, line)
		series++
		return nil
	}

	for _, r := range rows {
		if r.Station != station {
			if err := flush(); err != nil {
				return err
			}
			station, points = r.Station, nil
		}
		v := r.PM25
		if pollutant == types.ColPM10 {
			v = r.PM10
		}
		if v == nil {
			continue
		}
		points = append(points, plotter.XY{X: float64(r.Month.Unix()), Y: *v})
	}
	if err := flush(); err != nil {
		return err
	}

	return render(w, p, width, height)
}
