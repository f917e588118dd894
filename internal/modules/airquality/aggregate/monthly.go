package aggregate

import (
	"slices"
	"strings"
	"time"

	"airquality-dashboard/internal/modules/airquality/types"
)

type monthKey struct {
	station string
	month   time.Time
}

type pmValues struct {
	pm25 []float64
	pm10 []float64
}

// MonthlyPMTrend averages PM2.5 and PM10 per station and calendar month,
// ordered by station then month. The month comes from the year/month/day/hour
// columns when the source has them (rows with impossible parts are skipped),
// otherwise from the validated timestamp.
func MonthlyPMTrend(t *types.Table) ([]types.MonthlyMean, error) {
	if err := requireColumns(t, types.ColStation, types.ColPM25, types.ColPM10); err != nil {
		return nil, err
	}
	useParts := t.Has(types.ColYear, types.ColMonth, types.ColDay, types.ColHour)

	groups := make(map[monthKey]*pmValues)
	for _, o := range t.Rows() {
		ts := o.Time
		if useParts {
			pt, ok := o.PartsTime()
			if !ok {
				continue
			}
			ts = pt
		}
		key := monthKey{
			station: o.Station,
			month:   time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC),
		}
		g, ok := groups[key]
		if !ok {
			g = &pmValues{}
			groups[key] = g
		}
		if o.PM25 != nil {
			g.pm25 = append(g.pm25, *o.PM25)
		}
		if o.PM10 != nil {
			g.pm10 = append(g.pm10, *o.PM10)
		}
	}

	out := make([]types.MonthlyMean, 0, len(groups))
	for key, g := range groups {
		out = append(out, types.MonthlyMean{
			Station: key.station,
			Month:   key.month,
			PM25:    mean(g.pm25),
			PM10:    mean(g.pm10),
		})
	}
	slices.SortFunc(out, func(a, b types.MonthlyMean) int {
		if c := strings.Compare(a.Station, b.Station); c != 0 {
			return c
		}
		return a.Month.Compare(b.Month)
	})
	return out, nil
}
