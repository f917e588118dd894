package aggregate

import (
	"airquality-dashboard/internal/modules/airquality/types"
)

// StationAverages computes the mean of each requested pollutant per station,
// ordered by station. Missing values are skipped; a station without any value
// for a pollutant gets a nil mean.
func StationAverages(t *types.Table, pollutants []types.Column) (*types.StationAverages, error) {
	var bad []types.Column
	if !t.Has(types.ColStation) {
		bad = append(bad, types.ColStation)
	}
	for _, p := range pollutants {
		if !types.IsNumeric(p) || !t.Has(p) {
			bad = append(bad, p)
		}
	}
	if len(bad) > 0 {
		return nil, types.MissingColumns(bad...)
	}

	groups := make(map[string][][]float64)
	for i := range t.Rows() {
		o := t.Row(i)
		g, ok := groups[o.Station]
		if !ok {
			g = make([][]float64, len(pollutants))
			groups[o.Station] = g
		}
		for k, p := range pollutants {
			if v, _ := o.Value(p); v != nil {
				g[k] = append(g[k], *v)
			}
		}
	}

	out := &types.StationAverages{
		Pollutants: append([]types.Column(nil), pollutants...),
		Rows:       make([]types.StationAverage, 0, len(groups)),
	}
	for _, station := range sortedKeys(groups) {
		g := groups[station]
		means := make([]*float64, len(pollutants))
		for k := range pollutants {
			means[k] = mean(g[k])
		}
		out.Rows = append(out.Rows, types.StationAverage{Station: station, Means: means})
	}
	return out, nil
}

// TemperatureExtremes finds the coldest and warmest hour per station.
// The earliest hour wins ties.
func TemperatureExtremes(t *types.Table) ([]types.TemperatureExtreme, error) {
	if err := requireColumns(t, types.ColStation, types.ColTemp); err != nil {
		return nil, err
	}

	groups := make(map[string]*types.TemperatureExtreme)
	for i := range t.Rows() {
		o := t.Row(i)
		g, ok := groups[o.Station]
		if !ok {
			g = &types.TemperatureExtreme{Station: o.Station}
			groups[o.Station] = g
		}
		if o.Temp == nil {
			continue
		}
		v := *o.Temp
		if g.Min == nil || v < g.Min.Value {
			g.Min = &types.Extreme{Value: v, Time: o.Time}
		}
		if g.Max == nil || v > g.Max.Value {
			g.Max = &types.Extreme{Value: v, Time: o.Time}
		}
	}

	out := make([]types.TemperatureExtreme, 0, len(groups))
	for _, station := range sortedKeys(groups) {
		out = append(out, *groups[station])
	}
	return out, nil
}

// RainfallMaxima finds the wettest hour and the rainfall total per station.
func RainfallMaxima(t *types.Table) ([]types.RainfallMax, error) {
	if err := requireColumns(t, types.ColStation, types.ColRain); err != nil {
		return nil, err
	}

	groups := make(map[string]*types.RainfallMax)
	for i := range t.Rows() {
		o := t.Row(i)
		g, ok := groups[o.Station]
		if !ok {
			g = &types.RainfallMax{Station: o.Station}
			groups[o.Station] = g
		}
		if o.Rain == nil {
			continue
		}
		g.Total += *o.Rain
		if g.Max == nil || *o.Rain > g.Max.Value {
			g.Max = &types.Extreme{Value: *o.Rain, Time: o.Time}
		}
	}

	out := make([]types.RainfallMax, 0, len(groups))
	for _, station := range sortedKeys(groups) {
		out = append(out, *groups[station])
	}
	return out, nil
}
