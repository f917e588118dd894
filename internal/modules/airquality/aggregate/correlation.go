package aggregate

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"airquality-dashboard/internal/modules/airquality/types"
)

// WeatherPollutionColumns are correlated by WeatherPollutionCorrelation.
var WeatherPollutionColumns = []types.Column{
	types.ColTemp, types.ColPressure, types.ColWindSpd, types.ColPM25, types.ColPM10,
}

// PollutantColumns are correlated by PollutantCorrelation.
var PollutantColumns = []types.Column{
	types.ColSO2, types.ColNO2, types.ColCO, types.ColO3,
}

// WeatherPollutionCorrelation correlates temperature, pressure and wind speed with PM levels.
func WeatherPollutionCorrelation(t *types.Table) (*types.CorrelationMatrix, error) {
	return Correlation(t, WeatherPollutionColumns)
}

// PollutantCorrelation correlates SO2, NO2, CO and O3.
func PollutantCorrelation(t *types.Table) (*types.CorrelationMatrix, error) {
	return Correlation(t, PollutantColumns)
}

// Correlation computes the pairwise-complete Pearson matrix over cols: each
// pair only uses rows where both values are present. Pairs with fewer than
// two complete rows or a constant side are NaN. The diagonal is 1 for columns
// with nonzero variance.
func Correlation(t *types.Table, cols []types.Column) (*types.CorrelationMatrix, error) {
	var bad []types.Column
	for _, c := range cols {
		if !types.IsNumeric(c) || !t.Has(c) {
			bad = append(bad, c)
		}
	}
	if len(bad) > 0 {
		return nil, types.MissingColumns(bad...)
	}

	n := len(cols)
	vectors := make([][]*float64, n)
	for i, c := range cols {
		vectors[i] = make([]*float64, t.Len())
		for r := range t.Rows() {
			vectors[i][r], _ = t.Row(r).Value(c)
		}
	}

	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		values[i][i] = selfCorrelation(vectors[i])
		for j := i + 1; j < n; j++ {
			x, y := completePairs(vectors[i], vectors[j])
			r := pearson(x, y)
			values[i][j] = r
			values[j][i] = r
		}
	}

	return &types.CorrelationMatrix{
		Columns: append([]types.Column(nil), cols...),
		Values:  values,
	}, nil
}

func completePairs(a, b []*float64) (x, y []float64) {
	for k := range a {
		if a[k] == nil || b[k] == nil {
			continue
		}
		x = append(x, *a[k])
		y = append(y, *b[k])
	}
	return x, y
}

func selfCorrelation(v []*float64) float64 {
	var x []float64
	for _, p := range v {
		if p != nil {
			x = append(x, *p)
		}
	}
	if len(x) < 2 || constant(x) {
		return math.NaN()
	}
	return 1
}

func pearson(x, y []float64) float64 {
	if len(x) < 2 || constant(x) || constant(y) {
		return math.NaN()
	}
	r := stat.Correlation(x, y, nil)
	// rounding can push |r| slightly past 1
	return math.Max(-1, math.Min(1, r))
}

func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}
