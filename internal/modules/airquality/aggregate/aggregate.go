// Package aggregate derives summary tables from a validated table.
// Every function is pure: the input table is only read and results are fresh values.
package aggregate

import (
	"maps"
	"slices"

	"gonum.org/v1/gonum/stat"

	"airquality-dashboard/internal/modules/airquality/types"
)

// mean is the arithmetic mean of the present values, nil when there are none.
func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	m := stat.Mean(values, nil)
	return &m
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// requireColumns returns MissingColumn naming every absent col.
func requireColumns(t *types.Table, cols ...types.Column) error {
	if missing := t.Missing(cols...); len(missing) > 0 {
		return types.MissingColumns(missing...)
	}
	return nil
}
