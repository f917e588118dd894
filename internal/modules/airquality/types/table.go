package types

import (
	"slices"
	"time"
)

// Table is the validated, timestamp-sorted working dataset.
// It must not be modified after NewTable returns; derived results are copies.
type Table struct {
	rows    []Observation
	columns map[Column]bool
}

// NewTable takes ownership of rows, sorts them by time (ties keep their
// order) and records which columns the source provided.
func NewTable(rows []Observation, columns []Column) *Table {
	slices.SortStableFunc(rows, func(a, b Observation) int {
		return a.Time.Compare(b.Time)
	})
	set := make(map[Column]bool, len(columns))
	for _, c := range columns {
		set[c] = true
	}
	return &Table{rows: rows, columns: set}
}

// Len is the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns row i by pointer; callers must not modify it.
func (t *Table) Row(i int) *Observation {
	return &t.rows[i]
}

// Rows returns the backing rows; callers must not modify them.
func (t *Table) Rows() []Observation {
	return t.rows
}

// Has reports whether every col was present in the source.
func (t *Table) Has(cols ...Column) bool {
	for _, c := range cols {
		if !t.columns[c] {
			return false
		}
	}
	return true
}

// Missing returns the cols that the source did not provide, in argument order.
func (t *Table) Missing(cols ...Column) []Column {
	var out []Column
	for _, c := range cols {
		if !t.columns[c] {
			out = append(out, c)
		}
	}
	return out
}

// Columns returns the present columns in AllColumns order.
func (t *Table) Columns() []Column {
	out := make([]Column, 0, len(t.columns))
	for _, c := range AllColumns {
		if t.columns[c] {
			out = append(out, c)
		}
	}
	return out
}

// TimeRange returns the first and last timestamps; ok is false for an empty table.
func (t *Table) TimeRange() (first, last time.Time, ok bool) {
	if len(t.rows) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return t.rows[0].Time, t.rows[len(t.rows)-1].Time, true
}
