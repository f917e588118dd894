// Package filter selects observation rows by station, year, season and time range.
package filter

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"time"

	"airquality-dashboard/internal/modules/airquality/types"
)

// Selection is either every value (the zero Selection) or an explicit set.
// An explicit empty set matches nothing.
type Selection[T comparable] struct {
	set map[T]struct{}
}

// Only returns an explicit selection of vs.
func Only[T comparable](vs ...T) Selection[T] {
	set := make(map[T]struct{}, len(vs))
	for _, v := range vs {
		set[v] = struct{}{}
	}
	return Selection[T]{set: set}
}

// All reports whether the selection matches every value.
func (s Selection[T]) All() bool {
	return s.set == nil
}

// Contains reports whether v passes the selection.
func (s Selection[T]) Contains(v T) bool {
	if s.set == nil {
		return true
	}
	_, ok := s.set[v]
	return ok
}

// Len is the size of an explicit selection, -1 for All.
func (s Selection[T]) Len() int {
	if s.set == nil {
		return -1
	}
	return len(s.set)
}

// TimeRange is inclusive on both ends. A zero bound is open.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func (r TimeRange) contains(ts time.Time) bool {
	if !r.Start.IsZero() && ts.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && ts.After(r.End) {
		return false
	}
	return true
}

// Validate returns ErrInvalidRange when both bounds are set and Start is after End.
func (r TimeRange) Validate() error {
	if !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End) {
		return fmt.Errorf("%w: start %s is after end %s", types.ErrInvalidRange,
			r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
	}
	return nil
}

// Spec is a conjunction of predicates. The zero Spec matches every row.
type Spec struct {
	Stations Selection[string]
	Years    Selection[int]
	Seasons  Selection[string]
	Range    TimeRange
}

// Result is the filtered rows in table order.
type Result struct {
	Rows  []types.Observation
	Count int
}

// Apply returns the rows of t that satisfy every predicate in spec.
func Apply(t *types.Table, spec Spec) (Result, error) {
	if err := spec.Range.Validate(); err != nil {
		return Result{}, err
	}

	rows := make([]types.Observation, 0, t.Len())
	for _, o := range t.Rows() {
		if !spec.Stations.Contains(o.Station) ||
			!spec.Years.Contains(o.Year) ||
			!spec.Seasons.Contains(o.Season) ||
			!spec.Range.contains(o.Time) {
			continue
		}
		rows = append(rows, o)
	}
	return Result{Rows: rows, Count: len(rows)}, nil
}

// Options are the distinct values observed in a table, used to build filter widgets.
type Options struct {
	Stations []string  `json:"stations"`
	Years    []int     `json:"years"`
	Seasons  []string  `json:"seasons"`
	First    time.Time `json:"first"`
	Last     time.Time `json:"last"`
}

// ObservedOptions collects the sorted distinct stations, years and seasons of t.
func ObservedOptions(t *types.Table) Options {
	stations := map[string]struct{}{}
	years := map[int]struct{}{}
	seasons := map[string]struct{}{}
	for _, o := range t.Rows() {
		stations[o.Station] = struct{}{}
		years[o.Year] = struct{}{}
		if o.Season != "" {
			seasons[o.Season] = struct{}{}
		}
	}
	opts := Options{
		Stations: slices.Sorted(maps.Keys(stations)),
		Years:    slices.Sorted(maps.Keys(years)),
		Seasons:  slices.SortedFunc(maps.Keys(seasons), compareSeasons),
	}
	opts.First, opts.Last, _ = t.TimeRange()
	return opts
}

// Defaults selects every observed value and the full observed range.
func Defaults(t *types.Table) Spec {
	opts := ObservedOptions(t)
	spec := Spec{
		Stations: Only(opts.Stations...),
		Years:    Only(opts.Years...),
		Seasons:  Only(opts.Seasons...),
		Range:    TimeRange{Start: opts.First, End: opts.Last},
	}
	// rows without a season label would otherwise fall outside the default
	if hasBlankSeason(t) {
		spec.Seasons.set[""] = struct{}{}
	}
	return spec
}

func hasBlankSeason(t *types.Table) bool {
	for _, o := range t.Rows() {
		if o.Season == "" {
			return true
		}
	}
	return false
}

var seasonOrder = map[string]int{"Spring": 1, "Summer": 2, "Autumn": 3, "Winter": 4}

func compareSeasons(a, b string) int {
	oa, ob := seasonOrder[a], seasonOrder[b]
	switch {
	case oa != 0 && ob != 0:
		return oa - ob
	case oa != 0:
		return -1
	case ob != 0:
		return 1
	}
	return cmp.Compare(a, b)
}
