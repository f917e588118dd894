package controller

import (
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"

	"airquality-dashboard/internal/modules/airquality/charts"
	"airquality-dashboard/internal/modules/airquality/filter"
	"airquality-dashboard/internal/modules/airquality/loader"
	"airquality-dashboard/internal/modules/airquality/types"
	"airquality-dashboard/internal/modules/airquality/views"
)

const (
	tablePageSize = 50
	defaultLimit  = 100
	maxLimit      = 1000

	// layout of <input type="datetime-local">
	inputLayout = "2006-01-02T15:04"
)

// filterKeys are the query parameters that describe a filter.
var filterKeys = []string{"filter", "station", "year", "season", "from", "to"}

// explicitFilter reports whether the request carries a complete filter form,
// in which case an absent dimension means nothing is selected.
func explicitFilter(q url.Values) bool {
	switch q.Get("filter") {
	case "1", "true":
		return true
	}
	return false
}

// listParam collects repeated and comma-separated values of key.
func listParam(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func parseFilterQuery(q url.Values) (filter.Spec, error) {
	var spec filter.Spec
	explicit := explicitFilter(q)

	if vs := listParam(q, "station"); len(vs) > 0 || explicit {
		spec.Stations = filter.Only(vs...)
	}
	if vs := listParam(q, "season"); len(vs) > 0 || explicit {
		spec.Seasons = filter.Only(vs...)
	}
	if vs := listParam(q, "year"); len(vs) > 0 || explicit {
		years := make([]int, 0, len(vs))
		for _, v := range vs {
			y, err := strconv.Atoi(v)
			if err != nil {
				return filter.Spec{}, fmt.Errorf("invalid 'year' %q (expected integer)", v)
			}
			years = append(years, y)
		}
		spec.Years = filter.Only(years...)
	}

	var err error
	if spec.Range.Start, err = parseTimeParam(q, "from"); err != nil {
		return filter.Spec{}, err
	}
	if spec.Range.End, err = parseTimeParam(q, "to"); err != nil {
		return filter.Spec{}, err
	}
	// a minute-precision end covers its whole minute
	if !spec.Range.End.IsZero() && minutePrecision(q.Get("to")) {
		spec.Range.End = spec.Range.End.Add(time.Minute - time.Nanosecond)
	}
	if err := spec.Range.Validate(); err != nil {
		return filter.Spec{}, err
	}
	return spec, nil
}

func parseTimeParam(q url.Values, key string) (time.Time, error) {
	s := strings.TrimSpace(q.Get(key))
	if s == "" {
		return time.Time{}, nil
	}
	t, err := loader.ParseTimestamp(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid '%s' (expected RFC3339 or YYYY-MM-DDTHH:MM)", key)
	}
	return t, nil
}

// minutePrecision reports whether s is a timestamp without seconds.
func minutePrecision(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range []string{inputLayout, "2006-01-02 15:04", "2006/01/02 15:04"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// encodeFilter keeps only the filter parameters of q.
func encodeFilter(q url.Values) template.URL {
	kept := url.Values{}
	for _, k := range filterKeys {
		if vs, ok := q[k]; ok {
			kept[k] = vs
		}
	}
	return template.URL(kept.Encode())
}

// parsePage returns the 1-based page number from the request (default 1, min 1).
func parsePage(q url.Values) int {
	s := q.Get("page")
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func parseLimit(q url.Values) (int, error) {
	s := q.Get("limit")
	if s == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid 'limit' (expected integer)")
	}
	if n <= 0 {
		return 0, errors.New("'limit' must be > 0")
	}
	if n > maxLimit {
		return 0, fmt.Errorf("'limit' must be <= %d", maxLimit)
	}
	return n, nil
}

// parsePollutants defaults to every pollutant.
func parsePollutants(q url.Values) []types.Column {
	vs := listParam(q, "pollutant")
	if len(vs) == 0 {
		return types.Pollutants
	}
	out := make([]types.Column, len(vs))
	for i, v := range vs {
		out[i] = types.Column(v)
	}
	return out
}

func parsePalette(q url.Values) (charts.Palette, error) {
	return charts.ParsePalette(q.Get("palette"))
}

// pageBounds clamps page into [1, totalPages] and returns the slice bounds for it.
func pageBounds(n, page, size int) (start, end, current, totalPages int) {
	totalPages = (n + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	current = min(max(page, 1), totalPages)
	start = min((current-1)*size, n)
	end = min(start+size, n)
	return start, end, current, totalPages
}

// buildPageItems returns page numbers and ellipsis for the pagination bar.
func buildPageItems(totalPages, currentPage int) []views.PaginationItem {
	if totalPages <= 0 {
		return nil
	}
	const window = 2
	show := map[int]bool{1: true, totalPages: true}
	for p := currentPage - window; p <= currentPage+window; p++ {
		if p >= 1 && p <= totalPages {
			show[p] = true
		}
	}
	var items []views.PaginationItem
	prev := 0
	for p := 1; p <= totalPages; p++ {
		if !show[p] {
			continue
		}
		if prev != 0 && p > prev+1 {
			items = append(items, views.PaginationItem{Ellipsis: true})
		}
		items = append(items, views.PaginationItem{Page: p})
		prev = p
	}
	return items
}

func inputTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(inputLayout)
}

func filterForm(opts filter.Options, spec filter.Spec) views.FilterForm {
	form := views.FilterForm{
		From: inputTime(opts.First),
		To:   inputTime(opts.Last),
		Min:  inputTime(opts.First),
		Max:  inputTime(opts.Last),
	}
	if !spec.Range.Start.IsZero() {
		form.From = inputTime(spec.Range.Start)
	}
	if !spec.Range.End.IsZero() {
		form.To = inputTime(spec.Range.End)
	}
	for _, s := range opts.Stations {
		form.Stations = append(form.Stations, views.Choice{Value: s, Label: s, Selected: spec.Stations.Contains(s)})
	}
	for _, y := range opts.Years {
		v := strconv.Itoa(y)
		form.Years = append(form.Years, views.Choice{Value: v, Label: v, Selected: spec.Years.Contains(y)})
	}
	for _, s := range opts.Seasons {
		form.Seasons = append(form.Seasons, views.Choice{Value: s, Label: s, Selected: spec.Seasons.Contains(s)})
	}
	return form
}
