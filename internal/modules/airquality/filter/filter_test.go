package filter

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"airquality-dashboard/internal/modules/airquality/types"
)

func row(station string, ts time.Time, season string) types.Observation {
	return types.Observation{
		Station: station,
		Time:    ts,
		Year:    ts.Year(),
		Month:   int(ts.Month()),
		Day:     ts.Day(),
		Hour:    ts.Hour(),
		Season:  season,
	}
}

func sample() *types.Table {
	return types.NewTable([]types.Observation{
		row("A", time.Date(2013, 3, 1, 0, 0, 0, 0, time.UTC), "Spring"),
		row("B", time.Date(2013, 3, 1, 0, 0, 0, 0, time.UTC), "Spring"),
		row("A", time.Date(2013, 7, 1, 12, 0, 0, 0, time.UTC), "Summer"),
		row("C", time.Date(2014, 1, 5, 6, 0, 0, 0, time.UTC), "Winter"),
		row("B", time.Date(2014, 10, 9, 23, 0, 0, 0, time.UTC), "Autumn"),
	}, []types.Column{types.ColStation, types.ColDatetime, types.ColSeason})
}

func stations(rows []types.Observation) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Station + r.Time.Format("0601")
	}
	return out
}

func TestApply_DefaultsReturnInputUnchanged(t *testing.T) {
	table := sample()
	res, err := Apply(table, Defaults(table))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Count != table.Len() {
		t.Fatalf("Count = %d; want %d", res.Count, table.Len())
	}
	if !reflect.DeepEqual(res.Rows, table.Rows()) {
		t.Errorf("rows differ from input")
	}
}

func TestApply_ZeroSpecMatchesEverything(t *testing.T) {
	table := sample()
	res, err := Apply(table, Spec{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Count != table.Len() {
		t.Errorf("Count = %d; want %d", res.Count, table.Len())
	}
}

func TestApply(t *testing.T) {
	table := sample()
	tests := []struct {
		name string
		spec Spec
		want []string
	}{
		{
			name: "stations",
			spec: Spec{Stations: Only("A")},
			want: []string{"A1303", "A1307"},
		},
		{
			name: "years",
			spec: Spec{Years: Only(2014)},
			want: []string{"C1401", "B1410"},
		},
		{
			name: "seasons",
			spec: Spec{Seasons: Only("Spring", "Winter")},
			want: []string{"A1303", "B1303", "C1401"},
		},
		{
			name: "inclusive range",
			spec: Spec{Range: TimeRange{
				Start: time.Date(2013, 3, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2013, 7, 1, 12, 0, 0, 0, time.UTC),
			}},
			want: []string{"A1303", "B1303", "A1307"},
		},
		{
			name: "open end",
			spec: Spec{Range: TimeRange{Start: time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)}},
			want: []string{"C1401", "B1410"},
		},
		{
			name: "conjunction",
			spec: Spec{Stations: Only("A", "B"), Years: Only(2013), Seasons: Only("Spring")},
			want: []string{"A1303", "B1303"},
		},
		{
			name: "explicit empty set",
			spec: Spec{Stations: Only[string]()},
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Apply(table, tt.spec)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if got := stations(res.Rows); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("rows = %v; want %v", got, tt.want)
			}
			if res.Count != len(tt.want) {
				t.Errorf("Count = %d; want %d", res.Count, len(tt.want))
			}
		})
	}
}

func TestApply_InvalidRange(t *testing.T) {
	spec := Spec{Range: TimeRange{
		Start: time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
	res, err := Apply(sample(), spec)
	if !errors.Is(err, types.ErrInvalidRange) {
		t.Fatalf("err = %v; want ErrInvalidRange", err)
	}
	if res.Count != 0 || res.Rows != nil {
		t.Errorf("result = %+v; want empty", res)
	}
}

func TestApply_DoesNotModifyTable(t *testing.T) {
	table := sample()
	before := append([]types.Observation(nil), table.Rows()...)
	res, _ := Apply(table, Spec{Stations: Only("B")})
	res.Rows[0].Station = "changed"
	if !reflect.DeepEqual(before, table.Rows()) {
		t.Error("table changed through result rows")
	}
}

func TestObservedOptions(t *testing.T) {
	opts := ObservedOptions(sample())
	if !reflect.DeepEqual(opts.Stations, []string{"A", "B", "C"}) {
		t.Errorf("Stations = %v", opts.Stations)
	}
	if !reflect.DeepEqual(opts.Years, []int{2013, 2014}) {
		t.Errorf("Years = %v", opts.Years)
	}
	if !reflect.DeepEqual(opts.Seasons, []string{"Spring", "Summer", "Autumn", "Winter"}) {
		t.Errorf("Seasons = %v", opts.Seasons)
	}
	if !opts.First.Equal(time.Date(2013, 3, 1, 0, 0, 0, 0, time.UTC)) ||
		!opts.Last.Equal(time.Date(2014, 10, 9, 23, 0, 0, 0, time.UTC)) {
		t.Errorf("range = %v..%v", opts.First, opts.Last)
	}
}

func TestSelection(t *testing.T) {
	var all Selection[int]
	if !all.All() || !all.Contains(7) || all.Len() != -1 {
		t.Error("zero Selection should match everything")
	}
	none := Only[int]()
	if none.All() || none.Contains(7) || none.Len() != 0 {
		t.Error("empty Only should match nothing")
	}
}
