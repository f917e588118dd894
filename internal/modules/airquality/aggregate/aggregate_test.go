package aggregate

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"airquality-dashboard/internal/modules/airquality/types"
)

func f(v float64) *float64 { return &v }

func hour(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func obs(station string, ts time.Time) types.Observation {
	return types.Observation{
		Station:    station,
		Time:       ts,
		Year:       ts.Year(),
		Month:      int(ts.Month()),
		Day:        ts.Day(),
		Hour:       ts.Hour(),
		PartsValid: true,
	}
}

func withPM(o types.Observation, pm25, pm10 *float64) types.Observation {
	o.PM25, o.PM10 = pm25, pm10
	return o
}

var pmColumns = []types.Column{types.ColStation, types.ColDatetime, types.ColPM25, types.ColPM10}

func TestMonthlyPMTrend(t *testing.T) {
	table := types.NewTable([]types.Observation{
		withPM(obs("B", hour(2013, 3, 1, 0)), f(30), f(60)),
		withPM(obs("A", hour(2013, 3, 1, 0)), f(10), f(20)),
		withPM(obs("A", hour(2013, 3, 1, 1)), f(20), nil),
		withPM(obs("A", hour(2013, 4, 2, 0)), nil, nil),
	}, pmColumns)

	got, err := MonthlyPMTrend(table)
	if err != nil {
		t.Fatalf("MonthlyPMTrend: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d; want 3: %+v", len(got), got)
	}

	march := hour(2013, 3, 1, 0)
	april := hour(2013, 4, 1, 0)
	check := func(i int, station string, month time.Time, pm25, pm10 *float64) {
		t.Helper()
		m := got[i]
		if m.Station != station || !m.Month.Equal(month) {
			t.Errorf("row %d = %s %s; want %s %s", i, m.Station, m.Label(), station, month.Format("2006-01"))
		}
		if !reflect.DeepEqual(m.PM25, pm25) || !reflect.DeepEqual(m.PM10, pm10) {
			t.Errorf("row %d means = %v/%v; want %v/%v", i, deref(m.PM25), deref(m.PM10), deref(pm25), deref(pm10))
		}
	}
	check(0, "A", march, f(15), f(20))
	check(1, "A", april, nil, nil)
	check(2, "B", march, f(30), f(60))
}

func TestMonthlyPMTrend_UsesPartsWhenPresent(t *testing.T) {
	cols := append([]types.Column{types.ColYear, types.ColMonth, types.ColDay, types.ColHour}, pmColumns...)

	// datetime says April, parts say March
	o := withPM(obs("A", hour(2013, 4, 1, 0)), f(5), f(5))
	o.Month = 3
	bad := withPM(obs("A", hour(2013, 4, 1, 1)), f(50), f(50))
	bad.PartsValid = false

	got, err := MonthlyPMTrend(types.NewTable([]types.Observation{o, bad}, cols))
	if err != nil {
		t.Fatalf("MonthlyPMTrend: %v", err)
	}
	if len(got) != 1 || got[0].Label() != "2013-03" || *got[0].PM25 != 5 {
		t.Fatalf("got %+v; want one March group with mean 5", got)
	}
}

func TestMonthlyPMTrend_MissingColumn(t *testing.T) {
	table := types.NewTable(nil, []types.Column{types.ColStation, types.ColDatetime, types.ColPM25})
	_, err := MonthlyPMTrend(table)
	if !errors.Is(err, types.ErrMissingColumn) {
		t.Fatalf("err = %v; want ErrMissingColumn", err)
	}
}

func TestMonthlyPMTrend_Idempotent(t *testing.T) {
	table := types.NewTable([]types.Observation{
		withPM(obs("A", hour(2013, 3, 1, 0)), f(1), f(2)),
		withPM(obs("B", hour(2013, 5, 1, 0)), f(3), f(4)),
	}, pmColumns)

	first, _ := MonthlyPMTrend(table)
	second, _ := MonthlyPMTrend(table)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated calls differ: %+v vs %+v", first, second)
	}
}

func correlationTable(rows [][4]*float64) *types.Table {
	obsRows := make([]types.Observation, len(rows))
	for i, r := range rows {
		o := obs("A", hour(2013, 3, 1, 0).Add(time.Duration(i)*time.Hour))
		o.SO2, o.NO2, o.CO, o.O3 = r[0], r[1], r[2], r[3]
		obsRows[i] = o
	}
	return types.NewTable(obsRows, []types.Column{
		types.ColStation, types.ColDatetime, types.ColSO2, types.ColNO2, types.ColCO, types.ColO3,
	})
}

func TestPollutantCorrelation(t *testing.T) {
	table := correlationTable([][4]*float64{
		{f(1), f(2), f(5), f(7)},
		{f(2), f(4), f(4), f(7)},
		{f(3), f(6), f(3), f(7)},
		{f(4), nil, f(2), f(7)},
	})

	m, err := PollutantCorrelation(table)
	if err != nil {
		t.Fatalf("PollutantCorrelation: %v", err)
	}
	if !reflect.DeepEqual(m.Columns, PollutantColumns) {
		t.Fatalf("Columns = %v", m.Columns)
	}

	approx := func(got, want float64) bool { return math.Abs(got-want) < 1e-12 }

	if !approx(m.At(0, 1), 1) {
		t.Errorf("SO2/NO2 = %v; want 1", m.At(0, 1))
	}
	if !approx(m.At(0, 2), -1) {
		t.Errorf("SO2/CO = %v; want -1", m.At(0, 2))
	}
	// O3 is constant
	if !math.IsNaN(m.At(0, 3)) || !math.IsNaN(m.At(3, 3)) {
		t.Errorf("O3 entries = %v, %v; want NaN", m.At(0, 3), m.At(3, 3))
	}

	n := len(m.Columns)
	for i := 0; i < n; i++ {
		if i != 3 && m.At(i, i) != 1 {
			t.Errorf("diagonal %d = %v; want 1", i, m.At(i, i))
		}
		for j := 0; j < n; j++ {
			a, b := m.At(i, j), m.At(j, i)
			if !(a == b || math.IsNaN(a) && math.IsNaN(b)) {
				t.Errorf("m[%d][%d]=%v != m[%d][%d]=%v", i, j, a, j, i, b)
			}
			if !math.IsNaN(a) && (a < -1 || a > 1) {
				t.Errorf("m[%d][%d]=%v out of [-1,1]", i, j, a)
			}
		}
	}
}

func TestPollutantCorrelation_TooFewPairs(t *testing.T) {
	table := correlationTable([][4]*float64{
		{f(1), nil, f(1), f(1)},
		{nil, f(2), f(2), f(2)},
		{f(3), nil, f(3), f(3)},
	})
	m, err := PollutantCorrelation(table)
	if err != nil {
		t.Fatalf("PollutantCorrelation: %v", err)
	}
	if !math.IsNaN(m.At(0, 1)) {
		t.Errorf("SO2/NO2 = %v; want NaN with no complete pair", m.At(0, 1))
	}
	if !math.IsNaN(m.At(1, 1)) {
		t.Errorf("NO2 diagonal = %v; want NaN with one value", m.At(1, 1))
	}
}

func TestPollutantCorrelation_MissingO3(t *testing.T) {
	table := types.NewTable(nil, []types.Column{
		types.ColStation, types.ColDatetime, types.ColSO2, types.ColNO2, types.ColCO,
	})
	_, err := PollutantCorrelation(table)
	if !errors.Is(err, types.ErrMissingColumn) {
		t.Fatalf("err = %v; want ErrMissingColumn", err)
	}
}

func TestWeatherPollutionCorrelation(t *testing.T) {
	rows := make([]types.Observation, 0, 4)
	for i := 0; i < 4; i++ {
		o := obs("A", hour(2013, 3, 1, i))
		x := float64(i)
		o.Temp, o.Pressure, o.WindSpd = f(x), f(1020-x), f(2)
		o.PM25, o.PM10 = f(10+2*x), f(30)
		rows = append(rows, o)
	}
	table := types.NewTable(rows, []types.Column{
		types.ColStation, types.ColDatetime, types.ColTemp, types.ColPressure, types.ColWindSpd, types.ColPM25, types.ColPM10,
	})

	m, err := WeatherPollutionCorrelation(table)
	if err != nil {
		t.Fatalf("WeatherPollutionCorrelation: %v", err)
	}
	if len(m.Values) != 5 {
		t.Fatalf("matrix size = %d; want 5", len(m.Values))
	}
	if math.Abs(m.At(0, 1)+1) > 1e-12 {
		t.Errorf("TEMP/PRES = %v; want -1", m.At(0, 1))
	}
	if math.Abs(m.At(0, 3)-1) > 1e-12 {
		t.Errorf("TEMP/PM2.5 = %v; want 1", m.At(0, 3))
	}
	if !math.IsNaN(m.At(2, 3)) {
		t.Errorf("WSPM/PM2.5 = %v; want NaN with constant wind", m.At(2, 3))
	}
}

func TestStationAverages(t *testing.T) {
	so2 := func(station string, h int, v *float64) types.Observation {
		o := obs(station, hour(2013, 3, 1, h))
		o.SO2 = v
		return o
	}
	table := types.NewTable([]types.Observation{
		so2("B", 0, f(10)),
		so2("A", 0, f(4)),
		so2("A", 1, f(6)),
		so2("A", 2, nil),
		so2("C", 0, nil),
	}, []types.Column{types.ColStation, types.ColDatetime, types.ColSO2})

	got, err := StationAverages(table, []types.Column{types.ColSO2})
	if err != nil {
		t.Fatalf("StationAverages: %v", err)
	}
	stations := make([]string, len(got.Rows))
	for i, r := range got.Rows {
		stations[i] = r.Station
	}
	if !reflect.DeepEqual(stations, []string{"A", "B", "C"}) {
		t.Fatalf("stations = %v", stations)
	}
	if v := got.Mean(0, types.ColSO2); v == nil || *v != 5 {
		t.Errorf("A = %v; want 5", deref(v))
	}
	if v := got.Mean(1, types.ColSO2); v == nil || *v != 10 {
		t.Errorf("B = %v; want 10", deref(v))
	}
	if v := got.Mean(2, types.ColSO2); v != nil {
		t.Errorf("C = %v; want nil", *v)
	}
}

func TestStationAverages_MissingColumn(t *testing.T) {
	table := types.NewTable(nil, []types.Column{types.ColStation, types.ColDatetime, types.ColSO2})
	for _, cols := range [][]types.Column{
		{types.ColO3},
		{types.ColSO2, types.ColStation + "x"},
	} {
		if _, err := StationAverages(table, cols); !errors.Is(err, types.ErrMissingColumn) {
			t.Errorf("StationAverages(%v) err = %v; want ErrMissingColumn", cols, err)
		}
	}
}

func TestTemperatureExtremes(t *testing.T) {
	temp := func(station string, h int, v *float64) types.Observation {
		o := obs(station, hour(2013, 3, 1, h))
		o.Temp = v
		return o
	}
	table := types.NewTable([]types.Observation{
		temp("A", 0, f(-2)),
		temp("A", 1, f(5)),
		temp("A", 2, f(-2)),
		temp("A", 3, nil),
		temp("B", 0, nil),
	}, []types.Column{types.ColStation, types.ColDatetime, types.ColTemp})

	got, err := TemperatureExtremes(table)
	if err != nil {
		t.Fatalf("TemperatureExtremes: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d; want 2", len(got))
	}
	a := got[0]
	if a.Min.Value != -2 || !a.Min.Time.Equal(hour(2013, 3, 1, 0)) {
		t.Errorf("A min = %+v; want -2 at first hour", a.Min)
	}
	if a.Max.Value != 5 {
		t.Errorf("A max = %+v; want 5", a.Max)
	}
	if got[1].Min != nil || got[1].Max != nil {
		t.Errorf("B = %+v; want no extremes", got[1])
	}
}

func TestRainfallMaxima(t *testing.T) {
	rain := func(h int, v float64) types.Observation {
		o := obs("A", hour(2013, 7, 1, h))
		o.Rain = f(v)
		return o
	}
	table := types.NewTable([]types.Observation{rain(0, 0), rain(1, 2.5), rain(2, 1)},
		[]types.Column{types.ColStation, types.ColDatetime, types.ColRain})

	got, err := RainfallMaxima(table)
	if err != nil {
		t.Fatalf("RainfallMaxima: %v", err)
	}
	if len(got) != 1 || got[0].Max.Value != 2.5 || got[0].Total != 3.5 {
		t.Fatalf("got %+v; want max 2.5 total 3.5", got)
	}

	if _, err := RainfallMaxima(types.NewTable(nil, []types.Column{types.ColStation})); !errors.Is(err, types.ErrMissingColumn) {
		t.Errorf("err = %v; want ErrMissingColumn", err)
	}
}

func deref(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
