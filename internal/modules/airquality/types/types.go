package types

import (
	"encoding/json"
	"math"
	"time"
)

// Column is a source column name as it appears in the dataset header.
type Column string

const (
	ColStation  Column = "station"
	ColDatetime Column = "datetime"
	ColYear     Column = "year"
	ColMonth    Column = "month"
	ColDay      Column = "day"
	ColHour     Column = "hour"
	ColSeason   Column = "season"
	ColWindDir  Column = "wd"

	ColPM25 Column = "PM2.5"
	ColPM10 Column = "PM10"
	ColSO2  Column = "SO2"
	ColNO2  Column = "NO2"
	ColCO   Column = "CO"
	ColO3   Column = "O3"

	ColTemp     Column = "TEMP"
	ColPressure Column = "PRES"
	ColDewPoint Column = "DEWP"
	ColRain     Column = "RAIN"
	ColWindSpd  Column = "WSPM"
)

// Pollutants lists the six pollutant columns in display order.
var Pollutants = []Column{ColPM25, ColPM10, ColSO2, ColNO2, ColCO, ColO3}

// AllColumns is every column the observation row knows about.
var AllColumns = []Column{
	ColStation, ColDatetime, ColYear, ColMonth, ColDay, ColHour, ColSeason, ColWindDir,
	ColPM25, ColPM10, ColSO2, ColNO2, ColCO, ColO3,
	ColTemp, ColPressure, ColDewPoint, ColRain, ColWindSpd,
}

// Station is a monitoring site known to the store.
type Station struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Observations int    `json:"observations"`
}

// StoreSummary describes what the observation store holds.
type StoreSummary struct {
	Observations int       `json:"observations"`
	Stations     []Station `json:"stations"`
}

// Observation is one hourly measurement at a station.
// Nil measurement pointers mean the value was missing in the source.
type Observation struct {
	Station string    `json:"station"`
	Time    time.Time `json:"time"`
	Year    int       `json:"year"`
	Month   int       `json:"month"`
	Day     int       `json:"day"`
	Hour    int       `json:"hour"`
	// PartsValid reports whether Year/Month/Day/Hour form a real calendar hour.
	PartsValid bool `json:"-"`

	PM25 *float64 `json:"pm25"`
	PM10 *float64 `json:"pm10"`
	SO2  *float64 `json:"so2"`
	NO2  *float64 `json:"no2"`
	CO   *float64 `json:"co"`
	O3   *float64 `json:"o3"`

	Temp     *float64 `json:"temp"`
	Pressure *float64 `json:"pres"`
	DewPoint *float64 `json:"dewp"`
	Rain     *float64 `json:"rain"`
	WindSpd  *float64 `json:"wspm"`
	WindDir  string   `json:"wd,omitempty"`

	Season string `json:"season"`
}

// Value returns the measurement stored under a numeric column.
// ok is false when col is not a numeric column.
func (o *Observation) Value(col Column) (v *float64, ok bool) {
	switch col {
	case ColPM25:
		return o.PM25, true
	case ColPM10:
		return o.PM10, true
	case ColSO2:
		return o.SO2, true
	case ColNO2:
		return o.NO2, true
	case ColCO:
		return o.CO, true
	case ColO3:
		return o.O3, true
	case ColTemp:
		return o.Temp, true
	case ColPressure:
		return o.Pressure, true
	case ColDewPoint:
		return o.DewPoint, true
	case ColRain:
		return o.Rain, true
	case ColWindSpd:
		return o.WindSpd, true
	}
	return nil, false
}

// PartsTime is the hour described by the year/month/day/hour fields.
func (o *Observation) PartsTime() (time.Time, bool) {
	if !o.PartsValid {
		return time.Time{}, false
	}
	return time.Date(o.Year, time.Month(o.Month), o.Day, o.Hour, 0, 0, 0, time.UTC), true
}

// IsNumeric reports whether col holds a float measurement.
func IsNumeric(col Column) bool {
	var o Observation
	_, ok := o.Value(col)
	return ok
}

// MonthlyMean is the mean PM2.5 and PM10 of one station over one calendar month.
type MonthlyMean struct {
	Station string    `json:"station"`
	Month   time.Time `json:"month"`
	PM25    *float64  `json:"pm25"`
	PM10    *float64  `json:"pm10"`
}

// Label formats the month as YYYY-MM.
func (m MonthlyMean) Label() string {
	return m.Month.Format("2006-01")
}

// CorrelationMatrix is a square Pearson matrix in Columns order.
// Undefined entries are NaN and encode as JSON null.
type CorrelationMatrix struct {
	Columns []Column
	Values  [][]float64
}

// At returns the correlation between columns i and j.
func (m *CorrelationMatrix) At(i, j int) float64 {
	return m.Values[i][j]
}

func (m *CorrelationMatrix) MarshalJSON() ([]byte, error) {
	values := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		values[i] = make([]*float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				continue
			}
			values[i][j] = &v
		}
	}
	return json.Marshal(struct {
		Columns []Column     `json:"columns"`
		Values  [][]*float64 `json:"values"`
	}{Columns: m.Columns, Values: values})
}

// StationAverage holds one station's means, aligned with StationAverages.Pollutants.
type StationAverage struct {
	Station string     `json:"station"`
	Means   []*float64 `json:"means"`
}

type StationAverages struct {
	Pollutants []Column         `json:"pollutants"`
	Rows       []StationAverage `json:"rows"`
}

// Mean returns the mean of pollutant for row i.
func (s *StationAverages) Mean(i int, pollutant Column) *float64 {
	for k, p := range s.Pollutants {
		if p == pollutant {
			return s.Rows[i].Means[k]
		}
	}
	return nil
}

// Extreme is a single measurement and the hour it was taken.
type Extreme struct {
	Value float64   `json:"value"`
	Time  time.Time `json:"time"`
}

type TemperatureExtreme struct {
	Station string   `json:"station"`
	Min     *Extreme `json:"min"`
	Max     *Extreme `json:"max"`
}

type RainfallMax struct {
	Station string   `json:"station"`
	Max     *Extreme `json:"max"`
	Total   float64  `json:"total"`
}

// LoadReport describes the outcome of building a validated table.
type LoadReport struct {
	Source   string    `json:"source"`
	RowsRead int       `json:"rowsRead"`
	Dropped  int       `json:"dropped"`
	LoadedAt time.Time `json:"loadedAt"`
}

// Rows is the number of rows kept in the table.
func (r LoadReport) Rows() int {
	return r.RowsRead - r.Dropped
}
