package views

import (
	"html/template"
	"math"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"airquality-dashboard/internal/modules/airquality/types"
)

var printer = message.NewPrinter(language.English)

var funcs = template.FuncMap{
	"count":    formatCount,
	"num":      formatValue,
	"corr":     formatCorrelation,
	"cell":     cell,
	"datetime": formatTime,
	"percent":  percent,
}

// formatCount writes n with thousands separators.
func formatCount(n int) string {
	return printer.Sprintf("%d", n)
}

func formatValue(v *float64) string {
	if v == nil {
		return "–"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func formatCorrelation(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

// percent maps a correlation in [-1, 1] to a 0-100 opacity for cell shading.
func percent(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(math.Abs(v) * 100))
}

// cell renders one column of an observation for the table.
func cell(o types.Observation, c types.Column) string {
	switch c {
	case types.ColStation:
		return o.Station
	case types.ColDatetime:
		return formatTime(o.Time)
	case types.ColYear:
		return strconv.Itoa(o.Year)
	case types.ColMonth:
		return strconv.Itoa(o.Month)
	case types.ColDay:
		return strconv.Itoa(o.Day)
	case types.ColHour:
		return strconv.Itoa(o.Hour)
	case types.ColSeason:
		return o.Season
	case types.ColWindDir:
		return o.WindDir
	}
	v, _ := o.Value(c)
	return formatValue(v)
}
