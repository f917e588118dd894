package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"

	"airquality-dashboard/internal/modules/airquality/types"
)

var dashboardTmpl *template.Template

// loadTemplatesFromFS loads dashboard templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("dashboard").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates loads embedded dashboard templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// Panel is one dashboard section: either its data or the message explaining
// why it could not be computed.
type Panel[T any] struct {
	Data T
	Err  string
}

// Choice is one option of a multi-select filter.
type Choice struct {
	Value    string
	Label    string
	Selected bool
}

// FilterForm is the view model of the filter sidebar.
type FilterForm struct {
	Stations []Choice
	Years    []Choice
	Seasons  []Choice
	// From and To use the datetime-local input layout.
	From string
	To   string
	Min  string
	Max  string
}

// PaginationItem is one entry in the pagination bar: either a page number or an ellipsis.
type PaginationItem struct {
	Page     int
	Ellipsis bool
}

// ObservationsData is the view model for the observations partial.
type ObservationsData struct {
	Columns     []types.Column
	Rows        []types.Observation
	Count       int
	Total       int
	Query       template.URL // encoded filter for pagination and export links
	CurrentPage int
	TotalPages  int
	HasPrev     bool
	HasNext     bool
	PrevPage    int
	NextPage    int
	PageItems   []PaginationItem
	Err         string
}

// StationAverageRow is a station's means with the AQI of its PM means.
type StationAverageRow struct {
	Station  string
	Means    []*float64
	AQI      int
	HasAQI   bool
	Category string
	Color    string
}

// StationAveragesData is the station averages table.
type StationAveragesData struct {
	Pollutants []types.Column
	Rows       []StationAverageRow
}

type DashboardData struct {
	Source    string
	Report    types.LoadReport
	LoadError string
	Palette   string
	Palettes  []string
	Filters   FilterForm

	Observations         ObservationsData
	StationAverages      Panel[StationAveragesData]
	TemperatureExtremes  Panel[[]types.TemperatureExtreme]
	RainfallMaxima       Panel[[]types.RainfallMax]
	WeatherCorrelation   Panel[*types.CorrelationMatrix]
	PollutantCorrelation Panel[*types.CorrelationMatrix]
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// RenderObservationsPartial executes only the observations partial into w.
// Use for HTMX fragment refresh.
func RenderObservationsPartial(w io.Writer, data *ObservationsData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "partials/observations.html", data)
}
