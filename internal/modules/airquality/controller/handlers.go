package controller

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-gota/gota/dataframe"

	"airquality-dashboard/internal/modules/airquality/aqi"
	"airquality-dashboard/internal/modules/airquality/charts"
	"airquality-dashboard/internal/modules/airquality/export"
	"airquality-dashboard/internal/modules/airquality/filter"
	"airquality-dashboard/internal/modules/airquality/source"
	"airquality-dashboard/internal/modules/airquality/types"
	"airquality-dashboard/internal/modules/airquality/views"
	"airquality-dashboard/internal/utils"
)

var palettes = []string{string(charts.PaletteDefault), string(charts.PaletteSoft), string(charts.PaletteDark)}

func (c *airQualityControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	palette, err := parsePalette(q)
	if err != nil {
		c.logger.Warn("dashboard: invalid palette", "palette", q.Get("palette"))
		palette = charts.PaletteDefault
	}

	snap := c.service.Snapshot()
	data := views.DashboardData{
		Source:   snap.Report.Source,
		Report:   snap.Report,
		Palette:  string(palette),
		Palettes: palettes,
	}
	if snap.Err != nil {
		msg := snap.Err.Error()
		data.LoadError = msg
		data.Observations.Err = msg
		data.StationAverages.Err = msg
		data.TemperatureExtremes.Err = msg
		data.RainfallMaxima.Err = msg
		data.WeatherCorrelation.Err = msg
		data.PollutantCorrelation.Err = msg
		c.renderDashboard(w, &data)
		return
	}

	if opts, err := c.service.Options(); err == nil {
		spec, _ := parseFilterQuery(q)
		data.Filters = filterForm(opts, spec)
	}
	data.Observations = c.observationsData(q)
	data.StationAverages = c.stationAveragesPanel(types.Pollutants)
	data.TemperatureExtremes.Data, data.TemperatureExtremes.Err = panel(c.service.TemperatureExtremes())
	data.RainfallMaxima.Data, data.RainfallMaxima.Err = panel(c.service.RainfallMaxima())
	data.WeatherCorrelation.Data, data.WeatherCorrelation.Err = panel(c.service.WeatherPollutionCorrelation())
	data.PollutantCorrelation.Data, data.PollutantCorrelation.Err = panel(c.service.PollutantCorrelation())

	c.renderDashboard(w, &data)
}

func (c *airQualityControllerImpl) renderDashboard(w http.ResponseWriter, data *views.DashboardData) {
	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, data); err != nil {
		c.logger.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		c.logger.Error("dashboard: write response failed", "error", err)
	}
}

// panel turns an aggregate result into panel data or its message.
func panel[T any](v T, err error) (T, string) {
	if err != nil {
		return v, err.Error()
	}
	return v, ""
}

func (c *airQualityControllerImpl) stationAveragesPanel(pollutants []types.Column) views.Panel[views.StationAveragesData] {
	avg, err := c.service.StationAverages(pollutants)
	if err != nil {
		return views.Panel[views.StationAveragesData]{Err: err.Error()}
	}
	data := views.StationAveragesData{Pollutants: avg.Pollutants}
	for i, row := range avg.Rows {
		out := views.StationAverageRow{Station: row.Station, Means: row.Means}
		if index, ok := aqi.Combined(avg.Mean(i, types.ColPM25), avg.Mean(i, types.ColPM10)); ok {
			out.AQI, out.HasAQI = index, true
			out.Category, out.Color = aqi.Category(index), aqi.Color(index)
		}
		data.Rows = append(data.Rows, out)
	}
	return views.Panel[views.StationAveragesData]{Data: data}
}

// observationsData builds one page of the filtered table.
func (c *airQualityControllerImpl) observationsData(q url.Values) views.ObservationsData {
	spec, err := parseFilterQuery(q)
	if err != nil {
		return views.ObservationsData{Err: err.Error()}
	}
	snap, res, err := c.service.Filter(spec)
	if err != nil {
		return views.ObservationsData{Err: err.Error()}
	}

	start, end, page, totalPages := pageBounds(res.Count, parsePage(q), tablePageSize)
	return views.ObservationsData{
		Columns:     snap.Table.Columns(),
		Rows:        res.Rows[start:end],
		Count:       res.Count,
		Total:       snap.Table.Len(),
		Query:       encodeFilter(q),
		CurrentPage: page,
		TotalPages:  totalPages,
		HasPrev:     page > 1,
		HasNext:     page < totalPages,
		PrevPage:    page - 1,
		NextPage:    page + 1,
		PageItems:   buildPageItems(totalPages, page),
	}
}

func (c *airQualityControllerImpl) handleObservationsPartial(w http.ResponseWriter, r *http.Request) {
	data := c.observationsData(r.URL.Query())
	var buf bytes.Buffer
	if err := views.RenderObservationsPartial(&buf, &data); err != nil {
		c.logger.Error("observations partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		c.logger.Error("observations: write response failed", "error", err)
	}
}

type datasetResponse struct {
	Source  string           `json:"source"`
	Version uint64           `json:"version"`
	Report  types.LoadReport `json:"report"`
	Rows    int              `json:"rows"`
	Columns []types.Column   `json:"columns"`
	Options filter.Options   `json:"options"`

	// Store is set when the dashboard runs with the SQLite store.
	Store *types.StoreSummary `json:"store,omitempty"`
}

func (c *airQualityControllerImpl) handleDataset(w http.ResponseWriter, r *http.Request) {
	snap := c.service.Snapshot()
	if snap.Err != nil {
		writeDatasetError(w, snap.Err)
		return
	}
	resp := datasetResponse{
		Source:  snap.Report.Source,
		Version: snap.Version,
		Report:  snap.Report,
		Rows:    snap.Table.Len(),
		Columns: snap.Table.Columns(),
		Options: filter.ObservedOptions(snap.Table),
	}
	switch summary, err := c.service.StoreSummary(r.Context()); {
	case err == nil:
		resp.Store = &summary
	case !errors.Is(err, types.ErrNoStore):
		c.logger.Warn("dataset: store summary failed", "error", err)
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

type observationsResponse struct {
	Count      int                 `json:"count"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int                 `json:"totalPages"`
	Rows       []types.Observation `json:"rows"`
}

func (c *airQualityControllerImpl) handleObservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, res, ok := c.filtered(w, q)
	if !ok {
		return
	}

	page := parsePage(q)
	start, end, _, totalPages := pageBounds(res.Count, page, limit)
	if page > totalPages {
		start, end = res.Count, res.Count
	}
	utils.WriteJSON(w, http.StatusOK, observationsResponse{
		Count:      res.Count,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		Rows:       res.Rows[start:end],
	})
}

// filtered parses the filter and applies it, writing the error response on
// failure. The snapshot is the one the result was taken from.
func (c *airQualityControllerImpl) filtered(w http.ResponseWriter, q url.Values) (source.Snapshot, filter.Result, bool) {
	spec, err := parseFilterQuery(q)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return source.Snapshot{}, filter.Result{}, false
	}
	snap, res, err := c.service.Filter(spec)
	if err != nil {
		writeDatasetError(w, err)
		return source.Snapshot{}, filter.Result{}, false
	}
	return snap, res, true
}

func (c *airQualityControllerImpl) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	c.export(w, r, "observations.csv", "text/csv; charset=utf-8", export.WriteCSV)
}

func (c *airQualityControllerImpl) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	c.export(w, r, "observations.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.WriteXLSX)
}

func (c *airQualityControllerImpl) export(w http.ResponseWriter, r *http.Request, name, contentType string, write func(io.Writer, dataframe.DataFrame) error) {
	snap, res, ok := c.filtered(w, r.URL.Query())
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, export.Frame(res.Rows, snap.Table.Columns())); err != nil {
		c.logger.Error("export failed", "format", name, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to export observations")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		c.logger.Error("export: write response failed", "error", err)
	}
}

// writeResult answers with v as JSON, or with the mapped status of err.
func writeResult[T any](w http.ResponseWriter, v T, err error) {
	if err != nil {
		writeDatasetError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, v)
}

func (c *airQualityControllerImpl) handleMonthlyPM(w http.ResponseWriter, r *http.Request) {
	rows, err := c.service.MonthlyPMTrend()
	writeResult(w, rows, err)
}

func (c *airQualityControllerImpl) handleWeatherCorrelation(w http.ResponseWriter, r *http.Request) {
	m, err := c.service.WeatherPollutionCorrelation()
	writeResult(w, m, err)
}

func (c *airQualityControllerImpl) handlePollutantCorrelation(w http.ResponseWriter, r *http.Request) {
	m, err := c.service.PollutantCorrelation()
	writeResult(w, m, err)
}

func (c *airQualityControllerImpl) handleStationAverages(w http.ResponseWriter, r *http.Request) {
	avg, err := c.service.StationAverages(parsePollutants(r.URL.Query()))
	writeResult(w, avg, err)
}

func (c *airQualityControllerImpl) handleTemperatureExtremes(w http.ResponseWriter, r *http.Request) {
	rows, err := c.service.TemperatureExtremes()
	writeResult(w, rows, err)
}

func (c *airQualityControllerImpl) handleRainfallMaxima(w http.ResponseWriter, r *http.Request) {
	rows, err := c.service.RainfallMaxima()
	writeResult(w, rows, err)
}

func (c *airQualityControllerImpl) handleMonthlyPMChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	palette, err := parsePalette(q)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	pollutant := types.ColPM25
	if s := q.Get("pollutant"); s != "" {
		pollutant = types.Column(s)
	}
	rows, err := c.service.MonthlyPMTrend()
	if err != nil {
		writeDatasetError(w, err)
		return
	}
	c.writePNG(w, "monthly-pm", func(out io.Writer) error {
		return charts.MonthlyPM(out, rows, pollutant, palette)
	})
}

func (c *airQualityControllerImpl) handleWeatherCorrelationChart(w http.ResponseWriter, r *http.Request) {
	m, err := c.service.WeatherPollutionCorrelation()
	if err != nil {
		writeDatasetError(w, err)
		return
	}
	c.writePNG(w, "weather-correlation", func(out io.Writer) error {
		return charts.Correlation(out, m, "Weather and pollution correlation")
	})
}

func (c *airQualityControllerImpl) handlePollutantCorrelationChart(w http.ResponseWriter, r *http.Request) {
	m, err := c.service.PollutantCorrelation()
	if err != nil {
		writeDatasetError(w, err)
		return
	}
	c.writePNG(w, "pollutant-correlation", func(out io.Writer) error {
		return charts.Correlation(out, m, "Pollutant correlation")
	})
}

func (c *airQualityControllerImpl) handleStationAveragesChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	palette, err := parsePalette(q)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	avg, err := c.service.StationAverages(parsePollutants(q))
	if err != nil {
		writeDatasetError(w, err)
		return
	}
	c.writePNG(w, "station-averages", func(out io.Writer) error {
		return charts.StationAverages(out, avg, palette)
	})
}

func (c *airQualityControllerImpl) writePNG(w http.ResponseWriter, chart string, draw func(io.Writer) error) {
	var buf bytes.Buffer
	if err := draw(&buf); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			c.logger.Error("chart render failed", "chart", chart, "error", err)
			utils.WriteError(w, status, "failed to render chart")
			return
		}
		utils.WriteError(w, status, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(buf.Bytes()); err != nil {
		c.logger.Error("chart: write response failed", "chart", chart, "error", err)
	}
}
