package controller

import (
	"context"
	"log/slog"
	"net/http"

	"airquality-dashboard/internal/modules/airquality/filter"
	"airquality-dashboard/internal/modules/airquality/source"
	"airquality-dashboard/internal/modules/airquality/types"
)

// DashboardService is the query side the handlers need.
type DashboardService interface {
	Snapshot() source.Snapshot
	Filter(spec filter.Spec) (source.Snapshot, filter.Result, error)
	Options() (filter.Options, error)
	MonthlyPMTrend() ([]types.MonthlyMean, error)
	WeatherPollutionCorrelation() (*types.CorrelationMatrix, error)
	PollutantCorrelation() (*types.CorrelationMatrix, error)
	StationAverages(pollutants []types.Column) (*types.StationAverages, error)
	TemperatureExtremes() ([]types.TemperatureExtreme, error)
	RainfallMaxima() ([]types.RainfallMax, error)
	StoreSummary(ctx context.Context) (types.StoreSummary, error)
}

type AirQualityController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type airQualityControllerImpl struct {
	service DashboardService
	logger  *slog.Logger
}

func NewAirQualityController(service DashboardService, logger *slog.Logger) AirQualityController {
	if logger == nil {
		logger = slog.Default()
	}
	return &airQualityControllerImpl{service: service, logger: logger}
}

func (c *airQualityControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("GET /partials/observations", c.handleObservationsPartial)

	mux.HandleFunc("GET /api/v1/dataset", c.handleDataset)
	mux.HandleFunc("GET /api/v1/observations", c.handleObservations)
	mux.HandleFunc("GET /api/v1/observations.csv", c.handleExportCSV)
	mux.HandleFunc("GET /api/v1/observations.xlsx", c.handleExportXLSX)

	mux.HandleFunc("GET /api/v1/aggregates/monthly-pm", c.handleMonthlyPM)
	mux.HandleFunc("GET /api/v1/aggregates/weather-correlation", c.handleWeatherCorrelation)
	mux.HandleFunc("GET /api/v1/aggregates/pollutant-correlation", c.handlePollutantCorrelation)
	mux.HandleFunc("GET /api/v1/aggregates/station-averages", c.handleStationAverages)
	mux.HandleFunc("GET /api/v1/aggregates/temperature-extremes", c.handleTemperatureExtremes)
	mux.HandleFunc("GET /api/v1/aggregates/rainfall-maxima", c.handleRainfallMaxima)

	mux.HandleFunc("GET /charts/monthly-pm.png", c.handleMonthlyPMChart)
	mux.HandleFunc("GET /charts/weather-correlation.png", c.handleWeatherCorrelationChart)
	mux.HandleFunc("GET /charts/pollutant-correlation.png", c.handlePollutantCorrelationChart)
	mux.HandleFunc("GET /charts/station-averages.png", c.handleStationAveragesChart)
}
