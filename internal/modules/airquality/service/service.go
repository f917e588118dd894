package service

import (
	"context"
	"fmt"
	"log/slog"

	"airquality-dashboard/internal/modules/airquality/aggregate"
	"airquality-dashboard/internal/modules/airquality/filter"
	"airquality-dashboard/internal/modules/airquality/loader"
	"airquality-dashboard/internal/modules/airquality/repository"
	"airquality-dashboard/internal/modules/airquality/source"
	"airquality-dashboard/internal/modules/airquality/types"
	"airquality-dashboard/internal/mqtt"
)

// ErrNoStore is returned by operations that need the observation store when none is configured.
var ErrNoStore = types.ErrNoStore

// Service answers dashboard queries against the current snapshot. Each call
// works on the snapshot current at its start, so a concurrent reload never
// mixes two tables within one answer.
type Service struct {
	source     source.Source
	repository repository.ObservationRepository
	logger     *slog.Logger
}

// NewService wires a Service. repo may be nil when the dashboard runs from a CSV alone.
func NewService(src source.Source, repo repository.ObservationRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: src, repository: repo, logger: logger}
}

func (s *Service) Snapshot() source.Snapshot {
	return s.source.Snapshot()
}

func (s *Service) Reload(ctx context.Context) error {
	return s.source.Reload(ctx)
}

func (s *Service) table() (*types.Table, error) {
	snap := s.source.Snapshot()
	if snap.Err != nil {
		return nil, snap.Err
	}
	return snap.Table, nil
}

// Filter applies spec to the current table and returns the snapshot the
// result was taken from, so callers never mix rows of two reloads.
func (s *Service) Filter(spec filter.Spec) (source.Snapshot, filter.Result, error) {
	snap := s.source.Snapshot()
	if snap.Err != nil {
		return snap, filter.Result{}, snap.Err
	}
	res, err := filter.Apply(snap.Table, spec)
	return snap, res, err
}

func (s *Service) Options() (filter.Options, error) {
	t, err := s.table()
	if err != nil {
		return filter.Options{}, err
	}
	return filter.ObservedOptions(t), nil
}

func (s *Service) MonthlyPMTrend() ([]types.MonthlyMean, error) {
	t, err := s.table()
	if err != nil {
		return nil, err
	}
	return aggregate.MonthlyPMTrend(t)
}

func (s *Service) WeatherPollutionCorrelation() (*types.CorrelationMatrix, error) {
	t, err := s.table()
	if err != nil {
		return nil, err
	}
	return aggregate.WeatherPollutionCorrelation(t)
}

func (s *Service) PollutantCorrelation() (*types.CorrelationMatrix, error) {
	t, err := s.table()
	if err != nil {
		return nil, err
	}
	return aggregate.PollutantCorrelation(t)
}

func (s *Service) StationAverages(pollutants []types.Column) (*types.StationAverages, error) {
	t, err := s.table()
	if err != nil {
		return nil, err
	}
	return aggregate.StationAverages(t, pollutants)
}

func (s *Service) TemperatureExtremes() ([]types.TemperatureExtreme, error) {
	t, err := s.table()
	if err != nil {
		return nil, err
	}
	return aggregate.TemperatureExtremes(t)
}

func (s *Service) RainfallMaxima() ([]types.RainfallMax, error) {
	t, err := s.table()
	if err != nil {
		return nil, err
	}
	return aggregate.RainfallMaxima(t)
}

// ImportResult summarises an Import run. Written counts the rows sent to the
// store; Inserted is how many new rows the store gained. A row whose station
// and hour already exist, or repeat earlier in the file, replaces the stored
// row and counts as Replaced.
type ImportResult struct {
	Report   types.LoadReport
	Written  int
	Inserted int
	Replaced int
}

// Import loads a CSV file and writes its rows to the store.
func (s *Service) Import(ctx context.Context, path string) (ImportResult, error) {
	if s.repository == nil {
		return ImportResult{}, ErrNoStore
	}
	table, report, err := loader.LoadFile(path)
	if err != nil {
		return ImportResult{Report: report}, err
	}
	if report.Dropped > 0 {
		s.logger.Warn("dropped rows with unparseable timestamps", "path", path, "dropped", report.Dropped)
	}

	before, err := s.repository.CountObservations(ctx)
	if err != nil {
		return ImportResult{Report: report}, fmt.Errorf("count observations: %w", err)
	}
	written, err := s.repository.InsertObservations(ctx, table.Rows())
	if err != nil {
		return ImportResult{Report: report}, fmt.Errorf("import %s: %w", path, err)
	}
	after, err := s.repository.CountObservations(ctx)
	if err != nil {
		return ImportResult{Report: report, Written: written}, fmt.Errorf("count observations: %w", err)
	}
	res := ImportResult{
		Report:   report,
		Written:  written,
		Inserted: after - before,
		Replaced: written - (after - before),
	}
	if res.Replaced > 0 {
		s.logger.Warn("rows replaced an existing station hour", "path", path, "replaced", res.Replaced)
	}

	if err := s.repository.RecordImport(ctx, report, res.Inserted); err != nil {
		return res, err
	}
	s.logger.Info("import finished",
		"path", path,
		"rows_read", report.RowsRead,
		"written", res.Written,
		"inserted", res.Inserted,
		"replaced", res.Replaced,
	)
	return res, nil
}

// StoreSummary reports the row count and the stations of the store.
func (s *Service) StoreSummary(ctx context.Context) (types.StoreSummary, error) {
	if s.repository == nil {
		return types.StoreSummary{}, ErrNoStore
	}
	n, err := s.repository.CountObservations(ctx)
	if err != nil {
		return types.StoreSummary{}, fmt.Errorf("count observations: %w", err)
	}
	stations, err := s.repository.GetStations(ctx)
	if err != nil {
		return types.StoreSummary{}, fmt.Errorf("get stations: %w", err)
	}
	return types.StoreSummary{Observations: n, Stations: stations}, nil
}

// Register attaches the observation handler to the MQTT subscriber.
func (s *Service) Register(subscriber mqtt.MessageSubscriber) error {
	if s.repository == nil {
		return ErrNoStore
	}
	registerMQTTHandler(subscriber, s.repository, s.logger)
	return nil
}
