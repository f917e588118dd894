package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron"

	"airquality-dashboard/internal/modules/airquality/repository"
	"airquality-dashboard/internal/modules/airquality/types"
)

// StoreSource builds the dataset from the observation store.
type StoreSource struct {
	repo   repository.ObservationRepository
	logger *slog.Logger

	holder
	mu sync.Mutex
}

func NewStoreSource(repo repository.ObservationRepository, logger *slog.Logger) *StoreSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreSource{repo: repo, logger: logger}
}

func (s *StoreSource) Name() string { return "sqlite" }

func (s *StoreSource) Snapshot() Snapshot { return s.load() }

func (s *StoreSource) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.repo.ListObservations(ctx)
	if err != nil {
		err = fmt.Errorf("list observations: %w", err)
		s.publish(nil, types.LoadReport{Source: s.Name()}, err)
		s.logger.Error("dataset load failed", "source", s.Name(), "error", err)
		return err
	}
	report := types.LoadReport{
		Source:   s.Name(),
		RowsRead: len(rows),
		LoadedAt: time.Now().UTC(),
	}
	if len(rows) == 0 {
		err := fmt.Errorf("%w: the observation store has no rows", types.ErrEmptyInput)
		s.publish(nil, report, err)
		s.logger.Warn("dataset empty", "source", s.Name())
		return err
	}

	table := types.NewTable(rows, observedColumns(rows))
	snap := s.publish(table, report, nil)
	s.logger.Info("dataset loaded", "source", s.Name(), "rows", table.Len(), "version", snap.Version)
	return nil
}

// Schedule reloads every interval until the returned stop func is called.
func (s *StoreSource) Schedule(ctx context.Context, interval time.Duration) (stop func(), err error) {
	if interval <= 0 {
		return nil, fmt.Errorf("reload interval must be positive, got %s", interval)
	}
	c := cron.New()
	spec := "@every " + interval.String()
	if err := c.AddFunc(spec, func() {
		_ = s.Reload(ctx)
	}); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	c.Start()
	s.logger.Info("dataset reload scheduled", "spec", spec)
	return c.Stop, nil
}

// observedColumns lists the columns the stored rows carry. The store keeps
// no header, so a measurement column counts as present when at least one row
// has a value for it.
func observedColumns(rows []types.Observation) []types.Column {
	cols := []types.Column{
		types.ColStation, types.ColDatetime,
		types.ColYear, types.ColMonth, types.ColDay, types.ColHour,
		types.ColSeason,
	}
	for _, c := range types.AllColumns {
		numeric := types.IsNumeric(c)
		if !numeric && c != types.ColWindDir {
			continue
		}
		for i := range rows {
			if numeric {
				if v, _ := rows[i].Value(c); v != nil {
					cols = append(cols, c)
					break
				}
			} else if rows[i].WindDir != "" {
				cols = append(cols, c)
				break
			}
		}
	}
	return cols
}
