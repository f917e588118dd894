package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"airquality-dashboard/internal/modules/airquality/types"
)

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/upsert-station.sql
var upsertStationSQL string

//go:embed sql/get-station-id-by-name.sql
var getStationIDByNameSQL string

//go:embed sql/insert-observation.sql
var insertObservationSQL string

//go:embed sql/list-observations.sql
var listObservationsSQL string

//go:embed sql/count-observations.sql
var countObservationsSQL string

//go:embed sql/insert-import-batch.sql
var insertImportBatchSQL string

type ObservationRepository interface {
	GetStations(ctx context.Context) ([]types.Station, error)
	ListObservations(ctx context.Context) ([]types.Observation, error)
	CountObservations(ctx context.Context) (int, error)
	InsertObservation(ctx context.Context, o types.Observation) error
	InsertObservations(ctx context.Context, obs []types.Observation) (int, error)
	RecordImport(ctx context.Context, report types.LoadReport, inserted int) error
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) ObservationRepository {
	return &repositoryImpl{db: db}
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *repositoryImpl) GetStations(ctx context.Context) ([]types.Station, error) {
	rows, err := r.db.QueryContext(ctx, getStationsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close stations rows", "error", err)
		}
	}()
	var out []types.Station
	for rows.Next() {
		var s types.Station
		if err := rows.Scan(&s.ID, &s.Name, &s.Observations); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) ListObservations(ctx context.Context) ([]types.Observation, error) {
	rows, err := r.db.QueryContext(ctx, listObservationsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close observation rows", "error", err)
		}
	}()
	return scanObservations(rows)
}

func (r *repositoryImpl) CountObservations(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countObservationsSQL).Scan(&n)
	return n, err
}

func (r *repositoryImpl) InsertObservation(ctx context.Context, o types.Observation) error {
	if err := validate(o); err != nil {
		return err
	}
	id, err := stationID(ctx, r.db, o.Station)
	if err != nil {
		return err
	}
	return insert(ctx, r.db, id, o)
}

// InsertObservations stores obs in one transaction. A row with the same
// station and timestamp as an existing one replaces it.
func (r *repositoryImpl) InsertObservations(ctx context.Context, obs []types.Observation) (int, error) {
	for i, o := range obs {
		if err := validate(o); err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ids := make(map[string]int64)
	for i, o := range obs {
		id, ok := ids[o.Station]
		if !ok {
			id, err = stationID(ctx, tx, o.Station)
			if err != nil {
				return 0, err
			}
			ids[o.Station] = id
		}
		if err := insert(ctx, tx, id, o); err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(obs), nil
}

func (r *repositoryImpl) RecordImport(ctx context.Context, report types.LoadReport, inserted int) error {
	_, err := r.db.ExecContext(ctx, insertImportBatchSQL, report.Source, report.RowsRead, report.Dropped, inserted)
	if err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return nil
}

func validate(o types.Observation) error {
	if strings.TrimSpace(o.Station) == "" {
		return fmt.Errorf("%w: station is required", types.ErrMalformedInput)
	}
	if o.Time.IsZero() {
		return fmt.Errorf("%w: timestamp is required", types.ErrMalformedInput)
	}
	return nil
}

// stationID resolves name to its id, creating the station when it is new.
func stationID(ctx context.Context, q queryer, name string) (int64, error) {
	if _, err := q.ExecContext(ctx, upsertStationSQL, name); err != nil {
		return 0, fmt.Errorf("upsert station %q: %w", name, err)
	}
	var id int64
	if err := q.QueryRowContext(ctx, getStationIDByNameSQL, name).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("station not found: %q", name)
		}
		return 0, fmt.Errorf("lookup station %q: %w", name, err)
	}
	return id, nil
}

func insert(ctx context.Context, q queryer, stationID int64, o types.Observation) error {
	year, month, day, hour := o.Year, o.Month, o.Day, o.Hour
	if !o.PartsValid {
		year, month, day, hour = o.Time.Year(), int(o.Time.Month()), o.Time.Day(), o.Time.Hour()
	}
	_, err := q.ExecContext(ctx, insertObservationSQL,
		stationID, o.Time.UTC().Format(time.RFC3339Nano), year, month, day, hour,
		nullable(o.PM25), nullable(o.PM10), nullable(o.SO2), nullable(o.NO2), nullable(o.CO), nullable(o.O3),
		nullable(o.Temp), nullable(o.Pressure), nullable(o.DewPoint), nullable(o.Rain), nullable(o.WindSpd),
		o.WindDir, o.Season,
	)
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func scanObservations(rows *sql.Rows) ([]types.Observation, error) {
	var out []types.Observation
	for rows.Next() {
		var (
			o       types.Observation
			ts      string
			wd, ssn sql.NullString
			vals    [11]sql.NullFloat64
		)
		dest := []any{&o.Station, &ts, &o.Year, &o.Month, &o.Day, &o.Hour}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		dest = append(dest, &wd, &ssn)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		o.Time = t
		o.PartsValid = true
		ptrs := []**float64{&o.PM25, &o.PM10, &o.SO2, &o.NO2, &o.CO, &o.O3,
			&o.Temp, &o.Pressure, &o.DewPoint, &o.Rain, &o.WindSpd}
		for i, p := range ptrs {
			if vals[i].Valid {
				v := vals[i].Float64
				*p = &v
			}
		}
		o.WindDir, o.Season = wd.String, ssn.String
		out = append(out, o)
	}
	return out, rows.Err()
}
