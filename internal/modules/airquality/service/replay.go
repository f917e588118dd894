package service

import (
	"context"
	"time"

	"airquality-dashboard/internal/modules/airquality/loader"
	"airquality-dashboard/internal/modules/airquality/types"
	"airquality-dashboard/internal/mqtt"
)

// ReplayResult summarises a Replay run.
type ReplayResult struct {
	Report    types.LoadReport
	Published int
	Skipped   int
}

// Replay publishes every row of a CSV file as an observation message, waiting
// interval between messages. Rows the subscriber would reject are skipped.
func (s *Service) Replay(ctx context.Context, path string, publisher mqtt.MessagePublisher, interval time.Duration) (ReplayResult, error) {
	table, report, err := loader.LoadFile(path)
	if err != nil {
		return ReplayResult{Report: report}, err
	}
	res := ReplayResult{Report: report}

	for i, o := range table.Rows() {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(interval):
			}
		} else if err := ctx.Err(); err != nil {
			return res, err
		}

		msg := MessageFromObservation(o)
		if err := msg.Validate(); err != nil {
			res.Skipped++
			s.logger.Debug("skipping row", "station", o.Station, "time", o.Time, "error", err)
			continue
		}
		seq := res.Published + 1
		msg.Sequence = &seq
		if err := publisher.PublishObservation(msg); err != nil {
			return res, err
		}
		res.Published++
	}

	s.logger.Info("replay finished", "path", path, "published", res.Published, "skipped", res.Skipped)
	return res, nil
}

// MessageFromObservation is the inverse of ObservationFromMessage.
func MessageFromObservation(o types.Observation) mqtt.ObservationMessage {
	return mqtt.ObservationMessage{
		Station:   o.Station,
		Timestamp: o.Time.UTC(),
		PM25:      o.PM25,
		PM10:      o.PM10,
		SO2:       o.SO2,
		NO2:       o.NO2,
		CO:        o.CO,
		O3:        o.O3,
		Temp:      o.Temp,
		Pressure:  o.Pressure,
		DewPoint:  o.DewPoint,
		Rain:      o.Rain,
		WindSpd:   o.WindSpd,
		WindDir:   o.WindDir,
		Season:    o.Season,
	}
}
