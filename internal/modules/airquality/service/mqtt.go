package service

import (
	"context"
	"log/slog"
	"time"

	"airquality-dashboard/internal/modules/airquality/repository"
	"airquality-dashboard/internal/modules/airquality/types"
	"airquality-dashboard/internal/mqtt"
)

const insertTimeout = 5 * time.Second

// registerMQTTHandler stores every valid observation message.
func registerMQTTHandler(subscriber mqtt.MessageSubscriber, repo repository.ObservationRepository, logger *slog.Logger) {
	subscriber.SetMessageHandler(func(msg mqtt.ObservationMessage) error {
		logger.Debug("processing observation message",
			"station", msg.Station,
			"timestamp", msg.Timestamp,
		)

		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		defer cancel()

		if err := repo.InsertObservation(ctx, ObservationFromMessage(msg)); err != nil {
			logger.Error("failed to insert observation",
				"station", msg.Station,
				"error", err,
			)
			return err
		}

		logger.Debug("stored observation", "station", msg.Station)
		return nil
	})
}

// ObservationFromMessage converts a message to a row, deriving the calendar
// parts and, when absent, the season from its UTC timestamp.
func ObservationFromMessage(msg mqtt.ObservationMessage) types.Observation {
	ts := msg.Timestamp.UTC().Truncate(time.Hour)
	season := msg.Season
	if season == "" {
		season = types.SeasonOf(ts.Month())
	}
	return types.Observation{
		Station:    msg.Station,
		Time:       ts,
		Year:       ts.Year(),
		Month:      int(ts.Month()),
		Day:        ts.Day(),
		Hour:       ts.Hour(),
		PartsValid: true,
		PM25:       msg.PM25,
		PM10:       msg.PM10,
		SO2:        msg.SO2,
		NO2:        msg.NO2,
		CO:         msg.CO,
		O3:         msg.O3,
		Temp:       msg.Temp,
		Pressure:   msg.Pressure,
		DewPoint:   msg.DewPoint,
		Rain:       msg.Rain,
		WindSpd:    msg.WindSpd,
		WindDir:    msg.WindDir,
		Season:     season,
	}
}
