package airquality

import (
	"log/slog"
	"net/http"

	"airquality-dashboard/internal/modules/airquality/controller"
	"airquality-dashboard/internal/modules/airquality/service"
	"airquality-dashboard/internal/mqtt"
)

// RegisterFeature mounts the dashboard routes and, when subscriber is not
// nil, stores incoming MQTT observations.
func RegisterFeature(mux *http.ServeMux, svc *service.Service, subscriber mqtt.MessageSubscriber, logger *slog.Logger) error {
	airQualityController := controller.NewAirQualityController(svc, logger)
	airQualityController.RegisterRoutes(mux)
	if subscriber == nil {
		return nil
	}
	return svc.Register(subscriber)
}
