package mqtt

import (
	"fmt"
	"time"
)

// ObservationMessage is one hourly station reading published to the observation topic.
type ObservationMessage struct {
	Station   string    `json:"station"`
	Timestamp time.Time `json:"timestamp"`

	PM25 *float64 `json:"pm25,omitempty"`
	PM10 *float64 `json:"pm10,omitempty"`
	SO2  *float64 `json:"so2,omitempty"`
	NO2  *float64 `json:"no2,omitempty"`
	CO   *float64 `json:"co,omitempty"`
	O3   *float64 `json:"o3,omitempty"`

	Temp     *float64 `json:"temp,omitempty"`
	Pressure *float64 `json:"pres,omitempty"`
	DewPoint *float64 `json:"dewp,omitempty"`
	Rain     *float64 `json:"rain,omitempty"`
	WindSpd  *float64 `json:"wspm,omitempty"`
	WindDir  string   `json:"wd,omitempty"`
	Season   string   `json:"season,omitempty"`

	// Sequence numbers the messages of one publisher run, starting at 1.
	Sequence *int `json:"sequence,omitempty"`
}

// Validate checks required fields and physical ranges.
func (m ObservationMessage) Validate() error {
	if m.Station == "" {
		return fmt.Errorf("station is required")
	}
	if m.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}

	pollutants := []struct {
		name string
		v    *float64
	}{
		{"pm25", m.PM25}, {"pm10", m.PM10}, {"so2", m.SO2},
		{"no2", m.NO2}, {"co", m.CO}, {"o3", m.O3},
	}
	for _, p := range pollutants {
		if p.v != nil && *p.v < 0 {
			return fmt.Errorf("%s must not be negative: %f", p.name, *p.v)
		}
	}
	if m.Pressure != nil && *m.Pressure <= 0 {
		return fmt.Errorf("pres must be positive: %f", *m.Pressure)
	}
	if m.Rain != nil && *m.Rain < 0 {
		return fmt.Errorf("rain must not be negative: %f", *m.Rain)
	}
	if m.WindSpd != nil && *m.WindSpd < 0 {
		return fmt.Errorf("wspm must not be negative: %f", *m.WindSpd)
	}

	if !m.hasMeasurement() {
		return fmt.Errorf("at least one measurement is required")
	}
	return nil
}

func (m ObservationMessage) hasMeasurement() bool {
	for _, v := range []*float64{
		m.PM25, m.PM10, m.SO2, m.NO2, m.CO, m.O3,
		m.Temp, m.Pressure, m.DewPoint, m.Rain, m.WindSpd,
	} {
		if v != nil {
			return true
		}
	}
	return false
}
