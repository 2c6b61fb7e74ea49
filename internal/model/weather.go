package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// WeatherRequest describes a daily weather archive query.
type WeatherRequest struct {
	Latitude  float64
	Longitude float64
	StartDate time.Time
	EndDate   time.Time
	Daily     []string // e.g. "temperature_2m_max", "precipitation_sum"
	Timezone  string   // e.g. "Australia/Perth"; default "auto"
}

// WeatherResponse matches the JSON returned by the weather archive API.
//
// Example:
//
//	{
//	  "latitude": -31.95,
//	  "longitude": 115.86,
//	  "timezone": "Australia/Perth",
//	  "daily_units": {"time": "iso8601", "temperature_2m_max": "°C"},
//	  "daily": {"time": ["2023-01-01", ...], "temperature_2m_max": [31.2, ...]}
//	}
type WeatherResponse struct {
	Latitude   float64           `json:"latitude"`
	Longitude  float64           `json:"longitude"`
	Timezone   string            `json:"timezone"`
	DailyUnits map[string]string `json:"daily_units"`
	Daily      WeatherDaily      `json:"daily"`
}

// WeatherDaily holds the per-day arrays. Time is kept apart from the numeric fields.
type WeatherDaily struct {
	Time   []string
	Fields map[string][]*float64
}

func (d *WeatherDaily) UnmarshalJSON(raw []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	d.Time = nil
	d.Fields = make(map[string][]*float64, len(m))
	for k, v := range m {
		if k == "time" {
			if err := json.Unmarshal(v, &d.Time); err != nil {
				return fmt.Errorf("daily.time: %w", err)
			}
			continue
		}
		var vals []*float64
		if err := json.Unmarshal(v, &vals); err != nil {
			return fmt.Errorf("daily.%s: %w", k, err)
		}
		d.Fields[k] = vals
	}
	return nil
}

func (d WeatherDaily) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(d.Fields)+1)
	m["time"] = d.Time
	for k, v := range d.Fields {
		m[k] = v
	}
	return json.Marshal(m)
}
