package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// SystemState is the lifecycle state a provider reports for the brewing system
type SystemState string

const (
	StateIdle         SystemState = "idle"
	StateFermenting   SystemState = "fermenting"
	StateConnected    SystemState = "connected"
	StateDisconnected SystemState = "disconnected"
)

// NoDataLabel is what an unavailable measurement renders as
const NoDataLabel = "No data"

// Measurement is a single telemetry value. The zero value means "unavailable",
// which is distinct from a sensor that actually read 0.
type Measurement struct {
	Value     float64
	Available bool
}

// Reading returns an available measurement holding v
func Reading(v float64) Measurement {
	return Measurement{Value: v, Available: true}
}

// Unavailable returns the "no data" marker
func Unavailable() Measurement {
	return Measurement{}
}

// FromPtr maps a nullable raw value to a measurement
func FromPtr(v *float64) Measurement {
	if v == nil {
		return Unavailable()
	}
	return Reading(*v)
}

func (m Measurement) String() string {
	if !m.Available {
		return NoDataLabel
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

// MarshalJSON encodes unavailable measurements as null
func (m Measurement) MarshalJSON() ([]byte, error) {
	if !m.Available {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

func (m *Measurement) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = Unavailable()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Reading(v)
	return nil
}

// SystemStatus is the current snapshot of the fermentation system
type SystemStatus struct {
	Temperature             Measurement `json:"temperature"`      // °C
	Pressure                Measurement `json:"pressure"`         // bar
	PH                      Measurement `json:"ph_level"`         // 0-14
	DissolvedOxygen         Measurement `json:"dissolved_oxygen"` // mg/L
	DataCollectionFrequency int         `json:"data_collection_frequency"`
	LastUpdate              string      `json:"last_update"`
	SystemState             SystemState `json:"system_state"`
	SafeMode                bool        `json:"safe_mode"`
	NoDataAvailable         bool        `json:"no_data_available"`
}

// PressureWarning reports whether pressure is within 10% of the configured maximum
func (s SystemStatus) PressureWarning(t SafetyThresholds) bool {
	if s.NoDataAvailable || !s.Pressure.Available {
		return false
	}
	return s.Pressure.Value > t.MaxPressure*0.9
}

// HasReadings reports whether at least one telemetry channel is available
func (s SystemStatus) HasReadings() bool {
	return s.Temperature.Available || s.Pressure.Available ||
		s.PH.Available || s.DissolvedOxygen.Available
}

// HistoricalSeries holds parallel, index-aligned telemetry channels
type HistoricalSeries struct {
	Timestamps      []string      `json:"timestamps"`
	Temperature     []Measurement `json:"temperature"`
	Pressure        []Measurement `json:"pressure"`
	PH              []Measurement `json:"ph_level"`
	DissolvedOxygen []Measurement `json:"dissolved_oxygen"`
	NoDataAvailable bool          `json:"no_data_available"`
}

// NewHistoricalSeries allocates a series with n samples per channel
func NewHistoricalSeries(n int) HistoricalSeries {
	return HistoricalSeries{
		Timestamps:      make([]string, n),
		Temperature:     make([]Measurement, n),
		Pressure:        make([]Measurement, n),
		PH:              make([]Measurement, n),
		DissolvedOxygen: make([]Measurement, n),
	}
}

// Len returns the number of samples
func (h HistoricalSeries) Len() int {
	return len(h.Timestamps)
}

// Valid reports whether all five sequences have the same length
func (h HistoricalSeries) Valid() bool {
	n := len(h.Timestamps)
	return len(h.Temperature) == n &&
		len(h.Pressure) == n &&
		len(h.PH) == n &&
		len(h.DissolvedOxygen) == n
}

// SafetyThresholds are the bounds used to reject unsafe setpoints
type SafetyThresholds struct {
	MaxPressure        float64 `json:"max_pressure"`    // bar
	MinPressure        float64 `json:"min_pressure"`    // bar
	MaxTemperature     float64 `json:"max_temperature"` // °C
	MinTemperature     float64 `json:"min_temperature"` // °C
	MaxPH              float64 `json:"max_ph"`
	MinPH              float64 `json:"min_ph"`
	MaxDissolvedOxygen float64 `json:"max_dissolved_oxygen"` // mg/L
	MinDissolvedOxygen float64 `json:"min_dissolved_oxygen"` // mg/L
}

// DefaultSafetyThresholds returns the bounds every provider starts with
func DefaultSafetyThresholds() SafetyThresholds {
	return SafetyThresholds{
		MaxPressure:        3.0,
		MinPressure:        0.5,
		MaxTemperature:     30.0,
		MinTemperature:     5.0,
		MaxPH:              7.0,
		MinPH:              3.5,
		MaxDissolvedOxygen: 10.0,
		MinDissolvedOxygen: 0.5,
	}
}

// ControllerRecord is one raw sample as served by the brewing controller
type ControllerRecord struct {
	RTD             *float64 `json:"RTD"`
	Conductivity    *float64 `json:"CONDUCTIVITY"`
	PH              *float64 `json:"PH"`
	DissolvedOxygen *float64 `json:"DISSOLVED_OXYGEN"`
	Timestamp       string   `json:"timestamp"`
}
