package provider

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/models"
)

// channelRange is a uniform sampling range with a display precision
type channelRange struct {
	min, max float64
	decimals int
}

var (
	temperatureRange     = channelRange{20.0, 25.0, 1}
	pressureRange        = channelRange{1.0, 2.5, 2}
	phRange              = channelRange{4.5, 5.5, 1}
	dissolvedOxygenRange = channelRange{2.0, 8.0, 2}
)

func (c channelRange) sample(r *rand.Rand) models.Measurement {
	v := c.min + r.Float64()*(c.max-c.min)
	scale := math.Pow(10, float64(c.decimals))
	return models.Reading(math.Round(v*scale) / scale)
}

// Synthetic generates independent random telemetry and simulates command
// effects in memory. It performs no I/O.
type Synthetic struct {
	*controlState
	rng *rand.Rand
	now func() time.Time
}

var _ Provider = (*Synthetic)(nil)

// NewSynthetic creates a synthetic provider in the idle state
func NewSynthetic(opts ...Option) *Synthetic {
	o := newOptions(opts)
	return &Synthetic{
		controlState: newControlState(VariantSynthetic, models.StateIdle, o),
		rng:          o.rng,
		now:          o.now,
	}
}

func (s *Synthetic) SystemStatus(ctx context.Context) models.SystemStatus {
	return models.SystemStatus{
		Temperature:             temperatureRange.sample(s.rng),
		Pressure:                pressureRange.sample(s.rng),
		PH:                      phRange.sample(s.rng),
		DissolvedOxygen:         dissolvedOxygenRange.sample(s.rng),
		DataCollectionFrequency: s.frequency,
		LastUpdate:              s.now().Format(statusTimeLayout),
		SystemState:             s.state,
		SafeMode:                s.safeMode,
	}
}

func (s *Synthetic) HistoricalData(ctx context.Context, hours int) models.HistoricalSeries {
	n := windowSamples(hours)
	series := models.NewHistoricalSeries(0)
	series.Timestamps = timeAxis(s.now(), n)

	for i := 0; i < n; i++ {
		series.Temperature = append(series.Temperature, temperatureRange.sample(s.rng))
		series.Pressure = append(series.Pressure, pressureRange.sample(s.rng))
		series.PH = append(series.PH, phRange.sample(s.rng))
		series.DissolvedOxygen = append(series.DissolvedOxygen, dissolvedOxygenRange.sample(s.rng))
	}

	return series
}
