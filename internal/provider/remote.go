package provider

import (
	"context"
	"time"

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/controller"
	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/models"
	"go.uber.org/zap"
)

// ConductivityPerBar converts raw controller conductivity into the pressure
// channel. It is a display heuristic, not a calibrated unit conversion.
const ConductivityPerBar = 50.0

const noDataSuffix = " (No API data available)"

// RecordSource fetches raw controller records, newest first
type RecordSource interface {
	LatestRecords(ctx context.Context, limit int) ([]models.ControllerRecord, error)
}

// Remote reads telemetry from the brewing controller. Every fetch failure,
// including an empty result, degrades to a "no data" payload.
type Remote struct {
	*controlState
	source RecordSource
	now    func() time.Time
}

var _ Provider = (*Remote)(nil)

// NewRemote creates a remote provider in the connected state
func NewRemote(source RecordSource, opts ...Option) *Remote {
	o := newOptions(opts)
	return &Remote{
		controlState: newControlState(VariantRemote, models.StateConnected, o),
		source:       source,
		now:          o.now,
	}
}

func (r *Remote) SystemStatus(ctx context.Context) models.SystemStatus {
	records, err := r.fetch(ctx, "status", 1)
	if err != nil {
		return r.unavailableStatus()
	}

	latest := records[0]
	lastUpdate := latest.Timestamp
	if lastUpdate == "" {
		lastUpdate = r.now().Format(statusTimeLayout)
	}

	status := models.SystemStatus{
		Temperature:             models.FromPtr(latest.RTD),
		Pressure:                pressureFromConductivity(latest.Conductivity),
		PH:                      models.FromPtr(latest.PH),
		DissolvedOxygen:         models.FromPtr(latest.DissolvedOxygen),
		DataCollectionFrequency: r.frequency,
		LastUpdate:              lastUpdate,
		SystemState:             r.state,
		SafeMode:                r.safeMode,
	}
	status.NoDataAvailable = !status.HasReadings()

	return status
}

func (r *Remote) HistoricalData(ctx context.Context, hours int) models.HistoricalSeries {
	n := windowSamples(hours)

	records, err := r.fetch(ctx, "history", n)
	if err != nil {
		return r.unavailableHistory(n)
	}

	// a controller that ignores limit may send more than asked for
	if len(records) > n {
		records = records[:n]
	}

	// records arrive newest first; series are chronological and always n
	// long, so a short result leaves unavailable slots at the old end
	series := models.NewHistoricalSeries(n)
	missing := n - len(records)
	copy(series.Timestamps, r.paddingAxis(records[len(records)-1].Timestamp, missing))

	readings := false
	for i, rec := range records {
		j := n - 1 - i
		series.Timestamps[j] = rec.Timestamp
		series.Temperature[j] = models.FromPtr(rec.RTD)
		series.Pressure[j] = pressureFromConductivity(rec.Conductivity)
		series.PH[j] = models.FromPtr(rec.PH)
		series.DissolvedOxygen[j] = models.FromPtr(rec.DissolvedOxygen)

		readings = readings || series.Temperature[j].Available || series.Pressure[j].Available ||
			series.PH[j].Available || series.DissolvedOxygen[j].Available
	}
	series.NoDataAvailable = !readings

	return series
}

// paddingAxis returns missing timestamps spaced SampleInterval apart that end
// one interval before oldest. Unparseable timestamps anchor the axis at now.
func (r *Remote) paddingAxis(oldest string, missing int) []string {
	if missing <= 0 {
		return nil
	}

	end := r.now()
	for _, layout := range []string{statusTimeLayout, historyTimeLayout} {
		if t, err := time.Parse(layout, oldest); err == nil {
			end = t.Add(-SampleInterval)
			break
		}
	}

	return timeAxis(end, missing)
}

func (r *Remote) fetch(ctx context.Context, operation string, limit int) ([]models.ControllerRecord, error) {
	start := time.Now()
	records, err := r.source.LatestRecords(ctx, limit)
	if err == nil && len(records) == 0 {
		err = controller.ErrEmptyResult
	}
	r.metrics.observeFetch(r.variant, operation, err, time.Since(start))

	if err != nil {
		r.logger.Warn("Controller fetch failed, serving no-data fallback",
			zap.String("operation", operation),
			zap.Int("limit", limit),
			zap.Error(err),
		)
		return nil, err
	}

	return records, nil
}

// unavailableStatus reports disconnection for this call only; the stored
// state is left untouched.
func (r *Remote) unavailableStatus() models.SystemStatus {
	return models.SystemStatus{
		Temperature:             models.Unavailable(),
		Pressure:                models.Unavailable(),
		PH:                      models.Unavailable(),
		DissolvedOxygen:         models.Unavailable(),
		DataCollectionFrequency: r.frequency,
		LastUpdate:              r.now().Format(statusTimeLayout) + noDataSuffix,
		SystemState:             models.StateDisconnected,
		SafeMode:                r.safeMode,
		NoDataAvailable:         true,
	}
}

func (r *Remote) unavailableHistory(n int) models.HistoricalSeries {
	series := models.NewHistoricalSeries(n)
	series.Timestamps = timeAxis(r.now(), n)
	series.NoDataAvailable = true
	return series
}

func pressureFromConductivity(conductivity *float64) models.Measurement {
	if conductivity == nil {
		return models.Unavailable()
	}
	return models.Reading(*conductivity / ConductivityPerBar)
}
