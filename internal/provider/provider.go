package provider

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/models"
	"go.uber.org/zap"
)

const (
	MinFrequencyMinutes     = 1
	MaxFrequencyMinutes     = 60
	DefaultFrequencyMinutes = 5

	DefaultHistoryHours = 48
	MaxHistoryHours     = 720

	// SamplesPerHour is the history density shared by every provider
	SamplesPerHour = 12
	SampleInterval = time.Hour / SamplesPerHour

	statusTimeLayout  = "2006-01-02 15:04:05"
	historyTimeLayout = "2006-01-02 15:04"
)

// ErrUnknownVariant is returned for provider names that are not registered
var ErrUnknownVariant = errors.New("unknown provider variant")

// Variant identifies a provider implementation
type Variant string

const (
	VariantSynthetic Variant = "synthetic"
	VariantRemote    Variant = "remote"
)

// ParseVariant accepts the canonical names plus the dashboard's "mock"/"real" labels
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "synthetic", "mock":
		return VariantSynthetic, nil
	case "remote", "real":
		return VariantRemote, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// Provider supplies telemetry and accepts operator commands.
// Implementations never return errors: failures degrade to "no data" results.
// A Provider is not safe for concurrent use; callers serialize access.
type Provider interface {
	Variant() Variant

	// SystemStatus returns the current snapshot
	SystemStatus(ctx context.Context) models.SystemStatus

	// UpdateDataFrequency sets the collection interval in minutes (1-60)
	UpdateDataFrequency(minutes int) models.CommandResult

	// HistoricalData returns SamplesPerHour samples per hour of the window.
	// hours <= 0 selects DefaultHistoryHours.
	HistoricalData(ctx context.Context, hours int) models.HistoricalSeries

	SafetyThresholds() models.SafetyThresholds

	SendCommand(req models.CommandRequest) models.CommandResult
}

// Option configures a provider
type Option func(*options)

type options struct {
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time
	rng     *rand.Rand
}

func newOptions(opts []Option) options {
	o := options{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return o
}

// WithLogger sets the logger used at failure swallow points
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records fetch and command outcomes
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRand overrides the random source used by the synthetic provider
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		o.rng = r
	}
}

// windowSamples normalizes an hour window and returns its sample count
func windowSamples(hours int) int {
	if hours <= 0 {
		hours = DefaultHistoryHours
	}
	if hours > MaxHistoryHours {
		hours = MaxHistoryHours
	}
	return hours * SamplesPerHour
}

// timeAxis returns n evenly spaced timestamps, oldest first, ending at end
func timeAxis(end time.Time, n int) []string {
	axis := make([]string, n)
	for i := 0; i < n; i++ {
		axis[i] = end.Add(-time.Duration(n-1-i) * SampleInterval).Format(historyTimeLayout)
	}
	return axis
}
