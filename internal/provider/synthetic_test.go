package provider

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	t := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestSynthetic_StatusRanges(t *testing.T) {
	p := NewSynthetic(WithRand(rand.New(rand.NewPCG(1, 2))), WithClock(fixedClock()))
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		status := p.SystemStatus(ctx)

		if status.NoDataAvailable {
			t.Fatal("Expected synthetic status to always have data")
		}
		checkRange(t, "temperature", status.Temperature.Value, 20.0, 25.0)
		checkRange(t, "pressure", status.Pressure.Value, 1.0, 2.5)
		checkRange(t, "ph", status.PH.Value, 4.5, 5.5)
		checkRange(t, "dissolved_oxygen", status.DissolvedOxygen.Value, 2.0, 8.0)

		if !status.Temperature.Available || !status.Pressure.Available ||
			!status.PH.Available || !status.DissolvedOxygen.Available {
			t.Fatal("Expected all synthetic channels to be available")
		}
	}
}

func checkRange(t *testing.T, name string, v, min, max float64) {
	t.Helper()
	if v < min || v > max {
		t.Fatalf("Expected %s in [%v, %v], got %v", name, min, max, v)
	}
}

func TestSynthetic_InitialStatus(t *testing.T) {
	p := NewSynthetic(WithClock(fixedClock()))
	status := p.SystemStatus(context.Background())

	if status.SystemState != "idle" {
		t.Errorf("Expected idle, got %s", status.SystemState)
	}
	if status.DataCollectionFrequency != DefaultFrequencyMinutes {
		t.Errorf("Expected frequency %d, got %d", DefaultFrequencyMinutes, status.DataCollectionFrequency)
	}
	if !status.SafeMode {
		t.Error("Expected safe mode to be enabled")
	}
	if status.LastUpdate != "2025-03-14 12:00:00" {
		t.Errorf("Unexpected last update %q", status.LastUpdate)
	}
}

func TestSynthetic_HistoricalData(t *testing.T) {
	p := NewSynthetic(WithRand(rand.New(rand.NewPCG(3, 4))), WithClock(fixedClock()))
	ctx := context.Background()

	tests := []struct {
		hours int
		want  int
	}{
		{1, 12},
		{48, 576},
		{0, DefaultHistoryHours * SamplesPerHour},
		{-3, DefaultHistoryHours * SamplesPerHour},
		{10000, MaxHistoryHours * SamplesPerHour},
	}

	for _, tt := range tests {
		series := p.HistoricalData(ctx, tt.hours)

		if !series.Valid() {
			t.Errorf("hours %d: expected equal channel lengths", tt.hours)
		}
		if series.Len() != tt.want {
			t.Errorf("hours %d: expected %d samples, got %d", tt.hours, tt.want, series.Len())
		}
		if series.NoDataAvailable {
			t.Errorf("hours %d: expected data", tt.hours)
		}
	}

	series := p.HistoricalData(ctx, 1)
	if series.Timestamps[0] != "2025-03-14 11:05" {
		t.Errorf("Expected oldest sample at 11:05, got %s", series.Timestamps[0])
	}
	if series.Timestamps[11] != "2025-03-14 12:00" {
		t.Errorf("Expected newest sample at 12:00, got %s", series.Timestamps[11])
	}
	for i, m := range series.Pressure {
		checkRange(t, "pressure", m.Value, 1.0, 2.5)
		if !m.Available {
			t.Errorf("Expected sample %d to be available", i)
		}
	}
}
