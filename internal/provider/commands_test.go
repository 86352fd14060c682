package provider

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/models"
)

// fakeSource implements RecordSource for testing
type fakeSource struct {
	records   []models.ControllerRecord
	err       error
	calls     int
	lastLimit int
}

func (f *fakeSource) LatestRecords(ctx context.Context, limit int) ([]models.ControllerRecord, error) {
	f.calls++
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func float(v float64) *float64 {
	return &v
}

// providerCases builds a fresh instance of each variant
func providerCases() map[string]func() Provider {
	return map[string]func() Provider{
		"synthetic": func() Provider { return NewSynthetic() },
		"remote": func() Provider {
			return NewRemote(&fakeSource{records: []models.ControllerRecord{
				{RTD: float(21), Conductivity: float(80), PH: float(5), DissolvedOxygen: float(6), Timestamp: "2025-01-01 10:00:00"},
			}})
		},
	}
}

func TestUpdateDataFrequency(t *testing.T) {
	for name, newProvider := range providerCases() {
		t.Run(name, func(t *testing.T) {
			p := newProvider()
			ctx := context.Background()

			for f := -5; f <= 70; f++ {
				before := p.SystemStatus(ctx).DataCollectionFrequency
				result := p.UpdateDataFrequency(f)
				after := p.SystemStatus(ctx).DataCollectionFrequency

				valid := f >= 1 && f <= 60
				if result.Success != valid {
					t.Errorf("frequency %d: expected success=%v, got %v", f, valid, result.Success)
				}
				if valid && after != f {
					t.Errorf("frequency %d: expected stored frequency %d, got %d", f, f, after)
				}
				if !valid {
					if after != before {
						t.Errorf("frequency %d: expected stored frequency unchanged (%d), got %d", f, before, after)
					}
					if result.Message != "Frequency must be between 1 and 60 minutes" {
						t.Errorf("Unexpected message %q", result.Message)
					}
				}
			}
		})
	}
}

func TestSendCommand_VerificationRequired(t *testing.T) {
	critical := []models.Command{
		models.CommandSetPressure,
		models.CommandStartBatch,
		models.CommandStopBatch,
		models.CommandEmergencyStop,
	}
	values := []any{1.5, 0.0, 100.0, "x", nil}

	for name, newProvider := range providerCases() {
		t.Run(name, func(t *testing.T) {
			p := newProvider()
			initial := p.SystemStatus(context.Background()).SystemState

			for _, cmd := range critical {
				for _, v := range values {
					result := p.SendCommand(models.CommandRequest{Command: cmd, Value: v})
					if result.Success {
						t.Errorf("%s(%v): expected rejection without verification code", cmd, v)
					}
					if result.Message != msgVerificationRequired {
						t.Errorf("%s(%v): unexpected message %q", cmd, v, result.Message)
					}
				}
			}

			if got := p.SystemStatus(context.Background()).SystemState; got != initial {
				t.Errorf("Expected state %s to be unchanged, got %s", initial, got)
			}
		})
	}
}

func TestSendCommand_SetPressureBounds(t *testing.T) {
	tests := []struct {
		value   any
		success bool
	}{
		{0.49, false},
		{0.5, true},
		{1.5, true},
		{3.0, true},
		{3.01, false},
		{-1.0, false},
		{2, true},
		{"2.5", true},
		{"high", false},
		{nil, false},
		{math.NaN(), false},
		{math.Inf(1), false},
		{math.Inf(-1), false},
		{"NaN", false},
		{"-Inf", false},
	}

	for name, newProvider := range providerCases() {
		t.Run(name, func(t *testing.T) {
			p := newProvider()
			thresholds := p.SafetyThresholds()

			for _, tt := range tests {
				result := p.SendCommand(models.CommandRequest{
					Command:          models.CommandSetPressure,
					Value:            tt.value,
					VerificationCode: "code",
				})
				if result.Success != tt.success {
					t.Errorf("set_pressure %v: expected success=%v, got %v (%s)", tt.value, tt.success, result.Success, result.Message)
				}
				if f, ok := tt.value.(float64); ok && !tt.success {
					if f >= thresholds.MinPressure && f <= thresholds.MaxPressure {
						t.Errorf("set_pressure %v rejected inside bounds", f)
					}
					if !strings.Contains(result.Message, "(0.5 - 3.0 bar)") {
						t.Errorf("Expected bounds in message, got %q", result.Message)
					}
				}
			}
		})
	}
}

func TestSendCommand_BatchTransitions(t *testing.T) {
	for name, newProvider := range providerCases() {
		t.Run(name, func(t *testing.T) {
			p := newProvider()
			ctx := context.Background()

			result := p.SendCommand(models.CommandRequest{Command: models.CommandStartBatch, VerificationCode: "code"})
			if !result.Success {
				t.Fatalf("Expected start_batch to succeed, got %q", result.Message)
			}
			if got := p.SystemStatus(ctx).SystemState; got != models.StateFermenting {
				t.Errorf("Expected fermenting after start_batch, got %s", got)
			}

			// set_pressure validates only
			p.SendCommand(models.CommandRequest{Command: models.CommandSetPressure, Value: 1.2, VerificationCode: "code"})
			if got := p.SystemStatus(ctx).SystemState; got != models.StateFermenting {
				t.Errorf("Expected set_pressure to leave state fermenting, got %s", got)
			}

			result = p.SendCommand(models.CommandRequest{Command: models.CommandEmergencyStop, VerificationCode: "code"})
			if !result.Success {
				t.Errorf("Expected emergency_stop to be accepted, got %q", result.Message)
			}
			if got := p.SystemStatus(ctx).SystemState; got != models.StateFermenting {
				t.Errorf("Expected emergency_stop to leave state unchanged, got %s", got)
			}

			result = p.SendCommand(models.CommandRequest{Command: models.CommandStopBatch, VerificationCode: "code"})
			if !result.Success {
				t.Fatalf("Expected stop_batch to succeed, got %q", result.Message)
			}
			if got := p.SystemStatus(ctx).SystemState; got != models.StateIdle {
				t.Errorf("Expected idle after stop_batch, got %s", got)
			}
		})
	}
}

func TestSendCommand_NonCritical(t *testing.T) {
	p := NewSynthetic()

	result := p.SendCommand(models.CommandRequest{Command: models.CommandSetTempOffset, Value: 0.5})
	if !result.Success {
		t.Errorf("Expected non-critical command to succeed, got %q", result.Message)
	}
	if result.Message != "Command set_temp_offset with value 0.5 sent successfully" {
		t.Errorf("Unexpected message %q", result.Message)
	}

	result = p.SendCommand(models.CommandRequest{Command: "calibrate_probe", Value: "ph"})
	if !result.Success {
		t.Error("Expected unknown command to be treated as non-critical")
	}
	if got := p.SystemStatus(context.Background()).SystemState; got != models.StateIdle {
		t.Errorf("Expected non-critical commands to leave state idle, got %s", got)
	}
}

func TestSafetyThresholds_Copy(t *testing.T) {
	p := NewSynthetic()

	thresholds := p.SafetyThresholds()
	thresholds.MaxPressure = 100

	if p.SafetyThresholds().MaxPressure != 3.0 {
		t.Error("Expected thresholds to be immutable through the accessor")
	}

	result := p.SendCommand(models.CommandRequest{Command: models.CommandSetPressure, Value: 50.0, VerificationCode: "code"})
	if result.Success {
		t.Error("Expected modified copy to have no effect on validation")
	}
}

func TestParseVariant(t *testing.T) {
	tests := map[string]Variant{
		"synthetic": VariantSynthetic,
		"mock":      VariantSynthetic,
		"Remote":    VariantRemote,
		" real ":    VariantRemote,
	}
	for in, want := range tests {
		got, err := ParseVariant(in)
		if err != nil || got != want {
			t.Errorf("ParseVariant(%q): expected %s, got %s (%v)", in, want, got, err)
		}
	}

	if _, err := ParseVariant("influx"); err == nil {
		t.Error("Expected error for unknown variant")
	}
}
