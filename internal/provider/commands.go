package provider

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/models"
	"go.uber.org/zap"
)

const msgVerificationRequired = "Verification code required for critical operations"

// controlState is the command state machine both providers share.
// Each provider owns its own instance.
type controlState struct {
	variant    Variant
	thresholds models.SafetyThresholds
	state      models.SystemState
	frequency  int
	safeMode   bool
	metrics    *Metrics
	logger     *zap.Logger
}

func newControlState(variant Variant, initial models.SystemState, o options) *controlState {
	return &controlState{
		variant:    variant,
		thresholds: models.DefaultSafetyThresholds(),
		state:      initial,
		frequency:  DefaultFrequencyMinutes,
		safeMode:   true,
		metrics:    o.metrics,
		logger:     o.logger,
	}
}

func (c *controlState) Variant() Variant {
	return c.variant
}

func (c *controlState) SafetyThresholds() models.SafetyThresholds {
	return c.thresholds
}

func (c *controlState) UpdateDataFrequency(minutes int) models.CommandResult {
	if minutes < MinFrequencyMinutes || minutes > MaxFrequencyMinutes {
		return models.Rejected(fmt.Sprintf("Frequency must be between %d and %d minutes",
			MinFrequencyMinutes, MaxFrequencyMinutes))
	}

	c.frequency = minutes
	return models.Succeeded(fmt.Sprintf("Data collection frequency updated to %d minutes", minutes))
}

func (c *controlState) SendCommand(req models.CommandRequest) models.CommandResult {
	result := c.apply(req)
	c.metrics.observeCommand(c.variant, req.Command, result.Success)

	c.logger.Info("Command processed",
		zap.String("provider", string(c.variant)),
		zap.String("command", string(req.Command)),
		zap.Bool("success", result.Success),
		zap.String("system_state", string(c.state)),
	)

	return result
}

func (c *controlState) apply(req models.CommandRequest) models.CommandResult {
	if req.Command.Critical() && req.VerificationCode == "" {
		return models.Rejected(msgVerificationRequired)
	}

	switch req.Command {
	case models.CommandSetPressure:
		pressure, ok := numericValue(req.Value)
		if !ok {
			return models.Rejected("Pressure value must be numeric")
		}
		// written so NaN fails the check
		if !(pressure >= c.thresholds.MinPressure && pressure <= c.thresholds.MaxPressure) {
			return models.Rejected(fmt.Sprintf("Pressure value outside safe range (%.1f - %.1f bar)",
				c.thresholds.MinPressure, c.thresholds.MaxPressure))
		}
	case models.CommandStartBatch:
		c.state = models.StateFermenting
	case models.CommandStopBatch:
		c.state = models.StateIdle
	case models.CommandEmergencyStop:
		// accepted, no transition defined
	}

	return models.Succeeded(fmt.Sprintf("Command %s with value %v sent successfully", req.Command, formatValue(req.Value)))
}

// numericValue accepts the number shapes a command value can arrive in
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func formatValue(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
