package models

// Command names an operator action sent to the brewing system
type Command string

const (
	CommandSetPressure   Command = "set_pressure"
	CommandStartBatch    Command = "start_batch"
	CommandStopBatch     Command = "stop_batch"
	CommandEmergencyStop Command = "emergency_stop"
	CommandSetTempOffset Command = "set_temp_offset"
)

// Critical reports whether the command needs a verification code
func (c Command) Critical() bool {
	switch c {
	case CommandSetPressure, CommandStartBatch, CommandStopBatch, CommandEmergencyStop:
		return true
	}
	return false
}

// CommandRequest is an operator command. Value is a number or a string
// depending on the command; an empty VerificationCode means none was given.
type CommandRequest struct {
	Command          Command `json:"command"`
	Value            any     `json:"value"`
	VerificationCode string  `json:"verification_code,omitempty"`
}

// CommandResult is the outcome of a command or a settings change
type CommandResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Succeeded builds a successful result
func Succeeded(message string) CommandResult {
	return CommandResult{Success: true, Message: message}
}

// Rejected builds a failed result
func Rejected(message string) CommandResult {
	return CommandResult{Success: false, Message: message}
}
