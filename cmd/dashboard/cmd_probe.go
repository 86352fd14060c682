package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/models"
	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/provider"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	jsonOutput   bool
	historyHours int
	commandValue string
	commandCode  string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current system status",
	RunE:  runStatus,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print historical telemetry",
	RunE:  runHistory,
}

var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Print the safety thresholds",
	RunE:  runThresholds,
}

var commandCmd = &cobra.Command{
	Use:   "command NAME",
	Short: "Send a command to the brewing system",
	Long: `Send a command to the brewing system. Critical commands (set_pressure,
start_batch, stop_batch, emergency_stop) need a verification code; when
--code is omitted on a terminal it is prompted for without echo.

Provider state lives only for the duration of one invocation.`,
	Args: cobra.ExactArgs(1),
	RunE: runCommand,
}

func init() {
	rootCmd.AddCommand(statusCmd, historyCmd, thresholdsCmd, commandCmd)

	for _, cmd := range []*cobra.Command{statusCmd, historyCmd, thresholdsCmd, commandCmd} {
		cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON instead of text")
	}

	historyCmd.Flags().IntVar(&historyHours, "hours", provider.DefaultHistoryHours, "window size in hours")
	commandCmd.Flags().StringVar(&commandValue, "value", "", "command value (number or text)")
	commandCmd.Flags().StringVar(&commandCode, "code", "", "verification code for critical commands")
}

// activeProvider builds a one-off provider pair for CLI probes
func activeProvider(cmd *cobra.Command) (provider.Provider, provider.Variant, error) {
	a := appFrom(cmd)

	factory, err := newSelectorFactory(a.cfg, a.logger, nil)
	if err != nil {
		return nil, "", err
	}

	sel, err := factory()
	if err != nil {
		return nil, "", err
	}

	return sel.Active(), sel.ActiveVariant(), nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	p, variant, err := activeProvider(cmd)
	if err != nil {
		return err
	}

	status := p.SystemStatus(cmd.Context())
	out := cmd.OutOrStdout()

	if jsonOutput {
		return writeJSON(out, status)
	}

	printStatus(out, variant, status, p.SafetyThresholds())
	return nil
}

func printStatus(out io.Writer, variant provider.Variant, status models.SystemStatus, thresholds models.SafetyThresholds) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Source:\t%s\n", variant)
	fmt.Fprintf(w, "State:\t%s\n", status.SystemState)
	fmt.Fprintf(w, "Temperature:\t%s °C\n", status.Temperature)
	fmt.Fprintf(w, "Pressure:\t%s bar\n", status.Pressure)
	fmt.Fprintf(w, "pH:\t%s\n", status.PH)
	fmt.Fprintf(w, "Dissolved oxygen:\t%s mg/L\n", status.DissolvedOxygen)
	fmt.Fprintf(w, "Frequency:\t%d min\n", status.DataCollectionFrequency)
	fmt.Fprintf(w, "Last update:\t%s\n", status.LastUpdate)
	w.Flush()

	if status.PressureWarning(thresholds) {
		fmt.Fprintf(out, "WARNING: pressure approaching the %.1f bar limit\n", thresholds.MaxPressure)
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	p, _, err := activeProvider(cmd)
	if err != nil {
		return err
	}

	series := p.HistoricalData(cmd.Context(), historyHours)
	out := cmd.OutOrStdout()

	if jsonOutput {
		return writeJSON(out, series)
	}

	if series.NoDataAvailable {
		fmt.Fprintln(out, "No data available from the brewing controller")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTEMP (°C)\tPRESSURE (bar)\tPH\tDO (mg/L)")
	for i := range series.Timestamps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			series.Timestamps[i],
			series.Temperature[i],
			series.Pressure[i],
			series.PH[i],
			series.DissolvedOxygen[i],
		)
	}
	return w.Flush()
}

func runThresholds(cmd *cobra.Command, args []string) error {
	p, _, err := activeProvider(cmd)
	if err != nil {
		return err
	}

	t := p.SafetyThresholds()
	out := cmd.OutOrStdout()

	if jsonOutput {
		return writeJSON(out, t)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tMIN\tMAX")
	fmt.Fprintf(w, "Pressure (bar)\t%g\t%g\n", t.MinPressure, t.MaxPressure)
	fmt.Fprintf(w, "Temperature (°C)\t%g\t%g\n", t.MinTemperature, t.MaxTemperature)
	fmt.Fprintf(w, "pH\t%g\t%g\n", t.MinPH, t.MaxPH)
	fmt.Fprintf(w, "Dissolved oxygen (mg/L)\t%g\t%g\n", t.MinDissolvedOxygen, t.MaxDissolvedOxygen)
	return w.Flush()
}

func runCommand(cmd *cobra.Command, args []string) error {
	req := models.CommandRequest{
		Command:          models.Command(args[0]),
		Value:            parseCommandValue(commandValue),
		VerificationCode: commandCode,
	}

	if req.Command.Critical() && req.VerificationCode == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Verification code: ")
		code, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("failed to read verification code: %w", err)
		}
		req.VerificationCode = strings.TrimSpace(string(code))
	}

	p, _, err := activeProvider(cmd)
	if err != nil {
		return err
	}

	result := p.SendCommand(req)
	out := cmd.OutOrStdout()

	if jsonOutput {
		if err := writeJSON(out, result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, result.Message)
	}

	if !result.Success {
		return fmt.Errorf("command %s rejected", req.Command)
	}
	return nil
}

// parseCommandValue maps flag text to the value a dashboard would send:
// numbers as float64, anything else as a string, empty as nil
func parseCommandValue(raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
