package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/models"
	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/provider"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// StatusResponse is a status snapshot annotated for the dashboard
type StatusResponse struct {
	models.SystemStatus
	PressureWarning bool             `json:"pressure_warning"`
	Source          provider.Variant `json:"source"`
}

// HistoryResponse is a history window tagged with its source
type HistoryResponse struct {
	models.HistoricalSeries
	Source provider.Variant `json:"source"`
}

type frequencyRequest struct {
	Minutes *int `json:"minutes"`
}

type sourceRequest struct {
	Source string `json:"source"`
}

type sourceResponse struct {
	Source provider.Variant `json:"source"`
}

// DashboardHandler serves the session-scoped dashboard API
type DashboardHandler struct {
	logger *zap.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		logger: logger,
	}
}

// RegisterRoutes registers the dashboard routes on an authenticated router
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/status", h.GetStatus).Methods(http.MethodGet)
	router.HandleFunc("/history", h.GetHistory).Methods(http.MethodGet)
	router.HandleFunc("/thresholds", h.GetThresholds).Methods(http.MethodGet)
	router.HandleFunc("/frequency", h.UpdateFrequency).Methods(http.MethodPut)
	router.HandleFunc("/commands", h.SendCommand).Methods(http.MethodPost)
	router.HandleFunc("/source", h.GetSource).Methods(http.MethodGet)
	router.HandleFunc("/source", h.SetSource).Methods(http.MethodPut)

	h.logger.Info("Dashboard routes registered")
}

// snapshot reads the active provider's status. Callers hold the session lock.
func snapshot(ctx context.Context, sel *provider.Selector) StatusResponse {
	p := sel.Active()
	status := p.SystemStatus(ctx)
	return StatusResponse{
		SystemStatus:    status,
		PressureWarning: status.PressureWarning(p.SafetyThresholds()),
		Source:          sel.ActiveVariant(),
	}
}

// GetStatus handles GET /status
func (h *DashboardHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	s := requireSession(w, r)
	if s == nil {
		return
	}

	var resp StatusResponse
	s.Do(func(sel *provider.Selector) {
		resp = snapshot(r.Context(), sel)
	})

	writeJSON(w, http.StatusOK, resp)
}

// GetHistory handles GET /history?hours=N. A missing hours parameter selects
// the default window.
func (h *DashboardHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	s := requireSession(w, r)
	if s == nil {
		return
	}

	hours := 0
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "hours must be a positive integer")
			return
		}
		hours = n
	}

	var resp HistoryResponse
	s.Do(func(sel *provider.Selector) {
		resp = HistoryResponse{
			HistoricalSeries: sel.Active().HistoricalData(r.Context(), hours),
			Source:           sel.ActiveVariant(),
		}
	})

	writeJSON(w, http.StatusOK, resp)
}

// GetThresholds handles GET /thresholds
func (h *DashboardHandler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	s := requireSession(w, r)
	if s == nil {
		return
	}

	var thresholds models.SafetyThresholds
	s.Do(func(sel *provider.Selector) {
		thresholds = sel.Active().SafetyThresholds()
	})

	writeJSON(w, http.StatusOK, thresholds)
}

// UpdateFrequency handles PUT /frequency
func (h *DashboardHandler) UpdateFrequency(w http.ResponseWriter, r *http.Request) {
	s := requireSession(w, r)
	if s == nil {
		return
	}

	var req frequencyRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Minutes == nil {
		writeError(w, http.StatusBadRequest, "Request body must be {\"minutes\": <integer>}")
		return
	}

	var result models.CommandResult
	s.Do(func(sel *provider.Selector) {
		result = sel.Active().UpdateDataFrequency(*req.Minutes)
	})

	writeResult(w, result)
}

// SendCommand handles POST /commands
func (h *DashboardHandler) SendCommand(w http.ResponseWriter, r *http.Request) {
	s := requireSession(w, r)
	if s == nil {
		return
	}

	var req models.CommandRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid command body")
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	var result models.CommandResult
	var source provider.Variant
	s.Do(func(sel *provider.Selector) {
		result = sel.Active().SendCommand(req)
		source = sel.ActiveVariant()
	})

	requestLogger(h.logger, r).Info("Command handled",
		zap.String("session_id", s.ID.String()),
		zap.String("source", string(source)),
		zap.String("command", string(req.Command)),
		zap.Bool("success", result.Success),
	)

	writeResult(w, result)
}

// GetSource handles GET /source
func (h *DashboardHandler) GetSource(w http.ResponseWriter, r *http.Request) {
	s := requireSession(w, r)
	if s == nil {
		return
	}

	var resp sourceResponse
	s.Do(func(sel *provider.Selector) {
		resp.Source = sel.ActiveVariant()
	})

	writeJSON(w, http.StatusOK, resp)
}

// SetSource handles PUT /source and returns the new provider's status
func (h *DashboardHandler) SetSource(w http.ResponseWriter, r *http.Request) {
	s := requireSession(w, r)
	if s == nil {
		return
	}

	var req sourceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be {\"source\": \"synthetic\"|\"remote\"}")
		return
	}

	variant, err := provider.ParseVariant(req.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var resp StatusResponse
	s.Do(func(sel *provider.Selector) {
		if err = sel.SetActive(variant); err != nil {
			return
		}
		resp = snapshot(r.Context(), sel)
	})

	if err != nil {
		if errors.Is(err, provider.ErrUnknownVariant) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to switch data source")
		return
	}

	requestLogger(h.logger, r).Info("Data source switched",
		zap.String("session_id", s.ID.String()),
		zap.String("source", string(variant)),
	)

	writeJSON(w, http.StatusOK, resp)
}

// writeResult answers 200 for accepted results and 422 for rejected ones
func writeResult(w http.ResponseWriter, result models.CommandResult) {
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}
