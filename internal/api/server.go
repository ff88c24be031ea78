// Package api exposes the jump estimation engine and session store over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/apexmetrics/vertical.report/internal/db"
	"github.com/apexmetrics/vertical.report/internal/httputil"
	"github.com/apexmetrics/vertical.report/internal/pose"
	"github.com/apexmetrics/vertical.report/internal/units"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	engine *pose.Engine
	db     *db.DB
	units  string
}

func NewServer(engine *pose.Engine, database *db.DB, lengthUnits string) *Server {
	return &Server{
		engine: engine,
		db:     database,
		units:  lengthUnits,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/frame", s.ingestFrame)
	mux.HandleFunc("/snapshot", s.showSnapshot)
	mux.HandleFunc("/measurement", s.showMeasurement)
	mux.HandleFunc("/anthropometry", s.setAnthropometry)
	mux.HandleFunc("/reset", s.resetCalibration)
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/sessions/stats", s.showSessionStats)
	mux.HandleFunc("/athletes", s.handleAthletes)
	mux.HandleFunc("/stream", s.streamSnapshots)
	mux.HandleFunc("/charts/sessions", s.sessionsChart)
	mux.HandleFunc("/api/config", s.showConfig)
	return mux
}

// ingestFrame feeds one landmark frame through the engine and returns the
// resulting diagnostics snapshot. This is the path camera-side clients use
// when the serial detector link is not in play.
func (s *Server) ingestFrame(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		httputil.WriteJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var frame pose.LandmarkFrame
	if err := json.Unmarshal(body, &frame); err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid frame: %v", err))
		return
	}

	snapshot := s.engine.ProcessFrame(frame)
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, "Failed to write snapshot")
		return
	}
}

func (s *Server) showSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := json.NewEncoder(w).Encode(s.engine.Snapshot()); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, "Failed to write snapshot")
		return
	}
}

func (s *Server) showMeasurement(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	m := s.engine.Measurement()
	m.MaxHeightCm = units.ConvertLength(m.MaxHeightCm, s.units)
	m.MaxHeightLowerCm = units.ConvertLength(m.MaxHeightLowerCm, s.units)
	m.MaxHeightUpperCm = units.ConvertLength(m.MaxHeightUpperCm, s.units)
	m.MaxSpikeReachCm = units.ConvertLength(m.MaxSpikeReachCm, s.units)
	m.MaxSpikeReachLowerCm = units.ConvertLength(m.MaxSpikeReachLowerCm, s.units)
	m.MaxSpikeReachUpperCm = units.ConvertLength(m.MaxSpikeReachUpperCm, s.units)

	response := map[string]interface{}{
		"units":       s.units,
		"measurement": m,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, "Failed to write measurement")
		return
	}
}

// anthropometryRequest sets the calibration inputs either inline or by
// athlete ID. Inline fields win when both are present.
type anthropometryRequest struct {
	AthleteID         string   `json:"athlete_id,omitempty"`
	HeightCm          float64  `json:"height_cm,omitempty"`
	EyeToHeadVertexCm *float64 `json:"eye_to_vertex_cm,omitempty"`
	HeelToHandReachCm *float64 `json:"reach_cm,omitempty"`
}

func (s *Server) setAnthropometry(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		httputil.WriteJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req anthropometryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	a := pose.Anthropometry{
		HeightCm:          req.HeightCm,
		EyeToHeadVertexCm: req.EyeToHeadVertexCm,
		HeelToHandReachCm: req.HeelToHandReachCm,
	}

	if req.AthleteID != "" && req.HeightCm == 0 {
		athlete, err := s.db.GetAthlete(req.AthleteID)
		if errors.Is(err, db.ErrAthleteNotFound) {
			httputil.WriteJSONError(w, http.StatusNotFound, "Athlete not found")
			return
		}
		if err != nil {
			httputil.WriteJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to load athlete: %v", err))
			return
		}
		a = pose.Anthropometry{
			HeightCm:          athlete.HeightCm,
			EyeToHeadVertexCm: athlete.EyeToHeadVertexCm,
			HeelToHandReachCm: athlete.HeelToHandReachCm,
		}
	}

	if a.HeightCm <= 0 {
		httputil.WriteJSONError(w, http.StatusBadRequest, "height_cm must be positive")
		return
	}

	s.engine.SetAnthropometry(a)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) resetCalibration(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		httputil.WriteJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.engine.ResetCalibration()
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listSessions(w, r)
	case http.MethodPost:
		s.saveSession(w, r)
	default:
		w.Header().Set("Content-Type", "application/json")
		httputil.WriteJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.WriteJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	var (
		sessions []db.Session
		err      error
	)
	if athleteID := r.URL.Query().Get("athlete_id"); athleteID != "" {
		sessions, err = s.db.AthleteSessions(athleteID, limit)
	} else {
		sessions, err = s.db.Sessions(limit)
	}
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve sessions: %v", err))
		return
	}

	if sessions == nil {
		sessions = []db.Session{}
	}
	if err := json.NewEncoder(w).Encode(sessions); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, "Failed to write sessions")
		return
	}
}

// saveSession persists the engine's current measurement. The engine must
// have completed calibration; an uncalibrated engine has no scale to store.
func (s *Server) saveSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	scale := s.engine.Scale()
	if scale == nil {
		httputil.WriteJSONError(w, http.StatusConflict, "No calibrated measurement to save")
		return
	}

	var req struct {
		AthleteID string `json:"athlete_id,omitempty"`
	}
	if r.Body != nil {
		// An empty body is fine; the session is simply unattributed.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			httputil.WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
			return
		}
	}

	m := s.engine.Measurement()
	snapshot := s.engine.Snapshot()
	anthro := s.engine.Anthropometry()

	session := db.Session{
		HeightCm:          0,
		PxToCm:            scale.PxToCm,
		IsPrecise:         scale.IsPrecise,
		MaxHeightCm:       m.MaxHeightCm,
		MaxHeightLowerCm:  m.MaxHeightLowerCm,
		MaxHeightUpperCm:  m.MaxHeightUpperCm,
		SpikeReachCm:      m.MaxSpikeReachCm,
		SpikeReachLowerCm: m.MaxSpikeReachLowerCm,
		SpikeReachUpperCm: m.MaxSpikeReachUpperCm,
		Frames:            snapshot.FrameCount,
	}
	if anthro != nil {
		session.HeightCm = anthro.HeightCm
	}
	if req.AthleteID != "" {
		session.AthleteID = &req.AthleteID
	}

	if err := s.db.RecordSession(&session); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to record session: %v", err))
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(session); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, "Failed to write session")
		return
	}
}

func (s *Server) showSessionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	days := 30 // default value
	if d := r.URL.Query().Get("days"); d != "" {
		parsedDays, err := strconv.Atoi(d)
		if err != nil || parsedDays < 1 {
			httputil.WriteJSONError(w, http.StatusBadRequest, "Invalid 'days' parameter")
			return
		}
		days = parsedDays
	}

	targetUnits := s.units
	if u := r.URL.Query().Get("units"); u != "" {
		if !units.IsValid(u) {
			httputil.WriteJSONError(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid 'units' parameter; valid values: %s", units.GetValidUnitsString()))
			return
		}
		targetUnits = u
	}

	stats, err := s.db.SessionRollup(days)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve session stats: %v", err))
		return
	}

	// Apply unit conversion to all height values
	for i := range stats {
		stats[i].BestCm = units.ConvertLength(stats[i].BestCm, targetUnits)
		stats[i].P50Cm = units.ConvertLength(stats[i].P50Cm, targetUnits)
		stats[i].P95Cm = units.ConvertLength(stats[i].P95Cm, targetUnits)
		stats[i].MeanCm = units.ConvertLength(stats[i].MeanCm, targetUnits)
		stats[i].StdDevCm = units.ConvertLength(stats[i].StdDevCm, targetUnits)
	}

	if stats == nil {
		stats = []db.DailyRollup{}
	}
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, "Failed to write session stats")
		return
	}
}

func (s *Server) handleAthletes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		athletes, err := s.db.Athletes()
		if err != nil {
			httputil.WriteJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to retrieve athletes: %v", err))
			return
		}
		if athletes == nil {
			athletes = []db.Athlete{}
		}
		if err := json.NewEncoder(w).Encode(athletes); err != nil {
			httputil.WriteJSONError(w, http.StatusInternalServerError, "Failed to write athletes")
			return
		}

	case http.MethodPost:
		var athlete db.Athlete
		if err := json.NewDecoder(r.Body).Decode(&athlete); err != nil {
			httputil.WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
			return
		}
		if err := s.db.CreateAthlete(&athlete); err != nil {
			httputil.WriteJSONError(w, http.StatusBadRequest,
				fmt.Sprintf("Failed to create athlete: %v", err))
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(athlete)

	default:
		httputil.WriteJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// streamSnapshots issues Server-Sent Events carrying each frame's
// diagnostics snapshot as JSON.
func (s *Server) streamSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	id, c := s.engine.Subscribe()
	defer s.engine.Unsubscribe(id)

	// Send initial ping to establish connection
	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case snapshot, ok := <-c:
			if !ok {
				// Channel closed, exit gracefully
				return
			}
			payload, err := json.Marshal(snapshot)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		httputil.WriteJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	cfg := s.engine.Config()
	config := map[string]interface{}{
		"units":                      s.units,
		"stability_window":           cfg.StabilityWindow,
		"movement_threshold_px":      cfg.MovementThresholdPx,
		"min_joint_confidence":       cfg.MinJointConfidence,
		"calibration_frames":         cfg.CalibrationFrames,
		"min_body_height_px":         cfg.MinBodyHeightPx,
		"scale_uncertainty_fraction": cfg.ScaleUncertaintyFraction,
		"frame_width_px":             cfg.FrameWidthPx,
		"frame_height_px":            cfg.FrameHeightPx,
		"edge_margin_fraction":       cfg.EdgeMarginFraction,
		"min_body_height_fraction":   cfg.MinBodyHeightFraction,
		"max_body_height_fraction":   cfg.MaxBodyHeightFraction,
	}

	if err := json.NewEncoder(w).Encode(config); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, "Failed to write config")
		return
	}
}
