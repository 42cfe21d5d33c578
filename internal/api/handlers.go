package api

import (
	"encoding/json"
	"net/http"

	"github.com/rjames86/grafana-collectors/pkg/point"
)

// apiResponse is the acknowledgement shape shared by the write and notify
// endpoints.
type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type writeRequest struct {
	DataPoints []point.Point `json:"data_points"`
	Verbose    bool          `json:"verbose"`
}

// handleWrite accepts one batch and writes it to the named database. The
// batch is rejected wholesale if any point is invalid; a store failure is a
// hard error with a non-2xx status.
func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	database := r.PathValue("database")

	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, apiResponse{Message: "unreadable request body: " + err.Error()})
		return
	}
	if len(req.DataPoints) == 0 {
		s.respond(w, http.StatusBadRequest, apiResponse{Message: "no data points in request"})
		return
	}

	for _, p := range req.DataPoints {
		if _, err := point.New(p.Measurement, p.Tags, p.Fields, p.Time); err != nil {
			s.respond(w, http.StatusBadRequest, apiResponse{Message: "invalid point: " + err.Error()})
			return
		}
	}

	if req.Verbose {
		for _, p := range req.DataPoints {
			s.logger.Info("received point",
				"database", database,
				"measurement", p.Measurement,
				"tags", p.Tags,
				"time", p.Time,
			)
		}
	}

	if err := s.store.WritePoints(r.Context(), database, req.DataPoints); err != nil {
		s.logger.Error("write failed", "database", database, "error", err)
		s.respond(w, http.StatusInternalServerError, apiResponse{Message: err.Error()})
		return
	}

	s.respond(w, http.StatusOK, apiResponse{Success: true, Message: "Successfully written"})
}

// handleLatestData serves the dashboard summary.
func (s *Server) handleLatestData(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.LatestData(r.Context())
	if err != nil {
		s.logger.Error("latest data query failed", "error", err)
		http.Error(w, "Failed to query latest data", http.StatusInternalServerError)
		return
	}

	s.respond(w, http.StatusOK, data)
}

// handleNotify relays one notification under the named app.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	app := r.PathValue("app")

	var req struct {
		Message string `json:"message"`
		Title   string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, apiResponse{Message: "unreadable request body: " + err.Error()})
		return
	}
	if req.Message == "" {
		s.respond(w, http.StatusBadRequest, apiResponse{Message: "message cannot be empty"})
		return
	}

	if err := s.relay.Send(r.Context(), app, req.Message, req.Title); err != nil {
		s.logger.Error("notification relay failed", "app", app, "error", err)
		s.respond(w, http.StatusBadGateway, apiResponse{Message: err.Error()})
		return
	}

	s.respond(w, http.StatusOK, apiResponse{Success: true, Message: "Notification sent"})
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
