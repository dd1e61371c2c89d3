package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/poslog/poslog/pkg/models"
)

// ingestPayload is the JSON body for POST /api/logs.
type ingestPayload struct {
	Level      string `json:"level"`
	Label      string `json:"label"`
	Message    string `json:"message"`
	Context    any    `json:"context"`
	Timestamp  string `json:"timestamp"`
	Source     string `json:"source"`
	ScenarioID string `json:"scenarioId"`
}

// ingestLog handles POST /api/logs. Open by design: external systems log
// without a session, so everything rides on validation.
func (s *Server) ingestLog(w http.ResponseWriter, r *http.Request) {
	var payload ingestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	in := models.InsertLog{
		Level:      payload.Level,
		Label:      payload.Label,
		Message:    payload.Message,
		Context:    payload.Context,
		Timestamp:  payload.Timestamp,
		Source:     payload.Source,
		ScenarioID: payload.ScenarioID,
	}

	if err := in.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Timestamp != "" {
		if _, err := models.NormalizeTimestamp(in.Timestamp, time.Time{}); err != nil {
			respondError(w, http.StatusBadRequest, "timestamp must be an RFC3339 timestamp")
			return
		}
	}

	id, err := s.store.Insert(r.Context(), in)
	if err != nil {
		log.Printf("insert log error: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to insert log")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// listResponse is the JSON body for GET /api/logs.
type listResponse struct {
	Items      []models.LogRecord `json:"items"`
	NextCursor string             `json:"nextCursor,omitempty"`
	HasMore    bool               `json:"hasMore"`
}

// listLogs handles GET /api/logs.
func (s *Server) listLogs(w http.ResponseWriter, r *http.Request) {
	filter, page, err := parseListParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.store.List(r.Context(), filter, page)
	if err != nil {
		log.Printf("list logs error: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch logs")
		return
	}

	resp := listResponse{
		Items:   result.Items,
		HasMore: result.HasMore,
	}
	if len(result.Items) > 0 {
		resp.NextCursor = strconv.FormatInt(result.Items[len(result.Items)-1].ID, 10)
	}

	respondJSON(w, http.StatusOK, resp)
}

// listScenarios handles GET /api/logs/scenarios.
func (s *Server) listScenarios(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 || parsed > 100 {
			respondError(w, http.StatusBadRequest, "limit must be an integer between 1 and 100")
			return
		}
		limit = parsed
	}

	scenarios, err := s.store.ListScenarios(r.Context(), limit)
	if err != nil {
		log.Printf("list scenarios error: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch scenarios")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"scenarios": scenarios})
}

// deleteLog handles DELETE /api/logs/{id}.
func (s *Server) deleteLog(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	deleted, err := s.store.DeleteByID(r.Context(), id)
	if err != nil {
		log.Printf("delete log error: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete log")
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "Not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// deleteAllLogs handles DELETE /api/logs. The viewer requires an explicit
// confirmation before calling this; the API itself asks no questions.
func (s *Server) deleteAllLogs(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.DeleteAll(r.Context())
	if err != nil {
		log.Printf("delete all logs error: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete logs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
