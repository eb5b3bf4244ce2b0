package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jinford/proplens/internal/core/analysis"
	"github.com/jinford/proplens/internal/core/place"
)

type searchRequest struct {
	Place string `json:"place"`
}

type selectionRequest struct {
	Indices []int `json:"indices"`
}

type selectResponse struct {
	Places  []place.PlaceRecord `json:"places"`
	Details string              `json:"details"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "page unavailable"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.runner.SubmitSearch(req.Place); err != nil {
		s.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "searching"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	selected, err := s.ctrl.Select(req.Indices)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": analysis.UserMessage(err)})
		return
	}
	if selected == nil {
		selected = []place.PlaceRecord{}
	}

	writeJSON(w, http.StatusOK, selectResponse{
		Places:  selected,
		Details: analysis.FormatDetails(selected),
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.runner.SubmitCompare(req.Indices); err != nil {
		s.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "comparing"})
}

func (s *Server) handlePlaceDetails(w http.ResponseWriter, r *http.Request) {
	if s.details == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "details are not available"})
		return
	}

	id := r.PathValue("id")
	details, err := s.details.GetDetails(r.Context(), id)
	if err != nil {
		s.logger.Warn("failed to fetch place details", "placeID", id, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "could not fetch project details"})
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	path := s.ctrl.Snapshot().MapPath
	if path == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no map has been generated"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeFile(w, r, path)
}

func (s *Server) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analysis.ErrEmptyPlace), errors.Is(err, analysis.ErrEmptySelection):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": analysis.UserMessage(err)})
	case errors.Is(err, analysis.ErrQueueFull):
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "another task is already queued"})
	default:
		s.logger.Error("failed to submit task", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "service unavailable"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
