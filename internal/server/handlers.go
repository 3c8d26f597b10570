package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ayusman/ptrack/internal/live"
	"github.com/ayusman/ptrack/internal/store"
	"github.com/ayusman/ptrack/internal/strength"
	"github.com/ayusman/ptrack/internal/tracker"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.DB != nil {
		if err := s.config.DB.Ping(r.Context()); err != nil {
			s.log.Warn("database ping failed", "error", err)
			resp["status"] = "degraded"
			resp["database"] = err.Error()
		} else {
			resp["database"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.config.Hub.Latest()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no state yet"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type commandRequest struct {
	Command string `json:"command"`
}

// knownCommand reports whether c is a command the tracker accepts.
func knownCommand(c string) bool {
	switch c {
	case tracker.CommandToggleDirection, tracker.CommandLevelUp, tracker.CommandQuit:
		return true
	}
	return false
}

// enqueue validates and queues a command, returning the HTTP status to report.
func (s *Server) enqueue(command string) (int, error) {
	if !knownCommand(command) {
		return http.StatusBadRequest, tracker.ErrUnknownCommand
	}
	if err := s.config.Commands.Push(command); err != nil {
		return http.StatusServiceUnavailable, err
	}
	return http.StatusAccepted, nil
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	status, err := s.enqueue(req.Command)
	if err != nil {
		if errors.Is(err, live.ErrQueueFull) {
			s.log.Warn("command dropped", "command", req.Command)
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, status, map[string]string{"queued": req.Command})
}

// subjectID returns the {id} URL parameter, writing a 400 if it is not a UUID.
func subjectID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid subject ID"})
		return "", false
	}
	return id, true
}

func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return store.DefaultListLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return n, nil
}

func (s *Server) handleListFlexion(w http.ResponseWriter, r *http.Request) {
	id, ok := subjectID(w, r)
	if !ok {
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sessions, err := s.config.DB.Flexion().List(r.Context(), id, limit)
	if err != nil {
		s.log.Error("listing flexion sessions", "subject", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if sessions == nil {
		sessions = []*store.FlexionSession{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleListGrip(w http.ResponseWriter, r *http.Request) {
	id, ok := subjectID(w, r)
	if !ok {
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sessions, err := s.config.DB.Grip().List(r.Context(), id, limit)
	if err != nil {
		s.log.Error("listing grip sessions", "subject", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if sessions == nil {
		sessions = []*store.GripSession{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleListPinch(w http.ResponseWriter, r *http.Request) {
	id, ok := subjectID(w, r)
	if !ok {
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sessions, err := s.config.DB.Pinch().List(r.Context(), id, limit)
	if err != nil {
		s.log.Error("listing pinch sessions", "subject", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if sessions == nil {
		sessions = []*store.PinchSession{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleGetBaseline(w http.ResponseWriter, r *http.Request) {
	id, ok := subjectID(w, r)
	if !ok {
		return
	}

	b, err := s.config.DB.Baselines().Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no baseline for subject"})
		return
	}
	if err != nil {
		s.log.Error("loading baseline", "subject", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type baselineRequest struct {
	Grip        *float64 `json:"base_grip"`
	IndexThumb  *float64 `json:"base_index_thumb"`
	MiddleThumb *float64 `json:"base_middle_thumb"`
}

func (s *Server) handlePutBaseline(w http.ResponseWriter, r *http.Request) {
	id, ok := subjectID(w, r)
	if !ok {
		return
	}

	var req baselineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	for _, v := range []*float64{req.Grip, req.IndexThumb, req.MiddleThumb} {
		if v != nil && *v < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "baselines must not be negative"})
			return
		}
	}

	b := &store.Baseline{
		SubjectID:   id,
		Grip:        req.Grip,
		IndexThumb:  req.IndexThumb,
		MiddleThumb: req.MiddleThumb,
	}
	if err := s.config.DB.Baselines().Upsert(r.Context(), b); err != nil {
		s.log.Error("saving baseline", "subject", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type gripRequest struct {
	SubjectID string `json:"subject_id"`
}

func (s *Server) handleStartGrip(w http.ResponseWriter, r *http.Request) {
	var req gripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.SubjectID == "" {
		req.SubjectID = s.config.SubjectID
	}
	if _, err := uuid.Parse(req.SubjectID); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "subject_id must be a UUID"})
		return
	}

	res, err := s.config.Grip.RunGrip(r.Context(), req.SubjectID)
	switch {
	case errors.Is(err, strength.ErrBusy):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, strength.ErrNoData):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	case err != nil && res == nil:
		s.log.Error("grip session failed", "subject", req.SubjectID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	case err != nil:
		// Measured but not stored.
		s.log.Error("grip session not saved", "subject", req.SubjectID, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"subject_id": req.SubjectID,
		"fsr_palm":   res.Palm,
		"r_fsr_palm": res.Ratio,
		"samples":    res.Samples,
		"saved":      res.Saved,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
