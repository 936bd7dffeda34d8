package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"siteqa/pkg/vectorstore"
	"siteqa/retrieval"
)

const maxBodyBytes = 1 << 20

type IndexRequest struct {
	URL      string `json:"url"`
	MaxPages int    `json:"max_pages"`
}

type IndexResponse struct {
	URL    string `json:"url"`
	Chunks int    `json:"chunks"`
}

type ClearResponse struct {
	Removed []string `json:"removed"`
}

type AskRequest struct {
	Question string `json:"question"`
}

type AskResponse struct {
	Answer   string              `json:"answer"`
	Fallback bool                `json:"fallback"`
	Matches  []vectorstore.Match `json:"matches"`
	Turn     retrieval.Turn      `json:"turn"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.MaxPages == 0 {
		req.MaxPages = s.opts.DefaultMaxPages
	}

	chunks, err := s.service.Indexing(r.Context(), req.URL, req.MaxPages)
	if err != nil {
		s.fail(w, "indexing failed", err)
		return
	}
	writeJSON(w, http.StatusOK, IndexResponse{URL: req.URL, Chunks: chunks})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	meta, err := s.service.Summary(r.Context())
	if err != nil {
		s.fail(w, "summary failed", err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	removed, err := s.service.ClearIndex(r.Context())
	if err != nil {
		s.fail(w, "clear failed", err)
		return
	}
	if removed == nil {
		removed = []string{}
	}
	writeJSON(w, http.StatusOK, ClearResponse{Removed: removed})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, s.sessions.Create())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAsk answers within a session and records the turn only on success.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	var req AskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := s.service.Ask(r.Context(), req.Question, session.Turns())
	if err != nil {
		s.fail(w, "ask failed", err)
		return
	}

	turn := session.Append(req.Question, res.Answer)
	matches := res.Matches
	if matches == nil {
		matches = []vectorstore.Match{}
	}
	writeJSON(w, http.StatusOK, AskResponse{
		Answer:   res.Answer,
		Fallback: res.Fallback,
		Matches:  matches,
		Turn:     turn,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Int("status", status), zap.Error(err))
	} else {
		s.logger.Info(msg, zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, err.Error())
}

// errorStatus maps engine errors onto HTTP status codes. Anything not
// recognised came from an upstream service.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, retrieval.ErrInvalidURL),
		errors.Is(err, retrieval.ErrInvalidMaxPages),
		errors.Is(err, retrieval.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, retrieval.ErrNoUsableContent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, vectorstore.ErrNoIndex),
		errors.Is(err, vectorstore.ErrCorruptIndex),
		errors.Is(err, vectorstore.ErrDimensionMismatch):
		return http.StatusConflict
	case errors.Is(err, vectorstore.ErrNoPath):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
