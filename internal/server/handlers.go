package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/hyperjump/kura/internal/generation"
	"github.com/hyperjump/kura/internal/keyword"
	"github.com/hyperjump/kura/internal/knowledge"
	"github.com/hyperjump/kura/internal/models"
	"github.com/hyperjump/kura/internal/search"
	"github.com/hyperjump/kura/internal/vector"
	"go.uber.org/zap"
)

const (
	defaultChunkLimit = 10
	maxChunkLimit     = 100
)

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.config.Retrieval.TopK, s.config.Retrieval.MaxTopK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("query request",
		zap.Int("k", req.K),
		zap.Bool("use_local", req.UseLocalOrDefault()),
		zap.Int("external_context", len(req.ExternalContext)))
	s.respondJSON(w, http.StatusOK, s.engine.Query(r.Context(), &req))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !s.engine.GenerationEnabled() {
		s.respondError(w, http.StatusNotImplemented, search.ErrGenerationDisabled.Error())
		return
	}
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.config.Retrieval.TopK, s.config.Retrieval.MaxTopK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := s.engine.Chat(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrGenerationDisabled):
			s.respondError(w, http.StatusNotImplemented, err.Error())
		case errors.Is(err, generation.ErrGeneration):
			s.logger.Error("generation failed", zap.Error(err))
			s.respondError(w, http.StatusBadGateway, err.Error())
		default:
			s.logger.Error("chat failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("reload requested")
	// A client disconnect or request timeout must not abort the rebuild.
	ctx := context.WithoutCancel(r.Context())
	if s.config.Server.ReloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Server.ReloadTimeout)
		defer cancel()
	}
	gen, err := s.kb.ReloadFromSource(ctx)
	if err != nil {
		if errors.Is(err, knowledge.ErrBuildSuperseded) {
			s.respondError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("reload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.ReloadResponse{
		Success:     true,
		Message:     "Knowledge base reloaded successfully",
		BuildID:     gen.ID(),
		TotalChunks: gen.Snapshot.Len(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.kb.Stats())
}

func (s *Server) handleChunks(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := strings.TrimSpace(params.Get("q"))
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	limit := defaultChunkLimit
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxChunkLimit)
	}
	opts := &keyword.SearchOptions{Column: params.Get("column")}
	if fuzzy, err := strconv.ParseBool(params.Get("fuzzy")); err == nil {
		opts.FuzzyEnabled = fuzzy
	}

	hits, err := s.kb.Lookup(r.Context(), q, limit, opts)
	if err != nil {
		if errors.Is(err, vector.ErrEmptyIndex) {
			s.respondError(w, http.StatusServiceUnavailable, "knowledge base is not loaded")
			return
		}
		s.logger.Error("chunk lookup failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.ChunkList{Query: q, Hits: hits})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  s.kb.Stats().State,
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
