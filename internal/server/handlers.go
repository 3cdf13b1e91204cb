package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/geo-toolkit/internal/runstate"
	"github.com/jonathan/geo-toolkit/internal/types"
)

// maxBodyBytes bounds request bodies; all requests are two short strings.
const maxBodyBytes = 64 << 10

// decodeRequest parses the JSON body into dst and validates it.
// It writes the error response and returns false on failure.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{ Validate() error }) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := dst.Validate(); err != nil {
		s.errorResponse(w, HTTPStatus(err), errorMessage(err))
		return false
	}
	return true
}

// runResponse writes the final state of a synchronous run.
func (s *Server) runResponse(w http.ResponseWriter, state any, err error) {
	switch {
	case err == nil:
		s.jsonResponse(w, http.StatusOK, state)
	case errors.Is(err, runstate.ErrSuperseded):
		s.jsonResponse(w, http.StatusConflict, map[string]any{
			"error": "Run was superseded by a newer run.",
			"run":   state,
		})
	default:
		s.logger.Warn("run failed", zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), errorMessage(err))
	}
}

// handleAudit runs a brand visibility audit and returns the final state
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	var req types.AuditRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	run, err := s.auditor.Run(r.Context(), req.Brand, req.Query)
	s.runResponse(w, run, err)
}

// handleAuditStream runs an audit and streams its states via SSE
func (s *Server) handleAuditStream(w http.ResponseWriter, r *http.Request) {
	var req types.AuditRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	streamRun(s, w, r, s.auditor.Tracker(), func(ctx context.Context) (types.AuditRun, error) {
		return s.auditor.Run(ctx, req.Brand, req.Query)
	})
}

// handleAuditSnapshot returns the current audit state
func (s *Server) handleAuditSnapshot(w http.ResponseWriter, _ *http.Request) {
	_, state := s.auditor.Tracker().Snapshot()
	s.jsonResponse(w, http.StatusOK, state)
}

// handleCompare runs a comparative analysis and returns the final state
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req types.CompareRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	run, err := s.comparer.Run(r.Context(), req.ClientURL, req.CompetitorURL)
	s.runResponse(w, run, err)
}

// handleCompareStream runs a comparative analysis and streams its states via SSE
func (s *Server) handleCompareStream(w http.ResponseWriter, r *http.Request) {
	var req types.CompareRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	streamRun(s, w, r, s.comparer.Tracker(), func(ctx context.Context) (types.ComparativeRun, error) {
		return s.comparer.Run(ctx, req.ClientURL, req.CompetitorURL)
	})
}

// handleCompareSnapshot returns the current comparative state
func (s *Server) handleCompareSnapshot(w http.ResponseWriter, _ *http.Request) {
	_, state := s.comparer.Tracker().Snapshot()
	s.jsonResponse(w, http.StatusOK, state)
}

// handleFactCheck runs a hallucination check and returns the final state
func (s *Server) handleFactCheck(w http.ResponseWriter, r *http.Request) {
	var req types.FactCheckRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	run, err := s.checker.Run(r.Context(), req.BrandName, req.OfficialURL)
	s.runResponse(w, run, err)
}

// handleFactCheckStream runs a hallucination check and streams its states via SSE
func (s *Server) handleFactCheckStream(w http.ResponseWriter, r *http.Request) {
	var req types.FactCheckRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	streamRun(s, w, r, s.checker.Tracker(), func(ctx context.Context) (types.FactCheckRun, error) {
		return s.checker.Run(ctx, req.BrandName, req.OfficialURL)
	})
}

// handleFactCheckSnapshot returns the current fact-check state
func (s *Server) handleFactCheckSnapshot(w http.ResponseWriter, _ *http.Request) {
	_, state := s.checker.Tracker().Snapshot()
	s.jsonResponse(w, http.StatusOK, state)
}
