package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
)

type processRequest struct {
	VideoID string `json:"video_id"`
}

type processResponse struct {
	Message    string `json:"message"`
	VideoID    string `json:"video_id"`
	RunID      string `json:"run_id"`
	ChunkCount int    `json:"chunk_count"`
}

type queryRequest struct {
	VideoID string `json:"video_id"`
	Query   string `json:"query"`
	K       *int   `json:"k,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.VideoID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "video_id is required"})
		return
	}

	result, err := s.svc.Process(r.Context(), req.VideoID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, processResponse{
		Message:    "Video processed successfully",
		VideoID:    result.VideoID,
		RunID:      result.RunID,
		ChunkCount: result.ChunkCount,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.VideoID) == "" || strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "video_id and query are required"})
		return
	}
	k := s.opts.DefaultK
	if req.K != nil {
		k = *req.K
	}

	result, err := s.svc.Query(r.Context(), req.VideoID, req.Query, k)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.svc.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps an error code to the HTTP status reported to clients
func statusFor(code string) int {
	switch code {
	case errors.CodeNotProcessed, errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeInvalidArg, errors.CodeParse:
		return http.StatusBadRequest
	case errors.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("code", code), slog.Any("error", err))
	}
	writeJSON(w, status, errorResponse{Detail: errors.MessageOf(err)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid JSON body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
