// Package server provides the HTTP surface for the sync backend.
//
// Transport framing only: authentication happens upstream, which installs
// the caller identity in the X-User-ID header. Everything behind this
// package is transport-agnostic.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tetondan64/recordergear/backend/internal/config"
	apperrors "github.com/tetondan64/recordergear/backend/internal/errors"
	"github.com/tetondan64/recordergear/backend/internal/logging"
	"github.com/tetondan64/recordergear/backend/internal/syncfeed"
)

// userHeader carries the already-authenticated caller identity.
const userHeader = "X-User-ID"

// Server wires the change feed engine to HTTP routes.
type Server struct {
	engine       *syncfeed.Engine
	defaultLimit int
}

// New creates a Server.
func New(cfg *config.Config, engine *syncfeed.Engine) *Server {
	return &Server{
		engine:       engine,
		defaultLimit: cfg.Sync.DefaultPageSize,
	}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", s.handleHealth)
	mux.HandleFunc("/api/v1/sync/changes", s.handleChanges)
	return logRequests(mux)
}

// logRequests emits one structured entry per request.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.Debug("request handled", logging.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code apperrors.ErrorCode, message string) {
	var body errorBody
	body.Error.Code = string(code)
	body.Error.Message = message
	writeJSON(w, status, body)
}

// statusFor maps error codes to HTTP statuses. Client mistakes (bad cursor,
// bad limit) are 400s; anything touching the store is an opaque 500 so the
// client retries the identical request.
func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrInvalidCursor, apperrors.ErrInvalidLimit, apperrors.ErrInvalid, apperrors.ErrValidation:
		return http.StatusBadRequest
	case apperrors.ErrUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
