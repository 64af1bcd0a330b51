// HTTP handlers for the sync pull endpoint.
package server

import (
	"net/http"
	"strconv"

	apperrors "github.com/tetondan64/recordergear/backend/internal/errors"
	"github.com/tetondan64/recordergear/backend/internal/logging"
	"github.com/tetondan64/recordergear/backend/internal/syncfeed"
)

// changesResponse is the body of a successful pull.
type changesResponse struct {
	Next    string                `json:"next"`
	HasMore bool                  `json:"hasMore"`
	Items   []syncfeed.ChangeItem `json:"items"`
}

// handleChanges handles GET /api/v1/sync/changes?since=...&limit=...
func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.Header.Get(userHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, apperrors.ErrUnauthenticated, "missing caller identity")
		return
	}

	cursor, err := syncfeed.ParseSince(r.URL.Query().Get("since"))
	if err != nil {
		writeError(w, statusFor(apperrors.CodeOf(err)), apperrors.CodeOf(err), "invalid cursor format in since parameter")
		return
	}

	limit := s.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, apperrors.ErrInvalidLimit, "limit must be an integer")
			return
		}
	}

	page, err := s.engine.Pull(r.Context(), userID, cursor, limit)
	if err != nil {
		code := apperrors.CodeOf(err)
		if code == apperrors.ErrStoreFailure {
			logging.Error("pull failed", err, logging.Fields{"user_id": userID})
			// Opaque to the caller; the cursor is untouched so a retry is safe.
			writeError(w, http.StatusInternalServerError, code, "change feed temporarily unavailable")
			return
		}
		writeError(w, statusFor(code), code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, changesResponse{
		Next:    syncfeed.Encode(page.Next),
		HasMore: page.HasMore,
		Items:   page.Items,
	})
}

// handleHealth handles GET /api/v1/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "recordergear-sync"})
}
