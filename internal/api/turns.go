package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-dialogue/internal/audit"
)

// handleListTurns returns journalled dialogue turns, most recent first.
//
// Query parameters:
//   - conversation: filter by conversation ID
//   - status: filter by outcome status (request, confirm, resolved, failed)
//   - form: filter by form (adjust, locate)
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListTurns(w http.ResponseWriter, r *http.Request) {
	if s.turns == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "turn journal not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		ConversationID: q.Get("conversation"),
		Status:         q.Get("status"),
		Form:           q.Get("form"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.turns.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing dialogue turns", "error", err)
		writeInternalError(w, "failed to list turns")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
