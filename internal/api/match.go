package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nerrad567/gray-logic-dialogue/internal/resolve"
)

// matchRequest asks which devices satisfy a set of constraints. Locations
// may be names or area/floor ids; the other fields are passed through.
type matchRequest struct {
	Locations  []string `json:"locations"`
	Devices    []string `json:"devices"`
	Parameters []string `json:"parameters"`
	Actions    []string `json:"actions"`
}

// handleMatch runs the constraint matcher against the current catalog.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	cat := s.catalogs.Current()
	var locations []string
	for _, name := range req.Locations {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if cat.IsLocationID(name) {
			locations = append(locations, name)
			continue
		}
		ids := cat.LookupLocation(name)
		if len(ids) == 0 {
			writeError(w, http.StatusUnprocessableEntity, ErrCodeUnknownLocation, "unknown location: "+name)
			return
		}
		locations = append(locations, ids...)
	}

	res := resolve.Match(cat, resolve.Constraints{
		Locations:  locations,
		Devices:    req.Devices,
		Parameters: req.Parameters,
		Actions:    req.Actions,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"locations": locations,
		"count":     res.Devices.Len(),
		"result":    res,
	})
}
