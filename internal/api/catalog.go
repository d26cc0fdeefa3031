package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-dialogue/internal/catalog"
)

// handleCatalogStats returns counts for the current catalog snapshot.
func (s *Server) handleCatalogStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalogs.Current().Stats())
}

// handleListDevices returns every device, optionally filtered by area or
// floor id via ?location=.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	cat := s.catalogs.Current()
	devices := cat.Devices()

	if loc := r.URL.Query().Get("location"); loc != "" {
		if !cat.IsLocationID(loc) {
			writeError(w, http.StatusUnprocessableEntity, ErrCodeUnknownLocation, "unknown location: "+loc)
			return
		}
		inArea := make(map[string]bool)
		for _, id := range cat.AreaIDsFor([]string{loc}) {
			a, _ := cat.Area(id)
			for _, d := range a.DeviceIDs {
				inArea[d] = true
			}
		}
		filtered := make([]*catalog.Device, 0, len(inArea))
		for _, d := range devices {
			if inArea[d.ID] {
				filtered = append(filtered, d)
			}
		}
		devices = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns one device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, ok := s.catalogs.Current().Device(id)
	if !ok {
		writeNotFound(w, "device not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleListAreas returns every area.
func (s *Server) handleListAreas(w http.ResponseWriter, _ *http.Request) {
	areas := s.catalogs.Current().Areas()
	writeJSON(w, http.StatusOK, map[string]any{
		"areas": areas,
		"count": len(areas),
	})
}

// handleListFloors returns every floor.
func (s *Server) handleListFloors(w http.ResponseWriter, _ *http.Request) {
	floors := s.catalogs.Current().Floors()
	writeJSON(w, http.StatusOK, map[string]any{
		"floors": floors,
		"count":  len(floors),
	})
}

// handleCatalogAnomalies returns the problems found while building the
// current snapshot: dropped references and name collisions.
func (s *Server) handleCatalogAnomalies(w http.ResponseWriter, _ *http.Request) {
	cat := s.catalogs.Current()
	anomalies := cat.Anomalies()
	if anomalies == nil {
		anomalies = []catalog.Anomaly{}
	}
	collisions := cat.Collisions()
	if collisions == nil {
		collisions = []catalog.Collision{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"anomalies":  anomalies,
		"collisions": collisions,
	})
}

// handleCatalogReload rebuilds the catalog from its source. On failure the
// previous snapshot stays in service.
func (s *Server) handleCatalogReload(w http.ResponseWriter, r *http.Request) {
	cat, err := s.catalogs.Reload(r.Context())
	if err != nil {
		s.logger.Warn("catalog reload via API failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "catalog reload failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cat.Stats())
}
