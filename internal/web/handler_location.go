package web

import (
	"net/http"
	"strings"

	"github.com/vbonduro/mahrfyi/internal/domain"
	"github.com/vbonduro/mahrfyi/internal/location"
)

type normalizeResponse struct {
	Input       string              `json:"input"`
	Canonical   string              `json:"canonical"`
	Method      location.Method     `json:"method"`
	Score       float64             `json:"score"`
	Resolved    bool                `json:"resolved"`
	CountryCode string              `json:"country_code,omitempty"`
	Region      string              `json:"region,omitempty"`
	Coordinates *domain.Coordinates `json:"coordinates,omitempty"`
}

// handleNormalize previews where a free-text location would be bucketed.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}

	res := s.locations.Resolve(r.Context(), q)
	code, region := s.locations.Tables().Classify(res.Canonical, q)
	writeJSON(w, http.StatusOK, normalizeResponse{
		Input:       q,
		Canonical:   res.Canonical,
		Method:      res.Method,
		Score:       res.Score,
		Resolved:    res.Resolved(),
		CountryCode: code,
		Region:      region,
		Coordinates: res.Coordinates,
	})
}

// placeNames lists the canonical locations offered as form suggestions.
func (s *Server) placeNames() []string {
	places := s.locations.Tables().Places()
	names := make([]string, len(places))
	for i, p := range places {
		names[i] = p.Name
	}
	return names
}
