package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/vbonduro/mahrfyi/internal/export"
	"github.com/vbonduro/mahrfyi/internal/service"
)

type statsView struct {
	Key         service.GroupKey
	Keys        []service.GroupKey
	Groups      []service.Group
	Unavailable bool
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	key, err := service.ParseGroupKey(r.URL.Query().Get("by"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	view := statsView{Key: key, Keys: service.GroupKeys}
	view.Groups, err = s.stats.Aggregate(r.Context(), key)
	if err != nil {
		s.logger.Error("aggregate failed", "by", key, "error", err)
		view.Unavailable = true
	}

	if isHTMX(r) {
		if err := s.renderPartial(w, http.StatusOK, "partials/stats_table.html", view); err != nil {
			s.logger.Error("render partial failed", "error", err)
		}
		return
	}

	data := map[string]any{
		"ActiveNav": "stats",
		"Stats":     view,
	}
	if err := s.renderPage(w, http.StatusOK, data, "base.html", "pages/stats.html", "partials/stats_table.html"); err != nil {
		s.logger.Error("render stats failed", "error", err)
	}
}

type statsResponse struct {
	By     service.GroupKey `json:"by"`
	Groups []service.Group  `json:"groups"`
}

func (s *Server) handleStatsJSON(w http.ResponseWriter, r *http.Request) {
	key, err := service.ParseGroupKey(r.URL.Query().Get("by"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	groups, err := s.stats.Aggregate(r.Context(), key)
	if err != nil {
		s.logger.Error("aggregate failed", "by", key, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "statistics unavailable"})
		return
	}
	if groups == nil {
		groups = []service.Group{}
	}
	writeJSON(w, http.StatusOK, statsResponse{By: key, Groups: groups})
}

func (s *Server) handleDashboardJSON(w http.ResponseWriter, r *http.Request) {
	d, err := s.stats.Dashboard(r.Context())
	if err != nil {
		s.logger.Error("load dashboard failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "statistics unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	key, err := service.ParseGroupKey(r.URL.Query().Get("by"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	groups, err := s.stats.Aggregate(r.Context(), key)
	if err != nil {
		s.logger.Error("aggregate failed", "by", key, "error", err)
		http.Error(w, "statistics unavailable", http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteGroups(&buf, key, groups, s.clock.Now()); err != nil {
		s.logger.Error("export failed", "by", key, "error", err)
		http.Error(w, "failed to build spreadsheet", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="mahr-stats-%s.xlsx"`, key))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Error("write export failed", "by", key, "error", err)
	}
}
