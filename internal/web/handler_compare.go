package web

import (
	"errors"
	"net/http"

	"github.com/vbonduro/mahrfyi/internal/domain"
	"github.com/vbonduro/mahrfyi/internal/service"
)

var compareFiles = []string{
	"base.html",
	"pages/compare.html",
	"partials/compare_result.html",
}

// compareResult is the view model of partials/compare_result.html.
type compareResult struct {
	Comparison *service.Comparison
	Field      string
	Error      string
}

func (s *Server) compareData(result *compareResult) map[string]any {
	return map[string]any{
		"ActiveNav":  "compare",
		"Currencies": s.currencies,
		"Places":     s.placeNames(),
		"Result":     result,
	}
}

func (s *Server) handleCompareForm(w http.ResponseWriter, _ *http.Request) {
	if err := s.renderPage(w, http.StatusOK, s.compareData(nil), compareFiles...); err != nil {
		s.logger.Error("render compare failed", "error", err)
	}
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	status := http.StatusOK
	result := &compareResult{}
	c, err := s.compare.Compare(r.Context(), service.CompareInput{
		Amount:             r.FormValue("amount"),
		Currency:           r.FormValue("currency"),
		Location:           r.FormValue("location"),
		CulturalBackground: r.FormValue("cultural_background"),
		MarriageYear:       r.FormValue("marriage_year"),
	})
	if err != nil {
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			s.logger.Error("compare failed", "error", err)
			http.Error(w, "failed to compare", http.StatusInternalServerError)
			return
		}
		status = http.StatusBadRequest
		result.Field = verr.Field
		result.Error = verr.Error()
	} else {
		result.Comparison = c
	}

	if isHTMX(r) {
		if err := s.renderPartial(w, http.StatusOK, "partials/compare_result.html", result); err != nil {
			s.logger.Error("render partial failed", "error", err)
		}
		return
	}
	if err := s.renderPage(w, status, s.compareData(result), compareFiles...); err != nil {
		s.logger.Error("render compare failed", "error", err)
	}
}
