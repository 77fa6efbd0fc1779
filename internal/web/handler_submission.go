package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/vbonduro/mahrfyi/internal/domain"
	"github.com/vbonduro/mahrfyi/internal/service"
)

const maxBodySize = 64 << 10

var homeFiles = []string{
	"base.html",
	"pages/home.html",
	"partials/submission_result.html",
}

// submissionResult is the view model of partials/submission_result.html.
type submissionResult struct {
	Submission *domain.Submission
	Field      string
	Error      string
}

func (s *Server) homeData(r *http.Request, result *submissionResult) map[string]any {
	data := map[string]any{
		"ActiveNav":  "home",
		"AssetTypes": domain.AssetTypes,
		"Currencies": s.currencies,
		"Places":     s.placeNames(),
		"MinYear":    service.MinMarriageYear,
		"MaxYear":    s.clock.Now().Year() + 1,
		"Strict":     s.submissions.Policy() == service.PolicyStrict,
		"Result":     result,
	}

	dashboard, err := s.stats.Dashboard(r.Context())
	if err != nil {
		s.logger.Error("load dashboard failed", "error", err)
	} else {
		data["Dashboard"] = dashboard
	}

	dist, err := s.stats.Distribution(r.Context())
	if err != nil {
		s.logger.Error("load distribution failed", "error", err)
	} else {
		data["Distribution"] = dist
	}
	return data
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if err := s.renderPage(w, http.StatusOK, s.homeData(r, nil), homeFiles...); err != nil {
		s.logger.Error("render home failed", "error", err)
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	in := service.SubmissionInput{
		AssetType:              r.FormValue("asset_type"),
		CashAmount:             r.FormValue("cash_amount"),
		CashCurrency:           r.FormValue("cash_currency"),
		AssetDescription:       r.FormValue("asset_description"),
		EstimatedValue:         r.FormValue("estimated_value"),
		EstimatedValueCurrency: r.FormValue("estimated_value_currency"),
		Location:               r.FormValue("location"),
		CulturalBackground:     r.FormValue("cultural_background"),
		Profession:             r.FormValue("profession"),
		MarriageYear:           r.FormValue("marriage_year"),
		Story:                  r.FormValue("story"),
		PressureLevel:          r.FormValue("family_pressure_level"),
		Negotiated:             formBool(r.FormValue("negotiated")),
	}

	status := http.StatusCreated
	result := &submissionResult{}
	sub, err := s.submissions.Submit(r.Context(), in)
	if err != nil {
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			s.logger.Error("submit failed", "error", err)
			http.Error(w, "failed to save submission", http.StatusInternalServerError)
			return
		}
		status = http.StatusBadRequest
		result.Field = verr.Field
		result.Error = verr.Error()
	} else {
		result.Submission = sub
	}

	if isHTMX(r) {
		// htmx does not swap 4xx responses by default.
		if err := s.renderPartial(w, http.StatusOK, "partials/submission_result.html", result); err != nil {
			s.logger.Error("render partial failed", "error", err)
		}
		return
	}
	if err := s.renderPage(w, status, s.homeData(r, result), homeFiles...); err != nil {
		s.logger.Error("render home failed", "error", err)
	}
}

// submissionRequest is the JSON body of POST /api/submissions. Amounts may be
// numbers or strings.
type submissionRequest struct {
	AssetType              string          `json:"asset_type"`
	CashAmount             json.RawMessage `json:"cash_amount"`
	CashCurrency           string          `json:"cash_currency"`
	AssetDescription       string          `json:"asset_description"`
	EstimatedValue         json.RawMessage `json:"estimated_value"`
	EstimatedValueCurrency string          `json:"estimated_value_currency"`
	Location               string          `json:"location"`
	CulturalBackground     string          `json:"cultural_background"`
	Profession             string          `json:"profession"`
	MarriageYear           *int            `json:"marriage_year"`
	Story                  string          `json:"story"`
	FamilyPressureLevel    *int            `json:"family_pressure_level"`
	Negotiated             bool            `json:"negotiated"`
}

type submissionResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Field   string `json:"field,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleSubmitJSON(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, submissionResponse{Error: "invalid JSON body"})
		return
	}

	cash, err := rawAmount(req.CashAmount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, submissionResponse{Field: "cash_amount", Error: err.Error()})
		return
	}
	estimated, err := rawAmount(req.EstimatedValue)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, submissionResponse{Field: "estimated_value", Error: err.Error()})
		return
	}

	sub, err := s.submissions.Submit(r.Context(), service.SubmissionInput{
		AssetType:              req.AssetType,
		CashAmount:             cash,
		CashCurrency:           req.CashCurrency,
		AssetDescription:       req.AssetDescription,
		EstimatedValue:         estimated,
		EstimatedValueCurrency: req.EstimatedValueCurrency,
		Location:               req.Location,
		CulturalBackground:     req.CulturalBackground,
		Profession:             req.Profession,
		MarriageYear:           optionalInt(req.MarriageYear),
		Story:                  req.Story,
		PressureLevel:          optionalInt(req.FamilyPressureLevel),
		Negotiated:             req.Negotiated,
	})
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, submissionResponse{Field: verr.Field, Error: verr.Error()})
			return
		}
		s.logger.Error("submit failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, submissionResponse{Error: "failed to save submission"})
		return
	}
	writeJSON(w, http.StatusCreated, submissionResponse{Success: true, ID: sub.ID.String()})
}

// rawAmount accepts a JSON number, a JSON string, or null.
func rawAmount(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, nil
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return "", errors.New("must be a number")
	}
	return num.String(), nil
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b || v == "on"
}
