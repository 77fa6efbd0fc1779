package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/vbonduro/mahrfyi/internal/domain"
	"github.com/vbonduro/mahrfyi/internal/events"
	"github.com/vbonduro/mahrfyi/internal/location"
	"github.com/vbonduro/mahrfyi/internal/money"
	"github.com/vbonduro/mahrfyi/internal/observability"
	"github.com/vbonduro/mahrfyi/internal/store"
)

const (
	MinMarriageYear = 1950

	maxShortText   = 200
	maxDescription = 500
	maxStory       = 5000
)

var (
	minAmount = decimal.NewFromInt(1)
	maxAmount = decimal.NewFromInt(1_000_000_000)
)

// LocationPolicy decides what happens to locations the tables cannot place.
type LocationPolicy string

const (
	// PolicyStrict rejects unplaced locations before anything is written.
	PolicyStrict LocationPolicy = "strict"
	// PolicyLenient stores the title-cased input as its own bucket.
	PolicyLenient LocationPolicy = "lenient"
)

func ParseLocationPolicy(s string) (LocationPolicy, error) {
	switch p := LocationPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyStrict, PolicyLenient:
		return p, nil
	case "":
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown location policy %q", s)
	}
}

// submissionRepository is the subset of store.SubmissionStore that the
// services require.
type submissionRepository interface {
	Create(ctx context.Context, sub *domain.Submission) error
	List(ctx context.Context, filter store.ListFilter) ([]*domain.Submission, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// locationResolver is satisfied by *location.Resolver.
type locationResolver interface {
	Resolve(ctx context.Context, raw string) location.Result
	Tables() *location.Tables
}

// SubmissionInput is a raw form or API payload. Amounts may carry a currency
// symbol and thousands separators.
type SubmissionInput struct {
	AssetType              string
	CashAmount             string
	CashCurrency           string
	AssetDescription       string
	EstimatedValue         string
	EstimatedValueCurrency string
	Location               string
	CulturalBackground     string
	Profession             string
	MarriageYear           string
	Story                  string
	PressureLevel          string
	Negotiated             bool
}

type SubmissionService struct {
	submissions submissionRepository
	resolver    locationResolver
	publisher   events.Publisher
	clock       clockwork.Clock
	policy      LocationPolicy
	metrics     *observability.Metrics
	logger      *slog.Logger
}

func NewSubmissionService(
	submissions submissionRepository,
	resolver locationResolver,
	publisher events.Publisher,
	clock clockwork.Clock,
	policy LocationPolicy,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *SubmissionService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &SubmissionService{
		submissions: submissions,
		resolver:    resolver,
		publisher:   publisher,
		clock:       clock,
		policy:      policy,
		metrics:     metrics,
		logger:      logger,
	}
}

func (s *SubmissionService) Policy() LocationPolicy {
	return s.policy
}

// Submit validates in, resolves its location and stores exactly one row.
// Validation failures are returned as *domain.ValidationError and nothing is
// written.
func (s *SubmissionService) Submit(ctx context.Context, in SubmissionInput) (*domain.Submission, error) {
	sub, err := s.validate(in)
	if err != nil {
		s.metrics.Submissions.WithLabelValues("invalid").Inc()
		return nil, err
	}

	res := s.resolver.Resolve(ctx, sub.RawLocation)
	if res.Canonical == "" || (s.policy == PolicyStrict && !res.Resolved()) {
		s.metrics.Submissions.WithLabelValues("invalid").Inc()
		s.logger.Info("submission rejected: unrecognized location", "location", sub.RawLocation, "method", res.Method)
		return nil, domain.NewValidationError("location", "could not recognize %q, try a country name", sub.RawLocation)
	}
	sub.Location = res.Canonical
	sub.CountryCode, sub.Region = s.resolver.Tables().Classify(res.Canonical, sub.RawLocation)

	sub.ID = uuid.New()
	sub.CreatedAt = s.clock.Now().UTC()

	if err := s.submissions.Create(ctx, sub); err != nil {
		s.metrics.Submissions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}
	s.metrics.Submissions.WithLabelValues("accepted").Inc()
	s.logger.Info("submission stored",
		"id", sub.ID,
		"asset_type", sub.AssetType,
		"location", sub.Location,
		"method", res.Method,
		"country_code", sub.CountryCode,
		"region", sub.Region,
	)

	s.publish(ctx, sub)
	return sub, nil
}

func (s *SubmissionService) publish(ctx context.Context, sub *domain.Submission) {
	if err := s.publisher.PublishSubmission(ctx, events.NewSubmissionCreated(sub)); err != nil {
		s.metrics.EventsPublished.WithLabelValues("error").Inc()
		s.logger.Error("failed to publish submission event", "id", sub.ID, "error", err)
		return
	}
	s.metrics.EventsPublished.WithLabelValues("success").Inc()
}

func (s *SubmissionService) validate(in SubmissionInput) (*domain.Submission, error) {
	assetType, ok := domain.ParseAssetType(strings.ToLower(strings.TrimSpace(in.AssetType)))
	if !ok {
		if strings.TrimSpace(in.AssetType) == "" {
			return nil, domain.NewValidationError("asset_type", "is required")
		}
		return nil, domain.NewValidationError("asset_type", "unknown asset type %q", in.AssetType)
	}
	sub := &domain.Submission{AssetType: assetType, Negotiated: in.Negotiated}

	if assetType.IsCash() {
		if strings.TrimSpace(in.EstimatedValue) != "" {
			return nil, domain.NewValidationError("estimated_value", "must be empty for cash")
		}
		amount, err := parseAmount("cash_amount", in.CashAmount)
		if err != nil {
			return nil, err
		}
		currency, ok := money.NormalizeCurrency(in.CashCurrency)
		if !ok {
			return nil, domain.NewValidationError("cash_currency", "must be a three-letter currency code")
		}
		sub.CashAmount = decimal.NewNullDecimal(amount)
		sub.CashCurrency = currency
	} else {
		if strings.TrimSpace(in.CashAmount) != "" {
			return nil, domain.NewValidationError("cash_amount", "must be empty for %s", assetType)
		}
		amount, err := parseAmount("estimated_value", in.EstimatedValue)
		if err != nil {
			return nil, err
		}
		currency, ok := money.NormalizeCurrency(in.EstimatedValueCurrency)
		if !ok {
			return nil, domain.NewValidationError("estimated_value_currency", "must be a three-letter currency code")
		}
		sub.EstimatedValue = decimal.NewNullDecimal(amount)
		sub.EstimatedValueCurrency = currency
	}

	sub.RawLocation = strings.TrimSpace(in.Location)
	if sub.RawLocation == "" {
		return nil, domain.NewValidationError("location", "is required")
	}

	texts := []struct {
		field string
		value string
		max   int
		dst   *string
	}{
		{"location", sub.RawLocation, maxShortText, &sub.RawLocation},
		{"asset_description", in.AssetDescription, maxDescription, &sub.AssetDescription},
		{"cultural_background", in.CulturalBackground, maxShortText, &sub.CulturalBackground},
		{"profession", in.Profession, maxShortText, &sub.Profession},
		{"story", in.Story, maxStory, &sub.Story},
	}
	for _, t := range texts {
		v := strings.TrimSpace(t.value)
		if utf8.RuneCountInString(v) > t.max {
			return nil, domain.NewValidationError(t.field, "must be at most %d characters", t.max)
		}
		*t.dst = v
	}

	year, err := parseOptionalInt("marriage_year", in.MarriageYear)
	if err != nil {
		return nil, err
	}
	if year != nil {
		maxYear := s.clock.Now().Year() + 1
		if *year < MinMarriageYear || *year > maxYear {
			return nil, domain.NewValidationError("marriage_year", "must be between %d and %d", MinMarriageYear, maxYear)
		}
	}
	sub.MarriageYear = year

	pressure, err := parseOptionalInt("family_pressure_level", in.PressureLevel)
	if err != nil {
		return nil, err
	}
	if pressure != nil && (*pressure < 1 || *pressure > 5) {
		return nil, domain.NewValidationError("family_pressure_level", "must be between 1 and 5")
	}
	sub.PressureLevel = pressure

	return sub, nil
}

// parseAmount accepts "50000", "50,000" and "$50,000".
func parseAmount(field, raw string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer(",", "", "$", "", " ", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Zero, domain.NewValidationError(field, "is required")
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, domain.NewValidationError(field, "%q is not a number", raw)
	}
	if amount.LessThan(minAmount) || amount.GreaterThan(maxAmount) {
		return decimal.Zero, domain.NewValidationError(field, "must be between %s and %s", minAmount, maxAmount)
	}
	return amount, nil
}

func parseOptionalInt(field, raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, domain.NewValidationError(field, "%q is not a whole number", raw)
	}
	return &n, nil
}
