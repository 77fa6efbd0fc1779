package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/vbonduro/mahrfyi/internal/domain"
	"github.com/vbonduro/mahrfyi/internal/money"
)

// CompareStory tags submissions recorded through the compare tool.
const CompareStory = `Submitted via "Compare Your Mahr" tool`

type Band string

const (
	BandBelow  Band = "below"
	BandWithin Band = "within"
	BandAbove  Band = "above"
)

const (
	lowerBoundPercent = 70
	upperBoundPercent = 130
)

type CompareInput struct {
	Amount             string
	Currency           string
	Location           string
	CulturalBackground string
	MarriageYear       string
}

// Comparison places an amount against a country's reference average, all in
// USD.
type Comparison struct {
	Location      string  `json:"location"`
	CountryCode   string  `json:"country_code,omitempty"`
	AmountUSD     float64 `json:"amount_usd"`
	AverageUSD    float64 `json:"average_usd"`
	Percentage    float64 `json:"percentage"`
	Band          Band    `json:"band"`
	KnownCurrency bool    `json:"known_currency"`
	KnownCountry  bool    `json:"known_country"`
	Recorded      bool    `json:"recorded"`
}

type CompareService struct {
	submissions *SubmissionService
	resolver    locationResolver
	reference   *money.Reference
	logger      *slog.Logger
}

func NewCompareService(submissions *SubmissionService, resolver locationResolver, reference *money.Reference, logger *slog.Logger) *CompareService {
	return &CompareService{
		submissions: submissions,
		resolver:    resolver,
		reference:   reference,
		logger:      logger,
	}
}

// Compare also records the amount as a cash submission. A failed recording is
// logged and does not block the comparison.
func (s *CompareService) Compare(ctx context.Context, in CompareInput) (*Comparison, error) {
	amount, err := parseAmount("amount", in.Amount)
	if err != nil {
		return nil, err
	}
	currency, ok := money.NormalizeCurrency(in.Currency)
	if !ok {
		return nil, domain.NewValidationError("currency", "must be a three-letter currency code")
	}
	raw := strings.TrimSpace(in.Location)
	if raw == "" {
		return nil, domain.NewValidationError("location", "is required")
	}

	c := &Comparison{Location: raw}

	sub, err := s.submissions.Submit(ctx, SubmissionInput{
		AssetType:          string(domain.AssetCash),
		CashAmount:         in.Amount,
		CashCurrency:       currency,
		Location:           raw,
		CulturalBackground: in.CulturalBackground,
		MarriageYear:       in.MarriageYear,
		Story:              CompareStory,
	})
	if err == nil {
		c.Recorded = true
		c.Location = sub.Location
		c.CountryCode = sub.CountryCode
	} else {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			s.logger.Info("compare submission not recorded", "field", verr.Field, "reason", verr.Message)
		} else {
			s.logger.Error("failed to record compare submission", "error", err)
		}
		res := s.resolver.Resolve(ctx, raw)
		if res.Canonical != "" {
			c.Location = res.Canonical
		}
		c.CountryCode, _ = s.resolver.Tables().Classify(res.Canonical, raw)
	}

	usd, knownCurrency := s.reference.ToUSD(amount, currency)
	avg, knownCountry := s.reference.Average(c.CountryCode)
	c.KnownCurrency = knownCurrency
	c.KnownCountry = knownCountry
	c.AmountUSD = usd.InexactFloat64()
	c.AverageUSD = avg.InexactFloat64()
	c.Percentage = c.AmountUSD / c.AverageUSD * 100
	c.Band = band(c.Percentage)
	return c, nil
}

func band(percentage float64) Band {
	switch {
	case percentage < lowerBoundPercent:
		return BandBelow
	case percentage > upperBoundPercent:
		return BandAbove
	default:
		return BandWithin
	}
}
