// Package money converts amounts to USD and formats them for display.
package money

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const DefaultCurrency = "USD"

//go:embed reference.yaml
var defaultReference []byte

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// Reference holds exchange rates and per-country reference averages. It is
// immutable after loading.
type Reference struct {
	rates          map[string]decimal.Decimal
	averages       map[string]decimal.Decimal
	defaultAverage decimal.Decimal
}

type referenceDoc struct {
	ExchangeRates   map[string]decimal.Decimal `yaml:"exchange_rates"`
	DefaultAverage  decimal.Decimal            `yaml:"default_average"`
	CountryAverages map[string]decimal.Decimal `yaml:"country_averages"`
}

func DefaultReference() (*Reference, error) {
	return LoadReference(bytes.NewReader(defaultReference))
}

// LoadReferenceFile reads reference data from path, or returns the defaults
// when path is empty.
func LoadReferenceFile(path string) (*Reference, error) {
	if path == "" {
		return DefaultReference()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference data: %w", err)
	}
	defer f.Close()
	return LoadReference(f)
}

func LoadReference(r io.Reader) (*Reference, error) {
	var doc referenceDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode reference data: %w", err)
	}

	ref := &Reference{
		rates:          make(map[string]decimal.Decimal, len(doc.ExchangeRates)),
		averages:       make(map[string]decimal.Decimal, len(doc.CountryAverages)),
		defaultAverage: doc.DefaultAverage,
	}
	for code, rate := range doc.ExchangeRates {
		if !rate.IsPositive() {
			return nil, fmt.Errorf("exchange rate for %s must be positive", code)
		}
		ref.rates[strings.ToUpper(code)] = rate
	}
	for code, avg := range doc.CountryAverages {
		ref.averages[strings.ToUpper(code)] = avg
	}
	if !ref.defaultAverage.IsPositive() {
		return nil, fmt.Errorf("default average must be positive")
	}
	return ref, nil
}

// NormalizeCurrency upper-cases code and defaults it to USD. ok is false when
// the result is not a three-letter code.
func NormalizeCurrency(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency, true
	}
	return code, currencyCode.MatchString(code)
}

// Currencies lists the known currency codes alphabetically.
func (r *Reference) Currencies() []string {
	out := make([]string, 0, len(r.rates))
	for code := range r.rates {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// ToUSD converts amount. Unknown currencies convert at 1 with ok false.
func (r *Reference) ToUSD(amount decimal.Decimal, currency string) (decimal.Decimal, bool) {
	rate, ok := r.rates[strings.ToUpper(currency)]
	if !ok {
		return amount, false
	}
	return amount.Mul(rate), true
}

// Average returns the reference average for a country code, or the default
// average with ok false.
func (r *Reference) Average(countryCode string) (decimal.Decimal, bool) {
	avg, ok := r.averages[strings.ToUpper(countryCode)]
	if !ok {
		return r.defaultAverage, false
	}
	return avg, true
}

// FormatUSD renders an amount as $1.2B, $3.4M, $5.6K, or a comma-grouped
// whole number below one thousand.
func FormatUSD(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	switch {
	case amount >= 1e9:
		return fmt.Sprintf("%s$%.1fB", sign, amount/1e9)
	case amount >= 1e6:
		return fmt.Sprintf("%s$%.1fM", sign, amount/1e6)
	case amount >= 1e3:
		return fmt.Sprintf("%s$%.1fK", sign, amount/1e3)
	default:
		return sign + "$" + humanize.Comma(int64(math.Round(amount)))
	}
}

// FormatAmount renders an amount in its own currency with thousands
// separators, e.g. "PKR 1,500,000".
func FormatAmount(amount decimal.Decimal, currency string) string {
	f, _ := amount.Round(2).Float64()
	s := humanize.CommafWithDigits(f, 2)
	if currency == "" {
		return s
	}
	return currency + " " + s
}
