package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AssetType string

const (
	AssetCash     AssetType = "cash"
	AssetGold     AssetType = "gold"
	AssetJewelry  AssetType = "jewelry"
	AssetProperty AssetType = "property"
	AssetStocks   AssetType = "stocks"
	AssetBusiness AssetType = "business"
	AssetMixed    AssetType = "mixed"
	AssetOther    AssetType = "other"
)

// AssetTypes lists every accepted asset type in display order.
var AssetTypes = []AssetType{
	AssetCash, AssetGold, AssetJewelry, AssetProperty,
	AssetStocks, AssetBusiness, AssetMixed, AssetOther,
}

// ParseAssetType returns the asset type named by s, or false if s is not one.
func ParseAssetType(s string) (AssetType, bool) {
	for _, t := range AssetTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

func (a AssetType) IsCash() bool {
	return a == AssetCash
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Submission is one anonymous mahr record. Empty optional strings are stored
// as NULL.
type Submission struct {
	ID                     uuid.UUID
	AssetType              AssetType
	CashAmount             decimal.NullDecimal
	CashCurrency           string
	AssetDescription       string
	EstimatedValue         decimal.NullDecimal
	EstimatedValueCurrency string
	RawLocation            string
	Location               string
	CountryCode            string
	Region                 string
	CulturalBackground     string
	Profession             string
	MarriageYear           *int
	Story                  string
	PressureLevel          *int
	Negotiated             bool
	CreatedAt              time.Time
}

// Value returns the amount used for statistics: the cash amount for cash
// submissions, the estimated value otherwise. ok is false when the amount is
// missing or not positive.
func (s *Submission) Value() (decimal.Decimal, bool) {
	v := s.EstimatedValue
	if s.AssetType.IsCash() {
		v = s.CashAmount
	}
	if !v.Valid || !v.Decimal.IsPositive() {
		return decimal.Zero, false
	}
	return v.Decimal, true
}

// Currency returns the currency of the amount reported by Value.
func (s *Submission) Currency() string {
	if s.AssetType.IsCash() {
		return s.CashCurrency
	}
	return s.EstimatedValueCurrency
}
