package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseAssetType(t *testing.T) {
	got, ok := ParseAssetType("gold")
	assert.True(t, ok)
	assert.Equal(t, AssetGold, got)

	_, ok = ParseAssetType("Gold")
	assert.False(t, ok)

	_, ok = ParseAssetType("")
	assert.False(t, ok)
}

func TestSubmissionValue(t *testing.T) {
	tests := []struct {
		name   string
		sub    Submission
		want   string
		wantOK bool
	}{
		{
			name:   "cash uses cash amount",
			sub:    Submission{AssetType: AssetCash, CashAmount: decimal.NewNullDecimal(decimal.NewFromInt(50000))},
			want:   "50000",
			wantOK: true,
		},
		{
			name: "cash ignores estimated value",
			sub: Submission{
				AssetType:      AssetCash,
				EstimatedValue: decimal.NewNullDecimal(decimal.NewFromInt(10)),
			},
			wantOK: false,
		},
		{
			name:   "gold uses estimated value",
			sub:    Submission{AssetType: AssetGold, EstimatedValue: decimal.NewNullDecimal(decimal.NewFromInt(1200))},
			want:   "1200",
			wantOK: true,
		},
		{
			name:   "zero is discarded",
			sub:    Submission{AssetType: AssetProperty, EstimatedValue: decimal.NewNullDecimal(decimal.Zero)},
			wantOK: false,
		},
		{
			name:   "negative is discarded",
			sub:    Submission{AssetType: AssetCash, CashAmount: decimal.NewNullDecimal(decimal.NewFromInt(-5))},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.sub.Value()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestSubmissionCurrency(t *testing.T) {
	cash := Submission{AssetType: AssetCash, CashCurrency: "PKR", EstimatedValueCurrency: "USD"}
	assert.Equal(t, "PKR", cash.Currency())

	gold := Submission{AssetType: AssetGold, CashCurrency: "PKR", EstimatedValueCurrency: "AED"}
	assert.Equal(t, "AED", gold.Currency())
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("marriage_year", "must be between %d and %d", 1950, 2027)
	assert.Equal(t, "invalid marriage_year: must be between 1950 and 2027", err.Error())
	assert.Equal(t, "marriage_year", err.Field)
}
