package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateAmortization(t *testing.T) {
	tests := []struct {
		name                string
		principal           decimal.Decimal
		termMonths          int
		rate                decimal.Decimal
		expectedInstallment decimal.Decimal
		expectedTotal       decimal.Decimal
		expectedError       bool
	}{
		{
			name:                "zero rate splits principal evenly",
			principal:           decimal.NewFromInt(1200),
			termMonths:          12,
			rate:                decimal.Zero,
			expectedInstallment: decimal.NewFromFloat(100.00),
			expectedTotal:       decimal.NewFromFloat(1200.00),
		},
		{
			name:       "zero rate with uneven split keeps total consistent",
			principal:  decimal.NewFromInt(1000),
			termMonths: 3,
			rate:       decimal.Zero,
			// The total follows the rounded installment, not the principal.
			expectedInstallment: decimal.NewFromFloat(333.33),
			expectedTotal:       decimal.NewFromFloat(999.99),
		},
		{
			name:                "zero rate rounding up stays consistent",
			principal:           decimal.NewFromInt(100),
			termMonths:          7,
			rate:                decimal.Zero,
			expectedInstallment: decimal.NewFromFloat(14.29),
			expectedTotal:       decimal.NewFromFloat(100.03),
		},
		{
			name:       "one percent monthly over twelve months",
			principal:  decimal.NewFromInt(1200),
			termMonths: 12,
			rate:       decimal.NewFromInt(1),
			// 1200 * 0.01 * 1.01^12 / (1.01^12 - 1) = 106.62
			expectedInstallment: decimal.NewFromFloat(106.62),
			expectedTotal:       decimal.NewFromFloat(1279.44),
		},
		{
			name:                "single installment at zero rate",
			principal:           decimal.NewFromInt(500),
			termMonths:          1,
			rate:                decimal.Zero,
			expectedInstallment: decimal.NewFromFloat(500.00),
			expectedTotal:       decimal.NewFromFloat(500.00),
		},
		{
			name:          "rejects zero principal",
			principal:     decimal.Zero,
			termMonths:    12,
			rate:          decimal.NewFromInt(1),
			expectedError: true,
		},
		{
			name:          "rejects negative principal",
			principal:     decimal.NewFromInt(-100),
			termMonths:    12,
			rate:          decimal.NewFromInt(1),
			expectedError: true,
		},
		{
			name:          "rejects zero term",
			principal:     decimal.NewFromInt(100),
			termMonths:    0,
			rate:          decimal.NewFromInt(1),
			expectedError: true,
		},
		{
			name:          "rejects negative rate",
			principal:     decimal.NewFromInt(100),
			termMonths:    12,
			rate:          decimal.NewFromInt(-1),
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := CalculateAmortization(tt.principal, tt.termMonths, tt.rate)

			if tt.expectedError {
				assert.Error(t, err)
				assert.Nil(t, quote)
				return
			}

			require.NoError(t, err)
			assert.True(t, quote.InstallmentAmount.Equal(tt.expectedInstallment),
				"installment: expected %v, got %v", tt.expectedInstallment, quote.InstallmentAmount)
			assert.True(t, quote.TotalAmount.Equal(tt.expectedTotal),
				"total: expected %v, got %v", tt.expectedTotal, quote.TotalAmount)
		})
	}
}

// installment * term must equal the total within one cent for any valid input,
// and totals with interest must never drop below the principal.
func TestCalculateAmortizationInvariants(t *testing.T) {
	cases := []struct {
		principal float64
		term      int
		rate      float64
	}{
		{1200, 12, 0},
		{1000, 3, 0},
		{100, 7, 0},
		{999.99, 13, 0},
		{5000, 24, 1.5},
		{999.99, 7, 2.25},
		{150000, 60, 0.99},
		{10, 1, 5},
		{73.50, 13, 0.1},
	}

	oneCent := decimal.NewFromFloat(0.01)

	for _, c := range cases {
		principal := decimal.NewFromFloat(c.principal)
		rate := decimal.NewFromFloat(c.rate)

		quote, err := CalculateAmortization(principal, c.term, rate)
		require.NoError(t, err, "principal=%v term=%d rate=%v", c.principal, c.term, c.rate)

		product := quote.InstallmentAmount.Mul(decimal.NewFromInt(int64(c.term)))
		drift := product.Sub(quote.TotalAmount).Abs()
		assert.True(t, drift.LessThanOrEqual(oneCent),
			"installment*term drifted %v from total for principal=%v term=%d rate=%v",
			drift, c.principal, c.term, c.rate)

		if rate.GreaterThan(decimal.Zero) {
			assert.True(t, quote.TotalAmount.GreaterThanOrEqual(principal),
				"total %v below principal %v at rate %v", quote.TotalAmount, principal, c.rate)
		}
	}
}
